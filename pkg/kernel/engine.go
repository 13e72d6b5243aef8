/*
Copyright © 2021 GUILLAUME FOURNIER

Licensed under the Apache License, Version 2.0 (the "License");
you may not use this file except in compliance with the License.
You may obtain a copy of the License at

    http://www.apache.org/licenses/LICENSE-2.0

Unless required by applicable law or agreed to in writing, software
distributed under the License is distributed on an "AS IS" BASIS,
WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
See the License for the specific language governing permissions and
limitations under the License.
*/

package kernel

import (
	"time"
)

// Mode is the combination of trace filters in effect for a syscall
type Mode int

const (
	// ModeDisabled reports nothing
	ModeDisabled Mode = iota
	// ModeUnfiltered reports every syscall
	ModeUnfiltered
	// ModeExclusive reports the watched syscall
	ModeExclusive
	// ModeExclusiveSuccess reports the watched syscall when it succeeds
	ModeExclusiveSuccess
	// ModeExclusiveFailure reports the watched syscall when it fails
	ModeExclusiveFailure
	// ModeSuccess reports successful syscalls
	ModeSuccess
	// ModeFailure reports failed syscalls
	ModeFailure
)

func (m Mode) String() string {
	switch m {
	case ModeUnfiltered:
		return "unfiltered"
	case ModeExclusive:
		return "exclusive"
	case ModeExclusiveSuccess:
		return "exclusive_success"
	case ModeExclusiveFailure:
		return "exclusive_failure"
	case ModeSuccess:
		return "success"
	case ModeFailure:
		return "failure"
	default:
		return "disabled"
	}
}

// SelectMode returns the mode of a trace state. Nothing is reported while the master switch is off, filters armed in
// the meantime stay dormant until tracing is turned on.
func SelectMode(ts TraceState) Mode {
	switch {
	case !ts.Enabled:
		return ModeDisabled
	case ts.Exclusive != 0 && ts.Outcome == OutcomeSuccess:
		return ModeExclusiveSuccess
	case ts.Exclusive != 0 && ts.Outcome == OutcomeFailure:
		return ModeExclusiveFailure
	case ts.Exclusive != 0:
		return ModeExclusive
	case ts.Outcome == OutcomeSuccess:
		return ModeSuccess
	case ts.Outcome == OutcomeFailure:
		return ModeFailure
	default:
		return ModeUnfiltered
	}
}

type emission int

const (
	// run the handler, report nothing
	emitNone emission = iota
	// open the record, run the handler, complete the record with the result
	emitAround
	// run the handler, report a complete record if the outcome matches
	emitAfter
	// report a record without result, then run the handler
	emitAnnounce
	// report a record with a zero result, then run the handler
	emitAnnounceZero
)

type policy struct {
	watch     func(ts TraceState, p *Proc, no Sysno) bool
	emission  emission
	overrides map[Sysno]emission
	outcome   Outcome
	clear     clearMask
}

func (pol policy) emissionFor(no Sysno) emission {
	if e, ok := pol.overrides[no]; ok {
		return e
	}
	return pol.emission
}

func watchExclusive(ts TraceState, _ *Proc, no Sysno) bool {
	return no == ts.Exclusive
}

func watchAll(TraceState, *Proc, Sysno) bool {
	return true
}

// the shell only reports the commands it reads and execs
func watchUnfiltered(ts TraceState, p *Proc, no Sysno) bool {
	if p.Role != RoleShell {
		return true
	}
	return no == SysExec || (no == SysRead && ts.ShellReadingCommand)
}

var policies = map[Mode]policy{
	ModeDisabled: {},
	ModeUnfiltered: {
		watch:    watchUnfiltered,
		emission: emitAround,
		overrides: map[Sysno]emission{
			SysWrite: emitAfter,
			SysExit:  emitAnnounceZero,
		},
	},
	ModeExclusive: {
		watch:    watchExclusive,
		emission: emitAround,
		clear:    clearEnabled | clearExclusive | clearTracer,
	},
	ModeExclusiveSuccess: {
		watch:    watchExclusive,
		emission: emitAfter,
		outcome:  OutcomeSuccess,
		clear:    clearEnabled | clearExclusive | clearOutcome | clearTracer,
	},
	ModeExclusiveFailure: {
		watch:    watchExclusive,
		emission: emitAfter,
		outcome:  OutcomeFailure,
		clear:    clearEnabled | clearExclusive | clearOutcome | clearTracer,
	},
	ModeSuccess: {
		watch:    watchAll,
		emission: emitAfter,
		overrides: map[Sysno]emission{
			SysExit: emitAnnounce,
		},
		outcome: OutcomeSuccess,
		clear:   clearEnabled | clearOutcome | clearTracer,
	},
	ModeFailure: {
		watch:    watchAll,
		emission: emitAfter,
		overrides: map[Sysno]emission{
			SysExit: emitNone,
		},
		outcome: OutcomeFailure,
		clear:   clearEnabled | clearOutcome | clearTracer,
	},
}

// Tracer decides, for each traced syscall, what to report and when to run the handler
type Tracer struct {
	state *TraceState
	sink  Sink
	now   func() time.Time
}

// NewTracer returns a new Tracer reporting to the provided sink
func NewTracer(state *TraceState, sink Sink, now func() time.Time) *Tracer {
	if now == nil {
		now = time.Now
	}
	return &Tracer{
		state: state,
		sink:  sink,
		now:   now,
	}
}

// State returns the trace state of the tracer
func (t *Tracer) State() *TraceState {
	return t.state
}

// Run executes the syscall described by d on behalf of p and reports it according to the trace filters. The handler
// runs exactly once. The decision is taken on a snapshot of the filters taken before the handler runs, so that a
// filter change made while the handler is blocked doesn't affect this syscall.
func (t *Tracer) Run(p *Proc, d Descriptor) int {
	snapshot := t.state.Snapshot()
	pol := policies[SelectMode(snapshot)]

	e := emitNone
	if pol.watch != nil && pol.watch(snapshot, p, d.No) {
		e = pol.emissionFor(d.No)
	}

	record := Record{
		PID:     p.PID,
		Comm:    p.Name,
		Syscall: d.Name,
	}

	var ret int
	switch e {
	case emitAround:
		record.Timestamp = t.now()
		t.sink.Begin(record)
		ret = d.Handler(p)
		record.Ret, record.HasRet = ret, true
		t.sink.End(record)
	case emitAfter:
		ret = d.Handler(p)
		if pol.outcome.Accept(ret) {
			record.Timestamp = t.now()
			record.Ret, record.HasRet = ret, true
			t.sink.Emit(record)
		}
	case emitAnnounce:
		record.Timestamp = t.now()
		t.sink.Emit(record)
		ret = d.Handler(p)
	case emitAnnounceZero:
		record.Timestamp = t.now()
		record.HasRet = true
		t.sink.Emit(record)
		ret = d.Handler(p)
	default:
		ret = d.Handler(p)
	}

	if d.No == SysExit && p.Role != RoleShell {
		t.state.clear(pol.clear, p)
	}
	return ret
}
