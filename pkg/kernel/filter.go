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

// Outcome restricts trace records to successful or failed syscalls
type Outcome int

const (
	// OutcomeAny reports syscalls whatever their result
	OutcomeAny Outcome = iota
	// OutcomeSuccess reports syscalls with a non-negative result
	OutcomeSuccess
	// OutcomeFailure reports syscalls with a negative result
	OutcomeFailure
)

func (o Outcome) String() string {
	switch o {
	case OutcomeSuccess:
		return "success"
	case OutcomeFailure:
		return "failure"
	default:
		return "any"
	}
}

// Accept returns true if a syscall result matches the outcome
func (o Outcome) Accept(ret int) bool {
	switch o {
	case OutcomeSuccess:
		return ret >= 0
	case OutcomeFailure:
		return ret < 0
	default:
		return true
	}
}

type clearMask uint8

const (
	clearEnabled clearMask = 1 << iota
	clearExclusive
	clearOutcome
	clearTracer
)

// TraceState holds the kernel wide trace filters. It is only mutated from the trap path, under the kernel lock.
type TraceState struct {
	// Enabled is the master switch
	Enabled bool
	// Exclusive is the only syscall considered by the filters, 0 means all syscalls
	Exclusive Sysno
	// Outcome is the outcome filter
	Outcome Outcome
	// ShellReadingCommand is raised by the shell while it reads a new command line
	ShellReadingCommand bool
}

// NewTraceState returns a trace state with every filter off
func NewTraceState() *TraceState {
	return &TraceState{}
}

// Toggle sets the master switch
func (ts *TraceState) Toggle(on bool) {
	ts.Enabled = on
}

// SetExclusive narrows the filters to the provided syscall, 0 clears the restriction
func (ts *TraceState) SetExclusive(no Sysno) {
	ts.Exclusive = no
}

// MarkSuccessOnly restricts trace records to successful syscalls
func (ts *TraceState) MarkSuccessOnly() {
	ts.Outcome = OutcomeSuccess
}

// MarkFailureOnly restricts trace records to failed syscalls
func (ts *TraceState) MarkFailureOnly() {
	ts.Outcome = OutcomeFailure
}

// SetShellReadingCommand raises or lowers the reading command signal of the shell
func (ts *TraceState) SetShellReadingCommand(on bool) {
	ts.ShellReadingCommand = on
}

// Snapshot returns a copy of the current state
func (ts *TraceState) Snapshot() TraceState {
	return *ts
}

func (ts *TraceState) clear(mask clearMask, p *Proc) {
	if mask&clearEnabled != 0 {
		ts.Enabled = false
	}
	if mask&clearExclusive != 0 {
		ts.Exclusive = 0
	}
	if mask&clearOutcome != 0 {
		ts.Outcome = OutcomeAny
	}
	if mask&clearTracer != 0 {
		p.Tracer = false
	}
}
