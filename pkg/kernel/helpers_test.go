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
	"bytes"
	"fmt"
	"time"

	qt "github.com/frankban/quicktest"
	"golang.org/x/time/rate"
)

var testTime = time.Date(2021, 10, 1, 12, 0, 0, 0, time.UTC)

// recordSink keeps the trace records and logs the sink calls in the fixture event log
type recordSink struct {
	f       *fixture
	records []Record
}

func (rs *recordSink) Begin(r Record) {
	rs.f.events = append(rs.f.events, "begin:"+r.Syscall)
}

func (rs *recordSink) End(r Record) {
	rs.f.events = append(rs.f.events, fmt.Sprintf("end:%s=%d", r.Syscall, r.Ret))
	rs.records = append(rs.records, r)
}

func (rs *recordSink) Emit(r Record) {
	if r.HasRet {
		rs.f.events = append(rs.f.events, fmt.Sprintf("emit:%s=%d", r.Syscall, r.Ret))
	} else {
		rs.f.events = append(rs.f.events, "emit:"+r.Syscall)
	}
	rs.records = append(rs.records, r)
}

// fixture is a dispatcher whose handlers count their calls and return canned results
type fixture struct {
	state      *TraceState
	sink       *recordSink
	dispatcher *Dispatcher
	console    bytes.Buffer

	calls   map[Sysno]int
	results map[Sysno]func(p *Proc) int
	events  []string
}

func newFixture(c *qt.C) *fixture {
	f := &fixture{
		state:   NewTraceState(),
		calls:   make(map[Sysno]int),
		results: make(map[Sysno]func(p *Proc) int),
	}
	f.sink = &recordSink{f: f}

	handlers := make(map[Sysno]Handler)
	for no := SysFork; no < SysLastSyscall; no++ {
		no := no
		handlers[no] = func(p *Proc) int {
			f.calls[no]++
			f.events = append(f.events, "call:"+no.String())
			if result, ok := f.results[no]; ok {
				return result(p)
			}
			return 0
		}
	}
	table, err := NewTable(handlers)
	c.Assert(err, qt.IsNil)

	tracer := NewTracer(f.state, f.sink, func() time.Time { return testTime })
	f.dispatcher = NewDispatcher(table, tracer, &f.console, rate.Inf)
	return f
}

func (f *fixture) returns(no Sysno, ret int) {
	f.results[no] = func(*Proc) int {
		return ret
	}
}

func (f *fixture) call(p *Proc, no Sysno) int {
	p.TF.Sysno = no
	f.dispatcher.Dispatch(p)
	return p.TF.Ret
}

func (f *fixture) totalCalls() int {
	var total int
	for _, n := range f.calls {
		total += n
	}
	return total
}

func newTestProc(pid int, name string) *Proc {
	return NewProc(pid, name, MinMemSize)
}
