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
	"sync"

	"github.com/sirupsen/logrus"
)

// SyscallStats counts the trace records of a syscall
type SyscallStats struct {
	Records  uint64
	Failures uint64
}

// StatsSink counts the records it forwards to another sink
type StatsSink struct {
	sync.Mutex
	next  Sink
	stats map[string]*SyscallStats
}

// NewStatsSink returns a new StatsSink forwarding to next
func NewStatsSink(next Sink) *StatsSink {
	return &StatsSink{
		next:  next,
		stats: make(map[string]*SyscallStats),
	}
}

func (ss *StatsSink) count(r Record) {
	ss.Lock()
	defer ss.Unlock()
	s, ok := ss.stats[r.Syscall]
	if !ok {
		s = &SyscallStats{}
		ss.stats[r.Syscall] = s
	}
	s.Records++
	if r.HasRet && r.Ret < 0 {
		s.Failures++
	}
}

// Begin forwards an opened record, it is counted once completed
func (ss *StatsSink) Begin(r Record) {
	ss.next.Begin(r)
}

// End counts and forwards a completed record
func (ss *StatsSink) End(r Record) {
	ss.count(r)
	ss.next.End(r)
}

// Emit counts and forwards a record
func (ss *StatsSink) Emit(r Record) {
	ss.count(r)
	ss.next.Emit(r)
}

// Stats returns a copy of the counters of the provided syscall
func (ss *StatsSink) Stats(name string) SyscallStats {
	ss.Lock()
	defer ss.Unlock()
	if s, ok := ss.stats[name]; ok {
		return *s
	}
	return SyscallStats{}
}

// Dump logs the counters of each syscall
func (ss *StatsSink) Dump() {
	ss.Lock()
	defer ss.Unlock()

	var total, failures uint64
	logrus.Infoln()
	logrus.Infof("%24s\t\t|\t\tRecords\t\t|\t\tFailures", "Syscall Name")
	for no := SysFork; no < SysLastSyscall; no++ {
		s, ok := ss.stats[no.String()]
		if !ok {
			continue
		}
		logrus.Infof("%24s\t\t|\t\t%d\t\t|\t\t%d", no, s.Records, s.Failures)
		total += s.Records
		failures += s.Failures
	}
	logrus.Infoln()
	logrus.Infof("Total records: %d", total)
	logrus.Infof("Total failures: %d", failures)
}
