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
	"fmt"
	"io"

	"github.com/sirupsen/logrus"
	"golang.org/x/time/rate"
)

// Dispatcher routes syscall traps to their handlers
type Dispatcher struct {
	table   *Table
	tracer  *Tracer
	console io.Writer
	limiter *rate.Limiter
}

// NewDispatcher returns a new Dispatcher. Unknown syscalls are reported on the console, and logged at most
// logRate times per second.
func NewDispatcher(table *Table, tracer *Tracer, console io.Writer, logRate rate.Limit) *Dispatcher {
	return &Dispatcher{
		table:   table,
		tracer:  tracer,
		console: console,
		limiter: rate.NewLimiter(logRate, 1),
	}
}

// Traced returns true if the syscalls of p go through the tracer
func (d *Dispatcher) Traced(p *Proc) bool {
	return p.Role != RoleTracer && (p.Tracer || d.tracer.State().Enabled)
}

// Dispatch runs the syscall requested in the trap frame of p and stores its result in the trap frame
func (d *Dispatcher) Dispatch(p *Proc) {
	no := p.TF.Sysno
	desc, err := d.table.Lookup(no)
	if err != nil {
		d.reportUnknown(p, no)
		p.TF.Ret = -1
		return
	}

	if d.Traced(p) {
		p.TF.Ret = d.tracer.Run(p, desc)
	} else {
		p.TF.Ret = desc.Handler(p)
	}
}

func (d *Dispatcher) reportUnknown(p *Proc, no Sysno) {
	fmt.Fprintf(d.console, "%d %s: unknown sys call %d\n", p.PID, p.Name, int(no))
	if d.limiter.Allow() {
		logrus.WithFields(logrus.Fields{
			"pid":   p.PID,
			"comm":  p.Name,
			"sysno": int(no),
		}).Warn("unknown syscall")
	}
}
