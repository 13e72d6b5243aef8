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
	"github.com/pkg/errors"
)

// Handler implements a syscall on behalf of the provided process. A negative result means failure.
type Handler func(p *Proc) int

// Descriptor describes a supported syscall
type Descriptor struct {
	No      Sysno
	Name    string
	Handler Handler
}

// Table maps syscall ids to their descriptors. A table is read-only once built.
type Table struct {
	descriptors [SysLastSyscall]*Descriptor
}

// NewTable builds a syscall table from the provided handlers
func NewTable(handlers map[Sysno]Handler) (*Table, error) {
	t := &Table{}
	for no, h := range handlers {
		if !no.Valid() {
			return nil, errors.Wrapf(ErrUnknownSyscall, "can't register syscall %d", no)
		}
		if h == nil {
			return nil, errors.Errorf("nil handler for syscall %s", no)
		}
		t.descriptors[no] = &Descriptor{
			No:      no,
			Name:    no.String(),
			Handler: h,
		}
	}
	return t, nil
}

// Lookup returns the descriptor of the provided syscall id
func (t *Table) Lookup(no Sysno) (Descriptor, error) {
	if !no.Valid() || t.descriptors[no] == nil {
		return Descriptor{}, ErrUnknownSyscall
	}
	return *t.descriptors[no], nil
}

// Len returns the number of registered syscalls
func (t *Table) Len() int {
	var n int
	for _, d := range t.descriptors {
		if d != nil {
			n++
		}
	}
	return n
}
