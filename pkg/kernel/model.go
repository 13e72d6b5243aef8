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
	"io"
	"io/ioutil"
	"time"

	"github.com/pkg/errors"
	"golang.org/x/time/rate"
)

const (
	// textSize is the size of the (empty) text segment at the bottom of each address space
	textSize = 1024
	// stackSize is the size of the user stack, right above the text segment
	stackSize = 4096
	// scratchSize is the size of the area used by the user library to marshal syscall arguments
	scratchSize = 4096

	// MinMemSize is the smallest address space a process can be given
	MinMemSize = textSize + stackSize + scratchSize
	// DefaultMemSize is the default address space size of a process
	DefaultMemSize = 16 * 1024
	// MaxMemSize is the largest address space sbrk can grow a process to
	MaxMemSize = 1024 * 1024
	// NProc is the maximum number of processes
	NProc = 64
	// DefaultTickInterval is the default period of the clock interrupt
	DefaultTickInterval = 10 * time.Millisecond
	// DefaultUnknownSyscallLogRate is the default number of unknown syscall warnings logged per second
	DefaultUnknownSyscallLogRate = 1
)

// Options contains the parameters of the kernel
type Options struct {
	// Console receives the output of the processes, the kernel diagnostics, and the trace records unless a Sink is
	// provided
	Console io.Writer
	// Input is read by processes reading file descriptor 0
	Input io.Reader
	// Sink receives the trace records
	Sink Sink
	// TickInterval is the period of the clock interrupt, 0 disables the clock (see Kernel.Tick)
	TickInterval time.Duration
	// MemSize is the address space size given to new processes
	MemSize uint32
	// UnknownSyscallLogRate is the number of unknown syscall warnings logged per second
	UnknownSyscallLogRate rate.Limit
}

// IsValid checks the options
func (o Options) IsValid() error {
	if o.MemSize != 0 && o.MemSize < MinMemSize {
		return errors.Errorf("memory size %d is below the minimum of %d", o.MemSize, MinMemSize)
	}
	if o.MemSize > MaxMemSize {
		return errors.Errorf("memory size %d is above the maximum of %d", o.MemSize, MaxMemSize)
	}
	if o.TickInterval < 0 {
		return errors.New("the tick interval can't be negative")
	}
	if o.UnknownSyscallLogRate < 0 {
		return errors.New("the unknown syscall log rate can't be negative")
	}
	return nil
}

func (o Options) withDefaults() Options {
	if o.Console == nil {
		o.Console = ioutil.Discard
	}
	if o.Sink == nil {
		o.Sink = NewConsoleSink(o.Console)
	}
	if o.MemSize == 0 {
		o.MemSize = DefaultMemSize
	}
	if o.UnknownSyscallLogRate == 0 {
		o.UnknownSyscallLogRate = DefaultUnknownSyscallLogRate
	}
	return o
}
