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
	"strings"
)

// Role identifies the processes that the tracer handles differently
type Role int

const (
	// RoleUser is a regular process
	RoleUser Role = iota
	// RoleShell is the interactive shell. The shell keeps tracing active when it exits and only its command
	// reads and execs are reported by unfiltered tracing.
	RoleShell
	// RoleTracer is the tracing control command. Its own syscalls are never traced.
	RoleTracer
)

func (r Role) String() string {
	switch r {
	case RoleShell:
		return "shell"
	case RoleTracer:
		return "tracer"
	default:
		return "user"
	}
}

const (
	shellPrefix  = "sh"
	tracerPrefix = "strace"

	// commLength is the size of a process name, the terminating NUL included
	commLength = 16
	// NOFile is the number of open files per process
	NOFile = 16
)

// RoleForName returns the role of a program image given its name. This is called each time a process loads a new
// image, the role then travels with the process record.
func RoleForName(name string) Role {
	switch {
	case strings.HasPrefix(name, tracerPrefix):
		return RoleTracer
	case strings.HasPrefix(name, shellPrefix):
		return RoleShell
	default:
		return RoleUser
	}
}

type procState int

const (
	procRunnable procState = iota
	procSleeping
	procZombie
)

// TrapFrame holds the registers saved on a syscall trap
type TrapFrame struct {
	// Sysno is the requested syscall id
	Sysno Sysno
	// SP is the user stack pointer. The n-th syscall argument sits at SP + 4 + 4*n.
	SP uint32
	// Ret is the syscall result slot
	Ret int
}

// Proc is a process record
type Proc struct {
	PID    int
	Name   string
	Role   Role
	Tracer bool
	TF     TrapFrame
	Mem    []byte
	Killed bool

	state  procState
	parent *Proc
	files  [NOFile]bool

	// user image
	program Program
	argv    []string

	// set by the user library before a fork trap, consumed by the fork handler
	forkBody func(u *UserContext)
	// set by exec and exit, observed by the user library when the trap returns
	unwind unwindReason
}

// Size returns the declared size of the process address space
func (p *Proc) Size() uint32 {
	return uint32(len(p.Mem))
}

// Argv returns the arguments of the current image
func (p *Proc) Argv() []string {
	return p.argv
}

func basename(path string) string {
	if i := strings.LastIndexByte(path, '/'); i >= 0 {
		return path[i+1:]
	}
	return path
}

// NewProc returns a detached process record with an address space of the provided size. It is used by tests and
// tools that drive a Dispatcher without a full kernel.
func NewProc(pid int, name string, memSize uint32) *Proc {
	return &Proc{
		PID:  pid,
		Name: name,
		Role: RoleForName(name),
		Mem:  make([]byte, memSize),
	}
}
