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

package user

import (
	"fmt"

	"github.com/pkg/errors"

	"github.com/Gui774ume/ktrace/pkg/kernel"
)

const (
	// Stdin is the standard input file descriptor
	Stdin = 0
	// Stdout is the standard output file descriptor
	Stdout = 1
	// Stderr is the standard error file descriptor
	Stderr = 2

	// ioChunk is the largest buffer moved by a single read or write
	ioChunk = 1024
)

// Env is the user library: it marshals the arguments of each syscall onto the process stack and traps
type Env struct {
	*kernel.UserContext
}

// Main is the entry point of a user program
type Main func(e Env)

// Program turns a user program entry point into a program image
func Program(main Main) kernel.Program {
	return func(u *kernel.UserContext) {
		main(Env{u})
	}
}

func word(i int) uint32 {
	return uint32(int32(i))
}

func boolWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}

// Fork creates a child process running body
func (e Env) Fork(body Main) int {
	return e.UserContext.Fork(Program(body))
}

// Exit terminates the process, it doesn't return
func (e Env) Exit() {
	e.Syscall(kernel.SysExit)
}

// Wait waits for a child to exit and returns its pid, or -1 if the process has no children
func (e Env) Wait() int {
	return e.Syscall(kernel.SysWait)
}

// Kill marks a process as killed
func (e Env) Kill(pid int) int {
	return e.Syscall(kernel.SysKill, word(pid))
}

// Exec replaces the process image. It only returns on failure.
func (e Env) Exec(path string, argv []string) int {
	ptrs := make([]uint32, 0, len(argv)+1)
	for _, arg := range argv {
		ptrs = append(ptrs, e.AllocString(arg))
	}
	ptrs = append(ptrs, 0)
	argvAddr := e.AllocWords(ptrs)
	pathAddr := e.AllocString(path)
	return e.Syscall(kernel.SysExec, pathAddr, argvAddr)
}

// Getpid returns the pid of the process
func (e Env) Getpid() int {
	return e.Syscall(kernel.SysGetpid)
}

// Sbrk grows the process address space by n bytes and returns the previous end of the address space
func (e Env) Sbrk(n int) int {
	return e.Syscall(kernel.SysSbrk, word(n))
}

// Sleep sleeps for n clock ticks
func (e Env) Sleep(n int) int {
	return e.Syscall(kernel.SysSleep, word(n))
}

// Uptime returns the number of clock ticks since boot
func (e Env) Uptime() int {
	return e.Syscall(kernel.SysUptime)
}

// Read reads up to n bytes from fd
func (e Env) Read(fd int, n int) ([]byte, int) {
	if n > ioChunk {
		n = ioChunk
	}
	addr := e.Alloc(make([]byte, n))
	ret := e.Syscall(kernel.SysRead, word(fd), addr, word(n))
	if ret <= 0 {
		return nil, ret
	}
	return e.Load(addr, ret), ret
}

// Write writes data to fd and returns the number of bytes written, or -1
func (e Env) Write(fd int, data []byte) int {
	var total int
	for len(data) > 0 {
		chunk := data
		if len(chunk) > ioChunk {
			chunk = chunk[:ioChunk]
		}
		addr := e.Alloc(chunk)
		ret := e.Syscall(kernel.SysWrite, word(fd), addr, word(len(chunk)))
		if ret < 0 {
			return ret
		}
		total += ret
		data = data[len(chunk):]
	}
	return total
}

// Printf formats and writes to fd
func (e Env) Printf(fd int, format string, a ...interface{}) {
	e.Write(fd, []byte(fmt.Sprintf(format, a...)))
}

// Open opens a file and returns its descriptor
func (e Env) Open(path string, mode int) int {
	return e.Syscall(kernel.SysOpen, e.AllocString(path), word(mode))
}

// Close closes fd
func (e Env) Close(fd int) int {
	return e.Syscall(kernel.SysClose, word(fd))
}

// Dup duplicates fd
func (e Env) Dup(fd int) int {
	return e.Syscall(kernel.SysDup, word(fd))
}

// Chdir changes the current directory
func (e Env) Chdir(path string) int {
	return e.Syscall(kernel.SysChdir, e.AllocString(path))
}

// Mkdir creates a directory
func (e Env) Mkdir(path string) int {
	return e.Syscall(kernel.SysMkdir, e.AllocString(path))
}

// Trace sets the tracer flag of the process
func (e Env) Trace(on bool) int {
	return e.Syscall(kernel.SysTrace, boolWord(on))
}

// TToggle sets the global trace switch
func (e Env) TToggle(on bool) int {
	return e.Syscall(kernel.SysTToggle, boolWord(on))
}

// Excid restricts tracing to a single syscall
func (e Env) Excid(no kernel.Sysno) int {
	return e.Syscall(kernel.SysExcid, word(int(no)))
}

// GetTraceFlag returns the global trace switch
func (e Env) GetTraceFlag() bool {
	return e.Syscall(kernel.SysGetTraceFlag) != 0
}

// SetSuccessFlag restricts tracing to successful syscalls
func (e Env) SetSuccessFlag() int {
	return e.Syscall(kernel.SysSetSuccessFlag)
}

// SetFailFlag restricts tracing to failed syscalls
func (e Env) SetFailFlag() int {
	return e.Syscall(kernel.SysSetFailFlag)
}

// fdWriter is an io.Writer on top of a file descriptor
type fdWriter struct {
	e  Env
	fd int
}

func (w fdWriter) Write(p []byte) (int, error) {
	if n := w.e.Write(w.fd, p); n < 0 {
		return 0, errors.Errorf("write on fd %d failed", w.fd)
	}
	return len(p), nil
}
