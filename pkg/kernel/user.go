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

// BadAddress is returned by the scratch allocator when it runs out of space. The kernel rejects it as an argument.
const BadAddress = ^uint32(0)

// UserContext is the user side of a process: the user code of a program uses it to trap into the kernel
type UserContext struct {
	k       *Kernel
	p       *Proc
	scratch uint32
}

// PID returns the pid of the process
func (u *UserContext) PID() int {
	return u.p.PID
}

// Argv returns the arguments of the current image
func (u *UserContext) Argv() []string {
	return u.p.argv
}

// Kernel returns the kernel the process runs on
func (u *UserContext) Kernel() *Kernel {
	return u.k
}

// Alloc copies data to the argument area of the process address space and returns its address. The argument area is
// reset after each syscall.
func (u *UserContext) Alloc(data []byte) uint32 {
	if u.scratch+uint32(len(data)) > scratchSize {
		return BadAddress
	}
	addr := textSize + stackSize + u.scratch
	copy(u.p.Mem[addr:], data)
	u.scratch += uint32(len(data))
	return addr
}

// AllocString copies a NUL terminated string to the argument area
func (u *UserContext) AllocString(s string) uint32 {
	return u.Alloc(append([]byte(s), 0))
}

// AllocWords copies an array of words to the argument area
func (u *UserContext) AllocWords(words []uint32) uint32 {
	data := make([]byte, wordSize*len(words))
	for i, w := range words {
		ByteOrder.PutUint32(data[i*wordSize:], w)
	}
	return u.Alloc(data)
}

// Load copies size bytes at addr out of the process address space
func (u *UserContext) Load(addr uint32, size int) []byte {
	if uint64(addr)+uint64(size) > uint64(u.p.Size()) {
		return nil
	}
	out := make([]byte, size)
	copy(out, u.p.Mem[addr:])
	return out
}

// Syscall pushes the arguments on the user stack and traps into the kernel. It doesn't return when the syscall is a
// successful exec or exit.
func (u *UserContext) Syscall(no Sysno, args ...uint32) int {
	p := u.p
	sp := uint32(textSize+stackSize) - wordSize*uint32(len(args)+1)
	// fake return address
	ByteOrder.PutUint32(p.Mem[sp:], 0)
	for i, arg := range args {
		ByteOrder.PutUint32(p.Mem[sp+wordSize*uint32(i+1):], arg)
	}
	p.TF.SP = sp
	p.TF.Sysno = no

	ret := u.k.Trap(p)
	u.scratch = 0

	if p.unwind != unwindNone {
		panic(p.unwind)
	}
	return ret
}

// Fork traps into the kernel to create a child process running body. It returns the pid of the child, or -1.
func (u *UserContext) Fork(body Program) int {
	u.p.forkBody = body
	defer func() {
		u.p.forkBody = nil
	}()
	return u.Syscall(SysFork)
}

// SetShellReadingCommand raises or lowers the reading command signal of the kernel
func (u *UserContext) SetShellReadingCommand(on bool) {
	u.k.SetShellReadingCommand(on)
}

func (u *UserContext) run(body Program) (reason unwindReason) {
	defer func() {
		if r := recover(); r != nil {
			uw, ok := r.(unwindReason)
			if !ok {
				panic(r)
			}
			reason = uw
		}
	}()
	body(u)
	u.Syscall(SysExit)
	return unwindExit
}
