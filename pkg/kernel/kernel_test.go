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
	"context"
	"io"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"
	"github.com/pkg/errors"
)

type sinkFunc func(r Record)

func (sf sinkFunc) Begin(Record) {}

func (sf sinkFunc) End(r Record) {
	sf(r)
}

func (sf sinkFunc) Emit(r Record) {
	sf(r)
}

type kernelFixture struct {
	*Kernel
	console bytes.Buffer
	records []Record
}

func newKernelFixture(c *qt.C, programs map[string]Program) *kernelFixture {
	kf := &kernelFixture{}
	k, err := New(Options{
		Console: &kf.console,
		Sink: sinkFunc(func(r Record) {
			kf.records = append(kf.records, r)
		}),
	})
	c.Assert(err, qt.IsNil)
	for name, program := range programs {
		k.Register(name, program)
	}
	kf.Kernel = k
	return kf
}

func (kf *kernelFixture) run(c *qt.C, name string, argv ...string) {
	c.Assert(kf.Boot(name, argv...), qt.IsNil)
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c.Assert(kf.Wait(ctx), qt.IsNil)
}

func TestNewInvalidOptions(t *testing.T) {
	c := qt.New(t)

	_, err := New(Options{MemSize: MinMemSize - 1})
	c.Assert(err, qt.ErrorMatches, "memory size .* is below the minimum of .*")
	_, err = New(Options{MemSize: MaxMemSize + 1})
	c.Assert(err, qt.ErrorMatches, "memory size .* is above the maximum of .*")
}

func TestBoot(t *testing.T) {
	c := qt.New(t)
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {},
	})

	c.Assert(errors.Is(kf.Boot("missing"), ErrUnknownProgram), qt.IsTrue)
	kf.run(c, "init")
	c.Assert(kf.Boot("init"), qt.ErrorMatches, "kernel already booted")
}

func TestForkWaitExit(t *testing.T) {
	c := qt.New(t)
	var childPID, getpid, waited int
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			childPID = u.Fork(func(u *UserContext) {
				getpid = u.Syscall(SysGetpid)
				u.Syscall(SysExit)
				panic("exit returned")
			})
			waited = u.Syscall(SysWait)
			if u.Syscall(SysWait) != -1 {
				panic("no children left")
			}
		},
	})
	kf.run(c, "init")

	c.Assert(childPID, qt.Equals, 2)
	c.Assert(getpid, qt.Equals, 2)
	c.Assert(waited, qt.Equals, 2)
}

func TestExec(t *testing.T) {
	c := qt.New(t)
	var name string
	var argv []string
	var role Role
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			path := u.AllocString("/bin/strace")
			args := u.AllocWords([]uint32{u.AllocString("strace"), u.AllocString("on"), 0})
			u.Syscall(SysExec, path, args)
			panic("exec returned")
		},
		"strace": func(u *UserContext) {
			name = u.p.Name
			role = u.p.Role
			argv = u.Argv()
		},
	})
	kf.run(c, "init")

	c.Assert(name, qt.Equals, "strace")
	c.Assert(role, qt.Equals, RoleTracer)
	c.Assert(argv, qt.DeepEquals, []string{"strace", "on"})
}

func TestExecFailures(t *testing.T) {
	c := qt.New(t)
	var results []int
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			args := u.AllocWords([]uint32{0})
			results = append(results,
				u.Syscall(SysExec, u.AllocString("missing"), args),
				u.Syscall(SysExec, BadAddress, 0),
			)
		},
	})
	kf.run(c, "init")
	c.Assert(results, qt.DeepEquals, []int{-1, -1})
}

func TestTracedSession(t *testing.T) {
	c := qt.New(t)
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			u.Syscall(SysTToggle, 1)
			u.Syscall(SysGetpid)
		},
	})
	kf.run(c, "init")

	c.Assert(kf.records, qt.CmpEquals(ignoreTimestamp), []Record{
		{PID: 1, Comm: "init", Syscall: "getpid", Ret: 1, HasRet: true},
		{PID: 1, Comm: "init", Syscall: "exit", HasRet: true},
	})
	c.Assert(kf.TraceState().Enabled, qt.IsTrue)
}

func TestTraceFlagIsInherited(t *testing.T) {
	c := qt.New(t)
	var inherited bool
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			u.Syscall(SysTrace, 1)
			u.Fork(func(u *UserContext) {
				inherited = u.p.Tracer
			})
			u.Syscall(SysWait)
		},
	})
	kf.run(c, "init")

	c.Assert(inherited, qt.IsTrue)
	// the master switch is off
	c.Assert(kf.records, qt.HasLen, 0)
}

func TestShellChildIsUserProcess(t *testing.T) {
	c := qt.New(t)
	var role Role
	var name string
	kf := newKernelFixture(c, map[string]Program{
		"sh": func(u *UserContext) {
			u.Syscall(SysTToggle, 1)
			u.Syscall(SysSetSuccessFlag)
			u.Fork(func(u *UserContext) {
				role, name = u.p.Role, u.p.Name
			})
			u.Syscall(SysWait)
		},
	})
	kf.run(c, "sh")

	c.Assert(role, qt.Equals, RoleUser)
	c.Assert(name, qt.Equals, "sh")
	// the exit of the child clears the filters. The wait of the shell is reported when it started before the exit.
	c.Assert(len(kf.records) >= 2, qt.IsTrue)
	c.Assert(kf.records[:2], qt.CmpEquals(ignoreTimestamp), []Record{
		{PID: 1, Comm: "sh", Syscall: "fork", Ret: 2, HasRet: true},
		{PID: 2, Comm: "sh", Syscall: "exit"},
	})
	for _, r := range kf.records[2:] {
		c.Assert(r.Syscall, qt.Equals, "wait")
	}
	c.Assert(len(kf.records) <= 3, qt.IsTrue)
	c.Assert(kf.TraceState(), qt.Equals, TraceState{})
}

func TestUnknownSyscallTrap(t *testing.T) {
	c := qt.New(t)
	var ret int
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			ret = u.Syscall(Sysno(42))
		},
	})
	kf.run(c, "init")

	c.Assert(ret, qt.Equals, -1)
	c.Assert(kf.console.String(), qt.Equals, "1 init: unknown sys call 42\n")
}

func TestSbrk(t *testing.T) {
	c := qt.New(t)
	var results []int
	var size uint32
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			results = append(results,
				u.Syscall(SysSbrk, 4096),
				u.Syscall(SysSbrk, uint32(0xffffe000)),
				u.Syscall(SysSbrk, MaxMemSize),
			)
			size = u.p.Size()
		},
	})
	kf.run(c, "init")

	c.Assert(results, qt.DeepEquals, []int{DefaultMemSize, DefaultMemSize + 4096, -1})
	c.Assert(size, qt.Equals, uint32(DefaultMemSize-4096))
}

func TestSleepAndKill(t *testing.T) {
	c := qt.New(t)
	var slept int
	var woke bool
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			pid := u.Fork(func(u *UserContext) {
				u.Syscall(SysSleep, 1000)
				woke = true
			})
			slept = u.Syscall(SysSleep, 2)
			u.Syscall(SysKill, uint32(pid))
			u.Syscall(SysWait)
		},
	})
	c.Assert(kf.Boot("init"), qt.IsNil)

	deadline := time.After(10 * time.Second)
	for done := false; !done; {
		select {
		case <-kf.Done():
			done = true
		case <-deadline:
			c.Fatal("kernel didn't shut down")
		default:
			kf.Tick()
			time.Sleep(time.Millisecond)
		}
	}
	c.Assert(slept, qt.Equals, 0)
	c.Assert(woke, qt.IsFalse)
}

func TestStop(t *testing.T) {
	c := qt.New(t)
	kf := newKernelFixture(c, map[string]Program{
		"init": func(u *UserContext) {
			u.Syscall(SysSleep, 1000)
		},
	})
	c.Assert(kf.Boot("init"), qt.IsNil)
	kf.Stop()

	select {
	case <-kf.Done():
	default:
		c.Fatal("init is still running after Stop")
	}
}

func TestStopInterruptsConsoleRead(t *testing.T) {
	c := qt.New(t)
	input, _ := io.Pipe()
	var console bytes.Buffer
	k, err := New(Options{
		Console: &console,
		Input:   input,
	})
	c.Assert(err, qt.IsNil)
	k.Register("init", func(u *UserContext) {
		buf := u.Alloc(make([]byte, 16))
		u.Syscall(SysRead, 0, buf, 16)
		panic("read returned after Stop")
	})
	c.Assert(k.Boot("init"), qt.IsNil)

	time.Sleep(10 * time.Millisecond)
	k.Stop()

	select {
	case <-k.Done():
	default:
		c.Fatal("init is still running after Stop")
	}
}
