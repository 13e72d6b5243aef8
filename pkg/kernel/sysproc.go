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
	"github.com/sirupsen/logrus"
)

// MaxArg is the maximum number of exec arguments
const MaxArg = 32

func (k *Kernel) sysFork(p *Proc) int {
	body := p.forkBody
	p.forkBody = nil
	if body == nil {
		return -1
	}

	child, err := k.allocProc()
	if err != nil {
		logrus.Debugf("fork from %s (pid %d) failed: %v", p.Name, p.PID, err)
		return -1
	}
	child.Name = p.Name
	child.Role = p.Role
	// a command forked by the shell is a regular process, even before it execs
	if p.Role == RoleShell {
		child.Role = RoleUser
	}
	child.Tracer = p.Tracer
	child.parent = p
	child.files = p.files
	child.program = p.program
	child.argv = p.argv
	child.Mem = make([]byte, len(p.Mem))
	copy(child.Mem, p.Mem)

	k.start(child, body)
	return child.PID
}

func (k *Kernel) sysExit(p *Proc) int {
	k.exit(p)
	return 0
}

func (k *Kernel) sysWait(p *Proc) int {
	for {
		haveKids := false
		for pid, c := range k.procs {
			if c.parent != p {
				continue
			}
			haveKids = true
			if c.state == procZombie {
				delete(k.procs, pid)
				return pid
			}
		}
		if !haveKids || p.Killed {
			return -1
		}
		p.state = procSleeping
		k.cond.Wait()
		p.state = procRunnable
	}
}

func (k *Kernel) sysKill(p *Proc) int {
	pid, err := ArgInt(p, 0)
	if err != nil {
		return -1
	}
	target, ok := k.procs[int(pid)]
	if !ok || target.state == procZombie {
		return -1
	}
	target.Killed = true
	k.cond.Broadcast()
	return 0
}

func (k *Kernel) sysGetpid(p *Proc) int {
	return p.PID
}

func (k *Kernel) sysSbrk(p *Proc) int {
	n, err := ArgInt(p, 0)
	if err != nil {
		return -1
	}
	addr := p.Size()
	size := int64(addr) + int64(n)
	if size < MinMemSize || size > MaxMemSize {
		return -1
	}
	if n > 0 {
		p.Mem = append(p.Mem, make([]byte, n)...)
	} else {
		p.Mem = p.Mem[:size]
	}
	return int(addr)
}

func (k *Kernel) sysSleep(p *Proc) int {
	n, err := ArgInt(p, 0)
	if err != nil || n < 0 {
		return -1
	}
	ticks0 := k.ticks
	for k.ticks-ticks0 < uint32(n) {
		if p.Killed {
			return -1
		}
		p.state = procSleeping
		k.cond.Wait()
		p.state = procRunnable
	}
	return 0
}

// sysUptime returns how many clock ticks have occurred since boot
func (k *Kernel) sysUptime(p *Proc) int {
	return int(k.ticks)
}

func (k *Kernel) sysExec(p *Proc) int {
	path, err := ArgString(p, 0)
	if err != nil {
		return -1
	}
	uargv, err := ArgInt(p, 1)
	if err != nil {
		return -1
	}

	var argv []string
	for i := 0; ; i++ {
		if i >= MaxArg {
			return -1
		}
		uarg, err := FetchInt(p, uint32(uargv)+wordSize*uint32(i))
		if err != nil {
			return -1
		}
		if uarg == 0 {
			break
		}
		addr, length, err := FetchStr(p, uint32(uarg))
		if err != nil {
			return -1
		}
		argv = append(argv, string(p.Mem[addr:addr+uint32(length)]))
	}

	program, ok := k.programs[basename(path)]
	if !ok {
		return -1
	}
	k.load(p, path, program, argv)
	p.unwind = unwindExec
	return 0
}

// sysTrace sets the tracer flag of the calling process
func (k *Kernel) sysTrace(p *Proc) int {
	on, err := ArgInt(p, 0)
	if err != nil {
		return -1
	}
	p.Tracer = on != 0
	return 0
}

func (k *Kernel) sysTToggle(p *Proc) int {
	on, err := ArgInt(p, 0)
	if err != nil {
		return -1
	}
	k.state.Toggle(on != 0)
	return 0
}

func (k *Kernel) sysExcid(p *Proc) int {
	no, err := ArgInt(p, 0)
	if err != nil {
		return -1
	}
	k.state.SetExclusive(Sysno(no))
	return 0
}

func (k *Kernel) sysGetTraceFlag(p *Proc) int {
	if k.state.Enabled {
		return 1
	}
	return 0
}

func (k *Kernel) sysSetSuccessFlag(p *Proc) int {
	k.state.MarkSuccessOnly()
	return 0
}

func (k *Kernel) sysSetFailFlag(p *Proc) int {
	k.state.MarkFailureOnly()
	return 0
}
