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
	"strconv"
	"strings"

	"github.com/Gui774ume/ktrace/pkg/kernel"
)

// Programs lists the user programs available to exec
var Programs = map[string]Main{
	"init":   Init,
	"sh":     Sh,
	"strace": Strace,
	"echo":   Echo,
	"sleep":  Sleep,
	"getpid": Getpid,
	"kill":   Kill,
	"fail":   Fail,
}

// Install registers the user programs in the provided kernel
func Install(k *kernel.Kernel) {
	for name, main := range Programs {
		k.Register(name, Program(main))
	}
}

// Echo prints its arguments
func Echo(e Env) {
	var args []string
	if argv := e.Argv(); len(argv) > 1 {
		args = argv[1:]
	}
	e.Printf(Stdout, "%s\n", strings.Join(args, " "))
}

// Sleep sleeps for the provided number of ticks
func Sleep(e Env) {
	if len(e.Argv()) < 2 {
		e.Printf(Stderr, "usage: sleep ticks\n")
		return
	}
	n, err := strconv.Atoi(e.Argv()[1])
	if err != nil {
		e.Printf(Stderr, "sleep: invalid tick count %s\n", e.Argv()[1])
		return
	}
	e.Sleep(n)
}

// Getpid prints the pid of the process
func Getpid(e Env) {
	e.Printf(Stdout, "%d\n", e.Getpid())
}

// Kill kills the provided processes
func Kill(e Env) {
	if len(e.Argv()) < 2 {
		e.Printf(Stderr, "usage: kill pid...\n")
		return
	}
	for _, arg := range e.Argv()[1:] {
		pid, err := strconv.Atoi(arg)
		if err != nil {
			e.Printf(Stderr, "kill: invalid pid %s\n", arg)
			continue
		}
		e.Kill(pid)
	}
}

// Fail issues syscalls that fail, and one that succeeds
func Fail(e Env) {
	e.Close(kernel.NOFile + 1)
	e.Open("missing", 0)
	e.Mkdir("dir")
	e.Syscall(kernel.SysLastSyscall)
	e.Getpid()
}
