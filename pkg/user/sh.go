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
	"strings"
)

const (
	prompt     = "$ "
	maxCmdLine = 100
)

// Init starts the shell and waits for it. The kernel shuts down when init exits.
func Init(e Env) {
	pid := e.Fork(func(e Env) {
		e.Exec("sh", []string{"sh"})
		e.Printf(Stderr, "init: exec sh failed\n")
		e.Exit()
	})
	if pid < 0 {
		e.Printf(Stderr, "init: fork failed\n")
		return
	}
	// reap orphans until the shell exits
	for {
		wpid := e.Wait()
		if wpid == pid || wpid < 0 {
			return
		}
	}
}

// getcmd prints the prompt and reads a command line. The reading command signal is raised during the read.
func getcmd(e Env) (string, bool) {
	e.Printf(Stderr, "%s", prompt)
	e.SetShellReadingCommand(true)
	buf, n := e.Read(Stdin, maxCmdLine)
	e.SetShellReadingCommand(false)
	if n <= 0 {
		return "", false
	}
	return string(buf), true
}

// Sh is the shell: it reads a command per line, runs it in a child process and waits for it
func Sh(e Env) {
	for {
		line, ok := getcmd(e)
		if !ok {
			return
		}
		argv := strings.Fields(line)
		if len(argv) == 0 {
			continue
		}

		if argv[0] == "cd" {
			dir := "/"
			if len(argv) > 1 {
				dir = argv[1]
			}
			if e.Chdir(dir) < 0 {
				e.Printf(Stderr, "cannot cd %s\n", dir)
			}
			continue
		}

		pid := e.Fork(func(e Env) {
			e.Exec(argv[0], argv)
			e.Printf(Stderr, "exec %s failed\n", argv[0])
			e.Exit()
		})
		if pid < 0 {
			e.Printf(Stderr, "fork failed\n")
			continue
		}
		for {
			if wpid := e.Wait(); wpid == pid || wpid < 0 {
				break
			}
		}
	}
}
