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
	"bytes"
	"context"
	"strings"
	"testing"
	"time"

	qt "github.com/frankban/quicktest"

	"github.com/Gui774ume/ktrace/pkg/kernel"
)

// session boots init on a fresh kernel fed with the provided console input, and returns the console output once the
// shell has consumed its input
func session(c *qt.C, input string) string {
	var console bytes.Buffer
	k, err := kernel.New(kernel.Options{
		Console: &console,
		Input:   strings.NewReader(input),
	})
	c.Assert(err, qt.IsNil)
	Install(k)
	c.Assert(k.Boot("init"), qt.IsNil)

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	c.Assert(k.Wait(ctx), qt.IsNil)
	return console.String()
}

func TestShell(t *testing.T) {
	c := qt.New(t)

	c.Assert(session(c, ""), qt.Equals, "$ ")
	c.Assert(session(c, "echo hi there\n"), qt.Equals, "$ hi there\n$ ")
	c.Assert(session(c, "\n   \ncd /\ncd /tmp\n"), qt.Equals, "$ $ $ $ cannot cd /tmp\n$ ")
	c.Assert(session(c, "nope\n"), qt.Equals, "$ exec nope failed\n$ ")
}

func TestStraceRun(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace run echo hi\n")
	c.Assert(out, qt.Equals, "$ hi\n"+
		"TRACE: pid = 4 | command name = echo | syscall = write | return value = 3\n"+
		"TRACE: pid = 4 | command name = echo | syscall = exit | return value = 0\n"+
		"$ ")
}

func TestStraceRunRestoresSwitch(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace run echo hi\necho quiet\n")
	c.Assert(strings.HasSuffix(out, "$ quiet\n$ "), qt.IsTrue, qt.Commentf("output: %q", out))
	c.Assert(strings.Count(out, "TRACE:"), qt.Equals, 2)
}

func TestStraceExclusive(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace -e getpid\ngetpid\n")
	c.Assert(out, qt.Equals, "$ $ "+
		"TRACE: pid = 4 | command name = getpid | syscall = getpid | return value = 4\n"+
		"4\n"+
		"$ ")
}

func TestStraceExclusiveEndsWithWatchedProcess(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace -e getpid\ngetpid\necho hi\ngetpid\n")
	c.Assert(out, qt.Equals, "$ $ "+
		"TRACE: pid = 4 | command name = getpid | syscall = getpid | return value = 4\n"+
		"4\n"+
		"$ hi\n"+
		"$ 6\n"+
		"$ ")
}

func TestStraceFailureOnly(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace -f\nfail\n")
	c.Assert(out, qt.Equals, "$ $ "+
		"TRACE: pid = 4 | command name = fail | syscall = close | return value = -1\n"+
		"TRACE: pid = 4 | command name = fail | syscall = open | return value = -1\n"+
		"TRACE: pid = 4 | command name = fail | syscall = mkdir | return value = -1\n"+
		"4 fail: unknown sys call 28\n"+
		"$ ")
}

func TestStraceFailureOnlyEndsWithWatchedProcess(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace -f\nfail\nfail\n")
	c.Assert(strings.Count(out, "TRACE:"), qt.Equals, 3)
	c.Assert(strings.HasSuffix(out, "$ 5 fail: unknown sys call 28\n$ "), qt.IsTrue, qt.Commentf("output: %q", out))
}

func TestStraceOnOff(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace on\nstrace off\n")
	c.Assert(out, qt.Equals, "$ "+
		"$ TRACE: pid = 2 | command name = sh | syscall = read | return value = 11\n"+
		"TRACE: pid = 4 | command name = sh | syscall = exec | return value = 0\n"+
		"$ ")
}

func TestStraceErrors(t *testing.T) {
	c := qt.New(t)

	tests := []struct {
		line string
		want string
	}{
		{"strace", straceUsage},
		{"strace bogus", "Invalid argument. Use 'on' or 'off'."},
		{"strace run", "Usage: strace run <command>"},
		{"strace -e nope", "Unknown syscall: nope"},
		{"strace -f -s", "-f and -s are mutually exclusive\n" + straceUsage},
		{"strace -x", "unknown shorthand flag: 'x' in -x\n" + straceUsage},
	}
	for _, test := range tests {
		out := session(c, test.line+"\n")
		c.Assert(out, qt.Equals, "$ "+test.want+"\n$ ", qt.Commentf("command %q", test.line))
	}
}

func TestStraceRunFailedExec(t *testing.T) {
	c := qt.New(t)

	out := session(c, "strace run nope\n")
	c.Assert(out, qt.Equals, "$ exec failed: nope\n$ ")
}
