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

package main

import (
	"context"
	"fmt"
	"os"
	"os/signal"
	"strings"

	"github.com/sirupsen/logrus"

	"github.com/Gui774ume/ktrace/pkg/kernel"
	"github.com/Gui774ume/ktrace/pkg/user"
)

// session is the list of commands typed in the shell
var session = []string{
	"strace run fail",
	"strace -e getpid",
	"getpid",
	"strace -f",
	"fail",
	"strace off",
}

// mySink prints the trace records in a compact format
type mySink struct{}

func (mySink) Begin(r kernel.Record) {}

func (mySink) End(r kernel.Record) {
	fmt.Printf("[%s] %s(%d) %s = %d\n", r.Timestamp.Format("15:04:05.000000"), r.Comm, r.PID, r.Syscall, r.Ret)
}

func (mySink) Emit(r kernel.Record) {
	if r.HasRet {
		fmt.Printf("[%s] %s(%d) %s = %d\n", r.Timestamp.Format("15:04:05.000000"), r.Comm, r.PID, r.Syscall, r.Ret)
	} else {
		fmt.Printf("[%s] %s(%d) %s\n", r.Timestamp.Format("15:04:05.000000"), r.Comm, r.PID, r.Syscall)
	}
}

func main() {
	// Set log level
	logrus.SetLevel(logrus.TraceLevel)

	// create a new kernel instance
	k, err := kernel.New(kernel.Options{
		Console:      os.Stdout,
		Input:        strings.NewReader(strings.Join(session, "\n") + "\n"),
		Sink:         mySink{},
		TickInterval: kernel.DefaultTickInterval,
	})
	if err != nil {
		logrus.Errorf("couldn't instantiate the kernel: %v\n", err)
		return
	}
	user.Install(k)

	if err = k.Boot("init"); err != nil {
		logrus.Errorf("couldn't boot: %v\n", err)
		return
	}

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()
	if err = k.Wait(ctx); err != nil {
		logrus.Errorf("interrupted: %v\n", err)
	}
	k.Stop()
}
