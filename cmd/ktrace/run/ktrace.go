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

package run

import (
	"context"
	"fmt"
	"io/ioutil"
	"os"
	"os/signal"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
	"github.com/spf13/cobra"

	"github.com/Gui774ume/ktrace/pkg/kernel"
	"github.com/Gui774ume/ktrace/pkg/user"
)

func ktraceCmd(cmd *cobra.Command, args []string) error {
	// Set log level
	logrus.SetLevel(options.LogLevel)

	kernelOptions := options.KernelOptions
	kernelOptions.Console = os.Stdout
	kernelOptions.Input = os.Stdin

	if len(options.Script) > 0 {
		script, err := os.Open(options.Script)
		if err != nil {
			return errors.Wrapf(err, "couldn't open script %s", options.Script)
		}
		defer script.Close()
		kernelOptions.Input = script
	}

	var dumpFile *os.File
	if options.JSONDump {
		var err error
		dumpFile, err = ioutil.TempFile("/tmp", "ktrace-*.json")
		if err != nil {
			return errors.Wrap(err, "couldn't create dump file")
		}
		defer dumpFile.Close()
		if err = os.Chmod(dumpFile.Name(), 0644); err != nil {
			return err
		}
		kernelOptions.Sink = kernel.NewJSONSink(dumpFile)
	} else {
		kernelOptions.Sink = kernel.NewConsoleSink(os.Stdout)
	}

	var stats *kernel.StatsSink
	if options.Stats {
		stats = kernel.NewStatsSink(kernelOptions.Sink)
		kernelOptions.Sink = stats
	}

	// create a new kernel instance
	k, err := kernel.New(kernelOptions)
	if err != nil {
		return errors.Wrap(err, "couldn't create a new kernel")
	}
	user.Install(k)

	// boot
	if err = k.Boot(options.Init, args...); err != nil {
		return errors.Wrap(err, "couldn't boot")
	}
	logrus.Debugf("kernel booted with %s", options.Init)
	if dumpFile != nil {
		logrus.Infof("output file: %s", dumpFile.Name())
	}

	wait(k)
	k.Stop()

	if stats != nil {
		stats.Dump()
	}
	return nil
}

// wait stops the main goroutine until the kernel shuts down, or an interrupt or kill signal is sent
func wait(k *kernel.Kernel) {
	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, os.Kill)
	defer cancel()
	if err := k.Wait(ctx); err != nil {
		fmt.Println()
	}
}
