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
	"github.com/spf13/cobra"

	"github.com/Gui774ume/ktrace/pkg/kernel"
)

// KTrace represents the base command of ktrace
var KTrace = &cobra.Command{
	Use:   "ktrace",
	Short: "boot the teaching kernel and trace the syscalls of its processes",
	RunE:  ktraceCmd,
}

var options CLIOptions

func init() {
	KTrace.Flags().VarP(
		NewLogLevelSanitizer(&options.LogLevel),
		"log-level",
		"l",
		"log level, options: panic, fatal, error, warn, info, debug or trace")
	KTrace.Flags().BoolVar(
		&options.JSONDump,
		"json",
		false,
		"write the trace records in the JSON format to a dump file instead of the console")
	KTrace.Flags().BoolVar(
		&options.Stats,
		"stats",
		false,
		"show trace record statistics when the kernel shuts down")
	KTrace.Flags().DurationVar(
		&options.KernelOptions.TickInterval,
		"tick",
		kernel.DefaultTickInterval,
		"period of the clock interrupt")
	KTrace.Flags().Uint32Var(
		&options.KernelOptions.MemSize,
		"mem",
		kernel.DefaultMemSize,
		"address space size of each process")
	KTrace.Flags().StringVar(
		&options.Script,
		"script",
		"",
		"file to read the console input from, defaults to the standard input")
	KTrace.Flags().StringVar(
		&options.Init,
		"init",
		"init",
		"first program to run")
}
