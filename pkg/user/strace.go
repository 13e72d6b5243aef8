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
	"github.com/spf13/cobra"

	"github.com/Gui774ume/ktrace/pkg/kernel"
)

const straceUsage = "Usage: strace [on|off|run <command>] [-e <syscall>] [-f|-s]"

var (
	// ErrMalformedCommandLine is returned when the strace command line has the wrong shape
	ErrMalformedCommandLine = errors.New("malformed command line")
	// ErrUnknownSyscallName is returned when strace is asked to watch a syscall that doesn't exist
	ErrUnknownSyscallName = errors.New("unknown syscall name")
)

// straceError is an error reported to the user as is
type straceError struct {
	kind error
	msg  string
}

func newStraceError(kind error, format string, a ...interface{}) error {
	return &straceError{
		kind: kind,
		msg:  fmt.Sprintf(format, a...),
	}
}

func (se *straceError) Error() string {
	return se.msg
}

func (se *straceError) Unwrap() error {
	return se.kind
}

// StraceOptions holds the filter options of the strace command
type StraceOptions struct {
	Exclusive   string
	FailureOnly bool
	SuccessOnly bool
}

func (o StraceOptions) hasFilter() bool {
	return len(o.Exclusive) > 0 || o.FailureOnly || o.SuccessOnly
}

// newStraceCommand builds the command line parser of strace. Every action goes through the control syscalls of env.
func newStraceCommand(e Env) *cobra.Command {
	var options StraceOptions

	cmd := &cobra.Command{
		Use:           "strace",
		SilenceErrors: true,
		SilenceUsage:  true,
		RunE: func(cmd *cobra.Command, args []string) error {
			if options.hasFilter() {
				return straceFilter(e, options)
			}
			return straceAction(e, args)
		},
	}
	cmd.SetOut(fdWriter{e: e, fd: Stdout})
	cmd.SetErr(fdWriter{e: e, fd: Stderr})
	cmd.SetFlagErrorFunc(func(_ *cobra.Command, err error) error {
		return newStraceError(ErrMalformedCommandLine, "%s\n%s", err, straceUsage)
	})

	cmd.Flags().SetInterspersed(false)
	cmd.Flags().StringVarP(
		&options.Exclusive,
		"exclusive",
		"e",
		"",
		"only trace the provided syscall")
	cmd.Flags().BoolVarP(
		&options.FailureOnly,
		"failure",
		"f",
		false,
		"only trace failed syscalls")
	cmd.Flags().BoolVarP(
		&options.SuccessOnly,
		"success",
		"s",
		false,
		"only trace successful syscalls")
	return cmd
}

// straceFilter arms the requested filters and turns tracing on. strace then exits so that the next commands of the
// shell session run under trace.
func straceFilter(e Env, options StraceOptions) error {
	if options.FailureOnly && options.SuccessOnly {
		return newStraceError(ErrMalformedCommandLine, "-f and -s are mutually exclusive\n%s", straceUsage)
	}

	if len(options.Exclusive) > 0 {
		no := kernel.ParseSyscallName(options.Exclusive)
		if no == -1 {
			return newStraceError(ErrUnknownSyscallName, "Unknown syscall: %s", options.Exclusive)
		}
		e.Excid(no)
	}
	if options.FailureOnly {
		e.SetFailFlag()
	}
	if options.SuccessOnly {
		e.SetSuccessFlag()
	}
	e.TToggle(true)
	return nil
}

func straceAction(e Env, args []string) error {
	if len(args) == 0 {
		return newStraceError(ErrMalformedCommandLine, straceUsage)
	}

	switch args[0] {
	case "on":
		e.TToggle(true)
	case "off":
		e.TToggle(false)
	case "run":
		if len(args) < 2 {
			return newStraceError(ErrMalformedCommandLine, "Usage: strace run <command>")
		}
		return straceRun(e, args[1:])
	default:
		return newStraceError(ErrMalformedCommandLine, "Invalid argument. Use 'on' or 'off'.")
	}
	return nil
}

// straceRun runs a command with tracing on, then restores the previous value of the global trace switch
func straceRun(e Env, argv []string) error {
	wasTracing := e.GetTraceFlag()
	e.TToggle(true)

	pid := e.Fork(func(e Env) {
		e.Exec(argv[0], argv)
		e.Printf(Stderr, "exec failed: %s\n", argv[0])
		e.Exit()
	})
	if pid < 0 {
		e.TToggle(wasTracing)
		return errors.New("fork failed")
	}
	for {
		if wpid := e.Wait(); wpid == pid || wpid < 0 {
			break
		}
	}
	e.TToggle(wasTracing)
	return nil
}

// Strace is the tracing control command
func Strace(e Env) {
	// a nil slice makes cobra fall back to the host command line
	args := []string{}
	if argv := e.Argv(); len(argv) > 1 {
		args = argv[1:]
	}
	cmd := newStraceCommand(e)
	cmd.SetArgs(args)
	if err := cmd.Execute(); err != nil {
		var se *straceError
		if errors.As(err, &se) {
			e.Printf(Stderr, "%s\n", se)
		} else {
			e.Printf(Stderr, "strace: %v\n", err)
		}
	}
}
