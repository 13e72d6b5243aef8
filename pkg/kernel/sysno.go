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

import "fmt"

// Sysno is a syscall identifier, as placed by a process in its trap frame
type Sysno int

const (
	// SysFork is the fork syscall
	SysFork Sysno = iota + 1
	// SysExit is the exit syscall
	SysExit
	// SysWait is the wait syscall
	SysWait
	// SysPipe is the pipe syscall
	SysPipe
	// SysRead is the read syscall
	SysRead
	// SysKill is the kill syscall
	SysKill
	// SysExec is the exec syscall
	SysExec
	// SysFstat is the fstat syscall
	SysFstat
	// SysChdir is the chdir syscall
	SysChdir
	// SysDup is the dup syscall
	SysDup
	// SysGetpid is the getpid syscall
	SysGetpid
	// SysSbrk is the sbrk syscall
	SysSbrk
	// SysSleep is the sleep syscall
	SysSleep
	// SysUptime is the uptime syscall
	SysUptime
	// SysOpen is the open syscall
	SysOpen
	// SysWrite is the write syscall
	SysWrite
	// SysMknod is the mknod syscall
	SysMknod
	// SysUnlink is the unlink syscall
	SysUnlink
	// SysLink is the link syscall
	SysLink
	// SysMkdir is the mkdir syscall
	SysMkdir
	// SysClose is the close syscall
	SysClose
	// SysTrace sets the tracer flag of the calling process
	SysTrace
	// SysTToggle sets the global trace switch
	SysTToggle
	// SysExcid narrows tracing to a single syscall
	SysExcid
	// SysGetTraceFlag returns the global trace switch
	SysGetTraceFlag
	// SysSetSuccessFlag restricts tracing to successful syscalls
	SysSetSuccessFlag
	// SysSetFailFlag restricts tracing to failed syscalls
	SysSetFailFlag
	// SysLastSyscall is one past the last valid syscall id
	SysLastSyscall
)

var syscallNames = [SysLastSyscall]string{
	SysFork:           "fork",
	SysExit:           "exit",
	SysWait:           "wait",
	SysPipe:           "pipe",
	SysRead:           "read",
	SysKill:           "kill",
	SysExec:           "exec",
	SysFstat:          "fstat",
	SysChdir:          "chdir",
	SysDup:            "dup",
	SysGetpid:         "getpid",
	SysSbrk:           "sbrk",
	SysSleep:          "sleep",
	SysUptime:         "uptime",
	SysOpen:           "open",
	SysWrite:          "write",
	SysMknod:          "mknod",
	SysUnlink:         "unlink",
	SysLink:           "link",
	SysMkdir:          "mkdir",
	SysClose:          "close",
	SysTrace:          "trace",
	SysTToggle:        "t_toggle",
	SysExcid:          "excid",
	SysGetTraceFlag:   "get_trace_flag",
	SysSetSuccessFlag: "set_success_flag",
	SysSetFailFlag:    "set_fail_flag",
}

// Valid returns true if the syscall id is within the syscall range
func (no Sysno) Valid() bool {
	return no > 0 && no < SysLastSyscall
}

func (no Sysno) String() string {
	if !no.Valid() {
		return fmt.Sprintf("Sysno(%d)", int(no))
	}
	return syscallNames[no]
}

// ParseSyscallName returns the syscall id of the provided syscall name, or -1 if the name is unknown
func ParseSyscallName(name string) Sysno {
	for no := SysFork; no < SysLastSyscall; no++ {
		if syscallNames[no] == name {
			return no
		}
	}
	return -1
}
