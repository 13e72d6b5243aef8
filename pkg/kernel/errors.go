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

import "github.com/pkg/errors"

var (
	// ErrUnknownSyscall is returned when a syscall id has no table entry
	ErrUnknownSyscall = errors.New("unknown syscall")
	// ErrOutOfBounds is returned when a syscall argument lies outside of the process address space
	ErrOutOfBounds = errors.New("argument out of bounds")
	// ErrUnterminated is returned when a string argument has no terminating NUL byte
	ErrUnterminated = errors.New("unterminated string")
	// ErrUnknownProgram is returned when exec can't find the requested program
	ErrUnknownProgram = errors.New("unknown program")
)
