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
	"encoding/binary"

	"github.com/pkg/errors"
)

// ByteOrder is the byte order of the simulated machine
var ByteOrder = binary.LittleEndian

// wordSize is the size of a syscall argument
const wordSize = 4

// FetchInt fetches the int at addr from the address space of the provided process
func FetchInt(p *Proc, addr uint32) (int32, error) {
	if addr >= p.Size() || uint64(addr)+wordSize > uint64(p.Size()) {
		return 0, errors.Wrapf(ErrOutOfBounds, "int at 0x%x (size 0x%x)", addr, p.Size())
	}
	return int32(ByteOrder.Uint32(p.Mem[addr : addr+wordSize])), nil
}

// FetchStr checks that a NUL terminated string starts at addr in the address space of the provided process. It doesn't
// copy the string, it returns its address and its length, the terminating NUL excluded.
func FetchStr(p *Proc, addr uint32) (uint32, int, error) {
	if addr >= p.Size() {
		return 0, 0, errors.Wrapf(ErrOutOfBounds, "string at 0x%x (size 0x%x)", addr, p.Size())
	}
	for i := addr; i < p.Size(); i++ {
		if p.Mem[i] == 0 {
			return addr, int(i - addr), nil
		}
	}
	return 0, 0, errors.Wrapf(ErrUnterminated, "string at 0x%x", addr)
}

// ArgInt fetches the n-th word-sized syscall argument
func ArgInt(p *Proc, n int) (int32, error) {
	return FetchInt(p, p.TF.SP+wordSize+wordSize*uint32(n))
}

// ArgPtr fetches the n-th word-sized syscall argument as a pointer to a block of memory of size bytes, and checks
// that the block lies within the process address space. The returned slice aliases the process memory.
func ArgPtr(p *Proc, n int, size int) ([]byte, error) {
	addr, err := ArgInt(p, n)
	if err != nil {
		return nil, err
	}
	if size < 0 || uint32(addr) >= p.Size() || uint64(uint32(addr))+uint64(size) > uint64(p.Size()) {
		return nil, errors.Wrapf(ErrOutOfBounds, "block at 0x%x of size %d (size 0x%x)", uint32(addr), size, p.Size())
	}
	return p.Mem[uint32(addr) : uint32(addr)+uint32(size)], nil
}

// ArgStr fetches the n-th word-sized syscall argument as a string pointer. It returns the address and the length of
// the string.
func ArgStr(p *Proc, n int) (uint32, int, error) {
	addr, err := ArgInt(p, n)
	if err != nil {
		return 0, 0, err
	}
	return FetchStr(p, uint32(addr))
}

// ArgString is like ArgStr but copies the string out of the process address space
func ArgString(p *Proc, n int) (string, error) {
	addr, length, err := ArgStr(p, n)
	if err != nil {
		return "", err
	}
	return string(p.Mem[addr : addr+uint32(length)]), nil
}
