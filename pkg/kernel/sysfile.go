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
	"github.com/sirupsen/logrus"
)

// There is no file system: the console is the only device, every descriptor refers to it and every path based
// syscall other than opening "console" fails once its arguments are validated.

const (
	consolePath = "console"
	// statSize is the size of a struct stat
	statSize = 20
	// tDev is the type of a device inode
	tDev = 3
)

func argFd(p *Proc, n int) (int, error) {
	fd, err := ArgInt(p, n)
	if err != nil {
		return -1, err
	}
	if fd < 0 || int(fd) >= NOFile || !p.files[fd] {
		return -1, ErrOutOfBounds
	}
	return int(fd), nil
}

func fdAlloc(p *Proc) int {
	for fd := range p.files {
		if !p.files[fd] {
			p.files[fd] = true
			return fd
		}
	}
	return -1
}

func (k *Kernel) sysDup(p *Proc) int {
	if _, err := argFd(p, 0); err != nil {
		return -1
	}
	return fdAlloc(p)
}

func (k *Kernel) sysRead(p *Proc) int {
	if _, err := argFd(p, 0); err != nil {
		return -1
	}
	n, err := ArgInt(p, 2)
	if err != nil {
		return -1
	}
	dst, err := ArgPtr(p, 1, int(n))
	if err != nil {
		return -1
	}
	return k.consoleRead(p, dst)
}

// consoleRead reads at most one line of console input. The kernel lock is released while the process waits for input,
// the wait ends when the kernel stops.
func (k *Kernel) consoleRead(p *Proc, dst []byte) int {
	if k.lines == nil || len(dst) == 0 {
		return 0
	}

	k.mu.Unlock()
	k.inputMu.Lock()
	if len(k.pending) == 0 {
		select {
		case line := <-k.lines:
			k.pending = line
		case <-k.ctx.Done():
		}
	}
	n := copy(dst, k.pending)
	k.pending = k.pending[n:]
	k.inputMu.Unlock()
	k.mu.Lock()

	if p.Killed {
		return -1
	}
	return n
}

func (k *Kernel) sysWrite(p *Proc) int {
	if _, err := argFd(p, 0); err != nil {
		return -1
	}
	n, err := ArgInt(p, 2)
	if err != nil {
		return -1
	}
	src, err := ArgPtr(p, 1, int(n))
	if err != nil {
		return -1
	}
	written, err := k.options.Console.Write(src)
	if err != nil {
		logrus.Debugf("console write failed: %v", err)
		return -1
	}
	return written
}

func (k *Kernel) sysClose(p *Proc) int {
	fd, err := argFd(p, 0)
	if err != nil {
		return -1
	}
	p.files[fd] = false
	return 0
}

func (k *Kernel) sysFstat(p *Proc) int {
	if _, err := argFd(p, 0); err != nil {
		return -1
	}
	st, err := ArgPtr(p, 1, statSize)
	if err != nil {
		return -1
	}
	for i := range st {
		st[i] = 0
	}
	ByteOrder.PutUint16(st[0:2], tDev)
	ByteOrder.PutUint16(st[12:14], 1)
	return 0
}

func (k *Kernel) sysOpen(p *Proc) int {
	path, err := ArgString(p, 0)
	if err != nil {
		return -1
	}
	if _, err = ArgInt(p, 1); err != nil {
		return -1
	}
	if path != consolePath && path != "/"+consolePath {
		return -1
	}
	return fdAlloc(p)
}

func (k *Kernel) sysPipe(p *Proc) int {
	if _, err := ArgPtr(p, 0, 2*wordSize); err != nil {
		return -1
	}
	return -1
}

func (k *Kernel) sysMknod(p *Proc) int {
	if _, _, err := ArgStr(p, 0); err != nil {
		return -1
	}
	if _, err := ArgInt(p, 1); err != nil {
		return -1
	}
	if _, err := ArgInt(p, 2); err != nil {
		return -1
	}
	return -1
}

func (k *Kernel) sysUnlink(p *Proc) int {
	if _, _, err := ArgStr(p, 0); err != nil {
		return -1
	}
	return -1
}

func (k *Kernel) sysLink(p *Proc) int {
	if _, _, err := ArgStr(p, 0); err != nil {
		return -1
	}
	if _, _, err := ArgStr(p, 1); err != nil {
		return -1
	}
	return -1
}

func (k *Kernel) sysMkdir(p *Proc) int {
	if _, _, err := ArgStr(p, 0); err != nil {
		return -1
	}
	return -1
}

// sysChdir only knows about the root directory
func (k *Kernel) sysChdir(p *Proc) int {
	path, err := ArgString(p, 0)
	if err != nil {
		return -1
	}
	if path != "/" {
		return -1
	}
	return 0
}
