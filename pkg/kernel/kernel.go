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
	"bufio"
	"context"
	"io"
	"sync"
	"time"

	"github.com/pkg/errors"
	"github.com/sirupsen/logrus"
)

// Program is the user code of a program image
type Program func(u *UserContext)

type unwindReason int

const (
	unwindNone unwindReason = iota
	unwindExec
	unwindExit
)

// Kernel is a single CPU teaching kernel. Each process runs its user code in its own goroutine, and every syscall
// trap is serialized by the kernel lock.
type Kernel struct {
	mu   sync.Mutex
	cond *sync.Cond

	options      Options
	table        *Table
	state        *TraceState
	tracer       *Tracer
	dispatcher   *Dispatcher
	timeResolver *TimeResolver

	programs map[string]Program
	procs    map[int]*Proc
	nextPID  int
	ticks    uint32
	initProc *Proc
	booted   bool

	input   *bufio.Reader
	lines   chan []byte
	pending []byte
	inputMu sync.Mutex

	ctx        context.Context
	cancelFunc context.CancelFunc
	wg         *sync.WaitGroup
	done       chan struct{}
}

// New creates a new Kernel instance
func New(options Options) (*Kernel, error) {
	if err := options.IsValid(); err != nil {
		return nil, err
	}
	options = options.withDefaults()

	k := &Kernel{
		options:  options,
		state:    NewTraceState(),
		programs: make(map[string]Program),
		procs:    make(map[int]*Proc),
		nextPID:  1,
		wg:       &sync.WaitGroup{},
		done:     make(chan struct{}),
	}
	k.cond = sync.NewCond(&k.mu)
	if options.Input != nil {
		k.input = bufio.NewReader(options.Input)
		k.lines = make(chan []byte)
	}
	k.ctx, k.cancelFunc = context.WithCancel(context.Background())

	now := time.Now
	var err error
	k.timeResolver, err = NewTimeResolver()
	if err != nil {
		logrus.Debugf("couldn't create time resolver, falling back to wall clock: %v", err)
	} else {
		now = k.timeResolver.Now
	}

	k.table, err = NewTable(k.handlers())
	if err != nil {
		return nil, errors.Wrap(err, "couldn't build the syscall table")
	}
	logrus.Debugf("syscall table ready: %d syscalls", k.table.Len())
	k.tracer = NewTracer(k.state, options.Sink, now)
	k.dispatcher = NewDispatcher(k.table, k.tracer, options.Console, options.UnknownSyscallLogRate)
	return k, nil
}

func (k *Kernel) handlers() map[Sysno]Handler {
	return map[Sysno]Handler{
		SysFork:           k.sysFork,
		SysExit:           k.sysExit,
		SysWait:           k.sysWait,
		SysPipe:           k.sysPipe,
		SysRead:           k.sysRead,
		SysKill:           k.sysKill,
		SysExec:           k.sysExec,
		SysFstat:          k.sysFstat,
		SysChdir:          k.sysChdir,
		SysDup:            k.sysDup,
		SysGetpid:         k.sysGetpid,
		SysSbrk:           k.sysSbrk,
		SysSleep:          k.sysSleep,
		SysUptime:         k.sysUptime,
		SysOpen:           k.sysOpen,
		SysWrite:          k.sysWrite,
		SysMknod:          k.sysMknod,
		SysUnlink:         k.sysUnlink,
		SysLink:           k.sysLink,
		SysMkdir:          k.sysMkdir,
		SysClose:          k.sysClose,
		SysTrace:          k.sysTrace,
		SysTToggle:        k.sysTToggle,
		SysExcid:          k.sysExcid,
		SysGetTraceFlag:   k.sysGetTraceFlag,
		SysSetSuccessFlag: k.sysSetSuccessFlag,
		SysSetFailFlag:    k.sysSetFailFlag,
	}
}

// Register makes a program available to exec
func (k *Kernel) Register(name string, program Program) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.programs[name] = program
}

// Boot starts the first process with the provided program
func (k *Kernel) Boot(name string, argv ...string) error {
	k.mu.Lock()
	defer k.mu.Unlock()

	if k.booted {
		return errors.New("kernel already booted")
	}
	program, ok := k.programs[name]
	if !ok {
		return errors.Wrapf(ErrUnknownProgram, "couldn't boot %s", name)
	}

	p, err := k.allocProc()
	if err != nil {
		return err
	}
	k.load(p, name, program, append([]string{name}, argv...))
	for fd := 0; fd < 3; fd++ {
		p.files[fd] = true
	}
	k.initProc = p
	k.booted = true

	if k.options.TickInterval > 0 {
		k.wg.Add(1)
		go k.clock()
	}
	if k.input != nil {
		go k.readConsole()
	}

	logrus.Debugf("booting %s (pid %d)", name, p.PID)
	k.start(p, program)
	return nil
}

// Done returns a channel closed when the first process exits
func (k *Kernel) Done() <-chan struct{} {
	return k.done
}

// Wait blocks until the first process exits or the context is done
func (k *Kernel) Wait(ctx context.Context) error {
	select {
	case <-k.done:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	}
}

// Stop kills every process, stops the clock and waits until every process has exited. A process only notices that
// it was killed when it traps into the kernel.
func (k *Kernel) Stop() {
	k.mu.Lock()
	for _, p := range k.procs {
		p.Killed = true
	}
	k.cond.Broadcast()
	k.mu.Unlock()

	k.cancelFunc()
	k.wg.Wait()
}

// Tick advances the kernel clock by one tick
func (k *Kernel) Tick() {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.ticks++
	k.cond.Broadcast()
}

func (k *Kernel) clock() {
	defer k.wg.Done()
	ticker := time.NewTicker(k.options.TickInterval)
	defer ticker.Stop()
	for {
		select {
		case <-k.ctx.Done():
			return
		case <-k.done:
			return
		case <-ticker.C:
			k.Tick()
		}
	}
}

// readConsole feeds console reads with the input lines. The reader itself can't be interrupted, so it isn't waited for
// on Stop.
func (k *Kernel) readConsole() {
	defer close(k.lines)
	for {
		line, err := k.input.ReadBytes('\n')
		if len(line) > 0 {
			select {
			case k.lines <- line:
			case <-k.ctx.Done():
				return
			}
		}
		if err != nil {
			if err != io.EOF {
				logrus.Debugf("console read failed: %v", err)
			}
			return
		}
	}
}

// TraceState returns a snapshot of the trace filters
func (k *Kernel) TraceState() TraceState {
	k.mu.Lock()
	defer k.mu.Unlock()
	return k.state.Snapshot()
}

// SetShellReadingCommand raises or lowers the signal telling the tracer that the shell is reading a new command
func (k *Kernel) SetShellReadingCommand(on bool) {
	k.mu.Lock()
	defer k.mu.Unlock()
	k.state.SetShellReadingCommand(on)
}

// Trap handles a syscall trap of p: it dispatches the syscall described by the trap frame and returns its result
func (k *Kernel) Trap(p *Proc) int {
	k.mu.Lock()
	defer k.mu.Unlock()

	if p.Killed && p.state != procZombie {
		k.exit(p)
		return -1
	}
	k.dispatcher.Dispatch(p)
	if p.Killed && p.state != procZombie {
		k.exit(p)
	}
	return p.TF.Ret
}

func (k *Kernel) allocProc() (*Proc, error) {
	if len(k.procs) >= NProc {
		return nil, errors.New("process table full")
	}
	p := &Proc{
		PID: k.nextPID,
	}
	k.nextPID++
	k.procs[p.PID] = p
	return p, nil
}

// load replaces the image of p
func (k *Kernel) load(p *Proc, name string, program Program, argv []string) {
	name = basename(name)
	if len(name) >= commLength {
		name = name[:commLength-1]
	}
	p.Name = name
	p.Role = RoleForName(name)
	p.program = program
	p.argv = argv
	p.Mem = make([]byte, k.options.MemSize)
}

// start runs the user code of p in a new goroutine, and keeps running the images p execs until it exits
func (k *Kernel) start(p *Proc, body Program) {
	k.wg.Add(1)
	go func() {
		defer k.wg.Done()
		u := &UserContext{k: k, p: p}
		for {
			if reason := u.run(body); reason != unwindExec {
				return
			}
			p.unwind = unwindNone
			body = p.program
		}
	}()
}

func (k *Kernel) exit(p *Proc) {
	for _, c := range k.procs {
		if c.parent == p {
			c.parent = k.initProc
		}
	}
	p.state = procZombie
	p.unwind = unwindExit
	if p == k.initProc {
		logrus.Debugf("%s (pid %d) exited, shutting down", p.Name, p.PID)
		close(k.done)
	}
	k.cond.Broadcast()
}
