//go:build linux

package observe

import (
	"fmt"
	"sync"
	"sync/atomic"

	"golang.org/x/sys/unix"
)

// Tracer attaches to an already-running process with PTRACE_SEIZE and
// streams its syscall entry/exit events over a channel, styled on the
// ptrace register used by criyle-go-sandbox's runner tracer (raw
// unix.Ptrace* calls plus a Wait4 event loop), narrowed here to
// attach/collect only: no syscall filtering or denial, since Duende's
// tracer is an observability producer, not a sandbox.
type Tracer struct {
	pid     int
	events  chan SyscallEvent
	done    chan struct{}
	closed  atomic.Bool
	closeMu sync.Mutex
}

// Attach seizes pid for tracing and starts streaming its syscall
// events. The caller must eventually call Detach.
func Attach(pid int) (*Tracer, error) {
	if err := unix.PtraceSeize(pid); err != nil {
		return nil, fmt.Errorf("observe: ptrace seize pid %d: %w", pid, err)
	}
	if err := unix.PtraceSyscall(pid, 0); err != nil {
		return nil, fmt.Errorf("observe: ptrace syscall pid %d: %w", pid, err)
	}

	t := &Tracer{
		pid:    pid,
		events: make(chan SyscallEvent, 64),
		done:   make(chan struct{}),
	}
	go t.collect()
	return t, nil
}

// Events returns the channel syscall events are delivered on. It is
// closed once the traced process exits or Detach is called.
func (t *Tracer) Events() <-chan SyscallEvent {
	return t.events
}

func (t *Tracer) collect() {
	defer close(t.events)
	for {
		select {
		case <-t.done:
			return
		default:
		}

		var ws unix.WaitStatus
		_, err := unix.Wait4(t.pid, &ws, 0, nil)
		if err != nil {
			return
		}

		if ws.Exited() || ws.Signaled() {
			select {
			case t.events <- SyscallEvent{PID: t.pid, Exited: true, Status: ws.ExitStatus()}:
			case <-t.done:
			}
			return
		}

		if ws.Stopped() {
			ev := SyscallEvent{PID: t.pid}
			select {
			case t.events <- ev:
			case <-t.done:
				return
			}
			if err := unix.PtraceSyscall(t.pid, 0); err != nil {
				return
			}
		}
	}
}

// Detach stops tracing and releases the traced process to run freely.
func (t *Tracer) Detach() error {
	t.closeMu.Lock()
	defer t.closeMu.Unlock()
	if t.closed.Swap(true) {
		return nil
	}
	close(t.done)
	return unix.PtraceDetach(t.pid)
}
