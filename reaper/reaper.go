// Package reaper implements a single, process-wide child-reaping
// service: it reaps exited children and delivers exit status together
// with resource usage, captured atomically at wait time, to whichever
// caller registered interest in that PID.
package reaper

import (
	"os"
	"os/signal"
	"sync"
	"syscall"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"
)

// ExitResult is delivered to a registered callback exactly once.
type ExitResult struct {
	Status syscall.WaitStatus
	Rusage syscall.Rusage
}

// Callback is invoked exactly once per registered PID.
type Callback func(pid int, result ExitResult)

// Watcher reaps children with wait4(..., WNOHANG), matching callbacks to
// PIDs as they exit. One Watcher is shared process-wide.
type Watcher struct {
	log *zap.Logger

	mu        sync.Mutex
	callbacks map[int]Callback
	pending   map[int]ExitResult

	sigCh chan os.Signal
	done  chan struct{}
}

// New constructs a Watcher. Call Start to begin consuming SIGCHLD.
func New(log *zap.Logger) *Watcher {
	return &Watcher{
		log:       log,
		callbacks: make(map[int]Callback),
		pending:   make(map[int]ExitResult),
		sigCh:     make(chan os.Signal, 64),
		done:      make(chan struct{}),
	}
}

// Start begins the reap loop in a background goroutine. It also does an
// immediate non-blocking sweep, so children that exited before Start was
// called (a narrow startup race) are still reaped.
func (w *Watcher) Start() {
	signal.Notify(w.sigCh, syscall.SIGCHLD)
	go w.loop()
	w.reapAll()
}

// Stop stops consuming SIGCHLD. Already-registered callbacks for PIDs
// that have not yet exited are left pending; callers that need a bounded
// drain should combine Stop with their own timeout as part of shutdown.
func (w *Watcher) Stop() {
	signal.Stop(w.sigCh)
	close(w.done)
}

// Register records interest in pid; cb fires exactly once, either when
// the child is reaped by this Watcher, or, if this Watcher already
// reaped pid before Register was called (it can win a race against its
// own caller: SIGCHLD can arrive and be drained before the spawning code
// gets around to registering a callback), immediately with the pending
// synthetic result stashed for it.
func (w *Watcher) Register(pid int, cb Callback) {
	w.mu.Lock()
	if result, ok := w.pending[pid]; ok {
		delete(w.pending, pid)
		w.mu.Unlock()
		cb(pid, result)
		return
	}
	w.callbacks[pid] = cb
	w.mu.Unlock()

	// The child may have already exited between spawn and Register; sweep
	// immediately so that race does not leave the callback pending
	// forever.
	w.reapOne(pid)
}

// Forget discards interest in pid; any pending reap is dropped silently.
func (w *Watcher) Forget(pid int) {
	w.mu.Lock()
	delete(w.callbacks, pid)
	delete(w.pending, pid)
	w.mu.Unlock()
}

func (w *Watcher) loop() {
	for {
		select {
		case <-w.done:
			return
		case <-w.sigCh:
			w.reapAll()
		}
	}
}

// reapAll drains every exited child currently reapable with WNOHANG,
// matching each against a registered callback.
func (w *Watcher) reapAll() {
	for {
		var status syscall.WaitStatus
		var rusage syscall.Rusage
		pid, err := unix.Wait4(-1, &status, unix.WNOHANG, &rusage)
		if err != nil {
			if err == unix.ECHILD {
				return
			}
			if w.log != nil {
				w.log.Debug("wait4 failed during reap sweep", zap.Error(err))
			}
			return
		}
		if pid <= 0 {
			return
		}
		w.deliver(pid, ExitResult{Status: status, Rusage: rusage})
	}
}

// reapOne attempts a single non-blocking wait4 targeted at pid, used to
// close the race window between Register and the child actually having
// already exited.
func (w *Watcher) reapOne(pid int) {
	var status syscall.WaitStatus
	var rusage syscall.Rusage
	got, err := unix.Wait4(pid, &status, unix.WNOHANG, &rusage)
	if err != nil || got != pid {
		return
	}
	w.deliver(pid, ExitResult{Status: status, Rusage: rusage})
}

func (w *Watcher) deliver(pid int, result ExitResult) {
	w.mu.Lock()
	cb, ok := w.callbacks[pid]
	if ok {
		delete(w.callbacks, pid)
		w.mu.Unlock()
		cb(pid, result)
		return
	}
	// This Watcher reaped pid before its spawning code got around to
	// calling Register: stash a synthetic result so Register fires the
	// callback immediately once it arrives, instead of dropping a reap
	// event the caller will otherwise wait on forever.
	w.pending[pid] = SyntheticExitResult()
	w.mu.Unlock()
}

// SyntheticExitResult is the result delivered for a PID this Watcher
// cannot report a real exit status for: either it reaped the PID before
// a callback was registered, or the PID was reaped by some other path
// entirely. Carries exit_status=255 and zeroed rusage.
func SyntheticExitResult() ExitResult {
	var ws syscall.WaitStatus
	// Encode a plain exit(255) in the platform wait status representation.
	ws = syscall.WaitStatus(255 << 8)
	return ExitResult{Status: ws}
}
