package frame

import (
	"context"
	"fmt"
	"os/exec"
	"strconv"
	"strings"
	"syscall"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sys/unix"

	"github.com/arctir/frameagent/outputmux"
	"github.com/arctir/frameagent/reaper"
)

// Nice is the niceness increment applied to every spawned frame, fixed
// at a low-priority value per render-farm convention: background batch
// work should not contend with interactive desktop use on a shared
// desktop host.
const Nice = 19

// LaunchOutcome is what Spawn reports once it knows whether exec
// succeeded.
type LaunchOutcome struct {
	PID            int
	LaunchDuration time.Duration
	Err            error // non-nil only on FAILED_TO_LAUNCH
}

// ExitOutcome is what the exit callback delivers once the session
// leader has been reaped.
type ExitOutcome struct {
	KilledBySignal bool
	Status         syscall.WaitStatus
	Rusage         Rusage
}

// defaultKillGrace is how long Kill waits after sending its initial
// signal before escalating to SIGKILL, when KillGrace is left zero.
const defaultKillGrace = 5 * time.Second

// Process owns the os/exec.Cmd backing one RunningFrame: spawning it
// with session and uid/gid isolation set at fork time and niceness and
// CPU affinity applied right after start, wiring its stdout/stderr into
// an outputmux.Multiplexer, and signaling its process group on Kill.
type Process struct {
	log *zap.Logger

	// KillGrace overrides defaultKillGrace for this Process's
	// TERM-then-KILL escalation. Zero means use the default.
	KillGrace time.Duration

	cmd     *exec.Cmd
	mux     *outputmux.Multiplexer
	watcher *reaper.Watcher

	killRequested bool
	exited        chan struct{}
}

// NewProcess constructs a Process bound to mux (already configured with
// whatever sinks the caller wants, e.g. a logfile sink for req.LogFile)
// and watcher (the process-wide Child Watcher that will report this
// frame's exit).
func NewProcess(log *zap.Logger, mux *outputmux.Multiplexer, watcher *reaper.Watcher) *Process {
	return &Process{log: log, mux: mux, watcher: watcher, exited: make(chan struct{})}
}

// Spawn execs req.Command under a new session (and the requested
// uid/gid, when non-zero), then applies niceness and CPU affinity to the
// started child, wires its stdout/stderr into mux, and registers an exit
// callback with the
// Child Watcher. onExit fires exactly once, from the watcher's
// goroutine, once the child (and thus its whole session, since
// KillRunningFrame terminates the group) has been reaped.
//
// Go's os/exec gives no hook between fork and exec other than
// SysProcAttr, so affinity and niceness here are applied immediately
// after Start returns rather than inside the child before exec; see
// DESIGN.md for the resulting race window and why it is accepted.
func (p *Process) Spawn(ctx context.Context, req RunFrame, env []string, onExit func(ExitOutcome)) LaunchOutcome {
	started := time.Now()

	if len(req.Command) == 0 {
		return LaunchOutcome{Err: fmt.Errorf("frame: empty command"), LaunchDuration: time.Since(started)}
	}

	cmd := exec.CommandContext(ctx, req.Command[0], req.Command[1:]...)
	cmd.Env = env
	cmd.SysProcAttr = &syscall.SysProcAttr{
		Setsid: true,
	}
	if req.UID != 0 || req.GID != 0 {
		cmd.SysProcAttr.Credential = &syscall.Credential{
			Uid: uint32(req.UID),
			Gid: uint32(req.GID),
		}
	}

	stdout, err := cmd.StdoutPipe()
	if err != nil {
		return LaunchOutcome{Err: err, LaunchDuration: time.Since(started)}
	}
	stderr, err := cmd.StderrPipe()
	if err != nil {
		return LaunchOutcome{Err: err, LaunchDuration: time.Since(started)}
	}

	if err := cmd.Start(); err != nil {
		return LaunchOutcome{Err: err, LaunchDuration: time.Since(started)}
	}

	pid := cmd.Process.Pid
	p.cmd = cmd

	if err := unix.Setpriority(unix.PRIO_PROCESS, pid, Nice); err != nil && p.log != nil {
		p.log.Warn("failed to set frame niceness", zap.Int("pid", pid), zap.Error(err))
	}
	if cpuList, ok := req.Attributes["CPU_LIST"]; ok {
		if cores, parseErr := parseCPUList(cpuList); parseErr == nil {
			if affErr := setAffinity(pid, cores); affErr != nil && p.log != nil {
				p.log.Warn("failed to set frame cpu affinity", zap.Int("pid", pid), zap.Error(affErr))
			}
		}
	}

	go p.pumpOutput(outputmux.Stdout, stdout)
	go p.pumpOutput(outputmux.Stderr, stderr)

	p.watcher.Register(pid, func(_ int, result reaper.ExitResult) {
		close(p.exited)
		p.mux.Flush()
		onExit(ExitOutcome{
			KilledBySignal: p.killRequested,
			Status:         result.Status,
			Rusage: Rusage{
				UserTime:   time.Duration(result.Rusage.Utime.Nano()),
				SystemTime: time.Duration(result.Rusage.Stime.Nano()),
			},
		})
	})

	return LaunchOutcome{PID: pid, LaunchDuration: time.Since(started)}
}

func (p *Process) pumpOutput(stream outputmux.Stream, r interface{ Read([]byte) (int, error) }) {
	buf := make([]byte, 4096)
	for {
		n, err := r.Read(buf)
		if n > 0 {
			p.mux.Write(stream, buf[:n])
		}
		if err != nil {
			return
		}
	}
}

// Kill signals the frame's entire session (negative PID addresses the
// process group, which on a session leader created with Setsid is the
// whole subtree) with sig. A SIGTERM escalates to SIGKILL on its own if
// the frame has not exited within the grace interval; any other signal
// is sent once, with no escalation, since callers asking for a specific
// signal already know what they want.
func (p *Process) Kill(sig syscall.Signal) error {
	if p.cmd == nil || p.cmd.Process == nil {
		return fmt.Errorf("frame: process not started")
	}
	p.killRequested = true
	pgid := -p.cmd.Process.Pid
	if err := syscall.Kill(pgid, sig); err != nil {
		return err
	}
	if sig == syscall.SIGTERM {
		go p.escalateAfterGrace(pgid)
	}
	return nil
}

// escalateAfterGrace sends SIGKILL to pgid if the frame has not been
// reaped by the time the grace interval elapses.
func (p *Process) escalateAfterGrace(pgid int) {
	timer := time.NewTimer(p.killGrace())
	defer timer.Stop()
	select {
	case <-p.exited:
		return
	case <-timer.C:
	}
	if p.log != nil {
		p.log.Warn("frame did not exit within grace interval after SIGTERM, sending SIGKILL", zap.Int("pgid", -pgid))
	}
	_ = syscall.Kill(pgid, syscall.SIGKILL)
}

func (p *Process) killGrace() time.Duration {
	if p.KillGrace > 0 {
		return p.KillGrace
	}
	return defaultKillGrace
}

func parseCPUList(s string) ([]int, error) {
	var cores []int
	for _, part := range strings.Split(s, ",") {
		part = strings.TrimSpace(part)
		if part == "" {
			continue
		}
		n, err := strconv.Atoi(part)
		if err != nil {
			return nil, err
		}
		cores = append(cores, n)
	}
	return cores, nil
}

func setAffinity(pid int, cores []int) error {
	var set unix.CPUSet
	set.Zero()
	for _, c := range cores {
		set.Set(c)
	}
	return unix.SchedSetaffinity(pid, &set)
}
