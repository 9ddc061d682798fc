package frame

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"syscall"
	"testing"
	"time"

	"github.com/arctir/frameagent/outputmux"
	"github.com/arctir/frameagent/reaper"
)

// TestSpawnEchoProducesExpectedLogfile covers a short-lived command
// exiting cleanly, with its logfile containing exactly its stdout.
func TestSpawnEchoProducesExpectedLogfile(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn integration test in short mode")
	}

	dir := t.TempDir()
	logPath := filepath.Join(dir, "frame.log")

	mux := outputmux.New(nil)
	if _, err := mux.RegisterLogFile(logPath); err != nil {
		t.Fatalf("failed registering logfile sink: %s", err)
	}

	w := reaper.New(nil)
	w.Start()
	defer w.Stop()

	proc := NewProcess(nil, mux, w)

	var (
		mu   sync.Mutex
		done bool
		out  ExitOutcome
	)
	wait := make(chan struct{})

	req := RunFrame{FrameID: "F1", Command: []string{"/bin/echo", "hello"}}
	outcome := proc.Spawn(context.Background(), req, os.Environ(), func(o ExitOutcome) {
		mu.Lock()
		done = true
		out = o
		mu.Unlock()
		close(wait)
	})
	if outcome.Err != nil {
		t.Fatalf("unexpected spawn error: %s", outcome.Err)
	}

	select {
	case <-wait:
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for frame to exit")
	}
	mux.Close()

	mu.Lock()
	defer mu.Unlock()
	if !done {
		t.Fatal("exit callback never fired")
	}
	if out.KilledBySignal {
		t.Fatal("expected a clean exit, not a signal kill")
	}
	if !out.Status.Exited() || out.Status.ExitStatus() != 0 {
		t.Fatalf("expected clean exit status 0, got %+v", out.Status)
	}

	data, err := os.ReadFile(logPath)
	if err != nil {
		t.Fatalf("unexpected error reading logfile: %s", err)
	}
	if string(data) != "hello\n" {
		t.Fatalf("expected logfile to contain exactly %q, got %q", "hello\n", string(data))
	}
}

// TestKillTerminatesEntireSession covers a killed frame reaching KILLED
// via signal delivery to the whole session.
func TestKillTerminatesEntireSession(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn integration test in short mode")
	}

	mux := outputmux.New(nil)
	w := reaper.New(nil)
	w.Start()
	defer w.Stop()

	proc := NewProcess(nil, mux, w)

	wait := make(chan ExitOutcome, 1)
	req := RunFrame{FrameID: "F2", Command: []string{"/bin/sleep", "30"}}
	outcome := proc.Spawn(context.Background(), req, os.Environ(), func(o ExitOutcome) {
		wait <- o
	})
	if outcome.Err != nil {
		t.Fatalf("unexpected spawn error: %s", outcome.Err)
	}

	time.Sleep(200 * time.Millisecond)
	if err := proc.Kill(syscall.SIGTERM); err != nil {
		t.Fatalf("unexpected kill error: %s", err)
	}

	select {
	case out := <-wait:
		if !out.KilledBySignal {
			t.Fatal("expected KilledBySignal to be true after Kill")
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for killed frame to be reaped")
	}
}

// TestKillEscalatesToSIGKILLAfterGrace covers a frame that ignores
// SIGTERM: Kill should escalate to SIGKILL once the grace interval
// elapses rather than leaving the frame running forever.
func TestKillEscalatesToSIGKILLAfterGrace(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn integration test in short mode")
	}

	mux := outputmux.New(nil)
	w := reaper.New(nil)
	w.Start()
	defer w.Stop()

	proc := NewProcess(nil, mux, w)
	proc.KillGrace = 100 * time.Millisecond

	wait := make(chan ExitOutcome, 1)
	req := RunFrame{FrameID: "F4", Command: []string{"/bin/sh", "-c", "trap '' TERM; sleep 30"}}
	outcome := proc.Spawn(context.Background(), req, os.Environ(), func(o ExitOutcome) {
		wait <- o
	})
	if outcome.Err != nil {
		t.Fatalf("unexpected spawn error: %s", outcome.Err)
	}

	time.Sleep(200 * time.Millisecond)
	if err := proc.Kill(syscall.SIGTERM); err != nil {
		t.Fatalf("unexpected kill error: %s", err)
	}

	select {
	case out := <-wait:
		if !out.Status.Signaled() || out.Status.Signal() != syscall.SIGKILL {
			t.Fatalf("expected frame to be killed by SIGKILL after grace interval, got %+v", out.Status)
		}
	case <-time.After(5 * time.Second):
		t.Fatal("timed out waiting for escalated kill to be reaped")
	}
}

func TestSpawnMissingCommandIsFailedToLaunch(t *testing.T) {
	mux := outputmux.New(nil)
	w := reaper.New(nil)

	proc := NewProcess(nil, mux, w)
	req := RunFrame{FrameID: "F3", Command: []string{"/nonexistent/definitely-not-a-binary"}}
	outcome := proc.Spawn(context.Background(), req, os.Environ(), func(ExitOutcome) {
		t.Fatal("exit callback should not fire when exec never started")
	})
	if outcome.Err == nil {
		t.Fatal("expected an error for a missing binary")
	}
}
