package registry

import (
	"errors"
	"testing"
	"time"

	"github.com/arctir/frameagent/frame"
	"github.com/arctir/frameagent/rqderr"
	"github.com/arctir/frameagent/sampler"
)

func newRunning(id, resourceID string, cores int) *frame.RunningFrame {
	f := frame.NewRunningFrame(frame.RunFrame{FrameID: id, ResourceID: resourceID, NumCores: cores})
	return f
}

func TestInsertRejectsDuplicateFrameID(t *testing.T) {
	r := New(time.Minute)
	f := newRunning("F1", "R1", 4)
	if err := r.Insert(f); err != nil {
		t.Fatalf("unexpected error on first insert: %s", err)
	}
	err := r.Insert(newRunning("F1", "R1", 4))
	if err == nil {
		t.Fatal("expected an error inserting a duplicate frame_id")
	}
	var rqErr *rqderr.Error
	if !errors.As(err, &rqErr) || rqErr.Class != rqderr.ClassAdmission {
		t.Fatalf("expected an ADMISSION-classed error, got %v", err)
	}
}

func TestGetByFrameIDNotFound(t *testing.T) {
	r := New(time.Minute)
	if _, err := r.GetByFrameID("missing"); err == nil {
		t.Fatal("expected not-found error")
	}
}

func TestReservedCoresSumsOnlyNonTerminalFrames(t *testing.T) {
	r := New(time.Minute)
	a := newRunning("A", "R1", 4)
	a.MarkRunning(100, 0)
	b := newRunning("B", "R1", 8)
	b.MarkRunning(101, 0)

	if err := r.Insert(a); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert(b); err != nil {
		t.Fatal(err)
	}
	r.BindPID("A", 100)
	r.BindPID("B", 101)

	if got := r.ReservedCores(); got != 12 {
		t.Fatalf("expected 12 reserved cores, got %d", got)
	}

	b.MarkTerminal(false, 0, frame.Rusage{})
	r.MarkTerminal("B")

	if got := r.ReservedCores(); got != 4 {
		t.Fatalf("expected 4 reserved cores after B terminated, got %d", got)
	}
}

func TestRemoveTerminalAfterGracePurgesOldFrames(t *testing.T) {
	r := New(10 * time.Millisecond)
	f := newRunning("F1", "R1", 1)
	f.MarkRunning(200, 0)
	if err := r.Insert(f); err != nil {
		t.Fatal(err)
	}
	r.BindPID("F1", 200)
	f.MarkTerminal(false, 0, frame.Rusage{})
	r.MarkTerminal("F1")

	if purged := r.RemoveTerminalAfterGrace(); len(purged) != 0 {
		t.Fatal("expected no purge before the grace period elapses")
	}

	time.Sleep(20 * time.Millisecond)
	purged := r.RemoveTerminalAfterGrace()
	if len(purged) != 1 || purged[0] != "F1" {
		t.Fatalf("expected F1 to be purged, got %v", purged)
	}
	if _, err := r.GetByFrameID("F1"); err == nil {
		t.Fatal("expected F1 to be gone from the registry")
	}
	if _, err := r.GetByPID(200); err == nil {
		t.Fatal("expected the pid index to be cleaned up too")
	}
}

func TestRootsOnlyIncludesRunningFrames(t *testing.T) {
	r := New(time.Minute)
	pending := newRunning("P", "R1", 1)
	running := newRunning("RUN", "R1", 1)
	running.MarkRunning(300, 0)

	if err := r.Insert(pending); err != nil {
		t.Fatal(err)
	}
	if err := r.Insert(running); err != nil {
		t.Fatal(err)
	}
	r.BindPID("RUN", 300)

	roots := r.Roots()
	if len(roots) != 1 || roots[0].FrameID != "RUN" || roots[0].PID != 300 {
		t.Fatalf("expected exactly the running frame as a root, got %v", roots)
	}
}

func TestPublishAndFetchLatestSample(t *testing.T) {
	r := New(time.Minute)
	f := newRunning("F1", "R1", 1)
	if err := r.Insert(f); err != nil {
		t.Fatal(err)
	}

	if err := r.PublishSample("F1", sampler.ProcSample{RSS: 1024}); err != nil {
		t.Fatalf("unexpected error: %s", err)
	}
	got, ok := r.LatestSample("F1")
	if !ok || got.RSS != 1024 {
		t.Fatalf("expected to read back the published sample, got %+v ok=%v", got, ok)
	}

	if err := r.PublishSample("missing", sampler.ProcSample{}); err == nil {
		t.Fatal("expected an error publishing a sample for an unknown frame")
	}
}
