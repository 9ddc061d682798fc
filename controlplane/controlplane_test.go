package controlplane

import (
	"context"
	"errors"
	"testing"
	"time"

	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/arctir/frameagent/frame"
	"github.com/arctir/frameagent/hostfacts"
	"github.com/arctir/frameagent/lockmgr"
	"github.com/arctir/frameagent/reaper"
	"github.com/arctir/frameagent/registry"
	"github.com/arctir/frameagent/rqderr"
	"github.com/arctir/frameagent/rqdpb"
)

type fakeEnv struct{}

func (fakeEnv) BaseEnvironment() frame.BaseEnvironmentInputs {
	return frame.BaseEnvironmentInputs{PATH: "/usr/bin:/bin"}
}

func newTestServer(t *testing.T, totalCores int) *Server {
	t.Helper()
	reg := registry.New(time.Minute)
	w := reaper.New(nil)
	w.Start()
	t.Cleanup(w.Stop)
	facts := hostfacts.NewDetector(hostfacts.Paths{})
	locks := lockmgr.New(totalCores, facts, reg)
	return New(nil, reg, locks, facts, w, fakeEnv{})
}

func waitForState(t *testing.T, srv *Server, frameID string, want string) rqdpb.RunningFrameStatus {
	t.Helper()
	deadline := time.Now().Add(5 * time.Second)
	for {
		snap, err := srv.GetRunningFrameStatus(context.Background(), &rqdpb.FrameIdRequest{FrameId: frameID})
		if err != nil {
			t.Fatalf("unexpected error fetching status: %s", err)
		}
		if snap.State == want {
			return *snap
		}
		if time.Now().After(deadline) {
			t.Fatalf("timed out waiting for frame %s to reach %s, last state %s", frameID, want, snap.State)
		}
		time.Sleep(20 * time.Millisecond)
	}
}

func TestLaunchFrameRunsToCompletion(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn integration test in short mode")
	}
	srv := newTestServer(t, 4)

	_, err := srv.LaunchFrame(context.Background(), &rqdpb.RunFrame{
		FrameId:  "F1",
		Command:  []string{"/bin/sh", "-c", "exit 0"},
		NumCores: 1,
	})
	if err != nil {
		t.Fatalf("unexpected LaunchFrame error: %s", err)
	}

	snap := waitForState(t, srv, "F1", "EXITED")
	if snap.ExitCode != 0 {
		t.Fatalf("expected exit code 0, got %d", snap.ExitCode)
	}
}

func TestLaunchFrameDuplicateFrameIDReturnsAlreadyExists(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn integration test in short mode")
	}
	srv := newTestServer(t, 4)

	req := &rqdpb.RunFrame{FrameId: "F2", Command: []string{"/bin/sleep", "1"}, NumCores: 1}
	if _, err := srv.LaunchFrame(context.Background(), req); err != nil {
		t.Fatalf("unexpected error on first launch: %s", err)
	}

	_, err := srv.LaunchFrame(context.Background(), req)
	if err == nil {
		t.Fatal("expected an error launching a duplicate frame_id")
	}
	if got := status.Code(err); got != codes.AlreadyExists {
		t.Fatalf("expected codes.AlreadyExists, got %s", got)
	}
}

func TestLaunchFrameResourceExhaustedReturnsResourceExhausted(t *testing.T) {
	srv := newTestServer(t, 1)

	_, err := srv.LaunchFrame(context.Background(), &rqdpb.RunFrame{
		FrameId:  "F3",
		Command:  []string{"/bin/sleep", "1"},
		NumCores: 2,
	})
	if err == nil {
		t.Fatal("expected an error launching a frame requesting more cores than the host has")
	}
	if got := status.Code(err); got != codes.ResourceExhausted {
		t.Fatalf("expected codes.ResourceExhausted, got %s", got)
	}
}

func TestKillRunningFrameUnknownFrameReturnsNotFound(t *testing.T) {
	srv := newTestServer(t, 4)

	_, err := srv.KillRunningFrame(context.Background(), &rqdpb.FrameIdRequest{FrameId: "missing"})
	if err == nil {
		t.Fatal("expected an error killing an unknown frame")
	}
	if got := status.Code(err); got != codes.NotFound {
		t.Fatalf("expected codes.NotFound, got %s", got)
	}
}

func TestKillRunningFrameWithNoProcessReturnsFailedPrecondition(t *testing.T) {
	srv := newTestServer(t, 4)

	rfObj := frame.NewRunningFrame(frame.RunFrame{FrameID: "F4"})
	if err := srv.registry.Insert(rfObj); err != nil {
		t.Fatalf("unexpected error inserting frame: %s", err)
	}

	_, err := srv.KillRunningFrame(context.Background(), &rqdpb.FrameIdRequest{FrameId: "F4"})
	if err == nil {
		t.Fatal("expected an error killing a frame with no process attached")
	}
	if got := status.Code(err); got != codes.FailedPrecondition {
		t.Fatalf("expected codes.FailedPrecondition, got %s", got)
	}
}

func TestShutdownRqdNowBlocksFurtherLaunches(t *testing.T) {
	srv := newTestServer(t, 4)

	if _, err := srv.ShutdownRqdNow(context.Background(), &rqdpb.Empty{}); err != nil {
		t.Fatalf("unexpected ShutdownRqdNow error: %s", err)
	}

	_, err := srv.LaunchFrame(context.Background(), &rqdpb.RunFrame{
		FrameId:  "F5",
		Command:  []string{"/bin/sh", "-c", "exit 0"},
		NumCores: 1,
	})
	if err == nil {
		t.Fatal("expected launches to be refused once a shutdown is pending")
	}
	if got := status.Code(err); got != codes.FailedPrecondition {
		t.Fatalf("expected codes.FailedPrecondition, got %s", got)
	}
}

func TestIdleActionReadyWaitsForRunningFramesToDrain(t *testing.T) {
	if testing.Short() {
		t.Skip("skipping process spawn integration test in short mode")
	}
	srv := newTestServer(t, 4)

	if _, err := srv.LaunchFrame(context.Background(), &rqdpb.RunFrame{
		FrameId:  "F6",
		Command:  []string{"/bin/sleep", "1"},
		NumCores: 1,
	}); err != nil {
		t.Fatalf("unexpected LaunchFrame error: %s", err)
	}

	if _, err := srv.RestartRqdIdle(context.Background(), &rqdpb.Empty{}); err != nil {
		t.Fatalf("unexpected RestartRqdIdle error: %s", err)
	}

	if action, ready := srv.IdleActionReady(); ready || action != lockmgr.ActionRestart {
		t.Fatalf("expected a pending, not-yet-ready restart action, got action=%s ready=%v", action, ready)
	}

	waitForState(t, srv, "F6", "EXITED")

	action, ready := srv.IdleActionReady()
	if !ready || action != lockmgr.ActionRestart {
		t.Fatalf("expected the restart action to become ready once frames drained, got action=%s ready=%v", action, ready)
	}
}

func TestToStatusMapsAdmissionSentinelsToDistinctCodes(t *testing.T) {
	cases := []struct {
		name string
		err  error
		want codes.Code
	}{
		{"already exists", rqderr.ErrAlreadyExists, codes.AlreadyExists},
		{"not found", rqderr.ErrNotFound, codes.NotFound},
		{"resource exhausted", rqderr.ErrResourceExhausted, codes.ResourceExhausted},
		{"shutdown pending", rqderr.ErrShutdownPending, codes.FailedPrecondition},
		{"nimby blocked", rqderr.ErrNimbyBlocked, codes.FailedPrecondition},
		{"generic admission error", rqderr.New(rqderr.ClassAdmission, "op", errors.New("boom")), codes.FailedPrecondition},
		{"non-admission class", rqderr.New(rqderr.ClassExec, "op", errors.New("boom")), codes.Internal},
		{"unclassified error", errors.New("boom"), codes.Internal},
	}

	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			got := status.Code(toStatus(tc.err))
			if got != tc.want {
				t.Fatalf("expected %s, got %s", tc.want, got)
			}
		})
	}
}
