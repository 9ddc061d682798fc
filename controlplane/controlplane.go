// Package controlplane implements the Control Plane: a gRPC service
// over HTTP/2 that accepts LaunchFrame and lifecycle/admin RPCs from
// the dispatcher, mapping rqderr classes onto gRPC status codes at this
// boundary.
package controlplane

import (
	"context"
	"errors"
	"syscall"

	"go.uber.org/zap"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"github.com/arctir/frameagent/frame"
	"github.com/arctir/frameagent/hostfacts"
	"github.com/arctir/frameagent/lockmgr"
	"github.com/arctir/frameagent/outputmux"
	"github.com/arctir/frameagent/reaper"
	"github.com/arctir/frameagent/registry"
	"github.com/arctir/frameagent/rqderr"
	"github.com/arctir/frameagent/rqdpb"
)

// EnvironmentSource supplies the host-facts and config inputs the
// environment frame needs for every spawned command.
type EnvironmentSource interface {
	BaseEnvironment() frame.BaseEnvironmentInputs
}

// Server implements rqdpb.RqdServer, backed by the daemon's registry,
// lock manager, host-facts detector, Child Watcher, and per-frame
// process spawning.
type Server struct {
	rqdpb.UnimplementedRqdServer

	log      *zap.Logger
	registry *registry.Registry
	locks    *lockmgr.Manager
	facts    *hostfacts.Detector
	watcher  *reaper.Watcher
	env      EnvironmentSource
}

// New constructs a Server.
func New(log *zap.Logger, reg *registry.Registry, locks *lockmgr.Manager, facts *hostfacts.Detector, watcher *reaper.Watcher, env EnvironmentSource) *Server {
	return &Server{log: log, registry: reg, locks: locks, facts: facts, watcher: watcher, env: env}
}

// LaunchFrame admits and spawns a frame.
func (s *Server) LaunchFrame(ctx context.Context, req *rqdpb.RunFrame) (*rqdpb.LaunchFrameResponse, error) {
	rf := frame.RunFrame{
		FrameID:      req.FrameId,
		ResourceID:   req.ResourceId,
		JobID:        req.JobId,
		LayerID:      req.LayerId,
		UserName:     req.UserName,
		UID:          int(req.Uid),
		GID:          int(req.Gid),
		Command:      req.Command,
		LogDir:       req.LogDir,
		LogFile:      req.LogFile,
		NumCores:     int(req.NumCores),
		Environment:  req.Environment,
		Attributes:   req.Attributes,
		IgnoreNimby:  req.IgnoreNimby,
		Show:         req.Show,
		Shot:         req.Shot,
		JobName:      req.JobName,
		FrameName:    req.FrameName,
		JobTempDir:   req.JobTempDir,
		FrameTempDir: req.FrameTempDir,
	}

	if err := s.locks.Admit(rf.NumCores, rf.IgnoreNimby); err != nil {
		return nil, toStatus(err)
	}

	rfObj := frame.NewRunningFrame(rf)
	if err := s.registry.Insert(rfObj); err != nil {
		return nil, toStatus(err)
	}

	mux := outputmux.New(s.log)
	if rf.LogFile != "" {
		if _, err := mux.RegisterLogFile(rf.LogFile); err != nil && s.log != nil {
			s.log.Warn("failed opening frame logfile", zap.String("frame_id", rf.FrameID), zap.Error(err))
		}
	}

	proc := frame.NewProcess(s.log, mux, s.watcher)
	rfObj.SetProcess(proc)

	env := frame.BuildEnvironment(rf, s.env.BaseEnvironment())
	outcome := proc.Spawn(context.Background(), rf, env, func(exit frame.ExitOutcome) {
		rfObj.MarkTerminal(exit.KilledBySignal, exit.Status, exit.Rusage)
		s.registry.MarkTerminal(rf.FrameID)
		mux.Close()
	})

	if outcome.Err != nil {
		rfObj.MarkFailedToLaunch(1, outcome.LaunchDuration)
		s.registry.MarkTerminal(rf.FrameID)
		return &rqdpb.LaunchFrameResponse{}, nil
	}

	rfObj.MarkRunning(outcome.PID, outcome.LaunchDuration)
	s.registry.BindPID(rf.FrameID, outcome.PID)

	return &rqdpb.LaunchFrameResponse{}, nil
}

// GetRunningFrameStatus returns the current snapshot for frame_id.
func (s *Server) GetRunningFrameStatus(ctx context.Context, req *rqdpb.FrameIdRequest) (*rqdpb.RunningFrameStatus, error) {
	f, err := s.registry.GetByFrameID(req.FrameId)
	if err != nil {
		return nil, toStatus(err)
	}
	snap := f.Snapshot()
	return &rqdpb.RunningFrameStatus{
		FrameId:        snap.FrameID,
		Pid:            int32(snap.PID),
		State:          snap.State.String(),
		ExitCode:       int32(snap.ExitCode),
		StartTimeEpoch: snap.StartWallClock.Unix(),
		UserTimeMillis: snap.Rusage.UserTime.Milliseconds(),
		SysTimeMillis:  snap.Rusage.SystemTime.Milliseconds(),
	}, nil
}

// KillRunningFrame delivers SIGTERM to the frame's session and returns
// immediately; the actual reap is asynchronous.
func (s *Server) KillRunningFrame(ctx context.Context, req *rqdpb.FrameIdRequest) (*rqdpb.KillRunningFrameResponse, error) {
	f, err := s.registry.GetByFrameID(req.FrameId)
	if err != nil {
		return nil, toStatus(err)
	}
	proc := f.Process()
	if proc == nil {
		return nil, status.Errorf(codes.FailedPrecondition, "frame %s has no running process", req.FrameId)
	}
	if err := proc.Kill(syscall.SIGTERM); err != nil {
		return nil, status.Errorf(codes.Internal, "kill failed: %v", err)
	}
	return &rqdpb.KillRunningFrameResponse{}, nil
}

// ReportStatus assembles a HostReport from host facts, the lock
// manager's state, and every running frame's latest ProcSample.
func (s *Server) ReportStatus(ctx context.Context, _ *rqdpb.ReportStatusRequest) (*rqdpb.HostReport, error) {
	facts, err := s.facts.Detect()
	if err != nil {
		return nil, status.Errorf(codes.Internal, "host facts detection failed: %v", err)
	}
	lockState := s.locks.State()

	report := &rqdpb.HostReport{
		Hostname:        facts.Hostname,
		BootTimeEpoch:   facts.BootTime,
		TotalCores:      int32(lockState.TotalCores),
		LockedCores:     int32(lockState.LockedCores),
		NimbyOn:         lockState.NimbyOn,
		PendingAction:   lockState.PendingAction.String(),
		LoadAverage:     s.facts.LoadAverage(),
		FreeMemoryBytes: s.facts.FreeMemoryBytes(),
		Arch:            hostfacts.Arch(),
	}

	for _, f := range s.registry.ListRunning() {
		sample, ok := s.registry.LatestSample(f.Request.FrameID)
		if !ok {
			continue
		}
		report.Frames = append(report.Frames, &rqdpb.ProcSampleWire{
			FrameId:            f.Request.FrameID,
			Rss:                sample.RSS,
			MaxRss:             sample.MaxRSS,
			Vsize:              sample.VSize,
			MaxVsize:           sample.MaxVSize,
			CpuTimeMillis:      sample.CPUTime.Milliseconds(),
			RunningTimeMillis:  sample.RunningTime.Milliseconds(),
			Pcpu:               sample.PCPU,
			VoluntaryCtxtSw:    sample.ContextSwitches.Voluntary,
			NonvoluntaryCtxtSw: sample.ContextSwitches.Nonvoluntary,
			ReadBytes:          sample.IO.ReadBytes,
			WriteBytes:         sample.IO.WriteBytes,
		})
	}

	return report, nil
}

// killAllRunning delivers SIGTERM to every currently running frame,
// used by the *Now host actions.
func (s *Server) killAllRunning() {
	for _, f := range s.registry.ListRunning() {
		if proc := f.Process(); proc != nil {
			_ = proc.Kill(syscall.SIGTERM)
		}
	}
}

func (s *Server) ShutdownRqdNow(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.killAllRunning()
	s.locks.SetPendingAction(lockmgr.ActionShutdown)
	return &rqdpb.Empty{}, nil
}

func (s *Server) RestartRqdNow(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.killAllRunning()
	s.locks.SetPendingAction(lockmgr.ActionRestart)
	return &rqdpb.Empty{}, nil
}

func (s *Server) RebootNow(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.killAllRunning()
	s.locks.SetPendingAction(lockmgr.ActionReboot)
	return &rqdpb.Empty{}, nil
}

func (s *Server) ShutdownRqdIdle(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.LockAll()
	s.locks.SetPendingAction(lockmgr.ActionShutdown)
	return &rqdpb.Empty{}, nil
}

func (s *Server) RestartRqdIdle(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.LockAll()
	s.locks.SetPendingAction(lockmgr.ActionRestart)
	return &rqdpb.Empty{}, nil
}

func (s *Server) RebootIdle(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.LockAll()
	s.locks.SetPendingAction(lockmgr.ActionReboot)
	return &rqdpb.Empty{}, nil
}

func (s *Server) NimbyOn(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.SetNimby(true)
	if s.facts.IsUserLoggedIn() {
		s.killAllRunning()
	}
	return &rqdpb.Empty{}, nil
}

func (s *Server) NimbyOff(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.SetNimby(false)
	return &rqdpb.Empty{}, nil
}

func (s *Server) Lock(ctx context.Context, req *rqdpb.CoreCountRequest) (*rqdpb.Empty, error) {
	s.locks.Lock(int(req.Cores))
	return &rqdpb.Empty{}, nil
}

func (s *Server) Unlock(ctx context.Context, req *rqdpb.CoreCountRequest) (*rqdpb.Empty, error) {
	s.locks.Unlock(int(req.Cores))
	return &rqdpb.Empty{}, nil
}

func (s *Server) LockAll(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.LockAll()
	return &rqdpb.Empty{}, nil
}

// UnlockAll releases every locked core and cancels any pending idle
// shutdown/restart.
func (s *Server) UnlockAll(ctx context.Context, _ *rqdpb.Empty) (*rqdpb.Empty, error) {
	s.locks.UnlockAll()
	s.locks.ClearPendingAction()
	return &rqdpb.Empty{}, nil
}

// IdleActionReady reports whether a pending idle shutdown/restart/reboot
// action can now be carried out: a pending action is set and the
// running-frame count has reached zero. The caller
// (cmd/frameagentd's host-action monitor) is responsible for actually
// performing the OS-level action once this returns true.
func (s *Server) IdleActionReady() (lockmgr.PendingAction, bool) {
	state := s.locks.State()
	if state.PendingAction == lockmgr.ActionNone {
		return lockmgr.ActionNone, false
	}
	return state.PendingAction, len(s.registry.ListRunning()) == 0
}

// toStatus maps an rqderr.Error onto the gRPC status it should surface
// to the dispatcher.
func toStatus(err error) error {
	var rqErr *rqderr.Error
	if !errors.As(err, &rqErr) {
		return status.Errorf(codes.Internal, "%v", err)
	}
	switch {
	case errors.Is(rqErr, rqderr.ErrAlreadyExists):
		return status.Errorf(codes.AlreadyExists, "%v", rqErr)
	case errors.Is(rqErr, rqderr.ErrNotFound):
		return status.Errorf(codes.NotFound, "%v", rqErr)
	case errors.Is(rqErr, rqderr.ErrResourceExhausted):
		return status.Errorf(codes.ResourceExhausted, "%v", rqErr)
	case errors.Is(rqErr, rqderr.ErrShutdownPending), errors.Is(rqErr, rqderr.ErrNimbyBlocked):
		return status.Errorf(codes.FailedPrecondition, "%v", rqErr)
	default:
		switch rqErr.Class {
		case rqderr.ClassAdmission:
			return status.Errorf(codes.FailedPrecondition, "%v", rqErr)
		default:
			return status.Errorf(codes.Internal, "%v", rqErr)
		}
	}
}
