// Package registry implements the Frame Registry: the single shared map
// from frame_id to RunningFrame, with secondary indexes by PID and
// resource_id, and a grace-period reaper for terminal frames.
package registry

import (
	"sync"
	"time"

	"github.com/arctir/frameagent/frame"
	"github.com/arctir/frameagent/rqderr"
	"github.com/arctir/frameagent/sampler"
)

// DefaultGraceTerminalDuration is how long a terminal frame remains
// queryable before being purged.
const DefaultGraceTerminalDuration = 60 * time.Second

// Registry is the one shared mutable map in the daemon; every mutation
// happens under a single mutex.
type Registry struct {
	mu sync.RWMutex

	byFrameID     map[string]*frame.RunningFrame
	byPID         map[int]string
	byResource    map[string]map[string]bool
	terminalAt    map[string]time.Time
	latestSamples map[string]sampler.ProcSample

	graceTerminal time.Duration
}

// New constructs an empty Registry.
func New(graceTerminal time.Duration) *Registry {
	if graceTerminal <= 0 {
		graceTerminal = DefaultGraceTerminalDuration
	}
	return &Registry{
		byFrameID:     make(map[string]*frame.RunningFrame),
		byPID:         make(map[int]string),
		byResource:    make(map[string]map[string]bool),
		terminalAt:    make(map[string]time.Time),
		latestSamples: make(map[string]sampler.ProcSample),
		graceTerminal: graceTerminal,
	}
}

// Insert adds a new RunningFrame, rejecting a duplicate frame_id with
// LaunchFrame's ALREADY_EXISTS error.
func (r *Registry) Insert(f *frame.RunningFrame) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	id := f.Request.FrameID
	if _, exists := r.byFrameID[id]; exists {
		return rqderr.New(rqderr.ClassAdmission, "registry.Insert", rqderr.ErrAlreadyExists).WithFrame(id)
	}
	r.byFrameID[id] = f
	if set, ok := r.byResource[f.Request.ResourceID]; ok {
		set[id] = true
	} else {
		r.byResource[f.Request.ResourceID] = map[string]bool{id: true}
	}
	return nil
}

// BindPID records the session-leader PID for a frame once spawn
// succeeds. Called after Insert, once the PID is known.
func (r *Registry) BindPID(frameID string, pid int) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.byPID[pid] = frameID
}

// GetByFrameID returns the RunningFrame for id, or ErrNotFound.
func (r *Registry) GetByFrameID(id string) (*frame.RunningFrame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	f, ok := r.byFrameID[id]
	if !ok {
		return nil, rqderr.New(rqderr.ClassAdmission, "registry.GetByFrameID", rqderr.ErrNotFound).WithFrame(id)
	}
	return f, nil
}

// GetByPID returns the RunningFrame owning the session leader pid.
func (r *Registry) GetByPID(pid int) (*frame.RunningFrame, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	id, ok := r.byPID[pid]
	if !ok {
		return nil, rqderr.New(rqderr.ClassAdmission, "registry.GetByPID", rqderr.ErrNotFound).WithPID(pid)
	}
	return r.byFrameID[id], nil
}

// ListRunning returns every frame that has not yet reached a terminal
// state.
func (r *Registry) ListRunning() []*frame.RunningFrame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*frame.RunningFrame, 0, len(r.byFrameID))
	for _, f := range r.byFrameID {
		if f.State() == frame.Running || f.State() == frame.Pending {
			out = append(out, f)
		}
	}
	return out
}

// ListAll returns every frame still tracked by the registry, running or
// terminal-pending-grace, for the debug UI's frame listing.
func (r *Registry) ListAll() []*frame.RunningFrame {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]*frame.RunningFrame, 0, len(r.byFrameID))
	for _, f := range r.byFrameID {
		out = append(out, f)
	}
	return out
}

// ReservedCores returns the sum of num_cores across every non-terminal
// RunningFrame, used by the admission check.
func (r *Registry) ReservedCores() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	total := 0
	for _, f := range r.byFrameID {
		if s := f.State(); s == frame.Running || s == frame.Pending {
			total += f.Request.NumCores
		}
	}
	return total
}

// MarkTerminal records that frame id has just reached a terminal state,
// starting its grace-period countdown. Safe to call exactly once per
// frame, from whatever code observed the Child Watcher's exit callback.
func (r *Registry) MarkTerminal(id string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byFrameID[id]; !ok {
		return
	}
	r.terminalAt[id] = time.Now()
}

// RemoveTerminalAfterGrace purges every frame that reached a terminal
// state more than the grace period ago. Intended to run periodically
// from a background goroutine.
func (r *Registry) RemoveTerminalAfterGrace() []string {
	r.mu.Lock()
	defer r.mu.Unlock()

	var purged []string
	now := time.Now()
	for id, at := range r.terminalAt {
		if now.Sub(at) < r.graceTerminal {
			continue
		}
		f, ok := r.byFrameID[id]
		if ok {
			delete(r.byFrameID, id)
			if pid := f.PID(); pid != 0 {
				delete(r.byPID, pid)
			}
			if set, ok := r.byResource[f.Request.ResourceID]; ok {
				delete(set, id)
				if len(set) == 0 {
					delete(r.byResource, f.Request.ResourceID)
				}
			}
		}
		delete(r.terminalAt, id)
		delete(r.latestSamples, id)
		purged = append(purged, id)
	}
	return purged
}

// RunGraceReaper runs RemoveTerminalAfterGrace on a fixed interval until
// stop is closed. onPurge, if non-nil, is invoked for every purged
// frame id (used to let the sampler drop its per-frame accumulator).
func (r *Registry) RunGraceReaper(interval time.Duration, stop <-chan struct{}, onPurge func(frameID string)) {
	if interval <= 0 {
		interval = 10 * time.Second
	}
	ticker := time.NewTicker(interval)
	defer ticker.Stop()
	for {
		select {
		case <-stop:
			return
		case <-ticker.C:
			for _, id := range r.RemoveTerminalAfterGrace() {
				if onPurge != nil {
					onPurge(id)
				}
			}
		}
	}
}

// Roots implements sampler.RootLister: the PID of every currently
// running frame is a session leader, since Spawn always starts one.
func (r *Registry) Roots() []sampler.Root {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]sampler.Root, 0, len(r.byFrameID))
	for id, f := range r.byFrameID {
		if f.State() != frame.Running {
			continue
		}
		if pid := f.PID(); pid != 0 {
			out = append(out, sampler.Root{FrameID: id, PID: pid})
		}
	}
	return out
}

// PublishSample implements sampler.Publisher: an atomic swap of the
// frame's latest-sample slot.
func (r *Registry) PublishSample(frameID string, s sampler.ProcSample) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if _, ok := r.byFrameID[frameID]; !ok {
		return rqderr.New(rqderr.ClassSampleStale, "registry.PublishSample", rqderr.ErrNotFound).WithFrame(frameID)
	}
	r.latestSamples[frameID] = s
	return nil
}

// LatestSample returns the most recently published ProcSample for id,
// if any.
func (r *Registry) LatestSample(id string) (sampler.ProcSample, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	s, ok := r.latestSamples[id]
	return s, ok
}
