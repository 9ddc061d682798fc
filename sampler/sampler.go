// Package sampler implements the Proc Sampler: a ticker loop that
// periodically harvests /proc statistics for every supervised process
// subtree, derives %CPU and other metrics using history kept across
// ticks, and publishes a roll-up per frame.
//
// Reads are dispatched across a small bounded worker pool, sized to
// avoid opening hundreds of /proc files at once on a host running many
// concurrent frames; see DESIGN.md for why that pool is a buffered
// semaphore rather than an errgroup.
package sampler

import (
	"context"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/arctir/frameagent/procfs"
)

// IOCounters mirrors /proc/<pid>/io for one session's roll-up.
type IOCounters struct {
	ReadCalls  uint64
	WriteCalls uint64
	ReadBytes  uint64
	WriteBytes uint64
}

// ContextSwitches mirrors /proc/<pid>/status's voluntary/nonvoluntary
// counters, summed across a session's processes (non-leader threads are
// skipped).
type ContextSwitches struct {
	Voluntary    uint64
	Nonvoluntary uint64
}

// PTreeEntry is one member of a session's process tree as of the most
// recent sample.
type PTreeEntry struct {
	PID         int
	RunningTime time.Duration
	CPUTime     time.Duration
}

// ProcSample is a per-session-leader roll-up from one sampler tick.
type ProcSample struct {
	FrameID         string
	RSS             int64
	MaxRSS          int64
	VSize           uint64
	MaxVSize        uint64
	CPUTime         time.Duration
	RunningTime     time.Duration
	PCPU            float64
	ContextSwitches ContextSwitches
	IO              IOCounters
	PTree           []PTreeEntry
}

// pidHistory is one entry per sampled PID, retained across ticks solely
// to smooth %CPU. Owned exclusively by the Sampler; never shared with
// other components.
type pidHistory struct {
	prevCPUTicks    uint64
	prevRunningTime time.Duration
	prevPCPU        float64
}

// frameAccumulator tracks monotonic max_rss/max_vsize per frame across
// the frame's lifetime, since a single tick only observes the current
// values.
type frameAccumulator struct {
	maxRSS   int64
	maxVSize uint64
}

// Root is one session leader the sampler should walk, as reported by
// the Frame Registry.
type Root struct {
	FrameID string
	PID     int
}

// RootLister is implemented by the Frame Registry: "roots of interest"
// are the PIDs of every currently running RunningFrame, each of which
// is a session leader.
type RootLister interface {
	Roots() []Root
}

// Publisher receives the roll-up for one frame per tick. The Frame
// Registry implements this with an atomic swap of the frame's
// latest-sample slot.
type Publisher interface {
	PublishSample(frameID string, sample ProcSample) error
}

// Config controls tick cadence and worker pool sizing.
type Config struct {
	Interval    time.Duration
	Workers     int
	ProcRoot    string
	SystemHertz int64
	BootTime    time.Time
}

// Sampler owns the ticker loop, the bounded worker pool, and the
// PidHistory map.
type Sampler struct {
	cfg     Config
	roots   RootLister
	publish Publisher
	log     *zap.Logger

	history map[int]*pidHistory
	accum   map[string]*frameAccumulator
}

// New constructs a Sampler. cfg.Workers defaults to 6 and cfg.Interval
// to 15s when left zero.
func New(cfg Config, roots RootLister, publish Publisher, log *zap.Logger) *Sampler {
	if cfg.Workers <= 0 {
		cfg.Workers = 6
	}
	if cfg.Interval <= 0 {
		cfg.Interval = 15 * time.Second
	}
	if cfg.ProcRoot == "" {
		cfg.ProcRoot = "/proc"
	}
	if cfg.SystemHertz <= 0 {
		cfg.SystemHertz = 100
	}
	return &Sampler{
		cfg:     cfg,
		roots:   roots,
		publish: publish,
		log:     log,
		history: make(map[int]*pidHistory),
		accum:   make(map[string]*frameAccumulator),
	}
}

// Run ticks until ctx is canceled, which is how shutdown stops the
// sampler loop.
func (s *Sampler) Run(ctx context.Context) {
	ticker := time.NewTicker(s.cfg.Interval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-ticker.C:
			s.tick()
		}
	}
}

// tick performs one full sampling pass: enumerate, read (bounded pool),
// roll up per session, update history, publish.
func (s *Sampler) tick() {
	roots := s.roots.Roots()
	if len(roots) == 0 {
		return
	}
	sessionByPID := make(map[int]string, len(roots))
	for _, r := range roots {
		sessionByPID[r.PID] = r.FrameID
	}

	pids, err := procfs.ListPIDs(s.cfg.ProcRoot)
	if err != nil {
		if s.log != nil {
			s.log.Warn("sampler failed to enumerate pids", zap.Error(err))
		}
		return
	}

	readings := s.readAll(pids)

	now := time.Now()
	rollups := make(map[string]*ProcSample)
	seenPIDs := make(map[int]bool, len(readings))

	for _, rd := range readings {
		if rd.status == nil || rd.stat == nil {
			continue // process vanished between enumeration and read
		}
		if rd.status.Tgid != rd.status.Pid {
			continue // thread, not a process leader; ignore
		}
		if rd.stat.Session == 0 {
			continue
		}
		frameID, ok := sessionByPID[rd.stat.Session]
		if !ok {
			continue // not one of our supervised sessions
		}
		seenPIDs[rd.stat.Pid] = true

		roll, ok := rollups[frameID]
		if !ok {
			roll = &ProcSample{FrameID: frameID}
			rollups[frameID] = roll
		}

		cpuTicks := rd.stat.Utime + rd.stat.Stime + uint64(rd.stat.Cutime) + uint64(rd.stat.Cstime)
		createTime := s.cfg.BootTime.Add(time.Duration(rd.stat.Starttime) * time.Second / time.Duration(s.cfg.SystemHertz))
		runningTime := now.Sub(createTime)
		if runningTime < 0 {
			runningTime = 0
		}
		cpuTime := time.Duration(cpuTicks) * time.Second / time.Duration(s.cfg.SystemHertz)

		pcpu := s.smoothPCPU(rd.stat.Pid, cpuTicks, runningTime)

		roll.RSS += rd.stat.Rss
		roll.VSize += rd.stat.Vsize
		roll.CPUTime += cpuTime
		if runningTime > roll.RunningTime {
			roll.RunningTime = runningTime
		}
		roll.PCPU += pcpu
		if rd.io != nil {
			roll.IO.ReadCalls += rd.io.ReadCalls
			roll.IO.WriteCalls += rd.io.WriteCalls
			roll.IO.ReadBytes += rd.io.ReadBytes
			roll.IO.WriteBytes += rd.io.WriteBytes
		}
		roll.ContextSwitches.Voluntary += rd.status.VoluntaryCtxtSw
		roll.ContextSwitches.Nonvoluntary += rd.status.NonvoluntaryCtxtSw
		roll.PTree = append(roll.PTree, PTreeEntry{PID: rd.stat.Pid, RunningTime: runningTime, CPUTime: cpuTime})
	}

	s.expungeStaleHistory(seenPIDs)

	for frameID, roll := range rollups {
		acc, ok := s.accum[frameID]
		if !ok {
			acc = &frameAccumulator{}
			s.accum[frameID] = acc
		}
		if roll.RSS > acc.maxRSS {
			acc.maxRSS = roll.RSS
		}
		if roll.VSize > acc.maxVSize {
			acc.maxVSize = roll.VSize
		}
		roll.MaxRSS = acc.maxRSS
		roll.MaxVSize = acc.maxVSize

		if err := s.publish.PublishSample(frameID, *roll); err != nil && s.log != nil {
			s.log.Warn("failed publishing proc sample", zap.String("frame_id", frameID), zap.Error(err))
		}
	}
}

// Forget discards a frame's accumulator once it has left the registry
// (terminal + grace period elapsed), so accumulators do not leak across
// the lifetime of a long-running daemon.
func (s *Sampler) Forget(frameID string) {
	delete(s.accum, frameID)
}

func (s *Sampler) smoothPCPU(pid int, cpuTicks uint64, runningTime time.Duration) float64 {
	h, ok := s.history[pid]
	if !ok {
		h = &pidHistory{}
		s.history[pid] = h
	}

	var r float64
	if ok && runningTime != h.prevRunningTime {
		dCPU := float64(cpuTicks) - float64(h.prevCPUTicks)
		dRunning := runningTime - h.prevRunningTime
		if dRunning > 0 {
			r = dCPU / (float64(s.cfg.SystemHertz) * dRunning.Seconds())
		}
		r = (h.prevPCPU + r) / 2
	} else if runningTime > 0 {
		r = float64(cpuTicks) / (float64(s.cfg.SystemHertz) * runningTime.Seconds())
	}

	h.prevCPUTicks = cpuTicks
	h.prevRunningTime = runningTime
	h.prevPCPU = r
	return r
}

func (s *Sampler) expungeStaleHistory(seen map[int]bool) {
	for pid := range s.history {
		if !seen[pid] {
			delete(s.history, pid)
		}
	}
}

type reading struct {
	pid    int
	stat   *procfs.Stat
	status *procfs.Status
	io     *procfs.IO
}

// readAll dispatches stat/status/io reads for every pid across a
// bounded worker pool, merging results back on the caller's goroutine
// (the sampler's own event loop) so no mutable sampler state is touched
// from the worker pool itself.
func (s *Sampler) readAll(pids []int) []reading {
	sem := make(chan struct{}, s.cfg.Workers)
	results := make([]reading, len(pids))

	var wg sync.WaitGroup
	for i, pid := range pids {
		wg.Add(1)
		sem <- struct{}{}
		go func(i, pid int) {
			defer wg.Done()
			defer func() { <-sem }()
			results[i] = s.readOne(pid)
		}(i, pid)
	}
	wg.Wait()
	return results
}

func (s *Sampler) readOne(pid int) reading {
	rd := reading{pid: pid}
	if st, err := procfs.ReadStat(s.cfg.ProcRoot, pid); err == nil {
		rd.stat = st
	}
	if status, err := procfs.ReadStatus(s.cfg.ProcRoot, pid); err == nil {
		rd.status = status
	}
	if io, err := procfs.ReadIO(s.cfg.ProcRoot, pid); err == nil {
		rd.io = io
	}
	return rd
}
