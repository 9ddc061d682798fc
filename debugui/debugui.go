// Package debugui serves a read-only HTML view of the daemon's frame
// registry and lock state: a list view of every tracked frame with
// drill-down into one frame's full detail, meant for an operator
// poking at a host over SSH rather than for the dispatcher.
package debugui

import (
	"fmt"
	"html/template"
	"net/http"
	"sort"
	"strings"

	"go.uber.org/zap"

	"github.com/arctir/frameagent/lockmgr"
	"github.com/arctir/frameagent/registry"
)

const framesPath = "/frame/"

// UI serves the debug endpoints. It never mutates daemon state; every
// handler only reads from the registry and lock manager passed to New.
type UI struct {
	log      *zap.Logger
	registry *registry.Registry
	locks    *lockmgr.Manager
}

// New constructs a UI backed by reg and locks.
func New(log *zap.Logger, reg *registry.Registry, locks *lockmgr.Manager) *UI {
	return &UI{log: log, registry: reg, locks: locks}
}

// Handler returns the http.Handler to mount, so the caller controls the
// listener and its lifecycle rather than the UI owning an http.Server.
func (ui *UI) Handler() http.Handler {
	mux := http.NewServeMux()
	mux.HandleFunc("/", ui.handleIndex)
	mux.HandleFunc(framesPath, ui.handleFrameDetails)
	return mux
}

type indexRow struct {
	FrameID    string
	PID        int
	State      string
	ResourceID string
	NumCores   int
}

type indexData struct {
	LockState lockmgr.LockState
	Frames    []indexRow
}

func (ui *UI) handleIndex(w http.ResponseWriter, r *http.Request) {
	frames := ui.registry.ListAll()
	rows := make([]indexRow, 0, len(frames))
	for _, f := range frames {
		snap := f.Snapshot()
		rows = append(rows, indexRow{
			FrameID:    snap.FrameID,
			PID:        snap.PID,
			State:      snap.State.String(),
			ResourceID: f.Request.ResourceID,
			NumCores:   f.Request.NumCores,
		})
	}
	sort.Slice(rows, func(i, j int) bool { return rows[i].FrameID < rows[j].FrameID })

	data := indexData{LockState: ui.locks.State(), Frames: rows}
	t, err := createTemplate(indexView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, data); err != nil && ui.log != nil {
		ui.log.Warn("debugui: failed rendering index", zap.Error(err))
	}
}

type detailField struct {
	Field string
	Value string
}

func (ui *UI) handleFrameDetails(w http.ResponseWriter, r *http.Request) {
	frameID := strings.TrimPrefix(r.URL.Path, framesPath)
	f, err := ui.registry.GetByFrameID(frameID)
	if err != nil {
		writeFailure(w, err)
		return
	}

	snap := f.Snapshot()
	sample, _ := ui.registry.LatestSample(frameID)

	fields := []detailField{
		{"frame_id", snap.FrameID},
		{"pid", fmt.Sprintf("%d", snap.PID)},
		{"state", snap.State.String()},
		{"exit_code", fmt.Sprintf("%d", snap.ExitCode)},
		{"resource_id", f.Request.ResourceID},
		{"job_id", f.Request.JobID},
		{"job_name", f.Request.JobName},
		{"frame_name", f.Request.FrameName},
		{"num_cores", fmt.Sprintf("%d", f.Request.NumCores)},
		{"start_wall_clock", snap.StartWallClock.String()},
		{"launch_duration", snap.LaunchDuration.String()},
		{"user_time", snap.Rusage.UserTime.String()},
		{"system_time", snap.Rusage.SystemTime.String()},
		{"rss", fmt.Sprintf("%d", sample.RSS)},
		{"max_rss", fmt.Sprintf("%d", sample.MaxRSS)},
		{"vsize", fmt.Sprintf("%d", sample.VSize)},
		{"max_vsize", fmt.Sprintf("%d", sample.MaxVSize)},
		{"pcpu", fmt.Sprintf("%.2f", sample.PCPU)},
	}

	t, err := createTemplate(detailView)
	if err != nil {
		writeFailure(w, err)
		return
	}
	if err := t.Execute(w, fields); err != nil && ui.log != nil {
		ui.log.Warn("debugui: failed rendering frame details", zap.Error(err), zap.String("frame_id", frameID))
	}
}

func createTemplate(body string) (*template.Template, error) {
	return template.New("response").Parse(uiHeader + body + uiFooter)
}

func writeFailure(w http.ResponseWriter, err error) {
	w.WriteHeader(http.StatusInternalServerError)
	t, tErr := createTemplate(errorView)
	if tErr != nil {
		return
	}
	_ = t.Execute(w, err.Error())
}
