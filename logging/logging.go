// Package logging builds the daemon's structured logger. There is no
// process-wide logger singleton: New is called once at startup and the
// resulting *zap.Logger is threaded through every component, each of
// which attaches its own fields (frame_id, pid, resource_id) rather than
// relying on ambient state.
package logging

import (
	"os"
	"path/filepath"
	"sync"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
)

// New builds a DEBUG-level JSON logger writing to path, rotated daily
// at midnight. If path is empty, logs go to stderr only (used by tests
// and the ad-hoc CLI subcommands).
func New(path string) (*zap.Logger, error) {
	encoderCfg := zap.NewProductionEncoderConfig()
	encoderCfg.TimeKey = "ts"
	encoderCfg.EncodeTime = zapcore.ISO8601TimeEncoder
	encoder := zapcore.NewJSONEncoder(encoderCfg)

	var sink zapcore.WriteSyncer = zapcore.AddSync(os.Stderr)
	if path != "" {
		df, err := newDailyFile(path)
		if err != nil {
			return nil, err
		}
		sink = zapcore.NewMultiWriteSyncer(zapcore.AddSync(os.Stderr), df)
	}

	core := zapcore.NewCore(encoder, sink, zapcore.DebugLevel)
	return zap.New(core, zap.AddCaller()), nil
}

// dailyFile is a zapcore.WriteSyncer that rotates its underlying file at
// midnight local time. Both logrus and zap leave rotation to an
// external writer rather than a bundled dependency, so this is a small
// hand-rolled WriteSyncer instead; see DESIGN.md.
type dailyFile struct {
	mu      sync.Mutex
	dir     string
	base    string
	ext     string
	day     string
	current *os.File
}

func newDailyFile(path string) (*dailyFile, error) {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, err
	}
	ext := filepath.Ext(path)
	base := filepath.Base(path[:len(path)-len(ext)])
	df := &dailyFile{dir: dir, base: base, ext: ext}
	if err := df.rotateLocked(time.Now()); err != nil {
		return nil, err
	}
	return df, nil
}

func (d *dailyFile) Write(p []byte) (int, error) {
	d.mu.Lock()
	defer d.mu.Unlock()

	now := time.Now()
	if now.Format("2006-01-02") != d.day {
		if err := d.rotateLocked(now); err != nil {
			return 0, err
		}
	}
	return d.current.Write(p)
}

func (d *dailyFile) Sync() error {
	d.mu.Lock()
	defer d.mu.Unlock()
	if d.current == nil {
		return nil
	}
	return d.current.Sync()
}

func (d *dailyFile) rotateLocked(now time.Time) error {
	day := now.Format("2006-01-02")
	fp := filepath.Join(d.dir, d.base+"."+day+d.ext)
	f, err := os.OpenFile(fp, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return err
	}
	if d.current != nil {
		_ = d.current.Close()
	}
	d.current = f
	d.day = day

	// keep a stable symlink at the configured path pointing at today's file.
	linkPath := filepath.Join(d.dir, d.base+d.ext)
	_ = os.Remove(linkPath)
	_ = os.Symlink(fp, linkPath)
	return nil
}
