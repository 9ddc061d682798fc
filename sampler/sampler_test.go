package sampler

import (
	"os"
	"path/filepath"
	"strconv"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeRoots struct {
	roots []Root
}

func (f fakeRoots) Roots() []Root { return f.roots }

type fakePublisher struct {
	samples map[string]ProcSample
}

func newFakePublisher() *fakePublisher {
	return &fakePublisher{samples: make(map[string]ProcSample)}
}

func (f *fakePublisher) PublishSample(frameID string, sample ProcSample) error {
	f.samples[frameID] = sample
	return nil
}

func writeProcFixture(t *testing.T, root string, pid, tgid, session int, utime, stime uint64, rss int64, vsize uint64, starttime uint64) {
	t.Helper()
	dir := filepath.Join(root, strconv.Itoa(pid))
	require.NoError(t, os.MkdirAll(dir, 0755))

	statLine := strconv_join(pid, tgid, session, utime, stime, starttime, vsize, rss)
	require.NoError(t, os.WriteFile(filepath.Join(dir, "stat"), []byte(statLine), 0644))

	status := "Tgid:\t" + strconv.Itoa(tgid) + "\nPid:\t" + strconv.Itoa(pid) +
		"\nvoluntary_ctxt_switches:\t1\nnonvoluntary_ctxt_switches:\t2\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte(status), 0644))

	io := "rchar: 0\nwchar: 0\nsyscr: 1\nsyscw: 1\nread_bytes: 10\nwrite_bytes: 20\n"
	require.NoError(t, os.WriteFile(filepath.Join(dir, "io"), []byte(io), 0644))
}

// strconv_join builds a synthetic /proc/<pid>/stat line. rest[i]
// corresponds to overall stat field (i+3) per `man proc` (state=field3
// is rest[0], rss=field24 is rest[21]); everything not explicitly set
// here is zero-filled.
func strconv_join(pid, ppid, session int, utime, stime uint64, starttime uint64, vsize uint64, rss int64) string {
	const restLen = 22
	rest := make([]string, restLen)
	for i := range rest {
		rest[i] = "0"
	}
	rest[0] = "R"                                    // state
	rest[1] = strconv.Itoa(ppid)                      // ppid
	rest[2] = strconv.Itoa(ppid)                      // pgrp
	rest[3] = strconv.Itoa(session)                   // session
	rest[11] = strconv.FormatUint(utime, 10)          // utime
	rest[12] = strconv.FormatUint(stime, 10)          // stime
	rest[19] = strconv.FormatUint(starttime, 10)      // starttime
	rest[20] = strconv.FormatUint(vsize, 10)          // vsize
	rest[21] = strconv.FormatInt(rss, 10)             // rss

	out := strconv.Itoa(pid) + " (render)"
	for _, f := range rest {
		out += " " + f
	}
	return out
}

func TestTickRollsUpSingleProcessSession(t *testing.T) {
	root := t.TempDir()
	writeProcFixture(t, root, 500, 500, 500, 242, 54, 1024, 2048, 100)

	pub := newFakePublisher()
	boot := time.Now().Add(-time.Hour)
	s := New(Config{ProcRoot: root, SystemHertz: 100, BootTime: boot}, fakeRoots{roots: []Root{{FrameID: "F1", PID: 500}}}, pub, nil)

	s.tick()

	sample, ok := pub.samples["F1"]
	require.True(t, ok, "expected a sample published for F1")
	assert.Equal(t, int64(1024), sample.RSS)
	assert.Equal(t, uint64(2048), sample.VSize)
	assert.True(t, sample.PCPU >= 0)
}

func TestTickIgnoresThreadsWhereTgidDiffersFromPid(t *testing.T) {
	root := t.TempDir()
	// pid 501 is a thread of tgid 500: the fixture writer already records
	// Tgid 500 / Pid 501, and the status file is rewritten by hand to hold
	// nothing but those two keys.
	writeProcFixture(t, root, 501, 500, 500, 10, 10, 10, 10, 10)
	dir := filepath.Join(root, "501")
	require.NoError(t, os.WriteFile(filepath.Join(dir, "status"), []byte("Tgid:\t500\nPid:\t501\n"), 0644))

	pub := newFakePublisher()
	s := New(Config{ProcRoot: root, SystemHertz: 100, BootTime: time.Now()}, fakeRoots{roots: []Root{{FrameID: "F1", PID: 500}}}, pub, nil)

	s.tick()

	_, ok := pub.samples["F1"]
	assert.False(t, ok, "a thread-only session should produce no published sample")
}

func TestMaxRSSIsMonotonicAcrossTicks(t *testing.T) {
	root := t.TempDir()
	writeProcFixture(t, root, 600, 600, 600, 10, 10, 5000, 9000, 10)

	pub := newFakePublisher()
	s := New(Config{ProcRoot: root, SystemHertz: 100, BootTime: time.Now()}, fakeRoots{roots: []Root{{FrameID: "F2", PID: 600}}}, pub, nil)

	s.tick()
	first := pub.samples["F2"]
	require.Equal(t, int64(5000), first.MaxRSS)

	// second tick observes a lower rss; max_rss must not decrease.
	writeProcFixture(t, root, 600, 600, 600, 11, 11, 1000, 9000, 10)
	s.tick()
	second := pub.samples["F2"]
	assert.Equal(t, int64(5000), second.MaxRSS)
	assert.Equal(t, int64(1000), second.RSS)
}

func TestUnknownSessionIsIgnored(t *testing.T) {
	root := t.TempDir()
	writeProcFixture(t, root, 700, 700, 999, 1, 1, 1, 1, 1)

	pub := newFakePublisher()
	s := New(Config{ProcRoot: root, SystemHertz: 100, BootTime: time.Now()}, fakeRoots{roots: []Root{{FrameID: "F3", PID: 500}}}, pub, nil)

	s.tick()
	assert.Empty(t, pub.samples)
}
