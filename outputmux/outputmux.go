// Package outputmux fans a frame's stdout/stderr byte stream out to
// zero or more sinks: an append-mode logfile and any number of live
// subscribers. One Multiplexer is owned per frame.
//
// Output is buffered manually rather than through a bufio.Scanner per
// stream, since a Scanner cannot carry a partial trailing line across
// writes and frameagent must flush a residual partial line on exit.
package outputmux

import (
	"io"
	"os"
	"sync"

	"go.uber.org/zap"
)

// Stream identifies which child pipe a chunk of bytes came from.
type Stream int

const (
	Stdout Stream = iota
	Stderr
)

func (s Stream) String() string {
	if s == Stdout {
		return "stdout"
	}
	return "stderr"
}

// Sink receives complete, newline-terminated lines, plus any residual
// partial line (without a newline) that Flush emits. WriteLine must not
// block indefinitely; a sink that errors is dropped, never allowed to
// take down its siblings.
type Sink interface {
	WriteLine(stream Stream, line []byte) error
}

// SinkHandle is the opaque handle returned by Register, used to
// Deregister a sink later.
type SinkHandle uint64

// Multiplexer owns line buffering for one frame's stdout and stderr and
// fans completed lines out to every registered sink.
type Multiplexer struct {
	log *zap.Logger

	mu       sync.Mutex
	sinks    map[SinkHandle]Sink
	owned    map[SinkHandle]io.Closer
	nextID   SinkHandle
	partial  map[Stream][]byte
	closed   bool
}

// New constructs an empty Multiplexer. Sinks are added with Register or
// RegisterLogFile.
func New(log *zap.Logger) *Multiplexer {
	return &Multiplexer{
		log:     log,
		sinks:   make(map[SinkHandle]Sink),
		owned:   make(map[SinkHandle]io.Closer),
		partial: map[Stream][]byte{Stdout: nil, Stderr: nil},
	}
}

// Register adds an externally owned sink. The multiplexer never closes
// sinks added this way.
func (m *Multiplexer) Register(s Sink) SinkHandle {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.sinks[id] = s
	return id
}

// RegisterLogFile opens path in append, unbuffered mode and registers it
// as an owned sink: Close will close the underlying file.
func (m *Multiplexer) RegisterLogFile(path string) (SinkHandle, error) {
	f, err := os.OpenFile(path, os.O_APPEND|os.O_CREATE|os.O_WRONLY, 0644)
	if err != nil {
		return 0, err
	}
	sink := &fileSink{f: f}

	m.mu.Lock()
	defer m.mu.Unlock()
	m.nextID++
	id := m.nextID
	m.sinks[id] = sink
	m.owned[id] = f
	return id, nil
}

// Deregister removes a sink by handle. If the multiplexer owns the
// underlying resource (a RegisterLogFile sink), it is closed.
func (m *Multiplexer) Deregister(id SinkHandle) {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.sinks, id)
	if c, ok := m.owned[id]; ok {
		_ = c.Close()
		delete(m.owned, id)
	}
}

// Write appends p to the given stream's buffer, emitting every complete
// line to every sink, and retaining any trailing partial line for the
// next call. A failing sink is logged and dropped from the sink set;
// it never causes Write to fail or blocks delivery to other sinks.
func (m *Multiplexer) Write(stream Stream, p []byte) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}

	buf := append(m.partial[stream], p...)
	lines, rest := splitLines(buf)
	m.partial[stream] = rest

	for _, line := range lines {
		m.deliverLocked(stream, line)
	}
}

// Flush emits any residual partial lines (with no trailing newline) to
// every sink. Called once the child has exited, so a final line with no
// trailing newline is not silently dropped.
func (m *Multiplexer) Flush() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.closed {
		return
	}
	for _, stream := range []Stream{Stdout, Stderr} {
		if len(m.partial[stream]) == 0 {
			continue
		}
		m.deliverLocked(stream, m.partial[stream])
		m.partial[stream] = nil
	}
}

// Close flushes residual output and closes every owned sink. Externally
// registered sinks are left untouched.
func (m *Multiplexer) Close() {
	m.mu.Lock()
	if m.closed {
		m.mu.Unlock()
		return
	}
	m.mu.Unlock()

	m.Flush()

	m.mu.Lock()
	defer m.mu.Unlock()
	for id, c := range m.owned {
		_ = c.Close()
		delete(m.sinks, id)
		delete(m.owned, id)
	}
	m.closed = true
}

func (m *Multiplexer) deliverLocked(stream Stream, line []byte) {
	for id, sink := range m.sinks {
		if err := sink.WriteLine(stream, line); err != nil {
			if m.log != nil {
				m.log.Warn("output sink failed, dropping it",
					zap.Uint64("sink", uint64(id)), zap.Error(err))
			}
			delete(m.sinks, id)
			if c, ok := m.owned[id]; ok {
				_ = c.Close()
				delete(m.owned, id)
			}
		}
	}
}

// splitLines returns every newline-terminated line in buf (newline
// included) and whatever remains after the last newline.
func splitLines(buf []byte) (lines [][]byte, rest []byte) {
	start := 0
	for i, b := range buf {
		if b == '\n' {
			line := make([]byte, i-start+1)
			copy(line, buf[start:i+1])
			lines = append(lines, line)
			start = i + 1
		}
	}
	if start < len(buf) {
		rest = append([]byte(nil), buf[start:]...)
	}
	return lines, rest
}

// fileSink writes lines directly to an append-mode file, unbuffered.
type fileSink struct {
	mu sync.Mutex
	f  *os.File
}

func (s *fileSink) WriteLine(_ Stream, line []byte) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, err := s.f.Write(line)
	return err
}
