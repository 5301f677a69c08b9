package log

import (
	"bufio"
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"scrounge.ai/internal/sim/world"
)

const hourLayout = "2006-01-02-15"

// stream is one event kind's current hourly file.
type stream struct {
	hour string
	f    *os.File
	enc  *zstd.Encoder
	w    *bufio.Writer
}

func openStream(path, hour string) (*stream, error) {
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return nil, err
	}
	enc, err := zstd.NewWriter(f, zstd.WithEncoderLevel(zstd.SpeedFastest))
	if err != nil {
		_ = f.Close()
		return nil, err
	}
	return &stream{hour: hour, f: f, enc: enc, w: bufio.NewWriterSize(enc, 32*1024)}, nil
}

func (s *stream) close() error {
	_ = s.w.Flush()
	err := s.enc.Close()
	if cerr := s.f.Close(); err == nil {
		err = cerr
	}
	return err
}

// EventLogger writes engine events as zstd JSONL, one directory per event
// kind and one file per UTC hour: events/<kind>/<YYYY-MM-DD-HH>.jsonl.zst.
// Every entry is flushed through the encoder so a crash loses at most the
// current zstd block.
type EventLogger struct {
	dir string
	now func() time.Time

	mu      sync.Mutex
	streams map[string]*stream
}

func NewEventLogger(dataDir string) *EventLogger {
	return &EventLogger{
		dir:     filepath.Join(dataDir, "events"),
		now:     time.Now,
		streams: map[string]*stream{},
	}
}

// StreamName maps an event kind to its directory name.
func StreamName(kind string) string {
	var b strings.Builder
	for _, r := range strings.ToLower(kind) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
		default:
			b.WriteByte('_')
		}
	}
	if b.Len() == 0 {
		return "event"
	}
	return b.String()
}

func (l *EventLogger) WriteEvent(e world.EventLogEntry) error {
	b, err := json.Marshal(e)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	l.mu.Lock()
	defer l.mu.Unlock()
	hour := l.now().UTC().Format(hourLayout)
	name := StreamName(e.Kind)
	s := l.streams[name]
	if s == nil || s.hour != hour {
		// Streams of other kinds left on an older hour are closed too.
		if err := l.closeBeforeLocked(hour); err != nil {
			return err
		}
		s, err = openStream(filepath.Join(l.dir, name, hour+".jsonl.zst"), hour)
		if err != nil {
			return err
		}
		l.streams[name] = s
	}
	if _, err := s.w.Write(b); err != nil {
		return err
	}
	if err := s.w.Flush(); err != nil {
		return err
	}
	return s.enc.Flush()
}

func (l *EventLogger) closeBeforeLocked(hour string) error {
	var first error
	for name, s := range l.streams {
		if s.hour == hour {
			continue
		}
		if err := s.close(); err != nil && first == nil {
			first = err
		}
		delete(l.streams, name)
	}
	return first
}

func (l *EventLogger) Close() error {
	l.mu.Lock()
	defer l.mu.Unlock()
	names := make([]string, 0, len(l.streams))
	for name := range l.streams {
		names = append(names, name)
	}
	sort.Strings(names)
	var first error
	for _, name := range names {
		if err := l.streams[name].close(); err != nil && first == nil {
			first = err
		}
		delete(l.streams, name)
	}
	return first
}

// Tee fans one event out to several loggers. Every logger is written; the
// first error is returned.
type Tee []world.EventLogger

func (t Tee) WriteEvent(v world.EventLogEntry) error {
	var first error
	for _, l := range t {
		if l == nil {
			continue
		}
		if err := l.WriteEvent(v); err != nil && first == nil {
			first = err
		}
	}
	return first
}
