package recorder

import (
	"context"
	"encoding/binary"
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"regexp"
	"sync"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"

	"github.com/signalsfoundry/orrery/core"
)

const (
	// FormatVersion is written to the manifest.
	FormatVersion = 1

	framesFile   = "frames.bin.zst"
	eventsFile   = "events.jsonl.sz"
	manifestFile = "manifest.json"

	// frameRecordSize is seq + captured + six float64 fields.
	frameRecordSize = 8 + 8 + 6*8
)

var sessionCleaner = regexp.MustCompile(`[^a-zA-Z0-9_-]+`)

// Manifest describes a capture directory.
type Manifest struct {
	Version    int     `json:"version"`
	CreatedAt  string  `json:"created_at"`
	Variant    string  `json:"variant"`
	Step       float64 `json:"step"`
	FramesPath string  `json:"frames_path"`
	EventsPath string  `json:"events_path"`
}

// Writer captures frames and input events of one session to disk. Frames go
// to a zstd stream of fixed-size records; events go to a snappy stream of
// JSON lines.
type Writer struct {
	mu  sync.Mutex
	dir string
	now func() time.Time

	frameFile   *os.File
	frameStream *zstd.Encoder
	eventFile   *os.File
	eventStream *snappy.Writer

	frames uint64
	closed bool
}

// NewWriter creates a capture directory below root and opens the
// compressed sinks.
func NewWriter(root, session string, manifest Manifest, clock func() time.Time) (*Writer, error) {
	if root == "" {
		return nil, fmt.Errorf("record root must be provided")
	}
	if clock == nil {
		clock = time.Now
	}

	cleaned := sessionCleaner.ReplaceAllString(session, "")
	if cleaned == "" {
		cleaned = "session"
	}
	created := clock().UTC()
	dir := filepath.Join(root, fmt.Sprintf("%s-%s", cleaned, created.Format("20060102T150405Z")))
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return nil, fmt.Errorf("create record dir: %w", err)
	}

	manifest.Version = FormatVersion
	manifest.CreatedAt = created.Format(time.RFC3339Nano)
	manifest.FramesPath = framesFile
	manifest.EventsPath = eventsFile
	data, err := json.MarshalIndent(manifest, "", "  ")
	if err != nil {
		return nil, err
	}
	if err := os.WriteFile(filepath.Join(dir, manifestFile), data, 0o644); err != nil {
		return nil, fmt.Errorf("write manifest: %w", err)
	}

	frameFile, err := os.Create(filepath.Join(dir, framesFile))
	if err != nil {
		return nil, err
	}
	frameStream, err := zstd.NewWriter(frameFile)
	if err != nil {
		frameFile.Close()
		return nil, err
	}
	eventFile, err := os.Create(filepath.Join(dir, eventsFile))
	if err != nil {
		frameStream.Close()
		frameFile.Close()
		return nil, err
	}

	return &Writer{
		dir:         dir,
		now:         clock,
		frameFile:   frameFile,
		frameStream: frameStream,
		eventFile:   eventFile,
		eventStream: snappy.NewBufferedWriter(eventFile),
	}, nil
}

// Directory exposes the capture directory.
func (w *Writer) Directory() string {
	if w == nil {
		return ""
	}
	return w.dir
}

// Frames returns how many frames have been written.
func (w *Writer) Frames() uint64 {
	w.mu.Lock()
	defer w.mu.Unlock()
	return w.frames
}

// ConsumeFrame appends one frame record. It lets the writer act as a frame
// sink.
func (w *Writer) ConsumeFrame(_ context.Context, frame core.Frame) error {
	captured := w.now().UTC()

	var rec [frameRecordSize]byte
	binary.LittleEndian.PutUint64(rec[0:8], frame.Seq)
	binary.LittleEndian.PutUint64(rec[8:16], uint64(captured.UnixNano()))
	for i, v := range []float64{
		frame.Progress,
		frame.Sample.Position.X,
		frame.Sample.Position.Y,
		frame.Sample.Tangent.X,
		frame.Sample.Tangent.Y,
		frame.EarthSpin,
	} {
		off := 16 + i*8
		binary.LittleEndian.PutUint64(rec[off:off+8], math.Float64bits(v))
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("recorder closed")
	}
	if _, err := w.frameStream.Write(rec[:]); err != nil {
		return err
	}
	w.frames++
	return nil
}

// Event is one recorded input event.
type Event struct {
	Seq        uint64          `json:"seq"`
	CapturedAt string          `json:"captured_at"`
	Kind       string          `json:"kind"`
	Payload    json.RawMessage `json:"payload,omitempty"`
}

// AppendEvent writes an input event observed before frame seq.
func (w *Writer) AppendEvent(seq uint64, kind string, payload any) error {
	var raw json.RawMessage
	if payload != nil {
		data, err := json.Marshal(payload)
		if err != nil {
			return fmt.Errorf("encode %s payload: %w", kind, err)
		}
		raw = data
	}
	line, err := json.Marshal(Event{
		Seq:        seq,
		CapturedAt: w.now().UTC().Format(time.RFC3339Nano),
		Kind:       kind,
		Payload:    raw,
	})
	if err != nil {
		return err
	}

	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return fmt.Errorf("recorder closed")
	}
	if _, err := w.eventStream.Write(append(line, '\n')); err != nil {
		return err
	}
	return w.eventStream.Flush()
}

// Close flushes both streams and releases file handles, surfacing the first
// failure. It is safe to call more than once.
func (w *Writer) Close() error {
	if w == nil {
		return nil
	}
	w.mu.Lock()
	defer w.mu.Unlock()
	if w.closed {
		return nil
	}
	w.closed = true

	var firstErr error
	keep := func(err error) {
		if err != nil && firstErr == nil {
			firstErr = err
		}
	}
	keep(w.frameStream.Close())
	keep(w.frameFile.Close())
	keep(w.eventStream.Close())
	keep(w.eventFile.Close())
	return firstErr
}
