package recorder

import (
	"bufio"
	"encoding/binary"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"math"
	"os"
	"path/filepath"
	"time"

	"github.com/golang/snappy"
	"github.com/klauspost/compress/zstd"
)

// FrameRecord is a decoded frame from a capture.
type FrameRecord struct {
	Seq        uint64
	CapturedAt time.Time
	Progress   float64
	X, Y       float64
	TX, TY     float64
	EarthSpin  float64
}

// ReadManifest loads manifest.json from a capture directory.
func ReadManifest(dir string) (Manifest, error) {
	data, err := os.ReadFile(filepath.Join(dir, manifestFile))
	if err != nil {
		return Manifest{}, err
	}
	var m Manifest
	if err := json.Unmarshal(data, &m); err != nil {
		return Manifest{}, fmt.Errorf("decode manifest: %w", err)
	}
	if m.Version != FormatVersion {
		return Manifest{}, fmt.Errorf("unsupported capture version %d", m.Version)
	}
	return m, nil
}

// ReadFrames decodes every frame of a capture directory.
func ReadFrames(dir string) ([]FrameRecord, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, m.FramesPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	dec, err := zstd.NewReader(file)
	if err != nil {
		return nil, err
	}
	defer dec.Close()

	var frames []FrameRecord
	var rec [frameRecordSize]byte
	for {
		if _, err := io.ReadFull(dec, rec[:]); err != nil {
			if errors.Is(err, io.EOF) {
				return frames, nil
			}
			return frames, fmt.Errorf("read frame %d: %w", len(frames), err)
		}
		f := FrameRecord{
			Seq:        binary.LittleEndian.Uint64(rec[0:8]),
			CapturedAt: time.Unix(0, int64(binary.LittleEndian.Uint64(rec[8:16]))).UTC(),
		}
		fields := []*float64{&f.Progress, &f.X, &f.Y, &f.TX, &f.TY, &f.EarthSpin}
		for i, dst := range fields {
			off := 16 + i*8
			*dst = math.Float64frombits(binary.LittleEndian.Uint64(rec[off : off+8]))
		}
		frames = append(frames, f)
	}
}

// ReadEvents decodes every input event of a capture directory.
func ReadEvents(dir string) ([]Event, error) {
	m, err := ReadManifest(dir)
	if err != nil {
		return nil, err
	}
	file, err := os.Open(filepath.Join(dir, m.EventsPath))
	if err != nil {
		return nil, err
	}
	defer file.Close()

	var events []Event
	scanner := bufio.NewScanner(snappy.NewReader(file))
	for scanner.Scan() {
		var ev Event
		if err := json.Unmarshal(scanner.Bytes(), &ev); err != nil {
			return events, fmt.Errorf("decode event %d: %w", len(events), err)
		}
		events = append(events, ev)
	}
	return events, scanner.Err()
}
