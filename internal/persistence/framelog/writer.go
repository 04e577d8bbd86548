// Package framelog records input frames as hourly zstd-compressed JSONL files
// and reads them back for replay.
package framelog

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/klauspost/compress/zstd"

	"cuecast.ai/internal/protocol"
)

const Prefix = "frames"

// Recorder appends every input frame to the current hour's file. Each frame is
// written as its own zstd frame, so everything recorded so far is readable
// while the server runs and a crash loses at most the frame being written.
type Recorder struct {
	dir string
	now func() time.Time
	enc *zstd.Encoder

	mu      sync.Mutex
	curHour string
	f       *os.File
	line    []byte
}

func NewRecorder(dir string) *Recorder {
	// A nil writer is fine: only EncodeAll is used.
	enc, _ := zstd.NewWriter(nil, zstd.WithEncoderLevel(zstd.SpeedFastest), zstd.WithEncoderConcurrency(1))
	return &Recorder{dir: dir, now: time.Now, enc: enc}
}

func (r *Recorder) WriteFrame(f protocol.FrameMsg) error {
	b, err := json.Marshal(f)
	if err != nil {
		return err
	}
	b = append(b, '\n')

	r.mu.Lock()
	defer r.mu.Unlock()
	hour := r.now().UTC().Format("2006-01-02-15")
	if hour != r.curHour {
		if err := r.rotateLocked(hour); err != nil {
			return err
		}
	}
	r.line = r.enc.EncodeAll(b, r.line[:0])
	_, err = r.f.Write(r.line)
	return err
}

func (r *Recorder) Close() error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.closeLocked()
}

func (r *Recorder) rotateLocked(hour string) error {
	if err := r.closeLocked(); err != nil {
		return err
	}
	if err := os.MkdirAll(r.dir, 0o755); err != nil {
		return err
	}
	path := filepath.Join(r.dir, fmt.Sprintf("%s-%s.jsonl.zst", Prefix, hour))
	f, err := os.OpenFile(path, os.O_CREATE|os.O_WRONLY|os.O_APPEND, 0o644)
	if err != nil {
		return err
	}
	r.f = f
	r.curHour = hour
	return nil
}

func (r *Recorder) closeLocked() error {
	r.curHour = ""
	if r.f == nil {
		return nil
	}
	err := r.f.Close()
	r.f = nil
	return err
}
