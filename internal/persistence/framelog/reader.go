package framelog

import (
	"bufio"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"

	"github.com/klauspost/compress/zstd"

	"cuecast.ai/internal/protocol"
)

// Files lists recordings under path in chronological order. A file path is
// returned as is.
func Files(path string) ([]string, error) {
	st, err := os.Stat(path)
	if err != nil {
		return nil, err
	}
	if !st.IsDir() {
		return []string{path}, nil
	}
	matches, err := filepath.Glob(filepath.Join(path, Prefix+"-*.jsonl.zst"))
	if err != nil {
		return nil, err
	}
	// The hour stamp sorts lexically.
	sort.Strings(matches)
	return matches, nil
}

// ReadFrames calls fn for every frame in the recordings under path, in order.
// Returning an error from fn stops the walk.
func ReadFrames(path string, fn func(protocol.FrameMsg) error) error {
	files, err := Files(path)
	if err != nil {
		return err
	}
	for _, f := range files {
		if err := readFile(f, fn); err != nil {
			return fmt.Errorf("%s: %w", filepath.Base(f), err)
		}
	}
	return nil
}

func readFile(path string, fn func(protocol.FrameMsg) error) error {
	f, err := os.Open(path)
	if err != nil {
		return err
	}
	defer f.Close()

	var r io.Reader = f
	if strings.HasSuffix(path, ".zst") {
		dec, err := zstd.NewReader(f)
		if err != nil {
			return err
		}
		defer dec.Close()
		r = dec
	}

	sc := bufio.NewScanner(r)
	sc.Buffer(make([]byte, 0, 64*1024), 16*1024*1024)
	line := 0
	for sc.Scan() {
		line++
		b := sc.Bytes()
		if len(strings.TrimSpace(string(b))) == 0 {
			continue
		}
		var msg protocol.FrameMsg
		if err := json.Unmarshal(b, &msg); err != nil {
			return fmt.Errorf("line %d: %w", line, err)
		}
		if err := fn(msg); err != nil {
			return err
		}
	}
	// A torn last record from a crashed writer ends the file.
	if err := sc.Err(); err != nil && !errors.Is(err, io.ErrUnexpectedEOF) {
		return err
	}
	return nil
}
