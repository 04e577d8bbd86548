// Package overlayfile publishes overlay documents for a file-polling renderer.
package overlayfile

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"

	"cuecast.ai/internal/protocol"
)

// Publisher replaces the published file atomically, so a reader sees either
// the previous document or the new one and never a partial write.
type Publisher struct {
	path string
	mu   sync.Mutex
}

func NewPublisher(path string) *Publisher {
	return &Publisher{path: path}
}

func (p *Publisher) Path() string { return p.path }

func (p *Publisher) Publish(doc protocol.OverlayDoc) error {
	if doc.Cues == nil {
		doc.Cues = []protocol.CueMsg{}
	}
	if doc.Debug == nil {
		doc.Debug = map[string]any{}
	}
	b, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return fmt.Errorf("marshal overlay: %w", err)
	}
	p.mu.Lock()
	defer p.mu.Unlock()
	return writeFileAtomic(p.path, b)
}

func writeFileAtomic(path string, b []byte) error {
	if path == "" {
		return nil
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return err
	}

	tmp := path + ".tmp"
	f, err := os.OpenFile(tmp, os.O_CREATE|os.O_WRONLY|os.O_TRUNC, 0o644)
	if err != nil {
		return err
	}
	if _, err := f.Write(b); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Sync(); err != nil {
		_ = f.Close()
		return err
	}
	if err := f.Close(); err != nil {
		return err
	}
	return os.Rename(tmp, path)
}

// Read loads a published document.
func Read(path string) (protocol.OverlayDoc, error) {
	var doc protocol.OverlayDoc
	b, err := os.ReadFile(path)
	if err != nil {
		return doc, err
	}
	if err := json.Unmarshal(b, &doc); err != nil {
		return doc, fmt.Errorf("parse overlay: %w", err)
	}
	return doc, nil
}
