package names

import (
	"context"
	"fmt"
	"path/filepath"
	"time"

	"github.com/fsnotify/fsnotify"
	"go.uber.org/zap"
)

const defaultDebounce = 250 * time.Millisecond

// Watcher reloads a JSON name table into a Resolver whenever the file
// changes. The parent directory is watched so atomic replaces are seen.
type Watcher struct {
	path     string
	resolver *Resolver
	log      *zap.Logger
	debounce time.Duration
	fw       *fsnotify.Watcher

	// reloaded is signalled after every reload attempt; tests read it.
	reloaded chan error
}

func NewWatcher(path string, r *Resolver, log *zap.Logger) (*Watcher, error) {
	fw, err := fsnotify.NewWatcher()
	if err != nil {
		return nil, fmt.Errorf("names watcher: %w", err)
	}
	abs, err := filepath.Abs(path)
	if err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("names watcher: %w", err)
	}
	if err := fw.Add(filepath.Dir(abs)); err != nil {
		_ = fw.Close()
		return nil, fmt.Errorf("names watcher: watch %s: %w", filepath.Dir(abs), err)
	}
	if log == nil {
		log = zap.NewNop()
	}
	return &Watcher{
		path:     abs,
		resolver: r,
		log:      log,
		debounce: defaultDebounce,
		fw:       fw,
		reloaded: make(chan error, 1),
	}, nil
}

// Run blocks until ctx is done, then closes the underlying watcher.
func (w *Watcher) Run(ctx context.Context) error {
	defer w.fw.Close()

	var timer *time.Timer
	var fire <-chan time.Time
	defer func() {
		if timer != nil {
			timer.Stop()
		}
	}()

	for {
		select {
		case <-ctx.Done():
			return nil
		case ev, ok := <-w.fw.Events:
			if !ok {
				return nil
			}
			if filepath.Clean(ev.Name) != w.path {
				continue
			}
			if !ev.Has(fsnotify.Write) && !ev.Has(fsnotify.Create) && !ev.Has(fsnotify.Rename) {
				continue
			}
			if timer == nil {
				timer = time.NewTimer(w.debounce)
			} else {
				timer.Reset(w.debounce)
			}
			fire = timer.C
		case err, ok := <-w.fw.Errors:
			if !ok {
				return nil
			}
			w.log.Warn("names watcher error", zap.Error(err))
		case <-fire:
			fire = nil
			w.reload()
		}
	}
}

func (w *Watcher) reload() {
	t, err := LoadJSON(w.path)
	if err != nil {
		// Keep serving the previous table.
		w.log.Warn("names reload failed", zap.String("path", w.path), zap.Error(err))
	} else {
		w.resolver.Swap(t)
		w.log.Info("names reloaded", zap.String("path", w.path), zap.Int("entries", len(t)))
	}
	select {
	case w.reloaded <- err:
	default:
	}
}
