package main

import (
	"context"
	"fmt"
	"os"
	"strings"

	"go.uber.org/zap"

	"cuecast.ai/internal/names"
	"cuecast.ai/internal/persistence/indexdb"
)

// openFrameIndex opens the optional per-frame read model. It never affects
// cue output.
func openFrameIndex(path string, logger *zap.Logger) (*indexdb.SQLiteIndex, error) {
	backend := strings.ToLower(strings.TrimSpace(os.Getenv("CUECAST_INDEX_BACKEND")))
	if backend == "" {
		backend = "sqlite"
	}

	switch backend {
	case "none", "off", "disabled":
		return nil, nil
	case "sqlite":
		if strings.TrimSpace(path) == "" {
			return nil, nil
		}
		idx, err := indexdb.OpenSQLite(path)
		if err != nil {
			return nil, err
		}
		logger.Info("frame index enabled", zap.String("path", path))
		return idx, nil
	default:
		return nil, fmt.Errorf("unsupported CUECAST_INDEX_BACKEND: %s", backend)
	}
}

// loadNames builds the resolver from the JSON table, or from the SQLite copy
// when no JSON path is given. Failures leave an empty table: labels fall back
// to cleaned function ids.
func loadNames(ctx context.Context, jsonPath, dbPath, lang string, suffixes []string, logger *zap.Logger) (*names.Resolver, *names.Watcher) {
	r := names.NewResolver(nil, lang, suffixes)

	switch {
	case strings.TrimSpace(jsonPath) != "":
		t, err := names.LoadJSON(jsonPath)
		if err != nil {
			logger.Warn("name table not loaded", zap.String("path", jsonPath), zap.Error(err))
		} else {
			r.Swap(t)
		}
		w, err := names.NewWatcher(jsonPath, r, logger.Named("names"))
		if err != nil {
			logger.Warn("name table hot reload disabled", zap.Error(err))
			return r, nil
		}
		return r, w

	case strings.TrimSpace(dbPath) != "":
		db, err := indexdb.OpenSQLiteReader(dbPath)
		if err != nil {
			logger.Warn("name db not opened", zap.String("path", dbPath), zap.Error(err))
			return r, nil
		}
		defer db.Close()
		t, err := db.LoadNames(ctx)
		if err != nil {
			logger.Warn("name db not loaded", zap.String("path", dbPath), zap.Error(err))
			return r, nil
		}
		r.Swap(t)
	}
	return r, nil
}
