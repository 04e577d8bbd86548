package indexdb

import (
	"context"
	"database/sql"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"sync/atomic"
	"time"

	_ "modernc.org/sqlite"
)

// SQLiteIndex holds the display-name table and a per-frame summary index.
// Frame rows are written by a single background goroutine; callers never
// block on SQLite from the frame path.
type SQLiteIndex struct {
	db *sql.DB

	ch   chan FrameRow
	wg   sync.WaitGroup
	once sync.Once

	closed  atomic.Bool
	dropped atomic.Uint64
}

// FrameRow summarizes one processed frame.
type FrameRow struct {
	Frame           uint64
	Session         string
	RecordedAt      time.Time
	Action          string
	Kind            string
	CueCount        int
	SelectionSource string
	CameraFound     bool
	Error           string
}

func OpenSQLite(path string) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if err := initPragmas(db); err != nil {
		_ = db.Close()
		return nil, err
	}
	if err := initSchema(db); err != nil {
		_ = db.Close()
		return nil, err
	}

	s := &SQLiteIndex{
		db: db,
		ch: make(chan FrameRow, 4096),
	}
	s.wg.Add(1)
	go func() {
		defer s.wg.Done()
		s.loop()
	}()
	return s, nil
}

// OpenSQLiteReader opens an index for queries next to a running writer. It
// never takes the write lock on an initialized database, and RecordFrame on
// the result is a no-op.
func OpenSQLiteReader(path string) (*SQLiteIndex, error) {
	db, err := openDB(path)
	if err != nil {
		return nil, err
	}
	if _, err := db.Exec("PRAGMA busy_timeout=5000;"); err != nil {
		_ = db.Close()
		return nil, err
	}
	var n int
	if err := db.QueryRow(`SELECT COUNT(*) FROM sqlite_master WHERE type='table' AND name IN ('names','frames')`).Scan(&n); err != nil {
		_ = db.Close()
		return nil, err
	}
	if n < 2 {
		// Fresh file: nobody else is writing it yet.
		if err := initSchema(db); err != nil {
			_ = db.Close()
			return nil, err
		}
	}
	s := &SQLiteIndex{db: db}
	s.closed.Store(true)
	return s, nil
}

func openDB(path string) (*sql.DB, error) {
	if path == "" {
		return nil, fmt.Errorf("empty db path")
	}
	if err := os.MkdirAll(filepath.Dir(path), 0o755); err != nil {
		return nil, err
	}
	db, err := sql.Open("sqlite", path)
	if err != nil {
		return nil, err
	}
	db.SetMaxOpenConns(1)
	db.SetMaxIdleConns(1)
	db.SetConnMaxLifetime(0)
	return db, nil
}

func initPragmas(db *sql.DB) error {
	pragmas := []string{
		"PRAGMA journal_mode=WAL;",
		"PRAGMA synchronous=NORMAL;",
		"PRAGMA busy_timeout=5000;",
		"PRAGMA temp_store=MEMORY;",
	}
	for _, p := range pragmas {
		if _, err := db.Exec(p); err != nil {
			return err
		}
	}
	return nil
}

func initSchema(db *sql.DB) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS meta (
			key TEXT PRIMARY KEY,
			value TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS names (
			name TEXT PRIMARY KEY,
			id INTEGER NOT NULL,
			en TEXT NOT NULL,
			zh TEXT NOT NULL
		);`,
		`CREATE TABLE IF NOT EXISTS frames (
			seq INTEGER PRIMARY KEY AUTOINCREMENT,
			frame INTEGER NOT NULL,
			session TEXT NOT NULL,
			recorded_at TEXT NOT NULL,
			action TEXT NOT NULL,
			kind TEXT NOT NULL,
			cue_count INTEGER NOT NULL,
			selection_source TEXT NOT NULL,
			camera_found INTEGER NOT NULL,
			error TEXT
		);`,
		`CREATE INDEX IF NOT EXISTS idx_frames_action ON frames(action);`,
		`INSERT OR REPLACE INTO meta(key,value) VALUES('schema_version','1');`,
	}
	for _, s := range stmts {
		if _, err := db.Exec(s); err != nil {
			return err
		}
	}
	return nil
}

func (s *SQLiteIndex) Close() error {
	var err error
	s.once.Do(func() {
		s.closed.Store(true)
		if s.ch != nil {
			close(s.ch)
			s.wg.Wait()
		}
		err = s.db.Close()
	})
	return err
}

// RecordFrame enqueues a summary row. It drops the row when the writer falls
// behind; the frame log stays the source of truth.
func (s *SQLiteIndex) RecordFrame(r FrameRow) {
	if s == nil || s.closed.Load() {
		return
	}
	if r.RecordedAt.IsZero() {
		r.RecordedAt = time.Now()
	}
	select {
	case s.ch <- r:
	default:
		s.dropped.Add(1)
	}
}

func (s *SQLiteIndex) Dropped() uint64 { return s.dropped.Load() }

func (s *SQLiteIndex) loop() {
	ctx := context.Background()

	insertFrame, _ := s.db.Prepare(`INSERT INTO frames(frame,session,recorded_at,action,kind,cue_count,selection_source,camera_found,error) VALUES(?,?,?,?,?,?,?,?,?)`)
	defer func() {
		if insertFrame != nil {
			_ = insertFrame.Close()
		}
	}()

	var (
		tx            *sql.Tx
		opCount       int
		commitEvery   = 500
		commitMaxWait = 2 * time.Second
	)

	begin := func() {
		if tx != nil {
			return
		}
		txx, err := s.db.BeginTx(ctx, nil)
		if err != nil {
			time.Sleep(50 * time.Millisecond)
			return
		}
		tx = txx
		opCount = 0
	}
	commit := func() {
		if tx == nil {
			return
		}
		_ = tx.Commit()
		tx = nil
		opCount = 0
	}
	rollback := func() {
		if tx == nil {
			return
		}
		_ = tx.Rollback()
		tx = nil
		opCount = 0
	}

	// Frames can stop arriving at any point, so an open batch is committed
	// on the ticker rather than waiting for the next row.
	tick := time.NewTicker(commitMaxWait)
	defer tick.Stop()

	for {
		var r FrameRow
		select {
		case <-tick.C:
			commit()
			continue
		case row, ok := <-s.ch:
			if !ok {
				commit()
				return
			}
			r = row
		}

		begin()
		if tx == nil || insertFrame == nil {
			continue
		}
		var errText any
		if r.Error != "" {
			errText = r.Error
		}
		if _, err := tx.Stmt(insertFrame).Exec(
			int64(r.Frame),
			r.Session,
			r.RecordedAt.UTC().Format(time.RFC3339Nano),
			r.Action,
			r.Kind,
			r.CueCount,
			r.SelectionSource,
			boolInt(r.CameraFound),
			errText,
		); err != nil {
			rollback()
			continue
		}
		opCount++
		if opCount >= commitEvery {
			commit()
		}
	}
}

func boolInt(b bool) int {
	if b {
		return 1
	}
	return 0
}

// ActionCount is one row of FrameStats.
type ActionCount struct {
	Action   string
	Frames   int
	Cues     int
	Failures int
}

// FrameStats aggregates indexed frames per action, most frequent first.
func (s *SQLiteIndex) FrameStats(ctx context.Context) ([]ActionCount, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT action, COUNT(*), SUM(cue_count), SUM(CASE WHEN error IS NULL THEN 0 ELSE 1 END)
		FROM frames GROUP BY action ORDER BY COUNT(*) DESC, action ASC`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	var out []ActionCount
	for rows.Next() {
		var c ActionCount
		if err := rows.Scan(&c.Action, &c.Frames, &c.Cues, &c.Failures); err != nil {
			return nil, err
		}
		out = append(out, c)
	}
	return out, rows.Err()
}
