package indexdb

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"sort"

	"cuecast.ai/internal/names"
)

// ImportNames replaces the names table with t in one transaction.
func (s *SQLiteIndex) ImportNames(ctx context.Context, t names.Table) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return err
	}
	defer func() { _ = tx.Rollback() }()

	if _, err := tx.ExecContext(ctx, `DELETE FROM names`); err != nil {
		return err
	}
	stmt, err := tx.PrepareContext(ctx, `INSERT INTO names(name,id,en,zh) VALUES(?,?,?,?)`)
	if err != nil {
		return err
	}
	defer stmt.Close()

	keys := make([]string, 0, len(t))
	for k := range t {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	for _, k := range keys {
		e := t[k]
		if _, err := stmt.ExecContext(ctx, k, e.ID, e.EN, e.ZH); err != nil {
			return fmt.Errorf("insert %q: %w", k, err)
		}
	}
	return tx.Commit()
}

func (s *SQLiteIndex) LoadNames(ctx context.Context) (names.Table, error) {
	rows, err := s.db.QueryContext(ctx, `SELECT name,id,en,zh FROM names`)
	if err != nil {
		return nil, err
	}
	defer rows.Close()
	t := names.Table{}
	for rows.Next() {
		var (
			k string
			e names.Entry
		)
		if err := rows.Scan(&k, &e.ID, &e.EN, &e.ZH); err != nil {
			return nil, err
		}
		t[k] = e
	}
	return t, rows.Err()
}

// LookupName returns the stored entry for an exact key.
func (s *SQLiteIndex) LookupName(ctx context.Context, name string) (names.Entry, bool, error) {
	var e names.Entry
	err := s.db.QueryRowContext(ctx, `SELECT id,en,zh FROM names WHERE name=?`, name).Scan(&e.ID, &e.EN, &e.ZH)
	if errors.Is(err, sql.ErrNoRows) {
		return names.Entry{}, false, nil
	}
	if err != nil {
		return names.Entry{}, false, err
	}
	return e, true, nil
}
