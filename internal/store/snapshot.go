package store

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strconv"

	"github.com/roach88/tally/internal/model"
)

const (
	metaLastUpdated = "last_updated"
	metaVersion     = "version"
)

// Load reads the stored dataset. It returns model.ErrNoDataset if nothing
// has been saved yet.
func (s *Store) Load(ctx context.Context) (model.Dataset, error) {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return model.Dataset{}, fmt.Errorf("begin load: %w", err)
	}
	defer tx.Rollback()

	var d model.Dataset
	version, err := readMeta(ctx, tx, metaVersion)
	if errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, model.ErrNoDataset
	}
	if err != nil {
		return model.Dataset{}, err
	}
	d.Version = version

	updated, err := readMeta(ctx, tx, metaLastUpdated)
	if err != nil && !errors.Is(err, sql.ErrNoRows) {
		return model.Dataset{}, err
	}
	if updated != "" {
		if d.LastUpdated, err = strconv.ParseInt(updated, 10, 64); err != nil {
			return model.Dataset{}, fmt.Errorf("parse %s: %w", metaLastUpdated, err)
		}
	}

	if d.Types, err = loadTypes(ctx, tx); err != nil {
		return model.Dataset{}, err
	}
	if d.Subjects, err = loadSubjects(ctx, tx); err != nil {
		return model.Dataset{}, err
	}
	if d.TimeEntries, err = loadEntries(ctx, tx); err != nil {
		return model.Dataset{}, err
	}
	return d, nil
}

// Save replaces the stored dataset with d in one transaction.
func (s *Store) Save(ctx context.Context, d model.Dataset) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin save: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}

	for i, t := range d.Types {
		_, err := tx.ExecContext(ctx,
			`INSERT INTO types (id, position, name, icon) VALUES (?, ?, ?, ?)`,
			t.ID, i, t.Name, t.Icon)
		if err != nil {
			return fmt.Errorf("insert type %s: %w", t.ID, err)
		}
	}

	for i, sub := range d.Subjects {
		var start sql.NullInt64
		if sub.StartTime != nil {
			start = sql.NullInt64{Int64: *sub.StartTime, Valid: true}
		}
		_, err := tx.ExecContext(ctx, `
			INSERT INTO subjects (id, position, name, type_id, icon, is_active, total_time, start_time)
			VALUES (?, ?, ?, ?, ?, ?, ?, ?)`,
			sub.ID, i, sub.Name, sub.TypeID, sub.Icon, boolToInt(sub.IsActive), sub.TotalTime, start)
		if err != nil {
			return fmt.Errorf("insert subject %s: %w", sub.ID, err)
		}
	}

	stmt, err := tx.PrepareContext(ctx, `
		INSERT INTO time_entries (seq, id, subject_id, start_time, end_time, duration, date)
		VALUES (?, ?, ?, ?, ?, ?, ?)`)
	if err != nil {
		return fmt.Errorf("prepare entry insert: %w", err)
	}
	defer stmt.Close()
	for i, e := range d.TimeEntries {
		if _, err := stmt.ExecContext(ctx, i+1, e.ID, e.SubjectID, e.StartTime, e.EndTime, e.Duration, e.Date); err != nil {
			return fmt.Errorf("insert time entry %s: %w", e.ID, err)
		}
	}

	if err := writeMeta(ctx, tx, metaVersion, d.Version); err != nil {
		return err
	}
	if err := writeMeta(ctx, tx, metaLastUpdated, strconv.FormatInt(d.LastUpdated, 10)); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit save: %w", err)
	}
	return nil
}

// Clear removes the stored dataset. The next Load returns
// model.ErrNoDataset.
func (s *Store) Clear(ctx context.Context) error {
	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("begin clear: %w", err)
	}
	defer tx.Rollback()

	if err := clearTables(ctx, tx); err != nil {
		return err
	}
	if _, err := tx.ExecContext(ctx, `DELETE FROM meta`); err != nil {
		return fmt.Errorf("clear meta: %w", err)
	}
	if err := tx.Commit(); err != nil {
		return fmt.Errorf("commit clear: %w", err)
	}
	return nil
}

func clearTables(ctx context.Context, tx *sql.Tx) error {
	for _, table := range []string{"time_entries", "subjects", "types"} {
		if _, err := tx.ExecContext(ctx, "DELETE FROM "+table); err != nil {
			return fmt.Errorf("clear %s: %w", table, err)
		}
	}
	return nil
}

func readMeta(ctx context.Context, tx *sql.Tx, key string) (string, error) {
	var value string
	err := tx.QueryRowContext(ctx, `SELECT value FROM meta WHERE key = ?`, key).Scan(&value)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return "", err
		}
		return "", fmt.Errorf("read meta %s: %w", key, err)
	}
	return value, nil
}

func writeMeta(ctx context.Context, tx *sql.Tx, key, value string) error {
	_, err := tx.ExecContext(ctx, `
		INSERT INTO meta (key, value) VALUES (?, ?)
		ON CONFLICT(key) DO UPDATE SET value = excluded.value`, key, value)
	if err != nil {
		return fmt.Errorf("write meta %s: %w", key, err)
	}
	return nil
}

func loadTypes(ctx context.Context, tx *sql.Tx) ([]model.Type, error) {
	rows, err := tx.QueryContext(ctx, `SELECT id, name, icon FROM types ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query types: %w", err)
	}
	defer rows.Close()

	out := []model.Type{}
	for rows.Next() {
		var t model.Type
		if err := rows.Scan(&t.ID, &t.Name, &t.Icon); err != nil {
			return nil, fmt.Errorf("scan type: %w", err)
		}
		out = append(out, t)
	}
	return out, rows.Err()
}

func loadSubjects(ctx context.Context, tx *sql.Tx) ([]model.Subject, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, name, type_id, icon, is_active, total_time, start_time
		FROM subjects ORDER BY position ASC, id ASC`)
	if err != nil {
		return nil, fmt.Errorf("query subjects: %w", err)
	}
	defer rows.Close()

	out := []model.Subject{}
	for rows.Next() {
		var (
			s      model.Subject
			active int
			start  sql.NullInt64
		)
		if err := rows.Scan(&s.ID, &s.Name, &s.TypeID, &s.Icon, &active, &s.TotalTime, &start); err != nil {
			return nil, fmt.Errorf("scan subject: %w", err)
		}
		s.IsActive = active != 0
		if start.Valid {
			v := start.Int64
			s.StartTime = &v
		}
		out = append(out, s)
	}
	return out, rows.Err()
}

func loadEntries(ctx context.Context, tx *sql.Tx) ([]model.TimeEntry, error) {
	rows, err := tx.QueryContext(ctx, `
		SELECT id, subject_id, start_time, end_time, duration, date
		FROM time_entries ORDER BY seq ASC`)
	if err != nil {
		return nil, fmt.Errorf("query time entries: %w", err)
	}
	defer rows.Close()

	out := []model.TimeEntry{}
	for rows.Next() {
		var e model.TimeEntry
		if err := rows.Scan(&e.ID, &e.SubjectID, &e.StartTime, &e.EndTime, &e.Duration, &e.Date); err != nil {
			return nil, fmt.Errorf("scan time entry: %w", err)
		}
		out = append(out, e)
	}
	return out, rows.Err()
}

func boolToInt(b bool) int {
	if b {
		return 1
	}
	return 0
}
