package storage

import (
	"context"
	"database/sql"
	"fmt"
	"time"

	_ "modernc.org/sqlite" // SQLite driver registration.

	"codescanner/internal/model"
	"codescanner/migrations"
)

const timeLayout = "2006-01-02T15:04:05.000Z"

// SQLite implements Storage backed by a SQLite database.
type SQLite struct {
	db      *sql.DB
	version int64
}

// NewSQLite opens a SQLite database at dsn and runs pending migrations.
func NewSQLite(dsn string) (*SQLite, error) {
	db, err := sql.Open("sqlite", dsn)
	if err != nil {
		return nil, fmt.Errorf("open sqlite: %w", err)
	}
	// A second connection to ":memory:" would see an empty database.
	db.SetMaxOpenConns(1)

	if _, err := db.Exec("PRAGMA journal_mode=WAL"); err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("set WAL mode: %w", err)
	}

	version, err := migrations.Run(db)
	if err != nil {
		_ = db.Close()
		return nil, fmt.Errorf("run migrations: %w", err)
	}

	return &SQLite{db: db, version: version}, nil
}

// SchemaVersion returns the migration version the database is at.
func (s *SQLite) SchemaVersion() int64 {
	return s.version
}

// Close closes the underlying database connection.
func (s *SQLite) Close() error {
	return s.db.Close()
}

// RecordResult inserts a delivered result and populates its ID.
// A zero CreatedAt is set to the current time.
func (s *SQLite) RecordResult(ctx context.Context, rec *model.ScanRecord) error {
	if rec.CreatedAt.IsZero() {
		rec.CreatedAt = time.Now()
	}
	created := rec.CreatedAt.UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO scan_results (run_id, payload, kind, error_kind, detail, created_at)
		 VALUES (?, ?, ?, ?, ?, ?)`,
		rec.RunID, rec.Payload, string(rec.Kind), string(rec.ErrorKind), rec.Detail, created,
	)
	if err != nil {
		return fmt.Errorf("insert scan result: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	rec.ID = id
	rec.CreatedAt, _ = time.Parse(timeLayout, created)
	return nil
}

// ListRecent returns up to limit results, newest first.
func (s *SQLite) ListRecent(ctx context.Context, limit int) ([]model.ScanRecord, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, run_id, payload, kind, error_kind, detail, created_at
		 FROM scan_results ORDER BY id DESC LIMIT ?`, limit,
	)
	if err != nil {
		return nil, fmt.Errorf("query scan results: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var records []model.ScanRecord
	for rows.Next() {
		r, err := scanRecord(rows)
		if err != nil {
			return nil, err
		}
		records = append(records, r)
	}
	return records, rows.Err()
}

// CountResults returns the number of successful and failed results stored.
func (s *SQLite) CountResults(ctx context.Context) (int, int, error) {
	var succeeded, failed int
	err := s.db.QueryRowContext(ctx,
		`SELECT COALESCE(SUM(CASE WHEN error_kind = '' THEN 1 ELSE 0 END), 0),
		        COALESCE(SUM(CASE WHEN error_kind != '' THEN 1 ELSE 0 END), 0)
		 FROM scan_results`,
	).Scan(&succeeded, &failed)
	if err != nil {
		return 0, 0, fmt.Errorf("count scan results: %w", err)
	}
	return succeeded, failed, nil
}

// CreateFilter inserts a new filter and populates its ID and CreatedAt.
func (s *SQLite) CreateFilter(ctx context.Context, f *model.Filter) error {
	now := time.Now().UTC().Format(timeLayout)
	res, err := s.db.ExecContext(ctx,
		`INSERT INTO filters (chat_id, kind, value, created_at) VALUES (?, ?, ?, ?)`,
		f.ChatID, string(f.Kind), f.Value, now,
	)
	if err != nil {
		return fmt.Errorf("insert filter: %w", err)
	}
	id, err := res.LastInsertId()
	if err != nil {
		return fmt.Errorf("last insert id: %w", err)
	}
	f.ID = id
	f.CreatedAt, _ = time.Parse(timeLayout, now)
	return nil
}

// ListFilters returns all filters for the given chat.
func (s *SQLite) ListFilters(ctx context.Context, chatID int64) ([]model.Filter, error) {
	rows, err := s.db.QueryContext(ctx,
		`SELECT id, chat_id, kind, value, created_at FROM filters WHERE chat_id = ? ORDER BY id`, chatID,
	)
	if err != nil {
		return nil, fmt.Errorf("query filters: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var filters []model.Filter
	for rows.Next() {
		f, err := scanFilter(rows)
		if err != nil {
			return nil, err
		}
		filters = append(filters, f)
	}
	return filters, rows.Err()
}

// GetFilter returns a single filter by its ID.
func (s *SQLite) GetFilter(ctx context.Context, id int64) (*model.Filter, error) {
	row := s.db.QueryRowContext(ctx,
		`SELECT id, chat_id, kind, value, created_at FROM filters WHERE id = ?`, id,
	)
	f, err := scanFilter(row)
	if err != nil {
		return nil, err
	}
	return &f, nil
}

// DeleteFilter removes a filter by its ID.
func (s *SQLite) DeleteFilter(ctx context.Context, id int64) error {
	_, err := s.db.ExecContext(ctx, `DELETE FROM filters WHERE id = ?`, id)
	if err != nil {
		return fmt.Errorf("delete filter: %w", err)
	}
	return nil
}

type scannable interface {
	Scan(dest ...any) error
}

func scanRecord(row scannable) (model.ScanRecord, error) {
	var r model.ScanRecord
	var kind, errKind, created string
	err := row.Scan(&r.ID, &r.RunID, &r.Payload, &kind, &errKind, &r.Detail, &created)
	if err != nil {
		return r, fmt.Errorf("scan result row: %w", err)
	}
	r.Kind = model.CodeKind(kind)
	r.ErrorKind = model.ErrorKind(errKind)
	r.CreatedAt, _ = time.Parse(timeLayout, created)
	return r, nil
}

func scanFilter(row scannable) (model.Filter, error) {
	var f model.Filter
	var kindStr, createdStr string
	err := row.Scan(&f.ID, &f.ChatID, &kindStr, &f.Value, &createdStr)
	if err != nil {
		return f, fmt.Errorf("scan filter: %w", err)
	}
	f.Kind = model.FilterKind(kindStr)
	f.CreatedAt, _ = time.Parse(timeLayout, createdStr)
	return f, nil
}
