package report

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository implements Repository on an embedded SQLite database.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates the sweep_reports table if needed.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	_, err := db.ExecContext(ctx, `CREATE TABLE IF NOT EXISTS sweep_reports (
        id INTEGER PRIMARY KEY AUTOINCREMENT,
        report_date TEXT NOT NULL UNIQUE,
        data TEXT NOT NULL,
        created_at INTEGER NOT NULL
    );`)
	if err != nil {
		return nil, fmt.Errorf("creating reports schema: %w", err)
	}
	return &SQLiteRepository{db: db, now: time.Now}, nil
}

func (r *SQLiteRepository) Save(ctx context.Context, date time.Time, data json.RawMessage) error {
	_, err := r.db.ExecContext(ctx,
		`INSERT INTO sweep_reports (report_date, data, created_at) VALUES (?, ?, ?)
		 ON CONFLICT (report_date) DO UPDATE SET data = excluded.data, created_at = excluded.created_at`,
		date.UTC().Format(time.DateOnly), string(data), r.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

func (r *SQLiteRepository) GetLatest(ctx context.Context) (*Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, report_date, data, created_at FROM sweep_reports ORDER BY report_date DESC LIMIT 1`)
	rep, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("getting latest report: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) GetByDate(ctx context.Context, date time.Time) (*Report, error) {
	row := r.db.QueryRowContext(ctx,
		`SELECT id, report_date, data, created_at FROM sweep_reports WHERE report_date = ?`,
		date.UTC().Format(time.DateOnly))
	rep, err := scanReport(row)
	if err != nil {
		return nil, fmt.Errorf("getting report by date: %w", err)
	}
	return rep, nil
}

func (r *SQLiteRepository) List(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}
	rows, err := r.db.QueryContext(ctx,
		`SELECT id, report_date, data, created_at FROM sweep_reports ORDER BY report_date DESC LIMIT ?`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		rep, err := scanReport(rows)
		if err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		reports = append(reports, *rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}

type scanner interface {
	Scan(dest ...any) error
}

func scanReport(s scanner) (*Report, error) {
	var (
		rep     Report
		date    string
		data    string
		created int64
	)
	if err := s.Scan(&rep.ID, &date, &data, &created); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, err
	}
	d, err := time.Parse(time.DateOnly, date)
	if err != nil {
		return nil, fmt.Errorf("parsing report date %q: %w", date, err)
	}
	rep.ReportDate = d
	rep.Data = json.RawMessage(data)
	rep.CreatedAt = time.Unix(0, created).UTC()
	return &rep, nil
}
