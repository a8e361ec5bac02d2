package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

// ErrNotFound indicates that the requested report was not found.
var ErrNotFound = errors.New("report not found")

const defaultListLimit = 30

// Report is a stored dividend sweep.
type Report struct {
	ID         int             `json:"id"`
	ReportDate time.Time       `json:"reportDate"`
	Data       json.RawMessage `json:"data"`
	CreatedAt  time.Time       `json:"createdAt"`
}

// Repository defines persistent storage for reports. One report is kept per
// date; saving again replaces it.
type Repository interface {
	Save(ctx context.Context, date time.Time, data json.RawMessage) error
	GetLatest(ctx context.Context) (*Report, error)
	GetByDate(ctx context.Context, date time.Time) (*Report, error)
	List(ctx context.Context, limit int) ([]Report, error)
}

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL report repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Save(ctx context.Context, date time.Time, data json.RawMessage) error {
	_, err := r.pool.Exec(ctx,
		`INSERT INTO sweep_reports (report_date, data)
		 VALUES ($1, $2::jsonb)
		 ON CONFLICT (report_date)
		 DO UPDATE SET data = $2::jsonb, created_at = NOW()`,
		date, data)
	if err != nil {
		return fmt.Errorf("saving report: %w", err)
	}
	return nil
}

func (r *PgRepository) GetLatest(ctx context.Context) (*Report, error) {
	var rep Report
	err := r.pool.QueryRow(ctx,
		`SELECT id, report_date, data, created_at
		 FROM sweep_reports
		 ORDER BY report_date DESC
		 LIMIT 1`).Scan(&rep.ID, &rep.ReportDate, &rep.Data, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting latest report: %w", err)
	}
	return &rep, nil
}

func (r *PgRepository) GetByDate(ctx context.Context, date time.Time) (*Report, error) {
	var rep Report
	err := r.pool.QueryRow(ctx,
		`SELECT id, report_date, data, created_at
		 FROM sweep_reports
		 WHERE report_date = $1`, date).Scan(&rep.ID, &rep.ReportDate, &rep.Data, &rep.CreatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("getting report by date: %w", err)
	}
	return &rep, nil
}

func (r *PgRepository) List(ctx context.Context, limit int) ([]Report, error) {
	if limit <= 0 {
		limit = defaultListLimit
	}

	rows, err := r.pool.Query(ctx,
		`SELECT id, report_date, data, created_at
		 FROM sweep_reports
		 ORDER BY report_date DESC
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing reports: %w", err)
	}
	defer rows.Close()

	var reports []Report
	for rows.Next() {
		var rep Report
		if err := rows.Scan(&rep.ID, &rep.ReportDate, &rep.Data, &rep.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning report: %w", err)
		}
		reports = append(reports, rep)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating reports: %w", err)
	}
	return reports, nil
}
