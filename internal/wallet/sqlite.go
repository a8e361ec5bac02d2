package wallet

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"
)

// SQLiteRepository implements Repository on an embedded SQLite database.
// anchor_at holds Unix seconds and created_at Unix nanoseconds.
type SQLiteRepository struct {
	db  *sql.DB
	now func() time.Time
}

// NewSQLiteRepository creates the wallets table if needed.
func NewSQLiteRepository(ctx context.Context, db *sql.DB) (*SQLiteRepository, error) {
	r := &SQLiteRepository{db: db, now: time.Now}
	if err := r.init(ctx); err != nil {
		return nil, err
	}
	return r, nil
}

func (r *SQLiteRepository) init(ctx context.Context) error {
	stmts := []string{
		`CREATE TABLE IF NOT EXISTS wallets (
            user_id INTEGER NOT NULL,
            address TEXT NOT NULL,
            anchor_status TEXT NOT NULL DEFAULT 'pending',
            anchor_at INTEGER,
            created_at INTEGER NOT NULL,
            PRIMARY KEY (user_id, address)
        );`,
		`CREATE INDEX IF NOT EXISTS wallets_pending_idx ON wallets (anchor_status, created_at);`,
	}
	for _, stmt := range stmts {
		if _, err := r.db.ExecContext(ctx, stmt); err != nil {
			return fmt.Errorf("creating wallets schema: %w", err)
		}
	}
	return nil
}

func (r *SQLiteRepository) Put(ctx context.Context, userID int64, address string, anchor Anchor) error {
	if !anchor.valid() {
		return fmt.Errorf("invalid anchor %+v", anchor)
	}
	const stmt = `INSERT OR IGNORE INTO wallets(user_id, address, anchor_status, anchor_at, created_at) VALUES (?, ?, ?, ?, ?)`
	res, err := r.db.ExecContext(ctx, stmt, userID, address, string(anchor.Status), unixOrNull(anchor.At), r.now().UTC().UnixNano())
	if err != nil {
		return fmt.Errorf("saving wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("saving wallet: %w", err)
	}
	if n == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *SQLiteRepository) ListWallets(ctx context.Context, userID int64) ([]Registration, error) {
	const query = `SELECT user_id, address, anchor_status, anchor_at, created_at FROM wallets WHERE user_id = ? ORDER BY created_at, address`
	rows, err := r.db.QueryContext(ctx, query, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	return scanRegistrations(rows)
}

func (r *SQLiteRepository) Remove(ctx context.Context, userID int64, address string) error {
	res, err := r.db.ExecContext(ctx, `DELETE FROM wallets WHERE user_id = ? AND address = ?`, userID, address)
	if err != nil {
		return fmt.Errorf("removing wallet: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return fmt.Errorf("removing wallet: %w", err)
	}
	if n == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *SQLiteRepository) GetAnchor(ctx context.Context, userID int64, address string) (Anchor, error) {
	var status string
	var at sql.NullInt64
	err := r.db.QueryRowContext(ctx,
		`SELECT anchor_status, anchor_at FROM wallets WHERE user_id = ? AND address = ?`,
		userID, address).Scan(&status, &at)
	if errors.Is(err, sql.ErrNoRows) {
		return Anchor{}, ErrNotFound
	}
	if err != nil {
		return Anchor{}, fmt.Errorf("getting anchor: %w", err)
	}
	return Anchor{Status: AnchorStatus(status), At: timeOrNil(at)}, nil
}

func (r *SQLiteRepository) SetAnchor(ctx context.Context, userID int64, address string, anchor Anchor) (bool, error) {
	if !anchor.Resolved() || !anchor.valid() {
		return false, fmt.Errorf("anchor must be resolved, got %+v", anchor)
	}
	const stmt = `UPDATE wallets SET anchor_status = ?, anchor_at = ? WHERE user_id = ? AND address = ? AND anchor_status = 'pending'`
	res, err := r.db.ExecContext(ctx, stmt, string(anchor.Status), unixOrNull(anchor.At), userID, address)
	if err != nil {
		return false, fmt.Errorf("setting anchor: %w", err)
	}
	n, err := res.RowsAffected()
	if err != nil {
		return false, fmt.Errorf("setting anchor: %w", err)
	}
	return n > 0, nil
}

func (r *SQLiteRepository) ListPending(ctx context.Context, limit int) ([]Registration, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	const query = `SELECT user_id, address, anchor_status, anchor_at, created_at FROM wallets WHERE anchor_status = 'pending' ORDER BY created_at, user_id, address LIMIT ?`
	rows, err := r.db.QueryContext(ctx, query, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending wallets: %w", err)
	}
	return scanRegistrations(rows)
}

func (r *SQLiteRepository) ListUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.db.QueryContext(ctx, `SELECT DISTINCT user_id FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	defer rows.Close()

	var users []int64
	for rows.Next() {
		var id int64
		if err := rows.Scan(&id); err != nil {
			return nil, fmt.Errorf("scanning user: %w", err)
		}
		users = append(users, id)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating users: %w", err)
	}
	return users, nil
}

func scanRegistrations(rows *sql.Rows) ([]Registration, error) {
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var reg Registration
		var status string
		var at sql.NullInt64
		var created int64
		if err := rows.Scan(&reg.UserID, &reg.Address, &status, &at, &created); err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}
		reg.Anchor = Anchor{Status: AnchorStatus(status), At: timeOrNil(at)}
		reg.CreatedAt = time.Unix(0, created).UTC()
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallets: %w", err)
	}
	return regs, nil
}

func unixOrNull(t *time.Time) sql.NullInt64 {
	if t == nil {
		return sql.NullInt64{}
	}
	return sql.NullInt64{Int64: t.Unix(), Valid: true}
}

func timeOrNil(v sql.NullInt64) *time.Time {
	if !v.Valid {
		return nil
	}
	t := time.Unix(v.Int64, 0).UTC()
	return &t
}
