package wallet

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const defaultPendingLimit = 50

// PgRepository implements Repository with PostgreSQL.
type PgRepository struct {
	pool *pgxpool.Pool
}

// NewPgRepository creates a new PostgreSQL wallet repository.
func NewPgRepository(pool *pgxpool.Pool) *PgRepository {
	return &PgRepository{pool: pool}
}

func (r *PgRepository) Put(ctx context.Context, userID int64, address string, anchor Anchor) error {
	if !anchor.valid() {
		return fmt.Errorf("invalid anchor %+v", anchor)
	}
	tag, err := r.pool.Exec(ctx,
		`INSERT INTO wallets (user_id, address, anchor_status, anchor_at)
		 VALUES ($1, $2, $3, $4)
		 ON CONFLICT (user_id, address) DO NOTHING`,
		userID, address, anchor.Status, anchor.At)
	if err != nil {
		return fmt.Errorf("saving wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrAlreadyExists
	}
	return nil
}

func (r *PgRepository) ListWallets(ctx context.Context, userID int64) ([]Registration, error) {
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, address, anchor_status, anchor_at, created_at
		 FROM wallets
		 WHERE user_id = $1
		 ORDER BY created_at, address`, userID)
	if err != nil {
		return nil, fmt.Errorf("listing wallets: %w", err)
	}
	return collectRegistrations(rows)
}

func (r *PgRepository) Remove(ctx context.Context, userID int64, address string) error {
	tag, err := r.pool.Exec(ctx,
		`DELETE FROM wallets WHERE user_id = $1 AND address = $2`, userID, address)
	if err != nil {
		return fmt.Errorf("removing wallet: %w", err)
	}
	if tag.RowsAffected() == 0 {
		return ErrNotFound
	}
	return nil
}

func (r *PgRepository) GetAnchor(ctx context.Context, userID int64, address string) (Anchor, error) {
	var a Anchor
	err := r.pool.QueryRow(ctx,
		`SELECT anchor_status, anchor_at FROM wallets WHERE user_id = $1 AND address = $2`,
		userID, address).Scan(&a.Status, &a.At)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return Anchor{}, ErrNotFound
		}
		return Anchor{}, fmt.Errorf("getting anchor: %w", err)
	}
	a.At = utcPtr(a.At)
	return a, nil
}

func (r *PgRepository) SetAnchor(ctx context.Context, userID int64, address string, anchor Anchor) (bool, error) {
	if !anchor.Resolved() || !anchor.valid() {
		return false, fmt.Errorf("anchor must be resolved, got %+v", anchor)
	}
	tag, err := r.pool.Exec(ctx,
		`UPDATE wallets SET anchor_status = $3, anchor_at = $4
		 WHERE user_id = $1 AND address = $2 AND anchor_status = 'pending'`,
		userID, address, anchor.Status, anchor.At)
	if err != nil {
		return false, fmt.Errorf("setting anchor: %w", err)
	}
	return tag.RowsAffected() > 0, nil
}

func (r *PgRepository) ListPending(ctx context.Context, limit int) ([]Registration, error) {
	if limit <= 0 {
		limit = defaultPendingLimit
	}
	rows, err := r.pool.Query(ctx,
		`SELECT user_id, address, anchor_status, anchor_at, created_at
		 FROM wallets
		 WHERE anchor_status = 'pending'
		 ORDER BY created_at, user_id, address
		 LIMIT $1`, limit)
	if err != nil {
		return nil, fmt.Errorf("listing pending wallets: %w", err)
	}
	return collectRegistrations(rows)
}

func (r *PgRepository) ListUsers(ctx context.Context) ([]int64, error) {
	rows, err := r.pool.Query(ctx, `SELECT DISTINCT user_id FROM wallets ORDER BY user_id`)
	if err != nil {
		return nil, fmt.Errorf("listing users: %w", err)
	}
	users, err := pgx.CollectRows(rows, pgx.RowTo[int64])
	if err != nil {
		return nil, fmt.Errorf("scanning users: %w", err)
	}
	return users, nil
}

func collectRegistrations(rows pgx.Rows) ([]Registration, error) {
	defer rows.Close()

	var regs []Registration
	for rows.Next() {
		var reg Registration
		if err := rows.Scan(&reg.UserID, &reg.Address, &reg.Anchor.Status, &reg.Anchor.At, &reg.CreatedAt); err != nil {
			return nil, fmt.Errorf("scanning wallet: %w", err)
		}
		reg.Anchor.At = utcPtr(reg.Anchor.At)
		reg.CreatedAt = reg.CreatedAt.UTC()
		regs = append(regs, reg)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("iterating wallets: %w", err)
	}
	return regs, nil
}

func utcPtr(t *time.Time) *time.Time {
	if t == nil {
		return nil
	}
	u := t.UTC()
	return &u
}
