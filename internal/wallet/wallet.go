package wallet

import (
	"context"
	"errors"
	"time"
)

var (
	// ErrNotFound indicates that the (user, wallet) pair is not registered.
	ErrNotFound = errors.New("wallet registration not found")

	// ErrAlreadyExists indicates that the user already registered the wallet.
	ErrAlreadyExists = errors.New("wallet already registered")
)

// AnchorStatus is the discovery state of a wallet's anchor.
type AnchorStatus string

const (
	// AnchorPending means discovery has not completed yet.
	AnchorPending AnchorStatus = "pending"
	// AnchorFound means At holds the anchor timestamp.
	AnchorFound AnchorStatus = "found"
	// AnchorNone means discovery completed and found no qualifying operation.
	AnchorNone AnchorStatus = "none"
)

// Anchor is the stored result of anchor discovery.
type Anchor struct {
	Status AnchorStatus `json:"status"`
	At     *time.Time   `json:"at,omitempty"`
}

// PendingAnchor returns an anchor that still has to be discovered.
func PendingAnchor() Anchor { return Anchor{Status: AnchorPending} }

// FoundAnchor returns a resolved anchor at t, truncated to the second in UTC.
func FoundAnchor(t time.Time) Anchor {
	at := t.UTC().Truncate(time.Second)
	return Anchor{Status: AnchorFound, At: &at}
}

// NoAnchor returns a resolved anchor with no qualifying operation.
func NoAnchor() Anchor { return Anchor{Status: AnchorNone} }

// Resolved reports whether discovery has completed. Resolved anchors are never changed.
func (a Anchor) Resolved() bool {
	return a.Status == AnchorFound || a.Status == AnchorNone
}

func (a Anchor) valid() bool {
	switch a.Status {
	case AnchorFound:
		return a.At != nil
	case AnchorPending, AnchorNone:
		return a.At == nil
	default:
		return false
	}
}

// Registration associates a wallet with its owner.
type Registration struct {
	UserID    int64     `json:"user_id"`
	Address   string    `json:"address"`
	Anchor    Anchor    `json:"anchor"`
	CreatedAt time.Time `json:"created_at"`
}

// Repository stores wallet registrations keyed by (user, address).
type Repository interface {
	// Put registers a wallet. Returns ErrAlreadyExists for a duplicate pair.
	Put(ctx context.Context, userID int64, address string, anchor Anchor) error
	ListWallets(ctx context.Context, userID int64) ([]Registration, error)
	// Remove deletes a registration. Returns ErrNotFound if absent.
	Remove(ctx context.Context, userID int64, address string) error
	GetAnchor(ctx context.Context, userID int64, address string) (Anchor, error)
	// SetAnchor stores a resolved anchor for a registration that is still
	// pending. It reports false when the row is absent or already resolved.
	SetAnchor(ctx context.Context, userID int64, address string, anchor Anchor) (bool, error)
	// ListPending returns up to limit registrations awaiting discovery, oldest first.
	ListPending(ctx context.Context, limit int) ([]Registration, error)
	ListUsers(ctx context.Context) ([]int64, error)
}
