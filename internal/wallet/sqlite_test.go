package wallet

import (
	"context"
	"errors"
	"path/filepath"
	"testing"
	"time"

	"github.com/mtlprog/divtracker/internal/database"
)

const (
	addrA = "GDW4UCJVOUIRLXVY4FWSXQJBCIA3QZPFMVRL3KMAIMTCXASWGBJFRXAI"
	addrB = "GAS4LCHPWEHCWRPR2LAIRCYWGSPSUID7HGYGTAIAR4B5E3SAW7YUQLAX"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "wallets.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	var tick int64
	repo.now = func() time.Time {
		tick++
		return time.Unix(1700000000+tick, 0)
	}
	return repo
}

func TestSQLitePutAndList(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	anchorAt := time.Date(2024, 1, 2, 3, 4, 5, 0, time.UTC)

	if err := repo.Put(ctx, 1, addrA, FoundAnchor(anchorAt)); err != nil {
		t.Fatalf("Put A: %v", err)
	}
	if err := repo.Put(ctx, 1, addrB, NoAnchor()); err != nil {
		t.Fatalf("Put B: %v", err)
	}
	if err := repo.Put(ctx, 2, addrA, PendingAnchor()); err != nil {
		t.Fatalf("Put A for user 2: %v", err)
	}

	regs, err := repo.ListWallets(ctx, 1)
	if err != nil {
		t.Fatalf("ListWallets: %v", err)
	}
	if len(regs) != 2 {
		t.Fatalf("wallets = %d, want 2", len(regs))
	}
	if regs[0].Address != addrA || regs[1].Address != addrB {
		t.Errorf("order = %s, %s; want insertion order", regs[0].Address, regs[1].Address)
	}
	if regs[0].Anchor.Status != AnchorFound || !regs[0].Anchor.At.Equal(anchorAt) {
		t.Errorf("anchor A = %+v, want found at %v", regs[0].Anchor, anchorAt)
	}
	if regs[1].Anchor.Status != AnchorNone || regs[1].Anchor.At != nil {
		t.Errorf("anchor B = %+v, want none", regs[1].Anchor)
	}

	users, err := repo.ListUsers(ctx)
	if err != nil {
		t.Fatalf("ListUsers: %v", err)
	}
	if len(users) != 2 || users[0] != 1 || users[1] != 2 {
		t.Errorf("users = %v, want [1 2]", users)
	}
}

func TestSQLitePutDuplicate(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	if err := repo.Put(ctx, 1, addrA, PendingAnchor()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	err := repo.Put(ctx, 1, addrA, NoAnchor())
	if !errors.Is(err, ErrAlreadyExists) {
		t.Fatalf("error = %v, want ErrAlreadyExists", err)
	}

	// original anchor is untouched
	a, err := repo.GetAnchor(ctx, 1, addrA)
	if err != nil {
		t.Fatalf("GetAnchor: %v", err)
	}
	if a.Status != AnchorPending {
		t.Errorf("status = %s, want pending", a.Status)
	}
}

func TestSQLiteRemove(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	if err := repo.Put(ctx, 1, addrA, NoAnchor()); err != nil {
		t.Fatalf("Put: %v", err)
	}
	if err := repo.Remove(ctx, 1, addrA); err != nil {
		t.Fatalf("Remove: %v", err)
	}
	if err := repo.Remove(ctx, 1, addrA); !errors.Is(err, ErrNotFound) {
		t.Errorf("second Remove error = %v, want ErrNotFound", err)
	}
	if _, err := repo.GetAnchor(ctx, 1, addrA); !errors.Is(err, ErrNotFound) {
		t.Errorf("GetAnchor error = %v, want ErrNotFound", err)
	}
	regs, err := repo.ListWallets(ctx, 1)
	if err != nil {
		t.Fatalf("ListWallets: %v", err)
	}
	if len(regs) != 0 {
		t.Errorf("wallets = %d, want 0", len(regs))
	}
}

func TestSQLiteSetAnchorOnlyFromPending(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)
	first := time.Date(2023, 5, 6, 7, 8, 9, 0, time.UTC)

	if err := repo.Put(ctx, 1, addrA, PendingAnchor()); err != nil {
		t.Fatalf("Put: %v", err)
	}

	updated, err := repo.SetAnchor(ctx, 1, addrA, FoundAnchor(first))
	if err != nil || !updated {
		t.Fatalf("SetAnchor = %v, %v; want true", updated, err)
	}

	// resolved anchors are immutable
	updated, err = repo.SetAnchor(ctx, 1, addrA, NoAnchor())
	if err != nil {
		t.Fatalf("second SetAnchor: %v", err)
	}
	if updated {
		t.Error("second SetAnchor updated a resolved anchor")
	}

	a, err := repo.GetAnchor(ctx, 1, addrA)
	if err != nil {
		t.Fatalf("GetAnchor: %v", err)
	}
	if a.Status != AnchorFound || !a.At.Equal(first) {
		t.Errorf("anchor = %+v, want found at %v", a, first)
	}

	if _, err := repo.SetAnchor(ctx, 1, addrA, PendingAnchor()); err == nil {
		t.Error("expected error setting a pending anchor")
	}

	updated, err = repo.SetAnchor(ctx, 9, addrB, NoAnchor())
	if err != nil || updated {
		t.Errorf("SetAnchor on missing row = %v, %v; want false, nil", updated, err)
	}
}

func TestSQLiteListPending(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	if err := repo.Put(ctx, 1, addrA, PendingAnchor()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, 1, addrB, NoAnchor()); err != nil {
		t.Fatal(err)
	}
	if err := repo.Put(ctx, 2, addrB, PendingAnchor()); err != nil {
		t.Fatal(err)
	}

	pending, err := repo.ListPending(ctx, 10)
	if err != nil {
		t.Fatalf("ListPending: %v", err)
	}
	if len(pending) != 2 {
		t.Fatalf("pending = %d, want 2", len(pending))
	}
	if pending[0].UserID != 1 || pending[1].UserID != 2 {
		t.Errorf("pending order = %d, %d; want 1, 2", pending[0].UserID, pending[1].UserID)
	}

	limited, err := repo.ListPending(ctx, 1)
	if err != nil {
		t.Fatalf("ListPending(1): %v", err)
	}
	if len(limited) != 1 {
		t.Errorf("limited = %d, want 1", len(limited))
	}
}

func TestFoundAnchorTruncatesToSecond(t *testing.T) {
	a := FoundAnchor(time.Date(2024, 1, 1, 0, 0, 0, 999, time.FixedZone("X", 3600)))
	if a.At.Nanosecond() != 0 || a.At.Location() != time.UTC {
		t.Errorf("anchor = %v, want UTC second precision", a.At)
	}
	if !a.Resolved() || PendingAnchor().Resolved() {
		t.Error("Resolved() mismatch")
	}
}
