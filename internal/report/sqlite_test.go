package report

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"path/filepath"
	"testing"
	"time"

	"github.com/mtlprog/divtracker/internal/database"
)

func newSQLiteRepo(t *testing.T) *SQLiteRepository {
	t.Helper()
	ctx := context.Background()
	db, err := database.OpenSQLite(ctx, filepath.Join(t.TempDir(), "reports.db"))
	if err != nil {
		t.Fatalf("OpenSQLite: %v", err)
	}
	t.Cleanup(func() { db.Close() })

	repo, err := NewSQLiteRepository(ctx, db)
	if err != nil {
		t.Fatalf("NewSQLiteRepository: %v", err)
	}
	return repo
}

func day(n int) time.Time {
	return time.Date(2025, 6, n, 0, 0, 0, 0, time.UTC)
}

func TestSQLiteSaveAndGet(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	if _, err := repo.GetLatest(ctx); !errors.Is(err, ErrNotFound) {
		t.Fatalf("empty GetLatest error = %v, want ErrNotFound", err)
	}

	for i, n := range []int{3, 1, 2} {
		data := json.RawMessage(fmt.Sprintf(`{"wallets":%d}`, i))
		if err := repo.Save(ctx, day(n), data); err != nil {
			t.Fatalf("Save day %d: %v", n, err)
		}
	}

	latest, err := repo.GetLatest(ctx)
	if err != nil {
		t.Fatalf("GetLatest: %v", err)
	}
	if !latest.ReportDate.Equal(day(3)) {
		t.Errorf("latest date = %v, want %v", latest.ReportDate, day(3))
	}

	got, err := repo.GetByDate(ctx, day(2))
	if err != nil {
		t.Fatalf("GetByDate: %v", err)
	}
	if string(got.Data) != `{"wallets":2}` {
		t.Errorf("data = %s", got.Data)
	}

	if _, err := repo.GetByDate(ctx, day(9)); !errors.Is(err, ErrNotFound) {
		t.Errorf("missing date error = %v, want ErrNotFound", err)
	}
}

func TestSQLiteSaveReplacesSameDate(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	if err := repo.Save(ctx, day(5), json.RawMessage(`{"v":1}`)); err != nil {
		t.Fatal(err)
	}
	if err := repo.Save(ctx, day(5), json.RawMessage(`{"v":2}`)); err != nil {
		t.Fatal(err)
	}

	list, err := repo.List(ctx, 0)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 1 {
		t.Fatalf("reports = %d, want 1", len(list))
	}
	if string(list[0].Data) != `{"v":2}` {
		t.Errorf("data = %s, want replaced", list[0].Data)
	}
}

func TestSQLiteListNewestFirst(t *testing.T) {
	ctx := context.Background()
	repo := newSQLiteRepo(t)

	for n := 1; n <= 4; n++ {
		if err := repo.Save(ctx, day(n), json.RawMessage(`{}`)); err != nil {
			t.Fatal(err)
		}
	}

	list, err := repo.List(ctx, 2)
	if err != nil {
		t.Fatalf("List: %v", err)
	}
	if len(list) != 2 || !list[0].ReportDate.Equal(day(4)) || !list[1].ReportDate.Equal(day(3)) {
		t.Errorf("list = %+v, want days 4 and 3", list)
	}
}
