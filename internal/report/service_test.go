package report

import (
	"context"
	"encoding/json"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/mtlprog/divtracker/internal/tracker"
)

type mockSweeper struct {
	result tracker.SweepResult
	err    error
}

func (m *mockSweeper) Sweep(_ context.Context) (tracker.SweepResult, error) {
	return m.result, m.err
}

type mockRepo struct {
	saveErr   error
	savedData json.RawMessage
	savedDate time.Time
	latest    *Report
	latestErr error
}

func (m *mockRepo) Save(_ context.Context, date time.Time, data json.RawMessage) error {
	m.savedData = data
	m.savedDate = date
	return m.saveErr
}

func (m *mockRepo) GetLatest(_ context.Context) (*Report, error) {
	if m.latestErr != nil {
		return nil, m.latestErr
	}
	return m.latest, nil
}

func (m *mockRepo) GetByDate(_ context.Context, _ time.Time) (*Report, error) {
	return nil, ErrNotFound
}

func (m *mockRepo) List(_ context.Context, _ int) ([]Report, error) {
	return nil, nil
}

func TestGenerateSuccess(t *testing.T) {
	sweep := tracker.SweepResult{Wallets: 3, OK: 2, GrandTotal: decimal.RequireFromString("81")}
	repo := &mockRepo{}
	svc := NewService(&mockSweeper{result: sweep}, repo)
	date := time.Date(2025, 6, 15, 0, 0, 0, 0, time.UTC)

	result, err := svc.Generate(context.Background(), date)
	if err != nil {
		t.Fatalf("unexpected error: %v", err)
	}
	if result.Wallets != 3 {
		t.Errorf("Wallets = %d, want 3", result.Wallets)
	}
	if !repo.savedDate.Equal(date) {
		t.Errorf("saved date = %v, want %v", repo.savedDate, date)
	}

	var saved tracker.SweepResult
	if err := json.Unmarshal(repo.savedData, &saved); err != nil {
		t.Fatalf("saved data is not a sweep: %v", err)
	}
	if !saved.GrandTotal.Equal(sweep.GrandTotal) || saved.OK != 2 {
		t.Errorf("saved = %+v", saved)
	}
}

func TestGenerateSweepError(t *testing.T) {
	repo := &mockRepo{}
	svc := NewService(&mockSweeper{err: errors.New("store down")}, repo)

	if _, err := svc.Generate(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from sweep")
	}
	if repo.savedData != nil {
		t.Error("nothing should be saved when the sweep fails")
	}
}

func TestGenerateRepoSaveError(t *testing.T) {
	repo := &mockRepo{saveErr: errors.New("save failed")}
	svc := NewService(&mockSweeper{}, repo)

	if _, err := svc.Generate(context.Background(), time.Now()); err == nil {
		t.Fatal("expected error from repo save")
	}
}

func TestGetLatestNotFound(t *testing.T) {
	svc := NewService(&mockSweeper{}, &mockRepo{latestErr: ErrNotFound})

	if _, err := svc.GetLatest(context.Background()); !errors.Is(err, ErrNotFound) {
		t.Errorf("error = %v, want ErrNotFound", err)
	}
}
