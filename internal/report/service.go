package report

import (
	"context"
	"encoding/json"
	"fmt"
	"time"

	"github.com/mtlprog/divtracker/internal/tracker"
)

// Sweeper runs a dividend sweep over all registered wallets.
type Sweeper interface {
	Sweep(ctx context.Context) (tracker.SweepResult, error)
}

// Service manages report generation and retrieval.
type Service struct {
	sweeper Sweeper
	repo    Repository
}

// NewService creates a new report Service.
func NewService(sweeper Sweeper, repo Repository) *Service {
	return &Service{sweeper: sweeper, repo: repo}
}

// Generate runs a sweep and stores it as the report for date.
func (s *Service) Generate(ctx context.Context, date time.Time) (tracker.SweepResult, error) {
	result, err := s.sweeper.Sweep(ctx)
	if err != nil {
		return tracker.SweepResult{}, fmt.Errorf("running sweep: %w", err)
	}

	data, err := json.Marshal(result)
	if err != nil {
		return tracker.SweepResult{}, fmt.Errorf("marshaling sweep: %w", err)
	}

	if err := s.repo.Save(ctx, date, data); err != nil {
		return tracker.SweepResult{}, fmt.Errorf("saving report: %w", err)
	}

	return result, nil
}

// GetLatest retrieves the most recent report.
func (s *Service) GetLatest(ctx context.Context) (*Report, error) {
	return s.repo.GetLatest(ctx)
}

// GetByDate retrieves the report for a specific date.
func (s *Service) GetByDate(ctx context.Context, date time.Time) (*Report, error) {
	return s.repo.GetByDate(ctx, date)
}

// List retrieves recent reports, newest first.
func (s *Service) List(ctx context.Context, limit int) ([]Report, error) {
	return s.repo.List(ctx, limit)
}
