package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/poisearch/internal/domain/usage"
	"github.com/kailas-cloud/poisearch/internal/usecase/generation"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil when no budget is configured.
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the current UTC day or month.
func (s *Service) GetReport(_ context.Context, period domusage.Period) domusage.Report {
	now := s.now().UTC()

	var snap generation.BudgetSnapshot
	if s.br != nil {
		snap = s.br.Snapshot()
	}

	if period == domusage.PeriodMonth {
		start := time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		return domusage.NewReport(period, start, start.AddDate(0, 1, 0), snap.MonthlyLimit, snap.MonthlyUsed)
	}
	start := time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
	return domusage.NewReport(domusage.PeriodDay, start, start.AddDate(0, 0, 1), snap.DailyLimit, snap.DailyUsed)
}
