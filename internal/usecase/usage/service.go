// Package usage reports detection cost usage against the configured budget.
package usage

import (
	"context"
	"time"

	domusage "github.com/kailas-cloud/sentinel/internal/domain/usage"
)

// Service handles usage reporting.
type Service struct {
	br  BudgetReader
	now func() time.Time
}

// New creates a Service. br can be nil (unlimited mode).
func New(br BudgetReader) *Service {
	return &Service{br: br, now: time.Now}
}

// GetReport builds a usage report for the given period.
func (s *Service) GetReport(_ context.Context, period string) (domusage.Report, error) {
	p, err := domusage.ParsePeriod(period)
	if err != nil {
		return domusage.Report{}, err
	}

	now := s.now().UTC()
	var start, end time.Time
	var limit, used int64

	switch p {
	case domusage.PeriodMonth:
		start = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		end = start.AddDate(0, 1, 0)
		if s.br != nil {
			limit = s.br.MonthlyLimit()
			used = s.br.MonthlyUsed()
		}
	default:
		start = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		end = start.Add(24 * time.Hour)
		if s.br != nil {
			limit = s.br.DailyLimit()
			used = s.br.DailyUsed()
		}
	}

	return domusage.NewReport(p, start.UnixMilli(), end.UnixMilli(), limit, used), nil
}
