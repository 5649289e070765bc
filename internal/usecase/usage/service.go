package usage

import (
	"context"
	"fmt"
	"time"

	"github.com/kailas-cloud/askdex/internal/usecase/embedding"
)

// Period selects the accounting window of a report.
type Period string

// Report periods.
const (
	PeriodDay   Period = "day"
	PeriodMonth Period = "month"
)

// ParsePeriod converts a query value into a Period. Empty means day.
func ParsePeriod(s string) (Period, error) {
	switch Period(s) {
	case "", PeriodDay:
		return PeriodDay, nil
	case PeriodMonth:
		return PeriodMonth, nil
	default:
		return "", fmt.Errorf("unknown usage period %q", s)
	}
}

// Report is the embedding token usage for one period.
type Report struct {
	Period      Period
	PeriodStart time.Time
	PeriodEnd   time.Time
	Limit       int64 // 0 = unlimited
	Used        int64
	Remaining   int64 // -1 = unlimited
	Exhausted   bool
}

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
func (s *Service) GetReport(_ context.Context, period Period) Report {
	now := s.now().UTC()
	r := Report{Period: period, Remaining: -1}

	var w embedding.Window
	switch period {
	case PeriodMonth:
		r.PeriodStart = time.Date(now.Year(), now.Month(), 1, 0, 0, 0, 0, time.UTC)
		r.PeriodEnd = r.PeriodStart.AddDate(0, 1, 0)
		w = embedding.Monthly
	default:
		r.Period = PeriodDay
		r.PeriodStart = time.Date(now.Year(), now.Month(), now.Day(), 0, 0, 0, 0, time.UTC)
		r.PeriodEnd = r.PeriodStart.Add(24 * time.Hour)
		w = embedding.Daily
	}

	if s.br == nil {
		return r
	}
	r.Limit = s.br.Limit(w)
	r.Used = s.br.Used(w)
	r.Remaining = s.br.Remaining(w)
	r.Exhausted = r.Limit > 0 && r.Remaining <= 0
	return r
}
