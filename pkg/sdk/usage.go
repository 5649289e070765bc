package askdex

import (
	"context"
	"time"

	usageuc "github.com/kailas-cloud/askdex/internal/usecase/usage"
)

// UsagePeriod is the aggregation granularity for usage reports.
type UsagePeriod string

// UsagePeriod constants.
const (
	PeriodDay   UsagePeriod = "day"
	PeriodMonth UsagePeriod = "month"
)

// UsageReport contains embedding token usage for a time period.
type UsageReport struct {
	Period          UsagePeriod
	PeriodStart     time.Time
	PeriodEnd       time.Time
	TokensLimit     int64 // 0 = unlimited
	TokensUsed      int64
	TokensRemaining int64 // -1 = unlimited
	IsExhausted     bool
}

// usageUseCase is the internal interface for usage reports.
type usageUseCase interface {
	GetReport(ctx context.Context, period usageuc.Period) usageuc.Report
}

// Usage returns an embedding usage report for the given period.
// Counters are in-memory and cover tokens spent by this Client since New.
// Observer always records success: the underlying use case is in-memory
// and does not produce errors.
func (c *Client) Usage(ctx context.Context, period UsagePeriod) UsageReport {
	start := time.Now()
	defer func() { c.obs.observe("usage", start, nil) }()

	r := c.usageSvc.GetReport(ctx, usageuc.Period(period))
	return UsageReport{
		Period:          UsagePeriod(r.Period),
		PeriodStart:     r.PeriodStart,
		PeriodEnd:       r.PeriodEnd,
		TokensLimit:     r.Limit,
		TokensUsed:      r.Used,
		TokensRemaining: r.Remaining,
		IsExhausted:     r.Exhausted,
	}
}
