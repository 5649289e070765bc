package embedding

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/askdex/internal/domain"
)

// BudgetAction defines behavior when the token budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but lets the question through.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject fails the embedding; the question degrades to "not found".
	BudgetActionReject BudgetAction = "reject"
)

// Window names a budget accounting period.
type Window string

const (
	// Daily resets at 00:00 UTC.
	Daily Window = "daily"
	// Monthly resets on the first day of the month, 00:00 UTC.
	Monthly Window = "monthly"
)

// BudgetStore persists window counters so restarts do not reset spending.
// IncrBy may be called repeatedly for the same key.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) error
	Get(ctx context.Context, key string) (int64, error)
}

type window struct {
	name  Window
	limit int64 // 0 = unlimited
	used  int64
	start time.Time
}

func (w *window) periodStart(t time.Time) time.Time {
	if w.name == Monthly {
		return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
	}
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func (w *window) periodLabel(t time.Time) string {
	if w.name == Monthly {
		return t.Format("2006-01")
	}
	return t.Format("2006-01-02")
}

func (w *window) exceeded() bool { return w.limit > 0 && w.used >= w.limit }

func (w *window) remaining() int64 {
	if w.limit == 0 {
		return -1
	}
	return max(w.limit-w.used, 0)
}

// BudgetTracker caps embedding tokens per day and per month.
// Check is in-memory only. Record updates memory first, then writes through to the store.
type BudgetTracker struct {
	mu       sync.Mutex
	provider string
	action   BudgetAction
	windows  []*window
	store    BudgetStore
	now      func() time.Time
	logger   *zap.Logger
}

// NewBudgetTracker creates a tracker. A zero limit disables that window.
func NewBudgetTracker(
	provider string, dailyLimit, monthlyLimit int64,
	action BudgetAction, logger *zap.Logger,
) *BudgetTracker {
	b := &BudgetTracker{
		provider: provider,
		action:   action,
		windows: []*window{
			{name: Daily, limit: dailyLimit},
			{name: Monthly, limit: monthlyLimit},
		},
		now:    func() time.Time { return time.Now().UTC() },
		logger: logger,
	}
	b.rollover()
	return b
}

// WithClock replaces the wall clock. Tests use it to cross period boundaries.
func (b *BudgetTracker) WithClock(now func() time.Time) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()
	b.now = func() time.Time { return now().UTC() }
	for _, w := range b.windows {
		w.start = time.Time{}
	}
	b.rollover()
	return b
}

// WithStore attaches a persistence store and loads the current counters from it.
func (b *BudgetTracker) WithStore(ctx context.Context, store BudgetStore) *BudgetTracker {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = store
	now := b.now()
	for _, w := range b.windows {
		key := b.key(w, now)
		val, err := store.Get(ctx, key)
		if err != nil {
			b.logger.Warn("Failed to load token budget from store",
				zap.String("window", string(w.name)), zap.Error(err))
			continue
		}
		w.used = val
	}

	b.logger.Info("Token budget loaded from store",
		zap.String("provider", b.provider),
		zap.Int64("daily_used", b.windows[0].used),
		zap.Int64("monthly_used", b.windows[1].used),
	)
	return b
}

func (b *BudgetTracker) key(w *window, t time.Time) string {
	return fmt.Sprintf("%sbudget:%s:%s:%s", domain.KeyPrefix, b.provider, w.name, w.periodLabel(t))
}

// Check reports whether a new embedding may be requested.
func (b *BudgetTracker) Check(_ context.Context) error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()

	for _, w := range b.windows {
		if !w.exceeded() {
			continue
		}
		if b.action == BudgetActionReject {
			return fmt.Errorf("%w: %s limit %d reached", domain.ErrTokenBudgetExceeded, w.name, w.limit)
		}
		b.logger.Warn("Token budget exceeded",
			zap.String("provider", b.provider),
			zap.String("window", string(w.name)),
			zap.Int64("used", w.used),
			zap.Int64("limit", w.limit),
		)
		return nil
	}
	return nil
}

// Record adds consumed tokens to every window and persists them when a store is attached.
func (b *BudgetTracker) Record(tokens int64) {
	if tokens <= 0 {
		return
	}

	b.mu.Lock()
	b.rollover()
	now := b.now()
	keys := make([]string, 0, len(b.windows))
	for _, w := range b.windows {
		w.used += tokens
		keys = append(keys, b.key(w, now))
	}
	store := b.store
	b.mu.Unlock()

	if store == nil {
		return
	}

	// Detached from the request so a cancelled question still counts its tokens.
	ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
	defer cancel()

	for _, key := range keys {
		if err := store.IncrBy(ctx, key, tokens); err != nil {
			b.logger.Warn("Failed to persist token budget", zap.String("key", key), zap.Error(err))
		}
	}
}

// Limit returns the configured limit of the window, 0 when unlimited.
func (b *BudgetTracker) Limit(name Window) int64 {
	for _, w := range b.windows {
		if w.name == name {
			return w.limit
		}
	}
	return 0
}

// Remaining returns tokens left in the window, or -1 when the window is unlimited.
func (b *BudgetTracker) Remaining(name Window) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	for _, w := range b.windows {
		if w.name == name {
			return w.remaining()
		}
	}
	return -1
}

// Used returns tokens consumed in the current period of the window.
func (b *BudgetTracker) Used(name Window) int64 {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover()
	for _, w := range b.windows {
		if w.name == name {
			return w.used
		}
	}
	return 0
}

// Windows lists the tracked windows in a fixed order.
func (b *BudgetTracker) Windows() []Window {
	out := make([]Window, len(b.windows))
	for i, w := range b.windows {
		out[i] = w.name
	}
	return out
}

// rollover zeroes a window when its period changed. Caller holds mu.
func (b *BudgetTracker) rollover() {
	now := b.now()
	for _, w := range b.windows {
		start := w.periodStart(now)
		if start.After(w.start) {
			if !w.start.IsZero() {
				w.used = 0
			}
			w.start = start
		}
	}
}
