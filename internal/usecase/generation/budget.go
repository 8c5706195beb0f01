package generation

import (
	"context"
	"fmt"
	"sync"
	"time"

	"go.uber.org/zap"

	"github.com/kailas-cloud/poisearch/internal/domain"
)

// BudgetAction defines behavior when the call budget is spent.
type BudgetAction string

const (
	// BudgetActionWarn logs a warning but allows the call.
	BudgetActionWarn BudgetAction = "warn"
	// BudgetActionReject blocks the call; callers fall back to defaults.
	BudgetActionReject BudgetAction = "reject"
)

// BudgetKeyPrefix namespaces persisted counters.
const BudgetKeyPrefix = "poisearch:budget:generation:"

// BudgetStore persists call counters so replicas and restarts share them.
type BudgetStore interface {
	IncrBy(ctx context.Context, key string, val int64) (int64, error)
	Get(ctx context.Context, key string) (int64, error)
}

// BudgetConfig caps generation calls. A zero limit is unlimited.
type BudgetConfig struct {
	DailyLimit   int64
	MonthlyLimit int64
	Action       BudgetAction
}

// BudgetSnapshot is a consistent view of the counters.
type BudgetSnapshot struct {
	DailyLimit   int64
	DailyUsed    int64
	MonthlyLimit int64
	MonthlyUsed  int64
}

// Budget counts successful generation calls per UTC day and month.
// Check reads memory only; Record writes through to the store when attached.
type Budget struct {
	mu          sync.Mutex
	cfg         BudgetConfig
	dailyUsed   int64
	monthlyUsed int64
	day         time.Time
	month       time.Time
	store       BudgetStore
	now         func() time.Time
	logger      *zap.Logger
}

// NewBudget creates an in-memory budget.
func NewBudget(cfg BudgetConfig, logger *zap.Logger) *Budget {
	return newBudgetWithClock(cfg, logger, time.Now)
}

func newBudgetWithClock(cfg BudgetConfig, logger *zap.Logger, now func() time.Time) *Budget {
	if cfg.Action == "" {
		cfg.Action = BudgetActionReject
	}
	t := now().UTC()
	return &Budget{
		cfg:    cfg,
		day:    truncateToDay(t),
		month:  truncateToMonth(t),
		now:    now,
		logger: logger,
	}
}

// WithStore attaches a store and loads the current counters from it.
func (b *Budget) WithStore(ctx context.Context, s BudgetStore) *Budget {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.store = s
	t := b.now().UTC()
	b.rollover(t)
	if v, err := s.Get(ctx, DailyBudgetKey(t)); err == nil {
		b.dailyUsed = v
	} else {
		b.logger.Warn("Failed to load daily generation budget", zap.Error(err))
	}
	if v, err := s.Get(ctx, MonthlyBudgetKey(t)); err == nil {
		b.monthlyUsed = v
	} else {
		b.logger.Warn("Failed to load monthly generation budget", zap.Error(err))
	}
	b.logger.Info("Generation budget loaded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("monthly_used", b.monthlyUsed),
	)
	return b
}

// Check reports whether another call is allowed.
func (b *Budget) Check() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover(b.now().UTC())
	dailyExceeded := b.cfg.DailyLimit > 0 && b.dailyUsed >= b.cfg.DailyLimit
	monthlyExceeded := b.cfg.MonthlyLimit > 0 && b.monthlyUsed >= b.cfg.MonthlyLimit
	if !dailyExceeded && !monthlyExceeded {
		return nil
	}
	if b.cfg.Action == BudgetActionReject {
		return domain.ErrBudgetExceeded
	}

	b.logger.Warn("Generation budget exceeded",
		zap.Int64("daily_used", b.dailyUsed),
		zap.Int64("daily_limit", b.cfg.DailyLimit),
		zap.Int64("monthly_used", b.monthlyUsed),
		zap.Int64("monthly_limit", b.cfg.MonthlyLimit),
	)
	return nil
}

// Record counts one call. With a store attached the counters are incremented
// remotely and the local view catches up to the shared total.
func (b *Budget) Record(ctx context.Context) {
	b.mu.Lock()
	t := b.now().UTC()
	b.rollover(t)
	b.dailyUsed++
	b.monthlyUsed++
	s := b.store
	b.mu.Unlock()

	if s == nil {
		return
	}

	ctx, cancel := context.WithTimeout(context.WithoutCancel(ctx), 2*time.Second)
	defer cancel()

	daily, err := s.IncrBy(ctx, DailyBudgetKey(t), 1)
	if err != nil {
		b.logger.Warn("Failed to persist daily generation budget", zap.Error(err))
	}
	monthly, err2 := s.IncrBy(ctx, MonthlyBudgetKey(t), 1)
	if err2 != nil {
		b.logger.Warn("Failed to persist monthly generation budget", zap.Error(err2))
	}

	b.mu.Lock()
	defer b.mu.Unlock()
	if !truncateToDay(t).Equal(b.day) {
		return
	}
	if err == nil && daily > b.dailyUsed {
		b.dailyUsed = daily
	}
	if err2 == nil && monthly > b.monthlyUsed {
		b.monthlyUsed = monthly
	}
}

// Snapshot returns the current limits and usage.
func (b *Budget) Snapshot() BudgetSnapshot {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.rollover(b.now().UTC())
	return BudgetSnapshot{
		DailyLimit:   b.cfg.DailyLimit,
		DailyUsed:    b.dailyUsed,
		MonthlyLimit: b.cfg.MonthlyLimit,
		MonthlyUsed:  b.monthlyUsed,
	}
}

// rollover zeroes counters when the UTC day or month changes. Caller holds mu.
func (b *Budget) rollover(t time.Time) {
	if day := truncateToDay(t); day.After(b.day) {
		b.dailyUsed = 0
		b.day = day
	}
	if month := truncateToMonth(t); month.After(b.month) {
		b.monthlyUsed = 0
		b.month = month
	}
}

// DailyBudgetKey is the store key for the day containing t.
func DailyBudgetKey(t time.Time) string {
	return fmt.Sprintf("%sdaily:%s", BudgetKeyPrefix, t.UTC().Format("2006-01-02"))
}

// MonthlyBudgetKey is the store key for the month containing t.
func MonthlyBudgetKey(t time.Time) string {
	return fmt.Sprintf("%smonthly:%s", BudgetKeyPrefix, t.UTC().Format("2006-01"))
}

func truncateToDay(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), t.Day(), 0, 0, 0, 0, time.UTC)
}

func truncateToMonth(t time.Time) time.Time {
	return time.Date(t.Year(), t.Month(), 1, 0, 0, 0, 0, time.UTC)
}
