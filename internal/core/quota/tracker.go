package quota

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"recipe-modifier/internal/infrastructure/monitoring"
	"recipe-modifier/internal/pkg/common"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"
)

// Tracker 每位使用者每日的 AI 修改額度
//
// 儲存是唯一的事實來源：每次 CheckAndIncrement / GetUsage 都重新查詢，不快取計數。
type Tracker struct {
	store   Store
	limit   int
	loc     *time.Location
	clock   Clock
	retry   RetryPolicy
	metrics *monitoring.Metrics
	tracer  trace.Tracer
}

// Option Tracker 選項
type Option func(*Tracker)

// WithClock 指定時鐘
func WithClock(c Clock) Option {
	return func(t *Tracker) { t.clock = c }
}

// WithLocation 指定日界使用的時區
func WithLocation(loc *time.Location) Option {
	return func(t *Tracker) {
		if loc != nil {
			t.loc = loc
		}
	}
}

// WithRetryPolicy 指定重試策略
func WithRetryPolicy(p RetryPolicy) Option {
	return func(t *Tracker) { t.retry = p }
}

// WithMetrics 指定 Prometheus 指標
func WithMetrics(m *monitoring.Metrics) Option {
	return func(t *Tracker) { t.metrics = m }
}

// NewTracker 創建額度追蹤器，limit 由呼叫端的設定提供
func NewTracker(store Store, limit int, opts ...Option) (*Tracker, error) {
	if store == nil {
		return nil, fmt.Errorf("quota store is required")
	}
	if limit <= 0 {
		return nil, fmt.Errorf("quota limit must be positive, got %d", limit)
	}

	t := &Tracker{
		store:  store,
		limit:  limit,
		loc:    time.UTC,
		clock:  SystemClock{},
		retry:  DefaultRetryPolicy(),
		tracer: otel.Tracer("recipe-modifier/quota"),
	}
	for _, opt := range opts {
		opt(t)
	}
	return t, nil
}

// Limit 每日上限
func (t *Tracker) Limit() int {
	return t.limit
}

// Today 追蹤器的標準「今天」
func (t *Tracker) Today() Day {
	return DayOf(t.clock.Now(), t.loc)
}

// CheckAndIncrement 若仍有額度則原子地加一
//
// 額度用完時返回 Allowed=false、Remaining=0 且不修改計數；可用 Decision.Err 取得 QuotaExceededError。
// 儲存無法連線時重試後仍失敗，返回 QuotaStoreUnavailableError（拒絕請求）。
func (t *Tracker) CheckAndIncrement(ctx context.Context, userID string) (Decision, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return Decision{}, err
	}

	day := t.Today()
	ctx, span := t.tracer.Start(ctx, "quota.CheckAndIncrement", trace.WithAttributes(
		attribute.String("quota.user_id", userID),
		attribute.String("quota.day", string(day)),
	))
	defer span.End()

	var (
		rec         Record
		incremented bool
	)
	err = t.retry.run(ctx, "increment", t.metrics.IncStoreRetry, func(ctx context.Context) error {
		var err error
		rec, incremented, err = t.store.IncrementIfBelow(ctx, userID, day, t.limit)
		return err
	})
	if err != nil {
		return Decision{}, t.unavailable(span, "increment", userID, err)
	}

	decision := Decision{
		UserID:  userID,
		Allowed: incremented,
		Limit:   t.limit,
		Day:     day,
	}
	if incremented {
		decision.Remaining = remaining(t.limit, rec.Count)
		t.metrics.ObserveQuotaDecision(monitoring.OutcomeAllowed)
	} else {
		t.metrics.ObserveQuotaDecision(monitoring.OutcomeExhausted)
	}
	span.SetAttributes(
		attribute.Bool("quota.allowed", decision.Allowed),
		attribute.Int("quota.remaining", decision.Remaining),
	)
	common.LogQuotaDecision(userID, string(day), decision.Allowed, rec.Count, t.limit)

	return decision, nil
}

// GetUsage 唯讀查詢，套用相同的跨日規則但不修改紀錄
func (t *Tracker) GetUsage(ctx context.Context, userID string) (Usage, error) {
	userID, err := normalizeUserID(userID)
	if err != nil {
		return Usage{}, err
	}

	day := t.Today()
	ctx, span := t.tracer.Start(ctx, "quota.GetUsage", trace.WithAttributes(
		attribute.String("quota.user_id", userID),
		attribute.String("quota.day", string(day)),
	))
	defer span.End()

	var (
		rec   Record
		found bool
	)
	err = t.retry.run(ctx, "load", t.metrics.IncStoreRetry, func(ctx context.Context) error {
		var err error
		rec, found, err = t.store.Load(ctx, userID)
		return err
	})
	if err != nil {
		return Usage{}, t.unavailable(span, "load", userID, err)
	}

	count := 0
	if found && rec.Day == day {
		count = rec.Count
	}
	return Usage{
		Count:     count,
		Limit:     t.limit,
		Remaining: remaining(t.limit, count),
		Day:       day,
	}, nil
}

// Ping 檢查儲存是否可用
func (t *Tracker) Ping(ctx context.Context) error {
	return t.store.Ping(ctx)
}

func (t *Tracker) unavailable(span trace.Span, op, userID string, err error) error {
	// 輸入錯誤原樣返回
	if isPermanent(err) {
		span.SetStatus(codes.Error, err.Error())
		return err
	}

	t.metrics.IncStoreFailure()
	t.metrics.ObserveQuotaDecision(monitoring.OutcomeUnavailable)
	span.RecordError(err)
	span.SetStatus(codes.Error, "quota store unavailable")

	common.LogError("額度儲存不可用",
		zap.String("op", op),
		zap.String("user_id", userID),
		zap.Bool("deadline_exceeded", errors.Is(err, context.DeadlineExceeded)),
		zap.Error(err),
	)
	return common.NewQuotaStoreUnavailableError(fmt.Errorf("%s: %w", op, err))
}

func normalizeUserID(userID string) (string, error) {
	userID = strings.TrimSpace(userID)
	if userID == "" {
		return "", common.NewInvalidRequestError("user id is required")
	}
	return userID, nil
}
