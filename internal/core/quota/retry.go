package quota

import (
	"context"
	"errors"
	"time"

	"recipe-modifier/internal/pkg/common"

	"github.com/cenkalti/backoff/v4"
)

// RetryPolicy 額度儲存的重試策略
type RetryPolicy struct {
	MaxRetries      int           // 首次嘗試之外的重試次數
	InitialInterval time.Duration // 第一次重試前的等待
	MaxInterval     time.Duration // 單次等待上限
	AttemptTimeout  time.Duration // 每次嘗試的逾時，0 表示不限制
}

// DefaultRetryPolicy 預設重試策略
func DefaultRetryPolicy() RetryPolicy {
	return RetryPolicy{
		MaxRetries:      3,
		InitialInterval: 100 * time.Millisecond,
		MaxInterval:     time.Second,
		AttemptTimeout:  2 * time.Second,
	}
}

func (p RetryPolicy) newBackOff(ctx context.Context) backoff.BackOffContext {
	exp := backoff.NewExponentialBackOff()
	if p.InitialInterval > 0 {
		exp.InitialInterval = p.InitialInterval
	}
	if p.MaxInterval > 0 {
		exp.MaxInterval = p.MaxInterval
	}
	exp.MaxElapsedTime = 0

	retries := p.MaxRetries
	if retries < 0 {
		retries = 0
	}
	return backoff.WithContext(backoff.WithMaxRetries(exp, uint64(retries)), ctx)
}

// run 執行 fn，暫時性錯誤依策略重試。輸入錯誤不重試。
func (p RetryPolicy) run(ctx context.Context, op string, onRetry func(), fn func(ctx context.Context) error) error {
	attempt := 0
	operation := func() error {
		attempt++
		attemptCtx := ctx
		if p.AttemptTimeout > 0 {
			var cancel context.CancelFunc
			attemptCtx, cancel = context.WithTimeout(ctx, p.AttemptTimeout)
			defer cancel()
		}

		err := fn(attemptCtx)
		if err == nil {
			return nil
		}
		if isPermanent(err) || IsNonRetryable(err) {
			return backoff.Permanent(err)
		}
		return err
	}

	notify := func(err error, wait time.Duration) {
		common.LogStoreRetry(op, attempt, wait, err)
		if onRetry != nil {
			onRetry()
		}
	}

	return backoff.RetryNotify(operation, p.newBackOff(ctx), notify)
}

// isPermanent 判斷錯誤是否不應重試
func isPermanent(err error) bool {
	return errors.Is(err, common.ErrInvalidRequest) || errors.Is(err, common.ErrInvalidRecipe)
}

// nonRetryableError 儲存明確拒絕的請求（例如認證失敗），重試無效但仍視為儲存不可用
type nonRetryableError struct {
	err error
}

func (e *nonRetryableError) Error() string {
	return e.err.Error()
}

func (e *nonRetryableError) Unwrap() error {
	return e.err
}

// NonRetryable 標記儲存錯誤不需重試
func NonRetryable(err error) error {
	if err == nil {
		return nil
	}
	return &nonRetryableError{err: err}
}

// IsNonRetryable 判斷儲存錯誤是否已標記為不需重試
func IsNonRetryable(err error) bool {
	var nr *nonRetryableError
	return errors.As(err, &nr)
}
