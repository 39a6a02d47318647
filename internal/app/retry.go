package app

import (
	"context"
	"errors"
	"time"

	"github.com/Freeeeeet/slot_swap/internal/service"
	"github.com/sethvargo/go-retry"
)

// RetryOnConflict повторяет fn, пока она возвращает service.ErrStateConflict.
// Транзакция, отменённая конфликтом, ничего не записала, поэтому повтор безопасен.
// Остальные ошибки возвращаются сразу.
func RetryOnConflict(ctx context.Context, retries uint64, fn func(ctx context.Context) error) error {
	backoff := retry.NewExponential(20 * time.Millisecond)
	backoff = retry.WithCappedDuration(time.Second, backoff)
	backoff = retry.WithJitterPercent(20, backoff)
	backoff = retry.WithMaxRetries(retries, backoff)

	return retry.Do(ctx, backoff, func(ctx context.Context) error {
		err := fn(ctx)
		if errors.Is(err, service.ErrStateConflict) {
			return retry.RetryableError(err)
		}
		return err
	})
}
