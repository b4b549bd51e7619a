package billing

import (
	"context"
	"errors"
	"time"
)

// retryIdempotent runs fn up to attempts times, doubling the delay between
// tries up to a cap. Only transient processor failures are retried; any
// other error returns immediately. Callers must only pass idempotent
// operations such as status pulls; never checkout creation.
func retryIdempotent(ctx context.Context, attempts int, fn func() error) error {
	backoff := 500 * time.Millisecond
	const maxBackoff = 5 * time.Second

	var err error
	for i := range attempts {
		err = fn()
		if err == nil || !errors.Is(err, ErrRemoteTransient) {
			return err
		}
		if i == attempts-1 {
			break
		}
		select {
		case <-ctx.Done():
			return errors.Join(err, ctx.Err())
		case <-time.After(backoff):
		}
		backoff = min(backoff*2, maxBackoff)
	}
	return err
}

// classifyRemote tags context-level failures as transient so callers can
// branch with errors.Is(err, ErrRemoteTransient).
func classifyRemote(err error) error {
	if err == nil {
		return nil
	}
	if errors.Is(err, context.DeadlineExceeded) || errors.Is(err, context.Canceled) {
		return errors.Join(ErrRemoteTransient, err)
	}
	return err
}
