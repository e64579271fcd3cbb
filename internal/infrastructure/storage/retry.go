package storage

import (
	"context"
	"math/rand/v2"
	"time"

	"github.com/pkoster/beleghub/internal/core/domain"
	"github.com/pkoster/beleghub/internal/core/ports"
)

// RetryPolicy controls the direct-to-primary upload executor. OnRetry,
// when set, is called once per retried attempt.
type RetryPolicy struct {
	MaxRetries int
	BaseDelay  time.Duration
	OnRetry    func()
}

func (p RetryPolicy) normalized() RetryPolicy {
	if p.MaxRetries <= 0 {
		p.MaxRetries = 3
	}
	if p.BaseDelay <= 0 {
		p.BaseDelay = 400 * time.Millisecond
	}
	return p
}

const retryJitterMax = 150 * time.Millisecond

// UploadWithRetry performs the byte transfer against one backend.
// Cancellation is checked before every attempt and aborts the backoff
// sleep; it surfaces as domain.ErrCanceled and is never retried.
// Non-transient errors and retry exhaustion return immediately.
func UploadWithRetry(
	ctx context.Context,
	store ports.ObjectStore,
	bucket, path string,
	data []byte,
	contentType string,
	policy RetryPolicy,
) (string, error) {
	policy = policy.normalized()

	var lastErr error
	for attempt := 0; attempt < policy.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			return "", domain.WrapError(domain.ErrCanceled, "upload "+path, err)
		}

		publicURL, err := store.Upload(ctx, bucket, path, data, contentType)
		if err == nil {
			return publicURL, nil
		}
		if domain.IsCanceled(err) {
			return "", domain.WrapError(domain.ErrCanceled, "upload "+path, err)
		}
		lastErr = err
		if !IsTransient(err) || attempt == policy.MaxRetries-1 {
			return "", err
		}

		if policy.OnRetry != nil {
			policy.OnRetry()
		}
		wait := policy.BaseDelay*(1<<attempt) + time.Duration(rand.Int64N(int64(retryJitterMax)))
		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return "", domain.WrapError(domain.ErrCanceled, "upload "+path, ctx.Err())
		case <-timer.C:
		}
	}
	return "", lastErr
}
