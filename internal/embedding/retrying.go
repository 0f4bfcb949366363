package embedding

import (
	"context"

	"github.com/ARedaUni/teloshousemeet/internal/retry"
)

// Retrying wraps a provider with the exponential backoff policy. Only
// transient provider errors are retried.
type Retrying struct {
	inner  Provider
	policy retry.Policy
}

// WithRetry creates a retrying decorator around inner.
func WithRetry(inner Provider, policy retry.Policy) *Retrying {
	policy.Retryable = IsRetryable
	return &Retrying{inner: inner, policy: policy}
}

func (r *Retrying) Embed(ctx context.Context, text string) ([]float64, error) {
	return retry.Do(ctx, r.policy, func(ctx context.Context) ([]float64, error) {
		return r.inner.Embed(ctx, text)
	})
}
