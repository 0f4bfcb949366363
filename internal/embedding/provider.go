package embedding

import (
	"context"
	"errors"
	"fmt"
)

// Provider embeds text into a fixed-length float vector.
//
// Implementations must be deterministic for the same input text and model.
type Provider interface {
	Embed(ctx context.Context, text string) ([]float64, error)
}

// ProviderError reports a failed call to the embedding provider. Retryable
// distinguishes transient failures (rate limits, server errors, transport
// errors) from permanent ones (bad request, auth).
type ProviderError struct {
	Op        string
	Status    int
	Retryable bool
	Err       error
}

func (e *ProviderError) Error() string {
	if e.Status > 0 {
		return fmt.Sprintf("embedding %s: HTTP %d: %v", e.Op, e.Status, e.Err)
	}
	return fmt.Sprintf("embedding %s: %v", e.Op, e.Err)
}

func (e *ProviderError) Unwrap() error {
	return e.Err
}

// IsRetryable reports whether err is a transient provider failure.
func IsRetryable(err error) bool {
	var provErr *ProviderError
	if errors.As(err, &provErr) {
		return provErr.Retryable
	}
	return false
}
