package debug

import (
	"context"

	"github.com/google/uuid"
)

// correlationKey is the context key for the request correlation id.
type correlationKey struct{}

// NewCorrelationID generates a short id, stable for one logical request.
func NewCorrelationID() string {
	return uuid.NewString()[:8]
}

// WithCorrelationID returns a context carrying a correlation id, generating
// one when the context has none, and the id itself. The id travels on the
// context explicitly: any goroutine spawned to serve the request must be
// handed a context derived from this one.
func WithCorrelationID(ctx context.Context) (context.Context, string) {
	if id := CorrelationID(ctx); id != "" {
		return ctx, id
	}
	id := NewCorrelationID()
	return context.WithValue(ctx, correlationKey{}, id), id
}

// CorrelationID returns the context's correlation id, or "" when absent.
func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
