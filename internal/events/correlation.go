package events

import "context"

type correlationKey struct{}

// WithCorrelationID tags ctx so notifications published under it carry id
// back to the request that caused them.
func WithCorrelationID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, correlationKey{}, id)
}

func CorrelationID(ctx context.Context) string {
	id, _ := ctx.Value(correlationKey{}).(string)
	return id
}
