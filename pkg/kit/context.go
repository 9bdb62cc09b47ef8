package kit

import (
	"context"

	"github.com/google/uuid"
)

type contextKey string

const (
	TransportKey contextKey = "kit_transport" // "http", "mcp"
	RequestIDKey contextKey = "kit_request_id"
)

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}
func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}

func WithRequestID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, RequestIDKey, id)
}
func GetRequestID(ctx context.Context) string {
	v, _ := ctx.Value(RequestIDKey).(string)
	return v
}

// NewRequestID returns a random request identifier.
func NewRequestID() string {
	return uuid.NewString()
}
