// Package kit holds the thin transport glue shared by the HTTP and MCP
// surfaces: context accessors for request-scoped identity and the endpoint
// adapter that registers a typed handler as an MCP tool.
package kit

import "context"

type contextKey string

const (
	// UserIDKey scopes every store call to the authenticated user.
	UserIDKey contextKey = "kit_user_id"

	// TransportKey records which surface a call arrived on ("http", "mcp").
	TransportKey contextKey = "kit_transport"
)

// Endpoint is a transport-agnostic handler: typed request in, typed
// response out. Both the HTTP handlers and the MCP tools decode into the
// same endpoints, so business logic never sees a transport.
type Endpoint func(ctx context.Context, req any) (any, error)

func WithUserID(ctx context.Context, id string) context.Context {
	return context.WithValue(ctx, UserIDKey, id)
}

func GetUserID(ctx context.Context) string {
	v, _ := ctx.Value(UserIDKey).(string)
	return v
}

func WithTransport(ctx context.Context, t string) context.Context {
	return context.WithValue(ctx, TransportKey, t)
}

func GetTransport(ctx context.Context) string {
	if v, ok := ctx.Value(TransportKey).(string); ok {
		return v
	}
	return "http"
}
