package client

import "context"

type ctxKey string

const ctxKeySession ctxKey = "session"

// WithSession attaches the end user's Cookie header value; every API call made with the
// returned context forwards it.
func WithSession(ctx context.Context, cookie string) context.Context {
	return context.WithValue(ctx, ctxKeySession, cookie)
}

func SessionFromContext(ctx context.Context) string {
	if v := ctx.Value(ctxKeySession); v != nil {
		if s, ok := v.(string); ok {
			return s
		}
	}
	return ""
}
