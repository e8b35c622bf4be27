package middleware

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// DefaultIdentity is used when a request carries no usable address at all.
const DefaultIdentity = "127.0.0.1"

// ClientIdentity resolves the opaque caller identity used for rate limiting.
// Proxy headers win over the socket address: first X-Forwarded-For hop, then X-Real-IP.
func ClientIdentity(r *http.Request) string {
	if fwd := r.Header.Get("X-Forwarded-For"); fwd != "" {
		first, _, _ := strings.Cut(fwd, ",")
		if first = strings.TrimSpace(first); first != "" {
			return first
		}
	}
	if real := strings.TrimSpace(r.Header.Get("X-Real-IP")); real != "" {
		return real
	}
	if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil && host != "" {
		return host
	}
	if r.RemoteAddr != "" {
		return r.RemoteAddr
	}
	return DefaultIdentity
}

// Identity stores the resolved client identity on the request context.
func Identity(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := WithIdentity(r.Context(), ClientIdentity(r))
		next.ServeHTTP(w, r.WithContext(ctx))
	})
}

func GetIdentity(ctx context.Context) string {
	if id, ok := ctx.Value(IdentityKey).(string); ok && id != "" {
		return id
	}
	return DefaultIdentity
}

func WithIdentity(ctx context.Context, identity string) context.Context {
	return context.WithValue(ctx, IdentityKey, identity)
}
