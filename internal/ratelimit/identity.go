package ratelimit

import (
	"context"
	"net"
	"net/http"
	"strings"
)

// Identity names the caller a counter belongs to, e.g. "user:42" or "guest:10.0.0.1".
type Identity string

// UserIdentity is the identity of an authenticated user.
func UserIdentity(userID string) Identity { return Identity("user:" + userID) }

// GuestIdentity is the identity of an anonymous caller.
func GuestIdentity(ip string) Identity { return Identity("guest:" + ip) }

type userKey struct{}

// WithUserID marks the request context as authenticated. Authentication itself
// happens upstream.
func WithUserID(ctx context.Context, userID string) context.Context {
	return context.WithValue(ctx, userKey{}, userID)
}

// UserIDFrom returns the authenticated user id, if any.
func UserIDFrom(ctx context.Context) (string, bool) {
	id, ok := ctx.Value(userKey{}).(string)
	return id, ok && id != ""
}

// IdentityFromRequest resolves the caller's identity: the authenticated user,
// else the first X-Forwarded-For entry, else the remote address, else 0.0.0.0.
func IdentityFromRequest(r *http.Request) Identity {
	if id, ok := UserIDFrom(r.Context()); ok {
		return UserIdentity(id)
	}
	return GuestIdentity(ClientIP(r))
}

// ClientIP extracts the caller address used for guest identities.
func ClientIP(r *http.Request) string {
	if xff := r.Header.Get("X-Forwarded-For"); xff != "" {
		if ip := strings.TrimSpace(strings.Split(xff, ",")[0]); ip != "" {
			return ip
		}
	}
	if r.RemoteAddr != "" {
		if host, _, err := net.SplitHostPort(r.RemoteAddr); err == nil {
			return host
		}
		return r.RemoteAddr
	}
	return "0.0.0.0"
}
