package httpmiddleware

import (
	"context"
	"net/http"
	"time"

	"github.com/go-faster/sdk/zctx"
	"github.com/google/uuid"
	"go.uber.org/zap"
)

// SessionCookie is the cookie holding the session identifier.
const SessionCookie = "sid"

type sessionKey struct{}

// SessionFromContext returns the session identifier set by Session, or "".
func SessionFromContext(ctx context.Context) string {
	if id, ok := ctx.Value(sessionKey{}).(string); ok {
		return id
	}
	return ""
}

// SessionConfig configures the session cookie.
type SessionConfig struct {
	// TTL is the cookie lifetime. Zero issues a browser-session cookie.
	TTL    time.Duration
	Secure bool
}

// Session reads the session cookie, issuing a new UUID when it is missing or
// malformed. The identifier is stored in the context and the logger.
func Session(cfg SessionConfig) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id := ""
			if c, err := r.Cookie(SessionCookie); err == nil {
				if parsed, err := uuid.Parse(c.Value); err == nil {
					id = parsed.String()
				}
			}
			if id == "" {
				id = uuid.NewString()
			}

			// Refresh on every response so the expiry slides with activity.
			cookie := &http.Cookie{
				Name:     SessionCookie,
				Value:    id,
				Path:     "/",
				HttpOnly: true,
				Secure:   cfg.Secure,
				SameSite: http.SameSiteLaxMode,
			}
			if cfg.TTL > 0 {
				cookie.MaxAge = int(cfg.TTL.Seconds())
			}
			http.SetCookie(w, cookie)

			ctx := context.WithValue(r.Context(), sessionKey{}, id)
			ctx = zctx.With(ctx, zap.String("session", id))
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
