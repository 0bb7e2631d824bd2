package middleware

import (
	"context"
	"net/http"

	"github.com/angelmondragon/storefront-engine/api/responses"
	"github.com/angelmondragon/storefront-engine/internal/session"
	pkgerrors "github.com/angelmondragon/storefront-engine/pkg/errors"
	"github.com/angelmondragon/storefront-engine/pkg/logger"
)

// SessionHeader carries the storefront session id in both directions.
const SessionHeader = "X-Session-Id"

type SessionProvider interface {
	Get(ctx context.Context, id string) *session.Session
}

// Session resolves the caller's session, creating one when the header is
// absent or unknown, and echoes its id back on the response.
func Session(sessions SessionProvider, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if sessions == nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeInternal, "session manager unavailable"))
				return
			}

			s := sessions.Get(r.Context(), r.Header.Get(SessionHeader))
			w.Header().Set(SessionHeader, s.ID())

			ctx := WithSession(r.Context(), s)
			if logg != nil {
				ctx = logg.WithSessionID(ctx, s.ID())
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
