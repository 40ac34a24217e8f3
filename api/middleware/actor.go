package middleware

import (
	"net/http"
	"strings"

	"github.com/angelmondragon/tillbook-backend/api/responses"
	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
	"github.com/angelmondragon/tillbook-backend/pkg/logger"
)

const (
	actorIDHeader = "X-Actor-Id"
	maxActorIDLen = 64
)

// Actor trusts the upstream gateway's X-Actor-Id header and seeds the request
// context and log fields with it. Requests without an actor are rejected.
func Actor(logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			actorID := strings.TrimSpace(r.Header.Get(actorIDHeader))
			if actorID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header required"))
				return
			}
			if len(actorID) > maxActorIDLen {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeValidation, "X-Actor-Id header too long").
					WithDetails(map[string]any{"max": maxActorIDLen}))
				return
			}

			ctx := WithActorID(r.Context(), actorID)
			if logg != nil {
				ctx = logg.WithActorID(ctx, actorID)
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
