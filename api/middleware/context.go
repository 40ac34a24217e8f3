package middleware

import (
	"context"

	pkgerrors "github.com/angelmondragon/tillbook-backend/pkg/errors"
)

type contextKey string

const ctxActorID contextKey = "actor_id"

// ActorIDFromContext returns the acting cashier or operator, if any.
func ActorIDFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxActorID).(string); ok {
		return v
	}
	return ""
}

// RequireActorID is ActorIDFromContext for handlers that write on behalf of
// the actor.
func RequireActorID(ctx context.Context) (string, error) {
	actorID := ActorIDFromContext(ctx)
	if actorID == "" {
		return "", pkgerrors.New(pkgerrors.CodeValidation, "actor id missing")
	}
	return actorID, nil
}

// WithActorID injects the actor identifier into the context.
func WithActorID(ctx context.Context, actorID string) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActorID, actorID)
}
