package middleware

import (
	"context"

	pkgauth "github.com/angelmondragon/pos-inventory-backend/pkg/auth"
)

type contextKey string

const (
	ctxActor       contextKey = "actor"
	ctxAccessToken contextKey = "access_token"
)

// ActorFromContext returns the authenticated staff member, or the zero Actor.
func ActorFromContext(ctx context.Context) pkgauth.Actor {
	if ctx == nil {
		return pkgauth.Actor{}
	}
	if v, ok := ctx.Value(ctxActor).(pkgauth.Actor); ok {
		return v
	}
	return pkgauth.Actor{}
}

// WithActor injects the authenticated actor into the context.
func WithActor(ctx context.Context, actor pkgauth.Actor) context.Context {
	if ctx == nil {
		ctx = context.Background()
	}
	return context.WithValue(ctx, ctxActor, actor)
}

func AccessTokenFromContext(ctx context.Context) string {
	if ctx == nil {
		return ""
	}
	if v, ok := ctx.Value(ctxAccessToken).(string); ok {
		return v
	}
	return ""
}

func withAccessToken(ctx context.Context, token string) context.Context {
	return context.WithValue(ctx, ctxAccessToken, token)
}
