package middleware

import (
	"net/http"

	"github.com/angelmondragon/pos-inventory-backend/api/responses"
	"github.com/angelmondragon/pos-inventory-backend/api/validators"
	pkgauth "github.com/angelmondragon/pos-inventory-backend/pkg/auth"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
	"github.com/angelmondragon/pos-inventory-backend/pkg/logger"
)

// Auth validates a bearer token, checks its refresh session is still live and
// seeds the request context with the caller Actor.
func Auth(cfg config.JWTConfig, verifier session.AccessSessionChecker, logg *logger.Logger) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			token, err := validators.BearerToken(r)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, err)
				return
			}

			claims, err := pkgauth.ParseAccessToken(cfg, token)
			if err != nil {
				responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeUnauthorized, err, "invalid token"))
				return
			}

			if claims.ID == "" {
				responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "missing session id"))
				return
			}

			if verifier != nil {
				ok, err := verifier.HasSession(r.Context(), claims.ID)
				if err != nil {
					responses.WriteError(r.Context(), logg, w, pkgerrors.Wrap(pkgerrors.CodeDependency, err, "validate session"))
					return
				}
				if !ok {
					responses.WriteError(r.Context(), logg, w, pkgerrors.New(pkgerrors.CodeUnauthorized, "session unavailable"))
					return
				}
			}

			actor := pkgauth.ActorFromClaims(claims)
			ctx := WithActor(r.Context(), actor)
			ctx = withAccessToken(ctx, token)

			if logg != nil {
				ctx = logg.WithFields(ctx, map[string]any{
					"user_id": actor.UserID.String(),
					"role":    actor.Role.String(),
				})
			}

			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}
