package auth

import (
	"github.com/google/uuid"

	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
)

// Actor is the authenticated caller passed explicitly into catalog and sale
// operations.
type Actor struct {
	UserID uuid.UUID
	Role   enums.StaffRole
}

// ActorFromClaims builds the caller identity from a verified access token.
func ActorFromClaims(claims *AccessTokenClaims) Actor {
	if claims == nil {
		return Actor{}
	}
	return Actor{UserID: claims.UserID, Role: claims.Role}
}

func (a Actor) Authenticated() bool {
	return a.UserID != uuid.Nil && a.Role.IsValid()
}

// RequireActor rejects the zero Actor.
func RequireActor(a Actor) error {
	if !a.Authenticated() {
		return pkgerrors.New(pkgerrors.CodeUnauthorized, "authentication required")
	}
	return nil
}
