package auth

import (
	"testing"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"

	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
)

func TestRequireActor(t *testing.T) {
	err := RequireActor(Actor{})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	err = RequireActor(Actor{UserID: uuid.New(), Role: "owner"})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))

	assert.NoError(t, RequireActor(Actor{UserID: uuid.New(), Role: enums.StaffRoleCashier}))
}

func TestActorFromClaims(t *testing.T) {
	id := uuid.New()
	actor := ActorFromClaims(&AccessTokenClaims{UserID: id, Role: enums.StaffRoleAdmin})
	assert.Equal(t, id, actor.UserID)
	assert.Equal(t, enums.StaffRoleAdmin, actor.Role)
	assert.False(t, ActorFromClaims(nil).Authenticated())
}
