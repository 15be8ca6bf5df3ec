package staff

import (
	"context"
	"fmt"
	"sync"
	"testing"
	"time"

	redislib "github.com/redis/go-redis/v9"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	pkgauth "github.com/angelmondragon/pos-inventory-backend/pkg/auth"
	"github.com/angelmondragon/pos-inventory-backend/pkg/auth/session"
	"github.com/angelmondragon/pos-inventory-backend/pkg/config"
	"github.com/angelmondragon/pos-inventory-backend/pkg/db/dbtest"
	"github.com/angelmondragon/pos-inventory-backend/pkg/enums"
	pkgerrors "github.com/angelmondragon/pos-inventory-backend/pkg/errors"
)

type mapStore struct {
	mu   sync.Mutex
	data map[string]string
}

func (m *mapStore) Set(_ context.Context, key string, value any, _ time.Duration) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.data[key] = fmt.Sprint(value)
	return nil
}

func (m *mapStore) Get(_ context.Context, key string) (string, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	v, ok := m.data[key]
	if !ok {
		return "", redislib.Nil
	}
	return v, nil
}

func (m *mapStore) Del(_ context.Context, keys ...string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, k := range keys {
		delete(m.data, k)
	}
	return nil
}

func (m *mapStore) AccessSessionKey(id string) string { return "session:" + id }

var jwtCfg = config.JWTConfig{
	Secret:                 "test-secret",
	Issuer:                 "pos-test",
	ExpirationMinutes:      15,
	RefreshTokenTTLMinutes: 60,
}

var fastArgon = config.PasswordConfig{ArgonMemoryKB: 64, ArgonTime: 1, ArgonParallelism: 1, ArgonSaltLen: 16, ArgonKeyLen: 32}

func newTestService(t *testing.T) (Service, *session.Manager) {
	t.Helper()
	client := dbtest.NewClient(t)
	manager, err := session.NewManager(&mapStore{data: map[string]string{}}, jwtCfg)
	require.NoError(t, err)
	svc, err := NewService(ServiceParams{
		Repo:     NewRepository(client.DB()),
		Sessions: manager,
		JWT:      jwtCfg,
		Password: fastArgon,
	})
	require.NoError(t, err)
	return svc, manager
}

func seedCashier(t *testing.T, svc Service) *StaffDTO {
	t.Helper()
	user, err := svc.CreateStaff(context.Background(), CreateStaffInput{
		Email:    " Till@Example.com ",
		Name:     "Till One",
		Password: "correct horse",
		Role:     enums.StaffRoleCashier,
	})
	require.NoError(t, err)
	return user
}

func TestLoginIssuesTokensAndSession(t *testing.T) {
	svc, manager := newTestService(t)
	user := seedCashier(t, svc)
	assert.Equal(t, "till@example.com", user.Email)

	resp, err := svc.Login(context.Background(), LoginRequest{Email: "TILL@example.com", Password: "correct horse"})
	require.NoError(t, err)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 15*60, resp.ExpiresIn)
	assert.NotEmpty(t, resp.RefreshToken)
	require.NotNil(t, resp.User)
	assert.NotNil(t, resp.User.LastLoginAt)

	claims, err := pkgauth.ParseAccessToken(jwtCfg, resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, user.ID, claims.UserID)
	assert.Equal(t, enums.StaffRoleCashier, claims.Role)

	ok, err := manager.HasSession(context.Background(), claims.ID)
	require.NoError(t, err)
	assert.True(t, ok)
}

func TestLoginRejectsBadCredentials(t *testing.T) {
	svc, _ := newTestService(t)
	seedCashier(t, svc)

	for _, req := range []LoginRequest{
		{Email: "till@example.com", Password: "wrong"},
		{Email: "nobody@example.com", Password: "correct horse"},
		{Email: " ", Password: "x"},
	} {
		_, err := svc.Login(context.Background(), req)
		typed := pkgerrors.As(err)
		require.NotNil(t, typed)
		assert.Equal(t, pkgerrors.CodeUnauthorized, typed.Code())
		assert.Equal(t, invalidCredentialsMessage, typed.Message())
	}
}

func TestRefreshRotatesSessionOnce(t *testing.T) {
	svc, manager := newTestService(t)
	seedCashier(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "till@example.com", Password: "correct horse"})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, login.RefreshToken, refreshed.RefreshToken)
	assert.Nil(t, refreshed.User)

	oldClaims, err := pkgauth.ParseAccessToken(jwtCfg, login.AccessToken)
	require.NoError(t, err)
	ok, err := manager.HasSession(ctx, oldClaims.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	_, err = svc.Refresh(ctx, login.AccessToken, login.RefreshToken)
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeUnauthorized))
}

func TestLogoutRevokesSession(t *testing.T) {
	svc, manager := newTestService(t)
	seedCashier(t, svc)
	ctx := context.Background()

	login, err := svc.Login(ctx, LoginRequest{Email: "till@example.com", Password: "correct horse"})
	require.NoError(t, err)
	require.NoError(t, svc.Logout(ctx, login.AccessToken))

	claims, err := pkgauth.ParseAccessToken(jwtCfg, login.AccessToken)
	require.NoError(t, err)
	ok, err := manager.HasSession(ctx, claims.ID)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, pkgerrors.IsCode(svc.Logout(ctx, "garbage"), pkgerrors.CodeUnauthorized))
}

func TestMeAndDuplicateEmail(t *testing.T) {
	svc, _ := newTestService(t)
	user := seedCashier(t, svc)

	me, err := svc.Me(context.Background(), user.ID)
	require.NoError(t, err)
	assert.Equal(t, "Till One", me.Name)

	_, err = svc.CreateStaff(context.Background(), CreateStaffInput{
		Email: "till@example.com", Name: "Again", Password: "another pass", Role: enums.StaffRoleAdmin,
	})
	assert.True(t, pkgerrors.IsCode(err, pkgerrors.CodeConflict))
}

func TestCreateStaffValidates(t *testing.T) {
	svc, _ := newTestService(t)
	_, err := svc.CreateStaff(context.Background(), CreateStaffInput{Email: "bad", Name: "", Password: "short", Role: "owner"})
	typed := pkgerrors.As(err)
	require.NotNil(t, typed)
	assert.Equal(t, pkgerrors.CodeValidation, typed.Code())
	details := typed.Details().(map[string]string)
	assert.Len(t, details, 4)
}
