package usecases

import (
	"context"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"dmcheckout/internal/testutil"
)

func TestRegisterAndLogin(t *testing.T) {
	store := testutil.NewStore()
	auth := NewAuthUsecase(store.Users(), "test-secret")
	ctx := context.Background()

	require.NoError(t, auth.Register(ctx, "ana", "hunter22"))
	assert.Equal(t, ErrorConflict, CodeOf(auth.Register(ctx, "ana", "other")))

	token, err := auth.Login(ctx, "ana", "hunter22")
	require.NoError(t, err)

	parsed, err := jwt.Parse(token, func(*jwt.Token) (interface{}, error) {
		return []byte("test-secret"), nil
	}, jwt.WithValidMethods([]string{"HS256"}))
	require.NoError(t, err)
	claims := parsed.Claims.(jwt.MapClaims)
	assert.Equal(t, "operator", claims["role"])

	_, err = auth.Login(ctx, "ana", "wrong")
	assert.Equal(t, ErrorUnauthorized, CodeOf(err))

	_, err = auth.Login(ctx, "nobody", "hunter22")
	assert.Equal(t, ErrorUnauthorized, CodeOf(err))
}

func TestEnsureAdminIsIdempotent(t *testing.T) {
	store := testutil.NewStore()
	auth := NewAuthUsecase(store.Users(), "s")
	ctx := context.Background()

	require.NoError(t, auth.EnsureAdmin(ctx, "admin", "pw"))
	require.NoError(t, auth.EnsureAdmin(ctx, "admin", "changed"))

	// the original password still works
	_, err := auth.Login(ctx, "admin", "pw")
	assert.NoError(t, err)

	u, err := store.Users().GetByUsername(ctx, "admin")
	require.NoError(t, err)
	assert.Equal(t, "admin", u.Role)
}
