package store

import (
	"context"
	"errors"
	"testing"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"oversee-cli/internal/model"
)

func TestSession_SaveLoadClear(t *testing.T) {
	t.Parallel()

	ctx := context.Background()
	s := Store{Dir: t.TempDir()}

	_, err := s.LoadSession(ctx)
	require.True(t, errors.Is(err, ErrNoSession))
	tok, err := s.Token(ctx)
	require.NoError(t, err)
	assert.Empty(t, tok)

	require.NoError(t, s.SaveSession(ctx, Session{Token: "abc", User: model.User{ID: "008", Name: "Ana"}}))
	require.NoError(t, s.SetBranch(ctx, model.Branch{Code: "1", Name: "Matriz"}))

	sess, err := s.LoadSession(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", sess.Token)
	assert.Equal(t, model.User{ID: "008", Name: "Ana"}, sess.User)
	assert.Equal(t, model.Branch{Code: "1", Name: "Matriz"}, sess.Branch)
	assert.True(t, sess.HasBranch())
	assert.False(t, sess.UpdatedAt.IsZero())

	tok, err = s.Token(ctx)
	require.NoError(t, err)
	assert.Equal(t, "abc", tok)

	require.NoError(t, s.ClearSession(ctx))
	_, err = s.LoadSession(ctx)
	assert.ErrorIs(t, err, ErrNoSession)
	assert.ErrorIs(t, s.SetBranch(ctx, model.Branch{Code: "2"}), ErrNoSession)
}

func TestSaveSession_RequiresToken(t *testing.T) {
	t.Parallel()

	err := Store{Dir: t.TempDir()}.SaveSession(context.Background(), Session{})
	assert.Error(t, err)
}

func sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	s, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString([]byte("test-secret"))
	require.NoError(t, err)
	return s
}

func TestUserFromToken(t *testing.T) {
	t.Parallel()

	u, err := UserFromToken(sign(t, jwt.MapClaims{"cd_usu": "008", "nome": "Ana Souza", "sub": "ignored"}))
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "008", Name: "Ana Souza"}, u)

	u, err = UserFromToken(sign(t, jwt.MapClaims{"sub": "42", "name": "Bruno"}))
	require.NoError(t, err)
	assert.Equal(t, model.User{ID: "42", Name: "Bruno"}, u)

	u, err = UserFromToken(sign(t, jwt.MapClaims{"cd_usu": float64(7)}))
	require.NoError(t, err)
	assert.Equal(t, "7", u.ID)

	_, err = UserFromToken(sign(t, jwt.MapClaims{"nome": "Sem id"}))
	assert.Error(t, err)
	_, err = UserFromToken("not-a-jwt")
	assert.Error(t, err)
}
