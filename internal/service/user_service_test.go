package service

import (
	"context"
	"testing"

	"backend/internal/model"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func registerReq(username, email string) RegisterRequest {
	return RegisterRequest{
		Username: username,
		Email:    email,
		Phone:    "+31612345678",
		Password: "hunter22",
	}
}

func TestRegister(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	res, err := svc.Register(context.Background(), registerReq("anna", "anna@example.com"))
	require.NoError(t, err)

	assert.Equal(t, model.RoleClient, res.Role)
	assert.True(t, res.IsActive)
	assert.Equal(t, "anna", res.Username)
}

func TestRegisterRejectsDuplicates(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("anna", "anna@example.com"))
	require.NoError(t, err)

	_, err = svc.Register(ctx, registerReq("anna", "other@example.com"))
	assert.ErrorIs(t, err, ErrConflict)

	_, err = svc.Register(ctx, registerReq("bob", "anna@example.com"))
	assert.ErrorIs(t, err, ErrConflict)
}

func TestRegisterRejectsMalformedEmail(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	_, err := svc.Register(context.Background(), registerReq("anna", "not-an-email"))
	assert.ErrorIs(t, err, ErrValidation)
}

func TestCreateUserValidatesRole(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "mark",
		Email:    "mark@example.com",
		Phone:    "+31600000000",
		Password: "hunter22",
		Role:     "superuser",
	})
	assert.ErrorIs(t, err, ErrValidation)

	res, err := svc.CreateUser(ctx, CreateUserRequest{
		Username: "mark",
		Email:    "mark@example.com",
		Phone:    "+31600000000",
		Password: "hunter22",
		Role:     model.RoleTechnician,
	})
	require.NoError(t, err)
	assert.Equal(t, model.RoleTechnician, res.Role)
}

func TestLogin(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("anna", "anna@example.com"))
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "anna@example.com", Password: "hunter22"})
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.Token)
	assert.NotEmpty(t, tokens.RefreshToken)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "anna@example.com", Password: "wrong"})
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "nobody@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLoginRejectsDeactivatedAccount(t *testing.T) {
	repo := newFakeUserRepo()
	svc := NewUserService(repo)
	ctx := context.Background()

	res, err := svc.Register(ctx, registerReq("anna", "anna@example.com"))
	require.NoError(t, err)

	inactive := false
	_, err = svc.UpdateUser(ctx, res.ID.String(), UpdateUserRequest{IsActive: &inactive})
	require.NoError(t, err)

	_, err = svc.Login(ctx, LoginUserRequest{Email: "anna@example.com", Password: "hunter22"})
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestRefreshRotatesToken(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("anna", "anna@example.com"))
	require.NoError(t, err)

	first, err := svc.Login(ctx, LoginUserRequest{Email: "anna@example.com", Password: "hunter22"})
	require.NoError(t, err)

	second, err := svc.Refresh(ctx, first.RefreshToken)
	require.NoError(t, err)
	assert.NotEqual(t, first.RefreshToken, second.RefreshToken)

	// The old token is single-use.
	_, err = svc.Refresh(ctx, first.RefreshToken)
	assert.ErrorIs(t, err, ErrForbidden)

	_, err = svc.Refresh(ctx, second.RefreshToken)
	assert.NoError(t, err)
}

func TestRefreshRejectsUnknownToken(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	_, err := svc.Refresh(context.Background(), "deadbeef")
	assert.ErrorIs(t, err, ErrForbidden)
}

func TestLogoutInvalidatesToken(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())
	ctx := context.Background()

	_, err := svc.Register(ctx, registerReq("anna", "anna@example.com"))
	require.NoError(t, err)

	tokens, err := svc.Login(ctx, LoginUserRequest{Email: "anna@example.com", Password: "hunter22"})
	require.NoError(t, err)

	require.NoError(t, svc.Logout(ctx, tokens.RefreshToken))

	_, err = svc.Refresh(ctx, tokens.RefreshToken)
	assert.ErrorIs(t, err, ErrForbidden)

	// Logging out without a cookie is a no-op.
	assert.NoError(t, svc.Logout(ctx, ""))
}

func TestDeleteUserNotFound(t *testing.T) {
	svc := NewUserService(newFakeUserRepo())

	err := svc.DeleteUser(context.Background(), "b2c1ed1e-0000-4000-8000-000000000000")
	assert.ErrorIs(t, err, ErrNotFound)
}
