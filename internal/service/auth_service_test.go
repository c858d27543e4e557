package service

import (
	"context"
	"testing"

	"stocklink/internal/config"
	"stocklink/internal/dto"
	"stocklink/internal/model"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"gorm.io/gorm"
)

type stubUserRepo struct {
	users map[string]*model.User
}

func (r *stubUserRepo) Create(_ context.Context, u *model.User) error {
	if u.ID == uuid.Nil {
		u.ID = uuid.New()
	}
	r.users[u.Username] = u
	return nil
}

func (r *stubUserRepo) FindByID(_ context.Context, id uuid.UUID) (*model.User, error) {
	for _, u := range r.users {
		if u.ID == id {
			return u, nil
		}
	}
	return nil, gorm.ErrRecordNotFound
}

func (r *stubUserRepo) FindByUsername(_ context.Context, username string) (*model.User, error) {
	u, ok := r.users[username]
	if !ok || !u.Active {
		return nil, gorm.ErrRecordNotFound
	}
	return u, nil
}

func authFixture(t *testing.T) (AuthService, *stubUserRepo) {
	repo := &stubUserRepo{users: make(map[string]*model.User)}
	cfg := &config.Config{
		JWTSecret:          "test_jwt_secret_32_chars_minimum!",
		JWTExpirationHours: 8,
		JWTRefreshHours:    720,
	}
	svc := NewAuthService(repo, cfg)
	_, err := svc.CreateUser(context.Background(), "boss", "The Boss", "correct-horse", model.RoleAdmin)
	require.NoError(t, err)
	return svc, repo
}

func TestLoginIssuesTokenPair(t *testing.T) {
	svc, _ := authFixture(t)

	resp, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "boss", Password: "correct-horse",
	})
	require.NoError(t, err)

	assert.NotEmpty(t, resp.AccessToken)
	assert.NotEmpty(t, resp.RefreshToken)
	assert.Equal(t, "bearer", resp.TokenType)
	assert.Equal(t, 8*3600, resp.ExpiresIn)
	assert.Equal(t, model.RoleAdmin, resp.User.Role)
}

func TestLoginRejectsBadPassword(t *testing.T) {
	svc, _ := authFixture(t)

	_, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "boss", Password: "nope",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)

	_, err = svc.Login(context.Background(), dto.LoginRequest{
		Username: "ghost", Password: "correct-horse",
	})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestRefreshRotatesTokens(t *testing.T) {
	svc, repo := authFixture(t)

	login, err := svc.Login(context.Background(), dto.LoginRequest{
		Username: "boss", Password: "correct-horse",
	})
	require.NoError(t, err)

	refreshed, err := svc.Refresh(context.Background(), login.RefreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, refreshed.AccessToken)
	assert.Equal(t, "boss", refreshed.User.Username)

	// Deactivated users cannot refresh
	repo.users["boss"].Active = false
	_, err = svc.Refresh(context.Background(), login.RefreshToken)
	assert.Error(t, err)
}

func TestRefreshRejectsGarbage(t *testing.T) {
	svc, _ := authFixture(t)
	_, err := svc.Refresh(context.Background(), "not-a-token")
	assert.Error(t, err)
}
