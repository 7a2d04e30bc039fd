package service

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/domain"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/internal/repository"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/hash"
	"github.com/TsaiTripPlanner/TripPlanner-sub000/pkg/jwt"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type mockUserRepository struct {
	users  map[string]*domain.User
	nextID int
}

func newMockUserRepository() *mockUserRepository {
	return &mockUserRepository{users: make(map[string]*domain.User)}
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	for _, u := range m.users {
		if u.Email == user.Email || u.Username == user.Username {
			return repository.ErrUserExists
		}
	}
	if user.ID == "" {
		m.nextID++
		user.ID = fmt.Sprintf("user-%d", m.nextID)
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func (m *mockUserRepository) FindByEmail(ctx context.Context, email string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Email == email {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByID(ctx context.Context, id string) (*domain.User, error) {
	if u, ok := m.users[id]; ok {
		found := *u
		return &found, nil
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) FindByUsername(ctx context.Context, username string) (*domain.User, error) {
	for _, u := range m.users {
		if u.Username == username {
			found := *u
			return &found, nil
		}
	}
	return nil, repository.ErrUserNotFound
}

func (m *mockUserRepository) Update(ctx context.Context, user *domain.User) error {
	if _, ok := m.users[user.ID]; !ok {
		return repository.ErrUserNotFound
	}
	stored := *user
	m.users[user.ID] = &stored
	return nil
}

func TestAuthService_Register(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewAuthService(repo, "test-secret", 15*time.Minute, 7*24*time.Hour)
	ctx := context.Background()

	existing, err := hash.Hash("ExistingPass123!")
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "existing", Username: "existinguser", Email: "existing@example.com", PasswordHash: existing}))

	tests := []struct {
		name    string
		req     *domain.RegisterRequest
		wantErr error
	}{
		{
			name: "successful registration",
			req:  &domain.RegisterRequest{Username: "newuser", Email: "New@Example.com", Password: "Password123!", HomeCurrency: "twd"},
		},
		{
			name:    "duplicate email",
			req:     &domain.RegisterRequest{Username: "another", Email: "existing@example.com", Password: "Password123!"},
			wantErr: ErrConflict,
		},
		{
			name:    "duplicate username",
			req:     &domain.RegisterRequest{Username: "existinguser", Email: "unique@example.com", Password: "Password123!"},
			wantErr: ErrConflict,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			user, err := svc.Register(ctx, tt.req)
			if tt.wantErr != nil {
				assert.ErrorIs(t, err, tt.wantErr)
				return
			}
			require.NoError(t, err)
			assert.Empty(t, user.PasswordHash)
			assert.Equal(t, "new@example.com", user.Email)
			assert.Equal(t, "TWD", user.HomeCurrency)

			stored, err := repo.FindByEmail(ctx, "new@example.com")
			require.NoError(t, err)
			assert.NoError(t, hash.Compare(stored.PasswordHash, "Password123!"))
		})
	}

	t.Run("weak password", func(t *testing.T) {
		_, err := svc.Register(ctx, &domain.RegisterRequest{Username: "weak", Email: "weak@example.com", Password: "weak"})
		var verr *ValidationError
		require.ErrorAs(t, err, &verr)
		assert.Equal(t, "password", verr.Field)
	})
}

func TestAuthService_Login(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewAuthService(repo, "test-secret-key", 15*time.Minute, 7*24*time.Hour)
	ctx := context.Background()

	const password = "UserPassword123!"
	hashed, err := hash.Hash(password)
	require.NoError(t, err)
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "test-user-id", Username: "testuser", Email: "test@example.com", PasswordHash: hashed}))

	resp, err := svc.Login(ctx, &domain.LoginRequest{Email: "Test@example.com", Password: password})
	require.NoError(t, err)
	assert.Equal(t, "test-user-id", resp.User.ID)
	assert.Empty(t, resp.User.PasswordHash)
	assert.Equal(t, int64(900), resp.ExpiresIn)

	claims, err := svc.ValidateToken(resp.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, "test-user-id", claims.UserID)

	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "test@example.com", Password: "WrongPassword"})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
	_, err = svc.Login(ctx, &domain.LoginRequest{Email: "nobody@example.com", Password: password})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestAuthService_RefreshToken(t *testing.T) {
	repo := newMockUserRepository()
	const secret = "refresh-secret"
	svc := NewAuthService(repo, secret, 15*time.Minute, 7*24*time.Hour)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "u1", Username: "u1", Email: "u1@example.com"}))

	refresh, err := jwt.GenerateRefreshToken("u1", time.Hour, secret)
	require.NoError(t, err)
	resp, err := svc.RefreshToken(ctx, &domain.RefreshTokenRequest{RefreshToken: refresh})
	require.NoError(t, err)
	assert.NotEmpty(t, resp.AccessToken)

	access, err := jwt.GenerateToken("u1", time.Hour, secret)
	require.NoError(t, err)
	_, err = svc.RefreshToken(ctx, &domain.RefreshTokenRequest{RefreshToken: access})
	assert.ErrorIs(t, err, ErrInvalidCredentials, "access tokens cannot refresh")

	orphan, err := jwt.GenerateRefreshToken("deleted-user", time.Hour, secret)
	require.NoError(t, err)
	_, err = svc.RefreshToken(ctx, &domain.RefreshTokenRequest{RefreshToken: orphan})
	assert.ErrorIs(t, err, ErrInvalidCredentials)
}

func TestUserService_UpdateProfile(t *testing.T) {
	repo := newMockUserRepository()
	svc := NewUserService(repo)
	ctx := context.Background()
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "a", Username: "alice", Email: "a@example.com", PasswordHash: "h"}))
	require.NoError(t, repo.Create(ctx, &domain.User{ID: "b", Username: "bob", Email: "b@example.com"}))

	currency := "eur"
	user, err := svc.UpdateProfile(ctx, "a", &domain.UpdateProfileRequest{HomeCurrency: &currency})
	require.NoError(t, err)
	assert.Equal(t, "EUR", user.HomeCurrency)
	assert.Empty(t, user.PasswordHash)

	taken := "bob"
	_, err = svc.UpdateProfile(ctx, "a", &domain.UpdateProfileRequest{Username: &taken})
	var verr *ValidationError
	assert.ErrorAs(t, err, &verr)

	_, err = svc.GetByID(ctx, "missing")
	assert.ErrorIs(t, err, ErrNotFound)
}
