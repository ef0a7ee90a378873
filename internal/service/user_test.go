package service

import (
	"context"
	"log/slog"
	"os"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"golang.org/x/crypto/bcrypt"

	"github.com/jfchinemerem/Threesixteen/internal/auth"
	"github.com/jfchinemerem/Threesixteen/internal/domain"
	"github.com/jfchinemerem/Threesixteen/internal/event"
	"github.com/jfchinemerem/Threesixteen/internal/repository"
	apperrors "github.com/jfchinemerem/Threesixteen/pkg/errors"
)

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) Update(ctx context.Context, id string, update repository.UserUpdate) error {
	args := m.Called(ctx, id, update)
	return args.Error(0)
}

func (m *mockUserRepository) UpdatePassword(ctx context.Context, id, passwordHash string) error {
	args := m.Called(ctx, id, passwordHash)
	return args.Error(0)
}

type mockRefreshTokenRepository struct {
	mock.Mock
}

func (m *mockRefreshTokenRepository) Create(ctx context.Context, t *domain.RefreshToken) error {
	args := m.Called(ctx, t)
	return args.Error(0)
}

func (m *mockRefreshTokenRepository) FindValid(ctx context.Context, tokenHash string) (*domain.RefreshToken, error) {
	args := m.Called(ctx, tokenHash)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.RefreshToken), args.Error(1)
}

func (m *mockRefreshTokenRepository) RevokeAllForUser(ctx context.Context, userID string) error {
	args := m.Called(ctx, userID)
	return args.Error(0)
}

type capturingPublisher struct {
	events []string
}

func (p *capturingPublisher) Publish(_ context.Context, eventType, _, _ string, _ any) error {
	p.events = append(p.events, eventType)
	return nil
}

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestJWTManager() *auth.JWTManager {
	return auth.NewJWTManager("test-secret-key-for-testing", 15*time.Minute, 7*24*time.Hour)
}

func newTestService(
	userRepo *mockUserRepository,
	refreshTokenRepo *mockRefreshTokenRepository,
) (*UserService, *capturingPublisher) {
	pub := &capturingPublisher{}
	svc := NewUserService(userRepo, refreshTokenRepo, newTestJWTManager(), pub, newTestLogger())
	return svc, pub
}

func strPtr(s string) *string {
	return &s
}

// hashForTest creates a bcrypt hash with cost 4 for fast tests.
func hashForTest(password string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(password), 4)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func TestRegister_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, pub := newTestService(userRepo, refreshTokenRepo)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Run(func(args mock.Arguments) {
			u := args.Get(1).(*domain.User)
			u.ID = "u-1"
			u.IsActive = true
		}).
		Return(nil)
	refreshTokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	user, tokens, err := svc.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "SecurePass123",
		FirstName: "Ada",
		LastName:  "Eze",
	})

	require.NoError(t, err)
	require.NotNil(t, user)
	require.NotNil(t, tokens)
	assert.Equal(t, "u-1", user.ID)
	assert.Equal(t, "ada@example.com", user.Email)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEmpty(t, tokens.RefreshToken)
	assert.NotEqual(t, "SecurePass123", user.PasswordHash)
	assert.Contains(t, pub.events, event.TypeUserRegistered)

	userRepo.AssertExpectations(t)
	refreshTokenRepo.AssertExpectations(t)
}

func TestRegister_DuplicateEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, pub := newTestService(userRepo, refreshTokenRepo)
	ctx := context.Background()

	userRepo.On("Create", ctx, mock.AnythingOfType("*domain.User")).
		Return(apperrors.AlreadyExists("user", "email", "ada@example.com"))

	user, tokens, err := svc.Register(ctx, RegisterInput{
		Email:     "ada@example.com",
		Password:  "SecurePass123",
		FirstName: "Ada",
		LastName:  "Eze",
	})

	assert.Nil(t, user)
	assert.Nil(t, tokens)
	assert.ErrorIs(t, err, apperrors.ErrAlreadyExists)
	assert.Empty(t, pub.events)
	userRepo.AssertExpectations(t)
}

func TestRegister_WeakPasswords(t *testing.T) {
	tests := []struct {
		name     string
		password string
	}{
		{"too short", "Ab1"},
		{"no uppercase", "securepass123"},
		{"no digit", "SecurePassword"},
		{"no lowercase", "SECUREPASS123"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			svc, _ := newTestService(new(mockUserRepository), new(mockRefreshTokenRepository))

			_, _, err := svc.Register(context.Background(), RegisterInput{
				Email:     "ada@example.com",
				Password:  tt.password,
				FirstName: "Ada",
				LastName:  "Eze",
			})
			assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
		})
	}
}

func TestRegister_MissingFields(t *testing.T) {
	svc, _ := newTestService(new(mockUserRepository), new(mockRefreshTokenRepository))

	_, _, err := svc.Register(context.Background(), RegisterInput{Password: "SecurePass123", FirstName: "Ada"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)

	_, _, err = svc.Register(context.Background(), RegisterInput{Email: "ada@example.com", Password: "SecurePass123"})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestLogin_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestService(userRepo, refreshTokenRepo)
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ada@example.com").Return(&domain.User{
		ID:           "u-1",
		Email:        "ada@example.com",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     true,
	}, nil)
	refreshTokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)

	user, tokens, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "SecurePass123"})

	require.NoError(t, err)
	assert.Equal(t, "u-1", user.ID)
	assert.NotEmpty(t, tokens.AccessToken)
	userRepo.AssertExpectations(t)
	refreshTokenRepo.AssertExpectations(t)
}

func TestLogin_WrongPassword(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ada@example.com").Return(&domain.User{
		ID:           "u-1",
		Email:        "ada@example.com",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     true,
	}, nil)

	_, _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "WrongPass123"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_UnknownEmail(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").
		Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	_, _, err := svc.Login(ctx, LoginInput{Email: "ghost@example.com", Password: "SecurePass123"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogin_DeactivatedAccount(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ada@example.com").Return(&domain.User{
		ID:           "u-1",
		Email:        "ada@example.com",
		PasswordHash: hashForTest("SecurePass123"),
		IsActive:     false,
	}, nil)

	_, _, err := svc.Login(ctx, LoginInput{Email: "ada@example.com", Password: "SecurePass123"})
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefreshToken_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestService(userRepo, refreshTokenRepo)
	ctx := context.Background()

	refreshToken, err := newTestJWTManager().GenerateRefreshToken("u-1")
	require.NoError(t, err)

	refreshTokenRepo.On("FindValid", ctx, hashToken(refreshToken)).
		Return(&domain.RefreshToken{ID: "rt-1", UserID: "u-1"}, nil)
	refreshTokenRepo.On("RevokeAllForUser", ctx, "u-1").Return(nil)
	refreshTokenRepo.On("Create", ctx, mock.AnythingOfType("*domain.RefreshToken")).Return(nil)
	userRepo.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Email: "ada@example.com", IsActive: true}, nil)

	tokens, err := svc.RefreshToken(ctx, refreshToken)
	require.NoError(t, err)
	assert.NotEmpty(t, tokens.AccessToken)
	assert.NotEqual(t, refreshToken, tokens.RefreshToken)
	refreshTokenRepo.AssertExpectations(t)
}

func TestRefreshToken_RevokedInStore(t *testing.T) {
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestService(new(mockUserRepository), refreshTokenRepo)
	ctx := context.Background()

	refreshToken, err := newTestJWTManager().GenerateRefreshToken("u-1")
	require.NoError(t, err)

	refreshTokenRepo.On("FindValid", ctx, hashToken(refreshToken)).
		Return(nil, apperrors.Unauthorized("refresh token is invalid or expired"))

	_, err = svc.RefreshToken(ctx, refreshToken)
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestRefreshToken_Garbage(t *testing.T) {
	svc, _ := newTestService(new(mockUserRepository), new(mockRefreshTokenRepository))

	_, err := svc.RefreshToken(context.Background(), "not-a-jwt")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestLogout(t *testing.T) {
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestService(new(mockUserRepository), refreshTokenRepo)
	ctx := context.Background()

	refreshTokenRepo.On("RevokeAllForUser", ctx, "u-1").Return(nil)

	require.NoError(t, svc.Logout(ctx, "u-1"))
	refreshTokenRepo.AssertExpectations(t)
}

func TestForgotPassword_PublishesResetEvent(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, pub := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ada@example.com").
		Return(&domain.User{ID: "u-1", Email: "ada@example.com", IsActive: true}, nil)

	require.NoError(t, svc.ForgotPassword(ctx, "ada@example.com"))
	assert.Contains(t, pub.events, event.TypePasswordReset)
}

func TestForgotPassword_UnknownEmailIsSilent(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, pub := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("GetByEmail", ctx, "ghost@example.com").
		Return(nil, apperrors.NotFound("user", "ghost@example.com"))

	require.NoError(t, svc.ForgotPassword(ctx, "ghost@example.com"))
	assert.Empty(t, pub.events)
}

func TestResetPassword_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestService(userRepo, refreshTokenRepo)
	ctx := context.Background()

	token, err := newTestJWTManager().GenerateRefreshToken("u-1")
	require.NoError(t, err)

	userRepo.On("UpdatePassword", ctx, "u-1", mock.AnythingOfType("string")).Return(nil)
	refreshTokenRepo.On("RevokeAllForUser", ctx, "u-1").Return(nil)

	require.NoError(t, svc.ResetPassword(ctx, token, "NewSecure123"))
	userRepo.AssertExpectations(t)
	refreshTokenRepo.AssertExpectations(t)
}

func TestResetPassword_BadToken(t *testing.T) {
	svc, _ := newTestService(new(mockUserRepository), new(mockRefreshTokenRepository))

	err := svc.ResetPassword(context.Background(), "garbage", "NewSecure123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestChangePassword_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	refreshTokenRepo := new(mockRefreshTokenRepository)
	svc, _ := newTestService(userRepo, refreshTokenRepo)
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "u-1").Return(&domain.User{
		ID:           "u-1",
		PasswordHash: hashForTest("OldSecure123"),
		IsActive:     true,
	}, nil)
	userRepo.On("UpdatePassword", ctx, "u-1", mock.AnythingOfType("string")).Return(nil)
	refreshTokenRepo.On("RevokeAllForUser", ctx, "u-1").Return(nil)

	require.NoError(t, svc.ChangePassword(ctx, "u-1", "OldSecure123", "NewSecure123"))
	userRepo.AssertExpectations(t)
	refreshTokenRepo.AssertExpectations(t)
}

func TestChangePassword_WrongCurrent(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("GetByID", ctx, "u-1").Return(&domain.User{
		ID:           "u-1",
		PasswordHash: hashForTest("OldSecure123"),
	}, nil)

	err := svc.ChangePassword(ctx, "u-1", "WrongOld123", "NewSecure123")
	assert.ErrorIs(t, err, apperrors.ErrUnauthorized)
}

func TestChangePassword_SameAsCurrent(t *testing.T) {
	svc, _ := newTestService(new(mockUserRepository), new(mockRefreshTokenRepository))

	err := svc.ChangePassword(context.Background(), "u-1", "Secure123x", "Secure123x")
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}

func TestUpdateProfile_Success(t *testing.T) {
	userRepo := new(mockUserRepository)
	svc, _ := newTestService(userRepo, new(mockRefreshTokenRepository))
	ctx := context.Background()

	userRepo.On("Update", ctx, "u-1", repository.UserUpdate{Phone: strPtr("+2348012345678")}).Return(nil)
	userRepo.On("GetByID", ctx, "u-1").Return(&domain.User{ID: "u-1", Phone: "+2348012345678"}, nil)

	user, err := svc.UpdateProfile(ctx, "u-1", UpdateProfileInput{Phone: strPtr("+2348012345678")})
	require.NoError(t, err)
	assert.Equal(t, "+2348012345678", user.Phone)
	userRepo.AssertExpectations(t)
}

func TestUpdateProfile_EmptyFirstName(t *testing.T) {
	svc, _ := newTestService(new(mockUserRepository), new(mockRefreshTokenRepository))

	_, err := svc.UpdateProfile(context.Background(), "u-1", UpdateProfileInput{FirstName: strPtr("")})
	assert.ErrorIs(t, err, apperrors.ErrInvalidInput)
}
