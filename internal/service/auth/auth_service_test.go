package auth

import (
	"context"
	"fmt"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/logger"
)

type MockUserRepository struct {
	mock.Mock
}

func (m *MockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	args := m.Called(ctx, token)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *MockUserRepository) UpdateLoginSecurity(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *MockUserRepository) UpdateVerification(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

// stubHasher marks hashes deterministically so Compare is trivial.
type stubHasher struct{}

func (stubHasher) Hash(password string) (string, error) {
	return "hashed:" + password, nil
}

func (stubHasher) Compare(hash, password string) bool {
	return hash == "hashed:"+password
}

type stubTokens struct {
	n int
}

func (s *stubTokens) NewToken() string {
	s.n++
	return fmt.Sprintf("token-%d", s.n)
}

var testNow = time.Date(2026, 8, 28, 10, 0, 0, 0, time.UTC)

func newService(users *MockUserRepository) *AuthService {
	return NewAuthService(users, stubHasher{}, &stubTokens{}, logger.NewNop(),
		WithClock(func() time.Time { return testNow }))
}

func activeUser() *domain.User {
	return &domain.User{
		ID:           1,
		Email:        "kai@example.com",
		PasswordHash: "hashed:s3curePass",
		Status:       domain.UserStatusActive,
	}
}

func TestAuthService_Register(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	ctx := context.Background()
	mockUsers.On("Create", ctx, mock.AnythingOfType("*domain.User")).Return(nil).Once()

	user, err := service.Register(ctx, RegisterInput{
		Email:    "kai@example.com",
		Password: "s3curePass",
		FullName: "Kai Larsen",
	})

	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusPending, user.Status)
	assert.Equal(t, "hashed:s3curePass", user.PasswordHash)
	assert.Equal(t, "token-1", user.VerificationToken)
	require.NotNil(t, user.VerificationTokenExpiry)
	assert.Equal(t, testNow.Add(domain.VerificationTokenTTL), *user.VerificationTokenExpiry)
	mockUsers.AssertExpectations(t)
}

func TestAuthService_Register_WeakPassword(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	_, err := service.Register(context.Background(), RegisterInput{
		Email:    "kai@example.com",
		Password: "short",
		FullName: "Kai Larsen",
	})

	require.Error(t, err)
	assert.Equal(t, domain.KindValidation, domain.KindOf(err))
	mockUsers.AssertNotCalled(t, "Create")
}

func TestAuthService_Login_Success(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.FailedLoginAttempts = 3
	failedAt := testNow.Add(-time.Minute)
	user.LastFailedLoginAt = &failedAt

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(user, nil).Once()
	mockUsers.On("UpdateLoginSecurity", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.FailedLoginAttempts == 0 && u.LastLoginAt != nil
	})).Return(nil).Once()

	logged, err := service.Login(ctx, "kai@example.com", "s3curePass")

	require.NoError(t, err)
	assert.Zero(t, logged.FailedLoginAttempts)
	assert.Nil(t, logged.AccountLockedUntil)
	mockUsers.AssertExpectations(t)
}

// Unknown email and wrong password answer identically.
func TestAuthService_Login_OpaqueInvalidCredentials(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "ghost@example.com").Return(nil, nil).Once()

	_, unknownErr := service.Login(ctx, "ghost@example.com", "whatever1")
	require.Error(t, unknownErr)

	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(activeUser(), nil).Once()
	mockUsers.On("UpdateLoginSecurity", ctx, mock.Anything).Return(nil).Once()

	_, wrongErr := service.Login(ctx, "kai@example.com", "wrongPass1")
	require.Error(t, wrongErr)

	assert.Equal(t, unknownErr.Error(), wrongErr.Error())
}

func TestAuthService_Login_FifthFailureLocks(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.FailedLoginAttempts = 4
	failedAt := testNow.Add(-time.Minute)
	user.LastFailedLoginAt = &failedAt

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(user, nil).Once()
	mockUsers.On("UpdateLoginSecurity", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.FailedLoginAttempts == 5 && u.AccountLockedUntil != nil &&
			u.AccountLockedUntil.Equal(testNow.Add(domain.AccountLockDuration))
	})).Return(nil).Once()

	_, err := service.Login(ctx, "kai@example.com", "wrongPass1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "invalid credentials")
	mockUsers.AssertExpectations(t)
}

func TestAuthService_Login_LockedAccount(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	lockedUntil := testNow.Add(10 * time.Minute)
	user.AccountLockedUntil = &lockedUntil

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(user, nil).Once()

	_, err := service.Login(ctx, "kai@example.com", "s3curePass")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "10 minutes")
	// The correct password never reaches comparison on a locked account.
	mockUsers.AssertNotCalled(t, "UpdateLoginSecurity")
}

func TestAuthService_Login_PendingAccount(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.Status = domain.UserStatusPending

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(user, nil).Once()

	_, err := service.Login(ctx, "kai@example.com", "s3curePass")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "account is not active")
}

func TestAuthService_VerifyEmail(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.Status = domain.UserStatusPending
	user.VerificationToken = "token-1"
	expiry := testNow.Add(time.Hour)
	user.VerificationTokenExpiry = &expiry

	ctx := context.Background()
	mockUsers.On("GetByVerificationToken", ctx, "token-1").Return(user, nil).Once()
	mockUsers.On("UpdateVerification", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.Status == domain.UserStatusActive && u.VerificationToken == ""
	})).Return(nil).Once()

	verified, err := service.VerifyEmail(ctx, "token-1")

	require.NoError(t, err)
	assert.Equal(t, domain.UserStatusActive, verified.Status)
	mockUsers.AssertExpectations(t)
}

func TestAuthService_VerifyEmail_ExpiredToken(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.Status = domain.UserStatusPending
	user.VerificationToken = "token-1"
	expiry := testNow.Add(-time.Minute)
	user.VerificationTokenExpiry = &expiry

	ctx := context.Background()
	mockUsers.On("GetByVerificationToken", ctx, "token-1").Return(user, nil).Once()

	_, err := service.VerifyEmail(ctx, "token-1")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification token has expired")
	mockUsers.AssertNotCalled(t, "UpdateVerification")
}

func TestAuthService_VerifyEmail_UnknownToken(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	ctx := context.Background()
	mockUsers.On("GetByVerificationToken", ctx, "missing").Return(nil, nil).Once()

	_, err := service.VerifyEmail(ctx, "missing")

	require.Error(t, err)
	assert.Equal(t, domain.KindNotFound, domain.KindOf(err))
}

func TestAuthService_ResendVerification_Throttled(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.Status = domain.UserStatusPending
	user.VerificationResendCount = 3
	lastResend := testNow.Add(-10 * time.Minute)
	user.LastVerificationResendAt = &lastResend

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(user, nil).Once()

	_, err := service.ResendVerification(ctx, "kai@example.com")

	require.Error(t, err)
	assert.Contains(t, err.Error(), "resends per hour exceeded")
	mockUsers.AssertNotCalled(t, "UpdateVerification")
}

func TestAuthService_ResendVerification_IssuesFreshToken(t *testing.T) {
	mockUsers := &MockUserRepository{}
	service := newService(mockUsers)

	user := activeUser()
	user.Status = domain.UserStatusPending
	user.VerificationToken = "stale"

	ctx := context.Background()
	mockUsers.On("GetByEmail", ctx, "kai@example.com").Return(user, nil).Once()
	mockUsers.On("UpdateVerification", ctx, mock.MatchedBy(func(u *domain.User) bool {
		return u.VerificationToken == "token-1" && u.VerificationResendCount == 1
	})).Return(nil).Once()

	resent, err := service.ResendVerification(ctx, "kai@example.com")

	require.NoError(t, err)
	assert.Equal(t, "token-1", resent.VerificationToken)
	mockUsers.AssertExpectations(t)
}
