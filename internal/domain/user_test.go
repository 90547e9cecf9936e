package domain

import (
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var loginNow = time.Date(2026, 8, 28, 12, 0, 0, 0, time.UTC)

func activeUser() *User {
	return &User{ID: 1, Email: "kai@example.com", Status: UserStatusActive}
}

func TestNewUserForRegistration(t *testing.T) {
	u, err := NewUserForRegistration(RegisterUserProps{
		Email:    "kai.larsen@example.com",
		Password: "s3curePass",
		FullName: "Kai Larsen Jr",
	}, loginNow)
	require.NoError(t, err)

	assert.Equal(t, UserStatusPending, u.Status)
	assert.Equal(t, UserRoleCustomer, u.Role)
	assert.Equal(t, "Kai", u.FirstName)
	assert.Equal(t, "Larsen Jr", u.LastName)
	assert.True(t, strings.HasPrefix(u.Username, "kai_larsen_"))
	assert.LessOrEqual(t, len(u.Username), 30)
}

func TestNewUserForRegistration_Validation(t *testing.T) {
	_, err := NewUserForRegistration(RegisterUserProps{
		Email: "broken", Password: "s3curePass", FullName: "Kai",
	}, loginNow)
	assert.Contains(t, err.Error(), "invalid email format")

	_, err = NewUserForRegistration(RegisterUserProps{
		Email: "kai@example.com", Password: "short", FullName: "Kai",
	}, loginNow)
	assert.Contains(t, err.Error(), "at least 8 characters")

	_, err = NewUserForRegistration(RegisterUserProps{
		Email: "kai@example.com", Password: "passwordonly", FullName: "Kai",
	}, loginNow)
	assert.Contains(t, err.Error(), "letters and digits")

	dob := loginNow.AddDate(-10, 0, 0)
	_, err = NewUserForRegistration(RegisterUserProps{
		Email: "kai@example.com", Password: "s3curePass", FullName: "Kai", DateOfBirth: &dob,
	}, loginNow)
	assert.Contains(t, err.Error(), "at least 13 years old")
}

// Four prior failures inside the window plus one more lock the account for
// 30 minutes.
func TestUser_HandleFailedLogin_LocksAtThreshold(t *testing.T) {
	u := activeUser()

	for i := 0; i < 4; i++ {
		u.HandleFailedLogin(loginNow.Add(time.Duration(i) * time.Minute))
	}
	require.Nil(t, u.AccountLockedUntil)
	assert.Equal(t, int32(4), u.FailedLoginAttempts)

	fifth := loginNow.Add(5 * time.Minute)
	u.HandleFailedLogin(fifth)

	require.NotNil(t, u.AccountLockedUntil)
	assert.Equal(t, fifth.Add(30*time.Minute), *u.AccountLockedUntil)
}

// Failures older than 15 minutes reset the counter before incrementing.
func TestUser_HandleFailedLogin_StaleCounterResets(t *testing.T) {
	u := activeUser()
	u.FailedLoginAttempts = 4
	stale := loginNow.Add(-16 * time.Minute)
	u.LastFailedLoginAt = &stale

	u.HandleFailedLogin(loginNow)

	assert.Equal(t, int32(1), u.FailedLoginAttempts)
	assert.Nil(t, u.AccountLockedUntil)
}

func TestUser_ValidateLoginAttempt_Locked(t *testing.T) {
	u := activeUser()
	lockedUntil := loginNow.Add(12 * time.Minute)
	u.AccountLockedUntil = &lockedUntil

	err := u.ValidateLoginAttempt(loginNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "12 minutes")

	// After the lock passes the stale counter no longer blocks.
	afterLock := lockedUntil.Add(time.Minute)
	u.FailedLoginAttempts = 5
	failedAt := loginNow.Add(-45 * time.Minute)
	u.LastFailedLoginAt = &failedAt

	assert.NoError(t, u.ValidateLoginAttempt(afterLock))
}

func TestUser_ValidateLoginAttempt_InactiveAccount(t *testing.T) {
	u := activeUser()
	u.Status = UserStatusPending

	err := u.ValidateLoginAttempt(loginNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "account is not active")
}

func TestUser_ValidateLoginAttempt_ThresholdInsideWindow(t *testing.T) {
	u := activeUser()
	u.FailedLoginAttempts = 5
	recent := loginNow.Add(-5 * time.Minute)
	u.LastFailedLoginAt = &recent

	err := u.ValidateLoginAttempt(loginNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "too many failed login attempts")
}

func TestUser_HandleSuccessfulLogin_ClearsLockoutState(t *testing.T) {
	u := activeUser()
	u.FailedLoginAttempts = 3
	failedAt := loginNow.Add(-time.Minute)
	lockedUntil := loginNow.Add(-time.Second)
	u.LastFailedLoginAt = &failedAt
	u.AccountLockedUntil = &lockedUntil

	u.HandleSuccessfulLogin(loginNow)

	assert.Zero(t, u.FailedLoginAttempts)
	assert.Nil(t, u.LastFailedLoginAt)
	assert.Nil(t, u.AccountLockedUntil)
	require.NotNil(t, u.LastLoginAt)
	assert.Equal(t, loginNow, *u.LastLoginAt)
}

func TestUser_PrepareResendVerification_Throttle(t *testing.T) {
	u := &User{Status: UserStatusPending}

	// Three resends inside the hour are allowed, the fourth is rejected.
	for i := 0; i < 3; i++ {
		at := loginNow.Add(time.Duration(i) * 10 * time.Minute)
		expiry := at.Add(VerificationTokenTTL)
		require.NoError(t, u.PrepareResendVerification("token", expiry, at))
	}
	assert.Equal(t, int32(3), u.VerificationResendCount)

	fourth := loginNow.Add(35 * time.Minute)
	err := u.PrepareResendVerification("token", fourth.Add(VerificationTokenTTL), fourth)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "resends per hour exceeded")

	// Once the hour window elapses the counter resets and a resend succeeds.
	later := loginNow.Add(time.Duration(2)*10*time.Minute + VerificationResendWindow + time.Minute)
	require.NoError(t, u.PrepareResendVerification("fresh", later.Add(VerificationTokenTTL), later))
	assert.Equal(t, int32(1), u.VerificationResendCount)
	assert.Equal(t, "fresh", u.VerificationToken)
}

func TestUser_PrepareResendVerification_AlreadyVerified(t *testing.T) {
	u := &User{Status: UserStatusActive}
	verifiedAt := loginNow.Add(-time.Hour)
	u.EmailVerifiedAt = &verifiedAt

	err := u.PrepareResendVerification("token", loginNow.Add(VerificationTokenTTL), loginNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already verified")
}

func TestUser_VerifyEmail(t *testing.T) {
	u := &User{Status: UserStatusPending}
	expiry := loginNow.Add(time.Hour)
	u.StartVerification("token", expiry)

	require.NoError(t, u.VerifyEmail(loginNow))
	assert.Equal(t, UserStatusActive, u.Status)
	assert.Empty(t, u.VerificationToken)
	assert.Nil(t, u.VerificationTokenExpiry)

	err := u.VerifyEmail(loginNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "already verified")
}

func TestUser_VerifyEmail_ExpiredToken(t *testing.T) {
	u := &User{Status: UserStatusPending}
	u.StartVerification("token", loginNow.Add(-time.Minute))

	err := u.VerifyEmail(loginNow)
	require.Error(t, err)
	assert.Contains(t, err.Error(), "verification token has expired")
}
