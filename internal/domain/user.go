package domain

import (
	"crypto/rand"
	"strings"
	"time"
)

type UserStatus string

const (
	UserStatusPending   UserStatus = "PENDING"
	UserStatusActive    UserStatus = "ACTIVE"
	UserStatusInactive  UserStatus = "INACTIVE"
	UserStatusSuspended UserStatus = "SUSPENDED"
	UserStatusDeleted   UserStatus = "DELETED"
)

type UserRole string

const (
	UserRoleCustomer UserRole = "CUSTOMER"
	UserRoleAdmin    UserRole = "ADMIN"
)

// Account security windows. Staleness is evaluated lazily with the moment of
// the current attempt; no background timers exist.
const (
	MaxFailedLoginAttempts = 5
	FailedLoginWindow      = 15 * time.Minute
	AccountLockDuration    = 30 * time.Minute

	MaxVerificationResendsPerHour = 3
	VerificationResendWindow      = time.Hour
	VerificationTokenTTL          = 24 * time.Hour
)

// User carries the account-security state machine. Its counters are not
// guarded by the version protocol: they are persisted through targeted
// update paths and reset lazily by the time-window logic below.
type User struct {
	ID       int64
	Email    string
	Username string

	PasswordHash string

	FirstName   string
	LastName    string
	Phone       string
	DateOfBirth *time.Time

	Status UserStatus
	Role   UserRole

	EmailVerifiedAt          *time.Time
	VerificationToken        string
	VerificationTokenExpiry  *time.Time
	VerificationResendCount  int32
	LastVerificationResendAt *time.Time

	FailedLoginAttempts int32
	LastFailedLoginAt   *time.Time
	AccountLockedUntil  *time.Time
	LastLoginAt         *time.Time

	CreatedAt time.Time
	UpdatedAt time.Time
}

type RegisterUserProps struct {
	Email       string
	Password    string
	FullName    string
	Phone       string
	DateOfBirth *time.Time
}

func (p RegisterUserProps) validate(today time.Time) error {
	rules := []Rule{
		emailMustBeValid{email: p.Email},
		passwordMustMeetRequirements{password: p.Password},
		fullNameMustBeValid{fullName: p.FullName},
	}
	if p.Phone != "" {
		rules = append(rules, phoneMustBeValid{phone: p.Phone})
	}
	rules = append(rules, userMustBeAtLeastAge{
		dateOfBirth: p.DateOfBirth,
		minimumAge:  13,
		today:       today,
	})
	return CheckAll(rules...)
}

// NewUserForRegistration validates the registration rules and returns a
// Pending customer. The caller hashes the password and issues the first
// verification token.
func NewUserForRegistration(props RegisterUserProps, today time.Time) (*User, error) {
	if err := props.validate(today); err != nil {
		return nil, err
	}

	first, last := splitFullName(props.FullName)

	return &User{
		Email:       props.Email,
		Username:    usernameFromEmail(props.Email),
		FirstName:   first,
		LastName:    last,
		Phone:       props.Phone,
		DateOfBirth: props.DateOfBirth,
		Status:      UserStatusPending,
		Role:        UserRoleCustomer,
	}, nil
}

// StartVerification stores the initial verification token. Unlike resend it
// is not throttled; it only runs at registration.
func (u *User) StartVerification(token string, expiry time.Time) {
	u.VerificationToken = token
	u.VerificationTokenExpiry = &expiry
}

// ValidateLoginAttempt is evaluated before the password: lock status first
// (with the remaining-minutes message), then account status, then the
// stale-aware failed-attempt threshold.
func (u *User) ValidateLoginAttempt(now time.Time) error {
	return CheckAll(
		accountMustNotBeLocked{lockedUntil: u.AccountLockedUntil, now: now},
		accountMustBeActive{status: u.Status},
		failedLoginLimitMustNotBeExceeded{
			failedAttempts: u.FailedLoginAttempts,
			lastFailedAt:   u.LastFailedLoginAt,
			now:            now,
		},
	)
}

// HandleFailedLogin resets the counter if the previous failure is outside
// the window, increments it, and locks the account at the threshold.
func (u *User) HandleFailedLogin(now time.Time) {
	if u.LastFailedLoginAt != nil && !u.LastFailedLoginAt.After(now.Add(-FailedLoginWindow)) {
		u.FailedLoginAttempts = 0
	}

	u.FailedLoginAttempts++
	u.LastFailedLoginAt = &now

	if u.FailedLoginAttempts >= MaxFailedLoginAttempts {
		lockedUntil := now.Add(AccountLockDuration)
		u.AccountLockedUntil = &lockedUntil
	}
}

// HandleSuccessfulLogin clears all lockout state and stamps the login time.
func (u *User) HandleSuccessfulLogin(now time.Time) {
	u.FailedLoginAttempts = 0
	u.LastFailedLoginAt = nil
	u.AccountLockedUntil = nil
	u.LastLoginAt = &now
}

// VerifyEmail transitions Pending -> Active when the token is still valid.
func (u *User) VerifyEmail(now time.Time) error {
	if err := CheckAll(
		userMustNotBeAlreadyVerified{emailVerifiedAt: u.EmailVerifiedAt},
		verificationTokenMustNotBeExpired{tokenExpiry: u.VerificationTokenExpiry, now: now},
	); err != nil {
		return err
	}

	u.Status = UserStatusActive
	u.EmailVerifiedAt = &now
	u.VerificationToken = ""
	u.VerificationTokenExpiry = nil
	return nil
}

// PrepareResendVerification applies the resend throttle: the counter resets
// once the previous resend falls out of the hour window, and at most three
// resends are allowed within it.
func (u *User) PrepareResendVerification(newToken string, newExpiry, now time.Time) error {
	if err := CheckAll(userMustNotBeAlreadyVerified{emailVerifiedAt: u.EmailVerifiedAt}); err != nil {
		return err
	}

	if u.LastVerificationResendAt != nil &&
		!u.LastVerificationResendAt.After(now.Add(-VerificationResendWindow)) {
		u.VerificationResendCount = 0
	}

	if err := CheckAll(verificationResendLimitMustNotBeExceeded{
		resendCount:  u.VerificationResendCount,
		lastResendAt: u.LastVerificationResendAt,
		now:          now,
	}); err != nil {
		return err
	}

	u.VerificationToken = newToken
	u.VerificationTokenExpiry = &newExpiry
	u.VerificationResendCount++
	u.LastVerificationResendAt = &now
	return nil
}

func splitFullName(fullName string) (string, string) {
	parts := strings.Fields(fullName)
	if len(parts) == 0 {
		return "", ""
	}
	return parts[0], strings.Join(parts[1:], " ")
}

const usernameSuffixLen = 8

// usernameFromEmail derives a username from the email local part plus a
// random base36 suffix, capped at 30 characters.
func usernameFromEmail(email string) string {
	local := email
	if i := strings.IndexByte(email, '@'); i >= 0 {
		local = email[:i]
	}

	base := normalizeUsername(local)
	maxBase := 30 - 1 - usernameSuffixLen
	if len(base) > maxBase {
		base = base[:maxBase]
	}
	return base + "_" + randomBase36(usernameSuffixLen)
}

func normalizeUsername(input string) string {
	var b strings.Builder
	lastUnderscore := false
	for _, c := range strings.ToLower(input) {
		switch {
		case c >= 'a' && c <= 'z', c >= '0' && c <= '9':
			b.WriteRune(c)
			lastUnderscore = false
		case c == '.' || c == '-' || c == '+':
			if !lastUnderscore {
				b.WriteByte('_')
				lastUnderscore = true
			}
		}
	}
	out := strings.Trim(b.String(), "_")
	if out == "" {
		return "user"
	}
	return out
}

func randomBase36(n int) string {
	const alphabet = "0123456789abcdefghijklmnopqrstuvwxyz"
	buf := make([]byte, n)
	_, _ = rand.Read(buf)
	for i, b := range buf {
		buf[i] = alphabet[int(b)%len(alphabet)]
	}
	return string(buf)
}
