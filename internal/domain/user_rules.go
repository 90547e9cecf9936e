package domain

import (
	"fmt"
	"strings"
	"time"
)

type accountMustNotBeLocked struct {
	lockedUntil *time.Time
	now         time.Time
}

func (r accountMustNotBeLocked) Check() error {
	if r.lockedUntil != nil && r.now.Before(*r.lockedUntil) {
		remaining := int(r.lockedUntil.Sub(r.now).Minutes())
		return NewBusinessRule(fmt.Sprintf(
			"account is temporarily locked due to too many failed login attempts, try again in %d minutes",
			remaining))
	}
	return nil
}

type accountMustBeActive struct {
	status UserStatus
}

func (r accountMustBeActive) Check() error {
	if r.status != UserStatusActive {
		return NewBusinessRule("account is not active, verify your email or contact support")
	}
	return nil
}

// failedLoginLimitMustNotBeExceeded applies the same staleness reset as the
// failure handler so a user whose failures aged out of the window is not
// rejected on stale state.
type failedLoginLimitMustNotBeExceeded struct {
	failedAttempts int32
	lastFailedAt   *time.Time
	now            time.Time
}

func (r failedLoginLimitMustNotBeExceeded) Check() error {
	attempts := r.failedAttempts
	if r.lastFailedAt != nil && !r.lastFailedAt.After(r.now.Add(-FailedLoginWindow)) {
		attempts = 0
	}
	if attempts >= MaxFailedLoginAttempts {
		return NewBusinessRule("too many failed login attempts, account will be locked for 30 minutes")
	}
	return nil
}

type verificationResendLimitMustNotBeExceeded struct {
	resendCount  int32
	lastResendAt *time.Time
	now          time.Time
}

func (r verificationResendLimitMustNotBeExceeded) Check() error {
	if r.lastResendAt == nil {
		return nil
	}
	if r.lastResendAt.After(r.now.Add(-VerificationResendWindow)) &&
		r.resendCount >= MaxVerificationResendsPerHour {
		return NewBusinessRule(fmt.Sprintf(
			"maximum %d verification email resends per hour exceeded",
			MaxVerificationResendsPerHour))
	}
	return nil
}

type userMustNotBeAlreadyVerified struct {
	emailVerifiedAt *time.Time
}

func (r userMustNotBeAlreadyVerified) Check() error {
	if r.emailVerifiedAt != nil {
		return NewValidation("email", "email is already verified")
	}
	return nil
}

type verificationTokenMustNotBeExpired struct {
	tokenExpiry *time.Time
	now         time.Time
}

func (r verificationTokenMustNotBeExpired) Check() error {
	if r.tokenExpiry == nil || r.now.After(*r.tokenExpiry) {
		return NewBusinessRule("verification token has expired")
	}
	return nil
}

type passwordMustMeetRequirements struct {
	password string
}

func (r passwordMustMeetRequirements) Check() error {
	if len(r.password) < 8 {
		return NewValidation("password", "password must be at least 8 characters")
	}
	var hasLetter, hasDigit bool
	for _, c := range r.password {
		switch {
		case c >= '0' && c <= '9':
			hasDigit = true
		case c >= 'a' && c <= 'z', c >= 'A' && c <= 'Z':
			hasLetter = true
		}
	}
	if !hasLetter || !hasDigit {
		return NewValidation("password", "password must contain letters and digits")
	}
	return nil
}

type fullNameMustBeValid struct {
	fullName string
}

func (r fullNameMustBeValid) Check() error {
	if strings.TrimSpace(r.fullName) == "" {
		return NewValidation("full_name", "full name is required")
	}
	return nil
}

type userMustBeAtLeastAge struct {
	dateOfBirth *time.Time
	minimumAge  int
	today       time.Time
}

func (r userMustBeAtLeastAge) Check() error {
	if r.dateOfBirth == nil {
		return nil
	}
	if yearsBetween(*r.dateOfBirth, r.today) < r.minimumAge {
		return NewValidation("date_of_birth", fmt.Sprintf("user must be at least %d years old", r.minimumAge))
	}
	return nil
}
