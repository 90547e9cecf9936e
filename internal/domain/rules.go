package domain

import "regexp"

// Rule is a single checkable business invariant. A rule holds the plain
// values it needs to judge the invariant and never touches a data store.
type Rule interface {
	Check() error
}

// CheckAll evaluates rules in the given order and stops at the first
// failure, so error precedence is deterministic.
func CheckAll(rules ...Rule) error {
	for _, r := range rules {
		if err := r.Check(); err != nil {
			return err
		}
	}
	return nil
}

var (
	emailPattern = regexp.MustCompile(`^[a-zA-Z0-9._%+-]+@[a-zA-Z0-9.-]+\.[a-zA-Z]{2,}$`)
	phonePattern = regexp.MustCompile(`^\+?[1-9]\d{1,14}$`)
)

// emailMustBeValid and phoneMustBeValid are shared by every aggregate that
// carries contact details.
type emailMustBeValid struct {
	email string
}

func (r emailMustBeValid) Check() error {
	if !emailPattern.MatchString(r.email) {
		return NewValidation("email", "invalid email format")
	}
	return nil
}

type phoneMustBeValid struct {
	phone string
}

func (r phoneMustBeValid) Check() error {
	if !phonePattern.MatchString(r.phone) {
		return NewValidation("phone_number", "invalid phone number format")
	}
	return nil
}
