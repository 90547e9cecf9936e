package domain

import (
	"strings"

	"github.com/shopspring/decimal"
)

type bookingCodeMustBeValid struct {
	code string
}

func (r bookingCodeMustBeValid) Check() error {
	if len(r.code) < 6 || len(r.code) > 16 {
		return NewValidation("booking_code", "invalid booking code length")
	}
	for _, c := range r.code {
		switch {
		case c >= 'a' && c <= 'z':
		case c >= 'A' && c <= 'Z':
		case c >= '0' && c <= '9':
		case c == '-':
		default:
			return NewValidation("booking_code", "booking code contains invalid characters")
		}
	}
	return nil
}

type contactFullNameMustBeValid struct {
	fullName string
}

func (r contactFullNameMustBeValid) Check() error {
	if strings.TrimSpace(r.fullName) == "" {
		return NewValidation("contact_full_name", "contact full name is required")
	}
	if len(r.fullName) > 100 {
		return NewValidation("contact_full_name", "contact full name must not exceed 100 characters")
	}
	return nil
}

type seatCountMustBePositive struct {
	seats int32
}

func (r seatCountMustBePositive) Check() error {
	if r.seats <= 0 {
		return NewValidation("seats", "seats must be positive")
	}
	return nil
}

type bookingAmountsMustBeValid struct {
	base     decimal.Decimal
	taxes    decimal.Decimal
	fees     decimal.Decimal
	discount decimal.Decimal
}

func (r bookingAmountsMustBeValid) Check() error {
	if r.base.IsNegative() || r.taxes.IsNegative() || r.fees.IsNegative() || r.discount.IsNegative() {
		return NewValidation("amount", "amounts must be non-negative")
	}
	return nil
}

type totalAmountMustBeNonNegative struct {
	total decimal.Decimal
}

func (r totalAmountMustBeNonNegative) Check() error {
	if r.total.IsNegative() {
		return NewBusinessRule("total amount must be >= 0")
	}
	return nil
}

type bookingMustBeDraft struct {
	status BookingStatus
}

func (r bookingMustBeDraft) Check() error {
	if r.status != BookingStatusDraft {
		return NewBusinessRule("only draft booking can be confirmed")
	}
	return nil
}
