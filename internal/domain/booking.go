package domain

import (
	"time"

	"github.com/shopspring/decimal"
)

type BookingStatus string

const (
	BookingStatusDraft     BookingStatus = "DRAFT"
	BookingStatusConfirmed BookingStatus = "CONFIRMED"
	BookingStatusCancelled BookingStatus = "CANCELLED"
	BookingStatusExpired   BookingStatus = "EXPIRED"
)

type PaymentStatus string

const (
	PaymentStatusUnpaid PaymentStatus = "UNPAID"
	PaymentStatusPaid   PaymentStatus = "PAID"
	// Refund targets are reserved by the payment lifecycle; no domain
	// method drives them yet (refund initiation is an extension point).
	PaymentStatusRefunded      PaymentStatus = "REFUNDED"
	PaymentStatusPartialRefund PaymentStatus = "PARTIAL_REFUND"
)

type PaymentMethod string

const (
	PaymentMethodCard         PaymentMethod = "CARD"
	PaymentMethodBankTransfer PaymentMethod = "BANK_TRANSFER"
	PaymentMethodWallet       PaymentMethod = "WALLET"
)

// Booking is the lifecycle/payment aggregate. TotalAmount is computed once
// at creation and never re-derived.
type Booking struct {
	ID          int64
	BookingCode string

	UserID   int64
	FlightID int64

	Status             BookingStatus
	CancellationReason string

	BaseAmount     decimal.Decimal
	TaxesAmount    decimal.Decimal
	FeesAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	TotalAmount    decimal.Decimal
	Currency       string

	ContactEmail    string
	ContactPhone    string
	ContactFullName string

	// SeatsReserved is the seat count taken from the flight at creation,
	// so cancellation and expiry release exactly what was reserved.
	SeatsReserved int32
	// SeatsReleasedAt is set once when the reserved seats are returned to
	// the flight. Cancel and expiry both release through it, so seats go
	// back at most once per booking.
	SeatsReleasedAt *time.Time

	PaymentStatus PaymentStatus
	PaymentMethod PaymentMethod
	PaymentTxnID  string

	PaidAt      *time.Time
	ConfirmedAt *time.Time
	CancelledAt *time.Time
	CancelledBy *int64

	Version   int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateBookingProps struct {
	BookingCode string
	UserID      int64
	FlightID    int64
	Seats       int32

	BaseAmount     decimal.Decimal
	TaxesAmount    decimal.Decimal
	FeesAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	Currency       string

	ContactEmail    string
	ContactPhone    string
	ContactFullName string
}

// validate runs the creation rules in a fixed order and returns the
// computed total.
func (p CreateBookingProps) validate() (decimal.Decimal, error) {
	rules := []Rule{
		bookingCodeMustBeValid{code: p.BookingCode},
	}
	if p.ContactPhone != "" {
		rules = append(rules, phoneMustBeValid{phone: p.ContactPhone})
	}
	total := p.totalAmount()
	rules = append(rules,
		emailMustBeValid{email: p.ContactEmail},
		contactFullNameMustBeValid{fullName: p.ContactFullName},
		seatCountMustBePositive{seats: p.Seats},
		bookingAmountsMustBeValid{
			base:     p.BaseAmount,
			taxes:    p.TaxesAmount,
			fees:     p.FeesAmount,
			discount: p.DiscountAmount,
		},
		totalAmountMustBeNonNegative{total: total},
	)
	if err := CheckAll(rules...); err != nil {
		return decimal.Zero, err
	}
	return total, nil
}

func (p CreateBookingProps) totalAmount() decimal.Decimal {
	return p.BaseAmount.Add(p.TaxesAmount).Add(p.FeesAmount).Sub(p.DiscountAmount)
}

// NewBooking validates the creation rules and returns a Draft, Unpaid
// booking at version 1.
func NewBooking(props CreateBookingProps) (*Booking, error) {
	total, err := props.validate()
	if err != nil {
		return nil, err
	}

	return &Booking{
		BookingCode:     props.BookingCode,
		UserID:          props.UserID,
		FlightID:        props.FlightID,
		Status:          BookingStatusDraft,
		BaseAmount:      props.BaseAmount,
		TaxesAmount:     props.TaxesAmount,
		FeesAmount:      props.FeesAmount,
		DiscountAmount:  props.DiscountAmount,
		TotalAmount:     total,
		Currency:        props.Currency,
		ContactEmail:    props.ContactEmail,
		ContactPhone:    props.ContactPhone,
		ContactFullName: props.ContactFullName,
		SeatsReserved:   props.Seats,
		PaymentStatus:   PaymentStatusUnpaid,
		Version:         1,
	}, nil
}

type UpdateBookingContactProps struct {
	ContactEmail    *string
	ContactPhone    *string
	ContactFullName *string
}

// UpdateContact applies contact-only field updates after re-validating them.
func (b *Booking) UpdateContact(props UpdateBookingContactProps) error {
	var rules []Rule
	if props.ContactEmail != nil {
		rules = append(rules, emailMustBeValid{email: *props.ContactEmail})
	}
	if props.ContactPhone != nil {
		rules = append(rules, phoneMustBeValid{phone: *props.ContactPhone})
	}
	if props.ContactFullName != nil {
		rules = append(rules, contactFullNameMustBeValid{fullName: *props.ContactFullName})
	}
	if err := CheckAll(rules...); err != nil {
		return err
	}

	if props.ContactEmail != nil {
		b.ContactEmail = *props.ContactEmail
	}
	if props.ContactPhone != nil {
		b.ContactPhone = *props.ContactPhone
	}
	if props.ContactFullName != nil {
		b.ContactFullName = *props.ContactFullName
	}
	return nil
}

// Confirm transitions Draft -> Confirmed.
func (b *Booking) Confirm(now time.Time) error {
	if err := CheckAll(bookingMustBeDraft{status: b.Status}); err != nil {
		return err
	}
	b.Status = BookingStatusConfirmed
	b.ConfirmedAt = &now
	return nil
}

// Cancel is reachable from any non-terminal state; only an already
// cancelled booking is rejected.
func (b *Booking) Cancel(reason string, cancelledBy *int64, now time.Time) error {
	if b.Status == BookingStatusCancelled {
		return NewBusinessRule("booking already cancelled")
	}
	b.Status = BookingStatusCancelled
	b.CancellationReason = reason
	b.CancelledAt = &now
	b.CancelledBy = cancelledBy
	return nil
}

// MarkPaid records a successful payment.
func (b *Booking) MarkPaid(method PaymentMethod, txnID string, now time.Time) error {
	if b.Status == BookingStatusCancelled {
		return NewBusinessRule("cannot pay a cancelled booking")
	}
	if b.PaymentStatus == PaymentStatusPaid {
		return NewBusinessRule("booking already paid")
	}
	b.PaymentStatus = PaymentStatusPaid
	b.PaymentMethod = method
	b.PaymentTxnID = txnID
	b.PaidAt = &now
	return nil
}
