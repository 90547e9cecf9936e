package domain

import "time"

type CheckinStatus string

const (
	CheckinStatusPending   CheckinStatus = "PENDING"
	CheckinStatusCheckedIn CheckinStatus = "CHECKED_IN"
	CheckinStatusCancelled CheckinStatus = "CANCELLED"
)

type SeatClass string

const (
	SeatClassEconomy        SeatClass = "ECONOMY"
	SeatClassPremiumEconomy SeatClass = "PREMIUM_ECONOMY"
	SeatClassBusiness       SeatClass = "BUSINESS"
	SeatClassFirst          SeatClass = "FIRST"
)

type CheckinChannel string

const (
	CheckinChannelWeb     CheckinChannel = "WEB"
	CheckinChannelMobile  CheckinChannel = "MOBILE"
	CheckinChannelCounter CheckinChannel = "COUNTER"
	CheckinChannelKiosk   CheckinChannel = "KIOSK"
)

// Checkin is unique per (booking, passenger); the uniqueness is enforced by
// the store and surfaces as a conflict on create.
type Checkin struct {
	ID          int64
	BookingID   int64
	PassengerID int64

	SeatNo    string
	SeatClass SeatClass
	Status    CheckinStatus

	BaggageCount       int32
	BaggageWeightTotal float64

	Channel     CheckinChannel
	CheckedInAt *time.Time

	Version   int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateCheckinProps struct {
	BookingID   int64
	PassengerID int64

	SeatClass          SeatClass
	BaggageCount       int32
	BaggageWeightTotal float64
	Channel            CheckinChannel
}

func (p CreateCheckinProps) validate() error {
	return CheckAll(baggageMustBeValid{count: p.BaggageCount, weight: p.BaggageWeightTotal})
}

// NewCheckin validates the creation rules and returns a Pending check-in
// without a seat assignment.
func NewCheckin(props CreateCheckinProps) (*Checkin, error) {
	if err := props.validate(); err != nil {
		return nil, err
	}

	return &Checkin{
		BookingID:          props.BookingID,
		PassengerID:        props.PassengerID,
		SeatClass:          props.SeatClass,
		Status:             CheckinStatusPending,
		BaggageCount:       props.BaggageCount,
		BaggageWeightTotal: props.BaggageWeightTotal,
		Channel:            props.Channel,
		Version:            1,
	}, nil
}

// CheckIn assigns the seat and completes the check-in. Only a pending
// check-in can complete.
func (c *Checkin) CheckIn(seatNo string, now time.Time) error {
	if c.Status != CheckinStatusPending {
		return NewBusinessRule("already checked in")
	}
	if seatNo == "" {
		return NewValidation("seat_no", "seat number is required")
	}
	c.SeatNo = seatNo
	c.Status = CheckinStatusCheckedIn
	c.CheckedInAt = &now
	return nil
}

type UpdateCheckinProps struct {
	SeatNo             *string
	BaggageCount       *int32
	BaggageWeightTotal *float64
}

// UpdateFrom applies plain field updates. Checked-in and cancelled
// check-ins are immutable.
func (c *Checkin) UpdateFrom(props UpdateCheckinProps) error {
	rules := []Rule{checkinMustBePending{status: c.Status}}
	if props.BaggageCount != nil || props.BaggageWeightTotal != nil {
		count := c.BaggageCount
		weight := c.BaggageWeightTotal
		if props.BaggageCount != nil {
			count = *props.BaggageCount
		}
		if props.BaggageWeightTotal != nil {
			weight = *props.BaggageWeightTotal
		}
		rules = append(rules, baggageMustBeValid{count: count, weight: weight})
	}
	if err := CheckAll(rules...); err != nil {
		return err
	}

	if props.SeatNo != nil {
		c.SeatNo = *props.SeatNo
	}
	if props.BaggageCount != nil {
		c.BaggageCount = *props.BaggageCount
	}
	if props.BaggageWeightTotal != nil {
		c.BaggageWeightTotal = *props.BaggageWeightTotal
	}
	return nil
}
