package domain

import "time"

type PassengerType string

const (
	PassengerTypeAdult  PassengerType = "ADULT"
	PassengerTypeChild  PassengerType = "CHILD"
	PassengerTypeInfant PassengerType = "INFANT"
)

type Passenger struct {
	ID        int64
	BookingID int64

	Type PassengerType

	FirstName       string
	LastName        string
	DateOfBirth     time.Time
	NationalityCode string

	PassportNo             string
	PassportExpiryDate     *time.Time
	PassportIssuingCountry string

	Email string
	Phone string

	Version   int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreatePassengerProps struct {
	BookingID int64

	Type PassengerType

	FirstName       string
	LastName        string
	DateOfBirth     time.Time
	NationalityCode string

	PassportNo             string
	PassportExpiryDate     *time.Time
	PassportIssuingCountry string

	Email string
	Phone string
}

func (p CreatePassengerProps) validate(today time.Time) error {
	var rules []Rule
	if p.Phone != "" {
		rules = append(rules, phoneMustBeValid{phone: p.Phone})
	}
	if p.Email != "" {
		rules = append(rules, emailMustBeValid{email: p.Email})
	}
	rules = append(rules,
		passengerNameMustBeValid{first: p.FirstName, last: p.LastName},
		dobMustNotBeFuture{dob: p.DateOfBirth, today: today},
		ageMustMatchType{dob: p.DateOfBirth, today: today, passengerType: p.Type},
	)
	return CheckAll(rules...)
}

// NewPassenger validates the creation rules against the provided date and
// returns a passenger at version 1.
func NewPassenger(props CreatePassengerProps, today time.Time) (*Passenger, error) {
	if err := props.validate(today); err != nil {
		return nil, err
	}

	return &Passenger{
		BookingID:              props.BookingID,
		Type:                   props.Type,
		FirstName:              props.FirstName,
		LastName:               props.LastName,
		DateOfBirth:            props.DateOfBirth,
		NationalityCode:        props.NationalityCode,
		PassportNo:             props.PassportNo,
		PassportExpiryDate:     props.PassportExpiryDate,
		PassportIssuingCountry: props.PassportIssuingCountry,
		Email:                  props.Email,
		Phone:                  props.Phone,
		Version:                1,
	}, nil
}

type UpdatePassengerProps struct {
	Email *string
	Phone *string

	PassportNo             *string
	PassportExpiryDate     *time.Time
	PassportIssuingCountry *string
}

// UpdateFrom applies document and contact updates.
func (p *Passenger) UpdateFrom(props UpdatePassengerProps) error {
	var rules []Rule
	if props.Email != nil {
		rules = append(rules, emailMustBeValid{email: *props.Email})
	}
	if props.Phone != nil {
		rules = append(rules, phoneMustBeValid{phone: *props.Phone})
	}
	if err := CheckAll(rules...); err != nil {
		return err
	}

	if props.Email != nil {
		p.Email = *props.Email
	}
	if props.Phone != nil {
		p.Phone = *props.Phone
	}
	if props.PassportNo != nil {
		p.PassportNo = *props.PassportNo
	}
	if props.PassportExpiryDate != nil {
		p.PassportExpiryDate = props.PassportExpiryDate
	}
	if props.PassportIssuingCountry != nil {
		p.PassportIssuingCountry = *props.PassportIssuingCountry
	}
	return nil
}
