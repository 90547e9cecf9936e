package domain

import "time"

type arrivalMustBeAfterDeparture struct {
	departure time.Time
	arrival   time.Time
}

func (r arrivalMustBeAfterDeparture) Check() error {
	if !r.arrival.After(r.departure) {
		return NewBusinessRule("arrival time must be after departure time")
	}
	return nil
}

type airportsMustDiffer struct {
	origin      int64
	destination int64
}

func (r airportsMustDiffer) Check() error {
	if r.origin == r.destination {
		return NewBusinessRule("origin must be different from destination")
	}
	return nil
}

type checkinWindowMustBeValid struct {
	openAt  *time.Time
	closeAt *time.Time
}

func (r checkinWindowMustBeValid) Check() error {
	if r.openAt != nil && r.closeAt != nil && !r.closeAt.After(*r.openAt) {
		return NewBusinessRule("check-in close time must be after open time")
	}
	return nil
}

type totalSeatsMustBePositive struct {
	total int32
}

func (r totalSeatsMustBePositive) Check() error {
	if r.total <= 0 {
		return NewValidation("total_seats", "total seats must be positive")
	}
	return nil
}

type availableSeatsMustNotExceedTotal struct {
	available int32
	total     int32
}

func (r availableSeatsMustNotExceedTotal) Check() error {
	if r.available > r.total {
		return NewValidation("available_seats", "available seats cannot exceed total seats")
	}
	return nil
}
