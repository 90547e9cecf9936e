package domain

import (
	"fmt"
	"time"
)

type FlightStatus string

const (
	FlightStatusScheduled FlightStatus = "SCHEDULED"
	FlightStatusDelayed   FlightStatus = "DELAYED"
	FlightStatusDeparted  FlightStatus = "DEPARTED"
	FlightStatusArrived   FlightStatus = "ARRIVED"
	FlightStatusCancelled FlightStatus = "CANCELLED"
)

// Flight is the seat-inventory aggregate. AvailableSeats is only ever
// decremented through the repository's guarded conditional update; the
// in-memory counter is advisory.
type Flight struct {
	ID                   int64
	AirlineCode          string
	FlightNumber         string
	FlightKey            string
	OriginAirportID      int64
	DestinationAirportID int64

	DepartureDate time.Time
	DepartureTime time.Time
	ArrivalTime   time.Time

	Status FlightStatus
	Gate   string

	CheckinOpenAt  *time.Time
	CheckinCloseAt *time.Time

	TotalSeats     int32
	AvailableSeats int32

	Version   int32
	CreatedAt time.Time
	UpdatedAt time.Time
}

type CreateFlightProps struct {
	AirlineCode          string
	FlightNumber         string
	OriginAirportID      int64
	DestinationAirportID int64
	DepartureDate        time.Time
	DepartureTime        time.Time
	ArrivalTime          time.Time
	CheckinOpenAt        *time.Time
	CheckinCloseAt       *time.Time
	Gate                 string
	TotalSeats           int32
}

func (p CreateFlightProps) validate() error {
	return CheckAll(
		arrivalMustBeAfterDeparture{departure: p.DepartureTime, arrival: p.ArrivalTime},
		airportsMustDiffer{origin: p.OriginAirportID, destination: p.DestinationAirportID},
		checkinWindowMustBeValid{openAt: p.CheckinOpenAt, closeAt: p.CheckinCloseAt},
		totalSeatsMustBePositive{total: p.TotalSeats},
		availableSeatsMustNotExceedTotal{available: p.TotalSeats, total: p.TotalSeats},
	)
}

// NewFlight validates the creation rules and returns a Scheduled flight with
// every seat available and version 1.
func NewFlight(props CreateFlightProps) (*Flight, error) {
	if err := props.validate(); err != nil {
		return nil, err
	}

	return &Flight{
		AirlineCode:          props.AirlineCode,
		FlightNumber:         props.FlightNumber,
		FlightKey:            props.AirlineCode + props.FlightNumber,
		OriginAirportID:      props.OriginAirportID,
		DestinationAirportID: props.DestinationAirportID,
		DepartureDate:        props.DepartureDate,
		DepartureTime:        props.DepartureTime,
		ArrivalTime:          props.ArrivalTime,
		Status:               FlightStatusScheduled,
		Gate:                 props.Gate,
		CheckinOpenAt:        props.CheckinOpenAt,
		CheckinCloseAt:       props.CheckinCloseAt,
		TotalSeats:           props.TotalSeats,
		AvailableSeats:       props.TotalSeats,
		Version:              1,
	}, nil
}

// flightTransitions holds the allowed lifecycle moves. Cancellation is
// reachable from any state and handled separately.
var flightTransitions = map[FlightStatus][]FlightStatus{
	FlightStatusScheduled: {FlightStatusDelayed, FlightStatusDeparted},
	FlightStatusDelayed:   {FlightStatusDeparted},
	FlightStatusDeparted:  {FlightStatusArrived},
}

// ChangeStatus applies a lifecycle transition, rejecting anything outside
// the transition table with an error carrying both states.
func (f *Flight) ChangeStatus(to FlightStatus) error {
	if to != FlightStatusCancelled && !transitionAllowed(f.Status, to) {
		return NewBusinessRule(fmt.Sprintf("invalid flight status transition: %s -> %s", f.Status, to))
	}
	f.Status = to
	return nil
}

func transitionAllowed(from, to FlightStatus) bool {
	for _, t := range flightTransitions[from] {
		if t == to {
			return true
		}
	}
	return false
}

// AssignGate is a plain field update; it rides the ordinary versioned write
// and never contends with seat reservation.
func (f *Flight) AssignGate(gate string) error {
	if gate == "" {
		return NewValidation("gate", "gate is required")
	}
	f.Gate = gate
	return nil
}

// ValidateSeatReservation checks whether seats can be reserved in the
// current lifecycle state. The decrement itself is performed by the
// repository's conditional update, which is the authority under contention.
func (f *Flight) ValidateSeatReservation(seats int32) error {
	if seats <= 0 {
		return NewValidation("seats", "seats must be positive")
	}
	switch f.Status {
	case FlightStatusCancelled:
		return NewBusinessRule("flight already cancelled")
	case FlightStatusDeparted:
		return NewBusinessRule("flight already departed")
	case FlightStatusArrived:
		return NewBusinessRule(fmt.Sprintf("operation not allowed in current status: %s", f.Status))
	}
	if f.AvailableSeats < seats {
		return ErrNoSeatsAvailable
	}
	return nil
}
