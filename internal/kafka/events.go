package kafka

import "time"

// Event types carried on the booking events topic.
const (
	EventBookingCreated   = "booking.created"
	EventBookingConfirmed = "booking.confirmed"
	EventBookingPaid      = "booking.paid"
	EventBookingCancelled = "booking.cancelled"
	EventBookingExpired   = "booking.expired"
)

// Event types carried on the flight events topic.
const (
	EventFlightStatusChanged = "flight.status_changed"
	EventFlightGateAssigned  = "flight.gate_assigned"
)

const EventCheckinCompleted = "checkin.completed"

const (
	EventUserRegistered    = "user.registered"
	EventUserEmailVerified = "user.email_verified"
)

type BookingEvent struct {
	Type        string    `json:"type"`
	BookingID   int64     `json:"booking_id"`
	BookingCode string    `json:"booking_code"`
	FlightID    int64     `json:"flight_id"`
	UserID      int64     `json:"user_id"`
	Status      string    `json:"status"`
	Email       string    `json:"email"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type FlightEvent struct {
	Type       string    `json:"type"`
	FlightID   int64     `json:"flight_id"`
	FlightKey  string    `json:"flight_key"`
	Status     string    `json:"status"`
	Gate       string    `json:"gate,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}

type CheckinEvent struct {
	Type        string    `json:"type"`
	CheckinID   int64     `json:"checkin_id"`
	BookingID   int64     `json:"booking_id"`
	PassengerID int64     `json:"passenger_id"`
	SeatNo      string    `json:"seat_no"`
	OccurredAt  time.Time `json:"occurred_at"`
}

type UserEvent struct {
	Type       string    `json:"type"`
	UserID     int64     `json:"user_id"`
	Email      string    `json:"email"`
	Token      string    `json:"token,omitempty"`
	OccurredAt time.Time `json:"occurred_at"`
}
