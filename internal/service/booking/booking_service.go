package booking

import (
	"context"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/kafka"
	"github.com/avionda/skybooking/internal/logger"
	"github.com/avionda/skybooking/internal/repository"
)

const retryAttempts = 3

type BookingUseCase interface {
	CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error)
	AddPassenger(ctx context.Context, bookingID int64, input AddPassengerInput) (*domain.Passenger, error)
	UpdatePassenger(ctx context.Context, passengerID int64, props domain.UpdatePassengerProps) (*domain.Passenger, error)
	UpdateContact(ctx context.Context, bookingID int64, props domain.UpdateBookingContactProps) (*domain.Booking, error)
	ConfirmBooking(ctx context.Context, bookingID int64) (*domain.Booking, error)
	PayBooking(ctx context.Context, bookingID int64, method domain.PaymentMethod, txnID string) (*domain.Booking, error)
	CancelBooking(ctx context.Context, bookingID int64, reason string, cancelledBy *int64) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	ListPassengers(ctx context.Context, bookingID int64) ([]domain.Passenger, error)
	ExpireDraftBookings(ctx context.Context) ([]domain.Booking, error)
}

type Cache interface {
	GetBookingByCode(ctx context.Context, code string) (*domain.Booking, error)
	SetBooking(ctx context.Context, booking *domain.Booking) error
	InvalidateBooking(ctx context.Context, code string) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type CreateBookingInput struct {
	UserID   int64
	FlightID int64
	Seats    int32

	BaseAmount     decimal.Decimal
	TaxesAmount    decimal.Decimal
	FeesAmount     decimal.Decimal
	DiscountAmount decimal.Decimal
	Currency       string

	ContactEmail    string
	ContactPhone    string
	ContactFullName string
}

type AddPassengerInput struct {
	Type domain.PassengerType

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

type BookingService struct {
	bookings   repository.BookingRepository
	flights    repository.FlightRepository
	passengers repository.PassengerRepository

	cache              Cache
	producer           Producer
	bookingTopic       string
	notificationsTopic string

	holdTTL time.Duration
	log     *logger.Logger
	now     func() time.Time
}

type BookingServiceOption func(*BookingService)

func WithCache(cache Cache) BookingServiceOption {
	return func(s *BookingService) { s.cache = cache }
}

func WithProducer(producer Producer, bookingTopic string) BookingServiceOption {
	return func(s *BookingService) {
		s.producer = producer
		s.bookingTopic = bookingTopic
	}
}

func WithNotificationsTopic(topic string) BookingServiceOption {
	return func(s *BookingService) { s.notificationsTopic = topic }
}

func WithClock(now func() time.Time) BookingServiceOption {
	return func(s *BookingService) { s.now = now }
}

func NewBookingService(
	bookings repository.BookingRepository,
	flights repository.FlightRepository,
	passengers repository.PassengerRepository,
	holdTTL time.Duration,
	log *logger.Logger,
	opts ...BookingServiceOption,
) *BookingService {
	service := &BookingService{
		bookings:   bookings,
		flights:    flights,
		passengers: passengers,
		holdTTL:    holdTTL,
		log:        log,
		now:        time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateBooking creates the draft first and then takes the seats through the
// guarded decrement. There is no cross-aggregate transaction: if the
// decrement fails the draft is cancelled best-effort and the seat error is
// returned.
func (s *BookingService) CreateBooking(ctx context.Context, input CreateBookingInput) (*domain.Booking, error) {
	flight, err := s.flights.GetByID(ctx, input.FlightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, domain.NewNotFound("flight not found")
	}
	if err := flight.ValidateSeatReservation(input.Seats); err != nil {
		return nil, err
	}

	props := domain.CreateBookingProps{
		UserID:          input.UserID,
		FlightID:        input.FlightID,
		Seats:           input.Seats,
		BaseAmount:      input.BaseAmount,
		TaxesAmount:     input.TaxesAmount,
		FeesAmount:      input.FeesAmount,
		DiscountAmount:  input.DiscountAmount,
		Currency:        input.Currency,
		ContactEmail:    input.ContactEmail,
		ContactPhone:    input.ContactPhone,
		ContactFullName: input.ContactFullName,
	}

	// The short code suffix can collide at volume; regenerate on a
	// booking_code unique violation instead of surfacing it.
	var booking *domain.Booking
	var createErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		props.BookingCode = s.generateBookingCode()
		candidate, err := domain.NewBooking(props)
		if err != nil {
			return nil, err
		}

		createErr = s.bookings.Create(ctx, candidate)
		if createErr == nil {
			booking = candidate
			break
		}
		if !isCodeCollision(createErr) {
			return nil, createErr
		}
		s.log.Debug("booking code collision, regenerating",
			"booking_code", props.BookingCode, "attempt", attempt+1)
	}
	if booking == nil {
		return nil, createErr
	}

	if err := s.flights.DecreaseAvailableSeats(ctx, input.FlightID, input.Seats); err != nil {
		// Claim the release marker first: these seats were never taken,
		// so neither a later cancel nor the expiry sweep may credit them.
		if _, markErr := s.bookings.MarkSeatsReleased(ctx, booking.ID, s.now()); markErr != nil {
			s.log.Error("failed to mark seats released for unseated draft",
				"booking_id", booking.ID, "error", markErr)
		}
		if cancelErr := booking.Cancel("seat reservation failed", nil, s.now()); cancelErr == nil {
			if updErr := s.bookings.Update(ctx, booking, booking.Version); updErr != nil {
				s.log.Error("failed to cancel draft after seat reservation failure",
					"booking_id", booking.ID, "error", updErr)
			}
		}
		return nil, err
	}

	s.log.Info("booking created", "booking_id", booking.ID, "booking_code", booking.BookingCode,
		"flight_id", booking.FlightID, "seats", booking.SeatsReserved)
	s.publishBookingEvent(ctx, kafka.EventBookingCreated, booking)
	return booking, nil
}

// AddPassenger attaches a passenger to a draft booking. Confirmed and later
// states no longer accept passenger changes.
func (s *BookingService) AddPassenger(ctx context.Context, bookingID int64, input AddPassengerInput) (*domain.Passenger, error) {
	booking, err := s.load(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking.Status != domain.BookingStatusDraft {
		return nil, domain.NewBusinessRule("passengers can only be added to a draft booking")
	}

	passenger, err := domain.NewPassenger(domain.CreatePassengerProps{
		BookingID:              bookingID,
		Type:                   input.Type,
		FirstName:              input.FirstName,
		LastName:               input.LastName,
		DateOfBirth:            input.DateOfBirth,
		NationalityCode:        input.NationalityCode,
		PassportNo:             input.PassportNo,
		PassportExpiryDate:     input.PassportExpiryDate,
		PassportIssuingCountry: input.PassportIssuingCountry,
		Email:                  input.Email,
		Phone:                  input.Phone,
	}, s.now())
	if err != nil {
		return nil, err
	}

	if err := s.passengers.Create(ctx, passenger); err != nil {
		return nil, err
	}
	return passenger, nil
}

func (s *BookingService) UpdatePassenger(ctx context.Context, passengerID int64, props domain.UpdatePassengerProps) (*domain.Passenger, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		passenger, err := s.passengers.GetByID(ctx, passengerID)
		if err != nil {
			return nil, err
		}
		if passenger == nil {
			return nil, domain.NewNotFound("passenger not found")
		}
		if err := passenger.UpdateFrom(props); err != nil {
			return nil, err
		}

		err = s.passengers.Update(ctx, passenger, passenger.Version)
		if err == nil {
			return passenger, nil
		}
		if !errors.Is(err, domain.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
	}
	return nil, lastErr
}

func (s *BookingService) UpdateContact(ctx context.Context, bookingID int64, props domain.UpdateBookingContactProps) (*domain.Booking, error) {
	return s.mutate(ctx, bookingID, func(b *domain.Booking) error {
		return b.UpdateContact(props)
	})
}

func (s *BookingService) ConfirmBooking(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	booking, err := s.mutate(ctx, bookingID, func(b *domain.Booking) error {
		return b.Confirm(s.now())
	})
	if err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, kafka.EventBookingConfirmed, booking)
	return booking, nil
}

func (s *BookingService) PayBooking(ctx context.Context, bookingID int64, method domain.PaymentMethod, txnID string) (*domain.Booking, error) {
	booking, err := s.mutate(ctx, bookingID, func(b *domain.Booking) error {
		return b.MarkPaid(method, txnID, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.publishBookingEvent(ctx, kafka.EventBookingPaid, booking)
	return booking, nil
}

// CancelBooking cancels the booking and releases exactly the seats it
// reserved at creation. Cancelling an expired booking is legal, but the
// sweep already returned its seats, so the release marker keeps this path
// from crediting them a second time.
func (s *BookingService) CancelBooking(ctx context.Context, bookingID int64, reason string, cancelledBy *int64) (*domain.Booking, error) {
	booking, err := s.mutate(ctx, bookingID, func(b *domain.Booking) error {
		return b.Cancel(reason, cancelledBy, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.releaseSeats(ctx, booking)
	s.publishBookingEvent(ctx, kafka.EventBookingCancelled, booking)
	return booking, nil
}

func (s *BookingService) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	if s.cache != nil {
		cached, err := s.cache.GetBookingByCode(ctx, code)
		if err != nil {
			s.log.Warn("booking cache read failed", "booking_code", code, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	booking, err := s.bookings.GetByCode(ctx, code)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	if s.cache != nil {
		if err := s.cache.SetBooking(ctx, booking); err != nil {
			s.log.Warn("booking cache write failed", "booking_code", code, "error", err)
		}
	}
	return booking, nil
}

func (s *BookingService) ListPassengers(ctx context.Context, bookingID int64) ([]domain.Passenger, error) {
	return s.passengers.ListByBooking(ctx, bookingID)
}

// ExpireDraftBookings flips drafts older than the hold TTL to Expired and
// releases their seats. Runs from the worker sweep.
func (s *BookingService) ExpireDraftBookings(ctx context.Context) ([]domain.Booking, error) {
	deadline := s.now().Add(-s.holdTTL)
	expired, err := s.bookings.ExpireDraftBefore(ctx, deadline)
	if err != nil {
		return nil, err
	}

	for i := range expired {
		b := &expired[i]
		s.releaseSeats(ctx, b)
		s.publishBookingEvent(ctx, kafka.EventBookingExpired, b)
	}
	if len(expired) > 0 {
		s.log.Info("expired draft bookings", "count", len(expired))
	}
	return expired, nil
}

func (s *BookingService) mutate(ctx context.Context, bookingID int64, apply func(*domain.Booking) error) (*domain.Booking, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		booking, err := s.load(ctx, bookingID)
		if err != nil {
			return nil, err
		}
		if err := apply(booking); err != nil {
			return nil, err
		}

		err = s.bookings.Update(ctx, booking, booking.Version)
		if err == nil {
			s.invalidate(ctx, booking.BookingCode)
			return booking, nil
		}
		if !errors.Is(err, domain.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
		s.log.Debug("booking update conflicted, retrying", "booking_id", bookingID, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (s *BookingService) load(ctx context.Context, bookingID int64) (*domain.Booking, error) {
	booking, err := s.bookings.GetByID(ctx, bookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	return booking, nil
}

// releaseSeats returns the booking's reserved seats to the flight at most
// once. Whoever claims the persisted marker performs the increment; every
// later caller finds it claimed and leaves the counter alone.
func (s *BookingService) releaseSeats(ctx context.Context, booking *domain.Booking) {
	if booking.SeatsReserved <= 0 {
		return
	}
	claimed, err := s.bookings.MarkSeatsReleased(ctx, booking.ID, s.now())
	if err != nil {
		s.log.Error("failed to claim seat release", "booking_id", booking.ID, "error", err)
		return
	}
	if !claimed {
		return
	}
	if err := s.flights.IncreaseAvailableSeats(ctx, booking.FlightID, booking.SeatsReserved); err != nil {
		s.log.Error("failed to release seats", "booking_id", booking.ID,
			"flight_id", booking.FlightID, "seats", booking.SeatsReserved, "error", err)
	}
}

func (s *BookingService) invalidate(ctx context.Context, code string) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateBooking(ctx, code); err != nil {
		s.log.Warn("booking cache invalidation failed", "booking_code", code, "error", err)
	}
}

// generateBookingCode yields codes like BK-20260828-7F3A: date for operator
// readability plus a uuid-derived suffix. The unique index backstops the
// short suffix; CreateBooking regenerates on collision.
func (s *BookingService) generateBookingCode() string {
	suffix := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", ""))[:4]
	return fmt.Sprintf("BK-%s-%s", s.now().Format("20060102"), suffix)
}

func isCodeCollision(err error) bool {
	var derr *domain.Error
	return errors.As(err, &derr) && derr.Kind == domain.KindConflict && derr.Field == "booking_code"
}

func (s *BookingService) publishBookingEvent(ctx context.Context, eventType string, booking *domain.Booking) {
	if s.producer == nil || s.bookingTopic == "" {
		return
	}
	event := kafka.BookingEvent{
		Type:        eventType,
		BookingID:   booking.ID,
		BookingCode: booking.BookingCode,
		FlightID:    booking.FlightID,
		UserID:      booking.UserID,
		Status:      string(booking.Status),
		Email:       booking.ContactEmail,
		OccurredAt:  s.now(),
	}
	if err := s.producer.Publish(ctx, s.bookingTopic, booking.BookingCode, event); err != nil {
		s.log.Warn("failed to publish booking event", "type", eventType,
			"booking_id", booking.ID, "error", err)
	}
	if s.notificationsTopic != "" {
		if err := s.producer.Publish(ctx, s.notificationsTopic, booking.BookingCode, event); err != nil {
			s.log.Warn("failed to publish notification event", "type", eventType,
				"booking_id", booking.ID, "error", err)
		}
	}
}

var _ BookingUseCase = (*BookingService)(nil)
