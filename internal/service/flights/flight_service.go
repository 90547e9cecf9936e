package flights

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/kafka"
	"github.com/avionda/skybooking/internal/logger"
	"github.com/avionda/skybooking/internal/repository"
)

// retryAttempts bounds the reload-revalidate-reapply loop on version
// conflicts. Persistence never retries on its own.
const retryAttempts = 3

type FlightUseCase interface {
	Schedule(ctx context.Context, input ScheduleFlightInput) (*domain.Flight, error)
	ChangeStatus(ctx context.Context, flightID int64, to domain.FlightStatus) (*domain.Flight, error)
	AssignGate(ctx context.Context, flightID int64, gate string) (*domain.Flight, error)
	ReserveSeats(ctx context.Context, flightID int64, seats int32) error
	ReleaseSeats(ctx context.Context, flightID int64, seats int32) error
	GetByID(ctx context.Context, flightID int64) (*domain.Flight, error)
	Search(ctx context.Context, originID, destinationID int64, departureDate time.Time) ([]domain.Flight, error)
}

type Cache interface {
	GetFlight(ctx context.Context, id int64) (*domain.Flight, error)
	SetFlight(ctx context.Context, flight *domain.Flight) error
	InvalidateFlight(ctx context.Context, id int64) error
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type ScheduleFlightInput struct {
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

type FlightService struct {
	flights  repository.FlightRepository
	cache    Cache
	producer Producer
	topic    string
	log      *logger.Logger
	now      func() time.Time
}

type FlightServiceOption func(*FlightService)

func WithCache(cache Cache) FlightServiceOption {
	return func(s *FlightService) { s.cache = cache }
}

func WithProducer(producer Producer, topic string) FlightServiceOption {
	return func(s *FlightService) {
		s.producer = producer
		s.topic = topic
	}
}

func WithClock(now func() time.Time) FlightServiceOption {
	return func(s *FlightService) { s.now = now }
}

func NewFlightService(flights repository.FlightRepository, log *logger.Logger, opts ...FlightServiceOption) *FlightService {
	service := &FlightService{
		flights: flights,
		log:     log,
		now:     time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

func (s *FlightService) Schedule(ctx context.Context, input ScheduleFlightInput) (*domain.Flight, error) {
	flight, err := domain.NewFlight(domain.CreateFlightProps{
		AirlineCode:          input.AirlineCode,
		FlightNumber:         input.FlightNumber,
		OriginAirportID:      input.OriginAirportID,
		DestinationAirportID: input.DestinationAirportID,
		DepartureDate:        input.DepartureDate,
		DepartureTime:        input.DepartureTime,
		ArrivalTime:          input.ArrivalTime,
		CheckinOpenAt:        input.CheckinOpenAt,
		CheckinCloseAt:       input.CheckinCloseAt,
		Gate:                 input.Gate,
		TotalSeats:           input.TotalSeats,
	})
	if err != nil {
		return nil, err
	}

	if err := s.flights.Create(ctx, flight); err != nil {
		return nil, err
	}
	s.log.Info("flight scheduled", "flight_id", flight.ID, "flight_key", flight.FlightKey)
	return flight, nil
}

// ChangeStatus reloads and revalidates the transition on every conflicted
// attempt so a move that became illegal under the fresh state fails instead
// of being blindly reapplied.
func (s *FlightService) ChangeStatus(ctx context.Context, flightID int64, to domain.FlightStatus) (*domain.Flight, error) {
	flight, err := s.mutate(ctx, flightID, func(f *domain.Flight) error {
		return f.ChangeStatus(to)
	})
	if err != nil {
		return nil, err
	}

	s.publishFlightEvent(ctx, kafka.EventFlightStatusChanged, flight)
	return flight, nil
}

func (s *FlightService) AssignGate(ctx context.Context, flightID int64, gate string) (*domain.Flight, error) {
	flight, err := s.mutate(ctx, flightID, func(f *domain.Flight) error {
		return f.AssignGate(gate)
	})
	if err != nil {
		return nil, err
	}

	s.publishFlightEvent(ctx, kafka.EventFlightGateAssigned, flight)
	return flight, nil
}

// ReserveSeats validates against the lifecycle state and then relies on the
// guarded decrement as the single authority under contention.
func (s *FlightService) ReserveSeats(ctx context.Context, flightID int64, seats int32) error {
	flight, err := s.load(ctx, flightID)
	if err != nil {
		return err
	}
	if err := flight.ValidateSeatReservation(seats); err != nil {
		return err
	}

	if err := s.flights.DecreaseAvailableSeats(ctx, flightID, seats); err != nil {
		return err
	}
	s.invalidate(ctx, flightID)
	return nil
}

func (s *FlightService) ReleaseSeats(ctx context.Context, flightID int64, seats int32) error {
	if seats <= 0 {
		return domain.NewValidation("seats", "seats must be positive")
	}
	if err := s.flights.IncreaseAvailableSeats(ctx, flightID, seats); err != nil {
		return err
	}
	s.invalidate(ctx, flightID)
	return nil
}

// GetByID serves reads cache-aside. Writes never consult the cache; a stale
// read view only ever delays visibility, never correctness.
func (s *FlightService) GetByID(ctx context.Context, flightID int64) (*domain.Flight, error) {
	if s.cache != nil {
		cached, err := s.cache.GetFlight(ctx, flightID)
		if err != nil {
			s.log.Warn("flight cache read failed", "flight_id", flightID, "error", err)
		} else if cached != nil {
			return cached, nil
		}
	}

	flight, err := s.load(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if s.cache != nil {
		if err := s.cache.SetFlight(ctx, flight); err != nil {
			s.log.Warn("flight cache write failed", "flight_id", flightID, "error", err)
		}
	}
	return flight, nil
}

func (s *FlightService) Search(ctx context.Context, originID, destinationID int64, departureDate time.Time) ([]domain.Flight, error) {
	return s.flights.Search(ctx, originID, destinationID, departureDate)
}

// mutate runs the bounded reload-apply-write loop shared by every versioned
// flight update.
func (s *FlightService) mutate(ctx context.Context, flightID int64, apply func(*domain.Flight) error) (*domain.Flight, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		flight, err := s.load(ctx, flightID)
		if err != nil {
			return nil, err
		}
		if err := apply(flight); err != nil {
			return nil, err
		}

		err = s.flights.Update(ctx, flight, flight.Version)
		if err == nil {
			s.invalidate(ctx, flightID)
			return flight, nil
		}
		if !errors.Is(err, domain.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
		s.log.Debug("flight update conflicted, retrying", "flight_id", flightID, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (s *FlightService) load(ctx context.Context, flightID int64) (*domain.Flight, error) {
	flight, err := s.flights.GetByID(ctx, flightID)
	if err != nil {
		return nil, err
	}
	if flight == nil {
		return nil, domain.NewNotFound("flight not found")
	}
	return flight, nil
}

func (s *FlightService) invalidate(ctx context.Context, flightID int64) {
	if s.cache == nil {
		return
	}
	if err := s.cache.InvalidateFlight(ctx, flightID); err != nil {
		s.log.Warn("flight cache invalidation failed", "flight_id", flightID, "error", err)
	}
}

func (s *FlightService) publishFlightEvent(ctx context.Context, eventType string, flight *domain.Flight) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.FlightEvent{
		Type:       eventType,
		FlightID:   flight.ID,
		FlightKey:  flight.FlightKey,
		Status:     string(flight.Status),
		Gate:       flight.Gate,
		OccurredAt: s.now(),
	}
	if err := s.producer.Publish(ctx, s.topic, strconv.FormatInt(flight.ID, 10), event); err != nil {
		s.log.Warn("failed to publish flight event", "type", eventType, "flight_id", flight.ID, "error", err)
	}
}

var _ FlightUseCase = (*FlightService)(nil)
