// Package inmem provides in-memory implementations of the repository
// interfaces for tests and local development. The stores enforce the same
// conditional-write semantics as the postgres implementations: versioned
// updates, guarded seat counters and unique-key conflicts.
package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/repository"
)

type FlightStore struct {
	mu      sync.Mutex
	seq     int64
	flights map[int64]domain.Flight
}

func NewFlightStore() *FlightStore {
	return &FlightStore{flights: make(map[int64]domain.Flight)}
}

func (s *FlightStore) Create(_ context.Context, f *domain.Flight) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.flights {
		if existing.FlightKey == f.FlightKey {
			return domain.NewConflict("flight_key", "duplicate value")
		}
	}

	s.seq++
	f.ID = s.seq
	f.CreatedAt = time.Now()
	f.UpdatedAt = f.CreatedAt
	s.flights[f.ID] = *f
	return nil
}

func (s *FlightStore) Update(_ context.Context, f *domain.Flight, expectedVersion int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.flights[f.ID]
	if !ok || current.Version != expectedVersion {
		return domain.ErrOptimisticLock
	}

	next := *f
	// The seat counter is owned by the guarded increment/decrement paths.
	next.AvailableSeats = current.AvailableSeats
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()
	s.flights[f.ID] = next
	f.Version = next.Version
	f.AvailableSeats = next.AvailableSeats
	return nil
}

func (s *FlightStore) GetByID(_ context.Context, id int64) (*domain.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[id]
	if !ok {
		return nil, nil
	}
	return &f, nil
}

func (s *FlightStore) GetByFlightKey(_ context.Context, key string) (*domain.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, f := range s.flights {
		if f.FlightKey == key {
			out := f
			return &out, nil
		}
	}
	return nil, nil
}

func (s *FlightStore) Search(_ context.Context, originID, destinationID int64, departureDate time.Time) ([]domain.Flight, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Flight, 0)
	for _, f := range s.flights {
		if f.OriginAirportID == originID && f.DestinationAirportID == destinationID &&
			f.DepartureDate.Equal(departureDate) {
			out = append(out, f)
		}
	}
	return out, nil
}

func (s *FlightStore) DecreaseAvailableSeats(_ context.Context, flightID int64, seats int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[flightID]
	if !ok || f.AvailableSeats < seats {
		return domain.ErrNoSeatsAvailable
	}
	f.AvailableSeats -= seats
	f.UpdatedAt = time.Now()
	s.flights[flightID] = f
	return nil
}

func (s *FlightStore) IncreaseAvailableSeats(_ context.Context, flightID int64, seats int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	f, ok := s.flights[flightID]
	if !ok || f.AvailableSeats+seats > f.TotalSeats {
		return domain.NewConflict("available_seats", "seat release would exceed total seats")
	}
	f.AvailableSeats += seats
	f.UpdatedAt = time.Now()
	s.flights[flightID] = f
	return nil
}

var _ repository.FlightRepository = (*FlightStore)(nil)
