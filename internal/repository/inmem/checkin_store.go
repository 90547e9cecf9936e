package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/repository"
)

type CheckinStore struct {
	mu       sync.Mutex
	seq      int64
	checkins map[int64]domain.Checkin
}

func NewCheckinStore() *CheckinStore {
	return &CheckinStore{checkins: make(map[int64]domain.Checkin)}
}

func (s *CheckinStore) Create(_ context.Context, c *domain.Checkin) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.checkins {
		if existing.BookingID == c.BookingID && existing.PassengerID == c.PassengerID {
			return domain.NewConflict("passenger_id", "duplicate value")
		}
	}

	s.seq++
	c.ID = s.seq
	c.CreatedAt = time.Now()
	c.UpdatedAt = c.CreatedAt
	s.checkins[c.ID] = *c
	return nil
}

func (s *CheckinStore) Update(_ context.Context, c *domain.Checkin, expectedVersion int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.checkins[c.ID]
	if !ok || current.Version != expectedVersion {
		return domain.ErrOptimisticLock
	}

	next := *c
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()
	s.checkins[c.ID] = next
	c.Version = next.Version
	return nil
}

func (s *CheckinStore) GetByID(_ context.Context, id int64) (*domain.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	c, ok := s.checkins[id]
	if !ok {
		return nil, nil
	}
	return &c, nil
}

func (s *CheckinStore) GetByBookingAndPassenger(_ context.Context, bookingID, passengerID int64) (*domain.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, c := range s.checkins {
		if c.BookingID == bookingID && c.PassengerID == passengerID {
			out := c
			return &out, nil
		}
	}
	return nil, nil
}

func (s *CheckinStore) ListByBooking(_ context.Context, bookingID int64) ([]domain.Checkin, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Checkin, 0)
	for _, c := range s.checkins {
		if c.BookingID == bookingID {
			out = append(out, c)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ repository.CheckinRepository = (*CheckinStore)(nil)
