package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/repository"
)

type PassengerStore struct {
	mu         sync.Mutex
	seq        int64
	passengers map[int64]domain.Passenger
}

func NewPassengerStore() *PassengerStore {
	return &PassengerStore{passengers: make(map[int64]domain.Passenger)}
}

func (s *PassengerStore) Create(_ context.Context, p *domain.Passenger) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.seq++
	p.ID = s.seq
	p.CreatedAt = time.Now()
	p.UpdatedAt = p.CreatedAt
	s.passengers[p.ID] = *p
	return nil
}

func (s *PassengerStore) Update(_ context.Context, p *domain.Passenger, expectedVersion int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.passengers[p.ID]
	if !ok || current.Version != expectedVersion {
		return domain.ErrOptimisticLock
	}

	next := *p
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()
	s.passengers[p.ID] = next
	p.Version = next.Version
	return nil
}

func (s *PassengerStore) GetByID(_ context.Context, id int64) (*domain.Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	p, ok := s.passengers[id]
	if !ok {
		return nil, nil
	}
	return &p, nil
}

func (s *PassengerStore) ListByBooking(_ context.Context, bookingID int64) ([]domain.Passenger, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Passenger, 0)
	for _, p := range s.passengers {
		if p.BookingID == bookingID {
			out = append(out, p)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].ID < out[j].ID })
	return out, nil
}

var _ repository.PassengerRepository = (*PassengerStore)(nil)
