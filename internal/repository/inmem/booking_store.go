package inmem

import (
	"context"
	"sort"
	"sync"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/repository"
)

type BookingStore struct {
	mu       sync.Mutex
	seq      int64
	bookings map[int64]domain.Booking
}

func NewBookingStore() *BookingStore {
	return &BookingStore{bookings: make(map[int64]domain.Booking)}
}

func (s *BookingStore) Create(_ context.Context, b *domain.Booking) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.bookings {
		if existing.BookingCode == b.BookingCode {
			return domain.NewConflict("booking_code", "duplicate value")
		}
	}

	s.seq++
	b.ID = s.seq
	b.CreatedAt = time.Now()
	b.UpdatedAt = b.CreatedAt
	s.bookings[b.ID] = *b
	return nil
}

func (s *BookingStore) Update(_ context.Context, b *domain.Booking, expectedVersion int32) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.bookings[b.ID]
	if !ok || current.Version != expectedVersion {
		return domain.ErrOptimisticLock
	}

	next := *b
	next.Version = expectedVersion + 1
	next.UpdatedAt = time.Now()
	// The release marker is owned by MarkSeatsReleased, mirroring the
	// postgres UPDATE which never lists seats_released_at.
	next.SeatsReleasedAt = current.SeatsReleasedAt
	s.bookings[b.ID] = next
	b.Version = next.Version
	return nil
}

func (s *BookingStore) GetByID(_ context.Context, id int64) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[id]
	if !ok {
		return nil, nil
	}
	return &b, nil
}

func (s *BookingStore) GetByCode(_ context.Context, code string) (*domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, b := range s.bookings {
		if b.BookingCode == code {
			out := b
			return &out, nil
		}
	}
	return nil, nil
}

func (s *BookingStore) ListByUser(_ context.Context, userID int64) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	out := make([]domain.Booking, 0)
	for _, b := range s.bookings {
		if b.UserID == userID {
			out = append(out, b)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.After(out[j].CreatedAt) })
	return out, nil
}

func (s *BookingStore) ExpireDraftBefore(_ context.Context, deadline time.Time) ([]domain.Booking, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	expired := make([]domain.Booking, 0)
	for id, b := range s.bookings {
		if b.Status == domain.BookingStatusDraft && b.CreatedAt.Before(deadline) {
			b.Status = domain.BookingStatusExpired
			b.CancellationReason = "booking hold expired"
			b.Version++
			b.UpdatedAt = time.Now()
			s.bookings[id] = b
			expired = append(expired, b)
		}
	}
	return expired, nil
}

func (s *BookingStore) MarkSeatsReleased(_ context.Context, bookingID int64, releasedAt time.Time) (bool, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	b, ok := s.bookings[bookingID]
	if !ok || b.SeatsReleasedAt != nil {
		return false, nil
	}
	b.SeatsReleasedAt = &releasedAt
	b.UpdatedAt = time.Now()
	s.bookings[bookingID] = b
	return true, nil
}

var _ repository.BookingRepository = (*BookingStore)(nil)
