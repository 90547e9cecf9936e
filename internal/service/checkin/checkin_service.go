package checkin

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

const retryAttempts = 3

type CheckinUseCase interface {
	CreateCheckin(ctx context.Context, input CreateCheckinInput) (*domain.Checkin, error)
	CompleteCheckin(ctx context.Context, checkinID int64, seatNo string) (*domain.Checkin, error)
	UpdateCheckin(ctx context.Context, checkinID int64, props domain.UpdateCheckinProps) (*domain.Checkin, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Checkin, error)
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type CreateCheckinInput struct {
	BookingID   int64
	PassengerID int64

	SeatClass          domain.SeatClass
	BaggageCount       int32
	BaggageWeightTotal float64
	Channel            domain.CheckinChannel
}

type CheckinService struct {
	checkins repository.CheckinRepository
	bookings repository.BookingRepository

	producer Producer
	topic    string

	log *logger.Logger
	now func() time.Time
}

type CheckinServiceOption func(*CheckinService)

func WithProducer(producer Producer, topic string) CheckinServiceOption {
	return func(s *CheckinService) {
		s.producer = producer
		s.topic = topic
	}
}

func WithClock(now func() time.Time) CheckinServiceOption {
	return func(s *CheckinService) { s.now = now }
}

func NewCheckinService(
	checkins repository.CheckinRepository,
	bookings repository.BookingRepository,
	log *logger.Logger,
	opts ...CheckinServiceOption,
) *CheckinService {
	service := &CheckinService{
		checkins: checkins,
		bookings: bookings,
		log:      log,
		now:      time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// CreateCheckin opens a pending check-in for a confirmed booking. The
// one-per-(booking, passenger) rule is enforced by the store's unique index
// and surfaces as a conflict.
func (s *CheckinService) CreateCheckin(ctx context.Context, input CreateCheckinInput) (*domain.Checkin, error) {
	booking, err := s.bookings.GetByID(ctx, input.BookingID)
	if err != nil {
		return nil, err
	}
	if booking == nil {
		return nil, domain.NewNotFound("booking not found")
	}
	if booking.Status != domain.BookingStatusConfirmed {
		return nil, domain.NewBusinessRule("check-in requires a confirmed booking")
	}

	checkin, err := domain.NewCheckin(domain.CreateCheckinProps{
		BookingID:          input.BookingID,
		PassengerID:        input.PassengerID,
		SeatClass:          input.SeatClass,
		BaggageCount:       input.BaggageCount,
		BaggageWeightTotal: input.BaggageWeightTotal,
		Channel:            input.Channel,
	})
	if err != nil {
		return nil, err
	}

	if err := s.checkins.Create(ctx, checkin); err != nil {
		return nil, err
	}
	return checkin, nil
}

// CompleteCheckin assigns the seat and finishes the check-in. On a version
// conflict the fresh row is reloaded and revalidated, so a concurrent
// completion by another channel fails with "already checked in" instead of
// silently double-applying.
func (s *CheckinService) CompleteCheckin(ctx context.Context, checkinID int64, seatNo string) (*domain.Checkin, error) {
	checkin, err := s.mutate(ctx, checkinID, func(c *domain.Checkin) error {
		return c.CheckIn(seatNo, s.now())
	})
	if err != nil {
		return nil, err
	}

	s.publishCheckinEvent(ctx, checkin)
	return checkin, nil
}

func (s *CheckinService) UpdateCheckin(ctx context.Context, checkinID int64, props domain.UpdateCheckinProps) (*domain.Checkin, error) {
	return s.mutate(ctx, checkinID, func(c *domain.Checkin) error {
		return c.UpdateFrom(props)
	})
}

func (s *CheckinService) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Checkin, error) {
	return s.checkins.ListByBooking(ctx, bookingID)
}

func (s *CheckinService) mutate(ctx context.Context, checkinID int64, apply func(*domain.Checkin) error) (*domain.Checkin, error) {
	var lastErr error
	for attempt := 0; attempt < retryAttempts; attempt++ {
		checkin, err := s.checkins.GetByID(ctx, checkinID)
		if err != nil {
			return nil, err
		}
		if checkin == nil {
			return nil, domain.NewNotFound("checkin not found")
		}
		if err := apply(checkin); err != nil {
			return nil, err
		}

		err = s.checkins.Update(ctx, checkin, checkin.Version)
		if err == nil {
			return checkin, nil
		}
		if !errors.Is(err, domain.ErrOptimisticLock) {
			return nil, err
		}
		lastErr = err
		s.log.Debug("checkin update conflicted, retrying", "checkin_id", checkinID, "attempt", attempt+1)
	}
	return nil, lastErr
}

func (s *CheckinService) publishCheckinEvent(ctx context.Context, checkin *domain.Checkin) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.CheckinEvent{
		Type:        kafka.EventCheckinCompleted,
		CheckinID:   checkin.ID,
		BookingID:   checkin.BookingID,
		PassengerID: checkin.PassengerID,
		SeatNo:      checkin.SeatNo,
		OccurredAt:  s.now(),
	}
	if err := s.producer.Publish(ctx, s.topic, strconv.FormatInt(checkin.BookingID, 10), event); err != nil {
		s.log.Warn("failed to publish checkin event", "checkin_id", checkin.ID, "error", err)
	}
}

var _ CheckinUseCase = (*CheckinService)(nil)
