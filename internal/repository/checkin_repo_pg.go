package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avionda/skybooking/internal/domain"
)

type CheckinRepository interface {
	Create(ctx context.Context, checkin *domain.Checkin) error
	Update(ctx context.Context, checkin *domain.Checkin, expectedVersion int32) error
	GetByID(ctx context.Context, id int64) (*domain.Checkin, error)
	GetByBookingAndPassenger(ctx context.Context, bookingID, passengerID int64) (*domain.Checkin, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Checkin, error)
}

type PGCheckinRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewCheckinRepository(db *pgxpool.Pool) CheckinRepository {
	return &PGCheckinRepository{db: db, now: time.Now}
}

const checkinColumns = `id, booking_id, passenger_id, seat_no, seat_class, status, baggage_count, baggage_weight_total, channel, checked_in_at, version, created_at, updated_at`

func (r *PGCheckinRepository) Create(ctx context.Context, c *domain.Checkin) error {
	stampCreate(&c.CreatedAt, &c.UpdatedAt, r.now())

	err := r.db.QueryRow(ctx, `INSERT INTO checkins (booking_id, passenger_id, seat_no, seat_class, status, baggage_count, baggage_weight_total, channel, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11)
		RETURNING id`,
		c.BookingID, c.PassengerID, nullStr(c.SeatNo), c.SeatClass, c.Status,
		c.BaggageCount, c.BaggageWeightTotal, c.Channel, c.Version, c.CreatedAt, c.UpdatedAt).
		Scan(&c.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PGCheckinRepository) Update(ctx context.Context, c *domain.Checkin, expectedVersion int32) error {
	stampUpdate(&c.UpdatedAt, r.now())

	err := execConditional(ctx, r.db, domain.ErrOptimisticLock,
		`UPDATE checkins SET seat_no=$1, status=$2, baggage_count=$3, baggage_weight_total=$4, checked_in_at=$5, updated_at=$6, version = version + 1
		WHERE id=$7 AND version=$8`,
		nullStr(c.SeatNo), c.Status, c.BaggageCount, c.BaggageWeightTotal,
		c.CheckedInAt, c.UpdatedAt, c.ID, expectedVersion)
	if err != nil {
		return err
	}
	c.Version = expectedVersion + 1
	return nil
}

func (r *PGCheckinRepository) GetByID(ctx context.Context, id int64) (*domain.Checkin, error) {
	row := r.db.QueryRow(ctx, `SELECT `+checkinColumns+` FROM checkins WHERE id=$1`, id)
	return scanCheckin(row)
}

func (r *PGCheckinRepository) GetByBookingAndPassenger(ctx context.Context, bookingID, passengerID int64) (*domain.Checkin, error) {
	row := r.db.QueryRow(ctx, `SELECT `+checkinColumns+` FROM checkins WHERE booking_id=$1 AND passenger_id=$2`, bookingID, passengerID)
	return scanCheckin(row)
}

func (r *PGCheckinRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Checkin, error) {
	rows, err := r.db.Query(ctx, `SELECT `+checkinColumns+` FROM checkins WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	checkins := make([]domain.Checkin, 0)
	for rows.Next() {
		c, err := scanCheckin(rows)
		if err != nil {
			return nil, err
		}
		checkins = append(checkins, *c)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return checkins, nil
}

func scanCheckin(row pgx.Row) (*domain.Checkin, error) {
	var c domain.Checkin
	var seatNo *string
	err := row.Scan(&c.ID, &c.BookingID, &c.PassengerID, &seatNo, &c.SeatClass, &c.Status,
		&c.BaggageCount, &c.BaggageWeightTotal, &c.Channel, &c.CheckedInAt,
		&c.Version, &c.CreatedAt, &c.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgError(err)
	}
	c.SeatNo = strOrEmpty(seatNo)
	return &c, nil
}

var _ CheckinRepository = (*PGCheckinRepository)(nil)
