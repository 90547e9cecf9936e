package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avionda/skybooking/internal/domain"
)

type PassengerRepository interface {
	Create(ctx context.Context, passenger *domain.Passenger) error
	Update(ctx context.Context, passenger *domain.Passenger, expectedVersion int32) error
	GetByID(ctx context.Context, id int64) (*domain.Passenger, error)
	ListByBooking(ctx context.Context, bookingID int64) ([]domain.Passenger, error)
}

type PGPassengerRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewPassengerRepository(db *pgxpool.Pool) PassengerRepository {
	return &PGPassengerRepository{db: db, now: time.Now}
}

const passengerColumns = `id, booking_id, type, first_name, last_name, date_of_birth, nationality_code, passport_no, passport_expiry_date, passport_issuing_country, email, phone, version, created_at, updated_at`

func (r *PGPassengerRepository) Create(ctx context.Context, p *domain.Passenger) error {
	stampCreate(&p.CreatedAt, &p.UpdatedAt, r.now())

	err := r.db.QueryRow(ctx, `INSERT INTO passengers (booking_id, type, first_name, last_name, date_of_birth, nationality_code, passport_no, passport_expiry_date, passport_issuing_country, email, phone, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14)
		RETURNING id`,
		p.BookingID, p.Type, p.FirstName, p.LastName, p.DateOfBirth, p.NationalityCode,
		nullStr(p.PassportNo), p.PassportExpiryDate, nullStr(p.PassportIssuingCountry),
		nullStr(p.Email), nullStr(p.Phone), p.Version, p.CreatedAt, p.UpdatedAt).
		Scan(&p.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PGPassengerRepository) Update(ctx context.Context, p *domain.Passenger, expectedVersion int32) error {
	stampUpdate(&p.UpdatedAt, r.now())

	err := execConditional(ctx, r.db, domain.ErrOptimisticLock,
		`UPDATE passengers SET passport_no=$1, passport_expiry_date=$2, passport_issuing_country=$3, email=$4, phone=$5, updated_at=$6, version = version + 1
		WHERE id=$7 AND version=$8`,
		nullStr(p.PassportNo), p.PassportExpiryDate, nullStr(p.PassportIssuingCountry),
		nullStr(p.Email), nullStr(p.Phone), p.UpdatedAt, p.ID, expectedVersion)
	if err != nil {
		return err
	}
	p.Version = expectedVersion + 1
	return nil
}

func (r *PGPassengerRepository) GetByID(ctx context.Context, id int64) (*domain.Passenger, error) {
	row := r.db.QueryRow(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE id=$1`, id)
	return scanPassenger(row)
}

func (r *PGPassengerRepository) ListByBooking(ctx context.Context, bookingID int64) ([]domain.Passenger, error) {
	rows, err := r.db.Query(ctx, `SELECT `+passengerColumns+` FROM passengers WHERE booking_id=$1 ORDER BY id`, bookingID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	passengers := make([]domain.Passenger, 0)
	for rows.Next() {
		p, err := scanPassenger(rows)
		if err != nil {
			return nil, err
		}
		passengers = append(passengers, *p)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return passengers, nil
}

func scanPassenger(row pgx.Row) (*domain.Passenger, error) {
	var p domain.Passenger
	var passportNo, passportCountry, email, phone *string
	err := row.Scan(&p.ID, &p.BookingID, &p.Type, &p.FirstName, &p.LastName,
		&p.DateOfBirth, &p.NationalityCode, &passportNo, &p.PassportExpiryDate,
		&passportCountry, &email, &phone, &p.Version, &p.CreatedAt, &p.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgError(err)
	}
	p.PassportNo = strOrEmpty(passportNo)
	p.PassportIssuingCountry = strOrEmpty(passportCountry)
	p.Email = strOrEmpty(email)
	p.Phone = strOrEmpty(phone)
	return &p, nil
}

var _ PassengerRepository = (*PGPassengerRepository)(nil)
