package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avionda/skybooking/internal/domain"
)

type FlightRepository interface {
	Create(ctx context.Context, flight *domain.Flight) error
	// Update applies a versioned conditional write; zero affected rows
	// surface as domain.ErrOptimisticLock. The seat counter is owned by
	// the seat inventory methods below and is never written here.
	Update(ctx context.Context, flight *domain.Flight, expectedVersion int32) error
	GetByID(ctx context.Context, id int64) (*domain.Flight, error)
	GetByFlightKey(ctx context.Context, key string) (*domain.Flight, error)
	Search(ctx context.Context, originID, destinationID int64, departureDate time.Time) ([]domain.Flight, error)
	// DecreaseAvailableSeats is the seat inventory controller: a guarded
	// decrement independent of the version column. Zero affected rows
	// mean seat exhaustion, reported as domain.ErrNoSeatsAvailable.
	DecreaseAvailableSeats(ctx context.Context, flightID int64, seats int32) error
	IncreaseAvailableSeats(ctx context.Context, flightID int64, seats int32) error
}

type PGFlightRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewFlightRepository(db *pgxpool.Pool) FlightRepository {
	return &PGFlightRepository{db: db, now: time.Now}
}

const flightColumns = `id, airline_code, flight_number, flight_key, origin_airport_id, destination_airport_id, departure_date, departure_time, arrival_time, status, gate, checkin_open_at, checkin_close_at, total_seats, available_seats, version, created_at, updated_at`

func (r *PGFlightRepository) Create(ctx context.Context, f *domain.Flight) error {
	stampCreate(&f.CreatedAt, &f.UpdatedAt, r.now())

	err := r.db.QueryRow(ctx, `INSERT INTO flights (airline_code, flight_number, flight_key, origin_airport_id, destination_airport_id, departure_date, departure_time, arrival_time, status, gate, checkin_open_at, checkin_close_at, total_seats, available_seats, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17)
		RETURNING id`,
		f.AirlineCode, f.FlightNumber, f.FlightKey, f.OriginAirportID, f.DestinationAirportID,
		f.DepartureDate, f.DepartureTime, f.ArrivalTime, f.Status, nullStr(f.Gate),
		f.CheckinOpenAt, f.CheckinCloseAt, f.TotalSeats, f.AvailableSeats, f.Version,
		f.CreatedAt, f.UpdatedAt).
		Scan(&f.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PGFlightRepository) Update(ctx context.Context, f *domain.Flight, expectedVersion int32) error {
	stampUpdate(&f.UpdatedAt, r.now())

	err := execConditional(ctx, r.db, domain.ErrOptimisticLock,
		`UPDATE flights SET departure_date=$1, departure_time=$2, arrival_time=$3, status=$4, gate=$5, checkin_open_at=$6, checkin_close_at=$7, updated_at=$8, version = version + 1
		WHERE id=$9 AND version=$10`,
		f.DepartureDate, f.DepartureTime, f.ArrivalTime, f.Status, nullStr(f.Gate),
		f.CheckinOpenAt, f.CheckinCloseAt, f.UpdatedAt, f.ID, expectedVersion)
	if err != nil {
		return err
	}
	f.Version = expectedVersion + 1
	return nil
}

func (r *PGFlightRepository) GetByID(ctx context.Context, id int64) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE id=$1`, id)
	return scanFlight(row)
}

func (r *PGFlightRepository) GetByFlightKey(ctx context.Context, key string) (*domain.Flight, error) {
	row := r.db.QueryRow(ctx, `SELECT `+flightColumns+` FROM flights WHERE flight_key=$1`, key)
	return scanFlight(row)
}

func (r *PGFlightRepository) Search(ctx context.Context, originID, destinationID int64, departureDate time.Time) ([]domain.Flight, error) {
	rows, err := r.db.Query(ctx, `SELECT `+flightColumns+` FROM flights
		WHERE origin_airport_id=$1 AND destination_airport_id=$2 AND departure_date=$3
		ORDER BY departure_time`, originID, destinationID, departureDate)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()

	flights := make([]domain.Flight, 0)
	for rows.Next() {
		f, err := scanFlight(rows)
		if err != nil {
			return nil, err
		}
		flights = append(flights, *f)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return flights, nil
}

func (r *PGFlightRepository) DecreaseAvailableSeats(ctx context.Context, flightID int64, seats int32) error {
	return execConditional(ctx, r.db, domain.ErrNoSeatsAvailable,
		`UPDATE flights SET available_seats = available_seats - $2, updated_at=$3
		WHERE id=$1 AND available_seats >= $2`,
		flightID, seats, r.now())
}

func (r *PGFlightRepository) IncreaseAvailableSeats(ctx context.Context, flightID int64, seats int32) error {
	return execConditional(ctx, r.db,
		domain.NewConflict("available_seats", "seat release would exceed total seats"),
		`UPDATE flights SET available_seats = available_seats + $2, updated_at=$3
		WHERE id=$1 AND available_seats + $2 <= total_seats`,
		flightID, seats, r.now())
}

func scanFlight(row pgx.Row) (*domain.Flight, error) {
	var f domain.Flight
	var gate *string
	err := row.Scan(&f.ID, &f.AirlineCode, &f.FlightNumber, &f.FlightKey,
		&f.OriginAirportID, &f.DestinationAirportID, &f.DepartureDate, &f.DepartureTime,
		&f.ArrivalTime, &f.Status, &gate, &f.CheckinOpenAt, &f.CheckinCloseAt,
		&f.TotalSeats, &f.AvailableSeats, &f.Version, &f.CreatedAt, &f.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgError(err)
	}
	f.Gate = strOrEmpty(gate)
	return &f, nil
}

var _ FlightRepository = (*PGFlightRepository)(nil)
