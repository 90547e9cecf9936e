package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avionda/skybooking/internal/domain"
)

type BookingRepository interface {
	Create(ctx context.Context, booking *domain.Booking) error
	// Update writes only the mutable fields. Amounts, booking code, seat
	// count and the owning ids are fixed at creation and never updated.
	Update(ctx context.Context, booking *domain.Booking, expectedVersion int32) error
	GetByID(ctx context.Context, id int64) (*domain.Booking, error)
	GetByCode(ctx context.Context, code string) (*domain.Booking, error)
	ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error)
	// ExpireDraftBefore flips every draft booking created before the
	// deadline to Expired in one statement and returns the affected rows
	// so the caller can release their seats.
	ExpireDraftBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error)
	// MarkSeatsReleased claims the booking's one seat release. It reports
	// true when this call won the claim and the caller may credit the
	// seats back, false when another path already released them.
	MarkSeatsReleased(ctx context.Context, bookingID int64, releasedAt time.Time) (bool, error)
}

type PGBookingRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewBookingRepository(db *pgxpool.Pool) BookingRepository {
	return &PGBookingRepository{db: db, now: time.Now}
}

const bookingColumns = `id, booking_code, user_id, flight_id, status, cancellation_reason, base_amount, taxes_amount, fees_amount, discount_amount, total_amount, currency, contact_email, contact_phone, contact_full_name, seats_reserved, seats_released_at, payment_status, payment_method, payment_txn_id, paid_at, confirmed_at, cancelled_at, cancelled_by, version, created_at, updated_at`

func (r *PGBookingRepository) Create(ctx context.Context, b *domain.Booking) error {
	stampCreate(&b.CreatedAt, &b.UpdatedAt, r.now())

	err := r.db.QueryRow(ctx, `INSERT INTO bookings (booking_code, user_id, flight_id, status, cancellation_reason, base_amount, taxes_amount, fees_amount, discount_amount, total_amount, currency, contact_email, contact_phone, contact_full_name, seats_reserved, payment_status, payment_method, payment_txn_id, version, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13, $14, $15, $16, $17, $18, $19, $20, $21)
		RETURNING id`,
		b.BookingCode, b.UserID, b.FlightID, b.Status, nullStr(b.CancellationReason),
		b.BaseAmount, b.TaxesAmount, b.FeesAmount, b.DiscountAmount, b.TotalAmount, b.Currency,
		b.ContactEmail, nullStr(b.ContactPhone), b.ContactFullName, b.SeatsReserved,
		b.PaymentStatus, nullStr(string(b.PaymentMethod)), nullStr(b.PaymentTxnID),
		b.Version, b.CreatedAt, b.UpdatedAt).
		Scan(&b.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PGBookingRepository) Update(ctx context.Context, b *domain.Booking, expectedVersion int32) error {
	stampUpdate(&b.UpdatedAt, r.now())

	err := execConditional(ctx, r.db, domain.ErrOptimisticLock,
		`UPDATE bookings SET status=$1, cancellation_reason=$2, contact_email=$3, contact_phone=$4, contact_full_name=$5, payment_status=$6, payment_method=$7, payment_txn_id=$8, paid_at=$9, confirmed_at=$10, cancelled_at=$11, cancelled_by=$12, updated_at=$13, version = version + 1
		WHERE id=$14 AND version=$15`,
		b.Status, nullStr(b.CancellationReason), b.ContactEmail, nullStr(b.ContactPhone),
		b.ContactFullName, b.PaymentStatus, nullStr(string(b.PaymentMethod)), nullStr(b.PaymentTxnID),
		b.PaidAt, b.ConfirmedAt, b.CancelledAt, b.CancelledBy, b.UpdatedAt, b.ID, expectedVersion)
	if err != nil {
		return err
	}
	b.Version = expectedVersion + 1
	return nil
}

func (r *PGBookingRepository) GetByID(ctx context.Context, id int64) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE id=$1`, id)
	return scanBooking(row)
}

func (r *PGBookingRepository) GetByCode(ctx context.Context, code string) (*domain.Booking, error) {
	row := r.db.QueryRow(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE booking_code=$1`, code)
	return scanBooking(row)
}

func (r *PGBookingRepository) ListByUser(ctx context.Context, userID int64) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `SELECT `+bookingColumns+` FROM bookings WHERE user_id=$1 ORDER BY created_at DESC`, userID)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

func (r *PGBookingRepository) ExpireDraftBefore(ctx context.Context, deadline time.Time) ([]domain.Booking, error) {
	rows, err := r.db.Query(ctx, `UPDATE bookings
		SET status=$1, cancellation_reason=$2, updated_at=$3, version = version + 1
		WHERE status=$4 AND created_at < $5
		RETURNING `+bookingColumns,
		domain.BookingStatusExpired, "booking hold expired", r.now(), domain.BookingStatusDraft, deadline)
	if err != nil {
		return nil, mapPgError(err)
	}
	defer rows.Close()
	return collectBookings(rows)
}

// MarkSeatsReleased is a version-free guarded write like the seat counter
// paths: the first caller flips the marker and wins, everyone after reads
// zero rows affected.
func (r *PGBookingRepository) MarkSeatsReleased(ctx context.Context, bookingID int64, releasedAt time.Time) (bool, error) {
	tag, err := r.db.Exec(ctx, `UPDATE bookings SET seats_released_at=$1, updated_at=$2
		WHERE id=$3 AND seats_released_at IS NULL`,
		releasedAt, r.now(), bookingID)
	if err != nil {
		return false, mapPgError(err)
	}
	return tag.RowsAffected() == 1, nil
}

func collectBookings(rows pgx.Rows) ([]domain.Booking, error) {
	bookings := make([]domain.Booking, 0)
	for rows.Next() {
		b, err := scanBooking(rows)
		if err != nil {
			return nil, err
		}
		bookings = append(bookings, *b)
	}
	if err := rows.Err(); err != nil {
		return nil, mapPgError(err)
	}
	return bookings, nil
}

func scanBooking(row pgx.Row) (*domain.Booking, error) {
	var b domain.Booking
	var reason, phone, method, txnID *string
	err := row.Scan(&b.ID, &b.BookingCode, &b.UserID, &b.FlightID, &b.Status, &reason,
		&b.BaseAmount, &b.TaxesAmount, &b.FeesAmount, &b.DiscountAmount, &b.TotalAmount,
		&b.Currency, &b.ContactEmail, &phone, &b.ContactFullName, &b.SeatsReserved,
		&b.SeatsReleasedAt, &b.PaymentStatus, &method, &txnID, &b.PaidAt, &b.ConfirmedAt,
		&b.CancelledAt, &b.CancelledBy, &b.Version, &b.CreatedAt, &b.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgError(err)
	}
	b.CancellationReason = strOrEmpty(reason)
	b.ContactPhone = strOrEmpty(phone)
	b.PaymentMethod = domain.PaymentMethod(strOrEmpty(method))
	b.PaymentTxnID = strOrEmpty(txnID)
	return &b, nil
}

var _ BookingRepository = (*PGBookingRepository)(nil)
