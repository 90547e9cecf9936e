package repository

import (
	"context"
	"errors"
	"time"

	pgxdecimal "github.com/jackc/pgx-shopspring-decimal"
	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgconn"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avionda/skybooking/internal/domain"
)

// NewPool builds a pgx pool with the decimal codec registered so money
// columns scan into decimal.Decimal without loss.
func NewPool(ctx context.Context, dsn string) (*pgxpool.Pool, error) {
	cfg, err := pgxpool.ParseConfig(dsn)
	if err != nil {
		return nil, err
	}
	cfg.AfterConnect = func(ctx context.Context, conn *pgx.Conn) error {
		pgxdecimal.Register(conn.TypeMap())
		return nil
	}
	return pgxpool.NewWithConfig(ctx, cfg)
}

// execer is the subset of pgxpool.Pool the conditional-write helper needs.
type execer interface {
	Exec(ctx context.Context, sql string, args ...any) (pgconn.CommandTag, error)
}

// execConditional runs an update whose WHERE clause carries a concurrency
// predicate (version match or counter threshold) and maps zero affected
// rows to conflictErr. The helper never retries; callers own that decision.
func execConditional(ctx context.Context, db execer, conflictErr error, sql string, args ...any) error {
	tag, err := db.Exec(ctx, sql, args...)
	if err != nil {
		return mapPgError(err)
	}
	if tag.RowsAffected() == 0 {
		return conflictErr
	}
	return nil
}

// uniqueConstraintFields maps unique-violation constraint names to the
// field reported in the conflict error.
var uniqueConstraintFields = map[string]string{
	"flights_flight_key_key":               "flight_key",
	"bookings_booking_code_key":            "booking_code",
	"checkins_booking_id_passenger_id_key": "passenger_id",
	"users_email_key":                      "email",
	"users_username_key":                   "username",
}

func mapPgError(err error) error {
	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch pgErr.Code {
		case "23505":
			field := uniqueConstraintFields[pgErr.ConstraintName]
			if field == "" {
				field = pgErr.ConstraintName
			}
			return domain.NewConflict(field, "duplicate value")
		case "23503":
			return domain.NewBusinessRule("referenced entity does not exist")
		}
	}
	return domain.NewInternal(err)
}

// nullStr converts empty strings to NULL for optional text columns.
func nullStr(s string) any {
	if s == "" {
		return nil
	}
	return s
}

func strOrEmpty(p *string) string {
	if p == nil {
		return ""
	}
	return *p
}

// stampCreate and stampUpdate set the audit timestamps explicitly right
// before the write is constructed, with the timestamp passed in rather
// than taken from a store-side trigger.
func stampCreate(createdAt, updatedAt *time.Time, now time.Time) {
	*createdAt = now
	*updatedAt = now
}

func stampUpdate(updatedAt *time.Time, now time.Time) {
	*updatedAt = now
}
