package repository

import (
	"context"
	"errors"
	"time"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"

	"github.com/avionda/skybooking/internal/domain"
)

// UserRepository persists accounts through targeted update paths instead of
// a versioned full-row write. Login security counters and verification state
// change on disjoint fields, so last-write-wins per path is safe.
type UserRepository interface {
	Create(ctx context.Context, user *domain.User) error
	GetByID(ctx context.Context, id int64) (*domain.User, error)
	GetByEmail(ctx context.Context, email string) (*domain.User, error)
	GetByVerificationToken(ctx context.Context, token string) (*domain.User, error)
	UpdateLoginSecurity(ctx context.Context, user *domain.User) error
	UpdateVerification(ctx context.Context, user *domain.User) error
}

type PGUserRepository struct {
	db  *pgxpool.Pool
	now func() time.Time
}

func NewUserRepository(db *pgxpool.Pool) UserRepository {
	return &PGUserRepository{db: db, now: time.Now}
}

const userColumns = `id, email, username, password_hash, first_name, last_name, phone, date_of_birth, status, role, email_verified_at, verification_token, verification_token_expiry, verification_resend_count, last_verification_resend_at, failed_login_attempts, last_failed_login_at, account_locked_until, last_login_at, created_at, updated_at`

func (r *PGUserRepository) Create(ctx context.Context, u *domain.User) error {
	stampCreate(&u.CreatedAt, &u.UpdatedAt, r.now())

	err := r.db.QueryRow(ctx, `INSERT INTO users (email, username, password_hash, first_name, last_name, phone, date_of_birth, status, role, verification_token, verification_token_expiry, created_at, updated_at)
		VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12, $13)
		RETURNING id`,
		u.Email, u.Username, u.PasswordHash, u.FirstName, nullStr(u.LastName),
		nullStr(u.Phone), u.DateOfBirth, u.Status, u.Role,
		nullStr(u.VerificationToken), u.VerificationTokenExpiry, u.CreatedAt, u.UpdatedAt).
		Scan(&u.ID)
	if err != nil {
		return mapPgError(err)
	}
	return nil
}

func (r *PGUserRepository) GetByID(ctx context.Context, id int64) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE id=$1`, id)
	return scanUser(row)
}

func (r *PGUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE email=$1`, email)
	return scanUser(row)
}

func (r *PGUserRepository) GetByVerificationToken(ctx context.Context, token string) (*domain.User, error) {
	row := r.db.QueryRow(ctx, `SELECT `+userColumns+` FROM users WHERE verification_token=$1`, token)
	return scanUser(row)
}

func (r *PGUserRepository) UpdateLoginSecurity(ctx context.Context, u *domain.User) error {
	stampUpdate(&u.UpdatedAt, r.now())

	return execConditional(ctx, r.db, domain.NewNotFound("user not found"),
		`UPDATE users SET failed_login_attempts=$1, last_failed_login_at=$2, account_locked_until=$3, last_login_at=$4, updated_at=$5
		WHERE id=$6`,
		u.FailedLoginAttempts, u.LastFailedLoginAt, u.AccountLockedUntil,
		u.LastLoginAt, u.UpdatedAt, u.ID)
}

func (r *PGUserRepository) UpdateVerification(ctx context.Context, u *domain.User) error {
	stampUpdate(&u.UpdatedAt, r.now())

	return execConditional(ctx, r.db, domain.NewNotFound("user not found"),
		`UPDATE users SET status=$1, email_verified_at=$2, verification_token=$3, verification_token_expiry=$4, verification_resend_count=$5, last_verification_resend_at=$6, updated_at=$7
		WHERE id=$8`,
		u.Status, u.EmailVerifiedAt, nullStr(u.VerificationToken), u.VerificationTokenExpiry,
		u.VerificationResendCount, u.LastVerificationResendAt, u.UpdatedAt, u.ID)
}

func scanUser(row pgx.Row) (*domain.User, error) {
	var u domain.User
	var lastName, phone, token *string
	err := row.Scan(&u.ID, &u.Email, &u.Username, &u.PasswordHash, &u.FirstName, &lastName,
		&phone, &u.DateOfBirth, &u.Status, &u.Role, &u.EmailVerifiedAt, &token,
		&u.VerificationTokenExpiry, &u.VerificationResendCount, &u.LastVerificationResendAt,
		&u.FailedLoginAttempts, &u.LastFailedLoginAt, &u.AccountLockedUntil, &u.LastLoginAt,
		&u.CreatedAt, &u.UpdatedAt)
	if err != nil {
		if errors.Is(err, pgx.ErrNoRows) {
			return nil, nil
		}
		return nil, mapPgError(err)
	}
	u.LastName = strOrEmpty(lastName)
	u.Phone = strOrEmpty(phone)
	u.VerificationToken = strOrEmpty(token)
	return &u, nil
}

var _ UserRepository = (*PGUserRepository)(nil)
