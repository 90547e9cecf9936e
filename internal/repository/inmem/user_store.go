package inmem

import (
	"context"
	"sync"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/repository"
)

type UserStore struct {
	mu    sync.Mutex
	seq   int64
	users map[int64]domain.User
}

func NewUserStore() *UserStore {
	return &UserStore{users: make(map[int64]domain.User)}
}

func (s *UserStore) Create(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, existing := range s.users {
		if existing.Email == u.Email {
			return domain.NewConflict("email", "duplicate value")
		}
		if existing.Username == u.Username {
			return domain.NewConflict("username", "duplicate value")
		}
	}

	s.seq++
	u.ID = s.seq
	u.CreatedAt = time.Now()
	u.UpdatedAt = u.CreatedAt
	s.users[u.ID] = *u
	return nil
}

func (s *UserStore) GetByID(_ context.Context, id int64) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	u, ok := s.users[id]
	if !ok {
		return nil, nil
	}
	return &u, nil
}

func (s *UserStore) GetByEmail(_ context.Context, email string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	for _, u := range s.users {
		if u.Email == email {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *UserStore) GetByVerificationToken(_ context.Context, token string) (*domain.User, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	if token == "" {
		return nil, nil
	}
	for _, u := range s.users {
		if u.VerificationToken == token {
			out := u
			return &out, nil
		}
	}
	return nil, nil
}

func (s *UserStore) UpdateLoginSecurity(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return domain.NewNotFound("user not found")
	}
	current.FailedLoginAttempts = u.FailedLoginAttempts
	current.LastFailedLoginAt = u.LastFailedLoginAt
	current.AccountLockedUntil = u.AccountLockedUntil
	current.LastLoginAt = u.LastLoginAt
	current.UpdatedAt = time.Now()
	s.users[u.ID] = current
	return nil
}

func (s *UserStore) UpdateVerification(_ context.Context, u *domain.User) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, ok := s.users[u.ID]
	if !ok {
		return domain.NewNotFound("user not found")
	}
	current.Status = u.Status
	current.EmailVerifiedAt = u.EmailVerifiedAt
	current.VerificationToken = u.VerificationToken
	current.VerificationTokenExpiry = u.VerificationTokenExpiry
	current.VerificationResendCount = u.VerificationResendCount
	current.LastVerificationResendAt = u.LastVerificationResendAt
	current.UpdatedAt = time.Now()
	s.users[u.ID] = current
	return nil
}

var _ repository.UserRepository = (*UserStore)(nil)
