package auth

import (
	"context"
	"time"

	"github.com/avionda/skybooking/internal/domain"
	"github.com/avionda/skybooking/internal/kafka"
	"github.com/avionda/skybooking/internal/logger"
	"github.com/avionda/skybooking/internal/repository"
)

type AuthUseCase interface {
	Register(ctx context.Context, input RegisterInput) (*domain.User, error)
	Login(ctx context.Context, email, password string) (*domain.User, error)
	VerifyEmail(ctx context.Context, token string) (*domain.User, error)
	ResendVerification(ctx context.Context, email string) (*domain.User, error)
}

// PasswordHasher and TokenIssuer stay behind interfaces; the engine owns the
// lockout and throttle machinery, not the cryptography.
type PasswordHasher interface {
	Hash(password string) (string, error)
	Compare(hash, password string) bool
}

type TokenIssuer interface {
	NewToken() string
}

type Producer interface {
	Publish(ctx context.Context, topic, key string, payload any) error
}

type RegisterInput struct {
	Email       string
	Password    string
	FullName    string
	Phone       string
	DateOfBirth *time.Time
}

type AuthService struct {
	users  repository.UserRepository
	hasher PasswordHasher
	tokens TokenIssuer

	producer Producer
	topic    string

	log *logger.Logger
	now func() time.Time
}

type AuthServiceOption func(*AuthService)

func WithProducer(producer Producer, topic string) AuthServiceOption {
	return func(s *AuthService) {
		s.producer = producer
		s.topic = topic
	}
}

func WithClock(now func() time.Time) AuthServiceOption {
	return func(s *AuthService) { s.now = now }
}

func NewAuthService(
	users repository.UserRepository,
	hasher PasswordHasher,
	tokens TokenIssuer,
	log *logger.Logger,
	opts ...AuthServiceOption,
) *AuthService {
	service := &AuthService{
		users:  users,
		hasher: hasher,
		tokens: tokens,
		log:    log,
		now:    time.Now,
	}
	for _, opt := range opts {
		opt(service)
	}
	return service
}

// Register creates a pending account and issues the first verification
// token. Duplicate email/username surface as conflicts from the store.
func (s *AuthService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	now := s.now()
	user, err := domain.NewUserForRegistration(domain.RegisterUserProps{
		Email:       input.Email,
		Password:    input.Password,
		FullName:    input.FullName,
		Phone:       input.Phone,
		DateOfBirth: input.DateOfBirth,
	}, now)
	if err != nil {
		return nil, err
	}

	hash, err := s.hasher.Hash(input.Password)
	if err != nil {
		return nil, domain.NewInternal(err)
	}
	user.PasswordHash = hash
	user.StartVerification(s.tokens.NewToken(), now.Add(domain.VerificationTokenTTL))

	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("user registered", "user_id", user.ID)
	s.publishUserEvent(ctx, kafka.EventUserRegistered, user, user.VerificationToken)
	return user, nil
}

// Login runs the lockout machine. The guard order is lock, account status,
// stale-aware attempt count; only then the password is compared. A wrong
// password and an unknown email both answer "invalid credentials".
func (s *AuthService) Login(ctx context.Context, email, password string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NewBusinessRule("invalid credentials")
	}

	now := s.now()
	if err := user.ValidateLoginAttempt(now); err != nil {
		return nil, err
	}

	if !s.hasher.Compare(user.PasswordHash, password) {
		user.HandleFailedLogin(now)
		if err := s.users.UpdateLoginSecurity(ctx, user); err != nil {
			s.log.Error("failed to persist failed login", "user_id", user.ID, "error", err)
		}
		return nil, domain.NewBusinessRule("invalid credentials")
	}

	user.HandleSuccessfulLogin(now)
	if err := s.users.UpdateLoginSecurity(ctx, user); err != nil {
		s.log.Error("failed to persist successful login", "user_id", user.ID, "error", err)
	}
	return user, nil
}

func (s *AuthService) VerifyEmail(ctx context.Context, token string) (*domain.User, error) {
	user, err := s.users.GetByVerificationToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NewNotFound("verification token not found")
	}

	if err := user.VerifyEmail(s.now()); err != nil {
		return nil, err
	}
	if err := s.users.UpdateVerification(ctx, user); err != nil {
		return nil, err
	}

	s.log.Info("email verified", "user_id", user.ID)
	s.publishUserEvent(ctx, kafka.EventUserEmailVerified, user, "")
	return user, nil
}

func (s *AuthService) ResendVerification(ctx context.Context, email string) (*domain.User, error) {
	user, err := s.users.GetByEmail(ctx, email)
	if err != nil {
		return nil, err
	}
	if user == nil {
		return nil, domain.NewNotFound("user not found")
	}

	now := s.now()
	if err := user.PrepareResendVerification(s.tokens.NewToken(), now.Add(domain.VerificationTokenTTL), now); err != nil {
		return nil, err
	}
	if err := s.users.UpdateVerification(ctx, user); err != nil {
		return nil, err
	}

	s.publishUserEvent(ctx, kafka.EventUserRegistered, user, user.VerificationToken)
	return user, nil
}

func (s *AuthService) publishUserEvent(ctx context.Context, eventType string, user *domain.User, token string) {
	if s.producer == nil || s.topic == "" {
		return
	}
	event := kafka.UserEvent{
		Type:       eventType,
		UserID:     user.ID,
		Email:      user.Email,
		Token:      token,
		OccurredAt: s.now(),
	}
	if err := s.producer.Publish(ctx, s.topic, user.Email, event); err != nil {
		s.log.Warn("failed to publish user event", "type", eventType, "user_id", user.ID, "error", err)
	}
}

var _ AuthUseCase = (*AuthService)(nil)
