package service

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/event"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// AccountService handles registration and profile reads.
type AccountService struct {
	users    repository.UserRepository
	otp      *OTPVerifier
	producer *event.Producer
	logger   *slog.Logger
}

// NewAccountService creates an account service.
func NewAccountService(users repository.UserRepository, otp *OTPVerifier, producer *event.Producer, logger *slog.Logger) *AccountService {
	return &AccountService{users: users, otp: otp, producer: producer, logger: logger}
}

// RegisterInput holds the parameters for creating an account.
type RegisterInput struct {
	Email    string
	Password string
	FullName string
	Roles    []string
}

// Register creates a new account awaiting email verification and sends the
// first code. A send failure does not undo the registration; the user can
// request another code.
func (s *AccountService) Register(ctx context.Context, input RegisterInput) (*domain.User, error) {
	for _, role := range input.Roles {
		if !domain.IsValidRole(role) {
			return nil, apperrors.InvalidInput(fmt.Sprintf("unknown role %q", role))
		}
		if role == domain.RoleAdmin {
			return nil, apperrors.InvalidInput("admin accounts cannot self-register")
		}
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(input.Password), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := time.Now().UTC()
	user := &domain.User{
		ID:           uuid.New().String(),
		Email:        strings.ToLower(strings.TrimSpace(input.Email)),
		PasswordHash: string(hash),
		FullName:     input.FullName,
		Status:       domain.StatusPendingVerification,
		Roles:        input.Roles,
		CreatedAt:    now,
		UpdatedAt:    now,
	}
	if err := s.users.Create(ctx, user); err != nil {
		return nil, err
	}

	if err := s.producer.PublishUserRegistered(ctx, user); err != nil {
		s.logger.ErrorContext(ctx, "failed to publish user_registered event",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	if _, err := s.otp.GenerateAndSend(ctx, user.ID); err != nil {
		s.logger.ErrorContext(ctx, "failed to send initial verification code",
			slog.String("user_id", user.ID),
			slog.String("error", err.Error()),
		)
	}

	return user, nil
}

// GetByID returns the user record.
func (s *AccountService) GetByID(ctx context.Context, id string) (*domain.User, error) {
	return s.users.GetByID(ctx, id)
}

// GetByEmail returns the user record for an email address.
func (s *AccountService) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	return s.users.GetByEmail(ctx, strings.ToLower(strings.TrimSpace(email)))
}
