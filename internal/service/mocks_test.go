package service

import (
	"context"
	"log/slog"
	"os"
	"time"

	"github.com/stretchr/testify/mock"
	"golang.org/x/crypto/bcrypt"

	"github.com/FindNest-Estate/NestFind-sub000/internal/audit"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/event"
	"github.com/FindNest-Estate/NestFind-sub000/internal/notify"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	pkgkafka "github.com/FindNest-Estate/NestFind-sub000/pkg/kafka"
)

// --- Mock User Repository ---

type mockUserRepository struct {
	mock.Mock
}

func (m *mockUserRepository) Create(ctx context.Context, user *domain.User) error {
	args := m.Called(ctx, user)
	return args.Error(0)
}

func (m *mockUserRepository) GetByID(ctx context.Context, id string) (*domain.User, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) GetByEmail(ctx context.Context, email string) (*domain.User, error) {
	args := m.Called(ctx, email)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.User), args.Error(1)
}

func (m *mockUserRepository) RecordLoginFailure(ctx context.Context, userID string, threshold int, lockDuration time.Duration) (*domain.LoginPenalty, error) {
	args := m.Called(ctx, userID, threshold, lockDuration)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.LoginPenalty), args.Error(1)
}

func (m *mockUserRepository) RecordLoginSuccess(ctx context.Context, userID string) (*time.Time, error) {
	args := m.Called(ctx, userID)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*time.Time), args.Error(1)
}

// --- Mock OTP Repository ---

type mockOTPRepository struct {
	mock.Mock
}

func (m *mockOTPRepository) Create(ctx context.Context, record *domain.OTPRecord) error {
	args := m.Called(ctx, record)
	return args.Error(0)
}

func (m *mockOTPRepository) CountRecentSends(ctx context.Context, userID string, since time.Time) (int, error) {
	args := m.Called(ctx, userID, since)
	return args.Int(0), args.Error(1)
}

func (m *mockOTPRepository) Redeem(ctx context.Context, input repository.RedeemInput) (*domain.OTPRedemption, error) {
	args := m.Called(ctx, input)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.OTPRedemption), args.Error(1)
}

// --- Mock Session Repository ---

type mockSessionRepository struct {
	mock.Mock
}

func (m *mockSessionRepository) Create(ctx context.Context, session *domain.Session) error {
	args := m.Called(ctx, session)
	return args.Error(0)
}

func (m *mockSessionRepository) GetByID(ctx context.Context, id string) (*domain.Session, error) {
	args := m.Called(ctx, id)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Session), args.Error(1)
}

func (m *mockSessionRepository) AttachRefreshHead(ctx context.Context, sessionID, tokenHash string) error {
	args := m.Called(ctx, sessionID, tokenHash)
	return args.Error(0)
}

func (m *mockSessionRepository) Rotate(ctx context.Context, presentedHash, newHash, ip string) (*domain.Rotation, error) {
	args := m.Called(ctx, presentedHash, newHash, ip)
	if args.Get(0) == nil {
		return nil, args.Error(1)
	}
	return args.Get(0).(*domain.Rotation), args.Error(1)
}

func (m *mockSessionRepository) Revoke(ctx context.Context, sessionID string) error {
	args := m.Called(ctx, sessionID)
	return args.Error(0)
}

func (m *mockSessionRepository) RevokeAllForUser(ctx context.Context, userID string) (int, error) {
	args := m.Called(ctx, userID)
	return args.Int(0), args.Error(1)
}

func (m *mockSessionRepository) ListForUser(ctx context.Context, userID string, limit, offset int) ([]domain.Session, int, error) {
	args := m.Called(ctx, userID, limit, offset)
	if args.Get(0) == nil {
		return nil, args.Int(1), args.Error(2)
	}
	return args.Get(0).([]domain.Session), args.Int(1), args.Error(2)
}

// --- Mock Mail Sender ---

type mockSender struct {
	mock.Mock
}

func (m *mockSender) SendOTP(ctx context.Context, email, code string) error {
	args := m.Called(ctx, email, code)
	return args.Error(0)
}

// --- Test Helpers ---

func newTestLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(os.Stdout, &slog.HandlerOptions{Level: slog.LevelError}))
}

func newTestEventProducer() *event.Producer {
	logger := newTestLogger()
	kafkaCfg := pkgkafka.DefaultProducerConfig([]string{"localhost:9092"})
	return event.NewProducer(pkgkafka.NewProducer(kafkaCfg, logger), logger)
}

func newTestAudit() *audit.Recorder {
	return audit.NewRecorder(newTestLogger())
}

func newTestHub() *notify.Hub {
	return notify.NewHub(newTestLogger())
}

// hashForTest creates a bcrypt hash with the minimum cost for fast tests.
func hashForTest(secret string) string {
	h, err := bcrypt.GenerateFromPassword([]byte(secret), bcrypt.MinCost)
	if err != nil {
		panic(err)
	}
	return string(h)
}

func timePtr(t time.Time) *time.Time {
	return &t
}
