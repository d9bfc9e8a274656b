package service

import (
	"context"
	"crypto/rand"
	"errors"
	"fmt"
	"log/slog"
	"math/big"
	"time"

	"github.com/google/uuid"
	"golang.org/x/crypto/bcrypt"

	"github.com/FindNest-Estate/NestFind-sub000/internal/audit"
	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	"github.com/FindNest-Estate/NestFind-sub000/internal/event"
	"github.com/FindNest-Estate/NestFind-sub000/internal/mailer"
	"github.com/FindNest-Estate/NestFind-sub000/internal/repository"
	apperrors "github.com/FindNest-Estate/NestFind-sub000/pkg/errors"
)

// OTP policy.
const (
	otpLength       = 6
	otpAttemptLimit = 3
	otpLockDuration = 30 * time.Minute
	otpExpiry       = 10 * time.Minute
	otpSendLimit    = 3
	otpSendWindow   = time.Hour
)

// OTPVerifier issues and verifies single-use email codes. Each send creates
// a fresh record; only the newest code for a user is ever redeemable, and
// all redemption decisions run under the user's row lock in the store.
type OTPVerifier struct {
	users    repository.UserRepository
	otps     repository.OTPRepository
	sender   mailer.Sender
	producer *event.Producer
	audit    *audit.Recorder
	logger   *slog.Logger
}

// NewOTPVerifier creates an OTP verifier.
func NewOTPVerifier(
	users repository.UserRepository,
	otps repository.OTPRepository,
	sender mailer.Sender,
	producer *event.Producer,
	auditor *audit.Recorder,
	logger *slog.Logger,
) *OTPVerifier {
	return &OTPVerifier{
		users:    users,
		otps:     otps,
		sender:   sender,
		producer: producer,
		audit:    auditor,
		logger:   logger,
	}
}

// GenerateAndSend creates a fresh code for a user awaiting verification and
// emails it. Sends are throttled per user; each successful send supersedes
// any earlier outstanding code.
func (v *OTPVerifier) GenerateAndSend(ctx context.Context, userID string) (*domain.OTPRecord, error) {
	user, err := v.users.GetByID(ctx, userID)
	if err != nil {
		return nil, fmt.Errorf("get user for otp send: %w", err)
	}

	if user.Status != domain.StatusPendingVerification {
		return nil, apperrors.Conflict("account is not awaiting verification")
	}

	sent, err := v.otps.CountRecentSends(ctx, userID, time.Now().UTC().Add(-otpSendWindow))
	if err != nil {
		return nil, fmt.Errorf("count recent otp sends: %w", err)
	}
	if sent >= otpSendLimit {
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPGenerate, Outcome: "throttled", UserID: userID,
		})
		return nil, apperrors.RateLimited("too many verification codes requested, try again later")
	}

	code, err := generateOTPCode()
	if err != nil {
		return nil, fmt.Errorf("generate otp code: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash otp code: %w", err)
	}

	now := time.Now().UTC()
	record := &domain.OTPRecord{
		ID:        uuid.New().String(),
		UserID:    userID,
		OTPHash:   string(hash),
		ExpiresAt: now.Add(otpExpiry),
		CreatedAt: now,
	}
	if err := v.otps.Create(ctx, record); err != nil {
		return nil, fmt.Errorf("store otp record: %w", err)
	}

	if err := v.sender.SendOTP(ctx, user.Email, code); err != nil {
		return nil, fmt.Errorf("send otp email: %w", err)
	}

	v.audit.Record(ctx, audit.Entry{
		Action: audit.ActionOTPGenerate, Outcome: "sent", UserID: userID,
	})
	return record, nil
}

// VerifyInput holds the parameters for an OTP redemption attempt.
type VerifyInput struct {
	UserID string
	Code   string
	IP     string
}

// Verify redeems the user's newest outstanding code and returns the status
// the user transitioned to. The whole decision is one store transaction;
// wrong guesses are counted even though the call fails, and exhausting the
// budget locks the account.
func (v *OTPVerifier) Verify(ctx context.Context, input VerifyInput) (domain.Status, error) {
	redemption, err := v.otps.Redeem(ctx, repository.RedeemInput{
		UserID:       input.UserID,
		Code:         input.Code,
		IP:           input.IP,
		MaxAttempts:  otpAttemptLimit,
		LockDuration: otpLockDuration,
	})
	if err != nil {
		if errors.Is(err, apperrors.ErrNotFound) {
			return "", err
		}
		return "", fmt.Errorf("redeem otp: %w", err)
	}

	switch redemption.Outcome {
	case domain.RedeemOK:
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPVerify, Outcome: "success",
			UserID: input.UserID, IP: input.IP,
		})
		if redemption.NewStatus != "" {
			if err := v.producer.PublishUserVerified(ctx, input.UserID, redemption.NewStatus); err != nil {
				v.logger.ErrorContext(ctx, "failed to publish user_verified event",
					slog.String("user_id", input.UserID),
					slog.String("error", err.Error()),
				)
			}
		}
		return redemption.NewStatus, nil

	case domain.RedeemLocked:
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPVerify, Outcome: "account_locked",
			UserID: input.UserID, IP: input.IP, LockedUntil: redemption.LockedUntil,
		})
		return "", domain.AccountLocked(*redemption.LockedUntil)

	case domain.RedeemNotFound:
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPVerify, Outcome: "not_found",
			UserID: input.UserID, IP: input.IP,
		})
		return "", domain.OTPNotFound()

	case domain.RedeemReuseBlocked:
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPVerify, Outcome: "reuse_blocked",
			UserID: input.UserID, IP: input.IP,
		})
		return "", domain.OTPReuseBlocked()

	case domain.RedeemExpired:
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPVerify, Outcome: "expired",
			UserID: input.UserID, IP: input.IP,
		})
		return "", domain.OTPExpired()

	case domain.RedeemMismatch:
		v.audit.Record(ctx, audit.Entry{
			Action: audit.ActionOTPVerify, Outcome: "mismatch",
			UserID: input.UserID, IP: input.IP, Attempts: otpAttemptLimit - redemption.AttemptsRemaining,
		})
		return "", domain.OTPInvalid(redemption.AttemptsRemaining)

	default:
		return "", fmt.Errorf("unexpected otp redemption outcome %q", redemption.Outcome)
	}
}

// generateOTPCode produces a uniformly random numeric code. Leading zeros
// are preserved to keep a constant length.
func generateOTPCode() (string, error) {
	limit := big.NewInt(1)
	for i := 0; i < otpLength; i++ {
		limit.Mul(limit, big.NewInt(10))
	}
	n, err := rand.Int(rand.Reader, limit)
	if err != nil {
		return "", err
	}
	return fmt.Sprintf("%0*d", otpLength, n), nil
}
