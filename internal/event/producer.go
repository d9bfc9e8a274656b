package event

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/FindNest-Estate/NestFind-sub000/internal/domain"
	pkgkafka "github.com/FindNest-Estate/NestFind-sub000/pkg/kafka"
)

// Kafka topics for auth domain events.
var (
	TopicUserRegistered = pkgkafka.Topic("user", "registered")
	TopicUserVerified   = pkgkafka.Topic("user", "verified")
	TopicLoginLocked    = pkgkafka.Topic("auth", "login_locked")
	TopicSessionRevoked = pkgkafka.Topic("session", "revoked")
	TopicSessionsPurged = pkgkafka.Topic("session", "revoked_all")
	TopicRefreshReuse   = pkgkafka.Topic("auth", "refresh_reuse_detected")
)

// Aggregate type constants.
const (
	AggregateTypeUser    = "user"
	AggregateTypeSession = "session"
)

// SourceAuthService identifies events originating from this service.
const SourceAuthService = "auth-service"

// UserRegisteredData is the payload for a user.registered event.
type UserRegisteredData struct {
	ID       string   `json:"id"`
	Email    string   `json:"email"`
	FullName string   `json:"full_name"`
	Roles    []string `json:"roles"`
	Status   string   `json:"status"`
}

// UserVerifiedData is the payload for a user.verified event.
type UserVerifiedData struct {
	ID     string `json:"id"`
	Status string `json:"status"`
}

// LoginLockedData is the payload for an auth.login_locked event.
type LoginLockedData struct {
	UserID      string    `json:"user_id"`
	LockedUntil time.Time `json:"locked_until"`
	IP          string    `json:"ip,omitempty"`
}

// SessionRevokedData is the payload for a session.revoked event.
type SessionRevokedData struct {
	SessionID string `json:"session_id"`
	UserID    string `json:"user_id"`
}

// SessionsRevokedAllData is the payload for a session.revoked_all event.
type SessionsRevokedAllData struct {
	UserID  string `json:"user_id"`
	Revoked int    `json:"revoked"`
}

// RefreshReuseData is the payload for an auth.refresh_reuse_detected event.
type RefreshReuseData struct {
	UserID          string `json:"user_id"`
	TokenFamilyID   string `json:"token_family_id"`
	RevokedSessions int    `json:"revoked_sessions"`
	IP              string `json:"ip,omitempty"`
}

// Producer publishes auth domain events to Kafka. Publishing happens after
// the originating transaction commits and is never on the caller's critical
// path: failures are logged, not propagated.
type Producer struct {
	kafka  *pkgkafka.Producer
	logger *slog.Logger
}

// NewProducer creates a new event producer for the auth service.
func NewProducer(kafka *pkgkafka.Producer, logger *slog.Logger) *Producer {
	return &Producer{kafka: kafka, logger: logger}
}

// PublishUserRegistered publishes a user.registered event.
func (p *Producer) PublishUserRegistered(ctx context.Context, user *domain.User) error {
	data := UserRegisteredData{
		ID:       user.ID,
		Email:    user.Email,
		FullName: user.FullName,
		Roles:    user.Roles,
		Status:   string(user.Status),
	}
	return p.publish(ctx, TopicUserRegistered, user.ID, AggregateTypeUser, data)
}

// PublishUserVerified publishes a user.verified event after a successful OTP
// consumption.
func (p *Producer) PublishUserVerified(ctx context.Context, userID string, status domain.Status) error {
	data := UserVerifiedData{ID: userID, Status: string(status)}
	return p.publish(ctx, TopicUserVerified, userID, AggregateTypeUser, data)
}

// PublishLoginLocked publishes an auth.login_locked event.
func (p *Producer) PublishLoginLocked(ctx context.Context, userID string, lockedUntil time.Time, ip string) error {
	data := LoginLockedData{UserID: userID, LockedUntil: lockedUntil, IP: ip}
	return p.publish(ctx, TopicLoginLocked, userID, AggregateTypeUser, data)
}

// PublishSessionRevoked publishes a session.revoked event.
func (p *Producer) PublishSessionRevoked(ctx context.Context, sessionID, userID string) error {
	data := SessionRevokedData{SessionID: sessionID, UserID: userID}
	return p.publish(ctx, TopicSessionRevoked, sessionID, AggregateTypeSession, data)
}

// PublishSessionsRevokedAll publishes a session.revoked_all event.
func (p *Producer) PublishSessionsRevokedAll(ctx context.Context, userID string, revoked int) error {
	data := SessionsRevokedAllData{UserID: userID, Revoked: revoked}
	return p.publish(ctx, TopicSessionsPurged, userID, AggregateTypeUser, data)
}

// PublishRefreshReuseDetected publishes an auth.refresh_reuse_detected event.
func (p *Producer) PublishRefreshReuseDetected(ctx context.Context, data RefreshReuseData) error {
	return p.publish(ctx, TopicRefreshReuse, data.UserID, AggregateTypeUser, data)
}

func (p *Producer) publish(ctx context.Context, topic, aggregateID, aggregateType string, data any) error {
	event, err := pkgkafka.NewEvent(topic, aggregateID, aggregateType, SourceAuthService, data)
	if err != nil {
		return fmt.Errorf("create %s event: %w", topic, err)
	}

	if err := p.kafka.Publish(ctx, topic, event); err != nil {
		return fmt.Errorf("publish %s event: %w", topic, err)
	}

	p.logger.DebugContext(ctx, "published event",
		slog.String("topic", topic),
		slog.String("aggregate_id", aggregateID),
	)

	return nil
}
