package services

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medibook/internal/locks"
	"medibook/internal/metrics"
	"medibook/internal/models"
	"medibook/internal/repositories"
)

// EnforceResult reports what single-device enforcement closed.
type EnforceResult struct {
	RevokedCount   int64
	HadPriorDevice bool
}

type SessionService interface {
	EnforceSingleDevice(ctx context.Context, userID primitive.ObjectID, userType string) (EnforceResult, error)
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	// EnforceAndCreate revokes the user's active sessions and stores the new
	// one while holding the per-user lock.
	EnforceAndCreate(ctx context.Context, session *models.Session) (*models.Session, EnforceResult, error)
	FindByToken(ctx context.Context, token string) (*models.Session, error)
	Touch(ctx context.Context, token string)
	Revoke(ctx context.Context, sessionID, userID primitive.ObjectID) error
	RevokeToken(ctx context.Context, token, reason string) error
	RevokeAllExcept(ctx context.Context, userID primitive.ObjectID, userType, exceptToken string) (int64, error)
	RevokeAll(ctx context.Context, userID primitive.ObjectID, userType, reason string) (int64, error)
	ListActive(ctx context.Context, userID primitive.ObjectID, userType string) ([]models.Session, error)
	SweepExpired(ctx context.Context) (int64, error)
	PurgeOld(ctx context.Context, daysOld int) (int64, error)
}

type sessionService struct {
	sessions repositories.SessionRepository
	locker   locks.Locker
	clock    Clock
}

func NewSessionService(sessions repositories.SessionRepository, locker locks.Locker, clock Clock) SessionService {
	return &sessionService{sessions: sessions, locker: locker, clock: clock}
}

func sessionLockKey(userID primitive.ObjectID, userType string) string {
	return "session:" + userType + ":" + userID.Hex()
}

func (s *sessionService) EnforceSingleDevice(ctx context.Context, userID primitive.ObjectID, userType string) (EnforceResult, error) {
	n, err := s.sessions.RevokeActiveForUser(ctx, userID, userType, "", models.RevokedNewLogin, s.clock.Now())
	if err != nil {
		return EnforceResult{}, fmt.Errorf("enforce single device: %w", err)
	}
	if n > 0 {
		metrics.SessionsRevokedTotal.WithLabelValues(models.RevokedNewLogin).Add(float64(n))
		log.Info().Str("userId", userID.Hex()).Str("userType", userType).Int64("revoked", n).Msg("Revoked sessions on other devices")
	}
	return EnforceResult{RevokedCount: n, HadPriorDevice: n > 0}, nil
}

func (s *sessionService) Create(ctx context.Context, session *models.Session) (*models.Session, error) {
	now := s.clock.Now()
	if session.CreatedAt.IsZero() {
		session.CreatedAt = now
	}
	if session.LastActivity.IsZero() {
		session.LastActivity = now
	}
	session.IsActive = true

	created, err := s.sessions.Create(ctx, session)
	if err != nil {
		return nil, err
	}
	metrics.SessionsCreatedTotal.Inc()
	return created, nil
}

func (s *sessionService) EnforceAndCreate(ctx context.Context, session *models.Session) (*models.Session, EnforceResult, error) {
	release, err := s.locker.Acquire(ctx, sessionLockKey(session.UserID, session.UserType))
	if err != nil {
		return nil, EnforceResult{}, fmt.Errorf("acquire session lock: %w", err)
	}
	defer release()

	result, err := s.EnforceSingleDevice(ctx, session.UserID, session.UserType)
	if err != nil {
		return nil, EnforceResult{}, err
	}

	created, err := s.Create(ctx, session)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		// Another instance slipped a session in, e.g. after a lock TTL lapsed.
		// The unique index rejected ours; enforce once more and retry.
		again, enforceErr := s.EnforceSingleDevice(ctx, session.UserID, session.UserType)
		if enforceErr != nil {
			return nil, EnforceResult{}, enforceErr
		}
		result.RevokedCount += again.RevokedCount
		result.HadPriorDevice = result.RevokedCount > 0
		created, err = s.Create(ctx, session)
	}
	if err != nil {
		return nil, EnforceResult{}, fmt.Errorf("create session: %w", err)
	}
	return created, result, nil
}

func (s *sessionService) FindByToken(ctx context.Context, token string) (*models.Session, error) {
	session, err := s.sessions.FindActiveByToken(ctx, token, s.clock.Now())
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, fmt.Errorf("find session: %w", err)
	}
	return session, nil
}

func (s *sessionService) Touch(ctx context.Context, token string) {
	if err := s.sessions.Touch(ctx, token, s.clock.Now()); err != nil {
		log.Warn().Err(err).Msg("Failed to refresh session activity")
	}
}

func (s *sessionService) Revoke(ctx context.Context, sessionID, userID primitive.ObjectID) error {
	ok, err := s.sessions.RevokeByID(ctx, sessionID, userID, models.RevokedByUser, s.clock.Now())
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	metrics.SessionsRevokedTotal.WithLabelValues(models.RevokedByUser).Inc()
	return nil
}

func (s *sessionService) RevokeToken(ctx context.Context, token, reason string) error {
	ok, err := s.sessions.RevokeByToken(ctx, token, reason, s.clock.Now())
	if err != nil {
		return fmt.Errorf("revoke session: %w", err)
	}
	if !ok {
		return ErrSessionNotFound
	}
	metrics.SessionsRevokedTotal.WithLabelValues(reason).Inc()
	return nil
}

func (s *sessionService) RevokeAllExcept(ctx context.Context, userID primitive.ObjectID, userType, exceptToken string) (int64, error) {
	if exceptToken == "" {
		return 0, validationError("current session token is required")
	}
	return s.revokeAll(ctx, userID, userType, exceptToken, models.RevokedOtherDevice)
}

func (s *sessionService) RevokeAll(ctx context.Context, userID primitive.ObjectID, userType, reason string) (int64, error) {
	return s.revokeAll(ctx, userID, userType, "", reason)
}

func (s *sessionService) revokeAll(ctx context.Context, userID primitive.ObjectID, userType, exceptToken, reason string) (int64, error) {
	n, err := s.sessions.RevokeActiveForUser(ctx, userID, userType, exceptToken, reason, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("revoke sessions: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues(reason).Add(float64(n))
	return n, nil
}

func (s *sessionService) ListActive(ctx context.Context, userID primitive.ObjectID, userType string) ([]models.Session, error) {
	sessions, err := s.sessions.ListActive(ctx, userID, userType, s.clock.Now())
	if err != nil {
		return nil, fmt.Errorf("list sessions: %w", err)
	}
	return sessions, nil
}

func (s *sessionService) SweepExpired(ctx context.Context) (int64, error) {
	n, err := s.sessions.DeactivateExpired(ctx, s.clock.Now())
	if err != nil {
		return 0, fmt.Errorf("sweep expired sessions: %w", err)
	}
	metrics.SessionsRevokedTotal.WithLabelValues(models.RevokedExpired).Add(float64(n))
	return n, nil
}

func (s *sessionService) PurgeOld(ctx context.Context, daysOld int) (int64, error) {
	cutoff := s.clock.Now().Add(-time.Duration(daysOld) * 24 * time.Hour)
	n, err := s.sessions.DeleteInactiveBefore(ctx, cutoff)
	if err != nil {
		return 0, fmt.Errorf("purge sessions: %w", err)
	}
	return n, nil
}
