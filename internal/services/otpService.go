package services

import (
	"context"
	"errors"
	"fmt"
	"math"
	"time"

	"github.com/rs/zerolog/log"
	"golang.org/x/crypto/bcrypt"

	"medibook/internal/metrics"
	"medibook/internal/models"
	"medibook/internal/repositories"
	"medibook/internal/utils"
)

type OTPSettings struct {
	TTL            time.Duration
	MaxAttempts    int
	ResendCooldown time.Duration
}

type OTPService interface {
	// CheckRateLimit returns a *RateLimitError when the newest code for the
	// pair was issued less than the cool-down ago.
	CheckRateLimit(ctx context.Context, email string, purpose models.OTPPurpose) error
	// Issue replaces any pending code for the pair and returns the plaintext
	// code for delivery. Only a hash is persisted.
	Issue(ctx context.Context, email string, role models.Role, purpose models.OTPPurpose) (string, error)
	Verify(ctx context.Context, email, code string, purpose models.OTPPurpose) (*models.OTPRecord, error)
	Consume(ctx context.Context, record *models.OTPRecord) error
	DeleteExpired(ctx context.Context) (int64, error)
}

type otpService struct {
	otpRepo  repositories.OTPRepository
	settings OTPSettings
	clock    Clock
	generate func() (string, error)
}

// NewOTPService builds the OTP engine. A nil generate uses a cryptographically
// random six digit code.
func NewOTPService(otpRepo repositories.OTPRepository, settings OTPSettings, clock Clock, generate func() (string, error)) OTPService {
	if generate == nil {
		generate = utils.GenerateSecureOTP
	}
	return &otpService{otpRepo: otpRepo, settings: settings, clock: clock, generate: generate}
}

func (s *otpService) CheckRateLimit(ctx context.Context, email string, purpose models.OTPPurpose) error {
	latest, err := s.otpRepo.FindLatest(ctx, models.NormalizeEmail(email), purpose)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil
	}
	if err != nil {
		return fmt.Errorf("find latest otp: %w", err)
	}

	elapsed := s.clock.Now().Sub(latest.CreatedAt)
	if elapsed >= s.settings.ResendCooldown {
		return nil
	}
	wait := int(math.Ceil((s.settings.ResendCooldown - elapsed).Seconds()))
	if wait < 1 {
		wait = 1
	}
	return &RateLimitError{WaitSeconds: wait}
}

func (s *otpService) Issue(ctx context.Context, email string, role models.Role, purpose models.OTPPurpose) (string, error) {
	email = models.NormalizeEmail(email)

	if _, err := s.otpRepo.DeleteUnverified(ctx, email, purpose); err != nil {
		return "", fmt.Errorf("delete pending otp: %w", err)
	}

	code, err := s.generate()
	if err != nil {
		return "", fmt.Errorf("generate otp: %w", err)
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(code), bcrypt.MinCost)
	if err != nil {
		return "", fmt.Errorf("hash otp: %w", err)
	}

	now := s.clock.Now()
	record := &models.OTPRecord{
		Email:     email,
		CodeHash:  string(hash),
		Role:      role,
		Purpose:   purpose,
		ExpiresAt: now.Add(s.settings.TTL),
		CreatedAt: now,
	}
	if _, err := s.otpRepo.Create(ctx, record); err != nil {
		return "", fmt.Errorf("store otp: %w", err)
	}

	metrics.OTPIssuedTotal.WithLabelValues(string(purpose)).Inc()
	return code, nil
}

func (s *otpService) Verify(ctx context.Context, email, code string, purpose models.OTPPurpose) (*models.OTPRecord, error) {
	email = models.NormalizeEmail(email)
	outcome := metrics.OTPVerificationsTotal.MustCurryWith(map[string]string{"purpose": string(purpose)})

	record, err := s.otpRepo.FindLatestUnverified(ctx, email, purpose)
	if errors.Is(err, repositories.ErrNotFound) {
		outcome.WithLabelValues("not_found").Inc()
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find otp: %w", err)
	}

	if !s.clock.Now().Before(record.ExpiresAt) {
		s.discard(ctx, record)
		outcome.WithLabelValues("expired").Inc()
		return nil, ErrOTPExpired
	}

	if record.Attempts >= s.settings.MaxAttempts {
		s.discard(ctx, record)
		outcome.WithLabelValues("exhausted").Inc()
		return nil, ErrOTPExhausted
	}

	// Every comparison is paid for up front so concurrent guesses cannot
	// all pass the check above before any of them is counted.
	attempts, err := s.otpRepo.ClaimAttempt(ctx, record.ID, s.settings.MaxAttempts)
	if errors.Is(err, repositories.ErrNotFound) {
		outcome.WithLabelValues("exhausted").Inc()
		return nil, ErrOTPExhausted
	}
	if err != nil {
		return nil, fmt.Errorf("claim otp attempt: %w", err)
	}
	record.Attempts = attempts

	if bcrypt.CompareHashAndPassword([]byte(record.CodeHash), []byte(code)) != nil {
		outcome.WithLabelValues("invalid").Inc()
		return nil, &OTPError{Err: ErrOTPInvalid, AttemptsRemaining: s.settings.MaxAttempts - attempts}
	}

	if err := s.otpRepo.MarkVerified(ctx, record.ID); err != nil {
		if errors.Is(err, repositories.ErrNotFound) {
			// Lost a race with a concurrent verification of the same code.
			return nil, ErrOTPNotFound
		}
		return nil, fmt.Errorf("mark otp verified: %w", err)
	}
	record.Verified = true
	outcome.WithLabelValues("verified").Inc()
	return record, nil
}

func (s *otpService) Consume(ctx context.Context, record *models.OTPRecord) error {
	if err := s.otpRepo.Delete(ctx, record.ID); err != nil {
		return fmt.Errorf("delete otp: %w", err)
	}
	return nil
}

func (s *otpService) DeleteExpired(ctx context.Context) (int64, error) {
	return s.otpRepo.DeleteExpired(ctx, s.clock.Now())
}

func (s *otpService) discard(ctx context.Context, record *models.OTPRecord) {
	if err := s.otpRepo.Delete(ctx, record.ID); err != nil {
		log.Warn().Err(err).Str("email", record.Email).Str("purpose", string(record.Purpose)).Msg("Failed to delete terminal OTP record")
	}
}
