package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"

	"medibook/internal/metrics"
	"medibook/internal/models"
)

type SweepSchedule struct {
	SweepInterval time.Duration
	PurgeInterval time.Duration
	RetentionDays int
}

// Sweeper runs the periodic session expiry sweep, the retention purge of
// inactive sessions and the removal of expired OTP records. Each sweep also
// refreshes the registered accounts gauge.
type Sweeper struct {
	sessions    SessionService
	otps        OTPService
	credentials CredentialService
	schedule    SweepSchedule
}

func NewSweeper(sessions SessionService, otps OTPService, credentials CredentialService, schedule SweepSchedule) *Sweeper {
	return &Sweeper{sessions: sessions, otps: otps, credentials: credentials, schedule: schedule}
}

// Run blocks until ctx is cancelled.
func (s *Sweeper) Run(ctx context.Context) {
	sweep := time.NewTicker(s.schedule.SweepInterval)
	defer sweep.Stop()
	purge := time.NewTicker(s.schedule.PurgeInterval)
	defer purge.Stop()

	log.Info().Dur("sweepInterval", s.schedule.SweepInterval).Dur("purgeInterval", s.schedule.PurgeInterval).Msg("Session sweeper started")
	s.updateAccountGauge(ctx)
	for {
		select {
		case <-ctx.Done():
			log.Info().Msg("Session sweeper stopped")
			return
		case <-sweep.C:
			s.Sweep(ctx)
		case <-purge.C:
			s.Purge(ctx)
		}
	}
}

func (s *Sweeper) Sweep(ctx context.Context) {
	if n, err := s.sessions.SweepExpired(ctx); err != nil {
		log.Error().Err(err).Msg("Session expiry sweep failed")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("Deactivated expired sessions")
	}
	if n, err := s.otps.DeleteExpired(ctx); err != nil {
		log.Error().Err(err).Msg("OTP cleanup failed")
	} else if n > 0 {
		log.Info().Int64("count", n).Msg("Deleted expired OTP records")
	}
	s.updateAccountGauge(ctx)
}

func (s *Sweeper) updateAccountGauge(ctx context.Context) {
	for _, role := range models.Roles {
		count, err := s.credentials.CountAccounts(ctx, role)
		if err != nil {
			log.Error().Err(err).Str("role", string(role)).Msg("Failed to count accounts")
			continue
		}
		metrics.RegisteredAccounts.WithLabelValues(string(role)).Set(float64(count))
	}
}

func (s *Sweeper) Purge(ctx context.Context) {
	n, err := s.sessions.PurgeOld(ctx, s.schedule.RetentionDays)
	if err != nil {
		log.Error().Err(err).Msg("Session purge failed")
		return
	}
	if n > 0 {
		log.Info().Int64("count", n).Int("days", s.schedule.RetentionDays).Msg("Purged old inactive sessions")
	}
}
