package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"os/signal"
	"syscall"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"

	"medibook/internal/config"
	"medibook/internal/database"
	"medibook/internal/handlers"
	"medibook/internal/locks"
	"medibook/internal/middlewares"
	"medibook/internal/models"
	"medibook/internal/repositories"
	"medibook/internal/services"
)

type Server struct {
	cfg        *config.Config
	httpServer *http.Server

	db     database.Service
	redis  *redis.Client
	health handlers.HealthChecker

	tokenService services.TokenService
	authService  services.AuthService
	adminService services.AdminService
	credentials  services.CredentialService
	audit        services.AuditService
	sweeper      *services.Sweeper
	limiter      *middlewares.RateLimiter

	stopBackground context.CancelFunc
}

type options struct {
	notifier services.Notifier
	clock    services.Clock
}

type Option func(*options)

// WithNotifier replaces the SMTP notifier, mainly for tests.
func WithNotifier(n services.Notifier) Option {
	return func(o *options) { o.notifier = n }
}

func WithClock(c services.Clock) Option {
	return func(o *options) { o.clock = c }
}

type repositorySet struct {
	accounts repositories.AccountRepository
	otps     repositories.OTPRepository
	sessions repositories.SessionRepository
	audit    repositories.AuditRepository
}

type memoryHealth struct{}

func (memoryHealth) Health() map[string]string {
	return map[string]string{"message": "It's healthy", "storage": config.StorageMemory}
}

func NewServer(ctx context.Context, cfg *config.Config, opts ...Option) (*Server, error) {
	o := options{clock: services.SystemClock}
	for _, opt := range opts {
		opt(&o)
	}

	s := &Server{cfg: cfg}

	repos, err := s.openStorage(ctx)
	if err != nil {
		return nil, err
	}

	locker, err := s.newLocker(ctx)
	if err != nil {
		s.closeStorage(context.Background())
		return nil, err
	}

	if o.notifier == nil {
		o.notifier = services.NewEmailNotifier(services.NewEmailService(cfg.SMTP), cfg.OTP.TTL, cfg.SupportEmail)
	}

	s.credentials = services.NewCredentialService(repos.accounts, cfg.BcryptCost, o.clock)
	otpService := services.NewOTPService(repos.otps, services.OTPSettings{
		TTL:            cfg.OTP.TTL,
		MaxAttempts:    cfg.OTP.MaxAttempts,
		ResendCooldown: cfg.OTP.ResendCooldown,
	}, o.clock, nil)
	sessionService := services.NewSessionService(repos.sessions, locker, o.clock)
	s.tokenService = services.NewTokenService(cfg.JWTSecret, cfg.Session.TTL, cfg.IsProduction(), sessionService, o.clock)
	s.audit = services.NewAuditService(repos.audit, cfg.AuditBuffer, o.clock)

	s.authService = services.NewAuthService(services.AuthDependencies{
		Credentials:  s.credentials,
		OTPs:         otpService,
		Sessions:     sessionService,
		Tokens:       s.tokenService,
		Audit:        s.audit,
		Notifier:     o.notifier,
		SupportEmail: cfg.SupportEmail,
		Clock:        o.clock,
	})
	s.adminService = services.NewAdminService(s.credentials, sessionService, s.audit, o.notifier)
	s.sweeper = services.NewSweeper(sessionService, otpService, s.credentials, services.SweepSchedule{
		SweepInterval: cfg.Session.SweepInterval,
		PurgeInterval: cfg.Session.PurgeInterval,
		RetentionDays: cfg.Session.RetentionDays,
	})
	s.limiter = middlewares.NewRateLimiter(cfg.RateLimitRPS, cfg.RateLimitBurst)

	if err := s.seedAdmin(ctx); err != nil {
		s.audit.Close()
		s.closeStorage(context.Background())
		return nil, err
	}

	s.httpServer = &http.Server{
		Addr:         fmt.Sprintf(":%d", cfg.Port),
		Handler:      s.RegisterRoutes(),
		IdleTimeout:  time.Minute,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 30 * time.Second,
	}

	return s, nil
}

func (s *Server) openStorage(ctx context.Context) (*repositorySet, error) {
	if s.cfg.Storage == config.StorageMemory {
		log.Warn().Msg("Using in-memory storage, data is lost on restart")
		s.health = memoryHealth{}
		return &repositorySet{
			accounts: repositories.NewMemoryAccountRepository(),
			otps:     repositories.NewMemoryOTPRepository(),
			sessions: repositories.NewMemorySessionRepository(),
			audit:    repositories.NewMemoryAuditRepository(),
		}, nil
	}

	db, err := database.New(ctx, s.cfg.MongoURI, s.cfg.MongoDatabase)
	if err != nil {
		return nil, err
	}
	if err := repositories.EnsureIndexes(ctx, db.Database()); err != nil {
		_ = db.Close(context.Background())
		return nil, fmt.Errorf("ensure indexes: %w", err)
	}
	s.db = db
	s.health = db

	return &repositorySet{
		accounts: repositories.NewAccountRepository(db.Database()),
		otps:     repositories.NewOTPRepository(db.Database()),
		sessions: repositories.NewSessionRepository(db.Database()),
		audit:    repositories.NewAuditRepository(db.Database()),
	}, nil
}

// newLocker uses Redis when REDIS_URL is set so several replicas share the
// login locks; otherwise locks are process local.
func (s *Server) newLocker(ctx context.Context) (locks.Locker, error) {
	if s.cfg.RedisURL == "" {
		return locks.NewLocalLocker(), nil
	}

	opts, err := redis.ParseURL(s.cfg.RedisURL)
	if err != nil {
		return nil, fmt.Errorf("parse REDIS_URL: %w", err)
	}
	client := redis.NewClient(opts)
	if err := client.Ping(ctx).Err(); err != nil {
		_ = client.Close()
		return nil, fmt.Errorf("failed to ping Redis: %w", err)
	}
	s.redis = client
	log.Info().Str("addr", opts.Addr).Msg("Connected to Redis, using distributed session locks")
	return locks.NewRedisLocker(client, "medibook:lock", 5*time.Second, 25*time.Millisecond), nil
}

func (s *Server) seedAdmin(ctx context.Context) error {
	if s.cfg.AdminEmail == "" {
		return nil
	}
	_, err := s.credentials.FindByEmail(ctx, models.RoleAdmin, s.cfg.AdminEmail)
	if err == nil {
		return nil
	}
	if !errors.Is(err, services.ErrAccountNotFound) {
		return err
	}

	admin, err := s.credentials.Create(ctx, &models.Account{
		Role:               models.RoleAdmin,
		Name:               "Administrator",
		Email:              s.cfg.AdminEmail,
		VerificationStatus: models.VerificationApproved,
		Permissions:        []string{"accounts:moderate", "audit:read"},
	}, s.cfg.AdminPassword)
	if err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	admin.IsEmailVerified = true
	if err := s.credentials.Save(ctx, admin); err != nil {
		return fmt.Errorf("seed admin: %w", err)
	}
	log.Info().Str("email", admin.Email).Msg("Bootstrap admin account created")
	return nil
}

func (s *Server) closeStorage(ctx context.Context) {
	if s.db != nil {
		if err := s.db.Close(ctx); err != nil {
			log.Error().Err(err).Msg("Failed to disconnect from MongoDB")
		}
	}
	if s.redis != nil {
		if err := s.redis.Close(); err != nil {
			log.Error().Err(err).Msg("Failed to close Redis client")
		}
	}
}

func (s *Server) Handler() http.Handler {
	return s.httpServer.Handler
}

// Start launches the background workers and blocks serving HTTP.
func (s *Server) Start() error {
	bg, cancel := context.WithCancel(context.Background())
	s.stopBackground = cancel
	go s.sweeper.Run(bg)
	go s.limiter.CleanupVisitors(bg)

	log.Info().Int("port", s.cfg.Port).Str("storage", s.cfg.Storage).Msg("Starting server")
	return s.httpServer.ListenAndServe()
}

func (s *Server) GracefulShutdown(done chan bool) {
	ctx, stop := signal.NotifyContext(context.Background(), syscall.SIGINT, syscall.SIGTERM)
	defer stop()

	<-ctx.Done()

	log.Info().Msg("Shutting down gracefully, press Ctrl+C again to force")
	stop()

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := s.httpServer.Shutdown(ctx); err != nil {
		log.Error().Err(err).Msg("Server forced to shutdown with error")
	}
	s.Close(ctx)

	log.Info().Msg("Server exiting")
	done <- true
}

// Close stops background workers, flushes the audit queue and releases
// storage connections.
func (s *Server) Close(ctx context.Context) {
	if s.stopBackground != nil {
		s.stopBackground()
	}
	s.audit.Close()
	s.closeStorage(ctx)
}
