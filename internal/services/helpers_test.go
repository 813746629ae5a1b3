package services

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"medibook/internal/locks"
	"medibook/internal/models"
	"medibook/internal/repositories"
)

const testSecret = "0123456789abcdef0123456789abcdef"

type fakeClock struct {
	mu  sync.Mutex
	now time.Time
}

func newFakeClock() *fakeClock {
	return &fakeClock{now: time.Date(2024, 3, 1, 9, 0, 0, 0, time.UTC)}
}

func (c *fakeClock) Now() time.Time {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.now
}

func (c *fakeClock) Advance(d time.Duration) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.now = c.now.Add(d)
}

type sentOTP struct {
	to      string
	code    string
	purpose models.OTPPurpose
}

type fakeNotifier struct {
	mu        sync.Mutex
	otps      []sentOTP
	welcomes  []string
	changed   []string
	suspended []string
	fail      bool
}

func (n *fakeNotifier) err() error {
	if n.fail {
		return ErrMailerNotConfigured
	}
	return nil
}

func (n *fakeNotifier) SendOTP(_ context.Context, to, _, code string, purpose models.OTPPurpose) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.otps = append(n.otps, sentOTP{to: to, code: code, purpose: purpose})
	return n.err()
}

func (n *fakeNotifier) SendWelcome(_ context.Context, to, _ string, _ models.Role) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.welcomes = append(n.welcomes, to)
	return n.err()
}

func (n *fakeNotifier) SendPasswordChanged(_ context.Context, to, _ string, _ time.Time) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.changed = append(n.changed, to)
	return n.err()
}

func (n *fakeNotifier) SendAccountSuspended(_ context.Context, to, _, _, _ string) error {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.suspended = append(n.suspended, to)
	return n.err()
}

// lastCode returns the most recent code mailed to the address for purpose.
func (n *fakeNotifier) lastCode(t *testing.T, to string, purpose models.OTPPurpose) string {
	t.Helper()
	n.mu.Lock()
	defer n.mu.Unlock()
	for i := len(n.otps) - 1; i >= 0; i-- {
		if n.otps[i].to == to && n.otps[i].purpose == purpose {
			return n.otps[i].code
		}
	}
	t.Fatalf("no %s code sent to %s", purpose, to)
	return ""
}

type auditSnapshot interface {
	AuthLogs() []models.AuthLog
	AdminActions() []models.AdminActionLog
}

type testEnv struct {
	clock       *fakeClock
	notifier    *fakeNotifier
	accounts    repositories.AccountRepository
	otpRepo     repositories.OTPRepository
	sessionRepo repositories.SessionRepository
	auditRepo   repositories.AuditRepository

	credentials CredentialService
	otps        OTPService
	sessions    SessionService
	tokens      TokenService
	audit       AuditService
	auth        AuthService
	admin       AdminService
}

// newTestEnv wires every service over in-memory storage. An optional
// generator replaces the random OTP source.
func newTestEnv(t *testing.T, generate ...func() (string, error)) *testEnv {
	t.Helper()
	var gen func() (string, error)
	if len(generate) > 0 {
		gen = generate[0]
	}
	env := &testEnv{
		clock:       newFakeClock(),
		notifier:    &fakeNotifier{},
		accounts:    repositories.NewMemoryAccountRepository(),
		otpRepo:     repositories.NewMemoryOTPRepository(),
		sessionRepo: repositories.NewMemorySessionRepository(),
		auditRepo:   repositories.NewMemoryAuditRepository(),
	}
	env.credentials = NewCredentialService(env.accounts, 4, env.clock)
	env.otps = NewOTPService(env.otpRepo, OTPSettings{TTL: 10 * time.Minute, MaxAttempts: 3, ResendCooldown: 60 * time.Second}, env.clock, gen)
	env.sessions = NewSessionService(env.sessionRepo, locks.NewLocalLocker(), env.clock)
	env.tokens = NewTokenService(testSecret, 7*24*time.Hour, false, env.sessions, env.clock)
	env.audit = NewAuditService(env.auditRepo, 64, env.clock)
	t.Cleanup(env.audit.Close)
	env.auth = NewAuthService(AuthDependencies{
		Credentials:  env.credentials,
		OTPs:         env.otps,
		Sessions:     env.sessions,
		Tokens:       env.tokens,
		Audit:        env.audit,
		Notifier:     env.notifier,
		SupportEmail: "support@medibook.test",
		Clock:        env.clock,
	})
	env.admin = NewAdminService(env.credentials, env.sessions, env.audit, env.notifier)
	return env
}

var clientInfo = RequestInfo{IPAddress: "203.0.113.7", UserAgent: "Mozilla/5.0 (Macintosh; Intel Mac OS X 10_15_7) AppleWebKit/537.36 (KHTML, like Gecko) Chrome/120.0 Safari/537.36"}

// registerVerified registers an account and completes email verification.
func (e *testEnv) registerVerified(t *testing.T, role models.Role, email, password string) *models.Account {
	t.Helper()
	ctx := context.Background()
	req := models.RegisterRequest{Name: "Test User", Email: email, Password: password, Role: string(role)}
	if role == models.RoleDoctor {
		req.Specialization = "Cardiology"
		req.LicenseNumber = "LIC-1"
	}
	_, err := e.auth.Register(ctx, req, clientInfo)
	require.NoError(t, err)

	res, err := e.auth.VerifyOTP(ctx, models.VerifyOTPRequest{
		Email: email, OTP: e.notifier.lastCode(t, email, models.OTPPurposeRegistration),
		Role: string(role), Purpose: string(models.OTPPurposeRegistration),
	}, clientInfo)
	require.NoError(t, err)
	return res.Account
}

// login runs both login steps and returns the issued session.
func (e *testEnv) login(t *testing.T, role models.Role, email, password string) *VerifyResult {
	t.Helper()
	ctx := context.Background()
	_, err := e.auth.Login(ctx, models.Login{Email: email, Password: password, Role: string(role)}, clientInfo)
	require.NoError(t, err)

	res, err := e.auth.VerifyOTP(ctx, models.VerifyOTPRequest{
		Email: email, OTP: e.notifier.lastCode(t, email, models.OTPPurposeLogin),
		Role: string(role), Purpose: string(models.OTPPurposeLogin),
	}, clientInfo)
	require.NoError(t, err)
	return res
}

// createAdmin stores a verified admin account directly.
func (e *testEnv) createAdmin(t *testing.T, email, password string) *models.Account {
	t.Helper()
	ctx := context.Background()
	admin, err := e.credentials.Create(ctx, &models.Account{Role: models.RoleAdmin, Name: "Admin", Email: email}, password)
	require.NoError(t, err)
	admin.IsEmailVerified = true
	require.NoError(t, e.credentials.Save(ctx, admin))
	return admin
}

func wrongCode(code string) string {
	if code == "999999" {
		return "100000"
	}
	return "999999"
}

func fixedCodes(codes ...string) func() (string, error) {
	var mu sync.Mutex
	i := 0
	return func() (string, error) {
		mu.Lock()
		defer mu.Unlock()
		code := codes[i%len(codes)]
		i++
		return code, nil
	}
}
