package repositories

import (
	"context"
	"os"
	"testing"
	"time"

	"github.com/rs/zerolog/log"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/testcontainers/testcontainers-go/modules/mongodb"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"medibook/internal/database"
	"medibook/internal/models"
)

var testDB *mongo.Database

func TestMain(m *testing.M) {
	if os.Getenv("MEDIBOOK_INTEGRATION") == "" {
		os.Exit(m.Run())
	}

	ctx := context.Background()
	container, err := mongodb.Run(ctx, "mongo:7")
	if err != nil {
		log.Fatal().Err(err).Msg("Could not start mongodb container")
	}
	uri, err := container.ConnectionString(ctx)
	if err != nil {
		log.Fatal().Err(err).Msg("Could not read mongodb connection string")
	}
	srv, err := database.New(ctx, uri, "medibook_repositories_test")
	if err != nil {
		log.Fatal().Err(err).Msg("Could not connect to mongodb")
	}
	testDB = srv.Database()
	if err := EnsureIndexes(ctx, testDB); err != nil {
		log.Fatal().Err(err).Msg("Could not create indexes")
	}

	code := m.Run()

	_ = srv.Close(ctx)
	if err := container.Terminate(ctx); err != nil {
		log.Fatal().Err(err).Msg("Could not teardown mongodb container")
	}
	os.Exit(code)
}

type backend struct {
	name     string
	accounts AccountRepository
	otps     OTPRepository
	sessions SessionRepository
	audit    AuditRepository
}

// backends returns the in-memory repositories and, when MEDIBOOK_INTEGRATION
// is set, a freshly dropped MongoDB set.
func backends(t *testing.T) []backend {
	out := []backend{{
		name:     "memory",
		accounts: NewMemoryAccountRepository(),
		otps:     NewMemoryOTPRepository(),
		sessions: NewMemorySessionRepository(),
		audit:    NewMemoryAuditRepository(),
	}}
	if testDB != nil && !testing.Short() {
		require.NoError(t, testDB.Drop(context.Background()))
		require.NoError(t, EnsureIndexes(context.Background(), testDB))
		out = append(out, backend{
			name:     "mongo",
			accounts: NewAccountRepository(testDB),
			otps:     NewOTPRepository(testDB),
			sessions: NewSessionRepository(testDB),
			audit:    NewAuditRepository(testDB),
		})
	}
	return out
}

func TestAccountRepository(t *testing.T) {
	ctx := context.Background()
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			doctor := &models.Account{Role: models.RoleDoctor, Name: "Dr. Grey", Email: "grey@example.com", PasswordHash: "x", IsActive: true}
			created, err := b.accounts.Create(ctx, doctor)
			require.NoError(t, err)
			assert.False(t, created.ID.IsZero())

			_, err = b.accounts.Create(ctx, &models.Account{Role: models.RoleDoctor, Email: "grey@example.com"})
			assert.ErrorIs(t, err, ErrDuplicateKey)

			exists, err := b.accounts.EmailExists(ctx, "grey@example.com")
			require.NoError(t, err)
			assert.True(t, exists)

			found, err := b.accounts.FindByEmail(ctx, models.RoleDoctor, "grey@example.com")
			require.NoError(t, err)
			assert.Equal(t, models.RoleDoctor, found.Role)
			assert.Equal(t, "x", found.PasswordHash)

			_, err = b.accounts.FindByEmail(ctx, models.RolePatient, "grey@example.com")
			assert.ErrorIs(t, err, ErrNotFound)

			found.Name = "Dr. Meredith Grey"
			require.NoError(t, b.accounts.Update(ctx, found))
			again, err := b.accounts.FindByID(ctx, models.RoleDoctor, created.ID)
			require.NoError(t, err)
			assert.Equal(t, "Dr. Meredith Grey", again.Name)

			n, err := b.accounts.CountAll(ctx, models.RoleDoctor)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			require.NoError(t, b.accounts.Delete(ctx, models.RoleDoctor, created.ID))
			assert.ErrorIs(t, b.accounts.Delete(ctx, models.RoleDoctor, created.ID), ErrNotFound)
		})
	}
}

func TestOTPRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			older := &models.OTPRecord{Email: "a@example.com", CodeHash: "h1", Purpose: models.OTPPurposeLogin, ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now.Add(-time.Minute)}
			newer := &models.OTPRecord{Email: "a@example.com", CodeHash: "h2", Purpose: models.OTPPurposeLogin, ExpiresAt: now.Add(10 * time.Minute), CreatedAt: now}
			_, err := b.otps.Create(ctx, older)
			require.NoError(t, err)
			_, err = b.otps.Create(ctx, newer)
			require.NoError(t, err)

			latest, err := b.otps.FindLatestUnverified(ctx, "a@example.com", models.OTPPurposeLogin)
			require.NoError(t, err)
			assert.Equal(t, "h2", latest.CodeHash)

			attempts, err := b.otps.ClaimAttempt(ctx, latest.ID, 3)
			require.NoError(t, err)
			assert.Equal(t, 1, attempts)
			require.NoError(t, b.otps.MarkVerified(ctx, latest.ID))
			assert.ErrorIs(t, b.otps.MarkVerified(ctx, latest.ID), ErrNotFound)

			latest, err = b.otps.FindLatestUnverified(ctx, "a@example.com", models.OTPPurposeLogin)
			require.NoError(t, err)
			assert.Equal(t, "h1", latest.CodeHash)

			attempts, err = b.otps.ClaimAttempt(ctx, latest.ID, 1)
			require.NoError(t, err)
			assert.Equal(t, 1, attempts)
			_, err = b.otps.ClaimAttempt(ctx, latest.ID, 1)
			assert.ErrorIs(t, err, ErrNotFound, "no attempt may be claimed past the cap")

			newest, err := b.otps.FindLatest(ctx, "a@example.com", models.OTPPurposeLogin)
			require.NoError(t, err)
			assert.True(t, newest.Verified)
			assert.Equal(t, 1, newest.Attempts)

			n, err := b.otps.DeleteUnverified(ctx, "a@example.com", models.OTPPurposeLogin)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			n, err = b.otps.DeleteExpired(ctx, now.Add(time.Hour))
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			_, err = b.otps.FindLatest(ctx, "a@example.com", models.OTPPurposeLogin)
			assert.ErrorIs(t, err, ErrNotFound)
		})
	}
}

func TestSessionRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	userID := primitive.NewObjectID()

	newSession := func(token string, expiresAt time.Time) *models.Session {
		return &models.Session{UserID: userID, UserType: "Patient", Token: token, IsActive: true, LastActivity: now, ExpiresAt: expiresAt, CreatedAt: now}
	}

	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			_, err := b.sessions.Create(ctx, newSession("t1", now.Add(time.Hour)))
			require.NoError(t, err)

			_, err = b.sessions.Create(ctx, newSession("t2", now.Add(time.Hour)))
			assert.ErrorIs(t, err, ErrDuplicateKey, "a second active session for the same user must be rejected")

			found, err := b.sessions.FindActiveByToken(ctx, "t1", now)
			require.NoError(t, err)
			assert.Equal(t, userID, found.UserID)

			n, err := b.sessions.RevokeActiveForUser(ctx, userID, "Patient", "", models.RevokedNewLogin, now)
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			_, err = b.sessions.FindActiveByToken(ctx, "t1", now)
			assert.ErrorIs(t, err, ErrNotFound)

			second, err := b.sessions.Create(ctx, newSession("t2", now.Add(time.Hour)))
			require.NoError(t, err)

			active, err := b.sessions.ListActive(ctx, userID, "Patient", now)
			require.NoError(t, err)
			require.Len(t, active, 1)
			assert.Equal(t, second.ID, active[0].ID)

			ok, err := b.sessions.RevokeByID(ctx, second.ID, primitive.NewObjectID(), models.RevokedByUser, now)
			require.NoError(t, err)
			assert.False(t, ok, "sessions owned by someone else cannot be revoked")

			n, err = b.sessions.DeactivateExpired(ctx, now.Add(2*time.Hour))
			require.NoError(t, err)
			assert.EqualValues(t, 1, n)

			n, err = b.sessions.DeleteInactiveBefore(ctx, now.Add(time.Minute))
			require.NoError(t, err)
			assert.EqualValues(t, 2, n)
		})
	}
}

func TestAuditRepository(t *testing.T) {
	ctx := context.Background()
	now := time.Now().UTC().Truncate(time.Millisecond)
	for _, b := range backends(t) {
		t.Run(b.name, func(t *testing.T) {
			for _, ok := range []bool{true, true, false} {
				require.NoError(t, b.audit.InsertAuthLog(ctx, &models.AuthLog{Action: models.ActionLoginAttempt, Success: ok, CreatedAt: now}))
			}
			require.NoError(t, b.audit.InsertAuthLog(ctx, &models.AuthLog{Action: models.ActionRegister, Success: true, CreatedAt: now.Add(-48 * time.Hour)}))
			require.NoError(t, b.audit.InsertAdminAction(ctx, &models.AdminActionLog{AdminID: primitive.NewObjectID(), Action: models.ActionSuspendAccount, TargetID: primitive.NewObjectID(), Success: true, CreatedAt: now}))

			stats, err := b.audit.CountAuthEvents(ctx, now.Add(-time.Hour))
			require.NoError(t, err)
			assert.ElementsMatch(t, []models.AuditStat{
				{Action: models.ActionLoginAttempt, Success: true, Count: 2},
				{Action: models.ActionLoginAttempt, Success: false, Count: 1},
			}, stats)
		})
	}
}
