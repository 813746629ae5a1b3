package repositories

import (
	"context"
	"sort"
	"sync"
	"time"

	"go.mongodb.org/mongo-driver/bson/primitive"

	"medibook/internal/models"
)

// The in-memory repositories back STORAGE=memory and the service tests. They
// enforce the same uniqueness rules as the Mongo indexes.

type memoryAccountRepository struct {
	mu       sync.RWMutex
	accounts map[models.Role]map[primitive.ObjectID]models.Account
}

func NewMemoryAccountRepository() AccountRepository {
	r := &memoryAccountRepository{accounts: make(map[models.Role]map[primitive.ObjectID]models.Account)}
	for _, role := range models.Roles {
		r.accounts[role] = make(map[primitive.ObjectID]models.Account)
	}
	return r
}

func (r *memoryAccountRepository) Create(_ context.Context, account *models.Account) (*models.Account, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	coll, ok := r.accounts[account.Role]
	if !ok {
		return nil, ErrNotFound
	}
	for _, existing := range coll {
		if existing.Email == account.Email {
			return nil, ErrDuplicateKey
		}
	}
	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	if account.CreatedAt.IsZero() {
		account.CreatedAt = time.Now().UTC()
	}
	account.UpdatedAt = account.CreatedAt
	coll[account.ID] = *account
	return account, nil
}

func (r *memoryAccountRepository) FindByEmail(_ context.Context, role models.Role, email string) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, a := range r.accounts[role] {
		if a.Email == email {
			out := a
			out.Role = role
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memoryAccountRepository) FindByID(_ context.Context, role models.Role, id primitive.ObjectID) (*models.Account, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	a, ok := r.accounts[role][id]
	if !ok {
		return nil, ErrNotFound
	}
	a.Role = role
	return &a, nil
}

func (r *memoryAccountRepository) EmailExists(_ context.Context, email string) (bool, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	for _, coll := range r.accounts {
		for _, a := range coll {
			if a.Email == email {
				return true, nil
			}
		}
	}
	return false, nil
}

func (r *memoryAccountRepository) Update(_ context.Context, account *models.Account) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	coll := r.accounts[account.Role]
	if _, ok := coll[account.ID]; !ok {
		return ErrNotFound
	}
	account.UpdatedAt = time.Now().UTC()
	coll[account.ID] = *account
	return nil
}

func (r *memoryAccountRepository) Delete(_ context.Context, role models.Role, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, ok := r.accounts[role][id]; !ok {
		return ErrNotFound
	}
	delete(r.accounts[role], id)
	return nil
}

func (r *memoryAccountRepository) CountAll(_ context.Context, role models.Role) (int64, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return int64(len(r.accounts[role])), nil
}

type memoryOTPRepository struct {
	mu      sync.Mutex
	records map[primitive.ObjectID]models.OTPRecord
}

func NewMemoryOTPRepository() OTPRepository {
	return &memoryOTPRepository{records: make(map[primitive.ObjectID]models.OTPRecord)}
}

func (r *memoryOTPRepository) Create(_ context.Context, otp *models.OTPRecord) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if otp.ID.IsZero() {
		otp.ID = primitive.NewObjectID()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	r.records[otp.ID] = *otp
	return otp, nil
}

func (r *memoryOTPRepository) newest(match func(models.OTPRecord) bool) (*models.OTPRecord, error) {
	var found []models.OTPRecord
	for _, rec := range r.records {
		if match(rec) {
			found = append(found, rec)
		}
	}
	if len(found) == 0 {
		return nil, ErrNotFound
	}
	sort.Slice(found, func(i, j int) bool {
		if found[i].CreatedAt.Equal(found[j].CreatedAt) {
			return found[i].ID.Hex() > found[j].ID.Hex()
		}
		return found[i].CreatedAt.After(found[j].CreatedAt)
	})
	out := found[0]
	return &out, nil
}

func (r *memoryOTPRepository) FindLatest(_ context.Context, email string, purpose models.OTPPurpose) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newest(func(rec models.OTPRecord) bool {
		return rec.Email == email && rec.Purpose == purpose
	})
}

func (r *memoryOTPRepository) FindLatestUnverified(_ context.Context, email string, purpose models.OTPPurpose) (*models.OTPRecord, error) {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.newest(func(rec models.OTPRecord) bool {
		return rec.Email == email && rec.Purpose == purpose && !rec.Verified
	})
}

func (r *memoryOTPRepository) DeleteUnverified(_ context.Context, email string, purpose models.OTPPurpose) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.records {
		if rec.Email == email && rec.Purpose == purpose && !rec.Verified {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

func (r *memoryOTPRepository) ClaimAttempt(_ context.Context, id primitive.ObjectID, maxAttempts int) (int, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.Verified || rec.Attempts >= maxAttempts {
		return 0, ErrNotFound
	}
	rec.Attempts++
	r.records[id] = rec
	return rec.Attempts, nil
}

func (r *memoryOTPRepository) MarkVerified(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	rec, ok := r.records[id]
	if !ok || rec.Verified {
		return ErrNotFound
	}
	rec.Verified = true
	r.records[id] = rec
	return nil
}

func (r *memoryOTPRepository) Delete(_ context.Context, id primitive.ObjectID) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	delete(r.records, id)
	return nil
}

func (r *memoryOTPRepository) DeleteExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, rec := range r.records {
		if !rec.ExpiresAt.After(now) {
			delete(r.records, id)
			n++
		}
	}
	return n, nil
}

type memorySessionRepository struct {
	mu       sync.Mutex
	sessions map[primitive.ObjectID]models.Session
}

func NewMemorySessionRepository() SessionRepository {
	return &memorySessionRepository{sessions: make(map[primitive.ObjectID]models.Session)}
}

func (r *memorySessionRepository) Create(_ context.Context, session *models.Session) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Token == session.Token {
			return nil, ErrDuplicateKey
		}
		if session.IsActive && s.IsActive && s.UserID == session.UserID && s.UserType == session.UserType {
			return nil, ErrDuplicateKey
		}
	}
	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	r.sessions[session.ID] = *session
	return session, nil
}

func (r *memorySessionRepository) FindActiveByToken(_ context.Context, token string, now time.Time) (*models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for _, s := range r.sessions {
		if s.Token == token && s.IsActive && s.ExpiresAt.After(now) {
			out := s
			return &out, nil
		}
	}
	return nil, ErrNotFound
}

func (r *memorySessionRepository) ListActive(_ context.Context, userID primitive.ObjectID, userType string, now time.Time) ([]models.Session, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	out := []models.Session{}
	for _, s := range r.sessions {
		if s.UserID == userID && s.UserType == userType && s.IsActive && s.ExpiresAt.After(now) {
			out = append(out, s)
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].LastActivity.After(out[j].LastActivity) })
	return out, nil
}

func (r *memorySessionRepository) revoke(id primitive.ObjectID, s models.Session, reason string, now time.Time) {
	s.IsActive = false
	s.RevokedReason = reason
	at := now
	s.RevokedAt = &at
	r.sessions[id] = s
}

func (r *memorySessionRepository) RevokeActiveForUser(_ context.Context, userID primitive.ObjectID, userType, exceptToken, reason string, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.UserID != userID || s.UserType != userType || !s.IsActive {
			continue
		}
		if exceptToken != "" && s.Token == exceptToken {
			continue
		}
		if s.ExpiresAt.After(now) {
			r.revoke(id, s, reason, now)
			n++
		} else {
			r.revoke(id, s, models.RevokedExpired, now)
		}
	}
	return n, nil
}

func (r *memorySessionRepository) RevokeByID(_ context.Context, id, userID primitive.ObjectID, reason string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	s, ok := r.sessions[id]
	if !ok || s.UserID != userID || !s.IsActive {
		return false, nil
	}
	r.revoke(id, s, reason, now)
	return true, nil
}

func (r *memorySessionRepository) RevokeByToken(_ context.Context, token, reason string, now time.Time) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.Token == token && s.IsActive {
			r.revoke(id, s, reason, now)
			return true, nil
		}
	}
	return false, nil
}

func (r *memorySessionRepository) Touch(_ context.Context, token string, now time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	for id, s := range r.sessions {
		if s.Token == token && s.IsActive {
			s.LastActivity = now
			r.sessions[id] = s
		}
	}
	return nil
}

func (r *memorySessionRepository) DeactivateExpired(_ context.Context, now time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if s.IsActive && !s.ExpiresAt.After(now) {
			r.revoke(id, s, models.RevokedExpired, now)
			n++
		}
	}
	return n, nil
}

func (r *memorySessionRepository) DeleteInactiveBefore(_ context.Context, cutoff time.Time) (int64, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	var n int64
	for id, s := range r.sessions {
		if !s.IsActive && s.LastActivity.Before(cutoff) {
			delete(r.sessions, id)
			n++
		}
	}
	return n, nil
}

type memoryAuditRepository struct {
	mu           sync.Mutex
	authLogs     []models.AuthLog
	adminActions []models.AdminActionLog
}

func NewMemoryAuditRepository() AuditRepository {
	return &memoryAuditRepository{}
}

func (r *memoryAuditRepository) InsertAuthLog(_ context.Context, entry *models.AuthLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	r.authLogs = append(r.authLogs, *entry)
	return nil
}

func (r *memoryAuditRepository) InsertAdminAction(_ context.Context, entry *models.AdminActionLog) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	r.adminActions = append(r.adminActions, *entry)
	return nil
}

func (r *memoryAuditRepository) CountAuthEvents(_ context.Context, since time.Time) ([]models.AuditStat, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	type key struct {
		action  string
		success bool
	}
	counts := map[key]int64{}
	for _, l := range r.authLogs {
		if !l.CreatedAt.Before(since) {
			counts[key{l.Action, l.Success}]++
		}
	}
	stats := make([]models.AuditStat, 0, len(counts))
	for k, n := range counts {
		stats = append(stats, models.AuditStat{Action: k.action, Success: k.success, Count: n})
	}
	sort.Slice(stats, func(i, j int) bool {
		if stats[i].Action == stats[j].Action {
			return stats[i].Success
		}
		return stats[i].Action < stats[j].Action
	})
	return stats, nil
}

// AuthLogs returns a snapshot of recorded auth events.
func (r *memoryAuditRepository) AuthLogs() []models.AuthLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AuthLog(nil), r.authLogs...)
}

// AdminActions returns a snapshot of recorded moderation actions.
func (r *memoryAuditRepository) AdminActions() []models.AdminActionLog {
	r.mu.Lock()
	defer r.mu.Unlock()
	return append([]models.AdminActionLog(nil), r.adminActions...)
}
