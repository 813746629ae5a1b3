package services

import (
	"context"
	"sync"
	"time"

	"github.com/rs/zerolog/log"

	"medibook/internal/metrics"
	"medibook/internal/models"
	"medibook/internal/repositories"
)

const auditWriteTimeout = 5 * time.Second

// AuditService records auth and moderation events without ever failing the
// caller. Entries are written by a single background goroutine; when its
// buffer is full new entries are dropped and counted.
type AuditService interface {
	Record(ctx context.Context, entry models.AuthLog)
	RecordAdminAction(ctx context.Context, entry models.AdminActionLog)
	Stats(ctx context.Context, since time.Time) ([]models.AuditStat, error)
	// Close stops accepting entries and waits for buffered ones to be written.
	Close()
}

type auditItem struct {
	auth  *models.AuthLog
	admin *models.AdminActionLog
}

type auditService struct {
	repo  repositories.AuditRepository
	clock Clock

	mu     sync.RWMutex
	closed bool
	queue  chan auditItem
	done   chan struct{}
}

func NewAuditService(repo repositories.AuditRepository, buffer int, clock Clock) AuditService {
	if buffer <= 0 {
		buffer = 1
	}
	s := &auditService{
		repo:  repo,
		clock: clock,
		queue: make(chan auditItem, buffer),
		done:  make(chan struct{}),
	}
	go s.run()
	return s
}

func (s *auditService) Record(_ context.Context, entry models.AuthLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	s.enqueue(auditItem{auth: &entry})
}

func (s *auditService) RecordAdminAction(_ context.Context, entry models.AdminActionLog) {
	if entry.CreatedAt.IsZero() {
		entry.CreatedAt = s.clock.Now()
	}
	s.enqueue(auditItem{admin: &entry})
}

func (s *auditService) enqueue(item auditItem) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.closed {
		metrics.AuditDroppedTotal.Inc()
		return
	}
	select {
	case s.queue <- item:
	default:
		metrics.AuditDroppedTotal.Inc()
		log.Warn().Msg("Audit buffer full, dropping entry")
	}
}

func (s *auditService) run() {
	defer close(s.done)
	for item := range s.queue {
		s.write(item)
	}
}

func (s *auditService) write(item auditItem) {
	ctx, cancel := context.WithTimeout(context.Background(), auditWriteTimeout)
	defer cancel()

	var err error
	var action string
	switch {
	case item.auth != nil:
		action = item.auth.Action
		err = s.repo.InsertAuthLog(ctx, item.auth)
	case item.admin != nil:
		action = item.admin.Action
		err = s.repo.InsertAdminAction(ctx, item.admin)
	}
	if err != nil {
		metrics.AuditWriteErrorsTotal.Inc()
		log.Warn().Err(err).Str("action", action).Msg("Failed to write audit entry")
	}
}

func (s *auditService) Stats(ctx context.Context, since time.Time) ([]models.AuditStat, error) {
	return s.repo.CountAuthEvents(ctx, since)
}

func (s *auditService) Close() {
	s.mu.Lock()
	if s.closed {
		s.mu.Unlock()
		<-s.done
		return
	}
	s.closed = true
	close(s.queue)
	s.mu.Unlock()
	<-s.done
}
