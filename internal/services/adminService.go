package services

import (
	"context"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medibook/internal/models"
)

type AdminService interface {
	SuspendAccount(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID, reason string) (*models.Account, error)
	ReactivateAccount(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID) (*models.Account, error)
	SetVerificationStatus(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID, status models.VerificationStatus, reason string) (*models.Account, error)
	AuditStats(ctx context.Context, since time.Time) ([]models.AuditStat, error)
}

type adminService struct {
	credentials CredentialService
	sessions    SessionService
	audit       AuditService
	notifier    Notifier
}

func NewAdminService(credentials CredentialService, sessions SessionService, audit AuditService, notifier Notifier) AdminService {
	return &adminService{credentials: credentials, sessions: sessions, audit: audit, notifier: notifier}
}

func moderatedRole(role models.Role) error {
	if role != models.RoleDoctor && role != models.RolePatient {
		return validationError("only doctor and patient accounts can be moderated")
	}
	return nil
}

func (s *adminService) logAction(ctx context.Context, admin *Principal, action string, role models.Role, id primitive.ObjectID, reason string, err error) {
	if err != nil {
		reason = reasonOf(err)
	}
	s.audit.RecordAdminAction(ctx, models.AdminActionLog{
		AdminID:    admin.AccountID,
		Action:     action,
		TargetID:   id,
		TargetType: role.UserType(),
		Reason:     reason,
		Success:    err == nil,
	})
}

func (s *adminService) SuspendAccount(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID, reason string) (*models.Account, error) {
	account, err := s.suspend(ctx, admin, role, id, reason)
	s.logAction(ctx, admin, models.ActionSuspendAccount, role, id, reason, err)
	return account, err
}

func (s *adminService) suspend(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID, reason string) (*models.Account, error) {
	if err := moderatedRole(role); err != nil {
		return nil, err
	}
	account, err := s.credentials.FindByID(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.SetSuspension(ctx, account, reason, admin.AccountID); err != nil {
		return nil, err
	}

	n, err := s.sessions.RevokeAll(ctx, account.ID, role.UserType(), models.RevokedSuspended)
	if err != nil {
		return nil, err
	}
	if err := s.notifier.SendAccountSuspended(ctx, account.Email, account.Name, reason, admin.Email); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Msg("Failed to send suspension notice")
	}
	log.Info().Str("admin", admin.Email).Str("email", account.Email).Int64("revokedSessions", n).Msg("Account suspended")
	return account, nil
}

func (s *adminService) ReactivateAccount(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID) (*models.Account, error) {
	account, err := s.reactivate(ctx, role, id)
	s.logAction(ctx, admin, models.ActionReactivateAccount, role, id, "", err)
	return account, err
}

func (s *adminService) reactivate(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Account, error) {
	if err := moderatedRole(role); err != nil {
		return nil, err
	}
	account, err := s.credentials.FindByID(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.ClearSuspension(ctx, account); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *adminService) SetVerificationStatus(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID, status models.VerificationStatus, reason string) (*models.Account, error) {
	account, err := s.setVerification(ctx, admin, role, id, status)
	note := string(status)
	if reason != "" {
		note += ": " + reason
	}
	s.logAction(ctx, admin, models.ActionSetVerification, role, id, note, err)
	return account, err
}

func (s *adminService) setVerification(ctx context.Context, admin *Principal, role models.Role, id primitive.ObjectID, status models.VerificationStatus) (*models.Account, error) {
	if err := moderatedRole(role); err != nil {
		return nil, err
	}
	account, err := s.credentials.FindByID(ctx, role, id)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.SetVerificationStatus(ctx, account, status, admin.AccountID); err != nil {
		return nil, err
	}
	return account, nil
}

func (s *adminService) AuditStats(ctx context.Context, since time.Time) ([]models.AuditStat, error) {
	return s.audit.Stats(ctx, since)
}
