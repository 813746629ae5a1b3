package services

import (
	"context"
	"errors"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson/primitive"

	"medibook/internal/metrics"
	"medibook/internal/models"
)

// Principal is the authenticated caller resolved from a session token.
type Principal struct {
	AccountID primitive.ObjectID
	Role      models.Role
	Email     string
	Token     string
	SessionID primitive.ObjectID
}

type RegisterResult struct {
	Account   *models.Account
	EmailSent bool
}

type LoginResult struct {
	EmailSent bool
}

// VerifyResult is returned by VerifyOTP and AdminLogin. Session is only set
// when the verification logged the user in.
type VerifyResult struct {
	Purpose       models.OTPPurpose
	Account       *models.Account
	Session       *IssuedSession
	PreviousLogin *time.Time
}

type SessionView struct {
	models.Session
	Current bool `json:"current"`
}

type AuthService interface {
	Register(ctx context.Context, req models.RegisterRequest, info RequestInfo) (*RegisterResult, error)
	VerifyOTP(ctx context.Context, req models.VerifyOTPRequest, info RequestInfo) (*VerifyResult, error)
	ResendOTP(ctx context.Context, req models.ResendOTPRequest, info RequestInfo) (*LoginResult, error)
	Login(ctx context.Context, req models.Login, info RequestInfo) (*LoginResult, error)
	AdminLogin(ctx context.Context, req models.AdminLogin, info RequestInfo) (*VerifyResult, error)
	Logout(ctx context.Context, p *Principal, info RequestInfo) error
	Me(ctx context.Context, p *Principal) (*models.Account, error)
	ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest, info RequestInfo) error
	ResetPassword(ctx context.Context, req models.ResetPasswordRequest, info RequestInfo) error
	ChangePassword(ctx context.Context, p *Principal, req models.ChangePasswordRequest, info RequestInfo) error
	UpdateProfile(ctx context.Context, p *Principal, update models.ProfileUpdate, info RequestInfo) (*models.Account, error)
	DeleteAccount(ctx context.Context, p *Principal, password string, info RequestInfo) error

	Authenticate(ctx context.Context, token string) (*Principal, error)
	Sessions(ctx context.Context, p *Principal) ([]SessionView, error)
	RevokeSession(ctx context.Context, p *Principal, sessionID primitive.ObjectID, info RequestInfo) error
	RevokeOtherSessions(ctx context.Context, p *Principal, info RequestInfo) (int64, error)
}

type AuthDependencies struct {
	Credentials  CredentialService
	OTPs         OTPService
	Sessions     SessionService
	Tokens       TokenService
	Audit        AuditService
	Notifier     Notifier
	SupportEmail string
	Clock        Clock
}

type authService struct {
	credentials CredentialService
	otps        OTPService
	sessions    SessionService
	tokens      TokenService
	audit       AuditService
	notifier    Notifier
	support     string
	clock       Clock
}

func NewAuthService(deps AuthDependencies) AuthService {
	clock := deps.Clock
	if clock == nil {
		clock = SystemClock
	}
	return &authService{
		credentials: deps.Credentials,
		otps:        deps.OTPs,
		sessions:    deps.Sessions,
		tokens:      deps.Tokens,
		audit:       deps.Audit,
		notifier:    deps.Notifier,
		support:     deps.SupportEmail,
		clock:       clock,
	}
}

func (s *authService) record(ctx context.Context, action string, account *models.Account, email string, success bool, reason string, info RequestInfo) {
	entry := models.AuthLog{
		Email:     models.NormalizeEmail(email),
		Action:    action,
		Success:   success,
		Reason:    reason,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	}
	if account != nil {
		entry.ActorID = account.ID
		entry.UserType = account.Role.UserType()
		entry.Email = account.Email
	}
	s.audit.Record(ctx, entry)
}

func reasonOf(err error) string {
	if err == nil {
		return ""
	}
	return err.Error()
}

// suspendedError resolves the contact for a suspended account. The suspending
// admin may have been deleted since, in which case support is used.
func (s *authService) suspendedError(ctx context.Context, account *models.Account) error {
	contact := s.support
	if !account.SuspendedBy.IsZero() {
		if admin, err := s.credentials.FindByID(ctx, models.RoleAdmin, account.SuspendedBy); err == nil {
			contact = admin.Email
		}
	}
	reason := account.SuspensionReason
	if reason == "" {
		reason = "No reason provided"
	}
	return &SuspendedError{Reason: reason, AdminContact: contact}
}

func (s *authService) sendOTP(ctx context.Context, account *models.Account, code string, purpose models.OTPPurpose) bool {
	if err := s.notifier.SendOTP(ctx, account.Email, account.Name, code, purpose); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Str("purpose", string(purpose)).Msg("Failed to deliver OTP")
		return false
	}
	return true
}

func parseLoginRole(raw string) (models.Role, error) {
	role, ok := models.ParseRole(raw)
	if !ok || role == models.RoleAdmin {
		return "", validationError("role must be doctor or patient")
	}
	return role, nil
}

func (s *authService) Register(ctx context.Context, req models.RegisterRequest, info RequestInfo) (*RegisterResult, error) {
	role, err := parseLoginRole(req.Role)
	if err != nil {
		return nil, err
	}

	account := &models.Account{
		Role:            role,
		Name:            req.Name,
		Email:           req.Email,
		Phone:           req.Phone,
		Specialization:  req.Specialization,
		LicenseNumber:   req.LicenseNumber,
		ExperienceYears: req.ExperienceYears,
		ConsultationFee: req.ConsultationFee,
		DateOfBirth:     req.DateOfBirth,
		Gender:          req.Gender,
		Address:         req.Address,
	}
	created, err := s.credentials.Create(ctx, account, req.Password)
	if err != nil {
		s.record(ctx, models.ActionRegister, nil, req.Email, false, reasonOf(err), info)
		return nil, err
	}
	metrics.NewAccountsTotal.WithLabelValues(string(role)).Inc()

	code, err := s.otps.Issue(ctx, created.Email, role, models.OTPPurposeRegistration)
	if err != nil {
		s.record(ctx, models.ActionRegister, created, created.Email, false, reasonOf(err), info)
		return nil, err
	}
	sent := s.sendOTP(ctx, created, code, models.OTPPurposeRegistration)

	s.record(ctx, models.ActionRegister, created, created.Email, true, "", info)
	log.Info().Str("email", created.Email).Str("role", string(role)).Msg("Account registered, awaiting email verification")
	return &RegisterResult{Account: created, EmailSent: sent}, nil
}

func (s *authService) VerifyOTP(ctx context.Context, req models.VerifyOTPRequest, info RequestInfo) (*VerifyResult, error) {
	role, err := parseLoginRole(req.Role)
	if err != nil {
		return nil, err
	}
	purpose, ok := models.ParseOTPPurpose(req.Purpose)
	if !ok || purpose == models.OTPPurposePasswordReset {
		return nil, validationError("purpose must be registration or login")
	}

	action := models.ActionVerifyEmail
	if purpose == models.OTPPurposeLogin {
		action = models.ActionLoginOTPVerify
	}

	account, err := s.credentials.FindByEmail(ctx, role, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, action, nil, req.Email, false, "unknown email", info)
		return nil, ErrOTPNotFound
	}
	if err != nil {
		return nil, err
	}

	switch purpose {
	case models.OTPPurposeRegistration:
		if account.IsEmailVerified {
			s.record(ctx, action, account, req.Email, false, reasonOf(ErrAlreadyVerified), info)
			return nil, ErrAlreadyVerified
		}
	case models.OTPPurposeLogin:
		if !account.IsEmailVerified {
			s.record(ctx, action, account, req.Email, false, reasonOf(ErrEmailNotVerified), info)
			return nil, ErrEmailNotVerified
		}
		if !account.IsActive {
			s.record(ctx, action, account, req.Email, false, "account suspended", info)
			return nil, s.suspendedError(ctx, account)
		}
	}

	record, err := s.otps.Verify(ctx, account.Email, req.OTP, purpose)
	if err != nil {
		s.record(ctx, action, account, req.Email, false, reasonOf(err), info)
		return nil, err
	}

	if purpose == models.OTPPurposeRegistration {
		return s.completeRegistration(ctx, account, record, info)
	}
	return s.completeLogin(ctx, account, record, info)
}

func (s *authService) completeRegistration(ctx context.Context, account *models.Account, record *models.OTPRecord, info RequestInfo) (*VerifyResult, error) {
	now := s.clock.Now()
	account.IsEmailVerified = true
	account.EmailVerifiedAt = &now
	if err := s.credentials.Save(ctx, account); err != nil {
		return nil, err
	}
	s.consume(ctx, record)

	if err := s.notifier.SendWelcome(ctx, account.Email, account.Name, account.Role); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Msg("Failed to send welcome email")
	}
	s.record(ctx, models.ActionVerifyEmail, account, account.Email, true, "", info)
	return &VerifyResult{Purpose: models.OTPPurposeRegistration, Account: account}, nil
}

func (s *authService) completeLogin(ctx context.Context, account *models.Account, record *models.OTPRecord, info RequestInfo) (*VerifyResult, error) {
	result, err := s.startSession(ctx, account, info)
	if err != nil {
		return nil, err
	}
	s.consume(ctx, record)
	result.Purpose = models.OTPPurposeLogin

	metrics.LoginAttemptsTotal.WithLabelValues(string(account.Role), "success").Inc()
	s.record(ctx, models.ActionLoginOTPVerify, account, account.Email, true, "", info)
	return result, nil
}

// startSession stamps lastLogin and issues the session token.
func (s *authService) startSession(ctx context.Context, account *models.Account, info RequestInfo) (*VerifyResult, error) {
	previous := account.LastLogin
	now := s.clock.Now()
	account.LastLogin = &now
	if err := s.credentials.Save(ctx, account); err != nil {
		return nil, err
	}

	issued, err := s.tokens.Issue(ctx, account, info)
	if err != nil {
		return nil, err
	}
	if issued.HadPriorDevice {
		log.Info().Str("email", account.Email).Int64("revoked", issued.RevokedCount).Msg("Logged out previous device")
	}
	return &VerifyResult{Account: account, Session: issued, PreviousLogin: previous}, nil
}

func (s *authService) consume(ctx context.Context, record *models.OTPRecord) {
	if err := s.otps.Consume(ctx, record); err != nil {
		log.Warn().Err(err).Str("email", record.Email).Msg("Failed to delete used OTP")
	}
}

func (s *authService) ResendOTP(ctx context.Context, req models.ResendOTPRequest, info RequestInfo) (*LoginResult, error) {
	role, err := parseLoginRole(req.Role)
	if err != nil {
		return nil, err
	}
	purpose, ok := models.ParseOTPPurpose(req.Purpose)
	if !ok {
		return nil, validationError("unknown purpose")
	}

	account, err := s.credentials.FindByEmail(ctx, role, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, models.ActionResendOTP, nil, req.Email, false, "unknown email", info)
		// Same answer as a delivered code.
		return &LoginResult{EmailSent: true}, nil
	}
	if err != nil {
		return nil, err
	}

	switch purpose {
	case models.OTPPurposeRegistration:
		if account.IsEmailVerified {
			return nil, ErrAlreadyVerified
		}
	case models.OTPPurposeLogin:
		if !account.IsEmailVerified {
			return nil, ErrEmailNotVerified
		}
		if !account.IsActive {
			return nil, s.suspendedError(ctx, account)
		}
	case models.OTPPurposePasswordReset:
		if account.PasswordResetCount >= 1 {
			return nil, ErrResetLimitReached
		}
	}

	if err := s.otps.CheckRateLimit(ctx, account.Email, purpose); err != nil {
		s.record(ctx, models.ActionResendOTP, account, account.Email, false, reasonOf(err), info)
		return nil, err
	}
	code, err := s.otps.Issue(ctx, account.Email, role, purpose)
	if err != nil {
		return nil, err
	}
	sent := s.sendOTP(ctx, account, code, purpose)

	s.record(ctx, models.ActionResendOTP, account, account.Email, true, string(purpose), info)
	return &LoginResult{EmailSent: sent}, nil
}

func (s *authService) Login(ctx context.Context, req models.Login, info RequestInfo) (*LoginResult, error) {
	role, err := parseLoginRole(req.Role)
	if err != nil {
		return nil, err
	}
	failed := metrics.LoginAttemptsTotal.WithLabelValues(string(role), "failed")

	account, err := s.credentials.FindByEmail(ctx, role, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		failed.Inc()
		s.record(ctx, models.ActionLoginAttempt, nil, req.Email, false, "unknown email", info)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}

	if !account.IsEmailVerified {
		failed.Inc()
		s.record(ctx, models.ActionLoginAttempt, account, req.Email, false, "email not verified", info)
		return nil, ErrEmailNotVerified
	}
	if !account.IsActive {
		failed.Inc()
		s.record(ctx, models.ActionLoginAttempt, account, req.Email, false, "account suspended", info)
		return nil, s.suspendedError(ctx, account)
	}
	if !s.credentials.VerifyPassword(account, req.Password) {
		failed.Inc()
		s.record(ctx, models.ActionLoginAttempt, account, req.Email, false, "wrong password", info)
		return nil, ErrInvalidCredentials
	}

	if err := s.otps.CheckRateLimit(ctx, account.Email, models.OTPPurposeLogin); err != nil {
		s.record(ctx, models.ActionLoginAttempt, account, req.Email, false, reasonOf(err), info)
		return nil, err
	}
	code, err := s.otps.Issue(ctx, account.Email, role, models.OTPPurposeLogin)
	if err != nil {
		return nil, err
	}
	sent := s.sendOTP(ctx, account, code, models.OTPPurposeLogin)

	s.record(ctx, models.ActionLoginAttempt, account, account.Email, true, "otp sent", info)
	return &LoginResult{EmailSent: sent}, nil
}

func (s *authService) AdminLogin(ctx context.Context, req models.AdminLogin, info RequestInfo) (*VerifyResult, error) {
	failed := metrics.LoginAttemptsTotal.WithLabelValues(string(models.RoleAdmin), "failed")

	account, err := s.credentials.FindByEmail(ctx, models.RoleAdmin, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		failed.Inc()
		s.record(ctx, models.ActionAdminLogin, nil, req.Email, false, "unknown email", info)
		return nil, ErrInvalidCredentials
	}
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		failed.Inc()
		s.record(ctx, models.ActionAdminLogin, account, req.Email, false, "account suspended", info)
		return nil, s.suspendedError(ctx, account)
	}
	if !s.credentials.VerifyPassword(account, req.Password) {
		failed.Inc()
		s.record(ctx, models.ActionAdminLogin, account, req.Email, false, "wrong password", info)
		return nil, ErrInvalidCredentials
	}

	result, err := s.startSession(ctx, account, info)
	if err != nil {
		return nil, err
	}
	metrics.LoginAttemptsTotal.WithLabelValues(string(models.RoleAdmin), "success").Inc()
	s.record(ctx, models.ActionAdminLogin, account, account.Email, true, "", info)
	return result, nil
}

func (s *authService) Logout(ctx context.Context, p *Principal, info RequestInfo) error {
	if err := s.sessions.RevokeToken(ctx, p.Token, models.RevokedLogout); err != nil && !errors.Is(err, ErrSessionNotFound) {
		return err
	}

	account, err := s.credentials.FindByID(ctx, p.Role, p.AccountID)
	if err == nil {
		now := s.clock.Now()
		account.LastLogout = &now
		if err := s.credentials.Save(ctx, account); err != nil {
			log.Warn().Err(err).Str("email", account.Email).Msg("Failed to record logout time")
		}
	}
	s.record(ctx, models.ActionLogout, account, p.Email, true, "", info)
	return nil
}

func (s *authService) Me(ctx context.Context, p *Principal) (*models.Account, error) {
	return s.credentials.FindByID(ctx, p.Role, p.AccountID)
}

func (s *authService) ForgotPassword(ctx context.Context, req models.ForgotPasswordRequest, info RequestInfo) error {
	role, err := parseLoginRole(req.Role)
	if err != nil {
		return err
	}

	account, err := s.credentials.FindByEmail(ctx, role, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, models.ActionForgotPassword, nil, req.Email, false, "unknown email", info)
		return nil
	}
	if err != nil {
		return err
	}

	if account.PasswordResetCount >= 1 {
		s.record(ctx, models.ActionForgotPassword, account, req.Email, false, "reset limit reached", info)
		return ErrResetLimitReached
	}

	// A repeated request replaces the pending code. The cool-down applies to
	// ResendOTP only.
	code, err := s.otps.Issue(ctx, account.Email, role, models.OTPPurposePasswordReset)
	if err != nil {
		return err
	}
	s.sendOTP(ctx, account, code, models.OTPPurposePasswordReset)

	s.record(ctx, models.ActionForgotPassword, account, account.Email, true, "", info)
	return nil
}

func (s *authService) ResetPassword(ctx context.Context, req models.ResetPasswordRequest, info RequestInfo) error {
	role, err := parseLoginRole(req.Role)
	if err != nil {
		return err
	}

	account, err := s.credentials.FindByEmail(ctx, role, req.Email)
	if errors.Is(err, ErrAccountNotFound) {
		s.record(ctx, models.ActionResetPassword, nil, req.Email, false, "unknown email", info)
		return ErrOTPNotFound
	}
	if err != nil {
		return err
	}
	if account.PasswordResetCount >= 1 {
		s.record(ctx, models.ActionResetPassword, account, req.Email, false, "reset limit reached", info)
		return ErrResetLimitReached
	}

	// Verify marks the record verified before anything else is touched, so a
	// failure below cannot leave the code usable again.
	record, err := s.otps.Verify(ctx, account.Email, req.OTP, models.OTPPurposePasswordReset)
	if err != nil {
		s.record(ctx, models.ActionResetPassword, account, req.Email, false, reasonOf(err), info)
		return err
	}

	now := s.clock.Now()
	account.PasswordResetCount++
	account.PasswordResetUsedAt = &now
	account.ResetPasswordToken = ""
	account.ResetPasswordExpires = nil
	if err := s.credentials.SetPassword(ctx, account, req.Password); err != nil {
		return err
	}
	s.consume(ctx, record)

	if _, err := s.sessions.RevokeAll(ctx, account.ID, account.Role.UserType(), models.RevokedPassword); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Msg("Failed to revoke sessions after password reset")
	}
	if err := s.notifier.SendPasswordChanged(ctx, account.Email, account.Name, now); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Msg("Failed to send password reset confirmation")
	}

	metrics.PasswordResetsTotal.Inc()
	s.record(ctx, models.ActionResetPassword, account, account.Email, true, "", info)
	return nil
}

func (s *authService) ChangePassword(ctx context.Context, p *Principal, req models.ChangePasswordRequest, info RequestInfo) error {
	account, err := s.credentials.FindByID(ctx, p.Role, p.AccountID)
	if err != nil {
		return err
	}
	if !s.credentials.VerifyPassword(account, req.CurrentPassword) {
		s.record(ctx, models.ActionChangePassword, account, account.Email, false, "incorrect current password", info)
		return ErrIncorrectPassword
	}
	if s.credentials.VerifyPassword(account, req.NewPassword) {
		s.record(ctx, models.ActionChangePassword, account, account.Email, false, reasonOf(ErrPasswordReuse), info)
		return ErrPasswordReuse
	}

	if err := s.credentials.SetPassword(ctx, account, req.NewPassword); err != nil {
		return err
	}
	if _, err := s.sessions.RevokeAllExcept(ctx, account.ID, account.Role.UserType(), p.Token); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Msg("Failed to revoke other sessions after password change")
	}
	if err := s.notifier.SendPasswordChanged(ctx, account.Email, account.Name, *account.PasswordChangedAt); err != nil {
		log.Warn().Err(err).Str("email", account.Email).Msg("Failed to send password change notice")
	}

	s.record(ctx, models.ActionChangePassword, account, account.Email, true, "", info)
	return nil
}

func (s *authService) UpdateProfile(ctx context.Context, p *Principal, update models.ProfileUpdate, info RequestInfo) (*models.Account, error) {
	account, err := s.credentials.FindByID(ctx, p.Role, p.AccountID)
	if err != nil {
		return nil, err
	}
	if err := s.credentials.UpdateProfile(ctx, account, update); err != nil {
		s.record(ctx, models.ActionProfileUpdate, account, account.Email, false, reasonOf(err), info)
		return nil, err
	}
	s.record(ctx, models.ActionProfileUpdate, account, account.Email, true, "", info)
	return account, nil
}

func (s *authService) DeleteAccount(ctx context.Context, p *Principal, password string, info RequestInfo) error {
	account, err := s.credentials.FindByID(ctx, p.Role, p.AccountID)
	if err != nil {
		return err
	}
	if !s.credentials.VerifyPassword(account, password) {
		s.record(ctx, models.ActionAccountDelete, account, account.Email, false, "incorrect password", info)
		return ErrIncorrectPassword
	}

	if _, err := s.sessions.RevokeAll(ctx, account.ID, account.Role.UserType(), models.RevokedDeleted); err != nil {
		return err
	}
	if err := s.credentials.Delete(ctx, account); err != nil {
		return err
	}
	s.record(ctx, models.ActionAccountDelete, account, account.Email, true, "", info)
	log.Info().Str("email", account.Email).Str("role", string(account.Role)).Msg("Account deleted by owner")
	return nil
}

func (s *authService) Authenticate(ctx context.Context, token string) (*Principal, error) {
	if token == "" {
		return nil, ErrTokenInvalid
	}
	claims, err := s.tokens.Decode(token)
	if err != nil {
		return nil, err
	}
	accountID, err := primitive.ObjectIDFromHex(claims.Subject)
	if err != nil {
		return nil, ErrTokenInvalid
	}

	session, err := s.sessions.FindByToken(ctx, token)
	if err != nil {
		return nil, err
	}
	if session.UserID != accountID || session.UserType != claims.Role.UserType() {
		return nil, ErrTokenInvalid
	}

	account, err := s.credentials.FindByID(ctx, claims.Role, accountID)
	if errors.Is(err, ErrAccountNotFound) {
		return nil, ErrSessionExpired
	}
	if err != nil {
		return nil, err
	}
	if !account.IsActive {
		return nil, s.suspendedError(ctx, account)
	}

	s.sessions.Touch(ctx, token)
	return &Principal{
		AccountID: account.ID,
		Role:      account.Role,
		Email:     account.Email,
		Token:     token,
		SessionID: session.ID,
	}, nil
}

func (s *authService) Sessions(ctx context.Context, p *Principal) ([]SessionView, error) {
	sessions, err := s.sessions.ListActive(ctx, p.AccountID, p.Role.UserType())
	if err != nil {
		return nil, err
	}
	views := make([]SessionView, 0, len(sessions))
	for _, session := range sessions {
		views = append(views, SessionView{Session: session, Current: session.ID == p.SessionID})
	}
	return views, nil
}

func (s *authService) RevokeSession(ctx context.Context, p *Principal, sessionID primitive.ObjectID, info RequestInfo) error {
	err := s.sessions.Revoke(ctx, sessionID, p.AccountID)
	s.audit.Record(ctx, models.AuthLog{
		ActorID:   p.AccountID,
		UserType:  p.Role.UserType(),
		Email:     p.Email,
		Action:    models.ActionSessionRevoke,
		Success:   err == nil,
		Reason:    reasonOf(err),
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	})
	return err
}

func (s *authService) RevokeOtherSessions(ctx context.Context, p *Principal, info RequestInfo) (int64, error) {
	n, err := s.sessions.RevokeAllExcept(ctx, p.AccountID, p.Role.UserType(), p.Token)
	if err != nil {
		return 0, err
	}
	s.audit.Record(ctx, models.AuthLog{
		ActorID:   p.AccountID,
		UserType:  p.Role.UserType(),
		Email:     p.Email,
		Action:    models.ActionSessionRevoke,
		Success:   true,
		Reason:    models.RevokedOtherDevice,
		IPAddress: info.IPAddress,
		UserAgent: info.UserAgent,
	})
	return n, nil
}
