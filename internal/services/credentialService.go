package services

import (
	"context"
	"errors"
	"fmt"

	"go.mongodb.org/mongo-driver/bson/primitive"
	"golang.org/x/crypto/bcrypt"

	"medibook/internal/models"
	"medibook/internal/repositories"
)

type CredentialService interface {
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error)
	FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Account, error)
	EmailExists(ctx context.Context, email string) (bool, error)
	// Create hashes password and stores the account unverified. Email
	// uniqueness is checked across every role.
	Create(ctx context.Context, account *models.Account, password string) (*models.Account, error)
	VerifyPassword(account *models.Account, candidate string) bool
	SetPassword(ctx context.Context, account *models.Account, password string) error
	SetSuspension(ctx context.Context, account *models.Account, reason string, adminID primitive.ObjectID) error
	ClearSuspension(ctx context.Context, account *models.Account) error
	SetVerificationStatus(ctx context.Context, account *models.Account, status models.VerificationStatus, adminID primitive.ObjectID) error
	UpdateProfile(ctx context.Context, account *models.Account, update models.ProfileUpdate) error
	Save(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, account *models.Account) error
	CountAccounts(ctx context.Context, role models.Role) (int64, error)
}

type credentialService struct {
	accounts   repositories.AccountRepository
	bcryptCost int
	clock      Clock
}

func NewCredentialService(accounts repositories.AccountRepository, bcryptCost int, clock Clock) CredentialService {
	if bcryptCost < bcrypt.MinCost {
		bcryptCost = bcrypt.DefaultCost
	}
	return &credentialService{accounts: accounts, bcryptCost: bcryptCost, clock: clock}
}

func (s *credentialService) FindByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error) {
	account, err := s.accounts.FindByEmail(ctx, role, models.NormalizeEmail(email))
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by email: %w", role, err)
	}
	return account, nil
}

func (s *credentialService) FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Account, error) {
	account, err := s.accounts.FindByID(ctx, role, id)
	if errors.Is(err, repositories.ErrNotFound) {
		return nil, ErrAccountNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("find %s by id: %w", role, err)
	}
	return account, nil
}

func (s *credentialService) EmailExists(ctx context.Context, email string) (bool, error) {
	exists, err := s.accounts.EmailExists(ctx, models.NormalizeEmail(email))
	if err != nil {
		return false, fmt.Errorf("check email: %w", err)
	}
	return exists, nil
}

func (s *credentialService) Create(ctx context.Context, account *models.Account, password string) (*models.Account, error) {
	if _, ok := models.ParseRole(string(account.Role)); !ok {
		return nil, validationError("unknown role")
	}
	if password == "" {
		return nil, validationError("password is required")
	}
	account.Email = models.NormalizeEmail(account.Email)

	exists, err := s.EmailExists(ctx, account.Email)
	if err != nil {
		return nil, err
	}
	if exists {
		return nil, ErrDuplicateEmail
	}

	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return nil, fmt.Errorf("hash password: %w", err)
	}

	now := s.clock.Now()
	account.PasswordHash = string(hash)
	account.IsEmailVerified = false
	account.IsActive = true
	if account.VerificationStatus == "" {
		account.VerificationStatus = models.VerificationPending
		if account.Role != models.RoleDoctor {
			account.VerificationStatus = models.VerificationVerified
		}
	}
	account.CreatedAt = now
	account.UpdatedAt = now

	created, err := s.accounts.Create(ctx, account)
	if errors.Is(err, repositories.ErrDuplicateKey) {
		return nil, ErrDuplicateEmail
	}
	if err != nil {
		return nil, fmt.Errorf("create %s: %w", account.Role, err)
	}
	return created, nil
}

func (s *credentialService) VerifyPassword(account *models.Account, candidate string) bool {
	if account == nil || account.PasswordHash == "" {
		return false
	}
	return bcrypt.CompareHashAndPassword([]byte(account.PasswordHash), []byte(candidate)) == nil
}

func (s *credentialService) SetPassword(ctx context.Context, account *models.Account, password string) error {
	if password == "" {
		return validationError("password is required")
	}
	hash, err := bcrypt.GenerateFromPassword([]byte(password), s.bcryptCost)
	if err != nil {
		return fmt.Errorf("hash password: %w", err)
	}
	now := s.clock.Now()
	account.PasswordHash = string(hash)
	account.PasswordChangedAt = &now
	return s.Save(ctx, account)
}

func (s *credentialService) SetSuspension(ctx context.Context, account *models.Account, reason string, adminID primitive.ObjectID) error {
	now := s.clock.Now()
	account.IsActive = false
	account.SuspendedBy = adminID
	account.SuspendedAt = &now
	account.SuspensionReason = reason
	return s.Save(ctx, account)
}

func (s *credentialService) ClearSuspension(ctx context.Context, account *models.Account) error {
	account.IsActive = true
	account.SuspendedBy = primitive.NilObjectID
	account.SuspendedAt = nil
	account.SuspensionReason = ""
	return s.Save(ctx, account)
}

func (s *credentialService) SetVerificationStatus(ctx context.Context, account *models.Account, status models.VerificationStatus, adminID primitive.ObjectID) error {
	if _, ok := models.ParseVerificationStatus(string(status)); !ok {
		return validationError("unknown verification status")
	}
	now := s.clock.Now()
	account.VerificationStatus = status
	account.VerifiedBy = adminID
	account.VerifiedAt = &now
	return s.Save(ctx, account)
}

// profileFields is the per-role allow-list for self-service profile updates.
var profileFields = map[models.Role]map[string]bool{
	models.RoleDoctor:  {"name": true, "phone": true, "specialization": true, "experienceYears": true, "consultationFee": true},
	models.RolePatient: {"name": true, "phone": true, "dateOfBirth": true, "gender": true, "address": true},
	models.RoleAdmin:   {"name": true, "phone": true},
}

func (s *credentialService) UpdateProfile(ctx context.Context, account *models.Account, update models.ProfileUpdate) error {
	allowed := profileFields[account.Role]
	set := map[string]bool{
		"name":            update.Name != nil,
		"phone":           update.Phone != nil,
		"specialization":  update.Specialization != nil,
		"experienceYears": update.ExperienceYears != nil,
		"consultationFee": update.ConsultationFee != nil,
		"dateOfBirth":     update.DateOfBirth != nil,
		"gender":          update.Gender != nil,
		"address":         update.Address != nil,
	}
	changed := 0
	for field, present := range set {
		if !present {
			continue
		}
		if !allowed[field] {
			return validationError(fmt.Sprintf("%s cannot be updated for a %s account", field, account.Role))
		}
		changed++
	}
	if changed == 0 {
		return validationError("no updatable fields provided")
	}

	if update.Name != nil {
		account.Name = *update.Name
	}
	if update.Phone != nil {
		account.Phone = *update.Phone
	}
	if update.Specialization != nil {
		account.Specialization = *update.Specialization
	}
	if update.ExperienceYears != nil {
		account.ExperienceYears = *update.ExperienceYears
	}
	if update.ConsultationFee != nil {
		account.ConsultationFee = *update.ConsultationFee
	}
	if update.DateOfBirth != nil {
		dob := *update.DateOfBirth
		account.DateOfBirth = &dob
	}
	if update.Gender != nil {
		account.Gender = *update.Gender
	}
	if update.Address != nil {
		account.Address = *update.Address
	}
	return s.Save(ctx, account)
}

func (s *credentialService) Save(ctx context.Context, account *models.Account) error {
	err := s.accounts.Update(ctx, account)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("update %s: %w", account.Role, err)
	}
	return nil
}

func (s *credentialService) Delete(ctx context.Context, account *models.Account) error {
	err := s.accounts.Delete(ctx, account.Role, account.ID)
	if errors.Is(err, repositories.ErrNotFound) {
		return ErrAccountNotFound
	}
	if err != nil {
		return fmt.Errorf("delete %s: %w", account.Role, err)
	}
	return nil
}

func (s *credentialService) CountAccounts(ctx context.Context, role models.Role) (int64, error) {
	return s.accounts.CountAll(ctx, role)
}
