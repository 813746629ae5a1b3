package repositories

import (
	"context"
	"fmt"
	"time"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"medibook/internal/models"
	"medibook/internal/utils"
)

// AccountRepository persists doctors, patients and admins, one collection per role.
type AccountRepository interface {
	Create(ctx context.Context, account *models.Account) (*models.Account, error)
	FindByEmail(ctx context.Context, role models.Role, email string) (*models.Account, error)
	FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (*models.Account, error)
	// EmailExists reports whether any role's collection holds the address.
	EmailExists(ctx context.Context, email string) (bool, error)
	Update(ctx context.Context, account *models.Account) error
	Delete(ctx context.Context, role models.Role, id primitive.ObjectID) error
	CountAll(ctx context.Context, role models.Role) (int64, error)
}

type accountRepository struct {
	db *mongo.Database
}

func NewAccountRepository(db *mongo.Database) AccountRepository {
	return &accountRepository{db: db}
}

func (r *accountRepository) collection(role models.Role) *mongo.Collection {
	return r.db.Collection(role.Collection())
}

func (r *accountRepository) Create(ctx context.Context, account *models.Account) (_ *models.Account, err error) {
	q := utils.StartQuery("account", "create")
	defer func() { q.Done(err) }()

	if account.ID.IsZero() {
		account.ID = primitive.NewObjectID()
	}
	now := time.Now().UTC()
	if account.CreatedAt.IsZero() {
		account.CreatedAt = now
	}
	account.UpdatedAt = account.CreatedAt

	if _, err = r.collection(account.Role).InsertOne(ctx, account); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		log.Error().Err(err).Str("email", account.Email).Str("role", string(account.Role)).Msg("Failed to insert account into database")
		return nil, fmt.Errorf("failed to create account: %w", err)
	}
	return account, nil
}

func (r *accountRepository) FindByEmail(ctx context.Context, role models.Role, email string) (_ *models.Account, err error) {
	q := utils.StartQuery("account", "findByEmail")
	defer func() { q.Done(err) }()

	var account models.Account
	if err = r.collection(role).FindOne(ctx, bson.M{"email": email}).Decode(&account); err != nil {
		err = translateError(err)
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find account by email: %w", err)
	}
	account.Role = role
	return &account, nil
}

func (r *accountRepository) FindByID(ctx context.Context, role models.Role, id primitive.ObjectID) (_ *models.Account, err error) {
	q := utils.StartQuery("account", "findById")
	defer func() { q.Done(err) }()

	var account models.Account
	if err = r.collection(role).FindOne(ctx, bson.M{"_id": id}).Decode(&account); err != nil {
		err = translateError(err)
		if err == ErrNotFound {
			return nil, err
		}
		return nil, fmt.Errorf("failed to find account by id: %w", err)
	}
	account.Role = role
	return &account, nil
}

func (r *accountRepository) EmailExists(ctx context.Context, email string) (_ bool, err error) {
	q := utils.StartQuery("account", "emailExists")
	defer func() { q.Done(err) }()

	for _, role := range models.Roles {
		var n int64
		n, err = r.collection(role).CountDocuments(ctx, bson.M{"email": email})
		if err != nil {
			return false, fmt.Errorf("failed to check email in %s: %w", role.Collection(), err)
		}
		if n > 0 {
			return true, nil
		}
	}
	return false, nil
}

func (r *accountRepository) Update(ctx context.Context, account *models.Account) (err error) {
	q := utils.StartQuery("account", "update")
	defer func() { q.Done(err) }()

	account.UpdatedAt = time.Now().UTC()
	result, err := r.collection(account.Role).ReplaceOne(ctx, bson.M{"_id": account.ID}, account)
	if err != nil {
		log.Error().Err(err).Str("account_id", account.ID.Hex()).Msg("Error updating account")
		return fmt.Errorf("failed to update account: %w", translateError(err))
	}
	if result.MatchedCount == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

func (r *accountRepository) Delete(ctx context.Context, role models.Role, id primitive.ObjectID) (err error) {
	q := utils.StartQuery("account", "delete")
	defer func() { q.Done(err) }()

	result, err := r.collection(role).DeleteOne(ctx, bson.M{"_id": id})
	if err != nil {
		log.Error().Err(err).Str("account_id", id.Hex()).Msg("Error deleting account")
		return fmt.Errorf("failed to delete account: %w", err)
	}
	if result.DeletedCount == 0 {
		err = ErrNotFound
		return err
	}
	return nil
}

func (r *accountRepository) CountAll(ctx context.Context, role models.Role) (_ int64, err error) {
	q := utils.StartQuery("account", "countAll")
	defer func() { q.Done(err) }()

	count, err := r.collection(role).CountDocuments(ctx, bson.M{})
	if err != nil {
		log.Error().Err(err).Str("role", string(role)).Msg("Failed to count accounts")
		return 0, fmt.Errorf("failed to count accounts: %w", err)
	}
	return count, nil
}
