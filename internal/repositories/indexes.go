package repositories

import (
	"context"
	"fmt"

	"github.com/rs/zerolog/log"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medibook/internal/models"
)

// EnsureIndexes creates the indexes the repositories rely on. The partial
// unique index on sessions keeps at most one active session per user even if
// two logins race past the application lock.
func EnsureIndexes(ctx context.Context, db *mongo.Database) error {
	for _, role := range models.Roles {
		if err := createIndexes(ctx, db.Collection(role.Collection()), mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("email_unique"),
		}); err != nil {
			return err
		}
	}

	if err := createIndexes(ctx, db.Collection("otps"),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "email", Value: 1}, {Key: "purpose", Value: 1}, {Key: "createdAt", Value: -1}},
			Options: options.Index().SetName("email_purpose_created"),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("expires_at"),
		},
	); err != nil {
		return err
	}

	if err := createIndexes(ctx, db.Collection("sessions"),
		mongo.IndexModel{
			Keys:    bson.D{{Key: "token", Value: 1}},
			Options: options.Index().SetUnique(true).SetName("token_unique"),
		},
		mongo.IndexModel{
			Keys: bson.D{{Key: "userId", Value: 1}, {Key: "userType", Value: 1}},
			Options: options.Index().
				SetUnique(true).
				SetName("one_active_session_per_user").
				SetPartialFilterExpression(bson.M{"isActive": true}),
		},
		mongo.IndexModel{
			Keys:    bson.D{{Key: "isActive", Value: 1}, {Key: "expiresAt", Value: 1}},
			Options: options.Index().SetName("active_expires"),
		},
	); err != nil {
		return err
	}

	if err := createIndexes(ctx, db.Collection("authlogs"), mongo.IndexModel{
		Keys:    bson.D{{Key: "createdAt", Value: -1}},
		Options: options.Index().SetName("created_at"),
	}); err != nil {
		return err
	}

	log.Info().Str("database", db.Name()).Msg("MongoDB indexes ensured")
	return nil
}

func createIndexes(ctx context.Context, collection *mongo.Collection, indexModels ...mongo.IndexModel) error {
	if _, err := collection.Indexes().CreateMany(ctx, indexModels); err != nil {
		return fmt.Errorf("failed to create indexes for %s: %w", collection.Name(), err)
	}
	return nil
}
