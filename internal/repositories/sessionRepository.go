package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"medibook/internal/models"
	"medibook/internal/utils"
)

type SessionRepository interface {
	Create(ctx context.Context, session *models.Session) (*models.Session, error)
	FindActiveByToken(ctx context.Context, token string, now time.Time) (*models.Session, error)
	ListActive(ctx context.Context, userID primitive.ObjectID, userType string, now time.Time) ([]models.Session, error)
	// RevokeActiveForUser deactivates every active session of the user other
	// than exceptToken. Sessions already past expiry are closed with reason
	// "expired" and are not part of the returned count.
	RevokeActiveForUser(ctx context.Context, userID primitive.ObjectID, userType, exceptToken, reason string, now time.Time) (int64, error)
	RevokeByID(ctx context.Context, id, userID primitive.ObjectID, reason string, now time.Time) (bool, error)
	RevokeByToken(ctx context.Context, token, reason string, now time.Time) (bool, error)
	Touch(ctx context.Context, token string, now time.Time) error
	DeactivateExpired(ctx context.Context, now time.Time) (int64, error)
	DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (int64, error)
}

type sessionRepository struct {
	collection *mongo.Collection
}

func NewSessionRepository(db *mongo.Database) SessionRepository {
	return &sessionRepository{collection: db.Collection("sessions")}
}

func revokeUpdate(reason string, now time.Time) bson.M {
	return bson.M{"$set": bson.M{"isActive": false, "revokedReason": reason, "revokedAt": now}}
}

func (r *sessionRepository) Create(ctx context.Context, session *models.Session) (_ *models.Session, err error) {
	q := utils.StartQuery("session", "create")
	defer func() { q.Done(err) }()

	if session.ID.IsZero() {
		session.ID = primitive.NewObjectID()
	}
	if _, err = r.collection.InsertOne(ctx, session); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil, ErrDuplicateKey
		}
		return nil, fmt.Errorf("failed to create session: %w", err)
	}
	return session, nil
}

func (r *sessionRepository) FindActiveByToken(ctx context.Context, token string, now time.Time) (_ *models.Session, err error) {
	q := utils.StartQuery("session", "findActiveByToken")
	defer func() { q.Done(err) }()

	var session models.Session
	filter := bson.M{"token": token, "isActive": true, "expiresAt": bson.M{"$gt": now}}
	if err = r.collection.FindOne(ctx, filter).Decode(&session); err != nil {
		return nil, translateError(err)
	}
	return &session, nil
}

func (r *sessionRepository) ListActive(ctx context.Context, userID primitive.ObjectID, userType string, now time.Time) (_ []models.Session, err error) {
	q := utils.StartQuery("session", "listActive")
	defer func() { q.Done(err) }()

	filter := bson.M{"userId": userID, "userType": userType, "isActive": true, "expiresAt": bson.M{"$gt": now}}
	cursor, err := r.collection.Find(ctx, filter, options.Find().SetSort(bson.D{{Key: "lastActivity", Value: -1}}))
	if err != nil {
		return nil, fmt.Errorf("failed to list sessions: %w", err)
	}
	defer cursor.Close(ctx)

	sessions := []models.Session{}
	if err = cursor.All(ctx, &sessions); err != nil {
		return nil, fmt.Errorf("failed to decode sessions: %w", err)
	}
	return sessions, nil
}

func (r *sessionRepository) RevokeActiveForUser(ctx context.Context, userID primitive.ObjectID, userType, exceptToken, reason string, now time.Time) (_ int64, err error) {
	q := utils.StartQuery("session", "revokeActiveForUser")
	defer func() { q.Done(err) }()

	base := bson.M{"userId": userID, "userType": userType, "isActive": true}
	if exceptToken != "" {
		base["token"] = bson.M{"$ne": exceptToken}
	}

	live := bson.M{"expiresAt": bson.M{"$gt": now}}
	for k, v := range base {
		live[k] = v
	}
	result, err := r.collection.UpdateMany(ctx, live, revokeUpdate(reason, now))
	if err != nil {
		return 0, fmt.Errorf("failed to revoke sessions: %w", err)
	}

	stale := bson.M{"expiresAt": bson.M{"$lte": now}}
	for k, v := range base {
		stale[k] = v
	}
	if _, err = r.collection.UpdateMany(ctx, stale, revokeUpdate(models.RevokedExpired, now)); err != nil {
		return result.ModifiedCount, fmt.Errorf("failed to close expired sessions: %w", err)
	}
	return result.ModifiedCount, nil
}

func (r *sessionRepository) RevokeByID(ctx context.Context, id, userID primitive.ObjectID, reason string, now time.Time) (_ bool, err error) {
	q := utils.StartQuery("session", "revokeById")
	defer func() { q.Done(err) }()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "userId": userID, "isActive": true}, revokeUpdate(reason, now))
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *sessionRepository) RevokeByToken(ctx context.Context, token, reason string, now time.Time) (_ bool, err error) {
	q := utils.StartQuery("session", "revokeByToken")
	defer func() { q.Done(err) }()

	result, err := r.collection.UpdateOne(ctx, bson.M{"token": token, "isActive": true}, revokeUpdate(reason, now))
	if err != nil {
		return false, fmt.Errorf("failed to revoke session: %w", err)
	}
	return result.MatchedCount > 0, nil
}

func (r *sessionRepository) Touch(ctx context.Context, token string, now time.Time) (err error) {
	q := utils.StartQuery("session", "touch")
	defer func() { q.Done(err) }()

	_, err = r.collection.UpdateOne(ctx, bson.M{"token": token, "isActive": true}, bson.M{"$set": bson.M{"lastActivity": now}})
	return err
}

func (r *sessionRepository) DeactivateExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	q := utils.StartQuery("session", "deactivateExpired")
	defer func() { q.Done(err) }()

	result, err := r.collection.UpdateMany(ctx, bson.M{"isActive": true, "expiresAt": bson.M{"$lte": now}}, revokeUpdate(models.RevokedExpired, now))
	if err != nil {
		return 0, err
	}
	return result.ModifiedCount, nil
}

func (r *sessionRepository) DeleteInactiveBefore(ctx context.Context, cutoff time.Time) (_ int64, err error) {
	q := utils.StartQuery("session", "deleteInactiveBefore")
	defer func() { q.Done(err) }()

	result, err := r.collection.DeleteMany(ctx, bson.M{"isActive": false, "lastActivity": bson.M{"$lt": cutoff}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
