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

type OTPRepository interface {
	Create(ctx context.Context, otp *models.OTPRecord) (*models.OTPRecord, error)
	// FindLatest returns the newest record for the pair, verified or not.
	FindLatest(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTPRecord, error)
	FindLatestUnverified(ctx context.Context, email string, purpose models.OTPPurpose) (*models.OTPRecord, error)
	DeleteUnverified(ctx context.Context, email string, purpose models.OTPPurpose) (int64, error)
	// ClaimAttempt atomically counts one verification attempt against an
	// unverified record still under maxAttempts and returns the new count.
	// ErrNotFound means no attempt is left (or the record is gone).
	ClaimAttempt(ctx context.Context, id primitive.ObjectID, maxAttempts int) (int, error)
	MarkVerified(ctx context.Context, id primitive.ObjectID) error
	Delete(ctx context.Context, id primitive.ObjectID) error
	DeleteExpired(ctx context.Context, now time.Time) (int64, error)
}

type otpRepository struct {
	collection *mongo.Collection
}

func NewOTPRepository(db *mongo.Database) OTPRepository {
	return &otpRepository{collection: db.Collection("otps")}
}

func (r *otpRepository) Create(ctx context.Context, otp *models.OTPRecord) (_ *models.OTPRecord, err error) {
	q := utils.StartQuery("otp", "create")
	defer func() { q.Done(err) }()

	if otp.ID.IsZero() {
		otp.ID = primitive.NewObjectID()
	}
	if otp.CreatedAt.IsZero() {
		otp.CreatedAt = time.Now().UTC()
	}
	if _, err = r.collection.InsertOne(ctx, otp); err != nil {
		return nil, fmt.Errorf("failed to create otp: %w", err)
	}
	return otp, nil
}

func (r *otpRepository) findNewest(ctx context.Context, filter bson.M) (*models.OTPRecord, error) {
	var otp models.OTPRecord
	opts := options.FindOne().SetSort(bson.D{{Key: "createdAt", Value: -1}, {Key: "_id", Value: -1}})
	if err := r.collection.FindOne(ctx, filter, opts).Decode(&otp); err != nil {
		return nil, translateError(err)
	}
	return &otp, nil
}

func (r *otpRepository) FindLatest(ctx context.Context, email string, purpose models.OTPPurpose) (_ *models.OTPRecord, err error) {
	q := utils.StartQuery("otp", "findLatest")
	defer func() { q.Done(err) }()

	return r.findNewest(ctx, bson.M{"email": email, "purpose": purpose})
}

func (r *otpRepository) FindLatestUnverified(ctx context.Context, email string, purpose models.OTPPurpose) (_ *models.OTPRecord, err error) {
	q := utils.StartQuery("otp", "findLatestUnverified")
	defer func() { q.Done(err) }()

	return r.findNewest(ctx, bson.M{"email": email, "purpose": purpose, "verified": false})
}

func (r *otpRepository) DeleteUnverified(ctx context.Context, email string, purpose models.OTPPurpose) (_ int64, err error) {
	q := utils.StartQuery("otp", "deleteUnverified")
	defer func() { q.Done(err) }()

	result, err := r.collection.DeleteMany(ctx, bson.M{"email": email, "purpose": purpose, "verified": false})
	if err != nil {
		return 0, fmt.Errorf("failed to delete pending otps: %w", err)
	}
	return result.DeletedCount, nil
}

func (r *otpRepository) ClaimAttempt(ctx context.Context, id primitive.ObjectID, maxAttempts int) (_ int, err error) {
	q := utils.StartQuery("otp", "claimAttempt")
	defer func() { q.Done(err) }()

	var otp models.OTPRecord
	err = r.collection.FindOneAndUpdate(ctx,
		bson.M{"_id": id, "verified": false, "attempts": bson.M{"$lt": maxAttempts}},
		bson.M{"$inc": bson.M{"attempts": 1}},
		options.FindOneAndUpdate().SetReturnDocument(options.After),
	).Decode(&otp)
	if err != nil {
		err = translateError(err)
		return 0, err
	}
	return otp.Attempts, nil
}

func (r *otpRepository) MarkVerified(ctx context.Context, id primitive.ObjectID) (err error) {
	q := utils.StartQuery("otp", "markVerified")
	defer func() { q.Done(err) }()

	result, err := r.collection.UpdateOne(ctx, bson.M{"_id": id, "verified": false}, bson.M{"$set": bson.M{"verified": true}})
	if err != nil {
		return err
	}
	if result.MatchedCount == 0 {
		err = ErrNotFound
	}
	return err
}

func (r *otpRepository) Delete(ctx context.Context, id primitive.ObjectID) (err error) {
	q := utils.StartQuery("otp", "delete")
	defer func() { q.Done(err) }()

	_, err = r.collection.DeleteOne(ctx, bson.M{"_id": id})
	return err
}

func (r *otpRepository) DeleteExpired(ctx context.Context, now time.Time) (_ int64, err error) {
	q := utils.StartQuery("otp", "deleteExpired")
	defer func() { q.Done(err) }()

	result, err := r.collection.DeleteMany(ctx, bson.M{"expiresAt": bson.M{"$lte": now}})
	if err != nil {
		return 0, err
	}
	return result.DeletedCount, nil
}
