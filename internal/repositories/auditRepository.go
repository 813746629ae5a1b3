package repositories

import (
	"context"
	"fmt"
	"time"

	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/bson/primitive"
	"go.mongodb.org/mongo-driver/mongo"

	"medibook/internal/models"
	"medibook/internal/utils"
)

// AuditRepository is append-only: there is no update or delete.
type AuditRepository interface {
	InsertAuthLog(ctx context.Context, entry *models.AuthLog) error
	InsertAdminAction(ctx context.Context, entry *models.AdminActionLog) error
	CountAuthEvents(ctx context.Context, since time.Time) ([]models.AuditStat, error)
}

type auditRepository struct {
	authLogs     *mongo.Collection
	adminActions *mongo.Collection
}

func NewAuditRepository(db *mongo.Database) AuditRepository {
	return &auditRepository{
		authLogs:     db.Collection("authlogs"),
		adminActions: db.Collection("adminactionlogs"),
	}
}

func (r *auditRepository) InsertAuthLog(ctx context.Context, entry *models.AuthLog) (err error) {
	q := utils.StartQuery("audit", "insertAuthLog")
	defer func() { q.Done(err) }()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err = r.authLogs.InsertOne(ctx, entry)
	return err
}

func (r *auditRepository) InsertAdminAction(ctx context.Context, entry *models.AdminActionLog) (err error) {
	q := utils.StartQuery("audit", "insertAdminAction")
	defer func() { q.Done(err) }()

	if entry.ID.IsZero() {
		entry.ID = primitive.NewObjectID()
	}
	_, err = r.adminActions.InsertOne(ctx, entry)
	return err
}

func (r *auditRepository) CountAuthEvents(ctx context.Context, since time.Time) (_ []models.AuditStat, err error) {
	q := utils.StartQuery("audit", "countAuthEvents")
	defer func() { q.Done(err) }()

	pipeline := mongo.Pipeline{
		{{Key: "$match", Value: bson.M{"createdAt": bson.M{"$gte": since}}}},
		{{Key: "$group", Value: bson.M{
			"_id":   bson.M{"action": "$action", "success": "$success"},
			"count": bson.M{"$sum": 1},
		}}},
		{{Key: "$project", Value: bson.M{
			"_id":     0,
			"action":  "$_id.action",
			"success": "$_id.success",
			"count":   1,
		}}},
		{{Key: "$sort", Value: bson.D{{Key: "action", Value: 1}, {Key: "success", Value: -1}}}},
	}

	cursor, err := r.authLogs.Aggregate(ctx, pipeline)
	if err != nil {
		return nil, fmt.Errorf("failed to aggregate auth logs: %w", err)
	}
	defer cursor.Close(ctx)

	stats := []models.AuditStat{}
	if err = cursor.All(ctx, &stats); err != nil {
		return nil, fmt.Errorf("failed to decode audit stats: %w", err)
	}
	return stats, nil
}
