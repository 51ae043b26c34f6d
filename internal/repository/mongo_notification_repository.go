package repository

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/google/uuid"
	"go.mongodb.org/mongo-driver/bson"
	"go.mongodb.org/mongo-driver/mongo"
	"go.mongodb.org/mongo-driver/mongo/options"

	"github.com/noah-isme/desa-layanan-api/internal/models"
)

// NotificationCollection is the MongoDB collection holding notifications.
const NotificationCollection = "notifications"

// MongoNotificationRepository persists notifications in MongoDB.
type MongoNotificationRepository struct {
	coll *mongo.Collection
}

// NewMongoNotificationRepository constructs the repository.
func NewMongoNotificationRepository(db *mongo.Database) *MongoNotificationRepository {
	return &MongoNotificationRepository{coll: db.Collection(NotificationCollection)}
}

// EnsureIndexes creates the inbox index.
func (r *MongoNotificationRepository) EnsureIndexes(ctx context.Context) error {
	_, err := r.coll.Indexes().CreateOne(ctx, mongo.IndexModel{
		Keys: bson.D{{Key: "userId", Value: 1}, {Key: "createdAt", Value: -1}},
	})
	if err != nil {
		return fmt.Errorf("ensure notification indexes: %w", err)
	}
	return nil
}

// Create inserts a notification. Retried inserts with the same id are ignored.
func (r *MongoNotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead = false
	if _, err := r.coll.InsertOne(ctx, n); err != nil {
		if mongo.IsDuplicateKeyError(err) {
			return nil
		}
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// GetByID fetches a notification.
func (r *MongoNotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.coll.FindOne(ctx, bson.M{"_id": id}).Decode(&n); err != nil {
		if errors.Is(err, mongo.ErrNoDocuments) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// List returns notifications for a user.
func (r *MongoNotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	query := bson.M{"userId": filter.UserID}
	if filter.UnreadOnly {
		query["isRead"] = false
	}
	opts := options.Find()
	if !filter.Unordered {
		opts.SetSort(bson.D{{Key: "createdAt", Value: -1}})
		if filter.Limit > 0 {
			opts.SetLimit(int64(filter.Limit))
		}
	}
	cursor, err := r.coll.Find(ctx, query, opts)
	if err != nil {
		return nil, wrapMongoListError("list notifications", filter.Unordered, err)
	}
	items := make([]models.Notification, 0)
	if err := cursor.All(ctx, &items); err != nil {
		return nil, wrapMongoListError("decode notifications", filter.Unordered, err)
	}
	return items, nil
}

// MarkRead flags the notification as read.
func (r *MongoNotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.coll.UpdateOne(ctx, bson.M{"_id": id}, bson.M{"$set": bson.M{"isRead": true}})
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	if result.MatchedCount == 0 {
		return ErrNotFound
	}
	return nil
}

// CountUnread returns the number of unread notifications for userID.
func (r *MongoNotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	count, err := r.coll.CountDocuments(ctx, bson.M{"userId": userID, "isRead": false})
	if err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return int(count), nil
}
