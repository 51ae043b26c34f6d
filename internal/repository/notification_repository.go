package repository

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"strings"
	"time"

	"github.com/google/uuid"
	"github.com/jmoiron/sqlx"

	"github.com/noah-isme/desa-layanan-api/internal/models"
)

const notificationColumns = `id, user_id, request_id, request_type, status, title, message, priority, is_read,
       proof_code, rejection_reason, estimated_completion, created_at`

// NotificationRepository persists requester notifications in PostgreSQL.
type NotificationRepository struct {
	db *sqlx.DB
}

// NewNotificationRepository constructs the repository.
func NewNotificationRepository(db *sqlx.DB) *NotificationRepository {
	return &NotificationRepository{db: db}
}

// Create inserts a notification. Notifications always start unread.
func (r *NotificationRepository) Create(ctx context.Context, n *models.Notification) error {
	if n.ID == "" {
		n.ID = uuid.NewString()
	}
	if n.CreatedAt.IsZero() {
		n.CreatedAt = time.Now().UTC()
	}
	n.IsRead = false
	const query = `INSERT INTO notifications
	(id, user_id, request_id, request_type, status, title, message, priority, is_read, proof_code, rejection_reason, estimated_completion, created_at)
	VALUES (:id, :user_id, :request_id, :request_type, :status, :title, :message, :priority, :is_read, :proof_code, :rejection_reason, :estimated_completion, :created_at)
	ON CONFLICT (id) DO NOTHING`
	if _, err := r.db.NamedExecContext(ctx, query, n); err != nil {
		return fmt.Errorf("create notification: %w", err)
	}
	return nil
}

// GetByID fetches a notification.
func (r *NotificationRepository) GetByID(ctx context.Context, id string) (*models.Notification, error) {
	var n models.Notification
	if err := r.db.GetContext(ctx, &n, `SELECT `+notificationColumns+` FROM notifications WHERE id = $1`, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get notification: %w", err)
	}
	return &n, nil
}

// List returns notifications for a user.
func (r *NotificationRepository) List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error) {
	builder := strings.Builder{}
	args := []interface{}{filter.UserID}
	builder.WriteString(`SELECT ` + notificationColumns + ` FROM notifications WHERE user_id = $1`)
	if filter.UnreadOnly {
		builder.WriteString(" AND is_read = FALSE")
	}
	if !filter.Unordered {
		builder.WriteString(" ORDER BY created_at DESC")
		if filter.Limit > 0 {
			builder.WriteString(fmt.Sprintf(" LIMIT %d", filter.Limit))
		}
	}

	var items []models.Notification
	if err := r.db.SelectContext(ctx, &items, builder.String(), args...); err != nil {
		if !filter.Unordered && isOrderedQueryFailure(err) {
			return nil, fmt.Errorf("list notifications: %w", errors.Join(ErrOrderedQueryUnavailable, err))
		}
		return nil, fmt.Errorf("list notifications: %w", err)
	}
	return items, nil
}

// MarkRead flags the notification as read.
func (r *NotificationRepository) MarkRead(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `UPDATE notifications SET is_read = TRUE WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("mark notification read: %w", err)
	}
	return expectAffected(result, "mark notification read")
}

// CountUnread returns the number of unread notifications for userID.
func (r *NotificationRepository) CountUnread(ctx context.Context, userID string) (int, error) {
	var count int
	if err := r.db.GetContext(ctx, &count, `SELECT COUNT(*) FROM notifications WHERE user_id = $1 AND is_read = FALSE`, userID); err != nil {
		return 0, fmt.Errorf("count unread notifications: %w", err)
	}
	return count, nil
}
