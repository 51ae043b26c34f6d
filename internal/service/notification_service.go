package service

import (
	"context"
	"encoding/json"
	"errors"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/models"
	"github.com/noah-isme/desa-layanan-api/internal/repository"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
	"github.com/noah-isme/desa-layanan-api/pkg/export"
	"github.com/noah-isme/desa-layanan-api/pkg/jobs"
	"github.com/noah-isme/desa-layanan-api/pkg/mq"
)

const (
	notificationJobType      = "notification.create"
	notificationCreatedEvent = "notification.created"
)

// NotificationStore persists requester notifications.
type NotificationStore interface {
	Create(ctx context.Context, n *models.Notification) error
	GetByID(ctx context.Context, id string) (*models.Notification, error)
	List(ctx context.Context, filter models.NotificationFilter) ([]models.Notification, error)
	MarkRead(ctx context.Context, id string) error
	CountUnread(ctx context.Context, userID string) (int, error)
}

// NotificationPusher pushes payloads to a user's live connections.
type NotificationPusher interface {
	SendJSON(userID string, v interface{}) (bool, error)
}

// NotificationService stores requester notifications and fans them out to the event stream and websocket clients.
type NotificationService struct {
	store     NotificationStore
	publisher mq.Publisher
	topic     string
	pusher    NotificationPusher
	retries   *jobs.Queue
	metrics   *MetricsService
	logger    *zap.Logger
	now       func() time.Time
}

// NotificationServiceOption configures the service.
type NotificationServiceOption func(*NotificationService)

// WithNotificationPublisher publishes every stored notification to topic.
func WithNotificationPublisher(publisher mq.Publisher, topic string) NotificationServiceOption {
	return func(s *NotificationService) {
		if publisher != nil {
			s.publisher = publisher
			s.topic = topic
		}
	}
}

// WithNotificationPusher forwards stored notifications to live websocket clients.
func WithNotificationPusher(pusher NotificationPusher) NotificationServiceOption {
	return func(s *NotificationService) {
		if pusher != nil {
			s.pusher = pusher
		}
	}
}

// WithNotificationMetrics records delivery outcomes.
func WithNotificationMetrics(metrics *MetricsService) NotificationServiceOption {
	return func(s *NotificationService) {
		s.metrics = metrics
	}
}

// WithNotificationRetryQueue configures redelivery of notifications whose insert failed.
func WithNotificationRetryQueue(cfg jobs.QueueConfig) NotificationServiceOption {
	return func(s *NotificationService) {
		if cfg.Logger == nil {
			cfg.Logger = s.logger
		}
		cfg.OnExhausted = func(job jobs.Job, err error) {
			status := ""
			if n, ok := job.Payload.(*models.Notification); ok {
				status = string(n.Status)
			}
			s.metrics.RecordNotification(status, OutcomeFailure)
		}
		s.retries = jobs.NewQueue("notification-retry", s.handleRetry, cfg)
	}
}

// NewNotificationService constructs the service.
func NewNotificationService(store NotificationStore, logger *zap.Logger, opts ...NotificationServiceOption) *NotificationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	svc := &NotificationService{
		store:     store,
		publisher: mq.NopPublisher{},
		logger:    logger,
		now:       time.Now,
	}
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// Start launches the retry workers.
func (s *NotificationService) Start(ctx context.Context) {
	if s.retries != nil {
		s.retries.Start(ctx)
	}
}

// Stop drains the retry workers.
func (s *NotificationService) Stop() {
	if s.retries != nil {
		s.retries.Stop()
	}
}

// NotifyStatus writes the notification describing req entering status and delivers it.
// A failed insert is queued for retry and does not surface as an error.
func (s *NotificationService) NotifyStatus(ctx context.Context, req *models.ServiceRequest, status models.RequestStatus) error {
	n, err := s.build(req, status)
	if err != nil {
		return err
	}
	if err := s.store.Create(ctx, n); err != nil {
		return s.scheduleRetry(n, err)
	}
	s.metrics.RecordNotification(string(status), OutcomeSuccess)
	s.deliver(ctx, n)
	return nil
}

func (s *NotificationService) build(req *models.ServiceRequest, status models.RequestStatus) (*models.Notification, error) {
	proofCode := ""
	if req.ApprovalProofCode != nil {
		proofCode = *req.ApprovalProofCode
	}
	content, err := GenerateNotificationContent(status, req.RequestType, proofCode)
	if err != nil {
		return nil, err
	}

	n := &models.Notification{
		ID:          uuid.NewString(),
		UserID:      req.UserID,
		RequestID:   req.ID,
		RequestType: req.RequestType,
		Status:      status,
		Title:       content.Title,
		Message:     content.Message,
		Priority:    content.Priority,
		CreatedAt:   s.now().UTC(),
	}
	switch status {
	case models.StatusApprovedAdmin:
		if proofCode != "" {
			n.ProofCode = &proofCode
		}
		if req.EstimatedCompletionAt != nil {
			eta := export.FormatIndonesianDate(*req.EstimatedCompletionAt)
			n.EstimatedCompletion = &eta
			n.Message += " Perkiraan selesai: " + eta + "."
		}
	case models.StatusRejected:
		if req.RejectionReason != nil && *req.RejectionReason != "" {
			reason := *req.RejectionReason
			n.RejectionReason = &reason
			n.Message += " Alasan: " + reason
		}
	}
	return n, nil
}

func (s *NotificationService) scheduleRetry(n *models.Notification, cause error) error {
	s.logger.Warn("notification insert failed",
		zap.String("request_id", n.RequestID),
		zap.String("status", string(n.Status)),
		zap.Error(cause))
	if s.retries == nil || !s.retries.Started() {
		s.metrics.RecordNotification(string(n.Status), OutcomeFailure)
		return appErrors.StoreUnavailable(cause, "failed to store notification")
	}
	if err := s.retries.Enqueue(jobs.Job{ID: n.ID, Type: notificationJobType, Payload: n}); err != nil {
		s.metrics.RecordNotification(string(n.Status), OutcomeFailure)
		return appErrors.StoreUnavailable(errors.Join(cause, err), "failed to queue notification")
	}
	s.metrics.RecordNotification(string(n.Status), OutcomeQueued)
	return nil
}

func (s *NotificationService) handleRetry(ctx context.Context, job jobs.Job) error {
	n, ok := job.Payload.(*models.Notification)
	if !ok {
		s.logger.Error("unexpected notification job payload", zap.String("job_id", job.ID))
		return nil
	}
	if err := s.store.Create(ctx, n); err != nil {
		return err
	}
	s.metrics.RecordNotification(string(n.Status), OutcomeSuccess)
	s.deliver(ctx, n)
	return nil
}

func (s *NotificationService) deliver(ctx context.Context, n *models.Notification) {
	event := models.NotificationEvent{Event: notificationCreatedEvent, Notification: *n, OccurredAt: s.now().UTC()}
	if s.pusher != nil {
		if _, err := s.pusher.SendJSON(n.UserID, event); err != nil {
			s.logger.Warn("push notification failed", zap.String("notification_id", n.ID), zap.Error(err))
		}
	}
	if s.topic == "" {
		return
	}
	payload, err := json.Marshal(event)
	if err != nil {
		s.logger.Warn("encode notification event failed", zap.String("notification_id", n.ID), zap.Error(err))
		return
	}
	if _, err := s.publisher.Publish(ctx, mq.Message{
		Topic:   s.topic,
		Key:     []byte(n.RequestID),
		Value:   payload,
		Headers: map[string]string{"event": notificationCreatedEvent, "status": string(n.Status)},
	}); err != nil {
		s.logger.Warn("publish notification event failed", zap.String("notification_id", n.ID), zap.Error(err))
	}
}

// List returns the actor's notifications newest first. Store failures degrade to an empty list.
func (s *NotificationService) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	items, err := listNewestFirst(ctx, s.logger, "notifications", func(ctx context.Context, unordered bool) ([]models.Notification, error) {
		return s.store.List(ctx, models.NotificationFilter{UserID: actor.UserID, UnreadOnly: unreadOnly, Limit: limit, Unordered: unordered})
	}, notificationKey)
	if err != nil {
		s.logger.Warn("list notifications failed", zap.String("user_id", actor.UserID), zap.Error(err))
		return []models.Notification{}, nil
	}
	if limit > 0 && len(items) > limit {
		items = items[:limit]
	}
	return items, nil
}

// UnreadCount returns how many notifications the actor has not read.
func (s *NotificationService) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	if actor.UserID == "" {
		return 0, appErrors.ErrUnauthorized
	}
	count, err := s.store.CountUnread(ctx, actor.UserID)
	if err != nil {
		return 0, appErrors.StoreUnavailable(err, "failed to count notifications")
	}
	return count, nil
}

// MarkRead flags a notification as read. Only its recipient may do so.
func (s *NotificationService) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	n, err := s.store.GetByID(ctx, id)
	if err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.StoreUnavailable(err, "failed to load notification")
	}
	if n.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another user")
	}
	if n.IsRead {
		return n, nil
	}
	if err := s.store.MarkRead(ctx, id); err != nil {
		if errors.Is(err, repository.ErrNotFound) {
			return nil, appErrors.Clone(appErrors.ErrNotFound, "notification not found")
		}
		return nil, appErrors.StoreUnavailable(err, "failed to mark notification read")
	}
	n.IsRead = true
	return n, nil
}

func notificationKey(n models.Notification) (time.Time, string) {
	return n.CreatedAt, n.ID
}
