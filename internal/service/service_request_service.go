package service

import (
	"context"
	"errors"
	"fmt"
	"reflect"
	"strconv"
	"strings"
	"time"

	"github.com/go-playground/validator/v10"
	"github.com/google/uuid"
	"github.com/lib/pq"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/models"
	"github.com/noah-isme/desa-layanan-api/internal/repository"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
)

// ServiceRequestStore persists service requests. UpdateStatus is a compare-and-set on the current status.
type ServiceRequestStore interface {
	Create(ctx context.Context, req *models.ServiceRequest) error
	GetByID(ctx context.Context, id string) (*models.ServiceRequest, error)
	List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, error)
	UpdateStatus(ctx context.Context, params models.UpdateServiceRequestStatusParams) error
	SetVillageHeadNote(ctx context.Context, id, note string, updatedAt time.Time) error
	AddSavedBy(ctx context.Context, id, userID string) error
	RemoveSavedBy(ctx context.Context, id, userID string) error
	Delete(ctx context.Context, id string) error
}

// RequestNotifier delivers workflow notifications to requesters.
type RequestNotifier interface {
	NotifyStatus(ctx context.Context, req *models.ServiceRequest, status models.RequestStatus) error
}

// WorkflowConfig tunes the approval pipeline.
type WorkflowConfig struct {
	EstimatedCompletion time.Duration
	ProofCodePrefix     string
	StatsCacheTTL       time.Duration
}

// ServiceRequestService runs the service request state machine.
type ServiceRequestService struct {
	store     ServiceRequestStore
	notifier  RequestNotifier
	cache     *CacheService
	metrics   *MetricsService
	validator *validator.Validate
	logger    *zap.Logger
	config    WorkflowConfig
	now       func() time.Time
	proofCode func(time.Time) string
}

// ServiceRequestOption configures the service.
type ServiceRequestOption func(*ServiceRequestService)

// WithRequestCache enables the stats cache.
func WithRequestCache(cache *CacheService) ServiceRequestOption {
	return func(s *ServiceRequestService) {
		s.cache = cache
	}
}

// WithRequestMetrics records workflow counters.
func WithRequestMetrics(metrics *MetricsService) ServiceRequestOption {
	return func(s *ServiceRequestService) {
		s.metrics = metrics
	}
}

// WithRequestClock overrides the time source.
func WithRequestClock(now func() time.Time) ServiceRequestOption {
	return func(s *ServiceRequestService) {
		if now != nil {
			s.now = now
		}
	}
}

// WithProofCodeGenerator overrides how approval proof codes are minted.
func WithProofCodeGenerator(gen func(time.Time) string) ServiceRequestOption {
	return func(s *ServiceRequestService) {
		if gen != nil {
			s.proofCode = gen
		}
	}
}

// NewServiceRequestService constructs the workflow service.
func NewServiceRequestService(store ServiceRequestStore, notifier RequestNotifier, validate *validator.Validate, logger *zap.Logger, config WorkflowConfig, opts ...ServiceRequestOption) *ServiceRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if validate == nil {
		validate = NewValidator()
	}
	if config.EstimatedCompletion <= 0 {
		config.EstimatedCompletion = 7 * 24 * time.Hour
	}
	if config.ProofCodePrefix == "" {
		config.ProofCodePrefix = "BKT"
	}
	svc := &ServiceRequestService{
		store:     store,
		notifier:  notifier,
		validator: validate,
		logger:    logger,
		config:    config,
		now:       time.Now,
	}
	svc.proofCode = svc.defaultProofCode
	for _, opt := range opts {
		if opt != nil {
			opt(svc)
		}
	}
	return svc
}

// NewValidator returns a validator aware of the request type enum.
func NewValidator() *validator.Validate {
	v := validator.New()
	v.RegisterTagNameFunc(func(field reflect.StructField) string {
		name := strings.SplitN(field.Tag.Get("json"), ",", 2)[0]
		if name == "-" {
			return ""
		}
		return name
	})
	_ = v.RegisterValidation("request_type", func(fl validator.FieldLevel) bool {
		return models.RequestType(fl.Field().String()).Valid()
	})
	return v
}

// Submit creates a request in pending_local_chief on behalf of the actor.
func (s *ServiceRequestService) Submit(ctx context.Context, actor models.Actor, req dto.SubmitServiceRequest) (*models.ServiceRequest, error) {
	if err := s.authorize(OpSubmit, actor); err != nil {
		return nil, err
	}
	req.Normalize()
	if err := s.validate(req, "invalid service request payload"); err != nil {
		s.metrics.RecordTransition(OpSubmit, OutcomeFailure)
		return nil, err
	}

	now := s.now().UTC()
	record := &models.ServiceRequest{
		RequestType:    req.RequestType,
		Applicant:      req.Applicant(),
		Purpose:        req.Purpose,
		UserID:         actor.UserID,
		Status:         models.StatusPendingLocalChief,
		SavedByUserIDs: pq.StringArray{},
		CreatedAt:      now,
		UpdatedAt:      now,
	}
	if err := s.store.Create(ctx, record); err != nil {
		s.metrics.RecordTransition(OpSubmit, OutcomeFailure)
		return nil, appErrors.StoreUnavailable(err, "failed to create service request")
	}
	s.metrics.RecordTransition(OpSubmit, OutcomeSuccess)
	s.invalidateStats(ctx)
	s.logger.Info("service request submitted",
		zap.String("request_id", record.ID),
		zap.String("request_type", string(record.RequestType)),
		zap.String("user_id", actor.UserID))
	s.notify(ctx, record, models.StatusSubmitted)
	return record, nil
}

// ApproveByLocalChief records the dusun head's approval.
func (s *ServiceRequestService) ApproveByLocalChief(ctx context.Context, actor models.Actor, id string, req dto.ApproveByLocalChiefRequest) (*models.ServiceRequest, error) {
	if err := s.authorize(OpApproveByLocalChief, actor); err != nil {
		return nil, err
	}
	req.Note = strings.TrimSpace(req.Note)
	req.ReferenceNumber = strings.TrimSpace(req.ReferenceNumber)
	if err := s.validate(req, "invalid approval payload"); err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, OpApproveByLocalChief, id, func(params *models.UpdateServiceRequestStatusParams) {
		approver := actor.UserID
		params.NoteByLocalChief = optionalString(req.Note)
		params.ReferenceNumberFromLocalChief = &req.ReferenceNumber
		params.LocalChiefApprovedBy = &approver
		params.LocalChiefApprovedAt = &params.UpdatedAt
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, models.StatusApprovedLocalChief)
	return updated, nil
}

// ApproveByAdmin issues the approval proof code and the completion estimate.
func (s *ServiceRequestService) ApproveByAdmin(ctx context.Context, actor models.Actor, id string, req dto.ApproveByAdminRequest) (*models.ServiceRequest, error) {
	if err := s.authorize(OpApproveByAdmin, actor); err != nil {
		return nil, err
	}
	req.Note = strings.TrimSpace(req.Note)
	req.ReferenceNumber = strings.TrimSpace(req.ReferenceNumber)
	if err := s.validate(req, "invalid approval payload"); err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, OpApproveByAdmin, id, func(params *models.UpdateServiceRequestStatusParams) {
		approver := actor.UserID
		code := s.proofCode(params.UpdatedAt)
		eta := params.UpdatedAt.Add(s.config.EstimatedCompletion)
		params.NoteByAdmin = optionalString(req.Note)
		params.ReferenceNumberFromAdmin = optionalString(req.ReferenceNumber)
		params.AdminApprovedBy = &approver
		params.AdminApprovedAt = &params.UpdatedAt
		params.ApprovalProofCode = &code
		params.EstimatedCompletionAt = &eta
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, models.StatusApprovedAdmin)
	return updated, nil
}

// Reject closes a non-terminal request with a reason.
func (s *ServiceRequestService) Reject(ctx context.Context, actor models.Actor, id string, req dto.RejectServiceRequest) (*models.ServiceRequest, error) {
	if err := s.authorize(OpReject, actor); err != nil {
		return nil, err
	}
	req.Reason = strings.TrimSpace(req.Reason)
	if err := s.validate(req, "rejection reason is required"); err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, OpReject, id, func(params *models.UpdateServiceRequestStatusParams) {
		rejectedBy := actor.DisplayName()
		params.RejectionReason = &req.Reason
		params.RejectedBy = &rejectedBy
		params.RejectedAt = &params.UpdatedAt
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, models.StatusRejected)
	return updated, nil
}

// Complete marks the letter as handed over. No notification is emitted.
func (s *ServiceRequestService) Complete(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error) {
	if err := s.authorize(OpComplete, actor); err != nil {
		return nil, err
	}
	return s.transition(ctx, OpComplete, id, func(params *models.UpdateServiceRequestStatusParams) {
		params.CompletedAt = &params.UpdatedAt
	})
}

// AutoEscalate forwards a request the dusun head has not reviewed in time. Only the system actor may call it.
func (s *ServiceRequestService) AutoEscalate(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error) {
	if err := s.authorize(OpAutoEscalate, actor); err != nil {
		return nil, err
	}
	updated, err := s.transition(ctx, OpAutoEscalate, id, func(params *models.UpdateServiceRequestStatusParams) {
		params.AutoApprovedAt = &params.UpdatedAt
	})
	if err != nil {
		return nil, err
	}
	s.notify(ctx, updated, models.StatusAutoApproved)
	return updated, nil
}

// AnnotateByVillageHead stores the kepala desa note without changing the status.
func (s *ServiceRequestService) AnnotateByVillageHead(ctx context.Context, actor models.Actor, id string, req dto.VillageHeadNoteRequest) (*models.ServiceRequest, error) {
	if err := s.authorize(OpAnnotate, actor); err != nil {
		return nil, err
	}
	req.Note = strings.TrimSpace(req.Note)
	if err := s.validate(req, "note is required"); err != nil {
		return nil, err
	}
	if err := s.store.SetVillageHeadNote(ctx, id, req.Note, s.now().UTC()); err != nil {
		return nil, s.storeError(err, "failed to store village head note")
	}
	s.metrics.RecordTransition(OpAnnotate, OutcomeSuccess)
	return s.load(ctx, id)
}

// Delete hard-deletes a request regardless of status.
func (s *ServiceRequestService) Delete(ctx context.Context, actor models.Actor, id string) error {
	if err := s.authorize(OpDelete, actor); err != nil {
		return err
	}
	if err := s.store.Delete(ctx, id); err != nil {
		return s.storeError(err, "failed to delete service request")
	}
	s.metrics.RecordTransition(OpDelete, OutcomeSuccess)
	s.invalidateStats(ctx)
	s.logger.Info("service request deleted", zap.String("request_id", id), zap.String("user_id", actor.UserID))
	return nil
}

// Save bookmarks the request for the actor.
func (s *ServiceRequestService) Save(ctx context.Context, actor models.Actor, id string) error {
	if actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.store.AddSavedBy(ctx, id, actor.UserID); err != nil {
		return s.storeError(err, "failed to save service request")
	}
	return nil
}

// Unsave removes the actor's bookmark.
func (s *ServiceRequestService) Unsave(ctx context.Context, actor models.Actor, id string) error {
	if actor.UserID == "" {
		return appErrors.ErrUnauthorized
	}
	if err := s.store.RemoveSavedBy(ctx, id, actor.UserID); err != nil {
		return s.storeError(err, "failed to unsave service request")
	}
	return nil
}

// Get returns a request. Citizens may only read their own.
func (s *ServiceRequestService) Get(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	req, err := s.load(ctx, id)
	if err != nil {
		return nil, err
	}
	if !Allowed(OpListAll, actor.Role) && req.UserID != actor.UserID {
		return nil, appErrors.Clone(appErrors.ErrForbidden, "service request belongs to another user")
	}
	return req, nil
}

// ListAll returns every request newest first, optionally narrowed to one type.
func (s *ServiceRequestService) ListAll(ctx context.Context, actor models.Actor, requestType models.RequestType) ([]models.ServiceRequest, error) {
	if err := authorize(OpListAll, actor); err != nil {
		return nil, err
	}
	if requestType != "" && !requestType.Valid() {
		return nil, appErrors.Clone(appErrors.ErrValidation, "unknown request type")
	}
	listing := "all"
	if requestType != "" {
		listing = "by_type"
	}
	return s.listDegraded(ctx, listing, models.ServiceRequestFilter{Type: requestType}), nil
}

// ListByUser returns the actor's own requests.
func (s *ServiceRequestService) ListByUser(ctx context.Context, actor models.Actor) ([]models.ServiceRequest, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return s.listDegraded(ctx, "by_user", models.ServiceRequestFilter{UserID: actor.UserID}), nil
}

// ListSavedByUser returns the requests the actor bookmarked.
func (s *ServiceRequestService) ListSavedByUser(ctx context.Context, actor models.Actor) ([]models.ServiceRequest, error) {
	if actor.UserID == "" {
		return nil, appErrors.ErrUnauthorized
	}
	return s.listDegraded(ctx, "saved_by_user", models.ServiceRequestFilter{SavedBy: actor.UserID}), nil
}

// PendingOlderThan lists pending_local_chief requests created before cutoff. Store errors are returned.
func (s *ServiceRequestService) PendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.ServiceRequest, error) {
	items, err := s.list(ctx, "pending_escalation", models.ServiceRequestFilter{
		Status:        models.StatusPendingLocalChief,
		CreatedBefore: &cutoff,
	})
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "failed to list pending requests")
	}
	due := items[:0]
	for _, item := range items {
		if item.Status == models.StatusPendingLocalChief && item.CreatedAt.Before(cutoff) {
			due = append(due, item)
		}
	}
	return due, nil
}

// Stats aggregates totals per status and type from a full scan.
func (s *ServiceRequestService) Stats(ctx context.Context, actor models.Actor) (*models.ServiceRequestStats, error) {
	if err := authorize(OpStats, actor); err != nil {
		return nil, err
	}
	var cached models.ServiceRequestStats
	if s.cache.Get(ctx, statsCacheKey, &cached) {
		return &cached, nil
	}

	items, err := s.store.List(ctx, models.ServiceRequestFilter{Unordered: true})
	if err != nil {
		return nil, appErrors.StoreUnavailable(err, "failed to compute statistics")
	}
	stats := ComputeStats(items)
	stats.GeneratedAt = s.now().UTC()
	s.cache.Set(ctx, statsCacheKey, stats, s.config.StatsCacheTTL)
	return &stats, nil
}

// ComputeStats counts requests per status and per type.
func ComputeStats(items []models.ServiceRequest) models.ServiceRequestStats {
	stats := models.NewServiceRequestStats()
	for _, item := range items {
		stats.Total++
		stats.ByStatus[item.Status]++
		stats.ByType[item.RequestType]++
	}
	return stats
}

func (s *ServiceRequestService) transition(ctx context.Context, op Operation, id string, mutate func(*models.UpdateServiceRequestStatusParams)) (*models.ServiceRequest, error) {
	current, err := s.load(ctx, id)
	if err != nil {
		s.metrics.RecordTransition(op, OutcomeFailure)
		return nil, err
	}
	rule := transitionTable[op]
	if !CanTransition(op, current.Status) {
		s.metrics.RecordTransition(op, OutcomeInvalid)
		return nil, invalidTransition(op, current.Status)
	}

	params := models.UpdateServiceRequestStatusParams{
		ID:           id,
		FromStatuses: rule.from,
		ToStatus:     rule.to,
		UpdatedAt:    s.now().UTC(),
	}
	mutate(&params)

	if err := s.store.UpdateStatus(ctx, params); err != nil {
		if errors.Is(err, repository.ErrStatusConflict) {
			s.metrics.RecordTransition(op, OutcomeInvalid)
			latest, getErr := s.store.GetByID(ctx, id)
			if errors.Is(getErr, repository.ErrNotFound) {
				return nil, appErrors.Clone(appErrors.ErrNotFound, "service request not found")
			}
			status := current.Status
			if getErr == nil {
				status = latest.Status
			}
			return nil, invalidTransition(op, status)
		}
		s.metrics.RecordTransition(op, OutcomeFailure)
		return nil, appErrors.StoreUnavailable(err, "failed to update service request")
	}
	s.metrics.RecordTransition(op, OutcomeSuccess)
	s.invalidateStats(ctx)
	s.logger.Info("service request transitioned",
		zap.String("request_id", id),
		zap.String("operation", string(op)),
		zap.String("from", string(current.Status)),
		zap.String("to", string(rule.to)))

	updated, err := s.store.GetByID(ctx, id)
	if err != nil {
		s.logger.Warn("reload after transition failed", zap.String("request_id", id), zap.Error(err))
		return applyParams(*current, params), nil
	}
	return updated, nil
}

func (s *ServiceRequestService) load(ctx context.Context, id string) (*models.ServiceRequest, error) {
	req, err := s.store.GetByID(ctx, id)
	if err != nil {
		return nil, s.storeError(err, "failed to load service request")
	}
	return req, nil
}

func (s *ServiceRequestService) list(ctx context.Context, listing string, filter models.ServiceRequestFilter) ([]models.ServiceRequest, error) {
	return listNewestFirst(ctx, s.logger, listing, func(ctx context.Context, unordered bool) ([]models.ServiceRequest, error) {
		f := filter
		f.Unordered = unordered
		return s.store.List(ctx, f)
	}, serviceRequestKey)
}

func (s *ServiceRequestService) listDegraded(ctx context.Context, listing string, filter models.ServiceRequestFilter) []models.ServiceRequest {
	items, err := s.list(ctx, listing, filter)
	if err != nil {
		s.logger.Warn("list service requests failed", zap.String("listing", listing), zap.Error(err))
		return []models.ServiceRequest{}
	}
	if items == nil {
		return []models.ServiceRequest{}
	}
	return items
}

func (s *ServiceRequestService) notify(ctx context.Context, req *models.ServiceRequest, status models.RequestStatus) {
	if s.notifier == nil {
		return
	}
	if err := s.notifier.NotifyStatus(ctx, req, status); err != nil {
		s.logger.Warn("notify requester failed",
			zap.String("request_id", req.ID),
			zap.String("status", string(status)),
			zap.Error(err))
	}
}

func (s *ServiceRequestService) invalidateStats(ctx context.Context) {
	s.cache.Invalidate(ctx, statsCachePattern)
}

func (s *ServiceRequestService) authorize(op Operation, actor models.Actor) error {
	if err := authorize(op, actor); err != nil {
		s.metrics.RecordTransition(op, OutcomeDenied)
		return err
	}
	return nil
}

func (s *ServiceRequestService) validate(payload interface{}, message string) error {
	if err := s.validator.Struct(payload); err != nil {
		wrapped := appErrors.Wrap(err, appErrors.ErrValidation.Code, appErrors.ErrValidation.Status, message)
		var fieldErrs validator.ValidationErrors
		if errors.As(err, &fieldErrs) {
			fields := make(map[string]interface{}, len(fieldErrs))
			for _, fe := range fieldErrs {
				fields[fe.Field()] = fe.Tag()
			}
			wrapped.Details = map[string]interface{}{"fields": fields}
		}
		return wrapped
	}
	return nil
}

func (s *ServiceRequestService) storeError(err error, message string) error {
	if errors.Is(err, repository.ErrNotFound) {
		return appErrors.Clone(appErrors.ErrNotFound, "service request not found")
	}
	return appErrors.StoreUnavailable(err, message)
}

func (s *ServiceRequestService) defaultProofCode(at time.Time) string {
	unique := strings.ToUpper(strings.ReplaceAll(uuid.NewString(), "-", "")[:8])
	return fmt.Sprintf("%s-%s-%s-%s", s.config.ProofCodePrefix, at.Format("20060102"),
		strings.ToUpper(strconv.FormatInt(at.UnixMilli(), 36)), unique)
}

func applyParams(req models.ServiceRequest, params models.UpdateServiceRequestStatusParams) *models.ServiceRequest {
	req.Status = params.ToStatus
	req.UpdatedAt = params.UpdatedAt
	if params.NoteByLocalChief != nil {
		req.NoteByLocalChief = params.NoteByLocalChief
	}
	if params.ReferenceNumberFromLocalChief != nil {
		req.ReferenceNumberFromLocalChief = params.ReferenceNumberFromLocalChief
	}
	if params.LocalChiefApprovedBy != nil {
		req.LocalChiefApprovedBy = params.LocalChiefApprovedBy
	}
	if params.LocalChiefApprovedAt != nil {
		req.LocalChiefApprovedAt = params.LocalChiefApprovedAt
		req.ApprovedByLocalChief = true
	}
	if params.NoteByAdmin != nil {
		req.NoteByAdmin = params.NoteByAdmin
	}
	if params.ReferenceNumberFromAdmin != nil {
		req.ReferenceNumberFromAdmin = params.ReferenceNumberFromAdmin
	}
	if params.AdminApprovedBy != nil {
		req.AdminApprovedBy = params.AdminApprovedBy
	}
	if params.AdminApprovedAt != nil {
		req.AdminApprovedAt = params.AdminApprovedAt
		req.ApprovedByAdmin = true
	}
	if params.ApprovalProofCode != nil && req.ApprovalProofCode == nil {
		req.ApprovalProofCode = params.ApprovalProofCode
	}
	if params.EstimatedCompletionAt != nil {
		req.EstimatedCompletionAt = params.EstimatedCompletionAt
	}
	if params.AutoApprovedAt != nil {
		req.AutoApprovedAt = params.AutoApprovedAt
		req.AutoApproved = true
	}
	if params.RejectionReason != nil {
		req.RejectionReason = params.RejectionReason
	}
	if params.RejectedBy != nil {
		req.RejectedBy = params.RejectedBy
	}
	if params.RejectedAt != nil {
		req.RejectedAt = params.RejectedAt
	}
	if params.CompletedAt != nil {
		req.CompletedAt = params.CompletedAt
	}
	return &req
}

func serviceRequestKey(r models.ServiceRequest) (time.Time, string) {
	return r.CreatedAt, r.ID
}

func optionalString(v string) *string {
	if v == "" {
		return nil
	}
	return &v
}
