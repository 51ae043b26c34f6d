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
	"github.com/lib/pq"

	"github.com/noah-isme/desa-layanan-api/internal/models"
)

const serviceRequestColumns = `id, request_type, full_name, nik, family_card_number, address, subdistrict, birth_place,
       birth_date, gender, religion, occupation, marital_status, phone_number, purpose, user_id, status,
       note_by_local_chief, reference_number_from_local_chief, approved_by_local_chief, local_chief_approved_by,
       local_chief_approved_at, note_by_admin, reference_number_from_admin, approved_by_admin, admin_approved_by,
       admin_approved_at, approval_proof_code, estimated_completion_at, auto_approved, auto_approved_at,
       note_by_village_head, rejection_reason, rejected_by, rejected_at, completed_at, saved_by_user_ids,
       created_at, updated_at`

// ServiceRequestRepository persists service requests in PostgreSQL.
type ServiceRequestRepository struct {
	db *sqlx.DB
}

// NewServiceRequestRepository constructs the repository.
func NewServiceRequestRepository(db *sqlx.DB) *ServiceRequestRepository {
	return &ServiceRequestRepository{db: db}
}

// Create inserts a new request and assigns its identifier and timestamps.
func (r *ServiceRequestRepository) Create(ctx context.Context, req *models.ServiceRequest) error {
	if req.ID == "" {
		req.ID = uuid.NewString()
	}
	now := time.Now().UTC()
	if req.CreatedAt.IsZero() {
		req.CreatedAt = now
	}
	req.UpdatedAt = req.CreatedAt
	if req.SavedByUserIDs == nil {
		req.SavedByUserIDs = pq.StringArray{}
	}
	const query = `INSERT INTO service_requests
	(id, request_type, full_name, nik, family_card_number, address, subdistrict, birth_place, birth_date, gender,
	 religion, occupation, marital_status, phone_number, purpose, user_id, status, saved_by_user_ids, created_at, updated_at)
	VALUES (:id, :request_type, :full_name, :nik, :family_card_number, :address, :subdistrict, :birth_place, :birth_date, :gender,
	 :religion, :occupation, :marital_status, :phone_number, :purpose, :user_id, :status, :saved_by_user_ids, :created_at, :updated_at)`
	if _, err := r.db.NamedExecContext(ctx, query, req); err != nil {
		return fmt.Errorf("create service request: %w", err)
	}
	return nil
}

// GetByID fetches a request by identifier.
func (r *ServiceRequestRepository) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	query := `SELECT ` + serviceRequestColumns + ` FROM service_requests WHERE id = $1`
	var req models.ServiceRequest
	if err := r.db.GetContext(ctx, &req, query, id); err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, ErrNotFound
		}
		return nil, fmt.Errorf("get service request: %w", err)
	}
	return &req, nil
}

// List returns requests matching the filter, newest first unless the filter is unordered.
func (r *ServiceRequestRepository) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, error) {
	builder := strings.Builder{}
	args := make([]interface{}, 0, 5)
	builder.WriteString(`SELECT ` + serviceRequestColumns + ` FROM service_requests`)

	conditions := make([]string, 0, 5)
	if filter.Type != "" {
		args = append(args, filter.Type)
		conditions = append(conditions, fmt.Sprintf("request_type = $%d", len(args)))
	}
	if filter.UserID != "" {
		args = append(args, filter.UserID)
		conditions = append(conditions, fmt.Sprintf("user_id = $%d", len(args)))
	}
	if filter.SavedBy != "" {
		args = append(args, filter.SavedBy)
		conditions = append(conditions, fmt.Sprintf("$%d = ANY(saved_by_user_ids)", len(args)))
	}
	if filter.Status != "" {
		args = append(args, filter.Status)
		conditions = append(conditions, fmt.Sprintf("status = $%d", len(args)))
	}
	if filter.CreatedBefore != nil {
		args = append(args, *filter.CreatedBefore)
		conditions = append(conditions, fmt.Sprintf("created_at < $%d", len(args)))
	}
	if len(conditions) > 0 {
		builder.WriteString(" WHERE ")
		builder.WriteString(strings.Join(conditions, " AND "))
	}
	if !filter.Unordered {
		builder.WriteString(" ORDER BY created_at DESC")
	}

	var requests []models.ServiceRequest
	if err := r.db.SelectContext(ctx, &requests, builder.String(), args...); err != nil {
		if !filter.Unordered && isOrderedQueryFailure(err) {
			return nil, fmt.Errorf("list service requests: %w", errors.Join(ErrOrderedQueryUnavailable, err))
		}
		return nil, fmt.Errorf("list service requests: %w", err)
	}
	return requests, nil
}

// UpdateStatus applies a transition only when the row is still in one of params.FromStatuses.
func (r *ServiceRequestRepository) UpdateStatus(ctx context.Context, params models.UpdateServiceRequestStatusParams) error {
	if len(params.FromStatuses) == 0 {
		return fmt.Errorf("update service request status: no source statuses")
	}
	if params.UpdatedAt.IsZero() {
		params.UpdatedAt = time.Now().UTC()
	}

	args := []interface{}{params.ToStatus, params.UpdatedAt}
	setParts := []string{"status = $1", "updated_at = $2"}
	set := func(column string, value interface{}) {
		args = append(args, value)
		setParts = append(setParts, fmt.Sprintf("%s = $%d", column, len(args)))
	}

	if params.NoteByLocalChief != nil {
		set("note_by_local_chief", *params.NoteByLocalChief)
	}
	if params.ReferenceNumberFromLocalChief != nil {
		set("reference_number_from_local_chief", *params.ReferenceNumberFromLocalChief)
	}
	if params.LocalChiefApprovedBy != nil {
		set("local_chief_approved_by", *params.LocalChiefApprovedBy)
	}
	if params.LocalChiefApprovedAt != nil {
		set("local_chief_approved_at", *params.LocalChiefApprovedAt)
		setParts = append(setParts, "approved_by_local_chief = TRUE")
	}
	if params.NoteByAdmin != nil {
		set("note_by_admin", *params.NoteByAdmin)
	}
	if params.ReferenceNumberFromAdmin != nil {
		set("reference_number_from_admin", *params.ReferenceNumberFromAdmin)
	}
	if params.AdminApprovedBy != nil {
		set("admin_approved_by", *params.AdminApprovedBy)
	}
	if params.AdminApprovedAt != nil {
		set("admin_approved_at", *params.AdminApprovedAt)
		setParts = append(setParts, "approved_by_admin = TRUE")
	}
	if params.ApprovalProofCode != nil {
		args = append(args, *params.ApprovalProofCode)
		setParts = append(setParts, fmt.Sprintf("approval_proof_code = COALESCE(approval_proof_code, $%d)", len(args)))
	}
	if params.EstimatedCompletionAt != nil {
		set("estimated_completion_at", *params.EstimatedCompletionAt)
	}
	if params.AutoApprovedAt != nil {
		set("auto_approved_at", *params.AutoApprovedAt)
		setParts = append(setParts, "auto_approved = TRUE")
	}
	if params.RejectionReason != nil {
		set("rejection_reason", *params.RejectionReason)
	}
	if params.RejectedBy != nil {
		set("rejected_by", *params.RejectedBy)
	}
	if params.RejectedAt != nil {
		set("rejected_at", *params.RejectedAt)
	}
	if params.CompletedAt != nil {
		set("completed_at", *params.CompletedAt)
	}

	args = append(args, params.ID)
	idPos := len(args)
	placeholders := make([]string, len(params.FromStatuses))
	for i, status := range params.FromStatuses {
		args = append(args, status)
		placeholders[i] = fmt.Sprintf("$%d", len(args))
	}

	query := fmt.Sprintf("UPDATE service_requests SET %s WHERE id = $%d AND status IN (%s)",
		strings.Join(setParts, ", "), idPos, strings.Join(placeholders, ","))
	result, err := r.db.ExecContext(ctx, query, args...)
	if err != nil {
		return fmt.Errorf("update service request status: %w", err)
	}
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("check service request update rows: %w", err)
	}
	if rows == 0 {
		return ErrStatusConflict
	}
	return nil
}

// SetVillageHeadNote stores the kepala desa annotation without touching the status.
func (r *ServiceRequestRepository) SetVillageHeadNote(ctx context.Context, id, note string, updatedAt time.Time) error {
	const query = `UPDATE service_requests SET note_by_village_head = $1, updated_at = $2 WHERE id = $3`
	result, err := r.db.ExecContext(ctx, query, note, updatedAt, id)
	if err != nil {
		return fmt.Errorf("set village head note: %w", err)
	}
	return expectAffected(result, "set village head note")
}

// AddSavedBy bookmarks the request for userID. Repeated calls are no-ops.
func (r *ServiceRequestRepository) AddSavedBy(ctx context.Context, id, userID string) error {
	if err := r.ensureExists(ctx, id); err != nil {
		return err
	}
	const query = `UPDATE service_requests SET saved_by_user_ids = array_append(saved_by_user_ids, $2)
	WHERE id = $1 AND NOT ($2 = ANY(saved_by_user_ids))`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("save service request: %w", err)
	}
	return nil
}

// RemoveSavedBy removes the bookmark for userID. Removing an absent bookmark is a no-op.
func (r *ServiceRequestRepository) RemoveSavedBy(ctx context.Context, id, userID string) error {
	if err := r.ensureExists(ctx, id); err != nil {
		return err
	}
	const query = `UPDATE service_requests SET saved_by_user_ids = array_remove(saved_by_user_ids, $2) WHERE id = $1`
	if _, err := r.db.ExecContext(ctx, query, id, userID); err != nil {
		return fmt.Errorf("unsave service request: %w", err)
	}
	return nil
}

// Delete hard-deletes the request.
func (r *ServiceRequestRepository) Delete(ctx context.Context, id string) error {
	result, err := r.db.ExecContext(ctx, `DELETE FROM service_requests WHERE id = $1`, id)
	if err != nil {
		return fmt.Errorf("delete service request: %w", err)
	}
	return expectAffected(result, "delete service request")
}

func (r *ServiceRequestRepository) ensureExists(ctx context.Context, id string) error {
	var exists bool
	if err := r.db.GetContext(ctx, &exists, `SELECT EXISTS(SELECT 1 FROM service_requests WHERE id = $1)`, id); err != nil {
		return fmt.Errorf("check service request: %w", err)
	}
	if !exists {
		return ErrNotFound
	}
	return nil
}

func expectAffected(result sql.Result, op string) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("%s rows: %w", op, err)
	}
	if rows == 0 {
		return ErrNotFound
	}
	return nil
}
