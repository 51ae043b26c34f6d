package repository

import (
	"context"
	"database/sql/driver"
	"errors"
	"regexp"
	"strings"
	"testing"
	"time"

	sqlmock "github.com/DATA-DOG/go-sqlmock"
	"github.com/jmoiron/sqlx"
	"github.com/lib/pq"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/desa-layanan-api/internal/models"
)

func newRepoMock(t *testing.T) (*sqlx.DB, sqlmock.Sqlmock, func()) {
	db, mock, err := sqlmock.New(sqlmock.QueryMatcherOption(sqlmock.QueryMatcherRegexp))
	require.NoError(t, err)
	return sqlx.NewDb(db, "sqlmock"), mock, func() { db.Close() }
}

func serviceRequestColumnNames() []string {
	parts := strings.Split(serviceRequestColumns, ",")
	names := make([]string, len(parts))
	for i, part := range parts {
		names[i] = strings.TrimSpace(part)
	}
	return names
}

func serviceRequestRow(id string, status models.RequestStatus, createdAt time.Time) []driver.Value {
	values := make([]driver.Value, 0, len(serviceRequestColumnNames()))
	for _, column := range serviceRequestColumnNames() {
		switch column {
		case "id":
			values = append(values, id)
		case "request_type":
			values = append(values, string(models.RequestTypeGoodConduct))
		case "full_name":
			values = append(values, "Siti Aminah")
		case "nik", "family_card_number":
			values = append(values, "1234567890123456")
		case "user_id":
			values = append(values, "citizen-1")
		case "status":
			values = append(values, string(status))
		case "approved_by_local_chief", "approved_by_admin", "auto_approved":
			values = append(values, false)
		case "saved_by_user_ids":
			values = append(values, "{citizen-2}")
		case "created_at", "updated_at":
			values = append(values, createdAt)
		case "note_by_local_chief", "reference_number_from_local_chief", "local_chief_approved_by", "local_chief_approved_at",
			"note_by_admin", "reference_number_from_admin", "admin_approved_by", "admin_approved_at", "approval_proof_code",
			"estimated_completion_at", "auto_approved_at", "note_by_village_head", "rejection_reason", "rejected_by",
			"rejected_at", "completed_at":
			values = append(values, nil)
		default:
			values = append(values, "")
		}
	}
	return values
}

func TestServiceRequestRepositoryCreateAndGet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("INSERT INTO service_requests")).
		WillReturnResult(sqlmock.NewResult(1, 1))

	req := &models.ServiceRequest{
		RequestType: models.RequestTypeGoodConduct,
		Applicant:   models.Applicant{FullName: "Siti Aminah", NIK: "1234567890123456"},
		UserID:      "citizen-1",
		Status:      models.StatusPendingLocalChief,
	}
	require.NoError(t, repo.Create(context.Background(), req))
	require.NotEmpty(t, req.ID)
	require.False(t, req.CreatedAt.IsZero())
	require.Equal(t, req.CreatedAt, req.UpdatedAt)

	rows := sqlmock.NewRows(serviceRequestColumnNames()).AddRow(serviceRequestRow(req.ID, models.StatusPendingLocalChief, req.CreatedAt)...)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_type")).
		WithArgs(req.ID).
		WillReturnRows(rows)

	found, err := repo.GetByID(context.Background(), req.ID)
	require.NoError(t, err)
	require.Equal(t, req.ID, found.ID)
	require.Equal(t, "1234567890123456", found.NIK)
	require.Equal(t, pq.StringArray{"citizen-2"}, found.SavedByUserIDs)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryGetNotFound(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT id, request_type")).
		WithArgs("missing").
		WillReturnRows(sqlmock.NewRows(serviceRequestColumnNames()))

	_, err := repo.GetByID(context.Background(), "missing")
	require.ErrorIs(t, err, ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryListFilters(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	cutoff := time.Now().Add(-72 * time.Hour)
	rows := sqlmock.NewRows(serviceRequestColumnNames()).
		AddRow(serviceRequestRow("req-1", models.StatusPendingLocalChief, cutoff.Add(-time.Hour))...)
	mock.ExpectQuery(`FROM service_requests WHERE status = \$1 AND created_at < \$2 ORDER BY created_at DESC`).
		WithArgs(models.StatusPendingLocalChief, cutoff).
		WillReturnRows(rows)

	list, err := repo.List(context.Background(), models.ServiceRequestFilter{
		Status:        models.StatusPendingLocalChief,
		CreatedBefore: &cutoff,
	})
	require.NoError(t, err)
	require.Len(t, list, 1)
	require.Equal(t, "req-1", list[0].ID)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryListSavedUnordered(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	mock.ExpectQuery(`FROM service_requests WHERE \$1 = ANY\(saved_by_user_ids\)$`).
		WithArgs("citizen-2").
		WillReturnRows(sqlmock.NewRows(serviceRequestColumnNames()))

	list, err := repo.List(context.Background(), models.ServiceRequestFilter{SavedBy: "citizen-2", Unordered: true})
	require.NoError(t, err)
	require.Empty(t, list)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryListOrderedUnavailable(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	mock.ExpectQuery(`ORDER BY created_at DESC`).
		WillReturnError(&pq.Error{Code: "53200", Message: "out of memory"})

	_, err := repo.List(context.Background(), models.ServiceRequestFilter{Type: models.RequestTypeDomicile})
	require.ErrorIs(t, err, ErrOrderedQueryUnavailable)

	mock.ExpectQuery(`FROM service_requests`).WillReturnError(errors.New("connection refused"))
	_, err = repo.List(context.Background(), models.ServiceRequestFilter{})
	require.Error(t, err)
	require.False(t, errors.Is(err, ErrOrderedQueryUnavailable))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryUpdateStatusCompareAndSet(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	now := time.Now().UTC()
	proof := "BKT-20261014-ABC"
	eta := now.Add(7 * 24 * time.Hour)
	admin := "admin-1"

	mock.ExpectExec(`UPDATE service_requests SET status = \$1, updated_at = \$2, admin_approved_by = \$3, admin_approved_at = \$4, approved_by_admin = TRUE, approval_proof_code = COALESCE\(approval_proof_code, \$5\), estimated_completion_at = \$6 WHERE id = \$7 AND status IN \(\$8,\$9\)`).
		WithArgs(models.StatusApprovedAdmin, now, admin, now, proof, eta, "req-1", models.StatusApprovedLocalChief, models.StatusAutoApproved).
		WillReturnResult(sqlmock.NewResult(0, 1))

	err := repo.UpdateStatus(context.Background(), models.UpdateServiceRequestStatusParams{
		ID:                    "req-1",
		FromStatuses:          []models.RequestStatus{models.StatusApprovedLocalChief, models.StatusAutoApproved},
		ToStatus:              models.StatusApprovedAdmin,
		UpdatedAt:             now,
		AdminApprovedBy:       &admin,
		AdminApprovedAt:       &now,
		ApprovalProofCode:     &proof,
		EstimatedCompletionAt: &eta,
	})
	require.NoError(t, err)

	mock.ExpectExec(regexp.QuoteMeta("UPDATE service_requests SET")).WillReturnResult(sqlmock.NewResult(0, 0))
	err = repo.UpdateStatus(context.Background(), models.UpdateServiceRequestStatusParams{
		ID:           "req-1",
		FromStatuses: []models.RequestStatus{models.StatusApprovedAdmin},
		ToStatus:     models.StatusCompleted,
		CompletedAt:  &now,
	})
	require.ErrorIs(t, err, ErrStatusConflict)

	require.Error(t, repo.UpdateStatus(context.Background(), models.UpdateServiceRequestStatusParams{ID: "req-1"}))
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositorySaveAndUnsave(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("array_append(saved_by_user_ids, $2)")).WithArgs("req-1", "citizen-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.NoError(t, repo.AddSavedBy(context.Background(), "req-1", "citizen-1"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WithArgs("req-1").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(true))
	mock.ExpectExec(regexp.QuoteMeta("array_remove(saved_by_user_ids, $2)")).WithArgs("req-1", "citizen-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.RemoveSavedBy(context.Background(), "req-1", "citizen-1"))

	mock.ExpectQuery(regexp.QuoteMeta("SELECT EXISTS")).WithArgs("missing").
		WillReturnRows(sqlmock.NewRows([]string{"exists"}).AddRow(false))
	require.ErrorIs(t, repo.AddSavedBy(context.Background(), "missing", "citizen-1"), ErrNotFound)
	require.NoError(t, mock.ExpectationsWereMet())
}

func TestServiceRequestRepositoryDeleteAndNote(t *testing.T) {
	db, mock, cleanup := newRepoMock(t)
	defer cleanup()

	repo := NewServiceRequestRepository(db)
	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM service_requests")).WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.Delete(context.Background(), "req-1"))

	mock.ExpectExec(regexp.QuoteMeta("DELETE FROM service_requests")).WithArgs("req-1").
		WillReturnResult(sqlmock.NewResult(0, 0))
	require.ErrorIs(t, repo.Delete(context.Background(), "req-1"), ErrNotFound)

	now := time.Now()
	mock.ExpectExec(regexp.QuoteMeta("SET note_by_village_head = $1")).WithArgs("Segera diproses", now, "req-2").
		WillReturnResult(sqlmock.NewResult(0, 1))
	require.NoError(t, repo.SetVillageHeadNote(context.Background(), "req-2", "Segera diproses", now))
	require.NoError(t, mock.ExpectationsWereMet())
}
