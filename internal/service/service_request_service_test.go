package service

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/require"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/models"
	"github.com/noah-isme/desa-layanan-api/internal/repository"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
)

var (
	citizenActor     = models.Actor{UserID: "citizen-1", Role: models.RoleCitizen, FullName: "Budi Santoso"}
	otherCitizen     = models.Actor{UserID: "citizen-2", Role: models.RoleCitizen}
	localChiefActor  = models.Actor{UserID: "kadus-1", Role: models.RoleLocalChief, FullName: "Pak Dusun"}
	adminActor       = models.Actor{UserID: "admin-1", Role: models.RoleAdmin, FullName: "Admin Desa"}
	villageHeadActor = models.Actor{UserID: "kades-1", Role: models.RoleVillageHead, FullName: "Kepala Desa"}
)

type requestStoreStub struct {
	mu                 sync.Mutex
	items              map[string]*models.ServiceRequest
	seq                int
	listErr            error
	orderedUnavailable bool
	unorderedCalls     int
	updateErr          map[string]error
	beforeUpdate       func(id string)
}

func newRequestStoreStub() *requestStoreStub {
	return &requestStoreStub{items: make(map[string]*models.ServiceRequest), updateErr: make(map[string]error)}
}

func (s *requestStoreStub) put(req *models.ServiceRequest) {
	s.mu.Lock()
	defer s.mu.Unlock()
	copy := *req
	s.items[req.ID] = &copy
}

func (s *requestStoreStub) Create(ctx context.Context, req *models.ServiceRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.seq++
	req.ID = fmt.Sprintf("sr-%d", s.seq)
	copy := *req
	s.items[req.ID] = &copy
	return nil
}

func (s *requestStoreStub) GetByID(ctx context.Context, id string) (*models.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return nil, repository.ErrNotFound
	}
	copy := *req
	copy.SavedByUserIDs = append([]string(nil), req.SavedByUserIDs...)
	return &copy, nil
}

func (s *requestStoreStub) List(ctx context.Context, filter models.ServiceRequestFilter) ([]models.ServiceRequest, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.listErr != nil {
		return nil, s.listErr
	}
	if filter.Unordered {
		s.unorderedCalls++
	} else if s.orderedUnavailable {
		return nil, errors.Join(repository.ErrOrderedQueryUnavailable, errors.New("index not ready"))
	}
	result := make([]models.ServiceRequest, 0, len(s.items))
	for _, req := range s.items {
		if filter.Type != "" && req.RequestType != filter.Type {
			continue
		}
		if filter.UserID != "" && req.UserID != filter.UserID {
			continue
		}
		if filter.SavedBy != "" && !req.SavedBy(filter.SavedBy) {
			continue
		}
		if filter.Status != "" && req.Status != filter.Status {
			continue
		}
		if filter.CreatedBefore != nil && !req.CreatedAt.Before(*filter.CreatedBefore) {
			continue
		}
		result = append(result, *req)
	}
	if !filter.Unordered {
		sort.SliceStable(result, func(i, j int) bool { return result[i].CreatedAt.After(result[j].CreatedAt) })
	}
	return result, nil
}

func (s *requestStoreStub) UpdateStatus(ctx context.Context, params models.UpdateServiceRequestStatusParams) error {
	if s.beforeUpdate != nil {
		s.beforeUpdate(params.ID)
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if err := s.updateErr[params.ID]; err != nil {
		return err
	}
	req, ok := s.items[params.ID]
	if !ok {
		return repository.ErrStatusConflict
	}
	allowed := false
	for _, from := range params.FromStatuses {
		if req.Status == from {
			allowed = true
		}
	}
	if !allowed {
		return repository.ErrStatusConflict
	}
	s.items[params.ID] = applyParams(*req, params)
	return nil
}

func (s *requestStoreStub) SetVillageHeadNote(ctx context.Context, id, note string, updatedAt time.Time) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	req.NoteByVillageHead = &note
	req.UpdatedAt = updatedAt
	return nil
}

func (s *requestStoreStub) AddSavedBy(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	if !req.SavedBy(userID) {
		req.SavedByUserIDs = append(req.SavedByUserIDs, userID)
	}
	return nil
}

func (s *requestStoreStub) RemoveSavedBy(ctx context.Context, id, userID string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	req, ok := s.items[id]
	if !ok {
		return repository.ErrNotFound
	}
	kept := req.SavedByUserIDs[:0]
	for _, uid := range req.SavedByUserIDs {
		if uid != userID {
			kept = append(kept, uid)
		}
	}
	req.SavedByUserIDs = kept
	return nil
}

func (s *requestStoreStub) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.items[id]; !ok {
		return repository.ErrNotFound
	}
	delete(s.items, id)
	return nil
}

func (s *requestStoreStub) status(id string) models.RequestStatus {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.items[id].Status
}

type notifierStub struct {
	statuses []models.RequestStatus
	err      error
}

func (n *notifierStub) NotifyStatus(ctx context.Context, req *models.ServiceRequest, status models.RequestStatus) error {
	n.statuses = append(n.statuses, status)
	return n.err
}

func goodConductPayload() dto.SubmitServiceRequest {
	return dto.SubmitServiceRequest{
		RequestType:      models.RequestTypeGoodConduct,
		FullName:         " Budi Santoso ",
		NIK:              "1234567890123456",
		FamilyCardNumber: "6543210987654321",
		Address:          "Jl. Melati No. 4",
		Subdistrict:      "Dusun Krajan",
		BirthPlace:       "Sleman",
		BirthDate:        "1990-05-17",
		Gender:           "Laki-laki",
		Religion:         "Islam",
		Occupation:       "Petani",
		MaritalStatus:    "Kawin",
		PhoneNumber:      "081234567890",
		Purpose:          "Melamar pekerjaan",
	}
}

func pendingRequest(id string, createdAt time.Time) *models.ServiceRequest {
	return &models.ServiceRequest{
		ID:          id,
		RequestType: models.RequestTypeGoodConduct,
		Applicant:   models.Applicant{FullName: "Budi Santoso", NIK: "1234567890123456"},
		Purpose:     "Melamar pekerjaan",
		UserID:      citizenActor.UserID,
		Status:      models.StatusPendingLocalChief,
		CreatedAt:   createdAt,
		UpdatedAt:   createdAt,
	}
}

func requestIDs(items []models.ServiceRequest) []string {
	ids := make([]string, 0, len(items))
	for _, item := range items {
		ids = append(ids, item.ID)
	}
	return ids
}

func TestServiceRequestWorkflowGoodConductLetter(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	notifications := newNotificationStoreStub()
	notifier := NewNotificationService(notifications, nil)
	svc := NewServiceRequestService(requests, notifier, nil, nil, WorkflowConfig{})

	created, err := svc.Submit(ctx, citizenActor, goodConductPayload())
	require.NoError(t, err)
	require.NotEmpty(t, created.ID)
	require.Equal(t, models.StatusPendingLocalChief, created.Status)
	require.Equal(t, "1234567890123456", created.NIK)
	require.Equal(t, "Budi Santoso", created.FullName)
	require.Equal(t, "laki-laki", created.Gender)
	sent := notifications.snapshot()
	require.Len(t, sent, 1)
	require.Equal(t, "Permohonan Diterima", sent[0].Title)
	require.Equal(t, citizenActor.UserID, sent[0].UserID)
	require.False(t, sent[0].IsRead)

	chief, err := svc.ApproveByLocalChief(ctx, localChiefActor, created.ID, dto.ApproveByLocalChiefRequest{ReferenceNumber: "470/12/2024"})
	require.NoError(t, err)
	require.Equal(t, models.StatusApprovedLocalChief, chief.Status)
	require.True(t, chief.ApprovedByLocalChief)
	require.Equal(t, "470/12/2024", *chief.ReferenceNumberFromLocalChief)
	require.Equal(t, localChiefActor.UserID, *chief.LocalChiefApprovedBy)
	require.Nil(t, chief.NoteByLocalChief)
	sent = notifications.snapshot()
	require.Len(t, sent, 2)
	require.Equal(t, models.PriorityMedium, sent[1].Priority)

	approved, err := svc.ApproveByAdmin(ctx, adminActor, created.ID, dto.ApproveByAdminRequest{})
	require.NoError(t, err)
	require.Equal(t, models.StatusApprovedAdmin, approved.Status)
	require.NotNil(t, approved.ApprovalProofCode)
	proof := *approved.ApprovalProofCode
	require.True(t, strings.HasPrefix(proof, "BKT-"))
	require.NotNil(t, approved.EstimatedCompletionAt)
	require.WithinDuration(t, time.Now().Add(7*24*time.Hour), *approved.EstimatedCompletionAt, time.Minute)
	sent = notifications.snapshot()
	require.Len(t, sent, 3)
	require.Equal(t, models.PriorityHigh, sent[2].Priority)
	require.Contains(t, sent[2].Message, proof)
	require.Equal(t, proof, *sent[2].ProofCode)
	require.NotNil(t, sent[2].EstimatedCompletion)

	completed, err := svc.Complete(ctx, adminActor, created.ID)
	require.NoError(t, err)
	require.Equal(t, models.StatusCompleted, completed.Status)
	require.NotNil(t, completed.CompletedAt)
	require.Equal(t, proof, *completed.ApprovalProofCode)
	require.Len(t, notifications.snapshot(), 3)

	_, err = svc.Reject(ctx, adminActor, created.ID, dto.RejectServiceRequest{Reason: "Data tidak lengkap"})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	appErr := appErrors.FromError(err)
	require.Equal(t, "completed", appErr.Details["currentStatus"])
	require.Equal(t, string(OpReject), appErr.Details["transition"])
	require.Len(t, notifications.snapshot(), 3)
}

func TestServiceRequestSubmitValidation(t *testing.T) {
	svc := NewServiceRequestService(newRequestStoreStub(), nil, nil, nil, WorkflowConfig{})

	payload := goodConductPayload()
	payload.NIK = "12345"
	payload.RequestType = "surat_sakti"
	_, err := svc.Submit(context.Background(), citizenActor, payload)
	require.ErrorIs(t, err, appErrors.ErrValidation)
	fields, ok := appErrors.FromError(err).Details["fields"].(map[string]interface{})
	require.True(t, ok)
	require.Equal(t, "len", fields["nik"])
	require.Equal(t, "request_type", fields["requestType"])

	_, err = svc.Submit(context.Background(), models.Actor{}, goodConductPayload())
	require.ErrorIs(t, err, appErrors.ErrUnauthorized)
}

func TestServiceRequestPermissionTable(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	_, err := svc.ApproveByLocalChief(ctx, citizenActor, "req-1", dto.ApproveByLocalChiefRequest{ReferenceNumber: "1"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.ApproveByAdmin(ctx, localChiefActor, "req-1", dto.ApproveByAdminRequest{})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.AutoEscalate(ctx, adminActor, "req-1")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Complete(ctx, villageHeadActor, "req-1")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	require.ErrorIs(t, svc.Delete(ctx, localChiefActor, "req-1"), appErrors.ErrForbidden)
	_, err = svc.ListAll(ctx, citizenActor, "")
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.Stats(ctx, citizenActor)
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	require.Equal(t, models.StatusPendingLocalChief, requests.status("req-1"))

	_, err = svc.AutoEscalate(ctx, models.SystemActor, "req-1")
	require.NoError(t, err)
	require.Equal(t, models.StatusAutoApproved, requests.status("req-1"))
}

func TestServiceRequestAutoApprovedContinuesToAdmin(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-96*time.Hour)))
	notifier := &notifierStub{}
	svc := NewServiceRequestService(requests, notifier, nil, nil, WorkflowConfig{})

	_, err := svc.AutoEscalate(ctx, models.SystemActor, "req-1")
	require.NoError(t, err)

	_, err = svc.ApproveByLocalChief(ctx, localChiefActor, "req-1", dto.ApproveByLocalChiefRequest{ReferenceNumber: "470/1"})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)

	approved, err := svc.ApproveByAdmin(ctx, adminActor, "req-1", dto.ApproveByAdminRequest{Note: "lengkap"})
	require.NoError(t, err)
	require.True(t, approved.AutoApproved)
	require.True(t, approved.ApprovedByAdmin)
	require.Equal(t, "lengkap", *approved.NoteByAdmin)
	require.Equal(t, []models.RequestStatus{models.StatusAutoApproved, models.StatusApprovedAdmin}, notifier.statuses)
}

func TestServiceRequestRejectTwice(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	notifications := newNotificationStoreStub()
	svc := NewServiceRequestService(requests, NewNotificationService(notifications, nil), nil, nil, WorkflowConfig{})

	rejected, err := svc.Reject(ctx, localChiefActor, "req-1", dto.RejectServiceRequest{Reason: "NIK tidak sesuai KK"})
	require.NoError(t, err)
	require.Equal(t, models.StatusRejected, rejected.Status)
	require.Equal(t, "Pak Dusun", *rejected.RejectedBy)
	require.Equal(t, "NIK tidak sesuai KK", *rejected.RejectionReason)

	_, err = svc.Reject(ctx, localChiefActor, "req-1", dto.RejectServiceRequest{Reason: "lagi"})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	require.Equal(t, "rejected", appErrors.FromError(err).Details["currentStatus"])

	sent := notifications.snapshot()
	require.Len(t, sent, 1)
	require.Equal(t, models.PriorityMedium, sent[0].Priority)
	require.Equal(t, "NIK tidak sesuai KK", *sent[0].RejectionReason)
	require.Contains(t, sent[0].Message, "NIK tidak sesuai KK")

	_, err = svc.Reject(ctx, localChiefActor, "req-1", dto.RejectServiceRequest{})
	require.ErrorIs(t, err, appErrors.ErrValidation)
}

func TestServiceRequestLostRaceEmitsNothing(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	requests.beforeUpdate = func(id string) {
		requests.mu.Lock()
		requests.items[id].Status = models.StatusRejected
		requests.mu.Unlock()
	}
	notifier := &notifierStub{}
	svc := NewServiceRequestService(requests, notifier, nil, nil, WorkflowConfig{})

	_, err := svc.ApproveByLocalChief(ctx, localChiefActor, "req-1", dto.ApproveByLocalChiefRequest{ReferenceNumber: "470/12/2024"})
	require.ErrorIs(t, err, appErrors.ErrInvalidTransition)
	require.Equal(t, "rejected", appErrors.FromError(err).Details["currentStatus"])
	require.Empty(t, notifier.statuses)
}

func TestServiceRequestNotifyFailureKeepsMutation(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	notifier := &notifierStub{err: errors.New("notification store down")}
	svc := NewServiceRequestService(requests, notifier, nil, nil, WorkflowConfig{})

	created, err := svc.Submit(ctx, citizenActor, goodConductPayload())
	require.NoError(t, err)
	require.Equal(t, models.StatusPendingLocalChief, requests.status(created.ID))

	_, err = svc.ApproveByLocalChief(ctx, localChiefActor, created.ID, dto.ApproveByLocalChiefRequest{ReferenceNumber: "470/12/2024"})
	require.NoError(t, err)
	require.Equal(t, models.StatusApprovedLocalChief, requests.status(created.ID))
	require.Equal(t, []models.RequestStatus{models.StatusSubmitted, models.StatusApprovedLocalChief}, notifier.statuses)
}

func TestServiceRequestStoreUnavailableOnWrite(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	requests.updateErr["req-1"] = errors.New("connection reset")
	notifier := &notifierStub{}
	svc := NewServiceRequestService(requests, notifier, nil, nil, WorkflowConfig{})

	_, err := svc.ApproveByLocalChief(ctx, localChiefActor, "req-1", dto.ApproveByLocalChiefRequest{ReferenceNumber: "470/12/2024"})
	require.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
	require.Empty(t, notifier.statuses)

	_, err = svc.Complete(ctx, adminActor, "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestServiceRequestSaveUnsaveIdempotent(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	require.NoError(t, svc.Save(ctx, otherCitizen, "req-1"))
	require.NoError(t, svc.Save(ctx, otherCitizen, "req-1"))
	stored, err := requests.GetByID(ctx, "req-1")
	require.NoError(t, err)
	require.Equal(t, []string{"citizen-2"}, []string(stored.SavedByUserIDs))

	saved, err := svc.ListSavedByUser(ctx, otherCitizen)
	require.NoError(t, err)
	require.Equal(t, []string{"req-1"}, requestIDs(saved))

	require.NoError(t, svc.Unsave(ctx, otherCitizen, "req-1"))
	require.NoError(t, svc.Unsave(ctx, otherCitizen, "req-1"))
	saved, err = svc.ListSavedByUser(ctx, otherCitizen)
	require.NoError(t, err)
	require.Empty(t, saved)

	require.ErrorIs(t, svc.Save(ctx, otherCitizen, "missing"), appErrors.ErrNotFound)
	require.ErrorIs(t, svc.Unsave(ctx, otherCitizen, "missing"), appErrors.ErrNotFound)
}

func TestServiceRequestListingFallbackKeepsOrdering(t *testing.T) {
	ctx := context.Background()
	base := time.Date(2026, 10, 1, 8, 0, 0, 0, time.UTC)
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-a", base))
	requests.put(pendingRequest("req-c", base.Add(time.Hour)))
	requests.put(pendingRequest("req-b", base.Add(time.Hour)))
	requests.put(pendingRequest("req-d", base.Add(-time.Hour)))
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	ordered, err := svc.ListAll(ctx, adminActor, "")
	require.NoError(t, err)
	require.Zero(t, requests.unorderedCalls)

	requests.orderedUnavailable = true
	fallback, err := svc.ListAll(ctx, adminActor, "")
	require.NoError(t, err)
	require.Equal(t, 1, requests.unorderedCalls)

	expected := []string{"req-b", "req-c", "req-a", "req-d"}
	require.Equal(t, expected, requestIDs(ordered))
	require.Equal(t, expected, requestIDs(fallback))

	mine, err := svc.ListByUser(ctx, citizenActor)
	require.NoError(t, err)
	require.Equal(t, expected, requestIDs(mine))
}

func TestServiceRequestListingDegradesToEmpty(t *testing.T) {
	requests := newRequestStoreStub()
	requests.listErr = errors.New("connection refused")
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	items, err := svc.ListAll(context.Background(), adminActor, models.RequestTypeDomicile)
	require.NoError(t, err)
	require.NotNil(t, items)
	require.Empty(t, items)

	_, err = svc.ListAll(context.Background(), adminActor, "surat_sakti")
	require.ErrorIs(t, err, appErrors.ErrValidation)

	_, err = svc.Stats(context.Background(), adminActor)
	require.ErrorIs(t, err, appErrors.ErrStoreUnavailable)
}

func TestServiceRequestListByType(t *testing.T) {
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-2*time.Hour)))
	domicile := pendingRequest("req-2", time.Now().Add(-time.Hour))
	domicile.RequestType = models.RequestTypeDomicile
	requests.put(domicile)
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	items, err := svc.ListAll(context.Background(), villageHeadActor, models.RequestTypeDomicile)
	require.NoError(t, err)
	require.Equal(t, []string{"req-2"}, requestIDs(items))
}

func TestServiceRequestStats(t *testing.T) {
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-2*time.Hour)))
	rejected := pendingRequest("req-2", time.Now().Add(-time.Hour))
	rejected.Status = models.StatusRejected
	rejected.RequestType = models.RequestTypeBusiness
	requests.put(rejected)
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	stats, err := svc.Stats(context.Background(), localChiefActor)
	require.NoError(t, err)
	require.Equal(t, 2, stats.Total)
	require.Equal(t, 1, stats.ByStatus[models.StatusPendingLocalChief])
	require.Equal(t, 1, stats.ByStatus[models.StatusRejected])
	require.Equal(t, 0, stats.ByStatus[models.StatusCompleted])
	require.Equal(t, 1, stats.ByType[models.RequestTypeBusiness])
	require.Len(t, stats.ByType, len(models.RequestTypes()))
}

func TestServiceRequestGetOwnership(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	svc := NewServiceRequestService(requests, nil, nil, nil, WorkflowConfig{})

	req, err := svc.Get(ctx, citizenActor, "req-1")
	require.NoError(t, err)
	require.Equal(t, "req-1", req.ID)

	_, err = svc.Get(ctx, otherCitizen, "req-1")
	require.ErrorIs(t, err, appErrors.ErrForbidden)

	_, err = svc.Get(ctx, adminActor, "req-1")
	require.NoError(t, err)

	_, err = svc.Get(ctx, adminActor, "missing")
	require.ErrorIs(t, err, appErrors.ErrNotFound)
}

func TestServiceRequestVillageHeadNoteAndDelete(t *testing.T) {
	ctx := context.Background()
	requests := newRequestStoreStub()
	requests.put(pendingRequest("req-1", time.Now().Add(-time.Hour)))
	notifier := &notifierStub{}
	svc := NewServiceRequestService(requests, notifier, nil, nil, WorkflowConfig{})

	noted, err := svc.AnnotateByVillageHead(ctx, villageHeadActor, "req-1", dto.VillageHeadNoteRequest{Note: " Segera diproses "})
	require.NoError(t, err)
	require.Equal(t, "Segera diproses", *noted.NoteByVillageHead)
	require.Equal(t, models.StatusPendingLocalChief, noted.Status)
	require.Empty(t, notifier.statuses)

	_, err = svc.AnnotateByVillageHead(ctx, localChiefActor, "req-1", dto.VillageHeadNoteRequest{Note: "x"})
	require.ErrorIs(t, err, appErrors.ErrForbidden)
	_, err = svc.AnnotateByVillageHead(ctx, villageHeadActor, "missing", dto.VillageHeadNoteRequest{Note: "x"})
	require.ErrorIs(t, err, appErrors.ErrNotFound)

	require.NoError(t, svc.Delete(ctx, adminActor, "req-1"))
	_, err = requests.GetByID(ctx, "req-1")
	require.ErrorIs(t, err, repository.ErrNotFound)
	require.ErrorIs(t, svc.Delete(ctx, adminActor, "req-1"), appErrors.ErrNotFound)
	require.Empty(t, notifier.statuses)
}

func TestServiceRequestProofCodeFormat(t *testing.T) {
	svc := NewServiceRequestService(newRequestStoreStub(), nil, nil, nil, WorkflowConfig{ProofCodePrefix: "SKD"})
	at := time.Date(2026, 10, 14, 9, 30, 0, 0, time.UTC)

	first := svc.proofCode(at)
	second := svc.proofCode(at)
	require.True(t, strings.HasPrefix(first, "SKD-20261014-"))
	require.Len(t, strings.Split(first, "-"), 4)
	require.NotEqual(t, first, second)
}
