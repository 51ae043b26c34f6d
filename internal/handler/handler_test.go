package handler

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/gorilla/websocket"
	"github.com/stretchr/testify/require"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/middleware"
	"github.com/noah-isme/desa-layanan-api/internal/models"
	"github.com/noah-isme/desa-layanan-api/internal/service"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
	"github.com/noah-isme/desa-layanan-api/pkg/response"
	"github.com/noah-isme/desa-layanan-api/pkg/ws"
)

func newGinContext(method, path string, body []byte) (*gin.Context, *httptest.ResponseRecorder) {
	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	req, _ := http.NewRequest(method, path, bytes.NewReader(body))
	req.Header.Set("Content-Type", "application/json")
	c.Request = req
	return c, w
}

func withClaims(c *gin.Context, actor models.Actor) {
	c.Set(middleware.ContextUserKey, &models.JWTClaims{UserID: actor.UserID, Role: actor.Role, FullName: actor.FullName})
}

type serviceRequestServiceMock struct {
	serviceRequestService
	actor     models.Actor
	submitted dto.SubmitServiceRequest
	admin     *dto.ApproveByAdminRequest
	result    *models.ServiceRequest
	err       error
}

func (m *serviceRequestServiceMock) Submit(ctx context.Context, actor models.Actor, req dto.SubmitServiceRequest) (*models.ServiceRequest, error) {
	m.actor = actor
	m.submitted = req
	return m.result, m.err
}

func (m *serviceRequestServiceMock) ApproveByAdmin(ctx context.Context, actor models.Actor, id string, req dto.ApproveByAdminRequest) (*models.ServiceRequest, error) {
	m.actor = actor
	m.admin = &req
	return m.result, m.err
}

func (m *serviceRequestServiceMock) Reject(ctx context.Context, actor models.Actor, id string, req dto.RejectServiceRequest) (*models.ServiceRequest, error) {
	return m.result, m.err
}

func (m *serviceRequestServiceMock) ListAll(ctx context.Context, actor models.Actor, requestType models.RequestType) ([]models.ServiceRequest, error) {
	if m.err != nil {
		return nil, m.err
	}
	return []models.ServiceRequest{*m.result}, nil
}

func TestServiceRequestHandlerSubmit(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &serviceRequestServiceMock{result: &models.ServiceRequest{ID: "req-1", Status: models.StatusPendingLocalChief}}
	h := NewServiceRequestHandler(mock, nil)

	payload, _ := json.Marshal(map[string]string{"requestType": "surat_domisili", "nik": "1234567890123456"})
	c, w := newGinContext(http.MethodPost, "/service-requests", payload)
	withClaims(c, models.Actor{UserID: "citizen-1", Role: models.RoleCitizen})

	h.Submit(c)
	require.Equal(t, http.StatusCreated, w.Code)
	require.Equal(t, "citizen-1", mock.actor.UserID)
	require.Equal(t, models.RequestTypeDomicile, mock.submitted.RequestType)

	var body response.Envelope
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &body))
	require.Equal(t, "req-1", body.Data.(map[string]interface{})["id"])

	c, w = newGinContext(http.MethodPost, "/service-requests", []byte("{"))
	h.Submit(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestServiceRequestHandlerApproveAdminEmptyBody(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &serviceRequestServiceMock{result: &models.ServiceRequest{ID: "req-1", Status: models.StatusApprovedAdmin}}
	h := NewServiceRequestHandler(mock, nil)

	c, w := newGinContext(http.MethodPost, "/service-requests/req-1/approve-admin", nil)
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, models.Actor{UserID: "admin-1", Role: models.RoleAdmin})

	h.ApproveByAdmin(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.NotNil(t, mock.admin)
	require.Empty(t, mock.admin.Note)
}

func TestServiceRequestHandlerMapsInvalidTransition(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &serviceRequestServiceMock{err: appErrors.WithDetails(appErrors.ErrInvalidTransition, map[string]interface{}{"currentStatus": "completed", "transition": "reject"})}
	h := NewServiceRequestHandler(mock, nil)

	c, w := newGinContext(http.MethodPost, "/service-requests/req-1/reject", []byte(`{"reason":"duplikat"}`))
	c.Params = gin.Params{{Key: "id", Value: "req-1"}}
	withClaims(c, models.Actor{UserID: "admin-1", Role: models.RoleAdmin})

	h.Reject(c)
	require.Equal(t, http.StatusConflict, w.Code)
	require.Contains(t, w.Body.String(), `"currentStatus":"completed"`)
	require.Contains(t, w.Body.String(), "INVALID_TRANSITION")
}

func TestServiceRequestHandlerListPagination(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &serviceRequestServiceMock{result: &models.ServiceRequest{ID: "req-1"}}
	h := NewServiceRequestHandler(mock, nil)

	c, w := newGinContext(http.MethodGet, "/service-requests?type=surat_usaha", nil)
	withClaims(c, models.Actor{UserID: "admin-1", Role: models.RoleAdmin})

	h.List(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"total_count":1`)
}

type sweeperStub struct {
	result service.SweepResult
	err    error
}

func (s *sweeperStub) Sweep(ctx context.Context) (service.SweepResult, error) {
	return s.result, s.err
}

func newCronRouter(sweeper escalationSweeper) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	h := NewCronHandler(sweeper, nil)
	group := r.Group("/cron", middleware.CronSecret("cron-secret"))
	group.GET("/auto-approve", h.AutoApprove)
	group.POST("/auto-approve", h.AutoApprove)
	return r
}

func TestCronHandlerAutoApprove(t *testing.T) {
	r := newCronRouter(&sweeperStub{result: service.SweepResult{Processed: 2, Failed: 1}})

	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, httptest.NewRequest(http.MethodGet, "/cron/auto-approve", nil))
	require.Equal(t, http.StatusUnauthorized, rec.Code)

	for _, method := range []string{http.MethodGet, http.MethodPost} {
		req := httptest.NewRequest(method, "/cron/auto-approve", nil)
		req.Header.Set("Authorization", "Bearer cron-secret")
		rec = httptest.NewRecorder()
		r.ServeHTTP(rec, req)
		require.Equal(t, http.StatusOK, rec.Code, method)

		var body dto.CronAutoApproveResponse
		require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
		require.True(t, body.Success)
		require.Equal(t, 2, body.AutoApprovedCount)
		require.Equal(t, 1, body.FailedCount)
		require.False(t, body.Timestamp.IsZero())
	}
}

func TestCronHandlerSweepFailure(t *testing.T) {
	r := newCronRouter(&sweeperStub{err: errors.New("store unavailable")})

	req := httptest.NewRequest(http.MethodPost, "/cron/auto-approve", nil)
	req.Header.Set("Authorization", "Bearer cron-secret")
	rec := httptest.NewRecorder()
	r.ServeHTTP(rec, req)
	require.Equal(t, http.StatusInternalServerError, rec.Code)

	var body dto.CronErrorResponse
	require.NoError(t, json.Unmarshal(rec.Body.Bytes(), &body))
	require.False(t, body.Success)
	require.Equal(t, "store unavailable", body.Error)
}

type notificationServiceMock struct {
	markedBy models.Actor
	err      error
}

func (m *notificationServiceMock) List(ctx context.Context, actor models.Actor, unreadOnly bool, limit int) ([]models.Notification, error) {
	return []models.Notification{}, nil
}

func (m *notificationServiceMock) UnreadCount(ctx context.Context, actor models.Actor) (int, error) {
	return 4, nil
}

func (m *notificationServiceMock) MarkRead(ctx context.Context, actor models.Actor, id string) (*models.Notification, error) {
	m.markedBy = actor
	if m.err != nil {
		return nil, m.err
	}
	return &models.Notification{ID: id, UserID: actor.UserID, IsRead: true}, nil
}

func TestNotificationHandlerMarkRead(t *testing.T) {
	gin.SetMode(gin.TestMode)
	mock := &notificationServiceMock{}
	h := NewNotificationHandler(mock, nil, nil)

	c, w := newGinContext(http.MethodPost, "/notifications/n-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	withClaims(c, models.Actor{UserID: "citizen-1", Role: models.RoleCitizen})
	h.MarkRead(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"isRead":true`)
	require.Equal(t, "citizen-1", mock.markedBy.UserID)

	mock.err = appErrors.Clone(appErrors.ErrForbidden, "notification belongs to another user")
	c, w = newGinContext(http.MethodPost, "/notifications/n-1/read", nil)
	c.Params = gin.Params{{Key: "id", Value: "n-1"}}
	withClaims(c, models.Actor{UserID: "citizen-2", Role: models.RoleCitizen})
	h.MarkRead(c)
	require.Equal(t, http.StatusForbidden, w.Code)

	c, w = newGinContext(http.MethodGet, "/notifications/unread-count", nil)
	withClaims(c, models.Actor{UserID: "citizen-1", Role: models.RoleCitizen})
	h.UnreadCount(c)
	require.Equal(t, http.StatusOK, w.Code)
	require.Contains(t, w.Body.String(), `"unread":4`)

	c, w = newGinContext(http.MethodGet, "/notifications?limit=500", nil)
	withClaims(c, models.Actor{UserID: "citizen-1", Role: models.RoleCitizen})
	h.List(c)
	require.Equal(t, http.StatusBadRequest, w.Code)
}

func TestNotificationHandlerStream(t *testing.T) {
	gin.SetMode(gin.TestMode)
	auth := service.NewAuthService(service.AuthConfig{Secret: "secret"}, nil)
	token, _, err := auth.IssueToken(models.Actor{UserID: "citizen-1", Role: models.RoleCitizen}, time.Hour)
	require.NoError(t, err)

	hub := ws.NewHub(nil)
	h := NewNotificationHandler(&notificationServiceMock{}, hub, nil)
	r := gin.New()
	r.GET("/notifications/ws", middleware.JWT(auth), h.Stream)
	srv := httptest.NewServer(r)
	defer srv.Close()

	url := "ws" + strings.TrimPrefix(srv.URL, "http") + "/notifications/ws?access_token=" + token
	conn, _, err := websocket.DefaultDialer.Dial(url, nil)
	require.NoError(t, err)
	defer conn.Close()

	require.Eventually(t, func() bool { return hub.Connections("citizen-1") == 1 }, time.Second, 10*time.Millisecond)
	delivered, err := hub.SendJSON("citizen-1", models.NotificationEvent{Event: "notification.created"})
	require.NoError(t, err)
	require.True(t, delivered)

	_ = conn.SetReadDeadline(time.Now().Add(2 * time.Second))
	var event models.NotificationEvent
	require.NoError(t, conn.ReadJSON(&event))
	require.Equal(t, "notification.created", event.Event)
}
