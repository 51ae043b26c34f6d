package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/models"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
	"github.com/noah-isme/desa-layanan-api/pkg/response"
)

type serviceRequestService interface {
	Submit(ctx context.Context, actor models.Actor, req dto.SubmitServiceRequest) (*models.ServiceRequest, error)
	ApproveByLocalChief(ctx context.Context, actor models.Actor, id string, req dto.ApproveByLocalChiefRequest) (*models.ServiceRequest, error)
	ApproveByAdmin(ctx context.Context, actor models.Actor, id string, req dto.ApproveByAdminRequest) (*models.ServiceRequest, error)
	Reject(ctx context.Context, actor models.Actor, id string, req dto.RejectServiceRequest) (*models.ServiceRequest, error)
	Complete(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error)
	AnnotateByVillageHead(ctx context.Context, actor models.Actor, id string, req dto.VillageHeadNoteRequest) (*models.ServiceRequest, error)
	Delete(ctx context.Context, actor models.Actor, id string) error
	Save(ctx context.Context, actor models.Actor, id string) error
	Unsave(ctx context.Context, actor models.Actor, id string) error
	Get(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error)
	ListAll(ctx context.Context, actor models.Actor, requestType models.RequestType) ([]models.ServiceRequest, error)
	ListByUser(ctx context.Context, actor models.Actor) ([]models.ServiceRequest, error)
	ListSavedByUser(ctx context.Context, actor models.Actor) ([]models.ServiceRequest, error)
	Stats(ctx context.Context, actor models.Actor) (*models.ServiceRequestStats, error)
}

type requestExporter interface {
	ExportCSV(ctx context.Context, actor models.Actor, requestType models.RequestType) ([]byte, error)
}

// ServiceRequestHandler exposes the service request workflow.
type ServiceRequestHandler struct {
	service  serviceRequestService
	exporter requestExporter
}

// NewServiceRequestHandler constructs the handler.
func NewServiceRequestHandler(service serviceRequestService, exporter requestExporter) *ServiceRequestHandler {
	return &ServiceRequestHandler{service: service, exporter: exporter}
}

// Submit godoc
// @Summary Submit a service letter request
// @Tags ServiceRequests
// @Accept json
// @Produce json
// @Param payload body dto.SubmitServiceRequest true "Request payload"
// @Success 201 {object} response.Envelope
// @Failure 400 {object} response.Envelope
// @Router /service-requests [post]
func (h *ServiceRequestHandler) Submit(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req dto.SubmitServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid service request payload"))
		return
	}
	created, err := h.service.Submit(c.Request.Context(), actorFromContext(c), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.Created(c, created)
}

// List godoc
// @Summary List all service requests (staff)
// @Tags ServiceRequests
// @Produce json
// @Param type query string false "Request type"
// @Success 200 {object} response.Envelope
// @Router /service-requests [get]
func (h *ServiceRequestHandler) List(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var query dto.ServiceRequestListQuery
	if err := c.ShouldBindQuery(&query); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid query parameters"))
		return
	}
	items, err := h.service.ListAll(c.Request.Context(), actorFromContext(c), query.Type)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Mine godoc
// @Summary List the caller's service requests
// @Tags ServiceRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /service-requests/mine [get]
func (h *ServiceRequestHandler) Mine(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.service.ListByUser(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Saved godoc
// @Summary List service requests bookmarked by the caller
// @Tags ServiceRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /service-requests/saved [get]
func (h *ServiceRequestHandler) Saved(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	items, err := h.service.ListSavedByUser(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.List(c, items, len(items))
}

// Stats godoc
// @Summary Aggregate request counts by status and type
// @Tags ServiceRequests
// @Produce json
// @Success 200 {object} response.Envelope
// @Router /service-requests/stats [get]
func (h *ServiceRequestHandler) Stats(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	stats, err := h.service.Stats(c.Request.Context(), actorFromContext(c))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, stats)
}

// Export godoc
// @Summary Export service requests as CSV
// @Tags ServiceRequests
// @Produce text/csv
// @Param type query string false "Request type"
// @Success 200 {file} file
// @Router /service-requests/export [get]
func (h *ServiceRequestHandler) Export(c *gin.Context) {
	if h.exporter == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "export service not configured"))
		return
	}
	requestType := models.RequestType(c.Query("type"))
	data, err := h.exporter.ExportCSV(c.Request.Context(), actorFromContext(c), requestType)
	if err != nil {
		response.Error(c, err)
		return
	}
	filename := fmt.Sprintf("permohonan-%s.csv", time.Now().UTC().Format("20060102"))
	c.Header("Content-Disposition", fmt.Sprintf("attachment; filename=%q", filename))
	c.Data(http.StatusOK, "text/csv; charset=utf-8", data)
}

// Get godoc
// @Summary Get a service request
// @Tags ServiceRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 404 {object} response.Envelope
// @Router /service-requests/{id} [get]
func (h *ServiceRequestHandler) Get(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	req, err := h.service.Get(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, req)
}

// ApproveByLocalChief godoc
// @Summary Approve a request as kepala dusun
// @Tags ServiceRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ApproveByLocalChiefRequest true "Approval"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /service-requests/{id}/approve-local-chief [post]
func (h *ServiceRequestHandler) ApproveByLocalChief(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req dto.ApproveByLocalChiefRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	updated, err := h.service.ApproveByLocalChief(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// ApproveByAdmin godoc
// @Summary Approve a request as village admin and issue the proof code
// @Tags ServiceRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.ApproveByAdminRequest false "Approval"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /service-requests/{id}/approve-admin [post]
func (h *ServiceRequestHandler) ApproveByAdmin(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req dto.ApproveByAdminRequest
	if err := bindOptionalJSON(c, &req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "invalid approval payload"))
		return
	}
	updated, err := h.service.ApproveByAdmin(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Reject godoc
// @Summary Reject a request
// @Tags ServiceRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.RejectServiceRequest true "Reason"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /service-requests/{id}/reject [post]
func (h *ServiceRequestHandler) Reject(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req dto.RejectServiceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "rejection reason is required"))
		return
	}
	updated, err := h.service.Reject(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Complete godoc
// @Summary Mark a request as handed over
// @Tags ServiceRequests
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Failure 409 {object} response.Envelope
// @Router /service-requests/{id}/complete [post]
func (h *ServiceRequestHandler) Complete(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	updated, err := h.service.Complete(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// VillageHeadNote godoc
// @Summary Attach a kepala desa note
// @Tags ServiceRequests
// @Accept json
// @Produce json
// @Param id path string true "Request ID"
// @Param payload body dto.VillageHeadNoteRequest true "Note"
// @Success 200 {object} response.Envelope
// @Router /service-requests/{id}/village-head-note [post]
func (h *ServiceRequestHandler) VillageHeadNote(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	var req dto.VillageHeadNoteRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "note is required"))
		return
	}
	updated, err := h.service.AnnotateByVillageHead(c.Request.Context(), actorFromContext(c), c.Param("id"), req)
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, updated)
}

// Save godoc
// @Summary Bookmark a request
// @Tags ServiceRequests
// @Param id path string true "Request ID"
// @Success 204
// @Router /service-requests/{id}/save [post]
func (h *ServiceRequestHandler) Save(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.service.Save(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Unsave godoc
// @Summary Remove a bookmark
// @Tags ServiceRequests
// @Param id path string true "Request ID"
// @Success 204
// @Router /service-requests/{id}/save [delete]
func (h *ServiceRequestHandler) Unsave(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.service.Unsave(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

// Delete godoc
// @Summary Delete a request
// @Tags ServiceRequests
// @Param id path string true "Request ID"
// @Success 204
// @Router /service-requests/{id} [delete]
func (h *ServiceRequestHandler) Delete(c *gin.Context) {
	if !h.ready(c) {
		return
	}
	if err := h.service.Delete(c.Request.Context(), actorFromContext(c), c.Param("id")); err != nil {
		response.Error(c, err)
		return
	}
	response.NoContent(c)
}

func (h *ServiceRequestHandler) ready(c *gin.Context) bool {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "service request service not configured"))
		return false
	}
	return true
}
