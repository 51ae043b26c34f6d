package handler

import (
	"context"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/models"
	"github.com/noah-isme/desa-layanan-api/internal/service"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
	"github.com/noah-isme/desa-layanan-api/pkg/response"
)

type letterService interface {
	RenderLetter(ctx context.Context, actor models.Actor, id string) (*service.LetterFile, error)
	CreateLetterLink(ctx context.Context, actor models.Actor, id string) (*models.LetterLink, error)
	RenderLetterFromToken(ctx context.Context, token string) (*service.LetterFile, error)
}

// LetterHandler serves printable letters.
type LetterHandler struct {
	service letterService
}

// NewLetterHandler constructs the handler.
func NewLetterHandler(service letterService) *LetterHandler {
	return &LetterHandler{service: service}
}

// Letter godoc
// @Summary Download the letter PDF for an approved request
// @Tags Letters
// @Produce application/pdf
// @Param id path string true "Request ID"
// @Success 200 {file} file
// @Failure 409 {object} response.Envelope
// @Router /service-requests/{id}/letter [get]
func (h *LetterHandler) Letter(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "letter service not configured"))
		return
	}
	file, err := h.service.RenderLetter(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	writePDF(c, file)
}

// Link godoc
// @Summary Create a signed download link for the letter
// @Tags Letters
// @Produce json
// @Param id path string true "Request ID"
// @Success 200 {object} response.Envelope
// @Router /service-requests/{id}/letter-link [post]
func (h *LetterHandler) Link(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "letter service not configured"))
		return
	}
	link, err := h.service.CreateLetterLink(c.Request.Context(), actorFromContext(c), c.Param("id"))
	if err != nil {
		response.Error(c, err)
		return
	}
	response.OK(c, dto.LetterLinkResponse{URL: link.URL, ExpiresAt: link.ExpiresAt})
}

// Download godoc
// @Summary Download a letter through a signed link
// @Tags Letters
// @Produce application/pdf
// @Param token query string true "Signed token"
// @Success 200 {file} file
// @Failure 401 {object} response.Envelope
// @Router /letters/download [get]
func (h *LetterHandler) Download(c *gin.Context) {
	if h.service == nil {
		response.Error(c, appErrors.Clone(appErrors.ErrInternal, "letter service not configured"))
		return
	}
	token := c.Query("token")
	if token == "" {
		response.Error(c, appErrors.Clone(appErrors.ErrValidation, "token is required"))
		return
	}
	file, err := h.service.RenderLetterFromToken(c.Request.Context(), token)
	if err != nil {
		response.Error(c, err)
		return
	}
	writePDF(c, file)
}

func writePDF(c *gin.Context, file *service.LetterFile) {
	c.Header("Content-Disposition", fmt.Sprintf("inline; filename=%q", file.Filename))
	c.Header("Cache-Control", "no-store")
	c.Data(http.StatusOK, "application/pdf", file.Content)
}
