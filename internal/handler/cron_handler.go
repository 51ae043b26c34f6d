package handler

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/dto"
	"github.com/noah-isme/desa-layanan-api/internal/service"
)

type escalationSweeper interface {
	Sweep(ctx context.Context) (service.SweepResult, error)
}

// CronHandler exposes the scheduled auto-escalation trigger.
type CronHandler struct {
	sweeper escalationSweeper
	logger  *zap.Logger
	now     func() time.Time
}

// NewCronHandler constructs the handler.
func NewCronHandler(sweeper escalationSweeper, logger *zap.Logger) *CronHandler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &CronHandler{sweeper: sweeper, logger: logger, now: time.Now}
}

// AutoApprove godoc
// @Summary Auto-escalate requests pending dusun review for more than three days
// @Tags Cron
// @Produce json
// @Security CronSecret
// @Success 200 {object} dto.CronAutoApproveResponse
// @Failure 401 {object} dto.CronErrorResponse
// @Failure 500 {object} dto.CronErrorResponse
// @Router /cron/auto-approve [get]
// @Router /cron/auto-approve [post]
func (h *CronHandler) AutoApprove(c *gin.Context) {
	if h.sweeper == nil {
		c.JSON(http.StatusInternalServerError, dto.CronErrorResponse{Success: false, Error: "sweeper not configured", Timestamp: h.now().UTC()})
		return
	}
	result, err := h.sweeper.Sweep(c.Request.Context())
	if err != nil {
		h.logger.Error("cron auto approve failed", zap.Error(err))
		c.JSON(http.StatusInternalServerError, dto.CronErrorResponse{Success: false, Error: err.Error(), Timestamp: h.now().UTC()})
		return
	}
	c.JSON(http.StatusOK, dto.CronAutoApproveResponse{
		Success:           true,
		AutoApprovedCount: result.Processed,
		FailedCount:       result.Failed,
		Message:           fmt.Sprintf("%d permohonan diteruskan otomatis ke admin", result.Processed),
		Timestamp:         h.now().UTC(),
	})
}
