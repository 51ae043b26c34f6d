package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/multierr"
	"go.uber.org/zap"

	"github.com/noah-isme/desa-layanan-api/internal/models"
	appErrors "github.com/noah-isme/desa-layanan-api/pkg/errors"
)

type escalationSource interface {
	PendingOlderThan(ctx context.Context, cutoff time.Time) ([]models.ServiceRequest, error)
	AutoEscalate(ctx context.Context, actor models.Actor, id string) (*models.ServiceRequest, error)
}

// SweepResult summarises one auto-escalation run.
type SweepResult struct {
	Processed int
	Failed    int
	Skipped   int
}

// EscalationService forwards requests the dusun head left unreviewed past the threshold.
type EscalationService struct {
	source    escalationSource
	metrics   *MetricsService
	logger    *zap.Logger
	threshold time.Duration
	now       func() time.Time
}

// NewEscalationService constructs the sweep runner. A non-positive threshold defaults to three days.
func NewEscalationService(source escalationSource, threshold time.Duration, metrics *MetricsService, logger *zap.Logger) *EscalationService {
	if logger == nil {
		logger = zap.NewNop()
	}
	if threshold <= 0 {
		threshold = 72 * time.Hour
	}
	return &EscalationService{source: source, metrics: metrics, logger: logger, threshold: threshold, now: time.Now}
}

// Sweep escalates every due request independently. The returned error is non-nil only when
// the pending listing could not be read; per-record failures are counted in the result.
func (s *EscalationService) Sweep(ctx context.Context) (SweepResult, error) {
	start := time.Now()
	var result SweepResult

	now := s.now().UTC()
	cutoff := now.Add(-s.threshold)
	due, err := s.source.PendingOlderThan(ctx, cutoff)
	if err != nil {
		s.metrics.RecordSweep(result, time.Since(start), err)
		s.logger.Error("auto escalation sweep aborted", zap.Error(err))
		return result, err
	}

	var errs error
	for _, req := range due {
		if err := ctx.Err(); err != nil {
			errs = multierr.Append(errs, err)
			break
		}
		// Re-checked against the wall clock at sweep time.
		if now.Sub(req.CreatedAt) <= s.threshold {
			result.Skipped++
			continue
		}
		if _, err := s.source.AutoEscalate(ctx, models.SystemActor, req.ID); err != nil {
			if errors.Is(err, appErrors.ErrInvalidTransition) || errors.Is(err, appErrors.ErrNotFound) {
				result.Skipped++
				continue
			}
			result.Failed++
			errs = multierr.Append(errs, fmt.Errorf("escalate %s: %w", req.ID, err))
			continue
		}
		result.Processed++
	}

	if errs != nil {
		s.logger.Warn("auto escalation sweep finished with failures",
			zap.Int("processed", result.Processed),
			zap.Int("failed", result.Failed),
			zap.Errors("errors", multierr.Errors(errs)))
	} else {
		s.logger.Info("auto escalation sweep finished",
			zap.Int("processed", result.Processed),
			zap.Int("skipped", result.Skipped))
	}
	s.metrics.RecordSweep(result, time.Since(start), nil)
	return result, nil
}
