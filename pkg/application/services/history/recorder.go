package history

import (
	"context"
	"fmt"

	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// Recorder appends cut history rows. Each cut job item is recorded at most
// once no matter how often its fulfillment is replayed.
type Recorder struct {
	repo   repositories.CutHistoryRepository
	logger *zap.Logger
}

// NewRecorder creates a recorder writing to repo
func NewRecorder(repo repositories.CutHistoryRepository, logger *zap.Logger) *Recorder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Recorder{repo: repo, logger: logger}
}

// Record writes h and reports whether a new row was stored. Rows with no
// quantity are not recorded.
func (r *Recorder) Record(ctx context.Context, h *entities.PartCutHistory) (bool, error) {
	if h == nil || !h.QuantityCut.IsPositive() {
		return false, nil
	}
	if h.CutJobItemID == 0 {
		return false, entities.NewValidationError("cut history", string(h.PartNumber), "cut job item is required")
	}
	if h.TotalTimeMinutes.IsNegative() {
		return false, entities.NewValidationError("cut history", string(h.PartNumber),
			fmt.Sprintf("total time cannot be negative, got %s", h.TotalTimeMinutes))
	}

	written, err := r.repo.Append(ctx, h)
	if err != nil {
		return false, fmt.Errorf("failed to record cut history for job item %d: %w", h.CutJobItemID, err)
	}
	if !written {
		r.logger.Debug("cut history already recorded", zap.Uint("cut_job_item", h.CutJobItemID))
		return false, nil
	}

	r.logger.Info("cut history recorded",
		zap.String("part", string(h.PartNumber)),
		zap.Uint("wire_cutter", h.WireCutterID),
		zap.Uint("cut_job_item", h.CutJobItemID),
		zap.String("quantity", h.QuantityCut.String()),
		zap.String("minutes", h.TotalTimeMinutes.String()))
	return true, nil
}
