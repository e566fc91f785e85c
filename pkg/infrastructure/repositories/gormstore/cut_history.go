package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type cutHistoryRepository struct {
	db *gorm.DB
}

// Append relies on the unique cut_job_item_id column; a second row for the
// same fulfillment is silently dropped
func (r *cutHistoryRepository) Append(ctx context.Context, history *entities.PartCutHistory) (bool, error) {
	result := r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "cut_job_item_id"}},
			DoNothing: true,
		}).
		Create(history)
	if result.Error != nil {
		return false, fmt.Errorf("failed to append cut history for item %d: %w", history.CutJobItemID, result.Error)
	}
	return result.RowsAffected > 0, nil
}

func (r *cutHistoryRepository) ListFor(
	ctx context.Context,
	partNumber entities.PartNumber,
	wireCutterID uint,
) ([]*entities.PartCutHistory, error) {
	var rows []*entities.PartCutHistory
	err := r.db.WithContext(ctx).
		Where("part_number = ? AND wire_cutter_id = ?", partNumber, wireCutterID).
		Order("event_date, id").
		Find(&rows).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list cut history for %s on cutter %d: %w", partNumber, wireCutterID, err)
	}
	return rows, nil
}
