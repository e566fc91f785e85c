package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type cutJobRepository struct {
	db *gorm.DB
}

func (r *cutJobRepository) preload(db *gorm.DB) *gorm.DB {
	return db.
		Preload("Items", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		Preload("Items.OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") })
}

func (r *cutJobRepository) Get(ctx context.Context, id uint) (*entities.CutJob, error) {
	var job entities.CutJob
	if err := r.preload(r.db.WithContext(ctx)).First(&job, id).Error; err != nil {
		return nil, notFound(err, "cut job", fmt.Sprintf("%d", id))
	}
	return &job, nil
}

func (r *cutJobRepository) GetItem(ctx context.Context, id uint) (*entities.CutJobItem, error) {
	var item entities.CutJobItem
	err := r.db.WithContext(ctx).
		Preload("OrderItems", func(db *gorm.DB) *gorm.DB { return db.Order("id") }).
		First(&item, id).Error
	if err != nil {
		return nil, notFound(err, "cut job item", fmt.Sprintf("%d", id))
	}
	return &item, nil
}

func (r *cutJobRepository) Create(ctx context.Context, job *entities.CutJob) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(job).Error; err != nil {
		return fmt.Errorf("failed to create cut job for cutter %d: %w", job.WireCutterID, err)
	}
	return nil
}

func (r *cutJobRepository) CreateItem(ctx context.Context, item *entities.CutJobItem) error {
	if err := r.db.WithContext(ctx).Omit(clause.Associations).Create(item).Error; err != nil {
		return fmt.Errorf("failed to create cut job item %s on job %d: %w", item.PartNumber, item.CutJobID, err)
	}
	return nil
}

// Save bumps the job version and writes the job items. Linked order items are
// written by the caller.
func (r *cutJobRepository) Save(ctx context.Context, job *entities.CutJob, expectedVersion int) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		result := tx.Model(&entities.CutJob{}).
			Where("id = ? AND version = ?", job.ID, expectedVersion).
			Updates(map[string]interface{}{
				"status":       job.Status,
				"fulfilled_at": job.FulfilledAt,
				"version":      expectedVersion + 1,
				"updated_at":   now,
			})
		if result.Error != nil {
			return fmt.Errorf("failed to save cut job %d: %w", job.ID, result.Error)
		}
		if result.RowsAffected == 0 {
			return entities.NewConflictError("cut job", job.Key(),
				fmt.Sprintf("version %d is stale", expectedVersion))
		}
		job.Version = expectedVersion + 1
		job.UpdatedAt = now

		for _, item := range job.Items {
			if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
				return fmt.Errorf("failed to save cut job item %d: %w", item.ID, err)
			}
		}
		return nil
	})
}

func (r *cutJobRepository) DeleteItem(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.CutJobItem{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete cut job item %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.NewNotFoundError("cut job item", fmt.Sprintf("%d", id))
	}
	return nil
}

func (r *cutJobRepository) List(ctx context.Context, status *entities.CutJobStatus) ([]*entities.CutJob, error) {
	query := r.preload(r.db.WithContext(ctx)).Order("id")
	if status != nil {
		query = query.Where("status = ?", *status)
	}
	var jobs []*entities.CutJob
	if err := query.Find(&jobs).Error; err != nil {
		return nil, fmt.Errorf("failed to list cut jobs: %w", err)
	}
	return jobs, nil
}
