package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type partRepository struct {
	db *gorm.DB
}

func (r *partRepository) GetByNumber(ctx context.Context, number entities.PartNumber) (*entities.Part, error) {
	var part entities.Part
	if err := r.db.WithContext(ctx).Where("number = ?", number).First(&part).Error; err != nil {
		return nil, notFound(err, "part", string(number))
	}
	return &part, nil
}

func (r *partRepository) Create(ctx context.Context, part *entities.Part) error {
	if err := part.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Create(part).Error; err != nil {
		return fmt.Errorf("failed to create part %s: %w", part.Number, err)
	}
	return nil
}

func (r *partRepository) Update(ctx context.Context, part *entities.Part) error {
	if err := part.Validate(); err != nil {
		return err
	}
	if err := r.db.WithContext(ctx).Save(part).Error; err != nil {
		return fmt.Errorf("failed to update part %s: %w", part.Number, err)
	}
	return nil
}
