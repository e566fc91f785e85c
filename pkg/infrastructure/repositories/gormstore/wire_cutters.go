package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type wireCutterRepository struct {
	db *gorm.DB
}

func (r *wireCutterRepository) Get(ctx context.Context, id uint) (*entities.WireCutter, error) {
	var cutter entities.WireCutter
	if err := r.db.WithContext(ctx).First(&cutter, id).Error; err != nil {
		return nil, notFound(err, "wire cutter", fmt.Sprintf("%d", id))
	}
	return &cutter, nil
}

func (r *wireCutterRepository) GetByName(ctx context.Context, name string) (*entities.WireCutter, error) {
	var cutter entities.WireCutter
	if err := r.db.WithContext(ctx).Where("name = ?", name).First(&cutter).Error; err != nil {
		return nil, notFound(err, "wire cutter", name)
	}
	return &cutter, nil
}

func (r *wireCutterRepository) Create(ctx context.Context, cutter *entities.WireCutter) error {
	if cutter.Name == "" {
		return entities.NewValidationError("wire cutter", "", "name cannot be empty")
	}
	if err := r.db.WithContext(ctx).Create(cutter).Error; err != nil {
		return fmt.Errorf("failed to create wire cutter %s: %w", cutter.Name, err)
	}
	return nil
}

func (r *wireCutterRepository) List(ctx context.Context) ([]*entities.WireCutter, error) {
	var cutters []*entities.WireCutter
	if err := r.db.WithContext(ctx).Order("name").Find(&cutters).Error; err != nil {
		return nil, fmt.Errorf("failed to list wire cutters: %w", err)
	}
	return cutters, nil
}
