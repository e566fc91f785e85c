package gormstore

import (
	"context"
	"fmt"
	"time"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type propertyRepository struct {
	db *gorm.DB
}

func (r *propertyRepository) Get(ctx context.Context, key string) (entities.PropertyValue, error) {
	var row entities.SystemProperty
	if err := r.db.WithContext(ctx).Where("`key` = ?", key).First(&row).Error; err != nil {
		return entities.PropertyValue{}, notFound(err, "system property", key)
	}
	value, err := entities.DecodeProperty(row.Kind, row.Value)
	if err != nil {
		return entities.PropertyValue{}, fmt.Errorf("system property %s: %w", key, err)
	}
	return value, nil
}

func (r *propertyRepository) Set(ctx context.Context, key string, value entities.PropertyValue) error {
	encoded, err := value.Encode()
	if err != nil {
		return entities.NewValidationError("system property", key, err.Error())
	}
	row := entities.SystemProperty{Key: key, Kind: value.Kind, Value: encoded, UpdatedAt: time.Now()}
	err = r.db.WithContext(ctx).
		Clauses(clause.OnConflict{
			Columns:   []clause.Column{{Name: "key"}},
			DoUpdates: clause.AssignmentColumns([]string{"kind", "value", "updated_at"}),
		}).
		Create(&row).Error
	if err != nil {
		return fmt.Errorf("failed to set system property %s: %w", key, err)
	}
	return nil
}
