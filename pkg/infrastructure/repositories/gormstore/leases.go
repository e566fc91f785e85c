package gormstore

import (
	"context"
	"errors"
	"fmt"
	"time"

	"gorm.io/gorm"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type lease struct {
	Name      string `gorm:"primaryKey"`
	Owner     string
	ExpiresAt time.Time
}

func (lease) TableName() string {
	return "leases"
}

type leaseRepository struct {
	db *gorm.DB
}

// Acquire takes the named lease for owner. A lease held by another owner that
// has not expired yields a ConflictError; the same owner renews.
func (r *leaseRepository) Acquire(ctx context.Context, name, owner string, ttl time.Duration) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		now := time.Now()
		var current lease
		err := tx.Where("name = ?", name).First(&current).Error
		switch {
		case errors.Is(err, gorm.ErrRecordNotFound):
		case err != nil:
			return fmt.Errorf("failed to read lease %s: %w", name, err)
		case current.Owner != owner && current.ExpiresAt.After(now):
			return entities.NewConflictError("lease", name,
				fmt.Sprintf("held by %s until %s", current.Owner, current.ExpiresAt.Format(time.RFC3339)))
		}

		next := lease{Name: name, Owner: owner, ExpiresAt: now.Add(ttl)}
		if err := tx.Save(&next).Error; err != nil {
			return fmt.Errorf("failed to write lease %s: %w", name, err)
		}
		return nil
	})
}

func (r *leaseRepository) Release(ctx context.Context, name, owner string) error {
	err := r.db.WithContext(ctx).Where("name = ? AND owner = ?", name, owner).Delete(&lease{}).Error
	if err != nil {
		return fmt.Errorf("failed to release lease %s: %w", name, err)
	}
	return nil
}
