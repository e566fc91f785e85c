package gormstore

import (
	"context"
	"fmt"

	"gorm.io/gorm"
	"gorm.io/gorm/clause"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type salesOrderRepository struct {
	db *gorm.DB
}

func (r *salesOrderRepository) preloadItems(db *gorm.DB) *gorm.DB {
	return db.Preload("Items", func(db *gorm.DB) *gorm.DB {
		return db.Order("line_number, id")
	})
}

func (r *salesOrderRepository) GetByNumber(ctx context.Context, number string) (*entities.SalesOrder, error) {
	var order entities.SalesOrder
	err := r.preloadItems(r.db.WithContext(ctx)).Where("number = ?", number).First(&order).Error
	if err != nil {
		return nil, notFound(err, "sales order", number)
	}
	return &order, nil
}

func (r *salesOrderRepository) GetByID(ctx context.Context, id uint) (*entities.SalesOrder, error) {
	var order entities.SalesOrder
	if err := r.preloadItems(r.db.WithContext(ctx)).First(&order, id).Error; err != nil {
		return nil, notFound(err, "sales order", fmt.Sprintf("%d", id))
	}
	return &order, nil
}

func (r *salesOrderRepository) FindItem(
	ctx context.Context,
	orderNumber string,
	lineNumber int,
	productNumber entities.PartNumber,
) (*entities.SalesOrderItem, error) {
	var item entities.SalesOrderItem
	err := r.db.WithContext(ctx).
		Where("sales_order_id = (SELECT id FROM sales_orders WHERE number = ?)", orderNumber).
		Where("line_number = ? AND part_number = ?", lineNumber, productNumber).
		First(&item).Error
	if err != nil {
		return nil, notFound(err, "sales order item", entities.ItemKey(orderNumber, lineNumber, productNumber))
	}
	return &item, nil
}

func (r *salesOrderRepository) GetItem(ctx context.Context, id uint) (*entities.SalesOrderItem, error) {
	var item entities.SalesOrderItem
	if err := r.db.WithContext(ctx).First(&item, id).Error; err != nil {
		return nil, notFound(err, "sales order item", fmt.Sprintf("%d", id))
	}
	return &item, nil
}

// Save writes the order header and then its items, parents before kit
// children so ParentItemID can be filled from the in-memory Parent link
func (r *salesOrderRepository) Save(ctx context.Context, order *entities.SalesOrder) error {
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		if err := tx.Omit(clause.Associations).Save(order).Error; err != nil {
			return fmt.Errorf("failed to save sales order %s: %w", order.Number, err)
		}

		saved := make(map[*entities.SalesOrderItem]bool, len(order.Items))
		var saveItem func(item *entities.SalesOrderItem, depth int) error
		saveItem = func(item *entities.SalesOrderItem, depth int) error {
			if saved[item] {
				return nil
			}
			if depth > len(order.Items) {
				return entities.NewValidationError("sales order item",
					entities.ItemKey(order.Number, item.LineNumber, item.PartNumber), "kit parent chain loops")
			}
			if item.Parent != nil {
				if err := saveItem(item.Parent, depth+1); err != nil {
					return err
				}
				item.ParentItemID = &item.Parent.ID
			}
			item.SalesOrderID = order.ID
			if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
				return fmt.Errorf("failed to save sales order item %s: %w",
					entities.ItemKey(order.Number, item.LineNumber, item.PartNumber), err)
			}
			saved[item] = true
			return nil
		}

		for _, item := range order.Items {
			if err := saveItem(item, 0); err != nil {
				return err
			}
		}
		return nil
	})
}

func (r *salesOrderRepository) SaveItems(ctx context.Context, items []*entities.SalesOrderItem) error {
	if len(items) == 0 {
		return nil
	}
	return r.db.WithContext(ctx).Transaction(func(tx *gorm.DB) error {
		for _, item := range items {
			if err := tx.Omit(clause.Associations).Save(item).Error; err != nil {
				return fmt.Errorf("failed to save sales order item %d: %w", item.ID, err)
			}
		}
		return nil
	})
}

func (r *salesOrderRepository) Delete(ctx context.Context, id uint) error {
	result := r.db.WithContext(ctx).Delete(&entities.SalesOrder{}, id)
	if result.Error != nil {
		return fmt.Errorf("failed to delete sales order %d: %w", id, result.Error)
	}
	if result.RowsAffected == 0 {
		return entities.NewNotFoundError("sales order", fmt.Sprintf("%d", id))
	}
	return nil
}

// ListOpenItems returns uncut, unassigned items for the part on open orders,
// earliest due date first
func (r *salesOrderRepository) ListOpenItems(ctx context.Context, partNumber entities.PartNumber) ([]*entities.SalesOrderItem, error) {
	var items []*entities.SalesOrderItem
	err := r.db.WithContext(ctx).
		Where("part_number = ? AND is_cut = ? AND cut_job_item_id IS NULL", partNumber, false).
		Where("sales_order_id IN (SELECT id FROM sales_orders WHERE status IN ?)",
			[]entities.SalesOrderStatus{entities.SalesOrderIssued, entities.SalesOrderInProgress}).
		Order("due_date IS NULL, due_date, id").
		Find(&items).Error
	if err != nil {
		return nil, fmt.Errorf("failed to list open items for %s: %w", partNumber, err)
	}
	return items, nil
}
