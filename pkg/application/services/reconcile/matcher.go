package reconcile

import (
	"context"
	"errors"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// OrderMatcher finds an existing sales order item by its natural key. It
// never creates records.
type OrderMatcher struct {
	orders repositories.SalesOrderRepository
}

// NewOrderMatcher creates a matcher over the given repository
func NewOrderMatcher(orders repositories.SalesOrderRepository) *OrderMatcher {
	return &OrderMatcher{orders: orders}
}

// Find returns the item matching order number, line number and product
// exactly. A missing item is reported as found == false, not as an error.
func (m *OrderMatcher) Find(
	ctx context.Context,
	orderNumber string,
	lineNumber int,
	productNumber entities.PartNumber,
) (*entities.SalesOrderItem, bool, error) {
	item, err := m.orders.FindItem(ctx, orderNumber, lineNumber, productNumber)
	if errors.Is(err, entities.ErrNotFound) {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, err
	}
	return item, true, nil
}
