package repositories

import (
	"context"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

// BOMSource provides read access to the ERP's bill of materials graph
type BOMSource interface {
	// DefaultBOM returns the product's default BOM, or a NotFoundError when the
	// product has none.
	DefaultBOM(ctx context.Context, productNumber entities.PartNumber) (*entities.BOM, error)
}

// ERPSource provides the snapshot consumed by a reconciliation pass.
// Connection failures and timeouts are reported as TransientSourceError.
type ERPSource interface {
	BOMSource
	OpenOrderItems(ctx context.Context) ([]entities.ERPOrderItemRow, error)
}
