package testing

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/gormstore"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/memory"
)

// NewStore opens a fresh SQLite store under the test's temp dir
func NewStore(t testing.TB) *gormstore.Store {
	t.Helper()
	store, err := gormstore.Open(context.Background(), gormstore.Options{
		Path: filepath.Join(t.TempDir(), "wirecut.db"),
	}, zap.NewNop())
	if err != nil {
		t.Fatalf("failed to open store: %v", err)
	}
	t.Cleanup(func() { store.Close() })
	return store
}

// OrderRow builds an issued sales order row for product
func OrderRow(order string, line int, product entities.PartNumber, qty int64) entities.ERPOrderItemRow {
	return entities.ERPOrderItemRow{
		OrderNumber:       order,
		Customer:          "Acme",
		OrderStatus:       entities.SalesOrderIssued,
		LineNumber:        line,
		ProductNumber:     product,
		Description:       "harness " + string(product),
		QuantityToFulfill: decimal.NewFromInt(qty),
		UnitOfMeasure:     "ea",
	}
}

// BuildKitBOMs gives harness 50123 a kit of two feet of raw wire 50124
func BuildKitBOMs() *memory.BOMRepository {
	boms := memory.NewBOMRepository(0)
	boms.AddBOMLine("50123", entities.BOMLine{
		ChildPN:       "50124",
		Description:   "18ga red",
		Quantity:      decimal.NewFromInt(2),
		ItemType:      entities.BOMItemRawGood,
		UnitOfMeasure: "ft",
	})
	return boms
}

// BuildKitSnapshot returns a source with SO-100 line 1 ordering ten 50123
// harnesses
func BuildKitSnapshot() *memory.SnapshotSource {
	return memory.NewSnapshotSource(
		[]entities.ERPOrderItemRow{OrderRow("SO-100", 1, "50123", 10)},
		BuildKitBOMs(),
	)
}
