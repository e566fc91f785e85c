package services

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"testing"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type fakeBOMSource struct {
	mu     sync.Mutex
	boms   map[entities.PartNumber]*entities.BOM
	errs   map[entities.PartNumber]error
	lookup map[entities.PartNumber]int
}

func newFakeBOMSource() *fakeBOMSource {
	return &fakeBOMSource{
		boms:   make(map[entities.PartNumber]*entities.BOM),
		errs:   make(map[entities.PartNumber]error),
		lookup: make(map[entities.PartNumber]int),
	}
}

func (f *fakeBOMSource) add(product entities.PartNumber, lines ...entities.BOMLine) {
	f.boms[product] = &entities.BOM{ID: "bom-" + string(product), ProductNumber: product, Lines: lines}
}

func (f *fakeBOMSource) DefaultBOM(ctx context.Context, pn entities.PartNumber) (*entities.BOM, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.lookup[pn]++
	if err, ok := f.errs[pn]; ok {
		return nil, err
	}
	bom, ok := f.boms[pn]
	if !ok {
		return nil, entities.NewNotFoundError("bom", string(pn))
	}
	return bom, nil
}

func raw(pn string, qty int64) entities.BOMLine {
	return entities.BOMLine{ChildPN: entities.PartNumber(pn), Quantity: decimal.NewFromInt(qty), ItemType: entities.BOMItemRawGood, UnitOfMeasure: "ea"}
}

func sub(pn string, qty int64) entities.BOMLine {
	return entities.BOMLine{ChildPN: entities.PartNumber(pn), Quantity: decimal.NewFromInt(qty), ItemType: entities.BOMItemBillOfMaterial, UnitOfMeasure: "ea"}
}

func partsByNumber(res *Resolution) map[entities.PartNumber]entities.RawPart {
	out := make(map[entities.PartNumber]entities.RawPart, len(res.Parts))
	for _, p := range res.Parts {
		out[p.Number] = p
	}
	return out
}

func TestBOMResolver_SingleKitChild(t *testing.T) {
	source := newFakeBOMSource()
	source.add("50123", raw("50124", 2))

	res, err := NewBOMResolver(source, nil).Resolve(context.Background(), "50123")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Parts) != 1 {
		t.Fatalf("Expected 1 raw part, got %d", len(res.Parts))
	}
	if res.Parts[0].Number != "50124" {
		t.Errorf("Expected raw part 50124, got %s", res.Parts[0].Number)
	}
	if !res.Parts[0].QuantityPer.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected quantity per 2, got %s", res.Parts[0].QuantityPer)
	}
	if res.Err() != nil {
		t.Errorf("Expected no cycle error, got %v", res.Err())
	}
}

func TestBOMResolver_NoBOMYieldsEmptySet(t *testing.T) {
	res, err := NewBOMResolver(newFakeBOMSource(), nil).Resolve(context.Background(), "99999")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Parts) != 0 {
		t.Errorf("Expected empty set, got %d parts", len(res.Parts))
	}
}

func TestBOMResolver_MultiLevelMultipliesQuantities(t *testing.T) {
	source := newFakeBOMSource()
	source.add("HARNESS-A", sub("SUB-1", 3), raw("10001", 1),
		entities.BOMLine{ChildPN: "NOTE", ItemType: entities.BOMItemNote})
	source.add("SUB-1", raw("10001", 2), raw("10002", 4))

	res, err := NewBOMResolver(source, nil).Resolve(context.Background(), "HARNESS-A")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}

	parts := partsByNumber(res)
	tests := []struct {
		pn       entities.PartNumber
		expected int64
	}{
		{"10001", 7},
		{"10002", 12},
	}
	for _, tt := range tests {
		part, ok := parts[tt.pn]
		if !ok {
			t.Errorf("Expected raw part %s in result", tt.pn)
			continue
		}
		if !part.QuantityPer.Equal(decimal.NewFromInt(tt.expected)) {
			t.Errorf("Expected %s quantity %d, got %s", tt.pn, tt.expected, part.QuantityPer)
		}
	}
	if _, ok := parts["NOTE"]; ok {
		t.Error("Expected note lines to be skipped")
	}
}

func TestBOMResolver_CycleTerminates(t *testing.T) {
	source := newFakeBOMSource()
	source.add("A", sub("B", 1), raw("10001", 1))
	source.add("B", sub("A", 1), raw("10002", 1))

	res, err := NewBOMResolver(source, nil).Resolve(context.Background(), "A")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Parts) != 2 {
		t.Errorf("Expected partial result with 2 parts, got %d", len(res.Parts))
	}
	if len(res.Cycles) != 1 {
		t.Fatalf("Expected 1 cycle, got %d", len(res.Cycles))
	}
	if got := fmt.Sprint(res.Cycles[0]); got != "[A B A]" {
		t.Errorf("Expected cycle [A B A], got %s", got)
	}
	if !errors.Is(res.Err(), entities.ErrCycleDetected) {
		t.Errorf("Expected ErrCycleDetected, got %v", res.Err())
	}
}

func TestBOMResolver_SelfReference(t *testing.T) {
	source := newFakeBOMSource()
	source.add("A", sub("A", 1))

	res, err := NewBOMResolver(source, nil).Resolve(context.Background(), "A")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Cycles) != 1 {
		t.Errorf("Expected 1 cycle, got %d", len(res.Cycles))
	}
}

func TestBOMResolver_MemoizesSharedSubassemblies(t *testing.T) {
	source := newFakeBOMSource()
	source.add("TOP", sub("LEFT", 1), sub("RIGHT", 1))
	source.add("LEFT", sub("SHARED", 1))
	source.add("RIGHT", sub("SHARED", 1))
	source.add("SHARED", raw("10001", 1))

	res, err := NewBOMResolver(source, nil).Resolve(context.Background(), "TOP")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if source.lookup["SHARED"] != 1 {
		t.Errorf("Expected SHARED looked up once, got %d", source.lookup["SHARED"])
	}
	if !res.Parts[0].QuantityPer.Equal(decimal.NewFromInt(2)) {
		t.Errorf("Expected quantity 2 through both branches, got %s", res.Parts[0].QuantityPer)
	}
}

func TestBOMResolver_UnresolvableChild(t *testing.T) {
	source := newFakeBOMSource()
	source.add("TOP", sub("BROKEN", 1), raw("10001", 1))
	source.errs["BROKEN"] = fmt.Errorf("corrupt bom row")

	res, err := NewBOMResolver(source, nil).Resolve(context.Background(), "TOP")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Unresolved) != 1 || res.Unresolved[0] != "BROKEN" {
		t.Errorf("Expected BROKEN unresolved, got %v", res.Unresolved)
	}
	if len(res.Parts) != 1 {
		t.Errorf("Expected 1 resolved part, got %d", len(res.Parts))
	}
}

func TestBOMResolver_TransientErrorPropagates(t *testing.T) {
	source := newFakeBOMSource()
	source.add("TOP", sub("REMOTE", 1))
	source.errs["REMOTE"] = entities.NewTransientSourceError("bom query", "REMOTE", fmt.Errorf("i/o timeout"))

	_, err := NewBOMResolver(source, nil).Resolve(context.Background(), "TOP")
	if !errors.Is(err, entities.ErrTransientSource) {
		t.Errorf("Expected ErrTransientSource, got %v", err)
	}
}

func TestBOMResolver_ResolveAll(t *testing.T) {
	source := newFakeBOMSource()
	products := make([]entities.PartNumber, 0, 20)
	for i := 0; i < 20; i++ {
		pn := entities.PartNumber(fmt.Sprintf("KIT-%02d", i))
		source.add(pn, raw(fmt.Sprintf("%05d", 10000+i), int64(i+1)))
		products = append(products, pn)
	}
	products = append(products, "KIT-00")

	results, err := NewBOMResolver(source, nil).ResolveAll(context.Background(), products, 4)
	if err != nil {
		t.Fatalf("ResolveAll failed: %v", err)
	}
	if len(results) != 20 {
		t.Fatalf("Expected 20 results, got %d", len(results))
	}
	if got := results["KIT-07"].Parts[0].QuantityPer; !got.Equal(decimal.NewFromInt(8)) {
		t.Errorf("Expected KIT-07 quantity 8, got %s", got)
	}
}

func TestBOMResolver_ResolveAllStopsOnTransientError(t *testing.T) {
	source := newFakeBOMSource()
	source.add("OK", raw("10001", 1))
	source.errs["DOWN"] = entities.NewTransientSourceError("bom query", "DOWN", context.DeadlineExceeded)

	_, err := NewBOMResolver(source, nil).ResolveAll(context.Background(), []entities.PartNumber{"OK", "DOWN"}, 2)
	if !errors.Is(err, entities.ErrTransientSource) {
		t.Errorf("Expected ErrTransientSource, got %v", err)
	}
}

func TestBOMResolver_FinishedGoodLinesAreNotComponents(t *testing.T) {
	finished := func(pn string) entities.BOMLine {
		return entities.BOMLine{ChildPN: entities.PartNumber(pn), Quantity: decimal.NewFromInt(1), ItemType: entities.BOMItemFinishedGood, UnitOfMeasure: "ea"}
	}
	source := newFakeBOMSource()
	source.add("70000", finished("70000"), sub("60000", 2),
		entities.BOMLine{ChildPN: "50999", Quantity: decimal.NewFromInt(1), ItemType: entities.BOMItemRepairRawGood, UnitOfMeasure: "ea"})
	source.add("60000", finished("60000"), raw("50124", 2))

	pass := NewBOMResolver(source, nil).NewPass()
	res, err := pass.Resolve(context.Background(), "70000")
	if err != nil {
		t.Fatalf("Resolve failed: %v", err)
	}
	if len(res.Cycles) != 0 || res.Err() != nil {
		t.Errorf("Expected no cycles, got %v (%v)", res.Cycles, res.Err())
	}
	if len(res.Parts) != 1 || res.Parts[0].Number != "50124" {
		t.Fatalf("Expected only raw part 50124, got %+v", res.Parts)
	}
	if !res.Parts[0].QuantityPer.Equal(decimal.NewFromInt(4)) {
		t.Errorf("Expected quantity per 4, got %s", res.Parts[0].QuantityPer)
	}
	if _, ok := pass.memo["bom-60000"]; !ok {
		t.Error("Expected the subassembly expansion to be memoized")
	}
}
