package memory

import (
	"context"
	"fmt"
	"sort"
	"sync"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// BOMRepository holds a product's default BOM lines in memory. Lines are kept
// in one flat slice indexed by product to avoid a slice per BOM.
type BOMRepository struct {
	mu         sync.RWMutex
	bomLines   []entities.BOMLine
	bomIndexes map[entities.PartNumber][]int
	bomIDs     map[entities.PartNumber]string
}

// NewBOMRepository creates a BOM repository sized for expectedBOMLines
func NewBOMRepository(expectedBOMLines int) *BOMRepository {
	return &BOMRepository{
		bomLines:   make([]entities.BOMLine, 0, expectedBOMLines),
		bomIndexes: make(map[entities.PartNumber][]int),
		bomIDs:     make(map[entities.PartNumber]string),
	}
}

// Verify interface compliance
var _ repositories.BOMSource = (*BOMRepository)(nil)

// AddBOMLine appends a line to product's default BOM
func (r *BOMRepository) AddBOMLine(product entities.PartNumber, line entities.BOMLine) {
	r.mu.Lock()
	defer r.mu.Unlock()

	index := len(r.bomLines)
	r.bomLines = append(r.bomLines, line)
	r.bomIndexes[product] = append(r.bomIndexes[product], index)
	if _, ok := r.bomIDs[product]; !ok {
		r.bomIDs[product] = fmt.Sprintf("bom-%d", len(r.bomIDs)+1)
	}
}

// LoadBOMs appends every line of every BOM
func (r *BOMRepository) LoadBOMs(boms []*entities.BOM) {
	for _, bom := range boms {
		for _, line := range bom.Lines {
			r.AddBOMLine(bom.ProductNumber, line)
		}
	}
}

// DefaultBOM returns a copy of the product's BOM, or NotFoundError
func (r *BOMRepository) DefaultBOM(ctx context.Context, product entities.PartNumber) (*entities.BOM, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	r.mu.RLock()
	defer r.mu.RUnlock()

	indexes, exists := r.bomIndexes[product]
	if !exists {
		return nil, entities.NewNotFoundError("bom", string(product))
	}

	bom := &entities.BOM{
		ID:            r.bomIDs[product],
		ProductNumber: product,
		Lines:         make([]entities.BOMLine, 0, len(indexes)),
	}
	for _, index := range indexes {
		bom.Lines = append(bom.Lines, r.bomLines[index])
	}
	return bom, nil
}

// AllBOMs returns every stored BOM ordered by product number
func (r *BOMRepository) AllBOMs() []*entities.BOM {
	r.mu.RLock()
	products := make([]entities.PartNumber, 0, len(r.bomIndexes))
	for product := range r.bomIndexes {
		products = append(products, product)
	}
	r.mu.RUnlock()

	sort.Slice(products, func(i, j int) bool { return products[i] < products[j] })

	boms := make([]*entities.BOM, 0, len(products))
	for _, product := range products {
		bom, err := r.DefaultBOM(context.Background(), product)
		if err == nil {
			boms = append(boms, bom)
		}
	}
	return boms
}

// Len returns the number of stored BOM lines
func (r *BOMRepository) Len() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bomLines)
}
