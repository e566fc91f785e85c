package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"sync"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// BOMResolver expands a finished product into the raw parts that must be cut.
// It is read-only; each ResolutionPass carries its own memo and must not be
// shared between goroutines.
type BOMResolver struct {
	source repositories.BOMSource
	rule   *RawGoodRule
}

// NewBOMResolver creates a resolver reading BOMs from source
func NewBOMResolver(source repositories.BOMSource, rule *RawGoodRule) *BOMResolver {
	if rule == nil {
		rule = DefaultRawGoodRule()
	}
	return &BOMResolver{source: source, rule: rule}
}

// Resolution is the flattened result of resolving one product
type Resolution struct {
	Product    entities.PartNumber
	Parts      []entities.RawPart
	Cycles     [][]entities.PartNumber
	Unresolved []entities.PartNumber
}

// Err reports the cycles found during resolution, if any
func (r *Resolution) Err() error {
	if len(r.Cycles) == 0 {
		return nil
	}
	return &entities.CycleDetectedError{Root: r.Product, Cycles: r.Cycles}
}

// Resolve runs a single-product resolution with a fresh memo
func (r *BOMResolver) Resolve(ctx context.Context, product entities.PartNumber) (*Resolution, error) {
	return r.NewPass().Resolve(ctx, product)
}

// ResolveAll resolves distinct products concurrently, one pass per worker
func (r *BOMResolver) ResolveAll(
	ctx context.Context,
	products []entities.PartNumber,
	workers int,
) (map[entities.PartNumber]*Resolution, error) {
	if workers < 1 {
		workers = 1
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	jobs := make(chan entities.PartNumber)
	results := make(map[entities.PartNumber]*Resolution, len(products))
	var (
		mu       sync.Mutex
		firstErr error
		wg       sync.WaitGroup
	)

	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			pass := r.NewPass()
			for product := range jobs {
				res, err := pass.Resolve(ctx, product)
				mu.Lock()
				if err != nil {
					if firstErr == nil {
						firstErr = err
						cancel()
					}
				} else {
					results[product] = res
				}
				mu.Unlock()
			}
		}()
	}

	seen := make(map[entities.PartNumber]bool, len(products))
feed:
	for _, product := range products {
		if seen[product] {
			continue
		}
		seen[product] = true
		select {
		case jobs <- product:
		case <-ctx.Done():
			break feed
		}
	}
	close(jobs)
	wg.Wait()

	if firstErr != nil {
		return nil, firstErr
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	return results, nil
}

// ResolutionPass memoizes BOM lookups and per-BOM results across resolutions
type ResolutionPass struct {
	resolver *BOMResolver
	boms     map[entities.PartNumber]*entities.BOM
	memo     map[string]map[entities.PartNumber]entities.RawPart
	failed   map[entities.PartNumber]bool
}

// NewPass starts a resolution pass with an empty memo
func (r *BOMResolver) NewPass() *ResolutionPass {
	return &ResolutionPass{
		resolver: r,
		boms:     make(map[entities.PartNumber]*entities.BOM),
		memo:     make(map[string]map[entities.PartNumber]entities.RawPart),
		failed:   make(map[entities.PartNumber]bool),
	}
}

// Resolve returns the raw parts under product. A product without a BOM yields
// an empty set. Cycles are cut where they are found and reported in Cycles.
// Only TransientSourceError and context errors are returned.
func (p *ResolutionPass) Resolve(ctx context.Context, product entities.PartNumber) (*Resolution, error) {
	res := &Resolution{Product: product}
	onPath := make(map[entities.PartNumber]bool)

	parts, _, err := p.walk(ctx, product, nil, onPath, res)
	if err != nil {
		return nil, err
	}

	res.Parts = make([]entities.RawPart, 0, len(parts))
	for _, part := range parts {
		res.Parts = append(res.Parts, part)
	}
	sort.Slice(res.Parts, func(i, j int) bool {
		return res.Parts[i].Number < res.Parts[j].Number
	})
	return res, nil
}

// walk returns the raw parts for one unit of pn, and whether the result was
// cut short by a cycle (truncated results are not memoized)
func (p *ResolutionPass) walk(
	ctx context.Context,
	pn entities.PartNumber,
	path []entities.PartNumber,
	onPath map[entities.PartNumber]bool,
	res *Resolution,
) (map[entities.PartNumber]entities.RawPart, bool, error) {
	if err := ctx.Err(); err != nil {
		return nil, false, err
	}

	bom, err := p.defaultBOM(ctx, pn, res)
	if err != nil {
		return nil, false, err
	}
	if bom == nil {
		return nil, false, nil
	}
	memoKey := bom.ID
	if memoKey == "" {
		memoKey = "product:" + string(pn)
	}
	if cached, ok := p.memo[memoKey]; ok {
		return cached, false, nil
	}

	onPath[pn] = true
	defer delete(onPath, pn)
	path = append(path, pn)

	acc := make(map[entities.PartNumber]entities.RawPart)
	truncated := false

	for _, line := range bom.Lines {
		if !line.ItemType.IsComponent() {
			continue
		}
		if p.resolver.rule.IsRawGood(line) {
			addRawPart(acc, entities.RawPart{
				Number:        line.ChildPN,
				Description:   line.Description,
				UnitOfMeasure: line.UnitOfMeasure,
				QuantityPer:   line.Quantity,
			}, decimal.NewFromInt(1))
			continue
		}
		if onPath[line.ChildPN] {
			cycle := make([]entities.PartNumber, 0, len(path)+1)
			cycle = append(cycle, path...)
			cycle = append(cycle, line.ChildPN)
			res.Cycles = append(res.Cycles, cycle)
			truncated = true
			continue
		}

		childParts, childTruncated, err := p.walk(ctx, line.ChildPN, path, onPath, res)
		if err != nil {
			return nil, false, err
		}
		truncated = truncated || childTruncated
		for _, part := range childParts {
			addRawPart(acc, part, line.Quantity)
		}
	}

	if !truncated {
		p.memo[memoKey] = acc
	}
	return acc, truncated, nil
}

// defaultBOM looks up and caches pn's BOM. Missing BOMs are nil; any error
// other than a transient source failure marks pn unresolved.
func (p *ResolutionPass) defaultBOM(
	ctx context.Context,
	pn entities.PartNumber,
	res *Resolution,
) (*entities.BOM, error) {
	if bom, ok := p.boms[pn]; ok {
		return bom, nil
	}
	if p.failed[pn] {
		res.Unresolved = append(res.Unresolved, pn)
		return nil, nil
	}

	bom, err := p.resolver.source.DefaultBOM(ctx, pn)
	switch {
	case err == nil:
	case errors.Is(err, entities.ErrNotFound):
		bom = nil
	case errors.Is(err, entities.ErrTransientSource),
		errors.Is(err, context.Canceled),
		errors.Is(err, context.DeadlineExceeded):
		return nil, fmt.Errorf("failed to load bom for %s: %w", pn, err)
	default:
		p.failed[pn] = true
		res.Unresolved = append(res.Unresolved, pn)
		return nil, nil
	}

	p.boms[pn] = bom
	return bom, nil
}

func addRawPart(acc map[entities.PartNumber]entities.RawPart, part entities.RawPart, multiplier decimal.Decimal) {
	qty := part.QuantityPer.Mul(multiplier)
	if existing, ok := acc[part.Number]; ok {
		existing.QuantityPer = existing.QuantityPer.Add(qty)
		acc[part.Number] = existing
		return
	}
	part.QuantityPer = qty
	acc[part.Number] = part
}
