package services

import (
	"fmt"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

// BOMValidator provides validation for BOM structure integrity
type BOMValidator struct{}

// NewBOMValidator creates a new BOM validator
func NewBOMValidator() *BOMValidator {
	return &BOMValidator{}
}

// ValidationResult contains the results of BOM validation
type ValidationResult struct {
	HasCycles      bool
	CyclePaths     [][]entities.PartNumber
	DuplicateLines []string
	Errors         []string
}

// ValidateBOMs checks a set of default BOMs for cycles and duplicate lines
func (v *BOMValidator) ValidateBOMs(boms []*entities.BOM) *ValidationResult {
	result := &ValidationResult{
		CyclePaths:     make([][]entities.PartNumber, 0),
		DuplicateLines: make([]string, 0),
		Errors:         make([]string, 0),
	}

	adjacencyMap := v.buildAdjacencyMap(boms)

	cycles := v.detectCycles(adjacencyMap, boms)
	result.HasCycles = len(cycles) > 0
	result.CyclePaths = cycles

	result.DuplicateLines = v.detectDuplicateLines(boms)

	for _, cycle := range result.CyclePaths {
		result.Errors = append(result.Errors, fmt.Sprintf("BOM cycle detected: %v", cycle))
	}
	if len(result.DuplicateLines) > 0 {
		result.Errors = append(result.Errors, fmt.Sprintf("Found %d duplicate BOM lines", len(result.DuplicateLines)))
	}

	return result
}

// buildAdjacencyMap creates a map of product -> distinct children
func (v *BOMValidator) buildAdjacencyMap(boms []*entities.BOM) map[entities.PartNumber][]entities.PartNumber {
	adjacencyMap := make(map[entities.PartNumber][]entities.PartNumber)

	for _, bom := range boms {
		seen := make(map[entities.PartNumber]bool)
		for _, line := range bom.Lines {
			if !line.ItemType.IsComponent() || seen[line.ChildPN] {
				continue
			}
			seen[line.ChildPN] = true
			adjacencyMap[bom.ProductNumber] = append(adjacencyMap[bom.ProductNumber], line.ChildPN)
		}
	}

	return adjacencyMap
}

// detectCycles uses DFS to find cycles in the BOM structure
func (v *BOMValidator) detectCycles(
	adjacencyMap map[entities.PartNumber][]entities.PartNumber,
	boms []*entities.BOM,
) [][]entities.PartNumber {
	visited := make(map[entities.PartNumber]bool)
	recursionStack := make(map[entities.PartNumber]bool)
	cycles := make([][]entities.PartNumber, 0)

	// walk in input order so reported cycles are stable
	for _, bom := range boms {
		if !visited[bom.ProductNumber] {
			v.dfsDetectCycle(bom.ProductNumber, adjacencyMap, visited, recursionStack, nil, &cycles)
		}
	}

	return cycles
}

// dfsDetectCycle performs depth-first search to detect cycles
func (v *BOMValidator) dfsDetectCycle(
	current entities.PartNumber,
	adjacencyMap map[entities.PartNumber][]entities.PartNumber,
	visited map[entities.PartNumber]bool,
	recursionStack map[entities.PartNumber]bool,
	path []entities.PartNumber,
	cycles *[][]entities.PartNumber,
) {
	visited[current] = true
	recursionStack[current] = true
	path = append(path, current)

	for _, child := range adjacencyMap[current] {
		if !visited[child] {
			v.dfsDetectCycle(child, adjacencyMap, visited, recursionStack, path, cycles)
			continue
		}
		if !recursionStack[child] {
			continue
		}
		for i, part := range path {
			if part == child {
				cycle := make([]entities.PartNumber, 0, len(path)-i+1)
				cycle = append(cycle, path[i:]...)
				cycle = append(cycle, child)
				*cycles = append(*cycles, cycle)
				break
			}
		}
	}

	recursionStack[current] = false
}

// detectDuplicateLines finds BOM lines repeating the same product and child
func (v *BOMValidator) detectDuplicateLines(boms []*entities.BOM) []string {
	seen := make(map[string]bool)
	duplicates := make([]string, 0)

	for _, bom := range boms {
		for _, line := range bom.Lines {
			if line.ItemType == entities.BOMItemNote {
				continue
			}
			key := fmt.Sprintf("%s|%s", bom.ProductNumber, line.ChildPN)
			if seen[key] {
				duplicates = append(duplicates, key)
				continue
			}
			seen[key] = true
		}
	}

	return duplicates
}
