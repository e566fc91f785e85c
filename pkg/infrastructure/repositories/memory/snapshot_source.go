package memory

import (
	"context"
	"sync"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// SnapshotSource serves a fixed ERP snapshot from memory
type SnapshotSource struct {
	*BOMRepository

	mu   sync.RWMutex
	rows []entities.ERPOrderItemRow
	err  error
}

// NewSnapshotSource creates a source returning rows and BOMs from boms
func NewSnapshotSource(rows []entities.ERPOrderItemRow, boms *BOMRepository) *SnapshotSource {
	if boms == nil {
		boms = NewBOMRepository(0)
	}
	return &SnapshotSource{BOMRepository: boms, rows: rows}
}

// Verify interface compliance
var _ repositories.ERPSource = (*SnapshotSource)(nil)

// SetRows replaces the snapshot
func (s *SnapshotSource) SetRows(rows []entities.ERPOrderItemRow) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.rows = rows
}

// FailWith makes OpenOrderItems return err until cleared with nil
func (s *SnapshotSource) FailWith(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.err = err
}

func (s *SnapshotSource) OpenOrderItems(ctx context.Context) ([]entities.ERPOrderItemRow, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	s.mu.RLock()
	defer s.mu.RUnlock()
	if s.err != nil {
		return nil, s.err
	}
	rows := make([]entities.ERPOrderItemRow, len(s.rows))
	copy(rows, s.rows)
	return rows, nil
}
