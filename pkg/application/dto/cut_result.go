package dto

import (
	"github.com/vsinha/wirecut/pkg/domain/entities"
)

// CutResult is the outcome of one cut job operation
type CutResult struct {
	Job            *entities.CutJob
	Item           *entities.CutJobItem
	Changed        bool
	HistoryWritten bool
	OrderItemsCut  []uint
	JobFulfilled   bool
}
