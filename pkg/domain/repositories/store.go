package repositories

import (
	"context"
	"time"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

// PartRepository provides access to part master data
type PartRepository interface {
	GetByNumber(ctx context.Context, number entities.PartNumber) (*entities.Part, error)
	Create(ctx context.Context, part *entities.Part) error
	Update(ctx context.Context, part *entities.Part) error
}

// SalesOrderRepository provides access to sales orders and their items
type SalesOrderRepository interface {
	// GetByNumber loads the order with all of its items
	GetByNumber(ctx context.Context, number string) (*entities.SalesOrder, error)
	GetByID(ctx context.Context, id uint) (*entities.SalesOrder, error)
	// FindItem looks up an item by its natural key without creating anything
	FindItem(ctx context.Context, orderNumber string, lineNumber int, productNumber entities.PartNumber) (*entities.SalesOrderItem, error)
	GetItem(ctx context.Context, id uint) (*entities.SalesOrderItem, error)
	// Save persists the order and every item in it as one unit
	Save(ctx context.Context, order *entities.SalesOrder) error
	SaveItems(ctx context.Context, items []*entities.SalesOrderItem) error
	Delete(ctx context.Context, id uint) error
	ListOpenItems(ctx context.Context, partNumber entities.PartNumber) ([]*entities.SalesOrderItem, error)
}

// WireCutterRepository provides access to wire cutters
type WireCutterRepository interface {
	Get(ctx context.Context, id uint) (*entities.WireCutter, error)
	GetByName(ctx context.Context, name string) (*entities.WireCutter, error)
	Create(ctx context.Context, cutter *entities.WireCutter) error
	List(ctx context.Context) ([]*entities.WireCutter, error)
}

// CutJobRepository provides access to cut jobs, their items and linked order items
type CutJobRepository interface {
	Get(ctx context.Context, id uint) (*entities.CutJob, error)
	GetItem(ctx context.Context, id uint) (*entities.CutJobItem, error)
	Create(ctx context.Context, job *entities.CutJob) error
	CreateItem(ctx context.Context, item *entities.CutJobItem) error
	// Save writes the job and its items, failing with ConflictError when the
	// stored version no longer matches expectedVersion
	Save(ctx context.Context, job *entities.CutJob, expectedVersion int) error
	DeleteItem(ctx context.Context, id uint) error
	List(ctx context.Context, status *entities.CutJobStatus) ([]*entities.CutJob, error)
}

// CutHistoryRepository is an append-only ledger of cut events
type CutHistoryRepository interface {
	// Append inserts the row unless one already exists for the same cut job
	// item, reporting whether a row was written
	Append(ctx context.Context, history *entities.PartCutHistory) (bool, error)
	ListFor(ctx context.Context, partNumber entities.PartNumber, wireCutterID uint) ([]*entities.PartCutHistory, error)
}

// PropertyRepository stores tagged system properties
type PropertyRepository interface {
	Get(ctx context.Context, key string) (entities.PropertyValue, error)
	Set(ctx context.Context, key string, value entities.PropertyValue) error
}

// LeaseRepository grants exclusive, expiring leases by name
type LeaseRepository interface {
	Acquire(ctx context.Context, name, owner string, ttl time.Duration) error
	Release(ctx context.Context, name, owner string) error
}

// Store groups the local repositories and scopes them to a transaction
type Store interface {
	Parts() PartRepository
	SalesOrders() SalesOrderRepository
	WireCutters() WireCutterRepository
	CutJobs() CutJobRepository
	CutHistory() CutHistoryRepository
	Properties() PropertyRepository
	Leases() LeaseRepository
	// Transaction runs fn against a Store bound to a single transaction
	Transaction(ctx context.Context, fn func(tx Store) error) error
}
