package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// CutJobStatus represents the lifecycle of a cut job
type CutJobStatus int

const (
	CutJobEntered CutJobStatus = iota
	CutJobInProgress
	CutJobFulfilled
	CutJobVoided
)

// String method for CutJobStatus enum
func (s CutJobStatus) String() string {
	switch s {
	case CutJobEntered:
		return "Entered"
	case CutJobInProgress:
		return "InProgress"
	case CutJobFulfilled:
		return "Fulfilled"
	case CutJobVoided:
		return "Voided"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transitions are allowed
func (s CutJobStatus) IsTerminal() bool {
	return s == CutJobFulfilled || s == CutJobVoided
}

// ParseCutJobStatus accepts a status name in any case
func ParseCutJobStatus(value string) (CutJobStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, s := range []CutJobStatus{CutJobEntered, CutJobInProgress, CutJobFulfilled, CutJobVoided} {
		if normalized == strings.ToLower(s.String()) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown cut job status %q", value)
}

// CutJobItemStatus represents the lifecycle of a single cut job item
type CutJobItemStatus int

const (
	CutItemEntered CutJobItemStatus = iota
	CutItemInProgress
	CutItemFulfilled
	CutItemOnHold
	CutItemVoided
)

// String method for CutJobItemStatus enum
func (s CutJobItemStatus) String() string {
	switch s {
	case CutItemEntered:
		return "Entered"
	case CutItemInProgress:
		return "InProgress"
	case CutItemFulfilled:
		return "Fulfilled"
	case CutItemOnHold:
		return "OnHold"
	case CutItemVoided:
		return "Voided"
	default:
		return "Unknown"
	}
}

// IsTerminal reports whether no further transitions are allowed
func (s CutJobItemStatus) IsTerminal() bool {
	return s == CutItemFulfilled || s == CutItemVoided
}

// WireCutter is a machine or station that cut jobs are assigned to
type WireCutter struct {
	ID          uint      `json:"id" gorm:"primaryKey"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	CreatedAt   time.Time `json:"created_at"`
}

func (WireCutter) TableName() string {
	return "wire_cutters"
}

// CutJob groups cutting work for one wire cutter
type CutJob struct {
	ID           uint          `json:"id" gorm:"primaryKey"`
	WireCutterID uint          `json:"wire_cutter_id"`
	Status       CutJobStatus  `json:"status"`
	Version      int           `json:"version"`
	Items        []*CutJobItem `json:"items,omitempty" gorm:"foreignKey:CutJobID"`
	FulfilledAt  *time.Time    `json:"fulfilled_at,omitempty"`
	CreatedAt    time.Time     `json:"created_at"`
	UpdatedAt    time.Time     `json:"updated_at"`
}

func (CutJob) TableName() string {
	return "cut_jobs"
}

// Key formats the job id for errors and logs
func (j *CutJob) Key() string {
	return fmt.Sprintf("%d", j.ID)
}

// FindItem returns the job item with the given id, or nil
func (j *CutJob) FindItem(id uint) *CutJobItem {
	for _, item := range j.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// AllItemsFulfilled reports whether every non-voided item is fulfilled and at
// least one item was fulfilled
func (j *CutJob) AllItemsFulfilled() bool {
	fulfilled := 0
	for _, item := range j.Items {
		switch item.Status {
		case CutItemVoided:
			continue
		case CutItemFulfilled:
			fulfilled++
		default:
			return false
		}
	}
	return fulfilled > 0
}

// Clone deep-copies the job, its items and their links
func (j *CutJob) Clone() *CutJob {
	clone := *j
	clone.Items = make([]*CutJobItem, len(j.Items))
	for i, item := range j.Items {
		clone.Items[i] = item.Clone()
	}
	return &clone
}

// CutJobItem aggregates demand for one part across linked sales order items
type CutJobItem struct {
	ID               uint              `json:"id" gorm:"primaryKey"`
	CutJobID         uint              `json:"cut_job_id"`
	PartNumber       PartNumber        `json:"part_number"`
	QuantityToCut    decimal.Decimal   `json:"quantity_to_cut"`
	QuantityCut      decimal.Decimal   `json:"quantity_cut"`
	TimeSpentMinutes decimal.Decimal   `json:"time_spent_minutes"`
	Status           CutJobItemStatus  `json:"status"`
	StartedAt        *time.Time        `json:"started_at,omitempty"`
	FulfilledAt      *time.Time        `json:"fulfilled_at,omitempty"`
	OrderItems       []*SalesOrderItem `json:"order_items,omitempty" gorm:"foreignKey:CutJobItemID"`
	CreatedAt        time.Time         `json:"created_at"`
	UpdatedAt        time.Time         `json:"updated_at"`
}

func (CutJobItem) TableName() string {
	return "cut_job_items"
}

// Key formats the item id for errors and logs
func (i *CutJobItem) Key() string {
	return fmt.Sprintf("%d", i.ID)
}

// QuantityRemaining is what is still left to cut
func (i *CutJobItem) QuantityRemaining() decimal.Decimal {
	return NonNegative(i.QuantityToCut.Sub(i.QuantityCut))
}

// FindOrderItem returns the linked sales order item with the given id, or nil
func (i *CutJobItem) FindOrderItem(id uint) *SalesOrderItem {
	for _, link := range i.OrderItems {
		if link.ID == id {
			return link
		}
	}
	return nil
}

// Clone copies the item and its linked sales order items
func (i *CutJobItem) Clone() *CutJobItem {
	clone := *i
	clone.OrderItems = make([]*SalesOrderItem, len(i.OrderItems))
	for k, link := range i.OrderItems {
		copied := *link
		clone.OrderItems[k] = &copied
	}
	return &clone
}
