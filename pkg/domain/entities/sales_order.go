package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// SalesOrderStatus mirrors the ERP's ordered sales order status codes
type SalesOrderStatus int

const (
	SalesOrderEstimate    SalesOrderStatus = 10
	SalesOrderIssued      SalesOrderStatus = 20
	SalesOrderInProgress  SalesOrderStatus = 25
	SalesOrderFulfilled   SalesOrderStatus = 60
	SalesOrderClosedShort SalesOrderStatus = 70
	SalesOrderVoided      SalesOrderStatus = 80
	SalesOrderExpired     SalesOrderStatus = 85
	SalesOrderHistorical  SalesOrderStatus = 95
)

// String method for SalesOrderStatus enum
func (s SalesOrderStatus) String() string {
	switch s {
	case SalesOrderEstimate:
		return "Estimate"
	case SalesOrderIssued:
		return "Issued"
	case SalesOrderInProgress:
		return "In Progress"
	case SalesOrderFulfilled:
		return "Fulfilled"
	case SalesOrderClosedShort:
		return "Closed Short"
	case SalesOrderVoided:
		return "Voided"
	case SalesOrderExpired:
		return "Expired"
	case SalesOrderHistorical:
		return "Historical"
	default:
		return "Unknown"
	}
}

// IsOpen reports whether the order still has work to do
func (s SalesOrderStatus) IsOpen() bool {
	return s == SalesOrderIssued || s == SalesOrderInProgress
}

// ParseSalesOrderStatus accepts either the status name or its numeric code
func ParseSalesOrderStatus(value string) (SalesOrderStatus, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, s := range []SalesOrderStatus{
		SalesOrderEstimate, SalesOrderIssued, SalesOrderInProgress, SalesOrderFulfilled,
		SalesOrderClosedShort, SalesOrderVoided, SalesOrderExpired, SalesOrderHistorical,
	} {
		if normalized == strings.ToLower(s.String()) || normalized == fmt.Sprintf("%d", int(s)) {
			return s, nil
		}
	}
	return 0, fmt.Errorf("unknown sales order status %q", value)
}

// SalesOrder is a customer order mirrored from the ERP. It owns its items.
type SalesOrder struct {
	ID        uint              `json:"id" gorm:"primaryKey"`
	Number    string            `json:"number"`
	Customer  string            `json:"customer"`
	Status    SalesOrderStatus  `json:"status"`
	Items     []*SalesOrderItem `json:"items,omitempty" gorm:"foreignKey:SalesOrderID"`
	CreatedAt time.Time         `json:"created_at"`
	UpdatedAt time.Time         `json:"updated_at"`
}

func (SalesOrder) TableName() string {
	return "sales_orders"
}

// NewSalesOrder creates a validated SalesOrder
func NewSalesOrder(number, customer string, status SalesOrderStatus) (*SalesOrder, error) {
	if strings.TrimSpace(number) == "" {
		return nil, NewValidationError("sales order", "", "order number cannot be empty")
	}
	return &SalesOrder{
		Number:   number,
		Customer: customer,
		Status:   status,
	}, nil
}

// FindItem returns the item with the given line and part, or nil
func (o *SalesOrder) FindItem(lineNumber int, partNumber PartNumber) *SalesOrderItem {
	for _, item := range o.Items {
		if item.LineNumber == lineNumber && item.PartNumber == partNumber {
			return item
		}
	}
	return nil
}

// HasPart reports whether any item on the order references the part
func (o *SalesOrder) HasPart(partNumber PartNumber) bool {
	for _, item := range o.Items {
		if item.PartNumber == partNumber {
			return true
		}
	}
	return false
}

// AddItem appends an item, rejecting a duplicate natural key
func (o *SalesOrder) AddItem(item *SalesOrderItem) error {
	if existing := o.FindItem(item.LineNumber, item.PartNumber); existing != nil {
		return NewValidationError(
			"sales order item",
			ItemKey(o.Number, item.LineNumber, item.PartNumber),
			"duplicate line and part on order",
		)
	}
	item.SalesOrderID = o.ID
	o.Items = append(o.Items, item)
	return nil
}

// ChildrenOf returns the kit children of item
func (o *SalesOrder) ChildrenOf(item *SalesOrderItem) []*SalesOrderItem {
	var children []*SalesOrderItem
	for _, candidate := range o.Items {
		if candidate != item && o.ParentOf(candidate) == item {
			children = append(children, candidate)
		}
	}
	return children
}

// ParentOf returns the kit parent of item, or nil for a top-level item
func (o *SalesOrder) ParentOf(item *SalesOrderItem) *SalesOrderItem {
	if item.Parent != nil {
		return item.Parent
	}
	if item.ParentItemID == nil {
		return nil
	}
	for _, candidate := range o.Items {
		if candidate.ID != 0 && candidate.ID == *item.ParentItemID {
			return candidate
		}
	}
	return nil
}

// MarkItemCut marks item and its kit subtree cut, then walks up the parent
// chain marking every parent whose children are now all cut. It returns the
// items whose state changed.
func (o *SalesOrder) MarkItemCut(item *SalesOrderItem, at time.Time) []*SalesOrderItem {
	var changed []*SalesOrderItem
	seen := make(map[*SalesOrderItem]bool)

	var markSubtree func(node *SalesOrderItem)
	markSubtree = func(node *SalesOrderItem) {
		if seen[node] {
			return
		}
		seen[node] = true
		if node.markCut(at) {
			changed = append(changed, node)
		}
		for _, child := range o.ChildrenOf(node) {
			markSubtree(child)
		}
	}
	markSubtree(item)

	for parent := o.ParentOf(item); parent != nil; parent = o.ParentOf(parent) {
		if parent.IsCut || !o.allChildrenCut(parent) {
			break
		}
		if seen[parent] {
			break
		}
		seen[parent] = true
		parent.markCut(at)
		changed = append(changed, parent)
	}
	return changed
}

func (o *SalesOrder) allChildrenCut(item *SalesOrderItem) bool {
	children := o.ChildrenOf(item)
	if len(children) == 0 {
		return false
	}
	for _, child := range children {
		if !child.IsCut {
			return false
		}
	}
	return true
}

// SalesOrderItem is one line of a sales order, possibly a kit child of another line
type SalesOrderItem struct {
	ID                uint            `json:"id" gorm:"primaryKey"`
	SalesOrderID      uint            `json:"sales_order_id"`
	LineNumber        int             `json:"line_number"`
	PartNumber        PartNumber      `json:"part_number"`
	Description       string          `json:"description"`
	UnitOfMeasure     string          `json:"unit_of_measure" gorm:"column:uom"`
	DueDate           *time.Time      `json:"due_date,omitempty"`
	QuantityToFulfill decimal.Decimal `json:"quantity_to_fulfill"`
	QuantityPicked    decimal.Decimal `json:"quantity_picked"`
	QuantityFulfilled decimal.Decimal `json:"quantity_fulfilled"`
	IsCut             bool            `json:"is_cut"`
	CutAt             *time.Time      `json:"cut_at,omitempty"`
	Pushback          bool            `json:"pushback"`
	ParentItemID      *uint           `json:"parent_item_id,omitempty"`
	CutJobItemID      *uint           `json:"cut_job_item_id,omitempty"`
	QuantityAssigned  decimal.Decimal `json:"quantity_assigned"`
	CreatedAt         time.Time       `json:"created_at"`
	UpdatedAt         time.Time       `json:"updated_at"`

	// Parent links a kit child to its parent before either has been stored
	Parent *SalesOrderItem `json:"-" gorm:"-"`
}

func (SalesOrderItem) TableName() string {
	return "sales_order_items"
}

// ItemKey formats the natural key of an order item for errors and logs
func ItemKey(orderNumber string, lineNumber int, partNumber PartNumber) string {
	return fmt.Sprintf("%s/%d/%s", orderNumber, lineNumber, partNumber)
}

// QuantityLeftToShip is to_fulfill - fulfilled - picked and may be negative
// when the ERP data is inconsistent
func (i *SalesOrderItem) QuantityLeftToShip() decimal.Decimal {
	return i.QuantityToFulfill.Sub(i.QuantityFulfilled).Sub(i.QuantityPicked)
}

// QuantityLeftToFulfill is QuantityLeftToShip clamped at zero
func (i *SalesOrderItem) QuantityLeftToFulfill() decimal.Decimal {
	return NonNegative(i.QuantityLeftToShip())
}

// IsAssigned reports whether the item is linked to a cut job item
func (i *SalesOrderItem) IsAssigned() bool {
	return i.CutJobItemID != nil
}

// ERPFields are the item fields owned by the ERP
type ERPFields struct {
	Description       string
	UnitOfMeasure     string
	DueDate           *time.Time
	QuantityToFulfill decimal.Decimal
	QuantityPicked    decimal.Decimal
	QuantityFulfilled decimal.Decimal
}

// ApplyERPFields overwrites ERP-owned fields and leaves operator-owned fields
// (cut state, cut job link, pushback) alone. It reports whether anything changed.
func (i *SalesOrderItem) ApplyERPFields(f ERPFields) bool {
	changed := false
	if i.Description != f.Description {
		i.Description = f.Description
		changed = true
	}
	if f.UnitOfMeasure != "" && i.UnitOfMeasure != f.UnitOfMeasure {
		i.UnitOfMeasure = f.UnitOfMeasure
		changed = true
	}
	if !sameDate(i.DueDate, f.DueDate) {
		i.DueDate = f.DueDate
		changed = true
	}
	if !i.QuantityToFulfill.Equal(f.QuantityToFulfill) {
		i.QuantityToFulfill = f.QuantityToFulfill
		changed = true
	}
	if !i.QuantityPicked.Equal(f.QuantityPicked) {
		i.QuantityPicked = f.QuantityPicked
		changed = true
	}
	if !i.QuantityFulfilled.Equal(f.QuantityFulfilled) {
		i.QuantityFulfilled = f.QuantityFulfilled
		changed = true
	}
	return changed
}

// ERPFields returns the item's ERP-owned fields
func (i *SalesOrderItem) ERPFields() ERPFields {
	return ERPFields{
		Description:       i.Description,
		UnitOfMeasure:     i.UnitOfMeasure,
		DueDate:           i.DueDate,
		QuantityToFulfill: i.QuantityToFulfill,
		QuantityPicked:    i.QuantityPicked,
		QuantityFulfilled: i.QuantityFulfilled,
	}
}

// markCut never clears IsCut
func (i *SalesOrderItem) markCut(at time.Time) bool {
	if i.IsCut {
		return false
	}
	i.IsCut = true
	i.CutAt = &at
	return true
}

func sameDate(a, b *time.Time) bool {
	if a == nil || b == nil {
		return a == nil && b == nil
	}
	return a.Equal(*b)
}
