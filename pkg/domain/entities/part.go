package entities

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"
)

// PartNumber represents a unique part identifier
type PartNumber string

// Part represents a product or raw part known to the local store
type Part struct {
	ID                  uint            `json:"id" gorm:"primaryKey"`
	Number              PartNumber      `json:"number" gorm:"column:number"`
	Description         string          `json:"description"`
	UnitOfMeasure       string          `json:"unit_of_measure" gorm:"column:uom"`
	UnitPrice           decimal.Decimal `json:"unit_price"`
	IsKitComponent      bool            `json:"is_kit_component"`
	ParentKitPartNumber *PartNumber     `json:"parent_kit_part_number,omitempty" gorm:"column:parent_kit_number"`
	CreatedAt           time.Time       `json:"created_at"`
	UpdatedAt           time.Time       `json:"updated_at"`
}

// TableName pins the table used by the local store
func (Part) TableName() string {
	return "parts"
}

// NewPart creates a validated Part
func NewPart(number PartNumber, description, uom string, unitPrice decimal.Decimal) (*Part, error) {
	part := &Part{
		Number:        number,
		Description:   description,
		UnitOfMeasure: uom,
		UnitPrice:     unitPrice,
	}
	if err := part.Validate(); err != nil {
		return nil, err
	}
	return part, nil
}

// MarkKitComponent flags the part as a component of parent's kit
func (p *Part) MarkKitComponent(parent PartNumber) error {
	if parent == "" {
		return NewValidationError("part", string(p.Number), "kit component must reference its parent kit product")
	}
	if parent == p.Number {
		return NewValidationError("part", string(p.Number), "part cannot be its own parent kit product")
	}
	p.IsKitComponent = true
	p.ParentKitPartNumber = &parent
	return nil
}

// Validate checks the part invariants
func (p *Part) Validate() error {
	if p.Number == "" {
		return NewValidationError("part", "", "part number cannot be empty")
	}
	if p.UnitPrice.IsNegative() {
		return NewValidationError("part", string(p.Number), fmt.Sprintf("unit price cannot be negative, got %s", p.UnitPrice))
	}
	if p.IsKitComponent && (p.ParentKitPartNumber == nil || *p.ParentKitPartNumber == "") {
		return NewValidationError("part", string(p.Number), "kit component must reference its parent kit product")
	}
	return nil
}
