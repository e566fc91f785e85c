package entities

import (
	"fmt"
	"strings"

	"github.com/shopspring/decimal"
)

// BOMItemType classifies a BOM line the way the ERP does
type BOMItemType int

const (
	BOMItemFinishedGood   BOMItemType = 10
	BOMItemRawGood        BOMItemType = 20
	BOMItemRepairRawGood  BOMItemType = 30
	BOMItemNote           BOMItemType = 40
	BOMItemBillOfMaterial BOMItemType = 50
)

// String method for BOMItemType enum
func (t BOMItemType) String() string {
	switch t {
	case BOMItemFinishedGood:
		return "Finished Good"
	case BOMItemRawGood:
		return "Raw Good"
	case BOMItemRepairRawGood:
		return "Repair Raw Good"
	case BOMItemNote:
		return "Note"
	case BOMItemBillOfMaterial:
		return "Bill of Materials"
	default:
		return "Unknown"
	}
}

// IsComponent reports whether a line of this type is consumed by the
// product. Finished Good lines name the product itself and repair lines only
// apply to rework.
func (t BOMItemType) IsComponent() bool {
	return t == BOMItemRawGood || t == BOMItemBillOfMaterial
}

// ParseBOMItemType accepts either the type name or its numeric code
func ParseBOMItemType(value string) (BOMItemType, error) {
	normalized := strings.ToLower(strings.TrimSpace(value))
	for _, t := range []BOMItemType{
		BOMItemFinishedGood, BOMItemRawGood, BOMItemRepairRawGood, BOMItemNote, BOMItemBillOfMaterial,
	} {
		if normalized == strings.ToLower(t.String()) || normalized == fmt.Sprintf("%d", int(t)) {
			return t, nil
		}
	}
	return 0, fmt.Errorf("unknown bom item type %q", value)
}

// BOM is a product's default bill of materials as reported by the ERP
type BOM struct {
	ID            string
	ProductNumber PartNumber
	Lines         []BOMLine
}

// BOMLine represents a single line in a Bill of Materials
type BOMLine struct {
	ChildPN       PartNumber
	Description   string
	Quantity      decimal.Decimal
	ItemType      BOMItemType
	UnitOfMeasure string
}

// NewBOMLine creates a validated BOMLine
func NewBOMLine(childPN PartNumber, quantity decimal.Decimal, itemType BOMItemType, uom string) (*BOMLine, error) {
	if string(childPN) == "" {
		return nil, fmt.Errorf("child part number cannot be empty")
	}
	if !quantity.IsPositive() {
		return nil, fmt.Errorf("quantity must be positive, got %s", quantity)
	}
	return &BOMLine{
		ChildPN:       childPN,
		Quantity:      quantity,
		ItemType:      itemType,
		UnitOfMeasure: uom,
	}, nil
}

// RawPart is a terminal, directly cuttable component produced by BOM resolution.
// QuantityPer is the quantity needed for one unit of the resolved product.
type RawPart struct {
	Number        PartNumber
	Description   string
	UnitOfMeasure string
	QuantityPer   decimal.Decimal
}
