package entities

import (
	"fmt"
	"strings"
	"time"

	"github.com/shopspring/decimal"
)

// ERPOrderItemRow is one open sales order item as reported by the ERP
type ERPOrderItemRow struct {
	OrderNumber       string
	Customer          string
	OrderStatus       SalesOrderStatus
	DueDate           *time.Time
	LineNumber        int
	ProductNumber     PartNumber
	Description       string
	QuantityToFulfill decimal.Decimal
	QuantityPicked    decimal.Decimal
	QuantityFulfilled decimal.Decimal
	UnitOfMeasure     string

	// ParseError is set by a source that could read the row but not decode it
	ParseError string
}

// Key formats the row's natural key
func (r ERPOrderItemRow) Key() string {
	return ItemKey(r.OrderNumber, r.LineNumber, r.ProductNumber)
}

// Validate rejects rows that cannot be reconciled
func (r ERPOrderItemRow) Validate() error {
	if r.ParseError != "" {
		return NewValidationError("erp row", r.Key(), r.ParseError)
	}
	if strings.TrimSpace(r.OrderNumber) == "" {
		return NewValidationError("erp row", r.Key(), "order number cannot be empty")
	}
	if strings.TrimSpace(string(r.ProductNumber)) == "" {
		return NewValidationError("erp row", r.Key(), "product number cannot be empty")
	}
	if r.LineNumber <= 0 {
		return NewValidationError("erp row", r.Key(), fmt.Sprintf("line number must be positive, got %d", r.LineNumber))
	}
	for name, q := range map[string]decimal.Decimal{
		"quantity to fulfill": r.QuantityToFulfill,
		"quantity picked":     r.QuantityPicked,
		"quantity fulfilled":  r.QuantityFulfilled,
	} {
		if q.IsNegative() {
			return NewValidationError("erp row", r.Key(), fmt.Sprintf("%s cannot be negative, got %s", name, q))
		}
	}
	return nil
}

// ERPFields returns the fields of the row that overwrite local item values
func (r ERPOrderItemRow) ERPFields() ERPFields {
	return ERPFields{
		Description:       r.Description,
		UnitOfMeasure:     r.UnitOfMeasure,
		DueDate:           r.DueDate,
		QuantityToFulfill: r.QuantityToFulfill,
		QuantityPicked:    r.QuantityPicked,
		QuantityFulfilled: r.QuantityFulfilled,
	}
}
