package events

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

const (
	CutJobItemFulfilledEvent = "cutjob.item.fulfilled"
	CutJobFulfilledEvent     = "cutjob.fulfilled"
	OrderItemCutEvent        = "order.item.cut"
	ReconcileCompletedEvent  = "reconcile.completed"
)

// AllEventTypes lists every event the core publishes
var AllEventTypes = []string{
	CutJobItemFulfilledEvent,
	CutJobFulfilledEvent,
	OrderItemCutEvent,
	ReconcileCompletedEvent,
}

type CutJobItemFulfilled struct {
	CutJobID       uint                `json:"cut_job_id"`
	CutJobItemID   uint                `json:"cut_job_item_id"`
	PartNumber     entities.PartNumber `json:"part_number"`
	QuantityCut    decimal.Decimal     `json:"quantity_cut"`
	HistoryWritten bool                `json:"history_written"`
}

type CutJobFulfilled struct {
	CutJobID     uint `json:"cut_job_id"`
	WireCutterID uint `json:"wire_cutter_id"`
}

type OrderItemCut struct {
	OrderItemID  uint                `json:"order_item_id"`
	SalesOrderID uint                `json:"sales_order_id"`
	LineNumber   int                 `json:"line_number"`
	PartNumber   entities.PartNumber `json:"part_number"`
	CutJobItemID *uint               `json:"cut_job_item_id,omitempty"`
}

type ReconcileCompleted struct {
	RunID     string `json:"run_id"`
	Total     int    `json:"total"`
	Inserted  int    `json:"inserted"`
	Updated   int    `json:"updated"`
	Skipped   int    `json:"skipped"`
	Cancelled bool   `json:"cancelled"`
}

// CutJobStream names the stream holding a cut job's events
func CutJobStream(jobID uint) string {
	return fmt.Sprintf("cutjob-%d", jobID)
}

// SalesOrderStream names the stream holding a sales order's events
func SalesOrderStream(orderID uint) string {
	return fmt.Sprintf("salesorder-%d", orderID)
}

// ReconcileStream holds one event per reconciliation pass
const ReconcileStream = "reconcile"

func NewCutJobItemFulfilledEvent(job *entities.CutJob, item *entities.CutJobItem, historyWritten bool, at time.Time) Event {
	return NewEventAt(CutJobItemFulfilledEvent, CutJobStream(job.ID), CutJobItemFulfilled{
		CutJobID:       job.ID,
		CutJobItemID:   item.ID,
		PartNumber:     item.PartNumber,
		QuantityCut:    item.QuantityCut,
		HistoryWritten: historyWritten,
	}, at)
}

func NewCutJobFulfilledEvent(job *entities.CutJob, at time.Time) Event {
	return NewEventAt(CutJobFulfilledEvent, CutJobStream(job.ID), CutJobFulfilled{
		CutJobID:     job.ID,
		WireCutterID: job.WireCutterID,
	}, at)
}

func NewOrderItemCutEvent(item *entities.SalesOrderItem, at time.Time) Event {
	return NewEventAt(OrderItemCutEvent, SalesOrderStream(item.SalesOrderID), OrderItemCut{
		OrderItemID:  item.ID,
		SalesOrderID: item.SalesOrderID,
		LineNumber:   item.LineNumber,
		PartNumber:   item.PartNumber,
		CutJobItemID: item.CutJobItemID,
	}, at)
}

func NewReconcileCompletedEvent(data ReconcileCompleted, at time.Time) Event {
	return NewEventAt(ReconcileCompletedEvent, ReconcileStream, data, at)
}
