package services

import (
	"fmt"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

// EffectKind identifies a side effect produced by a cut job transition
type EffectKind int

const (
	EffectRecordHistory EffectKind = iota
	EffectMarkOrderItemCut
	EffectLinkOrderItem
	EffectDetachOrderItem
	EffectJobFulfilled
)

// String method for EffectKind enum
func (k EffectKind) String() string {
	switch k {
	case EffectRecordHistory:
		return "RecordHistory"
	case EffectMarkOrderItemCut:
		return "MarkOrderItemCut"
	case EffectLinkOrderItem:
		return "LinkOrderItem"
	case EffectDetachOrderItem:
		return "DetachOrderItem"
	case EffectJobFulfilled:
		return "JobFulfilled"
	default:
		return "Unknown"
	}
}

// Effect is work the caller must carry out after accepting a transition
type Effect struct {
	Kind        EffectKind
	JobItemID   uint
	OrderItemID uint
	Quantity    decimal.Decimal
	History     *entities.PartCutHistory
}

// Transition is the outcome of a cut job state change. Job is a new copy; the
// job passed in is never modified. Changed is false for idempotent repeats.
type Transition struct {
	Job     *entities.CutJob
	Item    *entities.CutJobItem
	Effects []Effect
	Changed bool
	At      time.Time
}

// EffectsOf returns the effects of the given kind
func (t *Transition) EffectsOf(kind EffectKind) []Effect {
	var out []Effect
	for _, e := range t.Effects {
		if e.Kind == kind {
			out = append(out, e)
		}
	}
	return out
}

// SetQuantityCut records the cumulative quantity cut on a job item and
// fulfills it once the linked demand is covered
func SetQuantityCut(
	job *entities.CutJob,
	itemID uint,
	quantity decimal.Decimal,
	elapsedMinutes decimal.Decimal,
	now time.Time,
) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}

	if quantity.IsNegative() {
		return nil, invalidItem(job, item, fmt.Sprintf("quantity cut cannot be negative, got %s", quantity))
	}
	if elapsedMinutes.IsNegative() {
		return nil, invalidItem(job, item, fmt.Sprintf("elapsed minutes cannot be negative, got %s", elapsedMinutes))
	}

	switch item.Status {
	case entities.CutItemFulfilled:
		if quantity.Equal(item.QuantityCut) {
			return t, nil
		}
		return nil, invalidItem(job, item, fmt.Sprintf(
			"item is fulfilled; quantity cut stays at %s", item.QuantityCut))
	case entities.CutItemOnHold:
		return nil, invalidItem(job, item, "item is on hold")
	}

	if quantity.GreaterThan(item.QuantityToCut) {
		return nil, invalidItem(job, item, fmt.Sprintf(
			"quantity cut %s exceeds quantity to cut %s", quantity, item.QuantityToCut))
	}
	if quantity.Equal(item.QuantityCut) && elapsedMinutes.IsZero() {
		return t, nil
	}

	item.QuantityCut = quantity
	item.TimeSpentMinutes = item.TimeSpentMinutes.Add(elapsedMinutes)
	if quantity.IsPositive() {
		start(t, item)
	}
	t.Changed = true

	if isFinished(item) {
		fulfill(t, item)
	}
	return t, nil
}

// AddQuantityCut increments the quantity cut on a job item
func AddQuantityCut(
	job *entities.CutJob,
	itemID uint,
	delta decimal.Decimal,
	elapsedMinutes decimal.Decimal,
	now time.Time,
) (*Transition, error) {
	item := job.FindItem(itemID)
	if item == nil {
		return nil, entities.NewNotFoundError("cut job item", fmt.Sprintf("%d", itemID))
	}
	if !delta.IsPositive() {
		return nil, invalidItem(job, item, fmt.Sprintf("quantity increment must be positive, got %s", delta))
	}
	if item.Status == entities.CutItemFulfilled {
		return nil, invalidItem(job, item, "item is fulfilled; quantity increases are rejected")
	}
	return SetQuantityCut(job, itemID, item.QuantityCut.Add(delta), elapsedMinutes, now)
}

// LinkOrderItem adds a sales order item's remaining demand to a job item. A job
// item whose demand is zero after the link is fulfilled immediately, unless it
// is on hold; resuming it fulfills it then.
func LinkOrderItem(
	job *entities.CutJob,
	itemID uint,
	orderItem *entities.SalesOrderItem,
	now time.Time,
) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}

	if item.Status == entities.CutItemFulfilled {
		return nil, invalidItem(job, item, "cannot add demand to a fulfilled item")
	}
	if orderItem.PartNumber != item.PartNumber {
		return nil, invalidItem(job, item, fmt.Sprintf(
			"order item part %s does not match %s", orderItem.PartNumber, item.PartNumber))
	}
	if orderItem.CutJobItemID != nil {
		return nil, invalidItem(job, item, fmt.Sprintf(
			"order item %d is already assigned to cut job item %d", orderItem.ID, *orderItem.CutJobItemID))
	}
	if orderItem.IsCut {
		return nil, invalidItem(job, item, fmt.Sprintf("order item %d is already cut", orderItem.ID))
	}

	contribution := orderItem.QuantityLeftToFulfill()
	link := *orderItem
	link.CutJobItemID = &item.ID
	link.QuantityAssigned = contribution
	item.OrderItems = append(item.OrderItems, &link)
	item.QuantityToCut = item.QuantityToCut.Add(contribution)
	t.Changed = true
	t.Effects = append(t.Effects, Effect{
		Kind:        EffectLinkOrderItem,
		JobItemID:   item.ID,
		OrderItemID: orderItem.ID,
		Quantity:    contribution,
	})

	if item.Status != entities.CutItemOnHold && isFinished(item) {
		fulfill(t, item)
	}
	return t, nil
}

// UnlinkOrderItem removes a sales order item's demand from a job item. A
// fulfilled job item stays fulfilled.
func UnlinkOrderItem(
	job *entities.CutJob,
	itemID uint,
	orderItemID uint,
	now time.Time,
) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}

	link := item.FindOrderItem(orderItemID)
	if link == nil {
		return nil, entities.NewNotFoundError(
			"linked order item", fmt.Sprintf("%s/%d", itemKey(job, item), orderItemID))
	}

	remaining := entities.NonNegative(item.QuantityToCut.Sub(link.QuantityAssigned))
	if item.Status != entities.CutItemFulfilled && item.QuantityCut.GreaterThan(remaining) {
		return nil, invalidItem(job, item, fmt.Sprintf(
			"quantity cut %s exceeds remaining demand %s", item.QuantityCut, remaining))
	}

	detach(t, item, link)
	item.QuantityToCut = remaining
	if item.QuantityCut.GreaterThan(remaining) {
		item.QuantityCut = remaining
	}
	t.Changed = true

	if item.Status != entities.CutItemFulfilled && item.Status != entities.CutItemOnHold && isFinished(item) {
		fulfill(t, item)
	}
	return t, nil
}

// HoldItem parks a non-terminal job item
func HoldItem(job *entities.CutJob, itemID uint, now time.Time) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}
	switch item.Status {
	case entities.CutItemOnHold:
		return t, nil
	case entities.CutItemFulfilled:
		return nil, invalidItem(job, item, "cannot hold a fulfilled item")
	}
	item.Status = entities.CutItemOnHold
	t.Changed = true
	return t, nil
}

// ResumeItem takes a job item off hold
func ResumeItem(job *entities.CutJob, itemID uint, now time.Time) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}
	if item.Status != entities.CutItemOnHold {
		return nil, invalidItem(job, item, fmt.Sprintf("item is %s, not on hold", item.Status))
	}
	item.Status = entities.CutItemEntered
	if item.QuantityCut.IsPositive() {
		item.Status = entities.CutItemInProgress
	}
	t.Changed = true
	if isFinished(item) {
		fulfill(t, item)
	}
	return t, nil
}

// VoidItem cancels a non-terminal job item and detaches its order items
func VoidItem(job *entities.CutJob, itemID uint, now time.Time) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}
	if item.Status == entities.CutItemFulfilled {
		return nil, invalidItem(job, item, "cannot void a fulfilled item")
	}
	voidItem(t, item)
	cascade(t)
	return t, nil
}

// RemoveItem detaches a job item's order items and drops it from the job
func RemoveItem(job *entities.CutJob, itemID uint, now time.Time) (*Transition, error) {
	t, item, err := begin(job, itemID, now)
	if err != nil {
		return nil, err
	}
	for _, link := range append([]*entities.SalesOrderItem(nil), item.OrderItems...) {
		detach(t, item, link)
	}
	kept := t.Job.Items[:0]
	for _, candidate := range t.Job.Items {
		if candidate.ID != item.ID {
			kept = append(kept, candidate)
		}
	}
	t.Job.Items = kept
	t.Changed = true
	cascade(t)
	return t, nil
}

// VoidJob cancels a job and every item in it that is not already fulfilled
func VoidJob(job *entities.CutJob, now time.Time) (*Transition, error) {
	if job.Status.IsTerminal() {
		return nil, entities.NewValidationError("cut job", job.Key(), fmt.Sprintf("job is %s", job.Status))
	}
	t := &Transition{Job: job.Clone(), At: now}
	for _, item := range t.Job.Items {
		if !item.Status.IsTerminal() {
			voidItem(t, item)
		}
	}
	t.Job.Status = entities.CutJobVoided
	t.Changed = true
	return t, nil
}

func begin(job *entities.CutJob, itemID uint, now time.Time) (*Transition, *entities.CutJobItem, error) {
	if job.Status == entities.CutJobVoided {
		return nil, nil, entities.NewValidationError("cut job", job.Key(), "job is voided")
	}
	t := &Transition{Job: job.Clone(), At: now}
	item := t.Job.FindItem(itemID)
	if item == nil {
		return nil, nil, entities.NewNotFoundError("cut job item", fmt.Sprintf("%s/%d", job.Key(), itemID))
	}
	if item.Status == entities.CutItemVoided {
		return nil, nil, invalidItem(job, item, "item is voided")
	}
	t.Item = item
	return t, item, nil
}

func start(t *Transition, item *entities.CutJobItem) {
	if item.StartedAt == nil {
		at := t.At
		item.StartedAt = &at
	}
	if item.Status == entities.CutItemEntered {
		item.Status = entities.CutItemInProgress
	}
	if t.Job.Status == entities.CutJobEntered {
		t.Job.Status = entities.CutJobInProgress
	}
}

// isFinished compares the cut against the demand frozen when order items were linked
func isFinished(item *entities.CutJobItem) bool {
	if len(item.OrderItems) == 0 {
		return false
	}
	return item.QuantityCut.GreaterThanOrEqual(item.QuantityToCut)
}

func fulfill(t *Transition, item *entities.CutJobItem) {
	at := t.At
	item.Status = entities.CutItemFulfilled
	item.FulfilledAt = &at

	if item.QuantityCut.IsPositive() {
		t.Effects = append(t.Effects, Effect{
			Kind:      EffectRecordHistory,
			JobItemID: item.ID,
			Quantity:  item.QuantityCut,
			History: &entities.PartCutHistory{
				PartNumber:       item.PartNumber,
				WireCutterID:     t.Job.WireCutterID,
				CutJobItemID:     item.ID,
				QuantityCut:      item.QuantityCut,
				TotalTimeMinutes: cutMinutes(item, at),
				EventDate:        at,
			},
		})
	}
	for _, link := range item.OrderItems {
		if !link.IsCut {
			link.IsCut = true
			link.CutAt = &at
		}
		t.Effects = append(t.Effects, Effect{
			Kind:        EffectMarkOrderItemCut,
			JobItemID:   item.ID,
			OrderItemID: link.ID,
		})
	}
	cascade(t)
}

// cascade fulfills the job once all of its items are fulfilled
func cascade(t *Transition) {
	if t.Job.Status.IsTerminal() || !t.Job.AllItemsFulfilled() {
		return
	}
	at := t.At
	t.Job.Status = entities.CutJobFulfilled
	t.Job.FulfilledAt = &at
	t.Effects = append(t.Effects, Effect{Kind: EffectJobFulfilled})
}

func voidItem(t *Transition, item *entities.CutJobItem) {
	for _, link := range append([]*entities.SalesOrderItem(nil), item.OrderItems...) {
		detach(t, item, link)
	}
	item.Status = entities.CutItemVoided
	t.Changed = true
}

func detach(t *Transition, item *entities.CutJobItem, link *entities.SalesOrderItem) {
	kept := make([]*entities.SalesOrderItem, 0, len(item.OrderItems))
	for _, candidate := range item.OrderItems {
		if candidate.ID != link.ID {
			kept = append(kept, candidate)
		}
	}
	item.OrderItems = kept
	t.Effects = append(t.Effects, Effect{
		Kind:        EffectDetachOrderItem,
		JobItemID:   item.ID,
		OrderItemID: link.ID,
		Quantity:    link.QuantityAssigned,
	})
}

// cutMinutes prefers operator-reported time and falls back to wall-clock time
// since the first cut
func cutMinutes(item *entities.CutJobItem, at time.Time) decimal.Decimal {
	if item.TimeSpentMinutes.IsPositive() {
		return item.TimeSpentMinutes
	}
	if item.StartedAt == nil || at.Before(*item.StartedAt) {
		return decimal.Zero
	}
	return decimal.NewFromFloat(at.Sub(*item.StartedAt).Minutes()).Round(2)
}

func itemKey(job *entities.CutJob, item *entities.CutJobItem) string {
	return fmt.Sprintf("%s/%d", job.Key(), item.ID)
}

func invalidItem(job *entities.CutJob, item *entities.CutJobItem, reason string) error {
	return entities.NewValidationError("cut job item", itemKey(job, item), reason)
}
