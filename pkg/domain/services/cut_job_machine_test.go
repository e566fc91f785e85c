package services

import (
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

var machineNow = time.Date(2024, 3, 4, 9, 30, 0, 0, time.UTC)

func qty(v int64) decimal.Decimal {
	return decimal.NewFromInt(v)
}

func orderItem(id uint, pn entities.PartNumber, toFulfill int64) *entities.SalesOrderItem {
	return &entities.SalesOrderItem{
		ID:                id,
		SalesOrderID:      1,
		LineNumber:        int(id),
		PartNumber:        pn,
		QuantityToFulfill: qty(toFulfill),
	}
}

// linkedJob builds a job with one item for part 50124 linked to order items of the given sizes
func linkedJob(t *testing.T, sizes ...int64) *entities.CutJob {
	t.Helper()
	job := &entities.CutJob{
		ID:           7,
		WireCutterID: 3,
		Status:       entities.CutJobEntered,
		Items:        []*entities.CutJobItem{{ID: 11, CutJobID: 7, PartNumber: "50124"}},
	}
	for i, size := range sizes {
		tr, err := LinkOrderItem(job, 11, orderItem(uint(100+i), "50124", size), machineNow)
		if err != nil {
			t.Fatalf("LinkOrderItem failed: %v", err)
		}
		job = tr.Job
	}
	return job
}

func TestSetQuantityCut_FulfillsAcrossLinkedItems(t *testing.T) {
	job := linkedJob(t, 6, 4)
	if got := job.Items[0].QuantityToCut; !got.Equal(qty(10)) {
		t.Fatalf("Expected quantity to cut 10, got %s", got)
	}

	tr, err := SetQuantityCut(job, 11, qty(10), decimal.NewFromInt(25), machineNow)
	if err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}

	item := tr.Job.Items[0]
	if item.Status != entities.CutItemFulfilled {
		t.Errorf("Expected item Fulfilled, got %s", item.Status)
	}
	if item.FulfilledAt == nil || !item.FulfilledAt.Equal(machineNow) {
		t.Errorf("Expected fulfilled at %v, got %v", machineNow, item.FulfilledAt)
	}
	for _, link := range item.OrderItems {
		if !link.IsCut {
			t.Errorf("Expected order item %d cut", link.ID)
		}
	}

	histories := tr.EffectsOf(EffectRecordHistory)
	if len(histories) != 1 {
		t.Fatalf("Expected exactly 1 history effect, got %d", len(histories))
	}
	h := histories[0].History
	if h.WireCutterID != 3 || h.PartNumber != "50124" || !h.QuantityCut.Equal(qty(10)) {
		t.Errorf("Unexpected history row %+v", h)
	}
	if !h.TotalTimeMinutes.Equal(qty(25)) {
		t.Errorf("Expected 25 minutes, got %s", h.TotalTimeMinutes)
	}
	if got := len(tr.EffectsOf(EffectMarkOrderItemCut)); got != 2 {
		t.Errorf("Expected 2 mark-cut effects, got %d", got)
	}
	if tr.Job.Status != entities.CutJobFulfilled {
		t.Errorf("Expected job to cascade to Fulfilled, got %s", tr.Job.Status)
	}
	if got := len(tr.EffectsOf(EffectJobFulfilled)); got != 1 {
		t.Errorf("Expected 1 job fulfilled effect, got %d", got)
	}
}

func TestSetQuantityCut_RejectsOverCut(t *testing.T) {
	job := linkedJob(t, 6, 4)
	tr, err := SetQuantityCut(job, 11, qty(3), decimal.Zero, machineNow)
	if err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}
	job = tr.Job

	_, err = SetQuantityCut(job, 11, qty(11), decimal.Zero, machineNow)
	if !errors.Is(err, entities.ErrValidation) {
		t.Fatalf("Expected ErrValidation, got %v", err)
	}
	item := job.Items[0]
	if !item.QuantityCut.Equal(qty(3)) {
		t.Errorf("Expected quantity cut to stay 3, got %s", item.QuantityCut)
	}
	if item.Status != entities.CutItemInProgress {
		t.Errorf("Expected status InProgress, got %s", item.Status)
	}
}

func TestSetQuantityCut_DoesNotMutateInput(t *testing.T) {
	job := linkedJob(t, 5)
	if _, err := SetQuantityCut(job, 11, qty(5), decimal.Zero, machineNow); err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}
	if job.Items[0].Status != entities.CutItemEntered {
		t.Errorf("Expected input job untouched, got item status %s", job.Items[0].Status)
	}
	if job.Items[0].OrderItems[0].IsCut {
		t.Error("Expected input order item untouched")
	}
}

func TestSetQuantityCut_StatusProgression(t *testing.T) {
	job := linkedJob(t, 10)

	tr, err := SetQuantityCut(job, 11, qty(4), decimal.Zero, machineNow)
	if err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}
	if tr.Job.Status != entities.CutJobInProgress {
		t.Errorf("Expected job InProgress, got %s", tr.Job.Status)
	}
	if tr.Job.Items[0].StartedAt == nil {
		t.Error("Expected StartedAt to be stamped")
	}
	if len(tr.Effects) != 0 {
		t.Errorf("Expected no effects for partial cut, got %d", len(tr.Effects))
	}

	later := machineNow.Add(90 * time.Minute)
	tr, err = AddQuantityCut(tr.Job, 11, qty(6), decimal.Zero, later)
	if err != nil {
		t.Fatalf("AddQuantityCut failed: %v", err)
	}
	histories := tr.EffectsOf(EffectRecordHistory)
	if len(histories) != 1 {
		t.Fatalf("Expected 1 history effect, got %d", len(histories))
	}
	if got := histories[0].History.TotalTimeMinutes; !got.Equal(qty(90)) {
		t.Errorf("Expected wall clock 90 minutes, got %s", got)
	}
}

func TestSetQuantityCut_FulfilledIsTerminal(t *testing.T) {
	job := linkedJob(t, 4)
	tr, err := SetQuantityCut(job, 11, qty(4), decimal.Zero, machineNow)
	if err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}
	job = tr.Job

	repeat, err := SetQuantityCut(job, 11, qty(4), decimal.Zero, machineNow)
	if err != nil {
		t.Fatalf("Expected repeated save to be accepted, got %v", err)
	}
	if repeat.Changed || len(repeat.Effects) != 0 {
		t.Errorf("Expected no-op on repeated save, got changed=%v effects=%d", repeat.Changed, len(repeat.Effects))
	}

	if _, err := AddQuantityCut(job, 11, qty(1), decimal.Zero, machineNow); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation on increase after fulfillment, got %v", err)
	}
}

func TestSetQuantityCut_Rejections(t *testing.T) {
	tests := []struct {
		name  string
		setup func(job *entities.CutJob)
		qty   decimal.Decimal
		want  error
	}{
		{"negative", func(*entities.CutJob) {}, qty(-1), entities.ErrValidation},
		{"voided job", func(j *entities.CutJob) { j.Status = entities.CutJobVoided }, qty(1), entities.ErrValidation},
		{"voided item", func(j *entities.CutJob) { j.Items[0].Status = entities.CutItemVoided }, qty(1), entities.ErrValidation},
		{"on hold", func(j *entities.CutJob) { j.Items[0].Status = entities.CutItemOnHold }, qty(1), entities.ErrValidation},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			job := linkedJob(t, 5)
			tt.setup(job)
			if _, err := SetQuantityCut(job, 11, tt.qty, decimal.Zero, machineNow); !errors.Is(err, tt.want) {
				t.Errorf("Expected %v, got %v", tt.want, err)
			}
		})
	}

	job := linkedJob(t, 5)
	if _, err := SetQuantityCut(job, 99, qty(1), decimal.Zero, machineNow); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected ErrNotFound for unknown item, got %v", err)
	}
}

func TestLinkOrderItem_ZeroDemandFulfillsImmediately(t *testing.T) {
	job := linkedJob(t)
	done := orderItem(200, "50124", 5)
	done.QuantityFulfilled = qty(5)

	tr, err := LinkOrderItem(job, 11, done, machineNow)
	if err != nil {
		t.Fatalf("LinkOrderItem failed: %v", err)
	}
	item := tr.Job.Items[0]
	if item.Status != entities.CutItemFulfilled {
		t.Errorf("Expected Fulfilled, got %s", item.Status)
	}
	if got := len(tr.EffectsOf(EffectRecordHistory)); got != 0 {
		t.Errorf("Expected no history for zero quantity, got %d", got)
	}
	if got := len(tr.EffectsOf(EffectMarkOrderItemCut)); got != 1 {
		t.Errorf("Expected 1 mark-cut effect, got %d", got)
	}
}

func TestLinkOrderItem_HeldItemWaitsForResume(t *testing.T) {
	held, err := HoldItem(linkedJob(t), 11, machineNow)
	if err != nil {
		t.Fatalf("HoldItem failed: %v", err)
	}
	done := orderItem(200, "50124", 5)
	done.QuantityFulfilled = qty(5)

	tr, err := LinkOrderItem(held.Job, 11, done, machineNow)
	if err != nil {
		t.Fatalf("LinkOrderItem failed: %v", err)
	}
	if tr.Job.Items[0].Status != entities.CutItemOnHold {
		t.Errorf("Expected OnHold after link, got %s", tr.Job.Items[0].Status)
	}
	if got := len(tr.EffectsOf(EffectMarkOrderItemCut)); got != 0 {
		t.Errorf("Expected no mark-cut effect while held, got %d", got)
	}

	tr, err = ResumeItem(tr.Job, 11, machineNow)
	if err != nil {
		t.Fatalf("ResumeItem failed: %v", err)
	}
	if tr.Job.Items[0].Status != entities.CutItemFulfilled {
		t.Errorf("Expected Fulfilled after resume, got %s", tr.Job.Items[0].Status)
	}
	if got := len(tr.EffectsOf(EffectMarkOrderItemCut)); got != 1 {
		t.Errorf("Expected 1 mark-cut effect on resume, got %d", got)
	}
}

func TestLinkOrderItem_ClampsNegativeLeftToShip(t *testing.T) {
	job := linkedJob(t, 3)
	over := orderItem(201, "50124", 2)
	over.QuantityPicked = qty(5)

	tr, err := LinkOrderItem(job, 11, over, machineNow)
	if err != nil {
		t.Fatalf("LinkOrderItem failed: %v", err)
	}
	if got := tr.Job.Items[0].QuantityToCut; !got.Equal(qty(3)) {
		t.Errorf("Expected quantity to cut 3, got %s", got)
	}
}

func TestLinkOrderItem_Rejections(t *testing.T) {
	assigned := orderItem(300, "50124", 1)
	other := uint(99)
	assigned.CutJobItemID = &other
	cut := orderItem(301, "50124", 1)
	cut.IsCut = true

	tests := []struct {
		name string
		item *entities.SalesOrderItem
	}{
		{"part mismatch", orderItem(302, "50125", 1)},
		{"already assigned", assigned},
		{"already cut", cut},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := LinkOrderItem(linkedJob(t, 2), 11, tt.item, machineNow); !errors.Is(err, entities.ErrValidation) {
				t.Errorf("Expected ErrValidation, got %v", err)
			}
		})
	}
}

func TestUnlinkOrderItem(t *testing.T) {
	t.Run("decreases demand", func(t *testing.T) {
		job := linkedJob(t, 6, 4)
		tr, err := UnlinkOrderItem(job, 11, 101, machineNow)
		if err != nil {
			t.Fatalf("UnlinkOrderItem failed: %v", err)
		}
		item := tr.Job.Items[0]
		if !item.QuantityToCut.Equal(qty(6)) {
			t.Errorf("Expected quantity to cut 6, got %s", item.QuantityToCut)
		}
		if len(item.OrderItems) != 1 {
			t.Errorf("Expected 1 remaining link, got %d", len(item.OrderItems))
		}
		detached := tr.EffectsOf(EffectDetachOrderItem)
		if len(detached) != 1 || detached[0].OrderItemID != 101 {
			t.Errorf("Expected detach of 101, got %+v", detached)
		}
	})

	t.Run("finishes when remaining demand is cut", func(t *testing.T) {
		job := linkedJob(t, 6, 4)
		tr, err := SetQuantityCut(job, 11, qty(6), decimal.Zero, machineNow)
		if err != nil {
			t.Fatalf("SetQuantityCut failed: %v", err)
		}
		tr, err = UnlinkOrderItem(tr.Job, 11, 101, machineNow)
		if err != nil {
			t.Fatalf("UnlinkOrderItem failed: %v", err)
		}
		if tr.Job.Items[0].Status != entities.CutItemFulfilled {
			t.Errorf("Expected Fulfilled, got %s", tr.Job.Items[0].Status)
		}
	})

	t.Run("rejects when cut exceeds remaining demand", func(t *testing.T) {
		job := linkedJob(t, 6, 4)
		tr, err := SetQuantityCut(job, 11, qty(8), decimal.Zero, machineNow)
		if err != nil {
			t.Fatalf("SetQuantityCut failed: %v", err)
		}
		if _, err := UnlinkOrderItem(tr.Job, 11, 101, machineNow); !errors.Is(err, entities.ErrValidation) {
			t.Errorf("Expected ErrValidation, got %v", err)
		}
	})

	t.Run("fulfilled item stays fulfilled", func(t *testing.T) {
		job := linkedJob(t, 6, 4)
		tr, err := SetQuantityCut(job, 11, qty(10), decimal.Zero, machineNow)
		if err != nil {
			t.Fatalf("SetQuantityCut failed: %v", err)
		}
		tr, err = UnlinkOrderItem(tr.Job, 11, 100, machineNow)
		if err != nil {
			t.Fatalf("UnlinkOrderItem failed: %v", err)
		}
		item := tr.Job.Items[0]
		if item.Status != entities.CutItemFulfilled {
			t.Errorf("Expected Fulfilled, got %s", item.Status)
		}
		if !item.QuantityCut.Equal(qty(4)) {
			t.Errorf("Expected quantity cut clamped to 4, got %s", item.QuantityCut)
		}
		if got := len(tr.EffectsOf(EffectRecordHistory)); got != 0 {
			t.Errorf("Expected no new history, got %d", got)
		}
	})
}

func TestHoldResume(t *testing.T) {
	job := linkedJob(t, 5)
	tr, err := SetQuantityCut(job, 11, qty(2), decimal.Zero, machineNow)
	if err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}

	tr, err = HoldItem(tr.Job, 11, machineNow)
	if err != nil {
		t.Fatalf("HoldItem failed: %v", err)
	}
	if tr.Job.Items[0].Status != entities.CutItemOnHold {
		t.Errorf("Expected OnHold, got %s", tr.Job.Items[0].Status)
	}

	tr, err = ResumeItem(tr.Job, 11, machineNow)
	if err != nil {
		t.Fatalf("ResumeItem failed: %v", err)
	}
	if tr.Job.Items[0].Status != entities.CutItemInProgress {
		t.Errorf("Expected InProgress after resume, got %s", tr.Job.Items[0].Status)
	}

	if _, err := ResumeItem(tr.Job, 11, machineNow); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation resuming an item not on hold, got %v", err)
	}
}

func TestVoidItem_CascadesJob(t *testing.T) {
	job := linkedJob(t, 3)
	job.Items = append(job.Items, &entities.CutJobItem{ID: 12, CutJobID: 7, PartNumber: "50125"})
	tr, err := LinkOrderItem(job, 12, orderItem(400, "50125", 2), machineNow)
	if err != nil {
		t.Fatalf("LinkOrderItem failed: %v", err)
	}

	tr, err = SetQuantityCut(tr.Job, 11, qty(3), decimal.Zero, machineNow)
	if err != nil {
		t.Fatalf("SetQuantityCut failed: %v", err)
	}
	if tr.Job.Status == entities.CutJobFulfilled {
		t.Fatal("Expected job to stay open while item 12 is open")
	}

	tr, err = VoidItem(tr.Job, 12, machineNow)
	if err != nil {
		t.Fatalf("VoidItem failed: %v", err)
	}
	if tr.Job.Status != entities.CutJobFulfilled {
		t.Errorf("Expected job Fulfilled once the last open item is voided, got %s", tr.Job.Status)
	}
	if got := len(tr.EffectsOf(EffectDetachOrderItem)); got != 1 {
		t.Errorf("Expected 1 detach effect, got %d", got)
	}
}

func TestVoidJob(t *testing.T) {
	job := linkedJob(t, 3)
	tr, err := VoidJob(job, machineNow)
	if err != nil {
		t.Fatalf("VoidJob failed: %v", err)
	}
	if tr.Job.Status != entities.CutJobVoided {
		t.Errorf("Expected Voided, got %s", tr.Job.Status)
	}
	if tr.Job.Items[0].Status != entities.CutItemVoided {
		t.Errorf("Expected item Voided, got %s", tr.Job.Items[0].Status)
	}

	if _, err := VoidJob(tr.Job, machineNow); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation voiding twice, got %v", err)
	}
	if _, err := SetQuantityCut(tr.Job, 11, qty(1), decimal.Zero, machineNow); !errors.Is(err, entities.ErrValidation) {
		t.Errorf("Expected ErrValidation on voided job, got %v", err)
	}
}

func TestRemoveItem_DetachesLinks(t *testing.T) {
	job := linkedJob(t, 2, 2)
	tr, err := RemoveItem(job, 11, machineNow)
	if err != nil {
		t.Fatalf("RemoveItem failed: %v", err)
	}
	if len(tr.Job.Items) != 0 {
		t.Errorf("Expected item removed, got %d items", len(tr.Job.Items))
	}
	if got := len(tr.EffectsOf(EffectDetachOrderItem)); got != 2 {
		t.Errorf("Expected 2 detach effects, got %d", got)
	}
	if len(job.Items) != 1 {
		t.Error("Expected input job untouched")
	}
}
