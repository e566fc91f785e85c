package history

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/gormstore"
	testhelpers "github.com/vsinha/wirecut/pkg/infrastructure/testing"
)

// newHistoryStore returns a store with part 50124, one cutter and a job
// with three items
func newHistoryStore(t *testing.T) (*gormstore.Store, uint, []uint) {
	t.Helper()
	ctx := context.Background()
	store := testhelpers.NewStore(t)

	part, err := entities.NewPart("50124", "18ga red", "ft", decimal.Zero)
	if err != nil {
		t.Fatalf("NewPart failed: %v", err)
	}
	if err := store.Parts().Create(ctx, part); err != nil {
		t.Fatalf("Create part failed: %v", err)
	}
	cutter := &entities.WireCutter{Name: "Komax 1"}
	if err := store.WireCutters().Create(ctx, cutter); err != nil {
		t.Fatalf("Create cutter failed: %v", err)
	}
	job := &entities.CutJob{WireCutterID: cutter.ID}
	if err := store.CutJobs().Create(ctx, job); err != nil {
		t.Fatalf("Create job failed: %v", err)
	}

	var itemIDs []uint
	for i := 0; i < 3; i++ {
		item := &entities.CutJobItem{CutJobID: job.ID, PartNumber: "50124"}
		if err := store.CutJobs().CreateItem(ctx, item); err != nil {
			t.Fatalf("CreateItem failed: %v", err)
		}
		itemIDs = append(itemIDs, item.ID)
	}
	return store, cutter.ID, itemIDs
}

func cut(itemID, cutterID uint, qty, minutes int64) *entities.PartCutHistory {
	return &entities.PartCutHistory{
		PartNumber:       "50124",
		WireCutterID:     cutterID,
		CutJobItemID:     itemID,
		QuantityCut:      decimal.NewFromInt(qty),
		TotalTimeMinutes: decimal.NewFromInt(minutes),
		EventDate:        time.Date(2026, 10, 1, 9, 0, 0, 0, time.UTC),
	}
}

func TestRecorder_RecordsOncePerItem(t *testing.T) {
	ctx := context.Background()
	store, cutterID, items := newHistoryStore(t)
	recorder := NewRecorder(store.CutHistory(), zap.NewNop())

	written, err := recorder.Record(ctx, cut(items[0], cutterID, 10, 5))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if !written {
		t.Error("Expected the first record to be written")
	}

	written, err = recorder.Record(ctx, cut(items[0], cutterID, 10, 5))
	if err != nil {
		t.Fatalf("Record failed: %v", err)
	}
	if written {
		t.Error("Expected a replayed record to be ignored")
	}

	rows, err := store.CutHistory().ListFor(ctx, "50124", cutterID)
	if err != nil {
		t.Fatalf("ListFor failed: %v", err)
	}
	if len(rows) != 1 {
		t.Errorf("Expected 1 history row, got %d", len(rows))
	}
}

func TestRecorder_Rejects(t *testing.T) {
	ctx := context.Background()
	store, cutterID, items := newHistoryStore(t)
	recorder := NewRecorder(store.CutHistory(), zap.NewNop())

	tests := []struct {
		name    string
		history *entities.PartCutHistory
		wantErr bool
	}{
		{"nil", nil, false},
		{"zero quantity", cut(items[0], cutterID, 0, 5), false},
		{"missing job item", cut(0, cutterID, 4, 5), true},
		{"negative minutes", cut(items[1], cutterID, 4, -1), true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			written, err := recorder.Record(ctx, tt.history)
			if written {
				t.Error("Expected nothing written")
			}
			if tt.wantErr && !errors.Is(err, entities.ErrValidation) {
				t.Errorf("Expected validation error, got %v", err)
			}
			if !tt.wantErr && err != nil {
				t.Errorf("Expected no error, got %v", err)
			}
		})
	}
}

func TestEstimator_TimePerUnit(t *testing.T) {
	ctx := context.Background()
	store, cutterID, items := newHistoryStore(t)
	recorder := NewRecorder(store.CutHistory(), zap.NewNop())
	estimator := NewEstimator(store.CutHistory())

	if _, err := estimator.TimePerUnit(ctx, "50124", cutterID); !errors.Is(err, entities.ErrNotFound) {
		t.Fatalf("Expected not found without history, got %v", err)
	}

	for _, h := range []*entities.PartCutHistory{
		cut(items[0], cutterID, 10, 5),
		cut(items[1], cutterID, 20, 4),
		cut(items[2], cutterID, 10, 3),
	} {
		if _, err := recorder.Record(ctx, h); err != nil {
			t.Fatalf("Record failed: %v", err)
		}
	}

	perUnit, err := estimator.TimePerUnit(ctx, "50124", cutterID)
	if err != nil {
		t.Fatalf("TimePerUnit failed: %v", err)
	}
	if !perUnit.Equal(decimal.RequireFromString("0.3")) {
		t.Errorf("Expected 0.3 minutes per unit, got %s", perUnit)
	}

	minutes, err := estimator.Estimate(ctx, "50124", cutterID, decimal.NewFromInt(25))
	if err != nil {
		t.Fatalf("Estimate failed: %v", err)
	}
	if !minutes.Equal(decimal.RequireFromString("7.5")) {
		t.Errorf("Expected 7.5 minutes, got %s", minutes)
	}

	if _, err := estimator.TimePerUnit(ctx, "50124", cutterID+1); !errors.Is(err, entities.ErrNotFound) {
		t.Errorf("Expected not found for another cutter, got %v", err)
	}
}
