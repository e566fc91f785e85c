package events

import (
	"errors"
	"testing"
	"time"

	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/vsinha/wirecut/pkg/domain/entities"
)

type recordingHandler struct {
	seen []Event
	err  error
}

func (h *recordingHandler) CanHandle(string) bool { return true }

func (h *recordingHandler) Handle(event Event) error {
	h.seen = append(h.seen, event)
	return h.err
}

func TestInMemoryEventStore_AppendAndRead(t *testing.T) {
	store := NewInMemoryEventStore(zap.NewNop())
	job := &entities.CutJob{ID: 4, WireCutterID: 2}
	at := time.Date(2024, 3, 4, 9, 0, 0, 0, time.UTC)

	store.AppendEvent(CutJobStream(4), NewCutJobFulfilledEvent(job, at))
	store.AppendEvent(CutJobStream(4), NewCutJobFulfilledEvent(job, at))
	store.AppendEvent(ReconcileStream, NewReconcileCompletedEvent(ReconcileCompleted{RunID: "r1"}, at))

	stream, err := store.ReadEvents("cutjob-4", 2)
	if err != nil {
		t.Fatalf("ReadEvents failed: %v", err)
	}
	if len(stream) != 1 || stream[0].Version() != 2 {
		t.Errorf("Expected version 2 only, got %v", stream)
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 3 {
		t.Errorf("Expected 3 events, got %d", len(all))
	}
	if !all[0].Timestamp().Equal(at) {
		t.Errorf("Expected event time %v, got %v", at, all[0].Timestamp())
	}
}

func TestInMemoryEventStore_SubscribersAreCalledInline(t *testing.T) {
	core, logs := observer.New(zap.WarnLevel)
	store := NewInMemoryEventStore(zap.New(core))

	ok := &recordingHandler{}
	failing := &recordingHandler{err: errors.New("handler down")}
	store.Subscribe([]string{OrderItemCutEvent}, ok)
	store.Subscribe([]string{OrderItemCutEvent}, failing)

	item := &entities.SalesOrderItem{ID: 9, SalesOrderID: 3, LineNumber: 1, PartNumber: "50124"}
	if err := store.AppendEvent(SalesOrderStream(3), NewOrderItemCutEvent(item, time.Now())); err != nil {
		t.Fatalf("AppendEvent failed: %v", err)
	}
	store.AppendEvent(ReconcileStream, NewReconcileCompletedEvent(ReconcileCompleted{}, time.Now()))

	if len(ok.seen) != 1 {
		t.Errorf("Expected 1 delivered event, got %d", len(ok.seen))
	}
	if logs.Len() != 1 {
		t.Errorf("Expected handler failure logged once, got %d", logs.Len())
	}

	store.Unsubscribe(ok)
	store.AppendEvent(SalesOrderStream(3), NewOrderItemCutEvent(item, time.Now()))
	if len(ok.seen) != 1 {
		t.Errorf("Expected no delivery after unsubscribe, got %d", len(ok.seen))
	}
}

func TestInMemoryEventStore_Retention(t *testing.T) {
	store := NewInMemoryEventStore(nil).WithRetention(2)
	for i := 0; i < 5; i++ {
		store.AppendEvent("s", NewEvent("tick", "s", i))
	}

	all, _ := store.ReadAllEvents(0)
	if len(all) != 2 {
		t.Fatalf("Expected 2 retained events, got %d", len(all))
	}
	if all[1].Version() != 5 {
		t.Errorf("Expected last version 5, got %d", all[1].Version())
	}
	tail, _ := store.ReadAllEvents(4)
	if len(tail) != 1 || tail[0].Data() != 4 {
		t.Errorf("Expected position 4 to hold the fifth event, got %v", tail)
	}
}
