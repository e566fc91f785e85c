package cutting

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/application/dto"
	"github.com/vsinha/wirecut/pkg/application/services/history"
	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
	"github.com/vsinha/wirecut/pkg/domain/services"
	"github.com/vsinha/wirecut/pkg/infrastructure/events"
)

// Service runs cut job operations against the local store. Mutations of one
// job are serialized in-process and guarded across processes by the job's
// version.
type Service struct {
	store  repositories.Store
	events events.Publisher
	logger *zap.Logger
	now    func() time.Time

	mu    sync.Mutex
	locks map[uint]*jobLock
}

// jobLock is dropped from Service.locks once no caller holds or waits on it
type jobLock struct {
	sync.Mutex
	refs int
}

// NewService creates a cut job service. eventStore may be nil.
func NewService(store repositories.Store, eventStore events.Publisher, logger *zap.Logger) *Service {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Service{
		store:  store,
		events: eventStore,
		logger: logger,
		now:    time.Now,
		locks:  make(map[uint]*jobLock),
	}
}

// CreateWireCutter registers a cutting machine
func (s *Service) CreateWireCutter(ctx context.Context, name, description string) (*entities.WireCutter, error) {
	if name == "" {
		return nil, entities.NewValidationError("wire cutter", name, "name cannot be empty")
	}
	cutter := &entities.WireCutter{Name: name, Description: description}
	if err := s.store.WireCutters().Create(ctx, cutter); err != nil {
		return nil, err
	}
	s.logger.Info("wire cutter created", zap.Uint("wire_cutter", cutter.ID), zap.String("name", name))
	return cutter, nil
}

// CreateJob opens an empty job on a wire cutter
func (s *Service) CreateJob(ctx context.Context, wireCutterID uint) (*entities.CutJob, error) {
	if _, err := s.store.WireCutters().Get(ctx, wireCutterID); err != nil {
		return nil, err
	}
	job := &entities.CutJob{WireCutterID: wireCutterID, Status: entities.CutJobEntered}
	if err := s.store.CutJobs().Create(ctx, job); err != nil {
		return nil, err
	}
	s.logger.Info("cut job created", zap.Uint("cut_job", job.ID), zap.Uint("wire_cutter", wireCutterID))
	return job, nil
}

// AddItem adds an empty item for part to a job that is still open
func (s *Service) AddItem(ctx context.Context, jobID uint, part entities.PartNumber) (*entities.CutJobItem, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	var item *entities.CutJobItem
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		if _, err := tx.Parts().GetByNumber(ctx, part); err != nil {
			return err
		}
		job, err := tx.CutJobs().Get(ctx, jobID)
		if err != nil {
			return err
		}
		if job.Status.IsTerminal() {
			return entities.NewValidationError("cut job", job.Key(), fmt.Sprintf("job is %s", job.Status))
		}

		item = &entities.CutJobItem{CutJobID: job.ID, PartNumber: part, Status: entities.CutItemEntered}
		if err := tx.CutJobs().CreateItem(ctx, item); err != nil {
			return err
		}
		job.Items = append(job.Items, item)
		return tx.CutJobs().Save(ctx, job, job.Version)
	})
	if err != nil {
		return nil, err
	}
	s.logger.Info("cut job item added",
		zap.Uint("cut_job", jobID),
		zap.Uint("cut_job_item", item.ID),
		zap.String("part", string(part)))
	return item, nil
}

// GetJob loads a job with its items and linked order items
func (s *Service) GetJob(ctx context.Context, jobID uint) (*entities.CutJob, error) {
	return s.store.CutJobs().Get(ctx, jobID)
}

// ListJobs returns every job, or only those in status when it is set
func (s *Service) ListJobs(ctx context.Context, status *entities.CutJobStatus) ([]*entities.CutJob, error) {
	return s.store.CutJobs().List(ctx, status)
}

// AssignOrderItem links a sales order item's remaining demand to a job item
func (s *Service) AssignOrderItem(ctx context.Context, jobItemID, orderItemID uint) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(tx repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		orderItem, err := tx.SalesOrders().GetItem(ctx, orderItemID)
		if err != nil {
			return nil, err
		}
		return services.LinkOrderItem(job, jobItemID, orderItem, now)
	})
}

// UnassignOrderItem removes a linked sales order item's demand from a job item
func (s *Service) UnassignOrderItem(ctx context.Context, jobItemID, orderItemID uint) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.UnlinkOrderItem(job, jobItemID, orderItemID, now)
	})
}

// SetQuantityCut records the cumulative quantity cut on a job item
func (s *Service) SetQuantityCut(ctx context.Context, jobItemID uint, quantity, elapsedMinutes decimal.Decimal) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.SetQuantityCut(job, jobItemID, quantity, elapsedMinutes, now)
	})
}

// AddQuantityCut adds delta to the quantity cut on a job item
func (s *Service) AddQuantityCut(ctx context.Context, jobItemID uint, delta, elapsedMinutes decimal.Decimal) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.AddQuantityCut(job, jobItemID, delta, elapsedMinutes, now)
	})
}

// Hold parks a job item; cuts are rejected until it is resumed
func (s *Service) Hold(ctx context.Context, jobItemID uint) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.HoldItem(job, jobItemID, now)
	})
}

// Resume takes a job item off hold, fulfilling it if its demand is already cut
func (s *Service) Resume(ctx context.Context, jobItemID uint) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.ResumeItem(job, jobItemID, now)
	})
}

// VoidItem cancels a job item and detaches its order items
func (s *Service) VoidItem(ctx context.Context, jobItemID uint) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.VoidItem(job, jobItemID, now)
	})
}

// DeleteItem detaches a job item's order items and deletes it
func (s *Service) DeleteItem(ctx context.Context, jobItemID uint) (*dto.CutResult, error) {
	return s.mutateItem(ctx, jobItemID, func(tx repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		t, err := services.RemoveItem(job, jobItemID, now)
		if err != nil {
			return nil, err
		}
		if err := tx.CutJobs().DeleteItem(ctx, jobItemID); err != nil {
			return nil, err
		}
		return t, nil
	})
}

// VoidJob cancels a job and its unfinished items
func (s *Service) VoidJob(ctx context.Context, jobID uint) (*dto.CutResult, error) {
	return s.mutateJob(ctx, jobID, func(_ repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error) {
		return services.VoidJob(job, now)
	})
}

type transitionFunc func(tx repositories.Store, job *entities.CutJob, now time.Time) (*services.Transition, error)

func (s *Service) mutateItem(ctx context.Context, jobItemID uint, fn transitionFunc) (*dto.CutResult, error) {
	item, err := s.store.CutJobs().GetItem(ctx, jobItemID)
	if err != nil {
		return nil, err
	}
	return s.mutateJob(ctx, item.CutJobID, fn)
}

// mutateJob applies one transition and its effects in a single transaction.
// Events are published only after the commit.
func (s *Service) mutateJob(ctx context.Context, jobID uint, fn transitionFunc) (*dto.CutResult, error) {
	unlock := s.lockJob(jobID)
	defer unlock()

	var (
		result  *dto.CutResult
		pending []pendingEvent
	)
	err := s.store.Transaction(ctx, func(tx repositories.Store) error {
		pending = nil
		job, err := tx.CutJobs().Get(ctx, jobID)
		if err != nil {
			return err
		}
		version := job.Version

		t, err := fn(tx, job, s.now())
		if err != nil {
			return err
		}
		result = &dto.CutResult{Job: t.Job, Item: t.Item, Changed: t.Changed}
		if !t.Changed {
			return nil
		}

		if err := tx.CutJobs().Save(ctx, t.Job, version); err != nil {
			return err
		}
		pending, err = s.apply(ctx, tx, job, t, result)
		return err
	})
	if err != nil {
		if errors.Is(err, entities.ErrConflict) {
			s.logger.Warn("cut job changed concurrently", zap.Uint("cut_job", jobID), zap.Error(err))
		}
		return nil, err
	}

	s.publish(pending)
	return result, nil
}

type pendingEvent struct {
	stream string
	event  events.Event
}

// apply carries out the effects of t. before is the job as loaded.
func (s *Service) apply(
	ctx context.Context,
	tx repositories.Store,
	before *entities.CutJob,
	t *services.Transition,
	result *dto.CutResult,
) ([]pendingEvent, error) {
	var pending []pendingEvent
	recorder := history.NewRecorder(tx.CutHistory(), s.logger)
	historyWritten := make(map[uint]bool)

	for _, effect := range t.Effects {
		switch effect.Kind {
		case services.EffectLinkOrderItem:
			if err := s.linkOrderItem(ctx, tx, effect); err != nil {
				return nil, err
			}

		case services.EffectDetachOrderItem:
			if err := s.detachOrderItem(ctx, tx, effect); err != nil {
				return nil, err
			}

		case services.EffectRecordHistory:
			written, err := recorder.Record(ctx, effect.History)
			if err != nil {
				return nil, err
			}
			historyWritten[effect.JobItemID] = written
			result.HistoryWritten = result.HistoryWritten || written

		case services.EffectMarkOrderItemCut:
			cut, err := s.markOrderItemCut(ctx, tx, effect, t.At)
			if err != nil {
				return nil, err
			}
			for _, item := range cut {
				result.OrderItemsCut = append(result.OrderItemsCut, item.ID)
				pending = append(pending, pendingEvent{
					stream: events.SalesOrderStream(item.SalesOrderID),
					event:  events.NewOrderItemCutEvent(item, t.At),
				})
			}

		case services.EffectJobFulfilled:
			result.JobFulfilled = true
			pending = append(pending, pendingEvent{
				stream: events.CutJobStream(t.Job.ID),
				event:  events.NewCutJobFulfilledEvent(t.Job, t.At),
			})
		}
	}

	for _, item := range t.Job.Items {
		previous := before.FindItem(item.ID)
		if item.Status != entities.CutItemFulfilled || (previous != nil && previous.Status == entities.CutItemFulfilled) {
			continue
		}
		s.logger.Info("cut job item fulfilled",
			zap.Uint("cut_job", t.Job.ID),
			zap.Uint("cut_job_item", item.ID),
			zap.String("part", string(item.PartNumber)),
			zap.String("quantity_cut", item.QuantityCut.String()))
		pending = append(pending, pendingEvent{
			stream: events.CutJobStream(t.Job.ID),
			event:  events.NewCutJobItemFulfilledEvent(t.Job, item, historyWritten[item.ID], t.At),
		})
	}
	return pending, nil
}

func (s *Service) linkOrderItem(ctx context.Context, tx repositories.Store, effect services.Effect) error {
	orderItem, err := tx.SalesOrders().GetItem(ctx, effect.OrderItemID)
	if err != nil {
		return err
	}
	jobItemID := effect.JobItemID
	orderItem.CutJobItemID = &jobItemID
	orderItem.QuantityAssigned = effect.Quantity
	return tx.SalesOrders().SaveItems(ctx, []*entities.SalesOrderItem{orderItem})
}

func (s *Service) detachOrderItem(ctx context.Context, tx repositories.Store, effect services.Effect) error {
	orderItem, err := tx.SalesOrders().GetItem(ctx, effect.OrderItemID)
	if errors.Is(err, entities.ErrNotFound) {
		return nil
	}
	if err != nil {
		return err
	}
	// the link may already be gone when the job item row was deleted
	if orderItem.CutJobItemID != nil && *orderItem.CutJobItemID != effect.JobItemID {
		return nil
	}
	orderItem.CutJobItemID = nil
	orderItem.QuantityAssigned = decimal.Zero
	return tx.SalesOrders().SaveItems(ctx, []*entities.SalesOrderItem{orderItem})
}

// markOrderItemCut marks the order item cut along with its kit subtree and
// any parents that become complete
func (s *Service) markOrderItemCut(
	ctx context.Context,
	tx repositories.Store,
	effect services.Effect,
	at time.Time,
) ([]*entities.SalesOrderItem, error) {
	orderItem, err := tx.SalesOrders().GetItem(ctx, effect.OrderItemID)
	if err != nil {
		return nil, err
	}
	order, err := tx.SalesOrders().GetByID(ctx, orderItem.SalesOrderID)
	if err != nil {
		return nil, err
	}

	var target *entities.SalesOrderItem
	for _, item := range order.Items {
		if item.ID == orderItem.ID {
			target = item
			break
		}
	}
	if target == nil {
		return nil, entities.NewNotFoundError("sales order item", fmt.Sprintf("%d", effect.OrderItemID))
	}

	changed := order.MarkItemCut(target, at)
	if len(changed) == 0 {
		return nil, nil
	}
	if err := tx.SalesOrders().SaveItems(ctx, changed); err != nil {
		return nil, err
	}
	return changed, nil
}

func (s *Service) publish(pending []pendingEvent) {
	if s.events == nil {
		return
	}
	for _, p := range pending {
		if err := s.events.AppendEvent(p.stream, p.event); err != nil {
			s.logger.Warn("failed to publish event", zap.String("type", p.event.Type()), zap.Error(err))
		}
	}
}

// lockJob serializes mutations of one job and returns the release func
func (s *Service) lockJob(jobID uint) func() {
	s.mu.Lock()
	lock, ok := s.locks[jobID]
	if !ok {
		lock = &jobLock{}
		s.locks[jobID] = lock
	}
	lock.refs++
	s.mu.Unlock()

	lock.Lock()
	return func() {
		lock.Unlock()
		s.mu.Lock()
		lock.refs--
		if lock.refs == 0 {
			delete(s.locks, jobID)
		}
		s.mu.Unlock()
	}
}
