package reconcile

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/application/dto"
	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
	"github.com/vsinha/wirecut/pkg/domain/services"
	"github.com/vsinha/wirecut/pkg/infrastructure/events"
)

// LeaseName is the lease held for the duration of a pass
const LeaseName = "reconcile"

// Properties written after every pass
const (
	PropertyLastRunAt    = "reconcile.last_run_at"
	PropertyLastInserted = "reconcile.last_inserted"
	PropertyLastUpdated  = "reconcile.last_updated"
)

// EngineConfig controls a reconciliation engine
type EngineConfig struct {
	LeaseTTL        time.Duration
	ResolverWorkers int
	RawGoodRule     *services.RawGoodRule
}

// DefaultEngineConfig returns the settings used when none are configured
func DefaultEngineConfig() EngineConfig {
	return EngineConfig{
		LeaseTTL:        10 * time.Minute,
		ResolverWorkers: 4,
		RawGoodRule:     services.DefaultRawGoodRule(),
	}
}

// Engine merges ERP snapshots into the local store
type Engine struct {
	store  repositories.Store
	events events.Publisher
	logger *zap.Logger
	config EngineConfig
	mu     sync.Mutex
	now    func() time.Time
}

// NewEngine creates a reconciliation engine. eventStore may be nil.
func NewEngine(
	store repositories.Store,
	eventStore events.Publisher,
	logger *zap.Logger,
	config EngineConfig,
) *Engine {
	defaults := DefaultEngineConfig()
	if config.LeaseTTL <= 0 {
		config.LeaseTTL = defaults.LeaseTTL
	}
	if config.ResolverWorkers <= 0 {
		config.ResolverWorkers = defaults.ResolverWorkers
	}
	if config.RawGoodRule == nil {
		config.RawGoodRule = defaults.RawGoodRule
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Engine{
		store:  store,
		events: eventStore,
		logger: logger,
		config: config,
		now:    time.Now,
	}
}

// orderPlan holds the snapshot rows for one sales order, in snapshot order
type orderPlan struct {
	number   string
	customer string
	status   entities.SalesOrderStatus
	rows     []entities.ERPOrderItemRow
}

// orderCounts are attributed to the pass only once the order commits
type orderCounts struct {
	inserted  int
	updated   int
	unchanged int
	skipped   []dto.SkippedRow
	cycles    []string
}

// Run performs one reconciliation pass over source.
//
// The whole snapshot is read and kits for new products are resolved before
// anything is written, so a source failure leaves the store untouched. Each
// order then commits in its own transaction. Cancellation is checked between
// orders; a cancelled pass returns the counts of the orders already committed
// with Cancelled set. A store failure mid-pass returns the partial result
// together with the error.
func (e *Engine) Run(ctx context.Context, source repositories.ERPSource) (*dto.ReconcileResult, error) {
	e.mu.Lock()
	defer e.mu.Unlock()

	result := &dto.ReconcileResult{RunID: uuid.NewString(), StartedAt: e.now()}
	logger := e.logger.With(zap.String("run_id", result.RunID))

	leases := e.store.Leases()
	if err := leases.Acquire(ctx, LeaseName, result.RunID, e.config.LeaseTTL); err != nil {
		return nil, fmt.Errorf("failed to acquire reconcile lease: %w", err)
	}
	defer func() {
		if err := leases.Release(context.WithoutCancel(ctx), LeaseName, result.RunID); err != nil {
			logger.Warn("failed to release reconcile lease", zap.Error(err))
		}
	}()

	rows, err := source.OpenOrderItems(ctx)
	if err != nil {
		logger.Error("failed to read erp snapshot", zap.Error(err))
		return nil, fmt.Errorf("failed to read erp snapshot: %w", err)
	}
	logger.Info("erp snapshot read", zap.Int("rows", len(rows)))

	plans := e.plan(rows, result, logger)

	resolver := services.NewBOMResolver(source, e.config.RawGoodRule)
	resolutions, err := e.resolveNewProducts(ctx, resolver, plans)
	if err != nil {
		logger.Error("kit resolution failed; nothing written", zap.Error(err))
		return nil, fmt.Errorf("failed to resolve kits: %w", err)
	}
	pass := resolver.NewPass()

	var commitErr error
	for _, plan := range plans {
		if ctx.Err() != nil {
			result.Cancelled = true
			break
		}
		counts, err := e.commitOrder(ctx, plan, resolutions, pass, logger)
		if err != nil {
			if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
				result.Cancelled = true
				break
			}
			commitErr = fmt.Errorf("failed to reconcile order %s: %w", plan.number, err)
			break
		}
		result.Orders++
		result.Inserted += counts.inserted
		result.Updated += counts.updated
		result.Unchanged += counts.unchanged
		result.Total += counts.inserted + counts.updated + counts.unchanged
		for _, s := range counts.skipped {
			result.Skip(s.Key, s.Reason)
		}
		result.Cycles = append(result.Cycles, counts.cycles...)
	}
	result.FinishedAt = e.now()

	if result.Cancelled {
		logger.Warn("reconcile pass cancelled", zap.Int("orders_committed", result.Orders))
	}
	e.recordRun(ctx, result, logger)
	e.publish(result, logger)

	logger.Info("reconcile pass finished",
		zap.Int("total", result.Total),
		zap.Int("inserted", result.Inserted),
		zap.Int("updated", result.Updated),
		zap.Int("unchanged", result.Unchanged),
		zap.Int("skipped", result.Skipped),
		zap.Int("orders", result.Orders),
		zap.Duration("duration", result.Duration()))

	if commitErr != nil {
		logger.Error("reconcile pass aborted", zap.Error(commitErr))
		return result, commitErr
	}
	return result, nil
}

// plan validates rows and groups them by order. Invalid and duplicate rows
// are skipped here.
func (e *Engine) plan(rows []entities.ERPOrderItemRow, result *dto.ReconcileResult, logger *zap.Logger) []*orderPlan {
	var plans []*orderPlan
	byNumber := make(map[string]*orderPlan)
	seen := make(map[string]bool, len(rows))

	for _, row := range rows {
		if err := row.Validate(); err != nil {
			logger.Warn("skipping erp row", zap.String("key", row.Key()), zap.Error(err))
			result.Skip(row.Key(), err.Error())
			continue
		}
		if seen[row.Key()] {
			logger.Warn("skipping duplicate erp row", zap.String("key", row.Key()))
			result.Skip(row.Key(), "duplicate row in snapshot")
			continue
		}
		seen[row.Key()] = true

		plan, ok := byNumber[row.OrderNumber]
		if !ok {
			plan = &orderPlan{number: row.OrderNumber}
			byNumber[row.OrderNumber] = plan
			plans = append(plans, plan)
		}
		plan.customer = row.Customer
		plan.status = row.OrderStatus
		plan.rows = append(plan.rows, row)
	}
	return plans
}

// resolveNewProducts resolves the kits of every product that will be
// inserted. Source failures abort the pass before any commit.
func (e *Engine) resolveNewProducts(
	ctx context.Context,
	resolver *services.BOMResolver,
	plans []*orderPlan,
) (map[entities.PartNumber]*services.Resolution, error) {
	matcher := NewOrderMatcher(e.store.SalesOrders())
	var products []entities.PartNumber
	for _, plan := range plans {
		for _, row := range plan.rows {
			_, found, err := matcher.Find(ctx, row.OrderNumber, row.LineNumber, row.ProductNumber)
			if err != nil {
				return nil, err
			}
			if !found {
				products = append(products, row.ProductNumber)
			}
		}
	}
	if len(products) == 0 {
		return map[entities.PartNumber]*services.Resolution{}, nil
	}
	return resolver.ResolveAll(ctx, products, e.config.ResolverWorkers)
}

func (e *Engine) commitOrder(
	ctx context.Context,
	plan *orderPlan,
	resolutions map[entities.PartNumber]*services.Resolution,
	pass *services.ResolutionPass,
	logger *zap.Logger,
) (orderCounts, error) {
	var counts orderCounts
	err := e.store.Transaction(ctx, func(tx repositories.Store) error {
		counts = orderCounts{}

		order, dirty, err := e.loadOrder(ctx, tx, plan)
		if err != nil {
			return err
		}
		matcher := NewOrderMatcher(tx.SalesOrders())
		inSnapshot := make(map[string]bool, len(plan.rows))
		for _, row := range plan.rows {
			inSnapshot[row.Key()] = true
		}

		for _, row := range plan.rows {
			if err := ensurePart(ctx, tx, row.ProductNumber, row.Description, row.UnitOfMeasure, ""); err != nil {
				return err
			}

			existing, found, err := matcher.Find(ctx, row.OrderNumber, row.LineNumber, row.ProductNumber)
			if err != nil {
				return err
			}
			var item *entities.SalesOrderItem
			if found {
				item = itemByID(order, existing.ID)
				if item == nil {
					order.Items = append(order.Items, existing)
					item = existing
				}
			} else {
				// a kit child staged earlier in this pass
				item = order.FindItem(row.LineNumber, row.ProductNumber)
			}

			if item != nil {
				// kit children follow their parent's row
				if parent := order.ParentOf(item); parent != nil &&
					inSnapshot[entities.ItemKey(order.Number, parent.LineNumber, parent.PartNumber)] {
					continue
				}
				if e.applyRow(order, item, row, &counts) {
					dirty = true
				}
				continue
			}

			item = newOrderItem(row)
			if err := order.AddItem(item); err != nil {
				return err
			}
			counts.inserted++
			dirty = true

			res, ok := resolutions[row.ProductNumber]
			if !ok {
				if res, err = pass.Resolve(ctx, row.ProductNumber); err != nil {
					return err
				}
			}
			if err := e.addKitChildren(ctx, tx, order, item, res, &counts, logger); err != nil {
				return err
			}
		}

		if !dirty {
			return nil
		}
		return tx.SalesOrders().Save(ctx, order)
	})
	return counts, err
}

// loadOrder returns the stored order, or a new one, with its header
// reconciled against the plan
func (e *Engine) loadOrder(ctx context.Context, tx repositories.Store, plan *orderPlan) (*entities.SalesOrder, bool, error) {
	order, err := tx.SalesOrders().GetByNumber(ctx, plan.number)
	if errors.Is(err, entities.ErrNotFound) {
		order, err = entities.NewSalesOrder(plan.number, plan.customer, plan.status)
		return order, true, err
	}
	if err != nil {
		return nil, false, err
	}

	dirty := false
	if plan.customer != "" && order.Customer != plan.customer {
		order.Customer = plan.customer
		dirty = true
	}
	if order.Status != plan.status {
		order.Status = plan.status
		dirty = true
	}
	return order, dirty, nil
}

// applyRow overwrites ERP-owned fields on an existing item and lets its kit
// children follow the new due date and quantities
func (e *Engine) applyRow(order *entities.SalesOrder, item *entities.SalesOrderItem, row entities.ERPOrderItemRow, counts *orderCounts) bool {
	dirty := false
	if item.ApplyERPFields(row.ERPFields()) {
		counts.updated++
		dirty = true
	} else {
		counts.unchanged++
	}

	for _, child := range order.ChildrenOf(item) {
		fields := child.ERPFields()
		fields.DueDate = item.DueDate
		fields.QuantityToFulfill = item.QuantityToFulfill
		fields.QuantityPicked = item.QuantityPicked
		fields.QuantityFulfilled = item.QuantityFulfilled
		if child.ApplyERPFields(fields) {
			counts.updated++
			dirty = true
		} else {
			counts.unchanged++
		}
	}
	return dirty
}

// addKitChildren stages one child item per resolved raw part the order does
// not already carry. Children inherit the parent's due date and quantities.
func (e *Engine) addKitChildren(
	ctx context.Context,
	tx repositories.Store,
	order *entities.SalesOrder,
	parent *entities.SalesOrderItem,
	res *services.Resolution,
	counts *orderCounts,
	logger *zap.Logger,
) error {
	if res == nil {
		return nil
	}
	if err := res.Err(); err != nil {
		logger.Warn("bom cycle cut during kit expansion",
			zap.String("key", entities.ItemKey(order.Number, parent.LineNumber, parent.PartNumber)),
			zap.Error(err))
		counts.cycles = append(counts.cycles, err.Error())
	}
	for _, pn := range res.Unresolved {
		key := entities.ItemKey(order.Number, parent.LineNumber, pn)
		logger.Warn("skipping unresolvable kit child", zap.String("key", key))
		counts.skipped = append(counts.skipped, dto.SkippedRow{Key: key, Reason: "kit child bom could not be resolved"})
	}

	for _, raw := range res.Parts {
		if order.HasPart(raw.Number) {
			continue
		}
		if err := ensurePart(ctx, tx, raw.Number, raw.Description, raw.UnitOfMeasure, parent.PartNumber); err != nil {
			return err
		}
		child := &entities.SalesOrderItem{
			LineNumber:        parent.LineNumber,
			PartNumber:        raw.Number,
			Description:       raw.Description,
			UnitOfMeasure:     raw.UnitOfMeasure,
			DueDate:           parent.DueDate,
			QuantityToFulfill: parent.QuantityToFulfill,
			QuantityPicked:    parent.QuantityPicked,
			QuantityFulfilled: parent.QuantityFulfilled,
			Parent:            parent,
		}
		if err := order.AddItem(child); err != nil {
			return err
		}
		counts.inserted++
	}
	return nil
}

func (e *Engine) recordRun(ctx context.Context, result *dto.ReconcileResult, logger *zap.Logger) {
	ctx = context.WithoutCancel(ctx)
	props := e.store.Properties()
	values := map[string]entities.PropertyValue{
		PropertyLastRunAt:    entities.TimeProperty(result.FinishedAt),
		PropertyLastInserted: entities.IntProperty(int64(result.Inserted)),
		PropertyLastUpdated:  entities.IntProperty(int64(result.Updated)),
	}
	for key, value := range values {
		if err := props.Set(ctx, key, value); err != nil {
			logger.Warn("failed to record reconcile property", zap.String("key", key), zap.Error(err))
		}
	}
}

func (e *Engine) publish(result *dto.ReconcileResult, logger *zap.Logger) {
	if e.events == nil {
		return
	}
	err := e.events.AppendEvent(events.ReconcileStream, events.NewReconcileCompletedEvent(events.ReconcileCompleted{
		RunID:     result.RunID,
		Total:     result.Total,
		Inserted:  result.Inserted,
		Updated:   result.Updated,
		Skipped:   result.Skipped,
		Cancelled: result.Cancelled,
	}, result.FinishedAt))
	if err != nil {
		logger.Warn("failed to publish reconcile event", zap.Error(err))
	}
}

func newOrderItem(row entities.ERPOrderItemRow) *entities.SalesOrderItem {
	return &entities.SalesOrderItem{
		LineNumber:        row.LineNumber,
		PartNumber:        row.ProductNumber,
		Description:       row.Description,
		UnitOfMeasure:     row.UnitOfMeasure,
		DueDate:           row.DueDate,
		QuantityToFulfill: row.QuantityToFulfill,
		QuantityPicked:    row.QuantityPicked,
		QuantityFulfilled: row.QuantityFulfilled,
	}
}

func itemByID(order *entities.SalesOrder, id uint) *entities.SalesOrderItem {
	for _, item := range order.Items {
		if item.ID == id {
			return item
		}
	}
	return nil
}

// ensurePart creates the part on first sight. Kit components record the
// product whose kit introduced them.
func ensurePart(
	ctx context.Context,
	tx repositories.Store,
	number entities.PartNumber,
	description, uom string,
	kitParent entities.PartNumber,
) error {
	_, err := tx.Parts().GetByNumber(ctx, number)
	if err == nil {
		return nil
	}
	if !errors.Is(err, entities.ErrNotFound) {
		return err
	}

	part, err := entities.NewPart(number, description, uom, decimal.Zero)
	if err != nil {
		return err
	}
	if kitParent != "" {
		if err := part.MarkKitComponent(kitParent); err != nil {
			return err
		}
	}
	return tx.Parts().Create(ctx, part)
}
