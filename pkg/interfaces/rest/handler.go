package rest

import (
	"context"
	"errors"
	"net/http"
	"strconv"

	"github.com/labstack/echo/v4"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/application/dto"
	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

// Reconciler runs reconciliation passes
type Reconciler interface {
	Run(ctx context.Context, source repositories.ERPSource) (*dto.ReconcileResult, error)
}

// CutJobs is the cut job surface exposed over HTTP
type CutJobs interface {
	CreateWireCutter(ctx context.Context, name, description string) (*entities.WireCutter, error)
	CreateJob(ctx context.Context, wireCutterID uint) (*entities.CutJob, error)
	GetJob(ctx context.Context, jobID uint) (*entities.CutJob, error)
	ListJobs(ctx context.Context, status *entities.CutJobStatus) ([]*entities.CutJob, error)
	AddItem(ctx context.Context, jobID uint, part entities.PartNumber) (*entities.CutJobItem, error)
	AssignOrderItem(ctx context.Context, jobItemID, orderItemID uint) (*dto.CutResult, error)
	UnassignOrderItem(ctx context.Context, jobItemID, orderItemID uint) (*dto.CutResult, error)
	SetQuantityCut(ctx context.Context, jobItemID uint, quantity, elapsedMinutes decimal.Decimal) (*dto.CutResult, error)
	AddQuantityCut(ctx context.Context, jobItemID uint, delta, elapsedMinutes decimal.Decimal) (*dto.CutResult, error)
	DeleteItem(ctx context.Context, jobItemID uint) (*dto.CutResult, error)
	VoidJob(ctx context.Context, jobID uint) (*dto.CutResult, error)
}

// Handler serves the REST facade
type Handler struct {
	reconciler Reconciler
	source     repositories.ERPSource
	jobs       CutJobs
	logger     *zap.Logger
}

// NewHandler creates the REST handlers. source feeds reconciliation passes.
func NewHandler(reconciler Reconciler, source repositories.ERPSource, jobs CutJobs, logger *zap.Logger) *Handler {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Handler{reconciler: reconciler, source: source, jobs: jobs, logger: logger}
}

// Health GET /health
func (h *Handler) Health(c echo.Context) error {
	return c.JSON(http.StatusOK, map[string]string{"status": "ok"})
}

type reconcileResponse struct {
	RunID       string           `json:"run_id"`
	Total       int              `json:"total"`
	Inserted    int              `json:"inserted"`
	Updated     int              `json:"updated"`
	Unchanged   int              `json:"unchanged"`
	Skipped     int              `json:"skipped"`
	Orders      int              `json:"orders"`
	SkippedRows []dto.SkippedRow `json:"skipped_rows,omitempty"`
	Cycles      []string         `json:"cycles,omitempty"`
	DurationMS  int64            `json:"duration_ms"`
	Cancelled   bool             `json:"cancelled"`
}

// Reconcile runs one pass against the configured ERP source
func (h *Handler) Reconcile(c echo.Context) error {
	result, err := h.reconciler.Run(c.Request().Context(), h.source)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, reconcileResponse{
		RunID:       result.RunID,
		Total:       result.Total,
		Inserted:    result.Inserted,
		Updated:     result.Updated,
		Unchanged:   result.Unchanged,
		Skipped:     result.Skipped,
		Orders:      result.Orders,
		SkippedRows: result.SkippedRows,
		Cycles:      result.Cycles,
		DurationMS:  result.Duration().Milliseconds(),
		Cancelled:   result.Cancelled,
	})
}

// CreateWireCutter POST /api/v1/wire-cutters
func (h *Handler) CreateWireCutter(c echo.Context) error {
	var body struct {
		Name        string `json:"name"`
		Description string `json:"description"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "bad json")
	}
	cutter, err := h.jobs.CreateWireCutter(c.Request().Context(), body.Name, body.Description)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, cutter)
}

// CreateJob POST /api/v1/cut-jobs
func (h *Handler) CreateJob(c echo.Context) error {
	var body struct {
		WireCutterID uint `json:"wire_cutter_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "bad json")
	}
	job, err := h.jobs.CreateJob(c.Request().Context(), body.WireCutterID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, job)
}

// GetJob GET /api/v1/cut-jobs/:id
func (h *Handler) GetJob(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	job, err := h.jobs.GetJob(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, job)
}

// ListJobs accepts an optional ?status= filter by status name
func (h *Handler) ListJobs(c echo.Context) error {
	var status *entities.CutJobStatus
	if raw := c.QueryParam("status"); raw != "" {
		parsed, err := entities.ParseCutJobStatus(raw)
		if err != nil {
			return badRequest(c, err.Error())
		}
		status = &parsed
	}
	jobs, err := h.jobs.ListJobs(c.Request().Context(), status)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, jobs)
}

// VoidJob POST /api/v1/cut-jobs/:id/void
func (h *Handler) VoidJob(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	result, err := h.jobs.VoidJob(c.Request().Context(), id)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, result.Job)
}

// AddItem POST /api/v1/cut-jobs/:id/items
func (h *Handler) AddItem(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		PartNumber string `json:"part_number"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "bad json")
	}
	item, err := h.jobs.AddItem(c.Request().Context(), id, entities.PartNumber(body.PartNumber))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusCreated, item)
}

// AssignOrderItem POST /api/v1/cut-job-items/:id/order-items
func (h *Handler) AssignOrderItem(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		OrderItemID uint `json:"order_item_id"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "bad json")
	}
	result, err := h.jobs.AssignOrderItem(c.Request().Context(), id, body.OrderItemID)
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newCutResponse(result))
}

// UnassignOrderItem DELETE /api/v1/cut-job-items/:id/order-items/:order_item_id
func (h *Handler) UnassignOrderItem(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	orderItemID, err := strconv.ParseUint(c.Param("order_item_id"), 10, 64)
	if err != nil {
		return badRequest(c, "invalid order item id")
	}
	result, err := h.jobs.UnassignOrderItem(c.Request().Context(), id, uint(orderItemID))
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newCutResponse(result))
}

// SetQuantityCut records progress. mode "add" increments instead of setting
// the cumulative quantity.
func (h *Handler) SetQuantityCut(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	var body struct {
		Quantity       decimal.Decimal `json:"quantity"`
		ElapsedMinutes decimal.Decimal `json:"elapsed_minutes"`
		Mode           string          `json:"mode"`
	}
	if err := c.Bind(&body); err != nil {
		return badRequest(c, "bad json")
	}

	ctx := c.Request().Context()
	var result *dto.CutResult
	switch body.Mode {
	case "", "set":
		result, err = h.jobs.SetQuantityCut(ctx, id, body.Quantity, body.ElapsedMinutes)
	case "add":
		result, err = h.jobs.AddQuantityCut(ctx, id, body.Quantity, body.ElapsedMinutes)
	default:
		return badRequest(c, "mode must be set or add")
	}
	if err != nil {
		return h.fail(c, err)
	}
	return c.JSON(http.StatusOK, newCutResponse(result))
}

// DeleteItem DELETE /api/v1/cut-job-items/:id
func (h *Handler) DeleteItem(c echo.Context) error {
	id, err := idParam(c)
	if err != nil {
		return badRequest(c, err.Error())
	}
	if _, err := h.jobs.DeleteItem(c.Request().Context(), id); err != nil {
		return h.fail(c, err)
	}
	return c.NoContent(http.StatusNoContent)
}

type cutResponse struct {
	Job            *entities.CutJob     `json:"job"`
	Item           *entities.CutJobItem `json:"item,omitempty"`
	Changed        bool                 `json:"changed"`
	HistoryWritten bool                 `json:"history_written"`
	OrderItemsCut  []uint               `json:"order_items_cut,omitempty"`
	JobFulfilled   bool                 `json:"job_fulfilled"`
}

func newCutResponse(r *dto.CutResult) cutResponse {
	return cutResponse{
		Job:            r.Job,
		Item:           r.Item,
		Changed:        r.Changed,
		HistoryWritten: r.HistoryWritten,
		OrderItemsCut:  r.OrderItemsCut,
		JobFulfilled:   r.JobFulfilled,
	}
}

func idParam(c echo.Context) (uint, error) {
	id, err := strconv.ParseUint(c.Param("id"), 10, 64)
	if err != nil || id == 0 {
		return 0, errors.New("invalid id")
	}
	return uint(id), nil
}
