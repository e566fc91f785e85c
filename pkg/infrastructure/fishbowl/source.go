// Package fishbowl reads the ERP snapshot straight from the Fishbowl database.
package fishbowl

import (
	"context"
	"database/sql"
	"fmt"
	"strconv"
	"strings"
	"time"

	"github.com/go-sql-driver/mysql"
	"github.com/jmoiron/sqlx"
	"github.com/shopspring/decimal"
	"go.uber.org/zap"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/repositories"
)

const openOrderItemsQuery = `
	SELECT so.num                        AS order_number,
	       customer.name                 AS customer,
	       so.statusId                   AS order_status,
	       soitem.dateScheduledFulfillment AS due_date,
	       soitem.soLineItem             AS line_number,
	       product.num                   AS product_number,
	       soitem.description            AS description,
	       soitem.qtyToFulfill           AS quantity_to_fulfill,
	       soitem.qtyPicked              AS quantity_picked,
	       soitem.qtyFulfilled           AS quantity_fulfilled,
	       uom.code                      AS unit_of_measure
	FROM soitem
	JOIN so ON so.id = soitem.soId
	LEFT JOIN customer ON customer.id = so.customerId
	LEFT JOIN product ON product.id = soitem.productId
	LEFT JOIN uom ON uom.id = soitem.uomId
	WHERE so.statusId IN (?, ?)
	ORDER BY so.num, soitem.soLineItem`

const defaultBOMQuery = `
	SELECT bom.id              AS bom_id,
	       part.num            AS child_part_number,
	       bomitem.quantity    AS quantity,
	       bomitem.typeId      AS item_type,
	       uom.code            AS unit_of_measure,
	       bomitem.description AS description
	FROM product
	JOIN part parent ON parent.id = product.partId
	JOIN bom ON bom.id = parent.defaultBomId
	JOIN bomitem ON bomitem.bomId = bom.id
	LEFT JOIN part ON part.id = bomitem.partId
	LEFT JOIN uom ON uom.id = bomitem.uomId
	WHERE product.num = ?
	ORDER BY bomitem.sortIdConfig, bomitem.id`

// Config holds the connection settings for the Fishbowl database
type Config struct {
	Driver       string
	DSN          string
	QueryTimeout time.Duration
}

// Source is the live ERP snapshot source
type Source struct {
	db      *sqlx.DB
	timeout time.Duration
	logger  *zap.Logger
}

// Verify interface compliance
var _ repositories.ERPSource = (*Source)(nil)

// Open connects to Fishbowl. MySQL DSNs get parseTime and dial/read timeouts
// derived from the query timeout.
func Open(cfg Config, logger *zap.Logger) (*Source, error) {
	if cfg.Driver == "" {
		cfg.Driver = "mysql"
	}
	if cfg.QueryTimeout <= 0 {
		cfg.QueryTimeout = 30 * time.Second
	}

	dsn := cfg.DSN
	if cfg.Driver == "mysql" {
		mysqlCfg, err := mysql.ParseDSN(cfg.DSN)
		if err != nil {
			return nil, fmt.Errorf("invalid fishbowl dsn: %w", err)
		}
		mysqlCfg.ParseTime = true
		if mysqlCfg.Timeout == 0 {
			mysqlCfg.Timeout = cfg.QueryTimeout
		}
		if mysqlCfg.ReadTimeout == 0 {
			mysqlCfg.ReadTimeout = cfg.QueryTimeout
		}
		dsn = mysqlCfg.FormatDSN()
	}

	db, err := sqlx.Open(cfg.Driver, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to open fishbowl connection: %w", err)
	}
	db.SetMaxOpenConns(4)
	db.SetConnMaxIdleTime(5 * time.Minute)
	return New(db, cfg.QueryTimeout, logger), nil
}

// New wraps an open connection
func New(db *sqlx.DB, timeout time.Duration, logger *zap.Logger) *Source {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Source{db: db, timeout: timeout, logger: logger}
}

// Close closes the connection pool
func (s *Source) Close() error {
	return s.db.Close()
}

// Ping checks that Fishbowl is reachable within the query timeout
func (s *Source) Ping(ctx context.Context) error {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()
	if err := s.db.PingContext(ctx); err != nil {
		return entities.NewTransientSourceError("ping", "", err)
	}
	return nil
}

type orderItemRecord struct {
	OrderNumber       sql.NullString      `db:"order_number"`
	Customer          sql.NullString      `db:"customer"`
	OrderStatus       sql.NullInt64       `db:"order_status"`
	DueDate           sql.NullTime        `db:"due_date"`
	LineNumber        sql.NullInt64       `db:"line_number"`
	ProductNumber     sql.NullString      `db:"product_number"`
	Description       sql.NullString      `db:"description"`
	QuantityToFulfill decimal.NullDecimal `db:"quantity_to_fulfill"`
	QuantityPicked    decimal.NullDecimal `db:"quantity_picked"`
	QuantityFulfilled decimal.NullDecimal `db:"quantity_fulfilled"`
	UnitOfMeasure     sql.NullString      `db:"unit_of_measure"`
}

// OpenOrderItems reads every item on Issued and In Progress orders. The
// whole result is read before returning so a failure never yields a partial
// snapshot.
func (s *Source) OpenOrderItems(ctx context.Context) ([]entities.ERPOrderItemRow, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var records []orderItemRecord
	query := s.db.Rebind(openOrderItemsQuery)
	err := s.db.SelectContext(ctx, &records, query, int(entities.SalesOrderIssued), int(entities.SalesOrderInProgress))
	if err != nil {
		return nil, entities.NewTransientSourceError("open order items query", "", err)
	}

	rows := make([]entities.ERPOrderItemRow, 0, len(records))
	for _, rec := range records {
		rows = append(rows, rec.toRow())
	}
	s.logger.Debug("read fishbowl snapshot", zap.Int("rows", len(rows)))
	return rows, nil
}

func (rec orderItemRecord) toRow() entities.ERPOrderItemRow {
	row := entities.ERPOrderItemRow{
		OrderNumber:       strings.TrimSpace(rec.OrderNumber.String),
		Customer:          rec.Customer.String,
		LineNumber:        int(rec.LineNumber.Int64),
		ProductNumber:     entities.PartNumber(strings.TrimSpace(rec.ProductNumber.String)),
		Description:       rec.Description.String,
		QuantityToFulfill: rec.QuantityToFulfill.Decimal,
		QuantityPicked:    rec.QuantityPicked.Decimal,
		QuantityFulfilled: rec.QuantityFulfilled.Decimal,
		UnitOfMeasure:     rec.UnitOfMeasure.String,
	}
	if rec.DueDate.Valid {
		due := rec.DueDate.Time
		row.DueDate = &due
	}

	var problems []string
	if !rec.ProductNumber.Valid {
		problems = append(problems, "item has no product")
	}
	if !rec.LineNumber.Valid {
		problems = append(problems, "item has no line number")
	}
	status, err := entities.ParseSalesOrderStatus(strconv.FormatInt(rec.OrderStatus.Int64, 10))
	if err != nil {
		problems = append(problems, err.Error())
	}
	row.OrderStatus = status
	if len(problems) > 0 {
		row.ParseError = strings.Join(problems, "; ")
	}
	return row
}

type bomItemRecord struct {
	BOMID           int64               `db:"bom_id"`
	ChildPartNumber sql.NullString      `db:"child_part_number"`
	Quantity        decimal.NullDecimal `db:"quantity"`
	ItemType        int                 `db:"item_type"`
	UnitOfMeasure   sql.NullString      `db:"unit_of_measure"`
	Description     sql.NullString      `db:"description"`
}

// DefaultBOM reads the default BOM of a product. Products without one yield
// NotFoundError; a BOM line that cannot be decoded yields ValidationError.
func (s *Source) DefaultBOM(ctx context.Context, productNumber entities.PartNumber) (*entities.BOM, error) {
	ctx, cancel := s.withTimeout(ctx)
	defer cancel()

	var records []bomItemRecord
	if err := s.db.SelectContext(ctx, &records, s.db.Rebind(defaultBOMQuery), string(productNumber)); err != nil {
		return nil, entities.NewTransientSourceError("bom query", string(productNumber), err)
	}
	if len(records) == 0 {
		return nil, entities.NewNotFoundError("bom", string(productNumber))
	}

	bom := &entities.BOM{
		ID:            fmt.Sprintf("fishbowl:%d", records[0].BOMID),
		ProductNumber: productNumber,
		Lines:         make([]entities.BOMLine, 0, len(records)),
	}
	for _, rec := range records {
		itemType := entities.BOMItemType(rec.ItemType)
		if itemType.String() == "Unknown" {
			return nil, entities.NewValidationError("bom", string(productNumber),
				fmt.Sprintf("unknown bom item type %d", rec.ItemType))
		}
		if itemType != entities.BOMItemNote && !rec.ChildPartNumber.Valid {
			return nil, entities.NewValidationError("bom", string(productNumber), "bom line has no part")
		}
		bom.Lines = append(bom.Lines, entities.BOMLine{
			ChildPN:       entities.PartNumber(strings.TrimSpace(rec.ChildPartNumber.String)),
			Description:   rec.Description.String,
			Quantity:      rec.Quantity.Decimal,
			ItemType:      itemType,
			UnitOfMeasure: rec.UnitOfMeasure.String,
		})
	}
	return bom, nil
}

func (s *Source) withTimeout(ctx context.Context) (context.Context, context.CancelFunc) {
	if s.timeout <= 0 {
		return context.WithCancel(ctx)
	}
	return context.WithTimeout(ctx, s.timeout)
}
