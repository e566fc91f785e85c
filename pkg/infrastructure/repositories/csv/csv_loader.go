package csv

import (
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"

	"github.com/shopspring/decimal"

	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/services"
	"github.com/vsinha/wirecut/pkg/infrastructure/repositories/memory"
)

const (
	OrdersFile = "orders.csv"
	BOMFile    = "bom.csv"
)

var (
	orderHeader = []string{
		"order_number", "customer", "status", "due_date", "line_number", "product_number",
		"description", "quantity_to_fulfill", "quantity_picked", "quantity_fulfilled", "unit_of_measure",
	}
	bomHeader = []string{"product_number", "child_part_number", "quantity", "item_type", "unit_of_measure", "description"}
)

// Loader reads ERP exports from CSV files
type Loader struct{}

// NewLoader creates a new CSV loader
func NewLoader() *Loader {
	return &Loader{}
}

// LoadSnapshot reads orders.csv and, when present, bom.csv from dir into an
// in-memory ERP source. The BOM graph is validated on load; cycles are
// reported, not rejected, since resolution cuts them.
func (l *Loader) LoadSnapshot(dir string) (*memory.SnapshotSource, *services.ValidationResult, error) {
	rows, err := l.LoadOrderItems(filepath.Join(dir, OrdersFile))
	if err != nil {
		return nil, nil, err
	}

	boms := memory.NewBOMRepository(0)
	var validation *services.ValidationResult
	bomPath := filepath.Join(dir, BOMFile)
	if _, err := os.Stat(bomPath); err == nil {
		loaded, err := l.LoadBOMs(bomPath)
		if err != nil {
			return nil, nil, err
		}
		validation = services.NewBOMValidator().ValidateBOMs(loaded)
		boms.LoadBOMs(loaded)
	} else if !os.IsNotExist(err) {
		return nil, nil, fmt.Errorf("failed to stat BOM file %s: %w", bomPath, err)
	}

	return memory.NewSnapshotSource(rows, boms), validation, nil
}

// LoadOrderItems loads open order item rows. A row that cannot be decoded is
// returned with ParseError set so the pass can count it as skipped.
func (l *Loader) LoadOrderItems(filename string) ([]entities.ERPOrderItemRow, error) {
	records, err := readRecords(filename, "orders", orderHeader)
	if err != nil {
		return nil, err
	}

	rows := make([]entities.ERPOrderItemRow, 0, len(records))
	for i, record := range records {
		if len(record) != len(orderHeader) {
			rows = append(rows, entities.ERPOrderItemRow{
				ParseError: fmt.Sprintf("orders CSV row %d: expected %d columns, got %d", i+2, len(orderHeader), len(record)),
			})
			continue
		}
		row, err := parseOrderItem(record)
		if err != nil {
			row.ParseError = fmt.Sprintf("orders CSV row %d: %v", i+2, err)
		}
		rows = append(rows, row)
	}
	return rows, nil
}

// LoadBOMs loads default BOMs grouped by product, keeping line order
func (l *Loader) LoadBOMs(filename string) ([]*entities.BOM, error) {
	records, err := readRecords(filename, "BOM", bomHeader)
	if err != nil {
		return nil, err
	}

	var boms []*entities.BOM
	byProduct := make(map[entities.PartNumber]*entities.BOM)
	for i, record := range records {
		if len(record) != len(bomHeader) {
			return nil, fmt.Errorf("BOM CSV row %d: expected %d columns, got %d", i+2, len(bomHeader), len(record))
		}
		product, line, err := parseBOMLine(record)
		if err != nil {
			return nil, fmt.Errorf("BOM CSV row %d: %w", i+2, err)
		}
		bom, ok := byProduct[product]
		if !ok {
			bom = &entities.BOM{ID: "csv:" + string(product), ProductNumber: product}
			byProduct[product] = bom
			boms = append(boms, bom)
		}
		bom.Lines = append(bom.Lines, line)
	}
	return boms, nil
}

func readRecords(filename, kind string, expectedHeader []string) ([][]string, error) {
	file, err := os.Open(filename)
	if err != nil {
		return nil, fmt.Errorf("failed to open %s file %s: %w", kind, filename, err)
	}
	defer file.Close()

	reader := csv.NewReader(file)
	reader.FieldsPerRecord = -1
	reader.TrimLeadingSpace = true

	header, err := reader.Read()
	if err == io.EOF {
		return nil, fmt.Errorf("%s CSV is empty", kind)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV header: %w", kind, err)
	}
	if !validateHeader(header, expectedHeader) {
		return nil, fmt.Errorf("%s CSV header mismatch. Expected: %v, Got: %v", kind, expectedHeader, header)
	}

	records, err := reader.ReadAll()
	if err != nil {
		return nil, fmt.Errorf("failed to read %s CSV: %w", kind, err)
	}
	return records, nil
}

// validateHeader checks if the CSV header matches expected columns
func validateHeader(actual, expected []string) bool {
	if len(actual) != len(expected) {
		return false
	}
	for i, col := range actual {
		if strings.TrimSpace(strings.ToLower(col)) != expected[i] {
			return false
		}
	}
	return true
}

func parseOrderItem(record []string) (entities.ERPOrderItemRow, error) {
	row := entities.ERPOrderItemRow{
		OrderNumber:   strings.TrimSpace(record[0]),
		Customer:      strings.TrimSpace(record[1]),
		OrderStatus:   entities.SalesOrderIssued,
		ProductNumber: entities.PartNumber(strings.TrimSpace(record[5])),
		Description:   strings.TrimSpace(record[6]),
		UnitOfMeasure: strings.TrimSpace(record[10]),
	}

	if s := strings.TrimSpace(record[2]); s != "" {
		status, err := entities.ParseSalesOrderStatus(s)
		if err != nil {
			return row, err
		}
		row.OrderStatus = status
	}

	dueDate, err := parseDate(record[3])
	if err != nil {
		return row, fmt.Errorf("invalid due_date: %w", err)
	}
	row.DueDate = dueDate

	line, err := strconv.Atoi(strings.TrimSpace(record[4]))
	if err != nil {
		return row, fmt.Errorf("invalid line_number: %w", err)
	}
	row.LineNumber = line

	quantities := []*decimal.Decimal{&row.QuantityToFulfill, &row.QuantityPicked, &row.QuantityFulfilled}
	for k, target := range quantities {
		q, err := parseQuantity(record[7+k])
		if err != nil {
			return row, fmt.Errorf("invalid %s: %w", orderHeader[7+k], err)
		}
		*target = q
	}

	return row, nil
}

func parseBOMLine(record []string) (entities.PartNumber, entities.BOMLine, error) {
	product := entities.PartNumber(strings.TrimSpace(record[0]))
	if product == "" {
		return "", entities.BOMLine{}, fmt.Errorf("product_number cannot be empty")
	}

	qty, err := parseQuantity(record[2])
	if err != nil {
		return "", entities.BOMLine{}, fmt.Errorf("invalid quantity: %w", err)
	}
	itemType, err := entities.ParseBOMItemType(record[3])
	if err != nil {
		return "", entities.BOMLine{}, err
	}

	childPN := entities.PartNumber(strings.TrimSpace(record[1]))
	if itemType == entities.BOMItemNote {
		return product, entities.BOMLine{ChildPN: childPN, ItemType: itemType, Description: strings.TrimSpace(record[5])}, nil
	}

	line, err := entities.NewBOMLine(childPN, qty, itemType, strings.TrimSpace(record[4]))
	if err != nil {
		return "", entities.BOMLine{}, err
	}
	line.Description = strings.TrimSpace(record[5])
	return product, *line, nil
}

func parseQuantity(s string) (decimal.Decimal, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return decimal.Zero, nil
	}
	return decimal.NewFromString(s)
}

func parseDate(s string) (*time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return nil, nil
	}
	for _, layout := range []string{"2006-01-02", time.RFC3339, "2006-01-02 15:04:05"} {
		if t, err := time.Parse(layout, s); err == nil {
			return &t, nil
		}
	}
	return nil, fmt.Errorf("unrecognized date %q", s)
}
