package output

import (
	"encoding/json"
	"fmt"
	"io"
	"strings"

	"github.com/vsinha/wirecut/pkg/application/dto"
	"github.com/vsinha/wirecut/pkg/domain/entities"
	"github.com/vsinha/wirecut/pkg/domain/services"
)

const (
	FormatText = "text"
	FormatJSON = "json"
)

// CheckFormat rejects formats the printers do not support
func CheckFormat(format string) error {
	switch format {
	case FormatText, FormatJSON:
		return nil
	default:
		return fmt.Errorf("unsupported output format: %s", format)
	}
}

// ReconcileSummary prints the counts of one reconciliation pass
func ReconcileSummary(w io.Writer, result *dto.ReconcileResult, format string) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	fmt.Fprintf(w, "📊 Reconcile Summary\n")
	fmt.Fprintf(w, "====================\n\n")
	fmt.Fprintf(w, "Run:       %s\n", result.RunID)
	fmt.Fprintf(w, "Orders:    %d\n", result.Orders)
	fmt.Fprintf(w, "Total:     %d\n", result.Total)
	fmt.Fprintf(w, "Inserted:  %d\n", result.Inserted)
	fmt.Fprintf(w, "Updated:   %d\n", result.Updated)
	fmt.Fprintf(w, "Unchanged: %d\n", result.Unchanged)
	fmt.Fprintf(w, "Skipped:   %d\n", result.Skipped)
	fmt.Fprintf(w, "Duration:  %v\n", result.Duration())
	if result.Cancelled {
		fmt.Fprintf(w, "\n⚠️  Pass was cancelled; counts cover committed orders only\n")
	}

	if len(result.SkippedRows) > 0 {
		fmt.Fprintf(w, "\n⚠️  Skipped rows:\n")
		fmt.Fprintf(w, "%-30s %s\n", "Key", "Reason")
		fmt.Fprintf(w, "%-30s %s\n", strings.Repeat("-", 30), strings.Repeat("-", 30))
		for _, row := range result.SkippedRows {
			fmt.Fprintf(w, "%-30s %s\n", row.Key, row.Reason)
		}
	}

	if len(result.Cycles) > 0 {
		fmt.Fprintf(w, "\n🔄 BOM cycles cut during kit expansion:\n")
		for _, cycle := range result.Cycles {
			fmt.Fprintf(w, "  %s\n", cycle)
		}
	}
	return nil
}

// BOMValidation prints problems found in an exported BOM graph
func BOMValidation(w io.Writer, result *services.ValidationResult) {
	if result == nil || (!result.HasCycles && len(result.DuplicateLines) == 0) {
		return
	}
	fmt.Fprintf(w, "⚠️  BOM validation:\n")
	for _, path := range result.CyclePaths {
		parts := make([]string, len(path))
		for i, pn := range path {
			parts[i] = string(pn)
		}
		fmt.Fprintf(w, "  cycle: %s\n", strings.Join(parts, " -> "))
	}
	for _, dup := range result.DuplicateLines {
		fmt.Fprintf(w, "  duplicate: %s\n", dup)
	}
	fmt.Fprintln(w)
}

// CutJob prints a job with its items and linked order items
func CutJob(w io.Writer, job *entities.CutJob, format string) error {
	if format == FormatJSON {
		return writeJSON(w, job)
	}

	fmt.Fprintf(w, "✂️  Cut Job %d (cutter %d) - %s\n", job.ID, job.WireCutterID, job.Status)
	if len(job.Items) == 0 {
		fmt.Fprintf(w, "  no items\n")
		return nil
	}

	fmt.Fprintf(w, "%-6s %-12s %-10s %-10s %-10s %-12s\n",
		"Item", "Part", "To Cut", "Cut", "Minutes", "Status")
	fmt.Fprintf(w, "%-6s %-12s %-10s %-10s %-10s %-12s\n",
		"------", "------------", "----------", "----------", "----------", "------------")
	for _, item := range job.Items {
		fmt.Fprintf(w, "%-6d %-12s %-10s %-10s %-10s %-12s\n",
			item.ID,
			item.PartNumber,
			item.QuantityToCut.String(),
			item.QuantityCut.String(),
			item.TimeSpentMinutes.String(),
			item.Status.String())
		for _, link := range item.OrderItems {
			cut := ""
			if link.IsCut {
				cut = " (cut)"
			}
			fmt.Fprintf(w, "       ↳ order item %d line %d: %s%s\n",
				link.ID, link.LineNumber, link.QuantityAssigned.String(), cut)
		}
	}
	return nil
}

// Jobs prints one line per job
func Jobs(w io.Writer, jobs []*entities.CutJob, format string) error {
	if format == FormatJSON {
		return writeJSON(w, jobs)
	}

	fmt.Fprintf(w, "%-6s %-8s %-12s %-6s\n", "Job", "Cutter", "Status", "Items")
	fmt.Fprintf(w, "%-6s %-8s %-12s %-6s\n", "------", "--------", "------------", "------")
	for _, job := range jobs {
		fmt.Fprintf(w, "%-6d %-8d %-12s %-6d\n", job.ID, job.WireCutterID, job.Status.String(), len(job.Items))
	}
	return nil
}

// CutResult prints what a cut job operation changed
func CutResult(w io.Writer, result *dto.CutResult, format string) error {
	if format == FormatJSON {
		return writeJSON(w, result)
	}

	if !result.Changed {
		fmt.Fprintf(w, "No change\n")
		return nil
	}
	if result.Item != nil {
		fmt.Fprintf(w, "Item %d: %s of %s cut (%s)\n",
			result.Item.ID, result.Item.QuantityCut.String(), result.Item.QuantityToCut.String(), result.Item.Status)
	}
	if result.HistoryWritten {
		fmt.Fprintf(w, "📝 Cut history recorded\n")
	}
	if len(result.OrderItemsCut) > 0 {
		fmt.Fprintf(w, "✅ Order items marked cut: %v\n", result.OrderItemsCut)
	}
	if result.JobFulfilled {
		fmt.Fprintf(w, "🎉 Job %d fulfilled\n", result.Job.ID)
	}
	return nil
}

func writeJSON(w io.Writer, v interface{}) error {
	jsonData, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to marshal JSON: %w", err)
	}
	_, err = fmt.Fprintln(w, string(jsonData))
	return err
}
