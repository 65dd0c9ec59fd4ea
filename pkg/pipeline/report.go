// pkg/pipeline/report.go
package pipeline

import (
	"bufio"
	"fmt"
	"io"
	"strings"
	"text/tabwriter"

	"github.com/David-Botos/vehicle-cleaner/pkg/converter"
	"github.com/David-Botos/vehicle-cleaner/pkg/model"
	"github.com/David-Botos/vehicle-cleaner/pkg/sink"
)

// maxInvalidShown caps the invalid values printed per column
const maxInvalidShown = 10

// WriteReport prints the run summary: load confirmation, shape, a preview of
// the first previewRows rows, column types, invalid numeric values, the
// categorical action logs and the metrics block
func WriteReport(w io.Writer, res *Result, previewRows int) error {
	bw := bufio.NewWriter(w)

	fmt.Fprintf(bw, "Dataset loaded successfully from %s.\n", res.Source)
	fmt.Fprintf(bw, "Shape after dropping missing values: (%d, %d)\n", res.ShapeAfterDrop[0], res.ShapeAfterDrop[1])

	fmt.Fprintln(bw, "\nCleaned table:")
	if err := writePreview(bw, res.Table, previewRows); err != nil {
		return err
	}

	fmt.Fprintln(bw, "\nData types:")
	writeTypes(bw, res.Table)

	fmt.Fprintln(bw, "\nNumeric invalid values:")
	for _, n := range res.Report.Numeric {
		if n.Skipped {
			fmt.Fprintf(bw, "%s: column not found\n", n.Column)
			continue
		}
		fmt.Fprintf(bw, "%s: %s\n", n.Column, formatInvalid(n.Invalid))
	}

	fmt.Fprintln(bw, "\nCategorical cleaning log:")
	for _, c := range res.Report.Categorical {
		if c.Skipped {
			fmt.Fprintf(bw, "%s: column not found\n", c.Column)
			continue
		}
		fmt.Fprintf(bw, "%s:\n", c.Column)
		for _, entry := range c.Log {
			fmt.Fprintf(bw, "  - %s\n", entry)
		}
	}

	if res.Sink != nil {
		fmt.Fprintf(bw, "\nWrote %d rows to %s and %d cleaning operations to %s.\n",
			res.Sink.RowsWritten, res.Sink.Table, res.Sink.OperationsLogged, sink.TrackingTable)
	}

	fmt.Fprintf(bw, "\nRun %s\n", res.RunID)
	fmt.Fprint(bw, res.Metrics.GenerateMetricsReport())

	return bw.Flush()
}

func writePreview(w io.Writer, table *model.Table, n int) error {
	head := table.Head(n)
	if head.Len() == 0 {
		_, err := fmt.Fprintln(w, "(no rows)")
		return err
	}

	columns := head.Columns()
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	fmt.Fprintf(tw, "\t%s\n", strings.Join(columns, "\t"))
	for r := 0; r < head.Len(); r++ {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = previewCell(head.Value(r, col))
		}
		fmt.Fprintf(tw, "%d\t%s\n", head.RowIndex(r), strings.Join(cells, "\t"))
	}
	return tw.Flush()
}

func writeTypes(w io.Writer, table *model.Table) {
	tw := tabwriter.NewWriter(w, 0, 0, 2, ' ', 0)
	for _, col := range table.Columns() {
		fmt.Fprintf(tw, "%s\t%s\n", col, table.ColumnType(col))
	}
	tw.Flush()
}

func previewCell(v interface{}) string {
	if converter.IsMissing(v) {
		return "NaN"
	}
	return converter.ToText(v)
}

func formatInvalid(invalid []model.InvalidValue) string {
	if len(invalid) == 0 {
		return "none"
	}

	shown := invalid
	if len(shown) > maxInvalidShown {
		shown = shown[:maxInvalidShown]
	}

	parts := make([]string, len(shown))
	for i, v := range shown {
		parts[i] = fmt.Sprintf("row %d: %q (%s)", v.RowIndex, converter.ToText(v.OriginalValue), v.Reason)
	}

	out := fmt.Sprintf("%d invalid [%s", len(invalid), strings.Join(parts, ", "))
	if len(invalid) > len(shown) {
		out += fmt.Sprintf(", ... %d more", len(invalid)-len(shown))
	}
	return out + "]"
}
