package agents

import (
	"fmt"
	"sort"
	"strconv"
	"strings"

	"github.com/alt-coder/synthio/graph"
)

const (
	// maxPreviewRows bounds the validator's plain-text result preview.
	maxPreviewRows = 10
	// maxWriterRows bounds the markdown table handed to the writer.
	maxWriterRows = 50
)

// formatResultTable renders a result set as a markdown table, capped at
// maxRows with a trailing note for anything cut off.
func formatResultTable(result *graph.SQLResult, maxRows int) string {
	if result == nil || len(result.Data) == 0 {
		return "No data available."
	}

	columns := columnsOf(result)
	rows := result.Data
	note := ""
	if len(rows) > maxRows {
		note = fmt.Sprintf("\n... and %d more rows", len(rows)-maxRows)
		rows = rows[:maxRows]
	}

	var b strings.Builder
	b.WriteString("| " + strings.Join(columns, " | ") + " |\n")
	b.WriteString("|" + strings.Repeat(" --- |", len(columns)) + "\n")
	for _, row := range rows {
		cells := make([]string, len(columns))
		for i, col := range columns {
			cells[i] = cellText(row[col])
		}
		b.WriteString("| " + strings.Join(cells, " | ") + " |\n")
	}
	return strings.TrimSuffix(b.String(), "\n") + note
}

// previewTable renders the first maxRows rows as space-aligned columns
// for the validator prompt.
func previewTable(result *graph.SQLResult, maxRows int) string {
	if result == nil || len(result.Data) == 0 {
		return ""
	}

	columns := columnsOf(result)
	rows := result.Data
	if len(rows) > maxRows {
		rows = rows[:maxRows]
	}

	widths := make([]int, len(columns))
	for i, col := range columns {
		widths[i] = len(col)
	}
	cells := make([][]string, len(rows))
	for r, row := range rows {
		cells[r] = make([]string, len(columns))
		for i, col := range columns {
			text := cellText(row[col])
			cells[r][i] = text
			if len(text) > widths[i] {
				widths[i] = len(text)
			}
		}
	}

	var b strings.Builder
	writeRow := func(values []string) {
		for i, value := range values {
			if i == len(values)-1 {
				b.WriteString(value)
				continue
			}
			b.WriteString(value)
			b.WriteString(strings.Repeat(" ", widths[i]-len(value)+2))
		}
		b.WriteString("\n")
	}
	writeRow(columns)
	for _, row := range cells {
		writeRow(row)
	}
	return strings.TrimSuffix(b.String(), "\n")
}

// formatValidationNotes summarizes the validator verdict for the writer
// prompt.
func formatValidationNotes(v *graph.ValidationResult) string {
	if v == nil {
		return "No validation performed."
	}

	status := "Failed"
	if v.IsValid {
		status = "Passed"
	}
	notes := []string{
		"Validation Status: " + status,
		fmt.Sprintf("Confidence: %.0f%%", v.Confidence*100),
	}
	if len(v.Issues) > 0 {
		notes = append(notes, "Issues found:")
		for _, issue := range v.Issues {
			notes = append(notes, "  - "+issue)
		}
	}
	if len(v.Suggestions) > 0 {
		notes = append(notes, "Suggestions:")
		for _, suggestion := range v.Suggestions {
			notes = append(notes, "  - "+suggestion)
		}
	}
	return strings.Join(notes, "\n")
}

// columnsOf returns the result's column order, falling back to sorted
// row keys for results built without one.
func columnsOf(result *graph.SQLResult) []string {
	if len(result.Columns) > 0 {
		return result.Columns
	}
	if len(result.Data) == 0 {
		return nil
	}
	columns := make([]string, 0, len(result.Data[0]))
	for col := range result.Data[0] {
		columns = append(columns, col)
	}
	sort.Strings(columns)
	return columns
}

func cellText(v any) string {
	switch t := v.(type) {
	case nil:
		return ""
	case string:
		return t
	case float64:
		return strconv.FormatFloat(t, 'f', -1, 64)
	default:
		return fmt.Sprint(t)
	}
}
