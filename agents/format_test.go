package agents

import (
	"strings"
	"testing"

	"github.com/alt-coder/synthio/graph"
)

func tableResult(n int) *graph.SQLResult {
	rows := make([]map[string]any, 0, n)
	names := []string{"Dr. Blake Garcia", "Dr. Avery Li", "Dr. Sam Ortiz", "Dr. Kim Patel"}
	for i := 0; i < n; i++ {
		rows = append(rows, map[string]any{
			"full_name": names[i%len(names)],
			"trx_total": int64(400 - i),
		})
	}
	return &graph.SQLResult{
		Success:  true,
		Columns:  []string{"full_name", "trx_total"},
		Data:     rows,
		RowCount: n,
	}
}

func TestFormatResultTable(t *testing.T) {
	got := formatResultTable(tableResult(2), 50)
	want := "| full_name | trx_total |\n" +
		"| --- | --- |\n" +
		"| Dr. Blake Garcia | 400 |\n" +
		"| Dr. Avery Li | 399 |"
	if got != want {
		t.Errorf("table:\n%s\nwant:\n%s", got, want)
	}
}

func TestFormatResultTableTruncates(t *testing.T) {
	got := formatResultTable(tableResult(4), 2)
	if !strings.HasSuffix(got, "... and 2 more rows") {
		t.Errorf("missing truncation note:\n%s", got)
	}
	if strings.Count(got, "\n") != 4 {
		t.Errorf("expected header, separator, 2 rows and a note:\n%s", got)
	}
}

func TestFormatResultTableEmpty(t *testing.T) {
	if got := formatResultTable(tableResult(0), 50); got != "No data available." {
		t.Errorf("got %q", got)
	}
	if got := formatResultTable(nil, 50); got != "No data available." {
		t.Errorf("nil result: got %q", got)
	}
}

func TestPreviewTableAlignment(t *testing.T) {
	result := &graph.SQLResult{
		Success: true,
		Columns: []string{"hcp_id", "full_name"},
		Data: []map[string]any{
			{"hcp_id": int64(7), "full_name": "Dr. Blake Garcia"},
			{"hcp_id": int64(1024), "full_name": "Dr. Li"},
		},
	}
	got := previewTable(result, 10)
	want := "hcp_id  full_name\n" +
		"7       Dr. Blake Garcia\n" +
		"1024    Dr. Li"
	if got != want {
		t.Errorf("preview:\n%q\nwant:\n%q", got, want)
	}
}

func TestPreviewTableCapsRows(t *testing.T) {
	got := previewTable(tableResult(25), 10)
	// Header plus ten rows.
	if lines := strings.Count(got, "\n") + 1; lines != 11 {
		t.Errorf("preview has %d lines, want 11", lines)
	}
}

func TestPreviewTableEmpty(t *testing.T) {
	if got := previewTable(tableResult(0), 10); got != "" {
		t.Errorf("got %q, want empty", got)
	}
}

func TestFormatValidationNotes(t *testing.T) {
	notes := formatValidationNotes(&graph.ValidationResult{
		IsValid:     false,
		Confidence:  0.35,
		Issues:      []string{"Join misses hcp_dim"},
		Suggestions: []string{"Join hcp_dim for readable names"},
		Reasoning:   "ids instead of names",
	})
	want := "Validation Status: Failed\n" +
		"Confidence: 35%\n" +
		"Issues found:\n" +
		"  - Join misses hcp_dim\n" +
		"Suggestions:\n" +
		"  - Join hcp_dim for readable names"
	if notes != want {
		t.Errorf("notes:\n%s\nwant:\n%s", notes, want)
	}
}

func TestFormatValidationNotesPassed(t *testing.T) {
	notes := formatValidationNotes(&graph.ValidationResult{IsValid: true, Confidence: 1.0})
	want := "Validation Status: Passed\nConfidence: 100%"
	if notes != want {
		t.Errorf("notes = %q, want %q", notes, want)
	}
}

func TestFormatValidationNotesAbsent(t *testing.T) {
	if got := formatValidationNotes(nil); got != "No validation performed." {
		t.Errorf("got %q", got)
	}
}

func TestColumnsOfFallsBackToSortedKeys(t *testing.T) {
	result := &graph.SQLResult{
		Data: []map[string]any{{"b_col": 1, "a_col": 2}},
	}
	got := columnsOf(result)
	if len(got) != 2 || got[0] != "a_col" || got[1] != "b_col" {
		t.Errorf("columns = %v", got)
	}
}

func TestCellText(t *testing.T) {
	tests := []struct {
		in   any
		want string
	}{
		{nil, ""},
		{"Dr. Li", "Dr. Li"},
		{int64(42), "42"},
		{float64(12500000), "12500000"},
		{float64(0.355), "0.355"},
		{true, "true"},
	}
	for _, tt := range tests {
		if got := cellText(tt.in); got != tt.want {
			t.Errorf("cellText(%v) = %q, want %q", tt.in, got, tt.want)
		}
	}
}
