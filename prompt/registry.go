// Package prompt renders the per-stage LLM prompts from embedded templates.
//
// Each stage owns one template file under templates/. A file holds the
// system prompt, a separator line, and the user prompt, so prompt authors
// can edit both halves side by side without touching Go code.
package prompt

import (
	"embed"
	"fmt"
	"sort"
	"strings"
	"text/template"
)

// Separator splits a rendered template into its system and user halves.
const Separator = "---USER_PROMPT_SEPARATOR---"

// Stage template names. Each maps to templates/<name>.tmpl.
const (
	Guardrail    = "guardrail"
	Planner      = "planner"
	SQLGenerator = "sql_generator"
	Validator    = "validator"
	Writer       = "writer"
)

//go:embed templates/*.tmpl
var templateFS embed.FS

// Registry holds the parsed prompt templates for all pipeline stages.
type Registry struct {
	templates map[string]*template.Template
}

// NewRegistry parses every embedded stage template. A template without the
// separator marker is rejected here so a malformed prompt fails at startup
// instead of mid-request.
func NewRegistry() (*Registry, error) {
	entries, err := templateFS.ReadDir("templates")
	if err != nil {
		return nil, fmt.Errorf("reading embedded templates: %w", err)
	}

	templates := make(map[string]*template.Template, len(entries))
	for _, entry := range entries {
		raw, err := templateFS.ReadFile("templates/" + entry.Name())
		if err != nil {
			return nil, fmt.Errorf("reading template %s: %w", entry.Name(), err)
		}
		if !strings.Contains(string(raw), Separator) {
			return nil, fmt.Errorf("template %s has no %s marker", entry.Name(), Separator)
		}

		name := strings.TrimSuffix(entry.Name(), ".tmpl")
		tmpl, err := template.New(name).Parse(string(raw))
		if err != nil {
			return nil, fmt.Errorf("parsing template %s: %w", entry.Name(), err)
		}
		templates[name] = tmpl
	}

	return &Registry{templates: templates}, nil
}

// Render executes the named stage template with data and returns the
// system and user prompts.
func (r *Registry) Render(stage string, data any) (system, user string, err error) {
	tmpl, ok := r.templates[stage]
	if !ok {
		return "", "", fmt.Errorf("unknown prompt template %q", stage)
	}

	var buf strings.Builder
	if err := tmpl.Execute(&buf, data); err != nil {
		return "", "", fmt.Errorf("rendering %s prompt: %w", stage, err)
	}

	// Separator presence is checked at load time.
	system, user, _ = strings.Cut(buf.String(), Separator)
	return strings.TrimSpace(system), strings.TrimSpace(user), nil
}

// Stages returns the names of all loaded templates, sorted.
func (r *Registry) Stages() []string {
	names := make([]string, 0, len(r.templates))
	for name := range r.templates {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// GuardrailData feeds the guardrail classification template.
type GuardrailData struct {
	Query string
}

// PlannerData feeds the query planning template.
type PlannerData struct {
	Schema string
	Query  string
}

// SQLGeneratorData feeds the SQL generation template. Dialect names the
// SQL flavor of the connected database, e.g. "SQLite" or "PostgreSQL".
type SQLGeneratorData struct {
	Dialect            string
	Schema             string
	Query              string
	Intent             string
	Instructions       string
	OutputRequirements []string
	Sorting            string
	Limit              string
}

// ValidatorData feeds the result validation template. Preview carries at
// most the first rows of the result; ExecError is set when execution
// failed and suppresses the preview section.
type ValidatorData struct {
	Query     string
	Intent    string
	SQL       string
	ExecError string
	RowCount  int
	Preview   string
}

// WriterData feeds the final answer template. ResultData is the already
// formatted result table and ValidationNotes the formatted validator
// verdict.
type WriterData struct {
	Query           string
	Intent          string
	SQL             string
	RowCount        int
	ResultData      string
	ValidationNotes string
}
