package graph

// Guardrail decisions.
const (
	DecisionAllow = "ALLOW"
	DecisionBlock = "BLOCK"
)

// GuardrailResult is the guardrail stage's verdict on a user message.
type GuardrailResult struct {
	Decision     string  `json:"decision"`
	Category     string  `json:"category"`
	Confidence   float64 `json:"confidence"`
	Reasoning    string  `json:"reasoning"`
	UserResponse string  `json:"user_response"`
}

// Blocked reports whether the guardrail decided to stop the pipeline.
func (r *GuardrailResult) Blocked() bool {
	return r != nil && r.Decision == DecisionBlock
}

// QueryPlan is the planner stage's analysis of what the user wants.
type QueryPlan struct {
	UserIntent         string   `json:"user_intent"`
	Assumptions        []string `json:"assumptions"`
	Instructions       string   `json:"instructions"`
	OutputRequirements []string `json:"output_requirements"`
	SortingPreference  string   `json:"sorting_preference"`
	LimitPreference    string   `json:"limit_preference"`
	Complexity         string   `json:"complexity"`
	ErrorMessage       string   `json:"error_message,omitempty"`
}

// SQLResult holds a generated query together with its execution outcome.
// Columns preserves the SELECT order so downstream formatting stays
// deterministic; Data rows are keyed by column name.
type SQLResult struct {
	Query    string           `json:"query"`
	Success  bool             `json:"success"`
	Columns  []string         `json:"columns,omitempty"`
	Data     []map[string]any `json:"data,omitempty"`
	Error    string           `json:"error,omitempty"`
	RowCount int              `json:"row_count"`
}

// ValidationResult is the validator stage's judgement of a result set.
type ValidationResult struct {
	IsValid     bool     `json:"is_valid"`
	Confidence  float64  `json:"confidence"`
	Issues      []string `json:"issues"`
	Suggestions []string `json:"suggestions"`
	Reasoning   string   `json:"reasoning"`
}

// WorkflowState is the shared record each stage reads from and writes to.
// Pointer fields are nil until the owning stage has run.
type WorkflowState struct {
	// Inputs, set before the workflow starts.
	UserQuery     string
	SchemaContext string

	// Guardrail stage.
	GuardrailResult *GuardrailResult
	GuardrailPassed bool

	// Planner stage.
	QueryPlan *QueryPlan

	// SQL generator stage.
	SQLQuery     string
	SQLReasoning string
	SQLResult    *SQLResult

	// Validator stage.
	ValidationResult *ValidationResult
	ShouldRetry      bool
	RetryCount       int

	// Terminal output.
	FinalResponse string
	ErrorMessage  string
}

// NewState returns a workflow state for one user question.
func NewState(userQuery, schemaContext string) *WorkflowState {
	return &WorkflowState{
		UserQuery:     userQuery,
		SchemaContext: schemaContext,
	}
}
