// Package chatbot assembles the question-answering pipeline behind one
// facade. A Bot owns the model client, the database, the prompt
// registry, the workflow, and an optional Redis answer cache; callers
// just Ask.
package chatbot

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/sirupsen/logrus"

	"github.com/alt-coder/synthio/agents"
	"github.com/alt-coder/synthio/cache"
	"github.com/alt-coder/synthio/config"
	"github.com/alt-coder/synthio/graph"
	"github.com/alt-coder/synthio/llm"
	"github.com/alt-coder/synthio/prompt"
	"github.com/alt-coder/synthio/schema"
	"github.com/alt-coder/synthio/store"
	"github.com/alt-coder/synthio/trace"
)

// Database is the storage capability a bot needs: query execution for
// the generator stage and introspection for the schema context.
type Database interface {
	agents.QueryRunner
	schema.Introspector
	Ping(ctx context.Context) error
	Close() error
}

// Result is everything one answered question produced.
type Result struct {
	FinalResponse   string              `json:"final_response"`
	SQLQuery        string              `json:"sql_query,omitempty"`
	RowCount        int                 `json:"row_count"`
	GuardrailPassed bool                `json:"guardrail_passed"`
	Blocked         bool                `json:"blocked"`
	RetryCount      int                 `json:"retry_count"`
	RunID           string              `json:"run_id"`
	Duration        time.Duration       `json:"duration"`
	Success         bool                `json:"success"`
	Cached          bool                `json:"cached"`
	ErrorMessage    string              `json:"error_message,omitempty"`
	Stages          []trace.StageTiming `json:"stages,omitempty"`
}

// Options are the explicit components a bot is assembled from. Answers
// may be nil to run without caching.
type Options struct {
	Settings *config.Settings
	Provider llm.LLMProvider
	DB       Database
	Answers  *cache.AnswerCache
}

// Bot is the assembled pipeline. Safe for concurrent Ask calls; the
// schema context is guarded because Refresh can replace it at runtime.
type Bot struct {
	settings *config.Settings
	provider llm.LLMProvider
	db       Database
	workflow *graph.Workflow
	answers  *cache.AnswerCache

	mu          sync.RWMutex
	schemaCtx   string
	fingerprint string
}

// New builds a fully wired bot from settings: the LLM client, the
// database connection, the schema context snapshot, and the answer
// cache when Redis is configured. An unreachable Redis disables caching
// with a warning instead of failing startup.
func New(ctx context.Context, settings *config.Settings) (*Bot, error) {
	if err := settings.Validate(); err != nil {
		return nil, err
	}

	provider, err := NewProvider(ctx, settings)
	if err != nil {
		return nil, err
	}

	db, err := store.Open(settings)
	if err != nil {
		return nil, err
	}
	if err := db.Ping(ctx); err != nil {
		db.Close()
		return nil, fmt.Errorf("connecting to database: %w", err)
	}

	var answers *cache.AnswerCache
	if settings.RedisAddr != "" {
		answers = cache.New(settings.RedisAddr, settings.RedisDB, settings.CacheTTL)
		if err := answers.Ping(ctx); err != nil {
			logrus.WithError(err).Warn("answer cache unreachable, continuing without it")
			answers.Close()
			answers = nil
		}
	}

	bot, err := Assemble(ctx, Options{
		Settings: settings,
		Provider: provider,
		DB:       db,
		Answers:  answers,
	})
	if err != nil {
		db.Close()
		if answers != nil {
			answers.Close()
		}
		return nil, err
	}
	return bot, nil
}

// Assemble wires a bot from already constructed components.
func Assemble(ctx context.Context, opts Options) (*Bot, error) {
	if opts.Settings == nil {
		return nil, fmt.Errorf("settings are required")
	}
	if opts.Provider == nil {
		return nil, fmt.Errorf("an LLM provider is required")
	}
	if opts.DB == nil {
		return nil, fmt.Errorf("a database is required")
	}

	registry, err := prompt.NewRegistry()
	if err != nil {
		return nil, err
	}

	workflow, err := graph.New(
		agents.NewGuardrail(opts.Provider, registry),
		agents.NewPlanner(opts.Provider, registry),
		agents.NewSQLGenerator(opts.Provider, registry, opts.DB),
		agents.NewValidator(opts.Provider, registry, opts.Settings.MaxRetries),
		agents.NewWriter(opts.Provider, registry),
		opts.Settings.MaxRetries,
	)
	if err != nil {
		return nil, err
	}

	bot := &Bot{
		settings: opts.Settings,
		provider: opts.Provider,
		db:       opts.DB,
		workflow: workflow,
		answers:  opts.Answers,
	}
	if err := bot.RefreshSchema(ctx); err != nil {
		return nil, err
	}
	return bot, nil
}

// RefreshSchema rebuilds the schema context from the live database,
// for example after reloading the CSV data.
func (b *Bot) RefreshSchema(ctx context.Context) error {
	built, err := schema.Build(ctx, b.db, true)
	if err != nil {
		return fmt.Errorf("building schema context: %w", err)
	}

	b.mu.Lock()
	b.schemaCtx = built
	b.fingerprint = schema.Fingerprint(built)
	b.mu.Unlock()
	return nil
}

// SchemaContext returns the current schema context string.
func (b *Bot) SchemaContext() string {
	b.mu.RLock()
	defer b.mu.RUnlock()
	return b.schemaCtx
}

// Ask answers one question and returns just the response text.
func (b *Bot) Ask(ctx context.Context, query string) (string, error) {
	result, err := b.AskDetailed(ctx, query)
	if err != nil {
		return "", err
	}
	return result.FinalResponse, nil
}

// AskDetailed answers one question and returns the full result. The
// pipeline degrades internally, so even a failed run yields a result
// whose FinalResponse explains the problem; Success reports whether the
// workflow completed normally.
func (b *Bot) AskDetailed(ctx context.Context, query string) (*Result, error) {
	tr := trace.New()
	ctx = trace.NewContext(ctx, tr)
	ctx, cancel := context.WithTimeout(ctx, b.settings.RequestTimeout)
	defer cancel()

	b.mu.RLock()
	schemaCtx := b.schemaCtx
	fingerprint := b.fingerprint
	b.mu.RUnlock()

	key := cache.Key(query, fingerprint, b.cacheModel())
	if b.answers != nil {
		if answer, ok, err := b.answers.Get(ctx, key); err != nil {
			logrus.WithError(err).Warn("answer cache lookup failed")
		} else if ok {
			result := &Result{
				FinalResponse:   answer.FinalResponse,
				SQLQuery:        answer.SQLQuery,
				RowCount:        answer.RowCount,
				GuardrailPassed: true,
				RunID:           tr.RunID,
				Duration:        tr.Duration(),
				Success:         true,
				Cached:          true,
			}
			b.logResult(query, result)
			return result, nil
		}
	}

	state := graph.NewState(query, schemaCtx)
	workflowErr := b.workflow.Run(ctx, state)

	result := &Result{
		FinalResponse:   state.FinalResponse,
		SQLQuery:        state.SQLQuery,
		GuardrailPassed: state.GuardrailPassed,
		Blocked:         state.GuardrailResult.Blocked(),
		RetryCount:      state.RetryCount,
		RunID:           tr.RunID,
		Duration:        tr.Duration(),
		Success:         workflowErr == nil,
		ErrorMessage:    state.ErrorMessage,
		Stages:          tr.Stages(),
	}
	if state.SQLResult != nil {
		result.RowCount = state.SQLResult.RowCount
	}

	if b.answers != nil && b.cacheable(workflowErr, state) {
		if err := b.answers.Set(ctx, key, &cache.Answer{
			FinalResponse: state.FinalResponse,
			SQLQuery:      state.SQLQuery,
			RowCount:      result.RowCount,
		}); err != nil {
			logrus.WithError(err).Warn("answer cache store failed")
		}
	}

	b.logResult(query, result)
	return result, nil
}

// cacheable admits only clean runs: not blocked, query executed, and
// the validator signed off.
func (b *Bot) cacheable(workflowErr error, state *graph.WorkflowState) bool {
	return workflowErr == nil &&
		state.GuardrailPassed &&
		state.SQLResult != nil && state.SQLResult.Success &&
		state.ValidationResult != nil && state.ValidationResult.IsValid
}

// cacheModel names the model for cache keys, falling back to the
// provider name when the settings leave the model to the provider
// default.
func (b *Bot) cacheModel() string {
	if b.settings.Model != "" {
		return b.settings.Model
	}
	return b.provider.GetName()
}

func (b *Bot) logResult(query string, result *Result) {
	logrus.WithFields(logrus.Fields{
		"run_id":      result.RunID,
		"duration_ms": result.Duration.Milliseconds(),
		"success":     result.Success,
		"blocked":     result.Blocked,
		"cached":      result.Cached,
		"retries":     result.RetryCount,
		"rows":        result.RowCount,
		"query":       truncate(query, 100),
	}).Info("question answered")
}

// Ping reports whether the database behind the bot is reachable.
func (b *Bot) Ping(ctx context.Context) error {
	return b.db.Ping(ctx)
}

// TableSummary names one table and its current row count.
type TableSummary struct {
	Name string `json:"name"`
	Rows int64  `json:"rows"`
}

// Tables lists the tables behind the bot with their row counts.
func (b *Bot) Tables(ctx context.Context) ([]TableSummary, error) {
	names, err := b.db.TableNames(ctx)
	if err != nil {
		return nil, err
	}
	summaries := make([]TableSummary, 0, len(names))
	for _, name := range names {
		count, err := b.db.RowCount(ctx, name)
		if err != nil {
			return nil, err
		}
		summaries = append(summaries, TableSummary{Name: name, Rows: count})
	}
	return summaries, nil
}

// Close releases the database and cache connections.
func (b *Bot) Close() error {
	var firstErr error
	if b.answers != nil {
		if err := b.answers.Close(); err != nil {
			firstErr = err
		}
	}
	if err := b.db.Close(); err != nil && firstErr == nil {
		firstErr = err
	}
	return firstErr
}

func truncate(s string, max int) string {
	runes := []rune(s)
	if len(runes) <= max {
		return s
	}
	return string(runes[:max]) + "..."
}
