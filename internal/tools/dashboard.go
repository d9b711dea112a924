package tools

import (
	"context"

	"go.uber.org/zap"

	"sidebot/internal/dashboard"
	"sidebot/internal/query"
)

// Tool names exposed to the model.
const (
	UpdateDashboardName = "update_dashboard"
	QueryDBName         = "query_db"
)

// Binder builds the tool registry for a session. Each session gets its own
// registry (and recorder), but every registry built by the same binder routes
// the mutating tool to the same dashboard store, so forked sessions cannot
// fragment the source of truth.
type Binder struct {
	gate   *query.Gate
	store  *dashboard.Store
	logger *zap.Logger
}

// NewBinder creates a binder over the shared gate and store.
func NewBinder(gate *query.Gate, store *dashboard.Store, logger *zap.Logger) *Binder {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Binder{gate: gate, store: store, logger: logger}
}

// Bind builds a fresh registry with the dashboard tools, logging every
// update_dashboard call to the given recorder. A nil recorder disables
// recording.
func (b *Binder) Bind(rec *Recorder) *Registry {
	reg := NewRegistry(b.logger)
	reg.MustRegister(b.updateDashboardTool(rec))
	reg.MustRegister(b.queryDBTool())
	return reg
}

// updateDashboardTool validates the query through the gate and commits the
// accepted pair to the store. Gate failures become the tool result so the
// model can retry with corrected SQL; the store is untouched on failure.
func (b *Binder) updateDashboardTool(rec *Recorder) *Tool {
	return &Tool{
		Name: UpdateDashboardName,
		Description: "Modifies the data presented in the data dashboard, based on the given SQL query, " +
			"and also updates the title.",
		Schema: Schema{
			Required: []string{"query", "title"},
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "A SQL query; must be a SELECT statement, or an empty string to reset the dashboard.",
				},
				"title": {
					Type:        "string",
					Description: "A title to display at the top of the data dashboard, summarizing the intent of the SQL query.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			q := StringArg(args, "query")
			title := StringArg(args, "title")

			// The log records intent, accepted or not.
			if rec != nil {
				rec.Record(q, title)
			}

			if q != "" {
				if _, err := b.gate.Validate(ctx, q); err != nil {
					return "", err
				}
			}

			b.store.Set(q, title)
			return "Dashboard updated.", nil
		},
	}
}

// queryDBTool is the read-only passthrough: validate, then hand the rows back
// to the model as JSON records.
func (b *Binder) queryDBTool() *Tool {
	return &Tool{
		Name:        QueryDBName,
		Description: "Perform a SQL query on the data, and return the results as JSON.",
		Schema: Schema{
			Required: []string{"query"},
			Properties: map[string]Property{
				"query": {
					Type:        "string",
					Description: "A SQL query; must be a SELECT statement.",
				},
			},
		},
		Execute: func(ctx context.Context, args map[string]any) (string, error) {
			rs, err := b.gate.Validate(ctx, StringArg(args, "query"))
			if err != nil {
				return "", err
			}
			return rs.RecordsJSON()
		},
	}
}
