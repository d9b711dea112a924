// Package query implements the validation gate that sits between the agent's
// tool calls and the dashboard state. A candidate query is accepted only if it
// executes cleanly against the dataset engine.
package query

import (
	"context"
	"errors"
	"fmt"

	"go.uber.org/zap"

	"sidebot/internal/dataset"
)

// ErrEmptyQuery is returned when an empty string reaches the gate. The empty
// query means "reset" and is handled by callers without validation.
var ErrEmptyQuery = errors.New("query cannot be empty")

// ValidationError wraps an engine execution failure. The message is surfaced
// verbatim to the model so it can correct its SQL.
type ValidationError struct {
	Query string
	Err   error
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("query validation failed: %v", e.Err)
}

func (e *ValidationError) Unwrap() error {
	return e.Err
}

// Gate validates queries by executing them against the dataset engine.
// It never mutates shared state.
type Gate struct {
	engine *dataset.Engine
	logger *zap.Logger
}

// NewGate creates a gate over the given engine.
func NewGate(engine *dataset.Engine, logger *zap.Logger) *Gate {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Gate{engine: engine, logger: logger}
}

// Validate executes the query exactly once. On success it returns the full
// result set; on failure a *ValidationError carrying the engine's message.
// The dataset is immutable, so Validate is idempotent.
func (g *Gate) Validate(ctx context.Context, query string) (*dataset.ResultSet, error) {
	if query == "" {
		return nil, ErrEmptyQuery
	}

	rs, err := g.engine.Query(ctx, query)
	if err != nil {
		g.logger.Debug("query rejected", zap.String("query", query), zap.Error(err))
		return nil, &ValidationError{Query: query, Err: err}
	}

	g.logger.Debug("query validated",
		zap.String("query", query),
		zap.Int("rows", rs.RowCount()))
	return rs, nil
}
