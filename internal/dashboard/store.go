// Package dashboard holds the shared view state driven by the agent and read
// by the observer: the active filter query, its display title, and the derived
// views computed from the filtered data.
package dashboard

import (
	"context"
	"fmt"
	"sync"

	"go.uber.org/zap"

	"sidebot/internal/dataset"
)

// ViewState is the current active filter and its display title. An empty
// query means "no filter, show the full dataset".
type ViewState struct {
	Query string
	Title string
}

// Store is the single source of truth for the dashboard. Set replaces the
// whole state atomically; reads never observe a half-applied update. Derived
// views are computed lazily on first read and cached until the next Set.
//
// Set is called from the agent's tool task while reads come from the observer
// refresh task, so every access goes through the store mutex.
type Store struct {
	engine *dataset.Engine
	logger *zap.Logger

	mu    sync.RWMutex
	state ViewState
	data  *dataset.ResultSet // filtered rows, nil until first read after Set
}

// NewStore creates a store over the engine, starting with the empty state
// (full dataset, no title).
func NewStore(engine *dataset.Engine, logger *zap.Logger) *Store {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Store{engine: engine, logger: logger}
}

// Set atomically replaces the view state and invalidates every cached derived
// view. Callers must have validated a non-empty query through the gate first.
func (s *Store) Set(query, title string) {
	s.mu.Lock()
	defer s.mu.Unlock()

	s.state = ViewState{Query: query, Title: title}
	s.data = nil

	s.logger.Info("dashboard updated",
		zap.String("title", title),
		zap.String("query", query))
}

// Reset clears the filter and title, returning to the full dataset.
func (s *Store) Reset() {
	s.Set("", "")
}

// Read returns a consistent snapshot of the current state.
func (s *Store) Read() ViewState {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.state
}

// Data returns the filtered rows for the current state, computing and caching
// them on first call. The computation runs under the store lock; the engine is
// fast and in-process, so readers block at most briefly during a recompute.
func (s *Store) Data(ctx context.Context) (*dataset.ResultSet, error) {
	s.mu.RLock()
	if d := s.data; d != nil {
		s.mu.RUnlock()
		return d, nil
	}
	s.mu.RUnlock()

	s.mu.Lock()
	defer s.mu.Unlock()
	if s.data != nil {
		return s.data, nil
	}

	query := s.state.Query
	if query == "" {
		query = fmt.Sprintf(`SELECT * FROM "%s"`, s.engine.Table())
	}

	rs, err := s.engine.Query(ctx, query)
	if err != nil {
		// Set only accepts gate-validated queries, so this is unexpected.
		return nil, fmt.Errorf("failed to compute dashboard data: %w", err)
	}
	s.data = rs
	return rs, nil
}
