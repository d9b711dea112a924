// Package dataset implements the embedded query engine: a single immutable
// table loaded from CSV into an in-memory SQLite database, queried with
// arbitrary SQL text.
package dataset

import (
	"context"
	"database/sql"
	"fmt"
	"io"
	"os"

	"go.uber.org/zap"
	_ "modernc.org/sqlite"
)

// ColumnType is the SQL-facing type of a dataset column.
type ColumnType string

const (
	TypeInteger  ColumnType = "INTEGER"
	TypeFloat    ColumnType = "FLOAT"
	TypeDatetime ColumnType = "DATETIME"
	TypeText     ColumnType = "TEXT"
)

// Column describes one column of the loaded table.
type Column struct {
	Name string
	Type ColumnType
}

// Engine holds the fixed table and executes SQL against it. The table is
// written once at load time and read-only afterwards.
type Engine struct {
	db      *sql.DB
	table   string
	columns []Column
	logger  *zap.Logger
}

// Open creates an empty in-memory engine. Use LoadCSV to populate it.
func Open(logger *zap.Logger) (*Engine, error) {
	if logger == nil {
		logger = zap.NewNop()
	}

	db, err := sql.Open("sqlite", ":memory:")
	if err != nil {
		return nil, fmt.Errorf("failed to open database: %w", err)
	}

	// An in-memory database exists per connection; pin the pool to one
	// connection so every query sees the loaded table.
	db.SetMaxOpenConns(1)

	return &Engine{db: db, logger: logger}, nil
}

// OpenCSVFile creates an engine and loads the named CSV file as table.
func OpenCSVFile(path, table string, logger *zap.Logger) (*Engine, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("failed to open dataset: %w", err)
	}
	defer f.Close()

	eng, err := Open(logger)
	if err != nil {
		return nil, err
	}
	if err := eng.LoadCSV(f, table); err != nil {
		eng.Close()
		return nil, err
	}
	return eng, nil
}

// Close releases the underlying database.
func (e *Engine) Close() error {
	return e.db.Close()
}

// Table returns the name of the loaded table.
func (e *Engine) Table() string {
	return e.table
}

// Columns returns the loaded table's columns in definition order.
func (e *Engine) Columns() []Column {
	return append([]Column(nil), e.columns...)
}

// Query executes arbitrary SQL and materializes the full result.
// Execution failures carry the engine's message so callers can surface it
// verbatim to whoever issued the query.
func (e *Engine) Query(ctx context.Context, query string) (*ResultSet, error) {
	rows, err := e.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}
	defer rows.Close()

	columns, err := rows.Columns()
	if err != nil {
		return nil, fmt.Errorf("failed to read result columns: %w", err)
	}

	rs := &ResultSet{Columns: columns}
	for rows.Next() {
		values := make([]any, len(columns))
		scan := make([]any, len(columns))
		for i := range values {
			scan[i] = &values[i]
		}
		if err := rows.Scan(scan...); err != nil {
			return nil, fmt.Errorf("failed to scan row: %w", err)
		}
		for i, v := range values {
			if b, ok := v.([]byte); ok {
				values[i] = string(b)
			}
		}
		rs.Rows = append(rs.Rows, values)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("query failed: %w", err)
	}

	return rs, nil
}

// ensureLoadable guards against double loads; the dataset is immutable for
// the process lifetime.
func (e *Engine) ensureLoadable() error {
	if e.table != "" {
		return fmt.Errorf("table %q already loaded", e.table)
	}
	return nil
}

var _ io.Closer = (*Engine)(nil)
