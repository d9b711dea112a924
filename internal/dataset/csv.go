package dataset

import (
	"encoding/csv"
	"fmt"
	"io"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"
)

// datetimeLayouts are the accepted datetime forms, most specific first.
var datetimeLayouts = []string{
	"2006-01-02T15:04:05",
	"2006-01-02 15:04:05",
	"2006-01-02",
}

// LoadCSV reads the CSV stream and materializes it as the engine's single
// table. Column types are inferred from the data. If the CSV carries separate
// `date` and `time` columns they are merged into one DATETIME `time` column,
// matching how the sightings feed is shaped.
func (e *Engine) LoadCSV(r io.Reader, table string) error {
	if err := e.ensureLoadable(); err != nil {
		return err
	}
	if table == "" {
		return fmt.Errorf("table name cannot be empty")
	}

	reader := csv.NewReader(r)
	records, err := reader.ReadAll()
	if err != nil {
		return fmt.Errorf("failed to parse CSV: %w", err)
	}
	if len(records) == 0 {
		return fmt.Errorf("CSV has no header row")
	}

	header := records[0]
	data := records[1:]

	header, data = mergeDateTime(header, data)

	types := make([]ColumnType, len(header))
	for i := range header {
		types[i] = inferColumnType(data, i)
	}

	columns := make([]Column, len(header))
	for i, name := range header {
		columns[i] = Column{Name: name, Type: types[i]}
	}

	if err := e.createAndFill(table, columns, data); err != nil {
		return err
	}

	// The dataset never changes after load; refuse writes at the engine.
	if _, err := e.db.Exec("PRAGMA query_only = ON"); err != nil {
		return fmt.Errorf("failed to mark database read-only: %w", err)
	}

	e.table = table
	e.columns = columns
	e.logger.Info("dataset loaded",
		zap.String("table", table),
		zap.Int("rows", len(data)),
		zap.Int("columns", len(columns)))
	return nil
}

func (e *Engine) createAndFill(table string, columns []Column, data [][]string) error {
	var ddl strings.Builder
	ddl.WriteString(`CREATE TABLE "` + table + `" (`)
	for i, col := range columns {
		if i > 0 {
			ddl.WriteString(", ")
		}
		ddl.WriteString(`"` + col.Name + `" ` + string(col.Type))
	}
	ddl.WriteString(")")

	tx, err := e.db.Begin()
	if err != nil {
		return fmt.Errorf("failed to begin load transaction: %w", err)
	}
	defer tx.Rollback()

	if _, err := tx.Exec(ddl.String()); err != nil {
		return fmt.Errorf("failed to create table: %w", err)
	}

	placeholders := strings.TrimSuffix(strings.Repeat("?,", len(columns)), ",")
	stmt, err := tx.Prepare(`INSERT INTO "` + table + `" VALUES (` + placeholders + `)`)
	if err != nil {
		return fmt.Errorf("failed to prepare insert: %w", err)
	}
	defer stmt.Close()

	for _, record := range data {
		if len(record) != len(columns) {
			return fmt.Errorf("row has %d fields, want %d", len(record), len(columns))
		}
		args := make([]any, len(record))
		for i, field := range record {
			args[i] = convertField(field, columns[i].Type)
		}
		if _, err := stmt.Exec(args...); err != nil {
			return fmt.Errorf("failed to insert row: %w", err)
		}
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit load: %w", err)
	}
	return nil
}

// mergeDateTime combines separate date and time columns into a single ISO8601
// time column. Other headers pass through untouched.
func mergeDateTime(header []string, data [][]string) ([]string, [][]string) {
	dateIdx, timeIdx := -1, -1
	for i, name := range header {
		switch name {
		case "date":
			dateIdx = i
		case "time":
			timeIdx = i
		}
	}
	if dateIdx < 0 || timeIdx < 0 {
		return header, data
	}

	newHeader := make([]string, 0, len(header)-1)
	for i, name := range header {
		if i == dateIdx {
			continue
		}
		newHeader = append(newHeader, name)
	}

	newData := make([][]string, len(data))
	for r, record := range data {
		merged := record[dateIdx] + "T" + record[timeIdx]
		row := make([]string, 0, len(record)-1)
		for i, field := range record {
			switch i {
			case dateIdx:
				continue
			case timeIdx:
				row = append(row, merged)
			default:
				row = append(row, field)
			}
		}
		newData[r] = row
	}
	return newHeader, newData
}

// inferColumnType picks the narrowest type that fits every non-empty value.
func inferColumnType(data [][]string, col int) ColumnType {
	isInt, isFloat, isDatetime := true, true, true
	seen := false

	for _, record := range data {
		field := strings.TrimSpace(record[col])
		if field == "" {
			continue
		}
		seen = true

		if isInt {
			if _, err := strconv.ParseInt(field, 10, 64); err != nil {
				isInt = false
			}
		}
		if isFloat {
			if _, err := strconv.ParseFloat(field, 64); err != nil {
				isFloat = false
			}
		}
		if isDatetime {
			if !parsesAsDatetime(field) {
				isDatetime = false
			}
		}
		if !isInt && !isFloat && !isDatetime {
			return TypeText
		}
	}

	switch {
	case !seen:
		return TypeText
	case isInt:
		return TypeInteger
	case isFloat:
		return TypeFloat
	case isDatetime:
		return TypeDatetime
	default:
		return TypeText
	}
}

func parsesAsDatetime(field string) bool {
	for _, layout := range datetimeLayouts {
		if _, err := time.Parse(layout, field); err == nil {
			return true
		}
	}
	return false
}

// convertField maps a CSV field to the Go value inserted for the column type.
// Empty fields become NULL.
func convertField(field string, typ ColumnType) any {
	field = strings.TrimSpace(field)
	if field == "" {
		return nil
	}
	switch typ {
	case TypeInteger:
		if v, err := strconv.ParseInt(field, 10, 64); err == nil {
			return v
		}
	case TypeFloat:
		if v, err := strconv.ParseFloat(field, 64); err == nil {
			return v
		}
	}
	return field
}
