// Package prompt builds the system prompt from an embedded template and the
// live dataset schema.
package prompt

import (
	"context"
	_ "embed"
	"fmt"
	"strings"

	"sidebot/internal/dataset"
)

//go:embed prompt.md
var template string

// schemaPlaceholder marks where the rendered schema is spliced into the
// template.
const schemaPlaceholder = "${SCHEMA}"

// speciesColumns are appended to the prompt as a distinct-values CSV so the
// model can resolve common names without probing the database first.
var speciesColumns = []string{"bird_name", "scientific_name"}

// System renders the full system prompt: the template with the engine's
// schema spliced in, plus the species list when the dataset has the columns
// for it.
func System(ctx context.Context, engine *dataset.Engine) (string, error) {
	schema, err := engine.SchemaPrompt(ctx, dataset.DefaultCategoricalThreshold)
	if err != nil {
		return "", fmt.Errorf("rendering schema: %w", err)
	}

	rendered := strings.ReplaceAll(template, schemaPlaceholder, schema)

	if hasColumns(engine, speciesColumns) {
		species, err := engine.DistinctCSV(ctx, speciesColumns)
		if err != nil {
			return "", fmt.Errorf("listing species: %w", err)
		}
		rendered += "\n\nHere is a list of all available birds in the dataset:\n\n" + species
	}
	return rendered, nil
}

func hasColumns(engine *dataset.Engine, names []string) bool {
	for _, name := range names {
		found := false
		for _, col := range engine.Columns() {
			if col.Name == name {
				found = true
				break
			}
		}
		if !found {
			return false
		}
	}
	return true
}
