package dashboard

import (
	"context"
	"sort"
	"strconv"
)

// Column names the derived views aggregate over. Queries that drop these
// columns still render; the affected views degrade to zero values.
const (
	speciesColumn = "bird_name"
	countColumn   = "count"
)

// Summary is the value-box data: totals over the currently filtered rows.
type Summary struct {
	Sightings  int    // number of filtered rows
	TotalBirds int64  // sum of the count column
	MostCommon string // species with the highest summed count
}

// SpeciesCount is one bar of the per-species ranking.
type SpeciesCount struct {
	Name  string
	Count int64
}

// SortDirection orders the species ranking.
type SortDirection string

const (
	SortMost  SortDirection = "most"
	SortLeast SortDirection = "least"
)

// Summary computes the headline aggregates for the current state.
func (s *Store) Summary(ctx context.Context) (Summary, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return Summary{}, err
	}

	out := Summary{Sightings: data.RowCount()}
	if data.RowCount() == 0 {
		return out, nil
	}

	countIdx := data.ColumnIndex(countColumn)
	if countIdx >= 0 {
		for _, row := range data.Rows {
			out.TotalBirds += asInt64(row[countIdx])
		}
	}

	counts := speciesTotals(data.Records())
	best := int64(-1)
	for _, sc := range counts {
		if sc.Count > best {
			best = sc.Count
			out.MostCommon = sc.Name
		}
	}
	return out, nil
}

// TopSpecies returns the n species with the most (or least) summed counts.
func (s *Store) TopSpecies(ctx context.Context, n int, direction SortDirection) ([]SpeciesCount, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}

	counts := speciesTotals(data.Records())
	sort.SliceStable(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			if direction == SortLeast {
				return counts[i].Count < counts[j].Count
			}
			return counts[i].Count > counts[j].Count
		}
		return counts[i].Name < counts[j].Name
	})

	if n > 0 && len(counts) > n {
		counts = counts[:n]
	}
	return counts, nil
}

// speciesTotals sums the count column per species, preserving first-appearance
// order for deterministic tie handling.
func speciesTotals(records []map[string]any) []SpeciesCount {
	totals := make(map[string]int64)
	var order []string

	for _, rec := range records {
		name, ok := rec[speciesColumn].(string)
		if !ok {
			continue
		}
		if _, seen := totals[name]; !seen {
			order = append(order, name)
		}
		totals[name] += asInt64(rec[countColumn])
	}

	out := make([]SpeciesCount, 0, len(order))
	for _, name := range order {
		out = append(out, SpeciesCount{Name: name, Count: totals[name]})
	}
	return out
}

func asInt64(v any) int64 {
	switch x := v.(type) {
	case int64:
		return x
	case int:
		return int64(x)
	case float64:
		return int64(x)
	case string:
		if n, err := strconv.ParseInt(x, 10, 64); err == nil {
			return n
		}
	}
	return 0
}

func asFloat64(v any) (float64, bool) {
	switch x := v.(type) {
	case float64:
		return x, true
	case int64:
		return float64(x), true
	case int:
		return float64(x), true
	case string:
		if f, err := strconv.ParseFloat(x, 64); err == nil {
			return f, true
		}
	}
	return 0, false
}
