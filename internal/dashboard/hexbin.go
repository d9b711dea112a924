package dashboard

import (
	"context"
	"math"
	"sort"
)

// Geospatial column names expected in the filtered data.
const (
	latitudeColumn  = "latitude"
	longitudeColumn = "longitude"
)

// BinMetric selects what a location bin aggregates.
type BinMetric string

const (
	// MetricSightings counts filtered rows per bin.
	MetricSightings BinMetric = "sightings"
	// MetricBirds sums the count column per bin.
	MetricBirds BinMetric = "birds"
)

// LocationBin is one hexagonal cell of the location map, identified by its
// center coordinates.
type LocationBin struct {
	Latitude  float64
	Longitude float64
	Value     float64
}

// LocationBins buckets the filtered rows into a pointy-top hexagonal grid with
// roughly detail cells across the longitude span. Rows without usable
// coordinates are skipped. Bins are returned sorted by descending value.
func (s *Store) LocationBins(ctx context.Context, detail int, metric BinMetric) ([]LocationBin, error) {
	data, err := s.Data(ctx)
	if err != nil {
		return nil, err
	}
	if detail <= 0 {
		detail = 30
	}

	latIdx := data.ColumnIndex(latitudeColumn)
	lonIdx := data.ColumnIndex(longitudeColumn)
	if latIdx < 0 || lonIdx < 0 || data.RowCount() == 0 {
		return nil, nil
	}

	countIdx := data.ColumnIndex(countColumn)

	minLon, maxLon := math.Inf(1), math.Inf(-1)
	type point struct {
		lat, lon, weight float64
	}
	points := make([]point, 0, data.RowCount())
	for _, row := range data.Rows {
		lat, okLat := asFloat64(row[latIdx])
		lon, okLon := asFloat64(row[lonIdx])
		if !okLat || !okLon {
			continue
		}
		weight := 1.0
		if metric == MetricBirds && countIdx >= 0 {
			weight = float64(asInt64(row[countIdx]))
		}
		points = append(points, point{lat: lat, lon: lon, weight: weight})
		minLon = math.Min(minLon, lon)
		maxLon = math.Max(maxLon, lon)
	}
	if len(points) == 0 {
		return nil, nil
	}

	size := (maxLon - minLon) / float64(detail)
	if size <= 0 {
		size = 1e-6
	}

	type axial struct{ q, r int }
	bins := make(map[axial]*LocationBin)
	for _, p := range points {
		q, r := hexRound(
			(math.Sqrt(3)/3*p.lon-1.0/3*p.lat)/size,
			(2.0/3*p.lat)/size,
		)
		key := axial{q: q, r: r}
		bin, ok := bins[key]
		if !ok {
			bin = &LocationBin{
				Longitude: size * math.Sqrt(3) * (float64(q) + float64(r)/2),
				Latitude:  size * 1.5 * float64(r),
			}
			bins[key] = bin
		}
		bin.Value += p.weight
	}

	out := make([]LocationBin, 0, len(bins))
	for _, bin := range bins {
		out = append(out, *bin)
	}
	sort.Slice(out, func(i, j int) bool {
		if out[i].Value != out[j].Value {
			return out[i].Value > out[j].Value
		}
		if out[i].Latitude != out[j].Latitude {
			return out[i].Latitude < out[j].Latitude
		}
		return out[i].Longitude < out[j].Longitude
	})
	return out, nil
}

// hexRound snaps fractional axial coordinates to the nearest hex cell using
// cube rounding.
func hexRound(qf, rf float64) (int, int) {
	sf := -qf - rf

	q := math.Round(qf)
	r := math.Round(rf)
	s := math.Round(sf)

	dq := math.Abs(q - qf)
	dr := math.Abs(r - rf)
	ds := math.Abs(s - sf)

	switch {
	case dq > dr && dq > ds:
		q = -r - s
	case dr > ds:
		r = -q - s
	}
	return int(q), int(r)
}
