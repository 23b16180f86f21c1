package exposure

import (
	"sort"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// Row is one exposure: a location/storm pair that passed every filter.
// Loc is the uniform grouping key (county FIPS or community name) so
// consumers never branch on location kind. Only the fields named by the
// table's Columns carry meaning for a given metric; the rest stay zero.
type Row struct {
	Loc     string `json:"loc"`
	StormID string `json:"storm_id"`

	// County wind columns.
	MaxSustained float64 `json:"vmax_sust"`
	MaxGust      float64 `json:"vmax_gust"`

	// County rain column.
	PrecipMM float64 `json:"precip_mm"`

	// Distance column: county distance queries, and rain queries with a
	// distance limit (min member distance for communities).
	DistanceKM float64 `json:"dist_km"`

	// Community roll-up columns.
	MeanValue float64 `json:"mean_value"`
	MaxValue  float64 `json:"max_value"`
}

// Table is the normalized exposure result for one query. Rows are sorted by
// (Loc, StormID) with no duplicate pairs, so identical queries against an
// unchanged source serialize identically.
type Table struct {
	Metric      domain.MetricKind `json:"metric"`
	Community   bool              `json:"community"`
	HasDistance bool              `json:"has_distance"`
	GeneratedAt time.Time         `json:"generated_at"`
	Rows        []Row             `json:"rows"`
}

// NewTable assembles a sorted exposure table stamped with the current time.
func NewTable(metric domain.MetricKind, community, hasDistance bool, rows []Row) *Table {
	sort.Slice(rows, func(i, j int) bool {
		if rows[i].Loc != rows[j].Loc {
			return rows[i].Loc < rows[j].Loc
		}
		return rows[i].StormID < rows[j].StormID
	})
	return &Table{
		Metric:      metric,
		Community:   community,
		HasDistance: hasDistance,
		GeneratedAt: domain.Now().UTC(),
		Rows:        rows,
	}
}

// Empty reports whether the query matched no exposures. An empty table is a
// legitimate result, not an error.
func (t *Table) Empty() bool { return len(t.Rows) == 0 }

// Columns returns the header for this table's metric and location kind.
func (t *Table) Columns() []string {
	cols := []string{"loc", "storm_id"}
	switch {
	case t.Community:
		cols = append(cols, "mean_value", "max_value")
		if t.HasDistance {
			cols = append(cols, "min_dist_km")
		}
	case t.Metric == domain.MetricWind:
		cols = append(cols, "vmax_sust", "vmax_gust")
	case t.Metric == domain.MetricRain:
		cols = append(cols, "precip_mm")
		if t.HasDistance {
			cols = append(cols, "dist_km")
		}
	default: // distance
		cols = append(cols, "dist_km")
	}
	return cols
}

// Records renders rows as strings aligned with Columns, ready for CSV.
func (t *Table) Records() [][]string {
	cols := t.Columns()
	recs := make([][]string, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make([]string, 0, len(cols))
		for _, col := range cols {
			rec = append(rec, row.cell(col))
		}
		recs = append(recs, rec)
	}
	return recs
}

func (r Row) cell(col string) string {
	switch col {
	case "loc":
		return r.Loc
	case "storm_id":
		return r.StormID
	case "vmax_sust":
		return formatValue(r.MaxSustained)
	case "vmax_gust":
		return formatValue(r.MaxGust)
	case "precip_mm":
		return formatValue(r.PrecipMM)
	case "dist_km", "min_dist_km":
		return formatValue(r.DistanceKM)
	case "mean_value":
		return formatValue(r.MeanValue)
	case "max_value":
		return formatValue(r.MaxValue)
	default:
		return ""
	}
}

func formatValue(v float64) string {
	return strconv.FormatFloat(v, 'g', -1, 64)
}

// Locs returns the distinct locations in the table, sorted.
func (t *Table) Locs() []string {
	var locs []string
	for _, row := range t.Rows {
		if len(locs) == 0 || locs[len(locs)-1] != row.Loc {
			locs = append(locs, row.Loc)
		}
	}
	return locs
}

// PartitionByLoc splits the table into one sub-table per distinct location,
// sorted by location. Partitions share the parent's metadata and timestamp;
// concatenating them reproduces the parent's row set exactly.
func (t *Table) PartitionByLoc() []*Table {
	parts := make([]*Table, 0)
	for _, loc := range t.Locs() {
		part := &Table{
			Metric:      t.Metric,
			Community:   t.Community,
			HasDistance: t.HasDistance,
			GeneratedAt: t.GeneratedAt,
		}
		for _, row := range t.Rows {
			if row.Loc == loc {
				part.Rows = append(part.Rows, row)
			}
		}
		parts = append(parts, part)
	}
	return parts
}

// StormCount returns the number of distinct storms appearing in the table.
func (t *Table) StormCount() int {
	storms := make(map[string]bool, len(t.Rows))
	for _, row := range t.Rows {
		storms[row.StormID] = true
	}
	return len(storms)
}
