package exposure

import (
	"context"
	"fmt"
	"log/slog"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/observability"
)

// Engine runs exposure queries against a hazard source. It is stateless
// across calls: every query is an independent in-memory transform over the
// source's records.
type Engine struct {
	source  HazardSource
	logger  *slog.Logger
	metrics *observability.Metrics
}

// NewEngine creates an Engine with the given source and observability.
func NewEngine(source HazardSource, logger *slog.Logger, metrics *observability.Metrics) *Engine {
	return &Engine{
		source:  source,
		logger:  logger,
		metrics: metrics,
	}
}

// CountyRequest describes an exposure query over a flat set of counties.
type CountyRequest struct {
	FIPS      []string
	StartYear int
	EndYear   int
	Threshold float64
	Metric    domain.MetricKind

	// WindVar selects the threshold-driving wind column. Zero value means
	// sustained. Wind queries only.
	WindVar domain.WindVar

	// RainDays is the signed day-offset window around closest approach.
	// Nil means the full ±3 window. Rain queries only.
	RainDays []int

	// DistanceLimit, when set on a rain query, additionally requires the
	// storm's closest approach to be within this many km and adds a
	// distance column to the output.
	DistanceLimit *float64
}

// CommunityRequest describes an exposure query over named county groups.
type CommunityRequest struct {
	Assignments   []domain.CommunityAssignment
	StartYear     int
	EndYear       int
	Threshold     float64
	Metric        domain.MetricKind
	WindVar       domain.WindVar
	RainDays      []int
	DistanceLimit *float64
}

// pairKey identifies a (storm, location) group.
type pairKey struct {
	stormID string
	loc     string
}

// CountyMetric returns one row per (county, storm) pair meeting the
// threshold. An empty table is a legitimate result, not an error.
func (e *Engine) CountyMetric(ctx context.Context, req CountyRequest) (*Table, error) {
	start := time.Now()
	table, err := e.countyMetric(ctx, req)
	e.observe("county", req.Metric, start, table, err)
	return table, err
}

// CommunityMetric returns one row per (community, storm) pair whose
// worst-hit member county meets the threshold.
func (e *Engine) CommunityMetric(ctx context.Context, req CommunityRequest) (*Table, error) {
	start := time.Now()
	table, err := e.communityMetric(ctx, req)
	e.observe("community", req.Metric, start, table, err)
	return table, err
}

func (e *Engine) countyMetric(ctx context.Context, req CountyRequest) (*Table, error) {
	locs, err := domain.ResolveCounties(req.FIPS)
	if err != nil {
		return nil, err
	}

	switch req.Metric {
	case domain.MetricWind:
		return e.countyWind(ctx, locs, req)
	case domain.MetricRain:
		return e.countyRain(ctx, locs, req)
	case domain.MetricDistance:
		return e.countyDistance(ctx, locs, req)
	default:
		return nil, fmt.Errorf("unknown metric %q", req.Metric)
	}
}

func (e *Engine) countyWind(ctx context.Context, locs domain.LocationSet, req CountyRequest) (*Table, error) {
	recs, err := e.source.Wind(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("query wind records: %w", err)
	}
	recs, err = FilterWind(recs, locs, req.StartYear, req.EndYear)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		if !req.Metric.Meets(req.WindVar.Value(r), req.Threshold) {
			continue
		}
		rows = append(rows, Row{
			Loc:          r.FIPS,
			StormID:      r.StormID,
			MaxSustained: r.MaxSustained,
			MaxGust:      r.MaxGust,
		})
	}
	return NewTable(domain.MetricWind, false, false, rows), nil
}

func (e *Engine) countyRain(ctx context.Context, locs domain.LocationSet, req CountyRequest) (*Table, error) {
	days := req.RainDays
	if len(days) == 0 {
		days = DefaultRainDays()
	}
	// Validate the window before touching any data.
	if err := ValidateRainDays(days); err != nil {
		return nil, err
	}

	daily, err := e.source.Rain(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("query rain records: %w", err)
	}
	daily, err = FilterRain(daily, locs, req.StartYear, req.EndYear)
	if err != nil {
		return nil, err
	}

	totals, err := AggregateRain(daily, days)
	if err != nil {
		return nil, err
	}

	var dist map[pairKey]float64
	if req.DistanceLimit != nil {
		dist, err = e.distanceIndex(ctx, locs, req.StartYear, req.EndYear)
		if err != nil {
			return nil, err
		}
	}

	rows := make([]Row, 0, len(totals))
	for _, tot := range totals {
		if !domain.MetricRain.Meets(tot.PrecipMM, req.Threshold) {
			continue
		}
		row := Row{Loc: tot.FIPS, StormID: tot.StormID, PrecipMM: tot.PrecipMM}
		if req.DistanceLimit != nil {
			d, ok := dist[pairKey{stormID: tot.StormID, loc: tot.FIPS}]
			if !ok || d > *req.DistanceLimit {
				continue
			}
			row.DistanceKM = d
		}
		rows = append(rows, row)
	}
	return NewTable(domain.MetricRain, false, req.DistanceLimit != nil, rows), nil
}

func (e *Engine) countyDistance(ctx context.Context, locs domain.LocationSet, req CountyRequest) (*Table, error) {
	recs, err := e.source.Distance(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("query distance records: %w", err)
	}
	recs, err = FilterDistance(recs, locs, req.StartYear, req.EndYear)
	if err != nil {
		return nil, err
	}

	rows := make([]Row, 0, len(recs))
	for _, r := range recs {
		if !req.Metric.Meets(r.DistanceKM, req.Threshold) {
			continue
		}
		rows = append(rows, Row{Loc: r.FIPS, StormID: r.StormID, DistanceKM: r.DistanceKM})
	}
	return NewTable(domain.MetricDistance, false, false, rows), nil
}

func (e *Engine) communityMetric(ctx context.Context, req CommunityRequest) (*Table, error) {
	communities, err := domain.ResolveCommunities(req.Assignments)
	if err != nil {
		return nil, err
	}
	locs := communities.Counties()
	hasDist := req.Metric == domain.MetricRain && req.DistanceLimit != nil

	values, err := e.countyValues(ctx, locs, req)
	if err != nil {
		return nil, err
	}
	rolled := AggregateCommunity(values, communities)

	var minDist map[pairKey]float64
	if hasDist {
		idx, err := e.distanceIndex(ctx, locs, req.StartYear, req.EndYear)
		if err != nil {
			return nil, err
		}
		minDist = minDistanceByCommunity(idx, communities)
	}

	rows := make([]Row, 0, len(rolled))
	for _, c := range rolled {
		if !req.Metric.Meets(c.Max, req.Threshold) {
			continue
		}
		row := Row{
			Loc:       c.Community,
			StormID:   c.StormID,
			MeanValue: c.Mean,
			MaxValue:  c.Max,
		}
		if hasDist {
			d, ok := minDist[pairKey{stormID: c.StormID, loc: c.Community}]
			if !ok || d > *req.DistanceLimit {
				continue
			}
			row.DistanceKM = d
		}
		rows = append(rows, row)
	}
	return NewTable(req.Metric, true, hasDist, rows), nil
}

// countyValues produces the unthresholded per-county scalar values feeding
// community roll-up. The threshold is applied only at the community level so
// the reported mean covers every member county, exposed or not.
func (e *Engine) countyValues(ctx context.Context, locs domain.LocationSet, req CommunityRequest) ([]CountyValue, error) {
	switch req.Metric {
	case domain.MetricWind:
		recs, err := e.source.Wind(ctx, locs)
		if err != nil {
			return nil, fmt.Errorf("query wind records: %w", err)
		}
		recs, err = FilterWind(recs, locs, req.StartYear, req.EndYear)
		if err != nil {
			return nil, err
		}
		values := make([]CountyValue, 0, len(recs))
		for _, r := range recs {
			values = append(values, CountyValue{FIPS: r.FIPS, StormID: r.StormID, Value: req.WindVar.Value(r)})
		}
		return values, nil

	case domain.MetricRain:
		days := req.RainDays
		if len(days) == 0 {
			days = DefaultRainDays()
		}
		if err := ValidateRainDays(days); err != nil {
			return nil, err
		}
		daily, err := e.source.Rain(ctx, locs)
		if err != nil {
			return nil, fmt.Errorf("query rain records: %w", err)
		}
		daily, err = FilterRain(daily, locs, req.StartYear, req.EndYear)
		if err != nil {
			return nil, err
		}
		totals, err := AggregateRain(daily, days)
		if err != nil {
			return nil, err
		}
		values := make([]CountyValue, 0, len(totals))
		for _, tot := range totals {
			values = append(values, CountyValue{FIPS: tot.FIPS, StormID: tot.StormID, Value: tot.PrecipMM})
		}
		return values, nil

	case domain.MetricDistance:
		recs, err := e.source.Distance(ctx, locs)
		if err != nil {
			return nil, fmt.Errorf("query distance records: %w", err)
		}
		recs, err = FilterDistance(recs, locs, req.StartYear, req.EndYear)
		if err != nil {
			return nil, err
		}
		values := make([]CountyValue, 0, len(recs))
		for _, r := range recs {
			values = append(values, CountyValue{FIPS: r.FIPS, StormID: r.StormID, Value: r.DistanceKM})
		}
		return values, nil

	default:
		return nil, fmt.Errorf("unknown metric %q", req.Metric)
	}
}

// distanceIndex maps (storm, county) to closest-approach distance for the
// rain+distance joint rule.
func (e *Engine) distanceIndex(ctx context.Context, locs domain.LocationSet, startYear, endYear int) (map[pairKey]float64, error) {
	recs, err := e.source.Distance(ctx, locs)
	if err != nil {
		return nil, fmt.Errorf("query distance records: %w", err)
	}
	recs, err = FilterDistance(recs, locs, startYear, endYear)
	if err != nil {
		return nil, err
	}
	idx := make(map[pairKey]float64, len(recs))
	for _, r := range recs {
		idx[pairKey{stormID: r.StormID, loc: r.FIPS}] = r.DistanceKM
	}
	return idx, nil
}

func (e *Engine) observe(scope string, metric domain.MetricKind, start time.Time, table *Table, err error) {
	outcome := "ok"
	switch {
	case err != nil:
		outcome = "error"
	case table.Empty():
		outcome = "empty"
	}
	e.metrics.QueriesTotal.WithLabelValues(metric.String(), scope, outcome).Inc()
	e.metrics.QueryDuration.WithLabelValues(metric.String()).Observe(time.Since(start).Seconds())

	if err != nil {
		e.logger.Error("exposure query failed", "scope", scope, "metric", metric.String(), "error", err)
		return
	}
	e.metrics.RowsReturned.Observe(float64(len(table.Rows)))
	if table.Empty() {
		// Not an error: no storm ever met the threshold for these locations.
		e.logger.Info("exposure query returned no rows", "scope", scope, "metric", metric.String())
		return
	}
	e.logger.Info("exposure query complete",
		"scope", scope,
		"metric", metric.String(),
		"rows", len(table.Rows),
		"storms", table.StormCount(),
		"duration", time.Since(start),
	)
}
