package domain

import "fmt"

// MetricKind identifies which hazard measurement drives an exposure decision.
// Each kind carries its own threshold direction: wind and rain exposures are
// "at least" comparisons, distance is "within" (at most).
type MetricKind string

const (
	MetricWind     MetricKind = "wind"
	MetricRain     MetricKind = "rain"
	MetricDistance MetricKind = "distance"
)

// ParseMetricKind validates a metric name from caller input.
func ParseMetricKind(s string) (MetricKind, error) {
	switch MetricKind(s) {
	case MetricWind, MetricRain, MetricDistance:
		return MetricKind(s), nil
	default:
		return "", fmt.Errorf("unknown metric %q: want wind, rain, or distance", s)
	}
}

func (m MetricKind) String() string { return string(m) }

// Meets reports whether a value passes the threshold for this metric.
// Boundaries are inclusive in both directions: a wind speed exactly at the
// limit is exposed, and a distance exactly at the limit is within range.
func (m MetricKind) Meets(value, threshold float64) bool {
	if m == MetricDistance {
		return value <= threshold
	}
	return value >= threshold
}

// WindVar selects which wind column drives the threshold decision.
// Both columns are always reported; only the comparison changes.
type WindVar string

const (
	WindSustained WindVar = "vmax_sust"
	WindGust      WindVar = "vmax_gust"
)

// ParseWindVar validates a wind variable name; empty defaults to sustained.
func ParseWindVar(s string) (WindVar, error) {
	switch WindVar(s) {
	case WindSustained, WindGust:
		return WindVar(s), nil
	case "":
		return WindSustained, nil
	default:
		return "", fmt.Errorf("unknown wind variable %q: want vmax_sust or vmax_gust", s)
	}
}

// Value returns the wind column this variable selects.
func (v WindVar) Value(rec WindRecord) float64 {
	if v == WindGust {
		return rec.MaxGust
	}
	return rec.MaxSustained
}
