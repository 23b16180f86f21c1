package exposure

import (
	"fmt"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// Offsets outside this range fall outside the dataset's coverage window.
const (
	minRainOffset = -3
	maxRainOffset = 3
)

// InvalidWindowError indicates a requested rain day-offset outside the
// supported coverage window.
type InvalidWindowError struct {
	Offset int
}

func (e *InvalidWindowError) Error() string {
	return fmt.Sprintf("rain window offset %d outside [%d, %d]", e.Offset, minRainOffset, maxRainOffset)
}

// DefaultRainDays returns the full supported window, -3 through +3.
func DefaultRainDays() []int {
	return []int{-3, -2, -1, 0, 1, 2, 3}
}

// ValidateRainDays fails fast on any offset outside the supported window,
// before any data is touched.
func ValidateRainDays(days []int) error {
	for _, d := range days {
		if d < minRainOffset || d > maxRainOffset {
			return &InvalidWindowError{Offset: d}
		}
	}
	return nil
}

// RainTotal is the windowed precipitation sum for one (storm, county) pair.
type RainTotal struct {
	StormID  string
	FIPS     string
	PrecipMM float64
}

// AggregateRain sums daily precipitation over the requested day-offset window
// for every (storm, county) group in the input. The offset of each daily row
// is its date minus the group's closest-approach date, in whole days. Days
// missing from the input contribute zero, so storms near the edge of the
// coverage window still aggregate. Every group present in the input yields
// exactly one total, threshold or not; groups appear in first-seen order.
func AggregateRain(daily []domain.RainRecord, daysIncluded []int) ([]RainTotal, error) {
	if err := ValidateRainDays(daysIncluded); err != nil {
		return nil, err
	}

	included := make(map[int]bool, len(daysIncluded))
	for _, d := range daysIncluded {
		included[d] = true
	}

	type groupKey struct {
		stormID string
		fips    string
	}

	index := make(map[groupKey]int, len(daily)/7+1)
	totals := make([]RainTotal, 0, len(daily)/7+1)

	for _, rec := range daily {
		key := groupKey{stormID: rec.StormID, fips: rec.FIPS}
		i, ok := index[key]
		if !ok {
			i = len(totals)
			index[key] = i
			totals = append(totals, RainTotal{StormID: rec.StormID, FIPS: rec.FIPS})
		}

		offset := int(rec.Date.Sub(rec.ClosestDate).Hours() / 24)
		if included[offset] {
			totals[i].PrecipMM += rec.PrecipMM
		}
	}

	return totals, nil
}
