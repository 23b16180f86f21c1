package domain

import (
	"fmt"
	"strconv"
	"strings"
	"time"
)

// WindRecord is one storm's peak wind observation for a county.
type WindRecord struct {
	StormID      string  `json:"storm_id"`
	FIPS         string  `json:"fips"`
	MaxSustained float64 `json:"vmax_sust"`
	MaxGust      float64 `json:"vmax_gust"`
}

// RainRecord is one calendar day of precipitation for a (storm, county)
// pair. ClosestDate is the storm's closest-approach date for that county and
// is identical across all rows sharing (StormID, FIPS).
type RainRecord struct {
	StormID     string    `json:"storm_id"`
	FIPS        string    `json:"fips"`
	Date        time.Time `json:"date"`
	PrecipMM    float64   `json:"precip_mm"`
	ClosestDate time.Time `json:"closest_date"`
}

// DistanceRecord is the closest approach of a storm's track to a county.
type DistanceRecord struct {
	StormID    string  `json:"storm_id"`
	FIPS       string  `json:"fips"`
	DistanceKM float64 `json:"dist_km"`
}

// MalformedStormIDError indicates a storm identifier without a parseable
// year suffix. It aborts processing of the whole record set: a single bad
// identifier means the source data cannot be trusted.
type MalformedStormIDError struct {
	StormID string
}

func (e *MalformedStormIDError) Error() string {
	return fmt.Sprintf("malformed storm id %q: expected \"<Name>-<Year>\"", e.StormID)
}

// StormYear extracts the year from a "<Name>-<Year>" storm identifier.
// Everything up to and including the last hyphen is the name.
func StormYear(stormID string) (int, error) {
	i := strings.LastIndexByte(stormID, '-')
	if i < 0 {
		return 0, &MalformedStormIDError{StormID: stormID}
	}
	year, err := strconv.Atoi(stormID[i+1:])
	if err != nil {
		return 0, &MalformedStormIDError{StormID: stormID}
	}
	return year, nil
}

// StormName returns the name portion of a "<Name>-<Year>" identifier, or the
// whole identifier if it has no year suffix.
func StormName(stormID string) string {
	i := strings.LastIndexByte(stormID, '-')
	if i < 0 {
		return stormID
	}
	return stormID[:i]
}
