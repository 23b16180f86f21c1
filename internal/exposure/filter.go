package exposure

import (
	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// filterRecords keeps records whose county is in locs and whose storm year
// falls inside the inclusive [startYear, endYear] range. Input order is
// preserved. A storm identifier without a parseable year aborts the whole
// filter: one bad identifier means the record set is suspect.
func filterRecords[T any](recs []T, key func(T) (stormID, fips string), locs domain.LocationSet, startYear, endYear int) ([]T, error) {
	out := make([]T, 0, len(recs))
	for _, r := range recs {
		stormID, fips := key(r)
		if !locs.Has(fips) {
			continue
		}
		year, err := domain.StormYear(stormID)
		if err != nil {
			return nil, err
		}
		if year < startYear || year > endYear {
			continue
		}
		out = append(out, r)
	}
	return out, nil
}

// FilterWind restricts wind records to a location set and year range.
func FilterWind(recs []domain.WindRecord, locs domain.LocationSet, startYear, endYear int) ([]domain.WindRecord, error) {
	return filterRecords(recs, func(r domain.WindRecord) (string, string) {
		return r.StormID, r.FIPS
	}, locs, startYear, endYear)
}

// FilterRain restricts daily rain records to a location set and year range.
func FilterRain(recs []domain.RainRecord, locs domain.LocationSet, startYear, endYear int) ([]domain.RainRecord, error) {
	return filterRecords(recs, func(r domain.RainRecord) (string, string) {
		return r.StormID, r.FIPS
	}, locs, startYear, endYear)
}

// FilterDistance restricts distance records to a location set and year range.
func FilterDistance(recs []domain.DistanceRecord, locs domain.LocationSet, startYear, endYear int) ([]domain.DistanceRecord, error) {
	return filterRecords(recs, func(r domain.DistanceRecord) (string, string) {
		return r.StormID, r.FIPS
	}, locs, startYear, endYear)
}
