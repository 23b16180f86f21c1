package exposure

import (
	"context"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

// HazardSource supplies hazard records for a set of counties. Implementations
// return fully materialized record sets in a stable order; the engine never
// mutates them. Records for counties outside the requested set are omitted.
type HazardSource interface {
	Wind(ctx context.Context, locs domain.LocationSet) ([]domain.WindRecord, error)
	Rain(ctx context.Context, locs domain.LocationSet) ([]domain.RainRecord, error)
	Distance(ctx context.Context, locs domain.LocationSet) ([]domain.DistanceRecord, error)
}
