// Package catalog loads the hazard dataset from CSV files into an in-memory
// HazardSource. The dataset is static for the life of the process: load once,
// query many times.
package catalog

import (
	"context"
	"encoding/csv"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
)

const (
	windFile     = "wind.csv"
	rainFile     = "rain.csv"
	distanceFile = "distance.csv"

	dateLayout = "2006-01-02"
)

// Catalog is a read-only, in-memory hazard record store indexed by county.
// It implements exposure.HazardSource.
type Catalog struct {
	wind map[string][]domain.WindRecord
	rain map[string][]domain.RainRecord
	dist map[string][]domain.DistanceRecord

	windCount int
	rainCount int
	distCount int
}

// Load reads wind.csv, rain.csv, and distance.csv from dir. All three files
// must exist; a malformed row fails the whole load since a partially loaded
// catalog would silently produce wrong exposure histories.
func Load(dir string, logger *slog.Logger) (*Catalog, error) {
	c := &Catalog{
		wind: make(map[string][]domain.WindRecord),
		rain: make(map[string][]domain.RainRecord),
		dist: make(map[string][]domain.DistanceRecord),
	}

	if err := readCSV(filepath.Join(dir, windFile), []string{"storm_id", "fips", "vmax_sust", "vmax_gust"}, func(fields []string) error {
		sust, err := parseFloat(fields[2])
		if err != nil {
			return err
		}
		gust, err := parseFloat(fields[3])
		if err != nil {
			return err
		}
		rec := domain.WindRecord{StormID: fields[0], FIPS: fields[1], MaxSustained: sust, MaxGust: gust}
		c.wind[rec.FIPS] = append(c.wind[rec.FIPS], rec)
		c.windCount++
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readCSV(filepath.Join(dir, rainFile), []string{"storm_id", "fips", "date", "precip_mm", "closest_date"}, func(fields []string) error {
		date, err := time.Parse(dateLayout, fields[2])
		if err != nil {
			return err
		}
		precip, err := parseFloat(fields[3])
		if err != nil {
			return err
		}
		closest, err := time.Parse(dateLayout, fields[4])
		if err != nil {
			return err
		}
		rec := domain.RainRecord{StormID: fields[0], FIPS: fields[1], Date: date, PrecipMM: precip, ClosestDate: closest}
		c.rain[rec.FIPS] = append(c.rain[rec.FIPS], rec)
		c.rainCount++
		return nil
	}); err != nil {
		return nil, err
	}

	if err := readCSV(filepath.Join(dir, distanceFile), []string{"storm_id", "fips", "dist_km"}, func(fields []string) error {
		d, err := parseFloat(fields[2])
		if err != nil {
			return err
		}
		rec := domain.DistanceRecord{StormID: fields[0], FIPS: fields[1], DistanceKM: d}
		c.dist[rec.FIPS] = append(c.dist[rec.FIPS], rec)
		c.distCount++
		return nil
	}); err != nil {
		return nil, err
	}

	logger.Info("hazard catalog loaded",
		"dir", dir,
		"wind_records", c.windCount,
		"rain_records", c.rainCount,
		"distance_records", c.distCount,
	)
	return c, nil
}

// Wind returns wind records for the requested counties in load order.
func (c *Catalog) Wind(_ context.Context, locs domain.LocationSet) ([]domain.WindRecord, error) {
	var out []domain.WindRecord
	for _, fips := range locs {
		out = append(out, c.wind[fips]...)
	}
	return out, nil
}

// Rain returns daily rain records for the requested counties in load order.
func (c *Catalog) Rain(_ context.Context, locs domain.LocationSet) ([]domain.RainRecord, error) {
	var out []domain.RainRecord
	for _, fips := range locs {
		out = append(out, c.rain[fips]...)
	}
	return out, nil
}

// Distance returns distance records for the requested counties in load order.
func (c *Catalog) Distance(_ context.Context, locs domain.LocationSet) ([]domain.DistanceRecord, error) {
	var out []domain.DistanceRecord
	for _, fips := range locs {
		out = append(out, c.dist[fips]...)
	}
	return out, nil
}

// Counts returns the number of loaded records per hazard kind.
func (c *Catalog) Counts() (wind, rain, distance int) {
	return c.windCount, c.rainCount, c.distCount
}

// CheckReadiness reports nil once the catalog holds records.
func (c *Catalog) CheckReadiness(_ context.Context) error {
	if c.windCount+c.rainCount+c.distCount == 0 {
		return fmt.Errorf("hazard catalog is empty")
	}
	return nil
}

// readCSV streams a headered CSV file, calling row for each data record.
func readCSV(path string, header []string, row func(fields []string) error) error {
	f, err := os.Open(path)
	if err != nil {
		return fmt.Errorf("open catalog file: %w", err)
	}
	defer f.Close()

	r := csv.NewReader(f)
	r.FieldsPerRecord = len(header)

	got, err := r.Read()
	if err != nil {
		return fmt.Errorf("%s: read header: %w", filepath.Base(path), err)
	}
	for i, want := range header {
		if got[i] != want {
			return fmt.Errorf("%s: unexpected header %v, want %v", filepath.Base(path), got, header)
		}
	}

	line := 1
	for {
		fields, err := r.Read()
		if errors.Is(err, io.EOF) {
			return nil
		}
		if err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line+1, err)
		}
		line++
		if err := row(fields); err != nil {
			return fmt.Errorf("%s line %d: %w", filepath.Base(path), line, err)
		}
	}
}

func parseFloat(s string) (float64, error) {
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return 0, fmt.Errorf("parse number %q: %w", s, err)
	}
	return v, nil
}
