// Command genmock generates a synthetic hazard catalog for local development
// and test fixtures. It emits the three catalog CSV files (wind.csv, rain.csv,
// distance.csv) with internally consistent records: every storm/county pair
// gets one wind row, one distance row, and a full ±3-day rain window around
// its closest-approach date.
//
// Output is deterministic for a given -seed, so regenerating fixtures never
// churns test assertions.
//
// Usage:
//
//	go run ./cmd/genmock -out data/catalog -storms 12 -seed 1
package main

import (
	"encoding/csv"
	"flag"
	"fmt"
	"log"
	"math/rand"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"time"
)

var stormNames = []string{
	"Alberto", "Bonnie", "Charley", "Danielle", "Earl", "Frances",
	"Georges", "Hermine", "Ivan", "Jeanne", "Karl", "Lisa",
	"Mitch", "Nicole", "Otto", "Paula", "Richard", "Shary",
}

var defaultCounties = []string{
	"12086", // Miami-Dade FL
	"12011", // Broward FL
	"22071", // Orleans LA
	"37129", // New Hanover NC
	"45019", // Charleston SC
	"51810", // Virginia Beach VA
}

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	outDir := flag.String("out", "data/catalog", "output directory for catalog CSV files")
	stormCount := flag.Int("storms", 12, "number of storms to generate")
	counties := flag.String("counties", strings.Join(defaultCounties, ","), "comma-separated county FIPS codes")
	firstYear := flag.Int("first-year", 1995, "first storm season")
	lastYear := flag.Int("last-year", 2010, "last storm season")
	seed := flag.Int64("seed", 1, "random seed")
	flag.Parse()

	if *stormCount < 1 {
		return fmt.Errorf("-storms must be at least 1")
	}
	if *lastYear < *firstYear {
		return fmt.Errorf("-last-year must not precede -first-year")
	}

	fips := strings.Split(*counties, ",")
	rng := rand.New(rand.NewSource(*seed))

	storms := makeStorms(rng, *stormCount, *firstYear, *lastYear)

	if err := os.MkdirAll(*outDir, 0o755); err != nil {
		return err
	}

	windRows := [][]string{{"storm_id", "fips", "vmax_sust", "vmax_gust"}}
	rainRows := [][]string{{"storm_id", "fips", "date", "precip_mm", "closest_date"}}
	distRows := [][]string{{"storm_id", "fips", "dist_km"}}

	for _, storm := range storms {
		for _, county := range fips {
			// Not every storm touches every county.
			if rng.Float64() < 0.3 {
				continue
			}

			sust := 5 + rng.Float64()*60
			gust := sust * (1.15 + rng.Float64()*0.35)
			windRows = append(windRows, []string{
				storm.id, county, formatFloat(sust), formatFloat(gust),
			})

			dist := rng.Float64() * 500
			distRows = append(distRows, []string{
				storm.id, county, formatFloat(dist),
			})

			// Daily precipitation across the full window around closest
			// approach, heaviest at the approach itself.
			for offset := -3; offset <= 3; offset++ {
				peak := 4 - abs(offset)
				precip := rng.Float64() * 20 * float64(peak)
				rainRows = append(rainRows, []string{
					storm.id,
					county,
					storm.closest.AddDate(0, 0, offset).Format("2006-01-02"),
					formatFloat(precip),
					storm.closest.Format("2006-01-02"),
				})
			}
		}
	}

	files := []struct {
		name string
		rows [][]string
	}{
		{"wind.csv", windRows},
		{"rain.csv", rainRows},
		{"distance.csv", distRows},
	}
	for _, f := range files {
		path := filepath.Join(*outDir, f.name)
		if err := writeCSV(path, f.rows); err != nil {
			return fmt.Errorf("writing %s: %w", f.name, err)
		}
		log.Printf("wrote %s: %d records", path, len(f.rows)-1)
	}
	return nil
}

type storm struct {
	id      string
	closest time.Time
}

// makeStorms assigns names round-robin and spreads seasons across the year
// range. Closest approach falls in hurricane season, June through November.
func makeStorms(rng *rand.Rand, count, firstYear, lastYear int) []storm {
	storms := make([]storm, 0, count)
	for i := 0; i < count; i++ {
		name := stormNames[i%len(stormNames)]
		year := firstYear + rng.Intn(lastYear-firstYear+1)
		month := time.Month(6 + rng.Intn(6))
		day := 1 + rng.Intn(28)
		storms = append(storms, storm{
			id:      fmt.Sprintf("%s-%d", name, year),
			closest: time.Date(year, month, day, 0, 0, 0, 0, time.UTC),
		})
	}
	return storms
}

func writeCSV(path string, rows [][]string) error {
	f, err := os.Create(path)
	if err != nil {
		return err
	}
	w := csv.NewWriter(f)
	if err := w.WriteAll(rows); err != nil {
		f.Close()
		return err
	}
	return f.Close()
}

func formatFloat(v float64) string {
	return strconv.FormatFloat(v, 'f', 1, 64)
}

func abs(n int) int {
	if n < 0 {
		return -n
	}
	return n
}
