// Command exposure runs a one-shot exposure query against a hazard catalog
// and writes the resulting table to per-location files.
//
// Usage:
//
//	go run ./cmd/exposure \
//	  -catalog data/catalog \
//	  -metric wind -fips 22071,12086 \
//	  -start 1988 -end 2005 -threshold 20 \
//	  -out out/wind -format csv
//
// Community roll-up uses a JSON file mapping community names to member
// county FIPS codes:
//
//	go run ./cmd/exposure \
//	  -catalog data/catalog \
//	  -metric rain -communities communities.json \
//	  -start 1999 -end 1999 -threshold 30 -dist-limit 100 \
//	  -out out/rain -format gob
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"strconv"
	"strings"

	"github.com/couchcryptid/storm-exposure/internal/catalog"
	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/export"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/joho/godotenv"
)

func main() {
	if err := run(); err != nil {
		log.Fatal(err)
	}
}

func run() error {
	_ = godotenv.Load() // optional .env for local development

	catalogDir := flag.String("catalog", "data/catalog", "directory containing hazard catalog CSV files")
	metricName := flag.String("metric", "", "exposure metric: wind, rain, or distance")
	fipsList := flag.String("fips", "", "comma-separated county FIPS codes")
	communitiesFile := flag.String("communities", "", "JSON file mapping community names to member FIPS codes")
	startYear := flag.Int("start", 0, "first storm season (inclusive)")
	endYear := flag.Int("end", 0, "last storm season (inclusive)")
	threshold := flag.Float64("threshold", 0, "exposure threshold in the metric's unit")
	windVar := flag.String("wind-var", "", "wind column driving the threshold: vmax_sust (default) or vmax_gust")
	rainDays := flag.String("rain-days", "", "comma-separated day offsets around closest approach (default -3..3)")
	distLimit := flag.String("dist-limit", "", "optional closest-approach distance cap in km for rain queries")
	outDir := flag.String("out", "out", "output directory for per-location files")
	formatName := flag.String("format", "csv", "output format: csv or gob")
	flag.Parse()

	if *metricName == "" {
		flag.Usage()
		return fmt.Errorf("missing required flag: -metric")
	}
	if (*fipsList == "") == (*communitiesFile == "") {
		flag.Usage()
		return fmt.Errorf("exactly one of -fips or -communities is required")
	}

	metric, err := domain.ParseMetricKind(*metricName)
	if err != nil {
		return err
	}
	wv, err := domain.ParseWindVar(*windVar)
	if err != nil {
		return err
	}
	format, err := export.ParseFormat(*formatName)
	if err != nil {
		return err
	}

	days, err := parseRainDays(*rainDays)
	if err != nil {
		return err
	}
	limit, err := parseDistLimit(*distLimit)
	if err != nil {
		return err
	}

	logger := observability.NewLogger("info", "text")
	metrics := observability.NewMetrics()

	cat, err := catalog.Load(*catalogDir, logger)
	if err != nil {
		return fmt.Errorf("loading catalog: %w", err)
	}

	engine := exposure.NewEngine(cat, logger, metrics)
	ctx := context.Background()

	var table *exposure.Table
	if *fipsList != "" {
		table, err = engine.CountyMetric(ctx, exposure.CountyRequest{
			FIPS:          splitList(*fipsList),
			StartYear:     *startYear,
			EndYear:       *endYear,
			Threshold:     *threshold,
			Metric:        metric,
			WindVar:       wv,
			RainDays:      days,
			DistanceLimit: limit,
		})
	} else {
		var assignments []domain.CommunityAssignment
		assignments, err = loadCommunities(*communitiesFile)
		if err != nil {
			return err
		}
		table, err = engine.CommunityMetric(ctx, exposure.CommunityRequest{
			Assignments:   assignments,
			StartYear:     *startYear,
			EndYear:       *endYear,
			Threshold:     *threshold,
			Metric:        metric,
			WindVar:       wv,
			RainDays:      days,
			DistanceLimit: limit,
		})
	}
	if err != nil {
		return err
	}

	if table.Empty() {
		logger.Info("no exposures matched; nothing written",
			"metric", metric.String(), "threshold", *threshold)
		return nil
	}

	paths, err := export.New(logger, metrics).Write(table, *outDir, format)
	if err != nil {
		return fmt.Errorf("writing output: %w", err)
	}

	logger.Info("exposure table written",
		"rows", len(table.Rows),
		"storms", table.StormCount(),
		"locations", len(paths),
		"dir", *outDir,
	)
	return nil
}

// loadCommunities reads a JSON object mapping community names to member FIPS
// lists and flattens it into assignments.
func loadCommunities(path string) ([]domain.CommunityAssignment, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("reading communities file: %w", err)
	}
	var m map[string][]string
	if err := json.Unmarshal(data, &m); err != nil {
		return nil, fmt.Errorf("parsing communities file: %w", err)
	}
	var assignments []domain.CommunityAssignment
	for name, members := range m {
		for _, fips := range members {
			assignments = append(assignments, domain.CommunityAssignment{Community: name, FIPS: fips})
		}
	}
	return assignments, nil
}

func parseRainDays(s string) ([]int, error) {
	if s == "" {
		return nil, nil
	}
	var days []int
	for _, p := range splitList(s) {
		d, err := strconv.Atoi(p)
		if err != nil {
			return nil, fmt.Errorf("invalid -rain-days value %q", p)
		}
		days = append(days, d)
	}
	return days, nil
}

func parseDistLimit(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	v, err := strconv.ParseFloat(s, 64)
	if err != nil {
		return nil, fmt.Errorf("invalid -dist-limit value %q", s)
	}
	return &v, nil
}

func splitList(s string) []string {
	var out []string
	for _, p := range strings.Split(s, ",") {
		if p = strings.TrimSpace(p); p != "" {
			out = append(out, p)
		}
	}
	return out
}
