package exposure_test

import (
	"context"
	"errors"
	"log/slog"
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/couchcryptid/storm-exposure/internal/observability"
	"github.com/google/go-cmp/cmp"
	"github.com/jonboulle/clockwork"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// --- mocks ---

type mockSource struct {
	wind []domain.WindRecord
	rain []domain.RainRecord
	dist []domain.DistanceRecord
	err  error
}

func (m *mockSource) Wind(_ context.Context, _ domain.LocationSet) ([]domain.WindRecord, error) {
	return m.wind, m.err
}

func (m *mockSource) Rain(_ context.Context, _ domain.LocationSet) ([]domain.RainRecord, error) {
	return m.rain, m.err
}

func (m *mockSource) Distance(_ context.Context, _ domain.LocationSet) ([]domain.DistanceRecord, error) {
	return m.dist, m.err
}

func newTestEngine(src exposure.HazardSource) *exposure.Engine {
	return exposure.NewEngine(src, slog.New(slog.DiscardHandler), observability.NewMetricsForTesting())
}

func floatPtr(v float64) *float64 { return &v }

func rainDay(stormID, fips string, offset int, precip float64) domain.RainRecord {
	closest := time.Date(1999, 9, 16, 0, 0, 0, 0, time.UTC)
	return domain.RainRecord{
		StormID:     stormID,
		FIPS:        fips,
		Date:        closest.AddDate(0, 0, offset),
		PrecipMM:    precip,
		ClosestDate: closest,
	}
}

// --- county queries ---

func TestCountyMetric_Wind(t *testing.T) {
	src := &mockSource{wind: []domain.WindRecord{
		{StormID: "Alberto-1988", FIPS: "22071", MaxSustained: 25.1, MaxGust: 30.0},
		{StormID: "Florence-1988", FIPS: "22071", MaxSustained: 15, MaxGust: 19},
	}}
	e := newTestEngine(src)

	table, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:      []string{"22071"},
		StartYear: 1988,
		EndYear:   1988,
		Threshold: 20,
		Metric:    domain.MetricWind,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, exposure.Row{
		Loc:          "22071",
		StormID:      "Alberto-1988",
		MaxSustained: 25.1,
		MaxGust:      30.0,
	}, table.Rows[0])
	assert.Equal(t, []string{"loc", "storm_id", "vmax_sust", "vmax_gust"}, table.Columns())
}

func TestCountyMetric_WindGustVariable(t *testing.T) {
	src := &mockSource{wind: []domain.WindRecord{
		{StormID: "Florence-1988", FIPS: "22071", MaxSustained: 15, MaxGust: 22},
	}}
	e := newTestEngine(src)

	req := exposure.CountyRequest{
		FIPS:      []string{"22071"},
		StartYear: 1988,
		EndYear:   1988,
		Threshold: 20,
		Metric:    domain.MetricWind,
	}

	table, err := e.CountyMetric(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, table.Empty(), "sustained wind below threshold")

	req.WindVar = domain.WindGust
	table, err = e.CountyMetric(context.Background(), req)
	require.NoError(t, err)
	assert.Len(t, table.Rows, 1, "gust at 22 meets threshold 20")
}

func TestCountyMetric_YearFilterExcludesStorm(t *testing.T) {
	src := &mockSource{wind: []domain.WindRecord{
		{StormID: "Katrina-2005", FIPS: "22071", MaxSustained: 41.3, MaxGust: 55.2},
	}}
	e := newTestEngine(src)

	table, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:      []string{"22071"},
		StartYear: 1988,
		EndYear:   1988,
		Threshold: 0,
		Metric:    domain.MetricWind,
	})
	require.NoError(t, err)
	assert.True(t, table.Empty(), "Katrina-2005 outside [1988, 1988] regardless of values")
}

func TestCountyMetric_Distance(t *testing.T) {
	src := &mockSource{dist: []domain.DistanceRecord{
		{StormID: "Alberto-1988", FIPS: "22071", DistanceKM: 42},
		{StormID: "Gilbert-1988", FIPS: "22071", DistanceKM: 310},
	}}
	e := newTestEngine(src)

	table, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:      []string{"22071"},
		StartYear: 1988,
		EndYear:   1988,
		Threshold: 100,
		Metric:    domain.MetricDistance,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "Alberto-1988", table.Rows[0].StormID)
	assert.Equal(t, 42.0, table.Rows[0].DistanceKM)
}

func TestCountyMetric_Rain(t *testing.T) {
	src := &mockSource{rain: []domain.RainRecord{
		rainDay("Floyd-1999", "36005", -1, 12),
		rainDay("Floyd-1999", "36005", 0, 80),
		rainDay("Floyd-1999", "36005", 1, 20.5),
		rainDay("Floyd-1999", "36047", 0, 15),
	}}
	e := newTestEngine(src)

	table, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:      []string{"36005", "36047"},
		StartYear: 1999,
		EndYear:   1999,
		Threshold: 50,
		Metric:    domain.MetricRain,
		RainDays:  []int{0, 1},
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "36005", table.Rows[0].Loc)
	assert.Equal(t, 100.5, table.Rows[0].PrecipMM)
}

func TestCountyMetric_RainWithDistanceLimit(t *testing.T) {
	src := &mockSource{
		rain: []domain.RainRecord{
			rainDay("Floyd-1999", "36005", 0, 80),
			rainDay("Irene-2011", "36005", 0, 90),
		},
		dist: []domain.DistanceRecord{
			{StormID: "Floyd-1999", FIPS: "36005", DistanceKM: 40},
			{StormID: "Irene-2011", FIPS: "36005", DistanceKM: 250},
		},
	}
	e := newTestEngine(src)

	table, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:          []string{"36005"},
		StartYear:     1999,
		EndYear:       2011,
		Threshold:     50,
		Metric:        domain.MetricRain,
		RainDays:      []int{0},
		DistanceLimit: floatPtr(100),
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1, "Irene rains enough but tracked too far away")
	assert.Equal(t, "Floyd-1999", table.Rows[0].StormID)
	assert.Equal(t, 80.0, table.Rows[0].PrecipMM)
	assert.Equal(t, 40.0, table.Rows[0].DistanceKM)
	assert.Equal(t, []string{"loc", "storm_id", "precip_mm", "dist_km"}, table.Columns())
}

func TestCountyMetric_InvalidLocation(t *testing.T) {
	e := newTestEngine(&mockSource{})

	_, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:   []string{"not-a-fips"},
		Metric: domain.MetricWind,
	})
	require.Error(t, err)

	var invalid *domain.InvalidLocationError
	require.True(t, errors.As(err, &invalid))
}

func TestCountyMetric_InvalidWindowFailsBeforeQuery(t *testing.T) {
	// The source would error if touched; the window must be rejected first.
	e := newTestEngine(&mockSource{err: errors.New("source should not be queried")})

	_, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:      []string{"36005"},
		StartYear: 1999,
		EndYear:   1999,
		Metric:    domain.MetricRain,
		RainDays:  []int{0, 5},
	})
	require.Error(t, err)

	var invalid *exposure.InvalidWindowError
	require.True(t, errors.As(err, &invalid))
	assert.Equal(t, 5, invalid.Offset)
}

func TestCountyMetric_SourceError(t *testing.T) {
	e := newTestEngine(&mockSource{err: errors.New("catalog offline")})

	_, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:      []string{"22071"},
		StartYear: 1988,
		EndYear:   2005,
		Metric:    domain.MetricWind,
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "query wind records")
}

func TestCountyMetric_UnknownMetric(t *testing.T) {
	e := newTestEngine(&mockSource{})

	_, err := e.CountyMetric(context.Background(), exposure.CountyRequest{
		FIPS:   []string{"22071"},
		Metric: domain.MetricKind("hail"),
	})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "unknown metric")
}

// --- community queries ---

func TestCommunityMetric_Rain(t *testing.T) {
	src := &mockSource{rain: []domain.RainRecord{
		rainDay("Floyd-1999", "36005", 0, 10),
		rainDay("Floyd-1999", "36047", 0, 60),
	}}
	e := newTestEngine(src)

	table, err := e.CommunityMetric(context.Background(), exposure.CommunityRequest{
		Assignments: []domain.CommunityAssignment{
			{Community: "ny", FIPS: "36005"},
			{Community: "ny", FIPS: "36047"},
		},
		StartYear: 1999,
		EndYear:   1999,
		Threshold: 20,
		Metric:    domain.MetricRain,
		RainDays:  []int{0},
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, "ny", table.Rows[0].Loc)
	assert.Equal(t, "Floyd-1999", table.Rows[0].StormID)
	assert.Equal(t, 60.0, table.Rows[0].MaxValue, "worst member county drives exposure")
	assert.Equal(t, 35.0, table.Rows[0].MeanValue)
	assert.Equal(t, []string{"loc", "storm_id", "mean_value", "max_value"}, table.Columns())
}

func TestCommunityMetric_ThresholdAppliedToMax(t *testing.T) {
	src := &mockSource{rain: []domain.RainRecord{
		rainDay("Floyd-1999", "36005", 0, 10),
		rainDay("Floyd-1999", "36047", 0, 15),
	}}
	e := newTestEngine(src)

	table, err := e.CommunityMetric(context.Background(), exposure.CommunityRequest{
		Assignments: []domain.CommunityAssignment{
			{Community: "ny", FIPS: "36005"},
			{Community: "ny", FIPS: "36047"},
		},
		StartYear: 1999,
		EndYear:   1999,
		Threshold: 20,
		Metric:    domain.MetricRain,
		RainDays:  []int{0},
	})
	require.NoError(t, err)
	assert.True(t, table.Empty(), "max member rain 15 below threshold 20")
}

func TestCommunityMetric_Wind(t *testing.T) {
	src := &mockSource{wind: []domain.WindRecord{
		{StormID: "Katrina-2005", FIPS: "22071", MaxSustained: 41.3, MaxGust: 55.2},
		{StormID: "Katrina-2005", FIPS: "22051", MaxSustained: 38.9, MaxGust: 50.1},
	}}
	e := newTestEngine(src)

	table, err := e.CommunityMetric(context.Background(), exposure.CommunityRequest{
		Assignments: []domain.CommunityAssignment{
			{Community: "nola", FIPS: "22071"},
			{Community: "nola", FIPS: "22051"},
		},
		StartYear: 2005,
		EndYear:   2005,
		Threshold: 40,
		Metric:    domain.MetricWind,
	})
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 41.3, table.Rows[0].MaxValue)
	assert.InDelta(t, 40.1, table.Rows[0].MeanValue, 1e-9)
}

func TestCommunityMetric_RainWithDistanceLimit(t *testing.T) {
	src := &mockSource{
		rain: []domain.RainRecord{
			rainDay("Floyd-1999", "36005", 0, 30),
			rainDay("Floyd-1999", "36047", 0, 60),
		},
		dist: []domain.DistanceRecord{
			{StormID: "Floyd-1999", FIPS: "36005", DistanceKM: 80},
			{StormID: "Floyd-1999", FIPS: "36047", DistanceKM: 45},
		},
	}
	e := newTestEngine(src)

	req := exposure.CommunityRequest{
		Assignments: []domain.CommunityAssignment{
			{Community: "ny", FIPS: "36005"},
			{Community: "ny", FIPS: "36047"},
		},
		StartYear:     1999,
		EndYear:       1999,
		Threshold:     20,
		Metric:        domain.MetricRain,
		RainDays:      []int{0},
		DistanceLimit: floatPtr(50),
	}

	table, err := e.CommunityMetric(context.Background(), req)
	require.NoError(t, err)
	require.Len(t, table.Rows, 1)
	assert.Equal(t, 45.0, table.Rows[0].DistanceKM, "nearest member county distance")
	assert.Equal(t, []string{"loc", "storm_id", "mean_value", "max_value", "min_dist_km"}, table.Columns())

	req.DistanceLimit = floatPtr(40)
	table, err = e.CommunityMetric(context.Background(), req)
	require.NoError(t, err)
	assert.True(t, table.Empty(), "no member county within 40 km")
}

// --- properties ---

func TestCountyMetric_Idempotent(t *testing.T) {
	domain.SetClock(clockwork.NewFakeClockAt(time.Date(2024, 4, 26, 15, 0, 0, 0, time.UTC)))
	defer domain.SetClock(nil)

	src := &mockSource{wind: []domain.WindRecord{
		{StormID: "Alberto-1988", FIPS: "22071", MaxSustained: 25.1, MaxGust: 30},
		{StormID: "Katrina-2005", FIPS: "22071", MaxSustained: 41.3, MaxGust: 55.2},
	}}
	e := newTestEngine(src)

	req := exposure.CountyRequest{
		FIPS:      []string{"22071"},
		StartYear: 1988,
		EndYear:   2005,
		Threshold: 20,
		Metric:    domain.MetricWind,
	}

	first, err := e.CountyMetric(context.Background(), req)
	require.NoError(t, err)
	second, err := e.CountyMetric(context.Background(), req)
	require.NoError(t, err)

	assert.Empty(t, cmp.Diff(first, second))
}
