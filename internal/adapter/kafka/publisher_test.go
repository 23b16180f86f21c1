package kafka

import (
	"testing"
	"time"

	"github.com/couchcryptid/storm-exposure/internal/domain"
	"github.com/couchcryptid/storm-exposure/internal/exposure"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestSerializeRow(t *testing.T) {
	generated := time.Date(2024, 4, 26, 15, 10, 0, 0, time.UTC)
	table := &exposure.Table{
		Metric:      domain.MetricWind,
		GeneratedAt: generated,
	}
	row := exposure.Row{
		Loc:          "22071",
		StormID:      "Alberto-1988",
		MaxSustained: 25.1,
		MaxGust:      30,
	}

	msg, err := serializeRow(table, row)
	require.NoError(t, err)

	assert.Equal(t, []byte("22071"), msg.Key)
	assert.Contains(t, string(msg.Value), `"storm_id":"Alberto-1988"`)
	assert.Contains(t, string(msg.Value), `"vmax_sust":25.1`)
	require.Len(t, msg.Headers, 3)
	assert.Equal(t, "metric", msg.Headers[0].Key)
	assert.Equal(t, []byte("wind"), msg.Headers[0].Value)
	assert.Equal(t, "scope", msg.Headers[1].Key)
	assert.Equal(t, []byte("county"), msg.Headers[1].Value)
	assert.Equal(t, "generated_at", msg.Headers[2].Key)
	assert.Equal(t, []byte(generated.Format(time.RFC3339)), msg.Headers[2].Value)
}

func TestSerializeRow_CommunityScope(t *testing.T) {
	table := &exposure.Table{Metric: domain.MetricRain, Community: true}
	row := exposure.Row{Loc: "ny", StormID: "Floyd-1999", MeanValue: 35, MaxValue: 60}

	msg, err := serializeRow(table, row)
	require.NoError(t, err)
	assert.Equal(t, []byte("ny"), msg.Key)
	assert.Equal(t, []byte("community"), msg.Headers[1].Value)
}
