package series

import (
	"encoding/json"
	"testing"
	"time"

	"github.com/newthinker/signalboard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func mustTS(t *testing.T, s string) core.Timestamp {
	t.Helper()
	ts, err := core.ParseTimestamp(s)
	require.NoError(t, err)
	return ts
}

func TestNearest_PicksCloserSample(t *testing.T) {
	s := core.Series{
		{Time: mustTS(t, "2024-01-01T00:00:00Z"), Value: 1},
		{Time: mustTS(t, "2024-01-01T01:00:00Z"), Value: 2},
	}
	click := ClickAt(float64(time.Date(2024, 1, 1, 0, 40, 0, 0, time.UTC).Unix()))

	p, ok := Nearest(s, click)
	require.True(t, ok)
	assert.Equal(t, "2024-01-01T01:00:00Z", p.Time.ISO())
}

func TestNearest_TieGoesToFirst(t *testing.T) {
	s := core.Series{
		{Time: core.Unix(0), Value: 1},
		{Time: core.Unix(120), Value: 2},
	}
	p, ok := Nearest(s, ClickAt(60))
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Value)
}

func TestNearest_CalendarDay(t *testing.T) {
	s := core.Series{
		{Time: mustTS(t, "2024-03-01T00:00:00Z"), Value: 1},
		{Time: mustTS(t, "2024-03-05T00:00:00Z"), Value: 2},
	}
	p, ok := Nearest(s, ClickOn(Day{Year: 2024, Month: 3, Day: 4}))
	require.True(t, ok)
	assert.Equal(t, 2.0, p.Value)

	// month and day default to 1
	p, ok = Nearest(s, ClickOn(Day{Year: 2024, Month: 3}))
	require.True(t, ok)
	assert.Equal(t, 1.0, p.Value)
}

func TestNearest_NoOps(t *testing.T) {
	s := core.Series{{Time: core.Unix(10), Value: 1}}

	_, ok := Nearest(nil, ClickAt(10))
	assert.False(t, ok, "empty series")

	_, ok = Nearest(s, Click{})
	assert.False(t, ok, "zero click")

	_, ok = Nearest(s, ClickOn(Day{Month: 3, Day: 1}))
	assert.False(t, ok, "calendar day without year")
}

func TestParseClick(t *testing.T) {
	c, ok := ParseClick("1704069600")
	require.True(t, ok)
	ms, ok := c.Millis()
	require.True(t, ok)
	assert.Equal(t, int64(1704069600000), ms)

	c, ok = ParseClick("2024-01-02")
	require.True(t, ok)
	ms, ok = c.Millis()
	require.True(t, ok)
	assert.Equal(t, time.Date(2024, 1, 2, 0, 0, 0, 0, time.UTC).UnixMilli(), ms)

	for _, bad := range []string{"", "yesterday", "NaN", "2024/01/02"} {
		_, ok := ParseClick(bad)
		assert.False(t, ok, bad)
	}
}

func TestIndex(t *testing.T) {
	idx := Index(core.Series{
		{Time: core.Unix(1), Value: 0.1},
		{Time: core.Unix(2), Value: 0.2},
	})
	assert.Equal(t, 0.2, idx[2])
	_, ok := idx[3]
	assert.False(t, ok)
}

func TestMapLine(t *testing.T) {
	var vals Values
	require.NoError(t, json.Unmarshal([]byte(`[1.5, null, "x", 3]`), &vals))
	candles := []core.Candle{
		{Time: core.Unix(100)},
		{Time: core.Unix(200)},
		{Time: core.Unix(300)},
	}

	line := MapLine(vals, candles)
	require.Len(t, line, 1)
	assert.Equal(t, int64(100), line[0].Time.Unix())
	assert.Equal(t, 1.5, line[0].Value)
}
