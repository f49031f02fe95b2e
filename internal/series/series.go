// Package series holds helpers shared by the panel builders: time lookup,
// nearest-sample resolution and numeric line mapping.
package series

import (
	"encoding/json"
	"strconv"
	"strings"
	"time"

	"github.com/newthinker/signalboard/internal/core"
)

// Index maps epoch seconds to the sample value. Later samples win on
// duplicate times.
func Index(s core.Series) map[int64]float64 {
	idx := make(map[int64]float64, len(s))
	for _, p := range s {
		idx[p.Time.Unix()] = p.Value
	}
	return idx
}

// CloseIndex maps candle times to closing prices.
func CloseIndex(candles []core.Candle) map[int64]float64 {
	idx := make(map[int64]float64, len(candles))
	for _, c := range candles {
		idx[c.Time.Unix()] = c.Close
	}
	return idx
}

// Finite returns the samples whose value is finite.
func Finite(s core.Series) core.Series {
	out := make(core.Series, 0, len(s))
	for _, p := range s {
		if core.IsFinite(p.Value) {
			out = append(out, p)
		}
	}
	return out
}

// Values is a raw per-candle indicator column. Missing or non-numeric
// entries decode as nil.
type Values []*float64

// UnmarshalJSON decodes a column leniently: anything that is not a
// finite number becomes nil.
func (v *Values) UnmarshalJSON(b []byte) error {
	var raw []any
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Values, len(raw))
	for i, r := range raw {
		if f, ok := r.(float64); ok && core.IsFinite(f) {
			out[i] = &f
		}
	}
	*v = out
	return nil
}

// MapLine aligns a per-candle column to candle times, dropping entries
// that have no candle or no finite value.
func MapLine(values Values, candles []core.Candle) core.Series {
	out := make(core.Series, 0, len(values))
	for i, v := range values {
		if i >= len(candles) || v == nil || !core.IsFinite(*v) {
			continue
		}
		if candles[i].Time.IsZero() {
			continue
		}
		out = append(out, core.TimedPoint{Time: candles[i].Time, Value: *v})
	}
	return out
}

// Day is a calendar-day click position.
type Day struct {
	Year  int `json:"year"`
	Month int `json:"month"`
	Day   int `json:"day"`
}

// Click is an approximate time reported by a chart click: either epoch
// seconds or a calendar day. The zero value resolves to nothing.
type Click struct {
	seconds *float64
	day     *Day
}

// ClickAt returns a click at epoch seconds.
func ClickAt(sec float64) Click {
	return Click{seconds: &sec}
}

// ClickOn returns a click on a calendar day.
func ClickOn(d Day) Click {
	return Click{day: &d}
}

// ParseClick reads a click from query text: epoch seconds or YYYY-MM-DD.
func ParseClick(s string) (Click, bool) {
	s = strings.TrimSpace(s)
	if s == "" {
		return Click{}, false
	}
	if f, err := strconv.ParseFloat(s, 64); err == nil && core.IsFinite(f) {
		return ClickAt(f), true
	}
	if t, err := time.Parse("2006-01-02", s); err == nil {
		return ClickOn(Day{Year: t.Year(), Month: int(t.Month()), Day: t.Day()}), true
	}
	return Click{}, false
}

// Millis converts the click to epoch milliseconds. A calendar day needs a
// year; month and day default to 1.
func (c Click) Millis() (int64, bool) {
	switch {
	case c.seconds != nil:
		if !core.IsFinite(*c.seconds) {
			return 0, false
		}
		return int64(*c.seconds * 1000), true
	case c.day != nil && c.day.Year != 0:
		month, day := c.day.Month, c.day.Day
		if month == 0 {
			month = 1
		}
		if day == 0 {
			day = 1
		}
		t := time.Date(c.day.Year, time.Month(month), day, 0, 0, 0, 0, time.UTC)
		return t.UnixMilli(), true
	default:
		return 0, false
	}
}

// Nearest returns the sample closest to the click. Ties go to the first
// sample encountered.
func Nearest(s core.Series, click Click) (core.TimedPoint, bool) {
	ms, ok := click.Millis()
	if !ok {
		return core.TimedPoint{}, false
	}
	return NearestMillis(s, ms)
}

// NearestMillis returns the sample whose time is closest to ms.
func NearestMillis(s core.Series, ms int64) (core.TimedPoint, bool) {
	var (
		best  core.TimedPoint
		found bool
		diff  int64
	)
	for _, p := range s {
		d := p.Time.Millis() - ms
		if d < 0 {
			d = -d
		}
		if !found || d < diff {
			best, diff, found = p, d, true
		}
	}
	return best, found
}
