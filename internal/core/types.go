package core

import (
	"bytes"
	"encoding/json"
	"fmt"
	"math"
	"strconv"
	"strings"
	"time"

	"github.com/spf13/cast"
)

// Timestamp is a sample time normalized to epoch seconds.
// Producers send either ISO-8601 strings or epoch seconds; the original
// ISO text is kept so it can be echoed back to the backend unchanged.
type Timestamp struct {
	sec   int64
	iso   string
	valid bool
}

// Unix returns a Timestamp for the given epoch seconds.
func Unix(sec int64) Timestamp {
	return Timestamp{sec: sec, valid: true}
}

// ParseTimestamp normalizes an ISO-8601 string or an epoch-seconds number.
func ParseTimestamp(v any) (Timestamp, error) {
	switch t := v.(type) {
	case int:
		return Unix(int64(t)), nil
	case int64:
		return Unix(t), nil
	case float64:
		if math.IsNaN(t) || math.IsInf(t, 0) {
			return Timestamp{}, fmt.Errorf("non-finite timestamp %v", t)
		}
		return Unix(int64(t)), nil
	case json.Number:
		return ParseTimestamp(t.String())
	case time.Time:
		return Timestamp{sec: t.Unix(), iso: t.UTC().Format(time.RFC3339), valid: true}, nil
	case string:
		s := strings.TrimSpace(t)
		if s == "" {
			return Timestamp{}, fmt.Errorf("empty timestamp")
		}
		if n, err := strconv.ParseInt(s, 10, 64); err == nil {
			return Unix(n), nil
		}
		if f, err := strconv.ParseFloat(s, 64); err == nil {
			return ParseTimestamp(f)
		}
		parsed, err := cast.ToTimeInDefaultLocationE(s, time.UTC)
		if err != nil {
			return Timestamp{}, fmt.Errorf("parsing timestamp %q: %w", s, err)
		}
		return Timestamp{sec: parsed.Unix(), iso: s, valid: true}, nil
	default:
		return Timestamp{}, fmt.Errorf("unsupported timestamp type %T", v)
	}
}

// Unix returns epoch seconds.
func (t Timestamp) Unix() int64 { return t.sec }

// Millis returns epoch milliseconds.
func (t Timestamp) Millis() int64 { return t.sec * 1000 }

// Time returns the timestamp as a UTC time.Time.
func (t Timestamp) Time() time.Time { return time.Unix(t.sec, 0).UTC() }

// IsZero reports whether the timestamp was never set.
func (t Timestamp) IsZero() bool { return !t.valid }

// ISO returns the producer's original ISO text, or RFC3339 UTC when the
// timestamp arrived as epoch seconds.
func (t Timestamp) ISO() string {
	if t.iso != "" {
		return t.iso
	}
	return t.Time().Format(time.RFC3339)
}

func (t Timestamp) String() string { return t.ISO() }

// MarshalJSON encodes the timestamp as epoch seconds.
func (t Timestamp) MarshalJSON() ([]byte, error) {
	if !t.valid {
		return []byte("null"), nil
	}
	return []byte(strconv.FormatInt(t.sec, 10)), nil
}

// UnmarshalJSON accepts an ISO-8601 string or epoch seconds. null leaves
// the zero value.
func (t *Timestamp) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*t = Timestamp{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	dec.UseNumber()
	var raw any
	if err := dec.Decode(&raw); err != nil {
		return err
	}
	parsed, err := ParseTimestamp(raw)
	if err != nil {
		return err
	}
	*t = parsed
	return nil
}

// TimedPoint is one sample of a time series.
type TimedPoint struct {
	Time  Timestamp `json:"time"`
	Value float64   `json:"value"`
}

// Series is a time-ordered list of samples. Decoding drops samples whose
// time cannot be parsed or whose value is missing or non-finite.
type Series []TimedPoint

// UnmarshalJSON decodes a series leniently.
func (s *Series) UnmarshalJSON(b []byte) error {
	if bytes.Equal(bytes.TrimSpace(b), []byte("null")) {
		*s = nil
		return nil
	}
	var raw []struct {
		Time  json.RawMessage `json:"time"`
		Value json.RawMessage `json:"value"`
	}
	if err := json.Unmarshal(b, &raw); err != nil {
		return err
	}
	out := make(Series, 0, len(raw))
	for _, r := range raw {
		var ts Timestamp
		if len(r.Time) == 0 || ts.UnmarshalJSON(r.Time) != nil || ts.IsZero() {
			continue
		}
		v, ok := decodeValue(r.Value)
		if !ok {
			continue
		}
		out = append(out, TimedPoint{Time: ts, Value: v})
	}
	*s = out
	return nil
}

// decodeValue reads a sample value. Booleans map to 1/0 so entry series
// share the numeric representation.
func decodeValue(b json.RawMessage) (float64, bool) {
	if len(b) == 0 {
		return 0, false
	}
	var raw any
	if err := json.Unmarshal(b, &raw); err != nil {
		return 0, false
	}
	var v float64
	switch t := raw.(type) {
	case float64:
		v = t
	case bool:
		if t {
			v = 1
		}
	case string:
		f, err := strconv.ParseFloat(strings.TrimSpace(t), 64)
		if err != nil {
			return 0, false
		}
		v = f
	default:
		return 0, false
	}
	return v, IsFinite(v)
}

// IsFinite reports whether v is neither NaN nor infinite.
func IsFinite(v float64) bool {
	return !math.IsNaN(v) && !math.IsInf(v, 0)
}

// Candle is one OHLCV bar.
type Candle struct {
	Time   Timestamp `json:"time"`
	Open   float64   `json:"open"`
	High   float64   `json:"high"`
	Low    float64   `json:"low"`
	Close  float64   `json:"close"`
	Volume float64   `json:"volume"`
}

// Thresholds holds the signal activation thresholds. A nil field means the
// producer did not send it.
type Thresholds struct {
	Entry         *float64 `json:"entry,omitempty"`
	MinSupport    *float64 `json:"min_support,omitempty"`
	HoldMarginMin *float64 `json:"hold_margin_min,omitempty"`
}

// SignalPanel is the aggregate AI signal bundle.
type SignalPanel struct {
	Score      Series      `json:"score"`
	Support    Series      `json:"support"`
	Entry      Series      `json:"entry"`
	Dir        Series      `json:"dir,omitempty"`
	Thresholds *Thresholds `json:"thresholds,omitempty"`
}

// Empty reports whether there is nothing to draw.
func (p SignalPanel) Empty() bool {
	return len(p.Score) == 0 && len(p.Support) == 0
}

// NewsItem is a display-only news entry.
type NewsItem struct {
	Time      Timestamp `json:"time"`
	Title     string    `json:"title"`
	URL       string    `json:"url,omitempty"`
	Provider  string    `json:"provider,omitempty"`
	Sentiment *float64  `json:"sentiment,omitempty"`
	Symbols   string    `json:"symbols,omitempty"`
}

// Note is a dated annotation such as a detected pattern or opportunity.
type Note struct {
	Time Timestamp `json:"time"`
	Type string    `json:"type"`
	Note string    `json:"note,omitempty"`
}

// RenderContext identifies what a dashboard region is showing.
type RenderContext struct {
	Symbol    string `json:"symbol"`
	Timeframe string `json:"timeframe"`
}

// IsZero reports whether no symbol has been selected.
func (c RenderContext) IsZero() bool {
	return c.Symbol == ""
}
