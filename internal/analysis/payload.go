// Package analysis decodes the /api/analysis bundle into typed indicator
// families. Every family has an explicit absent variant so builders never
// re-check raw JSON shapes.
package analysis

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"

	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/series"
)

// Payload is one analysis bundle for a (symbol, timeframe).
type Payload struct {
	Trained       bool                     `json:"trained"`
	Reason        string                   `json:"reason,omitempty"`
	Timeframe     string                   `json:"timeframe,omitempty"`
	Candles       []core.Candle            `json:"candles"`
	Overlays      Overlays                 `json:"indicators,omitempty"`
	Indicators    Indicators               `json:"indicator_panels"`
	Signal        core.SignalPanel         `json:"signal_panel"`
	News          []core.NewsItem          `json:"news_used"`
	Summary       string                   `json:"summary"`
	Patterns      []core.Note              `json:"patterns"`
	Opportunities []core.Note              `json:"opportunities"`
}

// envelope is the backend response wrapper.
type envelope struct {
	Data *Payload `json:"data"`
}

// Decode reads a {"data": {...}} analysis response.
func Decode(r io.Reader) (*Payload, error) {
	var env envelope
	if err := json.NewDecoder(r).Decode(&env); err != nil {
		return nil, core.WrapError(core.ErrDecodeFailed, err)
	}
	if env.Data == nil {
		return nil, core.WrapError(core.ErrDecodeFailed, fmt.Errorf("missing data field"))
	}
	return env.Data, nil
}

// Indicators holds every indicator family the dashboard knows about.
type Indicators struct {
	RSI    Line       `json:"rsi"`
	MACD   MACD       `json:"macd"`
	Stoch  Stochastic `json:"stoch"`
	BBands Bands      `json:"bbands"`
	ATR    Line       `json:"atr"`
	EMA    Periods    `json:"ema"`
	SMA    Periods    `json:"sma"`
	CCI    Line       `json:"cci"`
	WillR  Line       `json:"willr"`
	MFI    Line       `json:"mfi"`
	OBV    Line       `json:"obv"`
	ROC    Periods    `json:"roc"`
}

func isNull(b []byte) bool {
	return bytes.Equal(bytes.TrimSpace(b), []byte("null"))
}

// Line is a single-series indicator. The zero value is absent.
type Line struct {
	Points  core.Series
	present bool
}

// NewLine returns a present line.
func NewLine(points core.Series) Line {
	return Line{Points: points, present: true}
}

// Present reports whether the producer sent the indicator.
func (l Line) Present() bool { return l.present }

func (l *Line) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*l = Line{}
		return nil
	}
	var pts core.Series
	if err := json.Unmarshal(b, &pts); err != nil {
		return fmt.Errorf("decoding line: %w", err)
	}
	*l = NewLine(pts)
	return nil
}

func (l Line) MarshalJSON() ([]byte, error) {
	if !l.present {
		return []byte("null"), nil
	}
	return json.Marshal(l.Points)
}

// MACD holds the MACD line, its signal line and the histogram.
type MACD struct {
	MACD    core.Series
	Signal  core.Series
	Hist    core.Series
	present bool
}

type macdJSON struct {
	MACD   core.Series `json:"macd"`
	Signal core.Series `json:"signal"`
	Hist   core.Series `json:"hist"`
}

// NewMACD returns a present MACD group.
func NewMACD(macd, signal, hist core.Series) MACD {
	return MACD{MACD: macd, Signal: signal, Hist: hist, present: true}
}

func (m MACD) Present() bool { return m.present }

func (m *MACD) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*m = MACD{}
		return nil
	}
	var raw macdJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decoding macd: %w", err)
	}
	*m = NewMACD(raw.MACD, raw.Signal, raw.Hist)
	return nil
}

func (m MACD) MarshalJSON() ([]byte, error) {
	if !m.present {
		return []byte("null"), nil
	}
	return json.Marshal(macdJSON{MACD: m.MACD, Signal: m.Signal, Hist: m.Hist})
}

// Stochastic holds %K and %D.
type Stochastic struct {
	K       core.Series
	D       core.Series
	present bool
}

type stochJSON struct {
	K core.Series `json:"k"`
	D core.Series `json:"d"`
}

// NewStochastic returns a present stochastic group.
func NewStochastic(k, d core.Series) Stochastic {
	return Stochastic{K: k, D: d, present: true}
}

func (s Stochastic) Present() bool { return s.present }

func (s *Stochastic) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*s = Stochastic{}
		return nil
	}
	var raw stochJSON
	if err := json.Unmarshal(b, &raw); err != nil {
		return fmt.Errorf("decoding stoch: %w", err)
	}
	*s = NewStochastic(raw.K, raw.D)
	return nil
}

func (s Stochastic) MarshalJSON() ([]byte, error) {
	if !s.present {
		return []byte("null"), nil
	}
	return json.Marshal(stochJSON{K: s.K, D: s.D})
}

// Bands holds Bollinger upper, middle and lower bands.
type Bands struct {
	Up      core.Series
	Mid     core.Series
	Dn      core.Series
	present bool
}

type bandsJSON struct {
	Up  core.Series `json:"up"`
	Mid core.Series `json:"mid"`
	Dn  core.Series `json:"dn"`
}

// NewBands returns a present band group.
func NewBands(up, mid, dn core.Series) Bands {
	return Bands{Up: up, Mid: mid, Dn: dn, present: true}
}

func (b Bands) Present() bool { return b.present }

func (b *Bands) UnmarshalJSON(data []byte) error {
	if isNull(data) {
		*b = Bands{}
		return nil
	}
	var raw bandsJSON
	if err := json.Unmarshal(data, &raw); err != nil {
		return fmt.Errorf("decoding bbands: %w", err)
	}
	*b = NewBands(raw.Up, raw.Mid, raw.Dn)
	return nil
}

func (b Bands) MarshalJSON() ([]byte, error) {
	if !b.present {
		return []byte("null"), nil
	}
	return json.Marshal(bandsJSON{Up: b.Up, Mid: b.Mid, Dn: b.Dn})
}

// PeriodSeries is one sub-period of a multi-period indicator.
type PeriodSeries struct {
	Label  string
	Points core.Series
}

// Periods is a multi-period indicator (EMA, SMA, ROC) keyed by period
// label. Entries keep the producer's key order.
type Periods struct {
	Entries []PeriodSeries
	present bool
}

// NewPeriods returns a present group.
func NewPeriods(entries ...PeriodSeries) Periods {
	return Periods{Entries: entries, present: true}
}

func (p Periods) Present() bool { return p.present }

func (p *Periods) UnmarshalJSON(b []byte) error {
	if isNull(b) {
		*p = Periods{}
		return nil
	}
	dec := json.NewDecoder(bytes.NewReader(b))
	tok, err := dec.Token()
	if err != nil {
		return fmt.Errorf("decoding periods: %w", err)
	}
	if d, ok := tok.(json.Delim); !ok || d != '{' {
		return fmt.Errorf("decoding periods: expected object, got %v", tok)
	}
	out := NewPeriods()
	for dec.More() {
		tok, err := dec.Token()
		if err != nil {
			return fmt.Errorf("decoding periods: %w", err)
		}
		label, ok := tok.(string)
		if !ok {
			return fmt.Errorf("decoding periods: unexpected key %v", tok)
		}
		var pts core.Series
		if err := dec.Decode(&pts); err != nil {
			return fmt.Errorf("decoding period %s: %w", label, err)
		}
		out.Entries = append(out.Entries, PeriodSeries{Label: label, Points: pts})
	}
	if _, err := dec.Token(); err != nil {
		return fmt.Errorf("decoding periods: %w", err)
	}
	*p = out
	return nil
}

func (p Periods) MarshalJSON() ([]byte, error) {
	if !p.present {
		return []byte("null"), nil
	}
	var buf bytes.Buffer
	buf.WriteByte('{')
	for i, e := range p.Entries {
		if i > 0 {
			buf.WriteByte(',')
		}
		key, err := json.Marshal(e.Label)
		if err != nil {
			return nil, err
		}
		val, err := json.Marshal(e.Points)
		if err != nil {
			return nil, err
		}
		buf.Write(key)
		buf.WriteByte(':')
		buf.Write(val)
	}
	buf.WriteByte('}')
	return buf.Bytes(), nil
}

// Overlays holds the per-candle indicator columns. Nested groups such as
// {"macd": {"line": [...], "signal": [...]}} are flattened to macd_line and
// macd_signal. Entries of any other shape are skipped; the block never fails
// the whole payload.
type Overlays map[string]series.Values

func (o *Overlays) UnmarshalJSON(b []byte) error {
	out := Overlays{}
	var raw map[string]json.RawMessage
	if err := json.Unmarshal(b, &raw); err != nil {
		*o = out
		return nil
	}
	for name, val := range raw {
		var vals series.Values
		if json.Unmarshal(val, &vals) == nil {
			out[name] = vals
			continue
		}
		var group map[string]json.RawMessage
		if json.Unmarshal(val, &group) != nil {
			continue
		}
		for key, sub := range group {
			var vals series.Values
			if json.Unmarshal(sub, &vals) == nil {
				out[name+"_"+key] = vals
			}
		}
	}
	*o = out
	return nil
}

// OverlayLines maps the per-candle indicator columns onto candle times.
func (p *Payload) OverlayLines() map[string]core.Series {
	out := make(map[string]core.Series, len(p.Overlays))
	for name, vals := range p.Overlays {
		if line := series.MapLine(vals, p.Candles); len(line) > 0 {
			out[name] = line
		}
	}
	return out
}
