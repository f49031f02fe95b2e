// Package signal splits the aggregate signal score into active buy, active
// sell and baseline segments and draws the signal panel.
package signal

import (
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/series"
)

// Fallback thresholds used when neither the payload nor an override
// carries a finite value.
const (
	DefaultEntryThreshold = 0.6
	DefaultMinSupport     = 0.3
)

// Defaults are the fallback thresholds applied by a Segmenter.
type Defaults struct {
	EntryThreshold float64
	MinSupport     float64
}

// Segments is the classification of one score series.
type Segments struct {
	Baseline       core.Series
	Buy            core.Series
	Sell           core.Series
	EntryThreshold float64
	MinSupport     float64
}

// Segmenter classifies score samples. The zero value uses the package
// defaults.
type Segmenter struct {
	Defaults Defaults
}

// NewSegmenter returns a segmenter with configured fallbacks. Non-finite
// or non-positive values fall back to the package defaults.
func NewSegmenter(d Defaults) Segmenter {
	if !core.IsFinite(d.EntryThreshold) || d.EntryThreshold <= 0 {
		d.EntryThreshold = DefaultEntryThreshold
	}
	if !core.IsFinite(d.MinSupport) || d.MinSupport < 0 {
		d.MinSupport = DefaultMinSupport
	}
	return Segmenter{Defaults: d}
}

// Segment classifies with the package defaults.
func Segment(p core.SignalPanel, override *core.Thresholds) Segments {
	return Segmenter{}.Segment(p, override)
}

// Segment classifies every score sample. A sample is active when
// |score| >= entry threshold and the support at the same time is at least
// the minimum support; support missing at that time counts as 0. Active
// non-negative samples are buys, active negative samples are sells.
// Override thresholds take precedence over the panel's own.
func (s Segmenter) Segment(p core.SignalPanel, override *core.Thresholds) Segments {
	entry, minSupport := s.thresholds(p.Thresholds, override)
	out := Segments{
		Baseline:       p.Score,
		EntryThreshold: entry,
		MinSupport:     minSupport,
	}
	if len(p.Score) == 0 {
		return out
	}

	support := series.Index(p.Support)
	for _, pt := range p.Score {
		if !active(pt.Value, support[pt.Time.Unix()], entry, minSupport) {
			continue
		}
		if pt.Value >= 0 {
			out.Buy = append(out.Buy, pt)
		} else {
			out.Sell = append(out.Sell, pt)
		}
	}
	return out
}

func active(score, support, entry, minSupport float64) bool {
	if score < 0 {
		score = -score
	}
	return score >= entry && support >= minSupport
}

func (s Segmenter) thresholds(panel, override *core.Thresholds) (float64, float64) {
	d := s.Defaults
	if d.EntryThreshold == 0 && d.MinSupport == 0 {
		d = Defaults{EntryThreshold: DefaultEntryThreshold, MinSupport: DefaultMinSupport}
	}
	entry := pick(d.EntryThreshold, func(t *core.Thresholds) *float64 { return t.Entry }, override, panel)
	minSupport := pick(d.MinSupport, func(t *core.Thresholds) *float64 { return t.MinSupport }, override, panel)
	return entry, minSupport
}

// pick returns the first finite field among sources, else fallback.
func pick(fallback float64, field func(*core.Thresholds) *float64, sources ...*core.Thresholds) float64 {
	for _, t := range sources {
		if t == nil {
			continue
		}
		if v := field(t); v != nil && core.IsFinite(*v) {
			return *v
		}
	}
	return fallback
}
