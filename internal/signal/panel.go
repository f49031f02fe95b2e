package signal

import (
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/panel"
)

// Title is the signal panel title.
const Title = "AI Signal (score/support/entries)"

// Series names on the signal panel.
const (
	SeriesBaseline = "score"
	SeriesBuy      = "buy"
	SeriesSell     = "sell"
	SeriesSupport  = "support"
	SeriesEntry    = "entry"
)

// Entry bar geometry.
const (
	EntryBarHeight   = 0.95
	EntryColorOn     = "rgba(255,193,7,0.7)"
	EntryColorOff    = "rgba(0,0,0,0)"
	thresholdLineClr = "#adb5bd"
)

// EntryBars turns the boolean entry series into histogram bars.
func EntryBars(entry core.Series) []panel.Point {
	out := make([]panel.Point, 0, len(entry))
	for _, e := range entry {
		bar := panel.Point{Time: e.Time, Color: EntryColorOff}
		if e.Value != 0 {
			bar.Value = EntryBarHeight
			bar.Color = EntryColorOn
		}
		out = append(out, bar)
	}
	return out
}

// Build draws the signal panel: the faint baseline score, buy and sell
// segments, the dotted support line, dashed lines at plus and minus the
// entry threshold and the entry bars on the left scale. It returns nil
// when there is neither score nor support, or nothing can be drawn.
func (s Segmenter) Build(c *panel.Container, p core.SignalPanel, override *core.Thresholds) (*panel.Panel, Segments) {
	segs := s.Segment(p, override)
	if p.Empty() {
		return nil, segs
	}
	pn := panel.Frame(c, Title, 160)
	if pn == nil {
		return nil, segs
	}
	pn.Clickable = true

	base := pn.AddLine(SeriesBaseline, "rgba(0,123,255,0.4)", 2)
	base.SetData(segs.Baseline)
	pn.AddLine(SeriesBuy, "#2e7d32", 3).SetData(segs.Buy)
	pn.AddLine(SeriesSell, "#c62828", 3).SetData(segs.Sell)

	support := pn.AddLine(SeriesSupport, "#2e7d32", 1)
	support.Style = panel.StyleDotted
	support.SetData(p.Support)

	base.AddPriceLine(segs.EntryThreshold, thresholdLineClr, panel.StyleDashed)
	base.AddPriceLine(-segs.EntryThreshold, thresholdLineClr, panel.StyleDashed)

	if len(p.Entry) > 0 {
		pn.AddHistogram(SeriesEntry, panel.ScaleLeft).SetBars(EntryBars(p.Entry))
	}
	return pn, segs
}
