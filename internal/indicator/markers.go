package indicator

import (
	"math"

	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/panel"
	"github.com/newthinker/signalboard/internal/series"
)

// Overbought/oversold levels.
const (
	RSIOverbought = 70.0
	RSIOversold   = 30.0
	StochHigh     = 80.0
	StochLow      = 20.0
)

const (
	colorUp       = "#198754"
	colorDown     = "#dc3545"
	colorRefLine  = "#adb5bd"
	colorTouchUp  = "#fd7e14"
	colorTouchDn  = "#0dcaf0"
	colorHistUp   = "rgba(25,135,84,0.5)"
	colorHistDown = "rgba(220,53,69,0.5)"
)

// RSIMarkers flags overbought samples (>= 70) above the bar and oversold
// samples (<= 30) below it.
func RSIMarkers(s core.Series) []panel.Marker {
	var out []panel.Marker
	for _, p := range s {
		switch {
		case p.Value >= RSIOverbought:
			out = append(out, panel.Marker{Time: p.Time, Position: panel.AboveBar, Color: colorDown, Shape: panel.ArrowDown, Text: "OB"})
		case p.Value <= RSIOversold:
			out = append(out, panel.Marker{Time: p.Time, Position: panel.BelowBar, Color: colorUp, Shape: panel.ArrowUp, Text: "OS"})
		}
	}
	return out
}

// StochMarkers flags %K crossing above %D in the oversold zone and %K
// crossing below %D in the overbought zone. K and D are paired by index.
func StochMarkers(k, d core.Series) []panel.Marker {
	n := min(len(k), len(d))
	var out []panel.Marker
	for i := 1; i < n; i++ {
		prevUp := k[i-1].Value > d[i-1].Value
		nowUp := k[i].Value > d[i].Value
		if !prevUp && nowUp && k[i].Value < StochLow {
			out = append(out, panel.Marker{Time: k[i].Time, Position: panel.BelowBar, Color: colorUp, Shape: panel.ArrowUp, Text: "K↑D"})
		}
		if prevUp && !nowUp && k[i].Value > StochHigh {
			out = append(out, panel.Marker{Time: k[i].Time, Position: panel.AboveBar, Color: colorDown, Shape: panel.ArrowDown, Text: "K↓D"})
		}
	}
	return out
}

// BandTouchMarkers flags candles closing on or outside the Bollinger
// envelope. The lower band is read at the upper band's index; a missing
// lower sample never counts as a touch.
func BandTouchMarkers(b analysis.Bands, candles []core.Candle) []panel.Marker {
	closes := series.CloseIndex(candles)
	var out []panel.Marker
	for i, up := range b.Up {
		c, ok := closes[up.Time.Unix()]
		if !ok {
			continue
		}
		dn := math.NaN()
		if i < len(b.Dn) {
			dn = b.Dn[i].Value
		}
		switch {
		case c >= up.Value:
			out = append(out, panel.Marker{Time: up.Time, Position: panel.AboveBar, Color: colorTouchUp, Shape: panel.ArrowDown, Text: "touch↑"})
		case c <= dn:
			out = append(out, panel.Marker{Time: up.Time, Position: panel.BelowBar, Color: colorTouchDn, Shape: panel.ArrowUp, Text: "touch↓"})
		}
	}
	return out
}

// HistogramBars colours MACD histogram samples by sign.
func HistogramBars(hist core.Series) []panel.Point {
	out := make([]panel.Point, 0, len(hist))
	for _, p := range hist {
		color := colorHistDown
		if p.Value >= 0 {
			color = colorHistUp
		}
		out = append(out, panel.Point{Time: p.Time, Value: p.Value, Color: color})
	}
	return out
}
