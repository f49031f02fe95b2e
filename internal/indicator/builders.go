// Package indicator builds one dashboard panel per indicator family.
//
// Every builder is a no-op returning nil when its family is absent or the
// container cannot draw charts. Colours are fixed per family; multi-period
// families cycle through a palette by sub-series index.
package indicator

import (
	"fmt"
	"maps"
	"slices"
	"strings"

	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/panel"
)

// Panel titles.
const (
	TitleRSI       = "RSI"
	TitleMACD      = "MACD"
	TitleStoch     = "Stochastic"
	TitleBollinger = "Bollinger Bands"
	TitleATR       = "ATR"
	TitleEMA       = "EMA"
	TitleSMA       = "SMA"
	TitleCCI       = "CCI"
	TitleWillR     = "Williams %R"
	TitleMFI       = "MFI"
	TitleOBV       = "OBV"
	TitleROC       = "ROC"
	TitleNews      = "News used in signal"
	TitlePrice     = "Price"
)

// Single-line colours.
const (
	ColorCCI   = "#80cbc4"
	ColorWillR = "#e83e8c"
	ColorMFI   = "#0dcaf0"
	ColorOBV   = "#795548"
)

var (
	emaPalette = []string{"#0d6efd", "#198754", "#fd7e14", "#6f42c1", "#0dcaf0", "#ffc107", "#795548", "#e83e8c"}
	smaPalette = []string{"#6c757d", "#a3cfbb", "#ffcd39", "#d0b3e2", "#80cbc4", "#ffe69c"}
	rocPalette = []string{"#0dcaf0", "#e83e8c", "#fd7e14", "#198754", "#0d6efd"}
)

// RSI draws the RSI line with 30/70 reference lines and OB/OS markers.
func RSI(c *panel.Container, rsi analysis.Line) *panel.Panel {
	if !rsi.Present() {
		return nil
	}
	p := panel.Frame(c, TitleRSI, 120)
	if p == nil {
		return nil
	}
	line := p.AddLine("rsi", "#0d6efd", 2)
	line.SetData(rsi.Points)
	line.AddPriceLine(RSIOversold, colorRefLine, panel.StyleDashed)
	line.AddPriceLine(RSIOverbought, colorRefLine, panel.StyleDashed)
	line.SetMarkers(RSIMarkers(rsi.Points))
	return p
}

// MACD draws the MACD and signal lines over a sign-coloured histogram.
func MACD(c *panel.Container, m analysis.MACD) *panel.Panel {
	if !m.Present() {
		return nil
	}
	p := panel.Frame(c, TitleMACD, 140)
	if p == nil {
		return nil
	}
	p.AddLine("macd", colorUp, 2).SetData(m.MACD)
	p.AddLine("signal", colorDown, 2).SetData(m.Signal)
	p.AddHistogram("hist", panel.ScaleRight).SetBars(HistogramBars(m.Hist))
	return p
}

// Stochastic draws %K and %D with 20/80 reference lines and cross markers.
func Stochastic(c *panel.Container, s analysis.Stochastic) *panel.Panel {
	if !s.Present() {
		return nil
	}
	p := panel.Frame(c, TitleStoch, 120)
	if p == nil {
		return nil
	}
	k := p.AddLine("%K", "#6f42c1", 2)
	k.SetData(s.K)
	p.AddLine("%D", "#ffc107", 2).SetData(s.D)
	k.AddPriceLine(StochLow, colorRefLine, panel.StyleDashed)
	k.AddPriceLine(StochHigh, colorRefLine, panel.StyleDashed)
	k.SetMarkers(StochMarkers(s.K, s.D))
	return p
}

// Bollinger draws the three bands with close-touch markers on the middle band.
func Bollinger(c *panel.Container, b analysis.Bands, candles []core.Candle) *panel.Panel {
	if !b.Present() {
		return nil
	}
	p := panel.Frame(c, TitleBollinger, 130)
	if p == nil {
		return nil
	}
	p.AddLine("up", "#6c757d", 1).SetData(b.Up)
	mid := p.AddLine("mid", "#495057", 1)
	mid.SetData(b.Mid)
	p.AddLine("dn", "#6c757d", 1).SetData(b.Dn)
	mid.SetMarkers(BandTouchMarkers(b, candles))
	return p
}

// ATR draws the average true range.
func ATR(c *panel.Container, atr analysis.Line) *panel.Panel {
	if !atr.Present() {
		return nil
	}
	p := panel.Frame(c, TitleATR, 120)
	if p == nil {
		return nil
	}
	p.AddLine("atr", "#fd7e14", 2).SetData(atr.Points)
	return p
}

// EMA draws one line per EMA period.
func EMA(c *panel.Container, periods analysis.Periods) *panel.Panel {
	return multiPeriod(c, TitleEMA, 130, emaPalette, "ema", periods)
}

// SMA draws one line per SMA period.
func SMA(c *panel.Container, periods analysis.Periods) *panel.Panel {
	return multiPeriod(c, TitleSMA, 130, smaPalette, "sma", periods)
}

// ROC draws one line per rate-of-change period.
func ROC(c *panel.Container, periods analysis.Periods) *panel.Panel {
	return multiPeriod(c, TitleROC, 140, rocPalette, "roc", periods)
}

func multiPeriod(c *panel.Container, title string, height int, palette []string, prefix string, periods analysis.Periods) *panel.Panel {
	if !periods.Present() {
		return nil
	}
	p := panel.Frame(c, title, height)
	if p == nil {
		return nil
	}
	for i, e := range periods.Entries {
		p.AddLine(prefix+"_"+e.Label, panel.Cycle(palette, i), 1).SetData(e.Points)
	}
	return p
}

// SimpleLine draws a single titled line. Unlike the other builders it
// also skips a present but empty series.
func SimpleLine(c *panel.Container, title, color string, l analysis.Line) *panel.Panel {
	if !l.Present() || len(l.Points) == 0 {
		return nil
	}
	p := panel.Frame(c, title, panel.DefaultHeight)
	if p == nil {
		return nil
	}
	p.AddLine(strings.ToLower(title), color, 2).SetData(l.Points)
	return p
}

// News lists the news items that fed the signal.
func News(c *panel.Container, items []core.NewsItem) *panel.Panel {
	if len(items) == 0 {
		return nil
	}
	p := panel.ListFrame(c, TitleNews)
	if p == nil {
		return nil
	}
	for _, n := range items {
		p.AddItem(NewsItem(n))
	}
	return p
}

// NewsItem formats one news entry as "when [provider] | Sent: x.xx (symbols)"
// over its title.
func NewsItem(n core.NewsItem) panel.ListItem {
	var head strings.Builder
	if !n.Time.IsZero() {
		head.WriteString(n.Time.Time().Format("2006-01-02 15:04:05"))
	}
	if n.Provider != "" {
		fmt.Fprintf(&head, " [%s]", n.Provider)
	}
	if n.Sentiment != nil {
		fmt.Fprintf(&head, " | Sent: %.2f", *n.Sentiment)
	}
	if n.Symbols != "" {
		fmt.Fprintf(&head, " (%s)", n.Symbols)
	}

	text := n.Title
	if text == "" {
		text = "(no title)"
		if n.URL != "" {
			text = "(link)"
		}
	}
	return panel.ListItem{
		Heading: strings.TrimSpace(head.String()),
		Text:    text,
		URL:     n.URL,
	}
}

// Price draws the candles with the per-candle overlay lines.
func Price(c *panel.Container, candles []core.Candle, overlays map[string]core.Series) *panel.Panel {
	if len(candles) == 0 {
		return nil
	}
	p := panel.Frame(c, TitlePrice, 320)
	if p == nil {
		return nil
	}
	p.AddCandles("candles", candles)
	for i, name := range slices.Sorted(maps.Keys(overlays)) {
		p.AddLine(name, panel.Cycle(emaPalette, i), 1).SetData(overlays[name])
	}
	return p
}
