package indicator

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/panel"
)

func pts(values ...float64) core.Series {
	out := make(core.Series, len(values))
	for i, v := range values {
		out[i] = core.TimedPoint{Time: core.Unix(int64(i+1) * 60), Value: v}
	}
	return out
}

func TestRSIMarkers_Boundaries(t *testing.T) {
	markers := RSIMarkers(pts(70, 69.999, 30, 30.001))
	require.Len(t, markers, 2)

	assert.Equal(t, "OB", markers[0].Text)
	assert.Equal(t, int64(60), markers[0].Time.Unix())
	assert.Equal(t, panel.AboveBar, markers[0].Position)
	assert.Equal(t, panel.ArrowDown, markers[0].Shape)
	assert.Equal(t, "#dc3545", markers[0].Color)

	assert.Equal(t, "OS", markers[1].Text)
	assert.Equal(t, int64(180), markers[1].Time.Unix())
	assert.Equal(t, panel.BelowBar, markers[1].Position)
	assert.Equal(t, "#198754", markers[1].Color)
}

func TestStochMarkers(t *testing.T) {
	tests := []struct {
		name string
		k, d core.Series
		want []string
	}{
		{"oversold bullish cross", pts(10, 15), pts(12, 12), []string{"K↑D"}},
		{"bullish cross outside zone", pts(30, 40), pts(35, 35), nil},
		{"overbought bearish cross", pts(90, 85), pts(88, 88), []string{"K↓D"}},
		{"bearish cross outside zone", pts(70, 60), pts(65, 65), nil},
		{"equal values are not up", pts(15, 15, 18), pts(15, 15, 16), []string{"K↑D"}},
		{"shorter D bounds the scan", pts(10, 15, 90), pts(12, 12), []string{"K↑D"}},
		{"single sample", pts(10), pts(12), nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			var got []string
			for _, m := range StochMarkers(tt.k, tt.d) {
				got = append(got, m.Text)
			}
			assert.Equal(t, tt.want, got)
		})
	}
}

func TestBandTouchMarkers(t *testing.T) {
	candles := []core.Candle{
		{Time: core.Unix(60), Close: 11},
		{Time: core.Unix(120), Close: 8},
		{Time: core.Unix(180), Close: 10},
		{Time: core.Unix(240), Close: 5},
	}
	b := analysis.NewBands(
		pts(10, 12, 12, 12, 12),
		pts(9, 10, 10, 10, 10),
		pts(8, 8, 8),
	)

	markers := BandTouchMarkers(b, candles)
	require.Len(t, markers, 2)
	assert.Equal(t, "touch↑", markers[0].Text)
	assert.Equal(t, int64(60), markers[0].Time.Unix())
	assert.Equal(t, "#fd7e14", markers[0].Color)
	assert.Equal(t, "touch↓", markers[1].Text)
	assert.Equal(t, int64(120), markers[1].Time.Unix())
	assert.Equal(t, panel.BelowBar, markers[1].Position)
}

func TestHistogramBars(t *testing.T) {
	bars := HistogramBars(pts(0, -0.5, 1))
	require.Len(t, bars, 3)
	assert.Equal(t, "rgba(25,135,84,0.5)", bars[0].Color)
	assert.Equal(t, "rgba(220,53,69,0.5)", bars[1].Color)
	assert.Equal(t, "rgba(25,135,84,0.5)", bars[2].Color)
}

func TestBuilders_AbsentIsNoop(t *testing.T) {
	c := panel.NewContainer(true)

	assert.Nil(t, RSI(c, analysis.Line{}))
	assert.Nil(t, MACD(c, analysis.MACD{}))
	assert.Nil(t, Stochastic(c, analysis.Stochastic{}))
	assert.Nil(t, Bollinger(c, analysis.Bands{}, nil))
	assert.Nil(t, ATR(c, analysis.Line{}))
	assert.Nil(t, EMA(c, analysis.Periods{}))
	assert.Nil(t, SMA(c, analysis.Periods{}))
	assert.Nil(t, ROC(c, analysis.Periods{}))
	assert.Nil(t, SimpleLine(c, TitleCCI, ColorCCI, analysis.NewLine(nil)))
	assert.Nil(t, News(c, nil))
	assert.Nil(t, Price(c, nil, nil))
	assert.Zero(t, c.Len())
}

func TestBuilders_UndrawableContainer(t *testing.T) {
	c := panel.NewContainer(false)
	assert.Nil(t, RSI(c, analysis.NewLine(pts(50))))
	assert.Nil(t, EMA(c, analysis.NewPeriods(analysis.PeriodSeries{Label: "20", Points: pts(1)})))

	news := News(c, []core.NewsItem{{Title: "still listed"}})
	require.NotNil(t, news)
	assert.Equal(t, panel.KindList, news.Kind)
	assert.Equal(t, 1, c.Len())
}

func TestRSI_Panel(t *testing.T) {
	c := panel.NewContainer(true)
	p := RSI(c, analysis.NewLine(pts(75, 50, 25)))
	require.NotNil(t, p)

	assert.Equal(t, TitleRSI, p.Title)
	assert.Equal(t, 120, p.Height)
	line, ok := p.Lookup("rsi")
	require.True(t, ok)
	assert.Equal(t, "#0d6efd", line.Color)
	assert.Len(t, line.Points, 3)
	require.Len(t, line.PriceLines, 2)
	assert.Equal(t, 30.0, line.PriceLines[0].Price)
	assert.Equal(t, 70.0, line.PriceLines[1].Price)
	assert.Len(t, line.Markers, 2)
}

func TestMACD_Panel(t *testing.T) {
	c := panel.NewContainer(true)
	p := MACD(c, analysis.NewMACD(pts(1, 2), pts(1), pts(-1, 1)))
	require.NotNil(t, p)
	assert.Equal(t, 140, p.Height)
	require.Len(t, p.Series, 3)
	assert.Equal(t, "#198754", p.Series[0].Color)
	assert.Equal(t, "#dc3545", p.Series[1].Color)
	assert.Equal(t, panel.SeriesHistogram, p.Series[2].Kind)
}

func TestMultiPeriod_PaletteCycles(t *testing.T) {
	entries := make([]analysis.PeriodSeries, 0, 7)
	for _, label := range []string{"5", "10", "20", "50", "100", "150", "200"} {
		entries = append(entries, analysis.PeriodSeries{Label: label, Points: pts(1)})
	}
	c := panel.NewContainer(true)
	p := SMA(c, analysis.NewPeriods(entries...))
	require.NotNil(t, p)
	require.Len(t, p.Series, 7)
	assert.Equal(t, "sma_5", p.Series[0].Name)
	assert.Equal(t, "#6c757d", p.Series[0].Color)
	assert.Equal(t, "#6c757d", p.Series[6].Color)
	assert.Equal(t, "#a3cfbb", p.Series[1].Color)

	roc := ROC(c, analysis.NewPeriods(entries[:2]...))
	require.NotNil(t, roc)
	assert.Equal(t, "#0dcaf0", roc.Series[0].Color)
	assert.Equal(t, 140, roc.Height)
}

func TestSimpleLine(t *testing.T) {
	c := panel.NewContainer(true)
	p := SimpleLine(c, TitleWillR, ColorWillR, analysis.NewLine(pts(-20, -80)))
	require.NotNil(t, p)
	assert.Equal(t, "Williams %R", p.Title)
	assert.Equal(t, panel.DefaultHeight, p.Height)
	assert.Equal(t, ColorWillR, p.Series[0].Color)
}

func TestNewsItem(t *testing.T) {
	sent := 0.456
	tests := []struct {
		name    string
		in      core.NewsItem
		heading string
		text    string
	}{
		{
			name:    "full",
			in:      core.NewsItem{Time: core.Unix(0), Title: "Rates", URL: "https://x", Provider: "wire", Sentiment: &sent, Symbols: "BTC,ETH"},
			heading: "1970-01-01 00:00:00 [wire] | Sent: 0.46 (BTC,ETH)",
			text:    "Rates",
		},
		{name: "link fallback", in: core.NewsItem{URL: "https://x"}, text: "(link)"},
		{name: "title fallback", in: core.NewsItem{}, text: "(no title)"},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			item := NewsItem(tt.in)
			assert.Equal(t, tt.heading, item.Heading)
			assert.Equal(t, tt.text, item.Text)
		})
	}
}

func TestPrice_Overlays(t *testing.T) {
	c := panel.NewContainer(true)
	candles := []core.Candle{{Time: core.Unix(60), Open: 1, High: 2, Low: 0.5, Close: 1.5}}
	p := Price(c, candles, map[string]core.Series{"sma_50": pts(1), "ema_20": pts(1)})
	require.NotNil(t, p)
	require.Len(t, p.Series, 3)
	assert.Equal(t, panel.SeriesCandles, p.Series[0].Kind)
	assert.Equal(t, "ema_20", p.Series[1].Name)
	assert.Equal(t, "sma_50", p.Series[2].Name)
}
