// Package chart draws panel models as ECharts HTML with go-echarts.
package chart

import (
	"fmt"
	"io"
	"slices"
	"strconv"
	"strings"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/components"
	"github.com/go-echarts/go-echarts/v2/opts"
	"github.com/go-echarts/go-echarts/v2/render"

	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/panel"
)

// missing marks a gap so line segments break instead of interpolating.
const missing = "-"

const labelLayout = "2006-01-02 15:04"

// ClickEvent is the DOM event a clickable chart dispatches on document
// when its grid is clicked. detail carries {chart, time} with time in
// epoch seconds of the nearest axis sample.
const ClickEvent = "signalboard:click"

// ScriptURL is the ECharts bundle the snippets expect on the page.
const ScriptURL = "https://go-echarts.github.io/go-echarts-assets/assets/" + opts.EchartsJS

// Label formats a sample time as an x-axis category.
func Label(t core.Timestamp) string {
	return t.Time().Format(labelLayout)
}

// Axis returns the sorted union of every sample time in the panel.
func Axis(p *panel.Panel) []int64 {
	seen := make(map[int64]struct{})
	for _, s := range p.Series {
		for _, pt := range s.Points {
			seen[pt.Time.Unix()] = struct{}{}
		}
		for _, c := range s.Candles {
			seen[c.Time.Unix()] = struct{}{}
		}
	}
	axis := make([]int64, 0, len(seen))
	for t := range seen {
		axis = append(axis, t)
	}
	slices.Sort(axis)
	return axis
}

func labels(axis []int64) []string {
	out := make([]string, len(axis))
	for i, t := range axis {
		out[i] = Label(core.Unix(t))
	}
	return out
}

// ChartID joins idPrefix and a panel ID into an element ID that is also a
// valid JS identifier suffix; go-echarts names its instance goecharts_<id>.
func ChartID(idPrefix, panelID string) string {
	return strings.Map(func(r rune) rune {
		switch {
		case r >= 'a' && r <= 'z', r >= 'A' && r <= 'Z', r >= '0' && r <= '9', r == '_':
			return r
		default:
			return '_'
		}
	}, idPrefix+panelID)
}

// Build turns one chart panel into a go-echarts chart. List panels and
// panels without series return nil. idPrefix keeps chart IDs unique when
// several regions share a page.
func Build(p *panel.Panel, idPrefix string) components.Charter {
	if p == nil || p.Kind != panel.KindChart || len(p.Series) == 0 {
		return nil
	}
	axis := Axis(p)
	x := labels(axis)

	global := []charts.GlobalOpts{
		charts.WithTitleOpts(opts.Title{Title: p.Title}),
		charts.WithInitializationOpts(opts.Initialization{
			ChartID: ChartID(idPrefix, p.ID),
			Width:   "100%",
			Height:  fmt.Sprintf("%dpx", p.Height+40),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true), Trigger: "axis"}),
		charts.WithLegendOpts(opts.Legend{Show: opts.Bool(false)}),
		charts.WithYAxisOpts(opts.YAxis{Position: "right", Scale: opts.Bool(true)}),
	}

	var (
		lines  = charts.NewLine()
		bars   *charts.Bar
		kline  *charts.Kline
		hasBar bool
	)
	lines.SetGlobalOptions(global...)
	lines.SetXAxis(x)

	for _, s := range p.Series {
		switch s.Kind {
		case panel.SeriesCandles:
			kline = charts.NewKLine()
			kline.SetGlobalOptions(global...)
			kline.SetXAxis(x)
			kline.AddSeries(s.Name, klineData(axis, s.Candles))
		case panel.SeriesHistogram:
			if bars == nil {
				bars = charts.NewBar()
				bars.SetXAxis(x)
			}
			idx := 0
			if s.Scale == panel.ScaleLeft {
				idx = 1
				hasBar = true
			}
			bars.AddSeries(s.Name, barData(axis, s.Points), charts.WithBarChartOpts(opts.BarChart{YAxisIndex: idx}))
		default:
			lines.AddSeries(s.Name, lineData(axis, s.Points), lineOpts(s)...)
		}
	}

	base := &lines.RectChart
	if kline != nil {
		base = &kline.RectChart
		base.Overlap(lines)
	}
	if hasBar {
		base.ExtendYAxis(opts.YAxis{Position: "left", Min: 0, Max: 1, Show: opts.Bool(false)})
	}
	if bars != nil {
		base.Overlap(bars)
	}
	if p.Clickable {
		base.AddJSFuncStrs(opts.FuncOpts(clickScript(base.ChartID, axis)))
	}

	if kline != nil {
		return kline
	}
	return lines
}

func lineOpts(s *panel.Series) []charts.SeriesOpts {
	out := []charts.SeriesOpts{
		charts.WithLineStyleOpts(opts.LineStyle{Color: s.Color, Width: float32(s.Width), Type: string(s.Style)}),
		charts.WithItemStyleOpts(opts.ItemStyle{Color: s.Color}),
		charts.WithLineChartOpts(opts.LineChart{ShowSymbol: opts.Bool(false), ConnectNulls: opts.Bool(false)}),
	}

	if len(s.PriceLines) > 0 {
		items := make([]opts.MarkLineNameYAxisItem, 0, len(s.PriceLines))
		for _, pl := range s.PriceLines {
			items = append(items, opts.MarkLineNameYAxisItem{Name: fmt.Sprintf("%g", pl.Price), YAxis: pl.Price})
		}
		first := s.PriceLines[0]
		out = append(out,
			charts.WithMarkLineNameYAxisItemOpts(items...),
			charts.WithMarkLineStyleOpts(opts.MarkLineStyle{
				Symbol:    []string{"none", "none"},
				LineStyle: &opts.LineStyle{Color: first.Color, Type: string(first.Style)},
			}),
		)
	}

	if len(s.Markers) > 0 {
		values := make(map[int64]float64, len(s.Points))
		for _, pt := range s.Points {
			values[pt.Time.Unix()] = pt.Value
		}
		var items []markerItem
		for _, m := range s.Markers {
			v, ok := values[m.Time.Unix()]
			if !ok {
				continue
			}
			items = append(items, markPoint(m, Label(m.Time), v))
		}
		if len(items) > 0 {
			out = append(out, withMarkers(items))
		}
	}
	return out
}

// markerItem is a mark point shifted off its sample to the bar side the
// marker asks for. go-echarts has no offset field on coordinate items.
type markerItem struct {
	opts.MarkPointNameCoordItem
	SymbolOffset []interface{} `json:"symbolOffset,omitempty"`
}

// Marker glyphs sit just clear of the sample.
var (
	offsetAbove = []interface{}{0, "-120%"}
	offsetBelow = []interface{}{0, "120%"}
)

func markPoint(m panel.Marker, x string, y float64) markerItem {
	item := markerItem{MarkPointNameCoordItem: opts.MarkPointNameCoordItem{
		Name:       m.Text,
		Coordinate: []interface{}{x, y},
		Value:      m.Text,
		Symbol:     "triangle",
		SymbolSize: 10,
		ItemStyle:  &opts.ItemStyle{Color: m.Color},
	}}
	switch m.Shape {
	case panel.ArrowDown:
		item.SymbolRotate = 180
	case panel.Circle:
		item.Symbol = "circle"
	}
	switch m.Position {
	case panel.AboveBar:
		item.SymbolOffset = offsetAbove
	case panel.BelowBar:
		item.SymbolOffset = offsetBelow
	}
	return item
}

func withMarkers(items []markerItem) charts.SeriesOpts {
	return func(s *charts.SingleSeries) {
		if s.MarkPoints == nil {
			s.MarkPoints = &opts.MarkPoints{}
		}
		for _, it := range items {
			s.MarkPoints.Data = append(s.MarkPoints.Data, it)
		}
	}
}

// clickScript reports grid clicks as ClickEvent, snapping the pixel to the
// nearest category index on the panel's epoch axis.
func clickScript(chartID string, axis []int64) string {
	secs := make([]string, len(axis))
	for i, t := range axis {
		secs[i] = strconv.FormatInt(t, 10)
	}
	return fmt.Sprintf(`(function () {
	var chart = %%MY_ECHARTS%%;
	var axis = [%s];
	chart.getZr().on('click', function (e) {
		var px = [e.offsetX, e.offsetY];
		if (!chart.containPixel('grid', px)) { return; }
		var i = Math.round(chart.convertFromPixel({xAxisIndex: 0}, px)[0]);
		if (!(i >= 0 && i < axis.length)) { return; }
		document.dispatchEvent(new CustomEvent(%q, {detail: {chart: %q, time: axis[i]}}));
	});
})();`, strings.Join(secs, ","), ClickEvent, chartID)
}

func lineData(axis []int64, pts []panel.Point) []opts.LineData {
	byTime := make(map[int64]float64, len(pts))
	for _, p := range pts {
		byTime[p.Time.Unix()] = p.Value
	}
	out := make([]opts.LineData, len(axis))
	for i, t := range axis {
		if v, ok := byTime[t]; ok {
			out[i] = opts.LineData{Value: v}
		} else {
			out[i] = opts.LineData{Value: missing}
		}
	}
	return out
}

func barData(axis []int64, pts []panel.Point) []opts.BarData {
	byTime := make(map[int64]panel.Point, len(pts))
	for _, p := range pts {
		byTime[p.Time.Unix()] = p
	}
	out := make([]opts.BarData, len(axis))
	for i, t := range axis {
		p, ok := byTime[t]
		if !ok {
			out[i] = opts.BarData{Value: missing}
			continue
		}
		out[i] = opts.BarData{Value: p.Value, ItemStyle: &opts.ItemStyle{Color: p.Color}}
	}
	return out
}

func klineData(axis []int64, candles []core.Candle) []opts.KlineData {
	byTime := make(map[int64]core.Candle, len(candles))
	for _, c := range candles {
		byTime[c.Time.Unix()] = c
	}
	out := make([]opts.KlineData, len(axis))
	for i, t := range axis {
		c, ok := byTime[t]
		if !ok {
			out[i] = opts.KlineData{Value: missing}
			continue
		}
		out[i] = opts.KlineData{Value: [4]float64{c.Open, c.Close, c.Low, c.High}}
	}
	return out
}

// Page collects the chart panels of a region into one page.
func Page(title, idPrefix string, panels []*panel.Panel) *components.Page {
	page := components.NewPage()
	page.SetPageTitle(title)
	for _, p := range panels {
		if c := Build(p, idPrefix); c != nil {
			page.AddCharts(c)
		}
	}
	return page
}

// Render writes the page HTML for panels.
func Render(w io.Writer, title, idPrefix string, panels []*panel.Panel) error {
	if err := Page(title, idPrefix, panels).Render(w); err != nil {
		return fmt.Errorf("rendering %s: %w", title, err)
	}
	return nil
}

// Snippets renders the chart panels as fragments for embedding in an
// existing page. The page must load ScriptURL.
func Snippets(idPrefix string, panels []*panel.Panel) []render.ChartSnippet {
	var out []render.ChartSnippet
	for _, p := range panels {
		c := Build(p, idPrefix)
		if c == nil {
			continue
		}
		if r, ok := c.(render.Renderer); ok {
			out = append(out, r.RenderSnippet())
		}
	}
	return out
}
