// Package panel is the render model shared by every builder: titled chart
// cards holding named series, and titled list cards.
package panel

import (
	"github.com/newthinker/signalboard/internal/core"
)

// Kind distinguishes chart cards from list cards.
type Kind string

const (
	KindChart Kind = "chart"
	KindList  Kind = "list"
)

// SeriesKind is the drawing primitive for a series.
type SeriesKind string

const (
	SeriesLine      SeriesKind = "line"
	SeriesHistogram SeriesKind = "histogram"
	SeriesCandles   SeriesKind = "candles"
)

// LineStyle is the stroke pattern of a line or price line.
type LineStyle string

const (
	StyleSolid  LineStyle = "solid"
	StyleDotted LineStyle = "dotted"
	StyleDashed LineStyle = "dashed"
)

// Position places a marker relative to its bar.
type Position string

const (
	AboveBar Position = "aboveBar"
	BelowBar Position = "belowBar"
)

// Shape is the marker glyph.
type Shape string

const (
	ArrowUp   Shape = "arrowUp"
	ArrowDown Shape = "arrowDown"
	Circle    Shape = "circle"
)

// Value scales. Entry bars sit on ScaleLeft so they never share a scale
// with price or score.
const (
	ScaleRight = "right"
	ScaleLeft  = "left"
)

// Marker is a point-in-time overlay annotation.
type Marker struct {
	Time     core.Timestamp `json:"time"`
	Position Position       `json:"position"`
	Color    string         `json:"color"`
	Shape    Shape          `json:"shape"`
	Text     string         `json:"text"`
}

// PriceLine is a horizontal reference line.
type PriceLine struct {
	Price     float64   `json:"price"`
	Color     string    `json:"color"`
	Style     LineStyle `json:"style"`
	AxisLabel bool      `json:"axis_label"`
}

// Point is one drawn sample. Color is only set on histogram bars.
type Point struct {
	Time  core.Timestamp `json:"time"`
	Value float64        `json:"value"`
	Color string         `json:"color,omitempty"`
}

// Series is one named drawing inside a chart panel.
type Series struct {
	Name       string        `json:"name"`
	Kind       SeriesKind    `json:"kind"`
	Color      string        `json:"color,omitempty"`
	Width      int           `json:"width,omitempty"`
	Style      LineStyle     `json:"style,omitempty"`
	Scale      string        `json:"scale"`
	Points     []Point       `json:"points,omitempty"`
	Candles    []core.Candle `json:"candles,omitempty"`
	Markers    []Marker      `json:"markers,omitempty"`
	PriceLines []PriceLine   `json:"price_lines,omitempty"`
}

// SetData replaces the series samples.
func (s *Series) SetData(data core.Series) {
	s.Points = make([]Point, 0, len(data))
	for _, p := range data {
		s.Points = append(s.Points, Point{Time: p.Time, Value: p.Value})
	}
}

// SetBars replaces the series samples with pre-coloured bars.
func (s *Series) SetBars(bars []Point) {
	s.Points = append([]Point(nil), bars...)
}

// SetMarkers replaces all markers on the series.
func (s *Series) SetMarkers(markers []Marker) {
	s.Markers = append([]Marker(nil), markers...)
}

// AddPriceLine attaches a horizontal reference line.
func (s *Series) AddPriceLine(price float64, color string, style LineStyle) {
	s.PriceLines = append(s.PriceLines, PriceLine{
		Price:     price,
		Color:     color,
		Style:     style,
		AxisLabel: true,
	})
}

// ListItem is one entry of a list panel.
type ListItem struct {
	Heading string `json:"heading"`
	Text    string `json:"text"`
	URL     string `json:"url,omitempty"`
}

// Panel is one titled card.
type Panel struct {
	ID        string     `json:"id"`
	Title     string     `json:"title"`
	Kind      Kind       `json:"kind"`
	Height    int        `json:"height,omitempty"`
	MaxHeight int        `json:"max_height,omitempty"`
	Clickable bool       `json:"clickable,omitempty"`
	Series    []*Series  `json:"series,omitempty"`
	Items     []ListItem `json:"items,omitempty"`
}

// AddLine adds a line series on the right scale.
func (p *Panel) AddLine(name, color string, width int) *Series {
	s := &Series{
		Name:  name,
		Kind:  SeriesLine,
		Color: color,
		Width: width,
		Style: StyleSolid,
		Scale: ScaleRight,
	}
	p.Series = append(p.Series, s)
	return s
}

// AddHistogram adds a histogram series whose bars carry their own colour.
func (p *Panel) AddHistogram(name, scale string) *Series {
	if scale == "" {
		scale = ScaleRight
	}
	s := &Series{Name: name, Kind: SeriesHistogram, Scale: scale}
	p.Series = append(p.Series, s)
	return s
}

// AddCandles adds a candlestick series.
func (p *Panel) AddCandles(name string, candles []core.Candle) *Series {
	s := &Series{
		Name:    name,
		Kind:    SeriesCandles,
		Scale:   ScaleRight,
		Candles: append([]core.Candle(nil), candles...),
	}
	p.Series = append(p.Series, s)
	return s
}

// AddItem appends a list entry.
func (p *Panel) AddItem(item ListItem) {
	p.Items = append(p.Items, item)
}

// Lookup returns the series with the given name.
func (p *Panel) Lookup(name string) (*Series, bool) {
	for _, s := range p.Series {
		if s.Name == name {
			return s, true
		}
	}
	return nil, false
}

// Cycle picks a colour from palette by series index.
func Cycle(palette []string, i int) string {
	if len(palette) == 0 {
		return ""
	}
	return palette[i%len(palette)]
}
