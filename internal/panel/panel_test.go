package panel

import (
	"testing"

	"github.com/newthinker/signalboard/internal/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestFrame_RequiresDrawableContainer(t *testing.T) {
	c := NewContainer(false)
	assert.Nil(t, Frame(c, "RSI", 120))
	assert.Equal(t, 0, c.Len())

	// lists do not need a chart substrate
	require.NotNil(t, ListFrame(c, "News"))
	assert.Equal(t, 1, c.Len())
}

func TestFrame_OrderAndIDs(t *testing.T) {
	c := NewContainer(true)
	a := Frame(c, "Williams %R", 0)
	b := Frame(c, "Williams %R", 140)
	l := ListFrame(c, "News used in signal")

	require.NotNil(t, a)
	assert.Equal(t, "williams-r", a.ID)
	assert.Equal(t, DefaultHeight, a.Height)
	assert.Equal(t, "williams-r-2", b.ID)
	assert.Equal(t, 140, b.Height)
	assert.Equal(t, KindList, l.Kind)
	assert.Equal(t, ListMaxHeight, l.MaxHeight)
	assert.Equal(t, []*Panel{a, b, l}, c.Panels())
}

func TestNilContainer(t *testing.T) {
	var c *Container
	assert.False(t, c.Drawable())
	assert.Nil(t, Frame(c, "x", 10))
	assert.Nil(t, ListFrame(c, "x"))
	assert.Equal(t, 0, c.Len())
}

func TestSeries_SetMarkersReplaces(t *testing.T) {
	p := &Panel{}
	s := p.AddLine("rsi", "#0d6efd", 2)
	s.SetMarkers([]Marker{{Time: core.Unix(1), Text: "OB"}, {Time: core.Unix(2), Text: "OB"}})
	s.SetMarkers([]Marker{{Time: core.Unix(3), Text: "OS"}})

	require.Len(t, s.Markers, 1)
	assert.Equal(t, "OS", s.Markers[0].Text)
}

func TestSeries_SetData(t *testing.T) {
	p := &Panel{}
	s := p.AddLine("atr", "#fd7e14", 2)
	s.SetData(core.Series{{Time: core.Unix(1), Value: 1.5}})
	s.AddPriceLine(70, "#adb5bd", StyleDashed)

	require.Len(t, s.Points, 1)
	assert.Equal(t, 1.5, s.Points[0].Value)
	assert.Equal(t, ScaleRight, s.Scale)
	assert.Equal(t, []PriceLine{{Price: 70, Color: "#adb5bd", Style: StyleDashed, AxisLabel: true}}, s.PriceLines)

	found, ok := p.Lookup("atr")
	require.True(t, ok)
	assert.Same(t, s, found)
}

func TestCycle(t *testing.T) {
	palette := []string{"a", "b", "c"}
	assert.Equal(t, "a", Cycle(palette, 0))
	assert.Equal(t, "c", Cycle(palette, 2))
	assert.Equal(t, "b", Cycle(palette, 4))
	assert.Equal(t, "", Cycle(nil, 1))
}
