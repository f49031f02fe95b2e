package signal

import (
	"math"
	"math/rand"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/panel"
)

func f(v float64) *float64 { return &v }

func sampled(values ...float64) core.Series {
	out := make(core.Series, len(values))
	for i, v := range values {
		out[i] = core.TimedPoint{Time: core.Unix(int64(i) * 900), Value: v}
	}
	return out
}

func TestSegment_Classification(t *testing.T) {
	p := core.SignalPanel{
		Score:   sampled(0.8, -0.7, 0.5, -0.65, 0.6, -0.6),
		Support: sampled(0.5, 0.5, 0.9, 0.1, 0.3, 0.3),
	}
	segs := Segment(p, nil)

	assert.Equal(t, 0.6, segs.EntryThreshold)
	assert.Equal(t, 0.3, segs.MinSupport)
	assert.Len(t, segs.Baseline, 6)

	var buys, sells []float64
	for _, pt := range segs.Buy {
		buys = append(buys, pt.Value)
	}
	for _, pt := range segs.Sell {
		sells = append(sells, pt.Value)
	}
	assert.Equal(t, []float64{0.8, 0.6}, buys)
	assert.Equal(t, []float64{-0.7, -0.6}, sells)
}

func TestSegment_MissingSupportIsZero(t *testing.T) {
	p := core.SignalPanel{
		Score:   core.Series{{Time: core.Unix(1), Value: 0.8}},
		Support: core.Series{},
	}
	segs := Segment(p, nil)
	assert.Empty(t, segs.Buy)
	assert.Empty(t, segs.Sell)
	assert.Len(t, segs.Baseline, 1)
}

func TestSegment_ZeroMinSupportActivatesWithoutSupport(t *testing.T) {
	p := core.SignalPanel{
		Score:      core.Series{{Time: core.Unix(1), Value: 0.8}},
		Thresholds: &core.Thresholds{MinSupport: f(0)},
	}
	segs := Segment(p, nil)
	assert.Len(t, segs.Buy, 1)
}

func TestSegment_AlignsByExactTime(t *testing.T) {
	p := core.SignalPanel{
		Score:   core.Series{{Time: core.Unix(900), Value: 0.9}},
		Support: core.Series{{Time: core.Unix(901), Value: 1}},
	}
	assert.Empty(t, Segment(p, nil).Buy)
}

func TestSegment_Thresholds(t *testing.T) {
	p := core.SignalPanel{
		Score:      sampled(0.55),
		Support:    sampled(0.35),
		Thresholds: &core.Thresholds{Entry: f(0.5), MinSupport: f(0.4)},
	}

	segs := Segment(p, nil)
	assert.Equal(t, 0.5, segs.EntryThreshold)
	assert.Equal(t, 0.4, segs.MinSupport)
	assert.Empty(t, segs.Buy, "support below panel minimum")

	segs = Segment(p, &core.Thresholds{MinSupport: f(0.2)})
	assert.Equal(t, 0.5, segs.EntryThreshold, "entry falls through to the panel")
	assert.Equal(t, 0.2, segs.MinSupport)
	assert.Len(t, segs.Buy, 1)

	p.Thresholds = &core.Thresholds{Entry: f(math.NaN())}
	segs = Segment(p, nil)
	assert.Equal(t, DefaultEntryThreshold, segs.EntryThreshold)
}

func TestSegmenter_ConfiguredDefaults(t *testing.T) {
	s := NewSegmenter(Defaults{EntryThreshold: 0.5, MinSupport: 0.1})
	segs := s.Segment(core.SignalPanel{Score: sampled(0.55), Support: sampled(0.2)}, nil)
	assert.Len(t, segs.Buy, 1)

	s = NewSegmenter(Defaults{EntryThreshold: math.Inf(1), MinSupport: -1})
	assert.Equal(t, DefaultEntryThreshold, s.Defaults.EntryThreshold)
	assert.Equal(t, DefaultMinSupport, s.Defaults.MinSupport)
}

func TestSegment_EmptyScore(t *testing.T) {
	segs := Segment(core.SignalPanel{Support: sampled(1)}, nil)
	assert.Empty(t, segs.Baseline)
	assert.Empty(t, segs.Buy)
	assert.Empty(t, segs.Sell)
}

func TestSegment_Properties(t *testing.T) {
	rng := rand.New(rand.NewSource(7))
	for round := 0; round < 50; round++ {
		n := rng.Intn(40)
		score := make([]float64, n)
		support := make([]float64, n)
		for i := range score {
			score[i] = rng.Float64()*2 - 1
			support[i] = rng.Float64()
		}
		p := core.SignalPanel{Score: sampled(score...), Support: sampled(support...)}

		segs := Segment(p, nil)
		again := Segment(p, nil)
		require.Equal(t, segs, again)
		require.Len(t, segs.Baseline, n)

		seen := make(map[int64]bool)
		for _, pt := range segs.Buy {
			assert.True(t, pt.Value >= 0 && math.Abs(pt.Value) >= segs.EntryThreshold)
			seen[pt.Time.Unix()] = true
		}
		for _, pt := range segs.Sell {
			assert.True(t, pt.Value < 0 && math.Abs(pt.Value) >= segs.EntryThreshold)
			assert.False(t, seen[pt.Time.Unix()], "buy and sell overlap")
		}
	}
}

func TestBuild_SignalPanel(t *testing.T) {
	c := panel.NewContainer(true)
	p := core.SignalPanel{
		Score:   sampled(0.8, 0.1),
		Support: sampled(0.5, 0.5),
		Entry:   core.Series{{Time: core.Unix(0), Value: 1}, {Time: core.Unix(900), Value: 0}},
	}

	pn, segs := Segmenter{}.Build(c, p, nil)
	require.NotNil(t, pn)
	assert.Equal(t, Title, pn.Title)
	assert.Equal(t, 160, pn.Height)
	assert.True(t, pn.Clickable)
	assert.Len(t, segs.Buy, 1)

	base, ok := pn.Lookup(SeriesBaseline)
	require.True(t, ok)
	require.Len(t, base.PriceLines, 2)
	assert.Equal(t, 0.6, base.PriceLines[0].Price)
	assert.Equal(t, -0.6, base.PriceLines[1].Price)
	assert.Equal(t, panel.StyleDashed, base.PriceLines[0].Style)

	support, ok := pn.Lookup(SeriesSupport)
	require.True(t, ok)
	assert.Equal(t, panel.StyleDotted, support.Style)

	entry, ok := pn.Lookup(SeriesEntry)
	require.True(t, ok)
	assert.Equal(t, panel.ScaleLeft, entry.Scale)
	require.Len(t, entry.Points, 2)
	assert.Equal(t, EntryBarHeight, entry.Points[0].Value)
	assert.Equal(t, EntryColorOn, entry.Points[0].Color)
	assert.Equal(t, 0.0, entry.Points[1].Value)
	assert.Equal(t, EntryColorOff, entry.Points[1].Color)
}

func TestBuild_SkipsEmptyPanel(t *testing.T) {
	c := panel.NewContainer(true)
	pn, _ := Segmenter{}.Build(c, core.SignalPanel{Entry: sampled(1)}, nil)
	assert.Nil(t, pn)
	assert.Zero(t, c.Len())
}

func TestBuild_NoEntryNoHistogram(t *testing.T) {
	c := panel.NewContainer(true)
	pn, _ := Segmenter{}.Build(c, core.SignalPanel{Support: sampled(0.5)}, nil)
	require.NotNil(t, pn)
	_, ok := pn.Lookup(SeriesEntry)
	assert.False(t, ok)
}
