// Package render composes analysis bundles into dashboard regions.
package render

import (
	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/indicator"
	"github.com/newthinker/signalboard/internal/panel"
	"github.com/newthinker/signalboard/internal/signal"
)

// Input is what one render pass builds from.
type Input struct {
	Payload *analysis.Payload
	// Thresholds override the payload's signal thresholds when set.
	Thresholds *core.Thresholds
}

// Step is one named panel builder in the composition order.
type Step struct {
	Name  string
	Build func(c *panel.Container, in Input) *panel.Panel
}

// DefaultSteps returns the fixed composition order: signal, RSI, MACD,
// Stochastic, Bollinger, ATR, EMA, SMA, CCI, Williams %R, MFI, OBV, ROC
// and news.
func DefaultSteps(seg signal.Segmenter) []Step {
	return []Step{
		{Name: "signal", Build: func(c *panel.Container, in Input) *panel.Panel {
			pn, _ := seg.Build(c, in.Payload.Signal, in.Thresholds)
			return pn
		}},
		{Name: "rsi", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.RSI(c, in.Payload.Indicators.RSI)
		}},
		{Name: "macd", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.MACD(c, in.Payload.Indicators.MACD)
		}},
		{Name: "stoch", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.Stochastic(c, in.Payload.Indicators.Stoch)
		}},
		{Name: "bbands", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.Bollinger(c, in.Payload.Indicators.BBands, in.Payload.Candles)
		}},
		{Name: "atr", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.ATR(c, in.Payload.Indicators.ATR)
		}},
		{Name: "ema", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.EMA(c, in.Payload.Indicators.EMA)
		}},
		{Name: "sma", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.SMA(c, in.Payload.Indicators.SMA)
		}},
		{Name: "cci", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.SimpleLine(c, indicator.TitleCCI, indicator.ColorCCI, in.Payload.Indicators.CCI)
		}},
		{Name: "willr", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.SimpleLine(c, indicator.TitleWillR, indicator.ColorWillR, in.Payload.Indicators.WillR)
		}},
		{Name: "mfi", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.SimpleLine(c, indicator.TitleMFI, indicator.ColorMFI, in.Payload.Indicators.MFI)
		}},
		{Name: "obv", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.SimpleLine(c, indicator.TitleOBV, indicator.ColorOBV, in.Payload.Indicators.OBV)
		}},
		{Name: "roc", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.ROC(c, in.Payload.Indicators.ROC)
		}},
		{Name: "news", Build: func(c *panel.Container, in Input) *panel.Panel {
			return indicator.News(c, in.Payload.News)
		}},
	}
}

// Orchestrate runs every step against a fresh container. Untrained
// payloads build nothing.
func Orchestrate(steps []Step, in Input, drawable bool) *panel.Container {
	c := panel.NewContainer(drawable)
	if in.Payload == nil || !in.Payload.Trained {
		return c
	}
	for _, s := range steps {
		s.Build(c, in)
	}
	return c
}
