package main

import (
	"bytes"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/indicator"
	"github.com/newthinker/signalboard/internal/panel"
	"github.com/newthinker/signalboard/internal/render"
)

const payloadJSON = `{"data":{
  "trained": true,
  "summary": "Momentum is fading",
  "candles": [
    {"time": 3600, "open": 1, "high": 2, "low": 0.5, "close": 1.5, "volume": 10},
    {"time": 7200, "open": 1.5, "high": 2.5, "low": 1, "close": 2, "volume": 12}
  ],
  "signal_panel": {"score": [{"time": 3600, "value": 0.9}, {"time": 7200, "value": 0.2}]},
  "indicator_panels": {"rsi": [{"time": 3600, "value": 72}, {"time": 7200, "value": 65}]},
  "patterns": [{"time": 3600, "type": "doji"}]
}}`

func execute(t *testing.T, args ...string) (string, error) {
	t.Helper()
	loadEnvFunc = func(...string) error { return nil }

	var out bytes.Buffer
	rootCmd.SetOut(&out)
	rootCmd.SetErr(&out)
	rootCmd.SetArgs(args)
	err := rootCmd.Execute()
	return out.String(), err
}

func TestRenderCommand(t *testing.T) {
	dir := t.TempDir()
	in := filepath.Join(dir, "payload.json")
	require.NoError(t, os.WriteFile(in, []byte(payloadJSON), 0644))
	html := filepath.Join(dir, "out.html")

	out, err := execute(t, "render", in, "--symbol", "BTCUSDT", "--timeframe", "1h", "--html", html)
	require.NoError(t, err)

	assert.Contains(t, out, "Summary: Momentum is fading")
	assert.Contains(t, out, indicator.TitlePrice)
	assert.Contains(t, out, indicator.TitleRSI)
	assert.Contains(t, out, "Charts written to")

	page, err := os.ReadFile(html)
	require.NoError(t, err)
	assert.Contains(t, string(page), "BTCUSDT 1h")
	assert.Contains(t, string(page), "goecharts_cli_")
}

func TestRenderCommand_BadPayload(t *testing.T) {
	in := filepath.Join(t.TempDir(), "payload.json")
	require.NoError(t, os.WriteFile(in, []byte(`{"nope": 1}`), 0644))

	_, err := execute(t, "render", in, "--html", "")
	assert.ErrorIs(t, err, core.ErrDecodeFailed)
}

func TestVersionCommand(t *testing.T) {
	out, err := execute(t, "version")
	require.NoError(t, err)
	assert.Contains(t, out, "signalboard "+Version)
}

func TestThresholdFlags(t *testing.T) {
	assert.Nil(t, thresholdFlags(-1, -1))

	th := thresholdFlags(0.7, -1)
	require.NotNil(t, th)
	require.NotNil(t, th.Entry)
	assert.Equal(t, 0.7, *th.Entry)
	assert.Nil(t, th.MinSupport)

	th = thresholdFlags(-1, 0)
	require.NotNil(t, th.MinSupport)
	assert.Equal(t, 0.0, *th.MinSupport)
}

func TestPanelRow(t *testing.T) {
	c := panel.NewContainer(true)
	p := panel.Frame(c, "RSI", 120)
	p.AddLine("rsi", "#fff", 1).Points = []panel.Point{{Time: core.Unix(1)}, {Time: core.Unix(2)}}
	assert.Equal(t, "RSI", panelRow(p)[0])
	assert.Equal(t, 1, panelRow(p)[2])
	assert.Equal(t, 2, panelRow(p)[3])

	news := panel.ListFrame(c, "News")
	news.AddItem(panel.ListItem{Heading: "h", Text: "t"})
	assert.Equal(t, "-", panelRow(news)[2])
	assert.Equal(t, 1, panelRow(news)[3])
}

func TestPrintRegion_Untrained(t *testing.T) {
	var buf bytes.Buffer
	printRegion(&buf, render.Region{Status: render.StatusUntrained})
	assert.Contains(t, buf.String(), render.StatusUntrained)
	assert.Equal(t, "signalboard", pageTitle(render.Region{}))
}
