package main

import (
	"fmt"
	"io"
	"os"

	"github.com/jedib0t/go-pretty/v6/table"
	"github.com/spf13/cobra"

	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/app"
	"github.com/newthinker/signalboard/internal/chart"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/logger"
	"github.com/newthinker/signalboard/internal/panel"
	"github.com/newthinker/signalboard/internal/render"
)

var (
	renderSymbol    string
	renderTimeframe string
	renderEntry     float64
	renderSupport   float64
	renderHTML      string
)

var renderCmd = &cobra.Command{
	Use:   "render <payload.json>",
	Short: "Render a saved analysis response offline",
	Long: `Render builds the dashboard panels from a saved analysis response
({"data": {...}}) without contacting the backend, prints a panel summary
and optionally writes the charts to an HTML page.`,
	Args: cobra.ExactArgs(1),
	RunE: runRender,
}

func init() {
	renderCmd.Flags().StringVar(&renderSymbol, "symbol", "", "symbol shown in the page title")
	renderCmd.Flags().StringVar(&renderTimeframe, "timeframe", "", "timeframe shown in the page title")
	renderCmd.Flags().Float64Var(&renderEntry, "entry-threshold", -1, "override the entry threshold (0-1)")
	renderCmd.Flags().Float64Var(&renderSupport, "min-support", -1, "override the minimum support (0-1)")
	renderCmd.Flags().StringVar(&renderHTML, "html", "", "write the charts to this HTML file")
	rootCmd.AddCommand(renderCmd)
}

func runRender(cmd *cobra.Command, args []string) error {
	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(debug)
	defer log.Sync()

	f, err := os.Open(args[0])
	if err != nil {
		return fmt.Errorf("opening payload: %w", err)
	}
	defer f.Close()

	payload, err := analysis.Decode(f)
	if err != nil {
		return err
	}

	a := app.New(cfg, log)
	defer a.Close()

	region := a.Board().Render("cli", payload, render.Options{
		Context:    core.RenderContext{Symbol: renderSymbol, Timeframe: renderTimeframe},
		Thresholds: thresholdFlags(renderEntry, renderSupport),
	})

	printRegion(cmd.OutOrStdout(), region)

	if renderHTML == "" {
		return nil
	}
	out, err := os.Create(renderHTML)
	if err != nil {
		return fmt.Errorf("creating html: %w", err)
	}
	defer out.Close()

	if err := chart.Render(out, pageTitle(region), "cli-", chartPanels(region)); err != nil {
		return err
	}
	fmt.Fprintf(cmd.OutOrStdout(), "Charts written to %s\n", renderHTML)
	return nil
}

// thresholdFlags turns negative (unset) flag values into absent fields.
func thresholdFlags(entry, support float64) *core.Thresholds {
	if entry < 0 && support < 0 {
		return nil
	}
	t := &core.Thresholds{}
	if entry >= 0 {
		t.Entry = &entry
	}
	if support >= 0 {
		t.MinSupport = &support
	}
	return t
}

func pageTitle(r render.Region) string {
	if r.Context.Symbol == "" {
		return "signalboard"
	}
	return fmt.Sprintf("%s %s", r.Context.Symbol, r.Context.Timeframe)
}

// chartPanels puts the price panel ahead of the indicator panels.
func chartPanels(r render.Region) []*panel.Panel {
	out := make([]*panel.Panel, 0, len(r.Panels)+1)
	if r.Price != nil {
		out = append(out, r.Price)
	}
	return append(out, r.Panels...)
}

func printRegion(w io.Writer, r render.Region) {
	if r.Status != "" {
		fmt.Fprintf(w, "Status: %s\n", r.Status)
	}
	if r.Summary != "" {
		fmt.Fprintf(w, "Summary: %s\n", r.Summary)
	}

	t := table.NewWriter()
	t.SetOutputMirror(w)
	t.AppendHeader(table.Row{"Panel", "Kind", "Series", "Points"})
	for _, p := range chartPanels(r) {
		t.AppendRow(panelRow(p))
	}
	t.AppendFooter(table.Row{"", "", "Patterns", len(r.Patterns)})
	t.Render()
}

func panelRow(p *panel.Panel) table.Row {
	if p.Kind == panel.KindList {
		return table.Row{p.Title, p.Kind, "-", len(p.Items)}
	}
	points := 0
	for _, s := range p.Series {
		points += len(s.Points) + len(s.Candles)
	}
	return table.Row{p.Title, p.Kind, len(p.Series), points}
}
