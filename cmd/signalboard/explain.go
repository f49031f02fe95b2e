package main

import (
	"context"
	"fmt"
	"time"

	"github.com/spf13/cobra"

	"github.com/newthinker/signalboard/internal/app"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/logger"
	"github.com/newthinker/signalboard/internal/render"
	"github.com/newthinker/signalboard/internal/series"
)

var (
	explainSymbol    string
	explainTimeframe string
	explainTime      string
)

var explainCmd = &cobra.Command{
	Use:   "explain",
	Short: "Explain the AI signal nearest to a time",
	Long: `Explain loads the analysis for a symbol from the backend, snaps the
given time to the nearest signal sample and prints the backend's
explanation for it.`,
	RunE: runExplain,
}

func init() {
	explainCmd.Flags().StringVar(&explainSymbol, "symbol", "", "symbol to explain (required)")
	explainCmd.Flags().StringVar(&explainTimeframe, "timeframe", "", "timeframe (defaults to backend.default_timeframe)")
	explainCmd.Flags().StringVar(&explainTime, "time", "", "epoch seconds or YYYY-MM-DD (required)")
	explainCmd.MarkFlagRequired("symbol")
	explainCmd.MarkFlagRequired("time")
	rootCmd.AddCommand(explainCmd)
}

func runExplain(cmd *cobra.Command, args []string) error {
	click, ok := series.ParseClick(explainTime)
	if !ok {
		return fmt.Errorf("invalid --time %q: want epoch seconds or YYYY-MM-DD", explainTime)
	}

	cfg, err := loadConfig()
	if err != nil {
		return err
	}
	log := logger.Must(debug)
	defer log.Sync()

	a := app.New(cfg, log)
	defer a.Close()

	ctx, cancel := context.WithTimeout(context.Background(), 2*cfg.Backend.Timeout+5*time.Second)
	defer cancel()

	opts := render.Options{Context: core.RenderContext{Symbol: explainSymbol, Timeframe: explainTimeframe}}
	if _, err := a.Board().Load(ctx, a.Source(), "cli", cfg.Backend.DefaultLimit, opts); err != nil {
		return fmt.Errorf("loading analysis: %w", err)
	}

	ep, issued, err := a.Board().Explain(ctx, "cli", click)
	if err != nil {
		return err
	}
	if !issued {
		return fmt.Errorf("no signal sample near %s", explainTime)
	}

	out := cmd.OutOrStdout()
	if ep.Time != nil {
		fmt.Fprintf(out, "%s %s @ %s\n", explainSymbol, a.Board().Session().Current().Timeframe, ep.Time.ISO())
	}
	fmt.Fprintln(out, ep.Text)
	if ep.Failed {
		return fmt.Errorf("explanation failed")
	}
	return nil
}
