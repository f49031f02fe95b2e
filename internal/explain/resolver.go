// Package explain resolves a click on the signal panel to the nearest known
// sample and fetches the backend's explanation for it.
package explain

import (
	"context"
	"errors"
	"strings"
	"time"

	"go.uber.org/zap"
	"golang.org/x/sync/singleflight"

	"github.com/newthinker/signalboard/internal/backend"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/metrics"
	"github.com/newthinker/signalboard/internal/series"
)

// Defaults shown in the explanation panel.
const (
	DefaultTimeframe     = "15m"
	DefaultFailedMessage = "Failed to fetch the signal explanation"
	Placeholder          = "Click a point on the AI Signal panel to see the explanation."
)

// Result is what the explanation panel shows after a request settles.
type Result struct {
	Text   string                   `json:"text"`
	Failed bool                     `json:"failed"`
	Time   core.Timestamp           `json:"time"`
	Detail *backend.ExplanationData `json:"detail,omitempty"`
}

// Sink receives the explanation panel transitions for one click.
type Sink interface {
	Loading(at core.Timestamp)
	Done(Result)
}

// Config tunes a Resolver.
type Config struct {
	DefaultTimeframe string
	FailedMessage    string
}

// Resolver turns clicks into explanations. Concurrent requests for the
// same (symbol, timeframe, time) share one backend call.
type Resolver struct {
	explainer backend.Explainer
	cfg       Config
	group     singleflight.Group
	metrics   *metrics.Registry
	logger    *zap.Logger
}

// NewResolver creates a resolver. metrics and logger may be nil.
func NewResolver(explainer backend.Explainer, cfg Config, reg *metrics.Registry, logger *zap.Logger) *Resolver {
	if cfg.DefaultTimeframe == "" {
		cfg.DefaultTimeframe = DefaultTimeframe
	}
	if cfg.FailedMessage == "" {
		cfg.FailedMessage = DefaultFailedMessage
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Resolver{explainer: explainer, cfg: cfg, metrics: reg, logger: logger}
}

// Lookup returns the series clicks resolve against: the score, or the
// support when there is no score.
func Lookup(p core.SignalPanel) core.Series {
	if len(p.Score) > 0 {
		return p.Score
	}
	return p.Support
}

// Resolve finds the sample nearest to the click.
func Resolve(lookup core.Series, click series.Click) (core.TimedPoint, bool) {
	return series.Nearest(lookup, click)
}

// Explain requests the explanation for one sample. It always settles to a
// Result; failures carry the backend message or the fixed failure text.
func (r *Resolver) Explain(ctx context.Context, rc core.RenderContext, at core.Timestamp) Result {
	timeframe := rc.Timeframe
	if timeframe == "" {
		timeframe = r.cfg.DefaultTimeframe
	}
	iso := at.ISO()
	key := strings.Join([]string{rc.Symbol, timeframe, iso}, "|")

	start := time.Now()
	// The shared request outlives any one waiter; the client timeout bounds it.
	shared := context.WithoutCancel(ctx)
	ch := r.group.DoChan(key, func() (any, error) {
		return r.explainer.ExplainSignal(shared, rc.Symbol, timeframe, iso)
	})
	var (
		v   any
		err error
	)
	select {
	case out := <-ch:
		v, err = out.Val, out.Err
	case <-ctx.Done():
		err = ctx.Err()
	}
	elapsed := time.Since(start).Seconds()

	res := Result{Time: at, Failed: true, Text: r.cfg.FailedMessage}
	if err != nil {
		r.logger.Warn("explanation request failed",
			zap.String("symbol", rc.Symbol),
			zap.String("timeframe", timeframe),
			zap.String("time", iso),
			zap.Error(err))
		outcome := "failed"
		if errors.Is(err, context.Canceled) || errors.Is(err, context.DeadlineExceeded) {
			outcome = "canceled"
		}
		r.metrics.RecordExplanation(outcome, elapsed)
		return res
	}

	exp, _ := v.(*backend.Explanation)
	switch {
	case exp != nil && exp.OK && exp.Data != nil:
		res.Failed = false
		res.Text = exp.Data.Text
		res.Detail = exp.Data
		r.metrics.RecordExplanation("ok", elapsed)
	case exp != nil && exp.Message != "":
		res.Text = exp.Message
		r.metrics.RecordExplanation("refused", elapsed)
	default:
		r.metrics.RecordExplanation("failed", elapsed)
	}
	return res
}

// ResolveAndExplain resolves the click against lookup and, when a sample
// and a symbol are known, drives sink through loading to a final result.
// It reports whether a request was issued; unresolvable clicks and a
// missing symbol are silent no-ops.
func (r *Resolver) ResolveAndExplain(ctx context.Context, sink Sink, lookup core.Series, click series.Click, rc core.RenderContext) bool {
	at, ok := Resolve(lookup, click)
	if !ok || rc.Symbol == "" {
		return false
	}
	sink.Loading(at.Time)
	sink.Done(r.Explain(ctx, rc, at.Time))
	return true
}
