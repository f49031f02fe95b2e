package render

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"encoding/json"
	"errors"
	"sort"
	"sync"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/backend"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/explain"
	"github.com/newthinker/signalboard/internal/indicator"
	"github.com/newthinker/signalboard/internal/metrics"
	"github.com/newthinker/signalboard/internal/panel"
	"github.com/newthinker/signalboard/internal/series"
)

// Region status messages.
const (
	StatusUntrained  = "Model is not trained for this pair; charts hidden."
	StatusLoadFailed = "Failed to load analysis"
)

var errMissingSymbol = errors.New("symbol is required")

// maxNotes bounds the pattern and opportunity lists.
const maxNotes = 20

// Explanation panel states.
const (
	ExplainIdle    = "idle"
	ExplainLoading = "loading"
	ExplainDone    = "done"
)

// ExplainPanel is the region's explanation side panel.
type ExplainPanel struct {
	State  string                   `json:"state"`
	Text   string                   `json:"text"`
	Failed bool                     `json:"failed,omitempty"`
	Time   *core.Timestamp          `json:"time,omitempty"`
	Detail *backend.ExplanationData `json:"detail,omitempty"`
}

// Region is one dashboard area and everything last rendered into it.
type Region struct {
	ID            string             `json:"id"`
	Generation    string             `json:"generation"`
	Context       core.RenderContext `json:"context"`
	Trained       bool               `json:"trained"`
	Status        string             `json:"status,omitempty"`
	Summary       string             `json:"summary"`
	Patterns      []core.Note        `json:"patterns"`
	Opportunities []core.Note        `json:"opportunities"`
	Price         *panel.Panel       `json:"price,omitempty"`
	Panels        []*panel.Panel     `json:"panels"`
	Explain       ExplainPanel       `json:"explain"`
	RenderedAt    time.Time          `json:"rendered_at"`

	lookup core.Series
	digest string
}

// Options tune one render pass.
type Options struct {
	// Context overrides the session default for this region.
	Context    core.RenderContext
	Thresholds *core.Thresholds
}

// BoardConfig configures a Board.
type BoardConfig struct {
	// Drawable reports whether chart panels can be drawn.
	Drawable    bool
	Placeholder string
}

// Board holds every region. All region mutation happens under one lock;
// every render pass issues a new generation and explanation completions
// issued under an older generation are dropped.
type Board struct {
	mu      sync.Mutex
	regions map[string]*Region

	cfg      BoardConfig
	steps    []Step
	session  *Session
	resolver *explain.Resolver
	metrics  *metrics.Registry
	logger   *zap.Logger
}

// NewBoard creates a board. metrics and logger may be nil.
func NewBoard(cfg BoardConfig, steps []Step, session *Session, resolver *explain.Resolver, reg *metrics.Registry, logger *zap.Logger) *Board {
	if cfg.Placeholder == "" {
		cfg.Placeholder = explain.Placeholder
	}
	if session == nil {
		session = NewSession(explain.DefaultTimeframe)
	}
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Board{
		regions:  make(map[string]*Region),
		cfg:      cfg,
		steps:    steps,
		session:  session,
		resolver: resolver,
		metrics:  reg,
		logger:   logger,
	}
}

// Session returns the board's session default.
func (b *Board) Session() *Session { return b.session }

// Render clears the region and rebuilds it from payload.
func (b *Board) Render(regionID string, payload *analysis.Payload, opts Options) Region {
	start := time.Now()
	rc := b.session.Resolve(opts.Context)

	in := Input{Payload: payload, Thresholds: opts.Thresholds}
	container := Orchestrate(b.steps, in, b.cfg.Drawable)

	r := &Region{
		ID:         regionID,
		Generation: uuid.NewString(),
		Context:    rc,
		Explain:    ExplainPanel{State: ExplainIdle, Text: b.cfg.Placeholder},
		Panels:     container.Panels(),
		RenderedAt: time.Now().UTC(),
		digest:     digest(payload, opts.Thresholds),
	}

	outcome := "ok"
	if payload == nil || !payload.Trained {
		outcome = "untrained"
		r.Status = StatusUntrained
	} else {
		r.Trained = true
		r.Summary = payload.Summary
		r.Patterns = latest(payload.Patterns, maxNotes)
		r.Opportunities = latest(payload.Opportunities, maxNotes)
		r.Price = indicator.Price(panel.NewContainer(b.cfg.Drawable), payload.Candles, payload.OverlayLines())
		r.lookup = explain.Lookup(payload.Signal)
	}

	b.mu.Lock()
	b.regions[regionID] = r
	snapshot := *r
	count := len(b.regions)
	b.mu.Unlock()

	for _, p := range r.Panels {
		b.metrics.RecordPanel(p.Title)
	}
	b.metrics.RecordRender(outcome, time.Since(start).Seconds())
	b.metrics.SetRegions(count)

	b.logger.Info("region rendered",
		zap.String("region", regionID),
		zap.String("generation", r.Generation),
		zap.String("symbol", rc.Symbol),
		zap.String("timeframe", rc.Timeframe),
		zap.Int("panels", len(r.Panels)),
		zap.String("outcome", outcome))
	return snapshot
}

// Fail records a failed analysis load on the region without touching its
// panels.
func (b *Board) Fail(regionID string, err error) Region {
	b.mu.Lock()
	r, ok := b.regions[regionID]
	if !ok {
		r = &Region{
			ID:      regionID,
			Explain: ExplainPanel{State: ExplainIdle, Text: b.cfg.Placeholder},
		}
		b.regions[regionID] = r
	}
	r.Status = StatusLoadFailed
	snapshot := *r
	b.mu.Unlock()

	b.metrics.RecordRender("failed", 0)
	b.logger.Warn("analysis load failed", zap.String("region", regionID), zap.Error(err))
	return snapshot
}

// Load fetches the analysis bundle and renders it. The session default is
// updated only when the fetch succeeds.
func (b *Board) Load(ctx context.Context, src backend.Source, regionID string, limit int, opts Options) (Region, error) {
	rc := b.session.Resolve(opts.Context)
	if rc.Symbol == "" {
		return Region{}, core.WrapError(core.ErrInvalidRequest, errMissingSymbol)
	}
	payload, err := src.Analysis(ctx, rc.Symbol, rc.Timeframe, limit)
	if err != nil {
		b.metrics.RecordBackend("error")
		return b.Fail(regionID, err), err
	}
	b.metrics.RecordBackend("2xx")

	b.session.Set(rc)
	opts.Context = rc
	return b.Render(regionID, payload, opts), nil
}

// Refresh is Load for periodic reloads: when the backend returns the bundle
// the region already shows, the region keeps its generation and its
// explanation panel.
func (b *Board) Refresh(ctx context.Context, src backend.Source, regionID string, limit int, opts Options) (Region, bool, error) {
	rc := b.session.Resolve(opts.Context)
	if rc.Symbol == "" {
		return Region{}, false, core.WrapError(core.ErrInvalidRequest, errMissingSymbol)
	}
	payload, err := src.Analysis(ctx, rc.Symbol, rc.Timeframe, limit)
	if err != nil {
		b.metrics.RecordBackend("error")
		return b.Fail(regionID, err), false, err
	}
	b.metrics.RecordBackend("2xx")
	b.session.Set(rc)

	sum := digest(payload, opts.Thresholds)
	b.mu.Lock()
	r, ok := b.regions[regionID]
	unchanged := ok && sum != "" && r.digest == sum && r.Context == rc && r.Status != StatusLoadFailed
	var snapshot Region
	if unchanged {
		snapshot = *r
	}
	b.mu.Unlock()

	if unchanged {
		b.logger.Debug("region unchanged",
			zap.String("region", regionID),
			zap.String("generation", snapshot.Generation))
		return snapshot, false, nil
	}

	opts.Context = rc
	return b.Render(regionID, payload, opts), true, nil
}

// digest identifies a render input; empty when it cannot be encoded.
func digest(payload *analysis.Payload, th *core.Thresholds) string {
	b, err := json.Marshal(struct {
		Payload    *analysis.Payload `json:"payload"`
		Thresholds *core.Thresholds  `json:"thresholds"`
	}{payload, th})
	if err != nil {
		return ""
	}
	sum := sha256.Sum256(b)
	return hex.EncodeToString(sum[:])
}

// Region returns a snapshot of a region.
func (b *Board) Region(regionID string) (Region, bool) {
	b.mu.Lock()
	defer b.mu.Unlock()
	r, ok := b.regions[regionID]
	if !ok {
		return Region{}, false
	}
	return *r, true
}

// Regions returns the region IDs in lexical order.
func (b *Board) Regions() []string {
	b.mu.Lock()
	defer b.mu.Unlock()
	ids := make([]string, 0, len(b.regions))
	for id := range b.regions {
		ids = append(ids, id)
	}
	sort.Strings(ids)
	return ids
}

// Explain resolves a click on the region's signal panel and waits for the
// explanation. It reports false when the click resolved to nothing.
func (b *Board) Explain(ctx context.Context, regionID string, click series.Click) (ExplainPanel, bool, error) {
	sink, lookup, rc, err := b.sinkFor(regionID)
	if err != nil {
		return ExplainPanel{}, false, err
	}
	if !b.resolver.ResolveAndExplain(ctx, sink, lookup, click, rc) {
		r, _ := b.Region(regionID)
		return r.Explain, false, nil
	}
	return sink.panel, true, nil
}

// ExplainAsync starts the explanation in the background and returns once
// the panel is in the loading state. done, if non-nil, is closed when the
// request settles.
func (b *Board) ExplainAsync(ctx context.Context, regionID string, click series.Click) (done <-chan struct{}, issued bool, err error) {
	sink, lookup, rc, err := b.sinkFor(regionID)
	if err != nil {
		return nil, false, err
	}
	at, ok := explain.Resolve(lookup, click)
	if !ok || rc.Symbol == "" {
		return nil, false, nil
	}

	sink.Loading(at.Time)
	ch := make(chan struct{})
	go func() {
		defer close(ch)
		sink.Done(b.resolver.Explain(context.WithoutCancel(ctx), rc, at.Time))
	}()
	return ch, true, nil
}

func (b *Board) sinkFor(regionID string) (*regionSink, core.Series, core.RenderContext, error) {
	b.mu.Lock()
	r, ok := b.regions[regionID]
	if !ok {
		b.mu.Unlock()
		return nil, nil, core.RenderContext{}, core.ErrRegionNotFound
	}
	gen, lookup, rc := r.Generation, r.lookup, r.Context
	b.mu.Unlock()

	if rc.Symbol == "" {
		rc = b.session.Resolve(rc)
	}
	return &regionSink{board: b, regionID: regionID, generation: gen}, lookup, rc, nil
}

// regionSink applies explanation transitions to a region if it still
// shows the generation the click was made on.
type regionSink struct {
	board      *Board
	regionID   string
	generation string
	panel      ExplainPanel
}

func (s *regionSink) Loading(at core.Timestamp) {
	s.panel = ExplainPanel{State: ExplainLoading, Time: &at}
	s.apply()
}

func (s *regionSink) Done(res explain.Result) {
	at := res.Time
	s.panel = ExplainPanel{
		State:  ExplainDone,
		Text:   res.Text,
		Failed: res.Failed,
		Time:   &at,
		Detail: res.Detail,
	}
	s.apply()
}

func (s *regionSink) apply() {
	b := s.board
	b.mu.Lock()
	r, ok := b.regions[s.regionID]
	current := ok && r.Generation == s.generation
	if current {
		r.Explain = s.panel
	}
	b.mu.Unlock()

	if !current {
		b.metrics.RecordStaleCompletion()
		b.logger.Debug("dropping stale explanation update",
			zap.String("region", s.regionID),
			zap.String("generation", s.generation))
	}
}

// latest returns the last n notes, newest first.
func latest(notes []core.Note, n int) []core.Note {
	if len(notes) > n {
		notes = notes[len(notes)-n:]
	}
	out := make([]core.Note, len(notes))
	for i, note := range notes {
		out[len(notes)-1-i] = note
	}
	return out
}
