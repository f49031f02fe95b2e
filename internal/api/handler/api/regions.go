package api

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"strings"

	"github.com/go-playground/validator/v10"
	"github.com/spf13/cast"

	"github.com/newthinker/signalboard/internal/api/response"
	"github.com/newthinker/signalboard/internal/backend"
	"github.com/newthinker/signalboard/internal/core"
	"github.com/newthinker/signalboard/internal/render"
	"github.com/newthinker/signalboard/internal/series"
)

// Board is the region store the handlers drive.
type Board interface {
	Load(ctx context.Context, src backend.Source, regionID string, limit int, opts render.Options) (render.Region, error)
	Region(regionID string) (render.Region, bool)
	Regions() []string
	Explain(ctx context.Context, regionID string, click series.Click) (render.ExplainPanel, bool, error)
	ExplainAsync(ctx context.Context, regionID string, click series.Click) (<-chan struct{}, bool, error)
}

// RegionsHandler serves region renders, snapshots and explanations.
type RegionsHandler struct {
	board        Board
	source       backend.Source
	defaultLimit int
	validate     *validator.Validate
}

// NewRegionsHandler creates a regions handler. defaultLimit is used when a
// render request carries no limit.
func NewRegionsHandler(board Board, source backend.Source, defaultLimit int) *RegionsHandler {
	return &RegionsHandler{
		board:        board,
		source:       source,
		defaultLimit: defaultLimit,
		validate:     validator.New(),
	}
}

type renderQuery struct {
	Region         string   `validate:"required,max=64"`
	Symbol         string   `validate:"omitempty,max=32"`
	Timeframe      string   `validate:"omitempty,max=8,alphanum"`
	Limit          int      `validate:"gte=0,lte=5000"`
	EntryThreshold *float64 `validate:"omitempty,gte=0,lte=1"`
	MinSupport     *float64 `validate:"omitempty,gte=0,lte=1"`
}

// Render fetches the analysis bundle for the requested pair and renders it
// into the region.
func (h *RegionsHandler) Render(w http.ResponseWriter, r *http.Request) {
	q := r.URL.Query()
	req := renderQuery{
		Region:    r.PathValue("region"),
		Symbol:    strings.TrimSpace(q.Get("symbol")),
		Timeframe: strings.TrimSpace(q.Get("timeframe")),
		Limit:     h.defaultLimit,
	}

	var err error
	if v := q.Get("limit"); v != "" {
		if req.Limit, err = cast.ToIntE(v); err != nil {
			response.Fail(w, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("limit: %w", err)))
			return
		}
	}
	if req.EntryThreshold, err = optionalFloat(q.Get("entry_threshold")); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("entry_threshold: %w", err)))
		return
	}
	if req.MinSupport, err = optionalFloat(q.Get("min_support")); err != nil {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest, fmt.Errorf("min_support: %w", err)))
		return
	}
	if err := h.check(r.Context(), req); err != nil {
		response.Fail(w, err)
		return
	}

	opts := render.Options{Context: core.RenderContext{Symbol: req.Symbol, Timeframe: req.Timeframe}}
	if req.EntryThreshold != nil || req.MinSupport != nil {
		opts.Thresholds = &core.Thresholds{Entry: req.EntryThreshold, MinSupport: req.MinSupport}
	}

	region, err := h.board.Load(r.Context(), h.source, req.Region, req.Limit, opts)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, region)
}

// List returns the IDs of every rendered region.
func (h *RegionsHandler) List(w http.ResponseWriter, r *http.Request) {
	response.JSON(w, http.StatusOK, map[string]any{"regions": h.board.Regions()})
}

// Get returns the region's current panel model.
func (h *RegionsHandler) Get(w http.ResponseWriter, r *http.Request) {
	region, ok := h.board.Region(r.PathValue("region"))
	if !ok {
		response.Fail(w, core.ErrRegionNotFound)
		return
	}
	response.JSON(w, http.StatusOK, region)
}

// Explain resolves a click on the region's signal panel. With async=true
// it answers 202 as soon as the panel shows the loading state.
func (h *RegionsHandler) Explain(w http.ResponseWriter, r *http.Request) {
	regionID := r.PathValue("region")
	raw := r.URL.Query().Get("time")
	click, ok := series.ParseClick(raw)
	if !ok {
		response.Fail(w, core.WrapError(core.ErrInvalidRequest,
			fmt.Errorf("time must be epoch seconds or YYYY-MM-DD, got %q", raw)))
		return
	}

	if cast.ToBool(r.URL.Query().Get("async")) {
		_, issued, err := h.board.ExplainAsync(r.Context(), regionID, click)
		if err != nil {
			response.Fail(w, err)
			return
		}
		region, _ := h.board.Region(regionID)
		status := http.StatusOK
		if issued {
			status = http.StatusAccepted
		}
		response.JSON(w, status, map[string]any{"issued": issued, "explain": region.Explain})
		return
	}

	panel, issued, err := h.board.Explain(r.Context(), regionID, click)
	if err != nil {
		response.Fail(w, err)
		return
	}
	response.JSON(w, http.StatusOK, map[string]any{"issued": issued, "explain": panel})
}

func (h *RegionsHandler) check(ctx context.Context, req renderQuery) error {
	err := h.validate.StructCtx(ctx, req)
	if err == nil {
		return nil
	}
	var fields validator.ValidationErrors
	if !errors.As(err, &fields) {
		return core.WrapError(core.ErrInvalidRequest, err)
	}
	msgs := make([]string, 0, len(fields))
	for _, fe := range fields {
		msgs = append(msgs, fieldMessage(fe))
	}
	return core.WrapError(core.ErrInvalidRequest, errors.New(strings.Join(msgs, "; ")))
}

func fieldMessage(fe validator.FieldError) string {
	field := fe.Field()
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("%s is required", field)
	case "max":
		return fmt.Sprintf("%s must be at most %s", field, fe.Param())
	case "gte":
		return fmt.Sprintf("%s must be greater than or equal to %s", field, fe.Param())
	case "lte":
		return fmt.Sprintf("%s must be less than or equal to %s", field, fe.Param())
	default:
		return fmt.Sprintf("%s failed validation: %s", field, fe.Tag())
	}
}

func optionalFloat(s string) (*float64, error) {
	if s == "" {
		return nil, nil
	}
	f, err := cast.ToFloat64E(s)
	if err != nil {
		return nil, err
	}
	return &f, nil
}
