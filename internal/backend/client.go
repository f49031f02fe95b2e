// Package backend is the HTTP client for the analysis backend that
// produces analysis bundles and signal explanations.
package backend

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"go.uber.org/zap"

	"github.com/newthinker/signalboard/internal/analysis"
	"github.com/newthinker/signalboard/internal/core"
)

const (
	analysisPath = "/api/analysis"
	explainPath  = "/api/explain_signal"

	defaultTimeout = 15 * time.Second
	maxBodyBytes   = 32 << 20
)

// Source fetches analysis bundles.
type Source interface {
	Analysis(ctx context.Context, symbol, timeframe string, limit int) (*analysis.Payload, error)
}

// RawSource fetches analysis responses as the backend sent them.
type RawSource interface {
	AnalysisBytes(ctx context.Context, symbol, timeframe string, limit int) ([]byte, error)
}

// Explainer fetches signal explanations.
type Explainer interface {
	ExplainSignal(ctx context.Context, symbol, timeframe, iso string) (*Explanation, error)
}

// Explanation is the /api/explain_signal response.
type Explanation struct {
	OK      bool             `json:"ok"`
	Data    *ExplanationData `json:"data,omitempty"`
	Message string           `json:"message,omitempty"`
}

// ExplanationData is the body of a successful explanation.
type ExplanationData struct {
	Time         string             `json:"time"`
	Decision     string             `json:"decision,omitempty"`
	Score        *float64           `json:"score,omitempty"`
	Support      *float64           `json:"support,omitempty"`
	Thresholds   *core.Thresholds   `json:"thresholds,omitempty"`
	BaseProbs    map[string]float64 `json:"base_probs,omitempty"`
	PerTimeframe []TimeframeRow     `json:"per_timeframe,omitempty"`
	Indicators   map[string]float64 `json:"indicators,omitempty"`
	Text         string             `json:"text"`
}

// TimeframeRow is one per-timeframe probability row of an explanation.
type TimeframeRow struct {
	Timeframe string  `json:"tf"`
	Weight    float64 `json:"weight"`
	Buy       float64 `json:"pb_buy"`
	Hold      float64 `json:"pb_hold"`
	Sell      float64 `json:"pb_sell"`
	Score     float64 `json:"score_tf"`
}

// Client talks to the analysis backend.
type Client struct {
	baseURL string
	client  *http.Client
	logger  *zap.Logger
}

// Option configures a Client.
type Option func(*Client)

// WithHTTPClient replaces the underlying HTTP client.
func WithHTTPClient(hc *http.Client) Option {
	return func(c *Client) { c.client = hc }
}

// WithTimeout sets the request timeout.
func WithTimeout(d time.Duration) Option {
	return func(c *Client) {
		if d > 0 {
			c.client.Timeout = d
		}
	}
}

// WithLogger sets the logger.
func WithLogger(l *zap.Logger) Option {
	return func(c *Client) {
		if l != nil {
			c.logger = l
		}
	}
}

// New creates a backend client for baseURL.
func New(baseURL string, opts ...Option) *Client {
	c := &Client{
		baseURL: strings.TrimRight(baseURL, "/"),
		client:  &http.Client{Timeout: defaultTimeout},
		logger:  zap.NewNop(),
	}
	for _, opt := range opts {
		opt(c)
	}
	return c
}

// Analysis fetches the analysis bundle for a symbol and timeframe.
func (c *Client) Analysis(ctx context.Context, symbol, timeframe string, limit int) (*analysis.Payload, error) {
	body, err := c.AnalysisBytes(ctx, symbol, timeframe, limit)
	if err != nil {
		return nil, err
	}

	payload, err := analysis.Decode(bytes.NewReader(body))
	if err != nil {
		c.logger.Warn("decoding analysis failed",
			zap.String("symbol", symbol),
			zap.String("timeframe", timeframe),
			zap.Error(err))
		return nil, err
	}
	return payload, nil
}

// AnalysisBytes fetches the raw analysis response body.
func (c *Client) AnalysisBytes(ctx context.Context, symbol, timeframe string, limit int) ([]byte, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", timeframe)
	if limit > 0 {
		q.Set("limit", strconv.Itoa(limit))
	}

	resp, err := c.get(ctx, analysisPath, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		return nil, core.WrapError(core.ErrBackendStatus, fmt.Errorf("analysis: status %d", resp.StatusCode))
	}

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxBodyBytes))
	if err != nil {
		return nil, core.WrapError(core.ErrBackendFailed, err)
	}
	return body, nil
}

// ExplainSignal requests the explanation for one resolved sample time.
// A backend refusal carrying {"ok": false, "message": ...} is returned as
// an Explanation, whatever its status code.
func (c *Client) ExplainSignal(ctx context.Context, symbol, timeframe, iso string) (*Explanation, error) {
	q := url.Values{}
	q.Set("symbol", symbol)
	q.Set("timeframe", timeframe)
	q.Set("time", iso)

	resp, err := c.get(ctx, explainPath, q)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()

	var out Explanation
	decodeErr := json.NewDecoder(io.LimitReader(resp.Body, maxBodyBytes)).Decode(&out)

	if resp.StatusCode < 200 || resp.StatusCode >= 300 {
		if decodeErr == nil && !out.OK && out.Message != "" {
			return &out, nil
		}
		return nil, core.WrapError(core.ErrBackendStatus, fmt.Errorf("explain: status %d", resp.StatusCode))
	}
	if decodeErr != nil {
		return nil, core.WrapError(core.ErrDecodeFailed, decodeErr)
	}
	return &out, nil
}

func (c *Client) get(ctx context.Context, path string, q url.Values) (*http.Response, error) {
	u := c.baseURL + path + "?" + q.Encode()
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, u, nil)
	if err != nil {
		return nil, core.WrapError(core.ErrBackendFailed, err)
	}
	req.Header.Set("Accept", "application/json")

	resp, err := c.client.Do(req)
	if err != nil {
		c.logger.Warn("backend request failed", zap.String("path", path), zap.Error(err))
		return nil, core.WrapError(core.ErrBackendFailed, err)
	}
	return resp, nil
}
