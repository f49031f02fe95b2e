package render

import (
	"sync"

	"github.com/newthinker/signalboard/internal/core"
)

// Session holds the page-wide default render context. It is updated on
// every successful analysis load and read when a request carries no
// explicit context.
type Session struct {
	mu               sync.RWMutex
	current          core.RenderContext
	defaultTimeframe string
}

// NewSession creates a session whose timeframe falls back to
// defaultTimeframe.
func NewSession(defaultTimeframe string) *Session {
	return &Session{defaultTimeframe: defaultTimeframe}
}

// Set records the context of the last successful load.
func (s *Session) Set(rc core.RenderContext) {
	if rc.IsZero() {
		return
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	s.current = rc
}

// Current returns the session default.
func (s *Session) Current() core.RenderContext {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.current
}

// Resolve prefers the explicit context, falling back field by field to
// the session default and then to the default timeframe.
func (s *Session) Resolve(explicit core.RenderContext) core.RenderContext {
	out := explicit
	cur := s.Current()
	if out.Symbol == "" {
		out.Symbol = cur.Symbol
		if out.Timeframe == "" {
			out.Timeframe = cur.Timeframe
		}
	}
	if out.Timeframe == "" {
		out.Timeframe = s.defaultTimeframe
	}
	return out
}
