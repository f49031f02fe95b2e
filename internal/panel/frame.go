package panel

import (
	"fmt"
	"strings"
)

// Default frame sizes in pixels.
const (
	DefaultHeight = 120
	ListMaxHeight = 220
)

// Container collects the panels of one render pass in insertion order.
// Drawable reports whether a chart substrate is available; chart frames
// are only created on drawable containers.
type Container struct {
	drawable bool
	panels   []*Panel
	ids      map[string]int
}

// NewContainer creates an empty container.
func NewContainer(drawable bool) *Container {
	return &Container{drawable: drawable, ids: make(map[string]int)}
}

// Drawable reports whether chart panels can be drawn.
func (c *Container) Drawable() bool {
	return c != nil && c.drawable
}

// Panels returns the panels in the order they were framed.
func (c *Container) Panels() []*Panel {
	if c == nil {
		return nil
	}
	return c.panels
}

// Len returns the number of panels.
func (c *Container) Len() int {
	return len(c.Panels())
}

// Frame creates a titled chart card with a drawing surface of the given
// height. It returns nil when the container is not drawable.
func Frame(c *Container, title string, height int) *Panel {
	if !c.Drawable() {
		return nil
	}
	if height <= 0 {
		height = DefaultHeight
	}
	p := &Panel{
		ID:     c.nextID(title),
		Title:  title,
		Kind:   KindChart,
		Height: height,
	}
	c.panels = append(c.panels, p)
	return p
}

// ListFrame creates a titled scrollable list card. Lists need no drawing
// substrate.
func ListFrame(c *Container, title string) *Panel {
	if c == nil {
		return nil
	}
	p := &Panel{
		ID:        c.nextID(title),
		Title:     title,
		Kind:      KindList,
		MaxHeight: ListMaxHeight,
	}
	c.panels = append(c.panels, p)
	return p
}

func (c *Container) nextID(title string) string {
	slug := slugify(title)
	c.ids[slug]++
	if n := c.ids[slug]; n > 1 {
		return fmt.Sprintf("%s-%d", slug, n)
	}
	return slug
}

func slugify(s string) string {
	var b strings.Builder
	dash := false
	for _, r := range strings.ToLower(s) {
		switch {
		case r >= 'a' && r <= 'z', r >= '0' && r <= '9':
			b.WriteRune(r)
			dash = false
		case !dash && b.Len() > 0:
			b.WriteByte('-')
			dash = true
		}
	}
	out := strings.TrimSuffix(b.String(), "-")
	if out == "" {
		return "panel"
	}
	return out
}
