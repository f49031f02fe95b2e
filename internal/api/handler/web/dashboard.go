package web

import (
	"html/template"
	"net/http"

	"github.com/newthinker/signalboard/internal/chart"
	"github.com/newthinker/signalboard/internal/explain"
	"github.com/newthinker/signalboard/internal/panel"
	"github.com/newthinker/signalboard/internal/render"
)

// ChartView is one chart panel ready for embedding.
type ChartView struct {
	Element template.HTML
	Script  template.HTML
}

// DashboardData holds data for the dashboard template
type DashboardData struct {
	Title     string
	ScriptURL string
	Region    render.Region
	Charts    []ChartView
	Lists     []*panel.Panel

	// ClickEvent is the document event clickable charts dispatch.
	ClickEvent    string
	FailedMessage string
}

// IndexData holds data for the region index template
type IndexData struct {
	Title     string
	ScriptURL string
	Regions   []string
}

// Index lists the rendered regions.
func (h *Handler) Index(w http.ResponseWriter, r *http.Request) {
	h.render(w, http.StatusOK, "index.html", IndexData{
		Title:   "Regions",
		Regions: h.regions.Regions(),
	})
}

// Dashboard renders one region: price chart, indicator charts, list
// panels and the explanation panel.
func (h *Handler) Dashboard(w http.ResponseWriter, r *http.Request) {
	id := r.PathValue("region")
	region, ok := h.regions.Region(id)
	if !ok {
		h.render(w, http.StatusNotFound, "index.html", IndexData{
			Title:   "Region not found: " + id,
			Regions: h.regions.Regions(),
		})
		return
	}

	data := DashboardData{
		Title:         region.Context.Symbol + " " + region.Context.Timeframe,
		ScriptURL:     chart.ScriptURL,
		Region:        region,
		ClickEvent:    chart.ClickEvent,
		FailedMessage: explain.DefaultFailedMessage,
	}

	drawn := make([]*panel.Panel, 0, len(region.Panels)+1)
	if region.Price != nil {
		drawn = append(drawn, region.Price)
	}
	for _, p := range region.Panels {
		if p.Kind == panel.KindList {
			data.Lists = append(data.Lists, p)
			continue
		}
		drawn = append(drawn, p)
	}
	// Snippets are produced by go-echarts' own templates.
	for _, s := range chart.Snippets(id+"-", drawn) {
		data.Charts = append(data.Charts, ChartView{
			Element: template.HTML(s.Element),
			Script:  template.HTML(s.Script),
		})
	}

	h.render(w, http.StatusOK, "dashboard.html", data)
}
