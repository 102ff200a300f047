package handlers

import (
	"encoding/json"
	"fmt"
	"html/template"
	"log/slog"
	"net/http"
	"net/url"
	"strings"

	"github.com/go-chi/chi/v5"
	"github.com/starfederation/datastar-go/datastar"

	"rfm-dashboard/internal/errors"
	"rfm-dashboard/internal/services"
)

var insightTemplate = template.Must(template.New("insight").Funcs(template.FuncMap{
	"amount": formatAmount,
	"pct":    formatShare,
}).Parse(`<div id="insight-{{.ID}}" class="insight">
{{if .Insight.NoData}}<p class="no-data">No data for this selection.</p>{{else}}<ul>
{{range .Insight.Facts}}<li><span class="label">{{.Label}}</span>{{if .Key}} <strong>{{.Key}}</strong>{{end}}{{if .Valid}} {{amount .Value}}{{end}}{{if .Share}} ({{pct .Share}}){{end}}</li>
{{end}}</ul>
{{range .Insight.Narrative}}<p class="narrative">{{.}}</p>
{{end}}{{end}}</div>`))

var errorTemplate = template.Must(template.New("insightError").Parse(
	`<div id="insight-{{.ID}}" class="insight error"><p>{{.Message}}</p></div>`))

type SSEHandlers struct {
	dashboard *services.Dashboard
	logger    *slog.Logger
}

func NewSSEHandlers(dashboard *services.Dashboard, logger *slog.Logger) *SSEHandlers {
	return &SSEHandlers{
		dashboard: dashboard,
		logger:    logger,
	}
}

// selectorSignals are the dashboard dropdowns as datastar sends them.
type selectorSignals struct {
	Country string `json:"country"`
	Exclude string `json:"exclude"`
	Day     string `json:"day"`
	Segment string `json:"segment"`
	Cluster any    `json:"cluster"`
	Metric  string `json:"metric"`
	Axis    string `json:"axis"`
}

// selectors merges datastar signals with plain query parameters; explicit
// query parameters win.
func (h *SSEHandlers) selectors(r *http.Request) url.Values {
	query := r.URL.Query()
	var signals selectorSignals
	if err := datastar.ReadSignals(r, &signals); err != nil {
		h.logger.Debug("ignoring unreadable signals", "error", err)
		return services.CanonicalQuery(query)
	}

	cluster := ""
	if signals.Cluster != nil {
		cluster = fmt.Sprint(signals.Cluster)
	}
	fromSignals := map[string]string{
		services.ParamCountry: signals.Country,
		services.ParamExclude: signals.Exclude,
		services.ParamDay:     signals.Day,
		services.ParamSegment: signals.Segment,
		services.ParamCluster: cluster,
		services.ParamMetric:  signals.Metric,
		services.ParamAxis:    signals.Axis,
	}
	for name, v := range fromSignals {
		if query.Get(name) == "" && v != "" {
			query.Set(name, v)
		}
	}
	return services.CanonicalQuery(query)
}

func (h *SSEHandlers) HandlePanel(w http.ResponseWriter, r *http.Request) {
	id := chi.URLParam(r, "panel")
	panel, err := h.dashboard.Panel(r.Context(), id, h.selectors(r))
	if err != nil {
		errors.WriteError(w, r, h.logger, panelError(err))
		return
	}

	sse := datastar.NewSSE(w, r)

	jsonData, err := json.Marshal(map[string]any{signalName(panel.ID): panel})
	if err != nil {
		h.logger.Error("marshal panel signals", "panel", id, "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	html, err := renderInsight(panel)
	if err != nil {
		h.logger.Error("render insight", "panel", id, "error", err)
		return
	}
	sse.PatchElements(html)

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func (h *SSEHandlers) HandleRefreshAll(w http.ResponseWriter, r *http.Request) {
	sse := datastar.NewSSE(w, r)

	panels, err := h.dashboard.Overview(r.Context())
	if err != nil {
		h.logger.Error("refresh all panels", "error", err)
		html, renderErr := renderError("overview", panelError(err).Message)
		if renderErr == nil {
			sse.PatchElements(html)
		}
		return
	}

	// Send all signals in one call
	allSignals := make(map[string]any, len(panels))
	for _, p := range panels {
		allSignals[signalName(p.ID)] = p
	}
	jsonData, err := json.Marshal(allSignals)
	if err != nil {
		h.logger.Error("marshal all signals data", "error", err)
		return
	}
	sse.PatchSignals(jsonData)

	for _, p := range panels {
		html, err := renderInsight(p)
		if err != nil {
			h.logger.Error("render insight", "panel", p.ID, "error", err)
			continue
		}
		sse.PatchElements(html)
	}

	if f, ok := w.(http.Flusher); ok {
		f.Flush()
	}
}

func renderInsight(p services.Panel) (string, error) {
	var buf strings.Builder
	err := insightTemplate.Execute(&buf, p)
	return buf.String(), err
}

func renderError(id, message string) (string, error) {
	var buf strings.Builder
	err := errorTemplate.Execute(&buf, struct{ ID, Message string }{id, message})
	return buf.String(), err
}

// signalName turns a panel id such as "country-top" into the signal key
// "countryTop".
func signalName(id string) string {
	parts := strings.Split(id, "-")
	for i := 1; i < len(parts); i++ {
		if parts[i] != "" {
			parts[i] = strings.ToUpper(parts[i][:1]) + parts[i][1:]
		}
	}
	return strings.Join(parts, "")
}

func formatAmount(v float64) string {
	if v == float64(int64(v)) {
		return fmt.Sprintf("%d", int64(v))
	}
	return fmt.Sprintf("%.2f", v)
}

func formatShare(share *float64) string {
	if share == nil {
		return ""
	}
	return fmt.Sprintf("%.2f%%", *share)
}
