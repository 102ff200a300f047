// Package templates renders the dashboard page. Panels load their data over
// datastar SSE once the page is up.
package templates

import (
	"context"
	"fmt"
	"io"
	"strconv"
	"strings"

	"github.com/a-h/templ"

	"rfm-dashboard/internal/services"
)

const datastarScript = "https://cdn.jsdelivr.net/gh/starfederation/datastar@1.0.0/bundles/datastar.js"

var groupTitles = []struct{ id, title string }{
	{services.GroupGeography, "Geography and trend"},
	{services.GroupProduct, "Products"},
	{services.GroupActivity, "Shopping activity"},
	{services.GroupRFM, "RFM segments"},
	{services.GroupCluster, "Customer clusters"},
}

// Dashboard renders the full page: selectors bound to datastar signals and
// one card per panel.
func Dashboard(catalog []services.PanelInfo, opts services.Options) templ.Component {
	return templ.ComponentFunc(func(ctx context.Context, w io.Writer) error {
		var b strings.Builder
		b.WriteString(`<!DOCTYPE html><html lang="en"><head><meta charset="utf-8">`)
		b.WriteString(`<meta name="viewport" content="width=device-width, initial-scale=1">`)
		b.WriteString(`<title>RFM Retail Dashboard</title>`)
		fmt.Fprintf(&b, `<script type="module" src="%s"></script>`, datastarScript)
		b.WriteString(`</head><body>`)
		b.WriteString(`<header><h1>RFM Retail Dashboard</h1><p>Customer segmentation and sales insights</p></header>`)

		writeSelectors(&b, opts)

		for _, g := range groupTitles {
			fmt.Fprintf(&b, `<section id="group-%s"><h2>%s</h2>`, g.id, templ.EscapeString(g.title))
			for _, p := range catalog {
				if p.Group == g.id {
					writePanel(&b, p)
				}
			}
			b.WriteString(`</section>`)
		}

		b.WriteString(`<footer><button data-on-click="@get('/sse/refresh-all')">Refresh</button></footer>`)
		b.WriteString(`</body></html>`)

		if err := ctx.Err(); err != nil {
			return err
		}
		_, err := io.WriteString(w, b.String())
		return err
	})
}

func writeSelectors(b *strings.Builder, opts services.Options) {
	fmt.Fprintf(b, `<div id="selectors" data-signals="%s">`, templ.EscapeString(initialSignals(opts)))
	writeSelect(b, "country", "Country", opts.Countries)
	writeSelect(b, "exclude", "Exclude country", opts.Countries)
	writeSelect(b, "day", "Day", opts.Days)
	writeSelect(b, "segment", "Segment", opts.Segments)
	clusters := make([]string, 0, len(opts.Clusters))
	for _, c := range opts.Clusters {
		clusters = append(clusters, strconv.Itoa(c))
	}
	writeSelect(b, "cluster", "Cluster", clusters)
	writeSelect(b, "metric", "Metric", opts.Metrics)
	writeSelect(b, "axis", "Axis", opts.Axes)
	b.WriteString(`</div>`)
}

func initialSignals(opts services.Options) string {
	first := func(values []string) string {
		if len(values) == 0 {
			return ""
		}
		return values[0]
	}
	cluster := ""
	if len(opts.Clusters) > 0 {
		cluster = strconv.Itoa(opts.Clusters[0])
	}
	return fmt.Sprintf(`{country: %q, exclude: "United Kingdom", day: %q, segment: %q, cluster: %q, metric: %q, axis: %q}`,
		first(opts.Countries), first(opts.Days), first(opts.Segments), cluster, first(opts.Metrics), first(opts.Axes))
}

func writeSelect(b *strings.Builder, name, label string, values []string) {
	fmt.Fprintf(b, `<label>%s <select data-bind="%s">`, templ.EscapeString(label), name)
	for _, v := range values {
		esc := templ.EscapeString(v)
		fmt.Fprintf(b, `<option value="%s">%s</option>`, esc, esc)
	}
	b.WriteString(`</select></label>`)
}

func writePanel(b *strings.Builder, p services.PanelInfo) {
	fmt.Fprintf(b, `<article class="panel" id="panel-%s">`, p.ID)
	fmt.Fprintf(b, `<h3>%s</h3>`, templ.EscapeString(p.Title))
	load := fmt.Sprintf("@get('/sse/panels/%s')", p.ID)
	if len(p.Params) > 0 {
		// reload when one of the panel's selectors changes
		watched := make([]string, 0, len(p.Params))
		for _, param := range p.Params {
			watched = append(watched, "$"+param)
		}
		fmt.Fprintf(b, `<div data-effect="%s; %s"></div>`, strings.Join(watched, "; "), load)
	}
	fmt.Fprintf(b, `<div id="insight-%s" class="insight" data-init="%s">Loading…</div>`, p.ID, load)
	b.WriteString(`</article>`)
}
