// Package services composes the rollup engine into the named panels shown on
// the dashboard.
package services

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net/url"
	"runtime"
	"time"

	"golang.org/x/sync/errgroup"

	"rfm-dashboard/internal/dataset"
	"rfm-dashboard/internal/metrics"
	"rfm-dashboard/internal/observability"
	"rfm-dashboard/internal/rollup"
)

var (
	ErrUnknownPanel = errors.New("unknown panel")
	ErrInvalidParam = errors.New("invalid panel parameter")
	ErrNoDataset    = errors.New("no dataset loaded")
)

type Series struct {
	Name   string         `json:"name"`
	Result *rollup.Result `json:"result"`
}

// Point is one customer or product in a scatter panel.
type Point struct {
	Key   string  `json:"key"`
	Group string  `json:"group,omitempty"`
	X     float64 `json:"x"`
	Y     float64 `json:"y"`
}

type Panel struct {
	ID      string            `json:"id"`
	Title   string            `json:"title"`
	Params  map[string]string `json:"params,omitempty"`
	Series  []Series          `json:"series,omitempty"`
	Points  []Point           `json:"points,omitempty"`
	Insight rollup.Insight    `json:"insight"`
}

// Primary returns the first series, nil when the panel has none.
func (p Panel) Primary() *rollup.Result {
	if len(p.Series) == 0 {
		return nil
	}
	return p.Series[0].Result
}

// Dashboard computes panels over a dataset fixed at construction.
type Dashboard struct {
	data    *dataset.Dataset
	metrics *metrics.PanelMetrics
	logger  *slog.Logger
}

func NewDashboard(data *dataset.Dataset, m *metrics.PanelMetrics, logger *slog.Logger) *Dashboard {
	if logger == nil {
		logger = slog.Default()
	}
	return &Dashboard{
		data:    data,
		metrics: m,
		logger:  logger,
	}
}

func (d *Dashboard) Dataset() *dataset.Dataset {
	return d.data
}

func (d *Dashboard) Catalog() []PanelInfo {
	out := make([]PanelInfo, 0, len(catalog))
	for _, def := range catalog {
		out = append(out, def.PanelInfo)
	}
	return out
}

// Panel computes one panel from the current dataset.
func (d *Dashboard) Panel(ctx context.Context, id string, q url.Values) (Panel, error) {
	def, ok := panelIndex[id]
	if !ok {
		return Panel{}, fmt.Errorf("%w: %q", ErrUnknownPanel, id)
	}
	params, err := ParseParams(q)
	if err != nil {
		return Panel{}, err
	}
	if err := ctx.Err(); err != nil {
		return Panel{}, err
	}
	ds := d.Dataset()
	if ds == nil {
		return Panel{}, ErrNoDataset
	}

	ctx, span := observability.StartSpan(ctx, "panel.compute")
	span.SetTag("panel", id)
	defer span.End(ctx, d.logger)

	start := time.Now()
	panel, err := def.compute(ds, params)
	d.metrics.ObserveDuration(id, time.Since(start))
	if err != nil {
		span.SetError(err)
		d.metrics.IncFailure(id)
		return Panel{}, fmt.Errorf("panel %s: %w", id, err)
	}
	panel.ID = def.ID
	panel.Title = def.Title
	return panel, nil
}

// Overview computes every panel that takes no parameters, concurrently.
// Panels are returned in catalog order.
func (d *Dashboard) Overview(ctx context.Context) ([]Panel, error) {
	var defs []panelDef
	for _, def := range catalog {
		if len(def.Params) == 0 {
			defs = append(defs, def)
		}
	}

	out := make([]Panel, len(defs))
	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(runtime.GOMAXPROCS(0))
	for i, def := range defs {
		g.Go(func() error {
			p, err := d.Panel(gctx, def.ID, nil)
			if err != nil {
				return err
			}
			out[i] = p
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}
	return out, nil
}

// Options are the selector values the dashboard offers.
type Options struct {
	Countries []string `json:"countries"`
	Segments  []string `json:"segments"`
	Clusters  []int    `json:"clusters"`
	Days      []string `json:"days"`
	Metrics   []string `json:"metrics"`
	Axes      []string `json:"axes"`
}

func (d *Dashboard) Options() Options {
	opts := Options{
		Countries: []string{},
		Segments:  []string{},
		Clusters:  []int{},
		Days:      Days(),
		Metrics:   append([]string(nil), Metrics...),
		Axes:      append([]string(nil), Axes...),
	}
	if ds := d.Dataset(); ds != nil {
		opts.Countries = ds.Countries()
		opts.Segments = ds.SegmentNames()
		opts.Clusters = ds.Clusters()
	}
	return opts
}

func (d *Dashboard) Stats() map[string]any {
	stats := map[string]any{"panels": len(catalog)}
	if ds := d.Dataset(); ds != nil {
		for k, v := range ds.Stats() {
			stats[k] = v
		}
	}
	return stats
}
