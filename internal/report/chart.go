package report

import (
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"cyberflux/internal/ingest"
	"cyberflux/internal/logging"

	"github.com/wcharczuk/go-chart/v2"
	"golang.org/x/sync/errgroup"
)

// RenderCharts writes the report figures as PNGs under dir and returns
// their base names in a stable order. Empty series are skipped rather than
// rendered blank. Figures render concurrently; one failed figure fails the
// whole set so the PDF never embeds a partial chart.
func RenderCharts(dir string, metrics ingest.Metrics) ([]string, error) {
	if err := os.MkdirAll(dir, 0755); err != nil {
		return nil, fmt.Errorf("failed to create figures directory: %w", err)
	}

	type figure struct {
		name   string
		render func(path string) error
	}

	var figures []figure
	if len(metrics.TopAttackTypes) > 0 {
		figures = append(figures, figure{"attack_counts.png", func(path string) error {
			return renderBarChart(path, "Attack Types", metrics.TopAttackTypes)
		}})
	}
	if len(metrics.TopSrcIPs) > 0 {
		figures = append(figures, figure{"top_src_ips.png", func(path string) error {
			return renderBarChart(path, "Top Source IPs", metrics.TopSrcIPs)
		}})
	}
	if len(metrics.TopDstIPs) > 0 {
		figures = append(figures, figure{"top_dst_ips.png", func(path string) error {
			return renderBarChart(path, "Top Destination IPs", metrics.TopDstIPs)
		}})
	}
	if len(metrics.Timeline) > 1 {
		figures = append(figures, figure{"timeline.png", func(path string) error {
			return renderTimeline(path, metrics.Timeline)
		}})
	}

	var g errgroup.Group
	var mu sync.Mutex
	names := make([]string, 0, len(figures))
	for _, fig := range figures {
		fig := fig
		g.Go(func() error {
			if err := fig.render(filepath.Join(dir, fig.name)); err != nil {
				return fmt.Errorf("failed to render %s: %w", fig.name, err)
			}
			mu.Lock()
			names = append(names, fig.name)
			mu.Unlock()
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, err
	}

	// Stable order for the PDF regardless of render completion order.
	ordered := make([]string, 0, len(names))
	for _, fig := range figures {
		for _, n := range names {
			if n == fig.name {
				ordered = append(ordered, n)
				break
			}
		}
	}
	logging.ReportDebug("rendered %d figures in %s", len(ordered), dir)
	return ordered, nil
}

func renderBarChart(path, title string, values []ingest.ValueCount) error {
	bars := make([]chart.Value, len(values))
	for i, v := range values {
		label := v.Value
		if len(label) > 18 {
			label = label[:18]
		}
		bars[i] = chart.Value{Label: label, Value: float64(v.Count)}
	}

	graph := chart.BarChart{
		Title:    title,
		Width:    850,
		Height:   320,
		BarWidth: 40,
		Bars:     bars,
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return graph.Render(chart.PNG, f)
}

func renderTimeline(path string, points []ingest.TimePoint) error {
	xs := make([]time.Time, len(points))
	ys := make([]float64, len(points))
	for i, p := range points {
		xs[i] = p.Hour
		ys[i] = float64(p.Count)
	}

	graph := chart.Chart{
		Title:  "Events per Hour",
		Width:  900,
		Height: 280,
		Series: []chart.Series{
			chart.TimeSeries{
				Name:    "events",
				XValues: xs,
				YValues: ys,
			},
		},
	}

	f, err := os.Create(path)
	if err != nil {
		return err
	}
	defer f.Close()
	return graph.Render(chart.PNG, f)
}
