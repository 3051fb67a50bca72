package monitor

import (
	"bytes"
	"fmt"
	"net/http"

	"github.com/go-echarts/go-echarts/v2/charts"
	"github.com/go-echarts/go-echarts/v2/opts"

	"github.com/eulerlab/gridflow/internal/httputil"
	"github.com/eulerlab/gridflow/internal/sim"
)

const echartsAssetsPrefix = "https://go-echarts.github.io/go-echarts-assets/assets/"

// viridis-like ramp shared by the field heatmaps.
var heatmapRamp = []string{
	"#440154", "#482777", "#3e4989", "#31688e", "#26828e",
	"#1f9e89", "#35b779", "#6ece58", "#b5de2b", "#fde725",
}

// handlePressureChart renders the bucketed pressure field as a colored
// scatter heatmap.
func (ws *WebServer) handlePressureChart(w http.ResponseWriter, r *http.Request) {
	ws.renderFieldChart(w, r, "Pressure", func(b sim.HeatmapBucket) float64 {
		return b.MeanPressure
	})
}

// handleSmokeChart renders the bucketed smoke field.
func (ws *WebServer) handleSmokeChart(w http.ResponseWriter, r *http.Request) {
	ws.renderFieldChart(w, r, "Smoke", func(b sim.HeatmapBucket) float64 {
		return b.MeanSmoke
	})
}

// renderFieldChart draws one bucket value per point at the bucket's
// physical center, colored through a visual map.
func (ws *WebServer) renderFieldChart(w http.ResponseWriter, r *http.Request, title string, value func(sim.HeatmapBucket) float64) {
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	hm := ws.runner.Heatmap(ws.bucketSize)
	if len(hm.Buckets) == 0 {
		httputil.NotFound(w, "no heatmap buckets available")
		return
	}

	points := make([]opts.ScatterData, 0, len(hm.Buckets))
	minVal, maxVal := 0.0, 0.0
	first := true
	for _, b := range hm.Buckets {
		if b.FluidCells == 0 {
			continue
		}
		v := value(b)
		if first {
			minVal, maxVal = v, v
			first = false
		}
		if v < minVal {
			minVal = v
		}
		if v > maxVal {
			maxVal = v
		}

		// Bucket center in physical coordinates.
		cx := (float64(b.X0+b.X1) / 2.0) * hm.CellWidth
		cy := (float64(b.Y0+b.Y1) / 2.0) * hm.CellWidth
		points = append(points, opts.ScatterData{Value: []interface{}{cx, cy, v}})
	}
	if maxVal == minVal {
		maxVal = minVal + 1
	}

	scatter := charts.NewScatter()
	scatter.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "gridflow " + title, Theme: "dark",
			Width: "900px", Height: "600px", AssetsHost: echartsAssetsPrefix,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    title + " field",
			Subtitle: fmt.Sprintf("grid=%dx%d bucket=%d", hm.DimX, hm.DimY, hm.BucketSize),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "X (m)", NameLocation: "middle", NameGap: 25}),
		charts.WithYAxisOpts(opts.YAxis{Name: "Y (m)", NameLocation: "middle", NameGap: 30}),
		charts.WithVisualMapOpts(opts.VisualMap{
			Show:       opts.Bool(true),
			Calculable: opts.Bool(true),
			Min:        float32(minVal),
			Max:        float32(maxVal),
			Dimension:  "2",
			InRange:    &opts.VisualMapInRange{Color: heatmapRamp},
		}),
	)
	scatter.AddSeries("buckets", points,
		charts.WithScatterChartOpts(opts.ScatterChart{SymbolSize: 10}))

	var buf bytes.Buffer
	if err := scatter.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render %s chart: %v", title, err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}

// handleConvergenceChart renders the retained residual series as a
// line chart, one point per step.
func (ws *WebServer) handleConvergenceChart(w http.ResponseWriter, r *http.Request) {
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	residuals := ws.runner.Residuals()
	if len(residuals) == 0 {
		httputil.NotFound(w, "no residuals recorded yet")
		return
	}

	st := ws.runner.Status()
	firstStep := st.Step - len(residuals)

	x := make([]string, len(residuals))
	y := make([]opts.LineData, len(residuals))
	for i, v := range residuals {
		x[i] = fmt.Sprintf("%d", firstStep+i+1)
		y[i] = opts.LineData{Value: v}
	}

	line := charts.NewLine()
	line.SetGlobalOptions(
		charts.WithInitializationOpts(opts.Initialization{
			PageTitle: "gridflow convergence", Theme: "dark",
			Width: "100%", Height: "600px", AssetsHost: echartsAssetsPrefix,
		}),
		charts.WithTitleOpts(opts.Title{
			Title:    "Residual divergence",
			Subtitle: fmt.Sprintf("run=%s step=%d", st.RunID, st.Step),
		}),
		charts.WithTooltipOpts(opts.Tooltip{Show: opts.Bool(true)}),
		charts.WithXAxisOpts(opts.XAxis{Name: "step"}),
		charts.WithYAxisOpts(opts.YAxis{Name: "mean |div|"}),
	)
	line.SetXAxis(x).AddSeries("residual", y)

	var buf bytes.Buffer
	if err := line.Render(&buf); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("failed to render convergence chart: %v", err))
		return
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	_, _ = w.Write(buf.Bytes())
}
