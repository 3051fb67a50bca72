package monitor

import (
	"fmt"
	"image/color"
	"math"
	"os"
	"path/filepath"
	"sync"

	"gonum.org/v1/plot"
	"gonum.org/v1/plot/plotter"
	"gonum.org/v1/plot/vg"

	"github.com/eulerlab/gridflow/internal/sim"
)

// FieldPlotter records the state of selected cells over a run and the
// per-step residual, then writes PNG time series after the run.
type FieldPlotter struct {
	mu        sync.Mutex
	enabled   bool
	outputDir string

	// cells to trace, keyed "x_y" in the samples map.
	cells []sim.Index2

	samples   map[string][]FieldSample
	residuals []FieldSample
}

// FieldSample is one per-step observation of a traced cell or of the
// grid-wide residual.
type FieldSample struct {
	Step     int
	SimTime  float64
	Pressure float64
	Speed    float64
	Smoke    float64
	Residual float64
}

// NewFieldPlotter creates a plotter tracing the given cells.
func NewFieldPlotter(cells []sim.Index2) *FieldPlotter {
	return &FieldPlotter{
		cells:   cells,
		samples: make(map[string][]FieldSample),
	}
}

// Start enables sampling and creates the output directory.
func (fp *FieldPlotter) Start(outputDir string) error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return fmt.Errorf("failed to create output dir: %w", err)
	}

	fp.outputDir = outputDir
	fp.enabled = true
	fp.samples = make(map[string][]FieldSample)
	fp.residuals = nil
	return nil
}

// Stop disables sampling. Call SavePlots to produce output files.
func (fp *FieldPlotter) Stop() {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	fp.enabled = false
}

// IsEnabled returns true if the plotter is currently recording.
func (fp *FieldPlotter) IsEnabled() bool {
	fp.mu.Lock()
	defer fp.mu.Unlock()
	return fp.enabled
}

// Sample captures the traced cells and the residual for the current
// step. Call once per step after Runner.Step.
func (fp *FieldPlotter) Sample(r *sim.Runner) {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if !fp.enabled || r == nil {
		return
	}

	st := r.Status()
	fp.residuals = append(fp.residuals, FieldSample{
		Step:     st.Step,
		SimTime:  st.SimTime,
		Residual: st.Residual,
	})

	for _, idx := range fp.cells {
		cs, ok := r.CellState(idx)
		if !ok {
			continue
		}
		key := fmt.Sprintf("%d_%d", idx.X, idx.Y)
		fp.samples[key] = append(fp.samples[key], FieldSample{
			Step:     st.Step,
			SimTime:  st.SimTime,
			Pressure: cs.Pressure,
			Speed:    math.Hypot(cs.VelocityBack[0], cs.VelocityBack[1]),
			Smoke:    cs.SmokeBack,
		})
	}
}

var traceColors = []color.RGBA{
	{R: 31, G: 119, B: 180, A: 255},
	{R: 255, G: 127, B: 14, A: 255},
	{R: 44, G: 160, B: 44, A: 255},
	{R: 214, G: 39, B: 40, A: 255},
	{R: 148, G: 103, B: 189, A: 255},
}

// SavePlots writes residual.png plus pressure and speed traces for the
// recorded cells into the output directory.
func (fp *FieldPlotter) SavePlots() error {
	fp.mu.Lock()
	defer fp.mu.Unlock()

	if fp.outputDir == "" {
		return fmt.Errorf("plotter was never started")
	}

	if err := fp.saveResidualPlot(); err != nil {
		return err
	}
	return fp.saveCellPlots()
}

func (fp *FieldPlotter) saveResidualPlot() error {
	if len(fp.residuals) == 0 {
		return nil
	}

	p := plot.New()
	p.Title.Text = "Residual divergence per step"
	p.X.Label.Text = "step"
	p.Y.Label.Text = "mean |div|"

	pts := make(plotter.XYs, 0, len(fp.residuals))
	for _, s := range fp.residuals {
		pts = append(pts, plotter.XY{X: float64(s.Step), Y: s.Residual})
	}

	line, err := plotter.NewLine(pts)
	if err != nil {
		return fmt.Errorf("residual line: %w", err)
	}
	line.Width = vg.Points(1)
	line.Color = traceColors[0]
	p.Add(line)

	file := filepath.Join(fp.outputDir, "residual.png")
	if err := p.Save(10*vg.Inch, 5*vg.Inch, file); err != nil {
		return fmt.Errorf("save %s: %w", file, err)
	}
	return nil
}

func (fp *FieldPlotter) saveCellPlots() error {
	if len(fp.samples) == 0 {
		return nil
	}

	pPressure := plot.New()
	pPressure.Title.Text = "Cell pressure"
	pPressure.X.Label.Text = "step"
	pPressure.Y.Label.Text = "pressure"

	pSpeed := plot.New()
	pSpeed.Title.Text = "Cell speed"
	pSpeed.X.Label.Text = "step"
	pSpeed.Y.Label.Text = "|v|"

	ci := 0
	for _, idx := range fp.cells {
		key := fmt.Sprintf("%d_%d", idx.X, idx.Y)
		samples := fp.samples[key]
		if len(samples) == 0 {
			continue
		}

		pressurePts := make(plotter.XYs, 0, len(samples))
		speedPts := make(plotter.XYs, 0, len(samples))
		for _, s := range samples {
			pressurePts = append(pressurePts, plotter.XY{X: float64(s.Step), Y: s.Pressure})
			speedPts = append(speedPts, plotter.XY{X: float64(s.Step), Y: s.Speed})
		}

		c := traceColors[ci%len(traceColors)]
		ci++

		pressureLine, err := plotter.NewLine(pressurePts)
		if err != nil {
			return fmt.Errorf("pressure line %s: %w", key, err)
		}
		pressureLine.Width = vg.Points(1)
		pressureLine.Color = c
		pPressure.Add(pressureLine)
		pPressure.Legend.Add(key, pressureLine)

		speedLine, err := plotter.NewLine(speedPts)
		if err != nil {
			return fmt.Errorf("speed line %s: %w", key, err)
		}
		speedLine.Width = vg.Points(1)
		speedLine.Color = c
		pSpeed.Add(speedLine)
		pSpeed.Legend.Add(key, speedLine)
	}

	pressureFile := filepath.Join(fp.outputDir, "cell_pressure.png")
	if err := pPressure.Save(10*vg.Inch, 5*vg.Inch, pressureFile); err != nil {
		return fmt.Errorf("save %s: %w", pressureFile, err)
	}
	speedFile := filepath.Join(fp.outputDir, "cell_speed.png")
	if err := pSpeed.Save(10*vg.Inch, 5*vg.Inch, speedFile); err != nil {
		return fmt.Errorf("save %s: %w", speedFile, err)
	}
	return nil
}
