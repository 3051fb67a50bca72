// Command gridflow runs the 2D MAC-grid fluid solver as a service:
// it steps the simulation, serves the HTTP monitor, persists grid
// snapshots to sqlite and optionally writes diagnostic plots.
package main

import (
	"context"
	"encoding/json"
	"flag"
	"fmt"
	"log"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/eulerlab/gridflow/internal/config"
	"github.com/eulerlab/gridflow/internal/monitor"
	"github.com/eulerlab/gridflow/internal/monitoring"
	"github.com/eulerlab/gridflow/internal/sim"
	"github.com/eulerlab/gridflow/internal/simdb"
	"github.com/eulerlab/gridflow/internal/version"
)

var (
	configPath = flag.String("config", "", "Path to tuning config JSON (optional)")
	dbFile     = flag.String("db", "gridflow.db", "Path to sqlite database (empty disables persistence)")
	listen     = flag.String("listen", ":8080", "Monitor listen address")
	steps      = flag.Int("steps", 600, "Number of simulation steps (0 runs until interrupted)")
	plotDir    = flag.String("plot-dir", "", "Directory for PNG plots (empty disables plotting)")
	verbose    = flag.Bool("verbose", false, "Enable debug logging")
	showVer    = flag.Bool("version", false, "Print version and exit")
)

func main() {
	flag.Parse()
	if *showVer {
		fmt.Printf("gridflow %s (%s, built %s)\n", version.Version, version.GitSHA, version.BuildTime)
		return
	}
	if err := run(); err != nil {
		log.Fatalf("gridflow: %v", err)
	}
}

func run() error {
	monitoring.Debug = *verbose

	cfg := config.EmptyTuningConfig()
	if *configPath != "" {
		loaded, err := config.LoadTuningConfig(*configPath)
		if err != nil {
			return fmt.Errorf("load config: %w", err)
		}
		cfg = loaded
	}

	grid := sim.NewGrid(cfg.GetGridWidth(), cfg.GetGridHeight(), cfg.GetCellWidth())
	params := sim.ParamsFromTuning(cfg)

	var db *simdb.DB
	var store sim.SnapshotStore
	if *dbFile != "" {
		var err error
		db, err = simdb.Open(*dbFile)
		if err != nil {
			return err
		}
		defer db.Close()
		if err := db.MigrateUp(); err != nil {
			return err
		}
		store = db
	}

	runner, err := sim.NewRunner(grid, params, store)
	if err != nil {
		return err
	}
	seedInitialConditions(runner)

	if db != nil {
		paramsJSON, _ := json.Marshal(params)
		if err := db.InsertRun(&simdb.SimRun{
			RunID:      runner.RunID(),
			ParamsJSON: string(paramsJSON),
		}); err != nil {
			return err
		}
	}
	log.Printf("starting run %s: grid %dx%d, %d iterations/step",
		runner.RunID(), grid.Dim.X, grid.Dim.Y, params.SolverIterations)

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	ws := monitor.NewWebServer(monitor.WebServerConfig{
		Address: *listen,
		Runner:  runner,
		DB:      db,
	})
	go ws.Start(ctx)

	var plotter *monitor.FieldPlotter
	if *plotDir != "" {
		plotter = monitor.NewFieldPlotter(traceCells(grid))
		outDir := filepath.Join(*plotDir, runner.RunID(), time.Now().Format("20060102_150405"))
		if err := plotter.Start(outDir); err != nil {
			return err
		}
		log.Printf("writing plots to %s", outDir)
	}

	stepped := 0
loop:
	for i := 0; *steps == 0 || i < *steps; i++ {
		select {
		case <-ctx.Done():
			log.Printf("interrupted after %d steps", stepped)
			break loop
		default:
		}
		runner.Step()
		stepped++
		if plotter != nil {
			plotter.Sample(runner)
		}
	}

	st := runner.Status()
	log.Printf("run %s done: %d steps, sim time %.3fs, residual %.3g",
		st.RunID, st.Step, st.SimTime, st.Residual)

	if err := runner.Persist("final"); err != nil {
		log.Printf("final snapshot failed: %v", err)
	}
	if db != nil {
		if err := db.FinishRun(runner.RunID(), st.Step); err != nil {
			log.Printf("failed to finish run record: %v", err)
		}
	}
	if plotter != nil {
		plotter.Stop()
		if err := plotter.SavePlots(); err != nil {
			log.Printf("failed to save plots: %v", err)
		}
	}
	return nil
}

// seedInitialConditions gives the run something to project: a smoke
// blob in the lower third and a horizontal jet along the vertical
// middle of the domain. Pure storage for smoke; the jet velocity is
// what the solver works against.
func seedInitialConditions(r *sim.Runner) {
	r.WithGrid(func(g *sim.Grid) {
		it := g.InteriorRange()
		for idx, ok := it.Next(); ok; idx, ok = it.Next() {
			cell := g.CellAt(idx)

			if idx.Y > g.Dim.Y/4 && idx.Y < g.Dim.Y/2 && idx.X < g.Dim.X/3 {
				cell.Smoke.Front = 1.0
				cell.Smoke.Back = 1.0
			}

			if idx.Y == g.Dim.Y/2 {
				cell.Velocity.Front = r2.Vec{X: 2.0}
				cell.Velocity.Back = r2.Vec{X: 2.0}
			}
		}
		g.EnforceSolidConstraints()
	})
}

// traceCells picks a small diagonal of interior cells for plotting.
func traceCells(g *sim.Grid) []sim.Index2 {
	return []sim.Index2{
		{X: g.Dim.X / 4, Y: g.Dim.Y / 4},
		{X: g.Dim.X / 2, Y: g.Dim.Y / 2},
		{X: 3 * g.Dim.X / 4, Y: 3 * g.Dim.Y / 4},
	}
}
