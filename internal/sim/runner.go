package sim

import (
	"context"
	"encoding/json"
	"fmt"
	"sync"

	"github.com/google/uuid"
	"gonum.org/v1/gonum/spatial/r2"

	"github.com/eulerlab/gridflow/internal/config"
	"github.com/eulerlab/gridflow/internal/monitoring"
	"github.com/eulerlab/gridflow/internal/timeutil"
)

// Params are the runtime-tunable stepping parameters. The JSON tags
// match the tuning config schema and the /api/sim/params endpoint.
type Params struct {
	Dt               float64 `json:"dt"`
	SolverIterations int     `json:"solver_iterations"`
	Density          float64 `json:"density"`
	GravityX         float64 `json:"gravity_x"`
	GravityY         float64 `json:"gravity_y"`

	// SnapshotEverySteps persists a grid snapshot every N steps when a
	// store is attached. Zero disables periodic snapshots.
	SnapshotEverySteps int `json:"snapshot_every_steps"`
	// ResidualHistory bounds the retained residual series. Zero keeps
	// everything.
	ResidualHistory int `json:"residual_history"`
}

// Gravity returns the gravity vector.
func (p Params) Gravity() r2.Vec {
	return r2.Vec{X: p.GravityX, Y: p.GravityY}
}

// Validate checks the parameters for values the solver cannot run with.
func (p Params) Validate() error {
	if p.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %g", p.Dt)
	}
	if p.SolverIterations < 1 {
		return fmt.Errorf("solver_iterations must be at least 1, got %d", p.SolverIterations)
	}
	if p.Density <= 0 {
		return fmt.Errorf("density must be positive, got %g", p.Density)
	}
	if p.SnapshotEverySteps < 0 {
		return fmt.Errorf("snapshot_every_steps must be non-negative, got %d", p.SnapshotEverySteps)
	}
	if p.ResidualHistory < 0 {
		return fmt.Errorf("residual_history must be non-negative, got %d", p.ResidualHistory)
	}
	return nil
}

// ParamsFromTuning builds Params from a loaded TuningConfig.
func ParamsFromTuning(cfg *config.TuningConfig) Params {
	return Params{
		Dt:                 cfg.GetDt(),
		SolverIterations:   cfg.GetSolverIterations(),
		Density:            cfg.GetDensity(),
		GravityX:           cfg.GetGravityX(),
		GravityY:           cfg.GetGravityY(),
		SnapshotEverySteps: cfg.GetSnapshotEverySteps(),
		ResidualHistory:    cfg.GetResidualHistory(),
	}
}

// Status is a point-in-time summary of a run, served by the monitor.
type Status struct {
	RunID    string  `json:"run_id"`
	Step     int     `json:"step"`
	SimTime  float64 `json:"sim_time"`
	DimX     int     `json:"dim_x"`
	DimY     int     `json:"dim_y"`
	Residual float64 `json:"residual"`
	Params   Params  `json:"params"`
}

// Runner drives a Grid through simulation steps: gravity integration,
// incompressibility projection, residual bookkeeping and optional
// periodic snapshot persistence. The grid itself is single-threaded;
// the Runner serialises all access with its mutex so the monitor can
// read while a run is in flight.
type Runner struct {
	mu sync.Mutex

	grid   *Grid
	params Params

	runID   string
	step    int
	simTime float64

	residuals []float64

	store SnapshotStore
	clock timeutil.Clock
}

// NewRunner wraps a grid with stepping parameters and an optional
// snapshot store. A fresh UUID identifies the run.
func NewRunner(grid *Grid, params Params, store SnapshotStore) (*Runner, error) {
	if err := params.Validate(); err != nil {
		return nil, fmt.Errorf("invalid params: %w", err)
	}
	return &Runner{
		grid:   grid,
		params: params,
		runID:  uuid.NewString(),
		store:  store,
		clock:  timeutil.RealClock{},
	}, nil
}

// SetClock replaces the clock used for snapshot timestamps. Tests use
// this with a mock clock.
func (r *Runner) SetClock(c timeutil.Clock) {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.clock = c
}

// RunID returns the unique identifier of this run.
func (r *Runner) RunID() string {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.runID
}

// Params returns the current stepping parameters.
func (r *Runner) Params() Params {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.params
}

// SetParams replaces the stepping parameters after validation. Takes
// effect from the next step.
func (r *Runner) SetParams(p Params) error {
	if err := p.Validate(); err != nil {
		return err
	}
	r.mu.Lock()
	defer r.mu.Unlock()
	r.params = p
	return nil
}

// Step advances the simulation by one step: integrate forces, project
// out divergence, record the residual, and persist a periodic snapshot
// when due. Snapshot failures are logged, never fatal to the step.
func (r *Runner) Step() {
	r.mu.Lock()
	defer r.mu.Unlock()

	p := r.params
	r.grid.Integrate(p.Dt, p.Gravity())
	r.grid.SolveIncompressibility(p.Dt, p.SolverIterations, p.Density)

	r.step++
	r.simTime += p.Dt

	r.residuals = append(r.residuals, r.grid.ResidualDivergence())
	if n := p.ResidualHistory; n > 0 && len(r.residuals) > n {
		// Copy instead of re-slicing so the old backing array does not
		// stay alive for the whole run.
		trimmed := make([]float64, n)
		copy(trimmed, r.residuals[len(r.residuals)-n:])
		r.residuals = trimmed
	}

	if p.SnapshotEverySteps > 0 && r.store != nil && r.step%p.SnapshotEverySteps == 0 {
		if err := r.persistLocked("periodic"); err != nil {
			monitoring.Warnf("sim: periodic snapshot failed at step %d: %v", r.step, err)
		}
	}
}

// Run performs up to steps simulation steps, stopping early when the
// context is cancelled.
func (r *Runner) Run(ctx context.Context, steps int) error {
	for i := 0; i < steps; i++ {
		select {
		case <-ctx.Done():
			return ctx.Err()
		default:
		}
		r.Step()
	}
	return nil
}

// Status returns a point-in-time run summary.
func (r *Runner) Status() Status {
	r.mu.Lock()
	defer r.mu.Unlock()

	st := Status{
		RunID:   r.runID,
		Step:    r.step,
		SimTime: r.simTime,
		DimX:    r.grid.Dim.X,
		DimY:    r.grid.Dim.Y,
		Params:  r.params,
	}
	if len(r.residuals) > 0 {
		st.Residual = r.residuals[len(r.residuals)-1]
	}
	return st
}

// Residuals returns a copy of the retained residual series.
func (r *Runner) Residuals() []float64 {
	r.mu.Lock()
	defer r.mu.Unlock()
	out := make([]float64, len(r.residuals))
	copy(out, r.residuals)
	return out
}

// Heatmap returns a bucketed grid summary under the run lock.
func (r *Runner) Heatmap(bucketSize int) *GridHeatmap {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.grid.Heatmap(bucketSize)
}

// Sample reconstructs a named field at a continuous position. Known
// fields are "velocity", "smoke" and "pressure"; axis selects the
// staggering offset (and, for velocity, the component).
func (r *Runner) Sample(field string, axis int, pos r2.Vec) (float64, error) {
	if axis != 0 && axis != 1 {
		return 0, fmt.Errorf("axis must be 0 or 1, got %d", axis)
	}

	r.mu.Lock()
	defer r.mu.Unlock()

	switch field {
	case "velocity":
		return r.grid.SampleField(pos, axis, VelocityBack), nil
	case "smoke":
		return r.grid.SampleField(pos, axis, SmokeBack), nil
	case "pressure":
		return r.grid.SampleField(pos, axis, PressureValue), nil
	default:
		return 0, fmt.Errorf("unknown field %q", field)
	}
}

// CellState copies one cell's state, or ok=false out of range.
func (r *Runner) CellState(idx Index2) (CellState, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	c, ok := r.grid.CellAtChecked(idx)
	if !ok {
		return CellState{}, false
	}
	return CellState{
		VelocityFront: [2]float64{c.Velocity.Front.X, c.Velocity.Front.Y},
		VelocityBack:  [2]float64{c.Velocity.Back.X, c.Velocity.Back.Y},
		Pressure:      c.Pressure,
		SmokeFront:    c.Smoke.Front,
		SmokeBack:     c.Smoke.Back,
		Solid:         c.Mode == Solid,
	}, true
}

// WithGrid runs f with exclusive access to the underlying grid. Used
// for seeding initial conditions and carving obstacles.
func (r *Runner) WithGrid(f func(g *Grid)) {
	r.mu.Lock()
	defer r.mu.Unlock()
	f(r.grid)
}

// Persist writes a snapshot of the current grid state to the attached
// store. A nil store is a no-op.
func (r *Runner) Persist(reason string) error {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.persistLocked(reason)
}

func (r *Runner) persistLocked(reason string) error {
	if r.store == nil {
		return nil
	}

	blob, err := serializeCells(r.grid.CellStates())
	if err != nil {
		return fmt.Errorf("serialize grid: %w", err)
	}

	paramsJSON, err := json.Marshal(r.params)
	if err != nil {
		return fmt.Errorf("marshal params: %w", err)
	}

	snap := &GridSnapshot{
		RunID:          r.runID,
		TakenUnixNanos: r.clock.Now().UnixNano(),
		DimX:           r.grid.Dim.X,
		DimY:           r.grid.Dim.Y,
		CellWidth:      r.grid.CellWidth,
		StepCount:      r.step,
		ParamsJSON:     string(paramsJSON),
		Reason:         reason,
		GridBlob:       blob,
	}

	if _, err := r.store.InsertGridSnapshot(snap); err != nil {
		return fmt.Errorf("insert snapshot: %w", err)
	}
	return nil
}
