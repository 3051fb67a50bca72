// Package config loads and validates the JSON tuning configuration for
// the fluid solver service.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// DefaultConfigPath is the path to the canonical tuning defaults file.
// This is the single source of truth for all default tuning values.
const DefaultConfigPath = "config/tuning.defaults.json"

// TuningConfig represents the root configuration for solver tuning.
// The schema matches the /api/sim/params endpoint so the same JSON can
// be used for both startup configuration and runtime updates. All
// fields are optional; the Get* methods supply defaults for anything
// left unset, so partial configs are safe.
type TuningConfig struct {
	// Grid geometry
	GridWidth  *int     `json:"grid_width,omitempty"`
	GridHeight *int     `json:"grid_height,omitempty"`
	CellWidth  *float64 `json:"cell_width,omitempty"`

	// Stepping params
	Dt               *float64 `json:"dt,omitempty"`
	SolverIterations *int     `json:"solver_iterations,omitempty"`
	Density          *float64 `json:"density,omitempty"`
	GravityX         *float64 `json:"gravity_x,omitempty"`
	GravityY         *float64 `json:"gravity_y,omitempty"`

	// Operational params
	SnapshotEverySteps *int `json:"snapshot_every_steps,omitempty"`
	ResidualHistory    *int `json:"residual_history,omitempty"`
}

// EmptyTuningConfig returns a TuningConfig with all fields set to nil.
// Use LoadTuningConfig to load actual values from a defaults file.
func EmptyTuningConfig() *TuningConfig {
	return &TuningConfig{}
}

// LoadTuningConfig loads a TuningConfig from a JSON file.
// The file is validated to ensure it has a .json extension and is under
// the max file size. Fields omitted from the JSON file fall back to
// their defaults via the Get* methods.
func LoadTuningConfig(path string) (*TuningConfig, error) {
	cleanPath := filepath.Clean(path)
	if ext := filepath.Ext(cleanPath); ext != ".json" {
		return nil, fmt.Errorf("config file must have .json extension, got %q", ext)
	}

	// Check file size for safety (max 1MB)
	fileInfo, err := os.Stat(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to stat config file: %w", err)
	}
	const maxFileSize = 1 * 1024 * 1024
	if fileInfo.Size() > maxFileSize {
		return nil, fmt.Errorf("config file too large: %d bytes (max %d)", fileInfo.Size(), maxFileSize)
	}

	data, err := os.ReadFile(cleanPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file: %w", err)
	}

	cfg := EmptyTuningConfig()
	if err := json.Unmarshal(data, cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	return cfg, nil
}

// Validate checks that the configuration values are valid.
func (c *TuningConfig) Validate() error {
	if c.GridWidth != nil && *c.GridWidth < 1 {
		return fmt.Errorf("grid_width must be positive, got %d", *c.GridWidth)
	}
	if c.GridHeight != nil && *c.GridHeight < 1 {
		return fmt.Errorf("grid_height must be positive, got %d", *c.GridHeight)
	}
	if c.CellWidth != nil && *c.CellWidth <= 0 {
		return fmt.Errorf("cell_width must be positive, got %f", *c.CellWidth)
	}
	if c.Dt != nil && *c.Dt <= 0 {
		return fmt.Errorf("dt must be positive, got %f", *c.Dt)
	}
	if c.SolverIterations != nil && *c.SolverIterations < 1 {
		return fmt.Errorf("solver_iterations must be at least 1, got %d", *c.SolverIterations)
	}
	if c.Density != nil && *c.Density <= 0 {
		return fmt.Errorf("density must be positive, got %f", *c.Density)
	}
	if c.SnapshotEverySteps != nil && *c.SnapshotEverySteps < 0 {
		return fmt.Errorf("snapshot_every_steps must be non-negative, got %d", *c.SnapshotEverySteps)
	}
	if c.ResidualHistory != nil && *c.ResidualHistory < 0 {
		return fmt.Errorf("residual_history must be non-negative, got %d", *c.ResidualHistory)
	}
	return nil
}

// GetGridWidth returns the requested interior grid width or the default.
func (c *TuningConfig) GetGridWidth() int {
	if c.GridWidth == nil {
		return 100 // default
	}
	return *c.GridWidth
}

// GetGridHeight returns the requested interior grid height or the default.
func (c *TuningConfig) GetGridHeight() int {
	if c.GridHeight == nil {
		return 50 // default
	}
	return *c.GridHeight
}

// GetCellWidth returns the physical cell spacing or the default.
func (c *TuningConfig) GetCellWidth() float64 {
	if c.CellWidth == nil {
		return 0.02 // default, metres
	}
	return *c.CellWidth
}

// GetDt returns the step size or the default.
func (c *TuningConfig) GetDt() float64 {
	if c.Dt == nil {
		return 1.0 / 60.0 // default
	}
	return *c.Dt
}

// GetSolverIterations returns the relaxation sweep count or the default.
func (c *TuningConfig) GetSolverIterations() int {
	if c.SolverIterations == nil {
		return 40 // default
	}
	return *c.SolverIterations
}

// GetDensity returns the fluid density or the default.
func (c *TuningConfig) GetDensity() float64 {
	if c.Density == nil {
		return 1000.0 // default, water-ish
	}
	return *c.Density
}

// GetGravityX returns the x gravity component or the default.
func (c *TuningConfig) GetGravityX() float64 {
	if c.GravityX == nil {
		return 0.0 // default
	}
	return *c.GravityX
}

// GetGravityY returns the y gravity component or the default.
func (c *TuningConfig) GetGravityY() float64 {
	if c.GravityY == nil {
		return -9.81 // default
	}
	return *c.GravityY
}

// GetSnapshotEverySteps returns the snapshot cadence or the default.
// Zero disables periodic snapshots.
func (c *TuningConfig) GetSnapshotEverySteps() int {
	if c.SnapshotEverySteps == nil {
		return 0 // default: disabled
	}
	return *c.SnapshotEverySteps
}

// GetResidualHistory returns the residual ring size or the default.
func (c *TuningConfig) GetResidualHistory() int {
	if c.ResidualHistory == nil {
		return 512 // default
	}
	return *c.ResidualHistory
}
