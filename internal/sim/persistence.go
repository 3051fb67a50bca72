package sim

import (
	"bytes"
	"compress/gzip"
	"encoding/gob"
	"fmt"
)

// CellState is the exported, serialisable record for one cell.
type CellState struct {
	VelocityFront [2]float64
	VelocityBack  [2]float64
	Pressure      float64
	SmokeFront    float64
	SmokeBack     float64
	Solid         bool
}

// GridSnapshot is one persisted grid state, written through a
// SnapshotStore.
type GridSnapshot struct {
	ID             int64
	RunID          string
	TakenUnixNanos int64
	DimX           int
	DimY           int
	CellWidth      float64
	StepCount      int
	ParamsJSON     string
	Reason         string
	GridBlob       []byte
}

// SnapshotStore persists GridSnapshot records. Implemented by simdb.
type SnapshotStore interface {
	InsertGridSnapshot(s *GridSnapshot) (int64, error)
}

// CellStates copies the grid state into exported records, row-major.
func (g *Grid) CellStates() []CellState {
	states := make([]CellState, len(g.cells))
	for i := range g.cells {
		c := &g.cells[i]
		states[i] = CellState{
			VelocityFront: [2]float64{c.Velocity.Front.X, c.Velocity.Front.Y},
			VelocityBack:  [2]float64{c.Velocity.Back.X, c.Velocity.Back.Y},
			Pressure:      c.Pressure,
			SmokeFront:    c.Smoke.Front,
			SmokeBack:     c.Smoke.Back,
			Solid:         c.Mode == Solid,
		}
	}
	return states
}

// RestoreCellStates writes previously captured records back into the
// grid. The record count must match the stored dimension.
func (g *Grid) RestoreCellStates(states []CellState) error {
	if len(states) != len(g.cells) {
		return fmt.Errorf("sim: cell state count %d does not match grid %dx%d",
			len(states), g.Dim.X, g.Dim.Y)
	}
	for i := range g.cells {
		c := &g.cells[i]
		s := states[i]
		c.Velocity.Front.X, c.Velocity.Front.Y = s.VelocityFront[0], s.VelocityFront[1]
		c.Velocity.Back.X, c.Velocity.Back.Y = s.VelocityBack[0], s.VelocityBack[1]
		c.Pressure = s.Pressure
		c.Smoke.Front = s.SmokeFront
		c.Smoke.Back = s.SmokeBack
		if s.Solid {
			c.Mode = Solid
		} else {
			c.Mode = Fluid
		}
	}
	return nil
}

// serializeCells compresses the cell records using gob encoding and
// gzip compression.
func serializeCells(states []CellState) ([]byte, error) {
	var buf bytes.Buffer
	gz := gzip.NewWriter(&buf)
	enc := gob.NewEncoder(gz)
	if err := enc.Encode(states); err != nil {
		gz.Close()
		return nil, err
	}
	if err := gz.Close(); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// deserializeCells decompresses and decodes cell records from a
// gob+gzip blob.
func deserializeCells(blob []byte) ([]CellState, error) {
	if len(blob) == 0 {
		return nil, fmt.Errorf("sim: empty grid blob")
	}
	gz, err := gzip.NewReader(bytes.NewReader(blob))
	if err != nil {
		return nil, fmt.Errorf("sim: failed to create gzip reader: %w", err)
	}
	defer gz.Close()

	var states []CellState
	dec := gob.NewDecoder(gz)
	if err := dec.Decode(&states); err != nil {
		return nil, fmt.Errorf("sim: failed to decode cell states: %w", err)
	}
	return states, nil
}

// RestoreGrid rebuilds a grid from a snapshot, dimensions and all.
func RestoreGrid(snap *GridSnapshot) (*Grid, error) {
	if snap.DimX < 3 || snap.DimY < 3 {
		return nil, fmt.Errorf("sim: snapshot dimension %dx%d too small", snap.DimX, snap.DimY)
	}
	states, err := deserializeCells(snap.GridBlob)
	if err != nil {
		return nil, err
	}

	g := NewGrid(snap.DimX-2, snap.DimY-2, snap.CellWidth)
	if err := g.RestoreCellStates(states); err != nil {
		return nil, err
	}
	return g, nil
}
