// Package monitor exposes a running simulation over HTTP: JSON status
// and tuning endpoints, continuous-position field sampling, snapshot
// persistence triggers, and echarts dashboards.
package monitor

import (
	"context"
	"encoding/json"
	"fmt"
	"log"
	"net/http"
	"time"

	"gonum.org/v1/gonum/spatial/r2"

	"github.com/eulerlab/gridflow/internal/config"
	"github.com/eulerlab/gridflow/internal/httputil"
	"github.com/eulerlab/gridflow/internal/sim"
	"github.com/eulerlab/gridflow/internal/simdb"
	"github.com/eulerlab/gridflow/internal/version"
)

// WebServerConfig contains configuration options for the web server.
type WebServerConfig struct {
	Address string
	Runner  *sim.Runner
	DB      *simdb.DB

	// HeatmapBucketSize is the default cell bucket edge for heatmap
	// aggregation; requests may override it.
	HeatmapBucketSize int
}

// WebServer handles the HTTP interface for monitoring a simulation run.
type WebServer struct {
	address    string
	runner     *sim.Runner
	db         *simdb.DB
	bucketSize int

	server    *http.Server
	startTime time.Time
}

// NewWebServer creates a web server with the provided configuration.
func NewWebServer(cfg WebServerConfig) *WebServer {
	bucket := cfg.HeatmapBucketSize
	if bucket < 1 {
		bucket = 4
	}

	ws := &WebServer{
		address:    cfg.Address,
		runner:     cfg.Runner,
		db:         cfg.DB,
		bucketSize: bucket,
		startTime:  time.Now(),
	}

	ws.server = &http.Server{
		Addr:    ws.address,
		Handler: ws.setupRoutes(),
	}
	return ws
}

// Start begins the HTTP server in a goroutine and shuts it down when
// the context is cancelled.
func (ws *WebServer) Start(ctx context.Context) error {
	go func() {
		log.Printf("Starting HTTP server on %s", ws.address)
		if err := ws.server.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	<-ctx.Done()
	log.Println("shutting down HTTP server...")

	shutdownCtx, cancel := context.WithTimeout(context.Background(), 1*time.Second)
	defer cancel()

	if err := ws.server.Shutdown(shutdownCtx); err != nil {
		log.Printf("HTTP server shutdown error: %v", err)
		if err := ws.server.Close(); err != nil {
			log.Printf("HTTP server force close error: %v", err)
		}
	}
	return nil
}

// setupRoutes configures the HTTP routes and handlers.
func (ws *WebServer) setupRoutes() *http.ServeMux {
	mux := http.NewServeMux()

	mux.HandleFunc("/health", ws.handleHealth)
	mux.HandleFunc("/", ws.handleStatus)
	mux.HandleFunc("/api/sim/params", ws.handleParams)
	mux.HandleFunc("/api/sim/field", ws.handleField)
	mux.HandleFunc("/api/sim/heatmap", ws.handleHeatmap)
	mux.HandleFunc("/api/sim/persist", ws.handlePersist)
	mux.HandleFunc("/api/sim/snapshots", ws.handleSnapshots)

	mux.HandleFunc("/debug/charts/pressure", ws.handlePressureChart)
	mux.HandleFunc("/debug/charts/smoke", ws.handleSmokeChart)
	mux.HandleFunc("/debug/charts/convergence", ws.handleConvergenceChart)

	return mux
}

func (ws *WebServer) handleHealth(w http.ResponseWriter, r *http.Request) {
	w.Header().Set("Content-Type", "application/json")
	fmt.Fprintf(w, `{"status": "ok", "service": "gridflow", "version": "%s", "timestamp": "%s"}`,
		version.Version, time.Now().UTC().Format(time.RFC3339))
}

// handleStatus serves the run summary on the root path.
func (ws *WebServer) handleStatus(w http.ResponseWriter, r *http.Request) {
	if r.URL.Path != "/" {
		http.NotFound(w, r)
		return
	}
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	st := ws.runner.Status()
	httputil.WriteJSONOK(w, map[string]interface{}{
		"status":    st,
		"uptime":    time.Since(ws.startTime).String(),
		"residuals": len(ws.runner.Residuals()),
	})
}

// handleParams reads (GET) or updates (POST) the stepping parameters.
// POST bodies use the tuning config schema; omitted fields keep their
// current values.
func (ws *WebServer) handleParams(w http.ResponseWriter, r *http.Request) {
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	switch r.Method {
	case http.MethodGet:
		httputil.WriteJSONOK(w, ws.runner.Params())

	case http.MethodPost:
		var patch config.TuningConfig
		if err := json.NewDecoder(r.Body).Decode(&patch); err != nil {
			httputil.BadRequest(w, fmt.Sprintf("invalid JSON body: %v", err))
			return
		}
		if err := patch.Validate(); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}

		p := ws.runner.Params()
		applyPatch(&p, &patch)
		if err := ws.runner.SetParams(p); err != nil {
			httputil.BadRequest(w, err.Error())
			return
		}
		httputil.WriteJSONOK(w, p)

	default:
		httputil.MethodNotAllowed(w, "use GET or POST")
	}
}

// applyPatch copies the fields set in the tuning patch onto p. Grid
// geometry fields are ignored; the grid cannot be resized mid-run.
func applyPatch(p *sim.Params, patch *config.TuningConfig) {
	if patch.Dt != nil {
		p.Dt = *patch.Dt
	}
	if patch.SolverIterations != nil {
		p.SolverIterations = *patch.SolverIterations
	}
	if patch.Density != nil {
		p.Density = *patch.Density
	}
	if patch.GravityX != nil {
		p.GravityX = *patch.GravityX
	}
	if patch.GravityY != nil {
		p.GravityY = *patch.GravityY
	}
	if patch.SnapshotEverySteps != nil {
		p.SnapshotEverySteps = *patch.SnapshotEverySteps
	}
	if patch.ResidualHistory != nil {
		p.ResidualHistory = *patch.ResidualHistory
	}
}

// handleField samples a field at a continuous position:
// /api/sim/field?field=velocity&axis=0&x=0.5&y=0.25
func (ws *WebServer) handleField(w http.ResponseWriter, r *http.Request) {
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	q := r.URL.Query()
	field := q.Get("field")
	if field == "" {
		field = "velocity"
	}

	axis := 0
	if v := q.Get("axis"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &axis); err != nil {
			httputil.BadRequest(w, "invalid axis")
			return
		}
	}

	var x, y float64
	if _, err := fmt.Sscanf(q.Get("x"), "%g", &x); err != nil {
		httputil.BadRequest(w, "invalid or missing x")
		return
	}
	if _, err := fmt.Sscanf(q.Get("y"), "%g", &y); err != nil {
		httputil.BadRequest(w, "invalid or missing y")
		return
	}

	val, err := ws.runner.Sample(field, axis, r2.Vec{X: x, Y: y})
	if err != nil {
		httputil.BadRequest(w, err.Error())
		return
	}

	httputil.WriteJSONOK(w, map[string]interface{}{
		"field": field,
		"axis":  axis,
		"x":     x,
		"y":     y,
		"value": val,
	})
}

// handleHeatmap serves the bucketed grid aggregates as JSON.
func (ws *WebServer) handleHeatmap(w http.ResponseWriter, r *http.Request) {
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	bucket := ws.bucketSize
	if v := r.URL.Query().Get("bucket_size"); v != "" {
		if _, err := fmt.Sscanf(v, "%d", &bucket); err != nil || bucket < 1 {
			httputil.BadRequest(w, "invalid bucket_size")
			return
		}
	}

	httputil.WriteJSONOK(w, ws.runner.Heatmap(bucket))
}

// handlePersist writes a snapshot of the current grid state.
func (ws *WebServer) handlePersist(w http.ResponseWriter, r *http.Request) {
	if r.Method != http.MethodPost {
		httputil.MethodNotAllowed(w, "use POST")
		return
	}
	if ws.runner == nil {
		httputil.ServiceUnavailable(w, "no active run")
		return
	}

	reason := r.URL.Query().Get("reason")
	if reason == "" {
		reason = "manual"
	}

	if err := ws.runner.Persist(reason); err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("persist failed: %v", err))
		return
	}
	httputil.WriteJSONOK(w, map[string]string{"status": "persisted", "reason": reason})
}

// snapshotMeta is the blob-free view served by the snapshots endpoint.
type snapshotMeta struct {
	ID             int64   `json:"id"`
	RunID          string  `json:"run_id"`
	TakenUnixNanos int64   `json:"taken_unix_nanos"`
	DimX           int     `json:"dim_x"`
	DimY           int     `json:"dim_y"`
	CellWidth      float64 `json:"cell_width"`
	StepCount      int     `json:"step_count"`
	Reason         string  `json:"reason"`
	BlobBytes      int     `json:"blob_bytes"`
}

// handleSnapshots lists persisted snapshots for the current (or a
// requested) run, newest first.
func (ws *WebServer) handleSnapshots(w http.ResponseWriter, r *http.Request) {
	if ws.db == nil {
		httputil.ServiceUnavailable(w, "snapshot store not configured")
		return
	}

	runID := r.URL.Query().Get("run_id")
	if runID == "" {
		if ws.runner == nil {
			httputil.BadRequest(w, "run_id required")
			return
		}
		runID = ws.runner.RunID()
	}

	snaps, err := ws.db.ListGridSnapshots(runID, 50)
	if err != nil {
		httputil.InternalServerError(w, fmt.Sprintf("list snapshots: %v", err))
		return
	}

	metas := make([]snapshotMeta, 0, len(snaps))
	for _, s := range snaps {
		metas = append(metas, snapshotMeta{
			ID:             s.ID,
			RunID:          s.RunID,
			TakenUnixNanos: s.TakenUnixNanos,
			DimX:           s.DimX,
			DimY:           s.DimY,
			CellWidth:      s.CellWidth,
			StepCount:      s.StepCount,
			Reason:         s.Reason,
			BlobBytes:      len(s.GridBlob),
		})
	}
	httputil.WriteJSONOK(w, metas)
}
