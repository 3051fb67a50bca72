package monitor

import (
	"net/http"
	"strings"
	"testing"

	"github.com/eulerlab/gridflow/internal/sim"
	"github.com/eulerlab/gridflow/internal/testutil"
)

func TestHandlePressureChart(t *testing.T) {
	ws, mux := testServer(t)
	ws.runner.WithGrid(func(g *sim.Grid) {
		g.CellAt(sim.Index2{X: 3, Y: 3}).Pressure = 12.5
	})

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest("GET", "/debug/charts/pressure"))

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if ct := rec.Header().Get("Content-Type"); !strings.Contains(ct, "text/html") {
		t.Errorf("content type = %q, want html", ct)
	}
	body := rec.Body.String()
	if !strings.Contains(body, "Pressure field") {
		t.Error("chart page missing title")
	}
	if !strings.Contains(body, echartsAssetsPrefix) {
		t.Error("chart page does not reference the assets host")
	}
}

func TestHandleSmokeChart(t *testing.T) {
	_, mux := testServer(t)

	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest("GET", "/debug/charts/smoke"))

	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Smoke field") {
		t.Error("chart page missing title")
	}
}

func TestHandleConvergenceChart(t *testing.T) {
	ws, mux := testServer(t)

	// No residuals yet.
	rec := testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest("GET", "/debug/charts/convergence"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusNotFound)

	ws.runner.Step()
	ws.runner.Step()

	rec = testutil.NewTestRecorder()
	mux.ServeHTTP(rec, testutil.NewTestRequest("GET", "/debug/charts/convergence"))
	testutil.AssertStatusCode(t, rec.Code, http.StatusOK)
	if !strings.Contains(rec.Body.String(), "Residual divergence") {
		t.Error("chart page missing title")
	}
}

func TestCharts_NoRunner(t *testing.T) {
	ws := NewWebServer(WebServerConfig{Address: ":0"})
	mux := ws.setupRoutes()

	for _, path := range []string{
		"/debug/charts/pressure",
		"/debug/charts/smoke",
		"/debug/charts/convergence",
	} {
		rec := testutil.NewTestRecorder()
		mux.ServeHTTP(rec, testutil.NewTestRequest("GET", path))
		if rec.Code != http.StatusServiceUnavailable {
			t.Errorf("%s: status = %d, want 503", path, rec.Code)
		}
	}
}
