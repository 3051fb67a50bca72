package main

import (
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/eulerlab/gridflow/internal/httputil"
	"github.com/eulerlab/gridflow/internal/timeutil"
)

func TestSweep(t *testing.T) {
	var postCount, getCount int
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch {
		case r.Method == http.MethodPost && r.URL.Path == "/api/sim/params":
			postCount++
			fmt.Fprint(w, `{}`)
		case r.Method == http.MethodGet && r.URL.Path == "/":
			getCount++
			fmt.Fprintf(w, `{"status": {"step": %d, "residual": 0.25}}`, 100+getCount)
		default:
			http.NotFound(w, r)
		}
	}))
	defer srv.Close()

	clock := timeutil.NewMockClock(time.Now())
	var out strings.Builder
	cfg := sweepConfig{
		baseURL: srv.URL,
		start:   10,
		end:     30,
		step:    10,
		wait:    time.Second,
	}

	client := httputil.NewStandardClient(srv.Client())
	if err := sweep(client, clock, &out, cfg); err != nil {
		t.Fatalf("sweep failed: %v", err)
	}

	if postCount != 3 || getCount != 3 {
		t.Errorf("posts = %d, gets = %d, want 3 each", postCount, getCount)
	}
	if got := len(clock.Sleeps()); got != 3 {
		t.Errorf("clock recorded %d sleeps, want 3", got)
	}

	lines := strings.Split(strings.TrimSpace(out.String()), "\n")
	if len(lines) != 4 {
		t.Fatalf("got %d output lines, want header + 3 rows:\n%s", len(lines), out.String())
	}
	if lines[0] != "solver_iterations,step,residual" {
		t.Errorf("unexpected header %q", lines[0])
	}
	if lines[1] != "10,101,0.25" {
		t.Errorf("unexpected first row %q", lines[1])
	}
}

func TestSweep_ServerError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddResponse(http.StatusInternalServerError, "boom")

	clock := timeutil.NewMockClock(time.Now())
	var out strings.Builder
	cfg := sweepConfig{baseURL: "http://monitor", start: 1, end: 1, step: 1}

	err := sweep(mock, clock, &out, cfg)
	if err == nil {
		t.Fatal("expected an error from a failing monitor")
	}
	if got := mock.RequestCount(); got != 1 {
		t.Errorf("sweep sent %d requests after the failure, want 1", got)
	}
}

func TestSweep_TransportError(t *testing.T) {
	mock := httputil.NewMockHTTPClient()
	mock.AddErrorResponse(errors.New("connection refused"))

	clock := timeutil.NewMockClock(time.Now())
	var out strings.Builder
	cfg := sweepConfig{baseURL: "http://monitor", start: 1, end: 1, step: 1}

	if err := sweep(mock, clock, &out, cfg); err == nil {
		t.Fatal("expected an error from an unreachable monitor")
	}
}
