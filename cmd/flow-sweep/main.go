// Command flow-sweep sweeps the solver iteration count against a
// running gridflow monitor and prints a CSV of the residuals observed
// at each setting, for convergence comparison.
package main

import (
	"bytes"
	"encoding/json"
	"flag"
	"fmt"
	"io"
	"net/http"
	"os"
	"time"

	"github.com/eulerlab/gridflow/internal/httputil"
	"github.com/eulerlab/gridflow/internal/timeutil"
)

type sweepConfig struct {
	baseURL string
	start   int
	end     int
	step    int
	wait    time.Duration
}

func main() {
	monitorURL := flag.String("monitor", "http://localhost:8080", "Base URL for gridflow monitor")
	start := flag.Int("start", 1, "Start solver iteration count")
	end := flag.Int("end", 80, "End solver iteration count")
	step := flag.Int("step", 5, "Iteration count increment")
	wait := flag.Duration("wait", 2*time.Second, "Wait time after setting params before sampling the residual")
	flag.Parse()

	client := httputil.NewStandardClient(&http.Client{Timeout: 10 * time.Second})
	cfg := sweepConfig{
		baseURL: *monitorURL,
		start:   *start,
		end:     *end,
		step:    *step,
		wait:    *wait,
	}
	if err := sweep(client, timeutil.RealClock{}, os.Stdout, cfg); err != nil {
		fmt.Fprintf(os.Stderr, "%v\n", err)
		os.Exit(1)
	}
}

// sweep walks the iteration counts, updating the running monitor and
// sampling the residual after each settling period.
func sweep(client httputil.HTTPClient, clock timeutil.Clock, out io.Writer, cfg sweepConfig) error {
	fmt.Fprintln(out, "solver_iterations,step,residual")

	for v := cfg.start; v <= cfg.end; v += cfg.step {
		if err := setIterations(client, cfg.baseURL, v); err != nil {
			return err
		}

		clock.Sleep(cfg.wait)

		step, residual, err := fetchResidual(client, cfg.baseURL)
		if err != nil {
			return err
		}
		fmt.Fprintf(out, "%d,%d,%g\n", v, step, residual)
	}
	return nil
}

func setIterations(client httputil.HTTPClient, baseURL string, v int) error {
	b, _ := json.Marshal(map[string]interface{}{"solver_iterations": v})
	resp, err := client.Post(baseURL+"/api/sim/params", "application/json", bytes.NewReader(b))
	if err != nil {
		return fmt.Errorf("set params: %w", err)
	}
	body, _ := io.ReadAll(resp.Body)
	resp.Body.Close()
	if resp.StatusCode/100 != 2 {
		return fmt.Errorf("set params returned %d: %s", resp.StatusCode, string(body))
	}
	return nil
}

func fetchResidual(client httputil.HTTPClient, baseURL string) (step int, residual float64, err error) {
	resp, err := client.Get(baseURL + "/")
	if err != nil {
		return 0, 0, fmt.Errorf("fetch status: %w", err)
	}
	defer resp.Body.Close()

	var m struct {
		Status struct {
			Step     int     `json:"step"`
			Residual float64 `json:"residual"`
		} `json:"status"`
	}
	if err := json.NewDecoder(resp.Body).Decode(&m); err != nil {
		return 0, 0, fmt.Errorf("decode status: %w", err)
	}
	return m.Status.Step, m.Status.Residual, nil
}
