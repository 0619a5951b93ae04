// Package audit implements the accessibility gate. It starts a local
// instance of the target application, waits for it to become ready,
// runs a third-party accessibility auditor against a fixed set of
// routes, and reduces the auditor's JSON issue reports to a single
// pass/fail verdict. The server instance is always torn down, whatever
// the outcome.
package audit

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// ErrServerNotReady is returned when the application instance never
// answered within the configured number of readiness attempts.
var ErrServerNotReady = errors.New("audit: server never became ready")

// EmptyReportPolicy decides what an absent or empty auditor report
// means. The two observed script variants disagree, so the choice is
// configuration, not code (see DESIGN.md).
type EmptyReportPolicy string

const (
	// EmptyReportPass treats a missing or empty issue list as zero
	// issues.
	EmptyReportPass EmptyReportPolicy = "pass"
	// EmptyReportError treats a missing or empty report as a gate
	// error.
	EmptyReportError EmptyReportPolicy = "error"
)

// Issue is one finding in the auditor's JSON report. Only the message
// is required; the rest is context for the operator.
type Issue struct {
	Code     string `json:"code,omitempty"`
	Message  string `json:"message"`
	Context  string `json:"context,omitempty"`
	Selector string `json:"selector,omitempty"`
}

// report is the auditor's top-level document.
type report struct {
	Issues []Issue `json:"issues"`
}

// Config describes one audit run.
type Config struct {
	// ServerCmd starts the application instance (e.g. manage.py
	// runserver).
	ServerCmd toolrunner.Command
	// BaseURL is where the instance answers once ready.
	BaseURL string
	// Routes are probed and audited, each relative to BaseURL.
	Routes []string
	// AuditorCmd is the auditor invocation; the route URL is appended
	// as its final argument. Its stdout must be the JSON report.
	AuditorCmd toolrunner.Command
	// WarmupDelay is waited once after starting the server before the
	// first readiness attempt.
	WarmupDelay time.Duration
	// ReadyAttempts bounds the readiness polling loop.
	ReadyAttempts int
	// ReadyDelay separates readiness attempts.
	ReadyDelay time.Duration
	// EmptyReport selects the policy for absent/empty reports.
	EmptyReport EmptyReportPolicy
}

// Gate is the accessibility gate. It satisfies gate.Gate.
type Gate struct {
	cfg     Config
	runner  toolrunner.Runner
	starter toolrunner.Starter
	client  *http.Client
	logger  *logging.Logger
}

// New creates the accessibility gate. runner invokes the auditor,
// starter launches the background server instance.
func New(cfg Config, runner toolrunner.Runner, starter toolrunner.Starter, logger *logging.Logger) *Gate {
	if logger == nil {
		logger = logging.NopLogger()
	}
	if cfg.ReadyAttempts <= 0 {
		cfg.ReadyAttempts = 10
	}
	if cfg.ReadyDelay <= 0 {
		cfg.ReadyDelay = time.Second
	}
	if cfg.EmptyReport == "" {
		cfg.EmptyReport = EmptyReportPass
	}
	return &Gate{
		cfg:     cfg,
		runner:  runner,
		starter: starter,
		client:  &http.Client{Timeout: 10 * time.Second},
		logger:  logger.WithGate("accessibility"),
	}
}

// Name implements gate.Gate.
func (g *Gate) Name() string { return "accessibility" }

// Run implements gate.Gate. The server is stopped on every exit path.
func (g *Gate) Run(ctx context.Context) gate.Result {
	start := time.Now()

	handle, err := g.starter.Start(ctx, g.cfg.ServerCmd)
	if err != nil {
		g.logger.Error("could not start server", "error", err)
		return gate.Result{Gate: g.Name(), Status: gate.StatusErrored, Err: err, Duration: time.Since(start)}
	}
	defer func() {
		if err := handle.Stop(); err != nil {
			g.logger.Warn("server did not stop cleanly", "error", err)
		}
	}()

	if g.cfg.WarmupDelay > 0 {
		select {
		case <-time.After(g.cfg.WarmupDelay):
		case <-ctx.Done():
			return gate.Result{Gate: g.Name(), Status: gate.StatusErrored, Err: ctx.Err(), Duration: time.Since(start)}
		}
	}

	if err := g.waitReady(ctx); err != nil {
		g.logger.Error("server never became ready", "error", err)
		return gate.Result{
			Gate:     g.Name(),
			Status:   gate.StatusErrored,
			Err:      err,
			Output:   handle.Output(),
			Duration: time.Since(start),
		}
	}

	total := 0
	var failures []string
	for _, route := range g.cfg.Routes {
		count, err := g.auditRoute(ctx, route)
		if err != nil {
			g.logger.Error("audit failed for route", "route", route, "error", err)
			return gate.Result{
				Gate:     g.Name(),
				Status:   gate.StatusErrored,
				Err:      fmt.Errorf("route %s: %w", route, err),
				Output:   handle.Output(),
				Duration: time.Since(start),
			}
		}
		total += count
		if count > 0 {
			failures = append(failures, fmt.Sprintf("%s: %d issue(s)", route, count))
		}
	}

	if total > 0 {
		detail := fmt.Sprintf("%d accessibility issue(s): %s", total, strings.Join(failures, ", "))
		g.logger.Warn("accessibility issues found", "count", total)
		return gate.Result{Gate: g.Name(), Status: gate.StatusFailed, Detail: detail, Duration: time.Since(start)}
	}

	g.logger.Info("no accessibility issues", "routes", len(g.cfg.Routes))
	return gate.Result{
		Gate:     g.Name(),
		Status:   gate.StatusPassed,
		Detail:   fmt.Sprintf("%d route(s) clean", len(g.cfg.Routes)),
		Duration: time.Since(start),
	}
}

// waitReady polls the base URL until the server answers or the attempt
// budget runs out. Any HTTP response counts as ready; error pages still
// mean the process is serving.
func (g *Gate) waitReady(ctx context.Context) error {
	var lastErr error
	for attempt := 0; attempt < g.cfg.ReadyAttempts; attempt++ {
		if attempt > 0 {
			select {
			case <-time.After(g.cfg.ReadyDelay):
			case <-ctx.Done():
				return ctx.Err()
			}
		}
		req, err := http.NewRequestWithContext(ctx, http.MethodGet, g.cfg.BaseURL, nil)
		if err != nil {
			return fmt.Errorf("audit: building readiness request: %w", err)
		}
		resp, err := g.client.Do(req)
		if err != nil {
			lastErr = err
			g.logger.Debug("readiness attempt failed", "attempt", attempt+1, "error", err)
			continue
		}
		resp.Body.Close()
		return nil
	}
	return fmt.Errorf("%w after %d attempts: %v", ErrServerNotReady, g.cfg.ReadyAttempts, lastErr)
}

// auditRoute probes the route, runs the auditor against it, and returns
// the number of issues in the parsed report.
func (g *Gate) auditRoute(ctx context.Context, route string) (int, error) {
	url := strings.TrimRight(g.cfg.BaseURL, "/") + "/" + strings.TrimLeft(route, "/")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, url, nil)
	if err != nil {
		return 0, fmt.Errorf("building probe request: %w", err)
	}
	resp, err := g.client.Do(req)
	if err != nil {
		return 0, fmt.Errorf("probing route: %w", err)
	}
	resp.Body.Close()
	if resp.StatusCode >= 400 {
		return 0, fmt.Errorf("route answered %d", resp.StatusCode)
	}

	cmd := g.cfg.AuditorCmd
	cmd.Args = append(append([]string{}, cmd.Args...), url)
	res, err := g.runner.Run(ctx, cmd)
	if err != nil {
		return 0, fmt.Errorf("running auditor: %w", err)
	}

	return g.countIssues(res.Output)
}

// countIssues parses the auditor's JSON report. Empty or absent data is
// resolved by the configured policy; malformed data is always an error.
func (g *Gate) countIssues(output []byte) (int, error) {
	trimmed := strings.TrimSpace(string(output))
	if trimmed == "" {
		if g.cfg.EmptyReport == EmptyReportError {
			return 0, errors.New("auditor produced no report")
		}
		return 0, nil
	}

	var rep report
	if err := json.Unmarshal([]byte(trimmed), &rep); err != nil {
		// Some auditor versions emit a bare issue array.
		var issues []Issue
		if err2 := json.Unmarshal([]byte(trimmed), &issues); err2 != nil {
			return 0, fmt.Errorf("malformed auditor report: %w", err)
		}
		rep.Issues = issues
	}

	if len(rep.Issues) == 0 && g.cfg.EmptyReport == EmptyReportError {
		return 0, errors.New("auditor report contains no issue list")
	}
	return len(rep.Issues), nil
}
