package gate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"time"

	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// testReport mirrors the JSON report the application's test runner
// writes next to the working tree (result_test_auto.json). Only the
// summary is consumed; the verdict still comes from the exit status.
type testReport struct {
	Summary struct {
		Total       int    `json:"total"`
		Passed      int    `json:"passed"`
		Failed      int    `json:"failed"`
		Errors      int    `json:"errors"`
		Skipped     int    `json:"skipped"`
		SuccessRate string `json:"success_rate"`
	} `json:"summary"`
}

// UnitTestGate runs the unit test suite. If the runner leaves a JSON
// report behind, its summary counts are surfaced in the result detail;
// a missing or unreadable report is ignored because the exit status is
// the authoritative signal.
type UnitTestGate struct {
	name       string
	cmd        toolrunner.Command
	reportPath string
	runner     toolrunner.Runner
	logger     *logging.Logger
}

// NewUnitTest creates the unit test gate. reportPath may be empty to
// disable report summary extraction; relative paths are resolved
// against the command's working directory.
func NewUnitTest(cmd toolrunner.Command, reportPath string, runner toolrunner.Runner, logger *logging.Logger) *UnitTestGate {
	if logger == nil {
		logger = logging.NopLogger()
	}
	const name = "unit-tests"
	return &UnitTestGate{
		name:       name,
		cmd:        cmd,
		reportPath: reportPath,
		runner:     runner,
		logger:     logger.WithGate(name),
	}
}

// Name implements Gate.
func (g *UnitTestGate) Name() string { return g.name }

// Run implements Gate.
func (g *UnitTestGate) Run(ctx context.Context) Result {
	start := time.Now()
	res, err := g.runner.Run(ctx, g.cmd)
	if err != nil {
		g.logger.Error("gate could not run", "error", err)
		return Result{Gate: g.name, Status: StatusErrored, Err: err, Duration: time.Since(start)}
	}

	detail := g.reportDetail()
	status := StatusPassed
	if !res.Success() {
		status = StatusFailed
		g.logger.Warn("unit tests failed", "exit_code", res.ExitCode, "summary", detail)
	} else {
		g.logger.Info("unit tests passed", "summary", detail)
	}

	return Result{
		Gate:     g.name,
		Status:   status,
		Detail:   detail,
		Output:   res.Output,
		Duration: res.Duration,
	}
}

// reportDetail reads the test runner's JSON report and condenses its
// summary. Any problem reading or parsing it yields an empty detail.
func (g *UnitTestGate) reportDetail() string {
	if g.reportPath == "" {
		return ""
	}
	path := g.reportPath
	if !filepath.IsAbs(path) && g.cmd.Dir != "" {
		path = filepath.Join(g.cmd.Dir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		g.logger.Debug("no test report found", "path", path)
		return ""
	}
	var report testReport
	if err := json.Unmarshal(data, &report); err != nil {
		g.logger.Debug("unreadable test report", "path", path, "error", err)
		return ""
	}
	s := report.Summary
	return fmt.Sprintf("%d tests: %d passed, %d failed, %d errors, %d skipped",
		s.Total, s.Passed, s.Failed, s.Errors, s.Skipped)
}
