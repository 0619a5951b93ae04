package gate

import (
	"context"
	"fmt"
	"regexp"
	"strconv"
	"time"

	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// totalLineRe matches the TOTAL row of a coverage report, e.g.
// "TOTAL   412   12   97%".
var totalLineRe = regexp.MustCompile(`(?m)^TOTAL\s+.*?(\d+)%\s*$`)

// CoverageGate runs coverage measurement and its report command. The
// exit status decides the verdict; optionally a minimum total-percent
// threshold is enforced on top of it.
type CoverageGate struct {
	name       string
	runCmd     toolrunner.Command
	reportCmd  toolrunner.Command
	minPercent int // 0 disables the threshold
	runner     toolrunner.Runner
	logger     *logging.Logger
}

// NewCoverage creates the coverage gate. reportCmd may be the zero
// Command to skip the separate report step. minPercent of 0 leaves the
// exit status as the only signal.
func NewCoverage(runCmd, reportCmd toolrunner.Command, minPercent int, runner toolrunner.Runner, logger *logging.Logger) *CoverageGate {
	if logger == nil {
		logger = logging.NopLogger()
	}
	const name = "coverage"
	return &CoverageGate{
		name:       name,
		runCmd:     runCmd,
		reportCmd:  reportCmd,
		minPercent: minPercent,
		runner:     runner,
		logger:     logger.WithGate(name),
	}
}

// Name implements Gate.
func (g *CoverageGate) Name() string { return g.name }

// Run implements Gate.
func (g *CoverageGate) Run(ctx context.Context) Result {
	start := time.Now()

	res, err := g.runner.Run(ctx, g.runCmd)
	if err != nil {
		g.logger.Error("coverage run could not start", "error", err)
		return Result{Gate: g.name, Status: StatusErrored, Err: err, Duration: time.Since(start)}
	}
	if !res.Success() {
		g.logger.Warn("coverage run failed", "exit_code", res.ExitCode)
		return Result{Gate: g.name, Status: StatusFailed, Output: res.Output, Duration: time.Since(start)}
	}

	output := res.Output
	if g.reportCmd.Name != "" || len(g.reportCmd.Args) > 0 {
		rep, err := g.runner.Run(ctx, g.reportCmd)
		if err != nil {
			g.logger.Error("coverage report could not start", "error", err)
			return Result{Gate: g.name, Status: StatusErrored, Err: err, Duration: time.Since(start)}
		}
		output = rep.Output
		if !rep.Success() {
			g.logger.Warn("coverage report failed", "exit_code", rep.ExitCode)
			return Result{Gate: g.name, Status: StatusFailed, Output: output, Duration: time.Since(start)}
		}
	}

	percent, found := totalPercent(output)
	detail := ""
	if found {
		detail = fmt.Sprintf("total coverage %d%%", percent)
	}

	if g.minPercent > 0 {
		if !found {
			err := fmt.Errorf("coverage threshold set but no TOTAL line in report output")
			g.logger.Error("coverage threshold unverifiable", "error", err)
			return Result{Gate: g.name, Status: StatusErrored, Err: err, Output: output, Duration: time.Since(start)}
		}
		if percent < g.minPercent {
			g.logger.Warn("coverage below threshold", "percent", percent, "min", g.minPercent)
			return Result{
				Gate:     g.name,
				Status:   StatusFailed,
				Detail:   fmt.Sprintf("total coverage %d%% below required %d%%", percent, g.minPercent),
				Output:   output,
				Duration: time.Since(start),
			}
		}
	}

	g.logger.Info("coverage passed", "detail", detail)
	return Result{Gate: g.name, Status: StatusPassed, Detail: detail, Output: output, Duration: time.Since(start)}
}

// totalPercent extracts the percentage from the report's TOTAL row.
func totalPercent(output []byte) (int, bool) {
	m := totalLineRe.FindSubmatch(output)
	if m == nil {
		return 0, false
	}
	n, err := strconv.Atoi(string(m[1]))
	if err != nil {
		return 0, false
	}
	return n, true
}
