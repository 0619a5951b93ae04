package gate

import (
	"context"
	"time"

	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// CommandGate is a gate whose verdict is exactly its collaborator's
// exit status: zero passes, anything else fails. The lint gate and the
// browser E2E gate are plain CommandGates.
type CommandGate struct {
	name   string
	cmd    toolrunner.Command
	runner toolrunner.Runner
	logger *logging.Logger
}

// NewCommand creates a gate that runs cmd via runner and maps its exit
// status to a verdict.
func NewCommand(name string, cmd toolrunner.Command, runner toolrunner.Runner, logger *logging.Logger) *CommandGate {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &CommandGate{name: name, cmd: cmd, runner: runner, logger: logger.WithGate(name)}
}

// Name implements Gate.
func (g *CommandGate) Name() string { return g.name }

// Run implements Gate.
func (g *CommandGate) Run(ctx context.Context) Result {
	start := time.Now()
	res, err := g.runner.Run(ctx, g.cmd)
	if err != nil {
		g.logger.Error("gate could not run", "error", err)
		return Result{Gate: g.name, Status: StatusErrored, Err: err, Duration: time.Since(start)}
	}

	if !res.Success() {
		g.logger.Warn("gate failed", "exit_code", res.ExitCode)
		return Result{
			Gate:     g.name,
			Status:   StatusFailed,
			Output:   res.Output,
			Duration: res.Duration,
		}
	}

	g.logger.Info("gate passed", "duration", res.Duration)
	return Result{Gate: g.name, Status: StatusPassed, Output: res.Output, Duration: res.Duration}
}
