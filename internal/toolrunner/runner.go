// Package toolrunner wraps invocation of external collaborator tools.
// Every tool the pipeline drives (linter, test runner, coverage tool,
// accessibility auditor, git, the application's dev server) is reached
// through this package, so that callers observe only an exit status and
// captured output, and so that tests can substitute fakes without
// spawning real processes.
package toolrunner

import (
	"context"
	"errors"
	"fmt"
	"os"
	"os/exec"
	"time"

	"github.com/shipgate/shipgate/internal/logging"
)

// Command describes a single external tool invocation.
type Command struct {
	// Name identifies the invocation in logs and reports (e.g. "flake8").
	Name string
	// Path is the executable to run. If empty, the first Args element is
	// used as the executable.
	Path string
	// Args are the arguments passed to the executable.
	Args []string
	// Dir is the working directory for the invocation. Empty means the
	// current process working directory.
	Dir string
	// Env is appended to the current process environment.
	Env []string
}

func (c Command) executable() string {
	if c.Path != "" {
		return c.Path
	}
	if len(c.Args) > 0 {
		return c.Args[0]
	}
	return ""
}

func (c Command) argv() []string {
	if c.Path != "" {
		return c.Args
	}
	if len(c.Args) > 1 {
		return c.Args[1:]
	}
	return nil
}

// String renders the invocation the way an operator would type it.
func (c Command) String() string {
	out := c.executable()
	for _, arg := range c.argv() {
		out += " " + arg
	}
	return out
}

// Result is the observable outcome of a finished invocation. The exit
// status is the only signal the pipeline makes decisions on; Output is
// surfaced to the operator but never parsed here.
type Result struct {
	ExitCode int
	Output   []byte
	Duration time.Duration
}

// Success reports whether the tool signalled success.
func (r Result) Success() bool {
	return r.ExitCode == 0
}

// Runner runs external tools to completion.
//
// Run returns an error only when the tool could not be invoked at all
// (missing executable, cancelled context). A tool that starts and exits
// non-zero is a normal Result, not an error: interpreting the exit
// status is the caller's decision.
type Runner interface {
	Run(ctx context.Context, cmd Command) (Result, error)
}

// Starter starts external tools as background processes.
type Starter interface {
	Start(ctx context.Context, cmd Command) (Handle, error)
}

// ErrNoExecutable is returned when a Command names nothing to run.
var ErrNoExecutable = errors.New("toolrunner: command has no executable")

// ExecRunner invokes tools via os/exec. It is the only production
// implementation; tests use fakes.
type ExecRunner struct {
	logger *logging.Logger
}

// NewExecRunner creates an ExecRunner. A nil logger disables logging.
func NewExecRunner(logger *logging.Logger) *ExecRunner {
	if logger == nil {
		logger = logging.NopLogger()
	}
	return &ExecRunner{logger: logger}
}

// Run executes the command and blocks until it exits, capturing combined
// stdout and stderr.
func (r *ExecRunner) Run(ctx context.Context, cmd Command) (Result, error) {
	exe := cmd.executable()
	if exe == "" {
		return Result{}, ErrNoExecutable
	}

	ec := exec.CommandContext(ctx, exe, cmd.argv()...)
	ec.Dir = cmd.Dir
	if len(cmd.Env) > 0 {
		ec.Env = append(os.Environ(), cmd.Env...)
	}

	r.logger.Debug("running tool", "name", cmd.Name, "command", cmd.String(), "dir", cmd.Dir)

	start := time.Now()
	output, err := ec.CombinedOutput()
	elapsed := time.Since(start)

	if err != nil {
		var exitErr *exec.ExitError
		if errors.As(err, &exitErr) {
			// The tool ran and failed: that is a result, not an error.
			res := Result{ExitCode: exitErr.ExitCode(), Output: output, Duration: elapsed}
			r.logger.Debug("tool exited non-zero", "name", cmd.Name, "exit_code", res.ExitCode)
			return res, nil
		}
		if ctxErr := ctx.Err(); ctxErr != nil {
			return Result{}, fmt.Errorf("toolrunner: %s interrupted: %w", cmd.Name, ctxErr)
		}
		return Result{}, fmt.Errorf("toolrunner: failed to run %s: %w", cmd.Name, err)
	}

	r.logger.Debug("tool succeeded", "name", cmd.Name, "duration", elapsed)
	return Result{ExitCode: 0, Output: output, Duration: elapsed}, nil
}
