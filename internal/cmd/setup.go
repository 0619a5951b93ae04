package cmd

import (
	"fmt"
	"os"

	"github.com/shipgate/shipgate/internal/audit"
	"github.com/shipgate/shipgate/internal/config"
	"github.com/shipgate/shipgate/internal/e2e"
	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/release"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// runEnv bundles everything a command needs after config bootstrap.
type runEnv struct {
	cfg     *config.Config
	logger  *logging.Logger
	runner  *toolrunner.ExecRunner
	workDir string
}

// newRunEnv loads config and wires the logger and tool runner.
func newRunEnv() (*runEnv, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	logger, err := logging.New(cfg.Logging.Dir, cfg.Logging.Level)
	if err != nil {
		return nil, fmt.Errorf("failed to create logger: %w", err)
	}

	workDir := cfg.Product.WorkDir
	if workDir == "" {
		workDir, err = os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
	}

	return &runEnv{
		cfg:     cfg,
		logger:  logger,
		runner:  toolrunner.NewExecRunner(logger),
		workDir: workDir,
	}, nil
}

// close releases the environment's resources.
func (e *runEnv) close() {
	_ = e.logger.Close()
}

// command turns a configured argv into a toolrunner invocation rooted at
// the working tree.
func (e *runEnv) command(name string, argv []string) toolrunner.Command {
	return toolrunner.Command{
		Name: name,
		Args: argv,
		Dir:  e.workDir,
	}
}

// buildGates assembles the ordered validation gates: lint, unit tests,
// coverage, accessibility, and (when enabled) the end-to-end suite.
func (e *runEnv) buildGates() []gate.Gate {
	g := e.cfg.Gates

	gates := []gate.Gate{
		gate.NewCommand("lint", e.command("lint", g.Lint), e.runner, e.logger),
		gate.NewUnitTest(e.command("unit-tests", g.Tests), g.TestReport, e.runner, e.logger),
		gate.NewCoverage(
			e.command("coverage", g.CoverageRun),
			e.command("coverage-report", g.CoverageReport),
			g.CoverageMinPercent,
			e.runner,
			e.logger,
		),
		e.buildAuditGate(),
	}

	if g.E2EEnabled {
		gates = append(gates, e2e.NewGate(e.command(e2e.GateName, g.E2E), g.E2EHeadless, e.runner, e.logger))
	}
	return gates
}

// buildAuditGate assembles the accessibility gate from config.
func (e *runEnv) buildAuditGate() gate.Gate {
	a := e.cfg.Audit
	return audit.New(audit.Config{
		ServerCmd:     e.command("dev-server", a.Server),
		BaseURL:       a.BaseURL,
		Routes:        a.Routes,
		AuditorCmd:    e.command("auditor", a.Auditor),
		WarmupDelay:   a.WarmupDelay(),
		ReadyAttempts: a.ReadyAttempts,
		ReadyDelay:    a.ReadyDelay(),
		EmptyReport:   audit.EmptyReportPolicy(a.EmptyReportPolicy),
	}, e.runner, e.runner, e.logger)
}

// buildGitClient selects the configured version-control backend.
func (e *runEnv) buildGitClient() (release.GitClient, error) {
	r := e.cfg.Release
	switch r.GitBackend {
	case "gogit":
		return release.OpenGoGit(e.workDir, r.AuthorName, r.AuthorEmail)
	default:
		return release.NewCLIGit(e.workDir, e.runner), nil
	}
}
