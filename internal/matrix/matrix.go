// Package matrix runs the lint/test/coverage gate subset across a
// Cartesian product of interpreter and framework versions. Unlike the
// release pipeline, the matrix isolates failures: one combination
// failing never stops the next from running.
package matrix

import (
	"context"
	"fmt"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/logging"
	"github.com/shipgate/shipgate/internal/toolrunner"
)

// Reason tags why a combination failed.
type Reason string

// Failure reasons, one per stage of a combination run.
const (
	ReasonInstallation Reason = "Installation"
	ReasonLinter       Reason = "Linter"
	ReasonTests        Reason = "Tests"
	ReasonCoverage     Reason = "Coverage"
)

// Combination is one pairing of interpreter and framework version.
type Combination struct {
	Interpreter string
	Framework   string
}

// String renders the combination for reports, e.g. "python3.11 / Django 5.0".
func (c Combination) String() string {
	return fmt.Sprintf("python%s / %s", c.Interpreter, c.Framework)
}

// Outcome is the recorded result for one combination.
type Outcome struct {
	Combination Combination
	Passed      bool
	// Reason is set when Passed is false.
	Reason Reason
	// Detail carries the failing stage's condensed output.
	Detail   string
	Duration time.Duration
}

// Summary aggregates a full matrix run.
type Summary struct {
	Total  int
	Passed int
	Failed int
}

// Config describes the matrix.
type Config struct {
	// WorkDir is the collaborator application's working tree.
	WorkDir string
	// Interpreters are interpreter versions, e.g. "3.10".
	Interpreters []string
	// Frameworks are framework versions, e.g. "5.0".
	Frameworks []string
	// FrameworkPackage is the dependency pinned per combination,
	// e.g. "Django".
	FrameworkPackage string
	// Requirements are manifest lines shared by every combination.
	Requirements []string
	// Commands are the per-stage argv templates. The placeholders
	// {python} and {manifest} are substituted before running.
	Commands Commands
}

// Commands holds the argv templates for the four stages of one
// combination.
type Commands struct {
	Install  []string
	Lint     []string
	Tests    []string
	Coverage []string
}

// Runner executes the matrix.
type Runner struct {
	cfg    Config
	tools  toolrunner.Runner
	logger *logging.Logger
	// observer receives per-gate progress for console reporting.
	observer gate.Observer
}

// Option customizes a Runner.
type Option func(*Runner)

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(r *Runner) {
		if logger != nil {
			r.logger = logger
		}
	}
}

// WithGateObserver registers callbacks fired as each combination's
// gates run.
func WithGateObserver(obs gate.Observer) Option {
	return func(r *Runner) { r.observer = obs }
}

// New creates a matrix Runner.
func New(cfg Config, tools toolrunner.Runner, opts ...Option) (*Runner, error) {
	if len(cfg.Interpreters) == 0 || len(cfg.Frameworks) == 0 {
		return nil, fmt.Errorf("matrix: both axis lists must be non-empty")
	}
	if cfg.FrameworkPackage == "" {
		return nil, fmt.Errorf("matrix: FrameworkPackage is required")
	}
	if tools == nil {
		return nil, fmt.Errorf("matrix: tool runner is required")
	}
	r := &Runner{cfg: cfg, tools: tools, logger: logging.NopLogger()}
	for _, opt := range opts {
		opt(r)
	}
	return r, nil
}

// Combinations returns the full Cartesian product in axis order.
func (r *Runner) Combinations() []Combination {
	combos := make([]Combination, 0, len(r.cfg.Interpreters)*len(r.cfg.Frameworks))
	for _, py := range r.cfg.Interpreters {
		for _, fw := range r.cfg.Frameworks {
			combos = append(combos, Combination{Interpreter: py, Framework: fw})
		}
	}
	return combos
}

// Run evaluates every combination and returns one outcome per pairing.
// A failing combination is recorded and the loop continues; the only
// errors returned are environmental (e.g. unable to write the
// manifest for any combination at all).
func (r *Runner) Run(ctx context.Context) ([]Outcome, error) {
	combos := r.Combinations()
	outcomes := make([]Outcome, 0, len(combos))

	for _, combo := range combos {
		if err := ctx.Err(); err != nil {
			return outcomes, err
		}
		outcomes = append(outcomes, r.runCombination(ctx, combo))
	}
	return outcomes, nil
}

// runCombination materializes the pinned manifest and runs the install,
// lint, tests and coverage stages fail-fast.
func (r *Runner) runCombination(ctx context.Context, combo Combination) Outcome {
	logger := r.logger.With("interpreter", combo.Interpreter, "framework", combo.Framework)
	start := time.Now()

	manifest, err := r.writeManifest(combo)
	if err != nil {
		logger.Error("could not materialize manifest", "error", err)
		return Outcome{
			Combination: combo,
			Reason:      ReasonInstallation,
			Detail:      err.Error(),
			Duration:    time.Since(start),
		}
	}
	defer os.Remove(manifest)

	gates := r.combinationGates(combo, manifest)
	results, ok := gate.RunFailFast(ctx, gates, r.observer)
	outcome := Outcome{
		Combination: combo,
		Passed:      ok,
		Duration:    time.Since(start),
	}
	if !ok {
		last := results[len(results)-1]
		outcome.Reason = reasonFor(last.Gate)
		outcome.Detail = failureDetail(last)
		logger.Warn("combination failed", "stage", last.Gate)
	} else {
		logger.Info("combination passed")
	}
	return outcome
}

// writeManifest writes the temporary dependency manifest pinned to the
// combination's framework version.
func (r *Runner) writeManifest(combo Combination) (string, error) {
	lines := make([]string, 0, len(r.cfg.Requirements)+1)
	lines = append(lines, fmt.Sprintf("%s==%s", r.cfg.FrameworkPackage, combo.Framework))
	lines = append(lines, r.cfg.Requirements...)

	path := filepath.Join(r.cfg.WorkDir, fmt.Sprintf(".matrix-requirements-%s-%s.txt",
		combo.Interpreter, combo.Framework))
	if err := os.WriteFile(path, []byte(strings.Join(lines, "\n")+"\n"), 0644); err != nil {
		return "", fmt.Errorf("matrix: writing manifest: %w", err)
	}
	return path, nil
}

func (r *Runner) combinationGates(combo Combination, manifest string) []gate.Gate {
	build := func(name string, template []string) gate.Gate {
		cmd := toolrunner.Command{
			Name: name,
			Args: expand(template, combo, manifest),
			Dir:  r.cfg.WorkDir,
		}
		return gate.NewCommand(name, cmd, r.tools, r.logger)
	}
	return []gate.Gate{
		build("install", r.cfg.Commands.Install),
		build("lint", r.cfg.Commands.Lint),
		build("tests", r.cfg.Commands.Tests),
		build("coverage", r.cfg.Commands.Coverage),
	}
}

// expand substitutes the {python} and {manifest} placeholders in an
// argv template.
func expand(template []string, combo Combination, manifest string) []string {
	out := make([]string, len(template))
	for i, arg := range template {
		arg = strings.ReplaceAll(arg, "{python}", "python"+combo.Interpreter)
		arg = strings.ReplaceAll(arg, "{manifest}", manifest)
		out[i] = arg
	}
	return out
}

// failureDetail condenses a failed gate result to one report line.
func failureDetail(res gate.Result) string {
	if res.Err != nil {
		return res.Err.Error()
	}
	if res.Detail != "" {
		return res.Detail
	}
	lines := strings.Split(strings.TrimSpace(string(res.Output)), "\n")
	if len(lines) > 0 && lines[len(lines)-1] != "" {
		return lines[len(lines)-1]
	}
	return ""
}

func reasonFor(stage string) Reason {
	switch stage {
	case "install":
		return ReasonInstallation
	case "lint":
		return ReasonLinter
	case "tests":
		return ReasonTests
	case "coverage":
		return ReasonCoverage
	default:
		return Reason(stage)
	}
}

// Summarize reduces outcomes to aggregate counts.
func Summarize(outcomes []Outcome) Summary {
	s := Summary{Total: len(outcomes)}
	for _, o := range outcomes {
		if o.Passed {
			s.Passed++
		} else {
			s.Failed++
		}
	}
	return s
}
