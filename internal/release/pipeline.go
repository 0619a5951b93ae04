package release

import (
	"context"
	"errors"
	"fmt"
	"path/filepath"
	"time"

	"github.com/shipgate/shipgate/internal/gate"
	"github.com/shipgate/shipgate/internal/logging"
)

// MutationResult records one attempted mutation step. Mutations are
// irreversible: a failed step halts the sequence but earlier steps are
// NOT compensated. Noticing partial completion is the operator's
// responsibility.
type MutationResult struct {
	// Step is the mutation's identity: stamp-version, commit, tag,
	// push or package.
	Step string
	// Target is the file path, ref or artifact the step acted on.
	Target string
	// Err is set when the step failed.
	Err error
	// Duration is how long the step took.
	Duration time.Duration
}

// Succeeded reports whether the step completed.
func (m MutationResult) Succeeded() bool { return m.Err == nil }

// Outcome aggregates a full pipeline run.
type Outcome struct {
	Version   string
	Gates     []gate.Result
	Mutations []MutationResult
	// AbortedAt names the gate or mutation step that stopped the run;
	// empty when the pipeline completed.
	AbortedAt string
	// ArchivePath is the packaged artifact, set on completion.
	ArchivePath string
}

// Completed reports whether every gate passed and every mutation
// succeeded.
func (o Outcome) Completed() bool { return o.AbortedAt == "" }

// Config wires a Pipeline.
type Config struct {
	// Version is the candidate release version.
	Version string
	// WorkDir is the collaborator application's working tree.
	WorkDir string
	// SettingsPath is the persisted settings file holding the VERSION
	// line, relative to WorkDir unless absolute.
	SettingsPath string
	// Product names the packaged artifact.
	Product string
	// Remote is the git remote the tag is pushed to.
	Remote string
	// StampPolicy selects lenient or strict stamping.
	StampPolicy StampPolicy
	// Gates are run in order before any mutation. Required.
	Gates []gate.Gate
	// Git applies the version-control mutations. Required.
	Git GitClient
}

// Pipeline validates a release candidate and, only when every gate
// passes, applies the mutation sequence. Execution is strictly
// sequential and single-threaded.
type Pipeline struct {
	cfg      Config
	logger   *logging.Logger
	observer gate.Observer
	onStep   func(res MutationResult)
}

// Option customizes a Pipeline.
type Option func(*Pipeline)

// WithLogger attaches a logger.
func WithLogger(logger *logging.Logger) Option {
	return func(p *Pipeline) {
		if logger != nil {
			p.logger = logger
		}
	}
}

// WithGateObserver registers callbacks fired as gates run.
func WithGateObserver(obs gate.Observer) Option {
	return func(p *Pipeline) { p.observer = obs }
}

// WithMutationObserver registers a callback fired after each mutation
// step finishes.
func WithMutationObserver(fn func(res MutationResult)) Option {
	return func(p *Pipeline) { p.onStep = fn }
}

// New creates a Pipeline.
func New(cfg Config, opts ...Option) (*Pipeline, error) {
	if err := ValidateVersion(cfg.Version, false); err != nil {
		return nil, err
	}
	if cfg.WorkDir == "" {
		return nil, errors.New("release: WorkDir is required")
	}
	if len(cfg.Gates) == 0 {
		return nil, errors.New("release: at least one gate is required")
	}
	if cfg.Git == nil {
		return nil, errors.New("release: GitClient is required")
	}
	if cfg.Remote == "" {
		cfg.Remote = "origin"
	}
	if cfg.StampPolicy == "" {
		cfg.StampPolicy = StampLenient
	}

	p := &Pipeline{
		cfg:    cfg,
		logger: logging.NopLogger(),
	}
	for _, opt := range opts {
		opt(p)
	}
	p.logger = p.logger.WithVersion(cfg.Version)
	return p, nil
}

// Run executes gates then mutations. The first failing gate aborts the
// run before any mutation; the first failing mutation halts the
// remaining steps with no rollback of earlier ones.
func (p *Pipeline) Run(ctx context.Context) Outcome {
	outcome := Outcome{Version: p.cfg.Version}

	p.logger.Info("validating release candidate", "gates", len(p.cfg.Gates))
	results, ok := gate.RunFailFast(ctx, p.cfg.Gates, p.observer)
	outcome.Gates = results
	if !ok {
		failed := results[len(results)-1]
		outcome.AbortedAt = failed.Gate
		p.logger.Error("gate failed, aborting release", "gate", failed.Gate, "status", failed.Status.String())
		return outcome
	}

	p.logger.Info("all gates passed, applying release mutations")
	for _, step := range p.mutationSteps() {
		res := p.applyStep(ctx, step, &outcome)
		outcome.Mutations = append(outcome.Mutations, res)
		if p.onStep != nil {
			p.onStep(res)
		}
		if res.Err != nil {
			outcome.AbortedAt = res.Step
			p.logger.Error("mutation step failed, halting",
				"step", res.Step, "target", res.Target, "error", res.Err)
			return outcome
		}
	}

	p.logger.Info("release completed", "archive", outcome.ArchivePath)
	return outcome
}

// mutationStep is one named, ordered side effect.
type mutationStep struct {
	name   string
	target string
	apply  func(ctx context.Context, outcome *Outcome) error
}

func (p *Pipeline) mutationSteps() []mutationStep {
	version := p.cfg.Version
	settings := p.settingsPath()
	tag := TagName(version)

	return []mutationStep{
		{
			name:   "stamp-version",
			target: settings,
			apply: func(_ context.Context, _ *Outcome) error {
				return Stamp(settings, version, p.cfg.StampPolicy)
			},
		},
		{
			name:   "commit",
			target: p.cfg.SettingsPath,
			apply: func(ctx context.Context, _ *Outcome) error {
				if err := p.cfg.Git.Stage(ctx, p.cfg.SettingsPath); err != nil {
					return err
				}
				return p.cfg.Git.Commit(ctx, CommitMessage(version))
			},
		},
		{
			name:   "tag",
			target: tag,
			apply: func(ctx context.Context, _ *Outcome) error {
				return p.cfg.Git.TagAnnotated(ctx, tag, TagMessage(version))
			},
		},
		{
			name:   "push",
			target: p.cfg.Remote + "/" + tag,
			apply: func(ctx context.Context, _ *Outcome) error {
				return p.cfg.Git.PushTag(ctx, p.cfg.Remote, tag)
			},
		},
		{
			name:   "package",
			target: ArchiveName(p.cfg.Product, version),
			apply: func(_ context.Context, outcome *Outcome) error {
				path, err := Package(p.cfg.WorkDir, p.cfg.Product, version)
				if err != nil {
					return err
				}
				outcome.ArchivePath = path
				return nil
			},
		},
	}
}

func (p *Pipeline) applyStep(ctx context.Context, step mutationStep, outcome *Outcome) MutationResult {
	logger := p.logger.WithStep(step.name)
	start := time.Now()

	if err := ctx.Err(); err != nil {
		return MutationResult{Step: step.name, Target: step.target, Err: err}
	}

	logger.Debug("applying mutation step", "target", step.target)
	err := step.apply(ctx, outcome)
	if err != nil {
		err = fmt.Errorf("%s: %w", step.name, err)
	}
	return MutationResult{
		Step:     step.name,
		Target:   step.target,
		Err:      err,
		Duration: time.Since(start),
	}
}

func (p *Pipeline) settingsPath() string {
	if p.cfg.SettingsPath == "" || filepath.IsAbs(p.cfg.SettingsPath) {
		return p.cfg.SettingsPath
	}
	return filepath.Join(p.cfg.WorkDir, p.cfg.SettingsPath)
}
