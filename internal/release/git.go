package release

import (
	"context"
	"fmt"

	"github.com/shipgate/shipgate/internal/toolrunner"
)

// GitClient covers the version-control operations the mutation
// sequencer needs. The abstraction exists so tests can record calls
// without a repository, and so an in-process implementation can serve
// hosts without a git binary.
type GitClient interface {
	// Stage adds the given path to the index.
	Stage(ctx context.Context, path string) error

	// Commit creates a commit with the given message.
	Commit(ctx context.Context, message string) error

	// TagAnnotated creates an annotated tag with the given message.
	TagAnnotated(ctx context.Context, name, message string) error

	// PushTag pushes the tag to the named remote.
	PushTag(ctx context.Context, remote, name string) error
}

// CLIGit implements GitClient by shelling out to git. The exit status
// is the only success signal, matching how every other collaborator is
// observed.
type CLIGit struct {
	workDir string
	runner  toolrunner.Runner
}

// NewCLIGit creates a CLIGit operating on the given working tree.
func NewCLIGit(workDir string, runner toolrunner.Runner) *CLIGit {
	return &CLIGit{workDir: workDir, runner: runner}
}

func (g *CLIGit) git(ctx context.Context, args ...string) error {
	res, err := g.runner.Run(ctx, toolrunner.Command{
		Name: "git",
		Path: "git",
		Args: args,
		Dir:  g.workDir,
	})
	if err != nil {
		return fmt.Errorf("git %s: %w", args[0], err)
	}
	if !res.Success() {
		return fmt.Errorf("git %s exited %d:\n%s", args[0], res.ExitCode, res.Output)
	}
	return nil
}

// Stage implements GitClient.
func (g *CLIGit) Stage(ctx context.Context, path string) error {
	return g.git(ctx, "add", path)
}

// Commit implements GitClient.
func (g *CLIGit) Commit(ctx context.Context, message string) error {
	return g.git(ctx, "commit", "-m", message)
}

// TagAnnotated implements GitClient.
func (g *CLIGit) TagAnnotated(ctx context.Context, name, message string) error {
	return g.git(ctx, "tag", "-a", name, "-m", message)
}

// PushTag implements GitClient.
func (g *CLIGit) PushTag(ctx context.Context, remote, name string) error {
	return g.git(ctx, "push", remote, name)
}
