package release

import (
	"context"
	"fmt"
	"time"

	gogit "github.com/go-git/go-git/v5"
	"github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
)

// GoGit implements GitClient in-process with go-git. It serves hosts
// without a git binary and lets tests verify commits and tags against a
// real object database instead of a recorded argv.
type GoGit struct {
	repo *gogit.Repository
	name string
	mail string
}

// OpenGoGit opens the repository containing workDir.
func OpenGoGit(workDir, authorName, authorEmail string) (*GoGit, error) {
	repo, err := gogit.PlainOpenWithOptions(workDir, &gogit.PlainOpenOptions{DetectDotGit: true})
	if err != nil {
		return nil, fmt.Errorf("release: opening repository at %s: %w", workDir, err)
	}
	if authorName == "" {
		authorName = "shipgate"
	}
	if authorEmail == "" {
		authorEmail = "shipgate@localhost"
	}
	return &GoGit{repo: repo, name: authorName, mail: authorEmail}, nil
}

func (g *GoGit) signature() *object.Signature {
	return &object.Signature{Name: g.name, Email: g.mail, When: time.Now()}
}

// Stage implements GitClient.
func (g *GoGit) Stage(_ context.Context, path string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("release: opening worktree: %w", err)
	}
	if _, err := wt.Add(path); err != nil {
		return fmt.Errorf("release: staging %s: %w", path, err)
	}
	return nil
}

// Commit implements GitClient.
func (g *GoGit) Commit(_ context.Context, message string) error {
	wt, err := g.repo.Worktree()
	if err != nil {
		return fmt.Errorf("release: opening worktree: %w", err)
	}
	if _, err := wt.Commit(message, &gogit.CommitOptions{Author: g.signature()}); err != nil {
		return fmt.Errorf("release: committing: %w", err)
	}
	return nil
}

// TagAnnotated implements GitClient.
func (g *GoGit) TagAnnotated(_ context.Context, name, message string) error {
	head, err := g.repo.Head()
	if err != nil {
		return fmt.Errorf("release: resolving HEAD: %w", err)
	}
	_, err = g.repo.CreateTag(name, head.Hash(), &gogit.CreateTagOptions{
		Tagger:  g.signature(),
		Message: message,
	})
	if err != nil {
		return fmt.Errorf("release: creating tag %s: %w", name, err)
	}
	return nil
}

// PushTag implements GitClient.
func (g *GoGit) PushTag(ctx context.Context, remote, name string) error {
	ref := plumbing.NewTagReferenceName(name)
	err := g.repo.PushContext(ctx, &gogit.PushOptions{
		RemoteName: remote,
		RefSpecs:   []config.RefSpec{config.RefSpec(ref + ":" + ref)},
	})
	if err != nil && err != gogit.NoErrAlreadyUpToDate {
		return fmt.Errorf("release: pushing tag %s to %s: %w", name, remote, err)
	}
	return nil
}
