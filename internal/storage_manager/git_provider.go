package storage_manager //nolint:revive // var-naming: using underscores for domain clarity

import (
	"context"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"time"

	"github.com/go-git/go-git/v5"
	gitconfig "github.com/go-git/go-git/v5/config"
	"github.com/go-git/go-git/v5/plumbing"
	"github.com/go-git/go-git/v5/plumbing/object"
	"github.com/go-git/go-git/v5/plumbing/transport"
)

// GitProviderOptions configures a GitFileProvider.
type GitProviderOptions struct {
	Path        string
	AuthorName  string
	AuthorEmail string
	// InitIfMissing creates an empty repository when Path has none and either
	// no RemoteURL is set or the remote has no commits yet.
	InitIfMissing bool
	// RemoteURL is cloned when Path has no repository, and becomes "origin".
	RemoteURL string
	Branch    string
	// PushOnWrite pushes to origin after every commit.
	PushOnWrite bool
}

// GitFileProvider keeps files in a git working tree and commits every change,
// so corpus edits carry an audit trail.
type GitFileProvider struct {
	mu     sync.Mutex
	root   string
	repo   *git.Repository
	author object.Signature
	push   bool
}

// NewGitFileProvider opens, clones or initialises the repository at opts.Path.
func NewGitFileProvider(ctx context.Context, opts GitProviderOptions) (*GitFileProvider, error) {
	if opts.Path == "" {
		return nil, fmt.Errorf("repository path is required")
	}
	if opts.AuthorName == "" {
		opts.AuthorName = "ward-desk"
	}
	if opts.AuthorEmail == "" {
		opts.AuthorEmail = "ward-desk@localhost"
	}

	repo, err := git.PlainOpen(opts.Path)
	switch {
	case err == nil:
	case errors.Is(err, git.ErrRepositoryNotExists) && opts.RemoteURL != "":
		clone := &git.CloneOptions{URL: opts.RemoteURL}
		if opts.Branch != "" {
			clone.ReferenceName = plumbing.NewBranchReferenceName(opts.Branch)
			clone.SingleBranch = true
		}
		repo, err = git.PlainCloneContext(ctx, opts.Path, false, clone)
		switch {
		case err == nil:
		case errors.Is(err, transport.ErrEmptyRemoteRepository) && opts.InitIfMissing:
			// A fresh corpus remote: start locally and push the first commit.
			if repo, err = initRepository(opts); err != nil {
				return nil, err
			}
		default:
			return nil, fmt.Errorf("failed to clone %s: %w", opts.RemoteURL, err)
		}
	case errors.Is(err, git.ErrRepositoryNotExists) && opts.InitIfMissing:
		if repo, err = initRepository(opts); err != nil {
			return nil, err
		}
	default:
		return nil, fmt.Errorf("failed to open git repository: %w", err)
	}

	if opts.RemoteURL != "" {
		if _, err := repo.Remote(git.DefaultRemoteName); errors.Is(err, git.ErrRemoteNotFound) {
			if _, err := repo.CreateRemote(&gitconfig.RemoteConfig{
				Name: git.DefaultRemoteName,
				URLs: []string{opts.RemoteURL},
			}); err != nil {
				return nil, fmt.Errorf("failed to configure remote: %w", err)
			}
		}
	}

	return &GitFileProvider{
		root:   opts.Path,
		repo:   repo,
		author: object.Signature{Name: opts.AuthorName, Email: opts.AuthorEmail},
		push:   opts.PushOnWrite && opts.RemoteURL != "",
	}, nil
}

func initRepository(opts GitProviderOptions) (*git.Repository, error) {
	if err := os.MkdirAll(opts.Path, 0o750); err != nil {
		return nil, fmt.Errorf("failed to create repository directory: %w", err)
	}
	initOpts := &git.PlainInitOptions{}
	if opts.Branch != "" {
		initOpts.InitOptions.DefaultBranch = plumbing.NewBranchReferenceName(opts.Branch)
	}
	repo, err := git.PlainInitWithOptions(opts.Path, initOpts)
	if errors.Is(err, git.ErrRepositoryAlreadyExists) {
		repo, err = git.PlainOpen(opts.Path)
	}
	if err != nil {
		return nil, fmt.Errorf("failed to initialise git repository: %w", err)
	}
	return repo, nil
}

func (p *GitFileProvider) Read(_ context.Context, path string) ([]byte, error) {
	return readFile(filepath.Join(p.root, path))
}

// Write replaces the file and commits it.
func (p *GitFileProvider) Write(ctx context.Context, path string, data []byte) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if err := writeFileAtomic(filepath.Join(p.root, path), data); err != nil {
		return err
	}
	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Add(filepath.ToSlash(path)); err != nil {
		return fmt.Errorf("failed to stage %s: %w", path, err)
	}
	return p.commit(ctx, wt, "Update "+path)
}

func (p *GitFileProvider) Exists(_ context.Context, path string) (bool, error) {
	return fileExists(filepath.Join(p.root, path))
}

// Delete removes a tracked file and commits the removal. Missing files are a no-op.
func (p *GitFileProvider) Delete(ctx context.Context, path string) error {
	p.mu.Lock()
	defer p.mu.Unlock()

	if ok, err := fileExists(filepath.Join(p.root, path)); err != nil || !ok {
		return err
	}
	wt, err := p.repo.Worktree()
	if err != nil {
		return fmt.Errorf("failed to get worktree: %w", err)
	}
	if _, err := wt.Remove(filepath.ToSlash(path)); err != nil {
		if rmErr := os.Remove(filepath.Join(p.root, path)); rmErr != nil {
			return fmt.Errorf("failed to remove %s: %w", path, rmErr)
		}
		return nil
	}
	return p.commit(ctx, wt, "Delete "+path)
}

func (p *GitFileProvider) List(_ context.Context, prefix string) ([]string, error) {
	return walkFiles(p.root, prefix)
}

func (p *GitFileProvider) commit(ctx context.Context, wt *git.Worktree, msg string) error {
	sig := p.author
	sig.When = time.Now()
	if _, err := wt.Commit(msg, &git.CommitOptions{Author: &sig}); err != nil {
		return fmt.Errorf("failed to commit: %w", err)
	}
	if !p.push {
		return nil
	}
	err := p.repo.PushContext(ctx, &git.PushOptions{RemoteName: git.DefaultRemoteName})
	if err != nil && !errors.Is(err, git.NoErrAlreadyUpToDate) {
		return fmt.Errorf("failed to push: %w", err)
	}
	return nil
}
