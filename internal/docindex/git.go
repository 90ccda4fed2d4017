package docindex

import (
	"bytes"
	"context"
	"fmt"
	"os/exec"
	"strings"
)

// CommandExecutor abstracts command execution for testing.
type CommandExecutor interface {
	// Run executes a command and returns its standard output.
	Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error)
}

// DefaultExecutor executes commands using os/exec.
type DefaultExecutor struct{}

// Run executes a command and returns its standard output.
func (e *DefaultExecutor) Run(ctx context.Context, dir string, name string, args ...string) ([]byte, error) {
	cmd := exec.CommandContext(ctx, name, args...)
	cmd.Dir = dir

	var stdout, stderr bytes.Buffer
	cmd.Stdout = &stdout
	cmd.Stderr = &stderr

	if err := cmd.Run(); err != nil {
		// Include stderr in error message for debugging
		if msg := strings.TrimSpace(stderr.String()); msg != "" {
			return nil, fmt.Errorf("%w: %s", err, msg)
		}
		return nil, err
	}
	return stdout.Bytes(), nil
}

// GitClient executes the git commands needed to mirror a documentation repository.
type GitClient struct {
	executor CommandExecutor
}

// NewGitClient creates a new GitClient with the default command executor.
func NewGitClient() *GitClient {
	return NewGitClientWithExecutor(&DefaultExecutor{})
}

// NewGitClientWithExecutor creates a GitClient with a custom executor (for testing).
func NewGitClientWithExecutor(executor CommandExecutor) *GitClient {
	return &GitClient{executor: executor}
}

func (g *GitClient) git(ctx context.Context, dir, op string, args ...string) ([]byte, error) {
	out, err := g.executor.Run(ctx, dir, "git", args...)
	if err != nil {
		return nil, fmt.Errorf("git %s failed: %w", op, err)
	}
	return out, nil
}

// Clone performs a shallow, single-branch clone of url into destDir.
func (g *GitClient) Clone(ctx context.Context, url, destDir string) error {
	_, err := g.git(ctx, "", "clone", "clone", "--depth", "1", "--single-branch", url, destDir)
	return err
}

// Update fetches the remote head and hard-resets the working tree to it,
// keeping the clone shallow.
func (g *GitClient) Update(ctx context.Context, repoDir string) error {
	if _, err := g.git(ctx, repoDir, "fetch", "fetch", "--depth", "1"); err != nil {
		return err
	}
	_, err := g.git(ctx, repoDir, "reset", "reset", "--hard", "origin/HEAD")
	return err
}

// HeadCommit returns the current HEAD commit SHA.
func (g *GitClient) HeadCommit(ctx context.Context, repoDir string) (string, error) {
	out, err := g.git(ctx, repoDir, "rev-parse", "rev-parse", "HEAD")
	if err != nil {
		return "", err
	}
	return strings.TrimSpace(string(out)), nil
}

// ChangedFiles returns the paths changed between two commits, relative to
// the repository root.
func (g *GitClient) ChangedFiles(ctx context.Context, repoDir, fromCommit, toCommit string) ([]string, error) {
	out, err := g.git(ctx, repoDir, "diff", "diff", "--name-only", fromCommit+".."+toCommit)
	if err != nil {
		return nil, err
	}

	var files []string
	for _, line := range strings.Split(string(out), "\n") {
		if line = strings.TrimSpace(line); line != "" {
			files = append(files, line)
		}
	}
	return files, nil
}

// IsRepository checks if the given directory is a git working tree.
func (g *GitClient) IsRepository(ctx context.Context, dir string) bool {
	_, err := g.executor.Run(ctx, dir, "git", "rev-parse", "--git-dir")
	return err == nil
}
