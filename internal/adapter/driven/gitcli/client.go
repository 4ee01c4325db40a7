// Package gitcli implements the VCS and VCSProvider ports by wrapping the
// system git binary.
package gitcli

import (
	"context"
	"fmt"
	"os/exec"
	"strings"

	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VCS = (*Client)(nil)

// Client performs git operations on a single checkout.
type Client struct {
	dir       string
	userName  string
	userEmail string
}

// NewClient creates a git client bound to the given working tree. The
// identity is applied per-commit via -c flags so no repository config is
// mutated.
func NewClient(dir, userName, userEmail string) *Client {
	return &Client{
		dir:       dir,
		userName:  userName,
		userEmail: userEmail,
	}
}

// Dir returns the absolute path of the checkout's working tree.
func (c *Client) Dir() string {
	return c.dir
}

// ChangedPaths returns the subset of paths with uncommitted modifications,
// per `git status --porcelain`.
func (c *Client) ChangedPaths(ctx context.Context, paths []string) ([]string, error) {
	args := append([]string{"status", "--porcelain", "--"}, paths...)
	out, err := c.run(ctx, args...)
	if err != nil {
		return nil, err
	}
	return parsePorcelain(string(out)), nil
}

// Stage adds exactly the given paths to the index.
func (c *Client) Stage(ctx context.Context, paths []string) error {
	if len(paths) == 0 {
		return nil
	}
	args := append([]string{"add", "--"}, paths...)
	_, err := c.run(ctx, args...)
	return err
}

// Commit records the staged changes with the given message.
func (c *Client) Commit(ctx context.Context, message string) error {
	_, err := c.run(ctx,
		"-c", "user.name="+c.userName,
		"-c", "user.email="+c.userEmail,
		"commit", "-m", message,
	)
	return err
}

// Push publishes the current branch to its upstream remote.
func (c *Client) Push(ctx context.Context) error {
	_, err := c.run(ctx, "push", "origin", "HEAD")
	return err
}

// run executes a git command in the checkout with combined output captured
// for error reporting.
func (c *Client) run(ctx context.Context, args ...string) ([]byte, error) {
	cmdArgs := append([]string{"-C", c.dir}, args...)

	cmd := exec.CommandContext(ctx, "git", cmdArgs...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return output, fmt.Errorf("git %s failed: %w: %s", strings.Join(args, " "), err, strings.TrimSpace(string(output)))
	}

	return output, nil
}

// parsePorcelain extracts the file paths from `git status --porcelain`
// output. Rename entries report the new path.
func parsePorcelain(out string) []string {
	var paths []string
	for _, line := range strings.Split(out, "\n") {
		// Two status columns, one space, then the path.
		if len(line) < 4 {
			continue
		}
		path := strings.TrimSpace(line[3:])
		if idx := strings.Index(path, " -> "); idx >= 0 {
			path = path[idx+4:]
		}
		path = strings.Trim(path, `"`)
		if path != "" {
			paths = append(paths, path)
		}
	}
	return paths
}
