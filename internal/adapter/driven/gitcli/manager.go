package gitcli

import (
	"context"
	"fmt"
	"log/slog"
	"net/url"
	"os"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.VCSProvider = (*Manager)(nil)

// Manager maintains one checkout per monitored target under a root
// directory. Concurrently monitored targets never share a working tree;
// cross-target commit interleaving on a shared checkout would corrupt both
// sessions.
type Manager struct {
	root      string
	token     string
	userName  string
	userEmail string
	logger    *slog.Logger
}

// NewManager creates a Manager rooted at the given directory.
func NewManager(root, token, userName, userEmail string) *Manager {
	return &Manager{
		root:      root,
		token:     token,
		userName:  userName,
		userEmail: userEmail,
		logger:    slog.Default(),
	}
}

// WorkspaceFor clones the target's head branch into a dedicated directory,
// or refreshes the existing checkout to the branch tip.
func (m *Manager) WorkspaceFor(ctx context.Context, target model.Target) (driven.VCS, error) {
	dir := filepath.Join(m.root, workspaceName(target))

	if _, err := os.Stat(filepath.Join(dir, ".git")); err == nil {
		if err := m.refresh(ctx, dir, target.Branch); err != nil {
			return nil, err
		}
		return NewClient(dir, m.userName, m.userEmail), nil
	}

	if err := os.MkdirAll(m.root, 0o755); err != nil {
		return nil, fmt.Errorf("creating workdir root: %w", err)
	}

	cloneURL, err := authURL(target.CloneURL, m.token)
	if err != nil {
		return nil, err
	}

	m.logger.Info("cloning workspace", "target", target.Key(), "dir", dir, "branch", target.Branch)
	if out, err := m.git(ctx, "", "clone", "--branch", target.Branch, "--single-branch", cloneURL, dir); err != nil {
		return nil, fmt.Errorf("cloning %s: %w: %s", target.Key(), err, strings.TrimSpace(string(out)))
	}

	return NewClient(dir, m.userName, m.userEmail), nil
}

// refresh discards local state and resets the checkout to the remote branch
// tip. Sessions own their checkouts exclusively, so anything local is
// leftover from a previous run.
func (m *Manager) refresh(ctx context.Context, dir, branch string) error {
	steps := [][]string{
		{"fetch", "origin", branch},
		{"checkout", branch},
		{"reset", "--hard", "origin/" + branch},
		{"clean", "-fd"},
	}
	for _, args := range steps {
		if out, err := m.git(ctx, dir, args...); err != nil {
			return fmt.Errorf("refreshing checkout %s: git %s: %w: %s", dir, strings.Join(args, " "), err, strings.TrimSpace(string(out)))
		}
	}
	return nil
}

func (m *Manager) git(ctx context.Context, dir string, args ...string) ([]byte, error) {
	if dir != "" {
		args = append([]string{"-C", dir}, args...)
	}
	cmd := exec.CommandContext(ctx, "git", args...)
	return cmd.CombinedOutput()
}

// workspaceName derives a filesystem-safe directory name from a target.
func workspaceName(target model.Target) string {
	return strings.ReplaceAll(target.RepoFullName, "/", "-") + fmt.Sprintf("-%d", target.Number)
}

// authURL embeds the access token into an https clone URL so pushes
// authenticate without credential helpers.
func authURL(cloneURL, token string) (string, error) {
	u, err := url.Parse(cloneURL)
	if err != nil {
		return "", fmt.Errorf("parsing clone URL %q: %w", cloneURL, err)
	}
	if u.Scheme != "https" {
		return "", fmt.Errorf("unsupported clone URL scheme %q: expected https", u.Scheme)
	}
	u.User = url.UserPassword("x-access-token", token)
	return u.String(), nil
}
