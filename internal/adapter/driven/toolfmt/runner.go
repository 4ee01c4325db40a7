// Package toolfmt implements the Formatter port by invoking external
// formatting tools selected by file suffix.
package toolfmt

import (
	"context"
	"fmt"
	"log/slog"
	"os/exec"
	"path/filepath"
	"strings"

	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Compile-time interface satisfaction check.
var _ driven.Formatter = (*Runner)(nil)

// Runner maps file suffixes to formatter tool chains and runs them in
// sequence. Each invocation succeeds or fails independently; a missing or
// failing tool never aborts the remaining tools for the file.
type Runner struct {
	chains map[string][]string
	logger *slog.Logger
}

// DefaultChains returns the built-in suffix to tool-chain mapping. A suffix
// may map to multiple tools run in order, such as an import orderer followed
// by a code formatter.
func DefaultChains() map[string][]string {
	return map[string][]string{
		".py":  {"isort", "black"},
		".go":  {"gofmt"},
		".rs":  {"rustfmt"},
		".js":  {"prettier"},
		".jsx": {"prettier"},
		".ts":  {"prettier"},
		".tsx": {"prettier"},
		".css": {"prettier"},
	}
}

// NewRunner creates a Runner. A nil chains map selects the defaults.
func NewRunner(chains map[string][]string) *Runner {
	if chains == nil {
		chains = DefaultChains()
	}
	return &Runner{
		chains: chains,
		logger: slog.Default(),
	}
}

// Format runs the tool chain for the file's suffix against the given path.
// Returns one ToolRun per invocation, or nil when no chain is configured for
// the suffix.
func (r *Runner) Format(ctx context.Context, path string) []driven.ToolRun {
	tools := r.ToolsFor(path)
	if len(tools) == 0 {
		return nil
	}

	runs := make([]driven.ToolRun, 0, len(tools))
	for _, tool := range tools {
		err := r.invoke(ctx, tool, path)
		if err != nil {
			r.logger.Warn("formatter invocation failed", "tool", tool, "path", path, "error", err)
		} else {
			r.logger.Debug("formatter applied", "tool", tool, "path", path)
		}
		runs = append(runs, driven.ToolRun{Tool: tool, Err: err})
	}

	return runs
}

// ToolsFor returns the tool chain configured for the file's suffix.
func (r *Runner) ToolsFor(path string) []string {
	return r.chains[strings.ToLower(filepath.Ext(path))]
}

// invoke runs one tool against one file in place.
func (r *Runner) invoke(ctx context.Context, tool, path string) error {
	cmd := exec.CommandContext(ctx, tool, argsFor(tool, path)...)
	output, err := cmd.CombinedOutput()
	if err != nil {
		return fmt.Errorf("%s %s: %w: %s", tool, path, err, strings.TrimSpace(string(output)))
	}
	return nil
}

// argsFor builds the in-place invocation for a known tool. Unknown tools get
// the bare path, which matches the common formatter convention.
func argsFor(tool, path string) []string {
	switch tool {
	case "gofmt":
		return []string{"-w", path}
	case "prettier":
		return []string{"--write", path}
	default:
		return []string{path}
	}
}
