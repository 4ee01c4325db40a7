package application

import (
	"context"
	"fmt"
	"log/slog"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Remediator applies mechanical fixes for formatting comments: it runs the
// configured formatter tools over the affected files, commits and pushes the
// result, and posts an acknowledgement. Failures inside a pass are isolated
// per file and tool and surface as batch warnings; nothing raises past the
// remediation boundary.
type Remediator struct {
	formatter driven.Formatter
	host      driven.ReviewHost
	autoFix   bool
	logger    *slog.Logger
}

// NewRemediator creates a Remediator. With autoFix disabled the engine
// performs no action and returns empty batches.
func NewRemediator(formatter driven.Formatter, host driven.ReviewHost, autoFix bool) *Remediator {
	return &Remediator{
		formatter: formatter,
		host:      host,
		autoFix:   autoFix,
		logger:    slog.Default(),
	}
}

// Remediate processes the formatting partition of one iteration. Comments
// without a file location contribute nothing: a top-level comment has no
// target file to fix.
func (r *Remediator) Remediate(ctx context.Context, target model.Target, vcs driven.VCS, comments []model.Comment) model.RemediationBatch {
	var batch model.RemediationBatch

	if !r.autoFix {
		return batch
	}

	paths, urlsByPath := affectedPaths(comments)
	if len(paths) == 0 {
		return batch
	}
	batch.AffectedPaths = paths

	// Run the tool chain per file. A failed invocation is a warning and does
	// not abort remaining tools or remaining files.
	toolsByPath := make(map[string][]string, len(paths))
	succeeded := make(map[string]bool)
	for _, path := range paths {
		runs := r.formatter.Format(ctx, filepath.Join(vcs.Dir(), path))
		if len(runs) == 0 {
			r.logger.Debug("no formatter configured", "target", target.Key(), "path", path)
			continue
		}

		for _, run := range runs {
			if run.Err != nil {
				r.logger.Warn("formatter failed",
					"target", target.Key(), "path", path, "tool", run.Tool, "error", run.Err)
				batch.Warnings = append(batch.Warnings,
					fmt.Sprintf("formatter %s failed on %s: %v", run.Tool, path, run.Err))
				continue
			}
			toolsByPath[path] = append(toolsByPath[path], run.Tool)
			succeeded[run.Tool] = true
		}
	}

	for tool := range succeeded {
		batch.ToolsApplied = append(batch.ToolsApplied, tool)
	}
	sort.Strings(batch.ToolsApplied)

	// Content-diff check before commit: if no file was actually modified,
	// skip commit and push entirely to avoid empty commits.
	changed, err := vcs.ChangedPaths(ctx, paths)
	if err != nil {
		r.logger.Warn("changed-path detection failed", "target", target.Key(), "error", err)
		batch.Warnings = append(batch.Warnings, fmt.Sprintf("vcs status failed: %v", err))
		return batch
	}
	if len(changed) == 0 {
		r.logger.Info("remediation produced no content changes", "target", target.Key(), "paths", len(paths))
		return batch
	}

	var urls []string
	for _, path := range changed {
		urls = append(urls, urlsByPath[path]...)
	}

	// Stage exactly the changed subset of the affected paths, never a
	// broader set.
	if err := vcs.Stage(ctx, changed); err != nil {
		r.logger.Warn("stage failed", "target", target.Key(), "error", err)
		batch.Warnings = append(batch.Warnings, fmt.Sprintf("stage failed: %v", err))
		return batch
	}

	if err := vcs.Commit(ctx, commitMessage(urls, batch.ToolsApplied)); err != nil {
		r.logger.Warn("commit failed", "target", target.Key(), "error", err)
		batch.Warnings = append(batch.Warnings, fmt.Sprintf("commit failed: %v", err))
		return batch
	}
	batch.Committed = true

	// The fix log is assembled only once the commit exists: an iteration
	// whose VCS steps fail reports no useful fix.
	now := time.Now().UTC()
	for _, path := range changed {
		pathURLs := urlsByPath[path]
		url := ""
		if len(pathURLs) > 0 {
			url = pathURLs[0]
		}
		for _, tool := range toolsByPath[path] {
			batch.Fixes = append(batch.Fixes, model.FixRecord{
				Path:       path,
				Tool:       tool,
				CommentURL: url,
				AppliedAt:  now,
			})
		}
	}
	batch.CommentURLs = urls

	// A push failure is more severe than the other VCS steps: the commit
	// exists locally but is not visible to reviewers.
	if err := vcs.Push(ctx); err != nil {
		r.logger.Warn("push failed, commit not visible to reviewers", "target", target.Key(), "error", err)
		batch.Warnings = append(batch.Warnings, fmt.Sprintf("push failed, commit exists locally only: %v", err))
		return batch
	}
	batch.Pushed = true

	r.logger.Info("remediation published",
		"target", target.Key(),
		"files", len(changed),
		"tools", strings.Join(batch.ToolsApplied, ","),
	)

	// Notification failure does not undo the fix that already took effect.
	if err := r.host.PostComment(ctx, target, acknowledgement(batch)); err != nil {
		r.logger.Warn("acknowledgement post failed", "target", target.Key(), "error", err)
		batch.Warnings = append(batch.Warnings, fmt.Sprintf("acknowledgement post failed: %v", err))
	}

	return batch
}

// affectedPaths returns the distinct file locations across the comments,
// sorted for deterministic processing, plus the permalinks per path.
func affectedPaths(comments []model.Comment) ([]string, map[string][]string) {
	urlsByPath := make(map[string][]string)
	for _, c := range comments {
		if !c.HasLocation() {
			continue
		}
		urlsByPath[c.Path] = append(urlsByPath[c.Path], c.URL)
	}

	paths := make([]string, 0, len(urlsByPath))
	for path := range urlsByPath {
		paths = append(paths, path)
	}
	sort.Strings(paths)

	return paths, urlsByPath
}

// commitMessage states that the fix addresses review feedback, lists the
// originating comment permalinks, and names the tools that succeeded.
func commitMessage(urls, tools []string) string {
	var b strings.Builder
	b.WriteString("Apply formatting fixes for review feedback\n\nAddresses:\n")
	for _, url := range urls {
		fmt.Fprintf(&b, "- %s\n", url)
	}
	if len(tools) > 0 {
		fmt.Fprintf(&b, "\nTools: %s\n", strings.Join(tools, ", "))
	}
	return b.String()
}

// acknowledgement is the comment body posted after a published fix. Every
// fixed comment's link appears in it.
func acknowledgement(batch model.RemediationBatch) string {
	var b strings.Builder
	b.WriteString("🤖 Applied automatic formatting fixes and pushed them to this branch.\n\nAddressed comments:\n")
	for _, url := range batch.CommentURLs {
		fmt.Fprintf(&b, "- %s\n", url)
	}
	if len(batch.ToolsApplied) > 0 {
		fmt.Fprintf(&b, "\nTools: %s\n", strings.Join(batch.ToolsApplied, ", "))
	}
	return b.String()
}
