package driven

import (
	"context"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// ReviewHost defines the driven port for the review platform a session talks
// to. It abstracts comment retrieval, approval-state queries, and comment
// posting away from any specific host API.
type ReviewHost interface {
	// FetchComments returns all reviewer comments on the target, ordered by
	// creation time. Inline review comments, top-level conversation comments,
	// and non-empty review bodies are merged into a single list.
	FetchComments(ctx context.Context, target model.Target) ([]model.Comment, error)

	// FetchApproval returns the aggregated review decision together with the
	// latest per-reviewer states.
	FetchApproval(ctx context.Context, target model.Target) (model.ApprovalStatus, error)

	// PostComment adds a top-level comment to the target.
	PostComment(ctx context.Context, target model.Target, body string) error

	// FetchAuthor returns the login of the target's author.
	FetchAuthor(ctx context.Context, target model.Target) (string, error)
}

// TargetSource discovers pull requests that should be monitored.
type TargetSource interface {
	// DiscoverTargets returns the currently open pull requests authored by
	// the configured user across the watched repositories.
	DiscoverTargets(ctx context.Context) ([]model.Target, error)
}
