package driven

import (
	"context"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// VCS defines the driven port for version-control mutation on a single
// checkout. Implementations are bound to one working tree; concurrently
// monitored targets must never share an instance.
type VCS interface {
	// ChangedPaths returns the subset of paths with uncommitted modifications
	// in the working tree. Used to skip empty commits.
	ChangedPaths(ctx context.Context, paths []string) ([]string, error)

	// Stage adds exactly the given paths to the index.
	Stage(ctx context.Context, paths []string) error

	// Commit records the staged changes with the given message.
	Commit(ctx context.Context, message string) error

	// Push publishes the current branch to its remote.
	Push(ctx context.Context) error

	// Dir returns the absolute path of the checkout's working tree.
	Dir() string
}

// VCSProvider yields a VCS bound to a dedicated checkout for a target,
// cloning or refreshing it as needed.
type VCSProvider interface {
	WorkspaceFor(ctx context.Context, target model.Target) (VCS, error)
}
