package application_test

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/prshepherd/prshepherd/internal/application"
	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// newTestSession wires a Session with zero wait durations so the loop runs
// without real delays.
func newTestSession(host *mockReviewHost, vcs driven.VCS, store driven.SessionStore, cfg application.SessionConfig) *application.Session {
	categorizer := application.NewCategorizer(application.Keywords{})
	remediator := application.NewRemediator(&mockFormatter{}, host, true)
	escalator := application.NewEscalator(host)

	return application.NewSession(host, vcs, remediator, escalator, categorizer, store, testTarget, cfg)
}

func TestSessionRun_ApprovedOnFirstPass(t *testing.T) {
	host := &mockReviewHost{
		author: "prauthor",
		fetchComments: func(_ context.Context, _ model.Target) ([]model.Comment, error) {
			return []model.Comment{{ID: 1, Author: "alice", Body: "LGTM"}}, nil
		},
		fetchApproval: func(_ context.Context, _ model.Target) (model.ApprovalStatus, error) {
			return model.ApprovalStatus{
				Decision:       model.DecisionApproved,
				ReviewerStates: map[string]model.ReviewState{"alice": model.ReviewStateApproved},
			}, nil
		},
	}
	store := &mockSessionStore{}

	s := newTestSession(host, &mockVCS{}, store, application.SessionConfig{MaxIterations: 5})

	state, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, state)

	posted := host.postedBodies()
	require.Len(t, posted, 1)
	assert.Contains(t, posted[0], "approved")

	saved := store.savedSessions()
	require.Len(t, saved, 1)
	assert.Equal(t, model.StateApproved, saved[0].State)
	assert.Equal(t, "acme/widgets#7", saved[0].Target)
	assert.False(t, saved[0].EndedAt.IsZero())
}

func TestSessionRun_EndToEndUntilIterationBudget(t *testing.T) {
	comments := []model.Comment{
		{ID: 1, Author: "alice", Body: "Please fix the formatting here", Path: "a.py", Line: 3, URL: "https://example.com/c/1"},
		{ID: 2, Author: "bob", Body: "Why this approach?", URL: "https://example.com/c/2"},
	}

	host := &mockReviewHost{
		author: "prauthor",
		fetchComments: func(_ context.Context, _ model.Target) ([]model.Comment, error) {
			return comments, nil
		},
	}
	store := &mockSessionStore{}

	// The first pass modifies a.py; re-running the formatter on an already
	// formatted file produces no further change.
	var mu sync.Mutex
	firstPass := true
	vcs := &mockVCS{
		dir: "/work/acme-widgets-7",
		changed: func(paths []string) ([]string, error) {
			mu.Lock()
			defer mu.Unlock()
			if firstPass {
				firstPass = false
				return paths, nil
			}
			return nil, nil
		},
	}

	s := newTestSession(host, vcs, store, application.SessionConfig{MaxIterations: 2})

	state, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StateMaxIterations, state)

	// One published fix commit despite two passes over the same comments.
	assert.Len(t, vcs.commits, 1)
	assert.Equal(t, 1, vcs.pushes)

	// Acknowledgement, one escalation, terminal summary. The unresolved
	// design comment is escalated exactly once.
	posted := host.postedBodies()
	require.Len(t, posted, 3)
	assert.Contains(t, posted[0], "formatting fixes")
	assert.Contains(t, posted[1], "@prauthor")
	assert.Contains(t, posted[1], "> Why this approach?")
	assert.Contains(t, posted[2], "iteration budget exhausted")
	assert.Contains(t, posted[2], "Remaining open items")
	assert.Contains(t, posted[2], "@bob")

	saved := store.savedSessions()
	require.Len(t, saved, 1)
	assert.Equal(t, model.StateMaxIterations, saved[0].State)
	assert.Equal(t, 2, saved[0].Iterations)
	require.Len(t, saved[0].Fixes, 1)
	assert.Equal(t, "a.py", saved[0].Fixes[0].Path)
	require.Len(t, saved[0].Escalations, 1)
	assert.Equal(t, int64(2), saved[0].Escalations[0].CommentID)
}

func TestSessionRun_CommitFailureLeavesFixLogEmpty(t *testing.T) {
	host := &mockReviewHost{
		author: "prauthor",
		fetchComments: func(_ context.Context, _ model.Target) ([]model.Comment, error) {
			return []model.Comment{
				{ID: 1, Author: "alice", Body: "Please fix the formatting here", Path: "a.py", Line: 3, URL: "https://example.com/c/1"},
			}, nil
		},
	}
	store := &mockSessionStore{}
	vcs := &mockVCS{commitErr: errors.New("pre-commit hook rejected")}

	s := newTestSession(host, vcs, store, application.SessionConfig{MaxIterations: 1})

	state, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StateMaxIterations, state)
	assert.Empty(t, vcs.commits)
	assert.Equal(t, 0, vcs.pushes)

	// A failed commit must not be claimed as an applied fix, neither in the
	// persisted log nor in the terminal summary.
	saved := store.savedSessions()
	require.Len(t, saved, 1)
	assert.Empty(t, saved[0].Fixes)

	posted := host.postedBodies()
	require.Len(t, posted, 1)
	assert.Contains(t, posted[0], "No automatic fixes were applied")
	assert.NotContains(t, posted[0], "Fixes applied")
	assert.Contains(t, posted[0], "commit failed")
}

func TestSessionRun_ResolvedDesignCommentLeavesOpenItems(t *testing.T) {
	var mu sync.Mutex
	pass := 0
	host := &mockReviewHost{
		author: "prauthor",
		fetchComments: func(_ context.Context, _ model.Target) ([]model.Comment, error) {
			mu.Lock()
			defer mu.Unlock()
			pass++
			if pass == 1 {
				return []model.Comment{
					{ID: 2, Author: "bob", Body: "Why this approach?", URL: "https://example.com/c/2"},
				}, nil
			}
			// The design comment was resolved; only chatter remains.
			return []model.Comment{
				{ID: 3, Author: "carol", Body: "thanks for the update"},
			}, nil
		},
	}
	store := &mockSessionStore{}

	s := newTestSession(host, &mockVCS{}, store, application.SessionConfig{MaxIterations: 2})

	state, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StateMaxIterations, state)

	// The escalation from the first pass is still reported, but a design
	// comment gone by the final pass is no longer an open item.
	posted := host.postedBodies()
	require.Len(t, posted, 2)
	assert.Contains(t, posted[1], "Escalations raised")
	assert.NotContains(t, posted[1], "Remaining open items")
}

func TestSessionRun_NoCommentsAwaitsHumanWithoutBurningBudget(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())

	var mu sync.Mutex
	fetches := 0
	host := &mockReviewHost{
		author: "prauthor",
		fetchComments: func(_ context.Context, _ model.Target) ([]model.Comment, error) {
			mu.Lock()
			defer mu.Unlock()
			fetches++
			if fetches >= 3 {
				cancel()
			}
			return []model.Comment{}, nil
		},
	}

	s := newTestSession(host, &mockVCS{}, nil, application.SessionConfig{MaxIterations: 2})

	state, err := s.Run(ctx)

	require.ErrorIs(t, err, context.Canceled)
	assert.Equal(t, model.StateAwaitingHuman, state)
	// Waiting for a human response never consumes iteration budget.
	assert.Equal(t, 0, s.Snapshot().Iterations)
	assert.GreaterOrEqual(t, fetches, 3)
}

func TestSessionRun_FetchFailureIsFatal(t *testing.T) {
	host := &mockReviewHost{
		author: "prauthor",
		fetchComments: func(_ context.Context, _ model.Target) ([]model.Comment, error) {
			return nil, errors.New("api unavailable")
		},
	}

	s := newTestSession(host, &mockVCS{}, nil, application.SessionConfig{MaxIterations: 2})

	_, err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching comments")
	assert.Empty(t, host.postedBodies())
}

func TestSessionRun_AuthorFetchFailureIsFatal(t *testing.T) {
	host := &mockReviewHost{authorErr: errors.New("not found")}

	s := newTestSession(host, &mockVCS{}, nil, application.SessionConfig{MaxIterations: 2})

	_, err := s.Run(context.Background())

	require.Error(t, err)
	assert.Contains(t, err.Error(), "fetching author")
}

func TestSessionRun_RequiredReviewersGateApproval(t *testing.T) {
	approvalFrom := func(states map[string]model.ReviewState) func(context.Context, model.Target) (model.ApprovalStatus, error) {
		return func(_ context.Context, _ model.Target) (model.ApprovalStatus, error) {
			return model.ApprovalStatus{Decision: model.DecisionApproved, ReviewerStates: states}, nil
		}
	}
	someComments := func(_ context.Context, _ model.Target) ([]model.Comment, error) {
		return []model.Comment{{ID: 1, Author: "carol", Body: "thanks for the update"}}, nil
	}

	t.Run("missing required reviewer blocks exit", func(t *testing.T) {
		host := &mockReviewHost{
			author:        "prauthor",
			fetchComments: someComments,
			fetchApproval: approvalFrom(map[string]model.ReviewState{"carol": model.ReviewStateApproved}),
		}

		s := newTestSession(host, &mockVCS{}, nil, application.SessionConfig{
			MaxIterations:     1,
			RequiredReviewers: []string{"alice"},
		})

		state, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, model.StateMaxIterations, state)
	})

	t.Run("all required reviewers approved", func(t *testing.T) {
		host := &mockReviewHost{
			author:        "prauthor",
			fetchComments: someComments,
			fetchApproval: approvalFrom(map[string]model.ReviewState{"alice": model.ReviewStateApproved}),
		}

		s := newTestSession(host, &mockVCS{}, nil, application.SessionConfig{
			MaxIterations:     1,
			RequiredReviewers: []string{"alice"},
		})

		state, err := s.Run(context.Background())

		require.NoError(t, err)
		assert.Equal(t, model.StateApproved, state)
	})
}

func TestSessionRun_SummaryPostFailureDoesNotChangeOutcome(t *testing.T) {
	host := &mockReviewHost{
		author: "prauthor",
		fetchApproval: func(_ context.Context, _ model.Target) (model.ApprovalStatus, error) {
			return model.ApprovalStatus{Decision: model.DecisionApproved}, nil
		},
		postComment: func(_ context.Context, _ model.Target, _ string) error {
			return errors.New("503")
		},
	}
	store := &mockSessionStore{}

	s := newTestSession(host, &mockVCS{}, store, application.SessionConfig{MaxIterations: 2})

	state, err := s.Run(context.Background())

	require.NoError(t, err)
	assert.Equal(t, model.StateApproved, state)
	// Persistence still happens after a failed summary post.
	assert.Len(t, store.savedSessions(), 1)
}
