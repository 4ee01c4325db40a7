package application_test

import (
	"context"
	"sync"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// --- Mock implementations shared by the application tests ---

type mockReviewHost struct {
	mu sync.Mutex

	fetchComments func(ctx context.Context, target model.Target) ([]model.Comment, error)
	fetchApproval func(ctx context.Context, target model.Target) (model.ApprovalStatus, error)
	postComment   func(ctx context.Context, target model.Target, body string) error
	author        string
	authorErr     error

	posted        []string
	commentCalls  int
	approvalCalls int
}

func (m *mockReviewHost) FetchComments(ctx context.Context, target model.Target) ([]model.Comment, error) {
	m.mu.Lock()
	m.commentCalls++
	m.mu.Unlock()
	if m.fetchComments == nil {
		return []model.Comment{}, nil
	}
	return m.fetchComments(ctx, target)
}

func (m *mockReviewHost) FetchApproval(ctx context.Context, target model.Target) (model.ApprovalStatus, error) {
	m.mu.Lock()
	m.approvalCalls++
	m.mu.Unlock()
	if m.fetchApproval == nil {
		return model.ApprovalStatus{Decision: model.DecisionReviewRequired}, nil
	}
	return m.fetchApproval(ctx, target)
}

func (m *mockReviewHost) PostComment(ctx context.Context, target model.Target, body string) error {
	if m.postComment != nil {
		if err := m.postComment(ctx, target, body); err != nil {
			return err
		}
	}
	m.mu.Lock()
	m.posted = append(m.posted, body)
	m.mu.Unlock()
	return nil
}

func (m *mockReviewHost) FetchAuthor(_ context.Context, _ model.Target) (string, error) {
	return m.author, m.authorErr
}

func (m *mockReviewHost) postedBodies() []string {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]string(nil), m.posted...)
}

type mockVCS struct {
	dir     string
	changed func(paths []string) ([]string, error)

	stageErr  error
	commitErr error
	pushErr   error

	staged  [][]string
	commits []string
	pushes  int
}

func (m *mockVCS) ChangedPaths(_ context.Context, paths []string) ([]string, error) {
	if m.changed == nil {
		return paths, nil
	}
	return m.changed(paths)
}

func (m *mockVCS) Stage(_ context.Context, paths []string) error {
	if m.stageErr != nil {
		return m.stageErr
	}
	m.staged = append(m.staged, paths)
	return nil
}

func (m *mockVCS) Commit(_ context.Context, message string) error {
	if m.commitErr != nil {
		return m.commitErr
	}
	m.commits = append(m.commits, message)
	return nil
}

func (m *mockVCS) Push(_ context.Context) error {
	if m.pushErr != nil {
		return m.pushErr
	}
	m.pushes++
	return nil
}

func (m *mockVCS) Dir() string {
	return m.dir
}

type formatCall struct {
	Path string
}

type mockFormatter struct {
	format func(path string) []driven.ToolRun
	calls  []formatCall
}

func (m *mockFormatter) Format(_ context.Context, path string) []driven.ToolRun {
	m.calls = append(m.calls, formatCall{Path: path})
	if m.format == nil {
		return []driven.ToolRun{{Tool: "gofmt"}}
	}
	return m.format(path)
}

type mockSessionStore struct {
	mu    sync.Mutex
	saved []model.SessionSummary
}

func (m *mockSessionStore) SaveSession(_ context.Context, s model.SessionSummary) (int64, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.saved = append(m.saved, s)
	return int64(len(m.saved)), nil
}

func (m *mockSessionStore) GetSession(_ context.Context, _ int64) (*model.SessionSummary, error) {
	return nil, nil
}

func (m *mockSessionStore) ListSessions(_ context.Context) ([]model.SessionSummary, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SessionSummary(nil), m.saved...), nil
}

func (m *mockSessionStore) savedSessions() []model.SessionSummary {
	m.mu.Lock()
	defer m.mu.Unlock()
	return append([]model.SessionSummary(nil), m.saved...)
}

type mockTargetSource struct {
	mu      sync.Mutex
	targets []model.Target
	err     error
	calls   int
}

func (m *mockTargetSource) DiscoverTargets(_ context.Context) ([]model.Target, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return append([]model.Target(nil), m.targets...), nil
}

type mockWorkspaces struct {
	mu    sync.Mutex
	err   error
	calls int
}

func (m *mockWorkspaces) WorkspaceFor(_ context.Context, target model.Target) (driven.VCS, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return &mockVCS{dir: "/tmp/" + target.Key()}, nil
}

func (m *mockWorkspaces) callCount() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.calls
}
