package model

import "time"

// SessionState represents a state of the per-target convergence loop.
type SessionState string

const (
	StateWaitingInitial SessionState = "waiting_initial"
	StateAnalyzing      SessionState = "analyzing"
	StateRemediating    SessionState = "remediating"
	StateEscalating     SessionState = "escalating"
	StateDeciding       SessionState = "deciding"
	StateAwaitingHuman  SessionState = "awaiting_human"
	StateApproved       SessionState = "approved"
	StateMaxIterations  SessionState = "max_iterations"
)

// Terminal reports whether the state ends the session.
func (s SessionState) Terminal() bool {
	return s == StateApproved || s == StateMaxIterations
}

// FixRecord is one entry in a session's append-only remediation log.
type FixRecord struct {
	Path       string
	Tool       string
	CommentURL string // Permalink of the comment that prompted the fix.
	AppliedAt  time.Time
}

// EscalationRecord is one design comment handed off to the author.
type EscalationRecord struct {
	CommentID  int64
	Commenter  string
	Location   string // "path:line" or "not applicable".
	CommentURL string
	PostedAt   time.Time
}

// RemediationBatch is the outcome of one remediation pass. It is
// constructed and consumed within a single iteration.
type RemediationBatch struct {
	AffectedPaths []string
	ToolsApplied  []string // Tools that succeeded on at least one file.
	Fixes         []FixRecord
	CommentURLs   []string // Permalinks of the comments being addressed.
	Committed     bool
	Pushed        bool
	Warnings      []string
}

// NoOp reports whether the batch produced no published fix.
func (b RemediationBatch) NoOp() bool {
	return !b.Pushed
}

// EscalationResult is the outcome of one escalation pass.
type EscalationResult struct {
	Posted   []EscalationRecord
	Warnings []string
}

// SessionSummary is the durable record of a finished (or running) session.
type SessionSummary struct {
	ID          int64
	Target      string // Target.Key()
	URL         string
	State       SessionState
	Iterations  int
	Summary     string // Markdown body of the terminal summary comment.
	Fixes       []FixRecord
	Escalations []EscalationRecord
	StartedAt   time.Time
	EndedAt     time.Time
}
