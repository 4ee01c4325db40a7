package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"sync"
	"time"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// SessionConfig holds the per-session loop parameters.
type SessionConfig struct {
	// InitialWait gives human reviewers a head start before any automation acts.
	InitialWait time.Duration
	// CheckInterval is the suspension between iterations.
	CheckInterval time.Duration
	// MaxIterations is the iteration budget; the session terminates in
	// StateMaxIterations once it is exhausted.
	MaxIterations int
	// RequiredReviewers, when non-empty, must all have an approving latest
	// review before the session terminates in StateApproved.
	RequiredReviewers []string
}

// Session drives the convergence loop for one monitored pull request:
// fetch -> categorize -> remediate/escalate -> decide, until the target is
// approved or the iteration budget runs out. A session lives for the
// duration of one monitoring run; it exclusively owns its escalated-ID set
// and its fix log.
//
// Review Host fetch failures are fatal to the run and propagate out of Run;
// the design prefers visible failure over continuing on stale state.
// Formatter and VCS failures inside an iteration are non-fatal and surface
// as warnings.
type Session struct {
	host        driven.ReviewHost
	vcs         driven.VCS
	remediator  *Remediator
	escalator   *Escalator
	categorizer *Categorizer
	store       driven.SessionStore // Optional; nil disables persistence.
	target      model.Target
	cfg         SessionConfig
	logger      *slog.Logger

	mu          sync.Mutex // Guards the fields below for Snapshot readers.
	state       model.SessionState
	iterations  int
	escalated   map[int64]bool
	fixes       []model.FixRecord
	escalations []model.EscalationRecord
	openDesign  []model.Comment // Design comments still unresolved after the last pass.
	warnings    []string
	startedAt   time.Time
}

// NewSession creates a Session for the given target.
func NewSession(
	host driven.ReviewHost,
	vcs driven.VCS,
	remediator *Remediator,
	escalator *Escalator,
	categorizer *Categorizer,
	store driven.SessionStore,
	target model.Target,
	cfg SessionConfig,
) *Session {
	return &Session{
		host:        host,
		vcs:         vcs,
		remediator:  remediator,
		escalator:   escalator,
		categorizer: categorizer,
		store:       store,
		target:      target,
		cfg:         cfg,
		logger:      slog.Default().With("target", target.Key()),
		state:       model.StateWaitingInitial,
		escalated:   make(map[int64]bool),
	}
}

// Run executes the loop until a terminal state or a fatal error. It blocks
// for the session's lifetime; suspensions are plain timed delays that
// respect context cancellation. On a terminal transition the summary comment
// is posted, the session is persisted, and its in-memory state is discarded
// with the Session itself.
func (s *Session) Run(ctx context.Context) (model.SessionState, error) {
	s.mu.Lock()
	s.startedAt = time.Now().UTC()
	s.mu.Unlock()

	s.logger.Info("session started",
		"initial_wait", s.cfg.InitialWait,
		"check_interval", s.cfg.CheckInterval,
		"max_iterations", s.cfg.MaxIterations,
	)

	s.setState(model.StateWaitingInitial)
	if err := s.suspend(ctx, s.cfg.InitialWait); err != nil {
		return s.currentState(), err
	}

	author, err := s.host.FetchAuthor(ctx, s.target)
	if err != nil {
		return s.currentState(), fmt.Errorf("fetching author for %s: %w", s.target.Key(), err)
	}

	for {
		s.setState(model.StateAnalyzing)

		comments, err := s.host.FetchComments(ctx, s.target)
		if err != nil {
			return s.currentState(), fmt.Errorf("fetching comments for %s: %w", s.target.Key(), err)
		}

		approval, err := s.host.FetchApproval(ctx, s.target)
		if err != nil {
			return s.currentState(), fmt.Errorf("fetching approval for %s: %w", s.target.Key(), err)
		}

		formatting, design := s.categorizer.Partition(comments)
		s.logger.Info("comments analyzed",
			"total", len(comments),
			"formatting", len(formatting),
			"design", len(design),
		)

		if len(formatting) > 0 {
			s.setState(model.StateRemediating)
			batch := s.remediator.Remediate(ctx, s.target, s.vcs, formatting)
			s.recordBatch(batch)
		}

		// The open-design view tracks the current pass, so a design comment
		// resolved or deleted before the final pass drops out of the summary.
		s.setOpenDesign(design)

		if len(design) > 0 {
			s.setState(model.StateEscalating)
			result := s.escalator.Escalate(ctx, s.target, author, design, s.escalated)
			s.recordEscalations(result)
		}

		s.setState(model.StateDeciding)

		if approval.SatisfiedBy(s.cfg.RequiredReviewers) {
			s.setState(model.StateApproved)
			return s.finish(ctx)
		}

		// No comments at all means there is nothing to act on yet: wait for
		// a human response without burning iteration budget.
		if len(comments) == 0 {
			s.setState(model.StateAwaitingHuman)
			s.logger.Info("no comments yet, awaiting human response")
			if err := s.suspend(ctx, s.cfg.CheckInterval); err != nil {
				return s.currentState(), err
			}
			continue
		}

		s.mu.Lock()
		s.iterations++
		exhausted := s.iterations >= s.cfg.MaxIterations
		iteration := s.iterations
		s.mu.Unlock()

		s.logger.Info("iteration complete", "iteration", iteration, "decision", string(approval.Decision))

		if exhausted {
			s.setState(model.StateMaxIterations)
			return s.finish(ctx)
		}

		if err := s.suspend(ctx, s.cfg.CheckInterval); err != nil {
			return s.currentState(), err
		}
	}
}

// Snapshot returns a point-in-time view of the session for the status API.
func (s *Session) Snapshot() model.SessionSummary {
	s.mu.Lock()
	defer s.mu.Unlock()

	return model.SessionSummary{
		Target:      s.target.Key(),
		URL:         s.target.URL,
		State:       s.state,
		Iterations:  s.iterations,
		Fixes:       append([]model.FixRecord(nil), s.fixes...),
		Escalations: append([]model.EscalationRecord(nil), s.escalations...),
		StartedAt:   s.startedAt,
	}
}

// finish posts the terminal summary, persists the session, and returns the
// terminal state. Neither posting nor persistence failure alters the
// outcome: the actions the summary describes already took effect.
func (s *Session) finish(ctx context.Context) (model.SessionState, error) {
	summary := s.Snapshot()
	summary.EndedAt = time.Now().UTC()
	summary.Summary = s.composeSummary(summary)

	s.logger.Info("session finished",
		"state", string(summary.State),
		"iterations", summary.Iterations,
		"fixes", len(summary.Fixes),
		"escalations", len(summary.Escalations),
	)

	if err := s.host.PostComment(ctx, s.target, summary.Summary); err != nil {
		s.logger.Warn("summary post failed", "error", err)
	}

	if s.store != nil {
		if _, err := s.store.SaveSession(ctx, summary); err != nil {
			s.logger.Warn("session persistence failed", "error", err)
		}
	}

	return summary.State, nil
}

// composeSummary builds the terminal summary comment: iteration count, fixes
// applied, escalations raised, and remaining open items.
func (s *Session) composeSummary(summary model.SessionSummary) string {
	s.mu.Lock()
	openDesign := append([]model.Comment(nil), s.openDesign...)
	warnings := append([]string(nil), s.warnings...)
	s.mu.Unlock()

	var b strings.Builder
	switch summary.State {
	case model.StateApproved:
		b.WriteString("🤖 **Auto-response session complete: approved.**\n\n")
	case model.StateMaxIterations:
		b.WriteString("🤖 **Auto-response session stopped: iteration budget exhausted.**\n\n")
	}

	fmt.Fprintf(&b, "Iterations: %d\n\n", summary.Iterations)

	if len(summary.Fixes) > 0 {
		b.WriteString("**Fixes applied:**\n")
		for _, fix := range summary.Fixes {
			fmt.Fprintf(&b, "- `%s` (%s)\n", fix.Path, fix.Tool)
		}
		b.WriteString("\n")
	} else {
		b.WriteString("No automatic fixes were applied.\n\n")
	}

	if len(summary.Escalations) > 0 {
		b.WriteString("**Escalations raised:**\n")
		for _, esc := range summary.Escalations {
			fmt.Fprintf(&b, "- @%s at %s — %s\n", esc.Commenter, esc.Location, esc.CommentURL)
		}
		b.WriteString("\n")
	}

	if len(openDesign) > 0 && summary.State == model.StateMaxIterations {
		b.WriteString("**Remaining open items:**\n")
		for _, c := range openDesign {
			fmt.Fprintf(&b, "- @%s at %s — %s\n", c.Author, c.Location(), c.URL)
		}
		b.WriteString("\n")
	}

	if len(warnings) > 0 {
		b.WriteString("**Warnings:**\n")
		for _, w := range warnings {
			fmt.Fprintf(&b, "- %s\n", w)
		}
	}

	return strings.TrimRight(b.String(), "\n") + "\n"
}

func (s *Session) recordBatch(batch model.RemediationBatch) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.fixes = append(s.fixes, batch.Fixes...)
	s.warnings = append(s.warnings, batch.Warnings...)
}

func (s *Session) recordEscalations(result model.EscalationResult) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.escalations = append(s.escalations, result.Posted...)
	s.warnings = append(s.warnings, result.Warnings...)
}

func (s *Session) setOpenDesign(design []model.Comment) {
	s.mu.Lock()
	s.openDesign = design
	s.mu.Unlock()
}

func (s *Session) setState(state model.SessionState) {
	s.mu.Lock()
	s.state = state
	s.mu.Unlock()
}

func (s *Session) currentState() model.SessionState {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.state
}

// suspend sleeps for d or until the context is canceled. Suspensions are the
// only points where cancellation is observed; once an iteration's actions
// begin they run to completion.
func (s *Session) suspend(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}

	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
