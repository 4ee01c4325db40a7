package application

import (
	"context"
	"fmt"
	"log/slog"
	"strings"
	"time"

	"github.com/prshepherd/prshepherd/internal/domain/model"
	"github.com/prshepherd/prshepherd/internal/domain/port/driven"
)

// Escalator hands design-flagged comments off to the pull request author.
// Escalation is best-effort per comment: a posting failure is logged and the
// remaining comments in the batch are still processed.
type Escalator struct {
	host   driven.ReviewHost
	logger *slog.Logger
}

// NewEscalator creates an Escalator.
func NewEscalator(host driven.ReviewHost) *Escalator {
	return &Escalator{
		host:   host,
		logger: slog.Default(),
	}
}

// Escalate posts one escalation per design comment not already present in
// escalated. The set is owned by the calling session and persists across
// iterations; without it, an unresolved design comment would generate a
// fresh escalation every iteration, spamming the author. A comment's ID is
// recorded only after its escalation posts successfully, so a failed post is
// retried on the next iteration.
func (e *Escalator) Escalate(ctx context.Context, target model.Target, author string, comments []model.Comment, escalated map[int64]bool) model.EscalationResult {
	var result model.EscalationResult

	for _, comment := range comments {
		if escalated[comment.ID] {
			continue
		}

		body := escalationMessage(author, comment)
		if err := e.host.PostComment(ctx, target, body); err != nil {
			e.logger.Warn("escalation post failed",
				"target", target.Key(), "comment", comment.ID, "error", err)
			result.Warnings = append(result.Warnings,
				fmt.Sprintf("escalation for comment %d failed: %v", comment.ID, err))
			continue
		}

		escalated[comment.ID] = true
		result.Posted = append(result.Posted, model.EscalationRecord{
			CommentID:  comment.ID,
			Commenter:  comment.Author,
			Location:   comment.Location(),
			CommentURL: comment.URL,
			PostedAt:   time.Now().UTC(),
		})

		e.logger.Info("escalated design comment",
			"target", target.Key(), "comment", comment.ID, "commenter", comment.Author)
	}

	return result
}

// escalationMessage names the author, the original commenter, the location,
// and the permalink, and quotes the comment body verbatim.
func escalationMessage(author string, c model.Comment) string {
	var b strings.Builder
	fmt.Fprintf(&b, "🤖 @%s — this review comment raises a design question that needs your decision.\n\n", author)
	fmt.Fprintf(&b, "**From:** @%s\n", c.Author)
	fmt.Fprintf(&b, "**Location:** %s\n", c.Location())
	fmt.Fprintf(&b, "**Link:** %s\n\n", c.URL)
	for _, line := range strings.Split(c.Body, "\n") {
		fmt.Fprintf(&b, "> %s\n", line)
	}
	return b.String()
}
