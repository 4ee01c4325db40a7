package model

import "strings"

// ReviewState represents the state of a submitted review.
type ReviewState string

const (
	ReviewStateApproved         ReviewState = "approved"
	ReviewStateChangesRequested ReviewState = "changes_requested"
	ReviewStateCommented        ReviewState = "commented"
	ReviewStatePending          ReviewState = "pending"
	ReviewStateDismissed        ReviewState = "dismissed"
)

// ReviewDecision is the aggregated review decision for a pull request.
type ReviewDecision string

const (
	DecisionApproved         ReviewDecision = "approved"
	DecisionChangesRequested ReviewDecision = "changes_requested"
	DecisionReviewRequired   ReviewDecision = "review_required"
)

// ApprovalStatus is a point-in-time snapshot of a pull request's review
// decision: the aggregated decision plus the latest state of each reviewer.
type ApprovalStatus struct {
	Decision ReviewDecision
	// ReviewerStates maps reviewer login to the state of that reviewer's
	// most recent submitted review.
	ReviewerStates map[string]ReviewState
}

// SatisfiedBy reports whether the status meets the exit condition for the
// given required reviewers. With a non-empty required set, every named
// reviewer's latest state must be approved; the aggregated decision is
// ignored since it can be satisfied by reviewers outside the required set.
// With an empty required set, the aggregated decision alone governs.
func (a ApprovalStatus) SatisfiedBy(required []string) bool {
	if len(required) == 0 {
		return a.Decision == DecisionApproved
	}

	for _, login := range required {
		approved := false
		for reviewer, state := range a.ReviewerStates {
			if strings.EqualFold(reviewer, login) && state == ReviewStateApproved {
				approved = true
				break
			}
		}
		if !approved {
			return false
		}
	}

	return true
}
