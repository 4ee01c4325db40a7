package github

import (
	"context"
	"fmt"
	"sort"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// FetchComments returns all reviewer comments on the target ordered by
// creation time: top-level conversation comments (Issues API), inline review
// comments (Pull Requests API), and non-empty review bodies, merged into one
// list. Comments authored by the monitored user are excluded — the
// responder's own acknowledgements and escalations must never feed back into
// categorization.
func (c *Client) FetchComments(ctx context.Context, target model.Target) ([]model.Comment, error) {
	owner, repo, err := splitRepo(target.RepoFullName)
	if err != nil {
		return nil, err
	}

	var all []model.Comment

	issueComments, err := c.fetchIssueComments(ctx, owner, repo, target.Number)
	if err != nil {
		return nil, err
	}
	all = append(all, issueComments...)

	reviewComments, err := c.fetchReviewComments(ctx, owner, repo, target.Number)
	if err != nil {
		return nil, err
	}
	all = append(all, reviewComments...)

	reviews, err := c.listReviews(ctx, owner, repo, target.Number)
	if err != nil {
		return nil, err
	}
	for _, r := range reviews {
		if r.GetBody() == "" || c.isSelf(r.GetUser().GetLogin()) {
			continue
		}
		all = append(all, model.Comment{
			ID:        r.GetID(),
			Author:    r.GetUser().GetLogin(),
			Body:      r.GetBody(),
			URL:       r.GetHTMLURL(),
			Category:  model.CategoryUncategorized,
			CreatedAt: r.GetSubmittedAt().Time,
		})
	}

	sort.SliceStable(all, func(i, j int) bool { return all[i].CreatedAt.Before(all[j].CreatedAt) })

	if all == nil {
		all = []model.Comment{}
	}

	return all, nil
}

// FetchApproval returns the aggregated review decision plus the latest state
// of each reviewer, computed from the raw review list. Comment-only reviews
// do not override a reviewer's prior approval or change request, matching
// GitHub's own decision semantics.
func (c *Client) FetchApproval(ctx context.Context, target model.Target) (model.ApprovalStatus, error) {
	owner, repo, err := splitRepo(target.RepoFullName)
	if err != nil {
		return model.ApprovalStatus{}, err
	}

	reviews, err := c.listReviews(ctx, owner, repo, target.Number)
	if err != nil {
		return model.ApprovalStatus{}, err
	}

	states := make(map[string]model.ReviewState)
	for _, r := range reviews {
		login := r.GetUser().GetLogin()
		if login == "" || c.isSelf(login) {
			continue
		}

		switch model.ReviewState(strings.ToLower(r.GetState())) {
		case model.ReviewStateApproved:
			states[login] = model.ReviewStateApproved
		case model.ReviewStateChangesRequested:
			states[login] = model.ReviewStateChangesRequested
		case model.ReviewStateDismissed:
			states[login] = model.ReviewStateDismissed
		}
	}

	decision := model.DecisionReviewRequired
	for _, state := range states {
		if state == model.ReviewStateChangesRequested {
			decision = model.DecisionChangesRequested
			break
		}
		if state == model.ReviewStateApproved {
			decision = model.DecisionApproved
		}
	}

	return model.ApprovalStatus{
		Decision:       decision,
		ReviewerStates: states,
	}, nil
}

// PostComment adds a top-level comment to the target via the Issues API.
func (c *Client) PostComment(ctx context.Context, target model.Target, body string) error {
	owner, repo, err := splitRepo(target.RepoFullName)
	if err != nil {
		return err
	}

	_, resp, err := c.gh.Issues.CreateComment(ctx, owner, repo, target.Number, &gh.IssueComment{
		Body: gh.Ptr(body),
	})
	if err != nil {
		return fmt.Errorf("creating comment on %s#%d: %w", target.RepoFullName, target.Number, err)
	}

	logRateLimit(resp, target.RepoFullName+"/create-comment", 0, 1)
	return nil
}

// FetchAuthor returns the login of the target pull request's author.
func (c *Client) FetchAuthor(ctx context.Context, target model.Target) (string, error) {
	owner, repo, err := splitRepo(target.RepoFullName)
	if err != nil {
		return "", err
	}

	pr, resp, err := c.gh.PullRequests.Get(ctx, owner, repo, target.Number)
	if err != nil {
		return "", fmt.Errorf("fetching author for %s#%d: %w", target.RepoFullName, target.Number, err)
	}

	logRateLimit(resp, target.RepoFullName+"/pr-detail", 0, 1)
	return pr.GetUser().GetLogin(), nil
}

// fetchIssueComments retrieves all PR-level conversation comments.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) fetchIssueComments(ctx context.Context, owner, repo string, number int) ([]model.Comment, error) {
	opts := &gh.IssueListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []model.Comment

	for {
		comments, resp, err := c.gh.Issues.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing issue comments for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/issue-comments", opts.Page, len(comments))

		for _, comment := range comments {
			if c.isSelf(comment.GetUser().GetLogin()) {
				continue
			}
			all = append(all, model.Comment{
				ID:        comment.GetID(),
				Author:    comment.GetUser().GetLogin(),
				Body:      comment.GetBody(),
				URL:       comment.GetHTMLURL(),
				Category:  model.CategoryUncategorized,
				CreatedAt: comment.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// fetchReviewComments retrieves all inline code comments.
// It handles pagination automatically and maps go-github types to domain model types.
func (c *Client) fetchReviewComments(ctx context.Context, owner, repo string, number int) ([]model.Comment, error) {
	opts := &gh.PullRequestListCommentsOptions{
		ListOptions: gh.ListOptions{PerPage: 100},
	}
	var all []model.Comment

	for {
		comments, resp, err := c.gh.PullRequests.ListComments(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing review comments for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/review-comments", opts.Page, len(comments))

		for _, comment := range comments {
			if c.isSelf(comment.GetUser().GetLogin()) {
				continue
			}
			all = append(all, model.Comment{
				ID:        comment.GetID(),
				Author:    comment.GetUser().GetLogin(),
				Body:      comment.GetBody(),
				Path:      comment.GetPath(),
				Line:      comment.GetLine(),
				URL:       comment.GetHTMLURL(),
				Category:  model.CategoryUncategorized,
				CreatedAt: comment.GetCreatedAt().Time,
			})
		}

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

// listReviews retrieves all reviews for a pull request with pagination.
func (c *Client) listReviews(ctx context.Context, owner, repo string, number int) ([]*gh.PullRequestReview, error) {
	opts := &gh.ListOptions{PerPage: 100}
	var all []*gh.PullRequestReview

	for {
		reviews, resp, err := c.gh.PullRequests.ListReviews(ctx, owner, repo, number, opts)
		if err != nil {
			return nil, fmt.Errorf("listing reviews for %s/%s#%d (page %d): %w", owner, repo, number, opts.Page, err)
		}

		logRateLimit(resp, owner+"/"+repo+"/reviews", opts.Page, len(reviews))

		all = append(all, reviews...)

		if resp.NextPage == 0 {
			break
		}
		opts.Page = resp.NextPage
	}

	return all, nil
}

func (c *Client) isSelf(login string) bool {
	return strings.EqualFold(login, c.username)
}
