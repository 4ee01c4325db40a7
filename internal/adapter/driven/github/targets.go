package github

import (
	"context"
	"fmt"
	"strings"

	gh "github.com/google/go-github/v82/github"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// DiscoverTargets returns the open pull requests authored by the monitored
// user across the watched repositories. It handles pagination automatically
// and maps go-github types to domain model types.
func (c *Client) DiscoverTargets(ctx context.Context) ([]model.Target, error) {
	var targets []model.Target

	for _, repoFullName := range c.repos {
		owner, repo, err := splitRepo(repoFullName)
		if err != nil {
			return nil, err
		}

		opts := &gh.PullRequestListOptions{
			State:     "open",
			Sort:      "updated",
			Direction: "desc",
			ListOptions: gh.ListOptions{
				PerPage: 100,
			},
		}

		for {
			prs, resp, err := c.gh.PullRequests.List(ctx, owner, repo, opts)
			if err != nil {
				return nil, fmt.Errorf("listing pull requests for %s (page %d): %w", repoFullName, opts.Page, err)
			}

			logRateLimit(resp, repoFullName, opts.Page, len(prs))

			for _, pr := range prs {
				if !strings.EqualFold(pr.GetUser().GetLogin(), c.username) {
					continue
				}
				if pr.GetDraft() {
					continue
				}
				targets = append(targets, mapTarget(pr, repoFullName))
			}

			if resp.NextPage == 0 {
				break
			}
			opts.Page = resp.NextPage
		}
	}

	if targets == nil {
		targets = []model.Target{}
	}

	return targets, nil
}

// mapTarget converts a go-github PullRequest to a domain model Target.
// It uses GetXxx() helper methods exclusively to avoid nil pointer panics.
func mapTarget(pr *gh.PullRequest, repoFullName string) model.Target {
	return model.Target{
		RepoFullName: repoFullName,
		Number:       pr.GetNumber(),
		Branch:       pr.GetHead().GetRef(),
		CloneURL:     pr.GetHead().GetRepo().GetCloneURL(),
		URL:          pr.GetHTMLURL(),
	}
}
