package model

import "fmt"

// Target identifies one pull request under monitoring.
type Target struct {
	RepoFullName string // "owner/repo"
	Number       int
	Branch       string // Head branch remediation commits are pushed to.
	CloneURL     string
	URL          string // HTML permalink.
}

// Key returns the registry key used to prevent two sessions from
// concurrently driving the same pull request.
func (t Target) Key() string {
	return fmt.Sprintf("%s#%d", t.RepoFullName, t.Number)
}
