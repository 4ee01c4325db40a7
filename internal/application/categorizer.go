// Package application contains use-case orchestration services.
package application

import (
	"strings"

	"github.com/prshepherd/prshepherd/internal/domain/model"
)

// Keywords holds the keyword sets driving comment categorization. Matching is
// case-insensitive and substring-based. Overriding a set replaces it wholly;
// there is no merge with the defaults.
type Keywords struct {
	// Approval markers short-circuit all other rules: praise frequently
	// contains the very words used to detect real issues.
	Approval []string
	// Escalation keywords flag comments that need a human decision.
	Escalation []string
	// StyleIndicators alone do not trigger remediation; an action word must
	// also be present so that praise like "great coding style" is not
	// misrouted into an auto-fix attempt.
	StyleIndicators []string
	ActionWords     []string
}

// DefaultKeywords returns the documented default keyword sets.
func DefaultKeywords() Keywords {
	return Keywords{
		Approval: []string{
			"lgtm", "looks good", "approved", "nice work", "great",
			"awesome", "perfect", "well done",
			"👍", "✅", "🎉", ":+1:", ":white_check_mark:",
		},
		Escalation: []string{
			"design", "architecture", "approach", "pattern", "structure",
			"refactor", "breaking change", "api", "interface",
			"performance concern", "security concern", "alternative",
			"consider", "should we", "why", "rationale",
		},
		StyleIndicators: []string{
			"formatting", "style", "indent", "whitespace", "lint",
		},
		ActionWords: []string{
			"fix", "need", "should", "must", "please",
			"incorrect", "wrong", "issue",
		},
	}
}

// Categorizer maps comment text to a category. Categorization is pure,
// deterministic, and total: every input yields exactly one category.
type Categorizer struct {
	kw Keywords
}

// NewCategorizer creates a Categorizer. Keyword sets are lower-cased once at
// construction. An empty escalation set falls back to the defaults so a
// misconfigured override cannot disable escalation entirely.
func NewCategorizer(kw Keywords) *Categorizer {
	defaults := DefaultKeywords()
	if len(kw.Approval) == 0 {
		kw.Approval = defaults.Approval
	}
	if len(kw.Escalation) == 0 {
		kw.Escalation = defaults.Escalation
	}
	if len(kw.StyleIndicators) == 0 {
		kw.StyleIndicators = defaults.StyleIndicators
	}
	if len(kw.ActionWords) == 0 {
		kw.ActionWords = defaults.ActionWords
	}

	return &Categorizer{kw: Keywords{
		Approval:        lowerAll(kw.Approval),
		Escalation:      lowerAll(kw.Escalation),
		StyleIndicators: lowerAll(kw.StyleIndicators),
		ActionWords:     lowerAll(kw.ActionWords),
	}}
}

// Categorize returns the category for a comment body. Rules are evaluated in
// strict precedence order:
//
//  1. Approval marker present -> informational. Checked first so positive
//     feedback containing a design or style word is never misclassified.
//  2. Escalation keyword present -> design.
//  3. Style indicator AND action word present -> formatting. Both are
//     required; a bare mention of "style" does not qualify.
//  4. Otherwise -> informational. Empty bodies land here.
//
// A comment matching several rules takes the first matching rule only.
func (c *Categorizer) Categorize(body string) model.Category {
	lower := strings.ToLower(body)

	if containsAny(lower, c.kw.Approval) {
		return model.CategoryInformational
	}

	if containsAny(lower, c.kw.Escalation) {
		return model.CategoryDesign
	}

	if containsAny(lower, c.kw.StyleIndicators) && containsAny(lower, c.kw.ActionWords) {
		return model.CategoryFormatting
	}

	return model.CategoryInformational
}

// Partition assigns a category to every comment and splits the slice into
// the formatting and design partitions. Informational comments take no
// action and are dropped. Every comment is categorized before any of them is
// acted on; the category is derived fresh on each call with no memory of
// prior passes.
func (c *Categorizer) Partition(comments []model.Comment) (formatting, design []model.Comment) {
	for _, comment := range comments {
		comment.Category = c.Categorize(comment.Body)

		switch comment.Category {
		case model.CategoryFormatting:
			formatting = append(formatting, comment)
		case model.CategoryDesign:
			design = append(design, comment)
		}
	}

	return formatting, design
}

func containsAny(haystack string, needles []string) bool {
	for _, n := range needles {
		if strings.Contains(haystack, n) {
			return true
		}
	}
	return false
}

func lowerAll(in []string) []string {
	out := make([]string, len(in))
	for i, s := range in {
		out[i] = strings.ToLower(s)
	}
	return out
}
