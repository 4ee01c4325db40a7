package model

import (
	"fmt"
	"time"
)

// Category classifies a reviewer comment for auto-response routing.
type Category string

const (
	// CategoryUncategorized is the initial state before a categorization pass.
	// A comment is never acted on while uncategorized.
	CategoryUncategorized Category = "uncategorized"
	// CategoryFormatting marks comments eligible for automatic remediation.
	CategoryFormatting Category = "formatting"
	// CategoryDesign marks comments that require a human decision.
	CategoryDesign Category = "design"
	// CategoryInformational marks comments that require no action.
	CategoryInformational Category = "informational"
)

// Comment represents one reviewer remark on a pull request. Inline review
// comments carry a file path and line; top-level conversation comments and
// review bodies do not.
type Comment struct {
	ID        int64
	Author    string
	Body      string
	Path      string // Empty for top-level comments.
	Line      int    // Zero when Path is empty.
	URL       string // Permalink for traceability.
	Category  Category
	CreatedAt time.Time
}

// HasLocation reports whether the comment targets a specific file.
// Only located comments can be auto-fixed.
func (c Comment) HasLocation() bool {
	return c.Path != ""
}

// Location returns a human-readable "path:line" reference, or
// "not applicable" for top-level comments.
func (c Comment) Location() string {
	if !c.HasLocation() {
		return "not applicable"
	}
	if c.Line > 0 {
		return fmt.Sprintf("%s:%d", c.Path, c.Line)
	}
	return c.Path
}
