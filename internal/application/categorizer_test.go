package application_test

import (
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/prshepherd/prshepherd/internal/application"
	"github.com/prshepherd/prshepherd/internal/domain/model"
)

func TestCategorize_PrecedenceOrder(t *testing.T) {
	c := application.NewCategorizer(application.Keywords{})

	tests := []struct {
		name string
		body string
		want model.Category
	}{
		{
			name: "approval wins over style indicator",
			body: "LGTM! Nice coding style",
			want: model.CategoryInformational,
		},
		{
			name: "approval wins over escalation keyword",
			body: "Looks good, great architecture",
			want: model.CategoryInformational,
		},
		{
			name: "style indicator plus action word",
			body: "This needs better indentation",
			want: model.CategoryFormatting,
		},
		{
			name: "style indicator with different action word",
			body: "Wrong style, should use a formatter",
			want: model.CategoryFormatting,
		},
		{
			name: "style indicator without action word",
			body: "I love this code style",
			want: model.CategoryInformational,
		},
		{
			name: "escalation keyword",
			body: "Why did you choose this approach?",
			want: model.CategoryDesign,
		},
		{
			name: "escalation wins over style plus action",
			body: "Please fix the indentation, and consider a different pattern",
			want: model.CategoryDesign,
		},
		{
			name: "no keywords at all",
			body: "Thanks for the update",
			want: model.CategoryInformational,
		},
		{
			name: "empty body",
			body: "",
			want: model.CategoryInformational,
		},
		{
			name: "case insensitive matching",
			body: "PLEASE FIX THE WHITESPACE",
			want: model.CategoryFormatting,
		},
		{
			name: "emoji approval marker",
			body: "👍",
			want: model.CategoryInformational,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, c.Categorize(tt.body))
		})
	}
}

func TestCategorize_KeywordOverrideReplacesDefaults(t *testing.T) {
	c := application.NewCategorizer(application.Keywords{
		Escalation: []string{"tradeoff"},
	})

	// The default escalation keywords no longer apply once overridden.
	assert.Equal(t, model.CategoryInformational, c.Categorize("why this architecture?"))
	assert.Equal(t, model.CategoryDesign, c.Categorize("There is a tradeoff here"))
}

func TestCategorize_EmptyOverrideKeepsDefaults(t *testing.T) {
	c := application.NewCategorizer(application.Keywords{Escalation: []string{}})

	assert.Equal(t, model.CategoryDesign, c.Categorize("why this approach?"))
}

func TestPartition(t *testing.T) {
	c := application.NewCategorizer(application.Keywords{})

	comments := []model.Comment{
		{ID: 1, Body: "Please fix the formatting here", Path: "a.py", Line: 3},
		{ID: 2, Body: "Why this approach?"},
		{ID: 3, Body: "LGTM"},
		{ID: 4, Body: "just a note"},
	}

	formatting, design := c.Partition(comments)

	assert.Len(t, formatting, 1)
	assert.Equal(t, int64(1), formatting[0].ID)
	assert.Equal(t, model.CategoryFormatting, formatting[0].Category)

	assert.Len(t, design, 1)
	assert.Equal(t, int64(2), design[0].ID)
	assert.Equal(t, model.CategoryDesign, design[0].Category)
}

func TestPartition_CategoryDerivedFreshEachCall(t *testing.T) {
	c := application.NewCategorizer(application.Keywords{})

	// A stale category on the input must not survive re-partitioning.
	comments := []model.Comment{
		{ID: 1, Body: "LGTM", Category: model.CategoryDesign},
	}

	formatting, design := c.Partition(comments)
	assert.Empty(t, formatting)
	assert.Empty(t, design)
}
