package rules

import (
	"time"

	"github.com/haldana/sift/internal/model"
)

// ExtractField returns the scalar text value of a field target for an
// article. It never fails; an absent field yields the empty string, which
// later drives IsEmpty semantics. For set-valued targets (Category, Tag)
// use ExtractFieldSet instead.
func ExtractField(article *model.Article, target model.FieldTarget) string {
	if article == nil {
		return ""
	}

	switch target {
	case model.FieldTitle:
		return article.Title
	case model.FieldContent:
		return article.Content
	case model.FieldSummary:
		return article.Summary
	case model.FieldAuthor:
		return article.Author
	case model.FieldLink:
		return article.Link
	case model.FieldPublishedDate:
		if article.PublishedAt.IsZero() {
			return ""
		}
		return article.PublishedAt.Format(time.RFC3339)
	}
	return ""
}

// ExtractFieldSet returns the name set for the Category and Tag targets.
// Membership, not substring-of-concatenation, is what Contains/Equals test
// against these targets.
func ExtractFieldSet(article *model.Article, target model.FieldTarget) []string {
	if article == nil {
		return nil
	}

	switch target {
	case model.FieldCategory:
		return article.Categories
	case model.FieldTag:
		return article.Tags
	}
	return nil
}
