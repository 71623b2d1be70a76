// Package rules implements the rule evaluation and matching engine: deciding
// whether an article satisfies a user-defined rule, combining conditions with
// logical operators, scanning the rule set in priority order, and executing
// the associated action exactly once per qualifying match.
package rules

import (
	"context"
	"time"

	"github.com/haldana/sift/internal/model"
)

// ArticleSource resolves article identifiers to evaluation snapshots.
// A failure to resolve an identifier is treated as "no match" for that ID.
type ArticleSource interface {
	GetArticleByID(ctx context.Context, id int64) (*model.Article, error)
}

// RuleSource loads the active rule set for an evaluation run.
type RuleSource interface {
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
}

// MatchRecorder persists match statistics. RecordRuleMatch performs an
// atomic increment-and-fetch of the rule's match count and returns the new
// count; two articles matching the same rule concurrently must not lose an
// increment.
type MatchRecorder interface {
	RecordRuleMatch(ctx context.Context, ruleID int64, matchedAt time.Time) (int, error)
}

// StateMutator updates per-article read/starred state.
type StateMutator interface {
	SetReadState(ctx context.Context, articleID int64, isRead bool) error
	ToggleStarred(ctx context.Context, articleID int64) error
}

// CategoryMutator moves an article's owning feed to a category.
type CategoryMutator interface {
	MoveFeedToCategory(ctx context.Context, feedID, categoryID int64) error
}

// TagMutator applies a tag to an article, with provenance and confidence.
type TagMutator interface {
	ApplyTag(ctx context.Context, articleID, tagID int64, appliedBy string, ruleID int64, confidence float64) error
}

// Notifier delivers rule-match notifications.
type Notifier interface {
	Notify(ctx context.Context, articleID, ruleID int64, priority int) error
}
