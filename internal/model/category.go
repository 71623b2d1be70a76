package model

import (
	"time"
)

// Category groups feeds for organization and is the target of MoveToCategory
// rule actions.
type Category struct {
	CreatedAt   time.Time `json:"created_at"`
	Name        string    `json:"name"`
	Description string    `json:"description"`
	ID          int64     `json:"id"`
}

// Tag is a label applied to individual articles, either manually or by a
// rule's Tag action.
type Tag struct {
	CreatedAt time.Time `json:"created_at"`
	Name      string    `json:"name"`
	ID        int64     `json:"id"`
}

// AppliedTag records a tag application with its provenance. Confidence is a
// 0.0-1.0 score carried through for downstream ranking.
type AppliedTag struct {
	AppliedAt  time.Time `json:"applied_at"`
	AppliedBy  string    `json:"applied_by"`
	RuleID     *int64    `json:"rule_id,omitempty"`
	TagID      int64     `json:"tag_id"`
	ArticleID  int64     `json:"article_id"`
	Confidence float64   `json:"confidence"`
}
