// Package model defines the core data structures for the sift application.
package model

import (
	"time"
)

// Article is an immutable snapshot of a feed item as seen by the rule
// engine. Evaluation never mutates it; a fresh snapshot is supplied per
// evaluation run.
type Article struct {
	PublishedAt time.Time `json:"published_at"`
	CreatedAt   time.Time `json:"created_at"`
	Title       string    `json:"title"`
	Content     string    `json:"content"`
	Summary     string    `json:"summary"`
	Author      string    `json:"author"`
	Link        string    `json:"link"`
	GUID        string    `json:"guid"`
	Categories  []string  `json:"categories,omitempty"`
	Tags        []string  `json:"tags,omitempty"`
	ID          int64     `json:"id"`
	FeedID      int64     `json:"feed_id"`
	IsRead      bool      `json:"is_read"`
	IsStarred   bool      `json:"is_starred"`
}
