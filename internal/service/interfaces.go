// Package service defines the interfaces for all application services.
package service

import (
	"context"
	"time"

	"github.com/haldana/sift/internal/model"
)

// ArticleFilter defines filtering options for article queries.
type ArticleFilter struct {
	FeedID     *int64
	UnreadOnly bool
	Limit      int
	Offset     int
}

// Storage defines the contract for the persistence layer.
type Storage interface {
	// Article operations
	SaveArticles(ctx context.Context, articles []model.Article) (int, error)
	GetArticleByID(ctx context.Context, id int64) (*model.Article, error)
	GetArticles(ctx context.Context, filter ArticleFilter) ([]model.Article, error)
	SetReadState(ctx context.Context, articleID int64, isRead bool) error
	ToggleStarred(ctx context.Context, articleID int64) error
	ApplyTag(ctx context.Context, articleID, tagID int64, appliedBy string, ruleID int64, confidence float64) error

	// Feed operations
	CreateFeed(ctx context.Context, feed *model.Feed) error
	GetFeeds(ctx context.Context) ([]model.Feed, error)
	GetFeedByID(ctx context.Context, id int64) (*model.Feed, error)
	DeleteFeed(ctx context.Context, id int64) error
	MoveFeedToCategory(ctx context.Context, feedID, categoryID int64) error
	MarkFeedFetched(ctx context.Context, feedID int64, fetchedAt time.Time) error

	// Category operations
	CreateCategory(ctx context.Context, name, description string) (*model.Category, error)
	GetCategories(ctx context.Context) ([]model.Category, error)
	GetCategoryByID(ctx context.Context, id int64) (*model.Category, error)
	GetCategoryByName(ctx context.Context, name string) (*model.Category, error)

	// Tag operations
	GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error)
	GetTags(ctx context.Context) ([]model.Tag, error)
	GetAppliedTags(ctx context.Context, articleID int64) ([]model.AppliedTag, error)

	// Rule operations
	CreateRule(ctx context.Context, rule *model.Rule) error
	GetRule(ctx context.Context, id int64) (*model.Rule, error)
	GetRules(ctx context.Context) ([]model.Rule, error)
	GetActiveRules(ctx context.Context) ([]model.Rule, error)
	UpdateRule(ctx context.Context, rule *model.Rule) error
	DeleteRule(ctx context.Context, id int64) error
	SetRuleEnabled(ctx context.Context, id int64, enabled bool) error
	RecordRuleMatch(ctx context.Context, ruleID int64, matchedAt time.Time) (int, error)

	// Database management
	Migrate(ctx context.Context) error
	Close() error
}
