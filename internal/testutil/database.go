// Package testutil provides test utilities with proper test isolation for
// the sift project.
package testutil

import (
	"context"
	"testing"

	"github.com/haldana/sift/internal/model"
	"github.com/haldana/sift/internal/service"
	"github.com/haldana/sift/internal/storage"
)

// TestDB wraps an in-memory test database with seeding helpers.
type TestDB struct {
	Storage service.Storage
	t       *testing.T
}

// SetupTestDB creates a migrated in-memory SQLite database and registers
// cleanup with the test.
func SetupTestDB(t *testing.T) *TestDB {
	t.Helper()

	store, err := storage.NewSQLiteStorage(":memory:")
	if err != nil {
		t.Fatalf("failed to create test database: %v", err)
	}

	if err := store.Migrate(context.Background()); err != nil {
		t.Fatalf("failed to run migrations: %v", err)
	}

	t.Cleanup(func() {
		_ = store.Close()
	})

	return &TestDB{Storage: store, t: t}
}

// SeedFeed creates a feed and returns it.
func (db *TestDB) SeedFeed(title, url string) *model.Feed {
	db.t.Helper()

	feed := &model.Feed{Title: title, URL: url}
	if err := db.Storage.CreateFeed(context.Background(), feed); err != nil {
		db.t.Fatalf("failed to seed feed %q: %v", title, err)
	}
	return feed
}

// SeedArticle stores one article for a feed and returns its snapshot.
func (db *TestDB) SeedArticle(feedID int64, article model.Article) *model.Article {
	db.t.Helper()

	ctx := context.Background()
	article.FeedID = feedID
	if article.GUID == "" {
		article.GUID = article.Link
	}

	if _, err := db.Storage.SaveArticles(ctx, []model.Article{article}); err != nil {
		db.t.Fatalf("failed to seed article %q: %v", article.Title, err)
	}

	articles, err := db.Storage.GetArticles(ctx, service.ArticleFilter{FeedID: &feedID})
	if err != nil {
		db.t.Fatalf("failed to load seeded articles: %v", err)
	}
	for i := range articles {
		if articles[i].GUID == article.GUID {
			full, err := db.Storage.GetArticleByID(ctx, articles[i].ID)
			if err != nil {
				db.t.Fatalf("failed to load seeded article: %v", err)
			}
			return full
		}
	}

	db.t.Fatalf("seeded article %q not found", article.Title)
	return nil
}

// SeedRule creates a rule and returns it.
func (db *TestDB) SeedRule(rule model.Rule) *model.Rule {
	db.t.Helper()

	if rule.ActionType == "" {
		rule.ActionType = model.ActionMarkAsRead
	}
	if rule.Scope == "" {
		rule.Scope = model.ScopeAllFeeds
	}
	if rule.Confidence == 0 {
		rule.Confidence = 1.0
	}

	if err := db.Storage.CreateRule(context.Background(), &rule); err != nil {
		db.t.Fatalf("failed to seed rule %q: %v", rule.Name, err)
	}
	return &rule
}
