package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
	"github.com/haldana/sift/internal/service"
	"github.com/haldana/sift/internal/testutil"
)

func TestSaveArticles_Upsert(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	feed := db.SeedFeed("Daily Mix", "https://example.com/feed.xml")

	articles := []model.Article{
		{FeedID: feed.ID, GUID: "g1", Title: "First", PublishedAt: time.Now().UTC()},
		{FeedID: feed.ID, GUID: "g2", Title: "Second"},
	}

	inserted, err := db.Storage.SaveArticles(ctx, articles)
	require.NoError(t, err)
	assert.Equal(t, 2, inserted)

	// Same GUIDs again: existing rows are left alone, not duplicated.
	inserted, err = db.Storage.SaveArticles(ctx, articles)
	require.NoError(t, err)
	assert.Zero(t, inserted)

	stored, err := db.Storage.GetArticles(ctx, service.ArticleFilter{FeedID: &feed.ID})
	require.NoError(t, err)
	assert.Len(t, stored, 2)
}

func TestSaveArticles_RejectsInvalid(t *testing.T) {
	db := testutil.SetupTestDB(t)
	feed := db.SeedFeed("Daily Mix", "https://example.com/feed.xml")

	tests := []struct {
		name    string
		article model.Article
	}{
		{"missing feed", model.Article{GUID: "g", Title: "t"}},
		{"missing guid", model.Article{FeedID: feed.ID, Title: "t"}},
		{"missing title", model.Article{FeedID: feed.ID, GUID: "g"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := db.Storage.SaveArticles(context.Background(), []model.Article{tt.article})
			assert.Error(t, err)
		})
	}
}

func TestGetArticleByID_Snapshot(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	category, err := db.Storage.CreateCategory(ctx, "Tech", "technology news")
	require.NoError(t, err)

	feed := db.SeedFeed("Wired Mirror", "https://example.com/tech.xml")
	require.NoError(t, db.Storage.MoveFeedToCategory(ctx, feed.ID, category.ID))

	article := db.SeedArticle(feed.ID, model.Article{
		GUID:    "snap-1",
		Title:   "Snapshot",
		Author:  "Ada Quinn",
		Link:    "https://example.com/snap",
		Content: "body",
	})

	tag, err := db.Storage.GetOrCreateTag(ctx, "golang")
	require.NoError(t, err)
	require.NoError(t, db.Storage.ApplyTag(ctx, article.ID, tag.ID, "rule", 0, 0.9))

	loaded, err := db.Storage.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)

	assert.Equal(t, "Snapshot", loaded.Title)
	assert.Equal(t, "Ada Quinn", loaded.Author)
	assert.Equal(t, []string{"Tech"}, loaded.Categories)
	assert.Equal(t, []string{"golang"}, loaded.Tags)

	_, err = db.Storage.GetArticleByID(ctx, 9999)
	assert.ErrorIs(t, err, common.ErrNotFound)
}

func TestGetArticles_Filter(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	feed := db.SeedFeed("Daily Mix", "https://example.com/feed.xml")
	other := db.SeedFeed("Other", "https://example.com/other.xml")

	a1 := db.SeedArticle(feed.ID, model.Article{GUID: "f1", Title: "one"})
	db.SeedArticle(feed.ID, model.Article{GUID: "f2", Title: "two"})
	db.SeedArticle(other.ID, model.Article{GUID: "o1", Title: "elsewhere"})

	require.NoError(t, db.Storage.SetReadState(ctx, a1.ID, true))

	byFeed, err := db.Storage.GetArticles(ctx, service.ArticleFilter{FeedID: &feed.ID})
	require.NoError(t, err)
	assert.Len(t, byFeed, 2)

	unread, err := db.Storage.GetArticles(ctx, service.ArticleFilter{FeedID: &feed.ID, UnreadOnly: true})
	require.NoError(t, err)
	require.Len(t, unread, 1)
	assert.Equal(t, "two", unread[0].Title)

	limited, err := db.Storage.GetArticles(ctx, service.ArticleFilter{Limit: 2})
	require.NoError(t, err)
	assert.Len(t, limited, 2)
}

func TestSetReadState_And_ToggleStarred(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	feed := db.SeedFeed("Daily Mix", "https://example.com/feed.xml")
	article := db.SeedArticle(feed.ID, model.Article{GUID: "g1", Title: "one"})

	require.NoError(t, db.Storage.SetReadState(ctx, article.ID, true))
	loaded, err := db.Storage.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsRead)

	require.NoError(t, db.Storage.ToggleStarred(ctx, article.ID))
	loaded, err = db.Storage.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	assert.True(t, loaded.IsStarred)

	require.NoError(t, db.Storage.ToggleStarred(ctx, article.ID))
	loaded, err = db.Storage.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	assert.False(t, loaded.IsStarred)

	assert.ErrorIs(t, db.Storage.SetReadState(ctx, 9999, true), common.ErrNotFound)
	assert.ErrorIs(t, db.Storage.ToggleStarred(ctx, 9999), common.ErrNotFound)
}

func TestApplyTag(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	feed := db.SeedFeed("Daily Mix", "https://example.com/feed.xml")
	article := db.SeedArticle(feed.ID, model.Article{GUID: "g1", Title: "one"})

	tag, err := db.Storage.GetOrCreateTag(ctx, "优先") // tag names are free text
	require.NoError(t, err)
	rule := db.SeedRule(sampleRule("tagger", 10))

	require.NoError(t, db.Storage.ApplyTag(ctx, article.ID, tag.ID, "rule", rule.ID, 0.7))

	// Re-applying refreshes provenance instead of failing.
	require.NoError(t, db.Storage.ApplyTag(ctx, article.ID, tag.ID, "user", 0, 1.0))

	loaded, err := db.Storage.GetArticleByID(ctx, article.ID)
	require.NoError(t, err)
	assert.Equal(t, []string{"优先"}, loaded.Tags)

	t.Run("unknown tag is recoverable", func(t *testing.T) {
		err := db.Storage.ApplyTag(ctx, article.ID, 9999, "rule", 0, 1.0)
		assert.ErrorIs(t, err, common.ErrNotFound)
	})

	t.Run("empty appliedBy is rejected", func(t *testing.T) {
		err := db.Storage.ApplyTag(ctx, article.ID, tag.ID, "", 0, 1.0)
		assert.Error(t, err)
	})
}

func TestGetAppliedTags(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()
	feed := db.SeedFeed("Daily Mix", "https://example.com/feed.xml")
	article := db.SeedArticle(feed.ID, model.Article{GUID: "g1", Title: "one"})
	other := db.SeedArticle(feed.ID, model.Article{GUID: "g2", Title: "two"})
	rule := db.SeedRule(sampleRule("tagger", 10))

	auto, err := db.Storage.GetOrCreateTag(ctx, "auto")
	require.NoError(t, err)
	manual, err := db.Storage.GetOrCreateTag(ctx, "manual")
	require.NoError(t, err)

	require.NoError(t, db.Storage.ApplyTag(ctx, article.ID, auto.ID, "rule", rule.ID, 0.7))
	require.NoError(t, db.Storage.ApplyTag(ctx, article.ID, manual.ID, "user", 0, 1.0))
	require.NoError(t, db.Storage.ApplyTag(ctx, other.ID, auto.ID, "user", 0, 1.0))

	applied, err := db.Storage.GetAppliedTags(ctx, article.ID)
	require.NoError(t, err)
	require.Len(t, applied, 2)

	byTag := make(map[int64]model.AppliedTag, len(applied))
	for _, at := range applied {
		assert.Equal(t, article.ID, at.ArticleID)
		byTag[at.TagID] = at
	}

	require.NotNil(t, byTag[auto.ID].RuleID)
	assert.Equal(t, rule.ID, *byTag[auto.ID].RuleID)
	assert.Equal(t, "rule", byTag[auto.ID].AppliedBy)
	assert.InDelta(t, 0.7, byTag[auto.ID].Confidence, 0.001)

	assert.Nil(t, byTag[manual.ID].RuleID)
	assert.Equal(t, "user", byTag[manual.ID].AppliedBy)

	t.Run("untagged article yields nothing", func(t *testing.T) {
		third := db.SeedArticle(feed.ID, model.Article{GUID: "g3", Title: "three"})
		applied, err := db.Storage.GetAppliedTags(ctx, third.ID)
		require.NoError(t, err)
		assert.Empty(t, applied)
	})
}
