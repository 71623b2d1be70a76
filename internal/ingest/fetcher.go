// Package ingest fetches and parses subscribed feeds into article snapshots.
package ingest

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/araddon/dateparse"
	"github.com/google/uuid"
	"github.com/mmcdole/gofeed"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// Store is the slice of the persistence layer the fetcher needs.
type Store interface {
	GetFeeds(ctx context.Context) ([]model.Feed, error)
	SaveArticles(ctx context.Context, articles []model.Article) (int, error)
	MarkFeedFetched(ctx context.Context, feedID int64, fetchedAt time.Time) error
}

// Fetcher downloads feeds and persists their items as articles.
type Fetcher struct {
	parser *gofeed.Parser
	store  Store
	retry  common.RetryOptions
}

// NewFetcher creates a feed fetcher backed by the given store.
func NewFetcher(store Store) *Fetcher {
	return &Fetcher{
		parser: gofeed.NewParser(),
		store:  store,
		retry:  common.DefaultRetryOptions(),
	}
}

// FetchFeed downloads and parses one feed, saving any new articles. It
// returns the number of newly stored articles.
func (f *Fetcher) FetchFeed(ctx context.Context, feed model.Feed) (int, error) {
	var parsed *gofeed.Feed
	err := common.WithRetry(ctx, func() error {
		var parseErr error
		parsed, parseErr = f.parser.ParseURLWithContext(feed.URL, ctx)
		return parseErr
	}, f.retry)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: %w", classifyFetchError(err), feed.URL, err)
	}

	articles := make([]model.Article, 0, len(parsed.Items))
	for _, item := range parsed.Items {
		if item == nil {
			continue
		}
		articles = append(articles, ArticleFromItem(feed.ID, item))
	}

	inserted := 0
	if len(articles) > 0 {
		if inserted, err = f.store.SaveArticles(ctx, articles); err != nil {
			return 0, fmt.Errorf("failed to store articles for %s: %w", feed.URL, err)
		}
	}

	if err := f.store.MarkFeedFetched(ctx, feed.ID, time.Now()); err != nil {
		return inserted, err
	}

	common.LogDebug("fetched feed", common.Fields{
		"feed_id": feed.ID,
		"url":     feed.URL,
		"items":   len(articles),
		"new":     inserted,
	})
	return inserted, nil
}

// classifyFetchError distinguishes a feed we could download but not parse
// from one we could not reach at all.
func classifyFetchError(err error) error {
	if errors.Is(err, gofeed.ErrFeedTypeNotDetected) {
		return common.ErrFeedUnparsable
	}
	return common.ErrFeedUnreachable
}

// FetchAll fetches every subscribed feed, continuing past per-feed failures.
// It returns the total number of new articles.
func (f *Fetcher) FetchAll(ctx context.Context) (int, error) {
	feeds, err := f.store.GetFeeds(ctx)
	if err != nil {
		return 0, fmt.Errorf("failed to load feeds: %w", err)
	}

	total := 0
	for _, feed := range feeds {
		if err := ctx.Err(); err != nil {
			return total, err
		}

		n, err := f.FetchFeed(ctx, feed)
		if err != nil {
			common.LogWarn("feed fetch failed", common.Fields{
				"feed_id": feed.ID,
				"url":     feed.URL,
				"error":   err.Error(),
			})
			continue
		}
		total += n
	}
	return total, nil
}

// ArticleFromItem converts a parsed feed item into an article snapshot.
// Items without a GUID get a generated one; items without a parsed timestamp
// fall back to lenient date parsing of the raw published string.
func ArticleFromItem(feedID int64, item *gofeed.Item) model.Article {
	article := model.Article{
		FeedID:  feedID,
		GUID:    item.GUID,
		Title:   item.Title,
		Content: item.Content,
		Summary: item.Description,
		Link:    item.Link,
	}

	if article.GUID == "" {
		if item.Link != "" {
			article.GUID = item.Link
		} else {
			article.GUID = uuid.NewString()
		}
	}

	if item.Author != nil {
		article.Author = item.Author.Name
	} else if len(item.Authors) > 0 && item.Authors[0] != nil {
		article.Author = item.Authors[0].Name
	}

	switch {
	case item.PublishedParsed != nil:
		article.PublishedAt = *item.PublishedParsed
	case item.Published != "":
		if t, err := dateparse.ParseAny(item.Published); err == nil {
			article.PublishedAt = t
		}
	case item.UpdatedParsed != nil:
		article.PublishedAt = *item.UpdatedParsed
	}

	return article
}
