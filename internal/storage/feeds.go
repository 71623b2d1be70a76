package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// CreateFeed inserts a new feed subscription.
func (s *SQLiteStorage) CreateFeed(ctx context.Context, feed *model.Feed) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateFeed(feed); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		INSERT INTO feeds (title, url, site_url, category_id)
		VALUES (?, ?, ?, ?)
	`, feed.Title, feed.URL, feed.SiteURL, feed.CategoryID)
	if err != nil {
		if isUniqueViolation(err) {
			return fmt.Errorf("feed %s: %w", feed.URL, common.ErrDuplicateEntry)
		}
		return fmt.Errorf("failed to create feed: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get feed ID: %w", err)
	}

	feed.ID = id
	feed.CreatedAt = time.Now()
	feed.UpdatedAt = feed.CreatedAt
	return nil
}

const feedColumns = `id, title, url, site_url, category_id, last_fetched_at, created_at, updated_at`

func scanFeed(scan func(...any) error) (*model.Feed, error) {
	var feed model.Feed
	var siteURL sql.NullString
	var categoryID sql.NullInt64
	var lastFetched sql.NullTime

	err := scan(
		&feed.ID, &feed.Title, &feed.URL, &siteURL, &categoryID,
		&lastFetched, &feed.CreatedAt, &feed.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	feed.SiteURL = siteURL.String
	if categoryID.Valid {
		feed.CategoryID = &categoryID.Int64
	}
	if lastFetched.Valid {
		feed.LastFetchedAt = &lastFetched.Time
	}
	return &feed, nil
}

// GetFeeds returns all subscribed feeds.
func (s *SQLiteStorage) GetFeeds(ctx context.Context) ([]model.Feed, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT "+feedColumns+" FROM feeds ORDER BY title")
	if err != nil {
		return nil, fmt.Errorf("failed to get feeds: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var feeds []model.Feed
	for rows.Next() {
		feed, err := scanFeed(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan feed: %w", err)
		}
		feeds = append(feeds, *feed)
	}
	return feeds, rows.Err()
}

// GetFeedByID retrieves one feed.
func (s *SQLiteStorage) GetFeedByID(ctx context.Context, id int64) (*model.Feed, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+feedColumns+" FROM feeds WHERE id = ?", id)
	feed, err := scanFeed(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("feed %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get feed: %w", err)
	}
	return feed, nil
}

// DeleteFeed removes a feed and, via cascade, its articles.
func (s *SQLiteStorage) DeleteFeed(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM feeds WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete feed: %w", err)
	}
	return requireRowsAffected(result, "feed", id)
}

// MoveFeedToCategory assigns a feed to a category. An unknown category is a
// recoverable failure: the caller gets an error, nothing is changed.
func (s *SQLiteStorage) MoveFeedToCategory(ctx context.Context, feedID, categoryID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	var categoryCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM categories WHERE id = ?", categoryID).Scan(&categoryCount); err != nil {
		return fmt.Errorf("failed to verify category: %w", err)
	}
	if categoryCount == 0 {
		return fmt.Errorf("category %d: %w", categoryID, common.ErrNotFound)
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET category_id = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, categoryID, feedID)
	if err != nil {
		return fmt.Errorf("failed to move feed to category: %w", err)
	}
	return requireRowsAffected(result, "feed", feedID)
}

// MarkFeedFetched records a successful fetch time for a feed.
func (s *SQLiteStorage) MarkFeedFetched(ctx context.Context, feedID int64, fetchedAt time.Time) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE feeds SET last_fetched_at = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, fetchedAt, feedID)
	if err != nil {
		return fmt.Errorf("failed to mark feed fetched: %w", err)
	}
	return requireRowsAffected(result, "feed", feedID)
}
