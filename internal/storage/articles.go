package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"
	"time"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
	"github.com/haldana/sift/internal/service"
)

// SaveArticles upserts a batch of articles keyed by (feed_id, guid) and
// returns the number of newly inserted rows.
func (s *SQLiteStorage) SaveArticles(ctx context.Context, articles []model.Article) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return 0, fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	query := `
		INSERT INTO articles (feed_id, guid, title, content, summary, author, link, published_at)
		VALUES (?, ?, ?, ?, ?, ?, ?, ?)
		ON CONFLICT(feed_id, guid) DO NOTHING
	`

	inserted := 0
	for i := range articles {
		if err := validateArticle(&articles[i]); err != nil {
			return inserted, err
		}

		a := &articles[i]
		result, err := tx.ExecContext(ctx, query,
			a.FeedID, a.GUID, a.Title, a.Content, a.Summary, a.Author, a.Link,
			nullableTime(a.PublishedAt),
		)
		if err != nil {
			return inserted, fmt.Errorf("failed to save article %q: %w", a.GUID, err)
		}

		rows, err := result.RowsAffected()
		if err != nil {
			return inserted, fmt.Errorf("failed to get rows affected: %w", err)
		}
		inserted += int(rows)
	}

	if err := tx.Commit(); err != nil {
		return 0, fmt.Errorf("failed to commit articles: %w", err)
	}
	return inserted, nil
}

// GetArticleByID returns the full evaluation snapshot for one article,
// including its owning feed's category names and its applied tag names.
func (s *SQLiteStorage) GetArticleByID(ctx context.Context, id int64) (*model.Article, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT a.id, a.feed_id, a.guid, a.title, a.content, a.summary, a.author,
			a.link, a.published_at, a.is_read, a.is_starred, a.created_at
		FROM articles a
		WHERE a.id = ?
	`

	var article model.Article
	var content, summary, author, link sql.NullString
	var published sql.NullTime
	err := s.db.QueryRowContext(ctx, query, id).Scan(
		&article.ID, &article.FeedID, &article.GUID, &article.Title,
		&content, &summary, &author, &link,
		&published, &article.IsRead, &article.IsStarred, &article.CreatedAt,
	)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("article %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get article: %w", err)
	}

	article.Content = content.String
	article.Summary = summary.String
	article.Author = author.String
	article.Link = link.String
	if published.Valid {
		article.PublishedAt = published.Time
	}

	if article.Categories, err = s.articleCategories(ctx, article.FeedID); err != nil {
		return nil, err
	}
	if article.Tags, err = s.articleTags(ctx, article.ID); err != nil {
		return nil, err
	}

	return &article, nil
}

func (s *SQLiteStorage) articleCategories(ctx context.Context, feedID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT c.name FROM categories c
		JOIN feeds f ON f.category_id = c.id
		WHERE f.id = ?
	`, feedID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan category name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

func (s *SQLiteStorage) articleTags(ctx context.Context, articleID int64) ([]string, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT t.name FROM tags t
		JOIN article_tags at ON at.tag_id = t.id
		WHERE at.article_id = ?
		ORDER BY t.name
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get article tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var names []string
	for rows.Next() {
		var name string
		if err := rows.Scan(&name); err != nil {
			return nil, fmt.Errorf("failed to scan tag name: %w", err)
		}
		names = append(names, name)
	}
	return names, rows.Err()
}

// GetArticles lists articles matching the filter, newest first. The rows
// carry base columns only; use GetArticleByID for full evaluation snapshots.
func (s *SQLiteStorage) GetArticles(ctx context.Context, filter service.ArticleFilter) ([]model.Article, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	query := `
		SELECT id, feed_id, guid, title, content, summary, author, link,
			published_at, is_read, is_starred, created_at
		FROM articles
		WHERE 1=1
	`
	args := []any{}

	if filter.FeedID != nil {
		query += " AND feed_id = ?"
		args = append(args, *filter.FeedID)
	}
	if filter.UnreadOnly {
		query += " AND is_read = 0"
	}
	query += " ORDER BY published_at DESC, id DESC"
	if filter.Limit > 0 {
		query += " LIMIT ?"
		args = append(args, filter.Limit)
		if filter.Offset > 0 {
			query += " OFFSET ?"
			args = append(args, filter.Offset)
		}
	}

	rows, err := s.db.QueryContext(ctx, query, args...)
	if err != nil {
		return nil, fmt.Errorf("failed to get articles: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var articles []model.Article
	for rows.Next() {
		var article model.Article
		var content, summary, author, link sql.NullString
		var published sql.NullTime
		err := rows.Scan(
			&article.ID, &article.FeedID, &article.GUID, &article.Title,
			&content, &summary, &author, &link,
			&published, &article.IsRead, &article.IsStarred, &article.CreatedAt,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan article: %w", err)
		}
		article.Content = content.String
		article.Summary = summary.String
		article.Author = author.String
		article.Link = link.String
		if published.Valid {
			article.PublishedAt = published.Time
		}
		articles = append(articles, article)
	}

	return articles, rows.Err()
}

// SetReadState marks an article read or unread.
func (s *SQLiteStorage) SetReadState(ctx context.Context, articleID int64, isRead bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE articles SET is_read = ? WHERE id = ?", isRead, articleID)
	if err != nil {
		return fmt.Errorf("failed to set read state: %w", err)
	}
	return requireRowsAffected(result, "article", articleID)
}

// ToggleStarred flips an article's starred flag.
func (s *SQLiteStorage) ToggleStarred(ctx context.Context, articleID int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx,
		"UPDATE articles SET is_starred = NOT is_starred WHERE id = ?", articleID)
	if err != nil {
		return fmt.Errorf("failed to toggle starred: %w", err)
	}
	return requireRowsAffected(result, "article", articleID)
}

// ApplyTag attaches a tag to an article with provenance. Re-applying the
// same tag refreshes the provenance columns rather than failing.
func (s *SQLiteStorage) ApplyTag(ctx context.Context, articleID, tagID int64, appliedBy string, ruleID int64, confidence float64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateString(appliedBy, "appliedBy"); err != nil {
		return err
	}

	// Reject unknown tags up front so the caller gets a recoverable failure
	// instead of a foreign key violation.
	var tagCount int
	if err := s.db.QueryRowContext(ctx,
		"SELECT COUNT(*) FROM tags WHERE id = ?", tagID).Scan(&tagCount); err != nil {
		return fmt.Errorf("failed to verify tag: %w", err)
	}
	if tagCount == 0 {
		return fmt.Errorf("tag %d: %w", tagID, common.ErrNotFound)
	}

	var ruleRef any
	if ruleID != 0 {
		ruleRef = ruleID
	}

	_, err := s.db.ExecContext(ctx, `
		INSERT INTO article_tags (article_id, tag_id, applied_by, rule_id, confidence)
		VALUES (?, ?, ?, ?, ?)
		ON CONFLICT(article_id, tag_id) DO UPDATE SET
			applied_by = excluded.applied_by,
			rule_id = excluded.rule_id,
			confidence = excluded.confidence,
			applied_at = CURRENT_TIMESTAMP
	`, articleID, tagID, appliedBy, ruleRef, confidence)
	if err != nil {
		return fmt.Errorf("failed to apply tag: %w", err)
	}
	return nil
}

func nullableTime(t time.Time) any {
	if t.IsZero() {
		return nil
	}
	return t
}

func requireRowsAffected(result sql.Result, entity string, id int64) error {
	rows, err := result.RowsAffected()
	if err != nil {
		return fmt.Errorf("failed to get rows affected: %w", err)
	}
	if rows == 0 {
		return fmt.Errorf("%s %d: %w", entity, id, common.ErrNotFound)
	}
	return nil
}
