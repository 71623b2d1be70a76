package storage

import (
	"context"
	"database/sql"
	"errors"
	"fmt"

	"github.com/haldana/sift/internal/model"
)

// GetOrCreateTag returns the tag with the given name, creating it if needed.
func (s *SQLiteStorage) GetOrCreateTag(ctx context.Context, name string) (*model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	var tag model.Tag
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, created_at FROM tags WHERE name = ?", name).
		Scan(&tag.ID, &tag.Name, &tag.CreatedAt)
	if err == nil {
		return &tag, nil
	}
	if !errors.Is(err, sql.ErrNoRows) {
		return nil, fmt.Errorf("failed to get tag: %w", err)
	}

	result, err := s.db.ExecContext(ctx, "INSERT INTO tags (name) VALUES (?)", name)
	if err != nil {
		return nil, fmt.Errorf("failed to create tag: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get tag ID: %w", err)
	}

	tag.ID = id
	tag.Name = name
	return &tag, nil
}

// GetTags returns all tags ordered by name.
func (s *SQLiteStorage) GetTags(ctx context.Context) ([]model.Tag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, created_at FROM tags ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var tags []model.Tag
	for rows.Next() {
		var tag model.Tag
		if err := rows.Scan(&tag.ID, &tag.Name, &tag.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan tag: %w", err)
		}
		tags = append(tags, tag)
	}
	return tags, rows.Err()
}

// GetAppliedTags returns the tag applications for one article with their
// provenance, newest first.
func (s *SQLiteStorage) GetAppliedTags(ctx context.Context, articleID int64) ([]model.AppliedTag, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, `
		SELECT article_id, tag_id, applied_by, rule_id, confidence, applied_at
		FROM article_tags
		WHERE article_id = ?
		ORDER BY applied_at DESC, tag_id DESC
	`, articleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get applied tags: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var applied []model.AppliedTag
	for rows.Next() {
		var at model.AppliedTag
		var ruleID sql.NullInt64
		var confidence sql.NullFloat64
		if err := rows.Scan(&at.ArticleID, &at.TagID, &at.AppliedBy, &ruleID, &confidence, &at.AppliedAt); err != nil {
			return nil, fmt.Errorf("failed to scan applied tag: %w", err)
		}
		if ruleID.Valid {
			at.RuleID = &ruleID.Int64
		}
		at.Confidence = confidence.Float64
		applied = append(applied, at)
	}
	return applied, rows.Err()
}
