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

// CreateCategory creates a new category.
func (s *SQLiteStorage) CreateCategory(ctx context.Context, name, description string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}

	result, err := s.db.ExecContext(ctx,
		"INSERT INTO categories (name, description) VALUES (?, ?)", name, description)
	if err != nil {
		if isUniqueViolation(err) {
			return nil, fmt.Errorf("category %s: %w", name, common.ErrDuplicateEntry)
		}
		return nil, fmt.Errorf("failed to create category: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return nil, fmt.Errorf("failed to get category ID: %w", err)
	}

	return &model.Category{
		ID:          id,
		Name:        name,
		Description: description,
		CreatedAt:   time.Now(),
	}, nil
}

// GetCategories returns all categories ordered by name.
func (s *SQLiteStorage) GetCategories(ctx context.Context) ([]model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx,
		"SELECT id, name, description, created_at FROM categories ORDER BY name")
	if err != nil {
		return nil, fmt.Errorf("failed to get categories: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var categories []model.Category
	for rows.Next() {
		var cat model.Category
		var description sql.NullString
		if err := rows.Scan(&cat.ID, &cat.Name, &description, &cat.CreatedAt); err != nil {
			return nil, fmt.Errorf("failed to scan category: %w", err)
		}
		cat.Description = description.String
		categories = append(categories, cat)
	}
	return categories, rows.Err()
}

// GetCategoryByID retrieves one category.
func (s *SQLiteStorage) GetCategoryByID(ctx context.Context, id int64) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, "id = ?", id)
}

// GetCategoryByName retrieves one category by its unique name.
func (s *SQLiteStorage) GetCategoryByName(ctx context.Context, name string) (*model.Category, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}
	if err := validateString(name, "name"); err != nil {
		return nil, err
	}
	return s.getCategory(ctx, "name = ?", name)
}

func (s *SQLiteStorage) getCategory(ctx context.Context, where string, arg any) (*model.Category, error) {
	var cat model.Category
	var description sql.NullString
	err := s.db.QueryRowContext(ctx,
		"SELECT id, name, description, created_at FROM categories WHERE "+where, arg).
		Scan(&cat.ID, &cat.Name, &description, &cat.CreatedAt)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("category %v: %w", arg, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get category: %w", err)
	}
	cat.Description = description.String
	return &cat, nil
}
