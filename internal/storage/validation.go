package storage

import (
	"context"
	"errors"
	"fmt"
	"strings"

	"github.com/haldana/sift/internal/model"
)

// Validation errors.
var (
	ErrNilContext     = errors.New("context cannot be nil")
	ErrEmptyString    = errors.New("string parameter cannot be empty")
	ErrNilParameter   = errors.New("parameter cannot be nil")
	ErrInvalidRule    = errors.New("invalid rule")
	ErrInvalidFeed    = errors.New("invalid feed")
	ErrInvalidArticle = errors.New("invalid article")
)

// validateContext ensures the context is not nil.
func validateContext(ctx context.Context) error {
	if ctx == nil {
		return ErrNilContext
	}
	return nil
}

// validateString ensures a string parameter is not empty.
func validateString(s string, paramName string) error {
	if strings.TrimSpace(s) == "" {
		return fmt.Errorf("%w: %s", ErrEmptyString, paramName)
	}
	return nil
}

// validateRule validates a rule before persistence.
func validateRule(rule *model.Rule) error {
	if rule == nil {
		return fmt.Errorf("%w: rule", ErrNilParameter)
	}
	if strings.TrimSpace(rule.Name) == "" {
		return fmt.Errorf("%w: missing name", ErrInvalidRule)
	}
	if !rule.ActionType.Valid() {
		return fmt.Errorf("%w: unknown action type %q", ErrInvalidRule, rule.ActionType)
	}
	if rule.Scope != model.ScopeAllFeeds && rule.Scope != model.ScopeSpecificFeeds {
		return fmt.Errorf("%w: unknown scope %q", ErrInvalidRule, rule.Scope)
	}
	if rule.Confidence < 0 || rule.Confidence > 1 {
		return fmt.Errorf("%w: confidence must be between 0 and 1", ErrInvalidRule)
	}
	return nil
}

// validateFeed validates a feed before persistence.
func validateFeed(feed *model.Feed) error {
	if feed == nil {
		return fmt.Errorf("%w: feed", ErrNilParameter)
	}
	if strings.TrimSpace(feed.URL) == "" {
		return fmt.Errorf("%w: missing URL", ErrInvalidFeed)
	}
	if strings.TrimSpace(feed.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidFeed)
	}
	return nil
}

// validateArticle validates an article before persistence.
func validateArticle(article *model.Article) error {
	if article == nil {
		return fmt.Errorf("%w: article", ErrNilParameter)
	}
	if article.FeedID == 0 {
		return fmt.Errorf("%w: missing feed ID", ErrInvalidArticle)
	}
	if strings.TrimSpace(article.GUID) == "" {
		return fmt.Errorf("%w: missing GUID", ErrInvalidArticle)
	}
	if strings.TrimSpace(article.Title) == "" {
		return fmt.Errorf("%w: missing title", ErrInvalidArticle)
	}
	return nil
}
