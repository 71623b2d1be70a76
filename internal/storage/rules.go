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

const ruleColumns = `id, name, action_type, action_category_id, action_tag_ids,
	action_priority, priority, confidence, is_enabled, stop_on_match,
	scope, scope_feed_ids, match_count, last_match_at, created_at, updated_at`

// CreateRule creates a rule together with its conditions in one transaction.
func (s *SQLiteStorage) CreateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		INSERT INTO rules (
			name, action_type, action_category_id, action_tag_ids, action_priority,
			priority, confidence, is_enabled, stop_on_match, scope, scope_feed_ids
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`,
		rule.Name, rule.ActionType, rule.ActionCategoryID, rule.ActionTagIDs, rule.ActionPriority,
		rule.Priority, rule.Confidence, rule.IsEnabled, rule.StopOnMatch, rule.Scope, rule.ScopeFeedIDs,
	)
	if err != nil {
		return fmt.Errorf("failed to create rule: %w", err)
	}

	id, err := result.LastInsertId()
	if err != nil {
		return fmt.Errorf("failed to get rule ID: %w", err)
	}
	rule.ID = id

	if err := insertConditions(ctx, tx, rule); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule: %w", err)
	}

	rule.CreatedAt = time.Now()
	rule.UpdatedAt = rule.CreatedAt
	return nil
}

func insertConditions(ctx context.Context, tx *sql.Tx, rule *model.Rule) error {
	query := `
		INSERT INTO rule_conditions (
			rule_id, field_target, operator, value, regex_pattern,
			case_sensitive, negate, group_id, sort_order, combine_with_next
		) VALUES (?, ?, ?, ?, ?, ?, ?, ?, ?, ?)
	`

	for i := range rule.Conditions {
		cond := &rule.Conditions[i]
		combine := cond.CombineWithNext
		if combine == "" {
			combine = model.ChainAnd
		}

		result, err := tx.ExecContext(ctx, query,
			rule.ID, cond.FieldTarget, cond.Operator, cond.Value, cond.RegexPattern,
			cond.CaseSensitive, cond.Negate, cond.GroupID, cond.Order, combine,
		)
		if err != nil {
			return fmt.Errorf("failed to create condition: %w", err)
		}

		condID, err := result.LastInsertId()
		if err != nil {
			return fmt.Errorf("failed to get condition ID: %w", err)
		}
		cond.ID = condID
		cond.RuleID = rule.ID
	}
	return nil
}

// GetRule retrieves a rule and its conditions by ID.
func (s *SQLiteStorage) GetRule(ctx context.Context, id int64) (*model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	row := s.db.QueryRowContext(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE id = ?", id)
	rule, err := scanRule(row.Scan)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return nil, fmt.Errorf("rule %d: %w", id, common.ErrNotFound)
		}
		return nil, fmt.Errorf("failed to get rule: %w", err)
	}

	if rule.Conditions, err = s.ruleConditions(ctx, rule.ID); err != nil {
		return nil, err
	}
	return rule, nil
}

// GetRules returns all rules, enabled or not, in priority order.
func (s *SQLiteStorage) GetRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx, "SELECT "+ruleColumns+" FROM rules ORDER BY priority ASC, id ASC")
}

// GetActiveRules returns enabled rules ordered ascending by priority, then
// by ID for stability. This is the snapshot the matcher evaluates against.
func (s *SQLiteStorage) GetActiveRules(ctx context.Context) ([]model.Rule, error) {
	return s.queryRules(ctx,
		"SELECT "+ruleColumns+" FROM rules WHERE is_enabled = 1 ORDER BY priority ASC, id ASC")
}

func (s *SQLiteStorage) queryRules(ctx context.Context, query string) ([]model.Rule, error) {
	if err := validateContext(ctx); err != nil {
		return nil, err
	}

	rows, err := s.db.QueryContext(ctx, query)
	if err != nil {
		return nil, fmt.Errorf("failed to get rules: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var ruleSet []model.Rule
	for rows.Next() {
		rule, err := scanRule(rows.Scan)
		if err != nil {
			return nil, fmt.Errorf("failed to scan rule: %w", err)
		}
		ruleSet = append(ruleSet, *rule)
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("error iterating rules: %w", err)
	}

	for i := range ruleSet {
		if ruleSet[i].Conditions, err = s.ruleConditions(ctx, ruleSet[i].ID); err != nil {
			return nil, err
		}
	}
	return ruleSet, nil
}

func scanRule(scan func(...any) error) (*model.Rule, error) {
	var rule model.Rule
	var actionCategoryID sql.NullInt64
	var actionTagIDs, scopeFeedIDs sql.NullString
	var lastMatch sql.NullTime

	err := scan(
		&rule.ID, &rule.Name, &rule.ActionType, &actionCategoryID, &actionTagIDs,
		&rule.ActionPriority, &rule.Priority, &rule.Confidence, &rule.IsEnabled, &rule.StopOnMatch,
		&rule.Scope, &scopeFeedIDs, &rule.MatchCount, &lastMatch, &rule.CreatedAt, &rule.UpdatedAt,
	)
	if err != nil {
		return nil, err
	}

	if actionCategoryID.Valid {
		rule.ActionCategoryID = &actionCategoryID.Int64
	}
	rule.ActionTagIDs = actionTagIDs.String
	rule.ScopeFeedIDs = scopeFeedIDs.String
	if lastMatch.Valid {
		rule.LastMatchDate = &lastMatch.Time
	}
	return &rule, nil
}

func (s *SQLiteStorage) ruleConditions(ctx context.Context, ruleID int64) ([]model.Condition, error) {
	rows, err := s.db.QueryContext(ctx, `
		SELECT id, rule_id, field_target, operator, value, regex_pattern,
			case_sensitive, negate, group_id, sort_order, combine_with_next
		FROM rule_conditions
		WHERE rule_id = ?
		ORDER BY group_id ASC, sort_order ASC, id ASC
	`, ruleID)
	if err != nil {
		return nil, fmt.Errorf("failed to get rule conditions: %w", err)
	}
	defer func() { _ = rows.Close() }()

	var conds []model.Condition
	for rows.Next() {
		var cond model.Condition
		var value, pattern sql.NullString
		err := rows.Scan(
			&cond.ID, &cond.RuleID, &cond.FieldTarget, &cond.Operator, &value, &pattern,
			&cond.CaseSensitive, &cond.Negate, &cond.GroupID, &cond.Order, &cond.CombineWithNext,
		)
		if err != nil {
			return nil, fmt.Errorf("failed to scan condition: %w", err)
		}
		cond.Value = value.String
		cond.RegexPattern = pattern.String
		conds = append(conds, cond)
	}
	return conds, rows.Err()
}

// UpdateRule updates a rule and replaces its conditions.
func (s *SQLiteStorage) UpdateRule(ctx context.Context, rule *model.Rule) error {
	if err := validateContext(ctx); err != nil {
		return err
	}
	if err := validateRule(rule); err != nil {
		return err
	}

	tx, err := s.db.BeginTx(ctx, nil)
	if err != nil {
		return fmt.Errorf("failed to begin transaction: %w", err)
	}
	defer func() { _ = tx.Rollback() }()

	result, err := tx.ExecContext(ctx, `
		UPDATE rules SET
			name = ?, action_type = ?, action_category_id = ?, action_tag_ids = ?,
			action_priority = ?, priority = ?, confidence = ?, is_enabled = ?,
			stop_on_match = ?, scope = ?, scope_feed_ids = ?,
			updated_at = CURRENT_TIMESTAMP
		WHERE id = ?
	`,
		rule.Name, rule.ActionType, rule.ActionCategoryID, rule.ActionTagIDs,
		rule.ActionPriority, rule.Priority, rule.Confidence, rule.IsEnabled,
		rule.StopOnMatch, rule.Scope, rule.ScopeFeedIDs,
		rule.ID,
	)
	if err != nil {
		return fmt.Errorf("failed to update rule: %w", err)
	}
	if err := requireRowsAffected(result, "rule", rule.ID); err != nil {
		return err
	}

	if _, err := tx.ExecContext(ctx,
		"DELETE FROM rule_conditions WHERE rule_id = ?", rule.ID); err != nil {
		return fmt.Errorf("failed to clear rule conditions: %w", err)
	}
	if err := insertConditions(ctx, tx, rule); err != nil {
		return err
	}

	if err := tx.Commit(); err != nil {
		return fmt.Errorf("failed to commit rule update: %w", err)
	}
	return nil
}

// DeleteRule removes a rule and, via cascade, its conditions.
func (s *SQLiteStorage) DeleteRule(ctx context.Context, id int64) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, "DELETE FROM rules WHERE id = ?", id)
	if err != nil {
		return fmt.Errorf("failed to delete rule: %w", err)
	}
	return requireRowsAffected(result, "rule", id)
}

// SetRuleEnabled toggles a rule's enabled flag.
func (s *SQLiteStorage) SetRuleEnabled(ctx context.Context, id int64, enabled bool) error {
	if err := validateContext(ctx); err != nil {
		return err
	}

	result, err := s.db.ExecContext(ctx, `
		UPDATE rules SET is_enabled = ?, updated_at = CURRENT_TIMESTAMP WHERE id = ?
	`, enabled, id)
	if err != nil {
		return fmt.Errorf("failed to set rule enabled: %w", err)
	}
	return requireRowsAffected(result, "rule", id)
}

// RecordRuleMatch atomically increments a rule's match count, sets its
// last-match timestamp, and returns the new count. The single UPDATE
// serializes concurrent increments for the same rule; the count never moves
// except through this method.
func (s *SQLiteStorage) RecordRuleMatch(ctx context.Context, ruleID int64, matchedAt time.Time) (int, error) {
	if err := validateContext(ctx); err != nil {
		return 0, err
	}

	var count int
	err := s.db.QueryRowContext(ctx, `
		UPDATE rules SET match_count = match_count + 1, last_match_at = ?
		WHERE id = ?
		RETURNING match_count
	`, matchedAt, ruleID).Scan(&count)
	if err != nil {
		if errors.Is(err, sql.ErrNoRows) {
			return 0, fmt.Errorf("rule %d: %w", ruleID, common.ErrNotFound)
		}
		return 0, fmt.Errorf("failed to record rule match: %w", err)
	}
	return count, nil
}
