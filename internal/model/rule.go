package model

import (
	"fmt"
	"sort"
	"strconv"
	"strings"
	"time"
)

// FieldTarget identifies which part of an article a condition evaluates.
type FieldTarget string

// Supported field targets.
const (
	FieldTitle         FieldTarget = "title"
	FieldContent       FieldTarget = "content"
	FieldSummary       FieldTarget = "summary"
	FieldAuthor        FieldTarget = "author"
	FieldPublishedDate FieldTarget = "published_date"
	FieldLink          FieldTarget = "link"
	FieldCategory      FieldTarget = "category"
	FieldTag           FieldTarget = "tag"
)

// Valid reports whether the field target is one of the supported values.
func (f FieldTarget) Valid() bool {
	switch f {
	case FieldTitle, FieldContent, FieldSummary, FieldAuthor,
		FieldPublishedDate, FieldLink, FieldCategory, FieldTag:
		return true
	}
	return false
}

// IsSet reports whether the target yields a set of names rather than a
// single scalar value. Contains/Equals against set targets test membership.
func (f FieldTarget) IsSet() bool {
	return f == FieldCategory || f == FieldTag
}

// Operator is the comparison a condition applies to an extracted field value.
type Operator string

// Supported condition operators.
const (
	OpContains    Operator = "contains"
	OpNotContains Operator = "not_contains"
	OpEquals      Operator = "equals"
	OpNotEquals   Operator = "not_equals"
	OpGreaterThan Operator = "greater_than"
	OpLessThan    Operator = "less_than"
	OpRegex       Operator = "regex"
	OpIsEmpty     Operator = "is_empty"
	OpIsNotEmpty  Operator = "is_not_empty"
)

// Valid reports whether the operator is one of the supported values.
func (o Operator) Valid() bool {
	switch o {
	case OpContains, OpNotContains, OpEquals, OpNotEquals,
		OpGreaterThan, OpLessThan, OpRegex, OpIsEmpty, OpIsNotEmpty:
		return true
	}
	return false
}

// RequiresValue reports whether the operator needs a comparison value.
// IsEmpty/IsNotEmpty ignore the value; Regex uses the pattern instead.
func (o Operator) RequiresValue() bool {
	switch o {
	case OpContains, OpNotContains, OpEquals, OpNotEquals, OpGreaterThan, OpLessThan:
		return true
	}
	return false
}

// ChainOperator combines a condition's result with the next condition in
// sequence order.
type ChainOperator string

// Supported chain operators.
const (
	ChainAnd ChainOperator = "and"
	ChainOr  ChainOperator = "or"
)

// ActionType is the side effect a rule performs when it matches.
type ActionType string

// Supported rule actions.
const (
	ActionMarkAsRead     ActionType = "mark_as_read"
	ActionMarkAsStarred  ActionType = "mark_as_starred"
	ActionMoveToCategory ActionType = "move_to_category"
	ActionTag            ActionType = "tag"
	ActionNotify         ActionType = "notify"
)

// Valid reports whether the action type is one of the supported values.
func (a ActionType) Valid() bool {
	switch a {
	case ActionMarkAsRead, ActionMarkAsStarred, ActionMoveToCategory, ActionTag, ActionNotify:
		return true
	}
	return false
}

// RuleScope restricts which feeds a rule applies to.
type RuleScope string

// Supported rule scopes.
const (
	ScopeAllFeeds      RuleScope = "all"
	ScopeSpecificFeeds RuleScope = "specific_feeds"
)

// Condition is one atomic field/operator/value test belonging to a rule.
type Condition struct {
	FieldTarget     FieldTarget   `json:"field_target"`
	Operator        Operator      `json:"operator"`
	Value           string        `json:"value"`
	RegexPattern    string        `json:"regex_pattern"`
	CombineWithNext ChainOperator `json:"combine_with_next"`
	ID              int64         `json:"id"`
	RuleID          int64         `json:"rule_id"`
	GroupID         int           `json:"group_id"`
	Order           int           `json:"order"`
	CaseSensitive   bool          `json:"case_sensitive"`
	Negate          bool          `json:"negate"`
}

// Rule is a named, prioritized test-and-action pair applied to articles.
// MatchCount and LastMatchDate only move when the rule's action completes;
// evaluating a match without executing its action must not touch them.
type Rule struct {
	CreatedAt        time.Time   `json:"created_at"`
	UpdatedAt        time.Time   `json:"updated_at"`
	LastMatchDate    *time.Time  `json:"last_match_date,omitempty"`
	ActionCategoryID *int64      `json:"action_category_id,omitempty"`
	Name             string      `json:"name"`
	ActionType       ActionType  `json:"action_type"`
	ActionTagIDs     string      `json:"action_tag_ids"`
	Scope            RuleScope   `json:"scope"`
	ScopeFeedIDs     string      `json:"scope_feed_ids"`
	Conditions       []Condition `json:"conditions"`
	ID               int64       `json:"id"`
	Priority         int         `json:"priority"`
	ActionPriority   int         `json:"action_priority"`
	MatchCount       int         `json:"match_count"`
	Confidence       float64     `json:"confidence"`
	IsEnabled        bool        `json:"is_enabled"`
	StopOnMatch      bool        `json:"stop_on_match"`
}

// ConditionGroups partitions the rule's conditions by group ID and returns
// the groups ordered by ascending group ID. Conditions within a group keep
// their authored slice order; the composer sorts by Order before folding.
func (r *Rule) ConditionGroups() [][]Condition {
	if len(r.Conditions) == 0 {
		return nil
	}

	byGroup := make(map[int][]Condition)
	for _, c := range r.Conditions {
		byGroup[c.GroupID] = append(byGroup[c.GroupID], c)
	}

	groupIDs := make([]int, 0, len(byGroup))
	for id := range byGroup {
		groupIDs = append(groupIDs, id)
	}
	sort.Ints(groupIDs)

	groups := make([][]Condition, 0, len(groupIDs))
	for _, id := range groupIDs {
		groups = append(groups, byGroup[id])
	}
	return groups
}

// ScopeFeedIDList parses the comma-separated feed ID list for
// scope=specific_feeds. A malformed list is an error; the matcher treats it
// as excluding the rule from the run rather than failing evaluation.
func (r *Rule) ScopeFeedIDList() ([]int64, error) {
	return parseIDList(r.ScopeFeedIDs)
}

// ActionTagIDList parses the comma-separated tag ID list for Tag actions.
func (r *Rule) ActionTagIDList() ([]int64, error) {
	return parseIDList(r.ActionTagIDs)
}

func parseIDList(list string) ([]int64, error) {
	list = strings.TrimSpace(list)
	if list == "" {
		return nil, nil
	}

	parts := strings.Split(list, ",")
	ids := make([]int64, 0, len(parts))
	for _, part := range parts {
		id, err := strconv.ParseInt(strings.TrimSpace(part), 10, 64)
		if err != nil {
			return nil, fmt.Errorf("invalid ID %q in list: %w", part, err)
		}
		ids = append(ids, id)
	}
	return ids, nil
}
