package storage_test

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
	"github.com/haldana/sift/internal/testutil"
)

func sampleRule(name string, priority int) model.Rule {
	return model.Rule{
		Name:       name,
		ActionType: model.ActionMarkAsRead,
		Scope:      model.ScopeAllFeeds,
		Priority:   priority,
		Confidence: 1.0,
		IsEnabled:  true,
		Conditions: []model.Condition{
			{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: name, Order: 1},
		},
	}
}

func TestCreateRule_RoundTrip(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := sampleRule("space", 10)
	rule.Conditions = append(rule.Conditions, model.Condition{
		FieldTarget:     model.FieldAuthor,
		Operator:        model.OpRegex,
		RegexPattern:    `quinn$`,
		GroupID:         1,
		Order:           1,
		Negate:          true,
		CombineWithNext: model.ChainOr,
	})

	require.NoError(t, db.Storage.CreateRule(ctx, &rule))
	require.NotZero(t, rule.ID)
	assert.NotZero(t, rule.Conditions[0].ID)
	assert.Equal(t, rule.ID, rule.Conditions[0].RuleID)

	loaded, err := db.Storage.GetRule(ctx, rule.ID)
	require.NoError(t, err)

	assert.Equal(t, "space", loaded.Name)
	assert.Equal(t, model.ActionMarkAsRead, loaded.ActionType)
	assert.Equal(t, 10, loaded.Priority)
	assert.True(t, loaded.IsEnabled)
	assert.Nil(t, loaded.LastMatchDate)
	require.Len(t, loaded.Conditions, 2)

	first := loaded.Conditions[0]
	assert.Equal(t, model.FieldTitle, first.FieldTarget)
	assert.Equal(t, model.OpContains, first.Operator)
	assert.Equal(t, "space", first.Value)
	assert.Equal(t, model.ChainAnd, first.CombineWithNext) // empty chain persists as and

	second := loaded.Conditions[1]
	assert.Equal(t, model.OpRegex, second.Operator)
	assert.Equal(t, "quinn$", second.RegexPattern)
	assert.Equal(t, 1, second.GroupID)
	assert.True(t, second.Negate)
	assert.Equal(t, model.ChainOr, second.CombineWithNext)
}

func TestCreateRule_Validation(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	tests := []struct {
		name string
		rule model.Rule
	}{
		{"missing name", model.Rule{ActionType: model.ActionMarkAsRead, Scope: model.ScopeAllFeeds, Confidence: 1}},
		{"unknown action", model.Rule{Name: "x", ActionType: "shred", Scope: model.ScopeAllFeeds, Confidence: 1}},
		{"unknown scope", model.Rule{Name: "x", ActionType: model.ActionMarkAsRead, Scope: "nearby", Confidence: 1}},
		{"confidence out of range", model.Rule{Name: "x", ActionType: model.ActionMarkAsRead, Scope: model.ScopeAllFeeds, Confidence: 1.5}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			rule := tt.rule
			assert.Error(t, db.Storage.CreateRule(ctx, &rule))
		})
	}
}

func TestGetActiveRules_Ordering(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	low := db.SeedRule(sampleRule("low", 100))
	high := db.SeedRule(sampleRule("high", 10))
	same := db.SeedRule(sampleRule("same-priority", 10))

	disabled := sampleRule("disabled", 1)
	disabled.IsEnabled = false
	db.SeedRule(disabled)

	active, err := db.Storage.GetActiveRules(ctx)
	require.NoError(t, err)
	require.Len(t, active, 3)

	// Priority ascending, ID as the tiebreaker.
	assert.Equal(t, high.ID, active[0].ID)
	assert.Equal(t, same.ID, active[1].ID)
	assert.Equal(t, low.ID, active[2].ID)

	all, err := db.Storage.GetRules(ctx)
	require.NoError(t, err)
	assert.Len(t, all, 4)
}

func TestUpdateRule_ReplacesConditions(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := db.SeedRule(sampleRule("before", 10))
	rule.Name = "after"
	rule.Priority = 5
	rule.Conditions = []model.Condition{
		{FieldTarget: model.FieldSummary, Operator: model.OpIsEmpty, Order: 1},
	}

	require.NoError(t, db.Storage.UpdateRule(ctx, rule))

	loaded, err := db.Storage.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, "after", loaded.Name)
	assert.Equal(t, 5, loaded.Priority)
	require.Len(t, loaded.Conditions, 1)
	assert.Equal(t, model.OpIsEmpty, loaded.Conditions[0].Operator)
}

func TestDeleteRule(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := db.SeedRule(sampleRule("gone", 10))
	require.NoError(t, db.Storage.DeleteRule(ctx, rule.ID))

	_, err := db.Storage.GetRule(ctx, rule.ID)
	assert.ErrorIs(t, err, common.ErrNotFound)

	assert.ErrorIs(t, db.Storage.DeleteRule(ctx, rule.ID), common.ErrNotFound)
}

func TestSetRuleEnabled(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := db.SeedRule(sampleRule("toggled", 10))

	require.NoError(t, db.Storage.SetRuleEnabled(ctx, rule.ID, false))
	active, err := db.Storage.GetActiveRules(ctx)
	require.NoError(t, err)
	assert.Empty(t, active)

	require.NoError(t, db.Storage.SetRuleEnabled(ctx, rule.ID, true))
	active, err = db.Storage.GetActiveRules(ctx)
	require.NoError(t, err)
	assert.Len(t, active, 1)

	assert.ErrorIs(t, db.Storage.SetRuleEnabled(ctx, 9999, true), common.ErrNotFound)
}

func TestRecordRuleMatch(t *testing.T) {
	db := testutil.SetupTestDB(t)
	ctx := context.Background()

	rule := db.SeedRule(sampleRule("counted", 10))
	matchedAt := time.Date(2026, 8, 29, 9, 30, 0, 0, time.UTC)

	count, err := db.Storage.RecordRuleMatch(ctx, rule.ID, matchedAt)
	require.NoError(t, err)
	assert.Equal(t, 1, count)

	count, err = db.Storage.RecordRuleMatch(ctx, rule.ID, matchedAt.Add(time.Minute))
	require.NoError(t, err)
	assert.Equal(t, 2, count)

	loaded, err := db.Storage.GetRule(ctx, rule.ID)
	require.NoError(t, err)
	assert.Equal(t, 2, loaded.MatchCount)
	require.NotNil(t, loaded.LastMatchDate)
	assert.True(t, loaded.LastMatchDate.Equal(matchedAt.Add(time.Minute)))

	_, err = db.Storage.RecordRuleMatch(ctx, 9999, matchedAt)
	assert.ErrorIs(t, err, common.ErrNotFound)
}
