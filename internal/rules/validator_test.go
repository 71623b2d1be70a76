package rules

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

func TestValidateCondition(t *testing.T) {
	tests := []struct {
		name    string
		cond    *model.Condition
		wantErr string
	}{
		{
			name: "valid contains condition",
			cond: &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: "go"},
		},
		{
			name: "valid is_empty needs no value",
			cond: &model.Condition{FieldTarget: model.FieldAuthor, Operator: model.OpIsEmpty},
		},
		{
			name: "valid regex condition",
			cond: &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpRegex, RegexPattern: `^go\b`},
		},
		{
			name: "zero group and positive order are fine",
			cond: &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: "x", GroupID: 0, Order: 1},
		},
		{
			name:    "nil condition",
			cond:    nil,
			wantErr: "condition is nil",
		},
		{
			name:    "unknown field target",
			cond:    &model.Condition{FieldTarget: "headline", Operator: model.OpContains, Value: "x"},
			wantErr: "unknown field target",
		},
		{
			name:    "unknown operator",
			cond:    &model.Condition{FieldTarget: model.FieldTitle, Operator: "matches", Value: "x"},
			wantErr: "unknown operator",
		},
		{
			name:    "contains with blank value",
			cond:    &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: "  "},
			wantErr: "requires a value",
		},
		{
			name:    "regex without pattern",
			cond:    &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpRegex},
			wantErr: "requires a pattern",
		},
		{
			name:    "regex pattern does not compile",
			cond:    &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpRegex, RegexPattern: "("},
			wantErr: "does not compile",
		},
		{
			name:    "negative group ID",
			cond:    &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: "x", GroupID: -1},
			wantErr: "group ID must be non-negative",
		},
		{
			name:    "negative order",
			cond:    &model.Condition{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: "x", Order: -2},
			wantErr: "order must be non-negative",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := ValidateCondition(tt.cond)
			if tt.wantErr == "" {
				assert.NoError(t, err)
				return
			}
			require.Error(t, err)
			assert.ErrorIs(t, err, common.ErrInvalidCondition)
			assert.Contains(t, err.Error(), tt.wantErr)
		})
	}
}

func TestValidateRuleConditions(t *testing.T) {
	t.Run("nil rule is invalid", func(t *testing.T) {
		result := ValidateRuleConditions(nil)
		assert.False(t, result.Valid)
		assert.Len(t, result.Errors, 1)
	})

	t.Run("rule with no conditions is valid", func(t *testing.T) {
		result := ValidateRuleConditions(&model.Rule{Name: "catch-all"})
		assert.True(t, result.Valid)
		assert.Empty(t, result.Errors)
	})

	t.Run("collects every invalid condition", func(t *testing.T) {
		rule := &model.Rule{
			Name: "mixed",
			Conditions: []model.Condition{
				{FieldTarget: model.FieldTitle, Operator: model.OpContains, Value: "ok"},
				{FieldTarget: model.FieldTitle, Operator: model.OpRegex, RegexPattern: "["},
				{FieldTarget: "bogus", Operator: model.OpContains, Value: "x"},
			},
		}

		result := ValidateRuleConditions(rule)
		assert.False(t, result.Valid)
		require.Len(t, result.Errors, 2)
		assert.Contains(t, result.Errors[0], "condition 1")
		assert.Contains(t, result.Errors[1], "condition 2")
	})
}
