package rules

import (
	"fmt"
	"strings"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// ValidationResult aggregates the outcome of validating a rule's conditions.
type ValidationResult struct {
	Errors []string
	Valid  bool
}

// ValidateCondition statically checks a condition's structural
// well-formedness without needing an article. It never mutates and never
// panics for malformed input; a nil error means the condition is valid.
func ValidateCondition(cond *model.Condition) error {
	if cond == nil {
		return fmt.Errorf("%w: condition is nil", common.ErrInvalidCondition)
	}

	if !cond.FieldTarget.Valid() {
		return fmt.Errorf("%w: unknown field target %q", common.ErrInvalidCondition, cond.FieldTarget)
	}

	if !cond.Operator.Valid() {
		return fmt.Errorf("%w: unknown operator %q", common.ErrInvalidCondition, cond.Operator)
	}

	if cond.Operator.RequiresValue() && strings.TrimSpace(cond.Value) == "" {
		return fmt.Errorf("%w: operator %s requires a value", common.ErrInvalidCondition, cond.Operator)
	}

	if cond.Operator == model.OpRegex {
		if strings.TrimSpace(cond.RegexPattern) == "" {
			return fmt.Errorf("%w: regex operator requires a pattern", common.ErrInvalidCondition)
		}
		if _, err := common.CompilePattern(cond.RegexPattern, cond.CaseSensitive); err != nil {
			return fmt.Errorf("%w: pattern does not compile: %v", common.ErrInvalidCondition, err)
		}
	}

	if cond.GroupID < 0 {
		return fmt.Errorf("%w: group ID must be non-negative, got %d", common.ErrInvalidCondition, cond.GroupID)
	}

	if cond.Order < 0 {
		return fmt.Errorf("%w: order must be non-negative, got %d", common.ErrInvalidCondition, cond.Order)
	}

	return nil
}

// ValidateRuleConditions validates every condition owned by a rule. The rule
// as a whole is invalid if any condition is invalid.
func ValidateRuleConditions(rule *model.Rule) ValidationResult {
	if rule == nil {
		return ValidationResult{Valid: false, Errors: []string{"rule is nil"}}
	}

	var errs []string
	for i := range rule.Conditions {
		if err := ValidateCondition(&rule.Conditions[i]); err != nil {
			errs = append(errs, fmt.Sprintf("condition %d: %v", i, err))
		}
	}

	return ValidationResult{Valid: len(errs) == 0, Errors: errs}
}
