package rules

import (
	"sort"

	"github.com/haldana/sift/internal/model"
)

// conditionEvaluator evaluates a single condition against an article. The
// Matcher supplies a variant backed by its pre-compiled regex cache.
type conditionEvaluator func(*model.Article, *model.Condition) bool

// EvaluateGroup folds an ordered condition sequence into a single boolean.
// An empty or nil sequence is vacuously true, so catch-all rules can exist
// intentionally. Conditions are sorted by Order and combined strictly
// left-to-right via each condition's CombineWithNext operator; there is no
// operator-precedence nesting.
func EvaluateGroup(article *model.Article, conds []model.Condition) bool {
	return evaluateGroupWith(article, conds, EvaluateCondition)
}

func evaluateGroupWith(article *model.Article, conds []model.Condition, eval conditionEvaluator) bool {
	if len(conds) == 0 {
		return true
	}

	ordered := make([]model.Condition, len(conds))
	copy(ordered, conds)
	sort.SliceStable(ordered, func(i, j int) bool {
		return ordered[i].Order < ordered[j].Order
	})

	acc := eval(article, &ordered[0])
	for i := 1; i < len(ordered); i++ {
		// Short-circuit: with AND-false or OR-true the next operand cannot
		// affect the accumulator, so it must not be evaluated.
		switch ordered[i-1].CombineWithNext {
		case model.ChainOr:
			if acc {
				continue
			}
			acc = eval(article, &ordered[i])
		default:
			if !acc {
				continue
			}
			acc = eval(article, &ordered[i])
		}
	}
	return acc
}
