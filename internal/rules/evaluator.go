package rules

import (
	"regexp"
	"strconv"
	"strings"

	"github.com/araddon/dateparse"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// EvaluateCondition evaluates one condition against one article. It never
// panics: a nil article or condition, an unknown operator, or an invalid
// regex pattern all degrade to false. Negation is applied after operator
// evaluation so every operator supports it uniformly.
func EvaluateCondition(article *model.Article, cond *model.Condition) bool {
	if article == nil || cond == nil {
		return false
	}

	var re *regexp.Regexp
	if cond.Operator == model.OpRegex {
		re = compileConditionPattern(cond)
	}
	return evaluateCompiled(article, cond, re)
}

// evaluateCompiled is the shared evaluation path for the standalone
// EvaluateCondition and the Matcher's pre-compiled regex cache. A nil re for
// a Regex operator means the pattern did not compile.
func evaluateCompiled(article *model.Article, cond *model.Condition, re *regexp.Regexp) bool {
	result := evaluateOperator(article, cond, re)
	if cond.Negate {
		return !result
	}
	return result
}

func evaluateOperator(article *model.Article, cond *model.Condition, re *regexp.Regexp) bool {
	if cond.FieldTarget.IsSet() {
		return evaluateSet(ExtractFieldSet(article, cond.FieldTarget), cond, re)
	}

	value := ExtractField(article, cond.FieldTarget)

	switch cond.Operator {
	case model.OpContains:
		return containsFold(value, cond.Value, cond.CaseSensitive)
	case model.OpNotContains:
		return !containsFold(value, cond.Value, cond.CaseSensitive)
	case model.OpEquals:
		return equalsFold(value, cond.Value, cond.CaseSensitive)
	case model.OpNotEquals:
		return !equalsFold(value, cond.Value, cond.CaseSensitive)
	case model.OpGreaterThan:
		return compareOrdered(value, cond.Value, cond.CaseSensitive) > 0
	case model.OpLessThan:
		return compareOrdered(value, cond.Value, cond.CaseSensitive) < 0
	case model.OpRegex:
		return re != nil && re.MatchString(value)
	case model.OpIsEmpty:
		return strings.TrimSpace(value) == ""
	case model.OpIsNotEmpty:
		return strings.TrimSpace(value) != ""
	}
	return false
}

// evaluateSet applies membership semantics for the Category and Tag targets:
// Contains and Equals both test whether the set holds the condition's value,
// Regex tests whether any member matches, and the ordered operators succeed
// when any member satisfies the comparison.
func evaluateSet(names []string, cond *model.Condition, re *regexp.Regexp) bool {
	switch cond.Operator {
	case model.OpContains, model.OpEquals:
		return setContains(names, cond.Value, cond.CaseSensitive)
	case model.OpNotContains, model.OpNotEquals:
		return !setContains(names, cond.Value, cond.CaseSensitive)
	case model.OpGreaterThan:
		for _, name := range names {
			if compareOrdered(name, cond.Value, cond.CaseSensitive) > 0 {
				return true
			}
		}
		return false
	case model.OpLessThan:
		for _, name := range names {
			if compareOrdered(name, cond.Value, cond.CaseSensitive) < 0 {
				return true
			}
		}
		return false
	case model.OpRegex:
		if re == nil {
			return false
		}
		for _, name := range names {
			if re.MatchString(name) {
				return true
			}
		}
		return false
	case model.OpIsEmpty:
		return len(names) == 0
	case model.OpIsNotEmpty:
		return len(names) > 0
	}
	return false
}

func setContains(names []string, value string, caseSensitive bool) bool {
	for _, name := range names {
		if equalsFold(name, value, caseSensitive) {
			return true
		}
	}
	return false
}

func containsFold(haystack, needle string, caseSensitive bool) bool {
	if caseSensitive {
		return strings.Contains(haystack, needle)
	}
	return strings.Contains(strings.ToLower(haystack), strings.ToLower(needle))
}

func equalsFold(a, b string, caseSensitive bool) bool {
	if caseSensitive {
		return a == b
	}
	return strings.EqualFold(a, b)
}

// compareOrdered compares two values with graceful degradation: numeric
// parse of both sides first, then date parse, then ordinal string
// comparison. The same GreaterThan/LessThan operators thereby serve numeric,
// date, and lexical fields.
func compareOrdered(left, right string, caseSensitive bool) int {
	lt := strings.TrimSpace(left)
	rt := strings.TrimSpace(right)

	if lf, err := strconv.ParseFloat(lt, 64); err == nil {
		if rf, err := strconv.ParseFloat(rt, 64); err == nil {
			switch {
			case lf < rf:
				return -1
			case lf > rf:
				return 1
			default:
				return 0
			}
		}
	}

	if ld, err := dateparse.ParseAny(lt); err == nil {
		if rd, err := dateparse.ParseAny(rt); err == nil {
			return ld.Compare(rd)
		}
	}

	if !caseSensitive {
		return strings.Compare(strings.ToLower(left), strings.ToLower(right))
	}
	return strings.Compare(left, right)
}

// compileConditionPattern compiles a Regex condition's pattern. An invalid
// pattern is reported through the logging boundary and yields nil, which the
// evaluator treats as a non-match.
func compileConditionPattern(cond *model.Condition) *regexp.Regexp {
	re, err := common.CompilePattern(cond.RegexPattern, cond.CaseSensitive)
	if err != nil {
		common.LogWarn("invalid regex pattern in condition", common.Fields{
			"condition_id": cond.ID,
			"rule_id":      cond.RuleID,
			"pattern":      cond.RegexPattern,
			"error":        err.Error(),
		})
		return nil
	}
	return re
}
