package rules

import (
	"context"
	"regexp"
	"sort"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// patternKey identifies a compiled regex in the matcher's cache. Keying by
// pattern rather than condition ID keeps the cache correct for in-memory
// rules whose conditions were never persisted and all carry ID zero.
type patternKey struct {
	pattern       string
	caseSensitive bool
}

// Matcher evaluates articles against a read-only snapshot of the active rule
// set. Evaluation is stateless and side-effect-free, so a single Matcher may
// serve any number of concurrent article evaluations.
type Matcher struct {
	compiled map[patternKey]*regexp.Regexp
	rules    []model.Rule
}

// NewMatcher creates a matcher over the given rules. Rules are ordered by
// ascending priority with ID as the stable tiebreaker, and regex conditions
// are pre-compiled; conditions whose pattern does not compile evaluate to
// false at match time.
func NewMatcher(ruleSet []model.Rule) *Matcher {
	m := &Matcher{
		rules:    make([]model.Rule, len(ruleSet)),
		compiled: make(map[patternKey]*regexp.Regexp),
	}
	copy(m.rules, ruleSet)

	sort.SliceStable(m.rules, func(i, j int) bool {
		if m.rules[i].Priority != m.rules[j].Priority {
			return m.rules[i].Priority < m.rules[j].Priority
		}
		return m.rules[i].ID < m.rules[j].ID
	})

	for _, rule := range m.rules {
		for i := range rule.Conditions {
			cond := &rule.Conditions[i]
			if cond.Operator != model.OpRegex {
				continue
			}
			key := patternKey{pattern: cond.RegexPattern, caseSensitive: cond.CaseSensitive}
			if _, ok := m.compiled[key]; ok {
				continue
			}
			if re := compileConditionPattern(cond); re != nil {
				m.compiled[key] = re
			}
		}
	}

	return m
}

// Rules returns the matcher's snapshot in evaluation order.
func (m *Matcher) Rules() []model.Rule {
	return m.rules
}

// Match evaluates one article against the full rule set: scope filter,
// condition group evaluation, and stop-on-match semantics. The returned
// rules are in evaluation order (ascending priority). A nil article matches
// nothing.
func (m *Matcher) Match(_ context.Context, article *model.Article) []model.Rule {
	if article == nil {
		return nil
	}

	var matches []model.Rule
	for _, rule := range m.rules {
		if !rule.IsEnabled {
			continue
		}
		if !m.inScope(&rule, article) {
			continue
		}
		if !m.matchesRule(&rule, article) {
			continue
		}

		matches = append(matches, rule)
		if rule.StopOnMatch {
			break
		}
	}
	return matches
}

// inScope applies the rule's feed scope filter. A malformed feed-ID list
// excludes the rule from matching for this run; it is reported, not raised.
func (m *Matcher) inScope(rule *model.Rule, article *model.Article) bool {
	if rule.Scope != model.ScopeSpecificFeeds {
		return true
	}

	feedIDs, err := rule.ScopeFeedIDList()
	if err != nil {
		common.LogWarn("malformed feed scope list, excluding rule from run", common.Fields{
			"rule_id": rule.ID,
			"scope":   rule.ScopeFeedIDs,
			"error":   err.Error(),
		})
		return false
	}

	for _, id := range feedIDs {
		if id == article.FeedID {
			return true
		}
	}
	return false
}

// matchesRule evaluates the rule's condition groups against the article.
// Cross-group combination is AND: all groups must pass. A rule with no
// conditions matches everything.
func (m *Matcher) matchesRule(rule *model.Rule, article *model.Article) bool {
	for _, group := range rule.ConditionGroups() {
		if !evaluateGroupWith(article, group, m.evaluate) {
			return false
		}
	}
	return true
}

// evaluate is the cache-backed condition evaluator used during matching.
func (m *Matcher) evaluate(article *model.Article, cond *model.Condition) bool {
	if article == nil || cond == nil {
		return false
	}
	if cond.Operator == model.OpRegex {
		key := patternKey{pattern: cond.RegexPattern, caseSensitive: cond.CaseSensitive}
		return evaluateCompiled(article, cond, m.compiled[key])
	}
	return evaluateCompiled(article, cond, nil)
}
