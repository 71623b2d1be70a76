package rules

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// TagAppliedBy is the provenance marker recorded with rule-applied tags.
const TagAppliedBy = "rule"

// Executor performs a matched rule's action exactly once and records the
// match. It is the engine's only suspension point: all external I/O is
// confined here.
type Executor struct {
	nowFn      func() time.Time
	recorder   MatchRecorder
	states     StateMutator
	categories CategoryMutator
	tags       TagMutator
	notifier   Notifier
}

// NewExecutor creates an action executor. Nil collaborators are programming
// errors and are rejected at construction time.
func NewExecutor(recorder MatchRecorder, states StateMutator, categories CategoryMutator, tags TagMutator, notifier Notifier) (*Executor, error) {
	switch {
	case recorder == nil:
		return nil, errors.New("match recorder is required")
	case states == nil:
		return nil, errors.New("state mutator is required")
	case categories == nil:
		return nil, errors.New("category mutator is required")
	case tags == nil:
		return nil, errors.New("tag mutator is required")
	case notifier == nil:
		return nil, errors.New("notifier is required")
	}

	return &Executor{
		recorder:   recorder,
		states:     states,
		categories: categories,
		tags:       tags,
		notifier:   notifier,
		nowFn:      time.Now,
	}, nil
}

// Execute performs the rule's declared action for the article and, on
// success, records the match: the rule's match count is atomically
// incremented and its last-match timestamp set. It returns true iff the
// action completed and the match was recorded. A downstream failure is
// recoverable: the counter does not move and processing of other rules and
// articles continues.
func (e *Executor) Execute(ctx context.Context, rule *model.Rule, article *model.Article) bool {
	if rule == nil || article == nil {
		return false
	}

	if err := e.runAction(ctx, rule, article); err != nil {
		common.LogWarn("rule action failed", common.Fields{
			"rule_id":    rule.ID,
			"rule_name":  rule.Name,
			"article_id": article.ID,
			"action":     string(rule.ActionType),
			"error":      err.Error(),
		})
		return false
	}

	now := e.nowFn()
	count, err := e.recorder.RecordRuleMatch(ctx, rule.ID, now)
	if err != nil {
		common.LogError(err, "failed to record rule match", common.Fields{
			"rule_id":    rule.ID,
			"article_id": article.ID,
		})
		return false
	}

	rule.MatchCount = count
	rule.LastMatchDate = &now

	common.LogDebug("rule matched and executed", common.Fields{
		"rule_id":     rule.ID,
		"article_id":  article.ID,
		"action":      string(rule.ActionType),
		"match_count": count,
	})
	return true
}

func (e *Executor) runAction(ctx context.Context, rule *model.Rule, article *model.Article) error {
	switch rule.ActionType {
	case model.ActionMarkAsRead:
		return e.states.SetReadState(ctx, article.ID, true)

	case model.ActionMarkAsStarred:
		return e.states.ToggleStarred(ctx, article.ID)

	case model.ActionMoveToCategory:
		if rule.ActionCategoryID == nil {
			return fmt.Errorf("rule %d has no target category", rule.ID)
		}
		return e.categories.MoveFeedToCategory(ctx, article.FeedID, *rule.ActionCategoryID)

	case model.ActionTag:
		tagIDs, err := rule.ActionTagIDList()
		if err != nil {
			return fmt.Errorf("rule %d has a malformed tag list: %w", rule.ID, err)
		}
		if len(tagIDs) == 0 {
			return fmt.Errorf("rule %d has no tags to apply", rule.ID)
		}
		for _, tagID := range tagIDs {
			if err := e.tags.ApplyTag(ctx, article.ID, tagID, TagAppliedBy, rule.ID, rule.Confidence); err != nil {
				return err
			}
		}
		return nil

	case model.ActionNotify:
		return e.notifier.Notify(ctx, article.ID, rule.ID, rule.ActionPriority)
	}

	return fmt.Errorf("unknown action type %q", rule.ActionType)
}
