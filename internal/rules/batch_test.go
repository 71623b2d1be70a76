package rules

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/haldana/sift/internal/model"
)

func batchFixtures() (*mockArticleSource, *mockRuleSource) {
	a1 := testArticle()
	a2 := testArticle()
	a2.ID = 2
	a2.Title = "Quiet mojito evening"

	articles := &mockArticleSource{articles: map[int64]*model.Article{1: a1, 2: a2}}
	rules := &mockRuleSource{rules: []model.Rule{
		titleRule(1, 10, "cuba"),
		titleRule(2, 20, "mojito"),
	}}
	return articles, rules
}

func TestNewCoordinator(t *testing.T) {
	articles, ruleSource := batchFixtures()

	t.Run("requires an article source", func(t *testing.T) {
		c, err := NewCoordinator(nil, ruleSource, nil, 1)
		assert.Error(t, err)
		assert.Nil(t, c)
	})

	t.Run("requires a rule source", func(t *testing.T) {
		c, err := NewCoordinator(articles, nil, nil, 1)
		assert.Error(t, err)
		assert.Nil(t, c)
	})

	t.Run("non-positive workers defaults to available parallelism", func(t *testing.T) {
		c, err := NewCoordinator(articles, ruleSource, nil, 0)
		require.NoError(t, err)
		assert.Positive(t, c.workers)
	})
}

func TestCoordinator_EvaluateBatch(t *testing.T) {
	articles, ruleSource := batchFixtures()
	c, err := NewCoordinator(articles, ruleSource, nil, 2)
	require.NoError(t, err)

	results, err := c.EvaluateBatch(context.Background(), []int64{1, 2}, BatchOptions{})
	require.NoError(t, err)
	require.Len(t, results, 2)
	assert.Equal(t, []int64{1}, matchedIDs(results[1]))
	assert.Equal(t, []int64{2}, matchedIDs(results[2]))
}

func TestCoordinator_EvaluateBatch_SkipsUnresolvableArticles(t *testing.T) {
	articles, ruleSource := batchFixtures()
	c, err := NewCoordinator(articles, ruleSource, nil, 2)
	require.NoError(t, err)

	var progress atomic.Int32
	results, err := c.EvaluateBatch(context.Background(), []int64{1, 999}, BatchOptions{
		OnProgress: func() { progress.Add(1) },
	})
	require.NoError(t, err)

	// The missing article gets no entry and is not an error, but it still
	// counts toward progress.
	require.Len(t, results, 1)
	assert.Contains(t, results, int64(1))
	assert.Equal(t, int32(2), progress.Load())
}

func TestCoordinator_EvaluateBatch_RuleFilter(t *testing.T) {
	articles, ruleSource := batchFixtures()
	c, err := NewCoordinator(articles, ruleSource, nil, 1)
	require.NoError(t, err)

	results, err := c.EvaluateBatch(context.Background(), []int64{1, 2}, BatchOptions{RuleID: 2})
	require.NoError(t, err)
	assert.Empty(t, results[1])
	assert.Equal(t, []int64{2}, matchedIDs(results[2]))
}

func TestCoordinator_EvaluateBatch_RuleLoadFailure(t *testing.T) {
	articles, _ := batchFixtures()
	c, err := NewCoordinator(articles, &mockRuleSource{err: errors.New("no rules today")}, nil, 1)
	require.NoError(t, err)

	results, err := c.EvaluateBatch(context.Background(), []int64{1}, BatchOptions{})
	assert.Error(t, err)
	assert.Nil(t, results)
}

func TestCoordinator_EvaluateBatch_Cancellation(t *testing.T) {
	articles, ruleSource := batchFixtures()
	c, err := NewCoordinator(articles, ruleSource, nil, 1)
	require.NoError(t, err)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()

	results, err := c.EvaluateBatch(ctx, []int64{1, 2}, BatchOptions{})
	assert.ErrorIs(t, err, context.Canceled)
	// Workers drain the queue without evaluating; no article is resolved.
	assert.Empty(t, results)
	assert.Zero(t, articles.calls)
}

func TestCoordinator_ApplyBatch(t *testing.T) {
	articles, ruleSource := batchFixtures()
	exec, recorder, states, _, _, _ := newTestExecutor(t)
	c, err := NewCoordinator(articles, ruleSource, exec, 2)
	require.NoError(t, err)

	stats, err := c.ApplyBatch(context.Background(), []int64{1, 2}, BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Evaluated)
	assert.Equal(t, 2, stats.Matched)
	assert.Equal(t, 2, stats.ActionsExecuted)
	assert.Zero(t, stats.ActionsFailed)
	assert.Equal(t, 1, recorder.count(1))
	assert.Equal(t, 1, recorder.count(2))
	assert.Len(t, states.calls, 2)
}

func TestCoordinator_ApplyBatch_CountsFailures(t *testing.T) {
	articles, ruleSource := batchFixtures()
	exec, recorder, states, _, _, _ := newTestExecutor(t)
	states.err = errors.New("read-only weekend")
	c, err := NewCoordinator(articles, ruleSource, exec, 1)
	require.NoError(t, err)

	stats, err := c.ApplyBatch(context.Background(), []int64{1, 2}, BatchOptions{})
	require.NoError(t, err)

	assert.Equal(t, 2, stats.Evaluated)
	assert.Equal(t, 2, stats.Matched)
	assert.Zero(t, stats.ActionsExecuted)
	assert.Equal(t, 2, stats.ActionsFailed)
	assert.Zero(t, recorder.count(1))
	assert.Zero(t, recorder.count(2))
}

func TestCoordinator_ApplyBatch_RequiresExecutor(t *testing.T) {
	articles, ruleSource := batchFixtures()
	c, err := NewCoordinator(articles, ruleSource, nil, 1)
	require.NoError(t, err)

	stats, err := c.ApplyBatch(context.Background(), []int64{1}, BatchOptions{})
	assert.Error(t, err)
	assert.Nil(t, stats)
}
