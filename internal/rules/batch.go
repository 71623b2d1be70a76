package rules

import (
	"context"
	"errors"
	"fmt"
	"runtime"
	"sync"

	"github.com/haldana/sift/internal/common"
	"github.com/haldana/sift/internal/model"
)

// BatchOptions configures a batch evaluation run.
type BatchOptions struct {
	// OnProgress, when set, is called once per processed article.
	OnProgress func()
	// RuleID restricts the run to a single rule. Zero means all active rules.
	RuleID int64
}

// ApplyStats aggregates the outcome of an apply run.
type ApplyStats struct {
	Evaluated       int
	Matched         int
	ActionsExecuted int
	ActionsFailed   int
}

// Coordinator fans a collection of articles out to the rule matcher on a
// bounded worker pool. Evaluation shares only the read-only rule snapshot,
// so articles are processed concurrently without synchronization; only match
// recording inside the executor mutates state.
type Coordinator struct {
	articles ArticleSource
	rules    RuleSource
	executor *Executor
	workers  int
}

// NewCoordinator creates a batch coordinator. The executor may be nil when
// the coordinator is only used for evaluation; workers <= 0 selects the
// available parallelism.
func NewCoordinator(articles ArticleSource, ruleSource RuleSource, executor *Executor, workers int) (*Coordinator, error) {
	if articles == nil {
		return nil, errors.New("article source is required")
	}
	if ruleSource == nil {
		return nil, errors.New("rule source is required")
	}
	if workers <= 0 {
		workers = runtime.NumCPU()
	}

	return &Coordinator{
		articles: articles,
		rules:    ruleSource,
		executor: executor,
		workers:  workers,
	}, nil
}

// EvaluateBatch evaluates the given articles against the active rule set and
// returns the matched rules keyed by article ID. Articles that cannot be
// resolved get no entry; they are not errors. Cancellation is cooperative
// and checked between articles: on a canceled context the partial results
// are returned alongside the context's error.
func (c *Coordinator) EvaluateBatch(ctx context.Context, articleIDs []int64, opts BatchOptions) (map[int64][]model.Rule, error) {
	matcher, err := c.snapshot(ctx, opts)
	if err != nil {
		return nil, err
	}

	results := make(map[int64][]model.Rule, len(articleIDs))
	var mu sync.Mutex

	c.fanOut(ctx, articleIDs, opts, func(article *model.Article) {
		matched := matcher.Match(ctx, article)
		mu.Lock()
		results[article.ID] = matched
		mu.Unlock()
	})

	return results, ctx.Err()
}

// ApplyBatch evaluates the given articles and executes the action of every
// matched rule, aggregating statistics. Already-executed actions and their
// counter increments survive cancellation; cancellation is an early, clean
// stop, not a rollback.
func (c *Coordinator) ApplyBatch(ctx context.Context, articleIDs []int64, opts BatchOptions) (*ApplyStats, error) {
	if c.executor == nil {
		return nil, errors.New("coordinator has no executor")
	}

	matcher, err := c.snapshot(ctx, opts)
	if err != nil {
		return nil, err
	}

	stats := &ApplyStats{}
	var mu sync.Mutex

	c.fanOut(ctx, articleIDs, opts, func(article *model.Article) {
		matched := matcher.Match(ctx, article)

		executed, failed := 0, 0
		for i := range matched {
			if c.executor.Execute(ctx, &matched[i], article) {
				executed++
			} else {
				failed++
			}
		}

		mu.Lock()
		stats.Evaluated++
		stats.Matched += len(matched)
		stats.ActionsExecuted += executed
		stats.ActionsFailed += failed
		mu.Unlock()
	})

	return stats, ctx.Err()
}

// snapshot loads the active rules and builds the matcher for this run.
func (c *Coordinator) snapshot(ctx context.Context, opts BatchOptions) (*Matcher, error) {
	active, err := c.rules.GetActiveRules(ctx)
	if err != nil {
		return nil, fmt.Errorf("failed to load active rules: %w", err)
	}

	if opts.RuleID != 0 {
		filtered := active[:0]
		for _, rule := range active {
			if rule.ID == opts.RuleID {
				filtered = append(filtered, rule)
			}
		}
		active = filtered
	}

	return NewMatcher(active), nil
}

// fanOut distributes articles across the worker pool. Workers drain the job
// channel without evaluating once the context is canceled, so a single
// article's evaluation is never interrupted midway.
func (c *Coordinator) fanOut(ctx context.Context, articleIDs []int64, opts BatchOptions, process func(*model.Article)) {
	workers := c.workers
	if workers > len(articleIDs) && len(articleIDs) > 0 {
		workers = len(articleIDs)
	}

	jobs := make(chan int64)
	var wg sync.WaitGroup

	for n := 0; n < workers; n++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			for id := range jobs {
				if ctx.Err() != nil {
					continue
				}

				article, err := c.articles.GetArticleByID(ctx, id)
				if err != nil || article == nil {
					common.LogDebug("skipping unresolvable article", common.Fields{
						"article_id": id,
					})
					if opts.OnProgress != nil {
						opts.OnProgress()
					}
					continue
				}

				process(article)
				if opts.OnProgress != nil {
					opts.OnProgress()
				}
			}
		}()
	}

	for _, id := range articleIDs {
		jobs <- id
	}
	close(jobs)
	wg.Wait()
}
