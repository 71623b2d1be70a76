package rules

import (
	"context"
	"sync"
	"testing"
	"time"

	"github.com/haldana/sift/internal/model"
)

// mockArticleSource serves articles from a fixed map. Unknown IDs return
// (nil, nil) the way the storage layer does for filtered-out rows.
type mockArticleSource struct {
	mu       sync.Mutex
	articles map[int64]*model.Article
	err      error
	calls    int
}

func (m *mockArticleSource) GetArticleByID(_ context.Context, id int64) (*model.Article, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.calls++
	if m.err != nil {
		return nil, m.err
	}
	return m.articles[id], nil
}

type mockRuleSource struct {
	rules []model.Rule
	err   error
}

func (m *mockRuleSource) GetActiveRules(_ context.Context) ([]model.Rule, error) {
	if m.err != nil {
		return nil, m.err
	}
	out := make([]model.Rule, len(m.rules))
	copy(out, m.rules)
	return out, nil
}

// mockRecorder counts matches per rule and hands back the running total.
type mockRecorder struct {
	mu     sync.Mutex
	counts map[int64]int
	lastAt map[int64]time.Time
	err    error
}

func newMockRecorder() *mockRecorder {
	return &mockRecorder{counts: make(map[int64]int), lastAt: make(map[int64]time.Time)}
}

func (m *mockRecorder) RecordRuleMatch(_ context.Context, ruleID int64, matchedAt time.Time) (int, error) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return 0, m.err
	}
	m.counts[ruleID]++
	m.lastAt[ruleID] = matchedAt
	return m.counts[ruleID], nil
}

func (m *mockRecorder) count(ruleID int64) int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.counts[ruleID]
}

type stateCall struct {
	articleID int64
	isRead    bool
	starred   bool
}

type mockStateMutator struct {
	mu    sync.Mutex
	calls []stateCall
	err   error
}

func (m *mockStateMutator) SetReadState(_ context.Context, articleID int64, isRead bool) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, stateCall{articleID: articleID, isRead: isRead})
	return nil
}

func (m *mockStateMutator) ToggleStarred(_ context.Context, articleID int64) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, stateCall{articleID: articleID, starred: true})
	return nil
}

type moveCall struct {
	feedID     int64
	categoryID int64
}

type mockCategoryMutator struct {
	calls []moveCall
	err   error
}

func (m *mockCategoryMutator) MoveFeedToCategory(_ context.Context, feedID, categoryID int64) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, moveCall{feedID: feedID, categoryID: categoryID})
	return nil
}

type tagCall struct {
	appliedBy  string
	articleID  int64
	tagID      int64
	ruleID     int64
	confidence float64
}

type mockTagMutator struct {
	calls []tagCall
	err   error
}

func (m *mockTagMutator) ApplyTag(_ context.Context, articleID, tagID int64, appliedBy string, ruleID int64, confidence float64) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, tagCall{
		articleID:  articleID,
		tagID:      tagID,
		appliedBy:  appliedBy,
		ruleID:     ruleID,
		confidence: confidence,
	})
	return nil
}

type notifyCall struct {
	articleID int64
	ruleID    int64
	priority  int
}

type mockNotifier struct {
	calls []notifyCall
	err   error
}

func (m *mockNotifier) Notify(_ context.Context, articleID, ruleID int64, priority int) error {
	if m.err != nil {
		return m.err
	}
	m.calls = append(m.calls, notifyCall{articleID: articleID, ruleID: ruleID, priority: priority})
	return nil
}

// newTestExecutor wires an executor over fresh mocks and returns them all.
func newTestExecutor(t *testing.T) (*Executor, *mockRecorder, *mockStateMutator, *mockCategoryMutator, *mockTagMutator, *mockNotifier) {
	t.Helper()
	recorder := newMockRecorder()
	states := &mockStateMutator{}
	categories := &mockCategoryMutator{}
	tags := &mockTagMutator{}
	notifier := &mockNotifier{}

	exec, err := NewExecutor(recorder, states, categories, tags, notifier)
	if err != nil {
		t.Fatalf("NewExecutor: %v", err)
	}
	return exec, recorder, states, categories, tags, notifier
}
