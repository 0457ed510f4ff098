package compound

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/cascade"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

func newTestEngine(t *testing.T, s *store.Store) *workflow.Engine {
	t.Helper()
	return workflow.NewEngine(s, newTestCache(t), cascade.New())
}

func mkTreeItem(ctx context.Context, t *testing.T, s *store.Store, id, parentID string, depth int, createdAt time.Time, status string, role model.Role) {
	t.Helper()
	require.NoError(t, s.CreateItem(ctx, &model.WorkItem{
		ID: id, ParentID: parentID, Depth: depth, Title: id, Priority: model.PriorityMedium,
		Status: status, Role: role, CreatedAt: createdAt, ModifiedAt: createdAt,
	}))
}

func TestCompleteTreeDrivesDeepestFirst(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newTestEngine(t, s)

	base := time.Now().UTC()
	mkTreeItem(ctx, t, s, "root", "", 0, base, "pending", model.RoleQueue)
	mkTreeItem(ctx, t, s, "child-1", "root", 1, base.Add(time.Second), "pending", model.RoleQueue)
	mkTreeItem(ctx, t, s, "child-2", "root", 1, base.Add(2*time.Second), "pending", model.RoleQueue)

	results, err := CompleteTree(ctx, s, eng, "root", workflow.TriggerStart, "tester")
	require.NoError(t, err)
	require.Len(t, results, 3)

	order := []string{results[0].ItemID, results[1].ItemID, results[2].ItemID}
	assert.Equal(t, []string{"child-1", "child-2", "root"}, order, "children must be driven before their parent")

	for _, r := range results[:2] {
		assert.NoError(t, r.Err)
	}
	// child-1's start cascades first_task_started to root, so root's own
	// start finds it already in_progress.
	rootErr, ok := apperr.As(results[2].Err)
	require.True(t, ok)
	assert.Equal(t, apperr.NoTransitionAvailable, rootErr.Code)

	got, err := s.GetItem(ctx, "root")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", got.Status)
}

func TestCompleteTreeIsolatesPerItemFailures(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newTestEngine(t, s)

	base := time.Now().UTC()
	mkTreeItem(ctx, t, s, "root", "", 0, base, "pending", model.RoleQueue)
	// child is already terminal, so TriggerStart has nothing to resolve to and must fail
	mkTreeItem(ctx, t, s, "child", "root", 1, base.Add(time.Second), "completed", model.RoleTerminal)

	results, err := CompleteTree(ctx, s, eng, "root", workflow.TriggerStart, "tester")
	require.NoError(t, err)
	require.Len(t, results, 2)

	var childResult, rootResult *workflow.BatchResult
	for i := range results {
		switch results[i].ItemID {
		case "child":
			childResult = &results[i]
		case "root":
			rootResult = &results[i]
		}
	}
	require.NotNil(t, childResult)
	require.NotNil(t, rootResult)
	assert.Error(t, childResult.Err, "a terminal item has no Start transition available")
	assert.NoError(t, rootResult.Err, "root's own advance must not be affected by its child's failure")
}

func TestCompleteTreeOrdersSiblingsByDependencyNotJustAge(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newTestEngine(t, s)

	base := time.Now().UTC()
	mkTreeItem(ctx, t, s, "root", "", 0, base, "pending", model.RoleQueue)
	// "blocked" is created before "blocker", so depth+CreatedAt order alone
	// would drive it first; the BLOCKS edge requires the opposite.
	mkTreeItem(ctx, t, s, "blocked", "root", 1, base.Add(time.Second), "pending", model.RoleQueue)
	mkTreeItem(ctx, t, s, "blocker", "root", 1, base.Add(2*time.Second), "pending", model.RoleQueue)
	require.NoError(t, s.CreateDependency(ctx, &model.Dependency{
		ID: "dep-1", FromID: "blocker", ToID: "blocked", Type: model.DepBlocks, CreatedAt: base,
	}))

	results, err := CompleteTree(ctx, s, eng, "root", workflow.TriggerComplete, "tester")
	require.NoError(t, err)
	require.Len(t, results, 3)

	order := []string{results[0].ItemID, results[1].ItemID, results[2].ItemID}
	assert.Equal(t, []string{"blocker", "blocked", "root"}, order,
		"the blocker must be driven before the item it blocks, regardless of CreatedAt")

	for _, r := range results[:2] {
		assert.NoError(t, r.Err, "blocked must not spuriously fail DependenciesNotResolved since its blocker completes earlier in the same batch")
	}
	// Both children reaching terminal cascades all_tasks_complete to root,
	// so root's own complete has no further status to move to.
	rootErr, ok := apperr.As(results[2].Err)
	require.True(t, ok)
	assert.Equal(t, apperr.NoTransitionAvailable, rootErr.Code)
}

func TestCompleteTreeUnknownRootErrors(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	eng := newTestEngine(t, s)

	_, err := CompleteTree(ctx, s, eng, "missing", workflow.TriggerStart, "tester")
	require.Error(t, err)
}
