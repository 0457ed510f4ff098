package cascade

import (
	"context"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

func newTestStore(t *testing.T) *store.Store {
	t.Helper()
	ctx := context.Background()
	s, err := store.Open(ctx, filepath.Join(t.TempDir(), "test.db"), 4)
	require.NoError(t, err)
	t.Cleanup(func() { _ = s.Close() })
	return s
}

func testSnapshot() *wfconfig.Snapshot {
	return &wfconfig.Snapshot{
		Workflow: &wfconfig.Workflow{
			Flows: []wfconfig.Flow{{
				Name:      "default_flow",
				Sequence:  []string{"pending", "in_progress", "completed"},
				Terminal:  []string{"completed", "cancelled"},
				Emergency: []string{"blocked"},
			}},
			StatusRoles: map[string]string{
				"pending": "queue", "in_progress": "work",
				"blocked": "blocked", "completed": "terminal", "cancelled": "terminal",
			},
			AutoCascade: wfconfig.AutoCascade{Enabled: true, MaxDepth: 3},
		},
		Schemas: &wfconfig.Schemas{},
	}
}

func mkItem(ctx context.Context, t *testing.T, s *store.Store, id, parentID, status string, role model.Role) {
	t.Helper()
	now := time.Now().UTC()
	require.NoError(t, s.CreateItem(ctx, &model.WorkItem{
		ID: id, ParentID: parentID, Title: id, Priority: model.PriorityMedium,
		Status: status, Role: role, CreatedAt: now, ModifiedAt: now,
	}))
}

func TestPropagateFirstTaskStarted(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mkItem(ctx, t, s, "parent", "", "pending", model.RoleQueue)
	mkItem(ctx, t, s, "child", "parent", "in_progress", model.RoleWork)

	snap := testSnapshot()
	engine := New()
	var events []workflow.CascadeEvent
	require.NoError(t, s.Transact(ctx, func(tx *store.Tx) error {
		var err error
		events, err = engine.Propagate(tx, snap, "child")
		return err
	}))

	require.Len(t, events, 1)
	assert.Equal(t, "first_task_started", events[0].EventName)
	assert.True(t, events[0].Applied)
	assert.Equal(t, "in_progress", events[0].ToStatus)

	parent, err := s.GetItem(ctx, "parent")
	require.NoError(t, err)
	assert.Equal(t, "in_progress", parent.Status)
}

func TestPropagateAllTasksCompleteChainsUpward(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mkItem(ctx, t, s, "grandparent", "", "in_progress", model.RoleWork)
	mkItem(ctx, t, s, "parent", "grandparent", "in_progress", model.RoleWork)
	mkItem(ctx, t, s, "child1", "parent", "completed", model.RoleTerminal)
	mkItem(ctx, t, s, "child2", "parent", "in_progress", model.RoleWork)

	snap := testSnapshot()
	engine := New()

	// Completing child2 means every child of "parent" is now terminal,
	// which should cascade parent -> completed, which in turn completes
	// grandparent since parent was its only child.
	require.NoError(t, s.Transact(ctx, func(tx *store.Tx) error {
		child2, err := tx.GetItem("child2")
		if err != nil {
			return err
		}
		child2.Status = "completed"
		child2.Role = model.RoleTerminal
		if err := tx.UpdateItem(child2); err != nil {
			return err
		}
		_, err = engine.Propagate(tx, snap, "child2")
		return err
	}))

	parent, err := s.GetItem(ctx, "parent")
	require.NoError(t, err)
	assert.Equal(t, "completed", parent.Status)

	grandparent, err := s.GetItem(ctx, "grandparent")
	require.NoError(t, err)
	assert.Equal(t, "completed", grandparent.Status, "completing the only remaining child should chain the cascade up two levels")
}

func TestPropagateNoEventWhenSiblingStillActive(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mkItem(ctx, t, s, "parent", "", "in_progress", model.RoleWork)
	mkItem(ctx, t, s, "child1", "parent", "completed", model.RoleTerminal)
	mkItem(ctx, t, s, "child2", "parent", "in_progress", model.RoleWork)

	snap := testSnapshot()
	engine := New()
	var events []workflow.CascadeEvent
	require.NoError(t, s.Transact(ctx, func(tx *store.Tx) error {
		var err error
		events, err = engine.Propagate(tx, snap, "child1")
		return err
	}))
	assert.Empty(t, events, "parent must not complete while child2 is still active")
}

func TestPropagateRootHasNoParent(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mkItem(ctx, t, s, "root", "", "in_progress", model.RoleWork)

	snap := testSnapshot()
	engine := New()
	var events []workflow.CascadeEvent
	require.NoError(t, s.Transact(ctx, func(tx *store.Tx) error {
		var err error
		events, err = engine.Propagate(tx, snap, "root")
		return err
	}))
	assert.Empty(t, events)
}

func TestPropagateDisabledReturnsNoEvents(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mkItem(ctx, t, s, "parent", "", "pending", model.RoleQueue)
	mkItem(ctx, t, s, "child", "parent", "in_progress", model.RoleWork)

	snap := testSnapshot()
	snap.Workflow.AutoCascade.Enabled = false
	engine := New()
	var events []workflow.CascadeEvent
	require.NoError(t, s.Transact(ctx, func(tx *store.Tx) error {
		var err error
		events, err = engine.Propagate(tx, snap, "child")
		return err
	}))
	assert.Empty(t, events)

	parent, err := s.GetItem(ctx, "parent")
	require.NoError(t, err)
	assert.Equal(t, "pending", parent.Status, "disabled cascade must not mutate the parent")
}

func TestPropagateDepthCapEmitsCascadeDepthExceeded(t *testing.T) {
	ctx := context.Background()
	s := newTestStore(t)
	mkItem(ctx, t, s, "great-grandparent", "", "in_progress", model.RoleWork)
	mkItem(ctx, t, s, "grandparent", "great-grandparent", "in_progress", model.RoleWork)
	mkItem(ctx, t, s, "parent", "grandparent", "in_progress", model.RoleWork)
	mkItem(ctx, t, s, "child", "parent", "in_progress", model.RoleWork)

	snap := testSnapshot()
	snap.Workflow.AutoCascade.MaxDepth = 1
	engine := New()

	require.NoError(t, s.Transact(ctx, func(tx *store.Tx) error {
		child, err := tx.GetItem("child")
		if err != nil {
			return err
		}
		child.Status = "completed"
		child.Role = model.RoleTerminal
		if err := tx.UpdateItem(child); err != nil {
			return err
		}
		events, err := engine.Propagate(tx, snap, "child")
		if err != nil {
			return err
		}
		require.NotEmpty(t, events)
		last := events[len(events)-1]
		assert.False(t, last.Applied)
		assert.Contains(t, last.Reason, "CascadeDepthExceeded")
		return nil
	}))
}
