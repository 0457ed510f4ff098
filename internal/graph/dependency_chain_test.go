package graph

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
)

func itemWithRole(f *fakeSource, id string, role model.Role) *fakeSource {
	f.items[id].Role = role
	return f
}

func TestDependencyChainOutgoingOrderedByDepth(t *testing.T) {
	src := newFakeSource().addItem("a", "", 0).addItem("b", "", 0).addItem("c", "", 0).
		addDep("a", "b", model.DepBlocks).
		addDep("b", "c", model.DepRelatesTo)

	chain, err := DependencyChain(src, []string{"a"}, DirectionOutgoing, 0)
	require.NoError(t, err)
	require.Len(t, chain, 2)
	assert.Equal(t, "b", chain[0].Item.ID)
	assert.Equal(t, 1, chain[0].Depth)
	assert.Equal(t, "c", chain[1].Item.ID)
	assert.Equal(t, 2, chain[1].Depth)
}

func TestDependencyChainRespectsMaxDepth(t *testing.T) {
	src := newFakeSource().addItem("a", "", 0).addItem("b", "", 0).addItem("c", "", 0).
		addDep("a", "b", model.DepBlocks).
		addDep("b", "c", model.DepBlocks)

	chain, err := DependencyChain(src, []string{"a"}, DirectionOutgoing, 1)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "b", chain[0].Item.ID)
}

func TestDependencyChainIncomingReversesDirection(t *testing.T) {
	src := newFakeSource().addItem("a", "", 0).addItem("b", "", 0).
		addDep("a", "b", model.DepBlocks)

	chain, err := DependencyChain(src, []string{"b"}, DirectionIncoming, 0)
	require.NoError(t, err)
	require.Len(t, chain, 1)
	assert.Equal(t, "a", chain[0].Item.ID)
}

func TestBlockersCombinesBothEdgeDirections(t *testing.T) {
	src := newFakeSource().addItem("a", "", 0).addItem("b", "", 0).addItem("c", "", 0).
		addDep("a", "target", model.DepBlocks).
		addDep("target", "c", model.DepIsBlockedBy)
	src.addItem("target", "", 0)

	blockers, err := Blockers(src, "target")
	require.NoError(t, err)
	ids := []string{blockers[0].ID}
	if len(blockers) > 1 {
		ids = append(ids, blockers[1].ID)
	}
	assert.ElementsMatch(t, []string{"a", "c"}, ids)
}

func TestUnresolvedBlockersExcludesTerminal(t *testing.T) {
	src := newFakeSource().addItem("blocker", "", 0).addItem("target", "", 0).
		addDep("blocker", "target", model.DepBlocks)
	itemWithRole(src, "blocker", model.RoleTerminal)

	unresolved, err := UnresolvedBlockers(src, "target")
	require.NoError(t, err)
	assert.Empty(t, unresolved)
}

func TestUnresolvedBlockersIncludesNonTerminal(t *testing.T) {
	src := newFakeSource().addItem("blocker", "", 0).addItem("target", "", 0).
		addDep("blocker", "target", model.DepBlocks)
	itemWithRole(src, "blocker", model.RoleWork)

	unresolved, err := UnresolvedBlockers(src, "target")
	require.NoError(t, err)
	require.Len(t, unresolved, 1)
	assert.Equal(t, "blocker", unresolved[0].ID)
}

func TestNewlyUnblockedOnlyWhenLastBlockerCleared(t *testing.T) {
	src := newFakeSource().
		addItem("b1", "", 0).addItem("b2", "", 0).addItem("target", "", 0).
		addDep("b1", "target", model.DepBlocks).
		addDep("b2", "target", model.DepBlocks)
	itemWithRole(src, "b1", model.RoleTerminal)
	itemWithRole(src, "b2", model.RoleWork)

	// b2 still blocks target, so completing b1 doesn't unblock it yet.
	unblocked, err := NewlyUnblocked(src, "b1")
	require.NoError(t, err)
	assert.Empty(t, unblocked)

	itemWithRole(src, "b2", model.RoleTerminal)
	unblocked, err = NewlyUnblocked(src, "b2")
	require.NoError(t, err)
	require.Len(t, unblocked, 1)
	assert.Equal(t, "target", unblocked[0].ID)
}
