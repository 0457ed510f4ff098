package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

func schemaRequiring(key string, phase model.Role) *wfconfig.Schemas {
	return &wfconfig.Schemas{Schemas: []wfconfig.NoteSchema{
		{MatchTags: []string{}, Entries: []wfconfig.SchemaEntry{
			{Key: key, Phase: string(phase), Required: true},
		}},
	}}
}

func TestNextStatusReadyWhenGateSatisfied(t *testing.T) {
	wf := testWorkflow()
	item := testItem("in_progress", model.RoleWork)
	notes := []*model.Note{{ItemID: "wi-1", Key: "plan", Phase: model.RoleWork}}
	rec, err := NextStatus(wf, schemaRequiring("plan", model.RoleWork), item, notes, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindReady, rec.Kind)
	assert.Equal(t, TriggerComplete, rec.Trigger)
	assert.Equal(t, "in_review", rec.TargetStatus)
}

func TestNextStatusBlockedOnMissingNotes(t *testing.T) {
	wf := testWorkflow()
	item := testItem("in_progress", model.RoleWork)
	rec, err := NextStatus(wf, schemaRequiring("plan", model.RoleWork), item, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindBlocked, rec.Kind)
	assert.Equal(t, []string{"plan"}, rec.MissingNotes)
}

func TestNextStatusBlockedOnUnresolvedDependencies(t *testing.T) {
	wf := testWorkflow()
	item := testItem("in_review", model.RoleReview)
	blockers := []*model.WorkItem{{ID: "wi-blocker", Role: model.RoleWork}}
	rec, err := NextStatus(wf, &wfconfig.Schemas{}, item, nil, blockers, nil)
	require.NoError(t, err)
	assert.Equal(t, KindBlocked, rec.Kind)
	assert.Equal(t, []string{"wi-blocker"}, rec.UnresolvedBlockers)
}

func TestNextStatusTerminalItem(t *testing.T) {
	wf := testWorkflow()
	item := testItem("completed", model.RoleTerminal)
	rec, err := NextStatus(wf, &wfconfig.Schemas{}, item, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindTerminal, rec.Kind)
	assert.Equal(t, "completed", rec.TerminalStatus)
}

func TestNextStatusBlockedRoleRecommendsResume(t *testing.T) {
	wf := testWorkflow()
	item := testItem("blocked", model.RoleBlocked)
	history := []*model.RoleTransition{{ToRole: model.RoleWork, ToStatus: "in_progress"}}
	rec, err := NextStatus(wf, &wfconfig.Schemas{}, item, nil, nil, history)
	require.NoError(t, err)
	assert.Equal(t, KindReady, rec.Kind)
	assert.Equal(t, TriggerResume, rec.Trigger)
	assert.Equal(t, "in_progress", rec.TargetStatus)
}

func TestNextStatusQueueRecommendsStart(t *testing.T) {
	wf := testWorkflow()
	item := testItem("pending", model.RoleQueue)
	rec, err := NextStatus(wf, &wfconfig.Schemas{}, item, nil, nil, nil)
	require.NoError(t, err)
	assert.Equal(t, KindReady, rec.Kind)
	assert.Equal(t, TriggerStart, rec.Trigger)
	assert.Equal(t, "in_progress", rec.TargetStatus)
}
