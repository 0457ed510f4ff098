package workflow

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

func testWorkflow() *wfconfig.Workflow {
	return &wfconfig.Workflow{
		Flows: []wfconfig.Flow{
			{
				Name:      "default_flow",
				Sequence:  []string{"pending", "in_progress", "in_review", "completed"},
				Terminal:  []string{"completed", "cancelled"},
				Emergency: []string{"blocked", "on_hold"},
			},
		},
		StatusRoles: map[string]string{
			"pending":     "queue",
			"in_progress": "work",
			"in_review":   "review",
			"blocked":     "blocked",
			"on_hold":     "blocked",
			"completed":   "terminal",
			"cancelled":   "terminal",
		},
		AutoCascade: wfconfig.AutoCascade{Enabled: true, MaxDepth: 3},
	}
}

func testItem(status string, role model.Role) *model.WorkItem {
	return &model.WorkItem{ID: "wi-1", Status: status, Role: role}
}

func TestResolveTargetStart(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("pending", model.RoleQueue)
	target, err := resolveTarget(wf, flow, item, TriggerStart, nil)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", target)
}

func TestResolveTargetCompleteGoesToReviewFirst(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("in_progress", model.RoleWork)
	target, err := resolveTarget(wf, flow, item, TriggerComplete, nil)
	require.NoError(t, err)
	assert.Equal(t, "in_review", target)
}

func TestResolveTargetCompleteFromReviewGoesTerminal(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("in_review", model.RoleReview)
	target, err := resolveTarget(wf, flow, item, TriggerComplete, nil)
	require.NoError(t, err)
	assert.Equal(t, "completed", target)
}

func TestResolveTargetCancelAlwaysAvailable(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("in_progress", model.RoleWork)
	target, err := resolveTarget(wf, flow, item, TriggerCancel, nil)
	require.NoError(t, err)
	assert.Equal(t, "cancelled", target)
}

func TestResolveTargetBlockVsHold(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("in_progress", model.RoleWork)

	blocked, err := resolveTarget(wf, flow, item, TriggerBlock, nil)
	require.NoError(t, err)
	assert.Equal(t, "blocked", blocked)

	held, err := resolveTarget(wf, flow, item, TriggerHold, nil)
	require.NoError(t, err)
	assert.Equal(t, "on_hold", held)
}

func TestResolveTargetResumeMostRecentNonBlocked(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("blocked", model.RoleBlocked)
	history := []*model.RoleTransition{
		{ToRole: model.RoleBlocked, ToStatus: "blocked"},
		{ToRole: model.RoleWork, ToStatus: "in_progress"},
		{ToRole: model.RoleQueue, ToStatus: "pending"},
	}
	target, err := resolveTarget(wf, flow, item, TriggerResume, history)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", target, "resume returns the most recent non-blocked status, not the oldest")
}

func TestResolveTargetResumeNoHistoryFails(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("blocked", model.RoleBlocked)
	_, err := resolveTarget(wf, flow, item, TriggerResume, nil)
	assert.Error(t, err)
}

func TestResolveTargetBackStepsToPreviousStatus(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("in_review", model.RoleReview)
	target, err := resolveTarget(wf, flow, item, TriggerBack, nil)
	require.NoError(t, err)
	assert.Equal(t, "in_progress", target)
}

func TestResolveTargetBackAtStartFails(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("pending", model.RoleQueue)
	_, err := resolveTarget(wf, flow, item, TriggerBack, nil)
	assert.Error(t, err)
}

func TestResolveTargetCompleteAtEndOfSequenceFails(t *testing.T) {
	wf := testWorkflow()
	flow := &wf.Flows[0]
	item := testItem("completed", model.RoleTerminal)
	_, err := resolveTarget(wf, flow, item, TriggerComplete, nil)
	assert.Error(t, err)
}
