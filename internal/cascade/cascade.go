// Package cascade implements upward propagation of a child's role
// transition to its ancestors (§4.5): a first child starting work starts
// its parent, and every child reaching a terminal role completes its
// parent, which in turn can complete the grandparent, and so on up to a
// configured depth cap.
package cascade

import (
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
	"github.com/workitem-mcp/workitem-mcp/internal/workflow"
)

// Engine detects and applies cascade events. It has no state of its own;
// everything it needs arrives through the transaction and snapshot
// passed to Propagate.
type Engine struct{}

// New constructs a cascade Engine.
func New() *Engine { return &Engine{} }

// Propagate walks upward from changedItemID's parent, applying cascade
// transitions one level at a time until no event fires, the chain runs
// out of parents, or the configured depth cap is hit. It runs entirely
// inside tx, the same transaction as the transition that triggered it
// (§4.5's "shares a transaction" requirement).
func (e *Engine) Propagate(tx *store.Tx, snap *wfconfig.Snapshot, changedItemID string) ([]workflow.CascadeEvent, error) {
	wf := snap.Workflow
	if !wf.AutoCascade.Enabled {
		return nil, nil
	}
	maxDepth := wf.AutoCascade.MaxDepth
	if maxDepth <= 0 {
		maxDepth = 3
	}
	return e.propagateLevel(tx, snap, changedItemID, 1, maxDepth)
}

func (e *Engine) propagateLevel(tx *store.Tx, snap *wfconfig.Snapshot, childID string, depth, maxDepth int) ([]workflow.CascadeEvent, error) {
	wf := snap.Workflow

	child, err := tx.GetItem(childID)
	if err != nil {
		return nil, err
	}
	if child.ParentID == "" {
		return nil, nil
	}
	parent, err := tx.GetItem(child.ParentID)
	if err != nil {
		return nil, err
	}

	eventName, trigger, ok, err := detectEvent(tx, wf, child, parent)
	if err != nil {
		return nil, err
	}
	if !ok {
		return nil, nil
	}

	if depth > maxDepth {
		return []workflow.CascadeEvent{{
			ItemID:    parent.ID,
			EventName: eventName,
			Applied:   false,
			Reason:    string(apperr.CascadeDepthExceeded),
		}}, nil
	}

	applied, err := workflow.ApplyInTx(tx, wf, snap.Schemas, parent.ID, trigger, "", "cascade")
	if err != nil {
		if ae, ok := apperr.As(err); ok && isSoftCascadeFailure(ae.Code) {
			return []workflow.CascadeEvent{{
				ItemID:    parent.ID,
				EventName: eventName,
				Applied:   false,
				Reason:    string(ae.Code),
			}}, nil
		}
		return nil, err
	}

	events := []workflow.CascadeEvent{{
		ItemID:    parent.ID,
		EventName: eventName,
		Applied:   true,
		ToStatus:  applied.Item.Status,
	}}

	if applied.RoleCrossed {
		more, err := e.propagateLevel(tx, snap, parent.ID, depth+1, maxDepth)
		if err != nil {
			return nil, err
		}
		events = append(events, more...)
	}
	return events, nil
}

// isSoftCascadeFailure reports whether a failed cascade application
// should be recorded as a not-applied event rather than failing the
// whole triggering transition (§4.5: "surfaces as a recorded-but-not-
// applied cascade event rather than a top-level failure").
func isSoftCascadeFailure(code apperr.Code) bool {
	switch code {
	case apperr.GateBlocked, apperr.DependenciesNotResolved, apperr.NoTransitionAvailable:
		return true
	default:
		return false
	}
}

// detectEvent checks whether child's current state triggers a cascade
// against parent, returning the event name and the trigger to apply.
func detectEvent(tx *store.Tx, wf *wfconfig.Workflow, child, parent *model.WorkItem) (string, workflow.Trigger, bool, error) {
	parentFlow := wf.SelectFlow(parent.TagSet())
	if parentFlow == nil || len(parentFlow.Sequence) == 0 {
		return "", "", false, nil
	}
	parentRole, _ := wf.RoleOf(parent.Status)

	if child.Role == model.RoleWork && parent.Status == parentFlow.Sequence[0] {
		return "first_task_started", workflow.TriggerStart, true, nil
	}

	if parentRole != model.RoleTerminal {
		siblings, err := tx.ItemsByParent(parent.ID)
		if err != nil {
			return "", "", false, err
		}
		if len(siblings) > 0 && allTerminal(siblings) {
			name := "all_tasks_complete"
			if parent.ParentID != "" {
				name = "all_features_complete"
			}
			return name, workflow.TriggerComplete, true, nil
		}
	}

	return "", "", false, nil
}

func allTerminal(items []*model.WorkItem) bool {
	for _, it := range items {
		if it.Role != model.RoleTerminal {
			return false
		}
	}
	return true
}
