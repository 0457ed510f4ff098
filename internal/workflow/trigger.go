package workflow

import (
	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

// Trigger is one of the symbolic actions advance_item accepts (§4.3).
type Trigger string

const (
	TriggerStart    Trigger = "start"
	TriggerComplete Trigger = "complete"
	TriggerCancel   Trigger = "cancel"
	TriggerBlock    Trigger = "block"
	TriggerHold     Trigger = "hold"
	TriggerResume   Trigger = "resume"
	TriggerBack     Trigger = "back"
)

// resolveTarget maps (flow, current status, trigger) to a target status,
// consulting the item's role-transition history for resume. It never
// checks gates or prerequisites — those are applied by the caller once a
// target is known (§4.3 "Trigger resolution").
func resolveTarget(wf *wfconfig.Workflow, flow *wfconfig.Flow, item *model.WorkItem, trigger Trigger, history []*model.RoleTransition) (string, error) {
	switch trigger {
	case TriggerStart:
		if role, ok := wf.RoleOf(item.Status); ok && role == model.RoleTerminal {
			return "", apperr.New(apperr.NoTransitionAvailable, "start is not available from a terminal status")
		}
		return firstRoleForward(wf, flow, -1, func(r model.Role) bool { return r != model.RoleQueue })
	case TriggerComplete:
		idx := indexOf(flow.Sequence, item.Status)
		return firstRoleForward(wf, flow, idx, func(r model.Role) bool { return r == model.RoleReview || r == model.RoleTerminal })
	case TriggerCancel:
		return resolveCancel(wf, flow)
	case TriggerBlock:
		return resolveEmergency(wf, flow, "hold", false)
	case TriggerHold:
		return resolveEmergency(wf, flow, "hold", true)
	case TriggerResume:
		return resolveResume(wf, history)
	case TriggerBack:
		idx := indexOf(flow.Sequence, item.Status)
		if idx <= 0 {
			return "", apperr.New(apperr.NoTransitionAvailable, "no earlier status in the active flow")
		}
		return flow.Sequence[idx-1], nil
	default:
		return "", apperr.Newf(apperr.ValidationError, "unknown trigger %q", trigger)
	}
}

// firstRoleForward scans flow.Sequence starting at fromIdx+1 (or from
// the beginning when fromIdx < 0) and returns the first status whose
// role satisfies want.
func firstRoleForward(wf *wfconfig.Workflow, flow *wfconfig.Flow, fromIdx int, want func(model.Role) bool) (string, error) {
	for i := fromIdx + 1; i < len(flow.Sequence); i++ {
		status := flow.Sequence[i]
		role, ok := wf.RoleOf(status)
		if ok && want(role) {
			return status, nil
		}
	}
	return "", apperr.New(apperr.NoTransitionAvailable, "no further status in the active flow")
}

func indexOf(seq []string, status string) int {
	for i, s := range seq {
		if s == status {
			return i
		}
	}
	return -1
}

// resolveCancel finds the flow's cancellation status: "cancelled" if the
// flow declares it terminal or the role map maps it to terminal. No other
// terminal status is used as a fallback. Cancel bypasses gates (§4.3).
func resolveCancel(wf *wfconfig.Workflow, flow *wfconfig.Flow) (string, error) {
	for _, s := range flow.Terminal {
		if s == "cancelled" {
			return s, nil
		}
	}
	if role, ok := wf.RoleOf("cancelled"); ok && role == model.RoleTerminal {
		return "cancelled", nil
	}
	return "", apperr.New(apperr.NoTransitionAvailable, "no cancellation status configured for this flow")
}

// resolveEmergency finds a flow's emergency status whose role is blocked,
// preferring one whose name contains "hold" when wantHold is true, and
// one that doesn't when wantHold is false.
func resolveEmergency(wf *wfconfig.Workflow, flow *wfconfig.Flow, holdMarker string, wantHold bool) (string, error) {
	var fallback string
	for _, s := range flow.Emergency {
		role, ok := wf.RoleOf(s)
		if !ok || role != model.RoleBlocked {
			continue
		}
		isHold := containsFold(s, holdMarker)
		if isHold == wantHold {
			return s, nil
		}
		if fallback == "" {
			fallback = s
		}
	}
	if fallback != "" {
		return fallback, nil
	}
	return "", apperr.New(apperr.NoTransitionAvailable, "no matching emergency status configured for this flow")
}

func containsFold(s, substr string) bool {
	sl, subl := []rune(s), []rune(substr)
	n := len(sl) - len(subl)
	for i := 0; i <= n; i++ {
		match := true
		for j := range subl {
			a, b := sl[i+j], subl[j]
			if a >= 'A' && a <= 'Z' {
				a += 'a' - 'A'
			}
			if b >= 'A' && b <= 'Z' {
				b += 'a' - 'A'
			}
			if a != b {
				match = false
				break
			}
		}
		if match {
			return true
		}
	}
	return len(subl) == 0
}

// resolveResume walks history (most recent first) for the most recent
// transition into a non-blocked role and returns its target status — the
// "previously active status" an item returns to (§4.3, Open Question
// decided in DESIGN.md).
func resolveResume(wf *wfconfig.Workflow, history []*model.RoleTransition) (string, error) {
	for _, rt := range history {
		if rt.ToRole != model.RoleBlocked {
			return rt.ToStatus, nil
		}
	}
	return "", apperr.New(apperr.NoTransitionAvailable, "no prior non-blocked status recorded for this item")
}
