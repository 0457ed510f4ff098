package workflow

import (
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/noteschema"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

// Kind tags which variant of Recommendation a caller received (§4.3
// get_next_status: Ready | Blocked | Terminal).
type Kind string

const (
	KindReady    Kind = "ready"
	KindBlocked  Kind = "blocked"
	KindTerminal Kind = "terminal"
)

// Recommendation is the read-only answer to "what would advancing this
// item do right now". Only the fields relevant to Kind are populated.
type Recommendation struct {
	Kind Kind

	ActiveFlow string

	// Ready
	Trigger      Trigger
	TargetStatus string

	// Blocked
	Reason             string
	MissingNotes       []string
	UnresolvedBlockers []string

	// Terminal
	TerminalStatus string
}

// NextStatus computes the Recommendation for item without mutating
// anything (§4.3 nextStatus). notes and unresolvedBlockers reflect the
// item's current persisted state.
func NextStatus(wf *wfconfig.Workflow, schemas *wfconfig.Schemas, item *model.WorkItem, notes []*model.Note, unresolvedBlockers []*model.WorkItem, history []*model.RoleTransition) (*Recommendation, error) {
	flow := wf.SelectFlow(item.TagSet())
	if flow == nil {
		return nil, apperrNoFlow()
	}

	role, ok := wf.RoleOf(item.Status)
	if !ok {
		return &Recommendation{Kind: KindBlocked, ActiveFlow: flow.Name, Reason: "status has no configured role"}, nil
	}

	if role == model.RoleTerminal {
		return &Recommendation{Kind: KindTerminal, ActiveFlow: flow.Name, TerminalStatus: item.Status}, nil
	}

	var trigger Trigger
	var target string
	var err error
	if role == model.RoleBlocked {
		trigger = TriggerResume
		target, err = resolveResume(wf, history)
	} else if role == model.RoleQueue {
		trigger = TriggerStart
		target, err = firstRoleForward(wf, flow, -1, func(r model.Role) bool { return r != model.RoleQueue })
	} else {
		trigger = TriggerComplete
		idx := indexOf(flow.Sequence, item.Status)
		target, err = firstRoleForward(wf, flow, idx, func(r model.Role) bool { return r == model.RoleReview || r == model.RoleTerminal })
	}
	if err != nil {
		return &Recommendation{Kind: KindBlocked, ActiveFlow: flow.Name, Reason: err.Error()}, nil
	}

	targetRole, _ := wf.RoleOf(target)

	missing := noteschema.MissingRequired(schemas, item.TagSet(), role, notes)
	if len(missing) > 0 {
		return &Recommendation{Kind: KindBlocked, ActiveFlow: flow.Name, Reason: "gate", MissingNotes: missing}, nil
	}

	if targetRole == model.RoleTerminal && trigger != TriggerCancel && len(unresolvedBlockers) > 0 {
		ids := make([]string, 0, len(unresolvedBlockers))
		for _, b := range unresolvedBlockers {
			ids = append(ids, b.ID)
		}
		return &Recommendation{Kind: KindBlocked, ActiveFlow: flow.Name, Reason: "dependencies", UnresolvedBlockers: ids}, nil
	}

	return &Recommendation{Kind: KindReady, ActiveFlow: flow.Name, Trigger: trigger, TargetStatus: target}, nil
}
