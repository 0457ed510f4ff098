package workflow

import (
	"context"
	"time"

	"github.com/workitem-mcp/workitem-mcp/internal/apperr"
	"github.com/workitem-mcp/workitem-mcp/internal/graph"
	"github.com/workitem-mcp/workitem-mcp/internal/idgen"
	"github.com/workitem-mcp/workitem-mcp/internal/model"
	"github.com/workitem-mcp/workitem-mcp/internal/noteschema"
	"github.com/workitem-mcp/workitem-mcp/internal/store"
	"github.com/workitem-mcp/workitem-mcp/internal/wfconfig"
)

// AppliedTransition is what advance_item returns: the item's new state
// plus, when a role boundary was crossed, the cascade effects it set off
// in the same transaction (§4.3, §4.5).
type AppliedTransition struct {
	Item           *model.WorkItem
	FromStatus     string
	FromRole       model.Role
	ToRole         model.Role
	RoleCrossed    bool
	Trigger        Trigger
	ActiveFlow     string
	FlowSequence   []string
	FlowPosition   int
	CascadeEvents  []CascadeEvent
	UnblockedItems []string
}

// CascadeEvent records one upward-propagation step the cascade engine
// applied (or attempted) against an ancestor as a side effect of this
// transition (§4.5).
type CascadeEvent struct {
	ItemID     string
	EventName  string
	Applied    bool
	ToStatus   string
	Reason     string
}

// CascadeRunner is implemented by the cascade engine. Workflow depends on
// this interface rather than importing the cascade package directly, so
// cascade can import workflow's trigger/apply primitives without a cycle.
type CascadeRunner interface {
	Propagate(tx *store.Tx, snap *wfconfig.Snapshot, changedItemID string) ([]CascadeEvent, error)
}

// ApplyInTx resolves trigger against item's active flow, checks the note
// gate and dependency prerequisites on a role crossing, and persists the
// new status/role plus an audit transition row — all within tx. It does
// not run cascade; callers that want cascade effects call the
// CascadeRunner afterward in the same transaction.
func ApplyInTx(tx *store.Tx, wf *wfconfig.Workflow, schemas *wfconfig.Schemas, itemID string, trigger Trigger, summary, actor string) (*AppliedTransition, error) {
	item, err := tx.GetItem(itemID)
	if err != nil {
		return nil, err
	}

	flow := wf.SelectFlow(item.TagSet())
	if flow == nil {
		return nil, apperrNoFlow()
	}

	fromRole, ok := wf.RoleOf(item.Status)
	if !ok {
		return nil, apperr.Newf(apperr.ValidationError, "status %q has no configured role", item.Status)
	}

	history, err := tx.TransitionsByItem(itemID)
	if err != nil {
		return nil, err
	}

	target, err := resolveTarget(wf, flow, item, trigger, history)
	if err != nil {
		return nil, err
	}
	if target == item.Status {
		return nil, apperr.New(apperr.NoTransitionAvailable, "item is already at the resolved target status")
	}

	toRole, ok := wf.RoleOf(target)
	if !ok {
		return nil, apperr.Newf(apperr.InternalError, "target status %q has no configured role", target)
	}
	roleCrossed := toRole != fromRole

	if roleCrossed && trigger != TriggerCancel {
		notes, err := tx.NotesByItem(itemID)
		if err != nil {
			return nil, err
		}
		missing := noteschema.MissingRequired(schemas, item.TagSet(), fromRole, notes)
		if len(missing) > 0 {
			return nil, apperr.New(apperr.GateBlocked, "required notes missing for the current phase").
				WithDetails(map[string]any{"missingNotes": missing, "phase": fromRole})
		}
	}

	if roleCrossed && toRole == model.RoleTerminal && trigger != TriggerCancel {
		unresolved, err := graph.UnresolvedBlockers(tx, itemID)
		if err != nil {
			return nil, err
		}
		if len(unresolved) > 0 {
			ids := make([]string, 0, len(unresolved))
			for _, b := range unresolved {
				ids = append(ids, b.ID)
			}
			return nil, apperr.New(apperr.DependenciesNotResolved, "item has unresolved blockers").
				WithDetails(map[string]any{"blockers": ids})
		}
	}

	now := time.Now().UTC()
	fromStatus := item.Status
	item.Status = target
	item.Role = toRole
	if roleCrossed {
		item.PreviousRole = fromRole
		item.RoleChangedAt = now
	}
	if err := tx.UpdateItem(item); err != nil {
		return nil, err
	}

	if roleCrossed {
		rt := &model.RoleTransition{
			ID:         idgen.New("rt", itemID+fromStatus+target, now, len(history)),
			ItemID:     itemID,
			FromRole:   fromRole,
			ToRole:     toRole,
			FromStatus: fromStatus,
			ToStatus:   target,
			Trigger:    string(trigger),
			AppliedAt:  now,
			Actor:      actor,
		}
		if err := tx.InsertTransition(rt); err != nil {
			return nil, err
		}
	}

	var unblocked []string
	if roleCrossed && toRole == model.RoleTerminal {
		items, err := graph.NewlyUnblocked(tx, itemID)
		if err != nil {
			return nil, err
		}
		for _, it := range items {
			unblocked = append(unblocked, it.ID)
		}
	}

	return &AppliedTransition{
		Item:           item,
		FromStatus:     fromStatus,
		FromRole:       fromRole,
		ToRole:         toRole,
		RoleCrossed:    roleCrossed,
		Trigger:        trigger,
		ActiveFlow:     flow.Name,
		FlowSequence:   flow.Sequence,
		FlowPosition:   indexOf(flow.Sequence, target),
		UnblockedItems: unblocked,
	}, nil
}

// Engine wires the store and config cache together for the two
// transition operations the advance_item/get_next_status tools expose.
type Engine struct {
	Store   *store.Store
	Config  *wfconfig.Cache
	Cascade CascadeRunner
}

// NewEngine constructs an Engine. cascade may be nil, in which case
// Advance applies transitions without propagation. main.go constructs
// cascade.New() first and passes it in; the CascadeRunner interface is
// what keeps workflow from importing cascade.
func NewEngine(s *store.Store, cfg *wfconfig.Cache, cascade CascadeRunner) *Engine {
	return &Engine{Store: s, Config: cfg, Cascade: cascade}
}

// NextStatus computes the read-only recommendation for itemID (§4.3).
func (e *Engine) NextStatus(ctx context.Context, itemID string) (*Recommendation, error) {
	snap, err := e.Config.Get()
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, "loading workflow config", err)
	}

	item, err := e.Store.GetItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	notes, err := e.Store.NotesByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}
	reader := e.Store.Reader(ctx)
	unresolved, err := graph.UnresolvedBlockers(reader, itemID)
	if err != nil {
		return nil, err
	}
	history, err := e.Store.TransitionsByItem(ctx, itemID)
	if err != nil {
		return nil, err
	}

	return NextStatus(snap.Workflow, snap.Schemas, item, notes, unresolved, history)
}

// Advance resolves trigger, applies the resulting transition, and runs
// cascade propagation — all inside one transaction (§4.3, §4.5).
func (e *Engine) Advance(ctx context.Context, itemID string, trigger Trigger, summary, actor string) (*AppliedTransition, error) {
	snap, err := e.Config.Get()
	if err != nil {
		return nil, apperr.Wrap(apperr.InternalError, "loading workflow config", err)
	}

	var result *AppliedTransition
	err = e.Store.Transact(ctx, func(tx *store.Tx) error {
		applied, err := ApplyInTx(tx, snap.Workflow, snap.Schemas, itemID, trigger, summary, actor)
		if err != nil {
			return err
		}
		if applied.RoleCrossed && e.Cascade != nil {
			events, err := e.Cascade.Propagate(tx, snap, itemID)
			if err != nil {
				return err
			}
			applied.CascadeEvents = events
		}
		result = applied
		return nil
	})
	if err != nil {
		return nil, err
	}
	return result, nil
}

// AdvanceRequest is one item of a batch advance call.
type AdvanceRequest struct {
	ItemID  string
	Trigger Trigger
	Summary string
	Actor   string
}

// BatchResult pairs a request with its outcome; Err is nil on success.
// Each item runs in its own transaction, so one item's failure never
// rolls back another's (§4.3 "batch semantics").
type BatchResult struct {
	ItemID string
	Result *AppliedTransition
	Err    error
}

// AdvanceBatch applies each request independently, collecting results in
// input order.
func (e *Engine) AdvanceBatch(ctx context.Context, reqs []AdvanceRequest) []BatchResult {
	out := make([]BatchResult, len(reqs))
	for i, r := range reqs {
		applied, err := e.Advance(ctx, r.ItemID, r.Trigger, r.Summary, r.Actor)
		out[i] = BatchResult{ItemID: r.ItemID, Result: applied, Err: err}
	}
	return out
}
