package engine

import (
	"github.com/Priya8975/status-relay/internal/domain"
)

// ActionKind is the delivery decision for one subscription.
type ActionKind int

const (
	ActionSkip ActionKind = iota
	ActionSend
	ActionEdit
)

func (k ActionKind) String() string {
	switch k {
	case ActionSend:
		return "send"
	case ActionEdit:
		return "edit"
	default:
		return "skip"
	}
}

// Action is what the reconciler will do for a subscription.
type Action struct {
	Kind      ActionKind
	MessageID string
	Reason    string
}

// PlanAction decides how sub should receive updateID of incidentID.
//
// An update already in the delivered set is skipped. A subscription without
// a record for the incident, or in post mode, gets a new message. Otherwise
// the existing message is edited. An edit-mode record with no message id
// (for example one written before a mode switch) also gets a new message.
func PlanAction(sub *domain.Subscription, incidentID, updateID string) Action {
	rec := sub.Record(incidentID)

	if rec != nil && rec.HasDelivered(updateID) {
		return Action{Kind: ActionSkip, Reason: domain.SkipAlreadyDelivered}
	}

	if rec == nil || sub.Mode == domain.ModePost || rec.MessageID == "" {
		return Action{Kind: ActionSend}
	}

	return Action{Kind: ActionEdit, MessageID: rec.MessageID}
}
