package domain

import (
	"time"
)

// OutcomeKind classifies the result of one (subscription, update) delivery.
type OutcomeKind string

const (
	OutcomeSent    OutcomeKind = "sent"
	OutcomeSkipped OutcomeKind = "skipped"
	OutcomeFailed  OutcomeKind = "failed"
)

// SkipAlreadyDelivered is the reason for skipping an update the subscription
// has already received.
const SkipAlreadyDelivered = "already-delivered"

// DeliveryOutcome is produced per subscription for every fan-out pass.
type DeliveryOutcome struct {
	Kind       OutcomeKind `json:"kind"`
	GuildID    string      `json:"guild_id"`
	IncidentID string      `json:"incident_id"`
	UpdateID   string      `json:"update_id"`
	MessageID  string      `json:"message_id,omitempty"`
	Edited     bool        `json:"edited,omitempty"`
	Reason     string      `json:"reason,omitempty"`
	ErrorKind  string      `json:"error_kind,omitempty"`
	Err        error       `json:"-"`
	Error      string      `json:"error,omitempty"`
	Timestamp  time.Time   `json:"timestamp"`
}

// DeliveryResult is returned by a successful send or edit.
type DeliveryResult struct {
	MessageID string    `json:"message_id"`
	Timestamp time.Time `json:"timestamp"`
}

// SweepReport summarises one maintenance sweep.
type SweepReport struct {
	CycleID   string    `json:"cycle_id,omitempty"`
	DryRun    bool      `json:"dry_run"`
	Total     int       `json:"total"`
	Valid     int       `json:"valid"`
	Invalid   int       `json:"invalid"`
	Deleted   int       `json:"deleted"`
	StartedAt time.Time `json:"started_at"`
	Duration  string    `json:"duration"`
}
