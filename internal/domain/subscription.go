package domain

import (
	"fmt"
	"slices"
	"time"
)

// Mode selects how a subscription receives incident updates.
type Mode string

const (
	// ModePost creates one new message per incident update.
	ModePost Mode = "post"
	// ModeEdit keeps one message per incident and edits it in place.
	ModeEdit Mode = "edit"
)

// ParseMode converts a stored or user-supplied value into a Mode.
func ParseMode(s string) (Mode, error) {
	switch Mode(s) {
	case ModePost:
		return ModePost, nil
	case ModeEdit:
		return ModeEdit, nil
	default:
		return "", fmt.Errorf("unknown mode %q", s)
	}
}

// Endpoint identifies a single Discord incoming webhook.
type Endpoint struct {
	ID    string `json:"id"`
	Token string `json:"token,omitempty"`
}

// IncidentDeliveryRecord tracks what a subscription has received for one incident.
type IncidentDeliveryRecord struct {
	IncidentID         string   `json:"incident_id"`
	MessageID          string   `json:"message_id"`
	DeliveredUpdateIDs []string `json:"delivered_update_ids"`
}

// HasDelivered reports whether updateID was already delivered successfully.
func (r *IncidentDeliveryRecord) HasDelivered(updateID string) bool {
	return slices.Contains(r.DeliveredUpdateIDs, updateID)
}

// MarkDelivered adds updateID to the delivered set. The set only grows.
func (r *IncidentDeliveryRecord) MarkDelivered(updateID string) {
	if r.HasDelivered(updateID) {
		return
	}
	r.DeliveredUpdateIDs = append(r.DeliveredUpdateIDs, updateID)
}

// Subscription is one guild's delivery configuration and history.
type Subscription struct {
	GuildID         string                   `json:"guild_id"`
	ChannelID       string                   `json:"channel_id,omitempty"`
	Endpoint        Endpoint                 `json:"endpoint"`
	RolePings       []string                 `json:"role_pings"`
	Mode            Mode                     `json:"mode"`
	DeliveryHistory []IncidentDeliveryRecord `json:"delivery_history"`
	CreatedAt       time.Time                `json:"created_at"`
	UpdatedAt       time.Time                `json:"updated_at"`
}

// Record returns the delivery record for incidentID, or nil when the
// subscription has never received that incident.
func (s *Subscription) Record(incidentID string) *IncidentDeliveryRecord {
	for i := range s.DeliveryHistory {
		if s.DeliveryHistory[i].IncidentID == incidentID {
			return &s.DeliveryHistory[i]
		}
	}
	return nil
}

// PutRecord inserts rec or replaces the existing record with the same incident id.
func (s *Subscription) PutRecord(rec IncidentDeliveryRecord) {
	for i := range s.DeliveryHistory {
		if s.DeliveryHistory[i].IncidentID == rec.IncidentID {
			s.DeliveryHistory[i] = rec
			return
		}
	}
	s.DeliveryHistory = append(s.DeliveryHistory, rec)
}

// AddRolePing appends roleID if it is not already present. It reports
// whether the list changed.
func (s *Subscription) AddRolePing(roleID string) bool {
	if slices.Contains(s.RolePings, roleID) {
		return false
	}
	s.RolePings = append(s.RolePings, roleID)
	return true
}

// RemoveRolePing removes roleID, preserving the order of the rest.
func (s *Subscription) RemoveRolePing(roleID string) bool {
	i := slices.Index(s.RolePings, roleID)
	if i < 0 {
		return false
	}
	s.RolePings = slices.Delete(s.RolePings, i, i+1)
	return true
}

// Clone returns a deep copy so a fan-out pass can mutate its own view of
// the record without touching the snapshot other goroutines read.
func (s *Subscription) Clone() *Subscription {
	c := *s
	c.RolePings = slices.Clone(s.RolePings)
	c.DeliveryHistory = make([]IncidentDeliveryRecord, len(s.DeliveryHistory))
	for i, rec := range s.DeliveryHistory {
		rec.DeliveredUpdateIDs = slices.Clone(rec.DeliveredUpdateIDs)
		c.DeliveryHistory[i] = rec
	}
	return &c
}
