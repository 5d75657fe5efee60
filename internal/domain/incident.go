package domain

import (
	"time"
)

// IncidentStatus is the status-page vocabulary for an incident or update.
type IncidentStatus string

const (
	StatusInvestigating IncidentStatus = "investigating"
	StatusIdentified    IncidentStatus = "identified"
	StatusMonitoring    IncidentStatus = "monitoring"
	StatusResolved      IncidentStatus = "resolved"
	StatusPostmortem    IncidentStatus = "postmortem"
)

// Title returns the status capitalised for display.
func (s IncidentStatus) Title() string {
	switch s {
	case StatusInvestigating:
		return "Investigating"
	case StatusIdentified:
		return "Identified"
	case StatusMonitoring:
		return "Monitoring"
	case StatusResolved:
		return "Resolved"
	case StatusPostmortem:
		return "Postmortem"
	default:
		return string(s)
	}
}

// IncidentUpdate is a single timestamped update posted to an incident.
type IncidentUpdate struct {
	ID        string         `json:"id"`
	Status    IncidentStatus `json:"status"`
	Body      string         `json:"body"`
	CreatedAt time.Time      `json:"created_at"`
	UpdatedAt time.Time      `json:"updated_at"`
}

// Incident mirrors the status-page API incident object. Updates are
// ordered most-recent-first.
type Incident struct {
	ID        string           `json:"id"`
	Name      string           `json:"name"`
	Status    IncidentStatus   `json:"status"`
	Impact    string           `json:"impact"`
	Shortlink string           `json:"shortlink"`
	CreatedAt time.Time        `json:"created_at"`
	UpdatedAt time.Time        `json:"updated_at"`
	Updates   []IncidentUpdate `json:"incident_updates"`
}

// UpdateIDs returns the ids of every update on the incident.
func (i *Incident) UpdateIDs() []string {
	ids := make([]string, len(i.Updates))
	for n, u := range i.Updates {
		ids[n] = u.ID
	}
	return ids
}

// IncidentUpdateEvent is emitted by the feed whenever an incident is new
// or gained updates.
type IncidentUpdateEvent struct {
	Incident   Incident  `json:"incident"`
	ObservedAt time.Time `json:"observed_at"`
}

func (e IncidentUpdateEvent) IncidentID() string {
	return e.Incident.ID
}

// Latest returns the update being announced, or false when the incident
// has no updates at all.
func (e IncidentUpdateEvent) Latest() (IncidentUpdate, bool) {
	if len(e.Incident.Updates) == 0 {
		return IncidentUpdate{}, false
	}
	return e.Incident.Updates[0], true
}
