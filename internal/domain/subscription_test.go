package domain

import (
	"testing"
)

func TestParseMode(t *testing.T) {
	tests := []struct {
		in      string
		want    Mode
		wantErr bool
	}{
		{"post", ModePost, false},
		{"edit", ModeEdit, false},
		{"", "", true},
		{"EDIT", "", true},
	}

	for _, tt := range tests {
		got, err := ParseMode(tt.in)
		if (err != nil) != tt.wantErr {
			t.Errorf("ParseMode(%q) error = %v, wantErr %v", tt.in, err, tt.wantErr)
		}
		if got != tt.want {
			t.Errorf("ParseMode(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestIncidentDeliveryRecord_MarkDelivered(t *testing.T) {
	rec := &IncidentDeliveryRecord{IncidentID: "INC1"}

	rec.MarkDelivered("U1")
	rec.MarkDelivered("U1")
	rec.MarkDelivered("U2")

	if len(rec.DeliveredUpdateIDs) != 2 {
		t.Fatalf("expected 2 delivered ids, got %v", rec.DeliveredUpdateIDs)
	}
	if !rec.HasDelivered("U1") || !rec.HasDelivered("U2") {
		t.Errorf("expected U1 and U2 delivered, got %v", rec.DeliveredUpdateIDs)
	}
	if rec.HasDelivered("U3") {
		t.Error("U3 should not be delivered")
	}
}

func TestSubscription_RecordAndPutRecord(t *testing.T) {
	sub := &Subscription{GuildID: "G1"}

	if sub.Record("INC1") != nil {
		t.Fatal("expected no record for fresh subscription")
	}

	sub.PutRecord(IncidentDeliveryRecord{IncidentID: "INC1", MessageID: "M1", DeliveredUpdateIDs: []string{"U1"}})
	sub.PutRecord(IncidentDeliveryRecord{IncidentID: "INC1", MessageID: "M2", DeliveredUpdateIDs: []string{"U1", "U2"}})

	if len(sub.DeliveryHistory) != 1 {
		t.Fatalf("records must be unique by incident id, got %d", len(sub.DeliveryHistory))
	}
	rec := sub.Record("INC1")
	if rec.MessageID != "M2" {
		t.Errorf("expected message id M2, got %q", rec.MessageID)
	}
}

func TestSubscription_Clone(t *testing.T) {
	sub := &Subscription{
		GuildID:   "G1",
		RolePings: []string{"R1"},
		DeliveryHistory: []IncidentDeliveryRecord{
			{IncidentID: "INC1", MessageID: "M1", DeliveredUpdateIDs: []string{"U1"}},
		},
	}

	c := sub.Clone()
	c.AddRolePing("R2")
	c.Record("INC1").MarkDelivered("U2")

	if len(sub.RolePings) != 1 {
		t.Errorf("original role pings mutated: %v", sub.RolePings)
	}
	if sub.Record("INC1").HasDelivered("U2") {
		t.Error("original delivery history mutated")
	}
}

func TestSubscription_RolePings(t *testing.T) {
	sub := &Subscription{}

	if !sub.AddRolePing("R1") {
		t.Error("first add should change the list")
	}
	if sub.AddRolePing("R1") {
		t.Error("duplicate add should not change the list")
	}
	sub.AddRolePing("R2")
	sub.AddRolePing("R3")

	if !sub.RemoveRolePing("R2") {
		t.Error("remove of present role should report a change")
	}
	if sub.RemoveRolePing("R9") {
		t.Error("remove of absent role should not report a change")
	}
	if len(sub.RolePings) != 2 || sub.RolePings[0] != "R1" || sub.RolePings[1] != "R3" {
		t.Errorf("unexpected role pings: %v", sub.RolePings)
	}
}
