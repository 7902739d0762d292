package domain

import (
	"errors"
	"testing"
)

func TestSessionValidate(t *testing.T) {
	tests := []struct {
		name    string
		session Session
		wantErr bool
	}{
		{"attendance complete", Session{Variant: VariantAttendance, Group: GroupCouncil, Meeting: MeetingOrdinary}, false},
		{"attendance missing meeting", Session{Variant: VariantAttendance, Group: GroupAssembly}, true},
		{"attendance missing group", Session{Variant: VariantAttendance, Meeting: MeetingExtraordinary}, true},
		{"attendance bad group", Session{Variant: VariantAttendance, Group: "Comite", Meeting: MeetingOrdinary}, true},
		{"voting bare", Session{Variant: VariantVoting}, false},
		{"voting explicit group", Session{Variant: VariantVoting, Group: GroupNominalVote}, false},
		{"voting wrong group", Session{Variant: VariantVoting, Group: GroupCouncil}, true},
		{"no variant", Session{}, true},
		{"unknown variant", Session{Variant: "poll"}, true},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := tt.session.Validate()
			if (err != nil) != tt.wantErr {
				t.Fatalf("Validate() = %v, wantErr %v", err, tt.wantErr)
			}
			if err != nil && !errors.Is(err, ErrIncompleteSession) {
				t.Fatalf("expected ErrIncompleteSession, got %v", err)
			}
		})
	}
}

func TestVariantStatuses(t *testing.T) {
	if VariantAttendance.Default() != StatusUnmarked {
		t.Fatalf("attendance default = %q", VariantAttendance.Default())
	}
	if VariantVoting.Default() != StatusUnset {
		t.Fatalf("voting default = %q", VariantVoting.Default())
	}
	if VariantAttendance.Allows(StatusInFavor) {
		t.Fatalf("attendance must not allow in-favor")
	}
	if !VariantVoting.Allows(StatusAbstain) || !VariantVoting.Allows(StatusUnset) {
		t.Fatalf("voting must allow abstain and unset")
	}
	if got := len(VariantVoting.Choices()); got != 3 {
		t.Fatalf("voting choices = %d, want 3", got)
	}
	if ParseStatus(" Unset ") != StatusUnset || ParseStatus("PRESENT") != StatusPresent {
		t.Fatalf("ParseStatus normalization failed")
	}
}

func TestSnapshotClone(t *testing.T) {
	s := Snapshot{
		Roster:  []Participant{{ID: "1", Name: "Ana"}},
		Session: &Session{Variant: VariantVoting},
	}
	c := s.Clone()
	c.Roster[0].Name = "Beto"
	c.Session.Group = GroupNominalVote
	if s.Roster[0].Name != "Ana" || s.Session.Group != "" {
		t.Fatalf("clone shares memory with original")
	}
	if !(Snapshot{Session: &Session{}}).Empty() || !(Snapshot{Roster: c.Roster}).Empty() {
		t.Fatalf("half-filled snapshots must report empty")
	}
}
