package domain

import "testing"

func TestMergeMembersServiceCopyWins(t *testing.T) {
	members := []Member{
		{Account: "a", Nickname: "alice", Status: StatusCalling},
		{Account: "b", Nickname: "bob", Status: StatusBeCalling},
	}
	extra := []Member{
		{Account: "b", Nickname: "bob-local", Status: StatusWaitCall},
		{Account: "c", Nickname: "carol"},
		{Account: "c", Nickname: "carol-dup"},
	}

	got := MergeMembers(members, extra)
	if len(got) != 3 {
		t.Fatalf("expected 3 members, got %d: %+v", len(got), got)
	}
	if got[1].Nickname != "bob" || got[1].Status != StatusBeCalling {
		t.Fatalf("service copy should win, got %+v", got[1])
	}
	if got[2].Account != "c" || got[2].Nickname != "carol" {
		t.Fatalf("unexpected extra member: %+v", got[2])
	}
}

func TestCancelEventMemberStatus(t *testing.T) {
	tests := []struct {
		event CancelEvent
		want  MemberStatus
	}{
		{CancelCancel, StatusHangUp},
		{CancelHangUp, StatusHangUp},
		{CancelReject, StatusReject},
		{TimeoutCancel, StatusTimeout},
		{TimeoutReject, StatusTimeout},
	}
	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			if got := tt.event.MemberStatus(); got != tt.want {
				t.Fatalf("expected %v, got %v", tt.want, got)
			}
		})
	}
	if NoCancel.Valid() {
		t.Fatalf("NoCancel must not be a valid disposition")
	}
}

func TestMemberStatusActive(t *testing.T) {
	for _, s := range []MemberStatus{StatusWaitCall, StatusBeCalling, StatusCalling} {
		if !s.Active() {
			t.Fatalf("%v should be active", s)
		}
	}
	for _, s := range []MemberStatus{StatusReject, StatusTimeout, StatusHangUp} {
		if s.Active() {
			t.Fatalf("%v should be inactive", s)
		}
	}
}

func TestMemberLabel(t *testing.T) {
	m := Member{Account: "x", Nickname: "Dr. Li", Card: CardDoctor}
	if got := m.Label(); got != "Dr. Li【doctor】" {
		t.Fatalf("unexpected label %q", got)
	}
	if got := (Member{Account: "x"}).Label(); got != "x【unknown】" {
		t.Fatalf("unexpected fallback label %q", got)
	}
}
