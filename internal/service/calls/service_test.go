package calls

import (
	"context"
	"errors"
	"sync"
	"testing"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/records"
	"github.com/vovakirdan/wirecall/internal/signal"
	"github.com/vovakirdan/wirecall/internal/store"
	"github.com/vovakirdan/wirecall/internal/store/sqlite"
)

type sent struct {
	account string
	msg     signal.Message
}

type recordingNotifier struct {
	mu   sync.Mutex
	sent []sent
}

func (n *recordingNotifier) Notify(account string, msg signal.Message) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.sent = append(n.sent, sent{account: account, msg: msg})
}

func (n *recordingNotifier) take() []sent {
	n.mu.Lock()
	defer n.mu.Unlock()
	out := n.sent
	n.sent = nil
	return out
}

type fakeEngine struct{}

func (fakeEngine) RoomName(roomID int64) string { return "room" }

func (fakeEngine) JoinInfo(_ context.Context, roomID int64, account, nickname string) (*callengine.JoinInfo, error) {
	return &callengine.JoinInfo{URL: "ws://media", Token: "tok-" + account, RoomName: "room", Identity: account}, nil
}

func newTestService(t *testing.T) (*Service, *recordingNotifier, store.Store) {
	t.Helper()
	st, err := sqlite.NewWithSetup(":memory:", sqlite.Migrate)
	if err != nil {
		t.Fatalf("failed to create store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	n := &recordingNotifier{}
	return New(st, fakeEngine{}, n, nil), n, st
}

func createCall(t *testing.T, svc *Service) int64 {
	t.Helper()
	res, err := svc.CreateCall(context.Background(), records.CreateCallRequest{
		Account:        "doc",
		Nickname:       "Dr. Li",
		Card:           domain.CardDoctor,
		CallType:       domain.CallVideo,
		CalleeAccount:  "pat",
		CalleeNickname: "Pat",
		CalleeCard:     domain.CardPatient,
		Extend:         domain.Extend{"orderId": "A-17"},
	})
	if err != nil {
		t.Fatalf("CreateCall failed: %v", err)
	}
	if res.RoomID == 0 || res.ConversationID == "" {
		t.Fatalf("unexpected result: %+v", res)
	}
	return res.RoomID
}

func TestCreateCallInvitesCallee(t *testing.T) {
	svc, n, _ := newTestService(t)
	ctx := context.Background()
	roomID := createCall(t, svc)

	msgs := n.take()
	if len(msgs) != 1 || msgs[0].account != "pat" {
		t.Fatalf("expected one invite to pat, got %+v", msgs)
	}
	inv := msgs[0].msg
	if inv.Kind != signal.KindInvite || inv.RoomID != roomID || inv.SponsorAccount != "doc" || !inv.IsKeyMember {
		t.Fatalf("unexpected invite: %+v", inv)
	}
	if inv.Extend["orderId"] != "A-17" || inv.CallType != domain.CallVideo {
		t.Fatalf("invite must carry call context: %+v", inv)
	}

	roster, err := svc.RoomMembers(ctx, roomID)
	if err != nil {
		t.Fatalf("RoomMembers failed: %v", err)
	}
	if len(roster) != 2 ||
		roster[0].Account != "doc" || roster[0].Status != domain.StatusCalling || !roster[0].KeyMember ||
		roster[1].Account != "pat" || roster[1].Status != domain.StatusBeCalling || !roster[1].KeyMember {
		t.Fatalf("unexpected roster: %+v", roster)
	}
}

func TestCreateCallValidation(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()

	tests := []struct {
		name string
		req  records.CreateCallRequest
	}{
		{name: "missing callee", req: records.CreateCallRequest{Account: "doc", CallType: domain.CallAudio}},
		{name: "self call", req: records.CreateCallRequest{Account: "doc", CalleeAccount: "doc", CallType: domain.CallAudio}},
		{name: "bad type", req: records.CreateCallRequest{Account: "doc", CalleeAccount: "pat", CallType: 9}},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := svc.CreateCall(ctx, tt.req); !errors.Is(err, records.ErrInvalid) {
				t.Fatalf("expected ErrInvalid, got %v", err)
			}
		})
	}
}

func TestCancelCallStatusMapping(t *testing.T) {
	tests := []struct {
		event  domain.CancelEvent
		status domain.MemberStatus
		kind   signal.Kind
	}{
		{domain.CancelCancel, domain.StatusHangUp, signal.KindCancel},
		{domain.CancelHangUp, domain.StatusHangUp, signal.KindHangUp},
		{domain.CancelReject, domain.StatusReject, signal.KindReject},
		{domain.TimeoutCancel, domain.StatusTimeout, signal.KindTimeoutCancel},
		{domain.TimeoutReject, domain.StatusTimeout, signal.KindTimeoutReject},
	}
	for _, tt := range tests {
		t.Run(tt.event.String(), func(t *testing.T) {
			svc, n, st := newTestService(t)
			ctx := context.Background()
			roomID := createCall(t, svc)
			n.take()

			if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "pat", EventType: tt.event}); err != nil {
				t.Fatalf("CancelCall failed: %v", err)
			}

			pat, err := st.GetMember(ctx, roomID, "pat")
			if err != nil {
				t.Fatalf("GetMember failed: %v", err)
			}
			if pat.Status != tt.status {
				t.Fatalf("expected %s, got %s", tt.status, pat.Status)
			}

			msgs := n.take()
			if len(msgs) != 1 || msgs[0].account != "doc" {
				t.Fatalf("expected one signal to doc, got %+v", msgs)
			}
			if m := msgs[0].msg; m.Kind != tt.kind || m.EventType != tt.event || m.SponsorAccount != "pat" || !m.IsKeyMember {
				t.Fatalf("unexpected signal: %+v", m)
			}

			call, err := st.GetCall(ctx, roomID)
			if err != nil {
				t.Fatalf("GetCall failed: %v", err)
			}
			if !call.Ended() || call.EndedAt == nil {
				t.Fatalf("a key member leaving must end the call")
			}
		})
	}
}

func TestCancelCallIsIdempotent(t *testing.T) {
	svc, n, _ := newTestService(t)
	ctx := context.Background()
	roomID := createCall(t, svc)

	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "pat", EventType: domain.CancelReject}); err != nil {
		t.Fatalf("CancelCall failed: %v", err)
	}
	n.take()

	// The caller follows with its own departure after the call ended.
	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "doc", EventType: domain.CancelCancel}); err != nil {
		t.Fatalf("departure after end must be recorded: %v", err)
	}
	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "pat", EventType: domain.CancelHangUp}); err != nil {
		t.Fatalf("second departure must not fail: %v", err)
	}
	if msgs := n.take(); len(msgs) != 0 {
		t.Fatalf("ended call must not signal, got %+v", msgs)
	}

	roster, err := svc.RoomMembers(ctx, roomID)
	if err != nil {
		t.Fatalf("RoomMembers failed: %v", err)
	}
	if roster[0].Status != domain.StatusHangUp || roster[1].Status != domain.StatusReject {
		t.Fatalf("unexpected statuses: %+v", roster)
	}
}

func TestCancelCallErrors(t *testing.T) {
	svc, _, _ := newTestService(t)
	ctx := context.Background()
	roomID := createCall(t, svc)

	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "pat", EventType: domain.NoCancel}); !errors.Is(err, records.ErrInvalid) {
		t.Fatalf("expected ErrInvalid, got %v", err)
	}
	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: 999, Account: "pat", EventType: domain.CancelCancel}); !errors.Is(err, records.ErrNotFound) {
		t.Fatalf("expected ErrNotFound, got %v", err)
	}
	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "ghost", EventType: domain.CancelCancel}); !errors.Is(err, records.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}
}

func TestNonKeyMemberLeavingKeepsCall(t *testing.T) {
	svc, n, st := newTestService(t)
	ctx := context.Background()
	roomID := createCall(t, svc)

	err := svc.AddMember(ctx, records.AddMemberRequest{
		RoomID:  roomID,
		Account: "doc",
		Member:  domain.Member{Account: "nurse", Nickname: "Nurse", Card: domain.CardStaff},
	})
	if err != nil {
		t.Fatalf("AddMember failed: %v", err)
	}

	msgs := n.take()
	var invited, announced []string
	for _, m := range msgs[1:] {
		switch m.msg.Kind {
		case signal.KindInvite:
			invited = append(invited, m.account)
		case signal.KindAddMember:
			announced = append(announced, m.account)
			if m.msg.SponsorAccount != "nurse" {
				t.Fatalf("add_member must name the new member, got %+v", m.msg)
			}
		}
	}
	if len(invited) != 1 || invited[0] != "nurse" {
		t.Fatalf("expected nurse invited, got %v", invited)
	}
	if len(announced) != 2 {
		t.Fatalf("expected doc and pat told, got %v", announced)
	}

	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "nurse", EventType: domain.CancelReject}); err != nil {
		t.Fatalf("CancelCall failed: %v", err)
	}
	left := n.take()
	if len(left) != 2 || left[0].msg.IsKeyMember {
		t.Fatalf("expected two non-key reject signals, got %+v", left)
	}
	call, err := st.GetCall(ctx, roomID)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if call.Ended() {
		t.Fatalf("non-key member leaving must keep the call")
	}
}

func TestSwitchCallType(t *testing.T) {
	svc, n, st := newTestService(t)
	ctx := context.Background()
	roomID := createCall(t, svc)
	n.take()

	if err := svc.SwitchCallType(ctx, records.SwitchCallTypeRequest{RoomID: roomID, Account: "pat"}); err != nil {
		t.Fatalf("SwitchCallType failed: %v", err)
	}
	call, err := st.GetCall(ctx, roomID)
	if err != nil {
		t.Fatalf("GetCall failed: %v", err)
	}
	if call.CallType != domain.CallAudio {
		t.Fatalf("expected audio call, got %s", call.CallType)
	}
	msgs := n.take()
	if len(msgs) != 1 || msgs[0].account != "doc" || msgs[0].msg.Kind != signal.KindSwitch {
		t.Fatalf("expected switch to doc, got %+v", msgs)
	}
}

func TestJoinInfo(t *testing.T) {
	svc, _, st := newTestService(t)
	ctx := context.Background()
	roomID := createCall(t, svc)

	info, err := svc.JoinInfo(ctx, roomID, "pat")
	if err != nil {
		t.Fatalf("JoinInfo failed: %v", err)
	}
	if info.Identity != "pat" || info.Token != "tok-pat" {
		t.Fatalf("unexpected join info: %+v", info)
	}
	call, _ := st.GetCall(ctx, roomID)
	if call.Status != store.CallStatusActive {
		t.Fatalf("callee joining must activate the call, got %s", call.Status)
	}

	if _, err := svc.JoinInfo(ctx, roomID, "ghost"); !errors.Is(err, records.ErrNotMember) {
		t.Fatalf("expected ErrNotMember, got %v", err)
	}

	if err := svc.CancelCall(ctx, records.CancelCallRequest{RoomID: roomID, Account: "doc", EventType: domain.CancelHangUp}); err != nil {
		t.Fatalf("CancelCall failed: %v", err)
	}
	if _, err := svc.JoinInfo(ctx, roomID, "pat"); !errors.Is(err, records.ErrCallEnded) {
		t.Fatalf("expected ErrCallEnded, got %v", err)
	}

	disabled := New(st, nil, nil, nil)
	if _, err := disabled.JoinInfo(ctx, roomID, "pat"); !errors.Is(err, ErrEngineDisabled) {
		t.Fatalf("expected ErrEngineDisabled, got %v", err)
	}
}
