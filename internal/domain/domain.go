// Package domain holds the call vocabulary shared by the session core,
// the record service and the signaling wire format.
package domain

import "strconv"

// CallType selects the media a call carries.
type CallType int

const (
	CallAudio CallType = 1
	CallVideo CallType = 2
)

func (t CallType) String() string {
	switch t {
	case CallAudio:
		return "audio"
	case CallVideo:
		return "video"
	default:
		return "unknown(" + strconv.Itoa(int(t)) + ")"
	}
}

// Mode is the human word used in notices ("video call", "voice call").
func (t CallType) Mode() string {
	if t == CallAudio {
		return "voice"
	}
	return "video"
}

// Valid reports whether t is a known call type.
func (t CallType) Valid() bool {
	return t == CallAudio || t == CallVideo
}

// MemberStatus is a participant's membership status as tracked by the record service.
type MemberStatus int

const (
	StatusWaitCall  MemberStatus = 10
	StatusBeCalling MemberStatus = 20
	StatusCalling   MemberStatus = 30
	StatusReject    MemberStatus = 40
	StatusTimeout   MemberStatus = 50
	StatusHangUp    MemberStatus = 60
)

// Active reports whether the member is still waiting, ringing or talking.
func (s MemberStatus) Active() bool {
	switch s {
	case StatusWaitCall, StatusBeCalling, StatusCalling:
		return true
	default:
		return false
	}
}

func (s MemberStatus) String() string {
	switch s {
	case StatusWaitCall:
		return "wait_call"
	case StatusBeCalling:
		return "be_calling"
	case StatusCalling:
		return "calling"
	case StatusReject:
		return "reject"
	case StatusTimeout:
		return "timeout"
	case StatusHangUp:
		return "hang_up"
	default:
		return "unknown(" + strconv.Itoa(int(s)) + ")"
	}
}

// UserCard is the role tag shown next to a participant's name.
type UserCard int

const (
	CardPatient UserCard = iota + 1
	CardStaff
	CardTeam
	CardSystem
	CardDoctor
	CardHealthSteward
	CardPrivateDoctor
	CardSpecialDoctor
)

var cardText = map[UserCard]string{
	CardPatient:       "patient",
	CardStaff:         "staff",
	CardTeam:          "team",
	CardSystem:        "system",
	CardDoctor:        "doctor",
	CardHealthSteward: "health steward",
	CardPrivateDoctor: "private doctor",
	CardSpecialDoctor: "special doctor",
}

func (c UserCard) String() string {
	if s, ok := cardText[c]; ok {
		return s
	}
	return "unknown"
}

// CancelEvent is the disposition reported to the record service when a
// participant leaves a call.
type CancelEvent int

const (
	// NoCancel leaves without notifying the record service.
	NoCancel      CancelEvent = 0
	CancelCancel  CancelEvent = 2001
	TimeoutCancel CancelEvent = 2002
	CancelHangUp  CancelEvent = 2003
	CancelReject  CancelEvent = 2004
	TimeoutReject CancelEvent = 2005
)

func (e CancelEvent) String() string {
	switch e {
	case NoCancel:
		return "none"
	case CancelCancel:
		return "cancel"
	case TimeoutCancel:
		return "timeout_cancel"
	case CancelHangUp:
		return "hang_up"
	case CancelReject:
		return "reject"
	case TimeoutReject:
		return "timeout_reject"
	default:
		return "unknown(" + strconv.Itoa(int(e)) + ")"
	}
}

// Valid reports whether e is a disposition the record service accepts.
func (e CancelEvent) Valid() bool {
	switch e {
	case CancelCancel, TimeoutCancel, CancelHangUp, CancelReject, TimeoutReject:
		return true
	default:
		return false
	}
}

// MemberStatus returns the status a member ends up in after leaving with e.
func (e CancelEvent) MemberStatus() MemberStatus {
	switch e {
	case CancelReject:
		return StatusReject
	case TimeoutCancel, TimeoutReject:
		return StatusTimeout
	default:
		return StatusHangUp
	}
}

// Extend carries caller-supplied business context through a call untouched.
type Extend map[string]any

// Member is one participant of a call.
type Member struct {
	Account   string       `json:"memberAccount"`
	AccountNo string       `json:"accountNo"`
	Nickname  string       `json:"nickname"`
	Card      UserCard     `json:"userCard"`
	Status    MemberStatus `json:"memberStatus"`
	KeyMember bool         `json:"isKeyMember"`
}

// Label renders "nickname【card】" the way notices refer to a participant.
func (m Member) Label() string {
	name := m.Nickname
	if name == "" {
		name = m.Account
	}
	return name + "【" + m.Card.String() + "】"
}

// MergeMembers returns members followed by every extra whose account is not
// already present. The service copy wins on conflict and extras are
// de-duplicated among themselves.
func MergeMembers(members, extra []Member) []Member {
	out := make([]Member, 0, len(members)+len(extra))
	seen := make(map[string]struct{}, len(members)+len(extra))
	for _, m := range members {
		if _, ok := seen[m.Account]; ok {
			continue
		}
		seen[m.Account] = struct{}{}
		out = append(out, m)
	}
	for _, m := range extra {
		if _, ok := seen[m.Account]; ok {
			continue
		}
		seen[m.Account] = struct{}{}
		out = append(out, m)
	}
	return out
}

// FindMember returns the member with the given account.
func FindMember(members []Member, account string) (Member, bool) {
	for _, m := range members {
		if m.Account == account {
			return m, true
		}
	}
	return Member{}, false
}
