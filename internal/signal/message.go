// Package signal defines the call signaling messages pushed from the record
// service to participants.
package signal

import (
	"github.com/vovakirdan/wirecall/internal/domain"
)

const (
	ProtocolVersion = 1

	EnvelopeTypeSignal = "signal"
	EnvelopeTypeError  = "error"
)

// Kind names a signaling message.
type Kind string

const (
	KindInvite        Kind = "invite"
	KindCancel        Kind = "cancel"
	KindTimeoutCancel Kind = "timeout_cancel"
	KindHangUp        Kind = "hang_up"
	KindReject        Kind = "reject"
	KindTimeoutReject Kind = "timeout_reject"
	KindSwitch        Kind = "switch"
	KindEnterRoom     Kind = "enter_room"
	KindAddMember     Kind = "add_member"
)

// Valid reports whether k is a known kind.
func (k Kind) Valid() bool {
	switch k {
	case KindInvite, KindCancel, KindTimeoutCancel, KindHangUp, KindReject,
		KindTimeoutReject, KindSwitch, KindEnterRoom, KindAddMember:
		return true
	default:
		return false
	}
}

// KindFor maps a leave disposition to the message the other members receive.
func KindFor(e domain.CancelEvent) (Kind, bool) {
	switch e {
	case domain.CancelCancel:
		return KindCancel, true
	case domain.TimeoutCancel:
		return KindTimeoutCancel, true
	case domain.CancelHangUp:
		return KindHangUp, true
	case domain.CancelReject:
		return KindReject, true
	case domain.TimeoutReject:
		return KindTimeoutReject, true
	default:
		return "", false
	}
}

// Message is one signaling message about a call room.
type Message struct {
	RoomID          int64              `json:"roomId"`
	ConversationID  string             `json:"conversationId,omitempty"`
	CallType        domain.CallType    `json:"callType"`
	Kind            Kind               `json:"kind"`
	EventType       domain.CancelEvent `json:"eventType,omitempty"`
	IsKeyMember     bool               `json:"isKeyMember"`
	SponsorAccount  string             `json:"sponsorAccount"`
	SponsorNickName string             `json:"sponsorNickName,omitempty"`
	SponsorCard     domain.UserCard    `json:"sponsorCard,omitempty"`
	Extend          domain.Extend      `json:"extend,omitempty"`
}

// Sponsor is the member that sent the message.
func (m Message) Sponsor() domain.Member {
	return domain.Member{
		Account:   m.SponsorAccount,
		Nickname:  m.SponsorNickName,
		Card:      m.SponsorCard,
		KeyMember: m.IsKeyMember,
	}
}

// Envelope frames every websocket payload.
type Envelope struct {
	Type     string   `json:"type"`
	Protocol int      `json:"protocol,omitempty"`
	Signal   *Message `json:"signal,omitempty"`
	Error    *Error   `json:"error,omitempty"`
}

// Error describes a protocol-level error.
type Error struct {
	Code string `json:"code"`
	Msg  string `json:"msg"`
}
