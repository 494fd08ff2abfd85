// Package records is the contract between call participants and the call
// record service: placing calls, reporting departures, reading the roster
// and fetching media credentials.
package records

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/domain"
)

var (
	ErrNotFound  = errors.New("call not found")
	ErrNotMember = errors.New("not a member of the call")
	ErrCallEnded = errors.New("call already ended")
	ErrInvalid   = errors.New("invalid request")
)

// CreateCallRequest places a call from Account to Callee.
type CreateCallRequest struct {
	Account         string          `json:"account,omitempty"`
	Nickname        string          `json:"nickname,omitempty"`
	Card            domain.UserCard `json:"userCard"`
	CallType        domain.CallType `json:"callType"`
	CalleeAccount   string          `json:"calleeAccount"`
	CalleeAccountNo string          `json:"calleeAccountNo,omitempty"`
	CalleeNickname  string          `json:"calleeNickname,omitempty"`
	CalleeCard      domain.UserCard `json:"calleeCard,omitempty"`
	Extend          domain.Extend   `json:"extend,omitempty"`
}

// CreateCallResult identifies the new call room.
type CreateCallResult struct {
	RoomID         int64  `json:"roomId"`
	ConversationID string `json:"conversationId"`
}

// CancelCallRequest reports that Account leaves RoomID with EventType.
type CancelCallRequest struct {
	RoomID    int64              `json:"roomId"`
	Account   string             `json:"account,omitempty"`
	EventType domain.CancelEvent `json:"eventType"`
}

// SwitchCallTypeRequest downgrades RoomID to an audio call.
type SwitchCallTypeRequest struct {
	RoomID  int64  `json:"roomId"`
	Account string `json:"account,omitempty"`
}

// AddMemberRequest invites another member into RoomID.
type AddMemberRequest struct {
	RoomID  int64         `json:"roomId"`
	Account string        `json:"account,omitempty"`
	Member  domain.Member `json:"member"`
}

// Service is the call record service as seen by one participant.
type Service interface {
	CreateCall(ctx context.Context, req CreateCallRequest) (*CreateCallResult, error)
	CancelCall(ctx context.Context, req CancelCallRequest) error
	RoomMembers(ctx context.Context, roomID int64) ([]domain.Member, error)
	SwitchCallType(ctx context.Context, req SwitchCallTypeRequest) error
}

// Joiner supplies media backend credentials for a room.
type Joiner interface {
	JoinInfo(ctx context.Context, roomID int64) (*callengine.JoinInfo, error)
}
