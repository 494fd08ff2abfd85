package store

import (
	"context"
	"errors"
	"time"

	"github.com/vovakirdan/wirecall/internal/domain"
)

// ErrNotFound is returned when a call or member does not exist.
var ErrNotFound = errors.New("not found")

// CallStatus is the lifecycle of a call record.
type CallStatus string

const (
	CallStatusRinging CallStatus = "ringing"
	CallStatusActive  CallStatus = "active"
	CallStatusEnded   CallStatus = "ended"
)

// Call represents one call room.
type Call struct {
	RoomID         int64
	ConversationID string
	CallType       domain.CallType
	CallerAccount  string
	Status         CallStatus
	Extend         domain.Extend
	CreatedAt      time.Time
	UpdatedAt      time.Time
	EndedAt        *time.Time
}

// Ended reports whether the call is over.
func (c *Call) Ended() bool { return c.Status == CallStatusEnded }

// CallMember represents a participant of a call room.
type CallMember struct {
	RoomID    int64
	Account   string
	AccountNo string
	Nickname  string
	Card      domain.UserCard
	Status    domain.MemberStatus
	KeyMember bool
	UpdatedAt time.Time
}

// Member converts the record to the wire roster entry.
func (m *CallMember) Member() domain.Member {
	return domain.Member{
		Account:   m.Account,
		AccountNo: m.AccountNo,
		Nickname:  m.Nickname,
		Card:      m.Card,
		Status:    m.Status,
		KeyMember: m.KeyMember,
	}
}

// CallStore handles call persistence.
type CallStore interface {
	// CreateCall inserts a call and sets its RoomID.
	CreateCall(ctx context.Context, call *Call) error

	// GetCall retrieves a call by room ID.
	GetCall(ctx context.Context, roomID int64) (*Call, error)

	// UpdateCall updates status, call type and end time of a call.
	UpdateCall(ctx context.Context, call *Call) error
}

// MemberStore handles call membership.
type MemberStore interface {
	// AddMember inserts a member, or refreshes it when the account is
	// already in the room.
	AddMember(ctx context.Context, m *CallMember) error

	// GetMember retrieves one member of a room.
	GetMember(ctx context.Context, roomID int64, account string) (*CallMember, error)

	// ListMembers lists members of a room in join order, optionally
	// filtered by status.
	ListMembers(ctx context.Context, roomID int64, status *domain.MemberStatus) ([]*CallMember, error)

	// UpdateMemberStatus sets the status of a member.
	UpdateMemberStatus(ctx context.Context, roomID int64, account string, status domain.MemberStatus) error
}

// Store aggregates all storage interfaces.
type Store interface {
	CallStore
	MemberStore

	// Close closes the underlying database connection.
	Close() error
}
