package calls

import (
	"context"
	"errors"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/reconcile"
	"github.com/vovakirdan/wirecall/internal/records"
	"github.com/vovakirdan/wirecall/internal/signal"
	"github.com/vovakirdan/wirecall/internal/store"
)

// Common errors for call operations.
var (
	ErrEngineDisabled = errors.New("media backend is not configured")
	ErrCannotCallSelf = errors.New("cannot call yourself")
)

// Notifier pushes a signaling message to every connection of an account.
type Notifier interface {
	Notify(account string, msg signal.Message)
}

// Service provides call record business logic.
type Service struct {
	store    store.Store
	engine   callengine.Engine
	notifier Notifier
	log      *zerolog.Logger

	// mu serializes membership transitions so a departure and the
	// dissolve check that follows it see the same roster.
	mu sync.Mutex
}

// New creates a new call Service.
// engine can be nil if no media backend is configured.
func New(st store.Store, engine callengine.Engine, notifier Notifier, logger *zerolog.Logger) *Service {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	return &Service{
		store:    st,
		engine:   engine,
		notifier: notifier,
		log:      logger,
	}
}

// CreateCall opens a call room with the caller ringing the callee, and
// invites the callee.
func (s *Service) CreateCall(ctx context.Context, req records.CreateCallRequest) (*records.CreateCallResult, error) {
	switch {
	case req.Account == "" || req.CalleeAccount == "":
		return nil, fmt.Errorf("caller and callee required: %w", records.ErrInvalid)
	case req.Account == req.CalleeAccount:
		return nil, fmt.Errorf("%w: %w", records.ErrInvalid, ErrCannotCallSelf)
	case !req.CallType.Valid():
		return nil, fmt.Errorf("call type %d: %w", req.CallType, records.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	call := &store.Call{
		ConversationID: uuid.NewString(),
		CallType:       req.CallType,
		CallerAccount:  req.Account,
		Status:         store.CallStatusRinging,
		Extend:         req.Extend,
	}
	if err := s.store.CreateCall(ctx, call); err != nil {
		return nil, fmt.Errorf("save call: %w", err)
	}

	caller := &store.CallMember{
		RoomID:    call.RoomID,
		Account:   req.Account,
		Nickname:  req.Nickname,
		Card:      req.Card,
		Status:    domain.StatusCalling,
		KeyMember: true,
	}
	callee := &store.CallMember{
		RoomID:    call.RoomID,
		Account:   req.CalleeAccount,
		AccountNo: req.CalleeAccountNo,
		Nickname:  req.CalleeNickname,
		Card:      req.CalleeCard,
		Status:    domain.StatusBeCalling,
		KeyMember: true,
	}
	for _, m := range []*store.CallMember{caller, callee} {
		if err := s.store.AddMember(ctx, m); err != nil {
			return nil, fmt.Errorf("add member %q: %w", m.Account, err)
		}
	}

	s.log.Info().
		Int64("room_id", call.RoomID).
		Str("caller", req.Account).
		Str("callee", req.CalleeAccount).
		Str("call_type", req.CallType.String()).
		Msg("call created")

	s.notify(callee.Account, s.message(call, signal.KindInvite, caller))

	return &records.CreateCallResult{RoomID: call.RoomID, ConversationID: call.ConversationID}, nil
}

// CancelCall records that req.Account left the room with req.EventType and
// tells every other active member. The call ends once a key member is gone.
// Reporting a departure twice is not an error.
func (s *Service) CancelCall(ctx context.Context, req records.CancelCallRequest) error {
	kind, ok := signal.KindFor(req.EventType)
	if !ok {
		return fmt.Errorf("event type %d: %w", req.EventType, records.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	call, member, err := s.lookup(ctx, req.RoomID, req.Account)
	if err != nil {
		return err
	}
	log := s.log.With().Int64("room_id", call.RoomID).Str("account", member.Account).Str("event", req.EventType.String()).Logger()
	if !member.Status.Active() {
		log.Debug().Str("status", member.Status.String()).Msg("departure already recorded")
		return nil
	}

	status := req.EventType.MemberStatus()
	if err := s.store.UpdateMemberStatus(ctx, call.RoomID, member.Account, status); err != nil {
		return fmt.Errorf("update member: %w", err)
	}
	member.Status = status
	log.Info().Str("status", status.String()).Msg("member left")

	if call.Ended() {
		return nil
	}

	roster, err := s.store.ListMembers(ctx, call.RoomID, nil)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	msg := s.message(call, kind, member)
	msg.EventType = req.EventType
	s.broadcast(roster, member.Account, msg)

	if reconcile.Dissolved(toDomain(roster)) {
		now := time.Now()
		call.Status = store.CallStatusEnded
		call.EndedAt = &now
		if err := s.store.UpdateCall(ctx, call); err != nil {
			return fmt.Errorf("end call: %w", err)
		}
		log.Info().Msg("call ended")
	}
	return nil
}

// RoomMembers returns the roster of a room in join order.
func (s *Service) RoomMembers(ctx context.Context, roomID int64) ([]domain.Member, error) {
	if _, err := s.getCall(ctx, roomID); err != nil {
		return nil, err
	}
	members, err := s.store.ListMembers(ctx, roomID, nil)
	if err != nil {
		return nil, fmt.Errorf("list members: %w", err)
	}
	return toDomain(members), nil
}

// CheckMember reports records.ErrNotMember when account never joined roomID.
func (s *Service) CheckMember(ctx context.Context, roomID int64, account string) error {
	_, _, err := s.lookup(ctx, roomID, account)
	return err
}

// SwitchCallType downgrades the call to audio and tells the other members.
func (s *Service) SwitchCallType(ctx context.Context, req records.SwitchCallTypeRequest) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	call, member, err := s.activeMember(ctx, req.RoomID, req.Account)
	if err != nil {
		return err
	}

	if call.CallType != domain.CallAudio {
		call.CallType = domain.CallAudio
		if err := s.store.UpdateCall(ctx, call); err != nil {
			return fmt.Errorf("update call: %w", err)
		}
	}
	s.log.Info().Int64("room_id", call.RoomID).Str("account", member.Account).Msg("switched to audio")

	roster, err := s.store.ListMembers(ctx, call.RoomID, nil)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	s.broadcast(roster, member.Account, s.message(call, signal.KindSwitch, member))
	return nil
}

// AddMember brings req.Member into the room: the new member is invited and
// everybody else is told the roster grew.
func (s *Service) AddMember(ctx context.Context, req records.AddMemberRequest) error {
	if req.Member.Account == "" {
		return fmt.Errorf("member account required: %w", records.ErrInvalid)
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	call, inviter, err := s.activeMember(ctx, req.RoomID, req.Account)
	if err != nil {
		return err
	}

	added := &store.CallMember{
		RoomID:    call.RoomID,
		Account:   req.Member.Account,
		AccountNo: req.Member.AccountNo,
		Nickname:  req.Member.Nickname,
		Card:      req.Member.Card,
		Status:    domain.StatusBeCalling,
		KeyMember: req.Member.KeyMember,
	}
	if err := s.store.AddMember(ctx, added); err != nil {
		return fmt.Errorf("add member: %w", err)
	}
	s.log.Info().Int64("room_id", call.RoomID).Str("account", inviter.Account).Str("member", added.Account).Msg("member added")

	roster, err := s.store.ListMembers(ctx, call.RoomID, nil)
	if err != nil {
		return fmt.Errorf("list members: %w", err)
	}
	s.notify(added.Account, s.message(call, signal.KindInvite, inviter))

	notice := s.message(call, signal.KindAddMember, added)
	for _, m := range roster {
		if m.Account == added.Account || !m.Status.Active() {
			continue
		}
		s.notify(m.Account, notice)
	}
	return nil
}

// JoinInfo returns media backend credentials for account in roomID.
func (s *Service) JoinInfo(ctx context.Context, roomID int64, account string) (*callengine.JoinInfo, error) {
	if s.engine == nil {
		return nil, ErrEngineDisabled
	}

	s.mu.Lock()
	call, member, err := s.activeMember(ctx, roomID, account)
	if err == nil && call.Status == store.CallStatusRinging && account != call.CallerAccount {
		call.Status = store.CallStatusActive
		//nolint:errcheck // Non-fatal error, best effort update
		s.store.UpdateCall(ctx, call)
	}
	s.mu.Unlock()
	if err != nil {
		return nil, err
	}

	info, err := s.engine.JoinInfo(ctx, roomID, member.Account, member.Nickname)
	if err != nil {
		return nil, fmt.Errorf("generate join info: %w", err)
	}
	return info, nil
}

func (s *Service) getCall(ctx context.Context, roomID int64) (*store.Call, error) {
	call, err := s.store.GetCall(ctx, roomID)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, fmt.Errorf("room %d: %w", roomID, records.ErrNotFound)
		}
		return nil, fmt.Errorf("get call: %w", err)
	}
	return call, nil
}

// lookup loads the call and account's membership in it.
func (s *Service) lookup(ctx context.Context, roomID int64, account string) (*store.Call, *store.CallMember, error) {
	call, err := s.getCall(ctx, roomID)
	if err != nil {
		return nil, nil, err
	}
	member, err := s.store.GetMember(ctx, roomID, account)
	if err != nil {
		if errors.Is(err, store.ErrNotFound) {
			return nil, nil, fmt.Errorf("%q in room %d: %w", account, roomID, records.ErrNotMember)
		}
		return nil, nil, fmt.Errorf("get member: %w", err)
	}
	return call, member, nil
}

// activeMember is lookup restricted to a running call and a member that
// has not left it.
func (s *Service) activeMember(ctx context.Context, roomID int64, account string) (*store.Call, *store.CallMember, error) {
	call, member, err := s.lookup(ctx, roomID, account)
	if err != nil {
		return nil, nil, err
	}
	if call.Ended() || !member.Status.Active() {
		return nil, nil, fmt.Errorf("room %d: %w", roomID, records.ErrCallEnded)
	}
	return call, member, nil
}

// message builds a signal about call sent by sponsor.
func (s *Service) message(call *store.Call, kind signal.Kind, sponsor *store.CallMember) signal.Message {
	return signal.Message{
		RoomID:          call.RoomID,
		ConversationID:  call.ConversationID,
		CallType:        call.CallType,
		Kind:            kind,
		IsKeyMember:     sponsor.KeyMember,
		SponsorAccount:  sponsor.Account,
		SponsorNickName: sponsor.Nickname,
		SponsorCard:     sponsor.Card,
		Extend:          call.Extend,
	}
}

// broadcast sends msg to every active member except sender.
func (s *Service) broadcast(roster []*store.CallMember, sender string, msg signal.Message) {
	for _, m := range roster {
		if m.Account == sender || !m.Status.Active() {
			continue
		}
		s.notify(m.Account, msg)
	}
}

func (s *Service) notify(account string, msg signal.Message) {
	if s.notifier == nil {
		return
	}
	s.log.Debug().Int64("room_id", msg.RoomID).Str("account", account).Str("kind", string(msg.Kind)).Msg("signal")
	s.notifier.Notify(account, msg)
}

func toDomain(members []*store.CallMember) []domain.Member {
	out := make([]domain.Member, 0, len(members))
	for _, m := range members {
		out = append(out, m.Member())
	}
	return out
}

var _ records.Service = (*Service)(nil)
