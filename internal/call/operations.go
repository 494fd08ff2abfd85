package call

import (
	"context"
	"errors"
	"fmt"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/notify"
	"github.com/vovakirdan/wirecall/internal/records"
	"github.com/vovakirdan/wirecall/internal/session"
)

// CreateParams describes an outgoing call.
type CreateParams struct {
	CallType domain.CallType
	Callee   domain.Member
	Extend   domain.Extend
}

// Create places a call to p.Callee, joins the room and publishes local
// media. The call stays ON_CALL until the callee joins.
func (o *Orchestrator) Create(ctx context.Context, p CreateParams) (*records.CreateCallResult, error) {
	v, err, _ := o.flight.Do(flightCreate, func() (any, error) {
		return o.create(ctx, p)
	})
	if err != nil {
		return nil, err
	}
	return v.(*records.CreateCallResult), nil
}

func (o *Orchestrator) create(ctx context.Context, p CreateParams) (*records.CreateCallResult, error) {
	if !p.CallType.Valid() {
		return nil, fmt.Errorf("call type %d: %w", p.CallType, records.ErrInvalid)
	}
	if p.Callee.Account == "" {
		return nil, fmt.Errorf("callee required: %w", records.ErrInvalid)
	}
	if o.RoomID() != 0 {
		return nil, ErrCallInProgress
	}
	if err := o.devices.Check(ctx, true, p.CallType == domain.CallVideo); err != nil {
		o.notice(notify.LevelMiddle, textDeviceUnavailable, 0)
		return nil, fmt.Errorf("%w: %w", ErrDeviceUnavailable, err)
	}

	each(o, "OnCreateMessage", func(pl CreateObserver) error { //nolint:errcheck // logged by each
		return pl.OnCreateMessage(ctx, p)
	})

	res, err := o.records.CreateCall(ctx, records.CreateCallRequest{
		Account:         o.self.Account,
		Nickname:        o.self.Nickname,
		Card:            o.self.Card,
		CallType:        p.CallType,
		CalleeAccount:   p.Callee.Account,
		CalleeAccountNo: p.Callee.AccountNo,
		CalleeNickname:  p.Callee.Nickname,
		CalleeCard:      p.Callee.Card,
		Extend:          p.Extend,
	})
	if err != nil {
		return nil, fmt.Errorf("create call: %w", err)
	}

	o.mu.Lock()
	if o.roomID != 0 {
		o.mu.Unlock()
		return nil, ErrCallInProgress
	}
	o.roomID = res.RoomID
	o.conversationID = res.ConversationID
	o.callType = p.CallType
	o.videoType = p.CallType
	o.extend = p.Extend
	o.sponsor = o.self
	o.mu.Unlock()

	log := o.log.With().Int64("room_id", res.RoomID).Str("callee", p.Callee.Account).Logger()
	log.Info().Str("call_type", p.CallType.String()).Msg("call created")
	o.setState(ctx, StateOnCall)

	sess, err := o.sessions.NewSession(ctx, res.RoomID, p.CallType)
	if err != nil {
		log.Error().Err(err).Msg("create session")
		o.Leave(ctx, domain.CancelCancel) //nolint:errcheck // logged by leave
		return nil, fmt.Errorf("create session: %w", err)
	}
	o.bind(sess)

	o.UpdateView(ctx) //nolint:errcheck // logged by reconcile
	if err := o.joinAndPublish(ctx, sess, res.RoomID); err != nil {
		return nil, err
	}

	callee := p.Callee
	o.mu.Lock()
	if o.roomID == res.RoomID {
		o.mainMember = &callee
	}
	o.mu.Unlock()
	return res, nil
}

// bind makes s the session of the current call.
func (o *Orchestrator) bind(s *session.Client) {
	o.mu.Lock()
	o.sess = s
	o.mu.Unlock()
	o.attach(s)
}

// Accept answers the pending invite.
func (o *Orchestrator) Accept(ctx context.Context) error {
	if st := o.State(); st != StateBeCalled {
		return fmt.Errorf("accept in %s: %w", st, ErrInvalidState)
	}
	sess, roomID := o.Session(), o.RoomID()
	if sess == nil {
		return ErrNoSession
	}
	o.notice(notify.LevelMiddle, textAccepted, 0)
	o.setState(ctx, StateCalling)

	return o.joinAndPublish(ctx, sess, roomID)
}

// joinAndPublish joins sess and publishes local media unless the call was
// torn down meanwhile. Join events may dissolve the call, and a left session
// must not start capturing again.
func (o *Orchestrator) joinAndPublish(ctx context.Context, sess *session.Client, roomID int64) error {
	if err := sess.Join(ctx); err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			return fmt.Errorf("room %d: %w", roomID, ErrCallEnded)
		}
		return err
	}
	if !o.current(sess, roomID) {
		return fmt.Errorf("room %d: %w", roomID, ErrCallEnded)
	}
	if err := sess.Publish(ctx); err != nil {
		if errors.Is(err, session.ErrSessionClosed) {
			return fmt.Errorf("room %d: %w", roomID, ErrCallEnded)
		}
		return err
	}
	return nil
}

// current reports whether sess still serves the call in roomID.
func (o *Orchestrator) current(sess *session.Client, roomID int64) bool {
	o.mu.Lock()
	defer o.mu.Unlock()
	return o.sess == sess && o.roomID == roomID
}

// Reject declines the pending invite.
func (o *Orchestrator) Reject(ctx context.Context) error {
	return o.Leave(ctx, domain.CancelReject)
}

// Hangup ends the call from the local side.
func (o *Orchestrator) Hangup(ctx context.Context) error {
	return o.Leave(ctx, domain.CancelHangUp)
}

// SwitchToAudio drops the local camera and downgrades the call.
func (o *Orchestrator) SwitchToAudio(ctx context.Context) error {
	sess := o.Session()
	if sess == nil {
		return ErrNoSession
	}
	if err := sess.RemoveVideoTrack(ctx); err != nil {
		return err
	}

	o.mu.Lock()
	o.videoType = domain.CallAudio
	roomID := o.roomID
	o.mu.Unlock()

	o.notice(notify.LevelMiddle, textSwitchedToAudio, 0)
	if err := o.records.SwitchCallType(ctx, records.SwitchCallTypeRequest{RoomID: roomID, Account: o.self.Account}); err != nil {
		o.log.Warn().Err(err).Int64("room_id", roomID).Msg("switch call type")
		return fmt.Errorf("switch call type: %w", err)
	}
	return nil
}

// Mute mutes the local microphone.
func (o *Orchestrator) Mute(context.Context) error {
	return o.setMuted(true)
}

// Unmute unmutes the local microphone.
func (o *Orchestrator) Unmute(context.Context) error {
	return o.setMuted(false)
}

func (o *Orchestrator) setMuted(muted bool) error {
	sess := o.Session()
	if sess == nil {
		return ErrNoSession
	}
	text := textUnmuted
	if muted {
		sess.MuteLocalAudio()
		text = textMuted
	} else {
		sess.UnmuteLocalAudio()
	}
	o.mu.Lock()
	o.muted = muted
	o.mu.Unlock()
	o.notice(notify.LevelMiddle, text, 0)
	return nil
}
