package call

import (
	"context"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/notify"
	"github.com/vovakirdan/wirecall/internal/reconcile"
	"github.com/vovakirdan/wirecall/internal/signal"
)

// HandleSignal dispatches msg to its handler.
func (o *Orchestrator) HandleSignal(ctx context.Context, msg signal.Message) {
	switch msg.Kind {
	case signal.KindInvite:
		o.OnInviteMessage(ctx, msg)
	case signal.KindCancel:
		o.OnCancelMessage(ctx, msg)
	case signal.KindTimeoutCancel:
		o.OnTimeoutCancelMessage(ctx, msg)
	case signal.KindHangUp:
		o.OnHangUpMessage(ctx, msg)
	case signal.KindReject:
		o.OnRejectMessage(ctx, msg)
	case signal.KindTimeoutReject:
		o.OnTimeoutRejectMessage(ctx, msg)
	case signal.KindSwitch:
		o.OnSwitchMessage(ctx, msg)
	case signal.KindEnterRoom:
		o.OnEnterRoomMessage(ctx, msg)
	case signal.KindAddMember:
		o.OnAddMemberMessage(ctx, msg)
	default:
		o.log.Warn().Str("kind", string(msg.Kind)).Int64("room_id", msg.RoomID).Msg("unknown signal")
	}
}

// OnInviteMessage handles an incoming call. It is ignored while a room is active.
func (o *Orchestrator) OnInviteMessage(ctx context.Context, msg signal.Message) {
	log := o.log.With().Int64("room_id", msg.RoomID).Str("sponsor", msg.SponsorAccount).Logger()
	if msg.RoomID == 0 {
		log.Warn().Msg("invite without room")
		return
	}

	callType := msg.CallType
	if !callType.Valid() {
		callType = domain.CallVideo
	}
	o.mu.Lock()
	if o.roomID != 0 {
		busy := o.roomID
		o.mu.Unlock()
		log.Info().Int64("active_room", busy).Msg("invite ignored, already in a call")
		return
	}
	o.roomID = msg.RoomID
	o.conversationID = msg.ConversationID
	o.callType = callType
	o.videoType = callType
	o.extend = msg.Extend
	o.sponsor = msg.Sponsor()
	o.mu.Unlock()
	log.Info().Str("call_type", callType.String()).Msg("invited")

	o.signalHook(ctx, msg)

	if err := o.devices.Check(ctx, true, callType == domain.CallVideo); err != nil {
		log.Warn().Err(err).Msg("device check failed")
		o.notice(notify.LevelMiddle, textDeviceUnavailable, 0)
		o.Leave(ctx, domain.CancelCancel) //nolint:errcheck // logged by leave
		return
	}

	sess, err := o.sessions.NewSession(ctx, msg.RoomID, callType)
	if err != nil {
		log.Error().Err(err).Msg("create session")
		o.Leave(ctx, domain.CancelCancel) //nolint:errcheck // logged by leave
		return
	}
	o.bind(sess)

	dissolved, err := o.updateView(ctx)
	if dissolved {
		return
	}
	if err != nil {
		o.Leave(ctx, domain.CancelCancel) //nolint:errcheck // logged by leave
		return
	}

	o.viewMu.Lock()
	o.mu.Lock()
	prev := o.main
	merged := domain.MergeMembers(o.members, o.extra)
	o.mu.Unlock()
	if plan, ok := reconcile.Select(prev, msg.SponsorAccount, merged, sess.StreamOf); ok {
		o.apply(ctx, plan)
	}
	o.viewMu.Unlock()

	sponsor := msg.Sponsor()
	o.mu.Lock()
	stale := o.roomID != msg.RoomID
	if !stale {
		o.mainMember = &sponsor
	}
	o.mu.Unlock()
	if stale {
		return
	}
	o.setState(ctx, StateBeCalled)
}

func (o *Orchestrator) OnCancelMessage(ctx context.Context, msg signal.Message) {
	o.onRemoteLeft(ctx, msg)
}

func (o *Orchestrator) OnTimeoutCancelMessage(ctx context.Context, msg signal.Message) {
	o.onRemoteLeft(ctx, msg)
}

func (o *Orchestrator) OnHangUpMessage(ctx context.Context, msg signal.Message) {
	o.onRemoteLeft(ctx, msg)
}

func (o *Orchestrator) OnRejectMessage(ctx context.Context, msg signal.Message) {
	o.onRemoteLeft(ctx, msg)
}

func (o *Orchestrator) OnTimeoutRejectMessage(ctx context.Context, msg signal.Message) {
	o.onRemoteLeft(ctx, msg)
}

// OnSwitchMessage announces that the sender turned the camera off.
func (o *Orchestrator) OnSwitchMessage(ctx context.Context, msg signal.Message) {
	if !o.sameRoom(msg) {
		return
	}
	o.signalHook(ctx, msg)
	o.notice(notify.LevelMiddle, textCameraOff(msg.Sponsor().Label()), 0)
}

// OnEnterRoomMessage announces the sender and reconciles.
func (o *Orchestrator) OnEnterRoomMessage(ctx context.Context, msg signal.Message) {
	if !o.sameRoom(msg) {
		return
	}
	o.signalHook(ctx, msg)
	o.notice(notify.LevelMiddle, textJoined(msg.Sponsor().Label()), 0)
	o.UpdateView(ctx) //nolint:errcheck // logged by reconcile
}

// OnAddMemberMessage reconciles after the roster grew.
func (o *Orchestrator) OnAddMemberMessage(ctx context.Context, msg signal.Message) {
	if !o.sameRoom(msg) {
		return
	}
	o.signalHook(ctx, msg)
	o.UpdateView(ctx) //nolint:errcheck // logged by reconcile
}

// onRemoteLeft handles cancel, timeout, hang up and reject from another member.
// A key member leaving ends the call; otherwise the views are reconciled.
func (o *Orchestrator) onRemoteLeft(ctx context.Context, msg signal.Message) {
	if !o.sameRoom(msg) {
		return
	}
	o.signalHook(ctx, msg)
	o.notice(notify.LevelMiddle, msg.Sponsor().Label()+remoteVerb(msg.Kind), 0)

	if msg.IsKeyMember {
		o.log.Info().
			Int64("room_id", msg.RoomID).
			Str("kind", string(msg.Kind)).
			Str("sponsor", msg.SponsorAccount).
			Msg("key member left, ending call")
		o.Leave(ctx, domain.CancelCancel) //nolint:errcheck // logged by leave
		return
	}
	o.UpdateView(ctx) //nolint:errcheck // logged by reconcile
}

// sameRoom reports whether msg is about the active room.
func (o *Orchestrator) sameRoom(msg signal.Message) bool {
	roomID := o.RoomID()
	if roomID == 0 || msg.RoomID != roomID {
		o.log.Debug().
			Int64("room_id", msg.RoomID).
			Int64("active_room", roomID).
			Str("kind", string(msg.Kind)).
			Msg("signal for another room ignored")
		return false
	}
	return true
}

func (o *Orchestrator) signalHook(ctx context.Context, msg signal.Message) {
	each(o, "OnSignal", func(p SignalObserver) error { //nolint:errcheck // logged by each
		return p.OnSignal(ctx, msg)
	})
}
