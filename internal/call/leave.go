package call

import (
	"context"
	"fmt"
	"time"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/reconcile"
	"github.com/vovakirdan/wirecall/internal/records"
)

// Leave ends the local participation in the current call and reports ev to
// the record service (domain.NoCancel reports nothing). Concurrent callers
// share one teardown. The teardown does not observe ctx cancellation.
func (o *Orchestrator) Leave(ctx context.Context, ev domain.CancelEvent) error {
	ctx = context.WithoutCancel(ctx)
	_, err, shared := o.flight.Do(flightLeave, func() (any, error) {
		return nil, o.leave(ctx, ev)
	})
	if shared {
		o.log.Debug().Str("event", ev.String()).Msg("leave coalesced")
	}
	return err
}

func (o *Orchestrator) leave(ctx context.Context, ev domain.CancelEvent) error {
	o.mu.Lock()
	roomID, state, sess := o.roomID, o.state, o.sess
	o.mu.Unlock()

	if roomID == 0 {
		if state != StateFree {
			o.reset()
		}
		return nil
	}
	log := o.log.With().Int64("room_id", roomID).Str("event", ev.String()).Logger()
	log.Info().Str("state", state.String()).Msg("leaving call")

	o.callDeadline.disarm()
	o.streamDeadline.disarm()
	o.cancelVideoCall(ctx, roomID, ev)

	var err error
	if sess != nil {
		if lerr := sess.Leave(ctx); lerr != nil {
			log.Warn().Err(lerr).Msg("session leave")
			err = fmt.Errorf("leave session: %w", lerr)
		}
	}

	o.setState(ctx, StateFree)
	each(o, "OnLeave", func(p Leaver) error { //nolint:errcheck // logged by each
		return p.OnLeave(ctx, roomID)
	})

	if o.cfg.LeaveGrace > 0 {
		t := time.NewTimer(o.cfg.LeaveGrace)
		<-t.C
	}
	o.reset()
	log.Info().Msg("left call")
	return err
}

// cancelVideoCall reports the departure. Failures are logged only.
func (o *Orchestrator) cancelVideoCall(ctx context.Context, roomID int64, ev domain.CancelEvent) {
	if ev == domain.NoCancel {
		return
	}
	err := o.records.CancelCall(ctx, records.CancelCallRequest{
		RoomID:    roomID,
		Account:   o.self.Account,
		EventType: ev,
	})
	if err != nil {
		o.log.Warn().Err(err).Int64("room_id", roomID).Str("event", ev.String()).Msg("cancel call")
	}
}

// reset drops every piece of call state.
func (o *Orchestrator) reset() {
	o.callDeadline.disarm()
	o.streamDeadline.disarm()
	o.toast.Clear()

	o.viewMu.Lock()
	defer o.viewMu.Unlock()
	o.mu.Lock()
	defer o.mu.Unlock()
	o.state = StateFree
	o.roomID = 0
	o.conversationID = ""
	o.callType = 0
	o.videoType = 0
	o.extend = nil
	o.sponsor = domain.Member{}
	o.members = nil
	o.extra = nil
	o.main = reconcile.View{}
	o.minor = nil
	o.mainMember = nil
	o.sess = nil
	o.statusNotice = ""
	o.durationNotice = ""
	o.startedAt = time.Time{}
	o.muted = false
}
