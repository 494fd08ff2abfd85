package call

import (
	"context"
	"time"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/notify"
)

// setState moves to s. Re-entering the current state does nothing.
func (o *Orchestrator) setState(ctx context.Context, s State) {
	o.mu.Lock()
	from := o.state
	if from == s {
		o.mu.Unlock()
		return
	}
	o.state = s
	roomID := o.roomID
	sponsor := o.sponsor
	callType := o.videoType
	hasDuration := !o.startedAt.IsZero()
	sess := o.sess
	o.mu.Unlock()

	o.log.Info().Int64("room_id", roomID).Str("from", from.String()).Str("state", s.String()).Msg("call state changed")

	switch s {
	case StateOnCall:
		o.callDeadline.arm(o.cfg.InviteTimeout, func() { o.onCallDeadline(StateOnCall) })
		o.showStatus(notify.LevelLow, textWaiting)
	case StateBeCalled:
		o.callDeadline.arm(o.cfg.InviteTimeout, func() { o.onCallDeadline(StateBeCalled) })
		o.showStatus(notify.LevelLow, textInviting(sponsor, callType))
	case StateCalling:
		o.callDeadline.disarm()
		if sess == nil || len(sess.RemoteStreams()) == 0 {
			o.streamDeadline.arm(o.cfg.StreamTimeout, o.onStreamDeadline)
		}
		if !hasDuration {
			o.showStatus(notify.LevelLow, textEstablishing)
		}
	case StateFree:
		o.callDeadline.disarm()
		o.streamDeadline.disarm()
	}

	each(o, "OnChangeState", func(p StateObserver) error { //nolint:errcheck // logged by each
		return p.OnChangeState(ctx, from, s)
	})
}

// showStatus shows an infinite status notice that replaces the previous one.
func (o *Orchestrator) showStatus(level notify.Level, text string) {
	id := o.toast.Show(notify.ShowParams{Level: level, Content: text, Time: notify.Forever})
	o.mu.Lock()
	prev := o.statusNotice
	o.statusNotice = id
	o.mu.Unlock()
	if prev != "" {
		o.toast.Hide(prev)
	}
}

// startDuration replaces the status notice with the call duration ticker.
// Only the first call per room has an effect.
func (o *Orchestrator) startDuration() {
	o.mu.Lock()
	if !o.startedAt.IsZero() || o.roomID == 0 {
		o.mu.Unlock()
		return
	}
	o.startedAt = time.Now()
	o.mu.Unlock()

	id := o.toast.Show(notify.ShowParams{
		Level: notify.LevelLow,
		Time:  notify.Forever,
		Lazy: func() string {
			elapsed := o.Elapsed()
			each(o, "OnTick", func(p Ticker) error { //nolint:errcheck // logged by each
				p.OnTick(elapsed)
				return nil
			})
			return formatDuration(elapsed)
		},
	})

	o.mu.Lock()
	o.durationNotice = id
	prev := o.statusNotice
	o.statusNotice = ""
	o.mu.Unlock()
	if prev != "" {
		o.toast.Hide(prev)
	}
}

func (o *Orchestrator) onCallDeadline(expected State) {
	if o.State() != expected {
		return
	}
	ctx := context.Background()
	switch expected {
	case StateBeCalled:
		o.log.Warn().Int64("room_id", o.RoomID()).Msg("invite timed out")
		o.notice(notify.LevelMiddle, textInviteTimedOut, 0)
		o.Leave(ctx, domain.TimeoutReject) //nolint:errcheck // logged by leave
	case StateOnCall:
		o.log.Warn().Int64("room_id", o.RoomID()).Msg("call not answered")
		o.notice(notify.LevelMiddle, textNoAnswer, 0)
		o.Leave(ctx, domain.TimeoutCancel) //nolint:errcheck // logged by leave
	}
}

func (o *Orchestrator) onStreamDeadline() {
	if o.State() != StateCalling {
		return
	}
	if s := o.Session(); s != nil && len(s.RemoteStreams()) > 0 {
		return
	}
	o.log.Warn().Int64("room_id", o.RoomID()).Msg("no remote stream before deadline")
	o.notice(notify.LevelMiddle, textConnectTimedOut, 0)
	o.Leave(context.Background(), domain.CancelCancel) //nolint:errcheck // logged by leave
}
