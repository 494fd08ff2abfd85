package call

import (
	"context"
	"errors"

	"github.com/vovakirdan/wirecall/internal/domain"
	"github.com/vovakirdan/wirecall/internal/event"
	"github.com/vovakirdan/wirecall/internal/media"
	"github.com/vovakirdan/wirecall/internal/notify"
)

// registry binds the orchestrator to session events.
func (o *Orchestrator) registry() *event.Registry {
	return event.NewRegistry(map[event.Kind]event.Handler{
		event.JoinSuccess:        o.onReconcile,
		event.JoinError:          o.onJoinError,
		event.InitializeError:    o.onInitializeError,
		event.PlayerStateChanged: o.onPlayerState,
		event.PublishSuccess:     o.onReconcile,
		event.PublishError:       o.onPublishError,
		event.Error:              o.onError,
		event.ClientBanned:       o.onClientBanned,
		event.PeerJoin:           o.onPeerJoin,
		event.PeerLeave:          o.onPeerLeave,
		event.StreamAdded:        o.onReconcile,
		event.StreamUpdated:      o.onReconcile,
		event.StreamSubscribed:   o.onStreamSubscribed,
		event.StreamRemoved:      o.onStreamRemoved,
		event.NetworkQuality:     o.onNetworkQuality,
		event.BadNetworkQuality:  o.onBadNetworkQuality,
	})
}

func (o *Orchestrator) onReconcile(event.Event) {
	o.UpdateView(context.Background()) //nolint:errcheck // logged by reconcile
}

func (o *Orchestrator) onJoinError(ev event.Event) {
	o.log.Error().Err(ev.Err).Int64("room_id", o.RoomID()).Msg("join failed")
	o.notice(notify.LevelMiddle, textJoinFailed, 0)
	o.Leave(context.Background(), domain.CancelCancel) //nolint:errcheck // logged by leave
}

func (o *Orchestrator) onInitializeError(ev event.Event) {
	text := textDeviceFailed
	var de *media.DeviceError
	if errors.As(ev.Err, &de) {
		text = de.Describe()
	}
	o.log.Error().Err(ev.Err).Int64("room_id", o.RoomID()).Msg("local media failed")
	o.notice(notify.LevelMiddle, text, 0)
	o.Leave(context.Background(), o.cancelType()) //nolint:errcheck // logged by leave
}

func (o *Orchestrator) onPlayerState(ev event.Event) {
	o.log.Debug().
		Str("user_id", ev.UserID).
		Str("track", ev.Player.Track).
		Str("player_state", ev.Player.State).
		Msg("player state")
}

func (o *Orchestrator) onPublishError(ev event.Event) {
	o.log.Error().Err(ev.Err).Int64("room_id", o.RoomID()).Msg("publish failed")
	o.Leave(context.Background(), o.cancelType()) //nolint:errcheck // logged by leave
}

// onError resumes playback after an autoplay refusal, reports a device
// that could not recover and leaves on anything else.
func (o *Orchestrator) onError(ev event.Event) {
	ctx := context.Background()
	switch ev.Code {
	case media.CodePlayNotAllowed:
		o.log.Warn().Err(ev.Err).Msg("playback not allowed, resuming")
		if s := o.Session(); s != nil {
			if err := s.ResumeStreams(ctx); err != nil {
				o.log.Warn().Err(err).Msg("resume streams")
			}
		}
	case media.CodeDeviceAutoRecoverFail:
		o.log.Warn().Err(ev.Err).Msg("device auto recovery failed")
		o.notice(notify.LevelMiddle, textDeviceRecover, 0)
	default:
		o.log.Error().Err(ev.Err).Int("code", ev.Code).Int64("room_id", o.RoomID()).Msg("fatal session error")
		o.Leave(ctx, o.cancelType()) //nolint:errcheck // logged by leave
	}
}

func (o *Orchestrator) onClientBanned(event.Event) {
	ctx := context.Background()
	roomID := o.RoomID()
	o.log.Warn().Int64("room_id", roomID).Msg("banned from room")
	o.Leave(ctx, o.cancelType()) //nolint:errcheck // logged by leave
	each(o, "OnClientBanned", func(p BanHandler) error { //nolint:errcheck // logged by each
		return p.OnClientBanned(ctx, roomID)
	})
}

func (o *Orchestrator) onPeerJoin(ev event.Event) {
	if ev.UserID == o.self.Account {
		return
	}
	ctx := context.Background()
	if dissolved, _ := o.updateView(ctx); dissolved {
		return
	}
	o.notice(notify.LevelMiddle, textJoined(o.label(ev.UserID)), 0)
	if o.RoomID() != 0 {
		o.setState(ctx, StateCalling)
	}
}

func (o *Orchestrator) onPeerLeave(ev event.Event) {
	if ev.UserID == o.self.Account {
		return
	}
	ctx := context.Background()
	o.notice(notify.LevelMiddle, textLeft(o.label(ev.UserID)), 0)
	if o.isKeyMember(ev.UserID) {
		o.Leave(ctx, o.cancelType()) //nolint:errcheck // logged by leave
		return
	}
	o.UpdateView(ctx) //nolint:errcheck // logged by reconcile
}

func (o *Orchestrator) onStreamSubscribed(event.Event) {
	o.streamDeadline.disarm()
	o.startDuration()
	o.UpdateView(context.Background()) //nolint:errcheck // logged by reconcile
}

func (o *Orchestrator) onStreamRemoved(ev event.Event) {
	ctx := context.Background()
	if dissolved, _ := o.updateView(ctx); dissolved {
		return
	}
	if ev.UserID != o.self.Account && o.isKeyMember(ev.UserID) {
		o.Leave(ctx, o.cancelType()) //nolint:errcheck // logged by leave
	}
}

func (o *Orchestrator) onNetworkQuality(ev event.Event) {
	level := o.cfg.PoorNetworkLevel
	if ev.Quality.Uplink >= level || ev.Quality.Downlink >= level {
		o.notice(notify.LevelMiddle, textNetworkPoor, o.cfg.PoorNetworkNotice)
	}
}

func (o *Orchestrator) onBadNetworkQuality(event.Event) {
	o.log.Warn().Int64("room_id", o.RoomID()).Msg("network disconnected")
	o.notice(notify.LevelMiddle, textNetworkLost, 0)
	o.Leave(context.Background(), o.cancelType()) //nolint:errcheck // logged by leave
}
