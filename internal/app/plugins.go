package app

import (
	"context"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/call"
	"github.com/vovakirdan/wirecall/internal/signal"
)

// logPlugin writes the call lifecycle to the log.
type logPlugin struct {
	log zerolog.Logger
}

func (p *logPlugin) Name() string { return "log" }

func (p *logPlugin) OnChangeState(_ context.Context, from, to call.State) error {
	p.log.Info().Str("from", from.String()).Str("to", to.String()).Msg("call state")
	return nil
}

func (p *logPlugin) OnSignal(_ context.Context, msg signal.Message) error {
	p.log.Info().
		Int64("room_id", msg.RoomID).
		Str("kind", string(msg.Kind)).
		Str("sponsor", msg.SponsorAccount).
		Msg("call signal")
	return nil
}

func (p *logPlugin) OnCreateMessage(_ context.Context, params call.CreateParams) error {
	p.log.Info().Str("callee", params.Callee.Account).Str("call_type", params.CallType.String()).Msg("placing call")
	return nil
}

func (p *logPlugin) OnLeave(_ context.Context, roomID int64) error {
	p.log.Info().Int64("room_id", roomID).Msg("left call")
	return nil
}

func (p *logPlugin) OnTick(elapsed time.Duration) {
	p.log.Debug().Dur("elapsed", elapsed).Msg("call tick")
}

func (p *logPlugin) OnClientBanned(_ context.Context, roomID int64) error {
	p.log.Warn().Int64("room_id", roomID).Msg("removed from call room")
	return nil
}

// autoAnswer wakes the client loop whenever an invite starts ringing.
type autoAnswer struct {
	ringing chan struct{}
}

func newAutoAnswer() *autoAnswer {
	return &autoAnswer{ringing: make(chan struct{}, 1)}
}

func (p *autoAnswer) Name() string { return "auto-answer" }

func (p *autoAnswer) OnChangeState(_ context.Context, _, to call.State) error {
	if to != call.StateBeCalled {
		return nil
	}
	select {
	case p.ringing <- struct{}{}:
	default:
	}
	return nil
}

var (
	_ call.StateObserver  = (*logPlugin)(nil)
	_ call.SignalObserver = (*logPlugin)(nil)
	_ call.CreateObserver = (*logPlugin)(nil)
	_ call.Leaver         = (*logPlugin)(nil)
	_ call.Ticker         = (*logPlugin)(nil)
	_ call.BanHandler     = (*logPlugin)(nil)
	_ call.StateObserver  = (*autoAnswer)(nil)
)
