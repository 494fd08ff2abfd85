// Package ws receives signaling messages over the record service websocket.
package ws

import (
	"context"
	"errors"
	"fmt"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/signal"
)

// Handler consumes one signaling message.
type Handler func(ctx context.Context, msg signal.Message)

// Run dials url with a bearer token and hands every signaling message to h
// until ctx is done or the server closes the connection. A cancelled ctx is
// a clean shutdown and returns nil.
func Run(ctx context.Context, url, token string, logger zerolog.Logger, h Handler) error {
	log := logger.With().Str("component", "signal").Logger()

	header := http.Header{}
	if token != "" {
		header.Set("Authorization", "Bearer "+token)
	}
	conn, _, err := websocket.Dial(ctx, url, &websocket.DialOptions{HTTPHeader: header})
	if err != nil {
		return fmt.Errorf("dial signaling %s: %w", url, err)
	}
	defer conn.Close(websocket.StatusNormalClosure, "bye") //nolint:errcheck // best effort
	log.Info().Str("url", url).Msg("signaling connected")

	for {
		var env signal.Envelope
		if err := wsjson.Read(ctx, conn, &env); err != nil {
			if ctx.Err() != nil {
				return nil
			}
			status := websocket.CloseStatus(err)
			if errors.Is(err, io.EOF) || status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
				log.Info().Msg("signaling closed by server")
				return nil
			}
			return fmt.Errorf("read signaling: %w", err)
		}

		switch env.Type {
		case signal.EnvelopeTypeSignal:
			if env.Signal == nil {
				log.Warn().Msg("signal envelope without message")
				continue
			}
			log.Debug().
				Int64("room_id", env.Signal.RoomID).
				Str("kind", string(env.Signal.Kind)).
				Str("sponsor", env.Signal.SponsorAccount).
				Msg("signal received")
			h(ctx, *env.Signal)
		case signal.EnvelopeTypeError:
			if env.Error != nil {
				log.Warn().Str("code", env.Error.Code).Str("msg", env.Error.Msg).Msg("signaling error")
			}
		default:
			log.Warn().Str("type", env.Type).Msg("unknown envelope type")
		}
	}
}
