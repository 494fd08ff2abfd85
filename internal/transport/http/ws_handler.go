package http

import (
	"context"
	"errors"
	"io"
	"net/http"

	"github.com/coder/websocket"
	"github.com/coder/websocket/wsjson"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/core"
	"github.com/vovakirdan/wirecall/internal/utils"
)

// WSHandler upgrades HTTP connections and bridges them to core.Client.
// The connection is push-only: the server writes signals, and anything the
// peer sends is answered with an error envelope.
type WSHandler struct {
	hub       *core.Hub
	rateLimit int
	log       *zerolog.Logger
}

// NewWSHandler builds a new WebSocket handler. rateLimit bounds inbound
// frames per minute; past it the connection is closed.
func NewWSHandler(hub *core.Hub, rateLimit int, logger *zerolog.Logger) *WSHandler {
	return &WSHandler{hub: hub, rateLimit: rateLimit, log: logger}
}

// Handle serves GET /ws for an authenticated caller.
func (h *WSHandler) Handle(c *gin.Context) {
	account := c.GetString(ContextKeyAccount)
	if account == "" {
		c.JSON(http.StatusUnauthorized, ErrorResponse{Error: "unauthorized"})
		return
	}

	conn, err := websocket.Accept(c.Writer, c.Request, &websocket.AcceptOptions{
		InsecureSkipVerify: true,
	})
	if err != nil {
		h.log.Error().Err(err).Msg("ws accept error")
		return
	}
	defer conn.Close(websocket.StatusInternalError, "internal error") //nolint:errcheck // no-op after a clean close

	client := core.NewClient(utils.NewID(), account)
	log := h.log.With().Str("client_id", client.ID).Str("account", account).Logger()
	if err := h.hub.RegisterClient(client); err != nil {
		log.Warn().Err(err).Msg("register ws client")
		conn.Close(websocket.StatusGoingAway, "server shutting down") //nolint:errcheck // best effort
		return
	}
	//nolint:errcheck // hub already closed the channel on shutdown
	defer h.hub.UnregisterClient(client)
	log.Info().Msg("ws connected")

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()

	errCh := make(chan error, 2)
	go func() {
		errCh <- h.readLoop(ctx, conn, &log)
	}()
	go func() {
		errCh <- h.writeLoop(ctx, conn, client, &log)
	}()

	err = <-errCh
	cancel() // stop the other goroutine
	<-errCh

	status := websocket.StatusNormalClosure
	reason := "closing"
	if err != nil && !errors.Is(err, context.Canceled) {
		if errors.Is(err, io.EOF) {
			err = nil
		}
		if s := websocket.CloseStatus(err); s != -1 {
			status = s
		}
		if errors.Is(err, errRateLimited) {
			status = websocket.StatusPolicyViolation
		}
		if status == websocket.StatusNormalClosure || status == websocket.StatusGoingAway {
			err = nil
		}
		if err != nil {
			if status == websocket.StatusNormalClosure {
				status = websocket.StatusInternalError
			}
			reason = err.Error()
			log.Warn().Err(err).Msg("ws connection closed with error")
		}
	}

	log.Info().Int("status", int(status)).Msg("ws disconnected")
	conn.Close(status, reason) //nolint:errcheck // peer may already be gone
}

var errRateLimited = errors.New("inbound rate limit exceeded")

func (h *WSHandler) readLoop(ctx context.Context, conn *websocket.Conn, log *zerolog.Logger) error {
	limiter := newRateLimiter(h.rateLimit)
	for {
		if _, _, err := conn.Read(ctx); err != nil {
			return err
		}
		if !limiter.allow() {
			log.Warn().Msg("ws inbound rate limit exceeded")
			//nolint:errcheck // connection is closed right after
			wsjson.Write(ctx, conn, errorEnvelope(core.NewError(core.ErrCodeRateLimited, errRateLimited.Error())))
			conn.Close(websocket.StatusPolicyViolation, "rate limited") //nolint:errcheck // best effort
			return errRateLimited
		}
		log.Debug().Msg("ws inbound frame ignored")
		if err := wsjson.Write(ctx, conn, errorEnvelope(core.NewError(core.ErrCodeUnsupported, "signaling is push-only"))); err != nil {
			return err
		}
	}
}

func (h *WSHandler) writeLoop(ctx context.Context, conn *websocket.Conn, client *core.Client, log *zerolog.Logger) error {
	for {
		select {
		case msg, ok := <-client.Events:
			if !ok {
				// Close before the read side is cancelled, which would abort the connection.
				return conn.Close(websocket.StatusGoingAway, "server shutting down")
			}
			if err := wsjson.Write(ctx, conn, signalEnvelope(msg)); err != nil {
				log.Error().Err(err).Msg("write ws signal")
				return err
			}
		case <-ctx.Done():
			return ctx.Err()
		}
	}
}
