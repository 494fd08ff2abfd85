package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	stdhttp "net/http"
	"time"

	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/auth"
	"github.com/vovakirdan/wirecall/internal/callengine"
	"github.com/vovakirdan/wirecall/internal/callengine/livekit"
	"github.com/vovakirdan/wirecall/internal/config"
	"github.com/vovakirdan/wirecall/internal/core"
	"github.com/vovakirdan/wirecall/internal/service/calls"
	"github.com/vovakirdan/wirecall/internal/store"
	"github.com/vovakirdan/wirecall/internal/store/sqlite"
	transporthttp "github.com/vovakirdan/wirecall/internal/transport/http"
)

// Server wires together the call record service and its transport.
type Server struct {
	server          *stdhttp.Server
	listener        net.Listener
	shutdownTimeout time.Duration
	hub             *core.Hub
	store           store.Store
	log             *zerolog.Logger
}

// NewServer constructs the record service with provided configuration.
func NewServer(cfg config.Config, logger *zerolog.Logger) (*Server, error) {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}

	// Initialize database store
	st, err := sqlite.New(cfg.DatabasePath)
	if err != nil {
		return nil, fmt.Errorf("init store: %w", err)
	}

	logger.Info().Str("db_path", cfg.DatabasePath).Msg("database initialized")

	authService := auth.NewService(&auth.JWTConfig{
		Secret:   []byte(cfg.JWTSecret),
		Issuer:   cfg.JWTIssuer,
		Audience: cfg.JWTAudience,
		TTL:      cfg.TokenTTL,
	})

	var engine callengine.Engine
	if cfg.LiveKit.Enabled() {
		engine = livekit.New(cfg.LiveKit.APIKey, cfg.LiveKit.APISecret, cfg.LiveKit.URL)
		logger.Info().Str("url", cfg.LiveKit.URL).Msg("livekit engine enabled")
	} else {
		logger.Warn().Msg("livekit credentials missing, join info disabled")
	}

	hub := core.NewHub(logger)
	callsService := calls.New(st, engine, hub, logger)
	server := transporthttp.NewServer(hub, authService, callsService, cfg, logger)

	return &Server{
		server:          server,
		shutdownTimeout: cfg.ShutdownTimeout,
		hub:             hub,
		store:           st,
		log:             logger,
	}, nil
}

// Listen binds the configured address ahead of Run and returns it.
func (a *Server) Listen() (net.Addr, error) {
	if a.listener == nil {
		ln, err := net.Listen("tcp", a.server.Addr)
		if err != nil {
			return nil, fmt.Errorf("listen %s: %w", a.server.Addr, err)
		}
		a.listener = ln
	}
	return a.listener.Addr(), nil
}

// Connections reports how many signaling connections account holds.
func (a *Server) Connections(account string) (int, error) {
	return a.hub.Connections(account)
}

// Run starts the HTTP server and blocks until context cancellation or fatal error.
func (a *Server) Run(ctx context.Context) error {
	if _, err := a.Listen(); err != nil {
		a.cleanup()
		return err
	}
	serverErr := make(chan error, 1)

	go a.hub.Run(ctx)

	a.log.Info().Str("addr", a.listener.Addr().String()).Msg("record service listening")
	go func() {
		if err := a.server.Serve(a.listener); err != nil && !errors.Is(err, stdhttp.ErrServerClosed) {
			serverErr <- err
			return
		}
		serverErr <- nil
	}()

	select {
	case err := <-serverErr:
		a.cleanup()
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), a.shutdownTimeout)
		defer cancel()

		a.log.Info().Msg("shutting down http server")
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			a.cleanup()
			return err
		}

		a.cleanup()
		return <-serverErr
	}
}

// cleanup closes database and other resources.
func (a *Server) cleanup() {
	if a.store != nil {
		if err := a.store.Close(); err != nil {
			a.log.Warn().Err(err).Msg("failed to close store")
		} else {
			a.log.Info().Msg("store closed")
		}
	}
}
