package http

import (
	stdhttp "net/http"

	"github.com/gin-gonic/gin"
	"github.com/rs/cors"
	"github.com/rs/zerolog"

	"github.com/vovakirdan/wirecall/internal/auth"
	"github.com/vovakirdan/wirecall/internal/config"
	"github.com/vovakirdan/wirecall/internal/core"
	"github.com/vovakirdan/wirecall/internal/service/calls"
)

// NewServer builds the HTTP server for the call record API and signaling.
func NewServer(hub *core.Hub, authService *auth.Service, callsService *calls.Service, cfg config.Config, logger *zerolog.Logger) *stdhttp.Server {
	return &stdhttp.Server{
		Addr:              cfg.Addr,
		Handler:           NewRouter(hub, authService, callsService, cfg, logger),
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
	}
}

// NewRouter wires routes and middleware into a handler.
func NewRouter(hub *core.Hub, authService *auth.Service, callsService *calls.Service, cfg config.Config, logger *zerolog.Logger) stdhttp.Handler {
	if logger == nil {
		nop := zerolog.Nop()
		logger = &nop
	}
	gin.SetMode(gin.ReleaseMode)

	router := gin.New()
	router.Use(gin.Recovery(), LoggerMiddleware(logger))

	router.GET("/health", healthHandler)

	authed := router.Group("/", AuthMiddleware(authService, logger))

	callsHandlers := NewCallsHandlers(callsService, logger)
	api := authed.Group("/api")
	{
		api.POST("/calls", callsHandlers.CreateCall)
		api.POST("/calls/cancel", callsHandlers.CancelCall)
		api.POST("/calls/switch", callsHandlers.SwitchCallType)
		api.POST("/calls/members", callsHandlers.AddMember)
		api.GET("/rooms/:id/members", callsHandlers.RoomMembers)
		api.GET("/rooms/:id/join", callsHandlers.JoinInfo)
	}

	authed.GET("/ws", NewWSHandler(hub, cfg.WSRateLimit, logger).Handle)

	return cors.New(cors.Options{
		AllowedOrigins: cfg.CORSOrigins,
		AllowedMethods: []string{stdhttp.MethodGet, stdhttp.MethodPost, stdhttp.MethodOptions},
		AllowedHeaders: []string{"Authorization", "Content-Type"},
	}).Handler(router)
}

func healthHandler(c *gin.Context) {
	c.String(stdhttp.StatusOK, "ok")
}
