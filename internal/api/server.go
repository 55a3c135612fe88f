// Package api implements the action router (§4.H): a single POST
// /api/action entrypoint that multiplexes every engine operation, plus a
// GET /api/stream websocket fanning out internal/events.Bus notifications.
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/rs/zerolog"

	"xauusd-engine/config"
	"xauusd-engine/internal/auth"
	"xauusd-engine/internal/backtest"
	"xauusd-engine/internal/botrunner"
	"xauusd-engine/internal/events"
	"xauusd-engine/internal/execution"
	"xauusd-engine/internal/marketdata"
	"xauusd-engine/internal/notification"
	"xauusd-engine/internal/store"
)

// Server wires every component the action router dispatches into: the
// store, the market-data client, the execution provider, the bot-session
// runner, the backtest engine, notifications, and the event bus.
type Server struct {
	router *gin.Engine
	http   *http.Server

	repo     *store.Repository
	market   *marketdata.Client
	provider execution.Provider
	runner   *botrunner.Runner
	backtest *backtest.Engine
	notifier *notification.Manager
	bus      *events.Bus
	verifier *auth.Verifier
	cfg      *config.Config
	logger   zerolog.Logger
}

func NewServer(
	cfg *config.Config,
	repo *store.Repository,
	market *marketdata.Client,
	provider execution.Provider,
	runner *botrunner.Runner,
	backtestEngine *backtest.Engine,
	notifier *notification.Manager,
	bus *events.Bus,
	verifier *auth.Verifier,
	logger zerolog.Logger,
) *Server {
	gin.SetMode(gin.ReleaseMode)
	router := gin.New()
	router.Use(gin.Recovery())

	corsConfig := cors.DefaultConfig()
	corsConfig.AllowOrigins = cfg.ServerConfig.AllowedOrigins
	corsConfig.AllowMethods = []string{"GET", "POST", "OPTIONS"}
	corsConfig.AllowHeaders = []string{"Origin", "Content-Type", "Authorization"}
	corsConfig.AllowCredentials = true
	router.Use(cors.New(corsConfig))

	s := &Server{
		router:   router,
		repo:     repo,
		market:   market,
		provider: provider,
		runner:   runner,
		backtest: backtestEngine,
		notifier: notifier,
		bus:      bus,
		verifier: verifier,
		cfg:      cfg,
		logger:   logger.With().Str("component", "api").Logger(),
	}
	s.setupRoutes()
	return s
}

func (s *Server) setupRoutes() {
	s.router.GET("/health", s.handleHealth)

	protected := s.router.Group("/api")
	protected.Use(auth.Middleware(s.verifier))
	protected.POST("/action", s.handleAction)
	protected.GET("/stream", s.handleStream)
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"status": "ok", "time": time.Now().UTC()})
}

// Run starts the HTTP server and blocks until ctx is cancelled, then
// shuts down within the configured grace period.
func (s *Server) Run(ctx context.Context) error {
	s.http = &http.Server{
		Addr:         s.cfg.ServerConfig.Host + ":" + s.cfg.ServerConfig.Port,
		Handler:      s.router,
		ReadTimeout:  s.cfg.ServerConfig.ReadTimeout,
		WriteTimeout: s.cfg.ServerConfig.WriteTimeout,
	}

	errCh := make(chan error, 1)
	go func() {
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), s.cfg.ServerConfig.ShutdownTimeout)
		defer cancel()
		return s.http.Shutdown(shutdownCtx)
	}
}
