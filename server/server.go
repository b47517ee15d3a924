package server

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"sync"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/xiaoyuanzhu-com/claudechat/app"
	"github.com/xiaoyuanzhu-com/claudechat/history"
	"github.com/xiaoyuanzhu-com/claudechat/log"
	"github.com/xiaoyuanzhu-com/claudechat/notifications"
)

// Server owns the HTTP surface and the background watcher
type Server struct {
	cfg *Config
	app *app.App

	notifications *notifications.Service

	// Shutdown context - cancelled when server is shutting down.
	// Long-running handlers (chat streams, the watcher) listen to this.
	shutdownCtx    context.Context
	shutdownCancel context.CancelFunc
	background     sync.WaitGroup

	// HTTP
	router *gin.Engine
	http   *http.Server
}

// New creates a server over an initialized app
func New(cfg *Config, a *app.App) *Server {
	ctx, cancel := context.WithCancel(context.Background())
	s := &Server{
		cfg:            cfg,
		app:            a,
		notifications:  notifications.NewService(),
		shutdownCtx:    ctx,
		shutdownCancel: cancel,
	}
	s.setupRouter()
	return s
}

// setupRouter creates and configures the Gin router
func (s *Server) setupRouter() {
	if !s.cfg.IsDevelopment() {
		gin.SetMode(gin.ReleaseMode)
	}

	s.router = gin.New()

	s.router.Use(gin.Recovery())
	s.router.Use(log.GinLogger())

	// CORS for development
	if s.cfg.IsDevelopment() {
		s.router.Use(s.corsMiddleware())
	} else {
		s.router.Use(securityHeadersMiddleware())
	}

	// Gzip compression (skip streamed chat replies)
	s.router.Use(gzip.Gzip(gzip.DefaultCompression, gzip.WithExcludedPaths([]string{
		"/api/chat/stream",
		"/api/notifications/stream",
	})))

	s.router.SetTrustedProxies(nil)

	// Ignore .well-known requests
	s.router.GET("/.well-known/*path", func(c *gin.Context) {
		c.Status(http.StatusNotFound)
	})

	// Note: API routes are set up by the caller to avoid import cycles
}

// corsMiddleware handles CORS for development environments
func (s *Server) corsMiddleware() gin.HandlerFunc {
	allowed := make(map[string]bool, len(s.cfg.AllowedOrigins))
	for _, o := range s.cfg.AllowedOrigins {
		allowed[o] = true
	}
	return func(c *gin.Context) {
		if origin := c.Request.Header.Get("Origin"); allowed[origin] {
			c.Writer.Header().Set("Access-Control-Allow-Origin", origin)
		}
		c.Writer.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, PATCH, OPTIONS")
		c.Writer.Header().Set("Access-Control-Allow-Headers", "Origin, Content-Type, Accept")

		if c.Request.Method == http.MethodOptions {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}
		c.Next()
	}
}

// securityHeadersMiddleware adds security headers for production
func securityHeadersMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("X-Content-Type-Options", "nosniff")
		c.Header("X-Frame-Options", "SAMEORIGIN")
		c.Header("Referrer-Policy", "strict-origin-when-cross-origin")
		c.Next()
	}
}

// Start syncs the history cache, starts the watcher and serves HTTP (blocks)
func (s *Server) Start() error {
	if _, err := s.app.Registry.Sync(s.shutdownCtx); err != nil {
		log.Error().Err(err).Msg("initial sync failed")
	}

	if s.cfg.WatchEnabled {
		s.background.Add(1)
		go func() {
			defer s.background.Done()
			if err := s.app.Registry.Watch(s.shutdownCtx, s.cfg.WatchDebounce, s.onSync); err != nil {
				log.Error().Err(err).Msg("session watcher stopped")
			}
		}()
	}

	s.http = &http.Server{
		Addr:     fmt.Sprintf("%s:%d", s.cfg.Host, s.cfg.Port),
		Handler:  s.router,
		ErrorLog: log.StdErrorLogger(), // Route Go's internal HTTP errors through zerolog
	}

	log.Info().
		Str("addr", s.http.Addr).
		Str("env", s.cfg.Env).
		Msg("HTTP server starting")

	if err := s.http.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

// Shutdown gracefully shuts down the server
func (s *Server) Shutdown(ctx context.Context) error {
	log.Info().Msg("shutting down server")

	// Signal long-running handlers and the watcher first
	s.shutdownCancel()
	s.notifications.Shutdown()

	if s.http != nil {
		if err := s.http.Shutdown(ctx); err != nil {
			log.Error().Err(err).Msg("http server shutdown error")
		}
	}
	s.background.Wait()

	// Close database last
	if err := s.app.Close(); err != nil {
		log.Error().Err(err).Msg("database close error")
		return err
	}

	log.Info().Msg("server shutdown complete")
	return nil
}

func (s *Server) onSync(doc *history.Document) {
	s.notifications.NotifySessionsSynced(len(doc.Conversations))
}

// Component accessors for API handlers
func (s *Server) App() *app.App                         { return s.app }
func (s *Server) Router() *gin.Engine                   { return s.router }
func (s *Server) Notifications() *notifications.Service { return s.notifications }
func (s *Server) ShutdownContext() context.Context      { return s.shutdownCtx }
