package observability

import (
	"context"
	"errors"
	"net"
	"net/http"
	"time"

	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog/log"
)

// StatusSource returns the JSON body for /status.
type StatusSource func(ctx context.Context) (any, error)

// SessionHeader carries the session id on every status server response.
const SessionHeader = "X-Squares-Session"

// StatusConfig wires a status server to one peer session.
type StatusConfig struct {
	Peer        string
	Session     string
	CorsOrigins []string
	Source      StatusSource
}

// StatusServer exposes health, session status and metrics over HTTP.
type StatusServer struct {
	Peer    string
	Session string
	Started time.Time

	router *gin.Engine
	source StatusSource
	srv    *http.Server
}

func NewStatusServer(cfg StatusConfig) *StatusServer {
	RegisterMetrics()
	r := gin.New()
	r.Use(gin.Recovery())
	r.Use(observeRequests(cfg.Peer, cfg.Session))
	r.Use(cors.New(cors.Config{
		AllowOrigins: normalizeOrigins(cfg.CorsOrigins),
		AllowMethods: []string{"GET"},
		AllowHeaders: []string{"Origin", "Content-Type"},
		MaxAge:       12 * time.Hour,
	}))
	_ = r.SetTrustedProxies([]string{"127.0.0.1", "::1"})

	s := &StatusServer{
		Peer:    cfg.Peer,
		Session: cfg.Session,
		Started: time.Now(),
		router:  r,
		source:  cfg.Source,
		srv:     &http.Server{
			Handler:           r,
			ReadHeaderTimeout: 5 * time.Second,
		},
	}
	s.registerRoutes()
	return s
}

func (s *StatusServer) Handler() http.Handler {
	return s.router
}

func (s *StatusServer) registerRoutes() {
	s.router.GET("/health", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"status":  "ok",
			"uptime":  time.Since(s.Started).String(),
			"peer":    s.Peer,
			"session": s.Session,
		})
	})

	s.router.GET("/status", func(c *gin.Context) {
		if s.source == nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no session"})
			return
		}
		ctx, cancel := context.WithTimeout(c.Request.Context(), 2*time.Second)
		defer cancel()
		body, err := s.source(ctx)
		if err != nil {
			c.JSON(http.StatusServiceUnavailable, gin.H{"error": err.Error()})
			return
		}
		c.JSON(http.StatusOK, body)
	})

	s.router.GET("/metrics", gin.WrapH(promhttp.Handler()))
}

// Serve blocks until Shutdown is called or ln fails.
func (s *StatusServer) Serve(ln net.Listener) error {
	log.Info().Str("addr", ln.Addr().String()).Msg("status server listening")
	if err := s.srv.Serve(ln); err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func (s *StatusServer) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}

// observeRequests logs and counts each request against the session. Routes
// gin does not know are folded into one label; metrics scrapes log at debug.
func observeRequests(peer, session string) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		if session != "" {
			c.Header(SessionHeader, session)
		}
		c.Next()

		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}
		status := c.Writer.Status()
		elapsed := time.Since(start)
		RecordHTTPRequest(peer, c.Request.Method, route, status, elapsed)

		event := log.Info()
		switch {
		case status >= 500:
			event = log.Error()
		case status >= 400:
			event = log.Warn()
		case route == "/metrics":
			event = log.Debug()
		}
		event.
			Str("session", session).
			Str("peer", peer).
			Str("method", c.Request.Method).
			Str("route", route).
			Int("status", status).
			Dur("duration", elapsed).
			Str("client_ip", c.ClientIP()).
			Msg("status request")
	}
}

func normalizeOrigins(origins []string) []string {
	if len(origins) == 0 {
		return []string{"http://localhost:3000"}
	}
	return origins
}
