package ops

import (
	"context"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
)

// ReadyFunc reports whether the bot is ready to serve (providers reachable,
// audit sink ensured). Wired by cmd/bot.
type ReadyFunc func() bool

// NewRouter builds the ops HTTP router: /healthz (liveness), /readyz
// (readiness via ready), and /metrics (Prometheus).
func NewRouter(ready ReadyFunc) *gin.Engine {
	gin.SetMode(gin.ReleaseMode)
	r := gin.New()
	r.Use(gin.Recovery())

	r.GET("/healthz", func(c *gin.Context) {
		c.String(http.StatusOK, "ok")
	})
	r.GET("/readyz", func(c *gin.Context) {
		if ready != nil && !ready() {
			c.String(http.StatusServiceUnavailable, "not ready")
			return
		}
		c.String(http.StatusOK, "ready")
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	return r
}

// Server wraps the ops HTTP listener with graceful shutdown.
type Server struct {
	srv *http.Server
	log zerolog.Logger
}

// NewServer builds an ops Server listening on addr.
func NewServer(addr string, ready ReadyFunc, log zerolog.Logger) *Server {
	return &Server{
		srv: &http.Server{
			Addr:              addr,
			Handler:           NewRouter(ready),
			ReadHeaderTimeout: 10 * time.Second,
		},
		log: log.With().Str("component", "ops").Logger(),
	}
}

// Start runs the listener until Shutdown. It returns http.ErrServerClosed
// on a clean stop.
func (s *Server) Start() error {
	s.log.Info().Str("addr", s.srv.Addr).Msg("ops server listening")
	return s.srv.ListenAndServe()
}

// Shutdown stops the listener, waiting for in-flight requests up to ctx.
func (s *Server) Shutdown(ctx context.Context) error {
	return s.srv.Shutdown(ctx)
}
