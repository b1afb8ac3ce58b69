// internal/api/server.go
package api

import (
	"context"
	"errors"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	"github.com/rs/zerolog"
	"golang.org/x/net/http2"
	"golang.org/x/net/http2/h2c"

	"github.com/tamzrod/opcua-replicator/internal/cache"
	"github.com/tamzrod/opcua-replicator/internal/poller"
	"github.com/tamzrod/opcua-replicator/internal/status"
)

// Values is the read side of the value cache.
type Values interface {
	Get(name string) (cache.Entry, bool)
	GetAll() map[string]cache.Entry
}

// Engine exposes polling engine health.
type Engine interface {
	State() poller.State
	Healthy() bool
}

// Device exposes the derived device status. Optional.
type Device interface {
	Status() status.Snapshot
}

type Deps struct {
	Values   Values
	Engine   Engine
	Device   Device
	Gatherer prometheus.Gatherer
}

const shutdownTimeout = 5 * time.Second

// Server is the read-only consumer API.
type Server struct {
	addr   string
	deps   Deps
	log    zerolog.Logger
	router *gin.Engine
}

func NewServer(addr string, deps Deps, log zerolog.Logger) *Server {
	gin.SetMode(gin.ReleaseMode)

	r := gin.New()
	r.Use(gin.Recovery(), requestLogger(log))

	s := &Server{addr: addr, deps: deps, log: log, router: r}
	s.routes()
	return s
}

func (s *Server) routes() {
	s.router.GET("/values", s.listValues)
	s.router.GET("/values/:name", s.getValue)
	s.router.GET("/healthz", s.healthz)

	g := s.deps.Gatherer
	if g == nil {
		g = prometheus.DefaultGatherer
	}
	s.router.GET("/metrics", gin.WrapH(promhttp.HandlerFor(g, promhttp.HandlerOpts{})))
}

// Handler serves HTTP/1.1 and cleartext HTTP/2.
func (s *Server) Handler() http.Handler {
	return h2c.NewHandler(s.router, &http2.Server{})
}

// Run serves until ctx is done, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	srv := &http.Server{
		Addr:              s.addr,
		Handler:           s.Handler(),
		ReadHeaderTimeout: 5 * time.Second,
	}

	errCh := make(chan error, 1)
	go func() {
		s.log.Info().Str("listen", s.addr).Msg("http api listening")
		errCh <- srv.ListenAndServe()
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	sctx, cancel := context.WithTimeout(context.Background(), shutdownTimeout)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	if err := <-errCh; err != nil && !errors.Is(err, http.ErrServerClosed) {
		return err
	}
	return nil
}

func requestLogger(log zerolog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()

		log.Debug().
			Str("method", c.Request.Method).
			Str("path", c.Request.URL.Path).
			Int("status", c.Writer.Status()).
			Dur("latency", time.Since(start)).
			Msg("request completed")
	}
}
