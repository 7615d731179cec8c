package api

import (
	"context"
	"fmt"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	log "github.com/sirupsen/logrus"

	"vote-admin/service"
)

// APIConfig configures the HTTP server.
type APIConfig struct {
	Host      string
	Port      int
	ExportDir string

	// Gatherer backs GET /metrics. A nil Gatherer disables the endpoint.
	Gatherer prometheus.Gatherer
}

func (cfg APIConfig) Endpoint() string {
	return fmt.Sprintf("%s:%d", cfg.Host, cfg.Port)
}

// Server exposes election creation and export over HTTP.
type Server struct {
	queue     *service.BootstrapQueue
	metrics   *service.MetricsCollector
	exportDir string
	gatherer  prometheus.Gatherer
	started   time.Time
}

func NewServer(queue *service.BootstrapQueue, metrics *service.MetricsCollector, cfg APIConfig) *Server {
	return &Server{
		queue:     queue,
		metrics:   metrics,
		exportDir: cfg.ExportDir,
		gatherer:  cfg.Gatherer,
		started:   time.Now(),
	}
}

// Router builds the gin engine with every route registered.
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Recovery(), requestLogger())
	s.registerRoutes(r)
	return r
}

// Serve runs the server until ctx is cancelled, then shuts it down gracefully.
func (s *Server) Serve(ctx context.Context, cfg APIConfig) error {
	httpServer := &http.Server{
		Addr:    cfg.Endpoint(),
		Handler: s.Router(),
	}

	errCh := make(chan error, 1)
	go func() {
		log.WithField("addr", httpServer.Addr).Info("Starting election API server")
		if err := httpServer.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err := <-errCh:
		return err
	case <-ctx.Done():
	}

	log.Info("Shutting down election API server")
	shutdownCtx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	return httpServer.Shutdown(shutdownCtx)
}

func requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		began := time.Now()
		c.Next()
		log.WithFields(log.Fields{
			"method":  c.Request.Method,
			"path":    c.FullPath(),
			"status":  c.Writer.Status(),
			"elapsed": time.Since(began).String(),
		}).Debug("Handled request")
	}
}
