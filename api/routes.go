package api

import (
	"errors"
	"io"
	"net/http"
	"os"
	"path/filepath"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	log "github.com/sirupsen/logrus"

	"vote-admin/models"
	"vote-admin/service"
	"vote-admin/storage"
)

// A bootstrap reports at most 52 progress values, so this buffer never fills.
const progressBuffer = 101

type SaveElectionRequest struct {
	Path     string          `json:"path" binding:"required"`
	Election models.Election `json:"election"`
}

type SaveElectionResponse struct {
	Path string `json:"path"`
}

type ErrorResponse struct {
	Kind  string `json:"kind,omitempty"`
	Error string `json:"error"`
}

func (s *Server) registerRoutes(r gin.IRouter) {
	routes := r.Group("/api")
	{
		routes.GET("/health", s.handleHealth)
		routes.GET("/metrics", s.handleMetrics)
		routes.POST("/elections", s.handleCreateElection)
		routes.POST("/elections/save", s.handleSaveElection)
	}

	if s.gatherer != nil {
		r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.gatherer, promhttp.HandlerOpts{})))
	}
}

func (s *Server) handleHealth(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"uptime":    time.Since(s.started).Round(time.Second).String(),
		"timestamp": time.Now(),
	})
}

func (s *Server) handleMetrics(c *gin.Context) {
	c.JSON(http.StatusOK, s.metrics.GetMetrics())
}

// handleCreateElection runs a bootstrap and streams it back as server-sent
// events: zero or more "progress" events followed by exactly one "election"
// or "error" event.
func (s *Server) handleCreateElection(c *gin.Context) {
	var tmpl models.ElectionTemplate
	if err := c.ShouldBindJSON(&tmpl); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Kind: service.KindConfig.String(), Error: err.Error()})
		return
	}

	progressCh := make(chan uint32, progressBuffer)
	resultCh := s.queue.Submit(c.Request.Context(), tmpl, service.ChannelSink(progressCh))

	c.Header("Cache-Control", "no-cache")
	c.Header("X-Accel-Buffering", "no")
	c.Stream(func(w io.Writer) bool {
		select {
		case p := <-progressCh:
			c.SSEvent("progress", p)
			return true
		case res := <-resultCh:
			// Progress is always sent before the result, so anything left is
			// already buffered.
			for drained := false; !drained; {
				select {
				case p := <-progressCh:
					c.SSEvent("progress", p)
				default:
					drained = true
				}
			}
			if res.Err != nil {
				c.SSEvent("error", errorResponse(res.Err))
				return false
			}
			c.SSEvent("election", res.Data)
			return false
		}
	})
}

func (s *Server) handleSaveElection(c *gin.Context) {
	var req SaveElectionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: err.Error()})
		return
	}
	if !req.Election.Finalized() {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "election has no roots"})
		return
	}

	name := filepath.Base(strings.TrimSpace(req.Path))
	if name == "." || name == ".." || name == string(filepath.Separator) {
		c.JSON(http.StatusBadRequest, ErrorResponse{Error: "invalid file name"})
		return
	}

	if err := os.MkdirAll(s.exportDir, 0755); err != nil {
		c.JSON(http.StatusInternalServerError, ErrorResponse{Kind: service.KindPersistence.String(), Error: err.Error()})
		return
	}

	path := filepath.Join(s.exportDir, name)
	if err := storage.SaveElection(path, &req.Election); err != nil {
		log.WithError(err).WithField("path", path).Error("Failed to export election")
		c.JSON(http.StatusInternalServerError, ErrorResponse{Kind: service.KindPersistence.String(), Error: err.Error()})
		return
	}

	log.WithFields(log.Fields{"election": req.Election.ID, "path": path}).Info("Exported election")
	c.JSON(http.StatusOK, SaveElectionResponse{Path: path})
}

func errorResponse(err error) ErrorResponse {
	var se *service.Error
	if errors.As(err, &se) {
		return ErrorResponse{Kind: se.Kind.String(), Error: err.Error()}
	}
	return ErrorResponse{Kind: "unavailable", Error: err.Error()}
}
