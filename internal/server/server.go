// Package server exposes the analysis pipeline over HTTP.
package server

import (
	"context"
	"errors"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	log "github.com/sirupsen/logrus"

	"github.com/KaramelBytes/tabloom-cli/internal/pipeline"
)

// Handler serves the HTTP endpoints. Every request builds its own pipeline.
type Handler struct {
	opts pipeline.Options
	now  func() time.Time
}

// NewHandler returns a handler that runs pipelines with opts.
func NewHandler(opts pipeline.Options) *Handler {
	return &Handler{opts: opts, now: time.Now}
}

// NewRouter builds the gin engine with middleware and routes.
func NewRouter(h *Handler) *gin.Engine {
	r := gin.New()
	r.Use(RequestID(), Logging(), gin.Recovery())
	h.RegisterRoutes(r)
	return r
}

// RegisterRoutes mounts the endpoints on r.
func (h *Handler) RegisterRoutes(r gin.IRouter) {
	r.GET("/health", h.Health)
	r.POST("/analyze", h.Analyze)
}

// Health reports liveness.
func (h *Handler) Health(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":    "healthy",
		"timestamp": h.now().UTC().Format(time.RFC3339),
	})
}

type analyzeRequest struct {
	DataPath string `json:"data_path"`
}

// Analyze runs load, clean and visualize for data_path, taken from the
// query string or a JSON body.
func (h *Handler) Analyze(c *gin.Context) {
	path := c.Query("data_path")
	if path == "" && c.Request.ContentLength != 0 {
		var req analyzeRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body: " + err.Error()})
			return
		}
		path = req.DataPath
	}
	path = strings.TrimSpace(path)
	if path == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "data_path is required"})
		return
	}

	rep, err := pipeline.New(h.opts).Analyze(c.Request.Context(), path)
	if err != nil {
		status := statusFor(err)
		log.WithFields(log.Fields{
			"request_id": c.GetString("request_id"),
			"stage":      pipeline.StageOf(err),
			"status":     status,
		}).WithError(err).Warn("analysis failed")
		c.JSON(status, gin.H{"error": err.Error(), "stage": pipeline.StageOf(err)})
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":  "Analysis completed successfully",
		"run_id":   rep.RunID,
		"rows":     rep.RowsKept,
		"dropped":  rep.Dropped,
		"artifact": rep.Artifact,
		"warnings": rep.Warnings,
	})
}

// Serve listens on addr until ctx is cancelled, then shuts down gracefully.
func Serve(ctx context.Context, addr string, handler http.Handler) error {
	srv := &http.Server{
		Addr:              addr,
		Handler:           handler,
		ReadHeaderTimeout: 10 * time.Second,
	}
	errCh := make(chan error, 1)
	go func() {
		log.Infof("starting server on %s", addr)
		if err := srv.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			errCh <- err
		}
		close(errCh)
	}()

	select {
	case err, ok := <-errCh:
		if ok {
			return err
		}
		return nil
	case <-ctx.Done():
	}
	log.Info("shutting down server...")
	sctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(sctx); err != nil {
		return err
	}
	log.Info("server stopped")
	return nil
}
