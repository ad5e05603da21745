// Package ui exposes the experiment engine over HTTP: define and run an
// experiment, fetch its records, and view a rendered run report.
package ui

import (
	"bytes"
	"net/http"
	"strconv"

	"promptlab/app"
	"promptlab/domain/core"
	"promptlab/internal"
	"promptlab/internal/designfile"
	apperrors "promptlab/internal/errors"
	"promptlab/ports"

	"github.com/gin-gonic/gin"
)

// Server represents the web server for the experiment API
type Server struct {
	router      *gin.Engine
	experiments *app.ExperimentService
	records     ports.RecordRepository
	log         *internal.Logger
}

// NewServer creates a new web server instance
func NewServer(experiments *app.ExperimentService, records ports.RecordRepository, logger *internal.Logger) *Server {
	if logger == nil {
		logger = internal.DefaultLogger
	}
	s := &Server{
		router:      gin.Default(),
		experiments: experiments,
		records:     records,
		log:         logger,
	}
	s.registerRoutes()
	return s
}

func (s *Server) registerRoutes() {
	api := s.router.Group("/api")
	api.POST("/experiments", s.handleRunExperiment)
	api.GET("/experiments", s.handleListRuns)
	api.GET("/experiments/:id", s.handleGetRun)
	api.GET("/experiments/:id/records", s.handleGetRecords)
	api.GET("/experiments/:id/report", s.handleGetReport)
	s.router.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
}

// Run starts the HTTP server
func (s *Server) Run(addr string) error {
	s.log.Info("[Server] listening on %s", addr)
	return s.router.Run(addr)
}

// Handler exposes the router for tests.
func (s *Server) Handler() http.Handler {
	return s.router
}

// handleRunExperiment defines a design from the request body and executes it
// synchronously, persisting the run.
func (s *Server) handleRunExperiment(c *gin.Context) {
	def, err := designfile.Parse(c.Request.Body)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	d, opts, err := def.Build()
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error(), "code": apperrors.CodeValidationError})
		return
	}
	opts.Persist = true

	result, err := s.experiments.Run(c.Request.Context(), d, opts)
	if err != nil {
		status := http.StatusInternalServerError
		if core.IsConfigurationError(err) {
			status = http.StatusBadRequest
		}
		c.JSON(status, gin.H{"error": err.Error()})
		return
	}

	c.JSON(http.StatusCreated, gin.H{
		"run_id":      result.RunID,
		"policy":      result.Policy,
		"fingerprint": result.Fingerprint,
		"seed":        result.Seed,
		"records":     len(result.Records),
		"failures":    result.Failures,
		"runtime_ms":  result.RuntimeMs,
	})
}

func (s *Server) handleListRuns(c *gin.Context) {
	limit, _ := strconv.Atoi(c.DefaultQuery("limit", "50"))
	offset, _ := strconv.Atoi(c.DefaultQuery("offset", "0"))
	runs, err := s.records.ListRuns(c.Request.Context(), limit, offset)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"runs": runs})
}

func (s *Server) handleGetRun(c *gin.Context) {
	meta, ok := s.lookupRun(c)
	if !ok {
		return
	}
	c.JSON(http.StatusOK, meta)
}

func (s *Server) handleGetRecords(c *gin.Context) {
	meta, ok := s.lookupRun(c)
	if !ok {
		return
	}
	records, err := s.records.GetRecords(c.Request.Context(), meta.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	c.JSON(http.StatusOK, gin.H{"columns": meta.Columns, "records": records})
}

func (s *Server) handleGetReport(c *gin.Context) {
	meta, ok := s.lookupRun(c)
	if !ok {
		return
	}
	records, err := s.records.GetRecords(c.Request.Context(), meta.ID)
	if err != nil {
		c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		return
	}
	summary := app.Summarize(meta.Columns, records)
	md := BuildReportMarkdown(*meta, summary)

	if c.Query("format") == "markdown" {
		c.Data(http.StatusOK, "text/markdown; charset=utf-8", []byte(md))
		return
	}
	var page bytes.Buffer
	page.WriteString("<!DOCTYPE html><html><head><title>Run report</title></head><body>")
	page.Write(RenderMarkdown(md))
	page.WriteString("</body></html>")
	c.Data(http.StatusOK, "text/html; charset=utf-8", page.Bytes())
}

func (s *Server) lookupRun(c *gin.Context) (*ports.RunMeta, bool) {
	runID, err := core.ParseRunID(c.Param("id"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return nil, false
	}
	meta, err := s.records.GetRun(c.Request.Context(), runID)
	if err != nil {
		if core.IsNotFoundError(err) {
			c.JSON(http.StatusNotFound, gin.H{"error": err.Error()})
		} else {
			c.JSON(http.StatusInternalServerError, gin.H{"error": err.Error()})
		}
		return nil, false
	}
	return meta, true
}
