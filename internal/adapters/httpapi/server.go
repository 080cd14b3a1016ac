package httpapi

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/mikey/job-mail-tracker/internal/adapters/store"
	"github.com/mikey/job-mail-tracker/internal/core"
	"github.com/mikey/job-mail-tracker/internal/scheduler"
	"go.uber.org/zap"
)

const recentWindow = 7 * 24 * time.Hour

// Classifier classifies a message without storing it
type Classifier interface {
	Classify(msg core.RawMessage) core.ClassificationResult
}

// ScanTrigger starts scans on demand
type ScanTrigger interface {
	ScanNow(ctx context.Context, max int) (*core.ScanReport, error)
	LastReport() *core.ScanReport
}

// Server exposes stored classifications over HTTP
type Server struct {
	repo       core.ResultRepository
	classifier Classifier
	scans      ScanTrigger
	logger     *zap.Logger
	engine     *gin.Engine
	httpServer *http.Server
	now        func() time.Time
}

// NewServer creates a new API server. scans may be nil when no message source
// is configured.
func NewServer(repo core.ResultRepository, classifier Classifier, scans ScanTrigger, logger *zap.Logger, listenAddr string) *Server {
	gin.SetMode(gin.ReleaseMode)

	s := &Server{
		repo:       repo,
		classifier: classifier,
		scans:      scans,
		logger:     logger,
		now:        time.Now,
	}

	engine := gin.New()
	engine.Use(gin.Recovery(), s.requestLogger())

	engine.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})

	api := engine.Group("/api")
	api.GET("/emails", s.listEmails)
	api.GET("/emails/:id", s.getEmail)
	api.POST("/emails/:id/read", s.markRead)
	api.GET("/stats", s.stats)
	api.GET("/categories", s.categories)
	api.POST("/classify", s.classify)
	api.POST("/scan", s.scan)
	api.GET("/scan", s.lastScan)

	s.engine = engine
	s.httpServer = &http.Server{
		Addr:              listenAddr,
		Handler:           engine,
		ReadHeaderTimeout: 10 * time.Second,
	}
	return s
}

// Handler returns the HTTP handler
func (s *Server) Handler() http.Handler {
	return s.engine
}

// Start starts serving in the background
func (s *Server) Start() error {
	s.logger.Info("HTTP API starting", zap.String("address", s.httpServer.Addr))

	go func() {
		if err := s.httpServer.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			s.logger.Error("HTTP server error", zap.Error(err))
		}
	}()
	return nil
}

// Stop gracefully shuts the server down
func (s *Server) Stop(ctx context.Context) error {
	return s.httpServer.Shutdown(ctx)
}

func (s *Server) requestLogger() gin.HandlerFunc {
	return func(c *gin.Context) {
		start := time.Now()
		c.Next()
		s.logger.Debug("HTTP request",
			zap.String("method", c.Request.Method),
			zap.String("path", c.FullPath()),
			zap.Int("status", c.Writer.Status()),
			zap.Duration("latency", time.Since(start)))
	}
}

func (s *Server) listEmails(c *gin.Context) {
	q := core.Query{Search: strings.TrimSpace(c.Query("search"))}

	if raw := c.Query("category"); raw != "" && raw != "all" {
		category, err := core.ParseCategory(raw)
		if err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
		q.Category = category
	}

	var err error
	if q.Page, err = intQuery(c, "page"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}
	if q.PerPage, err = intQuery(c, "per_page"); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	page, err := s.repo.List(c.Request.Context(), q.Normalize())
	if err != nil {
		s.fail(c, "Failed to list emails", err)
		return
	}
	c.JSON(http.StatusOK, page)
}

func (s *Server) getEmail(c *gin.Context) {
	record, err := s.repo.Get(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	if err != nil {
		s.fail(c, "Failed to get email", err)
		return
	}
	c.JSON(http.StatusOK, record)
}

func (s *Server) markRead(c *gin.Context) {
	err := s.repo.MarkRead(c.Request.Context(), c.Param("id"))
	if errors.Is(err, store.ErrNotFound) {
		c.JSON(http.StatusNotFound, gin.H{"error": "email not found"})
		return
	}
	if err != nil {
		s.fail(c, "Failed to mark email read", err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"success": true})
}

func (s *Server) stats(c *gin.Context) {
	stats, err := s.repo.Stats(c.Request.Context(), s.now().Add(-recentWindow))
	if err != nil {
		s.fail(c, "Failed to compute stats", err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

func (s *Server) categories(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{"categories": core.Categories()})
}

type classifyRequest struct {
	ID      string `json:"id"`
	Sender  string `json:"sender"`
	Subject string `json:"subject"`
	Body    string `json:"body"`
	Snippet string `json:"snippet"`
}

func (s *Server) classify(c *gin.Context) {
	var req classifyRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
		return
	}

	result := s.classifier.Classify(core.RawMessage{
		ID:      req.ID,
		Sender:  req.Sender,
		Subject: req.Subject,
		Body:    req.Body,
		Snippet: req.Snippet,
	})
	c.JSON(http.StatusOK, result)
}

type scanRequest struct {
	MaxResults int `json:"max_results"`
}

func (s *Server) scan(c *gin.Context) {
	if s.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no message source configured"})
		return
	}

	var req scanRequest
	if c.Request.ContentLength != 0 {
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if req.MaxResults < 0 {
		c.JSON(http.StatusBadRequest, gin.H{"error": "max_results must not be negative"})
		return
	}

	report, err := s.scans.ScanNow(c.Request.Context(), req.MaxResults)
	if errors.Is(err, scheduler.ErrScanInProgress) {
		c.JSON(http.StatusConflict, gin.H{"error": err.Error()})
		return
	}
	if err != nil {
		s.logger.Error("Scan failed", zap.Error(err))
		c.JSON(http.StatusBadGateway, gin.H{"error": err.Error(), "report": report})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) lastScan(c *gin.Context) {
	if s.scans == nil {
		c.JSON(http.StatusServiceUnavailable, gin.H{"error": "no message source configured"})
		return
	}
	report := s.scans.LastReport()
	if report == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "no scan has run yet"})
		return
	}
	c.JSON(http.StatusOK, report)
}

func (s *Server) fail(c *gin.Context, msg string, err error) {
	s.logger.Error(msg, zap.Error(err))
	c.JSON(http.StatusInternalServerError, gin.H{"error": "internal error"})
}

func intQuery(c *gin.Context, key string) (int, error) {
	raw := c.Query(key)
	if raw == "" {
		return 0, nil
	}
	n, err := strconv.Atoi(raw)
	if err != nil {
		return 0, errors.New(key + " must be an integer")
	}
	return n, nil
}
