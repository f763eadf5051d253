// Package api provides the REST API server for octatools
package api

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"net/http"
	"strconv"
	"sync"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"
	swaggerFiles "github.com/swaggo/files"
	ginSwagger "github.com/swaggo/gin-swagger"

	"github.com/james-see/octatools/pkg/history"
	"github.com/james-see/octatools/pkg/octatrack"
	"github.com/james-see/octatools/pkg/transplant"
)

// @title Octatools API
// @version 1.0
// @description API for inspecting Octatrack projects and copying banks between them
// @host localhost:8080
// @BasePath /api/v1

// Server serves the REST API
type Server struct {
	transplanter *transplant.Transplanter
	history      *history.Store
	metrics      *metrics

	// bank copies write project files, one at a time
	mu sync.Mutex
}

// NewServer creates a server. store may be nil, which disables the history routes.
func NewServer(opts transplant.Options, store *history.Store) *Server {
	if store != nil {
		opts.Journal = store
	}
	return &Server{
		transplanter: transplant.New(opts),
		history:      store,
		metrics:      newMetrics(),
	}
}

// Router builds the gin engine with every route registered
func (s *Server) Router() *gin.Engine {
	r := gin.New()
	r.Use(gin.Logger(), gin.Recovery())

	// CORS middleware
	r.Use(corsMiddleware())
	r.Use(s.metrics.middleware())

	// Health check
	r.GET("/health", healthCheck)
	r.GET("/metrics", gin.WrapH(promhttp.HandlerFor(s.metrics.registry, promhttp.HandlerOpts{})))

	// API v1 routes
	v1 := r.Group("/api/v1")
	{
		v1.GET("/health", healthCheck)
		v1.GET("/projects/slots", s.handleProjectSlots)
		v1.GET("/banks/usage", s.handleBankUsage)
		v1.POST("/banks/plan", s.handlePlan)
		v1.POST("/banks/copy", s.handleCopy)
		v1.POST("/inspect", handleInspect)
		v1.GET("/history", s.handleHistory)
		v1.GET("/history/:id", s.handleHistoryEntry)
	}

	// Swagger docs
	r.GET("/swagger/*any", ginSwagger.WrapHandler(swaggerFiles.Handler))

	return r
}

// StartServer starts the API server on the specified port
func StartServer(port int, opts transplant.Options, store *history.Store) error {
	return NewServer(opts, store).Router().Run(fmt.Sprintf(":%d", port))
}

func corsMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		c.Header("Access-Control-Allow-Origin", "*")
		c.Header("Access-Control-Allow-Methods", "GET, POST, OPTIONS")
		c.Header("Access-Control-Allow-Headers", "Content-Type, Authorization")

		if c.Request.Method == "OPTIONS" {
			c.AbortWithStatus(http.StatusNoContent)
			return
		}

		c.Next()
	}
}

// statusFor maps planning and copy errors onto HTTP status codes
func statusFor(err error) int {
	switch {
	case errors.Is(err, transplant.ErrInvalidIndex):
		return http.StatusBadRequest
	case errors.Is(err, transplant.ErrDestinationModified):
		return http.StatusConflict
	case errors.Is(err, transplant.ErrInsufficientSlots),
		errors.Is(err, transplant.ErrMissingSourceAudio),
		errors.Is(err, transplant.ErrVersionMismatch),
		errors.Is(err, octatrack.ErrFormat),
		errors.Is(err, octatrack.ErrChecksum):
		return http.StatusUnprocessableEntity
	case errors.Is(err, fs.ErrNotExist), errors.Is(err, history.ErrNotFound):
		return http.StatusNotFound
	default:
		return http.StatusInternalServerError
	}
}

func abortWithError(c *gin.Context, err error) {
	c.JSON(statusFor(err), gin.H{"error": err.Error()})
}

// healthCheck godoc
// @Summary Health check endpoint
// @Description Returns the health status of the API
// @Tags health
// @Produce json
// @Success 200 {object} map[string]string
// @Router /health [get]
func healthCheck(c *gin.Context) {
	c.JSON(http.StatusOK, gin.H{
		"status":  "healthy",
		"service": "octatools",
	})
}

// handleProjectSlots godoc
// @Summary List project sample slots
// @Description Lists every sample slot of a project with the banks that reference it
// @Tags projects
// @Produce json
// @Param project query string true "Project directory"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/projects/slots [get]
func (s *Server) handleProjectSlots(c *gin.Context) {
	dir := c.Query("project")
	if dir == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project is required"})
		return
	}
	usage, err := transplant.ListProjectUsage(dir)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": dir, "slots": usage})
}

// handleBankUsage godoc
// @Summary List slots used by a bank
// @Description Lists the sample slots a bank references, including empty ones
// @Tags banks
// @Produce json
// @Param project query string true "Project directory"
// @Param bank query int true "Bank number (1-16)"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Router /api/v1/banks/usage [get]
func (s *Server) handleBankUsage(c *gin.Context) {
	dir := c.Query("project")
	bank, err := strconv.Atoi(c.Query("bank"))
	if dir == "" || err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "project and a numeric bank are required"})
		return
	}
	usage, err := transplant.ListBankUsage(dir, bank)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"project": dir, "bank": bank, "slots": usage})
}

func bindRequest(c *gin.Context) (transplant.Request, bool) {
	var req transplant.Request
	if err := c.ShouldBindJSON(&req); err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request: " + err.Error()})
		return req, false
	}
	if req.Src.Project == "" || req.Dest.Project == "" {
		c.JSON(http.StatusBadRequest, gin.H{"error": "src and dest project are required"})
		return req, false
	}
	return req, true
}

// handlePlan godoc
// @Summary Plan a bank copy
// @Description Computes the slot changes and file copies of a bank copy without writing anything
// @Tags banks
// @Accept json
// @Produce json
// @Param request body transplant.Request true "Source and destination banks"
// @Success 200 {object} transplant.Plan
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/banks/plan [post]
func (s *Server) handlePlan(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	plan, err := s.transplanter.Plan(c.Request.Context(), req)
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, plan)
}

// handleCopy godoc
// @Summary Copy a bank
// @Description Copies a bank into another project, moving its sample slots and files along
// @Tags banks
// @Accept json
// @Produce json
// @Param request body transplant.Request true "Source and destination banks"
// @Success 200 {object} transplant.Report
// @Failure 400 {object} map[string]string
// @Failure 409 {object} map[string]interface{}
// @Failure 422 {object} map[string]interface{}
// @Router /api/v1/banks/copy [post]
func (s *Server) handleCopy(c *gin.Context) {
	req, ok := bindRequest(c)
	if !ok {
		return
	}
	s.mu.Lock()
	rep, err := s.transplanter.CopyBank(c.Request.Context(), req)
	s.mu.Unlock()
	s.metrics.observeCopy(rep)
	if err != nil {
		c.JSON(statusFor(err), gin.H{"error": err.Error(), "report": rep})
		return
	}
	c.JSON(http.StatusOK, rep)
}

// handleInspect godoc
// @Summary Inspect a binary file
// @Description Upload a project, bank, arrangement or .ot file and receive it as JSON
// @Tags inspect
// @Accept multipart/form-data
// @Produce json
// @Param file formData file true "File to inspect"
// @Param kind query string false "File type, detected from the file name when omitted"
// @Success 200 {object} map[string]interface{}
// @Failure 400 {object} map[string]string
// @Failure 422 {object} map[string]string
// @Router /api/v1/inspect [post]
func handleInspect(c *gin.Context) {
	file, header, err := c.Request.FormFile("file")
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "No file uploaded"})
		return
	}
	defer func() { _ = file.Close() }()

	data, err := io.ReadAll(file)
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "Failed to read file"})
		return
	}

	kind := octatrack.DetectKind(header.Filename)
	if k := c.Query("kind"); k != "" {
		if kind, err = octatrack.ParseKind(k); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": err.Error()})
			return
		}
	}
	if kind == octatrack.KindUnknown {
		c.JSON(http.StatusBadRequest, gin.H{"error": "cannot detect file type of " + header.Filename})
		return
	}

	v, err := octatrack.DecodeKind(kind, data)
	if err != nil {
		abortWithError(c, err)
		return
	}
	// full bank dumps are several megabytes of parameter data
	if b, ok := v.(*octatrack.Bank); ok {
		v = b.Summarize()
	}
	c.JSON(http.StatusOK, gin.H{"kind": kind, "file": header.Filename, "content": v})
}

// handleHistory godoc
// @Summary List bank copies
// @Description Lists journaled bank copies, newest first
// @Tags history
// @Produce json
// @Param limit query int false "Maximum number of entries (default 50)"
// @Success 200 {object} map[string]interface{}
// @Failure 404 {object} map[string]string
// @Router /api/v1/history [get]
func (s *Server) handleHistory(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	limit, err := strconv.Atoi(c.DefaultQuery("limit", "50"))
	if err != nil {
		c.JSON(http.StatusBadRequest, gin.H{"error": "limit must be a number"})
		return
	}
	entries, err := s.history.List(c.Request.Context(), limit)
	if err != nil {
		abortWithError(c, err)
		return
	}
	if entries == nil {
		entries = []history.Entry{}
	}
	c.JSON(http.StatusOK, gin.H{"entries": entries})
}

// handleHistoryEntry godoc
// @Summary Get a bank copy
// @Description Returns one journaled bank copy with its full report
// @Tags history
// @Produce json
// @Param id path string true "Bank copy id"
// @Success 200 {object} history.Entry
// @Failure 404 {object} map[string]string
// @Router /api/v1/history/{id} [get]
func (s *Server) handleHistoryEntry(c *gin.Context) {
	if s.history == nil {
		c.JSON(http.StatusNotFound, gin.H{"error": "history is disabled"})
		return
	}
	e, err := s.history.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		abortWithError(c, err)
		return
	}
	c.JSON(http.StatusOK, e)
}
