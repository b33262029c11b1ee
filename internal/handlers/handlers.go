package handlers

import (
	"context"
	"math"
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"

	"walk-router/internal/database"
	"walk-router/internal/graph"
	"walk-router/internal/models"
	"walk-router/internal/routegraph"
)

// GraphService answers path and snap queries on the walkable graph
type GraphService interface {
	Ready() error
	WaitReady(ctx context.Context) error
	Stats(ctx context.Context) (graph.Stats, error)
	Route(ctx context.Context, start *orb.Point, end orb.Point, technicalAllowedAtStart, technicalAllowedAtEnd bool) (routegraph.Route, error)
	GetSnappedPointOnEdge(ctx context.Context, p orb.Point, technicalAllowed bool) (graph.SnapResult, bool, error)
}

// Planner orders stages into a walking route
type Planner interface {
	FindShortPathAndStages(ctx context.Context, stages []models.Stage) (*models.PlannedRoute, error)
	GetDistance(ctx context.Context, a, b models.Stage) (float64, error)
}

// VisitTracker reduces position traces to visited edges
type VisitTracker interface {
	SnapToEdges(ctx context.Context, traces [][]orb.Point) ([]models.VisitedEdge, error)
	Merge(existing, added []models.VisitedEdge) []models.VisitedEdge
}

// Handler provides common handler utilities and dependencies
type Handler struct {
	DB      database.DataStore
	Graph   GraphService
	Planner Planner
	Visits  VisitTracker
	Regions []models.Region

	// ReadyTimeout bounds how long a request waits for the graph to be
	// built before answering 503, DefaultReadyTimeout when zero
	ReadyTimeout time.Duration
}

// DefaultReadyTimeout is the default wait for the initial graph build
const DefaultReadyTimeout = 30 * time.Second

// ErrorResponse represents an API error
type ErrorResponse struct {
	Error ErrorDetail `json:"error"`
}

// ErrorDetail contains error information
type ErrorDetail struct {
	Code    string      `json:"code"`
	Message string      `json:"message"`
	Details interface{} `json:"details,omitempty"`
}

// RegisterRoutes mounts the API on the given group, usually /api/v1
func (h *Handler) RegisterRoutes(r gin.IRoutes) {
	r.GET("/health", h.HandleHealthCheck)
	r.GET("/graph/stats", h.HandleGraphStats)
	r.GET("/regions", h.HandleListRegions)
	r.POST("/path", h.HandlePath)
	r.POST("/snap", h.HandleSnap)
	r.POST("/plan", h.HandlePlan)
	r.POST("/distance", h.HandleDistance)
	r.GET("/visits", h.HandleListVisits)
	r.POST("/visits", h.HandleRecordVisits)
	r.DELETE("/visits", h.HandleClearVisits)
}

// writeError writes a JSON error response
func (h *Handler) writeError(c *gin.Context, status int, code, message string, details interface{}) {
	c.AbortWithStatusJSON(status, ErrorResponse{
		Error: ErrorDetail{
			Code:    code,
			Message: message,
			Details: details,
		},
	})
}

// handleValidationError handles 400 errors
func (h *Handler) handleValidationError(c *gin.Context, message string) {
	h.writeError(c, http.StatusBadRequest, "VALIDATION_ERROR", message, nil)
}

// handleNotFound handles 404 errors
func (h *Handler) handleNotFound(c *gin.Context, message string) {
	h.writeError(c, http.StatusNotFound, "NOT_FOUND", message, nil)
}

// handleInternalError handles 500 errors
func (h *Handler) handleInternalError(c *gin.Context, err error) {
	slog.Error("[HTTP] internal error", "path", c.Request.URL.Path, "err", err)
	h.writeError(c, http.StatusInternalServerError, "INTERNAL_ERROR", "An error occurred. Please try again.", nil)
}

// requireGraph holds the request until the graph is built. It answers 503
// when the wait exceeds ReadyTimeout or the client goes away.
func (h *Handler) requireGraph(c *gin.Context) bool {
	if h.Graph.Ready() == nil {
		return true
	}

	timeout := h.ReadyTimeout
	if timeout <= 0 {
		timeout = DefaultReadyTimeout
	}
	ctx, cancel := context.WithTimeout(c.Request.Context(), timeout)
	defer cancel()

	start := time.Now()
	if err := h.Graph.WaitReady(ctx); err != nil {
		slog.Warn("[HTTP] route graph not ready", "path", c.Request.URL.Path, "waited", time.Since(start))
		h.writeError(c, http.StatusServiceUnavailable, "NOT_READY", "Route graph is still loading", nil)
		return false
	}
	return true
}

// finite maps unreachable distances to nil, JSON has no infinity
func finite(d float64) *float64 {
	if math.IsInf(d, 0) || math.IsNaN(d) {
		return nil
	}
	return &d
}

// HandleHealthCheck handles GET /api/v1/health
func (h *Handler) HandleHealthCheck(c *gin.Context) {
	status := "ok"
	dbStatus := "connected"
	graphStatus := "ready"

	if err := h.DB.HealthCheck(c.Request.Context()); err != nil {
		status = "degraded"
		dbStatus = "error"
	}
	if err := h.Graph.Ready(); err != nil {
		graphStatus = "loading"
	}

	c.JSON(http.StatusOK, gin.H{
		"status":   status,
		"version":  "1.0.0",
		"database": dbStatus,
		"graph":    graphStatus,
	})
}
