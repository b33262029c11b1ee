package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"
	"golang.org/x/exp/slog"

	"walk-router/internal/models"
)

// VisitsRequest is the body of POST /api/v1/visits: one or more traces of
// recorded positions in walking order
type VisitsRequest struct {
	Traces [][]models.Coordinates `json:"traces"`
}

// VisitsResponse lists visited edges
type VisitsResponse struct {
	Edges []models.VisitedEdge `json:"edges"`
	Total int                  `json:"total"`
	// Added counts the edges touched by the submitted traces
	Added int `json:"added,omitempty"`
}

func visitsResponse(edges []models.VisitedEdge, added int) VisitsResponse {
	if edges == nil {
		edges = []models.VisitedEdge{}
	}
	return VisitsResponse{Edges: edges, Total: len(edges), Added: added}
}

// HandleListVisits handles GET /api/v1/visits
func (h *Handler) HandleListVisits(c *gin.Context) {
	edges, err := h.DB.VisitedEdges().List(c.Request.Context())
	if err != nil {
		h.handleInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, visitsResponse(edges, 0))
}

// HandleRecordVisits handles POST /api/v1/visits. The traces are snapped,
// merged into the stored edges and saved.
func (h *Handler) HandleRecordVisits(c *gin.Context) {
	var req VisitsRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body")
		return
	}
	if len(req.Traces) == 0 {
		h.handleValidationError(c, "At least one trace is required")
		return
	}
	if !h.requireGraph(c) {
		return
	}

	traces := make([][]orb.Point, len(req.Traces))
	for i, trace := range req.Traces {
		traces[i] = make([]orb.Point, len(trace))
		for j, p := range trace {
			traces[i][j] = p.Point()
		}
	}

	ctx := c.Request.Context()
	added, err := h.Visits.SnapToEdges(ctx, traces)
	if err != nil {
		h.handleInternalError(c, err)
		return
	}

	repo := h.DB.VisitedEdges()
	existing, err := repo.List(ctx)
	if err != nil {
		h.handleInternalError(c, err)
		return
	}
	merged := h.Visits.Merge(existing, added)
	if err := repo.Save(ctx, merged); err != nil {
		h.handleInternalError(c, err)
		return
	}

	slog.Info("[VISITS] traces recorded", "traces", len(traces), "added", len(added), "total", len(merged))
	c.JSON(http.StatusOK, visitsResponse(merged, len(added)))
}

// HandleClearVisits handles DELETE /api/v1/visits
func (h *Handler) HandleClearVisits(c *gin.Context) {
	if err := h.DB.VisitedEdges().Clear(c.Request.Context()); err != nil {
		h.handleInternalError(c, err)
		return
	}
	c.Status(http.StatusNoContent)
}
