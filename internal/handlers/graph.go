package handlers

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"github.com/paulmach/orb"

	"walk-router/internal/models"
)

// PathRequest is the body of POST /api/v1/path
type PathRequest struct {
	Start                   *models.Coordinates `json:"start"`
	End                     *models.Coordinates `json:"end"`
	TechnicalAllowedAtStart bool                `json:"technical_allowed_at_start"`
	TechnicalAllowedAtEnd   bool                `json:"technical_allowed_at_end"`
}

// PathResponse carries the walking path. DistanceMeters is null when the
// end cannot be reached.
type PathResponse struct {
	Path           []models.Coordinates `json:"path"`
	DistanceMeters *float64             `json:"distance_meters"`
	Found          bool                 `json:"found"`
}

// SnapRequest is the body of POST /api/v1/snap
type SnapRequest struct {
	Point            *models.Coordinates `json:"point"`
	TechnicalAllowed bool                `json:"technical_allowed"`
}

// SnapResponse describes where a point lands on the graph
type SnapResponse struct {
	Point          models.Coordinates `json:"point"`
	OnNode         bool               `json:"on_node"`
	NodeA          int32              `json:"node_a"`
	NodeB          int32              `json:"node_b"`
	DistanceMeters float64            `json:"distance_meters"`
}

// HandleGraphStats handles GET /api/v1/graph/stats
func (h *Handler) HandleGraphStats(c *gin.Context) {
	if !h.requireGraph(c) {
		return
	}
	stats, err := h.Graph.Stats(c.Request.Context())
	if err != nil {
		h.handleInternalError(c, err)
		return
	}
	c.JSON(http.StatusOK, stats)
}

// HandlePath handles POST /api/v1/path
func (h *Handler) HandlePath(c *gin.Context) {
	var req PathRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body")
		return
	}
	if req.End == nil {
		h.handleValidationError(c, "end is required")
		return
	}
	if !h.requireGraph(c) {
		return
	}

	var start *orb.Point
	if req.Start != nil {
		p := req.Start.Point()
		start = &p
	}

	route, err := h.Graph.Route(c.Request.Context(), start, req.End.Point(), req.TechnicalAllowedAtStart, req.TechnicalAllowedAtEnd)
	if err != nil {
		h.handleInternalError(c, err)
		return
	}

	c.JSON(http.StatusOK, PathResponse{
		Path:           models.CoordinatesFromPath(route.Points),
		DistanceMeters: finite(route.DistanceMeters),
		Found:          route.Found,
	})
}

// HandleSnap handles POST /api/v1/snap
func (h *Handler) HandleSnap(c *gin.Context) {
	var req SnapRequest
	if err := c.ShouldBindJSON(&req); err != nil || req.Point == nil {
		h.handleValidationError(c, "point is required")
		return
	}
	if !h.requireGraph(c) {
		return
	}

	snap, ok, err := h.Graph.GetSnappedPointOnEdge(c.Request.Context(), req.Point.Point(), req.TechnicalAllowed)
	if err != nil {
		h.handleInternalError(c, err)
		return
	}
	if !ok {
		h.handleNotFound(c, "No path to snap to")
		return
	}

	c.JSON(http.StatusOK, SnapResponse{
		Point:          models.CoordinatesFromPoint(snap.Point),
		OnNode:         snap.OnNode(),
		NodeA:          int32(snap.A),
		NodeB:          int32(snap.B),
		DistanceMeters: snap.Distance,
	})
}
