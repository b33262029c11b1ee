package handlers

import (
	"errors"
	"fmt"
	"net/http"

	"github.com/gin-gonic/gin"
	"golang.org/x/exp/slog"

	"walk-router/internal/models"
	"walk-router/internal/routing"
)

// StageRequest describes one stage. Either RegionIDs or UserPosition is set.
type StageRequest struct {
	RegionIDs    []string            `json:"region_ids"`
	Mutable      *bool               `json:"mutable"`
	Seen         bool                `json:"seen"`
	UserPosition *models.Coordinates `json:"user_position"`
}

// PlanRequest is the body of POST /api/v1/plan
type PlanRequest struct {
	Stages []StageRequest `json:"stages"`
}

// DistanceRequest is the body of POST /api/v1/distance
type DistanceRequest struct {
	A StageRequest `json:"a"`
	B StageRequest `json:"b"`
}

// DistanceResponse is null and unreachable when no path connects the stages
type DistanceResponse struct {
	DistanceMeters *float64 `json:"distance_meters"`
	Reachable      bool     `json:"reachable"`
}

// RegionListResponse represents the response for listing regions
type RegionListResponse struct {
	Regions []models.Region `json:"regions"`
	Total   int             `json:"total"`
}

func (h *Handler) region(id string) (models.Region, bool) {
	for _, r := range h.Regions {
		if r.ID == id {
			return r, true
		}
	}
	return models.Region{}, false
}

func (h *Handler) toStage(req StageRequest) (models.Stage, error) {
	if req.UserPosition != nil {
		if len(req.RegionIDs) > 0 {
			return models.Stage{}, errors.New("a stage has either region_ids or user_position")
		}
		return models.NewUserPositionStage(*req.UserPosition), nil
	}
	if len(req.RegionIDs) == 0 {
		return models.Stage{}, errors.New("a stage needs region_ids or user_position")
	}

	regions := make([]models.Region, 0, len(req.RegionIDs))
	for _, id := range req.RegionIDs {
		r, ok := h.region(id)
		if !ok {
			return models.Stage{}, fmt.Errorf("unknown region %q", id)
		}
		regions = append(regions, r)
	}

	mutable := true
	if req.Mutable != nil {
		mutable = *req.Mutable
	}
	return models.NewRegionStage(regions, mutable, req.Seen), nil
}

// HandleListRegions handles GET /api/v1/regions
func (h *Handler) HandleListRegions(c *gin.Context) {
	regions := h.Regions
	if regions == nil {
		regions = []models.Region{}
	}
	c.JSON(http.StatusOK, RegionListResponse{Regions: regions, Total: len(regions)})
}

// HandlePlan handles POST /api/v1/plan
func (h *Handler) HandlePlan(c *gin.Context) {
	var req PlanRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body")
		return
	}

	stages := make([]models.Stage, len(req.Stages))
	for i, s := range req.Stages {
		stage, err := h.toStage(s)
		if err != nil {
			h.handleValidationError(c, fmt.Sprintf("stage %d: %v", i, err))
			return
		}
		stages[i] = stage
	}
	if !h.requireGraph(c) {
		return
	}

	route, err := h.Planner.FindShortPathAndStages(c.Request.Context(), stages)
	if err != nil {
		h.handleRoutingError(c, err)
		return
	}

	slog.Debug("[HTTP] route planned", "stages", len(stages), "distance_m", route.TotalDistanceMeters)
	c.JSON(http.StatusOK, route)
}

// HandleDistance handles POST /api/v1/distance
func (h *Handler) HandleDistance(c *gin.Context) {
	var req DistanceRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		h.handleValidationError(c, "Invalid request body")
		return
	}
	a, err := h.toStage(req.A)
	if err != nil {
		h.handleValidationError(c, fmt.Sprintf("a: %v", err))
		return
	}
	b, err := h.toStage(req.B)
	if err != nil {
		h.handleValidationError(c, fmt.Sprintf("b: %v", err))
		return
	}
	if !h.requireGraph(c) {
		return
	}

	d, err := h.Planner.GetDistance(c.Request.Context(), a, b)
	if err != nil {
		h.handleRoutingError(c, err)
		return
	}

	distance := finite(d)
	c.JSON(http.StatusOK, DistanceResponse{DistanceMeters: distance, Reachable: distance != nil})
}

// handleRoutingError maps optimizer errors to 400 or 422
func (h *Handler) handleRoutingError(c *gin.Context, err error) {
	var rerr *routing.ErrRoutingFailed
	switch {
	case errors.Is(err, routing.ErrNoStages):
		h.handleValidationError(c, "At least one stage is required")
	case errors.As(err, &rerr):
		h.writeError(c, http.StatusUnprocessableEntity, "ROUTING_FAILED", rerr.Reason, map[string]interface{}{
			"variants_evaluated": rerr.Variants,
		})
	default:
		h.handleInternalError(c, err)
	}
}
