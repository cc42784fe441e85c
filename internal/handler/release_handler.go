package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/service/release"
)

type ReleaseHandler struct {
	service *release.Service
	logger  *zap.Logger
}

func NewReleaseHandler(service *release.Service, logger *zap.Logger) *ReleaseHandler {
	return &ReleaseHandler{service: service, logger: logger}
}

type createReleaseRequest struct {
	Tag         string `json:"tag"`
	Description string `json:"description"`
	ProjectID   int64  `json:"project_id"`
}

// Create handles POST /releases
func (h *ReleaseHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	var req createReleaseRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, release.CreateInput{
		Tag:         req.Tag,
		Description: req.Description,
		ProjectID:   req.ProjectID,
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

type associateRequest struct {
	MilestoneID int64 `json:"milestone_id"`
}

// Associate handles POST /releases/:id/associate-milestone
func (h *ReleaseHandler) Associate(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	releaseID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "invalid release id"))
		return
	}

	var req associateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}
	if req.MilestoneID <= 0 {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "milestone_id must be positive"))
		return
	}

	rel, err := h.service.Associate(c.Request.Context(), actor, releaseID, req.MilestoneID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"release":      rel,
		"milestone_id": req.MilestoneID,
		"status":       "associated",
	})
}

// ListForMilestone handles GET /milestones/:id/releases
func (h *ReleaseHandler) ListForMilestone(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	milestoneID, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "invalid milestone id"))
		return
	}

	releases, err := h.service.ListForMilestone(c.Request.Context(), actor, milestoneID)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, gin.H{
		"releases": releases,
	})
}
