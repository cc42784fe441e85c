package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/internal/service/milestone"
)

const dateLayout = "2006-01-02"

type MilestoneHandler struct {
	service *milestone.Service
	logger  *zap.Logger
}

func NewMilestoneHandler(service *milestone.Service, logger *zap.Logger) *MilestoneHandler {
	return &MilestoneHandler{service: service, logger: logger}
}

type createMilestoneRequest struct {
	Title       string `json:"title"`
	Description string `json:"description"`
	StartDate   string `json:"start_date"`
	DueDate     string `json:"due_date"`
	Scope       struct {
		Kind string `json:"kind"`
		ID   int64  `json:"id"`
	} `json:"scope"`
}

// Create handles POST /milestones
func (h *MilestoneHandler) Create(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	var req createMilestoneRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		respondError(c, h.logger, apperr.Wrap(apperr.CodeInvalidInput, "invalid request body", err))
		return
	}

	start, err := time.Parse(dateLayout, req.StartDate)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "start_date must be YYYY-MM-DD"))
		return
	}
	due, err := time.Parse(dateLayout, req.DueDate)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "due_date must be YYYY-MM-DD"))
		return
	}

	created, err := h.service.Create(c.Request.Context(), actor, milestone.CreateInput{
		Title:       req.Title,
		Description: req.Description,
		StartDate:   start,
		DueDate:     due,
		Scope:       model.Scope{Kind: model.ScopeKind(req.Scope.Kind), ID: req.Scope.ID},
	})
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusCreated, created)
}

// Close handles POST /milestones/:id/close
func (h *MilestoneHandler) Close(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "invalid milestone id"))
		return
	}

	closed, err := h.service.Close(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, closed)
}

// Get handles GET /milestones/:id
func (h *MilestoneHandler) Get(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	id, err := strconv.ParseInt(c.Param("id"), 10, 64)
	if err != nil {
		respondError(c, h.logger, apperr.New(apperr.CodeInvalidInput, "invalid milestone id"))
		return
	}

	ms, err := h.service.Get(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, ms)
}
