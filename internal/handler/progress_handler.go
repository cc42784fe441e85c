package handler

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/service/progress"
)

type ProgressHandler struct {
	calculator *progress.Calculator
	logger     *zap.Logger
}

func NewProgressHandler(calculator *progress.Calculator, logger *zap.Logger) *ProgressHandler {
	return &ProgressHandler{calculator: calculator, logger: logger}
}

// Get handles GET /milestones/:id/progress
func (h *ProgressHandler) Get(c *gin.Context) {
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

	snap, err := h.calculator.Compute(c.Request.Context(), actor, id)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, snap)
}
