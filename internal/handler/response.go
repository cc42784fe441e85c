package handler

import (
	"net/http"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
)

// errorResponse is the structured envelope every failed request gets;
// no error is swallowed, nothing internal leaks.
type errorResponse struct {
	Status    int         `json:"status"`
	ErrorCode apperr.Code `json:"errorCode"`
	Message   string      `json:"message"`
}

func respondError(c *gin.Context, logger *zap.Logger, err error) {
	code := apperr.CodeOf(err)
	status := apperr.HTTPStatus(code)

	if status >= http.StatusInternalServerError {
		logger.Error("Request failed", zap.String("path", c.FullPath()), zap.Error(err))
	} else {
		logger.Warn("Request rejected",
			zap.String("path", c.FullPath()),
			zap.String("code", string(code)),
		)
	}

	c.JSON(status, errorResponse{
		Status:    status,
		ErrorCode: code,
		Message:   apperr.MessageOf(err),
	})
}

func actorFrom(c *gin.Context) (model.Actor, bool) {
	v, exists := c.Get("actor")
	if !exists {
		return model.Actor{}, false
	}
	actor, ok := v.(model.Actor)
	return actor, ok
}

func respondNoActor(c *gin.Context) {
	c.JSON(http.StatusUnauthorized, gin.H{"error": "user not authenticated"})
}
