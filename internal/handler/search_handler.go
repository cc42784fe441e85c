package handler

import (
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"

	"milestonesvc/internal/apperr"
	"milestonesvc/internal/model"
	"milestonesvc/internal/service/search"
)

type SearchHandler struct {
	service *search.Service
	logger  *zap.Logger
}

func NewSearchHandler(service *search.Service, logger *zap.Logger) *SearchHandler {
	return &SearchHandler{service: service, logger: logger}
}

// Search handles GET /milestones/search
func (h *SearchHandler) Search(c *gin.Context) {
	actor, ok := actorFrom(c)
	if !ok {
		respondNoActor(c)
		return
	}

	q, err := parseSearchQuery(c)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	res, err := h.service.Search(c.Request.Context(), actor, q)
	if err != nil {
		respondError(c, h.logger, err)
		return
	}

	c.JSON(http.StatusOK, res)
}

func parseSearchQuery(c *gin.Context) (model.SearchQuery, error) {
	q := model.SearchQuery{
		Text:     c.Query("q"),
		State:    model.MilestoneState(c.Query("state")),
		Scope:    model.SearchScopeKind(c.Query("scope")),
		SortBy:   c.Query("sort"),
		SortDesc: c.Query("order") == "desc",
	}

	if order := c.Query("order"); order != "" && order != "asc" && order != "desc" {
		return q, apperr.Newf(apperr.CodeInvalidSearchInput, "order must be asc or desc, got %q", order)
	}

	var err error
	if q.From, err = parseDateParam(c, "from"); err != nil {
		return q, err
	}
	if q.To, err = parseDateParam(c, "to"); err != nil {
		return q, err
	}

	if raw := c.Query("scope_id"); raw != "" {
		id, err := strconv.ParseInt(raw, 10, 64)
		if err != nil {
			return q, apperr.New(apperr.CodeInvalidSearchInput, "scope_id must be an integer")
		}
		q.ScopeID = id
	}
	if raw := c.Query("page"); raw != "" {
		page, err := strconv.Atoi(raw)
		if err != nil {
			return q, apperr.New(apperr.CodeInvalidSearchInput, "page must be an integer")
		}
		q.Page = page
	}
	if raw := c.Query("size"); raw != "" {
		size, err := strconv.Atoi(raw)
		if err != nil {
			return q, apperr.New(apperr.CodeInvalidSearchInput, "size must be an integer")
		}
		q.Size = size
	}

	return q, nil
}

func parseDateParam(c *gin.Context, name string) (time.Time, error) {
	raw := c.Query(name)
	if raw == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(dateLayout, raw)
	if err != nil {
		return time.Time{}, apperr.Newf(apperr.CodeInvalidSearchInput, "%s must be YYYY-MM-DD", name)
	}
	return t, nil
}
