package httpserver

import (
	"net/http"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"milestonesvc/internal/handler"
)

type Router struct {
	Engine *gin.Engine
}

func NewRouter(
	milestoneHandler *handler.MilestoneHandler,
	releaseHandler *handler.ReleaseHandler,
	progressHandler *handler.ProgressHandler,
	searchHandler *handler.SearchHandler,
	jwtSecret string,
	requestTimeout time.Duration,
) *Router {
	r := gin.Default()

	r.Use(MetricsMiddleware())
	r.Use(TimeoutMiddleware(requestTimeout))

	// Public
	r.GET("/healthz", func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"status": "ok"})
	})
	r.GET("/metrics", gin.WrapH(promhttp.Handler()))

	// Protected
	auth := r.Group("/")
	auth.Use(AuthMiddleware(jwtSecret))
	{
		auth.POST("/milestones", milestoneHandler.Create)
		// register the static route before the :id routes
		auth.GET("/milestones/search", searchHandler.Search)
		auth.GET("/milestones/:id", milestoneHandler.Get)
		auth.POST("/milestones/:id/close", milestoneHandler.Close)
		auth.GET("/milestones/:id/progress", progressHandler.Get)
		auth.GET("/milestones/:id/releases", releaseHandler.ListForMilestone)

		auth.POST("/releases", releaseHandler.Create)
		auth.POST("/releases/:id/associate-milestone", releaseHandler.Associate)
	}

	return &Router{Engine: r}
}

func (r *Router) Run(port string) error {
	return r.Engine.Run(port)
}
