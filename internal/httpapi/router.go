// Package httpapi exposes the job-generation pipeline over HTTP (§6): a
// small Gin router mounted both under /api and under /api/v1 for
// compatibility, matching the teacher's route-group composition.
package httpapi

import (
	"github.com/gin-contrib/cors"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/contrib/instrumentation/github.com/gin-gonic/gin/otelgin"

	"github.com/genshorts/genshorts/internal/core/services"
)

// Deps bundles the services the handlers need.
type Deps struct {
	Store  *services.JobStore
	Marks  *services.MarkStore
	Assets string // directory to serve at /assets
	Output string // directory to serve at /output
	Cache  string // directory to serve at /cache
}

// NewRouter builds the Gin engine with every route from §6, mounted once
// under /api and again under /api/v1.
func NewRouter(deps Deps) *gin.Engine {
	r := gin.Default()
	r.Use(otelgin.Middleware("genshorts-server"))
	r.Use(cors.Default())

	r.Static("/assets", deps.Assets)
	r.Static("/output", deps.Output)
	r.Static("/cache", deps.Cache)

	mount(r.Group("/api"), deps)
	mount(r.Group("/api/v1"), deps)

	return r
}

func mount(api *gin.RouterGroup, deps Deps) {
	api.POST("/generate", generateHandler(deps))
	api.GET("/status/:id", statusHandler(deps))
	api.GET("/jobs", jobsHandler(deps))
	api.POST("/mark/:id", markHandler(deps))
	api.POST("/unmark/:id", unmarkHandler(deps))
	api.GET("/is-marked/:id", isMarkedHandler(deps))
	api.GET("/stats", statsHandler(deps))
}
