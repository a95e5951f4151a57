package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genshorts/genshorts/internal/core/model"
)

// statsHandler reports a count of jobs per status, giving an operator a
// cheap view into queue depth and failure rate without scanning /api/jobs.
func statsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		counts := make(map[model.Status]int)
		jobs := deps.Store.List()
		for _, job := range jobs {
			counts[job.Status]++
		}
		c.JSON(http.StatusOK, gin.H{"total": len(jobs), "by_status": counts})
	}
}
