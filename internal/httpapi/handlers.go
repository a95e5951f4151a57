package httpapi

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/genshorts/genshorts/internal/core/model"
)

// generateRequest is the JSON body accepted by POST /api/generate.
type generateRequest struct {
	Topic           string     `json:"topic"`
	DurationSeconds int        `json:"duration_seconds"`
	Tone            model.Tone `json:"tone"`
	DryRun          bool       `json:"dry_run"`
}

// generateHandler validates the request per §6 and enqueues a job. A job is
// only ever accepted onto the FIFO once every field is valid; nothing about
// enqueueing is speculative.
func generateHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		var req generateRequest
		if err := c.ShouldBindJSON(&req); err != nil {
			c.JSON(http.StatusBadRequest, gin.H{"error": "invalid request body"})
			return
		}

		if err := validateGenerateRequest(req); err != "" {
			c.JSON(http.StatusBadRequest, gin.H{"error": err})
			return
		}

		job := deps.Store.Create(req.Topic, req.DurationSeconds, req.Tone, req.DryRun)
		c.JSON(http.StatusAccepted, gin.H{"job_id": job.ID, "status": job.Status})
	}
}

func validateGenerateRequest(req generateRequest) string {
	if req.Topic == "" {
		return "topic must be a non-empty string"
	}
	if req.DurationSeconds < 20 || req.DurationSeconds > 60 {
		return "Duration must be between 20 and 60 seconds"
	}
	if !model.ValidTone(req.Tone) {
		return "tone must be one of informative, dramatic, motivational, neutral"
	}
	return ""
}

func statusHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		job := deps.Store.Get(c.Param("id"))
		if job == nil {
			c.JSON(http.StatusNotFound, gin.H{"error": "job not found"})
			return
		}
		c.JSON(http.StatusOK, job)
	}
}

func jobsHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, deps.Store.List())
	}
}

func markHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := deps.Marks.Mark(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"success": err == nil})
	}
}

func unmarkHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		err := deps.Marks.Unmark(c.Param("id"))
		c.JSON(http.StatusOK, gin.H{"success": err == nil})
	}
}

func isMarkedHandler(deps Deps) gin.HandlerFunc {
	return func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{"isMarked": deps.Marks.IsMarked(c.Param("id"))})
	}
}
