package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"github.com/gcbaptista/go-pinyin-engine/internal/engine"
	"github.com/gcbaptista/go-pinyin-engine/model"
	"github.com/gcbaptista/go-pinyin-engine/services"
)

// GetJobHandler handles requests to get job status by ID
func (api *API) GetJobHandler(c *gin.Context) {
	jobID := c.Param("jobId")

	jobManager, ok := api.engine.(services.JobManager)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job management not supported by this engine"})
		return
	}

	job, err := jobManager.GetJob(jobID)
	if err != nil {
		SendJobNotFoundError(c, jobID)
		return
	}
	c.JSON(http.StatusOK, job)
}

// ListJobsHandler handles requests to list jobs for a dictionary
func (api *API) ListJobsHandler(c *gin.Context) {
	name := c.Param("name")
	statusParam := c.Query("status")

	var statusFilter *model.JobStatus
	if statusParam != "" {
		status := model.JobStatus(statusParam)
		statusFilter = &status
	}

	jobManager, ok := api.engine.(services.JobManager)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job management not supported by this engine"})
		return
	}

	jobs := jobManager.ListJobs(name, statusFilter)
	c.JSON(http.StatusOK, gin.H{
		"jobs":            jobs,
		"dictionary_name": name,
		"total":           len(jobs),
	})
}

// GetJobMetricsHandler handles requests to get job performance metrics
func (api *API) GetJobMetricsHandler(c *gin.Context) {
	eng, ok := api.engine.(*engine.Engine)
	if !ok {
		c.JSON(http.StatusNotImplemented, gin.H{"error": "Job metrics not supported by this engine"})
		return
	}

	metrics := eng.GetJobMetrics()
	c.JSON(http.StatusOK, gin.H{
		"metrics":          metrics,
		"success_rate":     metrics.SuccessRate,
		"current_workload": eng.GetCurrentWorkload(),
	})
}
