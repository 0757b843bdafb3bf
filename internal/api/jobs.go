package api

import (
	"net/http"

	"github.com/gin-gonic/gin"

	"alumni/internal/membership"
)

type pingRequest struct {
	JobName string `json:"job_name" binding:"required"`
}

func (s *Server) pingJob(c *gin.Context) {
	var req pingRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Jobs.Ping(c.Request.Context(), req.JobName); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Job run recorded", "job_name": req.JobName})
}

type jobStatusResponse struct {
	JobName string  `json:"job_name"`
	LastRun *string `json:"last_run"`
	Healthy bool    `json:"healthy"`
}

func (s *Server) jobStatus(c *gin.Context) {
	report, err := s.Jobs.Report(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]jobStatusResponse, 0, len(report))
	for _, st := range report {
		out = append(out, jobStatusResponse{JobName: st.Name, LastRun: formatDate(st.LastRun, membership.DateLayout), Healthy: st.Healthy})
	}
	c.JSON(http.StatusOK, out)
}
