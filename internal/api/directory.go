package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

type committeeResponse struct {
	ID          int64   `json:"id"`
	Name        string  `json:"name"`
	Role        string  `json:"role"`
	Designation string  `json:"designation"`
	ImageURL    *string `json:"image_url"`
}

func (s *Server) committee(c *gin.Context) {
	members, err := s.Directory.Committee(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]committeeResponse, 0, len(members))
	for _, m := range members {
		out = append(out, committeeResponse(m))
	}
	c.JSON(http.StatusOK, out)
}

type famousAlumnusResponse struct {
	ID          int64   `json:"id"`
	Name        *string `json:"name"`
	Award       *string `json:"award"`
	Year        *string `json:"year"`
	Category    *string `json:"category"`
	Description *string `json:"description"`
	Batch       *string `json:"batch"`
}

func (s *Server) famousAlumni(c *gin.Context) {
	alumni, err := s.Directory.FamousAlumni(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]famousAlumnusResponse, 0, len(alumni))
	for _, a := range alumni {
		out = append(out, famousAlumnusResponse(a))
	}
	c.JSON(http.StatusOK, out)
}
