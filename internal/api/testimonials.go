package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alumni/internal/testimonial"
)

type testimonialResponse struct {
	Name    string `json:"name"`
	Initial string `json:"initial"`
	Batch   string `json:"batch"`
	Message string `json:"message"`
}

func testimonialsResponse(ts []testimonial.Testimonial) []testimonialResponse {
	out := make([]testimonialResponse, 0, len(ts))
	for _, t := range ts {
		out = append(out, testimonialResponse{Name: t.Name, Initial: t.Initial(), Batch: t.Batch, Message: t.Message})
	}
	return out
}

func (s *Server) randomTestimonials(c *gin.Context) {
	ts, err := s.Testimonials.Random(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, testimonialsResponse(ts))
}

func (s *Server) allTestimonials(c *gin.Context) {
	ts, err := s.Testimonials.All(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, testimonialsResponse(ts))
}

type testimonialRequest struct {
	Name    string `json:"name" binding:"required,max=100"`
	Batch   string `json:"batch" binding:"required,max=10"`
	Message string `json:"message" binding:"required,max=1000"`
}

func (s *Server) submitTestimonial(c *gin.Context) {
	var req testimonialRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if _, err := s.Testimonials.Submit(c.Request.Context(), req.Name, req.Batch, req.Message); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, gin.H{"message": "Thank you! Your testimonial will appear once it is verified"})
}

func (s *Server) verifyTestimonial(c *gin.Context) {
	err := s.Testimonials.Verify(c.Request.Context(), c.Param("token"))
	switch {
	case errors.Is(err, testimonial.ErrAlreadyApproved):
		c.JSON(http.StatusOK, gin.H{"message": "Testimonial already approved"})
	case err != nil:
		s.fail(c, err)
	default:
		c.JSON(http.StatusOK, gin.H{"message": "Testimonial approved"})
	}
}
