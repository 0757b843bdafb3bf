package api

import (
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"alumni/internal/cloudinary"
	"alumni/internal/event"
	"alumni/internal/membership"
)

type eventResponse struct {
	ID          string  `json:"id"`
	Name        string  `json:"name"`
	Description string  `json:"description"`
	Venue       string  `json:"venue"`
	EventDate   string  `json:"event_date"`
	EventTime   string  `json:"event_time"`
	ChiefGuest  *string `json:"chief_guest"`
}

func newEventResponse(e event.Event) eventResponse {
	return eventResponse{
		ID:          e.ID,
		Name:        e.Name,
		Description: e.Description,
		Venue:       e.Venue,
		EventDate:   e.Date.Format(membership.DisplayLayout),
		EventTime:   e.Time,
		ChiefGuest:  e.ChiefGuest,
	}
}

func eventsResponse(events []event.Event) []eventResponse {
	out := make([]eventResponse, 0, len(events))
	for _, e := range events {
		out = append(out, newEventResponse(e))
	}
	return out
}

type imageResponse struct {
	AssetID  string `json:"asset_id"`
	PublicID string `json:"public_id"`
	URL      string `json:"url"`
	Width    int    `json:"width"`
	Height   int    `json:"height"`
}

func imagesResponse(res []cloudinary.Resource) []imageResponse {
	out := make([]imageResponse, 0, len(res))
	for _, r := range res {
		out = append(out, imageResponse{AssetID: r.AssetID, PublicID: r.PublicID, URL: r.SecureURL, Width: r.Width, Height: r.Height})
	}
	return out
}

type eventRequest struct {
	Name        string `json:"name" binding:"required,max=200"`
	Description string `json:"description" binding:"required,max=2000"`
	Venue       string `json:"venue" binding:"required,max=200"`
	EventDate   string `json:"event_date" binding:"required"`
	EventTime   string `json:"event_time" binding:"required,max=20"`
	ChiefGuest  string `json:"chief_guest" binding:"omitempty,max=200"`
}

func (s *Server) createEvent(c *gin.Context) {
	var req eventRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	date, err := time.Parse(membership.DateLayout, req.EventDate)
	if err != nil {
		badRequest(c, err)
		return
	}
	e, err := s.Events.Create(c.Request.Context(), event.Input{
		Name:        req.Name,
		Description: req.Description,
		Venue:       req.Venue,
		Date:        date,
		Time:        req.EventTime,
		ChiefGuest:  req.ChiefGuest,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusCreated, newEventResponse(e))
}

func (s *Server) listEvents(c *gin.Context) {
	events, err := s.Events.List(c.Request.Context(), event.Status(strings.ToLower(c.Param("status"))))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eventsResponse(events))
}

func (s *Server) searchEvents(c *gin.Context) {
	events, err := s.Events.SearchCompleted(c.Request.Context(), c.Param("search_text"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eventsResponse(events))
}

type weekEventResponse struct {
	eventResponse
	Day string `json:"day"`
}

func (s *Server) currentWeekEvents(c *gin.Context) {
	events, err := s.Events.CurrentWeek(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]weekEventResponse, 0, len(events))
	for _, e := range events {
		day := e.Date.Weekday().String()
		if s.Events.IsToday(e) {
			day = "today"
		}
		out = append(out, weekEventResponse{eventResponse: newEventResponse(e), Day: day})
	}
	c.JSON(http.StatusOK, out)
}

type eventDetailResponse struct {
	eventResponse
	Images []imageResponse `json:"images"`
}

func (s *Server) getEvent(c *gin.Context) {
	e, images, err := s.Events.Get(c.Request.Context(), c.Param("id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, eventDetailResponse{eventResponse: newEventResponse(*e), Images: imagesResponse(images)})
}

func (s *Server) gallery(c *gin.Context) {
	images, err := s.Events.Gallery(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, imagesResponse(images))
}
