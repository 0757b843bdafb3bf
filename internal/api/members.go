package api

import (
	"fmt"
	"io"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"alumni/internal/member"
	"alumni/internal/membership"
	"alumni/internal/metrics"
)

type registerRequest struct {
	Prefix          string    `form:"prefix" binding:"required,max=10"`
	FirstName       string    `form:"first_name" binding:"required,max=50"`
	LastName        string    `form:"last_name" binding:"required,max=50"`
	Email           string    `form:"email" binding:"required,email,max=100"`
	Mobile          string    `form:"mobile" binding:"omitempty,max=20"`
	Birthday        time.Time `form:"birthday" binding:"required" time_format:"2006-01-02"`
	Address1        string    `form:"address1" binding:"required,max=200"`
	Address2        string    `form:"address2" binding:"omitempty,max=200"`
	City            string    `form:"city" binding:"required,max=50"`
	State           string    `form:"state" binding:"required,max=50"`
	Pincode         string    `form:"pincode" binding:"required,max=10"`
	Country         string    `form:"country" binding:"required,max=50"`
	DurationStart   int       `form:"duration_start" binding:"required,min=1900,max=2100"`
	DurationEnd     int       `form:"duration_end" binding:"required,min=1900,max=2100,gtefield=DurationStart"`
	CoursePUC       string    `form:"course_puc" binding:"omitempty,max=100"`
	CourseDegree    string    `form:"course_degree" binding:"omitempty,max=100"`
	CoursePG        string    `form:"course_pg" binding:"omitempty,max=100"`
	CourseOthers    string    `form:"course_others" binding:"omitempty,max=100"`
	Vision          string    `form:"vision" binding:"omitempty,max=1000"`
	Profession      string    `form:"profession" binding:"omitempty,max=100"`
	OtherInterests  string    `form:"other_interests" binding:"omitempty,max=500"`
	MembershipType  string    `form:"membership_type" binding:"required,membership_type"`
	PaymentMode     string    `form:"payment_mode" binding:"omitempty,payment_mode"`
	RazorpayOrderID string    `form:"razorpay_order_id" binding:"omitempty,max=100"`
}

type registrationResponse struct {
	ID             int64   `json:"id"`
	MembershipID   string  `json:"membership_id"`
	AltUserID      string  `json:"alt_user_id"`
	MembershipType string  `json:"membership_type"`
	PaymentAmount  float64 `json:"payment_amount"`
	PaymentMode    string  `json:"payment_mode"`
	ValidUpto      *string `json:"membership_valid_upto"`
	ProfileURL     *string `json:"profile_url"`
	IDCardURL      *string `json:"id_card_url"`
	CertificateURL *string `json:"membership_certificate_url"`
}

func (s *Server) registerUser(c *gin.Context) {
	var req registerRequest
	if err := c.ShouldBind(&req); err != nil {
		badRequest(c, err)
		return
	}

	in := member.Registration{
		Prefix:          req.Prefix,
		FirstName:       req.FirstName,
		LastName:        req.LastName,
		Email:           req.Email,
		Mobile:          req.Mobile,
		Birthday:        req.Birthday,
		Address1:        req.Address1,
		Address2:        req.Address2,
		City:            req.City,
		State:           req.State,
		Pincode:         req.Pincode,
		Country:         req.Country,
		DurationStart:   req.DurationStart,
		DurationEnd:     req.DurationEnd,
		CoursePUC:       req.CoursePUC,
		CourseDegree:    req.CourseDegree,
		CoursePG:        req.CoursePG,
		CourseOthers:    req.CourseOthers,
		Vision:          req.Vision,
		Profession:      req.Profession,
		OtherInterests:  req.OtherInterests,
		MembershipType:  membership.Type(req.MembershipType),
		PaymentMode:     req.PaymentMode,
		RazorpayOrderID: req.RazorpayOrderID,
	}

	if file, header, err := c.Request.FormFile("profile_photo"); err == nil {
		defer file.Close()
		data, err := io.ReadAll(io.LimitReader(file, maxUploadBytes+1))
		if err != nil {
			badRequest(c, fmt.Errorf("read profile photo: %w", err))
			return
		}
		if len(data) > maxUploadBytes {
			badRequest(c, fmt.Errorf("profile photo exceeds %d bytes", maxUploadBytes))
			return
		}
		in.Photo = data
		in.PhotoName = header.Filename
	} else if err != http.ErrMissingFile {
		badRequest(c, fmt.Errorf("profile photo: %w", err))
		return
	}

	m, err := s.Members.Register(c.Request.Context(), in)
	if err != nil {
		s.fail(c, err)
		return
	}
	metrics.Registrations.WithLabelValues(string(m.MembershipType)).Inc()

	c.JSON(http.StatusCreated, registrationResponse{
		ID:             m.ID,
		MembershipID:   m.MembershipID(),
		AltUserID:      m.AltUserID,
		MembershipType: string(m.MembershipType),
		PaymentAmount:  m.PaymentAmount,
		PaymentMode:    m.PaymentMode,
		ValidUpto:      formatDate(m.ValidUpto, membership.DateLayout),
		ProfileURL:     m.ProfileURL,
		IDCardURL:      m.IDCardURL,
		CertificateURL: m.CertificateURL,
	})
}

type userSummary struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	MembershipID string `json:"membership_id"`
}

func (s *Server) userByAltID(c *gin.Context) {
	m, err := s.Members.ByAltID(c.Request.Context(), c.Param("alt_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, userSummary{Name: m.FullName(), Email: m.Email, MembershipID: m.MembershipID()})
}

func (s *Server) userExists(c *gin.Context) {
	exists, err := s.Members.EmailRegistered(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"exists": exists})
}

type manualPaymentResponse struct {
	UserID         int64   `json:"user_id"`
	MembershipID   string  `json:"membership_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	MembershipType string  `json:"membership_type"`
	PaymentAmount  float64 `json:"payment_amount"`
	Notified       bool    `json:"manual_payment_notification"`
}

func (s *Server) manualPaymentDetails(c *gin.Context) {
	m, err := s.Members.ManualPaymentDetails(c.Request.Context(), c.Param("email"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, manualPaymentResponse{
		UserID:         m.ID,
		MembershipID:   m.MembershipID(),
		Name:           m.FullName(),
		Email:          m.Email,
		MembershipType: string(m.MembershipType),
		PaymentAmount:  m.PaymentAmount,
		Notified:       m.ManualPaymentNotification,
	})
}

func (s *Server) notifyManualPayment(c *gin.Context) {
	if err := s.Members.NotifyManualPayment(c.Request.Context(), c.Param("email")); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Manual payment notification recorded"})
}

type cardDetailsResponse struct {
	Name                string  `json:"name"`
	Batch               string  `json:"batch"`
	Courses             string  `json:"courses"`
	MembershipID        string  `json:"membership_id"`
	MembershipStartDate string  `json:"membership_start_date"`
	MembershipEndDate   *string `json:"membership_end_date"`
	MembershipType      string  `json:"membership_type"`
	ProfileURL          *string `json:"profile_url"`
}

func (s *Server) cardDetails(c *gin.Context) {
	m, err := s.Members.ByAltID(c.Request.Context(), c.Param("alt_user_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	resp := cardDetailsResponse{
		Name:                m.FullName(),
		Batch:               batch(*m),
		Courses:             courses(*m),
		MembershipID:        m.MembershipID(),
		MembershipStartDate: m.DateCreated.Format(membership.DisplayLayout),
		MembershipType:      string(m.MembershipType),
		ProfileURL:          m.ProfileURL,
	}
	if m.MembershipType == membership.Annual {
		resp.MembershipEndDate = formatDate(m.ValidUpto, membership.CardLayout)
	}
	c.JSON(http.StatusOK, resp)
}

type memberDetailsResponse struct {
	UserID         int64   `json:"user_id"`
	MembershipID   string  `json:"membership_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Mobile         *string `json:"mobile"`
	Address1       string  `json:"address1"`
	Address2       *string `json:"address2"`
	City           string  `json:"city"`
	State          string  `json:"state"`
	Pincode        string  `json:"pincode"`
	Country        string  `json:"country"`
	MembershipType string  `json:"membership_type"`
	PaymentStatus  bool    `json:"payment_status"`
	Lifecycle      string  `json:"membership_state"`
}

func (s *Server) membershipByID(c *gin.Context) {
	m, err := s.Members.ByMembershipID(c.Request.Context(), c.Param("membership_id"))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, memberDetailsResponse{
		UserID:         m.ID,
		MembershipID:   m.MembershipID(),
		Name:           m.FullName(),
		Email:          m.Email,
		Mobile:         m.Mobile,
		Address1:       m.Address1,
		Address2:       m.Address2,
		City:           m.City,
		State:          m.State,
		Pincode:        m.Pincode,
		Country:        m.Country,
		MembershipType: string(m.MembershipType),
		PaymentStatus:  m.PaymentStatus,
		Lifecycle:      string(membership.Derive(m.Snapshot(), s.Members.Today(), membership.DefaultExpiringWindow)),
	})
}

// paymentStatusRequest confirms an offline payment. The membership type is
// taken from the stored registration.
type paymentStatusRequest struct {
	UserID int64 `json:"user_id" binding:"required,gt=0"`
}

func (s *Server) confirmManualPayment(c *gin.Context) {
	var req paymentStatusRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	m, err := s.Members.ConfirmManualPayment(c.Request.Context(), req.UserID)
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{
		"message":               "Payment status updated",
		"membership_id":         m.MembershipID(),
		"membership_valid_upto": formatDate(m.ValidUpto, membership.DateLayout),
	})
}

type emailRequest struct {
	Email string `json:"email" binding:"required,email"`
}

func (s *Server) unsubscribe(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Members.Unsubscribe(c.Request.Context(), req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "You have been unsubscribed"})
}

type alumnusResponse struct {
	MembershipID   string  `json:"membership_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Batch          string  `json:"batch"`
	Profession     *string `json:"profession"`
	City           string  `json:"city"`
	Country        string  `json:"country"`
	MembershipType string  `json:"membership_type"`
	ProfileURL     *string `json:"profile_url"`
}

func (s *Server) searchAlumni(c *gin.Context) {
	members, err := s.Members.Search(c.Request.Context(),
		strings.TrimSpace(c.Query("first_name")),
		strings.TrimSpace(c.Query("last_name")),
		strings.TrimSpace(c.Query("profession")))
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]alumnusResponse, 0, len(members))
	for _, m := range members {
		out = append(out, alumnusResponse{
			MembershipID:   m.MembershipID(),
			Name:           m.FullName(),
			Email:          m.Email,
			Batch:          batch(m),
			Profession:     m.Profession,
			City:           m.City,
			Country:        m.Country,
			MembershipType: string(m.MembershipType),
			ProfileURL:     m.ProfileURL,
		})
	}
	c.JSON(http.StatusOK, out)
}

type birthdayResponse struct {
	Name  string `json:"name"`
	Email string `json:"email"`
}

func (s *Server) birthdays(c *gin.Context) {
	members, err := s.Members.Birthdays(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]birthdayResponse, 0, len(members))
	for _, m := range members {
		out = append(out, birthdayResponse{Name: m.Name(), Email: m.Email})
	}
	c.JSON(http.StatusOK, out)
}

func batch(m member.Member) string {
	return fmt.Sprintf("%d - %d", m.DurationStart, m.DurationEnd)
}

func courses(m member.Member) string {
	var out []string
	for _, c := range []*string{m.CoursePUC, m.CourseDegree, m.CoursePG, m.CourseOthers} {
		if c != nil && *c != "" {
			out = append(out, *c)
		}
	}
	return strings.Join(out, ", ")
}

func formatDate(t *time.Time, layout string) *string {
	if t == nil {
		return nil
	}
	s := t.Format(layout)
	return &s
}
