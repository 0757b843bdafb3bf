package api

import (
	"net/http"
	"strconv"

	"github.com/gin-gonic/gin"
	"golang.org/x/text/language"
	"golang.org/x/text/message"

	"alumni/internal/membership"
)

// indian groups digits the way the association's reports do (12,34,567).
var indian = message.NewPrinter(language.MustParse("en-IN"))

func count(n int64) string {
	return indian.Sprintf("%d", n)
}

func rupees(amount float64) string {
	return "₹" + indian.Sprintf("%.2f", amount)
}

type totalsResponse struct {
	Registrations           string `json:"total_registrations"`
	Successful              string `json:"successful_registrations"`
	Pending                 string `json:"pending_registrations"`
	LifeMembers             string `json:"life_members"`
	PendingLifeMembers      string `json:"pending_life_members"`
	AnnualMembers           string `json:"annual_members"`
	PendingAnnualMembers    string `json:"pending_annual_members"`
	AmountCollected         string `json:"total_amount_collected"`
	AmountFromLifeMembers   string `json:"amount_from_life_members"`
	AmountFromAnnualMembers string `json:"amount_from_annual_members"`
}

func (s *Server) dashboardTotals(c *gin.Context) {
	t, err := s.Members.Totals(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, totalsResponse{
		Registrations:           count(t.Registrations),
		Successful:              count(t.Successful),
		Pending:                 count(t.Pending),
		LifeMembers:             count(t.LifeMembers),
		PendingLifeMembers:      count(t.PendingLifeMembers),
		AnnualMembers:           count(t.AnnualMembers),
		PendingAnnualMembers:    count(t.PendingAnnualMembers),
		AmountCollected:         rupees(t.AmountCollected),
		AmountFromLifeMembers:   rupees(t.AmountFromLifeMembers),
		AmountFromAnnualMembers: rupees(t.AmountFromAnnualMembers),
	})
}

type dashboardMemberResponse struct {
	ID             int64   `json:"id"`
	MembershipID   string  `json:"membership_id"`
	Name           string  `json:"name"`
	Email          string  `json:"email"`
	Mobile         *string `json:"mobile"`
	Batch          string  `json:"batch"`
	MembershipType string  `json:"membership_type"`
	PaymentMode    string  `json:"payment_mode"`
	PaymentAmount  string  `json:"payment_amount"`
	DateCreated    string  `json:"date_created"`
	ValidUpto      *string `json:"membership_valid_upto"`
	AltUserID      string  `json:"alt_user_id"`
}

func (s *Server) dashboardMembers(c *gin.Context) {
	t := membership.Type(c.Param("membership_type"))
	if !t.Valid() {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "membership_type must be Annual or Lifetime"})
		return
	}
	paid, err := strconv.ParseBool(c.Param("payment_status"))
	if err != nil {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "payment_status must be true or false"})
		return
	}

	members, err := s.Members.List(c.Request.Context(), t, paid)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]dashboardMemberResponse, 0, len(members))
	for _, m := range members {
		out = append(out, dashboardMemberResponse{
			ID:             m.ID,
			MembershipID:   m.MembershipID(),
			Name:           m.FullName(),
			Email:          m.Email,
			Mobile:         m.Mobile,
			Batch:          batch(m),
			MembershipType: string(m.MembershipType),
			PaymentMode:    m.PaymentMode,
			PaymentAmount:  rupees(m.PaymentAmount),
			DateCreated:    m.DateCreated.Format(membership.DisplayLayout),
			ValidUpto:      formatDate(m.ValidUpto, membership.DisplayLayout),
			AltUserID:      m.AltUserID,
		})
	}
	c.JSON(http.StatusOK, out)
}
