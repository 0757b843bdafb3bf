package api

import (
	"errors"
	"net/http"
	"strconv"
	"strings"
	"time"

	"github.com/gin-gonic/gin"

	"alumni/internal/member"
	"alumni/internal/membership"
	"alumni/internal/metrics"
)

type renewalDetailsResponse struct {
	ID                       int64   `json:"id"`
	Name                     string  `json:"name"`
	Email                    string  `json:"email"`
	Mobile                   *string `json:"mobile"`
	MembershipID             string  `json:"membership_id"`
	MembershipIDAfterUpgrade string  `json:"membership_id_after_upgrade"`
	CurrentValidUpto         string  `json:"current_membership_valid_up_to"`
	DaysUntilExpiry          int     `json:"days_until_expiry"`
	NewRenewalDate           string  `json:"new_renewal_date"`
	CertificateURL           string  `json:"membership_certificate_url"`
	Address1                 string  `json:"address1"`
	Address2                 *string `json:"address2"`
	City                     string  `json:"city"`
	State                    string  `json:"state"`
	Pincode                  string  `json:"pincode"`
	Country                  string  `json:"country"`
	AltUserID                string  `json:"alt_user_id"`
	AnnualAmount             int     `json:"annual_membership_amount"`
	LifetimeAmount           int     `json:"lifetime_membership_amount"`
}

func (s *Server) renewalDetails(c *gin.Context) {
	p, err := s.Members.RenewalDetails(c.Request.Context(), c.Param("renewal_hash"))
	if err != nil {
		s.fail(c, err)
		return
	}
	m := p.Member
	c.JSON(http.StatusOK, renewalDetailsResponse{
		ID:                       m.ID,
		Name:                     m.FullName(),
		Email:                    m.Email,
		Mobile:                   m.Mobile,
		MembershipID:             membership.ID(membership.Annual, m.DurationEnd, m.ID),
		MembershipIDAfterUpgrade: membership.ID(membership.Lifetime, m.DurationEnd, m.ID),
		CurrentValidUpto:         p.Current.Format(membership.DateLayout),
		DaysUntilExpiry:          p.DaysUntilExpiry,
		NewRenewalDate:           p.NewValidUpto.Format(membership.DateLayout),
		CertificateURL:           s.Config.SiteDomain + "/certificate/" + m.AltUserID,
		Address1:                 m.Address1,
		Address2:                 m.Address2,
		City:                     m.City,
		State:                    m.State,
		Pincode:                  m.Pincode,
		Country:                  m.Country,
		AltUserID:                m.AltUserID,
		AnnualAmount:             s.Members.Fee(membership.Annual),
		LifetimeAmount:           s.Members.Fee(membership.Lifetime),
	})
}

// renewalRequest commits a renewal for the holder of a renewal link. Amount
// and validity are computed by the server; when echoed back they must agree.
// Online renewals carry the gateway's checkout response.
type renewalRequest struct {
	RenewalToken   string   `json:"renewal_token" binding:"required"`
	MembershipType string   `json:"membership_type" binding:"required,membership_type"`
	PaymentMode    string   `json:"payment_mode" binding:"omitempty,payment_mode"`
	PaymentAmount  *float64 `json:"payment_amount" binding:"omitempty,gt=0"`
	ValidUpto      string   `json:"membership_valid_upto"`
	OrderID        string   `json:"razorpay_order_id"`
	PaymentID      string   `json:"razorpay_payment_id"`
	Signature      string   `json:"razorpay_signature"`
}

var errRenewalPayment = errors.New("razorpay_order_id, razorpay_payment_id and razorpay_signature are required for online renewal")

func (s *Server) commitRenewal(c *gin.Context) {
	var req renewalRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	in := member.RenewalRequest{
		Token:          req.RenewalToken,
		MembershipType: membership.Type(req.MembershipType),
		PaymentMode:    req.PaymentMode,
		PaymentAmount:  req.PaymentAmount,
	}
	if in.PaymentMode == "" {
		in.PaymentMode = member.PaymentOnline
	}
	if req.ValidUpto != "" {
		validUpto, err := time.Parse(membership.DateLayout, req.ValidUpto)
		if err != nil {
			badRequest(c, err)
			return
		}
		in.ValidUpto = &validUpto
	}
	if in.PaymentMode == member.PaymentOnline {
		if req.OrderID == "" || req.PaymentID == "" || req.Signature == "" {
			badRequest(c, errRenewalPayment)
			return
		}
		proof, err := s.verifiedPayment(req.OrderID, req.PaymentID, req.Signature)
		if err != nil {
			s.fail(c, err)
			return
		}
		in.Payment = &proof
	}

	m, err := s.Members.CommitRenewal(c.Request.Context(), in)
	if err != nil {
		if in.Payment != nil {
			s.countPaymentFailure(err)
		}
		s.fail(c, err)
		return
	}
	if in.Payment != nil {
		metrics.PaymentVerifications.WithLabelValues("verified").Inc()
	}
	c.JSON(http.StatusOK, gin.H{
		"message":               "Membership renewed",
		"membership_id":         m.MembershipID(),
		"membership_type":       string(m.MembershipType),
		"membership_valid_upto": formatDate(m.ValidUpto, membership.DateLayout),
		"date_renewed":          formatDate(m.DateRenewed, membership.DateLayout),
		"payment_status":        m.PaymentStatus,
	})
}

type clearHashRequest struct {
	AltUserID string `json:"alt_user_id" binding:"required,uuid"`
}

func (s *Server) clearRenewalHash(c *gin.Context) {
	var req clearHashRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Members.ClearRenewalHash(c.Request.Context(), req.AltUserID); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Renewal hash cleared"})
}

type expiringResponse struct {
	Name         string `json:"name"`
	Email        string `json:"email"`
	AltUserID    string `json:"alt_user_id"`
	DaysToExpiry int    `json:"days_to_expiry"`
}

func (s *Server) expiringMemberships(c *gin.Context) {
	days, err := strconv.Atoi(c.Param("days_remaining"))
	if err != nil || days < 0 {
		c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": "days_remaining must be a non-negative integer"})
		return
	}
	members, err := s.Members.Expiring(c.Request.Context(), days)
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]expiringResponse, 0, len(members))
	for _, m := range members {
		out = append(out, expiringResponse{Name: m.Name(), Email: m.Email, AltUserID: m.AltUserID, DaysToExpiry: days})
	}
	c.JSON(http.StatusOK, out)
}

func (s *Server) issueRenewalHash(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	hash, err := s.Members.IssueRenewalHash(c.Request.Context(), strings.TrimSpace(req.Email))
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"renewal_hash": hash})
}

func (s *Server) expireMembership(c *gin.Context) {
	var req emailRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	if err := s.Members.Expire(c.Request.Context(), req.Email); err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, gin.H{"message": "Membership expired"})
}

type expiredResponse struct {
	Name        string `json:"name"`
	Email       string `json:"email"`
	AltUserID   string `json:"alt_user_id"`
	RenewalHash string `json:"renewal_hash"`
}

func (s *Server) recentlyExpired(c *gin.Context) {
	members, err := s.Members.RecentlyExpired(c.Request.Context())
	if err != nil {
		s.fail(c, err)
		return
	}
	out := make([]expiredResponse, 0, len(members))
	for _, m := range members {
		r := expiredResponse{Name: m.Name(), Email: m.Email, AltUserID: m.AltUserID}
		if m.RenewalHash != nil {
			r.RenewalHash = *m.RenewalHash
		}
		out = append(out, r)
	}
	c.JSON(http.StatusOK, out)
}
