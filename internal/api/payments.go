package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alumni/internal/member"
	"alumni/internal/membership"
	"alumni/internal/metrics"
	"alumni/internal/payment"
)

// orderRequest asks for a checkout order. The amount is the configured fee of
// the membership type; clients cannot choose it.
type orderRequest struct {
	MembershipType string            `json:"membership_type" binding:"required,membership_type"`
	Receipt        string            `json:"receipt" binding:"omitempty,max=40"`
	Notes          map[string]string `json:"notes"`
}

func (s *Server) createOrder(c *gin.Context) {
	var req orderRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}
	order, err := s.Orders.CreateOrder(payment.OrderRequest{
		Amount:   int64(s.Members.Fee(membership.Type(req.MembershipType))) * 100,
		Currency: "INR",
		Receipt:  req.Receipt,
		Notes:    req.Notes,
	})
	if err != nil {
		s.fail(c, err)
		return
	}
	c.JSON(http.StatusOK, order)
}

// verificationRequest carries the gateway callback. The signing secret is
// never part of the request; it comes from RAZORPAY_KEY_SECRET.
type verificationRequest struct {
	OrderID   string `json:"order_id" binding:"required"`
	PaymentID string `json:"payment_id" binding:"required"`
	Signature string `json:"signature" binding:"required"`
	Email     string `json:"email" binding:"required,email"`
}

func (s *Server) verifyPayment(c *gin.Context) {
	var req verificationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		badRequest(c, err)
		return
	}

	proof, err := s.verifiedPayment(req.OrderID, req.PaymentID, req.Signature)
	if err != nil {
		s.fail(c, err)
		return
	}

	m, err := s.Members.MarkPaid(c.Request.Context(), req.Email, proof)
	if err != nil {
		s.countPaymentFailure(err)
		s.fail(c, err)
		return
	}
	metrics.PaymentVerifications.WithLabelValues("verified").Inc()
	c.JSON(http.StatusOK, gin.H{
		"message":       "Payment verified",
		"membership_id": m.MembershipID(),
		"alt_user_id":   m.AltUserID,
	})
}

// verifiedPayment checks the gateway signature with the server's key secret
// and looks up the amount the gateway actually charged for the order.
func (s *Server) verifiedPayment(orderID, paymentID, signature string) (member.PaymentProof, error) {
	if err := payment.VerifySignature(orderID, paymentID, signature, s.Config.Razorpay.KeySecret); err != nil {
		metrics.PaymentVerifications.WithLabelValues("mismatch").Inc()
		s.logger.Warn().Str("order_id", orderID).Str("payment_id", paymentID).Msg("payment signature mismatch")
		return member.PaymentProof{}, err
	}
	order, err := s.Orders.FetchOrder(orderID)
	if err != nil {
		metrics.PaymentVerifications.WithLabelValues("error").Inc()
		return member.PaymentProof{}, err
	}
	return member.PaymentProof{OrderID: order.ID, PaymentID: paymentID, Amount: order.Amount}, nil
}

func (s *Server) countPaymentFailure(err error) {
	if errors.Is(err, member.ErrPaymentMismatch) {
		metrics.PaymentVerifications.WithLabelValues("rejected").Inc()
		return
	}
	metrics.PaymentVerifications.WithLabelValues("error").Inc()
}
