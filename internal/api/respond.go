package api

import (
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"alumni/internal/admin"
	"alumni/internal/errtrack"
	"alumni/internal/event"
	"alumni/internal/jobs"
	"alumni/internal/member"
	"alumni/internal/membership"
	"alumni/internal/payment"
	"alumni/internal/testimonial"
)

// statusOf maps domain errors to HTTP statuses.
func statusOf(err error) int {
	switch {
	case errors.Is(err, member.ErrEmailExists):
		return http.StatusConflict
	case errors.Is(err, member.ErrNotFound),
		errors.Is(err, member.ErrNotManualPayment),
		errors.Is(err, testimonial.ErrNotFound),
		errors.Is(err, event.ErrNotFound):
		return http.StatusNotFound
	case errors.Is(err, membership.ErrInvalidID),
		errors.Is(err, member.ErrOrderRequired),
		errors.Is(err, member.ErrPaymentMismatch),
		errors.Is(err, member.ErrRenewalMismatch),
		errors.Is(err, event.ErrInvalidStatus),
		errors.Is(err, jobs.ErrUnknownJob),
		errors.Is(err, payment.ErrSignatureMismatch):
		return http.StatusBadRequest
	case errors.Is(err, admin.ErrInvalidCredentials):
		return http.StatusUnauthorized
	case errors.Is(err, member.ErrPhotoUpload),
		errors.Is(err, event.ErrFolder),
		errors.Is(err, event.ErrImages),
		errors.Is(err, payment.ErrGateway):
		return http.StatusBadGateway
	default:
		return http.StatusInternalServerError
	}
}

// fail writes err as a JSON error. Server-side failures and rejected payments
// are reported to the error tracker; internal details are not echoed.
func (s *Server) fail(c *gin.Context, err error) {
	status := statusOf(err)
	if status >= http.StatusInternalServerError || errors.Is(err, payment.ErrSignatureMismatch) || errors.Is(err, member.ErrPaymentMismatch) {
		errtrack.CaptureRequest(c, err)
		_ = c.Error(err)
	}
	msg := err.Error()
	if status == http.StatusInternalServerError {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("request failed")
		msg = "internal server error"
	}
	if status == http.StatusBadGateway {
		s.logger.Error().Err(err).Str("path", c.FullPath()).Msg("upstream service failed")
		msg = unwrapSentinel(err)
	}
	c.AbortWithStatusJSON(status, gin.H{"error": msg})
}

// unwrapSentinel hides upstream error bodies behind the package sentinel.
func unwrapSentinel(err error) string {
	for _, sentinel := range []error{member.ErrPhotoUpload, event.ErrFolder, event.ErrImages, payment.ErrGateway} {
		if errors.Is(err, sentinel) {
			return sentinel.Error()
		}
	}
	return err.Error()
}

func badRequest(c *gin.Context, err error) {
	c.AbortWithStatusJSON(http.StatusBadRequest, gin.H{"error": err.Error()})
}
