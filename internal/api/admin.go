package api

import (
	"net/http"

	"github.com/gin-gonic/gin"
)

// loginForm is the OAuth2 password grant form.
type loginForm struct {
	Username string `form:"username" binding:"required"`
	Password string `form:"password" binding:"required"`
}

func (s *Server) login(c *gin.Context) {
	var form loginForm
	if err := c.ShouldBind(&form); err != nil {
		badRequest(c, err)
		return
	}
	a, err := s.Admins.Authenticate(c.Request.Context(), form.Username, form.Password)
	if err != nil {
		s.logger.Warn().Str("username", form.Username).Msg("admin login rejected")
		s.fail(c, err)
		return
	}
	tok, err := s.Signer.Issue(a.ID)
	if err != nil {
		s.fail(c, err)
		return
	}
	s.logger.Info().Str("admin_id", a.ID).Msg("admin logged in")
	c.JSON(http.StatusOK, gin.H{
		"access_token": tok.AccessToken,
		"token_type":   "bearer",
		"expires_at":   tok.ExpiresAt,
	})
}
