package api

import (
	"embed"
	"html/template"
	"net/http"

	"github.com/gin-gonic/gin"
)

//go:embed templates/index.html
var templateFS embed.FS

var indexPage = template.Must(template.ParseFS(templateFS, "templates/index.html"))

func (s *Server) index(c *gin.Context) {
	c.Header("Content-Type", "text/html; charset=utf-8")
	c.Status(http.StatusOK)
	err := indexPage.Execute(c.Writer, gin.H{
		"Title":      s.Config.Email.FromName,
		"SiteDomain": s.Config.SiteDomain,
	})
	if err != nil {
		s.logger.Error().Err(err).Msg("render landing page")
	}
}
