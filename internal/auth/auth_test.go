package auth

import (
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const adminID = "0b8e6c1e-3f2a-4c55-9f0e-0d8f6f1d2a10"

func newSigner(t *testing.T, alg string) *Signer {
	t.Helper()
	s, err := NewSigner("topsecret", alg, adminID, time.Hour)
	require.NoError(t, err)
	return s
}

func TestIssueAndParse(t *testing.T) {
	s := newSigner(t, "HS384")
	tok, err := s.Issue(adminID)
	require.NoError(t, err)

	claims, err := s.Parse(tok.AccessToken)
	require.NoError(t, err)
	assert.Equal(t, adminID, claims.Subject)
	assert.NotNil(t, claims.IssuedAt)
}

func TestParseRejects(t *testing.T) {
	s := newSigner(t, "HS256")

	other, err := s.Issue("someone-else")
	require.NoError(t, err)
	_, err = s.Parse(other.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "wrong subject")

	s.now = func() time.Time { return time.Now().Add(-2 * time.Hour) }
	expired, err := s.Issue(adminID)
	require.NoError(t, err)
	s.now = time.Now
	_, err = s.Parse(expired.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "expired")

	noExp, err := jwt.NewWithClaims(jwt.SigningMethodHS256, jwt.RegisteredClaims{Subject: adminID}).SignedString([]byte("topsecret"))
	require.NoError(t, err)
	_, err = s.Parse(noExp)
	assert.ErrorIs(t, err, ErrInvalidToken, "missing exp")

	hs512, err := newSigner(t, "HS512").Issue(adminID)
	require.NoError(t, err)
	_, err = s.Parse(hs512.AccessToken)
	assert.ErrorIs(t, err, ErrInvalidToken, "algorithm mismatch")

	_, err = s.Parse("garbage")
	assert.ErrorIs(t, err, ErrInvalidToken)
}

func TestNewSignerValidation(t *testing.T) {
	_, err := NewSigner("", "HS256", adminID, time.Hour)
	assert.Error(t, err)
	_, err = NewSigner("k", "RS256", adminID, time.Hour)
	assert.Error(t, err)
}

func TestAdminAuthMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	s := newSigner(t, "HS256")
	tok, err := s.Issue(adminID)
	require.NoError(t, err)

	r := gin.New()
	r.GET("/p", AdminAuth(s), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	cases := map[string]int{
		"":                           http.StatusUnauthorized,
		"Basic abc":                  http.StatusUnauthorized,
		"Bearer bad":                 http.StatusUnauthorized,
		"Bearer " + tok.AccessToken:  http.StatusNoContent,
		"bearer  " + tok.AccessToken: http.StatusNoContent,
	}
	for header, want := range cases {
		req := httptest.NewRequest(http.MethodGet, "/p", nil)
		if header != "" {
			req.Header.Set("Authorization", header)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, header)
		if want == http.StatusUnauthorized {
			assert.JSONEq(t, `{"error":"could not validate credentials"}`, w.Body.String())
		}
	}
}

func TestJobSecretMiddleware(t *testing.T) {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.GET("/j", JobSecret("cron-key"), func(c *gin.Context) { c.Status(http.StatusNoContent) })

	for secret, want := range map[string]int{"": 401, "nope": 401, "cron-key": 204} {
		req := httptest.NewRequest(http.MethodGet, "/j", nil)
		if secret != "" {
			req.Header.Set(JobSecretHeader, secret)
		}
		w := httptest.NewRecorder()
		r.ServeHTTP(w, req)
		assert.Equal(t, want, w.Code, secret)
	}

	open := gin.New()
	open.GET("/j", JobSecret(""), func(c *gin.Context) { c.Status(http.StatusNoContent) })
	w := httptest.NewRecorder()
	open.ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/j", nil))
	assert.Equal(t, http.StatusUnauthorized, w.Code)
}
