package middleware

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
	"github.com/webcrawler/backend/internal/services"
)

func init() {
	gin.SetMode(gin.TestMode)
}

type stubAuthenticator struct {
	tokens map[string]services.Principal
	err    error
	seen   string
}

func (s *stubAuthenticator) Authenticate(_ context.Context, token string) (services.Principal, error) {
	s.seen = token
	if s.err != nil {
		return services.Principal{}, s.err
	}
	p, ok := s.tokens[token]
	if !ok {
		return services.Principal{}, &services.SessionError{Op: "authenticate", Reason: services.ErrSuperseded}
	}
	return p, nil
}

func newAuthRouter(auth Authenticator) *gin.Engine {
	router := gin.New()
	router.GET("/me", AuthRequired(auth), func(c *gin.Context) {
		c.JSON(http.StatusOK, gin.H{
			"user_id":  GetUserID(c),
			"is_admin": IsAdmin(c),
			"token":    GetAccessToken(c),
		})
	})
	router.GET("/admin", AuthRequired(auth), AdminRequired(), func(c *gin.Context) {
		c.Status(http.StatusNoContent)
	})
	return router
}

func doGet(router http.Handler, path, authHeader string) *httptest.ResponseRecorder {
	w := httptest.NewRecorder()
	req, _ := http.NewRequest("GET", path, nil)
	if authHeader != "" {
		req.Header.Set("Authorization", authHeader)
	}
	router.ServeHTTP(w, req)
	return w
}

func TestAuthRequired(t *testing.T) {
	auth := &stubAuthenticator{tokens: map[string]services.Principal{
		"good-token":  {UserID: 7},
		"admin-token": {UserID: 1, IsAdmin: true},
	}}
	router := newAuthRouter(auth)

	tests := []struct {
		name   string
		header string
		status int
	}{
		{"missing header", "", http.StatusUnauthorized},
		{"bearer only", "Bearer", http.StatusUnauthorized},
		{"bearer token", "Bearer good-token", http.StatusOK},
		{"lowercase scheme", "bearer good-token", http.StatusOK},
		{"raw token", "good-token", http.StatusOK},
		{"unknown token", "Bearer nope", http.StatusUnauthorized},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			w := doGet(router, "/me", tt.header)
			assert.Equal(t, tt.status, w.Code)
			if tt.status == http.StatusUnauthorized {
				assert.JSONEq(t, `{"code":401,"message":"Expired or Invalid Token"}`, w.Body.String())
			}
		})
	}

	w := doGet(router, "/me", "Bearer good-token")
	assert.JSONEq(t, `{"user_id":7,"is_admin":false,"token":"good-token"}`, w.Body.String())
	assert.Equal(t, "good-token", auth.seen)
}

func TestAuthRequired_StoreErrorIsUniform(t *testing.T) {
	router := newAuthRouter(&stubAuthenticator{err: errors.New("connection refused")})

	w := doGet(router, "/me", "Bearer anything")
	assert.Equal(t, http.StatusUnauthorized, w.Code)
	assert.JSONEq(t, `{"code":401,"message":"Expired or Invalid Token"}`, w.Body.String())
}

func TestAdminRequired(t *testing.T) {
	router := newAuthRouter(&stubAuthenticator{tokens: map[string]services.Principal{
		"user":  {UserID: 7},
		"admin": {UserID: 1, IsAdmin: true},
	}})

	assert.Equal(t, http.StatusForbidden, doGet(router, "/admin", "Bearer user").Code)
	assert.Equal(t, http.StatusNoContent, doGet(router, "/admin", "Bearer admin").Code)
	assert.Equal(t, http.StatusUnauthorized, doGet(router, "/admin", "").Code)
}

func TestExtractToken(t *testing.T) {
	tests := map[string]string{
		"":                 "",
		"Bearer":           "",
		"Bearer abc":       "abc",
		"BEARER   abc ":    "abc",
		"abc":              "abc",
		"  abc  ":          "abc",
		"Basic dXNlcjpwdw": "Basic dXNlcjpwdw",
	}
	for in, want := range tests {
		assert.Equal(t, want, ExtractToken(in), "header %q", in)
	}
}

func TestGetUserID_Missing(t *testing.T) {
	c, _ := gin.CreateTestContext(httptest.NewRecorder())
	assert.Zero(t, GetUserID(c))
	assert.False(t, IsAdmin(c))
	assert.Empty(t, GetAccessToken(c))
}
