package cors

import (
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/gin-gonic/gin"
	"github.com/stretchr/testify/assert"
)

func newRouter(origins []string) *gin.Engine {
	gin.SetMode(gin.TestMode)
	r := gin.New()
	r.Use(New(origins))
	r.GET("/ping", func(c *gin.Context) { c.Status(http.StatusOK) })
	return r
}

func TestCORSAllowedOrigin(t *testing.T) {
	r := newRouter([]string{"https://dashboard.example.org/"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	r.ServeHTTP(w, req)

	assert.Equal(t, "https://dashboard.example.org", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSRejectedOrigin(t *testing.T) {
	r := newRouter([]string{"https://dashboard.example.org"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodGet, "/ping", nil)
	req.Header.Set("Origin", "https://evil.example.com")
	r.ServeHTTP(w, req)

	assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSPreflight(t *testing.T) {
	r := newRouter(nil)
	w := httptest.NewRecorder()
	r.ServeHTTP(w, httptest.NewRequest(http.MethodOptions, "/ping", nil))

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Equal(t, "*", w.Header().Get("Access-Control-Allow-Origin"))
}

func TestCORSWildcardSubdomain(t *testing.T) {
	r := newRouter([]string{"https://*.ecocycle.example"})

	for origin, allowed := range map[string]bool{
		"https://ops.ecocycle.example":  true,
		"http://ops.ecocycle.example":   false,
		"https://ecocycle.example":      false,
		"https://evil-ecocycle.example": false,
	} {
		w := httptest.NewRecorder()
		req := httptest.NewRequest(http.MethodGet, "/ping", nil)
		req.Header.Set("Origin", origin)
		r.ServeHTTP(w, req)

		if allowed {
			assert.Equal(t, origin, w.Header().Get("Access-Control-Allow-Origin"), origin)
			assert.Equal(t, "true", w.Header().Get("Access-Control-Allow-Credentials"))
		} else {
			assert.Empty(t, w.Header().Get("Access-Control-Allow-Origin"), origin)
		}
	}
}

func TestCORSPreflightAdvertisesMethods(t *testing.T) {
	r := newRouter([]string{"https://dashboard.example.org"})
	w := httptest.NewRecorder()
	req := httptest.NewRequest(http.MethodOptions, "/ping", nil)
	req.Header.Set("Origin", "https://dashboard.example.org")
	r.ServeHTTP(w, req)

	assert.Equal(t, http.StatusNoContent, w.Code)
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Methods"), "PATCH")
	assert.Contains(t, w.Header().Get("Access-Control-Allow-Headers"), "X-Request-ID")
}
