package cors

import (
	"net/http"
	"strings"

	"github.com/gin-gonic/gin"
)

const (
	allowHeaders  = "Authorization, Content-Type, X-Requested-With, X-Request-ID"
	allowMethods  = "GET, POST, PATCH, OPTIONS"
	exposeHeaders = "X-Request-ID, Content-Disposition"
)

// matcher decides whether a browser origin may call the API.
type matcher struct {
	any      bool
	exact    map[string]struct{}
	suffixes []string
}

func newMatcher(origins []string) matcher {
	m := matcher{any: len(origins) == 0, exact: make(map[string]struct{}, len(origins))}
	for _, raw := range origins {
		origin := strings.TrimRight(strings.TrimSpace(raw), "/")
		switch {
		case origin == "*":
			m.any = true
		case strings.Contains(origin, "://*."):
			// https://*.example.org matches any subdomain on the same scheme.
			scheme, host, _ := strings.Cut(origin, "://*.")
			m.suffixes = append(m.suffixes, scheme+"://|."+host)
		case origin != "":
			m.exact[origin] = struct{}{}
		}
	}
	return m
}

func (m matcher) allows(origin string) bool {
	if m.any {
		return true
	}
	origin = strings.TrimRight(origin, "/")
	if _, ok := m.exact[origin]; ok {
		return true
	}
	for _, s := range m.suffixes {
		scheme, suffix, _ := strings.Cut(s, "|")
		if strings.HasPrefix(origin, scheme) && strings.HasSuffix(origin, suffix) &&
			len(origin) > len(scheme)+len(suffix) {
			return true
		}
	}
	return false
}

// New returns a CORS middleware for the dashboard origins. An empty list allows any origin.
func New(allowedOrigins []string) gin.HandlerFunc {
	m := newMatcher(allowedOrigins)

	return func(c *gin.Context) {
		h := c.Writer.Header()
		origin := c.GetHeader("Origin")
		switch {
		case origin != "" && m.allows(origin):
			h.Set("Access-Control-Allow-Origin", origin)
			h.Set("Access-Control-Allow-Credentials", "true")
		case origin == "" && m.any:
			h.Set("Access-Control-Allow-Origin", "*")
		}
		h.Add("Vary", "Origin")

		if c.Request.Method != http.MethodOptions {
			h.Set("Access-Control-Expose-Headers", exposeHeaders)
			c.Next()
			return
		}

		h.Set("Access-Control-Allow-Headers", allowHeaders)
		h.Set("Access-Control-Allow-Methods", allowMethods)
		h.Set("Access-Control-Max-Age", "600")
		c.AbortWithStatus(http.StatusNoContent)
	}
}
