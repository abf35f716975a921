package middleware

import (
	"os"
	"strings"

	"github.com/gin-gonic/gin"
)

// OriginPolicy reports whether a browser origin may call the API. It accepts
// the comma-separated FRONTEND_URL list, plus localhost outside release mode.
// An empty origin is a same-origin or non-browser request and is allowed.
func OriginPolicy(frontendURL string) func(origin string) bool {
	isProduction := os.Getenv("GIN_MODE") == "release"

	allowed := map[string]bool{}
	for _, o := range strings.Split(frontendURL, ",") {
		if o = strings.TrimRight(strings.TrimSpace(o), "/"); o != "" {
			allowed[o] = true
		}
	}

	devOrigins := map[string]bool{
		"http://localhost:3000": true,
		"http://127.0.0.1:3000": true,
		"http://localhost:5173": true,
	}

	return func(origin string) bool {
		return origin == "" || allowed[origin] || (!isProduction && devOrigins[origin])
	}
}

// CORSMiddleware sets CORS headers for allowed origins only. A disallowed
// preflight gets a 403 and no headers.
func CORSMiddleware(frontendURL string) gin.HandlerFunc {
	originAllowed := OriginPolicy(frontendURL)

	return func(c *gin.Context) {
		origin := c.Request.Header.Get("Origin")
		isAllowed := originAllowed(origin)

		if isAllowed && origin != "" {
			c.Header("Access-Control-Allow-Origin", origin)
			c.Header("Access-Control-Allow-Credentials", "true")
			c.Header("Access-Control-Allow-Headers", "Content-Type, Content-Length, Accept-Encoding, Authorization, accept, origin, Cache-Control, X-Requested-With, X-Request-ID")
			c.Header("Access-Control-Allow-Methods", "POST, GET, OPTIONS, PUT, DELETE, PATCH")
			c.Header("Access-Control-Expose-Headers", "X-Request-ID, X-RateLimit-Limit, X-RateLimit-Remaining, Retry-After")
			c.Header("Access-Control-Max-Age", "86400")
		}

		// Vary header to ensure caches differentiate by Origin
		c.Header("Vary", "Origin")

		if c.Request.Method == "OPTIONS" {
			if isAllowed {
				c.AbortWithStatus(204)
			} else {
				c.AbortWithStatus(403)
			}
			return
		}

		c.Next()
	}
}
