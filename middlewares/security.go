package middlewares

import (
	"os"

	"github.com/gin-gonic/gin"
)

// SecurityHeaders sets the hardening headers on every response. CSP and HSTS
// lifetime are env-tunable so a deployment behind a stricter proxy can
// override them without a rebuild.
func SecurityHeaders() gin.HandlerFunc {
	csp := os.Getenv("SECURITY_CSP")
	if csp == "" {
		csp = "default-src 'none'; frame-ancestors 'none'"
	}
	hstsMaxAge := os.Getenv("SECURITY_HSTS_MAX_AGE")
	if hstsMaxAge == "" {
		hstsMaxAge = "31536000"
	}
	hsts := "max-age=" + hstsMaxAge + "; includeSubDomains"

	return func(c *gin.Context) {
		h := c.Writer.Header()
		h.Set("X-Frame-Options", "DENY")
		h.Set("X-Content-Type-Options", "nosniff")
		h.Set("Content-Security-Policy", csp)
		h.Set("Referrer-Policy", "no-referrer")
		h.Set("Strict-Transport-Security", hsts)

		c.Next()
	}
}
