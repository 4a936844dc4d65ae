package middleware

import (
	"fmt"
	"net/http"
	"net/url"
	"strings"
)

type CSP struct {
	isProd          bool
	cspHeaderString string
}

// NewCSP allows images from the media public base so uploaded images render
// in the preview.
func NewCSP(isProd bool, mediaBaseURLs ...string) *CSP {
	imageSources := []string{"'self'", "data:", "blob:"}
	for _, raw := range mediaBaseURLs {
		if origin := originOf(raw); origin != "" {
			imageSources = append(imageSources, origin)
		}
	}

	cspHeader := "default-src 'self'; " +
		"script-src 'self'; " +
		"style-src 'self' 'unsafe-inline'; " +
		fmt.Sprintf("img-src %s; ", strings.Join(imageSources, " ")) +
		"connect-src 'self'; " +
		"frame-ancestors 'none'; " +
		"base-uri 'self'; " +
		"form-action 'self'"

	return &CSP{
		isProd:          isProd,
		cspHeaderString: cspHeader,
	}
}

func (c *CSP) Header() string {
	return c.cspHeaderString
}

func (c *CSP) Middleware() Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Set("Content-Security-Policy", c.cspHeaderString)

			if c.isProd {
				w.Header().Set("Strict-Transport-Security", "max-age=63072000; includeSubDomains; preload")
			}

			w.Header().Set("X-Content-Type-Options", "nosniff")
			w.Header().Set("X-Frame-Options", "DENY")
			w.Header().Set("Referrer-Policy", "strict-origin-when-cross-origin")

			next.ServeHTTP(w, r)
		})
	}
}

func originOf(raw string) string {
	u, err := url.Parse(raw)
	if err != nil || u.Scheme == "" || u.Host == "" {
		return ""
	}
	return u.Scheme + "://" + u.Host
}
