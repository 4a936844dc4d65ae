package middleware

import (
	"log/slog"
	"net/http"

	"github.com/justinas/nosurf"
)

const CSRFHeader = nosurf.HeaderName

type CSRF struct {
	isProd bool
	exempt []string
}

// NewCSRF protects every unsafe method except on the exempt paths.
func NewCSRF(isProd bool, exemptPaths ...string) *CSRF {
	return &CSRF{isProd: isProd, exempt: exemptPaths}
}

func (c *CSRF) Middleware(logger *slog.Logger) Middleware {
	return func(next http.Handler) http.Handler {
		csrfHandler := nosurf.New(next)

		csrfHandler.SetBaseCookie(http.Cookie{
			HttpOnly: true,
			Path:     "/",
			Secure:   c.isProd,
			SameSite: http.SameSiteLaxMode,
		})
		csrfHandler.ExemptPaths(c.exempt...)

		csrfHandler.SetFailureHandler(
			http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
				LoggerFrom(r.Context(), logger).Warn("CSRF validation failed",
					"path", r.URL.Path, "ip", r.RemoteAddr, "reason", nosurf.Reason(r))
				http.Error(w, "invalid CSRF token", http.StatusBadRequest)
			}))

		return csrfHandler
	}
}

// CSRFToken is the token a client must echo in the X-CSRF-Token header.
func CSRFToken(r *http.Request) string {
	return nosurf.Token(r)
}
