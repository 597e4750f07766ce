package middleware

import (
	"net/http"
	"net/url"
	"strings"
)

// localhostToken in the origin list allows http(s)://localhost and
// 127.0.0.1 on any port, for a kiosk UI served from a dev machine.
const localhostToken = "localhost"

// originPolicy decides which browser origins receive CORS headers.
type originPolicy struct {
	exact     map[string]struct{}
	localhost bool
}

// newOriginPolicy parses a comma-separated list such as WEB_ALLOWED_ORIGINS.
// Entries are compared without a trailing slash.
func newOriginPolicy(list string) originPolicy {
	p := originPolicy{exact: make(map[string]struct{})}
	for _, o := range strings.Split(list, ",") {
		o = strings.TrimRight(strings.TrimSpace(o), "/")
		switch {
		case o == "":
		case strings.EqualFold(o, localhostToken):
			p.localhost = true
		default:
			p.exact[o] = struct{}{}
		}
	}
	return p
}

func (p originPolicy) allows(origin string) bool {
	if origin == "" {
		return false
	}
	if _, ok := p.exact[origin]; ok {
		return true
	}
	return p.localhost && isLoopbackOrigin(origin)
}

// isLoopbackOrigin matches the host exactly, so http://localhost.evil.com
// does not pass.
func isLoopbackOrigin(origin string) bool {
	u, err := url.Parse(origin)
	if err != nil || (u.Scheme != "http" && u.Scheme != "https") {
		return false
	}
	switch u.Hostname() {
	case "localhost", "127.0.0.1", "::1":
		return true
	}
	return false
}

// CORS returns middleware that answers browser origins from allowedOrigins.
// Preflight requests are answered here and never reach the router.
func CORS(allowedOrigins string) func(http.Handler) http.Handler {
	policy := newOriginPolicy(allowedOrigins)
	allowHeaders := strings.Join([]string{"Accept", "Authorization", "Content-Type", MemberHeader}, ", ")

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			w.Header().Add("Vary", "Origin")
			if origin := r.Header.Get("Origin"); policy.allows(origin) {
				w.Header().Set("Access-Control-Allow-Origin", origin)
				w.Header().Set("Access-Control-Allow-Credentials", "true")
			}

			if r.Method == http.MethodOptions {
				w.Header().Set("Access-Control-Allow-Methods", "GET, POST, PUT, DELETE, OPTIONS")
				w.Header().Set("Access-Control-Allow-Headers", allowHeaders)
				w.Header().Set("Access-Control-Max-Age", "86400")
				w.WriteHeader(http.StatusOK)
				return
			}

			next.ServeHTTP(w, r)
		})
	}
}

// SecurityHeaders marks every response as non-renderable JSON API output.
func SecurityHeaders() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			h := w.Header()
			h.Set("Content-Security-Policy", "default-src 'none'; frame-ancestors 'none'")
			h.Set("X-Content-Type-Options", "nosniff")
			h.Set("X-Frame-Options", "DENY")
			h.Set("Referrer-Policy", "no-referrer")
			h.Set("Cache-Control", "no-store")
			next.ServeHTTP(w, r)
		})
	}
}
