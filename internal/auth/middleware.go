package auth

import (
	"crypto/subtle"
	"fmt"
	"net/http"
	"strings"

	"github.com/sha1n/mcp-symdex-server/internal/config"
)

// APIKeyHeader carries the key for AuthTypeAPIKey.
const APIKeyHeader = "X-API-Key"

// Middleware wraps an http.Handler.
type Middleware func(http.Handler) http.Handler

// excludedPaths bypass authentication and rate limiting.
var excludedPaths = map[string]bool{
	"/health": true,
}

func isExcludedPath(path string) bool {
	return excludedPaths[path]
}

// Chain applies middlewares so that the first one is the outermost.
func Chain(h http.Handler, mws ...Middleware) http.Handler {
	for i := len(mws) - 1; i >= 0; i-- {
		if mws[i] != nil {
			h = mws[i](h)
		}
	}
	return h
}

func passthrough(next http.Handler) http.Handler {
	return next
}

// NewMiddleware creates the authentication middleware selected by settings.
func NewMiddleware(settings config.AuthSettings) (Middleware, error) {
	switch settings.Type {
	case config.AuthTypeNone, "":
		return passthrough, nil
	case config.AuthTypeBasic:
		if settings.Basic.Username == "" || settings.Basic.Password == "" {
			return nil, fmt.Errorf("basic auth requires non-empty username and password")
		}
		return withExclusions(requireAuth(basicAuthenticator(settings.Basic), `Basic realm="symdex"`)), nil
	case config.AuthTypeAPIKey:
		if len(settings.APIKeys) == 0 {
			return nil, fmt.Errorf("apikey auth requires at least one API key")
		}
		return withExclusions(requireAuth(apiKeyAuthenticator(settings.APIKeys), "")), nil
	default:
		return nil, fmt.Errorf("unknown auth type: %s", settings.Type)
	}
}

// withExclusions skips mw for excluded paths.
func withExclusions(mw Middleware) Middleware {
	return func(next http.Handler) http.Handler {
		wrapped := mw(next)
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if isExcludedPath(r.URL.Path) {
				next.ServeHTTP(w, r)
				return
			}
			wrapped.ServeHTTP(w, r)
		})
	}
}

// authenticator reports whether a request carries valid credentials.
type authenticator func(r *http.Request) bool

func requireAuth(ok authenticator, challenge string) Middleware {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			if !ok(r) {
				if challenge != "" {
					w.Header().Set("WWW-Authenticate", challenge)
				}
				http.Error(w, "Unauthorized", http.StatusUnauthorized)
				return
			}
			next.ServeHTTP(w, r)
		})
	}
}

func constantTimeEqual(a, b string) bool {
	return subtle.ConstantTimeCompare([]byte(a), []byte(b)) == 1
}

func basicAuthenticator(settings config.BasicAuthSettings) authenticator {
	return func(r *http.Request) bool {
		user, pass, ok := r.BasicAuth()
		// Evaluate both comparisons so timing does not reveal which one failed.
		userMatch := constantTimeEqual(user, settings.Username)
		passMatch := constantTimeEqual(pass, settings.Password)
		return ok && userMatch && passMatch
	}
}

// apiKeyAuthenticator accepts the key from X-API-Key or an
// "Authorization: Bearer" header.
func apiKeyAuthenticator(apiKeys []string) authenticator {
	return func(r *http.Request) bool {
		key := r.Header.Get(APIKeyHeader)
		if key == "" {
			if bearer, found := strings.CutPrefix(r.Header.Get("Authorization"), "Bearer "); found {
				key = strings.TrimSpace(bearer)
			}
		}
		if key == "" {
			return false
		}
		valid := false
		for _, k := range apiKeys {
			if constantTimeEqual(key, k) {
				valid = true
			}
		}
		return valid
	}
}
