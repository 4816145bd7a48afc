// Package csrf implements double-submit token protection for
// state-changing requests.
package csrf

import (
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"net/http"
	"strings"
	"time"

	"github.com/punchamoorthee/checkoutops/internal/obs"
)

const (
	tokenBytes = 32

	// CookieName carries the server-issued token; HeaderName and FormField
	// are the request-controlled copies a same-origin caller echoes back.
	CookieName = "csrf-token"
	HeaderName = "X-Csrf-Token"
	FormField  = "_csrf"
)

// Guard validates the double-submit token pair and issues new tokens.
type Guard struct {
	ttl    time.Duration
	secure bool

	// exempt paths authenticate by other means (provider signatures).
	exemptPrefixes []string
}

// New returns a Guard issuing cookies with the given lifetime. secure
// should be true outside development so the cookie is HTTPS-only.
func New(ttl time.Duration, secure bool, exemptPrefixes ...string) *Guard {
	return &Guard{ttl: ttl, secure: secure, exemptPrefixes: exemptPrefixes}
}

// GenerateToken produces a hex-encoded token from a cryptographically
// secure source.
func (g *Guard) GenerateToken() (string, error) {
	buf := make([]byte, tokenBytes)
	if _, err := rand.Read(buf); err != nil {
		return "", fmt.Errorf("token generation failed: %w", err)
	}
	return hex.EncodeToString(buf), nil
}

// SetCookie attaches the token to the response as a script-inaccessible,
// same-site-strict cookie.
func (g *Guard) SetCookie(w http.ResponseWriter, token string) {
	http.SetCookie(w, &http.Cookie{
		Name:     CookieName,
		Value:    token,
		Path:     "/",
		MaxAge:   int(g.ttl.Seconds()),
		HttpOnly: true,
		Secure:   g.secure,
		SameSite: http.SameSiteStrictMode,
	})
}

// Validate reports whether the cookie token and the request-carried token
// match. The comparison is constant time over equal-length inputs so an
// attacker cannot learn the token incrementally from response latency.
func (g *Guard) Validate(cookieToken, requestToken string) bool {
	if cookieToken == "" || requestToken == "" {
		return false
	}
	if len(cookieToken) != len(requestToken) {
		return false
	}
	var diff byte
	for i := 0; i < len(cookieToken); i++ {
		diff |= cookieToken[i] ^ requestToken[i]
	}
	return diff == 0
}

// TokenFromRequest extracts the caller-controlled token copy, header first
// then form field.
func TokenFromRequest(r *http.Request) string {
	if tok := r.Header.Get(HeaderName); tok != "" {
		return tok
	}
	return r.URL.Query().Get(FormField)
}

// Middleware rejects state-changing requests whose token pair does not
// validate. Safe methods and exempt path prefixes pass through.
func (g *Guard) Middleware(next http.Handler) http.Handler {
	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.Method {
		case http.MethodGet, http.MethodHead, http.MethodOptions:
			next.ServeHTTP(w, r)
			return
		}
		for _, p := range g.exemptPrefixes {
			if strings.HasPrefix(r.URL.Path, p) {
				next.ServeHTTP(w, r)
				return
			}
		}

		var cookieToken string
		if c, err := r.Cookie(CookieName); err == nil {
			cookieToken = c.Value
		}
		if !g.Validate(cookieToken, TokenFromRequest(r)) {
			// Never echo either token value back.
			obs.Logger.Warn("csrf_validation_failed", "method", r.Method, "path", r.URL.Path)
			w.Header().Set("Content-Type", "application/json")
			w.WriteHeader(http.StatusForbidden)
			w.Write([]byte(`{"error":"csrf_failed"}`))
			return
		}
		next.ServeHTTP(w, r)
	})
}
