package auth

import (
	"encoding/json"
	"errors"
	"net/http"
	"strings"
)

const bearerPrefix = "Bearer "

// BearerToken extracts the token from an "Authorization: Bearer" header.
func BearerToken(r *http.Request) string {
	header := r.Header.Get("Authorization")
	if len(header) < len(bearerPrefix) || !strings.EqualFold(header[:len(bearerPrefix)], bearerPrefix) {
		return ""
	}
	return strings.TrimSpace(header[len(bearerPrefix):])
}

// Require is HTTP middleware that verifies the bearer token and, when roles
// are given, requires at least one of them. The identity is attached to the
// request context.
//
// Usage:
//
//	r.With(auth.Require(verifier, auth.RoleOperator)).Post("/refresh", h)
func Require(v *Verifier, roles ...string) func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			id, err := v.Verify(BearerToken(r))
			if err != nil {
				writeError(w, http.StatusUnauthorized, err)
				return
			}
			if !id.HasAnyRole(roles...) {
				writeError(w, http.StatusForbidden, ErrForbidden)
				return
			}
			next.ServeHTTP(w, r.WithContext(WithIdentity(r.Context(), id)))
		})
	}
}

func writeError(w http.ResponseWriter, code int, err error) {
	msg := err.Error()
	// Do not echo parser internals back to the caller.
	for _, sentinel := range []error{ErrMissingCredentials, ErrTokenExpired, ErrTokenMalformed, ErrInvalidCredentials, ErrForbidden} {
		if errors.Is(err, sentinel) {
			msg = sentinel.Error()
			break
		}
	}
	if code == http.StatusUnauthorized {
		w.Header().Set("WWW-Authenticate", `Bearer realm="healthops"`)
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(map[string]string{"error": msg})
}

// Transport is an http.RoundTripper that adds a bearer token from a
// TokenSource to every outgoing request.
type Transport struct {
	Source *TokenSource
	Base   http.RoundTripper
}

// RoundTrip implements http.RoundTripper.
func (t *Transport) RoundTrip(req *http.Request) (*http.Response, error) {
	token, err := t.Source.Token()
	if err != nil {
		return nil, err
	}

	clone := req.Clone(req.Context())
	clone.Header.Set("Authorization", bearerPrefix+token)

	base := t.Base
	if base == nil {
		base = http.DefaultTransport
	}
	return base.RoundTrip(clone)
}
