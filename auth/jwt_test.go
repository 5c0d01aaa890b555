package auth

import (
	"context"
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/golang-jwt/jwt/v5"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

var testConfig = JWTConfig{
	Secret:   []byte("0123456789abcdef0123456789abcdef"),
	Issuer:   "healthops",
	Audience: "healthops-api",
}

func newPair(t *testing.T) (*Signer, *Verifier) {
	t.Helper()
	s, err := NewSigner(testConfig)
	require.NoError(t, err)
	v, err := NewVerifier(testConfig)
	require.NoError(t, err)
	return s, v
}

func TestSignVerify(t *testing.T) {
	s, v := newPair(t)

	token, expires, err := s.Sign("alice", RoleOperator)
	require.NoError(t, err)
	assert.WithinDuration(t, time.Now().Add(15*time.Minute), expires, 5*time.Second)

	id, err := v.Verify(token)
	require.NoError(t, err)
	assert.Equal(t, "alice", id.Principal)
	assert.Equal(t, AuthMethodJWT, id.Method)
	assert.True(t, id.HasRole(RoleOperator))
	assert.False(t, id.HasRole(RoleProbe))
	assert.False(t, id.IsExpired())
	assert.False(t, id.IsAnonymous())
}

func TestNewSigner_WeakSecret(t *testing.T) {
	_, err := NewSigner(JWTConfig{Secret: []byte("short")})
	assert.ErrorIs(t, err, ErrWeakSecret)

	_, err = NewVerifier(JWTConfig{})
	assert.ErrorIs(t, err, ErrWeakSecret)
}

func TestVerify_Rejections(t *testing.T) {
	_, v := newPair(t)

	expiredSigner, err := NewSigner(testConfig)
	require.NoError(t, err)
	expiredSigner.now = func() time.Time { return time.Now().Add(-time.Hour) }
	expired, _, err := expiredSigner.Sign("bob")
	require.NoError(t, err)

	otherCfg := testConfig
	otherCfg.Secret = []byte("ffffffffffffffffffffffffffffffff")
	otherSigner, err := NewSigner(otherCfg)
	require.NoError(t, err)
	forged, _, err := otherSigner.Sign("mallory", RoleOperator)
	require.NoError(t, err)

	wrongAudCfg := testConfig
	wrongAudCfg.Audience = "someone-else"
	audSigner, err := NewSigner(wrongAudCfg)
	require.NoError(t, err)
	wrongAud, _, err := audSigner.Sign("carol")
	require.NoError(t, err)

	noneToken, err := jwt.NewWithClaims(jwt.SigningMethodNone, jwt.MapClaims{
		"sub": "eve", "iss": "healthops", "aud": "healthops-api",
		"exp": time.Now().Add(time.Hour).Unix(),
	}).SignedString(jwt.UnsafeAllowNoneSignatureType)
	require.NoError(t, err)

	tests := []struct {
		name    string
		token   string
		wantErr error
	}{
		{"empty", "  ", ErrMissingCredentials},
		{"garbage", "not-a-jwt", ErrTokenMalformed},
		{"expired", expired, ErrTokenExpired},
		{"wrong key", forged, ErrInvalidCredentials},
		{"wrong audience", wrongAud, ErrInvalidCredentials},
		{"alg none", noneToken, ErrInvalidCredentials},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := v.Verify(tt.token)
			assert.ErrorIs(t, err, tt.wantErr)
		})
	}
}

func TestTokenSource_Caches(t *testing.T) {
	s, v := newPair(t)
	var now atomic.Int64
	start := time.Now()
	now.Store(start.UnixNano())
	s.now = func() time.Time { return time.Unix(0, now.Load()) }

	ts := NewTokenSource(s, "healthd", RoleProbe)

	first, err := ts.Token()
	require.NoError(t, err)
	second, err := ts.Token()
	require.NoError(t, err)
	assert.Equal(t, first, second)

	now.Store(start.Add(13 * time.Minute).UnixNano())
	third, err := ts.Token()
	require.NoError(t, err)
	assert.NotEqual(t, first, third, "re-signed near expiry")

	s.now = time.Now
	id, err := v.Verify(first)
	require.NoError(t, err)
	assert.True(t, id.HasRole(RoleProbe))
}

func TestRequire(t *testing.T) {
	s, v := newPair(t)
	operator, _, err := s.Sign("alice", RoleOperator)
	require.NoError(t, err)
	viewer, _, err := s.Sign("bob")
	require.NoError(t, err)

	var principal string
	handler := Require(v, RoleOperator)(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		principal = PrincipalFromContext(r.Context())
		w.WriteHeader(http.StatusNoContent)
	}))

	tests := []struct {
		name   string
		header string
		want   int
		errMsg string
	}{
		{"no header", "", http.StatusUnauthorized, ErrMissingCredentials.Error()},
		{"basic auth", "Basic dXNlcjpwYXNz", http.StatusUnauthorized, ErrMissingCredentials.Error()},
		{"bad token", "Bearer nope", http.StatusUnauthorized, ErrTokenMalformed.Error()},
		{"missing role", "Bearer " + viewer, http.StatusForbidden, ErrForbidden.Error()},
		{"operator", "bearer " + operator, http.StatusNoContent, ""},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			req := httptest.NewRequest(http.MethodPost, "/refresh", nil)
			if tt.header != "" {
				req.Header.Set("Authorization", tt.header)
			}
			rec := httptest.NewRecorder()
			handler.ServeHTTP(rec, req)

			assert.Equal(t, tt.want, rec.Code)
			if tt.errMsg != "" {
				var body map[string]string
				require.NoError(t, json.NewDecoder(rec.Body).Decode(&body))
				assert.Equal(t, tt.errMsg, body["error"])
			}
		})
	}
	assert.Equal(t, "alice", principal)
}

func TestTransport_AddsBearerToken(t *testing.T) {
	s, v := newPair(t)

	var seen atomic.Pointer[Identity]
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		id, err := v.Verify(BearerToken(r))
		if err == nil {
			seen.Store(id)
		}
		w.WriteHeader(http.StatusOK)
	}))
	defer srv.Close()

	client := &http.Client{Transport: &Transport{Source: NewTokenSource(s, "healthd", RoleProbe)}}
	req, err := http.NewRequestWithContext(context.Background(), http.MethodGet, srv.URL, nil)
	require.NoError(t, err)

	resp, err := client.Do(req)
	require.NoError(t, err)
	resp.Body.Close()

	id := seen.Load()
	require.NotNil(t, id)
	assert.Equal(t, "healthd", id.Principal)
	assert.Empty(t, req.Header.Get("Authorization"), "original request untouched")
}

func TestIdentityContext(t *testing.T) {
	ctx := context.Background()
	assert.Nil(t, IdentityFromContext(ctx))
	assert.Empty(t, PrincipalFromContext(ctx))

	ctx = WithIdentity(ctx, AnonymousIdentity())
	assert.Equal(t, "anonymous", PrincipalFromContext(ctx))
	assert.True(t, IdentityFromContext(ctx).IsAnonymous())
	assert.True(t, IdentityFromContext(ctx).HasAnyRole())
	assert.False(t, IdentityFromContext(ctx).HasAnyRole(RoleOperator))
}
