package auth

import (
	"errors"
	"fmt"
	"slices"
	"strings"
	"sync"
	"time"

	"github.com/golang-jwt/jwt/v5"
)

// MinSecretLength is the shortest accepted HMAC secret.
const MinSecretLength = 16

// JWTConfig configures token signing and verification.
type JWTConfig struct {
	// Secret is the HMAC-SHA256 key.
	Secret []byte

	// Issuer is written to and required in the iss claim.
	Issuer string

	// Audience is written to and required in the aud claim.
	Audience string

	// TTL is the lifetime of signed tokens.
	// Default: 15 minutes
	TTL time.Duration

	// Leeway tolerates clock skew when validating time claims.
	// Default: 30 seconds
	Leeway time.Duration
}

func (c JWTConfig) withDefaults() (JWTConfig, error) {
	if len(c.Secret) < MinSecretLength {
		return c, fmt.Errorf("%w: need at least %d bytes", ErrWeakSecret, MinSecretLength)
	}
	if c.TTL <= 0 {
		c.TTL = 15 * time.Minute
	}
	if c.Leeway <= 0 {
		c.Leeway = 30 * time.Second
	}
	return c, nil
}

// Claims are the claims carried by healthops tokens.
type Claims struct {
	Roles []string `json:"roles,omitempty"`
	jwt.RegisteredClaims
}

// Signer issues HS256 tokens.
type Signer struct {
	config JWTConfig
	now    func() time.Time
}

// NewSigner creates a signer.
func NewSigner(config JWTConfig) (*Signer, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}
	return &Signer{config: cfg, now: time.Now}, nil
}

// Sign issues a token for subject with the given roles.
func (s *Signer) Sign(subject string, roles ...string) (string, time.Time, error) {
	now := s.now()
	expires := now.Add(s.config.TTL)

	claims := Claims{
		Roles: roles,
		RegisteredClaims: jwt.RegisteredClaims{
			Subject:   subject,
			Issuer:    s.config.Issuer,
			IssuedAt:  jwt.NewNumericDate(now),
			NotBefore: jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(expires),
		},
	}
	if s.config.Audience != "" {
		claims.Audience = jwt.ClaimStrings{s.config.Audience}
	}

	token, err := jwt.NewWithClaims(jwt.SigningMethodHS256, claims).SignedString(s.config.Secret)
	if err != nil {
		return "", time.Time{}, fmt.Errorf("jwt: sign: %w", err)
	}
	return token, expires, nil
}

// TokenSource hands out a cached service token, re-signing shortly before it
// expires. It is safe for concurrent use.
type TokenSource struct {
	signer  *Signer
	subject string
	roles   []string

	mu      sync.Mutex
	token   string
	expires time.Time
}

// NewTokenSource creates a token source for subject.
func NewTokenSource(signer *Signer, subject string, roles ...string) *TokenSource {
	return &TokenSource{signer: signer, subject: subject, roles: roles}
}

// Token returns a valid token.
func (ts *TokenSource) Token() (string, error) {
	ts.mu.Lock()
	defer ts.mu.Unlock()

	// Refresh once less than a fifth of the lifetime remains.
	margin := ts.signer.config.TTL / 5
	if ts.token != "" && ts.signer.now().Add(margin).Before(ts.expires) {
		return ts.token, nil
	}

	token, expires, err := ts.signer.Sign(ts.subject, ts.roles...)
	if err != nil {
		return "", err
	}
	ts.token, ts.expires = token, expires
	return token, nil
}

// Verifier validates HS256 tokens.
type Verifier struct {
	config JWTConfig
	parser *jwt.Parser
}

// NewVerifier creates a verifier.
func NewVerifier(config JWTConfig) (*Verifier, error) {
	cfg, err := config.withDefaults()
	if err != nil {
		return nil, err
	}

	opts := []jwt.ParserOption{
		jwt.WithValidMethods([]string{jwt.SigningMethodHS256.Alg()}),
		jwt.WithLeeway(cfg.Leeway),
		jwt.WithExpirationRequired(),
	}
	if cfg.Issuer != "" {
		opts = append(opts, jwt.WithIssuer(cfg.Issuer))
	}
	if cfg.Audience != "" {
		opts = append(opts, jwt.WithAudience(cfg.Audience))
	}

	return &Verifier{config: cfg, parser: jwt.NewParser(opts...)}, nil
}

// Verify parses a raw token and returns the identity it carries.
func (v *Verifier) Verify(raw string) (*Identity, error) {
	raw = strings.TrimSpace(raw)
	if raw == "" {
		return nil, ErrMissingCredentials
	}

	var claims Claims
	_, err := v.parser.ParseWithClaims(raw, &claims, func(*jwt.Token) (any, error) {
		return v.config.Secret, nil
	})
	if err != nil {
		switch {
		case errors.Is(err, jwt.ErrTokenExpired):
			return nil, fmt.Errorf("%w: %w", ErrTokenExpired, err)
		case errors.Is(err, jwt.ErrTokenMalformed):
			return nil, fmt.Errorf("%w: %w", ErrTokenMalformed, err)
		default:
			return nil, fmt.Errorf("%w: %w", ErrInvalidCredentials, err)
		}
	}

	id := &Identity{
		Principal: claims.Subject,
		Roles:     slices.Clone(claims.Roles),
		Method:    AuthMethodJWT,
	}
	if claims.ExpiresAt != nil {
		id.ExpiresAt = claims.ExpiresAt.Time
	}
	if claims.IssuedAt != nil {
		id.IssuedAt = claims.IssuedAt.Time
	}
	return id, nil
}
