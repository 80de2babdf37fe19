package jwtkit

import (
	"context"
	"errors"
	"sync"
	"time"

	"github.com/lestrrat-go/jwx/v2/jwk"
	jwx "github.com/lestrrat-go/jwx/v2/jwt"
)

// Verifier validates app bearer tokens against the auth platform's JWKS.
// The key set is fetched lazily and cached for a TTL; a stale set is reused
// when a refresh fails so token checks degrade rather than hard-fail.
type Verifier struct {
	jwksURL  string
	issuer   string
	audience string
	cacheTTL time.Duration

	mu        sync.Mutex
	keys      jwk.Set
	fetchedAt time.Time
}

// VerifierConfig configures token validation. Issuer and Audience are
// enforced only when set.
type VerifierConfig struct {
	JWKSURL  string
	Issuer   string
	Audience string
	CacheTTL time.Duration
}

func NewVerifier(cfg VerifierConfig) *Verifier {
	ttl := cfg.CacheTTL
	if ttl <= 0 {
		ttl = 5 * time.Minute
	}
	return &Verifier{
		jwksURL:  cfg.JWKSURL,
		issuer:   cfg.Issuer,
		audience: cfg.Audience,
		cacheTTL: ttl,
	}
}

// Verify validates the raw token and returns its subject (the user id).
func (v *Verifier) Verify(ctx context.Context, rawToken string) (string, error) {
	if rawToken == "" {
		return "", errors.New("jwt: empty token")
	}
	keys, err := v.keySet(ctx)
	if err != nil {
		return "", err
	}
	opts := []jwx.ParseOption{
		jwx.WithKeySet(keys),
		jwx.WithValidate(true),
		jwx.WithContext(ctx),
	}
	if v.issuer != "" {
		opts = append(opts, jwx.WithIssuer(v.issuer))
	}
	if v.audience != "" {
		opts = append(opts, jwx.WithAudience(v.audience))
	}
	token, err := jwx.ParseString(rawToken, opts...)
	if err != nil {
		return "", err
	}
	sub := token.Subject()
	if sub == "" {
		return "", errors.New("jwt: token has no subject")
	}
	return sub, nil
}

func (v *Verifier) keySet(ctx context.Context) (jwk.Set, error) {
	if v.jwksURL == "" {
		return nil, errors.New("jwt: missing jwks url")
	}
	v.mu.Lock()
	defer v.mu.Unlock()
	if v.keys != nil && time.Since(v.fetchedAt) < v.cacheTTL {
		return v.keys, nil
	}
	set, err := jwk.Fetch(ctx, v.jwksURL)
	if err != nil {
		if v.keys != nil {
			return v.keys, nil
		}
		return nil, err
	}
	v.keys = set
	v.fetchedAt = time.Now()
	return set, nil
}
