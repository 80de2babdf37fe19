// Package testing provides a mock auth issuer for exercising token-gated
// endpoints without a real auth platform. It serves a JWKS document from an
// httptest server and signs tokens that validate against it.
package testing

import (
	"context"
	"net/http"
	"net/http/httptest"
	"time"

	jwt "github.com/golang-jwt/jwt/v5"

	jwtkit "github.com/daybeamapp/golfkit/jwt"
)

// TestIssuer runs a JWKS endpoint at /.well-known/jwks.json and mints
// tokens signed by the matching key. Call Close when done.
type TestIssuer struct {
	server   *httptest.Server
	signer   *jwtkit.RSASigner
	audience string
}

func NewTestIssuer() *TestIssuer {
	return NewTestIssuerWithAudience("golfkit-test")
}

func NewTestIssuerWithAudience(audience string) *TestIssuer {
	signer, err := jwtkit.NewRSASigner(2048, "test-key-1")
	if err != nil {
		panic("failed to create RSA signer: " + err.Error())
	}
	ti := &TestIssuer{signer: signer, audience: audience}

	mux := http.NewServeMux()
	mux.HandleFunc("/.well-known/jwks.json", ti.handleJWKS)
	ti.server = httptest.NewServer(mux)
	return ti
}

// URL returns the issuer's base URL.
func (ti *TestIssuer) URL() string { return ti.server.URL }

// JWKSURL returns the URL serving the key set; point a jwtkit.Verifier here.
func (ti *TestIssuer) JWKSURL() string { return ti.server.URL + "/.well-known/jwks.json" }

// Audience returns the audience claim this issuer stamps on tokens.
func (ti *TestIssuer) Audience() string { return ti.audience }

func (ti *TestIssuer) Close() {
	if ti.server != nil {
		ti.server.Close()
	}
}

func (ti *TestIssuer) handleJWKS(w http.ResponseWriter, _ *http.Request) {
	key := jwtkit.RSAPublicToJWK(ti.signer.PublicKey(), ti.signer.KID(), ti.signer.Algorithm())
	jwtkit.ServeJWKS(w, jwtkit.JWKS{Keys: []jwtkit.JWK{key}})
}

// CreateToken mints a valid token for the user.
func (ti *TestIssuer) CreateToken(userID string) string {
	return ti.CreateTokenWithClaims(userID, nil)
}

// CreateTokenWithClaims mints a token with extra claims merged over the
// standard set (sub, iss, aud, exp, iat).
func (ti *TestIssuer) CreateTokenWithClaims(userID string, extraClaims map[string]any) string {
	now := time.Now()
	claims := jwt.MapClaims{
		"sub": userID,
		"iss": ti.URL(),
		"aud": ti.audience,
		"exp": now.Add(time.Hour).Unix(),
		"iat": now.Unix(),
	}
	for k, v := range extraClaims {
		claims[k] = v
	}
	token, err := ti.signer.Sign(context.Background(), claims)
	if err != nil {
		panic("failed to sign token: " + err.Error())
	}
	return token
}

// CreateExpiredToken mints a token that expired an hour ago.
func (ti *TestIssuer) CreateExpiredToken(userID string) string {
	return ti.CreateTokenWithClaims(userID, map[string]any{
		"exp": time.Now().Add(-time.Hour).Unix(),
	})
}
