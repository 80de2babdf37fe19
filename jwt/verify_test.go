package jwtkit_test

import (
	"context"
	"testing"

	jwtkit "github.com/daybeamapp/golfkit/jwt"
	kittest "github.com/daybeamapp/golfkit/testing"
)

func TestVerifierRoundTrip(t *testing.T) {
	issuer := kittest.NewTestIssuer()
	defer issuer.Close()

	v := jwtkit.NewVerifier(jwtkit.VerifierConfig{
		JWKSURL:  issuer.JWKSURL(),
		Issuer:   issuer.URL(),
		Audience: issuer.Audience(),
	})

	sub, err := v.Verify(context.Background(), issuer.CreateToken("u1"))
	if err != nil {
		t.Fatal(err)
	}
	if sub != "u1" {
		t.Fatalf("expected subject u1, got %q", sub)
	}
}

func TestVerifierRejectsWrongAudience(t *testing.T) {
	issuer := kittest.NewTestIssuer()
	defer issuer.Close()

	v := jwtkit.NewVerifier(jwtkit.VerifierConfig{
		JWKSURL:  issuer.JWKSURL(),
		Audience: "some-other-app",
	})
	if _, err := v.Verify(context.Background(), issuer.CreateToken("u1")); err == nil {
		t.Fatal("expected audience mismatch to fail")
	}
}

func TestVerifierRejectsExpired(t *testing.T) {
	issuer := kittest.NewTestIssuer()
	defer issuer.Close()

	v := jwtkit.NewVerifier(jwtkit.VerifierConfig{JWKSURL: issuer.JWKSURL()})
	if _, err := v.Verify(context.Background(), issuer.CreateExpiredToken("u1")); err == nil {
		t.Fatal("expected expired token to fail")
	}
}
