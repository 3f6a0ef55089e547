package openid_test

import (
	"context"
	"crypto/rand"
	"crypto/rsa"
	"testing"
	"time"

	"github.com/MicahParks/keyfunc/v2"
	"github.com/golang-jwt/jwt/v5"
	lodging "github.com/goliatone/go-lodging"
	"github.com/goliatone/go-lodging/provider/openid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

const testKID = "test-key"

type testKeys struct {
	private *rsa.PrivateKey
	jwks    *keyfunc.JWKS
}

func newTestKeys(t *testing.T) *testKeys {
	t.Helper()

	private, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)

	given := keyfunc.NewGivenCustom(&private.PublicKey, keyfunc.GivenKeyOptions{
		Algorithm: "RS256",
	})

	return &testKeys{
		private: private,
		jwks:    keyfunc.NewGiven(map[string]keyfunc.GivenKey{testKID: given}),
	}
}

func (k *testKeys) sign(t *testing.T, claims jwt.Claims) string {
	t.Helper()

	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKID

	signed, err := token.SignedString(k.private)
	require.NoError(t, err)
	return signed
}

func newTestVerifier(t *testing.T, keys *testKeys) *openid.Verifier {
	t.Helper()

	verifier, err := openid.NewVerifierWithKeyfunc(openid.Config{
		Issuer:   "https://issuer.example.com",
		Audience: []string{"lodging"},
	}, keys.jwks)
	require.NoError(t, err)
	return verifier
}

type providerClaims struct {
	jwt.RegisteredClaims
	Email         string `json:"email"`
	EmailVerified bool   `json:"email_verified"`
}

func validClaims(now time.Time) providerClaims {
	return providerClaims{
		RegisteredClaims: jwt.RegisteredClaims{
			Issuer:    "https://issuer.example.com",
			Subject:   "firebase-uid-123",
			Audience:  jwt.ClaimStrings{"lodging"},
			IssuedAt:  jwt.NewNumericDate(now),
			ExpiresAt: jwt.NewNumericDate(now.Add(time.Hour)),
		},
		Email:         "peggy@example.com",
		EmailVerified: true,
	}
}

func TestVerifierAcceptsValidAssertion(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	assertion := keys.sign(t, validClaims(time.Now()))

	identity, err := verifier.Verify(context.Background(), assertion)
	require.NoError(t, err)
	assert.Equal(t, "firebase-uid-123", identity.ID())
	assert.Equal(t, "peggy@example.com", identity.Email())
	assert.True(t, identity.EmailVerified())
}

func TestVerifierRejectsExpiredAssertion(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	claims := validClaims(time.Now().Add(-2 * time.Hour))
	assertion := keys.sign(t, claims)

	_, err := verifier.Verify(context.Background(), assertion)
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "EXPIRED_ASSERTION"))
}

func TestVerifierRejectsForeignSignature(t *testing.T) {
	keys := newTestKeys(t)
	foreign := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	assertion := foreign.sign(t, validClaims(time.Now()))

	_, err := verifier.Verify(context.Background(), assertion)
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "INVALID_ASSERTION"))
}

func TestVerifierRejectsWrongIssuer(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	claims := validClaims(time.Now())
	claims.Issuer = "https://evil.example.com"
	assertion := keys.sign(t, claims)

	_, err := verifier.Verify(context.Background(), assertion)
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "INVALID_ASSERTION"))
}

func TestVerifierRejectsMissingSubject(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	claims := validClaims(time.Now())
	claims.Subject = ""
	assertion := keys.sign(t, claims)

	_, err := verifier.Verify(context.Background(), assertion)
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "INVALID_ASSERTION"))
}

func TestVerifierRejectsEmptyAssertion(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	_, err := verifier.Verify(context.Background(), "")
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "INVALID_ASSERTION"))
}

func TestVerifierRejectsUnexpectedAlgorithm(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	token := jwt.NewWithClaims(jwt.SigningMethodHS256, validClaims(time.Now()))
	token.Header["kid"] = testKID
	assertion, err := token.SignedString([]byte("shared-secret"))
	require.NoError(t, err)

	_, err = verifier.Verify(context.Background(), assertion)
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "INVALID_ASSERTION"))
}

func TestVerifierHonorsDeadline(t *testing.T) {
	keys := newTestKeys(t)
	verifier := newTestVerifier(t, keys)

	ctx, cancel := context.WithDeadline(context.Background(), time.Now().Add(-time.Second))
	defer cancel()

	_, err := verifier.Verify(ctx, keys.sign(t, validClaims(time.Now())))
	require.Error(t, err)
	assert.True(t, lodging.HasTextCode(err, "VERIFICATION_TIMEOUT"))
}

func TestVerifierRequiresIssuerConfig(t *testing.T) {
	keys := newTestKeys(t)

	_, err := openid.NewVerifierWithKeyfunc(openid.Config{}, keys.jwks)
	assert.Error(t, err)

	_, err = openid.NewVerifierWithKeyfunc(openid.Config{Issuer: "not-a-url"}, keys.jwks)
	assert.Error(t, err)
}
