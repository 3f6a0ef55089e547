// Package openid verifies identity assertions issued by an OpenID
// Connect provider. Assertions are RS256-signed JWTs; signing keys are
// resolved through the provider's JWKS endpoint and refreshed in the
// background.
package openid
