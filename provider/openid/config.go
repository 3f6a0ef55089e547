package openid

import (
	"fmt"
	"net/url"
	"time"

	lodging "github.com/goliatone/go-lodging"
)

// Config holds the provider trust settings.
type Config struct {
	// Issuer is the expected iss claim. Required.
	Issuer string
	// Audience values accepted in the aud claim. Optional; when empty the
	// audience is not checked.
	Audience []string
	// JWKSURL is the provider's key set endpoint. Required unless a key
	// provider is injected directly.
	JWKSURL string

	// RefreshInterval controls background JWKS refresh. Zero disables it.
	RefreshInterval time.Duration
	// RefreshRateLimit bounds refreshes triggered by unknown key IDs.
	RefreshRateLimit time.Duration
	// RefreshTimeout bounds a single JWKS fetch.
	RefreshTimeout time.Duration

	Logger lodging.Logger
}

func (c Config) validate() error {
	if c.Issuer == "" {
		return fmt.Errorf("openid: issuer is required")
	}

	issuerURL, err := url.Parse(c.Issuer)
	if err != nil {
		return fmt.Errorf("openid: invalid issuer URL: %w", err)
	}
	if issuerURL.Scheme == "" || issuerURL.Host == "" {
		return fmt.Errorf("openid: invalid issuer URL: %s", c.Issuer)
	}

	return nil
}

func (c Config) logger() lodging.Logger {
	if c.Logger != nil {
		return c.Logger
	}
	return noopLogger{}
}

type noopLogger struct{}

func (noopLogger) Debug(string, ...any) {}
func (noopLogger) Info(string, ...any)  {}
func (noopLogger) Warn(string, ...any)  {}
func (noopLogger) Error(string, ...any) {}
