package lodging

import (
	"time"

	"github.com/caarlos0/env/v11"
	validation "github.com/go-ozzo/ozzo-validation"
)

// AppConfig is the environment-backed Config implementation used by the
// server binary. Library consumers can supply their own Config; this one
// exists so cmd/lodging boots from the process environment alone.
type AppConfig struct {
	SigningKey      string `env:"LODGING_SIGNING_KEY"`
	SessionTTL      int    `env:"LODGING_SESSION_TTL" envDefault:"432000"`
	Issuer          string `env:"LODGING_ISSUER" envDefault:"lodging"`
	Audience        string `env:"LODGING_AUDIENCE" envDefault:"lodging"`
	CookieName      string `env:"LODGING_COOKIE_NAME" envDefault:"session"`
	ProtectedPrefix string `env:"LODGING_PROTECTED_PREFIX" envDefault:"/admin"`
	LoginRoute      string `env:"LODGING_LOGIN_ROUTE" envDefault:"/login"`
	ForbiddenRoute  string `env:"LODGING_FORBIDDEN_ROUTE" envDefault:"/"`
	SecureCookies   bool   `env:"LODGING_SECURE_COOKIES" envDefault:"false"`

	DatabaseDSN string `env:"LODGING_DATABASE_DSN" envDefault:"file::memory:?cache=shared"`
	JWKSURL     string `env:"LODGING_JWKS_URL"`
	ProviderISS string `env:"LODGING_PROVIDER_ISSUER"`
	ListenAddr  string `env:"LODGING_LISTEN_ADDR" envDefault:":3000"`
	Debug       bool   `env:"LODGING_DEBUG" envDefault:"false"`
}

// LoadConfig parses configuration from the process environment.
func LoadConfig() (*AppConfig, error) {
	cfg := &AppConfig{}
	if err := env.Parse(cfg); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate enforces the fields the session layer cannot run without.
func (c *AppConfig) Validate() error {
	return validation.ValidateStruct(c,
		validation.Field(&c.SigningKey, validation.Required, validation.Length(32, 0)),
		validation.Field(&c.SessionTTL, validation.Required, validation.Min(1)),
		validation.Field(&c.CookieName, validation.Required),
	)
}

func (c *AppConfig) GetSigningKey() string      { return c.SigningKey }
func (c *AppConfig) GetSessionTTL() int         { return c.SessionTTL }
func (c *AppConfig) GetIssuer() string          { return c.Issuer }
func (c *AppConfig) GetAudience() []string      { return []string{c.Audience} }
func (c *AppConfig) GetCookieName() string      { return c.CookieName }
func (c *AppConfig) GetProtectedPrefix() string { return c.ProtectedPrefix }
func (c *AppConfig) GetLoginRoute() string      { return c.LoginRoute }
func (c *AppConfig) GetForbiddenRoute() string  { return c.ForbiddenRoute }
func (c *AppConfig) GetSecureCookies() bool     { return c.SecureCookies }

// SessionDuration is the configured TTL as a time.Duration.
func (c *AppConfig) SessionDuration() time.Duration {
	return time.Duration(c.SessionTTL) * time.Second
}
