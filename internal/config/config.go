// Package config loads the authcored daemon configuration from a YAML
// file and AUTHCORE_-prefixed environment variables.
package config

import (
	"encoding/base64"
	"errors"
	"fmt"
	"time"

	"github.com/classtape/authcore"
	"github.com/classtape/authcore/mail"
	"github.com/classtape/authcore/store/postgres"
)

// App identifies the running build.
type App struct {
	Name    string `mapstructure:"name"`
	Env     string `mapstructure:"env"`
	Version string `mapstructure:"version"`
}

// Server holds the HTTP listener settings.
type Server struct {
	Addr             string        `mapstructure:"addr"`
	ReadTimeout      time.Duration `mapstructure:"read_timeout"`
	WriteTimeout     time.Duration `mapstructure:"write_timeout"`
	IdleTimeout      time.Duration `mapstructure:"idle_timeout"`
	GracefulTimeout  time.Duration `mapstructure:"graceful_timeout"`
	ReqBodySizeLimit int64         `mapstructure:"req_body_size_limit"`
	SecureCookies    bool          `mapstructure:"secure_cookies"`
	// CSRFKey is the base64-encoded 32-byte CSRF authentication key.
	CSRFKey    string `mapstructure:"csrf_key"`
	CSRFMaxAge int    `mapstructure:"csrf_max_age"`
}

// Auth holds the token and account lifecycle settings.
type Auth struct {
	// SigningSecret is the base64-encoded HS256 key.
	SigningSecret     string        `mapstructure:"signing_secret"`
	Issuer            string        `mapstructure:"issuer"`
	AccessTTL         time.Duration `mapstructure:"access_ttl"`
	VerifiedAccessTTL time.Duration `mapstructure:"verified_access_ttl"`
	RefreshTTL        time.Duration `mapstructure:"refresh_ttl"`
	VerificationTTL   time.Duration `mapstructure:"verification_ttl"`
	RequireVerified   bool          `mapstructure:"require_verified"`
}

// Redis selects the optional redis refresh store. When Addr is empty the
// daemon keeps refresh records in postgres.
type Redis struct {
	Addr     string `mapstructure:"addr"`
	Password string `mapstructure:"password"`
	DB       int    `mapstructure:"db"`
}

// Log holds logger settings.
type Log struct {
	Level  string `mapstructure:"level"`
	Pretty bool   `mapstructure:"pretty"`
}

// Config is the root daemon configuration.
type Config struct {
	App    App             `mapstructure:"app"`
	Server Server          `mapstructure:"server"`
	Auth   Auth            `mapstructure:"auth"`
	DB     postgres.Config `mapstructure:"db"`
	Redis  Redis           `mapstructure:"redis"`
	Mail   mail.Config     `mapstructure:"mail"`
	Log    Log             `mapstructure:"log"`
}

// CoreConfig converts the daemon settings into the service configuration.
func (c *Config) CoreConfig() (authcore.Config, error) {
	core := authcore.DefaultConfig()
	core.Production = c.App.Env == "production"
	core.Token.Issuer = c.Auth.Issuer
	core.Token.AccessTTL = c.Auth.AccessTTL
	core.Token.VerifiedAccessTTL = c.Auth.VerifiedAccessTTL
	core.Refresh.TTL = c.Auth.RefreshTTL
	core.Verification.TTL = c.Auth.VerificationTTL
	core.Account.RequireVerified = c.Auth.RequireVerified

	if c.Auth.SigningSecret != "" {
		secret, err := base64.StdEncoding.DecodeString(c.Auth.SigningSecret)
		if err != nil {
			return core, fmt.Errorf("decode signing secret: %w", err)
		}
		core.Token.SigningSecret = secret
	}
	return core, nil
}

// CSRFKey decodes the base64 CSRF key.
func (c *Config) CSRFKey() ([]byte, error) {
	if c.Server.CSRFKey == "" {
		return nil, errors.New("server.csrf_key is required")
	}
	key, err := base64.StdEncoding.DecodeString(c.Server.CSRFKey)
	if err != nil {
		return nil, fmt.Errorf("decode csrf key: %w", err)
	}
	if len(key) != 32 {
		return nil, errors.New("server.csrf_key must decode to 32 bytes")
	}
	return key, nil
}
