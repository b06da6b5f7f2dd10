// Package config loads process configuration from the environment exactly
// once at startup. Components receive the resulting value by injection and
// never read ambient environment state themselves.
package config

import (
	"errors"
	"fmt"
	"net/url"
	"strings"

	"github.com/kelseyhightower/envconfig"
)

// Config carries every externally supplied setting the server needs.
type Config struct {
	GithubClientID     string `envconfig:"GITHUB_CLIENT_ID" required:"true"`
	GithubClientSecret string `envconfig:"GITHUB_CLIENT_SECRET" required:"true"`
	GithubRedirectURI  string `envconfig:"GITHUB_REDIRECT_URI" required:"true"`

	// Membership configuration consulted by the authorization middleware.
	GithubAuthzOrg    string `envconfig:"GITHUB_AUTHZ_ORG"`
	GithubAdminsTeam  string `envconfig:"GITHUB_ADMINS_TEAM"`
	GithubAuthorsTeam string `envconfig:"GITHUB_AUTHORS_TEAM"`
	GithubCollabRepo  string `envconfig:"GITHUB_COLLAB_REPO"`

	SessionSecret string `envconfig:"SESSION_SECRET" required:"true"`

	// WebappOrigin is both the post-login redirect target and the single
	// origin allowed by CORS.
	WebappOrigin string `envconfig:"WEBAPP_ORIGIN" default:"http://localhost:3000"`

	Hostname string `envconfig:"HOSTNAME" default:""`
	Port     int    `envconfig:"PORT" default:"8080"`

	Postgres PostgresConfig
}

// PostgresConfig describes the resource store connection. A full DSN wins
// over the individual parts.
type PostgresConfig struct {
	DSN      string `envconfig:"PG_DSN"`
	User     string `envconfig:"POSTGRES_USER"`
	Password string `envconfig:"POSTGRES_PASSWORD"`
	Database string `envconfig:"POSTGRES_DB"`
	Host     string `envconfig:"POSTGRES_HOST" default:"localhost"`
	Port     int    `envconfig:"POSTGRES_PORT" default:"5432"`
}

// Load reads and validates configuration from the environment.
func Load() (Config, error) {
	var cfg Config
	if err := envconfig.Process("", &cfg); err != nil {
		return Config{}, err
	}
	if err := cfg.validate(); err != nil {
		return Config{}, err
	}
	return cfg, nil
}

func (c Config) validate() error {
	if strings.TrimSpace(c.SessionSecret) == "" {
		return errors.New("config: SESSION_SECRET must not be blank")
	}
	if _, err := url.Parse(c.WebappOrigin); err != nil {
		return fmt.Errorf("config: invalid WEBAPP_ORIGIN: %w", err)
	}
	if c.Postgres.DSN == "" && c.Postgres.Database == "" {
		return errors.New("config: either PG_DSN or POSTGRES_DB is required")
	}
	return nil
}

// ListenAddr returns the host:port the HTTP server binds to.
func (c Config) ListenAddr() string {
	return fmt.Sprintf("%s:%d", c.Hostname, c.Port)
}

// StoreDSN returns the PostgreSQL connection string, composing one from the
// component variables when PG_DSN is not set.
func (c Config) StoreDSN() string {
	if c.Postgres.DSN != "" {
		return c.Postgres.DSN
	}
	u := url.URL{
		Scheme: "postgres",
		Host:   fmt.Sprintf("%s:%d", c.Postgres.Host, c.Postgres.Port),
		Path:   "/" + c.Postgres.Database,
	}
	if c.Postgres.User != "" {
		if c.Postgres.Password != "" {
			u.User = url.UserPassword(c.Postgres.User, c.Postgres.Password)
		} else {
			u.User = url.User(c.Postgres.User)
		}
	}
	return u.String()
}
