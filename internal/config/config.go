package config

import (
	"fmt"
	"os"
	"strings"
	"time"
)

// Config holds everything the pipeline needs, read once at startup and
// passed explicitly. Pipeline packages never touch the environment.
type Config struct {
	// GitHub API token used for authenticated requests
	GitHubToken string

	// Account or organization that owns the repositories
	Owner string

	// Repository names to ingest, in order
	Repos []string

	Database Database

	Retry Retry
}

// Database holds PostgreSQL connection settings
type Database struct {
	Host     string
	Name     string
	User     string
	Password string
}

// Retry bounds the rate-limit retry loop
type Retry struct {
	MaxAttempts int
	Floor       time.Duration
	Ceil        time.Duration
}

// FromEnv builds a Config from environment variables. Storage settings
// default to local values; token, owner and repository list are required.
func FromEnv() (*Config, error) {
	cfg := &Config{
		GitHubToken: os.Getenv("GITHUB_TOKEN"),
		Owner:       os.Getenv("GITHUB_OWNER"),
		Repos:       splitRepos(os.Getenv("GITHUB_REPOS")),
		Database: Database{
			Host:     envOr("DB_HOST", "localhost"),
			Name:     envOr("POSTGRES_DB", "devpulse"),
			User:     envOr("POSTGRES_USER", "devpulse"),
			Password: envOr("POSTGRES_PASSWORD", "devpulse"),
		},
		Retry: Retry{
			MaxAttempts: 10,
			Floor:       10 * time.Second,
			Ceil:        time.Minute,
		},
	}

	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// Validate reports missing required settings before any network or
// storage activity happens.
func (c *Config) Validate() error {
	var missing []string
	if c.GitHubToken == "" {
		missing = append(missing, "GITHUB_TOKEN")
	}
	if c.Owner == "" {
		missing = append(missing, "GITHUB_OWNER")
	}
	if len(c.Repos) == 0 {
		missing = append(missing, "GITHUB_REPOS")
	}
	if len(missing) > 0 {
		return fmt.Errorf("missing required configuration: %s", strings.Join(missing, ", "))
	}
	return nil
}

// DSN returns the PostgreSQL connection string
func (d Database) DSN() string {
	return fmt.Sprintf("postgres://%s:%s@%s/%s?sslmode=disable",
		d.User, d.Password, d.Host, d.Name)
}

func splitRepos(s string) []string {
	var repos []string
	for _, r := range strings.Split(s, ",") {
		if r = strings.TrimSpace(r); r != "" {
			repos = append(repos, r)
		}
	}
	return repos
}

func envOr(key, fallback string) string {
	if v := os.Getenv(key); v != "" {
		return v
	}
	return fallback
}
