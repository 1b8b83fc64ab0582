package config

import (
	"fmt"
	"os"

	"github.com/caarlos0/env/v11"
	"github.com/rs/zerolog/log"
	"gopkg.in/yaml.v3"
)

const configFileEnvVar = "CONFIG_FILE"

type EnvVars struct {
	Host    string `env:"HOST" yaml:"HOST"`
	Port    string `env:"PORT" yaml:"PORT"`
	AppName string `env:"APP_NAME" yaml:"APP_NAME"`
	Env     string `env:"ENV" yaml:"ENV"`

	GithubClientID     string `env:"GITHUB_CLIENT_ID" yaml:"GITHUB_CLIENT_ID"`
	GithubClientSecret string `env:"GITHUB_CLIENT_SECRET" yaml:"GITHUB_CLIENT_SECRET"`
	GithubRedirectURI  string `env:"GITHUB_REDIRECT_URI" yaml:"GITHUB_REDIRECT_URI"`

	SessionSecretKey       string `env:"SESSION_SECRET_KEY" yaml:"SESSION_SECRET_KEY"`
	SessionLifetimeSeconds int    `env:"SESSION_LIFETIME" yaml:"SESSION_LIFETIME"`
	CookieSecure           bool   `env:"COOKIE_SECURE" yaml:"COOKIE_SECURE"`

	CorsOrigins []string `env:"CORS_ORIGINS" envSeparator:"," yaml:"CORS_ORIGINS"`
}

func defaults() EnvVars {
	return EnvVars{
		Host:                   "127.0.0.1",
		Port:                   "8001",
		AppName:                "CRAG Server",
		Env:                    "DEV",
		GithubRedirectURI:      "http://127.0.0.1:8001/api/auth/github/callback",
		SessionLifetimeSeconds: 3600,
		CorsOrigins:            []string{"*"},
	}
}

func loadEnvVars() (EnvVars, error) {
	vars := defaults()

	if path := os.Getenv(configFileEnvVar); path != "" {
		raw, err := os.ReadFile(path)
		if err != nil {
			return EnvVars{}, fmt.Errorf("[config loadEnvVars] reading %q: %w", path, err)
		}
		if err := yaml.Unmarshal(raw, &vars); err != nil {
			return EnvVars{}, fmt.Errorf("[config loadEnvVars] parsing %q: %w", path, err)
		}
	}

	// Malformed environment values degrade to whatever was already set
	// rather than aborting startup. Missing secrets are caught by validate.
	if err := env.Parse(&vars); err != nil {
		log.Warn().Err(err).Msg("malformed environment configuration, keeping defaults for unreadable values")
	}

	return vars, nil
}

func (e EnvVars) validate() error {
	if e.GithubClientID == "" {
		return fmt.Errorf("[config validate] GITHUB_CLIENT_ID is required")
	}
	if e.GithubClientSecret == "" {
		return fmt.Errorf("[config validate] GITHUB_CLIENT_SECRET is required")
	}
	return nil
}

var _ EnvConfig = EnvVars{}

func (e EnvVars) GetHost() string {
	return e.Host
}

func (e EnvVars) GetPort() string {
	return e.Port
}

func (e EnvVars) GetListenAddr() string {
	return fmt.Sprintf("%s:%s", e.Host, e.Port)
}

func (e EnvVars) GetAppName() string {
	return e.AppName
}

func (e EnvVars) GetEnv() string {
	return e.Env
}
