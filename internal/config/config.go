package config

type Config interface {
	EnvConfig
	CorsConfig
	GithubConfig
	SessionConfig
}

type EnvConfig interface {
	GetHost() string
	GetPort() string
	GetListenAddr() string
	GetAppName() string
	GetEnv() string
}

type CorsConfig interface {
	GetAllowedOrigins() AllowedOrigins
	GetAllowedMethods() string
	GetAllowedHeaders() string
}

type mainConfig struct {
	EnvVars
}

// New builds the configuration from code defaults, an optional YAML file
// (pointed at by CONFIG_FILE) and environment variables, in that order.
// Environment variables win. Missing GitHub credentials are a hard error.
func New() (Config, error) {
	vars, err := loadEnvVars()
	if err != nil {
		return nil, err
	}
	if err := vars.validate(); err != nil {
		return nil, err
	}
	return mainConfig{vars}, nil
}
