package config

import "time"

type SessionConfig interface {
	GetSessionSecretKey() string
	GetSessionLifetime() time.Duration
	GetCookieSecure() bool
}

var _ SessionConfig = EnvVars{}

func (e EnvVars) GetSessionSecretKey() string {
	return e.SessionSecretKey
}

func (e EnvVars) GetSessionLifetime() time.Duration {
	if e.SessionLifetimeSeconds <= 0 {
		return time.Hour
	}
	return time.Duration(e.SessionLifetimeSeconds) * time.Second
}

func (e EnvVars) GetCookieSecure() bool {
	return e.CookieSecure
}
