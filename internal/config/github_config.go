package config

type GithubConfig interface {
	GetGithubClientID() string
	GetGithubClientSecret() string
	GetGithubRedirectURI() string
	GetGithubScopes() []string
}

var _ GithubConfig = EnvVars{}

func (e EnvVars) GetGithubClientID() string {
	return e.GithubClientID
}

func (e EnvVars) GetGithubClientSecret() string {
	return e.GithubClientSecret
}

func (e EnvVars) GetGithubRedirectURI() string {
	return e.GithubRedirectURI
}

func (EnvVars) GetGithubScopes() []string {
	return []string{"repo", "user"}
}
