package config

import "strings"

type AllowedOrigins map[string]struct{}

func (a AllowedOrigins) IsAllowedOrigin(origin string) bool {
	_, ok := a[origin]
	return ok
}

func (a AllowedOrigins) String() string {
	var origins []string
	for k := range a {
		origins = append(origins, k)
	}
	return strings.Join(origins, ", ")
}

var _ CorsConfig = EnvVars{}

func (e EnvVars) GetAllowedOrigins() AllowedOrigins {
	origins := make(AllowedOrigins, len(e.CorsOrigins))
	for _, origin := range e.CorsOrigins {
		origins[strings.TrimSpace(origin)] = struct{}{}
	}
	return origins
}

func (EnvVars) GetAllowedMethods() string {
	return "GET, POST, PUT, PATCH, DELETE"
}

func (EnvVars) GetAllowedHeaders() string {
	return "Content-Type, Authorization"
}
