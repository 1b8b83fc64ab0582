// Package server wires the HTTP surface: OAuth login/callback, session-backed
// auth routes and the GitHub proxy routes. Dependencies are injected through
// the constructor; there is no process-wide state.
package server

import (
	"net/http"

	"github.com/pkg/errors"
	"github.com/rs/zerolog/log"

	"github.com/crag-project/crag-server/githubapi"
	"github.com/crag-project/crag-server/githuboauth"
	"github.com/crag-project/crag-server/internal/config"
	"github.com/crag-project/crag-server/sessions"
)

// GatewayFactory builds a GitHub API gateway for one access token. Injected
// so tests can point the gateway at a stub server.
type GatewayFactory func(token string) *githubapi.Client

type Server struct {
	env        string
	mux        *http.ServeMux
	routes     []string
	config     config.Config
	sessions   *sessions.Store
	oauth      *githuboauth.Service
	newGateway GatewayFactory
}

// ServerOption defines a function type to modify the Server instance.
type ServerOption func(*Server)

// WithGatewayFactory overrides how per-token GitHub gateways are built.
func WithGatewayFactory(factory GatewayFactory) ServerOption {
	return func(s *Server) {
		s.newGateway = factory
	}
}

func New(cfg config.Config, store *sessions.Store, oauthService *githuboauth.Service, options ...ServerOption) (*Server, error) {
	if cfg == nil {
		return nil, errors.New("[Server New] config is required")
	}
	if store == nil {
		return nil, errors.New("[Server New] session store is required")
	}
	if oauthService == nil {
		return nil, errors.New("[Server New] oauth service is required")
	}

	s := &Server{
		env:      cfg.GetEnv(),
		mux:      http.NewServeMux(),
		config:   cfg,
		sessions: store,
		oauth:    oauthService,
		newGateway: func(token string) *githubapi.Client {
			return githubapi.New(token)
		},
	}

	for _, opt := range options {
		opt(s)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return // Skip logging in non-development environments
	}
	for _, route := range s.routes {
		log.Debug().Str("route", route).Msg("registered")
	}
}
