package server

func (s *Server) initRoutes() {
	s.RegisterRouteFunc("GET "+RouteHealth, s.HealthHandler())

	// OAuth flow and session routes
	s.RegisterRouteFunc("GET "+RouteLogin, ChainMiddleware(s.LoginHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCallback, ChainMiddleware(s.CallbackHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteMe, ChainMiddleware(s.MeHandler(), s.APIMiddleware()...))

	// GitHub proxy routes
	s.RegisterRouteFunc("GET "+RouteRepos, ChainMiddleware(s.ReposHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteUserRepos, ChainMiddleware(s.UserReposHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteOrgRepos, ChainMiddleware(s.OrgReposHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteRepo, ChainMiddleware(s.RepoHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RoutePulls, ChainMiddleware(s.PullsHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("POST "+RoutePullComments, ChainMiddleware(s.PullCommentHandler(), s.APIMiddleware()...))
	s.RegisterRouteFunc("GET "+RouteCommit, ChainMiddleware(s.CommitHandler(), s.APIMiddleware()...))
}
