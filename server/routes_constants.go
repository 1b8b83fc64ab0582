package server

const (
	RouteHealth = "/health"

	RouteLogin    = "/api/auth/github/login"
	RouteCallback = "/api/auth/github/callback"
	RouteLogout   = "/api/auth/logout"
	RouteMe       = "/api/auth/me"

	RouteRepos        = "/api/auth/github/repos"
	RouteUserRepos    = "/api/auth/github/users/{username}/repos"
	RouteOrgRepos     = "/api/auth/github/orgs/{org}/repos"
	RouteRepo         = "/api/auth/github/repos/{owner}/{repo}"
	RoutePulls        = "/api/auth/github/repos/{owner}/{repo}/pulls"
	RoutePullComments = "/api/auth/github/repos/{owner}/{repo}/pulls/{number}/comments"
	RouteCommit       = "/api/auth/github/repos/{owner}/{repo}/commits/{sha}"
)
