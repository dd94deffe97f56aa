package server

// Route path constants
const (
	RouteLogin    = "/auth/login"
	RouteCallback = "/auth/callback"
	RouteLogout   = "/auth/logout"

	// RouteHome is where a completed login lands when no return URL was
	// tracked.
	RouteHome = "/"
)
