package server

// Route path constants
// The REST contract lives under RouteAPIPrefix so the session client can be
// pointed at "<host>/api".
const (
	RouteAPIPrefix = "/api"

	// Auth Routes
	RouteAuthLogin   = RouteAPIPrefix + "/auth/login"
	RouteAuthRefresh = RouteAPIPrefix + "/auth/refresh"
	RouteAuthMe      = RouteAPIPrefix + "/auth/me"

	// Resource Routes
	RouteCenters = RouteAPIPrefix + "/centers"

	// Operational Routes
	RouteMetrics = "/metrics"
	RouteHealth  = "/healthz"
)
