package server

// Route path constants
// All application routes are defined here to ensure consistency and prevent typos
const (
	// Canva handshake
	RouteCanvaOAuthStart    = "/api/canva/oauth/start"
	RouteCanvaOAuthCallback = "/api/canva/oauth/callback"

	// Canva session
	RouteCanvaSession = "/api/canva/session"
	RouteCanvaLogout  = "/api/canva/logout"

	// Canva API proxies
	RouteCanvaProfile        = "/api/canva/profile"
	RouteCanvaBrandTemplates = "/api/canva/brand-templates"
	RouteCanvaExports        = "/api/canva/exports"
	RouteCanvaExport         = "/api/canva/exports/{exportId}"

	// Return navigation from Canva
	RouteCanvaReturn = "/api/canva/return"

	// Operations
	RouteHealth  = "/healthz"
	RouteMetrics = "/metrics"
)
