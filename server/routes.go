package server

func (s *Server) initRoutes() {
	// HANDSHAKE
	s.RegisterRouteHandler("GET "+RouteCanvaOAuthStart, ChainMiddleware(s.OAuthStartRedirectHandler(), s.HTMLMiddleWare()...))
	s.RegisterRouteHandler("POST "+RouteCanvaOAuthStart, ChainMiddleware(s.OAuthStartHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteCanvaOAuthStart, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCanvaOAuthCallback, ChainMiddleware(s.OAuthCallbackHandler(), s.HTMLMiddleWare()...))

	// SESSION
	s.RegisterRouteHandler("GET "+RouteCanvaSession, ChainMiddleware(s.SessionHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCanvaLogout, ChainMiddleware(s.LogoutHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteCanvaLogout, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	// Canva API, on behalf of the connected user
	s.RegisterRouteHandler("GET "+RouteCanvaProfile, ChainMiddleware(s.ProfileHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCanvaBrandTemplates, ChainMiddleware(s.BrandTemplatesHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("POST "+RouteCanvaExports, ChainMiddleware(s.CreateExportHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteCanvaExports, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteCanvaExport, ChainMiddleware(s.GetExportHandler(), s.APIMiddleware()...))

	// RETURN NAVIGATION
	s.RegisterRouteHandler("POST "+RouteCanvaReturn, ChainMiddleware(s.ReturnHandler(), s.APIMiddleware()...))
	s.RegisterRouteHandler("OPTIONS "+RouteCanvaReturn, ChainMiddleware(s.PreflightHandler(), s.APIMiddleware()...))

	s.RegisterRouteHandler("GET "+RouteHealth, ChainMiddleware(s.HealthHandler(), s.OpsMiddleware()...))
	s.RegisterRouteHandler("GET "+RouteMetrics, ChainMiddleware(s.MetricsHandler(), s.OpsMiddleware()...))
}
