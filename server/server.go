package server

import (
	"fmt"
	"html/template"
	"net/http"
	"strings"

	"github.com/jrsteele09/funeral-coordinator/internal/canva"
	"github.com/jrsteele09/funeral-coordinator/internal/config"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

type Server struct {
	env    string // Environment (e.g., "DEV", "PRODUCTION")
	mux    *http.ServeMux
	routes []string
	config config.Config

	// integration is nil when the Canva variables are incomplete; every
	// Canva route then answers 503.
	integration *config.IntegrationConfig
	pkce        *session.Store[session.PkceSession]
	tokens      *session.Store[session.TokenSession]
	flow        *canva.Flow
	gateway     *canva.Gateway
	correlation *canva.CorrelationVerifier

	redirectPage *template.Template
}

// New wires the Canva integration from lookup (os.LookupEnv in production)
// and registers every route. A missing integration configuration is not an
// error: the server starts and reports itself as not configured.
func New(cfg config.Config, lookup config.LookupFunc) (*Server, error) {
	redirectPage, err := ParseTemplate("redirect.html")
	if err != nil {
		return nil, fmt.Errorf("[Server New] failed to parse redirect template: %w", err)
	}

	s := &Server{
		env:          cfg.GetEnv(),
		mux:          http.NewServeMux(),
		config:       cfg,
		redirectPage: redirectPage,
	}

	if err := s.initCanva(lookup); err != nil {
		return nil, fmt.Errorf("[Server New] failed to initialise the Canva integration: %w", err)
	}

	s.initRoutes()
	s.logRoutes()

	return s, nil
}

func (s *Server) initCanva(lookup config.LookupFunc) error {
	integration := config.TryResolveIntegration(lookup, s.config.IsProduction())
	timeout := canva.WithTimeout(s.config.GetHTTPTimeout())

	var secret, audience string
	correlation := config.ResolveCorrelation(lookup)
	if integration != nil {
		secret = integration.SessionSecret
		audience = integration.ClientID
		correlation = config.CorrelationConfig{JWKSURL: integration.JWKSURL, JWTIssuer: integration.JWTIssuer}
	}

	s.integration = integration
	s.pkce = session.NewPkceStore(session.Options{
		Secret: secret,
		TTL:    s.config.GetPkceSessionTTL(),
		Secure: s.config.IsProduction(),
	})
	s.tokens = session.NewTokenStore(session.Options{
		Secret: secret,
		TTL:    s.config.GetTokenSessionTTL(),
		Secure: s.config.IsProduction(),
	})
	s.correlation = canva.NewCorrelationVerifier(correlation, audience, timeout)

	if integration == nil {
		return nil
	}

	client := canva.NewTokenClient(integration, timeout)
	refresher := canva.NewRefresher(client, s.tokens)
	gateway, err := canva.NewGateway(integration, s.tokens, refresher, timeout)
	if err != nil {
		return err
	}
	s.flow = canva.NewFlow(integration, client, s.pkce, s.tokens)
	s.gateway = gateway
	return nil
}

// Configured reports whether the Canva integration resolved at startup.
func (s *Server) Configured() bool {
	return s.integration != nil
}

func (s *Server) ServeHTTP(w http.ResponseWriter, r *http.Request) {
	s.mux.ServeHTTP(w, r)
}

func (s *Server) RegisterRouteHandler(pattern string, handler http.Handler) {
	s.routes = append(s.routes, pattern)
	s.mux.Handle(pattern, handler)
}

func (s *Server) RegisterRouteFunc(pattern string, handler func(http.ResponseWriter, *http.Request)) {
	s.routes = append(s.routes, pattern)
	s.mux.HandleFunc(pattern, handler)
}

func (s *Server) logRoutes() {
	if s.env != "DEV" {
		return
	}
	for _, route := range s.routes {
		parts := strings.SplitN(route, " ", 2)

		if len(parts) > 1 {
			logRoute(parts[0], parts[1])
		} else {
			logRoute("", parts[0])
		}
	}
}

func logRoute(method, path string) {
	color, ok := methodColors[method]
	if !ok {
		color = Gray
	}
	log.Debug().Msgf("[%s %-7s%s] %s", color, method, ResetColor, path)
}

// Helper function to determine the scheme (http/https)
func getScheme(r *http.Request) string {
	if r.TLS != nil {
		return "https"
	}
	if scheme := r.Header.Get("X-Forwarded-Proto"); scheme != "" {
		return strings.TrimSpace(strings.Split(scheme, ",")[0])
	}
	return "http"
}

// requestOrigin is the scheme://host the browser used to reach us.
func requestOrigin(r *http.Request) string {
	return getScheme(r) + "://" + r.Host
}
