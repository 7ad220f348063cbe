package config

import (
	"fmt"
	"net/url"
	"os"
	"strings"

	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/utils"
	"github.com/rs/zerolog/log"
)

// Canva environment variables
const (
	CanvaClientIDVar      = "CANVA_CLIENT_ID"
	CanvaClientSecretVar  = "CANVA_CLIENT_SECRET"
	CanvaRedirectURIVar   = "CANVA_REDIRECT_URI"
	CanvaSessionSecretVar = "CANVA_SESSION_SECRET"
	CanvaScopesVar        = "CANVA_SCOPES"
	CanvaAuthorizeURLVar  = "CANVA_AUTHORIZE_URL"
	CanvaTokenURLVar      = "CANVA_TOKEN_URL"
	CanvaAPIURLVar        = "CANVA_API_URL"
	CanvaJWKSURLVar       = "CANVA_JWKS_URL"
	CanvaJWTIssuerVar     = "CANVA_JWT_ISSUER"
)

const (
	DefaultAuthorizeURL = "https://www.canva.com/api/oauth/authorize"
	DefaultTokenURL     = "https://api.canva.com/rest/v1/oauth/token"
	DefaultAPIBaseURL   = "https://api.canva.com/rest"
	DefaultJWKSURL      = "https://api.canva.com/rest/v1/developer/connect/jwks"
	DefaultJWTIssuer    = "https://www.canva.com/connect"

	redirectURIDelimiters = ",; \t\r\n"
	scopeDelimiters       = ", \t\r\n"
)

var DefaultScopes = []string{
	"profile:read",
	"design:meta:read",
	"design:content:read",
	"design:content:write",
	"brandtemplate:meta:read",
	"brandtemplate:content:read",
}

// LookupFunc has the shape of os.LookupEnv.
type LookupFunc func(key string) (string, bool)

// IntegrationConfig holds everything needed to talk to Canva Connect. It is
// resolved once at startup and never mutated afterwards.
type IntegrationConfig struct {
	ClientID      string
	ClientSecret  string
	RedirectURI   string   // First entry of RedirectURIs, used when no origin matches
	RedirectURIs  []string // Every registered callback URI
	AuthorizeURL  string
	TokenURL      string
	APIBaseURL    string
	Scopes        []string
	SessionSecret string
	JWKSURL       string
	JWTIssuer     string
}

// ConfigurationError lists every problem found while resolving the
// integration configuration.
type ConfigurationError struct {
	Missing  []string // Required variables that are absent or blank
	Problems []string // Other validation failures
}

func (e *ConfigurationError) Error() string {
	var parts []string
	if len(e.Missing) > 0 {
		parts = append(parts, "missing required environment variables: "+strings.Join(e.Missing, ", "))
	}
	parts = append(parts, e.Problems...)
	return "canva configuration: " + strings.Join(parts, "; ")
}

func (e *ConfigurationError) Unwrap() error {
	return apperrors.ErrNotConfigured
}

func (e *ConfigurationError) empty() bool {
	return len(e.Missing) == 0 && len(e.Problems) == 0
}

// ResolveIntegration reads the Canva configuration through lookup. Every
// missing or invalid value is reported in one *ConfigurationError.
func ResolveIntegration(lookup LookupFunc) (*IntegrationConfig, error) {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	cfgErr := &ConfigurationError{}

	required := func(key string) string {
		value := normalise(lookup(key))
		if value == "" {
			cfgErr.Missing = append(cfgErr.Missing, key)
		}
		return value
	}

	cfg := &IntegrationConfig{
		ClientID:      required(CanvaClientIDVar),
		ClientSecret:  required(CanvaClientSecretVar),
		SessionSecret: required(CanvaSessionSecretVar),
		AuthorizeURL:  optionalURL(lookup, CanvaAuthorizeURLVar, DefaultAuthorizeURL),
		TokenURL:      optionalURL(lookup, CanvaTokenURLVar, DefaultTokenURL),
		APIBaseURL:    optionalURL(lookup, CanvaAPIURLVar, DefaultAPIBaseURL),
	}
	correlation := ResolveCorrelation(lookup)
	cfg.JWKSURL = correlation.JWKSURL
	cfg.JWTIssuer = correlation.JWTIssuer

	if raw := required(CanvaRedirectURIVar); raw != "" {
		for _, uri := range utils.SplitList(raw, redirectURIDelimiters) {
			if !isAbsoluteURL(uri) {
				cfgErr.Problems = append(cfgErr.Problems, fmt.Sprintf("%s entry %q is not an absolute URL", CanvaRedirectURIVar, uri))
				continue
			}
			cfg.RedirectURIs = append(cfg.RedirectURIs, uri)
		}
		if len(cfg.RedirectURIs) == 0 {
			cfgErr.Problems = append(cfgErr.Problems, CanvaRedirectURIVar+" must include at least one URI")
		} else {
			cfg.RedirectURI = cfg.RedirectURIs[0]
		}
	}

	scopes, ok := lookup(CanvaScopesVar)
	if !ok {
		scopes = strings.Join(DefaultScopes, " ")
	}
	cfg.Scopes = utils.SplitList(utils.StripWrappingQuotes(strings.TrimSpace(scopes)), scopeDelimiters)
	if len(cfg.Scopes) == 0 {
		cfgErr.Problems = append(cfgErr.Problems, CanvaScopesVar+" must include at least one scope")
	}

	if !cfgErr.empty() {
		return nil, cfgErr
	}
	return cfg, nil
}

// CorrelationConfig is the subset needed to verify return-navigation tokens.
// It never fails: both values have public defaults.
type CorrelationConfig struct {
	JWKSURL   string
	JWTIssuer string
}

func ResolveCorrelation(lookup LookupFunc) CorrelationConfig {
	if lookup == nil {
		lookup = os.LookupEnv
	}
	return CorrelationConfig{
		JWKSURL:   optionalURL(lookup, CanvaJWKSURLVar, DefaultJWKSURL),
		JWTIssuer: optionalURL(lookup, CanvaJWTIssuerVar, DefaultJWTIssuer),
	}
}

// TryResolveIntegration returns nil instead of an error. Outside production
// the reason is logged to help whoever is setting up the environment.
func TryResolveIntegration(lookup LookupFunc, production bool) *IntegrationConfig {
	cfg, err := ResolveIntegration(lookup)
	if err != nil {
		if !production {
			log.Warn().Err(err).Msg("Canva integration is not fully configured")
		}
		return nil
	}
	return cfg
}

// ResolveRedirectURI picks the registered redirect URI served from
// preferredOrigin, falling back to the default one.
func (c *IntegrationConfig) ResolveRedirectURI(preferredOrigin string) string {
	preferredOrigin = ParseOrigin(preferredOrigin)
	if preferredOrigin == "" {
		return c.RedirectURI
	}
	for _, candidate := range c.RedirectURIs {
		u, err := url.Parse(candidate)
		if err != nil {
			continue
		}
		if Origin(u) == preferredOrigin {
			return candidate
		}
	}
	return c.RedirectURI
}

// Origin returns scheme://host[:port] for an absolute URL. Scheme and host
// are lower-cased and a default port for the scheme is dropped.
func Origin(u *url.URL) string {
	if u == nil || u.Scheme == "" || u.Hostname() == "" {
		return ""
	}
	scheme := strings.ToLower(u.Scheme)
	host := strings.ToLower(u.Hostname())
	if strings.Contains(host, ":") {
		host = "[" + host + "]"
	}
	if port := u.Port(); port != "" && port != defaultPorts[scheme] {
		host += ":" + port
	}
	return scheme + "://" + host
}

var defaultPorts = map[string]string{"http": "80", "https": "443"}

// ParseOrigin normalises a raw origin string. It returns "" when raw is not
// an absolute URL.
func ParseOrigin(raw string) string {
	u, err := url.Parse(strings.TrimSpace(raw))
	if err != nil {
		return ""
	}
	return Origin(u)
}

// SameHost reports whether a and b address the same site. Host names are
// compared case-insensitively and the scheme is ignored. Ports only tell the
// two apart when both are explicit and neither is 80 or 443.
func SameHost(a, b *url.URL) bool {
	if a == nil || b == nil || a.Hostname() == "" {
		return false
	}
	if !strings.EqualFold(a.Hostname(), b.Hostname()) {
		return false
	}
	pa, pb := explicitPort(a), explicitPort(b)
	return pa == "" || pb == "" || pa == pb
}

func explicitPort(u *url.URL) string {
	switch port := u.Port(); port {
	case "80", "443":
		return ""
	default:
		return port
	}
}

func normalise(value string, _ bool) string {
	return strings.TrimSpace(utils.StripWrappingQuotes(strings.TrimSpace(value)))
}

func optionalURL(lookup LookupFunc, key, fallback string) string {
	raw, ok := lookup(key)
	if !ok {
		return fallback
	}
	value := strings.TrimPrefix(normalise(raw, ok), "=")
	if value == "" {
		return fallback
	}
	if !isAbsoluteURL(value) {
		log.Warn().Str("variable", key).Str("value", value).Msg("Ignoring invalid URL, using fallback")
		return fallback
	}
	return value
}

func isAbsoluteURL(raw string) bool {
	u, err := url.Parse(raw)
	return err == nil && u.Scheme != "" && u.Host != ""
}
