package config_test

import (
	"net/url"
	"testing"

	"github.com/jrsteele09/funeral-coordinator/internal/config"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/stretchr/testify/require"
)

func envLookup(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func completeEnv() map[string]string {
	return map[string]string{
		config.CanvaClientIDVar:      "client-123",
		config.CanvaClientSecretVar:  "secret-456",
		config.CanvaRedirectURIVar:   "https://funerals.example.com/api/canva/oauth/callback",
		config.CanvaSessionSecretVar: "session-secret",
	}
}

func TestResolveIntegration_Complete(t *testing.T) {
	cfg, err := config.ResolveIntegration(envLookup(completeEnv()))
	require.NoError(t, err)
	require.Equal(t, "client-123", cfg.ClientID)
	require.Equal(t, "secret-456", cfg.ClientSecret)
	require.Equal(t, "https://funerals.example.com/api/canva/oauth/callback", cfg.RedirectURI)
	require.Equal(t, config.DefaultAuthorizeURL, cfg.AuthorizeURL)
	require.Equal(t, config.DefaultTokenURL, cfg.TokenURL)
	require.Equal(t, config.DefaultAPIBaseURL, cfg.APIBaseURL)
	require.Equal(t, config.DefaultJWKSURL, cfg.JWKSURL)
	require.Equal(t, config.DefaultJWTIssuer, cfg.JWTIssuer)
	require.NotEmpty(t, cfg.Scopes)
	require.Equal(t, config.DefaultScopes, cfg.Scopes)
}

func TestResolveIntegration_MissingRequired(t *testing.T) {
	required := []string{
		config.CanvaClientIDVar,
		config.CanvaClientSecretVar,
		config.CanvaRedirectURIVar,
		config.CanvaSessionSecretVar,
	}

	for _, key := range required {
		t.Run("absent "+key, func(t *testing.T) {
			env := completeEnv()
			delete(env, key)

			cfg, err := config.ResolveIntegration(envLookup(env))
			require.Nil(t, cfg)
			require.ErrorIs(t, err, apperrors.ErrNotConfigured)

			var cfgErr *config.ConfigurationError
			require.ErrorAs(t, err, &cfgErr)
			require.Equal(t, []string{key}, cfgErr.Missing)
		})

		t.Run("blank "+key, func(t *testing.T) {
			env := completeEnv()
			env[key] = `  ""  `

			_, err := config.ResolveIntegration(envLookup(env))
			require.ErrorIs(t, err, apperrors.ErrNotConfigured)
		})
	}
}

func TestResolveIntegration_AggregatesEveryProblem(t *testing.T) {
	_, err := config.ResolveIntegration(envLookup(map[string]string{config.CanvaScopesVar: " , "}))

	var cfgErr *config.ConfigurationError
	require.ErrorAs(t, err, &cfgErr)
	require.ElementsMatch(t, []string{
		config.CanvaClientIDVar,
		config.CanvaClientSecretVar,
		config.CanvaRedirectURIVar,
		config.CanvaSessionSecretVar,
	}, cfgErr.Missing)
	require.Len(t, cfgErr.Problems, 1)
	require.Contains(t, err.Error(), "at least one scope")
}

func TestResolveIntegration_Normalisation(t *testing.T) {
	env := completeEnv()
	env[config.CanvaClientIDVar] = `  "quoted-client"  `
	env[config.CanvaRedirectURIVar] = "https://a.example.com/cb; https://b.example.com/cb"
	env[config.CanvaScopesVar] = "profile:read,design:meta:read"
	env[config.CanvaAPIURLVar] = "=https://api.example.com/rest"
	env[config.CanvaTokenURLVar] = "not a url"
	env[config.CanvaAuthorizeURLVar] = "   "

	cfg, err := config.ResolveIntegration(envLookup(env))
	require.NoError(t, err)
	require.Equal(t, "quoted-client", cfg.ClientID)
	require.Equal(t, []string{"https://a.example.com/cb", "https://b.example.com/cb"}, cfg.RedirectURIs)
	require.Equal(t, "https://a.example.com/cb", cfg.RedirectURI)
	require.Equal(t, []string{"profile:read", "design:meta:read"}, cfg.Scopes)
	require.Equal(t, "https://api.example.com/rest", cfg.APIBaseURL)
	require.Equal(t, config.DefaultTokenURL, cfg.TokenURL)
	require.Equal(t, config.DefaultAuthorizeURL, cfg.AuthorizeURL)
}

func TestResolveIntegration_RelativeRedirectURI(t *testing.T) {
	env := completeEnv()
	env[config.CanvaRedirectURIVar] = "/api/canva/oauth/callback"

	_, err := config.ResolveIntegration(envLookup(env))
	require.ErrorIs(t, err, apperrors.ErrNotConfigured)
	require.Contains(t, err.Error(), "not an absolute URL")
}

func TestIntegrationConfig_ResolveRedirectURI(t *testing.T) {
	env := completeEnv()
	env[config.CanvaRedirectURIVar] = "https://a.example.com/cb,http://localhost:3000/cb"
	cfg, err := config.ResolveIntegration(envLookup(env))
	require.NoError(t, err)

	require.Equal(t, "http://localhost:3000/cb", cfg.ResolveRedirectURI("http://localhost:3000"))
	require.Equal(t, "https://a.example.com/cb", cfg.ResolveRedirectURI("https://unknown.example.com"))
	require.Equal(t, "https://a.example.com/cb", cfg.ResolveRedirectURI(""))
	require.Equal(t, "http://localhost:3000/cb", cfg.ResolveRedirectURI("HTTP://LocalHost:3000"))
	require.Equal(t, "https://a.example.com/cb", cfg.ResolveRedirectURI("https://a.example.com:443"))
}

func TestOrigin(t *testing.T) {
	cases := map[string]string{
		"https://Site.Example/path?q=1": "https://site.example",
		"HTTPS://site.example:443/":     "https://site.example",
		"http://site.example:80":        "http://site.example",
		"http://site.example:8080/x":    "http://site.example:8080",
		"https://site.example:80":       "https://site.example:80",
		"http://[::1]:3000/cb":          "http://[::1]:3000",
		"/relative/path":                "",
		"":                              "",
	}
	for raw, want := range cases {
		require.Equal(t, want, config.ParseOrigin(raw), raw)
	}
}

func TestSameHost(t *testing.T) {
	parse := func(raw string) *url.URL {
		u, err := url.Parse(raw)
		require.NoError(t, err)
		return u
	}

	require.True(t, config.SameHost(parse("https://site.example"), parse("https://SITE.example:443")))
	require.True(t, config.SameHost(parse("https://site.example"), parse("http://site.example")))
	require.True(t, config.SameHost(parse("http://localhost:3000"), parse("http://localhost:3000/cb")))
	require.False(t, config.SameHost(parse("http://localhost:3000"), parse("http://localhost:9000")))
	require.False(t, config.SameHost(parse("https://site.example"), parse("https://www.canva.com")))
	require.False(t, config.SameHost(parse("/relative"), parse("/relative")))
}

func TestTryResolveIntegration(t *testing.T) {
	require.Nil(t, config.TryResolveIntegration(envLookup(map[string]string{}), false))
	require.Nil(t, config.TryResolveIntegration(envLookup(map[string]string{}), true))
	require.NotNil(t, config.TryResolveIntegration(envLookup(completeEnv()), true))
}

func TestResolveCorrelation(t *testing.T) {
	defaults := config.ResolveCorrelation(envLookup(map[string]string{}))
	require.Equal(t, config.DefaultJWKSURL, defaults.JWKSURL)
	require.Equal(t, config.DefaultJWTIssuer, defaults.JWTIssuer)

	custom := config.ResolveCorrelation(envLookup(map[string]string{
		config.CanvaJWKSURLVar:   "'https://keys.example.com/jwks'",
		config.CanvaJWTIssuerVar: "https://issuer.example.com",
	}))
	require.Equal(t, "https://keys.example.com/jwks", custom.JWKSURL)
	require.Equal(t, "https://issuer.example.com", custom.JWTIssuer)
}
