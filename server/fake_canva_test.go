package server_test

import (
	"crypto/rand"
	"crypto/rsa"
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/go-jose/go-jose/v4"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/funeral-coordinator/internal/config"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/jrsteele09/funeral-coordinator/internal/session/jarfake"
	"github.com/jrsteele09/funeral-coordinator/server"
	"github.com/stretchr/testify/require"
)

const (
	testClientID = "client-123"
	testSecret   = "session-secret-for-tests"
	testKeyID    = "site-test-key"
	testIssuer   = "https://www.canva.com/connect"
	siteOrigin   = "https://funerals.example.com"
)

// fakeCanva serves the token endpoint, the REST API and a JWKS document.
type fakeCanva struct {
	server *httptest.Server
	key    *rsa.PrivateKey

	mu          sync.Mutex
	apiRequests []*http.Request
	apiBodies   [][]byte
	apiHandler  http.HandlerFunc
}

func newFakeCanva(t *testing.T) *fakeCanva {
	t.Helper()
	key, err := rsa.GenerateKey(rand.Reader, 2048)
	require.NoError(t, err)
	f := &fakeCanva{key: key}

	jwks, err := json.Marshal(jose.JSONWebKeySet{Keys: []jose.JSONWebKey{{
		Key:       &key.PublicKey,
		KeyID:     testKeyID,
		Algorithm: string(jose.RS256),
		Use:       "sig",
	}}})
	require.NoError(t, err)

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v1/oauth/token", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = io.WriteString(w, `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":3600,"scope":"profile:read design:meta:read"}`)
	})
	mux.HandleFunc("/rest/v1/", f.serveAPI)
	mux.HandleFunc("GET /jwks", func(w http.ResponseWriter, r *http.Request) {
		w.Header().Set("Content-Type", "application/json")
		_, _ = w.Write(jwks)
	})
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCanva) serveAPI(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.apiRequests = append(f.apiRequests, r)
	f.apiBodies = append(f.apiBodies, body)
	handler := f.apiHandler
	f.mu.Unlock()

	if handler != nil {
		handler(w, r)
		return
	}
	w.Header().Set("Content-Type", "application/json")
	switch {
	case r.URL.Path == "/rest/v1/users/me/profile":
		_, _ = io.WriteString(w, `{"profile":{"display_name":"Jo Bloggs"}}`)
	case r.URL.Path == "/rest/v1/brand-templates":
		_, _ = io.WriteString(w, `{"items":[{"id":"T1","title":"Memorial","create_url":"c","view_url":"v","created_at":1,"updated_at":2}],"continuation":"next"}`)
	case strings.HasPrefix(r.URL.Path, "/rest/v1/exports"):
		_, _ = io.WriteString(w, `{"job":{"id":"E1","status":"in_progress"}}`)
	default:
		w.WriteHeader(http.StatusNotFound)
		_, _ = io.WriteString(w, `{"code":"not_found"}`)
	}
}

func (f *fakeCanva) setAPI(handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiHandler = handler
}

func (f *fakeCanva) lastAPIRequest(t *testing.T) (*http.Request, []byte) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.apiRequests)
	i := len(f.apiRequests) - 1
	return f.apiRequests[i], f.apiBodies[i]
}

func (f *fakeCanva) env(overrides map[string]string) map[string]string {
	env := map[string]string{
		config.CanvaClientIDVar:      testClientID,
		config.CanvaClientSecretVar:  "secret-456",
		config.CanvaRedirectURIVar:   siteOrigin + "/api/canva/oauth/callback",
		config.CanvaSessionSecretVar: testSecret,
		config.CanvaScopesVar:        "profile:read design:meta:read",
		config.CanvaTokenURLVar:      f.server.URL + "/rest/v1/oauth/token",
		config.CanvaAPIURLVar:        f.server.URL + "/rest",
		config.CanvaJWKSURLVar:       f.server.URL + "/jwks",
	}
	for k, v := range overrides {
		env[k] = v
	}
	return env
}

func (f *fakeCanva) sign(t *testing.T, claims jwt.MapClaims) string {
	t.Helper()
	token := jwt.NewWithClaims(jwt.SigningMethodRS256, claims)
	token.Header["kid"] = testKeyID
	signed, err := token.SignedString(f.key)
	require.NoError(t, err)
	return signed
}

func lookupFrom(env map[string]string) config.LookupFunc {
	return func(key string) (string, bool) {
		v, ok := env[key]
		return v, ok
	}
}

func newServer(t *testing.T, env map[string]string) *server.Server {
	t.Helper()
	s, err := server.New(config.New(), lookupFrom(env))
	require.NoError(t, err)
	return s
}

// serve runs one request through s, carrying cookies.
func serve(s http.Handler, req *http.Request, cookies ...*http.Cookie) *httptest.ResponseRecorder {
	for _, c := range cookies {
		req.AddCookie(c)
	}
	w := httptest.NewRecorder()
	s.ServeHTTP(w, req)
	return w
}

func responseCookies(w *httptest.ResponseRecorder) map[string]*http.Cookie {
	cookies := map[string]*http.Cookie{}
	for _, c := range (&http.Response{Header: w.Header()}).Cookies() {
		cookies[c.Name] = c
	}
	return cookies
}

// connectedCookie builds a token cookie the server will accept.
func connectedCookie(t *testing.T, expiresIn time.Duration) *http.Cookie {
	t.Helper()
	jar := jarfake.NewFakeJar()
	store := session.NewTokenStore(session.Options{Secret: testSecret})
	require.NoError(t, store.Save(jar, &session.TokenSession{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		TokenType:    "Bearer",
		Scope:        "profile:read",
		ExpiresAt:    time.Now().Add(expiresIn),
	}))
	cookie := jar.Cookie(session.TokenCookieName)
	require.NotNil(t, cookie)
	return &http.Cookie{Name: cookie.Name, Value: cookie.Value}
}

func decodeJSON(t *testing.T, w *httptest.ResponseRecorder) map[string]any {
	t.Helper()
	var out map[string]any
	require.NoError(t, json.Unmarshal(w.Body.Bytes(), &out), w.Body.String())
	return out
}
