package canva_test

import (
	"encoding/json"
	"io"
	"net/http"
	"net/http/httptest"
	"net/url"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/jrsteele09/funeral-coordinator/internal/canva"
	"github.com/jrsteele09/funeral-coordinator/internal/config"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/jrsteele09/funeral-coordinator/internal/session/jarfake"
	"github.com/stretchr/testify/require"
)

const (
	testClientID     = "client-123"
	testClientSecret = "secret-456"
	testSecret       = "session-secret-for-tests"
	siteOrigin       = "https://funerals.example.com"
)

// fakeCanva stands in for the Canva token endpoint and REST API.
type fakeCanva struct {
	server *httptest.Server

	mu          sync.Mutex
	tokenForms  []url.Values
	apiRequests []*http.Request
	apiBodies   [][]byte

	tokenHits   atomic.Int32
	tokenStatus int
	tokenBody   string
	tokenGate   chan struct{}

	apiHandler http.HandlerFunc
}

func newFakeCanva(t *testing.T) *fakeCanva {
	t.Helper()
	f := &fakeCanva{
		tokenStatus: http.StatusOK,
		tokenBody:   `{"access_token":"access-1","refresh_token":"refresh-1","token_type":"bearer","expires_in":3600,"scope":"profile:read design:meta:read"}`,
	}

	mux := http.NewServeMux()
	mux.HandleFunc("POST /rest/v1/oauth/token", f.serveToken)
	mux.HandleFunc("/rest/v1/", f.serveAPI)
	f.server = httptest.NewServer(mux)
	t.Cleanup(f.server.Close)
	return f
}

func (f *fakeCanva) serveToken(w http.ResponseWriter, r *http.Request) {
	f.tokenHits.Add(1)
	_ = r.ParseForm()

	f.mu.Lock()
	f.tokenForms = append(f.tokenForms, r.PostForm)
	status, body, gate := f.tokenStatus, f.tokenBody, f.tokenGate
	f.mu.Unlock()

	if gate != nil {
		<-gate
	}
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_, _ = io.WriteString(w, body)
}

func (f *fakeCanva) serveAPI(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)

	f.mu.Lock()
	f.apiRequests = append(f.apiRequests, r)
	f.apiBodies = append(f.apiBodies, body)
	handler := f.apiHandler
	f.mu.Unlock()

	if handler == nil {
		w.Header().Set("Content-Type", "application/json")
		_ = json.NewEncoder(w).Encode(map[string]any{"path": r.URL.Path})
		return
	}
	handler(w, r)
}

func (f *fakeCanva) setToken(status int, body string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenStatus, f.tokenBody = status, body
}

// holdTokenResponses makes the token endpoint wait until the returned
// channel is closed.
func (f *fakeCanva) holdTokenResponses() chan struct{} {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.tokenGate = make(chan struct{})
	return f.tokenGate
}

func (f *fakeCanva) setAPI(handler http.HandlerFunc) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.apiHandler = handler
}

func (f *fakeCanva) lastTokenForm(t *testing.T) url.Values {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.tokenForms)
	return f.tokenForms[len(f.tokenForms)-1]
}

func (f *fakeCanva) lastAPIRequest(t *testing.T) (*http.Request, []byte) {
	t.Helper()
	f.mu.Lock()
	defer f.mu.Unlock()
	require.NotEmpty(t, f.apiRequests)
	i := len(f.apiRequests) - 1
	return f.apiRequests[i], f.apiBodies[i]
}

func (f *fakeCanva) apiCount() int {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.apiRequests)
}

func (f *fakeCanva) integration() *config.IntegrationConfig {
	return &config.IntegrationConfig{
		ClientID:      testClientID,
		ClientSecret:  testClientSecret,
		RedirectURI:   siteOrigin + "/api/canva/oauth/callback",
		RedirectURIs:  []string{siteOrigin + "/api/canva/oauth/callback", "http://localhost:3000/api/canva/oauth/callback"},
		AuthorizeURL:  "https://www.canva.com/api/oauth/authorize",
		TokenURL:      f.server.URL + "/rest/v1/oauth/token",
		APIBaseURL:    f.server.URL + "/rest",
		Scopes:        []string{"profile:read", "design:meta:read"},
		SessionSecret: testSecret,
		JWKSURL:       config.DefaultJWKSURL,
		JWTIssuer:     config.DefaultJWTIssuer,
	}
}

// harness wires the canva components against a fakeCanva.
type harness struct {
	fake      *fakeCanva
	cfg       *config.IntegrationConfig
	pkce      *session.Store[session.PkceSession]
	tokens    *session.Store[session.TokenSession]
	client    *canva.TokenClient
	refresher *canva.Refresher
	flow      *canva.Flow
	gateway   *canva.Gateway
	jar       *jarfake.FakeJar
}

func newHarness(t *testing.T) *harness {
	t.Helper()
	fake := newFakeCanva(t)
	cfg := fake.integration()

	opts := session.Options{Secret: cfg.SessionSecret}
	h := &harness{
		fake:   fake,
		cfg:    cfg,
		pkce:   session.NewPkceStore(opts),
		tokens: session.NewTokenStore(opts),
		jar:    jarfake.NewFakeJar(),
	}
	h.client = canva.NewTokenClient(cfg, canva.WithTimeout(5*time.Second))
	h.refresher = canva.NewRefresher(h.client, h.tokens)
	h.flow = canva.NewFlow(cfg, h.client, h.pkce, h.tokens)

	gateway, err := canva.NewGateway(cfg, h.tokens, h.refresher, canva.WithTimeout(5*time.Second))
	require.NoError(t, err)
	h.gateway = gateway
	return h
}

// connect stores a token session as if a handshake had completed.
func (h *harness) connect(t *testing.T, expiresIn time.Duration) *session.TokenSession {
	t.Helper()
	ts := &session.TokenSession{
		AccessToken:  "stored-access",
		RefreshToken: "stored-refresh",
		TokenType:    "Bearer",
		Scope:        "profile:read",
		ExpiresAt:    session.NowTimeFunc().Add(expiresIn),
	}
	require.NoError(t, h.tokens.Save(h.jar, ts))
	return ts
}

func freezeTime(t *testing.T, now time.Time) {
	t.Helper()
	original := session.NowTimeFunc
	session.NowTimeFunc = func() time.Time { return now }
	t.Cleanup(func() { session.NowTimeFunc = original })
}

func mustJSON(t *testing.T, v any) string {
	t.Helper()
	b, err := json.Marshal(v)
	require.NoError(t, err)
	return string(b)
}
