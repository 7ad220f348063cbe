package canva

import (
	"bytes"
	"context"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/url"
	"path"
	"strings"

	"github.com/jrsteele09/funeral-coordinator/internal/config"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/metrics"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
)

// maxResponseBytes caps how much of an upstream body is read.
const maxResponseBytes = 10 << 20

// RequestOptions describes one call through the gateway.
type RequestOptions struct {
	Method string      // Defaults to GET
	Query  url.Values  // Replaces any same-named parameters already in the path
	Body   any         // url.Values is form encoded, []byte and io.Reader are sent as-is, anything else as JSON
	Header http.Header // Extra headers; Authorization is ignored
}

// Gateway sends authenticated requests to the Canva Connect API on behalf
// of the user whose token session is in the jar.
type Gateway struct {
	baseURL    *url.URL
	tokens     *session.Store[session.TokenSession]
	refresher  *Refresher
	httpClient *http.Client
}

func NewGateway(cfg *config.IntegrationConfig, tokens *session.Store[session.TokenSession], refresher *Refresher, opts ...Option) (*Gateway, error) {
	base, err := url.Parse(strings.TrimRight(cfg.APIBaseURL, "/"))
	if err != nil || config.Origin(base) == "" {
		return nil, fmt.Errorf("[canva.NewGateway] invalid API base URL %q", cfg.APIBaseURL)
	}
	o := newClientOptions(opts)
	return &Gateway{
		baseURL:    base,
		tokens:     tokens,
		refresher:  refresher,
		httpClient: o.httpClient,
	}, nil
}

// Do performs the request and returns the response JSON, or nil for an
// empty response. Failures are returned as *APIError.
func (g *Gateway) Do(ctx context.Context, jar session.Jar, apiPath string, opts RequestOptions) (json.RawMessage, error) {
	if g == nil {
		return nil, notConfiguredError()
	}

	tokens, err := g.resolveSession(ctx, jar)
	if err != nil {
		return nil, err
	}

	target, err := g.resolveURL(apiPath, opts.Query)
	if err != nil {
		return nil, err
	}

	req, err := g.newRequest(ctx, target, opts, tokens)
	if err != nil {
		return nil, err
	}

	resp, err := g.httpClient.Do(req)
	if err != nil {
		metrics.GatewayRequestsTotal.WithLabelValues(req.Method, metrics.StatusClass(0)).Inc()
		log.Err(err).Str("path", target.Path).Msg("Canva API request did not complete")
		return nil, &APIError{
			Status:  transportStatus(err),
			Message: "Canva API request failed",
			Err:     err,
		}
	}
	defer resp.Body.Close()
	metrics.GatewayRequestsTotal.WithLabelValues(req.Method, metrics.StatusClass(resp.StatusCode)).Inc()

	body, err := io.ReadAll(io.LimitReader(resp.Body, maxResponseBytes+1))
	if err != nil {
		return nil, &APIError{Status: transportStatus(err), Message: "Failed to read Canva API response", Err: err}
	}
	if len(body) > maxResponseBytes {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "Canva API response too large"}
	}

	if resp.StatusCode < 200 || resp.StatusCode > 299 {
		if resp.StatusCode == http.StatusUnauthorized || resp.StatusCode == http.StatusForbidden {
			g.tokens.Clear(jar)
		}
		return nil, &APIError{
			Status:  resp.StatusCode,
			Body:    jsonOrNil(body),
			Message: "Canva API request failed",
		}
	}

	if resp.StatusCode == http.StatusNoContent || len(bytes.TrimSpace(body)) == 0 {
		return nil, nil
	}
	if !json.Valid(body) {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "Canva API returned invalid JSON"}
	}
	return json.RawMessage(body), nil
}

// Call performs the request and decodes the response into T. An empty
// response yields (nil, nil).
func Call[T any](ctx context.Context, g *Gateway, jar session.Jar, apiPath string, opts RequestOptions) (*T, error) {
	raw, err := g.Do(ctx, jar, apiPath, opts)
	if err != nil || raw == nil {
		return nil, err
	}
	var out T
	if err := json.Unmarshal(raw, &out); err != nil {
		return nil, &APIError{Status: http.StatusBadGateway, Message: "Unexpected Canva API response", Err: err}
	}
	return &out, nil
}

func (g *Gateway) resolveSession(ctx context.Context, jar session.Jar) (*session.TokenSession, error) {
	tokens := g.tokens.Load(jar)
	if tokens == nil {
		return nil, &APIError{Status: http.StatusUnauthorized, Message: "No Canva session", Err: apperrors.ErrNoSession}
	}
	if !tokens.ShouldRefresh() {
		return tokens, nil
	}

	refreshed, err := g.refresher.Refresh(ctx, jar, tokens)
	if err != nil {
		apiErr := &APIError{Status: http.StatusBadGateway, Message: "Failed to refresh Canva access token", Err: err}
		var tokenErr *TokenError
		if apperrors.As(err, &tokenErr) {
			apiErr.Status = tokenErr.Status
			apiErr.Body = tokenErr.Body
		}
		return nil, apiErr
	}
	return refreshed, nil
}

// resolveURL joins apiPath onto the API base URL. The result must stay under
// the base path on the API host.
func (g *Gateway) resolveURL(apiPath string, query url.Values) (*url.URL, error) {
	ref, err := url.Parse(apiPath)
	if err != nil || ref.Scheme != "" || ref.Host != "" || ref.User != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Invalid Canva API path"}
	}

	joined := g.baseURL.String() + "/" + strings.TrimLeft(ref.EscapedPath(), "/")
	target, err := url.Parse(joined)
	if err != nil {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Invalid Canva API path"}
	}

	basePath := strings.TrimRight(g.baseURL.Path, "/")
	cleaned := path.Clean("/" + target.Path)
	if target.Host != g.baseURL.Host || !strings.HasPrefix(cleaned+"/", basePath+"/") {
		return nil, &APIError{Status: http.StatusBadRequest, Message: "Invalid Canva API path"}
	}

	q := ref.Query()
	for key, values := range query {
		if len(values) == 0 {
			continue
		}
		q[key] = values
	}
	target.RawQuery = q.Encode()
	return target, nil
}

func (g *Gateway) newRequest(ctx context.Context, target *url.URL, opts RequestOptions, tokens *session.TokenSession) (*http.Request, error) {
	method := opts.Method
	if method == "" {
		method = http.MethodGet
	}

	var (
		body        io.Reader
		contentType string
	)
	switch b := opts.Body.(type) {
	case nil:
	case url.Values:
		body = strings.NewReader(b.Encode())
		contentType = "application/x-www-form-urlencoded"
	case []byte:
		body = bytes.NewReader(b)
		contentType = "application/octet-stream"
	case io.Reader:
		body = b
		contentType = "application/octet-stream"
	default:
		encoded, err := json.Marshal(b)
		if err != nil {
			return nil, fmt.Errorf("[Gateway.newRequest] encode body: %w", err)
		}
		body = bytes.NewReader(encoded)
		contentType = "application/json"
	}

	req, err := http.NewRequestWithContext(ctx, method, target.String(), body)
	if err != nil {
		return nil, fmt.Errorf("[Gateway.newRequest] %w", err)
	}

	for key, values := range opts.Header {
		for _, v := range values {
			req.Header.Add(key, v)
		}
	}
	req.Header.Del("Authorization")
	if req.Header.Get("Accept") == "" {
		req.Header.Set("Accept", "application/json")
	}
	if contentType != "" && req.Header.Get("Content-Type") == "" {
		req.Header.Set("Content-Type", contentType)
	}

	(&oauth2.Token{AccessToken: tokens.AccessToken, TokenType: tokens.TokenType}).SetAuthHeader(req)
	return req, nil
}
