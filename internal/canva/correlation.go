package canva

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"strings"
	"sync"

	"github.com/coreos/go-oidc/v3/oidc"
	"github.com/golang-jwt/jwt/v5"
	"github.com/jrsteele09/funeral-coordinator/internal/config"
	"github.com/jrsteele09/funeral-coordinator/internal/metrics"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

// keySets caches one remote key set per JWKS URL for the life of the process.
var keySets sync.Map

// CorrelationClaims are the claims Canva puts in a return-navigation token.
type CorrelationClaims struct {
	jwt.RegisteredClaims
	CorrelationState json.RawMessage `json:"correlation_state,omitempty"`
	CorrelationID    string          `json:"correlation_id,omitempty"`
}

// CorrelationAssertion is a verified return-navigation token.
type CorrelationAssertion struct {
	Claims  CorrelationClaims
	Payload map[string]any
}

// CorrelationVerifier checks tokens Canva attaches when sending a user back
// to the site.
type CorrelationVerifier struct {
	jwksURL  string
	issuer   string
	audience string
	opts     clientOptions
}

// NewCorrelationVerifier returns a verifier for tokens signed by the keys at
// cfg.JWKSURL. The audience is only checked when audience is not empty.
func NewCorrelationVerifier(cfg config.CorrelationConfig, audience string, opts ...Option) *CorrelationVerifier {
	return &CorrelationVerifier{
		jwksURL:  cfg.JWKSURL,
		issuer:   cfg.JWTIssuer,
		audience: audience,
		opts:     newClientOptions(opts),
	}
}

// Verify checks the signature and claims of token. Every failure is a
// *CorrelationError.
func (v *CorrelationVerifier) Verify(ctx context.Context, token string) (*CorrelationAssertion, error) {
	assertion, err := v.verify(ctx, strings.TrimSpace(token))
	metrics.CorrelationVerificationsTotal.WithLabelValues(metrics.Outcome(err)).Inc()
	if err != nil {
		log.Debug().Err(err).Msg("Rejected correlation token")
		return nil, &CorrelationError{Err: err}
	}
	return assertion, nil
}

func (v *CorrelationVerifier) verify(ctx context.Context, token string) (*CorrelationAssertion, error) {
	if token == "" {
		return nil, errors.New("token is required")
	}

	payload, err := v.keySet().VerifySignature(ctx, token)
	if err != nil {
		return nil, fmt.Errorf("signature: %w", err)
	}

	var claims CorrelationClaims
	if err := json.Unmarshal(payload, &claims); err != nil {
		return nil, fmt.Errorf("claims: %w", err)
	}
	if err := v.validator().Validate(claims); err != nil {
		return nil, fmt.Errorf("claims: %w", err)
	}

	decoder := json.NewDecoder(bytes.NewReader(payload))
	decoder.UseNumber()
	var all map[string]any
	if err := decoder.Decode(&all); err != nil {
		return nil, fmt.Errorf("payload: %w", err)
	}

	return &CorrelationAssertion{Claims: claims, Payload: all}, nil
}

func (v *CorrelationVerifier) validator() *jwt.Validator {
	opts := []jwt.ParserOption{
		jwt.WithIssuer(v.issuer),
		jwt.WithExpirationRequired(),
		jwt.WithTimeFunc(session.NowTimeFunc),
	}
	if v.audience != "" {
		opts = append(opts, jwt.WithAudience(v.audience))
	}
	return jwt.NewValidator(opts...)
}

// keySet returns the shared key set for the verifier's JWKS URL. Two
// goroutines may both build one on first use; only the first is kept.
func (v *CorrelationVerifier) keySet() *oidc.RemoteKeySet {
	if ks, ok := keySets.Load(v.jwksURL); ok {
		return ks.(*oidc.RemoteKeySet)
	}
	// The key set outlives this request, so it must not hold the request context.
	clientCtx := oidc.ClientContext(context.Background(), v.opts.httpClient)
	ks, _ := keySets.LoadOrStore(v.jwksURL, oidc.NewRemoteKeySet(clientCtx, v.jwksURL))
	return ks.(*oidc.RemoteKeySet)
}

// ExtractState returns the correlation_state claim exactly as Canva sent it,
// or nil when absent.
func ExtractState(assertion *CorrelationAssertion) json.RawMessage {
	if assertion == nil {
		return nil
	}
	state := bytes.TrimSpace(assertion.Claims.CorrelationState)
	if len(state) == 0 || bytes.Equal(state, []byte("null")) {
		return nil
	}
	return assertion.Claims.CorrelationState
}
