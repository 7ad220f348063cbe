package canva

import (
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"net/http"
	"time"

	"github.com/jrsteele09/funeral-coordinator/internal/config"
	"github.com/jrsteele09/funeral-coordinator/internal/metrics"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
	"golang.org/x/oauth2"
	"golang.org/x/sync/singleflight"
)

// TokenClient talks to the Canva token endpoint.
type TokenClient struct {
	oauth      oauth2.Config
	httpClient *http.Client

	// Collapses concurrent refreshes of the same refresh token.
	refreshGroup singleflight.Group
}

func NewTokenClient(cfg *config.IntegrationConfig, opts ...Option) *TokenClient {
	o := newClientOptions(opts)
	return &TokenClient{
		oauth: oauth2.Config{
			ClientID:     cfg.ClientID,
			ClientSecret: cfg.ClientSecret,
			RedirectURL:  cfg.RedirectURI,
			Scopes:       cfg.Scopes,
			Endpoint: oauth2.Endpoint{
				AuthURL:   cfg.AuthorizeURL,
				TokenURL:  cfg.TokenURL,
				AuthStyle: oauth2.AuthStyleInParams,
			},
		},
		httpClient: o.httpClient,
	}
}

// AuthCodeURL builds the authorize URL for one handshake.
func (c *TokenClient) AuthCodeURL(state, verifier, redirectURI string) string {
	conf := c.configFor(redirectURI)
	return conf.AuthCodeURL(state, oauth2.S256ChallengeOption(verifier))
}

// Exchange redeems an authorization code using the PKCE verifier.
func (c *TokenClient) Exchange(ctx context.Context, code, verifier, redirectURI string) (*session.TokenSession, error) {
	conf := c.configFor(redirectURI)
	tok, err := conf.Exchange(c.clientContext(ctx), code, oauth2.VerifierOption(verifier))
	metrics.TokenRequestsTotal.WithLabelValues(string(OpExchange), metrics.Outcome(err)).Inc()
	if err != nil {
		return nil, newTokenError(OpExchange, err)
	}
	return sessionFromToken(tok, nil), nil
}

// Refresh runs the refresh_token grant. The previous refresh token is kept
// when Canva does not rotate it.
func (c *TokenClient) Refresh(ctx context.Context, current *session.TokenSession) (*session.TokenSession, error) {
	if current == nil || current.RefreshToken == "" {
		return nil, &TokenError{
			Op:     OpRefresh,
			Status: http.StatusUnauthorized,
			Err:    errors.New("no refresh token"),
		}
	}

	// The shared refresh outlives any one caller; the client timeout bounds it.
	detached := context.WithoutCancel(ctx)
	sum := sha256.Sum256([]byte(current.RefreshToken))
	ch := c.refreshGroup.DoChan(hex.EncodeToString(sum[:]), func() (any, error) {
		src := c.oauth.TokenSource(c.clientContext(detached), &oauth2.Token{RefreshToken: current.RefreshToken})
		tok, err := src.Token()
		metrics.TokenRequestsTotal.WithLabelValues(string(OpRefresh), metrics.Outcome(err)).Inc()
		if err != nil {
			return nil, newTokenError(OpRefresh, err)
		}
		return sessionFromToken(tok, current), nil
	})

	var res singleflight.Result
	select {
	case res = <-ch:
	case <-ctx.Done():
		return nil, newTokenError(OpRefresh, ctx.Err())
	}
	if res.Err != nil {
		return nil, res.Err
	}
	if res.Shared {
		log.Debug().Msg("Joined an in-flight Canva token refresh")
	}

	refreshed := *res.Val.(*session.TokenSession)
	return &refreshed, nil
}

func (c *TokenClient) configFor(redirectURI string) *oauth2.Config {
	conf := c.oauth
	if redirectURI != "" {
		conf.RedirectURL = redirectURI
	}
	return &conf
}

func (c *TokenClient) clientContext(ctx context.Context) context.Context {
	return context.WithValue(ctx, oauth2.HTTPClient, c.httpClient)
}

func sessionFromToken(tok *oauth2.Token, previous *session.TokenSession) *session.TokenSession {
	now := session.NowTimeFunc()
	s := &session.TokenSession{
		AccessToken:  tok.AccessToken,
		RefreshToken: tok.RefreshToken,
		TokenType:    tok.Type(),
		ExpiresAt:    now,
	}
	if scope, ok := tok.Extra("scope").(string); ok {
		s.Scope = scope
	}
	if s.RefreshToken == "" && previous != nil {
		s.RefreshToken = previous.RefreshToken
	}

	// Without a lifetime the session is treated as already due for refresh.
	switch {
	case tok.ExpiresIn > 0:
		s.ExpiresAt = now.Add(time.Duration(tok.ExpiresIn) * time.Second)
	case !tok.Expiry.IsZero():
		s.ExpiresAt = tok.Expiry
	}
	return s
}

func newTokenError(op TokenOp, err error) *TokenError {
	var retrieveErr *oauth2.RetrieveError
	if errors.As(err, &retrieveErr) && retrieveErr.Response != nil && retrieveErr.Response.StatusCode >= 400 {
		return &TokenError{
			Op:     op,
			Status: retrieveErr.Response.StatusCode,
			Body:   jsonOrNil(retrieveErr.Body),
			Err:    err,
		}
	}
	return &TokenError{
		Op:     op,
		Status: transportStatus(err),
		Err:    err,
	}
}
