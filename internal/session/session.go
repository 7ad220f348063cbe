package session

import (
	"time"

	"github.com/rs/zerolog"
)

const (
	PkceCookieName  = "canva_pkce"
	TokenCookieName = "canva_session"

	PkceTTL  = 10 * time.Minute
	TokenTTL = 30 * 24 * time.Hour

	// RefreshSkew is how long before expiry an access token is refreshed.
	RefreshSkew = 120 * time.Second
)

// NowTimeFunc is overridden in tests.
var NowTimeFunc = time.Now

// PkceSession is the short-lived handshake state kept between starting an
// authorization and receiving the callback.
type PkceSession struct {
	State        string    `json:"state"`
	CodeVerifier string    `json:"codeVerifier"`
	ReturnTo     string    `json:"returnTo"`
	RedirectURI  string    `json:"redirectUri"`
	CreatedAt    time.Time `json:"createdAt"`
}

// IsStale reports whether the session was created more than ttl ago.
func (p *PkceSession) IsStale(ttl time.Duration) bool {
	if p.CreatedAt.IsZero() {
		return true
	}
	return NowTimeFunc().Sub(p.CreatedAt) > ttl
}

// TokenSession holds the user's delegated Canva credentials.
type TokenSession struct {
	AccessToken  string    `json:"accessToken"`
	RefreshToken string    `json:"refreshToken"`
	TokenType    string    `json:"tokenType"`
	Scope        string    `json:"scope,omitempty"`
	ExpiresAt    time.Time `json:"expiresAt"`
}

func (t *TokenSession) IsExpired() bool {
	return NowTimeFunc().After(t.ExpiresAt)
}

// ShouldRefresh is true once the token is within RefreshSkew of expiring.
func (t *TokenSession) ShouldRefresh() bool {
	return NowTimeFunc().After(t.ExpiresAt.Add(-RefreshSkew))
}

// MarshalZerologObject logs session metadata. Token values are never written.
func (t *TokenSession) MarshalZerologObject(e *zerolog.Event) {
	e.Str("tokenType", t.TokenType).
		Str("scope", t.Scope).
		Time("expiresAt", t.ExpiresAt).
		Bool("hasRefreshToken", t.RefreshToken != "")
}
