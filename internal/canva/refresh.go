package canva

import (
	"context"
	"net/http"

	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

// Refresher replaces a near-expiry token session. Refreshing happens lazily
// when a request needs the session; nothing runs in the background.
type Refresher struct {
	client *TokenClient
	tokens *session.Store[session.TokenSession]
}

func NewRefresher(client *TokenClient, tokens *session.Store[session.TokenSession]) *Refresher {
	return &Refresher{client: client, tokens: tokens}
}

// Refresh exchanges the refresh token for a new session and stores it. On
// any failure the stored session is cleared and a *TokenError is returned.
func (r *Refresher) Refresh(ctx context.Context, jar session.Jar, current *session.TokenSession) (*session.TokenSession, error) {
	if current == nil {
		r.tokens.Clear(jar)
		return nil, &TokenError{Op: OpRefresh, Status: http.StatusUnauthorized, Err: apperrors.ErrNoSession}
	}

	next, err := r.client.Refresh(ctx, current)
	if err != nil {
		r.tokens.Clear(jar)
		log.Warn().Err(err).Object("session", current).Msg("Canva token refresh failed, session cleared")
		return nil, err
	}

	if err := r.tokens.Save(jar, next); err != nil {
		r.tokens.Clear(jar)
		return nil, &TokenError{Op: OpRefresh, Status: http.StatusServiceUnavailable, Err: err}
	}
	log.Debug().Object("session", next).Msg("Canva token refreshed")
	return next, nil
}
