package canva

import (
	"context"
	"crypto/subtle"
	"net/url"

	"github.com/jrsteele09/funeral-coordinator/internal/config"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/metrics"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

// FlowState tracks one browser's progress through the handshake.
type FlowState int

const (
	StateIdle FlowState = iota
	StateAuthorizing
	StateCallbackReceived
	StateConnected
	StateError
)

func (s FlowState) String() string {
	switch s {
	case StateIdle:
		return "idle"
	case StateAuthorizing:
		return "authorizing"
	case StateCallbackReceived:
		return "callback_received"
	case StateConnected:
		return "connected"
	case StateError:
		return "error"
	default:
		return "unknown"
	}
}

const (
	StatusConnected = "connected"
	StatusError     = "error"
)

// Messages shown on the interstitial redirect page.
const (
	MessageStateMismatch = "We could not validate your Canva session. Redirecting..."
	MessageProviderError = "Canva reported an error. Redirecting..."
	MessageMissingCode   = "Missing authorization code from Canva. Redirecting..."
	MessageReturning     = "Returning to Funeral Coordinator..."
)

// Flow runs the Authorization Code with PKCE handshake.
type Flow struct {
	cfg    *config.IntegrationConfig
	client *TokenClient
	pkce   *session.Store[session.PkceSession]
	tokens *session.Store[session.TokenSession]
}

func NewFlow(cfg *config.IntegrationConfig, client *TokenClient, pkce *session.Store[session.PkceSession], tokens *session.Store[session.TokenSession]) *Flow {
	return &Flow{
		cfg:    cfg,
		client: client,
		pkce:   pkce,
		tokens: tokens,
	}
}

type StartResult struct {
	AuthorizeURL string
	State        FlowState
}

// Start begins a handshake for a browser on origin. The PKCE session is
// written to jar and the authorize URL returned for the browser to follow.
func (f *Flow) Start(ctx context.Context, jar session.Jar, origin, returnTo string) (*StartResult, error) {
	if f == nil || f.cfg == nil {
		return nil, apperrors.ErrNotConfigured
	}

	state, err := NewState()
	if err != nil {
		return nil, err
	}
	verifier, err := NewCodeVerifier()
	if err != nil {
		return nil, err
	}
	redirectURI := f.cfg.ResolveRedirectURI(origin)

	authorizeURL := f.client.AuthCodeURL(state, verifier, redirectURI)
	if err := checkAuthorizeURL(authorizeURL, origin); err != nil {
		metrics.HandshakesTotal.WithLabelValues("start", ReasonInvalidAuthorizeURL).Inc()
		log.Error().Str("authorizeUrl", authorizeURL).Msg("Refusing to redirect to an invalid Canva authorize URL")
		return nil, err
	}

	err = f.pkce.Save(jar, &session.PkceSession{
		State:        state,
		CodeVerifier: verifier,
		ReturnTo:     returnTo,
		RedirectURI:  redirectURI,
		CreatedAt:    session.NowTimeFunc(),
	})
	if err != nil {
		return nil, apperrors.Wrapf(err, "[Flow.Start] save pkce session")
	}

	metrics.HandshakesTotal.WithLabelValues("start", metrics.OutcomeSuccess).Inc()
	return &StartResult{AuthorizeURL: authorizeURL, State: StateAuthorizing}, nil
}

// checkAuthorizeURL rejects authorize URLs that are relative or point back
// at the site itself, which would loop the browser.
func checkAuthorizeURL(raw, origin string) error {
	u, err := url.Parse(raw)
	if err != nil || config.Origin(u) == "" {
		return &FlowError{Reason: ReasonInvalidAuthorizeURL, Err: apperrors.ErrInvalidAuthorizeURL}
	}
	if site, err := url.Parse(origin); err == nil && config.SameHost(u, site) {
		return &FlowError{Reason: ReasonInvalidAuthorizeURL, Err: apperrors.ErrInvalidAuthorizeURL}
	}
	return nil
}

// CallbackParams are the query parameters Canva sends to the redirect URI.
type CallbackParams struct {
	Code             string
	State            string
	Error            string
	ErrorDescription string
}

type CallbackResult struct {
	State    FlowState
	Status   string // StatusConnected or StatusError
	Reason   string
	Message  string
	Redirect string // Sanitized return path with canvaStatus and reason
	Err      error
}

// Callback completes a handshake. It never fails outright: the result always
// says where to send the browser. The PKCE session is consumed whatever the
// outcome.
func (f *Flow) Callback(ctx context.Context, jar session.Jar, origin string, params CallbackParams) *CallbackResult {
	var pkce *session.PkceSession
	if f != nil && f.pkce != nil {
		pkce = f.pkce.Load(jar)
		f.pkce.Clear(jar)
	}

	returnPath := DefaultReturnPath
	if pkce != nil {
		returnPath = SanitizeReturnPath(pkce.ReturnTo, origin)
	}

	fail := func(reason, message string, err error) *CallbackResult {
		if f != nil && f.tokens != nil {
			f.tokens.Clear(jar)
		}
		metrics.HandshakesTotal.WithLabelValues("callback", failureLabel(reason)).Inc()
		return &CallbackResult{
			State:    StateError,
			Status:   StatusError,
			Reason:   reason,
			Message:  message,
			Redirect: withStatus(returnPath, StatusError, reason),
			Err:      &FlowError{Reason: reason, Err: err},
		}
	}

	if pkce == nil || !statesMatch(pkce.State, params.State) {
		return fail(ReasonStateMismatch, MessageStateMismatch, apperrors.ErrStateMismatch)
	}
	log.Debug().Stringer("state", StateCallbackReceived).Msg("Canva callback received")
	if params.Error != "" {
		reason := params.ErrorDescription
		if reason == "" {
			reason = params.Error
		}
		return fail(reason, MessageProviderError, apperrors.ErrProviderDenied)
	}
	if params.Code == "" {
		return fail(ReasonMissingCode, MessageMissingCode, apperrors.ErrMissingCode)
	}

	redirectURI := pkce.RedirectURI
	if redirectURI == "" {
		redirectURI = f.cfg.RedirectURI
	}
	tokens, err := f.client.Exchange(ctx, params.Code, pkce.CodeVerifier, redirectURI)
	if err == nil {
		err = f.tokens.Save(jar, tokens)
	}
	if err != nil {
		log.Err(err).Msg("Canva authorization code exchange failed")
		return fail(ReasonTokenExchangeFailed, MessageReturning, err)
	}

	log.Info().Object("session", tokens).Msg("Canva account connected")
	metrics.HandshakesTotal.WithLabelValues("callback", metrics.OutcomeSuccess).Inc()
	return &CallbackResult{
		State:    StateConnected,
		Status:   StatusConnected,
		Message:  MessageReturning,
		Redirect: withStatus(returnPath, StatusConnected, ""),
	}
}

// Status reports how far the browser behind jar has got: connected when it
// holds a token session, authorizing while a PKCE session is pending and idle
// otherwise.
func (f *Flow) Status(jar session.Jar) FlowState {
	if f == nil || f.tokens == nil || f.pkce == nil {
		return StateIdle
	}
	if f.tokens.Load(jar) != nil {
		return StateConnected
	}
	if f.pkce.Load(jar) != nil {
		return StateAuthorizing
	}
	return StateIdle
}

func statesMatch(stored, received string) bool {
	if stored == "" || received == "" {
		return false
	}
	return subtle.ConstantTimeCompare([]byte(stored), []byte(received)) == 1
}

// failureLabel keeps provider supplied reasons out of metric labels.
func failureLabel(reason string) string {
	switch reason {
	case ReasonStateMismatch, ReasonMissingCode, ReasonTokenExchangeFailed:
		return reason
	default:
		return "provider_error"
	}
}
