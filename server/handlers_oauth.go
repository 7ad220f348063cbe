package server

import (
	"encoding/json"
	"io"
	"net/http"

	"github.com/jrsteele09/funeral-coordinator/internal/canva"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

const (
	errCanvaNotConfigured = "canva_not_configured"
	errUnexpected         = "unexpected_error"

	maxRequestBodyBytes = 1 << 20
)

type errorBody struct {
	Error any `json:"error"`
}

type startRequest struct {
	ReturnTo string `json:"returnTo"`
}

type startResponse struct {
	AuthorizeURL string `json:"authorizeUrl"`
}

// OAuthStartRedirectHandler begins the handshake and sends the browser
// straight to Canva.
func (s *Server) OAuthStartRedirectHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		returnTo := r.URL.Query().Get("returnTo")
		origin := requestOrigin(r)

		result, err := s.flow.Start(r.Context(), session.RequestJar(w, r), origin, returnTo)
		switch {
		case err == nil:
			http.Redirect(w, r, result.AuthorizeURL, http.StatusFound)
		case apperrors.Is(err, apperrors.ErrInvalidAuthorizeURL):
			s.renderRedirect(w, r, origin+canva.ErrorRedirect(returnTo, origin, canva.ReasonInvalidAuthorizeURL), canva.MessageReturning)
		default:
			s.writeStartError(w, r, err)
		}
	}
}

// OAuthStartHandler begins the handshake for script clients, which follow
// the returned authorizeUrl themselves.
func (s *Server) OAuthStartHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body startRequest
		if err := decodeJSONBody(w, r, &body); err != nil {
			log.Ctx(r.Context()).Debug().Err(err).Msg("Ignoring unreadable start request body")
		}

		result, err := s.flow.Start(r.Context(), session.RequestJar(w, r), requestOrigin(r), body.ReturnTo)
		if err != nil {
			s.writeStartError(w, r, err)
			return
		}
		writeJSON(w, http.StatusOK, startResponse{AuthorizeURL: result.AuthorizeURL})
	}
}

func (s *Server) writeStartError(w http.ResponseWriter, r *http.Request, err error) {
	switch {
	case apperrors.Is(err, apperrors.ErrNotConfigured):
		log.Ctx(r.Context()).Warn().Err(err).Msg("Canva integration is not configured")
		writeJSON(w, http.StatusServiceUnavailable, errorBody{Error: errCanvaNotConfigured})
	case apperrors.Is(err, apperrors.ErrInvalidAuthorizeURL):
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: canva.ReasonInvalidAuthorizeURL})
	default:
		log.Ctx(r.Context()).Err(err).Msg("Failed to start the Canva handshake")
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errUnexpected})
	}
}

// decodeJSONBody reads at most maxRequestBodyBytes of JSON into v. An empty
// body leaves v untouched.
func decodeJSONBody(w http.ResponseWriter, r *http.Request, v any) error {
	if r.Body == nil || r.Body == http.NoBody {
		return nil
	}
	err := json.NewDecoder(http.MaxBytesReader(w, r.Body, maxRequestBodyBytes)).Decode(v)
	if apperrors.Is(err, io.EOF) {
		return nil
	}
	return err
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json; charset=utf-8")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}
