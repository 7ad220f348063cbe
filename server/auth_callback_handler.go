package server

import (
	"net/http"

	"github.com/jrsteele09/funeral-coordinator/internal/canva"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

// OAuthCallbackHandler completes the handshake. Whatever happens the browser
// gets a redirect page back to the site, tagged with canvaStatus and reason.
func (s *Server) OAuthCallbackHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		origin := requestOrigin(r)

		result := s.flow.Callback(r.Context(), session.RequestJar(w, r), origin, canva.CallbackParams{
			Code:             query.Get("code"),
			State:            query.Get("state"),
			Error:            query.Get("error"),
			ErrorDescription: query.Get("error_description"),
		})

		if result.Err != nil {
			log.Ctx(r.Context()).Warn().
				Err(result.Err).
				Str("reason", result.Reason).
				Msg("Canva handshake did not complete")
		}
		s.renderRedirect(w, r, origin+result.Redirect, result.Message)
	}
}
