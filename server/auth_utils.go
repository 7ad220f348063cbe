package server

import (
	"net/http"

	"github.com/rs/zerolog/log"
)

type redirectPageData struct {
	URL     string
	Message string
}

// renderRedirect answers with a small HTML document that navigates to
// target, with a link for browsers that ignore the meta refresh.
func (s *Server) renderRedirect(w http.ResponseWriter, r *http.Request, target, message string) {
	if message == "" {
		message = "Redirecting..."
	}
	w.Header().Set("Content-Type", "text/html; charset=utf-8")
	w.WriteHeader(http.StatusOK)
	if err := s.redirectPage.Execute(w, redirectPageData{URL: target, Message: message}); err != nil {
		log.Ctx(r.Context()).Err(err).Msg("Failed to render redirect page")
	}
}
