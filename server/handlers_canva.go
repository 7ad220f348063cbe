package server

import (
	"encoding/json"
	"net/http"
	"strings"

	"github.com/jrsteele09/funeral-coordinator/internal/canva"
	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
	"github.com/jrsteele09/funeral-coordinator/internal/session"
	"github.com/rs/zerolog/log"
)

const (
	errDesignIDRequired = "designId_required"
	errMissingJWT       = "missing_jwt"
	errInvalidJWT       = "invalid_jwt"
)

type sessionResponse struct {
	Connected bool   `json:"connected"`
	ExpiresAt int64  `json:"expiresAt,omitempty"` // Unix milliseconds
	Scope     string `json:"scope,omitempty"`
}

// SessionHandler tells the site whether a Canva account is connected. Tokens
// never leave the cookie.
func (s *Server) SessionHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		tokens := s.tokens.Load(session.RequestJar(w, r))
		if tokens == nil {
			writeJSON(w, http.StatusOK, sessionResponse{Connected: false})
			return
		}
		writeJSON(w, http.StatusOK, sessionResponse{
			Connected: true,
			ExpiresAt: tokens.ExpiresAt.UnixMilli(),
			Scope:     tokens.Scope,
		})
	}
}

func (s *Server) LogoutHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		jar := session.RequestJar(w, r)
		s.pkce.Clear(jar)
		s.tokens.Clear(jar)
		writeJSON(w, http.StatusOK, map[string]bool{"ok": true})
	}
}

func (s *Server) ProfileHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		profile, err := s.gateway.GetProfile(r.Context(), session.RequestJar(w, r))
		if err != nil {
			writeCanvaError(w, r, err, "Unexpected Canva profile error")
			return
		}
		writeJSON(w, http.StatusOK, profile)
	}
}

func (s *Server) BrandTemplatesHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		query := r.URL.Query()
		templates, err := s.gateway.ListBrandTemplates(r.Context(), session.RequestJar(w, r), canva.BrandTemplateQuery{
			Query:        query.Get("query"),
			Continuation: query.Get("continuation"),
			SortBy:       query.Get("sort_by"),
		})
		if err != nil {
			writeCanvaError(w, r, err, "Failed to list Canva brand templates")
			return
		}
		writeJSON(w, http.StatusOK, templates)
	}
}

func (s *Server) CreateExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body canva.ExportRequest
		if err := decodeJSONBody(w, r, &body); err != nil || strings.TrimSpace(body.DesignID) == "" {
			writeJSON(w, http.StatusBadRequest, errorBody{Error: errDesignIDRequired})
			return
		}

		job, err := s.gateway.CreateExport(r.Context(), session.RequestJar(w, r), body)
		if err != nil {
			writeCanvaError(w, r, err, "Failed to create Canva export job")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

func (s *Server) GetExportHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		job, err := s.gateway.GetExport(r.Context(), session.RequestJar(w, r), r.PathValue("exportId"))
		if err != nil {
			writeCanvaError(w, r, err, "Failed to fetch Canva export job")
			return
		}
		writeJSON(w, http.StatusOK, job)
	}
}

type returnRequest struct {
	CorrelationJWT string `json:"correlationJwt"`
}

type returnResponse struct {
	Valid            bool            `json:"valid"`
	Error            string          `json:"error,omitempty"`
	CorrelationState json.RawMessage `json:"correlationState,omitempty"`
	Payload          map[string]any  `json:"payload,omitempty"`
}

// ReturnHandler verifies the correlation JWT Canva appends when it sends a
// user back to the site.
func (s *Server) ReturnHandler() http.HandlerFunc {
	return func(w http.ResponseWriter, r *http.Request) {
		var body returnRequest
		if err := decodeJSONBody(w, r, &body); err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to parse correlation verification request")
		}

		token := strings.TrimSpace(body.CorrelationJWT)
		if token == "" {
			writeJSON(w, http.StatusBadRequest, returnResponse{Error: errMissingJWT})
			return
		}

		assertion, err := s.correlation.Verify(r.Context(), token)
		if err != nil {
			log.Ctx(r.Context()).Warn().Err(err).Msg("Failed to verify correlation JWT")
			writeJSON(w, http.StatusBadRequest, returnResponse{Error: errInvalidJWT})
			return
		}

		state := canva.ExtractState(assertion)
		if state == nil {
			state = json.RawMessage("null")
		}
		writeJSON(w, http.StatusOK, returnResponse{
			Valid:            true,
			CorrelationState: state,
			Payload:          assertion.Payload,
		})
	}
}

// writeCanvaError translates a gateway failure into the response contract
// {"error": <Canva body or {"message": ...}>}.
func writeCanvaError(w http.ResponseWriter, r *http.Request, err error, msg string) {
	var apiErr *canva.APIError
	if !apperrors.As(err, &apiErr) {
		log.Ctx(r.Context()).Err(err).Msg(msg)
		writeJSON(w, http.StatusInternalServerError, errorBody{Error: errUnexpected})
		return
	}

	var detail any = map[string]string{"message": apiErr.Message}
	if apiErr.Body != nil {
		detail = apiErr.Body
	}
	if apiErr.Status >= http.StatusInternalServerError {
		log.Ctx(r.Context()).Err(err).Int("status", apiErr.Status).Msg(msg)
	}
	writeJSON(w, apiErr.Status, errorBody{Error: detail})
}
