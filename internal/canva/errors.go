package canva

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"net"
	"net/http"

	apperrors "github.com/jrsteele09/funeral-coordinator/internal/errors"
)

// Redirect reasons reported back to the browser after a handshake.
const (
	ReasonStateMismatch       = "state_mismatch"
	ReasonMissingCode         = "missing_code"
	ReasonTokenExchangeFailed = "token_exchange_failed"
	ReasonInvalidAuthorizeURL = "invalid_authorize_url"
)

// FlowError is a handshake failure that carries the reason shown to the user.
type FlowError struct {
	Reason string
	Err    error
}

func (e *FlowError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("canva authorization: %s: %v", e.Reason, e.Err)
	}
	return "canva authorization: " + e.Reason
}

func (e *FlowError) Unwrap() error {
	return e.Err
}

type TokenOp string

const (
	OpExchange TokenOp = "exchange"
	OpRefresh  TokenOp = "refresh"
)

// TokenError is a failed call to the token endpoint. Status and Body come
// from the token endpoint when it answered; otherwise Status is 502, or 504
// when the call timed out.
type TokenError struct {
	Op     TokenOp
	Status int
	Body   json.RawMessage
	Err    error
}

func (e *TokenError) Error() string {
	return fmt.Sprintf("canva token %s failed with status %d: %v", e.Op, e.Status, e.Err)
}

func (e *TokenError) Unwrap() []error {
	kind := apperrors.ErrTokenExchange
	if e.Op == OpRefresh {
		kind = apperrors.ErrTokenRefresh
	}
	return withCause(kind, e.Err)
}

// APIError is a failed gateway call. Body holds the upstream JSON body when
// it could be parsed.
type APIError struct {
	Status  int
	Body    json.RawMessage
	Message string
	Err     error
}

func (e *APIError) Error() string {
	return fmt.Sprintf("canva api: %s (status %d)", e.Message, e.Status)
}

func (e *APIError) Unwrap() []error {
	return withCause(e.kind(), e.Err)
}

func (e *APIError) kind() error {
	switch e.Status {
	case http.StatusUnauthorized:
		return apperrors.ErrUnauthenticated
	case http.StatusForbidden:
		return apperrors.ErrForbidden
	default:
		return apperrors.ErrUpstream
	}
}

// CorrelationError is any failure to verify a return-navigation token.
type CorrelationError struct {
	Err error
}

func (e *CorrelationError) Error() string {
	return fmt.Sprintf("%s: %v", apperrors.ErrInvalidJWT, e.Err)
}

func (e *CorrelationError) Unwrap() []error {
	return withCause(apperrors.ErrInvalidJWT, e.Err)
}

func withCause(kind, cause error) []error {
	if cause == nil {
		return []error{kind}
	}
	return []error{kind, cause}
}

func notConfiguredError() *APIError {
	return &APIError{
		Status:  http.StatusServiceUnavailable,
		Body:    json.RawMessage(`{"error":"missing_configuration"}`),
		Message: "Canva integration is not configured",
		Err:     apperrors.ErrNotConfigured,
	}
}

// transportStatus maps a failure to reach an upstream to a gateway status.
func transportStatus(err error) int {
	var netErr net.Error
	if errors.Is(err, context.DeadlineExceeded) || (errors.As(err, &netErr) && netErr.Timeout()) {
		return http.StatusGatewayTimeout
	}
	return http.StatusBadGateway
}

// jsonOrNil returns body when it is valid JSON.
func jsonOrNil(body []byte) json.RawMessage {
	if len(body) == 0 || !json.Valid(body) {
		return nil
	}
	return json.RawMessage(body)
}
