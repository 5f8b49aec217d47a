package chi

import (
	"encoding/json"
	"errors"
	"net/http"

	"github.com/kailas-cloud/sentinel/internal/domain"
)

// ErrorResponse is the body of every error reply.
type ErrorResponse struct {
	Code    domain.Kind `json:"code"`
	Message string      `json:"message"`
}

// Codes that do not come from domain kinds.
const (
	codeBadRequest   domain.Kind = "bad_request"
	codeUnauthorized domain.Kind = "unauthorized"
	codeTooLarge     domain.Kind = "payload_too_large"
)

// errorHandler tries to handle a domain error. Returns true if handled.
type errorHandler func(w http.ResponseWriter, err error) bool

// sentinelHandler matches a single sentinel and answers with its kind.
// With verbose set the full error text is returned; otherwise only the
// sentinel text, so wrapped context never reaches the caller.
func sentinelHandler(sentinel error, status int, verbose bool) errorHandler {
	kind := domain.KindOf(sentinel)
	return func(w http.ResponseWriter, err error) bool {
		if !errors.Is(err, sentinel) {
			return false
		}
		msg := sentinel.Error()
		if verbose {
			msg = err.Error()
		}
		writeError(w, status, kind, msg)
		return true
	}
}

// rejectionHandler passes the remote code and message through verbatim.
func rejectionHandler(w http.ResponseWriter, err error) bool {
	var rej *domain.RejectionError
	if !errors.As(err, &rej) {
		return false
	}
	writeError(w, http.StatusBadGateway, domain.KindTransportRejected, rej.Error())
	return true
}

func defaultErrorHandlers() []errorHandler {
	return []errorHandler{
		// Corruption first: it may wrap any other sentinel.
		sentinelHandler(domain.ErrStorageCorruption, http.StatusInternalServerError, false),
		sentinelHandler(domain.ErrInvalidInput, http.StatusBadRequest, true),
		sentinelHandler(domain.ErrNotFound, http.StatusNotFound, false),
		sentinelHandler(domain.ErrAccessDenied, http.StatusForbidden, false),
		sentinelHandler(domain.ErrAlreadyExists, http.StatusConflict, false),
		sentinelHandler(domain.ErrBudgetExceeded, http.StatusPaymentRequired, false),
		rejectionHandler,
		sentinelHandler(domain.ErrDecodeFailure, http.StatusBadGateway, false),
	}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func writeError(w http.ResponseWriter, status int, code domain.Kind, message string) {
	writeJSON(w, status, ErrorResponse{Code: code, Message: message})
}
