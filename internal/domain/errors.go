package domain

import (
	"errors"
	"fmt"
)

var (
	// ErrInvalidInput signals an empty or malformed required argument.
	ErrInvalidInput = errors.New("invalid input")
	// ErrNotFound signals a missing record.
	ErrNotFound = errors.New("not found")
	// ErrAccessDenied signals a record owned by someone else.
	ErrAccessDenied = errors.New("access denied")
	// ErrAlreadyExists signals a duplicate key under the reject-duplicate policy.
	ErrAlreadyExists = errors.New("already exists")
	// ErrTransportRejected signals a failed outbound detection call.
	ErrTransportRejected = errors.New("transport rejected")
	// ErrDecodeFailure signals an undecodable detection response.
	ErrDecodeFailure = errors.New("failed to parse detection result")
	// ErrStorageCorruption signals a stored record that no longer decodes.
	// Callers must abort instead of using any partial value.
	ErrStorageCorruption = errors.New("storage corruption")
	// ErrBudgetExceeded signals an exhausted detection cost budget.
	ErrBudgetExceeded = errors.New("detection budget exceeded")
)

// Kind is the closed set of failure kinds exposed to callers.
type Kind string

const (
	KindNone              Kind = ""
	KindInvalidInput      Kind = "invalid_input"
	KindNotFound          Kind = "not_found"
	KindAccessDenied      Kind = "access_denied"
	KindDuplicateKey      Kind = "duplicate_key"
	KindTransportRejected Kind = "transport_rejected"
	KindDecodeFailure     Kind = "decode_failure"
	KindStorageCorruption Kind = "storage_corruption"
	KindBudgetExceeded    Kind = "budget_exceeded"
	KindInternal          Kind = "internal"
)

var kinds = []struct {
	sentinel error
	kind     Kind
}{
	// Corruption first: a corrupt record found while checking ownership is still corruption.
	{ErrStorageCorruption, KindStorageCorruption},
	{ErrInvalidInput, KindInvalidInput},
	{ErrNotFound, KindNotFound},
	{ErrAccessDenied, KindAccessDenied},
	{ErrAlreadyExists, KindDuplicateKey},
	{ErrTransportRejected, KindTransportRejected},
	{ErrDecodeFailure, KindDecodeFailure},
	{ErrBudgetExceeded, KindBudgetExceeded},
}

// KindOf classifies err. Unknown errors are KindInternal, nil is KindNone.
func KindOf(err error) Kind {
	if err == nil {
		return KindNone
	}
	for _, k := range kinds {
		if errors.Is(err, k.sentinel) {
			return k.kind
		}
	}
	return KindInternal
}

// RejectionError carries the remote rejection code and message verbatim.
// Code is the HTTP status, or 0 when no response was received.
type RejectionError struct {
	Code    int
	Message string
}

func (e *RejectionError) Error() string {
	return fmt.Sprintf("%s: code %d: %s", ErrTransportRejected.Error(), e.Code, e.Message)
}

func (e *RejectionError) Unwrap() error { return ErrTransportRejected }

// NewRejection creates a transport rejection error.
func NewRejection(code int, message string) error {
	return &RejectionError{Code: code, Message: message}
}

// Invalid returns an ErrInvalidInput naming the offending field.
func Invalid(field string) error {
	return fmt.Errorf("%w: %s cannot be empty", ErrInvalidInput, field)
}
