package services

import (
	"encoding/json"
	"errors"
	"fmt"
	"net/http"
)

// ErrorKind is the machine-readable failure classification returned in
// webhook acknowledgments.
type ErrorKind string

const (
	ErrKindInvalidPayload          ErrorKind = "invalid_payload"
	ErrKindSignatureVerification   ErrorKind = "signature_verification"
	ErrKindUnconfiguredIntegration ErrorKind = "unconfigured_integration"
	ErrKindMappingNotFound         ErrorKind = "mapping_not_found"
	ErrKindNoMappableItems         ErrorKind = "no_mappable_items"
	ErrKindCustomerResolution      ErrorKind = "customer_resolution"
	ErrKindOrderCreation           ErrorKind = "order_creation"
	ErrKindTransientNetwork        ErrorKind = "transient_network"
)

// ReconcileError is the application error carried through the pipeline.
type ReconcileError struct {
	Kind    ErrorKind `json:"kind"`
	Message string    `json:"message"`
	// Status is the backend HTTP status for order_creation failures.
	Status int   `json:"status,omitempty"`
	Err    error `json:"-"`
}

func (e *ReconcileError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("%s: %s: %v", e.Kind, e.Message, e.Err)
	}
	return fmt.Sprintf("%s: %s", e.Kind, e.Message)
}

func (e *ReconcileError) Unwrap() error {
	return e.Err
}

// JSON returns the error as a JSON string
func (e *ReconcileError) JSON() string {
	b, _ := json.Marshal(e)
	return string(b)
}

// HTTPStatus maps the error kind to the acknowledgment status code.
func (e *ReconcileError) HTTPStatus() int {
	switch e.Kind {
	case ErrKindInvalidPayload, ErrKindSignatureVerification:
		return http.StatusBadRequest
	case ErrKindNoMappableItems:
		return http.StatusUnprocessableEntity
	default:
		return http.StatusInternalServerError
	}
}

// NewError creates a new ReconcileError
func NewError(kind ErrorKind, message string, err error) *ReconcileError {
	return &ReconcileError{Kind: kind, Message: message, Err: err}
}

// IsKind reports whether err is a ReconcileError of the given kind.
func IsKind(err error, kind ErrorKind) bool {
	var re *ReconcileError
	if errors.As(err, &re) {
		return re.Kind == kind
	}
	return false
}
