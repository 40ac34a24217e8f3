package errors

import (
	stdErrors "errors"
	"fmt"
	"net/http"
)

type Code string

const (
	CodeValidation             Code = "VALIDATION_ERROR"
	CodeNotFound               Code = "NOT_FOUND"
	CodeConflict               Code = "CONFLICT"
	CodeStateConflict          Code = "STATE_CONFLICT"
	CodeInsufficientStock      Code = "INSUFFICIENT_STOCK"
	CodeInvalidDiscount        Code = "INVALID_DISCOUNT"
	CodeOverpayment            Code = "OVERPAYMENT_EXCEEDS_OUTSTANDING"
	CodeConcurrentModification Code = "CONCURRENT_MODIFICATION"
	CodeIdempotency            Code = "IDEMPOTENCY_KEY_REUSED"
	CodeInternal               Code = "INTERNAL_ERROR"
	CodeDependency             Code = "DEPENDENCY_ERROR"
)

// Metadata drives how a code is rendered over HTTP and whether callers may
// retry the whole operation.
type Metadata struct {
	HTTPStatus     int
	Retryable      bool
	PublicMessage  string
	DetailsAllowed bool
}

// rejected is a caller mistake or a business rule refusal.
func rejected(status int, public string) Metadata {
	return Metadata{HTTPStatus: status, PublicMessage: public, DetailsAllowed: true}
}

// transient failures leave nothing written, so the caller can resubmit.
func transient(status int, public string, details bool) Metadata {
	return Metadata{HTTPStatus: status, Retryable: true, PublicMessage: public, DetailsAllowed: details}
}

var metadataByCode = map[Code]Metadata{
	CodeValidation:             rejected(http.StatusBadRequest, "validation failed"),
	CodeNotFound:               rejected(http.StatusNotFound, "resource not found"),
	CodeConflict:               {HTTPStatus: http.StatusConflict, PublicMessage: "conflict detected"},
	CodeStateConflict:          rejected(http.StatusUnprocessableEntity, "state transition disallowed"),
	CodeInsufficientStock:      rejected(http.StatusConflict, "insufficient stock"),
	CodeInvalidDiscount:        rejected(http.StatusUnprocessableEntity, "invalid discount"),
	CodeOverpayment:            rejected(http.StatusUnprocessableEntity, "payment exceeds outstanding amount"),
	CodeIdempotency:            rejected(http.StatusConflict, "idempotency key reused"),
	CodeConcurrentModification: transient(http.StatusConflict, "resource modified concurrently, retry the operation", true),
	CodeDependency:             transient(http.StatusServiceUnavailable, "dependency unavailable", true),
	CodeInternal:               transient(http.StatusInternalServerError, "internal server error", false),
}

func MetadataFor(code Code) Metadata {
	if meta, ok := metadataByCode[code]; ok {
		return meta
	}
	return metadataByCode[CodeInternal]
}

type Error struct {
	code    Code
	message string
	details any
	cause   error
}

func New(code Code, message string) *Error {
	return &Error{code: code, message: message}
}

func Wrap(code Code, err error, message string) *Error {
	if err == nil {
		return New(code, message)
	}
	return &Error{code: code, message: message, cause: err}
}

// NotFound reports a missing entity with its id in the details.
func NotFound(entity, id string) *Error {
	return New(CodeNotFound, fmt.Sprintf("%s not found", entity)).
		WithDetails(map[string]any{"entity": entity, "id": id})
}

func InsufficientStock(productID string, available, requested string) *Error {
	return New(CodeInsufficientStock, "insufficient stock").
		WithDetails(map[string]any{
			"product_id": productID,
			"available":  available,
			"requested":  requested,
		})
}

func InvalidDiscount(reason string) *Error {
	return New(CodeInvalidDiscount, reason).WithDetails(map[string]any{"reason": reason})
}

func ConcurrentModification(entity, id string) *Error {
	return New(CodeConcurrentModification, fmt.Sprintf("%s was modified concurrently", entity)).
		WithDetails(map[string]any{"entity": entity, "id": id})
}

func (e *Error) Code() Code {
	if e == nil {
		return CodeInternal
	}
	return e.code
}

// ErrorCode lets the logger tag entries without importing this package.
func (e *Error) ErrorCode() string {
	return string(e.Code())
}

func (e *Error) Message() string {
	if e == nil {
		return ""
	}
	return e.message
}

func (e *Error) Details() any {
	if e == nil {
		return nil
	}
	return e.details
}

func (e *Error) WithDetails(details any) *Error {
	if e == nil {
		return nil
	}
	e.details = details
	return e
}

func (e *Error) Error() string {
	if e == nil {
		return ""
	}
	return fmt.Sprintf("%s: %s", e.code, e.message)
}

func (e *Error) Unwrap() error {
	if e == nil {
		return nil
	}
	return e.cause
}

func As(err error) *Error {
	if err == nil {
		return nil
	}
	var typed *Error
	if stdErrors.As(err, &typed) {
		return typed
	}
	return nil
}

// IsCode reports whether any typed error in the chain carries code.
func IsCode(err error, code Code) bool {
	typed := As(err)
	return typed != nil && typed.code == code
}
