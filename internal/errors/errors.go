package errors

import (
	"errors"
	"fmt"
	"net/http"
	"strings"

	validation "github.com/go-ozzo/ozzo-validation/v4"
	"github.com/go-playground/validator/v10"
)

// Kinds reported to clients in the "kind" field.
const (
	KindAuth                 = "auth"
	KindUnauthorized         = "unauthorized"
	KindValidation           = "validation"
	KindWrite                = "write"
	KindNotFound             = "not_found"
	KindConfirmationRequired = "confirmation_required"
	KindBadRequest           = "bad_request"
	KindForbidden            = "forbidden"
	KindConflict             = "conflict"
	KindInternal             = "internal"
)

// APIError is the error every handler pushes with c.Error.
type APIError struct {
	Status   int               `json:"-"`
	Kind     string            `json:"kind"`
	Message  string            `json:"error"`
	Fields   map[string]string `json:"fields,omitempty"`
	Step     string            `json:"step,omitempty"`
	Redirect string            `json:"redirect,omitempty"`
	Internal error             `json:"-"`
}

func (e *APIError) Error() string {
	if e.Internal != nil {
		return e.Message + ": " + e.Internal.Error()
	}
	return e.Message
}

func (e *APIError) Unwrap() error {
	return e.Internal
}

// WithRedirect returns a copy pointing the client at path.
func (e *APIError) WithRedirect(path string) *APIError {
	cp := *e
	cp.Redirect = path
	return &cp
}

func newAPIError(status int, kind, message string, err error) *APIError {
	return &APIError{
		Status:   status,
		Kind:     kind,
		Message:  message,
		Internal: err,
	}
}

func BadRequest(message string, err error) *APIError {
	return newAPIError(http.StatusBadRequest, KindBadRequest, message, err)
}

// AuthFailed is a rejected credential. The client may retry.
func AuthFailed(message string, err error) *APIError {
	return newAPIError(http.StatusUnauthorized, KindAuth, message, err)
}

// Unauthorized means there is no usable session.
func Unauthorized(message string, err error) *APIError {
	return newAPIError(http.StatusUnauthorized, KindUnauthorized, message, err)
}

func Forbidden(message string, err error) *APIError {
	return newAPIError(http.StatusForbidden, KindForbidden, message, err)
}

// NotFound sends the client back to the list.
func NotFound(message string, err error) *APIError {
	e := newAPIError(http.StatusNotFound, KindNotFound, message, err)
	e.Redirect = "/"
	return e
}

func Conflict(message string, err error) *APIError {
	return newAPIError(http.StatusConflict, KindConflict, message, err)
}

func UnprocessableEntity(message string, err error) *APIError {
	return newAPIError(http.StatusUnprocessableEntity, KindValidation, message, err)
}

func ConfirmationRequired(message string) *APIError {
	return newAPIError(http.StatusPreconditionRequired, KindConfirmationRequired, message, nil)
}

// WriteFailed reports a write the database rejected. step names which write
// of a multi-write operation failed; earlier steps are not rolled back.
func WriteFailed(step string, err error) *APIError {
	e := newAPIError(http.StatusInternalServerError, KindWrite, fmt.Sprintf("Could not save (%s)", step), err)
	e.Step = step
	return e
}

func Internal(err error) *APIError {
	return newAPIError(http.StatusInternalServerError, KindInternal, "Internal server error", err)
}

// NewValidationError converts binding and domain validation failures into a
// 422 with per-field messages.
func NewValidationError(err error) *APIError {
	e := newAPIError(http.StatusUnprocessableEntity, KindValidation, "Validation failed", err)

	var verrs validator.ValidationErrors
	if errors.As(err, &verrs) {
		e.Fields = make(map[string]string, len(verrs))
		for _, fe := range verrs {
			e.Fields[strings.ToLower(fe.Field())] = validationMessage(fe)
		}
		return e
	}

	var oerrs validation.Errors
	if errors.As(err, &oerrs) {
		e.Fields = make(map[string]string, len(oerrs))
		for field, fe := range oerrs {
			e.Fields[field] = fe.Error()
		}
	}
	return e
}

func validationMessage(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return "is required"
	case "max":
		return "must be at most " + fe.Param() + " characters"
	case "min":
		return "must be at least " + fe.Param() + " characters"
	case "oneof":
		return "must be one of " + fe.Param()
	case "email":
		return "must be a valid email"
	}
	return "is invalid"
}
