package apierror

import (
	"errors"
	"fmt"
	"github.com/go-playground/validator/v10"
	"net/http"
	"strings"
)

// ErrorResponse is returned by services instead of a plain error so that
// routes can forward the HTTP status and a stable machine-readable code.
type ErrorResponse interface {
	error
	Code() int
	ErrorCode() string
}

type APIError struct {
	Status  int    `json:"-"`
	Kind    string `json:"code"`
	Message string `json:"message"`
}

func New(status int, kind, message string) *APIError {
	return &APIError{Status: status, Kind: kind, Message: message}
}

func (e *APIError) Error() string {
	return e.Kind + ": " + e.Message
}

func (e *APIError) Code() int {
	return e.Status
}

func (e *APIError) ErrorCode() string {
	return e.Kind
}

// Is matches on the machine-readable code so wrapped or copied errors
// still compare equal to the package values.
func (e *APIError) Is(target error) bool {
	var other *APIError
	if !errors.As(target, &other) {
		return false
	}
	return e.Kind == other.Kind
}

const (
	CodeInvalidRequest       = "InvalidRequest"
	CodeMalformedBody        = "MalformedBody"
	CodeInvalidDateFormat    = "InvalidDateFormat"
	CodeInvalidTimeRange     = "InvalidTimeRange"
	CodeInvalidMetadata      = "InvalidMetadata"
	CodeInvalidAtParameter   = "InvalidAtParameter"
	CodeTimeRangeUnavailable = "TimeRangeUnavailable"
	CodeStorageContention    = "StorageContention"
	CodeNotFound             = "NotFound"
	CodeInternalError        = "InternalError"
)

var (
	MalformedBodyError        = New(http.StatusBadRequest, CodeMalformedBody, "Request body could not be decoded")
	InvalidDateFormatError    = New(http.StatusBadRequest, CodeInvalidDateFormat, "Invalid datetime")
	InvalidTimeRangeError     = New(http.StatusBadRequest, CodeInvalidTimeRange, "start must be before end")
	InvalidMetadataError      = New(http.StatusBadRequest, CodeInvalidMetadata, "createdAt > updatedAt")
	InvalidAtParameterError   = New(http.StatusBadRequest, CodeInvalidAtParameter, "Invalid at")
	TimeRangeUnavailableError = New(http.StatusConflict, CodeTimeRangeUnavailable, "time range not available")
	StorageContentionError    = New(http.StatusServiceUnavailable, CodeStorageContention, "storage is busy, try again")
	NotFoundError             = New(http.StatusNotFound, CodeNotFound, "Resource not found")
	InternalServerError       = New(http.StatusInternalServerError, CodeInternalError, "Internal server error")
)

func NewMissingParamError(param string) *APIError {
	return New(http.StatusBadRequest, CodeInvalidRequest, fmt.Sprintf("Missing required parameter '%s'", param))
}

// FromValidationError converts validator failures into a single
// InvalidRequest error naming every offending field.
func FromValidationError(err error) *APIError {
	var verrs validator.ValidationErrors
	if !errors.As(err, &verrs) {
		return New(http.StatusBadRequest, CodeInvalidRequest, err.Error())
	}

	msgs := make([]string, 0, len(verrs))
	for _, fe := range verrs {
		msgs = append(msgs, describeFieldError(fe))
	}
	return New(http.StatusBadRequest, CodeInvalidRequest, strings.Join(msgs, "; "))
}

func describeFieldError(fe validator.FieldError) string {
	switch fe.Tag() {
	case "required":
		return fmt.Sprintf("'%s' is required", fe.Field())
	case "max":
		return fmt.Sprintf("'%s' must be at most %s characters", fe.Field(), fe.Param())
	default:
		return fmt.Sprintf("'%s' failed '%s' validation", fe.Field(), fe.Tag())
	}
}
