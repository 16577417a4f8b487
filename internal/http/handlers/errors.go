package handlers

import (
	"errors"
	"net/http"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
)

// statusForError maps an aggregate error code onto an HTTP status and response code.
func statusForError(err error) (int, string) {
	code := domainagg.CodeOf(err)
	switch code {
	case domainagg.CodeValidation, domainagg.CodeInvariantViolation, domainagg.CodePreconditionFailed:
		return http.StatusBadRequest, string(code)
	case domainagg.CodeNotFound:
		return http.StatusNotFound, string(code)
	case domainagg.CodeConflict:
		return http.StatusConflict, string(code)
	case domainagg.CodeRetryable:
		return http.StatusServiceUnavailable, string(code)
	case "":
		return http.StatusInternalServerError, string(domainagg.CodeInternal)
	default:
		return http.StatusInternalServerError, string(code)
	}
}

// publicError strips the op and code decoration from aggregate errors while keeping
// field errors reachable for the response envelope.
func publicError(err error) error {
	var aggErr *domainagg.Error
	if !errors.As(err, &aggErr) {
		return err
	}
	return &messageError{msg: domainagg.MessageOf(err), cause: err}
}

type messageError struct {
	msg   string
	cause error
}

func (e *messageError) Error() string { return e.msg }
func (e *messageError) Unwrap() error { return e.cause }
