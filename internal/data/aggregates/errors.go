package aggregates

import (
	"context"
	"errors"
	"strings"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
)

var (
	// ErrValidation indicates caller input validation failure.
	ErrValidation = errors.New("aggregate validation")
	// ErrInvariant indicates invariant rule violation.
	ErrInvariant = errors.New("aggregate invariant violation")
	// ErrConflict indicates optimistic/concurrency conflict.
	ErrConflict = errors.New("aggregate conflict")
	// ErrRetryable indicates transient retryable failure.
	ErrRetryable = errors.New("aggregate retryable")
	// ErrNotFound indicates a missing aggregate root or member.
	ErrNotFound = errors.New("aggregate not found")
)

// taggedError carries a sentinel for errors.Is while keeping the caller-facing message clean.
type taggedError struct {
	tag   error
	msg   string
	cause error
}

func (e *taggedError) Error() string        { return e.msg }
func (e *taggedError) Is(target error) bool { return target == e.tag }
func (e *taggedError) Unwrap() error        { return e.cause }

func tag(sentinel error, msg string, cause error) error {
	msg = strings.TrimSpace(msg)
	if msg == "" && cause != nil {
		msg = cause.Error()
	}
	return &taggedError{tag: sentinel, msg: msg, cause: cause}
}

// ValidationError tags an error as validation failure.
func ValidationError(msg string) error { return tag(ErrValidation, msg, nil) }

// InvariantError tags an error as invariant violation.
func InvariantError(msg string) error { return tag(ErrInvariant, msg, nil) }

// ConflictError tags an error as conflict failure.
func ConflictError(msg string) error { return tag(ErrConflict, msg, nil) }

// RetryableError tags an error as retryable failure.
func RetryableError(msg string) error { return tag(ErrRetryable, msg, nil) }

// NotFoundError tags an error as a missing entity.
func NotFoundError(msg string) error { return tag(ErrNotFound, msg, nil) }

// AsValidation tags cause as a validation failure, keeping it reachable via errors.As.
func AsValidation(cause error) error { return tag(ErrValidation, "", cause) }

// AsInvariant tags cause as an invariant violation.
func AsInvariant(cause error) error { return tag(ErrInvariant, "", cause) }

// MapError maps infrastructure/domain failures into aggregate error codes.
func MapError(op string, err error) error {
	if err == nil {
		return nil
	}
	if _, ok := err.(*domainagg.Error); ok {
		return err
	}
	switch {
	case errors.Is(err, ErrValidation):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, ErrInvariant):
		return domainagg.Wrap(domainagg.CodeInvariantViolation, op, err)
	case errors.Is(err, ErrConflict):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case errors.Is(err, ErrRetryable):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	case errors.Is(err, ErrNotFound), errors.Is(err, gorm.ErrRecordNotFound):
		return domainagg.Wrap(domainagg.CodeNotFound, op, err)
	case errors.Is(err, imagestore.ErrEmptyContent), errors.Is(err, imagestore.ErrInvalidRef), errors.Is(err, imagestore.ErrOutsideRoot):
		return domainagg.Wrap(domainagg.CodeValidation, op, err)
	case errors.Is(err, context.Canceled), errors.Is(err, context.DeadlineExceeded):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	}

	var pgErr *pgconn.PgError
	if errors.As(err, &pgErr) {
		switch strings.TrimSpace(pgErr.Code) {
		case "23505":
			return domainagg.Wrap(domainagg.CodeConflict, op, err) // unique_violation
		case "23503":
			return domainagg.Wrap(domainagg.CodePreconditionFailed, op, err) // foreign_key_violation
		case "40001", "40P01", "55P03":
			return domainagg.Wrap(domainagg.CodeRetryable, op, err) // serialization/deadlock/lock_not_available
		}
	}

	msg := strings.ToLower(strings.TrimSpace(err.Error()))
	switch {
	case strings.Contains(msg, "duplicate key"),
		strings.Contains(msg, "already exists"),
		strings.Contains(msg, "unique constraint"):
		return domainagg.Wrap(domainagg.CodeConflict, op, err)
	case strings.Contains(msg, "deadlock"),
		strings.Contains(msg, "serialization"),
		strings.Contains(msg, "database is locked"),
		strings.Contains(msg, "timeout"),
		strings.Contains(msg, "temporar"):
		return domainagg.Wrap(domainagg.CodeRetryable, op, err)
	default:
		return domainagg.Wrap(domainagg.CodeInternal, op, err)
	}
}
