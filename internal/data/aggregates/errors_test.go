package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"

	"github.com/jackc/pgx/v5/pgconn"
	"gorm.io/gorm"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/domain/portfolio"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
)

func TestMapError_Validation(t *testing.T) {
	err := MapError("op", ValidationError("bad input"))
	if !domainagg.IsCode(err, domainagg.CodeValidation) {
		t.Fatalf("expected validation code, got %q (%v)", domainagg.CodeOf(err), err)
	}
	if got := domainagg.MessageOf(err); got != "bad input" {
		t.Fatalf("message: want=%q got=%q", "bad input", got)
	}
}

func TestMapError_Conflict(t *testing.T) {
	err := MapError("op", ConflictError("stale"))
	if !domainagg.IsCode(err, domainagg.CodeConflict) {
		t.Fatalf("expected conflict code, got %q (%v)", domainagg.CodeOf(err), err)
	}
}

func TestMapError_NotFound(t *testing.T) {
	for _, in := range []error{gorm.ErrRecordNotFound, NotFoundError("Project not found")} {
		err := MapError("op", in)
		if !domainagg.IsCode(err, domainagg.CodeNotFound) {
			t.Fatalf("expected not_found code, got %q (%v)", domainagg.CodeOf(err), err)
		}
	}
}

func TestMapError_InvariantKeepsViolation(t *testing.T) {
	cause := portfolio.ValidateCreationSet([]portfolio.ImageType{portfolio.ImageTypeBefore})
	err := MapError("op", AsInvariant(cause))
	if !domainagg.IsCode(err, domainagg.CodeInvariantViolation) {
		t.Fatalf("expected invariant code, got %q", domainagg.CodeOf(err))
	}
	if domainagg.KindOf(err) != domainagg.KindInvalidInput {
		t.Fatalf("kind: want=%s got=%s", domainagg.KindInvalidInput, domainagg.KindOf(err))
	}
	var v *portfolio.InvariantViolation
	if !errors.As(err, &v) || v.Missing != portfolio.ImageTypeAfter {
		t.Fatalf("expected wrapped violation for AFTER, got %v", err)
	}
	if got := domainagg.MessageOf(err); got != "At least one AFTER image must be provided" {
		t.Fatalf("unexpected message %q", got)
	}
}

func TestMapError_FieldErrorsReachable(t *testing.T) {
	err := MapError("op", AsValidation(portfolio.FieldErrors{"title": "The project requires a title"}))
	var fe portfolio.FieldErrors
	if !errors.As(err, &fe) || fe["title"] == "" {
		t.Fatalf("expected field errors through the chain, got %v", err)
	}
}

func TestMapError_StoreErrors(t *testing.T) {
	empty := &imagestore.Error{Op: "store", Err: imagestore.ErrEmptyContent}
	if code := domainagg.CodeOf(MapError("op", empty)); code != domainagg.CodeValidation {
		t.Fatalf("empty content: want=validation got=%s", code)
	}
	cancelled := &imagestore.Error{Op: "store", Err: context.Canceled}
	if code := domainagg.CodeOf(MapError("op", cancelled)); code != domainagg.CodeRetryable {
		t.Fatalf("cancelled: want=retryable got=%s", code)
	}
	disk := &imagestore.Error{Op: "store", Err: errors.New("no space left on device")}
	mapped := MapError("op", disk)
	if code := domainagg.CodeOf(mapped); code != domainagg.CodeInternal {
		t.Fatalf("disk: want=internal got=%s", code)
	}
	if domainagg.KindOf(mapped) != domainagg.KindInternalStorageError {
		t.Fatalf("disk kind: got=%s", domainagg.KindOf(mapped))
	}
}

func TestMapError_PgCodes(t *testing.T) {
	cases := map[string]domainagg.ErrorCode{
		"23505": domainagg.CodeConflict,
		"23503": domainagg.CodePreconditionFailed,
		"40001": domainagg.CodeRetryable,
		"40P01": domainagg.CodeRetryable,
	}
	for sqlState, want := range cases {
		err := MapError("op", fmt.Errorf("exec: %w", &pgconn.PgError{Code: sqlState}))
		if got := domainagg.CodeOf(err); got != want {
			t.Fatalf("sqlstate %s: want=%s got=%s", sqlState, want, got)
		}
	}
}

func TestMapError_SQLiteMessages(t *testing.T) {
	if code := domainagg.CodeOf(MapError("op", errors.New("UNIQUE constraint failed: image.project_id, image.seq"))); code != domainagg.CodeConflict {
		t.Fatalf("unique: want=conflict got=%s", code)
	}
	if code := domainagg.CodeOf(MapError("op", errors.New("database is locked"))); code != domainagg.CodeRetryable {
		t.Fatalf("locked: want=retryable got=%s", code)
	}
}

func TestMapError_PassthroughAggregateError(t *testing.T) {
	in := domainagg.NewError(domainagg.CodeRetryable, "op", "retry", errors.New("boom"))
	out := MapError("other", in)
	if out != in {
		t.Fatalf("expected passthrough aggregate error")
	}
}
