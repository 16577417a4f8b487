package aggregates

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgconn"

	domainagg "github.com/yungbote/portfolio-backend/internal/domain/aggregates"
	"github.com/yungbote/portfolio-backend/internal/platform/dbctx"
	"github.com/yungbote/portfolio-backend/internal/platform/imagestore"
	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

// countingHooks tallies hook calls keyed by "op status" or "op outcome".
type countingHooks struct {
	ops       map[string]int
	conflicts map[string]int
	retries   map[string]int
	comp      map[string]int
	blobs     map[string]int
}

func newCountingHooks() *countingHooks {
	return &countingHooks{
		ops:       map[string]int{},
		conflicts: map[string]int{},
		retries:   map[string]int{},
		comp:      map[string]int{},
		blobs:     map[string]int{},
	}
}

func (h *countingHooks) ObserveOperation(name, status string, _ time.Duration) {
	h.ops[name+" "+status]++
}
func (h *countingHooks) IncConflict(name string)              { h.conflicts[name]++ }
func (h *countingHooks) IncRetry(name string)                 { h.retries[name]++ }
func (h *countingHooks) IncCompensation(name, outcome string) { h.comp[name+" "+outcome]++ }
func (h *countingHooks) IncBlobDelete(name, outcome string)   { h.blobs[name+" "+outcome]++ }

// directRunner runs fn without a database.
type directRunner struct{}

func (directRunner) InTx(ctx context.Context, fn func(dbc dbctx.Context) error) error {
	return fn(dbctx.Context{Ctx: ctx})
}

func TestExecuteWriteMapsImageStoreErrorsToValidation(t *testing.T) {
	const op = "Portfolio.Project.AddImages"
	cases := []error{
		imagestore.ErrEmptyContent,
		fmt.Errorf("store side.jpg: %w", imagestore.ErrInvalidRef),
		fmt.Errorf("store ../x.jpg: %w", imagestore.ErrOutsideRoot),
	}
	for _, cause := range cases {
		hooks := newCountingHooks()
		err := executeWrite(context.Background(), BaseDeps{Runner: directRunner{}, Hooks: hooks}, op,
			func(dbctx.Context) error { return cause })
		if domainagg.KindOf(err) != domainagg.KindInvalidInput {
			t.Fatalf("%v: want kind=%s got=%s", cause, domainagg.KindInvalidInput, domainagg.KindOf(err))
		}
		if !errors.Is(err, cause) {
			t.Fatalf("%v: cause lost in %v", cause, err)
		}
		if got := hooks.ops[op+" "+string(domainagg.CodeValidation)]; got != 1 {
			t.Fatalf("%v: validation observations: want=1 got=%d", cause, got)
		}
	}
}

func TestExecuteWriteCountsConflictsAndRetries(t *testing.T) {
	const op = "Portfolio.Project.Update"
	hooks := newCountingHooks()
	deps := BaseDeps{Runner: directRunner{}, Hooks: hooks}

	writes := []error{
		&pgconn.PgError{Code: "23505", Message: "duplicate key value violates unique constraint \"uq_image_project_seq\""},
		ConflictError("Project was modified concurrently"),
		errors.New("database is locked"),
		&pgconn.PgError{Code: "40P01"},
		nil,
	}
	for _, w := range writes {
		_ = executeWrite(context.Background(), deps, op, func(dbctx.Context) error { return w })
	}

	if hooks.conflicts[op] != 2 {
		t.Fatalf("conflicts: want=2 got=%d", hooks.conflicts[op])
	}
	if hooks.retries[op] != 2 {
		t.Fatalf("retries: want=2 got=%d", hooks.retries[op])
	}
	if hooks.ops[op+" success"] != 1 || hooks.ops[op+" "+string(domainagg.CodeConflict)] != 2 {
		t.Fatalf("operation statuses: %v", hooks.ops)
	}
}

func TestFinishWriteObservesRejectionsBeforeTx(t *testing.T) {
	const op = "Portfolio.Project.RemoveImage"
	hooks := newCountingHooks()
	err := finishWrite(BaseDeps{Hooks: hooks}, op, time.Now(),
		NotFoundError("Project not found with id: 7d4a0c1e-0000-0000-0000-000000000000"))
	if domainagg.KindOf(err) != domainagg.KindNotFound {
		t.Fatalf("kind: want=%s got=%s", domainagg.KindNotFound, domainagg.KindOf(err))
	}
	if hooks.ops[op+" "+string(domainagg.CodeNotFound)] != 1 {
		t.Fatalf("operation statuses: %v", hooks.ops)
	}

	invariant := domainagg.NewError(domainagg.CodeInvariantViolation, "Portfolio.Project.Create", "Project requires at least one BEFORE image", nil)
	if got := finishWrite(BaseDeps{Hooks: hooks}, op, time.Now(), invariant); got != invariant {
		t.Fatalf("domain error must pass through unchanged: got=%v", got)
	}
}

type scriptedDeleter struct {
	results map[string]error
	order   []string
}

func (d *scriptedDeleter) Delete(_ context.Context, ref string) error {
	d.order = append(d.order, ref)
	return d.results[ref]
}

func TestCompensationCountsEachOutcome(t *testing.T) {
	const op = "Portfolio.Project.Create"
	hooks := newCountingHooks()
	del := &scriptedDeleter{results: map[string]error{
		"/uploads/b.jpg": errBlobReferenced,
		"/uploads/c.jpg": errors.New("disk unavailable"),
	}}
	c := newCompensation(op, del, logger.Nop(), hooks, time.Second)
	for _, ref := range []string{"/uploads/a.jpg", "/uploads/b.jpg", "/uploads/c.jpg"} {
		c.push(ref)
	}

	deleted, failed := c.run(context.Background())
	if deleted != 1 || failed != 1 {
		t.Fatalf("run: want deleted=1 failed=1 got deleted=%d failed=%d", deleted, failed)
	}
	if want := []string{"/uploads/c.jpg", "/uploads/b.jpg", "/uploads/a.jpg"}; fmt.Sprint(del.order) != fmt.Sprint(want) {
		t.Fatalf("order: want=%v got=%v", want, del.order)
	}
	for _, outcome := range []string{outcomeDeleted, outcomeKept, outcomeFailed} {
		if hooks.comp[op+" "+outcome] != 1 {
			t.Fatalf("compensation %s: want=1 got=%d", outcome, hooks.comp[op+" "+outcome])
		}
	}
	if len(c.pending()) != 0 {
		t.Fatalf("run must forget recorded blobs")
	}
}

func TestDeleteBlobsCountsKeptSeparately(t *testing.T) {
	const op = "Portfolio.Project.Delete"
	hooks := newCountingHooks()
	del := &scriptedDeleter{results: map[string]error{"/uploads/adopted.jpg": errBlobReferenced}}

	deleted, failed := deleteBlobs(context.Background(), op, []string{"/uploads/gone.jpg", "/uploads/adopted.jpg"},
		del, logger.Nop(), hooks, time.Second, 1)
	if deleted != 1 || failed != 0 {
		t.Fatalf("deleteBlobs: want deleted=1 failed=0 got deleted=%d failed=%d", deleted, failed)
	}
	if hooks.blobs[op+" "+outcomeKept] != 1 || hooks.blobs[op+" "+outcomeDeleted] != 1 {
		t.Fatalf("blob outcomes: %v", hooks.blobs)
	}
}

func TestAggregateErrorStatus(t *testing.T) {
	cases := map[string]error{
		"success":                               nil,
		string(domainagg.CodeValidation):        ValidationError("Image type is required"),
		string(domainagg.CodeNotFound):          NotFoundError("Image not found"),
		string(domainagg.CodeRetryable):         context.DeadlineExceeded,
		string(domainagg.CodePreconditionFailed): &pgconn.PgError{Code: "23503"},
		string(domainagg.CodeInternal):          errors.New("write /var/uploads: no space left on device"),
	}
	for want, err := range cases {
		if got := aggregateErrorStatus(err); got != want {
			t.Fatalf("%v: want=%s got=%s", err, want, got)
		}
	}
}
