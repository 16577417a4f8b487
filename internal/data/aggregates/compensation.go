package aggregates

import (
	"context"
	"errors"
	"sync"
	"time"

	"golang.org/x/sync/errgroup"

	"github.com/yungbote/portfolio-backend/internal/platform/logger"
)

const (
	outcomeDeleted = "deleted"
	outcomeFailed  = "failed"
	outcomeKept    = "kept"
)

// errBlobReferenced reports a blob that gained an image record before it could be deleted.
var errBlobReferenced = errors.New("blob is referenced by an image")

// blobDeleter removes one blob. The aggregate's deleter re-checks references first.
type blobDeleter interface {
	Delete(ctx context.Context, ref string) error
}

// compensation records blobs written during one write so a failed write can remove them.
// The database side needs no entry here: the transaction rollback undoes it.
type compensation struct {
	op      string
	store   blobDeleter
	log     *logger.Logger
	hooks   Hooks
	timeout time.Duration

	mu   sync.Mutex
	refs []string
}

func newCompensation(op string, store blobDeleter, log *logger.Logger, hooks Hooks, timeout time.Duration) *compensation {
	return &compensation{op: op, store: store, log: log, hooks: hooks, timeout: timeout}
}

func (c *compensation) push(ref string) {
	c.mu.Lock()
	c.refs = append(c.refs, ref)
	c.mu.Unlock()
}

func (c *compensation) pending() []string {
	c.mu.Lock()
	defer c.mu.Unlock()
	return append([]string(nil), c.refs...)
}

// run deletes every recorded blob, newest first, and forgets them.
// It keeps going past failures; those are logged and counted, never returned,
// so the caller still reports the error that triggered compensation.
func (c *compensation) run(ctx context.Context) (deleted, failed int) {
	c.mu.Lock()
	refs := c.refs
	c.refs = nil
	c.mu.Unlock()

	// The request context may already be cancelled; cleanup must still happen.
	base := context.WithoutCancel(ctx)
	for i := len(refs) - 1; i >= 0; i-- {
		dctx, cancel := context.WithTimeout(base, c.timeout)
		err := c.store.Delete(dctx, refs[i])
		cancel()
		if errors.Is(err, errBlobReferenced) {
			c.hooks.IncCompensation(c.op, outcomeKept)
			continue
		}
		if err != nil {
			failed++
			c.hooks.IncCompensation(c.op, outcomeFailed)
			c.log.Warn("Compensating blob delete failed; blob left as orphan", "op", c.op, "ref", refs[i], "error", err)
			continue
		}
		deleted++
		c.hooks.IncCompensation(c.op, outcomeDeleted)
	}
	if len(refs) > 0 {
		c.log.Info("Compensated stored blobs", "op", c.op, "deleted", deleted, "failed", failed)
	}
	return deleted, failed
}

// deleteBlobs removes blobs whose records are already gone. Best-effort: an undeleted
// blob is only an orphan, which the sweeper collects later.
func deleteBlobs(ctx context.Context, op string, refs []string, store blobDeleter, log *logger.Logger, hooks Hooks, timeout time.Duration, limit int) (deleted, failed int) {
	if len(refs) == 0 {
		return 0, 0
	}
	if limit <= 0 {
		limit = 1
	}
	base := context.WithoutCancel(ctx)

	var mu sync.Mutex
	var g errgroup.Group
	g.SetLimit(limit)
	for _, ref := range refs {
		g.Go(func() error {
			dctx, cancel := context.WithTimeout(base, timeout)
			err := store.Delete(dctx, ref)
			cancel()

			mu.Lock()
			defer mu.Unlock()
			if errors.Is(err, errBlobReferenced) {
				hooks.IncBlobDelete(op, outcomeKept)
				log.Info("Blob kept; an image references it again", "op", op, "ref", ref)
				return nil
			}
			if err != nil {
				failed++
				hooks.IncBlobDelete(op, outcomeFailed)
				log.Warn("Blob delete failed; blob left as orphan", "op", op, "ref", ref, "error", err)
				return nil
			}
			deleted++
			hooks.IncBlobDelete(op, outcomeDeleted)
			return nil
		})
	}
	_ = g.Wait()
	return deleted, failed
}
