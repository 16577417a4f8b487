// Package locks serializes work per key, in-process or across replicas via Redis.
package locks

import (
	"context"
	"errors"
	"fmt"
)

// ErrNotAcquired is returned when the context ends before the lock is obtained.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker grants exclusive access per key. The returned release func is idempotent.
type Locker interface {
	Lock(ctx context.Context, key string) (release func(), err error)
}

// ProjectKey guards writes to one project.
func ProjectKey(id string) string { return "project:" + id }

// BlobKey guards the decision to adopt or discard one stored blob.
func BlobKey(ref string) string { return "blob:" + ref }

func notAcquired(key string, cause error) error {
	return fmt.Errorf("%w: key=%s: %w", ErrNotAcquired, key, cause)
}
