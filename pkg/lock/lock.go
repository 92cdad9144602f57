// Package lock serializes work per key across goroutines or processes.
package lock

import (
	"context"
	"errors"
)

// ErrNotAcquired is returned when a lock could not be taken before the
// context ended.
var ErrNotAcquired = errors.New("lock not acquired")

// Locker hands out exclusive locks by key.
type Locker interface {
	// Lock blocks until key is held or ctx ends. The returned release
	// function is safe to call more than once.
	Lock(ctx context.Context, key string) (release func(), err error)
}
