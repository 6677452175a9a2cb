package port

import (
	"context"
	"errors"
)

var ErrLockNotAcquired = errors.New("lock not acquired")

type Locker interface {
	// Lock blocks until the lock for key is held or ctx is done. The returned
	// function releases the lock and is safe to call once.
	Lock(ctx context.Context, key string) (unlock func(), err error)
}
