package store

import (
	"context"
	"errors"
	"time"

	"github.com/gofrs/flock"
)

// acquireLock acquires the advisory lock for a record's sidecar .lock file,
// retrying until timeout elapses, and reports ErrLockTimeout if it could not.
// The caller must call releaseLock when done.
func acquireLock(path string, exclusive bool, timeout time.Duration) (*flock.Flock, error) {
	fl := flock.New(path + ".lock")

	ctx, cancel := context.WithTimeout(context.Background(), timeout)
	defer cancel()

	retry := 100 * time.Millisecond

	var locked bool
	var err error
	if exclusive {
		locked, err = fl.TryLockContext(ctx, retry)
	} else {
		locked, err = fl.TryRLockContext(ctx, retry)
	}
	if err != nil && !errors.Is(err, context.DeadlineExceeded) {
		return nil, err
	}
	if !locked {
		return nil, ErrLockTimeout
	}

	return fl, nil
}

func releaseLock(fl *flock.Flock) {
	if fl == nil {
		return
	}
	_ = fl.Unlock()
}
