package engine

import (
	"context"
	"fmt"
	"os"
	"time"

	"github.com/gofrs/flock"
)

const lockRetry = 50 * time.Millisecond

// withLock holds an advisory lock on path+".lock" while fn writes path,
// so concurrent jobs never interleave writes to the same output.
func withLock(ctx context.Context, path string, fn func() error) error {
	lockPath := path + ".lock"
	fl := flock.New(lockPath)
	ok, err := fl.TryLockContext(ctx, lockRetry)
	if err != nil {
		return fmt.Errorf("lock %s: %w", path, err)
	}
	if !ok {
		return fmt.Errorf("lock %s: not acquired", path)
	}
	defer func() {
		fl.Unlock()
		os.Remove(lockPath)
	}()
	return fn()
}
