package storage

import (
	"fmt"

	"github.com/gofrs/flock"
)

// acquireLock takes a non-blocking exclusive lock on path+".lock".
func acquireLock(path string) (*flock.Flock, error) {
	fl := flock.New(path + ".lock")
	ok, err := fl.TryLock()
	if err != nil {
		return nil, fmt.Errorf("lock %s: %w", fl.Path(), err)
	}
	if !ok {
		return nil, fmt.Errorf("%w (%s)", ErrLocked, fl.Path())
	}
	return fl, nil
}
