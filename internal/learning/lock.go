// lock.go - Exclusive retrain lock across processes

package learning

import (
	"fmt"
	"os"
	"time"
)

// Stale locks are taken over after this age; a retrain run that holds a
// lock for minutes has crashed.
const lockStaleAfter = 5 * time.Minute

// acquireLock creates <path>.lock exclusively. Only one retrain writer may
// run at a time; readers never take the lock.
func acquireLock(path string) (release func(), err error) {
	lockPath := path + ".lock"

	for attempt := 0; attempt < 2; attempt++ {
		f, err := os.OpenFile(lockPath, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
		if err == nil {
			fmt.Fprintf(f, "pid=%d time=%s\n", os.Getpid(), time.Now().Format(time.RFC3339))
			f.Close()
			return func() { os.Remove(lockPath) }, nil
		}
		if !os.IsExist(err) {
			return nil, fmt.Errorf("failed to create lock file: %w", err)
		}

		info, statErr := os.Stat(lockPath)
		if statErr == nil && time.Since(info.ModTime()) > lockStaleAfter {
			os.Remove(lockPath)
			continue
		}
		return nil, fmt.Errorf("another retrain is in progress (lock %s held)", lockPath)
	}

	return nil, fmt.Errorf("could not acquire lock %s", lockPath)
}
