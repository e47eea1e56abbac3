//go:build windows

package nativelog

import (
	"errors"
	"fmt"
	"hash/fnv"
	"path/filepath"
	"strings"
	"sync"

	"golang.org/x/sys/windows"
)

// Named mutexes live for the process; one per log directory.
var (
	logLocksMu sync.Mutex
	logLocks   = map[string]windows.Handle{}
)

func withProcessLogLock(dir string, fn func() error) error {
	h, err := logLockHandle(lockName(dir))
	if err != nil {
		return err
	}

	state, err := windows.WaitForSingleObject(h, windows.INFINITE)
	if err != nil {
		return fmt.Errorf("wait log lock for %s: %w", dir, err)
	}
	switch state {
	case windows.WAIT_OBJECT_0, windows.WAIT_ABANDONED:
	default:
		return fmt.Errorf("wait log lock for %s: unexpected state %d", dir, state)
	}
	defer windows.ReleaseMutex(h)

	return fn()
}

// lockName derives a session-wide mutex name from the log directory, so
// processes writing to different directories do not block each other.
func lockName(dir string) string {
	abs, err := filepath.Abs(dir)
	if err != nil {
		abs = dir
	}
	h := fnv.New64a()
	_, _ = h.Write([]byte(strings.ToLower(filepath.Clean(abs))))
	return fmt.Sprintf(`Local\paste-uploader-log-%016x`, h.Sum64())
}

func logLockHandle(name string) (windows.Handle, error) {
	logLocksMu.Lock()
	defer logLocksMu.Unlock()

	if h, ok := logLocks[name]; ok {
		return h, nil
	}
	ptr, err := windows.UTF16PtrFromString(name)
	if err != nil {
		return 0, err
	}
	h, err := windows.CreateMutex(nil, false, ptr)
	if err != nil && !errors.Is(err, windows.ERROR_ALREADY_EXISTS) {
		return 0, fmt.Errorf("create log lock %s: %w", name, err)
	}
	if h == 0 {
		return 0, fmt.Errorf("create log lock %s: invalid handle", name)
	}
	logLocks[name] = h
	return h, nil
}
