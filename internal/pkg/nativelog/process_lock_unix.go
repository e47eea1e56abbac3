//go:build unix

package nativelog

import (
	"os"
	"path/filepath"

	"golang.org/x/sys/unix"
)

const lockFileName = ".uploader.lock"

func withProcessLogLock(dir string, fn func() error) error {
	lock, err := os.OpenFile(filepath.Join(dir, lockFileName), os.O_CREATE|os.O_RDWR, defaultLogFilePerm)
	if err != nil {
		return err
	}
	defer lock.Close()

	if err := unix.Flock(int(lock.Fd()), unix.LOCK_EX); err != nil {
		return err
	}
	defer func() {
		_ = unix.Flock(int(lock.Fd()), unix.LOCK_UN)
	}()
	return fn()
}
