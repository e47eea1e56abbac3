//go:build windows

package nativelog

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLockNameIsPerDirectory(t *testing.T) {
	a := lockName(`C:\logs\a`)
	assert.True(t, strings.HasPrefix(a, `Local\paste-uploader-log-`))
	assert.Equal(t, a, lockName(`c:\LOGS\a\`))
	assert.NotEqual(t, a, lockName(`C:\logs\b`))
}

func TestWithProcessLogLockReentersAfterRelease(t *testing.T) {
	dir := t.TempDir()
	calls := 0
	for i := 0; i < 2; i++ {
		require.NoError(t, withProcessLogLock(dir, func() error {
			calls++
			return nil
		}))
	}
	assert.Equal(t, 2, calls)
}
