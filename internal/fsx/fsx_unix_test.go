//go:build unix

package fsx

import (
	"os"
	"path/filepath"
	"syscall"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestMove_CrossDeviceFallsBackToCopy(t *testing.T) {
	orig := renameFunc
	t.Cleanup(func() { renameFunc = orig })
	renameFunc = func(oldpath, newpath string) error {
		return &os.LinkError{Op: "rename", Old: oldpath, New: newpath, Err: syscall.EXDEV}
	}

	dir := t.TempDir()
	src := filepath.Join(dir, "a")
	dst := filepath.Join(dir, "b")
	require.NoError(t, os.WriteFile(src, []byte("moved"), 0o600))

	require.NoError(t, Move(src, dst))
	assert.False(t, Exists(src))
	b, err := os.ReadFile(dst)
	require.NoError(t, err)
	assert.Equal(t, "moved", string(b))
}
