package fs

import (
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestLocalFS(t *testing.T) {
	dir := filepath.Join(t.TempDir(), "subdir")
	require.NoError(t, Default.MkdirAll(dir, 0o755))

	path := filepath.Join(dir, "a.knn")
	f, err := Default.OpenFile(path, os.O_CREATE|os.O_RDWR|os.O_EXCL, 0o644)
	require.NoError(t, err)
	assert.Equal(t, path, f.Name())

	_, err = f.Write([]byte("hello"))
	require.NoError(t, err)
	require.NoError(t, f.Sync())
	require.NoError(t, f.Close())

	_, err = Default.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	require.ErrorIs(t, err, os.ErrExist)

	renamed := filepath.Join(dir, "b.knn")
	require.NoError(t, Default.Rename(path, renamed))
	data, err := os.ReadFile(renamed)
	require.NoError(t, err)
	assert.Equal(t, "hello", string(data))

	require.NoError(t, Default.Remove(renamed))
	_, err = os.Stat(renamed)
	require.ErrorIs(t, err, os.ErrNotExist)
}

func TestFaultyFS(t *testing.T) {
	dir := t.TempDir()
	ffs := NewFaultyFS(nil)
	ffs.AddRule("limited", Fault{FailAfterBytes: 4})
	ffs.AddRule("nosync", Fault{FailAfterBytes: -1, FailOnSync: true})
	ffs.AddRule("noclose", Fault{FailAfterBytes: -1, FailOnClose: true, Err: os.ErrPermission})
	ffs.AddRule("norename", Fault{FailAfterBytes: -1, FailOnRename: true})

	open := func(name string) File {
		f, err := ffs.OpenFile(filepath.Join(dir, name), os.O_CREATE|os.O_WRONLY, 0o644)
		require.NoError(t, err)
		return f
	}

	t.Run("WriteLimit", func(t *testing.T) {
		f := open("limited")
		defer f.Close()
		n, err := f.Write([]byte("abc"))
		require.NoError(t, err)
		assert.Equal(t, 3, n)
		_, err = f.Write([]byte("de"))
		require.ErrorIs(t, err, ErrInjected)
	})

	t.Run("Sync", func(t *testing.T) {
		f := open("nosync")
		defer f.Close()
		require.ErrorIs(t, f.Sync(), ErrInjected)
	})

	t.Run("Close", func(t *testing.T) {
		require.ErrorIs(t, open("noclose").Close(), os.ErrPermission)
	})

	t.Run("Rename", func(t *testing.T) {
		require.NoError(t, open("norename").Close())
		err := ffs.Rename(filepath.Join(dir, "norename"), filepath.Join(dir, "other"))
		require.ErrorIs(t, err, ErrInjected)
	})

	t.Run("NoRule", func(t *testing.T) {
		f := open("plain")
		_, err := f.Write([]byte("unlimited"))
		require.NoError(t, err)
		require.NoError(t, f.Sync())
		require.NoError(t, f.Close())
		require.NoError(t, ffs.Rename(filepath.Join(dir, "plain"), filepath.Join(dir, "plain2")))
	})
}
