// Package fsx holds the small filesystem primitives the transcoders build
// their replace-in-place guarantees on: existence checks, atomic writes via
// a sibling temp file, and renames that survive crossing filesystems.
package fsx

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
)

// Swappable so tests can simulate EXDEV and filesystems without hard links.
var (
	renameFunc = os.Rename
	linkFunc   = os.Link
)

// Exists reports whether anything (file, dir, symlink) is present at path.
func Exists(path string) bool {
	_, err := os.Lstat(path)
	return err == nil
}

// IsRegular reports whether path resolves to a regular file.
func IsRegular(path string) bool {
	fi, err := os.Stat(path)
	return err == nil && fi.Mode().IsRegular()
}

// Size returns the size of the file at path.
func Size(path string) (int64, error) {
	fi, err := os.Stat(path)
	if err != nil {
		return 0, err
	}
	return fi.Size(), nil
}

// Move renames src to dst. When the two are on different filesystems the
// file is copied, synced, and the source removed.
func Move(src, dst string) error {
	err := renameFunc(src, dst)
	if err == nil || !isEXDEV(err) {
		return err
	}
	if err := copyFile(src, dst); err != nil {
		_ = os.Remove(dst)
		return fmt.Errorf("cross-device move %s -> %s: %w", src, dst, err)
	}
	return os.Remove(src)
}

func copyFile(src, dst string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	fi, err := in.Stat()
	if err != nil {
		return err
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, fi.Mode().Perm())
	if err != nil {
		return err
	}
	if _, err := io.Copy(out, in); err != nil {
		out.Close()
		return err
	}
	if err := out.Sync(); err != nil {
		out.Close()
		return err
	}
	return out.Close()
}

// ErrExists is returned by WriteNew and MoveNew when the destination is
// already present.
var ErrExists = errors.New("destination already exists")

// MoveNew moves src to dst only if dst does not exist. The check and the
// move are one atomic step: dst is hard-linked to src, or where links are
// unavailable, created with O_EXCL and copied into. Of two concurrent
// calls for the same dst exactly one succeeds.
func MoveNew(src, dst string) error {
	err := linkFunc(src, dst)
	if errors.Is(err, fs.ErrExist) {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}
	if err != nil {
		if err := copyFile(src, dst); err != nil {
			if errors.Is(err, fs.ErrExist) {
				return fmt.Errorf("%w: %s", ErrExists, dst)
			}
			_ = os.Remove(dst)
			return fmt.Errorf("move %s -> %s: %w", src, dst, err)
		}
	}
	if err := os.Remove(src); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// WriteNew creates dst by streaming write into a temp file in dst's
// directory and moving it into place with MoveNew. dst must not exist, and
// an existing dst is never replaced, even one created while write ran. On
// any error the temp file is removed and dst is left as it was.
func WriteNew(dst string, write func(w io.Writer) error) error {
	if Exists(dst) {
		return fmt.Errorf("%w: %s", ErrExists, dst)
	}
	dir := filepath.Dir(dst)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return err
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(dst)+".tmp-*")
	if err != nil {
		return err
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = tmp.Close()
			_ = os.Remove(tmpName)
		}
	}()

	if err := write(tmp); err != nil {
		return err
	}
	if err := tmp.Sync(); err != nil {
		return err
	}
	if err := tmp.Close(); err != nil {
		return err
	}
	if err := os.Chmod(tmpName, 0o644); err != nil {
		return err
	}
	if err := MoveNew(tmpName, dst); err != nil {
		return err
	}
	committed = true
	return nil
}
