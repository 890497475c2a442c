package fileutil

import (
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
)

// ErrExists is returned by StreamToNewFile when dst already exists.
var ErrExists = os.ErrExist

// Written describes a file produced by StreamToNewFile.
type Written struct {
	Path   string
	Size   int64
	SHA256 string
}

// StreamToNewFile copies r into dst, which must not exist yet. The parent
// directory is created as needed. On any failure the partial file is
// removed.
func StreamToNewFile(r io.Reader, dst string, mode os.FileMode) (Written, error) {
	if err := os.MkdirAll(filepath.Dir(dst), 0o755); err != nil {
		return Written{}, fmt.Errorf("create parent: %w", err)
	}
	out, err := os.OpenFile(dst, os.O_CREATE|os.O_EXCL|os.O_WRONLY, mode)
	if err != nil {
		return Written{}, err
	}

	hasher := sha256.New()
	size, copyErr := io.Copy(io.MultiWriter(out, hasher), r)
	closeErr := out.Close()
	if err := errors.Join(copyErr, closeErr); err != nil {
		_ = os.Remove(dst)
		return Written{}, err
	}
	return Written{Path: dst, Size: size, SHA256: hex.EncodeToString(hasher.Sum(nil))}, nil
}

// RemoveIfExists deletes path, treating a missing file as success.
func RemoveIfExists(path string) error {
	if path == "" {
		return nil
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}
