package cache

import (
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"

	"github.com/google/uuid"
	"github.com/sirupsen/logrus"
)

// BlobStore is a flat directory of downloaded files
type BlobStore struct {
	dir string
}

// NewBlobStore creates a blob store rooted at dir
func NewBlobStore(dir string) *BlobStore {
	return &BlobStore{dir: dir}
}

// Dir returns the directory holding the blobs
func (b *BlobStore) Dir() string {
	return b.dir
}

// Init ensures the blob directory exists. A plain file occupying the
// directory's path is replaced.
func (b *BlobStore) Init() error {
	info, err := os.Stat(b.dir)
	switch {
	case err == nil && info.IsDir():
		return nil
	case err == nil:
		logrus.Warnf("Replacing file %s with the blob directory", b.dir)
		if err := os.Remove(b.dir); err != nil {
			return fmt.Errorf("failed to remove file at blob directory path: %w", err)
		}
	case !errors.Is(err, fs.ErrNotExist):
		return err
	}
	return os.MkdirAll(b.dir, 0755)
}

// Path returns the location of a blob
func (b *BlobStore) Path(filename string) string {
	return filepath.Join(b.dir, filename)
}

// Exists reports whether a blob is present
func (b *BlobStore) Exists(filename string) bool {
	if filename == "" {
		return false
	}
	info, err := os.Stat(b.Path(filename))
	return err == nil && !info.IsDir()
}

// Put moves src into the store under its base name, replacing any blob of
// that name, and returns the name
func (b *BlobStore) Put(src string) (string, error) {
	filename := filepath.Base(src)
	if filename == "." || filename == string(filepath.Separator) {
		return "", fmt.Errorf("invalid blob source %q", src)
	}
	dst := b.Path(filename)

	if err := os.Remove(dst); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return "", fmt.Errorf("failed to replace blob %s: %w", filename, err)
	}

	if err := moveFile(src, dst); err != nil {
		return "", err
	}

	logrus.Debugf("Stored blob: %s", dst)
	return filename, nil
}

// Remove deletes a blob, ignoring blobs that are already gone
func (b *BlobStore) Remove(filename string) error {
	if err := os.Remove(b.Path(filename)); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	return nil
}

// Reset replaces the directory with an empty one. The new directory is
// created first and swapped in, so a failure leaves the old blobs in place.
func (b *BlobStore) Reset() error {
	parent := filepath.Dir(b.dir)
	base := filepath.Base(b.dir)

	fresh := filepath.Join(parent, "."+base+"-new-"+uuid.NewString())
	if err := os.MkdirAll(fresh, 0755); err != nil {
		return fmt.Errorf("failed to create empty blob directory: %w", err)
	}

	trash := filepath.Join(parent, "."+base+"-old-"+uuid.NewString())
	if err := os.Rename(b.dir, trash); err != nil {
		if !errors.Is(err, fs.ErrNotExist) {
			_ = os.RemoveAll(fresh)
			return fmt.Errorf("failed to detach blob directory: %w", err)
		}
		trash = ""
	}

	if err := os.Rename(fresh, b.dir); err != nil {
		if trash != "" {
			_ = os.Rename(trash, b.dir)
		}
		_ = os.RemoveAll(fresh)
		return fmt.Errorf("failed to swap in empty blob directory: %w", err)
	}

	if trash != "" {
		if err := os.RemoveAll(trash); err != nil {
			logrus.Errorf("Failed to remove old blob directory %s: %v", trash, err)
		}
	}
	return nil
}

// moveFile renames src to dst, copying when a rename is not possible
// (e.g. across filesystems)
func moveFile(src, dst string) error {
	if err := os.Rename(src, dst); err == nil {
		return nil
	}

	in, err := os.Open(src)
	if err != nil {
		return fmt.Errorf("failed to open downloaded file: %w", err)
	}
	defer func() { _ = in.Close() }()

	out, err := os.Create(dst)
	if err != nil {
		return fmt.Errorf("failed to create blob: %w", err)
	}

	if _, err := io.Copy(out, in); err != nil {
		_ = out.Close()
		_ = os.Remove(dst)
		return fmt.Errorf("failed to copy downloaded file: %w", err)
	}
	if err := out.Close(); err != nil {
		_ = os.Remove(dst)
		return err
	}

	if err := os.Remove(src); err != nil {
		logrus.Warnf("Failed to remove downloaded file %s after copy: %v", src, err)
	}
	return nil
}
