// Package storage keeps attachment bytes on the local filesystem.
package storage

import (
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"strings"

	"github.com/google/uuid"

	"github.com/iliyamo/memos/internal/apperr"
)

// TypeLocal is the storage_type recorded for files kept by LocalStore.
const TypeLocal = "LOCAL"

// LocalStore writes files under Root/<user id>/<uuid><ext>.  References
// handed out are relative to Root.
type LocalStore struct {
	Root string
}

func NewLocalStore(root string) *LocalStore { return &LocalStore{Root: root} }

// Save copies at most max bytes of r into a new file owned by userID.
// Inputs larger than max are rejected with apperr.ErrInvalid and leave
// nothing behind.
func (s *LocalStore) Save(userID uint64, filename string, r io.Reader, max int64) (ref string, size int64, err error) {
	dir := strconv.FormatUint(userID, 10)
	if err := os.MkdirAll(filepath.Join(s.Root, dir), 0o755); err != nil {
		return "", 0, fmt.Errorf("mkdir: %w", err)
	}
	ext := strings.ToLower(filepath.Ext(filepath.Base(filename)))
	if len(ext) > 16 {
		ext = ""
	}
	ref = filepath.ToSlash(filepath.Join(dir, uuid.NewString()+ext))
	path := filepath.Join(s.Root, filepath.FromSlash(ref))

	f, err := os.OpenFile(path, os.O_CREATE|os.O_EXCL|os.O_WRONLY, 0o644)
	if err != nil {
		return "", 0, fmt.Errorf("create: %w", err)
	}
	defer func() {
		if cerr := f.Close(); err == nil && cerr != nil {
			err = cerr
		}
		if err != nil {
			_ = os.Remove(path)
		}
	}()

	size, err = io.Copy(f, io.LimitReader(r, max+1))
	if err != nil {
		return "", 0, fmt.Errorf("write: %w", err)
	}
	if size > max {
		return "", 0, apperr.New(apperr.ErrInvalid, "file too large")
	}
	return ref, size, nil
}

// Open returns the file behind ref.
func (s *LocalStore) Open(ref string) (io.ReadSeekCloser, error) {
	path, err := s.resolve(ref)
	if err != nil {
		return nil, err
	}
	f, err := os.Open(path)
	if errors.Is(err, os.ErrNotExist) {
		return nil, apperr.ErrNotFound
	}
	if err != nil {
		return nil, err
	}
	return f, nil
}

// Remove deletes the file behind ref.  Missing files are not an error.
func (s *LocalStore) Remove(ref string) error {
	path, err := s.resolve(ref)
	if err != nil {
		return err
	}
	if err := os.Remove(path); err != nil && !errors.Is(err, os.ErrNotExist) {
		return err
	}
	return nil
}

// resolve maps ref to a path and refuses anything escaping Root.
func (s *LocalStore) resolve(ref string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(ref))
	if clean == "." || filepath.IsAbs(clean) || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || clean == ".." {
		return "", apperr.New(apperr.ErrInvalid, "bad file reference")
	}
	return filepath.Join(s.Root, clean), nil
}
