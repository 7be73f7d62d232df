package local

import (
	"context"
	"errors"
	"fmt"
	"io"
	"io/fs"
	"os"
	"path/filepath"
	"strings"

	"upscale-bot/internal/shared/storage/object"
)

// Store keeps scratch objects on the local filesystem under baseDir.
type Store struct {
	baseDir string
}

// New returns a store rooted at baseDir. The directory is created lazily.
func New(baseDir string) *Store {
	return &Store{baseDir: baseDir}
}

// Put streams r into a temp file next to its final path and renames it into
// place once fully written, so readers never observe a partial object.
func (s *Store) Put(ctx context.Context, owner, fileName string, r io.Reader) (object.Object, error) {
	key, err := object.NewKey(owner, fileName)
	if err != nil {
		return object.Object{}, err
	}
	if err := ctx.Err(); err != nil {
		return object.Object{}, err
	}
	mimeType, body, err := object.Sniff(r)
	if err != nil {
		return object.Object{}, err
	}

	final := filepath.Join(s.baseDir, filepath.FromSlash(key))
	if err := os.MkdirAll(filepath.Dir(final), 0o700); err != nil {
		return object.Object{}, fmt.Errorf("mkdir: %w", err)
	}
	tmp, err := os.CreateTemp(filepath.Dir(final), ".partial-*")
	if err != nil {
		return object.Object{}, fmt.Errorf("create temp: %w", err)
	}
	size, err := io.Copy(tmp, body)
	if cerr := tmp.Close(); err == nil {
		err = cerr
	}
	if err == nil {
		err = os.Rename(tmp.Name(), final)
	}
	if err != nil {
		_ = os.Remove(tmp.Name())
		return object.Object{}, fmt.Errorf("write %s: %w", key, err)
	}
	return object.Object{Key: key, Size: size, MimeType: mimeType}, nil
}

// Open opens a stored object for reading.
func (s *Store) Open(ctx context.Context, key string) (io.ReadCloser, error) {
	if err := ctx.Err(); err != nil {
		return nil, err
	}
	full, err := s.resolve(key)
	if err != nil {
		return nil, err
	}
	return os.Open(full)
}

// Delete removes a stored object and its owner directory once empty. Missing
// objects are not an error.
func (s *Store) Delete(_ context.Context, key string) error {
	full, err := s.resolve(key)
	if err != nil {
		return err
	}
	if err := os.Remove(full); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return err
	}
	// Fails harmlessly while other runs of the same owner are staged.
	_ = os.Remove(filepath.Dir(full))
	return nil
}

func (s *Store) resolve(key string) (string, error) {
	clean := filepath.Clean(filepath.FromSlash(key))
	if clean == "." || clean == ".." || strings.HasPrefix(clean, ".."+string(filepath.Separator)) || filepath.IsAbs(clean) {
		return "", fmt.Errorf("invalid scratch key %q", key)
	}
	return filepath.Join(s.baseDir, clean), nil
}

var _ object.ScratchStore = (*Store)(nil)
