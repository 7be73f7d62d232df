package object

import (
	"bytes"
	"context"
	"errors"
	"fmt"
	"io"
	"sync"
)

// Object describes a staged scratch object.
type Object struct {
	Key      string
	Size     int64
	MimeType string
}

// Scope tracks every object staged through it so a single deferred Release
// removes all of them, whichever path the caller exits through.
type Scope struct {
	store ScratchStore
	owner string

	mu       sync.Mutex
	keys     []string
	released bool
}

// NewScope returns a scope that stages objects for owner in store.
func NewScope(store ScratchStore, owner string) *Scope {
	return &Scope{store: store, owner: owner}
}

// Put stages r under fileName and registers it for release.
func (s *Scope) Put(ctx context.Context, fileName string, r io.Reader) (Object, error) {
	obj, err := s.store.Put(ctx, s.owner, fileName, r)
	if err != nil {
		return Object{}, err
	}
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.released {
		// Release already ran; drop the late object right away.
		_ = s.store.Delete(context.WithoutCancel(ctx), obj.Key)
		return Object{}, errors.New("scratch scope already released")
	}
	s.keys = append(s.keys, obj.Key)
	return obj, nil
}

// ReadAll returns the full contents of a staged object.
func (s *Scope) ReadAll(ctx context.Context, obj Object) ([]byte, error) {
	rc, err := s.store.Open(ctx, obj.Key)
	if err != nil {
		return nil, err
	}
	defer rc.Close()
	var buf bytes.Buffer
	if obj.Size > 0 {
		buf.Grow(int(obj.Size))
	}
	if _, err := io.Copy(&buf, rc); err != nil {
		return nil, fmt.Errorf("read scratch object: %w", err)
	}
	return buf.Bytes(), nil
}

// Keys returns the keys currently held by the scope.
func (s *Scope) Keys() []string {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]string(nil), s.keys...)
}

// Release deletes every staged object. It is safe to call more than once.
func (s *Scope) Release(ctx context.Context) error {
	s.mu.Lock()
	keys := s.keys
	s.keys = nil
	s.released = true
	s.mu.Unlock()

	var errs []error
	for _, key := range keys {
		if err := s.store.Delete(ctx, key); err != nil {
			errs = append(errs, fmt.Errorf("delete %s: %w", key, err))
		}
	}
	return errors.Join(errs...)
}
