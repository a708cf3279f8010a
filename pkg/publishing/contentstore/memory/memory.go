// Package memory provides an in-memory content-addressed store. The content
// id is the hex sha256 digest of the bytes, so identical payloads dedupe to
// the same id, matching the behavior of a real content-addressed backend.
package memory

import (
	"bytes"
	"context"
	"crypto/sha256"
	"encoding/hex"
	"errors"
	"io"
	"sync"

	"github.com/inkwire/publishinghub/pkg/publishing"
)

// ErrNotFound indicates a fetch for a content id this store never saw.
var ErrNotFound = errors.New("content not found")

// Store is an in-memory implementation of the publishing.ContentStore interface
type Store struct {
	mu      sync.RWMutex
	objects map[string][]byte

	// uploadErr is injected by tests to simulate an unreachable store.
	uploadErr error
}

var _ publishing.ContentStore = (*Store)(nil)

// New creates a new in-memory content store
func New() *Store {
	return &Store{
		objects: make(map[string][]byte),
	}
}

// FailUploads makes subsequent uploads fail with err; pass nil to heal.
func (s *Store) FailUploads(err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.uploadErr = err
}

// Len reports how many distinct payloads the store holds.
func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}

// Upload stores the bytes and returns their digest as the content id.
func (s *Store) Upload(ctx context.Context, r io.Reader, name string) (string, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return "", err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	if s.uploadErr != nil {
		return "", s.uploadErr
	}

	sum := sha256.Sum256(data)
	cid := hex.EncodeToString(sum[:])
	s.objects[cid] = data
	return cid, nil
}

// Fetch returns a reader over the bytes addressed by contentID.
func (s *Store) Fetch(ctx context.Context, contentID string) (io.ReadCloser, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	data, exists := s.objects[contentID]
	if !exists {
		return nil, ErrNotFound
	}
	return io.NopCloser(bytes.NewReader(data)), nil
}
