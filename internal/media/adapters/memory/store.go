// Package memory keeps media objects in process for the memory store driver
// and tests.
package memory

import (
	"context"
	"fmt"
	"io"
	"net/url"
	"sync"
	"time"

	"visit-dashboard-service/internal/media/core/ports"
)

type Object struct {
	ContentType string
	Data        []byte
}

type Store struct {
	mu      sync.RWMutex
	objects map[string]Object
	now     func() time.Time
}

var _ ports.ObjectStorePort = (*Store)(nil)

func NewStore() *Store {
	return &Store{
		objects: make(map[string]Object),
		now:     time.Now,
	}
}

func (s *Store) Put(ctx context.Context, key, contentType string, body io.Reader, size int64) error {
	data, err := io.ReadAll(body)
	if err != nil {
		return err
	}
	if int64(len(data)) != size {
		return fmt.Errorf("put %s: read %d bytes, expected %d", key, len(data), size)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.objects[key] = Object{ContentType: contentType, Data: data}
	return nil
}

func (s *Store) Delete(ctx context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	delete(s.objects, key)
	return nil
}

// PresignGet returns a memory:// link; it is only meaningful to tests and
// local runs without object storage.
func (s *Store) PresignGet(ctx context.Context, key string, ttl time.Duration) (string, error) {
	s.mu.RLock()
	_, ok := s.objects[key]
	s.mu.RUnlock()
	if !ok {
		return "", fmt.Errorf("presign %s: %w", key, ports.ErrObjectNotFound)
	}

	u := url.URL{
		Scheme:   "memory",
		Path:     "/" + key,
		RawQuery: url.Values{"expires": {s.now().Add(ttl).UTC().Format(time.RFC3339)}}.Encode(),
	}
	return u.String(), nil
}

// Object returns a stored object.
func (s *Store) Object(key string) (Object, bool) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	o, ok := s.objects[key]
	return o, ok
}

func (s *Store) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.objects)
}
