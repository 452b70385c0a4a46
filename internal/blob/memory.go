package blob

import (
	"bytes"
	"context"
	"io"
	"sort"
	"strings"
	"sync"
)

// MemoryStore keeps payloads in process memory. Test and ephemeral use
// only.
type MemoryStore struct {
	mu    sync.RWMutex
	blobs map[string]memoryBlob
}

type memoryBlob struct {
	data        []byte
	contentType string
}

// NewMemoryStore constructs an empty in-memory blob store.
func NewMemoryStore() *MemoryStore {
	return &MemoryStore{blobs: make(map[string]memoryBlob)}
}

// Driver reports DriverMemory.
func (s *MemoryStore) Driver() Driver { return DriverMemory }

// Put stores the payload under key, replacing any prior payload.
func (s *MemoryStore) Put(_ context.Context, key string, r io.Reader, opts PutOptions) (Info, error) {
	data, err := io.ReadAll(r)
	if err != nil {
		return Info{}, err
	}
	s.mu.Lock()
	s.blobs[key] = memoryBlob{data: data, contentType: opts.ContentType}
	s.mu.Unlock()
	return s.info(key, data, opts.ContentType), nil
}

// Get returns the payload stored under key.
func (s *MemoryStore) Get(_ context.Context, key string) (Info, io.ReadCloser, error) {
	s.mu.RLock()
	b, ok := s.blobs[key]
	s.mu.RUnlock()
	if !ok {
		return Info{}, nil, ErrNotExist
	}
	return s.info(key, b.data, b.contentType), io.NopCloser(bytes.NewReader(b.data)), nil
}

// Delete removes the payload stored under key.
func (s *MemoryStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	defer s.mu.Unlock()
	if _, ok := s.blobs[key]; !ok {
		return ErrNotExist
	}
	delete(s.blobs, key)
	return nil
}

// List returns info for every payload whose key starts with prefix,
// sorted by key.
func (s *MemoryStore) List(_ context.Context, prefix string) ([]Info, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	var out []Info
	for key, b := range s.blobs {
		if strings.HasPrefix(key, prefix) {
			out = append(out, s.info(key, b.data, b.contentType))
		}
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Key < out[j].Key })
	return out, nil
}

func (s *MemoryStore) info(key string, data []byte, contentType string) Info {
	return Info{Key: key, Size: int64(len(data)), ContentType: contentType, URI: "mem://" + key}
}
