package filestore

import (
	"context"
	"sync"
	"time"

	"github.com/NeuralTrust/SecurityProxy/pkg/domain/file"
)

type entry struct {
	file      file.StoredFile
	expiresAt time.Time
}

// MemoryStore is a process local blob store. A zero ttl keeps entries until
// the process exits. Writes to the same key replace the whole entry under the
// lock, so readers never observe a partial file.
type MemoryStore struct {
	mu   sync.RWMutex
	data map[string]*entry
	ttl  time.Duration
	now  func() time.Time
}

func NewMemoryStore(ttl time.Duration) *MemoryStore {
	return &MemoryStore{
		data: make(map[string]*entry),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (s *MemoryStore) Put(_ context.Context, conversationID, hash string, f file.StoredFile) error {
	if conversationID == "" || hash == "" {
		return file.ErrInvalidFileReference
	}
	e := &entry{file: clone(f)}
	if s.ttl > 0 {
		e.expiresAt = s.now().Add(s.ttl)
	}

	s.mu.Lock()
	s.data[file.Key(conversationID, hash)] = e
	s.mu.Unlock()
	return nil
}

func (s *MemoryStore) Get(_ context.Context, conversationID, hash string) (*file.StoredFile, error) {
	key := file.Key(conversationID, hash)

	s.mu.RLock()
	e, ok := s.data[key]
	s.mu.RUnlock()
	if !ok {
		return nil, file.ErrFileNotFound
	}

	if !e.expiresAt.IsZero() && s.now().After(e.expiresAt) {
		s.mu.Lock()
		if current, ok := s.data[key]; ok && current == e {
			delete(s.data, key)
		}
		s.mu.Unlock()
		return nil, file.ErrFileNotFound
	}

	f := clone(e.file)
	return &f, nil
}

// Sweep drops every expired entry and returns how many were removed.
func (s *MemoryStore) Sweep() int {
	if s.ttl <= 0 {
		return 0
	}
	now := s.now()
	s.mu.Lock()
	defer s.mu.Unlock()
	removed := 0
	for key, e := range s.data {
		if !e.expiresAt.IsZero() && now.After(e.expiresAt) {
			delete(s.data, key)
			removed++
		}
	}
	return removed
}

// StartJanitor sweeps the store every interval until the returned stop func
// is called. Entries that are never read again are reclaimed this way.
func (s *MemoryStore) StartJanitor(interval time.Duration) (stop func()) {
	if interval <= 0 || s.ttl <= 0 {
		return func() {}
	}
	done := make(chan struct{})
	var once sync.Once
	go func() {
		ticker := time.NewTicker(interval)
		defer ticker.Stop()
		for {
			select {
			case <-ticker.C:
				s.Sweep()
			case <-done:
				return
			}
		}
	}()
	return func() { once.Do(func() { close(done) }) }
}

func (s *MemoryStore) Len() int {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return len(s.data)
}

func clone(f file.StoredFile) file.StoredFile {
	f.Data = append([]byte(nil), f.Data...)
	return f
}
