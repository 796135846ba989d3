package memory

import (
	"context"
	"strings"
	"sync"
	"time"

	"storyteller-server/internal/models"
)

// Compile-time check
var _ SemanticStore = (*inMemorySemanticStore)(nil)

// inMemorySemanticStore — SemanticStore в памяти процесса. Используется
// в тестах и при локальной разработке без Redis. TTL соблюдается лениво.
type inMemorySemanticStore struct {
	mu   sync.RWMutex
	docs map[string]inMemoryDoc
	ttl  time.Duration
}

type inMemoryDoc struct {
	doc       string
	expiresAt time.Time
}

// NewInMemorySemanticStore создает хранилище документов в памяти.
func NewInMemorySemanticStore(ttl time.Duration) SemanticStore {
	return &inMemorySemanticStore{
		docs: make(map[string]inMemoryDoc),
		ttl:  ttl,
	}
}

func (s *inMemorySemanticStore) Put(_ context.Context, key, doc string) error {
	s.mu.Lock()
	s.docs[key] = inMemoryDoc{doc: doc, expiresAt: time.Now().Add(s.ttl)}
	s.mu.Unlock()
	return nil
}

func (s *inMemorySemanticStore) Get(_ context.Context, key string) (string, error) {
	s.mu.RLock()
	entry, ok := s.docs[key]
	s.mu.RUnlock()
	if !ok || time.Now().After(entry.expiresAt) {
		return "", models.ErrContextNotFound
	}
	return entry.doc, nil
}

func (s *inMemorySemanticStore) SearchByPrefix(_ context.Context, prefix, substr string, limit int) ([]string, error) {
	s.mu.RLock()
	defer s.mu.RUnlock()

	now := time.Now()
	var docs []string
	for key, entry := range s.docs {
		if now.After(entry.expiresAt) {
			continue
		}
		if strings.HasPrefix(key, prefix) && strings.Contains(key, substr) {
			docs = append(docs, entry.doc)
			if len(docs) >= limit {
				break
			}
		}
	}
	return docs, nil
}

func (s *inMemorySemanticStore) Delete(_ context.Context, key string) error {
	s.mu.Lock()
	delete(s.docs, key)
	s.mu.Unlock()
	return nil
}
