package memory

import (
	"sync"
	"time"

	"storyteller-server/internal/models"
)

// ContextCache — внутрипроцессный кэш контекстов историй. Внедряется в
// ContextStore как зависимость, чтобы тесты могли подменить реализацию.
type ContextCache interface {
	Get(key string) (*models.EnhancedStoryContext, bool)
	Set(key string, value *models.EnhancedStoryContext)
	Delete(key string)
}

// ttlCache — простая реализация ContextCache с истечением по времени.
// Просроченные записи вычищаются лениво при чтении.
type ttlCache struct {
	mu      sync.RWMutex
	entries map[string]cacheEntry
	ttl     time.Duration
}

type cacheEntry struct {
	value     *models.EnhancedStoryContext
	expiresAt time.Time
}

// NewTTLCache создает кэш с заданным временем жизни записей.
func NewTTLCache(ttl time.Duration) ContextCache {
	return &ttlCache{
		entries: make(map[string]cacheEntry),
		ttl:     ttl,
	}
}

func (c *ttlCache) Get(key string) (*models.EnhancedStoryContext, bool) {
	c.mu.RLock()
	entry, ok := c.entries[key]
	c.mu.RUnlock()
	if !ok {
		return nil, false
	}
	if time.Now().After(entry.expiresAt) {
		c.mu.Lock()
		// Перепроверяем под write-блокировкой: запись могли обновить.
		if e, still := c.entries[key]; still && time.Now().After(e.expiresAt) {
			delete(c.entries, key)
		}
		c.mu.Unlock()
		return nil, false
	}
	return cloneContext(entry.value), true
}

func (c *ttlCache) Set(key string, value *models.EnhancedStoryContext) {
	c.mu.Lock()
	c.entries[key] = cacheEntry{value: cloneContext(value), expiresAt: time.Now().Add(c.ttl)}
	c.mu.Unlock()
}

func (c *ttlCache) Delete(key string) {
	c.mu.Lock()
	delete(c.entries, key)
	c.mu.Unlock()
}

// cloneContext — глубокая копия контекста. Кэш никогда не делит память
// с вызывающим кодом: контекст мутируется локальной копией и
// записывается обратно целиком, разделяемый указатель ломал бы это.
func cloneContext(src *models.EnhancedStoryContext) *models.EnhancedStoryContext {
	if src == nil {
		return nil
	}
	dst := *src

	if src.Segments != nil {
		dst.Segments = make([]models.ContextSegment, len(src.Segments))
		for i, seg := range src.Segments {
			if seg.ChoiceMade != nil {
				choice := *seg.ChoiceMade
				seg.ChoiceMade = &choice
			}
			dst.Segments[i] = seg
		}
	}

	dst.NarrativeArc.CharactersIntroduced = cloneStrings(src.NarrativeArc.CharactersIntroduced)
	dst.NarrativeArc.LocationsVisited = cloneStrings(src.NarrativeArc.LocationsVisited)
	dst.NarrativeArc.KeyEvents = cloneStrings(src.NarrativeArc.KeyEvents)
	dst.NarrativeArc.ThemesExplored = cloneStrings(src.NarrativeArc.ThemesExplored)

	return &dst
}

func cloneStrings(src []string) []string {
	if src == nil {
		return nil
	}
	out := make([]string, len(src))
	copy(out, src)
	return out
}
