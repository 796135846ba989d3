package memory

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storyteller-server/internal/models"
	"storyteller-server/internal/narrative"
)

// Префиксы ключей в семантическом хранилище.
const (
	contextKeyPrefix     = "story-context:"
	audioKeyPrefix       = "audio:"
	preferencesKeyPrefix = "child-preferences:"
)

// SemanticStore — низкоуровневое хранилище JSON-документов контекста.
// Реализация по умолчанию — Redis; тесты подставляют in-memory фейк.
type SemanticStore interface {
	Put(ctx context.Context, key string, doc string) error
	Get(ctx context.Context, key string) (string, error)
	// SearchByPrefix — запасной поиск по префиксу ключа, когда прямой
	// ключ не находится.
	SearchByPrefix(ctx context.Context, prefix, substr string, limit int) ([]string, error)
	Delete(ctx context.Context, key string) error
}

// ContextStore владеет контекстами историй: читает, дополняет и
// записывает EnhancedStoryContext целиком на каждом ходу.
//
// Отказ хранилища не фатален: операции записи деградируют в no-op с
// warning-логом, чтение возвращает ErrContextNotFound, и оркестратор
// продолжает ход без накопленного контекста.
type ContextStore struct {
	store  SemanticStore
	cache  ContextCache
	logger *zap.Logger
}

// NewContextStore создает хранилище контекстов.
func NewContextStore(store SemanticStore, cache ContextCache, logger *zap.Logger) *ContextStore {
	return &ContextStore{
		store:  store,
		cache:  cache,
		logger: logger.Named("ContextStore"),
	}
}

// ContextKey возвращает прямой ключ контекста истории.
func ContextKey(storyID int64) string {
	return fmt.Sprintf("%s%d", contextKeyPrefix, storyID)
}

// AudioKey возвращает ключ метаданных аудио для сегмента истории.
func AudioKey(storyID int64, segmentOrder int) string {
	return fmt.Sprintf("story-%d-segment-%d", storyID, segmentOrder)
}

// Initialize создает и сохраняет стартовый контекст новой истории.
// Ошибка записи не возвращается наружу: история продолжит жить в
// деградированном режиме.
func (s *ContextStore) Initialize(ctx context.Context, story *models.Story) *models.EnhancedStoryContext {
	theme := ""
	if story.Theme != nil {
		theme = *story.Theme
	}
	lesson := ""
	if story.LessonOfDay != nil {
		lesson = *story.LessonOfDay
	}

	now := time.Now().UTC()
	sctx := &models.EnhancedStoryContext{
		ChildName:        story.ChildName,
		Age:              story.Age,
		Theme:            theme,
		LessonOfDay:      lesson,
		Segments:         []models.ContextSegment{},
		NarrativeArc:     narrative.NewArc(story.ChildName, theme),
		TotalChoicesMade: 0,
		StoryStartedAt:   now,
		LastUpdated:      now,
	}

	s.save(ctx, story.ID, sctx)
	return sctx
}

// Get возвращает контекст истории: кэш, затем прямой ключ, затем
// поиск по префиксу как последний шанс.
func (s *ContextStore) Get(ctx context.Context, storyID int64) (*models.EnhancedStoryContext, error) {
	key := ContextKey(storyID)

	if cached, ok := s.cache.Get(key); ok {
		s.logger.Debug("Story context served from cache", zap.Int64("story_id", storyID))
		return cached, nil
	}

	doc, err := s.store.Get(ctx, key)
	if err != nil {
		if !errors.Is(err, models.ErrContextNotFound) {
			s.logger.Warn("Semantic store unavailable, trying prefix search",
				zap.Int64("story_id", storyID), zap.Error(err))
		}
		doc, err = s.searchFallback(ctx, storyID)
		if err != nil {
			return nil, err
		}
	}

	var sctx models.EnhancedStoryContext
	if err := json.Unmarshal([]byte(doc), &sctx); err != nil {
		s.logger.Error("Corrupted story context document",
			zap.Int64("story_id", storyID), zap.Error(err))
		return nil, fmt.Errorf("corrupted story context for story %d: %w", storyID, err)
	}

	s.cache.Set(key, &sctx)
	return &sctx, nil
}

// Append дописывает сегмент в контекст: обновляет повествовательную дугу
// по тексту сегмента, пересчитывает счетчик выборов и сохраняет документ.
func (s *ContextStore) Append(ctx context.Context, storyID int64, segment models.ContextSegment) (*models.EnhancedStoryContext, error) {
	sctx, err := s.Get(ctx, storyID)
	if err != nil {
		return nil, err
	}

	sctx.Segments = append(sctx.Segments, segment)
	narrative.UpdateArc(&sctx.NarrativeArc, segment.Text)
	sctx.TotalChoicesMade = countChoices(sctx.Segments)
	sctx.LastUpdated = time.Now().UTC()

	s.save(ctx, storyID, sctx)
	return sctx, nil
}

// BackfillChoice проставляет сделанный выбор на сегменте с данным
// порядковым номером. Вызывается, когда пользователь отвечает на вопрос
// предыдущего сегмента.
func (s *ContextStore) BackfillChoice(ctx context.Context, storyID int64, segmentOrder int, choice string) error {
	sctx, err := s.Get(ctx, storyID)
	if err != nil {
		return err
	}

	found := false
	for i := range sctx.Segments {
		if sctx.Segments[i].Order == segmentOrder {
			sctx.Segments[i].ChoiceMade = &choice
			found = true
			break
		}
	}
	if !found {
		s.logger.Warn("Segment to backfill choice not found in context",
			zap.Int64("story_id", storyID), zap.Int("segment_order", segmentOrder))
		return models.ErrSegmentNotFound
	}

	sctx.TotalChoicesMade = countChoices(sctx.Segments)
	sctx.LastUpdated = time.Now().UTC()

	s.save(ctx, storyID, sctx)
	return nil
}

// PutAudioMetadata сохраняет метаданные для повторного синтеза аудио по
// ключу. Best-effort: ошибка логируется и не прерывает ход.
func (s *ContextStore) PutAudioMetadata(ctx context.Context, key string, meta models.AudioMetadata) {
	doc, err := json.Marshal(meta)
	if err != nil {
		s.logger.Error("Failed to marshal audio metadata", zap.String("key", key), zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, audioKeyPrefix+key, string(doc)); err != nil {
		s.logger.Warn("Failed to store audio metadata, /get-audio will miss this key",
			zap.String("key", key), zap.Error(err))
	}
}

// GetAudioMetadata возвращает метаданные аудио по ключу.
func (s *ContextStore) GetAudioMetadata(ctx context.Context, key string) (*models.AudioMetadata, error) {
	doc, err := s.store.Get(ctx, audioKeyPrefix+key)
	if err != nil {
		if errors.Is(err, models.ErrContextNotFound) {
			return nil, models.ErrAudioNotFound
		}
		return nil, err
	}
	var meta models.AudioMetadata
	if err := json.Unmarshal([]byte(doc), &meta); err != nil {
		return nil, fmt.Errorf("corrupted audio metadata for key %s: %w", key, err)
	}
	return &meta, nil
}

// PutChildPreferences сохраняет предпочтения ребенка для будущих сессий.
// Best-effort.
func (s *ContextStore) PutChildPreferences(ctx context.Context, childName string, prefs models.ChildPreferences) {
	doc, err := json.Marshal(prefs)
	if err != nil {
		s.logger.Error("Failed to marshal child preferences", zap.String("child_name", childName), zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, preferencesKeyPrefix+childName, string(doc)); err != nil {
		s.logger.Warn("Failed to store child preferences",
			zap.String("child_name", childName), zap.Error(err))
	}
}

// save записывает контекст в хранилище и кэш. Отказ хранилища — warning,
// не ошибка: кэш остается источником на ближайшие ходы.
func (s *ContextStore) save(ctx context.Context, storyID int64, sctx *models.EnhancedStoryContext) {
	key := ContextKey(storyID)
	s.cache.Set(key, sctx)

	doc, err := json.Marshal(sctx)
	if err != nil {
		s.logger.Error("Failed to marshal story context",
			zap.Int64("story_id", storyID), zap.Error(err))
		return
	}
	if err := s.store.Put(ctx, key, string(doc)); err != nil {
		s.logger.Warn("Failed to persist story context, continuing with cache only",
			zap.Int64("story_id", storyID), zap.Error(err))
	}
}

// searchFallback ищет контекст перебором ключей с нужным префиксом.
func (s *ContextStore) searchFallback(ctx context.Context, storyID int64) (string, error) {
	docs, err := s.store.SearchByPrefix(ctx, contextKeyPrefix, ContextKey(storyID), 1)
	if err != nil {
		s.logger.Warn("Prefix search for story context failed",
			zap.Int64("story_id", storyID), zap.Error(err))
		return "", models.ErrContextNotFound
	}
	if len(docs) == 0 {
		return "", models.ErrContextNotFound
	}
	s.logger.Info("Story context recovered via prefix search", zap.Int64("story_id", storyID))
	return docs[0], nil
}

func countChoices(segments []models.ContextSegment) int {
	count := 0
	for _, seg := range segments {
		if seg.ChoiceMade != nil && *seg.ChoiceMade != "" {
			count++
		}
	}
	return count
}
