package service

import (
	"context"
	"errors"
	"fmt"
	"time"

	"go.uber.org/zap"

	"storyteller-server/internal/clients"
	"storyteller-server/internal/memory"
	"storyteller-server/internal/messaging"
	"storyteller-server/internal/models"
	"storyteller-server/internal/narrative"
	"storyteller-server/internal/parser"
	"storyteller-server/internal/prompts"
	"storyteller-server/internal/repository"
)

// Параметры генерации ходов. Короткие сегменты, умеренная температура.
var defaultGenParams = func() clients.GenerationParams {
	temperature := 0.8
	maxTokens := 400
	return clients.GenerationParams{
		Temperature: &temperature,
		MaxTokens:   &maxTokens,
	}
}()

// StartStoryParams — параметры начала новой истории.
type StartStoryParams struct {
	ChildName   string
	Age         int
	Theme       string
	LessonOfDay string
}

// ContinueStoryParams — параметры продолжения истории. SegmentID — это
// ID сегмента, на котором клиент сделал выбор.
type ContinueStoryParams struct {
	SegmentID int64
	Choice    string
}

// StoryHistory — история с сегментами для выдачи клиенту.
type StoryHistory struct {
	Story    *models.Story
	Segments []*models.StorySegment
}

// ContextKeeper — контракт хранилища контекстов, который нужен
// оркестратору. Реализуется memory.ContextStore.
type ContextKeeper interface {
	Initialize(ctx context.Context, story *models.Story) *models.EnhancedStoryContext
	Get(ctx context.Context, storyID int64) (*models.EnhancedStoryContext, error)
	Append(ctx context.Context, storyID int64, segment models.ContextSegment) (*models.EnhancedStoryContext, error)
	BackfillChoice(ctx context.Context, storyID int64, segmentOrder int, choice string) error
	PutAudioMetadata(ctx context.Context, key string, meta models.AudioMetadata)
	GetAudioMetadata(ctx context.Context, key string) (*models.AudioMetadata, error)
	PutChildPreferences(ctx context.Context, childName string, prefs models.ChildPreferences)
}

// StoryService — оркестратор ходов интерактивной истории.
type StoryService interface {
	StartStory(ctx context.Context, params StartStoryParams) (*models.StorySegmentResponse, error)
	ContinueStory(ctx context.Context, params ContinueStoryParams) (*models.StorySegmentResponse, error)
	GetAudio(ctx context.Context, key string) ([]byte, error)
	GetStoryHistory(ctx context.Context, storyID int64) (*StoryHistory, error)
}

type storyService struct {
	repo      repository.StoryRepository
	contexts  ContextKeeper
	aiClient  clients.AIClient
	ttsClient clients.TTSClient
	publisher messaging.TurnEventPublisher
	logger    *zap.Logger
}

// NewStoryService создает оркестратор историй.
func NewStoryService(
	repo repository.StoryRepository,
	contexts ContextKeeper,
	aiClient clients.AIClient,
	ttsClient clients.TTSClient,
	publisher messaging.TurnEventPublisher,
	logger *zap.Logger,
) StoryService {
	return &storyService{
		repo:      repo,
		contexts:  contexts,
		aiClient:  aiClient,
		ttsClient: ttsClient,
		publisher: publisher,
		logger:    logger.Named("StoryService"),
	}
}

// StartStory начинает новую историю: создает запись, инициализирует
// контекст, генерирует первый сегмент и возвращает его клиенту.
//
// Ход не падает из-за отказа инфраструктуры: недоступная БД дает
// суррогатный ID и историю без персистентности, отказ модели — типовой
// сегмент, отказ TTS — тихое аудио.
func (s *storyService) StartStory(ctx context.Context, params StartStoryParams) (*models.StorySegmentResponse, error) {
	log := s.logger.With(zap.String("child_name", params.ChildName), zap.Int("age", params.Age))

	story := &models.Story{
		ChildName: params.ChildName,
		Age:       params.Age,
	}
	if params.Theme != "" {
		story.Theme = &params.Theme
	}
	if params.LessonOfDay != "" {
		story.LessonOfDay = &params.LessonOfDay
	}

	persisted := true
	storyID, err := s.repo.CreateStory(ctx, story)
	if err != nil {
		// Суррогатный ID из таймстампа: история живет только в
		// семантической памяти до конца сессии.
		storyID = time.Now().UnixMilli()
		persisted = false
		log.Warn("Database unavailable, using timestamp-derived story ID",
			zap.Int64("story_id", storyID), zap.Error(err))
	}
	story.ID = storyID
	log = log.With(zap.Int64("story_id", storyID))

	s.contexts.Initialize(ctx, story)
	s.contexts.PutChildPreferences(ctx, params.ChildName, models.ChildPreferences{
		Age:            params.Age,
		FavoriteThemes: nonEmpty(params.Theme),
		Lessons:        nonEmpty(params.LessonOfDay),
	})

	prompt := prompts.BuildStartPrompt(params.Age, params.Theme)
	segment := s.generateSegment(ctx, "start", prompt, params.ChildName, log)

	audioURL := s.prepareAudio(ctx, storyID, 0, segment.StoryText, log)

	segmentID := s.persistSegment(ctx, persisted, &models.StorySegment{
		StoryID:        storyID,
		SegmentOrder:   0,
		SegmentText:    segment.StoryText,
		AudioURL:       audioURL,
		ChoiceQuestion: segment.ChoiceQuestion,
	}, log)

	if _, err := s.contexts.Append(ctx, storyID, models.ContextSegment{
		Order:          0,
		Text:           segment.StoryText,
		ChoiceQuestion: derefOrEmpty(segment.ChoiceQuestion),
		AudioURL:       audioURL,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Warn("Failed to append first segment to story context", zap.Error(err))
	}

	s.publishEvent(ctx, messaging.TurnEventPayload{
		EventType:    "story_started",
		StoryID:      storyID,
		SegmentOrder: 0,
		ChildName:    params.ChildName,
		IsConclusion: false,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}, log)

	log.Info("Story started", zap.Int64("segment_id", segmentID))
	return &models.StorySegmentResponse{
		StoryID:        storyID,
		SegmentID:      segmentID,
		SegmentText:    segment.StoryText,
		AudioURL:       audioURL,
		ChoiceQuestion: segment.ChoiceQuestion,
		SegmentOrder:   0,
		IsConclusion:   false,
	}, nil
}

// ContinueStory продолжает историю по сделанному выбору. SegmentID
// разрешается в историю через реляционное хранилище; если сегмент не
// найден (суррогатные ID при недоступной БД), ID трактуется как ID
// самой истории. Выбор проставляется задним числом на предыдущем
// сегменте, новый сегмент генерируется с учетом полной истории и
// повествовательной дуги. Начиная с третьего сегмента история
// принудительно завершается.
func (s *storyService) ContinueStory(ctx context.Context, params ContinueStoryParams) (*models.StorySegmentResponse, error) {
	storyID := params.SegmentID
	resolvedOrder := -1
	if prev, err := s.repo.GetSegment(ctx, params.SegmentID); err == nil {
		storyID = prev.StoryID
		resolvedOrder = prev.SegmentOrder
	} else {
		s.logger.Warn("Segment not found, treating id as story id",
			zap.Int64("segment_id", params.SegmentID), zap.Error(err))
	}

	log := s.logger.With(zap.Int64("story_id", storyID))

	var (
		prompt    string
		nextOrder int
		childName = prompts.MainCharacterName
		age       = 6
	)

	sctx, err := s.contexts.Get(ctx, storyID)
	switch {
	case err == nil:
		nextOrder = len(sctx.Segments)
		if resolvedOrder >= 0 {
			nextOrder = resolvedOrder + 1
		}
		childName = sctx.ChildName
		age = sctx.Age

		prevOrder := nextOrder - 1
		if prevOrder >= 0 {
			if err := s.contexts.BackfillChoice(ctx, storyID, prevOrder, params.Choice); err != nil {
				log.Warn("Failed to backfill choice in context",
					zap.Int("segment_order", prevOrder), zap.Error(err))
			}
			if err := s.repo.UpdateSegmentChoice(ctx, storyID, prevOrder, params.Choice); err != nil {
				log.Warn("Failed to backfill choice in database",
					zap.Int("segment_order", prevOrder), zap.Error(err))
			}
			// Контекст уже мог попасть в кэш: перечитываем с выбором.
			if refreshed, rErr := s.contexts.Get(ctx, storyID); rErr == nil {
				sctx = refreshed
			}
		}

		history := narrative.FullStoryHistory(sctx)
		prompt = prompts.BuildContinuationPrompt(age, history, params.Choice, nextOrder, &sctx.NarrativeArc)

	case errors.Is(err, models.ErrContextNotFound):
		// Контекст утерян: продолжаем без него. Порядковый номер
		// восстанавливаем из сегмента или из БД, историю — нет.
		log.Warn("Story context not found, continuing without context")
		nextOrder = 1
		if resolvedOrder >= 0 {
			nextOrder = resolvedOrder + 1
		}
		if story, segments, hErr := s.repo.GetStoryHistory(ctx, storyID); hErr == nil {
			if resolvedOrder < 0 {
				nextOrder = len(segments)
			}
			childName = story.ChildName
			age = story.Age
			if nextOrder > 0 {
				if uErr := s.repo.UpdateSegmentChoice(ctx, storyID, nextOrder-1, params.Choice); uErr != nil {
					log.Warn("Failed to backfill choice in database", zap.Error(uErr))
				}
			}
		}
		arc := narrative.NewArc(childName, "")
		history := fmt.Sprintf("COMPLETE STORY SO FAR (for %s, age %d):\n\n(story context unavailable)\n", childName, age)
		prompt = prompts.BuildContinuationPrompt(age, history, params.Choice, nextOrder, &arc)

	default:
		return nil, fmt.Errorf("failed to load story context: %w", err)
	}

	segment := s.generateSegment(ctx, "continuation", prompt, childName, log)

	// Трехсегментные истории: финал принудителен, даже если модель
	// предложила очередной выбор.
	isConclusion := segment.IsConclusion() || nextOrder >= prompts.ConclusionSegmentOrder
	if isConclusion {
		segment.ChoiceQuestion = nil
	}

	audioURL := s.prepareAudio(ctx, storyID, nextOrder, segment.StoryText, log)

	segmentID := s.persistSegment(ctx, true, &models.StorySegment{
		StoryID:        storyID,
		SegmentOrder:   nextOrder,
		SegmentText:    segment.StoryText,
		AudioURL:       audioURL,
		ChoiceQuestion: segment.ChoiceQuestion,
	}, log)

	if _, err := s.contexts.Append(ctx, storyID, models.ContextSegment{
		Order:          nextOrder,
		Text:           segment.StoryText,
		ChoiceQuestion: derefOrEmpty(segment.ChoiceQuestion),
		AudioURL:       audioURL,
		CreatedAt:      time.Now().UTC().Format(time.RFC3339),
	}); err != nil {
		log.Warn("Failed to append segment to story context", zap.Error(err))
	}

	eventType := "story_continued"
	if isConclusion {
		eventType = "story_completed"
		if err := s.repo.MarkStoryCompleted(ctx, storyID); err != nil {
			log.Warn("Failed to mark story completed", zap.Error(err))
		}
	}
	s.publishEvent(ctx, messaging.TurnEventPayload{
		EventType:    eventType,
		StoryID:      storyID,
		SegmentOrder: nextOrder,
		ChildName:    childName,
		IsConclusion: isConclusion,
		OccurredAt:   time.Now().UTC().Format(time.RFC3339),
	}, log)

	log.Info("Story continued",
		zap.Int("segment_order", nextOrder),
		zap.Bool("is_conclusion", isConclusion))
	return &models.StorySegmentResponse{
		StoryID:        storyID,
		SegmentID:      segmentID,
		SegmentText:    segment.StoryText,
		AudioURL:       audioURL,
		ChoiceQuestion: segment.ChoiceQuestion,
		SegmentOrder:   nextOrder,
		IsConclusion:   isConclusion,
	}, nil
}

// GetAudio синтезирует аудио сегмента по сохраненным метаданным.
// Ключ тихой заглушки отдается из встроенного файла без синтеза.
func (s *storyService) GetAudio(ctx context.Context, key string) ([]byte, error) {
	if key == clients.SilentAudioKey {
		return clients.SilentAudio, nil
	}

	meta, err := s.contexts.GetAudioMetadata(ctx, key)
	if err != nil {
		return nil, err
	}

	audio, err := s.ttsClient.Synthesize(ctx, meta.Text)
	if err != nil {
		s.logger.Error("Failed to synthesize audio",
			zap.String("key", key),
			zap.Int64("story_id", meta.StoryID),
			zap.Error(err))
		return nil, err
	}
	return audio, nil
}

// GetStoryHistory возвращает историю со всеми сегментами.
func (s *storyService) GetStoryHistory(ctx context.Context, storyID int64) (*StoryHistory, error) {
	story, segments, err := s.repo.GetStoryHistory(ctx, storyID)
	if err != nil {
		return nil, err
	}
	return &StoryHistory{Story: story, Segments: segments}, nil
}

// generateSegment запрашивает модель и разбирает ответ. При отказе
// модели возвращает типовой сегмент.
func (s *storyService) generateSegment(ctx context.Context, kind, prompt, childName string, log *zap.Logger) parser.ParsedSegment {
	if childName == "" {
		childName = prompts.MainCharacterName
	}
	raw, usage, err := s.aiClient.GenerateText(ctx, kind, prompt, defaultGenParams)
	if err != nil {
		log.Warn("AI generation failed, using fallback segment",
			zap.String("kind", kind), zap.Error(err))
		return parser.FallbackSegment(childName)
	}
	log.Debug("Segment generated",
		zap.String("kind", kind),
		zap.Int("total_tokens", usage.TotalTokens))
	return parser.Parse(raw, childName)
}

// prepareAudio сохраняет метаданные синтеза и возвращает URL аудио.
// При отказе хранилища метаданных клиент получает тихое аудио.
func (s *storyService) prepareAudio(ctx context.Context, storyID int64, segmentOrder int, text string, log *zap.Logger) string {
	key := memory.AudioKey(storyID, segmentOrder)
	s.contexts.PutAudioMetadata(ctx, key, models.AudioMetadata{
		Text:         text,
		VoiceID:      s.ttsClient.VoiceID(),
		StoryID:      storyID,
		SegmentOrder: segmentOrder,
		GeneratedAt:  time.Now().UTC().Format(time.RFC3339),
	})

	if _, err := s.contexts.GetAudioMetadata(ctx, key); err != nil {
		log.Warn("Audio metadata unavailable, serving silent audio",
			zap.String("key", key), zap.Error(err))
		return clients.SilentAudioURL
	}
	return "/get-audio/" + key
}

// persistSegment сохраняет сегмент в БД. При отказе возвращает
// суррогатный ID из таймстампа.
func (s *storyService) persistSegment(ctx context.Context, persisted bool, segment *models.StorySegment, log *zap.Logger) int64 {
	if !persisted {
		return time.Now().UnixMilli()
	}
	segmentID, err := s.repo.CreateSegment(ctx, segment)
	if err != nil {
		log.Warn("Failed to persist segment, using timestamp-derived segment ID",
			zap.Int("segment_order", segment.SegmentOrder), zap.Error(err))
		return time.Now().UnixMilli()
	}
	return segmentID
}

func (s *storyService) publishEvent(ctx context.Context, payload messaging.TurnEventPayload, log *zap.Logger) {
	if s.publisher == nil {
		return
	}
	if err := s.publisher.PublishTurnEvent(ctx, payload); err != nil {
		log.Warn("Failed to publish turn event",
			zap.String("event_type", payload.EventType), zap.Error(err))
	}
}

func derefOrEmpty(s *string) string {
	if s == nil {
		return ""
	}
	return *s
}

func nonEmpty(values ...string) []string {
	out := make([]string, 0, len(values))
	for _, v := range values {
		if v != "" {
			out = append(out, v)
		}
	}
	return out
}
