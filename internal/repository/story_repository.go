package repository

import (
	"context"

	"storyteller-server/internal/models"
)

// StoryRepository определяет операции хранения историй и сегментов.
type StoryRepository interface {
	// CreateStory сохраняет новую историю и возвращает ее ID.
	CreateStory(ctx context.Context, story *models.Story) (int64, error)
	// GetStory возвращает историю по ID.
	GetStory(ctx context.Context, storyID int64) (*models.Story, error)
	// CreateSegment сохраняет сегмент и возвращает его ID.
	CreateSegment(ctx context.Context, segment *models.StorySegment) (int64, error)
	// GetSegment возвращает сегмент по его первичному ключу. Продолжение
	// хода разрешает segment_id клиента в историю именно здесь.
	GetSegment(ctx context.Context, segmentID int64) (*models.StorySegment, error)
	// UpdateSegmentChoice проставляет сделанный выбор на сегменте.
	UpdateSegmentChoice(ctx context.Context, storyID int64, segmentOrder int, choice string) error
	// MarkStoryCompleted фиксирует момент завершения истории.
	MarkStoryCompleted(ctx context.Context, storyID int64) error
	// GetStoryHistory возвращает историю и все ее сегменты по порядку.
	GetStoryHistory(ctx context.Context, storyID int64) (*models.Story, []*models.StorySegment, error)
}
