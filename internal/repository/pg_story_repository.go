package repository

import (
	"context"
	"errors"
	"fmt"

	"github.com/georgysavva/scany/v2/pgxscan"
	pgxV5 "github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"go.uber.org/zap"

	"storyteller-server/internal/models"
)

const (
	createStoryQuery = `
        INSERT INTO stories (child_name, age, theme, lesson_of_day)
        VALUES ($1, $2, $3, $4)
        RETURNING id
    `
	getStoryQuery = `
        SELECT id, child_name, age, theme, lesson_of_day, created_at, completed_at
        FROM stories
        WHERE id = $1
    `
	createSegmentQuery = `
        INSERT INTO story_segments (story_id, segment_order, segment_text, audio_url, choice_question)
        VALUES ($1, $2, $3, $4, $5)
        RETURNING id
    `
	getSegmentQuery = `
        SELECT id, story_id, segment_order, segment_text, audio_url, choice_question, choice_made, created_at
        FROM story_segments
        WHERE id = $1
    `
	updateSegmentChoiceQuery = `
        UPDATE story_segments
        SET choice_made = $3
        WHERE story_id = $1 AND segment_order = $2
    `
	markStoryCompletedQuery = `
        UPDATE stories
        SET completed_at = NOW()
        WHERE id = $1 AND completed_at IS NULL
    `
	listSegmentsQuery = `
        SELECT id, story_id, segment_order, segment_text, audio_url, choice_question, choice_made, created_at
        FROM story_segments
        WHERE story_id = $1
        ORDER BY segment_order
    `
)

// Compile-time check
var _ StoryRepository = (*pgStoryRepository)(nil)

type pgStoryRepository struct {
	db     *pgxpool.Pool
	logger *zap.Logger
}

// NewPgStoryRepository создает репозиторий историй поверх PostgreSQL.
func NewPgStoryRepository(db *pgxpool.Pool, logger *zap.Logger) StoryRepository {
	return &pgStoryRepository{
		db:     db,
		logger: logger.Named("StoryRepo"),
	}
}

func (r *pgStoryRepository) CreateStory(ctx context.Context, story *models.Story) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, createStoryQuery,
		story.ChildName, story.Age, story.Theme, story.LessonOfDay,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Error creating story", zap.String("child_name", story.ChildName), zap.Error(err))
		return 0, fmt.Errorf("failed to create story: %w", err)
	}
	r.logger.Info("Story created", zap.Int64("story_id", id), zap.String("child_name", story.ChildName))
	return id, nil
}

func (r *pgStoryRepository) GetStory(ctx context.Context, storyID int64) (*models.Story, error) {
	var story models.Story
	err := pgxscan.Get(ctx, r.db, &story, getStoryQuery, storyID)
	if err != nil {
		if errors.Is(err, pgxV5.ErrNoRows) {
			r.logger.Warn("Story not found", zap.Int64("story_id", storyID))
			return nil, models.ErrStoryNotFound
		}
		r.logger.Error("Error getting story", zap.Int64("story_id", storyID), zap.Error(err))
		return nil, fmt.Errorf("failed to get story %d: %w", storyID, err)
	}
	return &story, nil
}

func (r *pgStoryRepository) CreateSegment(ctx context.Context, segment *models.StorySegment) (int64, error) {
	var id int64
	err := r.db.QueryRow(ctx, createSegmentQuery,
		segment.StoryID, segment.SegmentOrder, segment.SegmentText,
		segment.AudioURL, segment.ChoiceQuestion,
	).Scan(&id)
	if err != nil {
		r.logger.Error("Error creating story segment",
			zap.Int64("story_id", segment.StoryID),
			zap.Int("segment_order", segment.SegmentOrder),
			zap.Error(err))
		return 0, fmt.Errorf("failed to create segment %d of story %d: %w",
			segment.SegmentOrder, segment.StoryID, err)
	}
	return id, nil
}

func (r *pgStoryRepository) GetSegment(ctx context.Context, segmentID int64) (*models.StorySegment, error) {
	var segment models.StorySegment
	err := pgxscan.Get(ctx, r.db, &segment, getSegmentQuery, segmentID)
	if err != nil {
		if errors.Is(err, pgxV5.ErrNoRows) {
			return nil, models.ErrSegmentNotFound
		}
		r.logger.Error("Error getting story segment",
			zap.Int64("segment_id", segmentID),
			zap.Error(err))
		return nil, fmt.Errorf("failed to get segment %d: %w", segmentID, err)
	}
	return &segment, nil
}

func (r *pgStoryRepository) UpdateSegmentChoice(ctx context.Context, storyID int64, segmentOrder int, choice string) error {
	commandTag, err := r.db.Exec(ctx, updateSegmentChoiceQuery, storyID, segmentOrder, choice)
	if err != nil {
		r.logger.Error("Error updating segment choice",
			zap.Int64("story_id", storyID),
			zap.Int("segment_order", segmentOrder),
			zap.Error(err))
		return fmt.Errorf("failed to update choice on segment %d of story %d: %w", segmentOrder, storyID, err)
	}
	if commandTag.RowsAffected() == 0 {
		r.logger.Warn("Segment to update choice not found",
			zap.Int64("story_id", storyID),
			zap.Int("segment_order", segmentOrder))
		return models.ErrSegmentNotFound
	}
	return nil
}

func (r *pgStoryRepository) MarkStoryCompleted(ctx context.Context, storyID int64) error {
	commandTag, err := r.db.Exec(ctx, markStoryCompletedQuery, storyID)
	if err != nil {
		r.logger.Error("Error marking story completed", zap.Int64("story_id", storyID), zap.Error(err))
		return fmt.Errorf("failed to mark story %d completed: %w", storyID, err)
	}
	if commandTag.RowsAffected() == 0 {
		// История либо не существует, либо уже завершена. Идемпотентно.
		r.logger.Debug("MarkStoryCompleted affected no rows", zap.Int64("story_id", storyID))
	}
	return nil
}

func (r *pgStoryRepository) GetStoryHistory(ctx context.Context, storyID int64) (*models.Story, []*models.StorySegment, error) {
	story, err := r.GetStory(ctx, storyID)
	if err != nil {
		return nil, nil, err
	}

	var segments []*models.StorySegment
	err = pgxscan.Select(ctx, r.db, &segments, listSegmentsQuery, storyID)
	if err != nil {
		if errors.Is(err, pgxV5.ErrNoRows) {
			return story, []*models.StorySegment{}, nil
		}
		r.logger.Error("Error listing story segments", zap.Int64("story_id", storyID), zap.Error(err))
		return nil, nil, fmt.Errorf("failed to list segments of story %d: %w", storyID, err)
	}
	if segments == nil {
		segments = []*models.StorySegment{}
	}
	return story, segments, nil
}
