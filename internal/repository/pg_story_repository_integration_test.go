package repository_test

import (
	"context"
	"testing"
	"time"

	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/stretchr/testify/require"
	"github.com/stretchr/testify/suite"
	"github.com/testcontainers/testcontainers-go"
	"github.com/testcontainers/testcontainers-go/modules/postgres"
	"github.com/testcontainers/testcontainers-go/wait"
	"go.uber.org/zap"

	"storyteller-server/internal/models"
	"storyteller-server/internal/repository"
	"storyteller-server/migrations"
	"storyteller-server/pkg/migration"
)

// RepositoryIntegrationSuite поднимает реальный PostgreSQL в контейнере
// и проверяет репозиторий историй против настоящей схемы.
type RepositoryIntegrationSuite struct {
	suite.Suite
	ctx         context.Context
	pgContainer *postgres.PostgresContainer
	pgPool      *pgxpool.Pool
	repo        repository.StoryRepository
	logger      *zap.Logger
}

func (s *RepositoryIntegrationSuite) SetupSuite() {
	s.ctx = context.Background()
	var err error

	s.logger, err = zap.NewDevelopment()
	require.NoError(s.T(), err, "Failed to create logger for tests")

	s.pgContainer, err = postgres.Run(s.ctx,
		"postgres:15-alpine",
		postgres.WithDatabase("test_db"),
		postgres.WithUsername("testuser"),
		postgres.WithPassword("testpass"),
		testcontainers.WithWaitStrategy(
			wait.ForLog("database system is ready to accept connections").
				WithOccurrence(2).
				WithStartupTimeout(5*time.Minute),
		),
	)
	require.NoError(s.T(), err, "Failed to start postgres container")

	pgConnStr, err := s.pgContainer.ConnectionString(s.ctx, "sslmode=disable")
	require.NoError(s.T(), err, "Failed to get postgres connection string")

	s.pgPool, err = pgxpool.New(s.ctx, pgConnStr)
	require.NoError(s.T(), err, "Failed to connect to test postgres")

	migrator := migration.NewMigrator(migration.Config{
		MigrationsPath: ".",
		MigrationsFS:   migrations.FS,
	}, s.pgPool)
	require.NoError(s.T(), migrator.Up(s.ctx), "Failed to run migrations")

	s.repo = repository.NewPgStoryRepository(s.pgPool, s.logger)
}

func (s *RepositoryIntegrationSuite) TearDownSuite() {
	if s.pgPool != nil {
		s.pgPool.Close()
	}
	if s.pgContainer != nil {
		if err := s.pgContainer.Terminate(s.ctx); err != nil {
			s.logger.Error("Failed to terminate postgres container", zap.Error(err))
		}
	}
}

func (s *RepositoryIntegrationSuite) SetupTest() {
	_, err := s.pgPool.Exec(s.ctx, "TRUNCATE TABLE stories RESTART IDENTITY CASCADE")
	require.NoError(s.T(), err, "Failed to truncate stories table")
}

func TestRepositoryIntegrationSuite(t *testing.T) {
	if testing.Short() {
		t.Skip("Skipping integration tests in short mode")
	}
	suite.Run(t, new(RepositoryIntegrationSuite))
}

func (s *RepositoryIntegrationSuite) createStory() int64 {
	theme := "magic"
	storyID, err := s.repo.CreateStory(s.ctx, &models.Story{
		ChildName: "Lily",
		Age:       6,
		Theme:     &theme,
	})
	require.NoError(s.T(), err)
	return storyID
}

func (s *RepositoryIntegrationSuite) TestCreateAndGetStory() {
	t := s.T()
	storyID := s.createStory()

	story, err := s.repo.GetStory(s.ctx, storyID)
	require.NoError(t, err)
	require.Equal(t, "Lily", story.ChildName)
	require.Equal(t, 6, story.Age)
	require.NotNil(t, story.Theme)
	require.Equal(t, "magic", *story.Theme)
	require.Nil(t, story.CompletedAt)
	require.False(t, story.CreatedAt.IsZero())
}

func (s *RepositoryIntegrationSuite) TestGetStory_NotFound() {
	_, err := s.repo.GetStory(s.ctx, 9999)
	require.ErrorIs(s.T(), err, models.ErrStoryNotFound)
}

func (s *RepositoryIntegrationSuite) TestSegmentLifecycle() {
	t := s.T()
	storyID := s.createStory()

	question := "Should Emma open the door or keep the key?"
	segmentID, err := s.repo.CreateSegment(s.ctx, &models.StorySegment{
		StoryID:        storyID,
		SegmentOrder:   0,
		SegmentText:    "Emma found a magic key.",
		AudioURL:       "/get-audio/story-1-segment-0",
		ChoiceQuestion: &question,
	})
	require.NoError(t, err)
	require.NotZero(t, segmentID)

	segment, err := s.repo.GetSegment(s.ctx, segmentID)
	require.NoError(t, err)
	require.Equal(t, storyID, segment.StoryID)
	require.Equal(t, "Emma found a magic key.", segment.SegmentText)
	require.NotNil(t, segment.ChoiceQuestion)
	require.Nil(t, segment.ChoiceMade)

	// Выбор заполняется задним числом при следующем ходе.
	require.NoError(t, s.repo.UpdateSegmentChoice(s.ctx, storyID, 0, "open the door"))

	segment, err = s.repo.GetSegment(s.ctx, segmentID)
	require.NoError(t, err)
	require.NotNil(t, segment.ChoiceMade)
	require.Equal(t, "open the door", *segment.ChoiceMade)
}

func (s *RepositoryIntegrationSuite) TestGetSegment_NotFound() {
	_, err := s.repo.GetSegment(s.ctx, 9999)
	require.ErrorIs(s.T(), err, models.ErrSegmentNotFound)
}

func (s *RepositoryIntegrationSuite) TestUpdateSegmentChoice_MissingSegment() {
	storyID := s.createStory()

	err := s.repo.UpdateSegmentChoice(s.ctx, storyID, 5, "whatever")
	require.ErrorIs(s.T(), err, models.ErrSegmentNotFound)
}

func (s *RepositoryIntegrationSuite) TestDuplicateSegmentOrderRejected() {
	t := s.T()
	storyID := s.createStory()

	_, err := s.repo.CreateSegment(s.ctx, &models.StorySegment{
		StoryID: storyID, SegmentOrder: 0, SegmentText: "first",
	})
	require.NoError(t, err)

	_, err = s.repo.CreateSegment(s.ctx, &models.StorySegment{
		StoryID: storyID, SegmentOrder: 0, SegmentText: "duplicate",
	})
	require.Error(t, err, "unique(story_id, segment_order) must reject duplicates")
}

func (s *RepositoryIntegrationSuite) TestMarkStoryCompleted_Idempotent() {
	t := s.T()
	storyID := s.createStory()

	require.NoError(t, s.repo.MarkStoryCompleted(s.ctx, storyID))

	story, err := s.repo.GetStory(s.ctx, storyID)
	require.NoError(t, err)
	require.NotNil(t, story.CompletedAt)
	completedAt := *story.CompletedAt

	// Повторный вызов не меняет отметку времени.
	require.NoError(t, s.repo.MarkStoryCompleted(s.ctx, storyID))

	story, err = s.repo.GetStory(s.ctx, storyID)
	require.NoError(t, err)
	require.Equal(t, completedAt, *story.CompletedAt)
}

func (s *RepositoryIntegrationSuite) TestGetStoryHistory_Ordering() {
	t := s.T()
	storyID := s.createStory()

	// Вставляем сегменты не по порядку, выборка должна отсортировать.
	for _, order := range []int{2, 0, 1} {
		_, err := s.repo.CreateSegment(s.ctx, &models.StorySegment{
			StoryID:      storyID,
			SegmentOrder: order,
			SegmentText:  "part",
		})
		require.NoError(t, err)
	}

	story, segments, err := s.repo.GetStoryHistory(s.ctx, storyID)
	require.NoError(t, err)
	require.Equal(t, storyID, story.ID)
	require.Len(t, segments, 3)
	for i, segment := range segments {
		require.Equal(t, i, segment.SegmentOrder)
	}
}

func (s *RepositoryIntegrationSuite) TestGetStoryHistory_NoSegments() {
	t := s.T()
	storyID := s.createStory()

	story, segments, err := s.repo.GetStoryHistory(s.ctx, storyID)
	require.NoError(t, err)
	require.Equal(t, storyID, story.ID)
	require.Empty(t, segments)
}
