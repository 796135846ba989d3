package memory

import (
	"context"
	"errors"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"

	"storyteller-server/internal/models"
)

// fakeSemanticStore — потокобезопасный in-memory SemanticStore для тестов.
type fakeSemanticStore struct {
	mu   sync.Mutex
	docs map[string]string
	// failPut/failGet включают имитацию недоступного хранилища.
	failPut bool
	failGet bool
}

func newFakeSemanticStore() *fakeSemanticStore {
	return &fakeSemanticStore{docs: make(map[string]string)}
}

func (f *fakeSemanticStore) Put(_ context.Context, key, doc string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failPut {
		return errors.New("store unavailable")
	}
	f.docs[key] = doc
	return nil
}

func (f *fakeSemanticStore) Get(_ context.Context, key string) (string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return "", errors.New("store unavailable")
	}
	doc, ok := f.docs[key]
	if !ok {
		return "", models.ErrContextNotFound
	}
	return doc, nil
}

func (f *fakeSemanticStore) SearchByPrefix(_ context.Context, prefix, substr string, limit int) ([]string, error) {
	f.mu.Lock()
	defer f.mu.Unlock()
	if f.failGet {
		return nil, errors.New("store unavailable")
	}
	var docs []string
	for key, doc := range f.docs {
		if strings.HasPrefix(key, prefix) && strings.Contains(key, substr) {
			docs = append(docs, doc)
			if len(docs) >= limit {
				break
			}
		}
	}
	return docs, nil
}

func (f *fakeSemanticStore) Delete(_ context.Context, key string) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	delete(f.docs, key)
	return nil
}

func newTestStore(backend SemanticStore) *ContextStore {
	return NewContextStore(backend, NewTTLCache(time.Minute), zap.NewNop())
}

func testStory() *models.Story {
	theme := "magic"
	return &models.Story{
		ID:        42,
		ChildName: "Lily",
		Age:       6,
		Theme:     &theme,
	}
}

func TestContextStore_InitializeAndGet(t *testing.T) {
	backend := newFakeSemanticStore()
	store := newTestStore(backend)
	ctx := context.Background()

	created := store.Initialize(ctx, testStory())
	require.NotNil(t, created)
	assert.Equal(t, "Lily", created.ChildName)
	assert.Equal(t, 6, created.Age)
	assert.Equal(t, []string{"Lily"}, created.NarrativeArc.CharactersIntroduced)
	assert.Equal(t, []string{"magic"}, created.NarrativeArc.ThemesExplored)
	assert.Equal(t, "positive", created.NarrativeArc.StoryTone)
	assert.Empty(t, created.Segments)

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, created.ChildName, got.ChildName)
	assert.Equal(t, 0, got.TotalChoicesMade)
}

func TestContextStore_GetMissing(t *testing.T) {
	store := newTestStore(newFakeSemanticStore())

	_, err := store.Get(context.Background(), 999)
	assert.ErrorIs(t, err, models.ErrContextNotFound)
}

func TestContextStore_AppendUpdatesArcAndChoices(t *testing.T) {
	backend := newFakeSemanticStore()
	store := newTestStore(backend)
	ctx := context.Background()

	store.Initialize(ctx, testStory())

	question := "Should Lily enter the castle or stay in the forest?"
	sctx, err := store.Append(ctx, 42, models.ContextSegment{
		Order:          0,
		Text:           "Lily discovered a castle beyond the forest. She smiled with joy.",
		ChoiceQuestion: question,
	})
	require.NoError(t, err)

	require.Len(t, sctx.Segments, 1)
	assert.Contains(t, sctx.NarrativeArc.LocationsVisited, "castle")
	assert.Contains(t, sctx.NarrativeArc.LocationsVisited, "forest")
	assert.Contains(t, sctx.NarrativeArc.KeyEvents, "discovered")
	assert.Equal(t, 0, sctx.TotalChoicesMade)

	// Выбор, сделанный на сегменте 0, учитывается в счетчике.
	err = store.BackfillChoice(ctx, 42, 0, "enter the castle")
	require.NoError(t, err)

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.NotNil(t, got.Segments[0].ChoiceMade)
	assert.Equal(t, "enter the castle", *got.Segments[0].ChoiceMade)
	assert.Equal(t, 1, got.TotalChoicesMade)
}

func TestContextStore_BackfillChoiceMissingSegment(t *testing.T) {
	store := newTestStore(newFakeSemanticStore())
	ctx := context.Background()

	store.Initialize(ctx, testStory())

	err := store.BackfillChoice(ctx, 42, 7, "fly away")
	assert.ErrorIs(t, err, models.ErrSegmentNotFound)
}

func TestContextStore_CacheSurvivesBackendOutage(t *testing.T) {
	backend := newFakeSemanticStore()
	store := newTestStore(backend)
	ctx := context.Background()

	store.Initialize(ctx, testStory())

	// Хранилище падает: контекст продолжает обслуживаться из кэша,
	// запись деградирует в no-op.
	backend.mu.Lock()
	backend.failPut = true
	backend.failGet = true
	backend.mu.Unlock()

	got, err := store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Equal(t, "Lily", got.ChildName)

	_, err = store.Append(ctx, 42, models.ContextSegment{
		Order: 0,
		Text:  "Lily explored a hidden cave.",
	})
	require.NoError(t, err)

	got, err = store.Get(ctx, 42)
	require.NoError(t, err)
	assert.Len(t, got.Segments, 1)
}

func TestContextStore_AudioMetadataRoundTrip(t *testing.T) {
	store := newTestStore(newFakeSemanticStore())
	ctx := context.Background()

	key := AudioKey(42, 1)
	assert.Equal(t, "story-42-segment-1", key)

	store.PutAudioMetadata(ctx, key, models.AudioMetadata{
		Text:         "Lily entered the castle.",
		VoiceID:      "voice-1",
		StoryID:      42,
		SegmentOrder: 1,
	})

	meta, err := store.GetAudioMetadata(ctx, key)
	require.NoError(t, err)
	assert.Equal(t, "Lily entered the castle.", meta.Text)
	assert.Equal(t, int64(42), meta.StoryID)

	_, err = store.GetAudioMetadata(ctx, "missing-key")
	assert.ErrorIs(t, err, models.ErrAudioNotFound)
}

func TestTTLCache_Expiry(t *testing.T) {
	cache := NewTTLCache(10 * time.Millisecond)
	sctx := &models.EnhancedStoryContext{ChildName: "Lily"}

	cache.Set("k", sctx)
	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "Lily", got.ChildName)

	time.Sleep(20 * time.Millisecond)
	_, ok = cache.Get("k")
	assert.False(t, ok)
}

func TestTTLCache_ReturnsIndependentCopies(t *testing.T) {
	cache := NewTTLCache(time.Minute)
	choice := "enter the castle"
	original := &models.EnhancedStoryContext{
		ChildName: "Lily",
		Segments: []models.ContextSegment{
			{Order: 0, Text: "Lily found a castle.", ChoiceMade: &choice},
		},
		NarrativeArc: models.NarrativeArc{
			CharactersIntroduced: []string{"Lily"},
		},
	}

	cache.Set("k", original)

	// Мутации оригинала после Set не видны в кэше.
	original.ChildName = "Someone"
	original.Segments[0].Text = "changed"
	*original.Segments[0].ChoiceMade = "changed"
	original.NarrativeArc.CharactersIntroduced[0] = "changed"

	got, ok := cache.Get("k")
	require.True(t, ok)
	assert.Equal(t, "Lily", got.ChildName)
	assert.Equal(t, "Lily found a castle.", got.Segments[0].Text)
	assert.Equal(t, "enter the castle", *got.Segments[0].ChoiceMade)
	assert.Equal(t, "Lily", got.NarrativeArc.CharactersIntroduced[0])

	// Два чтения не делят память между собой.
	other, ok := cache.Get("k")
	require.True(t, ok)
	got.Segments[0].Text = "mutated"
	*got.Segments[0].ChoiceMade = "mutated"
	assert.Equal(t, "Lily found a castle.", other.Segments[0].Text)
	assert.Equal(t, "enter the castle", *other.Segments[0].ChoiceMade)
}

func TestContextStore_GetSnapshotUnaffectedByLaterWrites(t *testing.T) {
	store := newTestStore(newFakeSemanticStore())
	ctx := context.Background()

	store.Initialize(ctx, testStory())
	_, err := store.Append(ctx, 42, models.ContextSegment{
		Order: 0,
		Text:  "Lily found a castle.",
	})
	require.NoError(t, err)

	snapshot, err := store.Get(ctx, 42)
	require.NoError(t, err)
	require.Len(t, snapshot.Segments, 1)

	_, err = store.Append(ctx, 42, models.ContextSegment{
		Order: 1,
		Text:  "Lily entered the castle.",
	})
	require.NoError(t, err)
	require.NoError(t, store.BackfillChoice(ctx, 42, 0, "enter the castle"))

	// Ранее выданный снимок не меняется за спиной у вызывающего кода.
	assert.Len(t, snapshot.Segments, 1)
	assert.Nil(t, snapshot.Segments[0].ChoiceMade)
}
