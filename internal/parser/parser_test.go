package parser

import (
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestParse_StoryAndChoice(t *testing.T) {
	raw := "STORY: Emma walked into the forest.\nCHOICE: Should Emma follow the path or climb the tree?"

	seg := Parse(raw, "Emma")

	assert.Equal(t, "Emma walked into the forest.", seg.StoryText)
	require.NotNil(t, seg.ChoiceQuestion)
	assert.Equal(t, "Should Emma follow the path or climb the tree?", *seg.ChoiceQuestion)
	assert.False(t, seg.IsConclusion())
}

func TestParse_MultilineStory(t *testing.T) {
	raw := "STORY: Emma found a key.\nIt was golden and warm.\nCHOICE: Should Emma use the key or keep walking?"

	seg := Parse(raw, "Emma")

	assert.Equal(t, "Emma found a key.\nIt was golden and warm.", seg.StoryText)
	require.NotNil(t, seg.ChoiceQuestion)
}

func TestParse_NullChoiceMeansConclusion(t *testing.T) {
	raw := "STORY: And so Emma returned home, happy and wise.\nCHOICE: null"

	seg := Parse(raw, "Emma")

	assert.Equal(t, "And so Emma returned home, happy and wise.", seg.StoryText)
	assert.Nil(t, seg.ChoiceQuestion)
	assert.True(t, seg.IsConclusion())
}

func TestParse_StoryWithoutChoiceSynthesizesQuestion(t *testing.T) {
	raw := "STORY: Emma met a talking cat."

	seg := Parse(raw, "Emma")

	assert.Equal(t, "Emma met a talking cat.", seg.StoryText)
	require.NotNil(t, seg.ChoiceQuestion)
	assert.Equal(t, "What should Emma do next?", *seg.ChoiceQuestion)
}

func TestParse_NoMarkersFallsBackToWholeText(t *testing.T) {
	raw := "Once upon a time Emma sailed across the sea."

	seg := Parse(raw, "Emma")

	assert.Equal(t, raw, seg.StoryText)
	require.NotNil(t, seg.ChoiceQuestion)
	assert.Equal(t, "What should Emma do next?", *seg.ChoiceQuestion)
}

func TestParse_EmptyStoryCaptureFallsBack(t *testing.T) {
	raw := "STORY:\nCHOICE: Should Emma go left or right?"

	seg := Parse(raw, "Emma")

	// Пустой захват эквивалентен отсутствию маркера: текст целиком.
	assert.Equal(t, raw, seg.StoryText)
	require.NotNil(t, seg.ChoiceQuestion)
	assert.Equal(t, "What should Emma do next?", *seg.ChoiceQuestion)
}

func TestFallbackSegment(t *testing.T) {
	seg := FallbackSegment("Emma")

	assert.Equal(t, "Emma continued their amazing adventure...", seg.StoryText)
	require.NotNil(t, seg.ChoiceQuestion)
	assert.Equal(t, "What should Emma do next?", *seg.ChoiceQuestion)
	assert.False(t, seg.IsConclusion())
}
