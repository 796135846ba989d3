package prompts

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyteller-server/internal/models"
	"storyteller-server/internal/narrative"
)

func TestBuildStartPrompt(t *testing.T) {
	prompt := BuildStartPrompt(6, "magic")

	assert.Contains(t, prompt, "early elementary child aged 6")
	assert.Contains(t, prompt, "theme: magic")
	assert.Contains(t, prompt, "You MUST use the name Emma")
	assert.Contains(t, prompt, "STORY: [story text about Emma]")
	assert.Contains(t, prompt, "CHOICE: Should Emma")
}

func TestBuildStartPrompt_DefaultTheme(t *testing.T) {
	prompt := BuildStartPrompt(4, "")
	assert.Contains(t, prompt, "theme: adventure")
}

func TestBuildContinuationPrompt_MiddleSegment(t *testing.T) {
	arc := narrative.NewArc("Lily", "magic")
	history := "COMPLETE STORY SO FAR (for Lily, age 6):\n\nPart 1: Emma found a key.\n"

	prompt := BuildContinuationPrompt(6, history, "open the door", 1, &arc)

	assert.Contains(t, prompt, "a child aged 6")
	assert.Contains(t, prompt, history)
	assert.Contains(t, prompt, `Current choice made: "open the door"`)
	assert.Contains(t, prompt, "NARRATIVE SUMMARY:")
	assert.Contains(t, prompt, "End with a new choice.")
	assert.Contains(t, prompt, "CHOICE: Should Emma")
	assert.NotContains(t, prompt, "CHOICE: null")
}

func TestBuildContinuationPrompt_ConclusionSegment(t *testing.T) {
	arc := narrative.NewArc("Lily", "")

	prompt := BuildContinuationPrompt(6, "history", "go home", ConclusionSegmentOrder, &arc)

	assert.Contains(t, prompt, "Write a short ending")
	assert.Contains(t, prompt, "satisfying conclusion")
	require.True(t, strings.HasSuffix(strings.TrimSpace(prompt), "CHOICE: null"))
	assert.NotContains(t, prompt, "End with a new choice.")
}

func TestBuildContinuationPrompt_BeyondConclusionOrder(t *testing.T) {
	arc := models.NarrativeArc{}

	prompt := BuildContinuationPrompt(8, "history", "keep going", 5, &arc)

	assert.Contains(t, prompt, "CHOICE: null")
}

func TestAgeGroup(t *testing.T) {
	testCases := []struct {
		age      int
		expected string
	}{
		{2, "toddler"},
		{3, "toddler"},
		{5, "preschooler"},
		{7, "early elementary"},
		{9, "elementary"},
		{10, "pre-teen"},
	}

	for _, tc := range testCases {
		assert.Equal(t, tc.expected, ageGroup(tc.age), "age %d", tc.age)
	}
}
