package narrative

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"storyteller-server/internal/models"
)

func TestNewArc(t *testing.T) {
	arc := NewArc("Lily", "magic")

	assert.Equal(t, []string{"Lily"}, arc.CharactersIntroduced)
	assert.Equal(t, []string{"magic"}, arc.ThemesExplored)
	assert.Equal(t, TonePositive, arc.StoryTone)
	assert.Empty(t, arc.LocationsVisited)
	assert.Empty(t, arc.KeyEvents)
	assert.Equal(t, "", arc.CurrentSituation)
}

func TestNewArc_NoTheme(t *testing.T) {
	arc := NewArc("Max", "")
	assert.Empty(t, arc.ThemesExplored)
}

func TestUpdateArc_Characters(t *testing.T) {
	arc := NewArc("Lily", "")

	UpdateArc(&arc, "Lily met a wise Wizard named Orin. The dragon watched them.")

	// Заглавные слова плюс роли из словаря, без дублей.
	assert.Contains(t, arc.CharactersIntroduced, "Lily")
	assert.Contains(t, arc.CharactersIntroduced, "Wizard")
	assert.Contains(t, arc.CharactersIntroduced, "Orin")
	assert.Contains(t, arc.CharactersIntroduced, "dragon")

	// "Lily" уже есть — регистронезависимая дедупликация.
	count := 0
	for _, c := range arc.CharactersIntroduced {
		if strings.EqualFold(c, "lily") {
			count++
		}
	}
	assert.Equal(t, 1, count)
}

func TestUpdateArc_ShortCapitalizedWordsIgnored(t *testing.T) {
	arc := NewArc("Lily", "")

	UpdateArc(&arc, "It was a sunny day. We all cheered.")

	// "It" и "We" короче трех символов и не попадают в персонажи.
	assert.NotContains(t, arc.CharactersIntroduced, "It")
	assert.NotContains(t, arc.CharactersIntroduced, "We")
}

func TestUpdateArc_LocationsAndEvents(t *testing.T) {
	arc := NewArc("Lily", "")

	UpdateArc(&arc, "Lily discovered a hidden cave near the waterfall. Suddenly she jumped inside.")

	assert.Contains(t, arc.LocationsVisited, "cave")
	assert.Contains(t, arc.LocationsVisited, "waterfall")
	assert.Contains(t, arc.KeyEvents, "discovered")
	assert.Contains(t, arc.KeyEvents, "suddenly")
	assert.Contains(t, arc.KeyEvents, "jumped")
}

func TestUpdateArc_WordBoundaries(t *testing.T) {
	arc := NewArc("Lily", "")

	// "cat" внутри "catastrophe" не считается персонажем.
	UpdateArc(&arc, "the catastrophe was avoided")
	assert.NotContains(t, arc.CharactersIntroduced, "cat")

	UpdateArc(&arc, "a small cat appeared")
	assert.Contains(t, arc.CharactersIntroduced, "cat")
}

func TestUpdateArc_CurrentSituation(t *testing.T) {
	arc := NewArc("Lily", "")

	UpdateArc(&arc, "First thing happened. Second thing happened! Third thing happened?")

	assert.Equal(t, "Second thing happened. Third thing happened", arc.CurrentSituation)
}

func TestUpdateArc_ToneDetection(t *testing.T) {
	testCases := []struct {
		name     string
		text     string
		expected string
	}{
		{"positive wins", "A happy, wonderful day full of joy.", TonePositive},
		{"adventurous wins", "A daring quest! The brave journey continued with another quest.", ToneAdventurous},
		{"mysterious wins", "A strange secret hid in the shadow of the unknown.", ToneMysterious},
		{"tie prefers positive", "A happy quest.", TonePositive},
	}

	for _, tc := range testCases {
		t.Run(tc.name, func(t *testing.T) {
			arc := models.NarrativeArc{StoryTone: "unset"}
			UpdateArc(&arc, tc.text)
			assert.Equal(t, tc.expected, arc.StoryTone)
		})
	}
}

func TestUpdateArc_ToneUnchangedWithoutSignal(t *testing.T) {
	arc := NewArc("Lily", "")
	arc.StoryTone = ToneMysterious

	UpdateArc(&arc, "The door stood there.")

	assert.Equal(t, ToneMysterious, arc.StoryTone)
}

func TestUpdateArc_Themes(t *testing.T) {
	arc := NewArc("Lily", "")

	UpdateArc(&arc, "A tale of friendship and courage among the animals.")

	assert.Contains(t, arc.ThemesExplored, "friendship")
	assert.Contains(t, arc.ThemesExplored, "courage")
	assert.Contains(t, arc.ThemesExplored, "animals")
}

func TestUpdateArc_Idempotent(t *testing.T) {
	arc := NewArc("Lily", "")
	text := "Lily discovered a castle. She explored it with courage."

	UpdateArc(&arc, text)
	snapshot := arc

	UpdateArc(&arc, text)

	assert.Equal(t, snapshot.CharactersIntroduced, arc.CharactersIntroduced)
	assert.Equal(t, snapshot.LocationsVisited, arc.LocationsVisited)
	assert.Equal(t, snapshot.KeyEvents, arc.KeyEvents)
	assert.Equal(t, snapshot.ThemesExplored, arc.ThemesExplored)
	assert.Equal(t, snapshot.CurrentSituation, arc.CurrentSituation)
}

func TestFullStoryHistory(t *testing.T) {
	choice := "enter the cave"
	sctx := &models.EnhancedStoryContext{
		ChildName: "Lily",
		Age:       6,
		Segments: []models.ContextSegment{
			{Order: 0, Text: "Lily found a cave.", ChoiceMade: &choice},
			{Order: 1, Text: "Inside it was dark."},
		},
		NarrativeArc: models.NarrativeArc{
			CharactersIntroduced: []string{"Lily"},
			LocationsVisited:     []string{"cave"},
			CurrentSituation:     "Inside it was dark",
			StoryTone:            ToneMysterious,
		},
	}

	history := FullStoryHistory(sctx)

	assert.Contains(t, history, "COMPLETE STORY SO FAR (for Lily, age 6):")
	assert.Contains(t, history, "Part 1: Lily found a cave.")
	assert.Contains(t, history, "(Lily chose: enter the cave)")
	assert.Contains(t, history, "Part 2: Inside it was dark.")
	assert.Contains(t, history, "NARRATIVE SUMMARY:")
	assert.Contains(t, history, "- Locations: cave")
	assert.Contains(t, history, "- Key events: none yet")
}

func TestArcSummary_EmptyArc(t *testing.T) {
	summary := ArcSummary(&models.NarrativeArc{})

	require.Contains(t, summary, "- Characters: none yet")
	require.Contains(t, summary, "- Themes: none yet")
}
