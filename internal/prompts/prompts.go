package prompts

import (
	"fmt"

	"storyteller-server/internal/models"
	"storyteller-server/internal/narrative"
)

// Пакет prompts синтезирует текстовые промпты для языковой модели.
// Формат ответа фиксирован парой маркеров STORY:/CHOICE:, которые затем
// разбирает пакет parser.

const (
	// MainCharacterName — имя главного героя, которое модель обязана
	// использовать. Зафиксировано, пока фронтенд не начнет передавать
	// имя ребенка в промпт напрямую.
	MainCharacterName = "Emma"

	// ConclusionSegmentOrder — порядковый номер сегмента, начиная с
	// которого история завершается: старт + два продолжения.
	// Константа длины истории, не настройка.
	ConclusionSegmentOrder = 2
)

// BuildStartPrompt строит промпт первого сегмента: не более 100 слов,
// в конце выбор из двух вариантов.
func BuildStartPrompt(age int, theme string) string {
	if theme == "" {
		theme = "adventure"
	}
	return fmt.Sprintf(`Write a short story for a %s child aged %d, theme: %s.

IMPORTANT: You MUST use the name %s for the main character throughout the story.

Keep it simple, 100 words max. End with a clear choice between two options.

Format:
STORY: [story text about %s]
CHOICE: Should %s [short option A] or [short option B]?`,
		ageGroup(age), age, theme,
		MainCharacterName, MainCharacterName, MainCharacterName)
}

// BuildContinuationPrompt строит промпт продолжения или финала.
// Ветвление по nextSegmentOrder >= ConclusionSegmentOrder — ровно
// трехсегментные истории.
func BuildContinuationPrompt(age int, fullStoryHistory, choiceText string, nextSegmentOrder int, arc *models.NarrativeArc) string {
	if nextSegmentOrder >= ConclusionSegmentOrder {
		return buildConclusionPrompt(age, fullStoryHistory, choiceText, arc)
	}

	return fmt.Sprintf(`You are continuing an interactive story for a child aged %d.

%s

Current choice made: "%s"

IMPORTANT: You MUST use the name %s throughout the continuation.

Story context to remember:
%s
Write what happens next (100 words max). Reference previous events and locations to create continuity. Introduce a new development that offers %s an interesting decision. Do not repeat the choice text in your response. End with a new choice.

Format:
STORY: [continuation text about %s the main character]
CHOICE: Should %s [short option A] or [short option B]?`,
		age, fullStoryHistory, choiceText,
		MainCharacterName, narrative.ArcSummary(arc),
		MainCharacterName, MainCharacterName, MainCharacterName)
}

func buildConclusionPrompt(age int, fullStoryHistory, choiceText string, arc *models.NarrativeArc) string {
	return fmt.Sprintf(`You are continuing an interactive story for a child aged %d.

%s

Current choice made: "%s"

IMPORTANT: You MUST use the name %s throughout the continuation.

Story context to remember:
%s
Write a short ending (50 words max) based on the current choice. Bring the story to a satisfying conclusion that references the journey so far. Do not repeat the choice in your response.

Format:
STORY: [ending text about %s]
CHOICE: null`,
		age, fullStoryHistory, choiceText,
		MainCharacterName, narrative.ArcSummary(arc),
		MainCharacterName)
}

// ageGroup переводит возраст в возрастную группу. Используется только как
// подсказка тона для модели, механически ничего не ограничивает.
func ageGroup(age int) string {
	switch {
	case age <= 3:
		return "toddler"
	case age <= 5:
		return "preschooler"
	case age <= 7:
		return "early elementary"
	case age <= 9:
		return "elementary"
	default:
		return "pre-teen"
	}
}
