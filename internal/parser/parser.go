package parser

import (
	"fmt"
	"regexp"
	"strings"
)

// Пакет parser извлекает структурированный сегмент из свободного текста
// ответа модели. Формат STORY:/CHOICE: ничем не гарантирован, поэтому
// разбор многослойный: каждая следующая ступень деградирует мягче
// предыдущей, и ход всегда дает валидный сегмент.

var (
	// storyRe захватывает текст после STORY: до маркера CHOICE: или
	// до конца ответа.
	storyRe = regexp.MustCompile(`(?s)STORY:\s*(.*?)\s*(?:CHOICE:|$)`)
	// choiceRe захватывает остаток после CHOICE:.
	choiceRe = regexp.MustCompile(`(?s)CHOICE:\s*(.+)`)
)

// ParsedSegment — результат разбора одного ответа модели.
// ChoiceQuestion == nil означает завершение истории.
type ParsedSegment struct {
	StoryText      string
	ChoiceQuestion *string
}

// IsConclusion сообщает, завершает ли сегмент историю.
func (p ParsedSegment) IsConclusion() bool {
	return p.ChoiceQuestion == nil
}

// Parse разбирает сырой ответ модели.
//
//  1. Есть STORY: — его захват становится текстом; CHOICE: дает вопрос,
//     литеральный "null" означает отсутствие выбора (финал), отсутствие
//     маркера — синтезированный вопрос по умолчанию.
//  2. Нет STORY: вовсе — весь ответ целиком считается текстом, вопрос
//     синтезируется.
func Parse(raw, protagonist string) ParsedSegment {
	if m := storyRe.FindStringSubmatch(raw); m != nil && strings.TrimSpace(m[1]) != "" {
		seg := ParsedSegment{StoryText: strings.TrimSpace(m[1])}
		if cm := choiceRe.FindStringSubmatch(raw); cm != nil {
			choice := strings.TrimSpace(cm[1])
			if choice != "" && choice != "null" {
				seg.ChoiceQuestion = &choice
			}
			// "null" — модель явно сообщает, что выбора нет.
			return seg
		}
		q := DefaultChoiceQuestion(protagonist)
		seg.ChoiceQuestion = &q
		return seg
	}

	q := DefaultChoiceQuestion(protagonist)
	return ParsedSegment{
		StoryText:      strings.TrimSpace(raw),
		ChoiceQuestion: &q,
	}
}

// FallbackSegment строит типовой сегмент, когда модель не ответила вовсе.
// Ход обязан завершиться валидным сегментом даже при полном отказе
// провайдера.
func FallbackSegment(protagonist string) ParsedSegment {
	q := DefaultChoiceQuestion(protagonist)
	return ParsedSegment{
		StoryText:      fmt.Sprintf("%s continued their amazing adventure...", protagonist),
		ChoiceQuestion: &q,
	}
}

// DefaultChoiceQuestion — синтезированный вопрос по умолчанию.
func DefaultChoiceQuestion(protagonist string) string {
	return fmt.Sprintf("What should %s do next?", protagonist)
}
