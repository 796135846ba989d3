package narrative

import (
	"fmt"
	"strings"

	"storyteller-server/internal/models"
)

// FullStoryHistory собирает текстовый дайджест всей истории для передачи
// языковой модели: тексты сегментов, сделанные выборы и сводка
// повествовательной дуги. Дайджест ограничен по построению — сырые ответы
// модели не пересылаются повторно, только их накопленная сводка.
func FullStoryHistory(ctx *models.EnhancedStoryContext) string {
	var b strings.Builder

	fmt.Fprintf(&b, "COMPLETE STORY SO FAR (for %s, age %d):\n\n", ctx.ChildName, ctx.Age)

	for _, seg := range ctx.Segments {
		fmt.Fprintf(&b, "Part %d: %s\n", seg.Order+1, seg.Text)
		if seg.ChoiceMade != nil && *seg.ChoiceMade != "" {
			fmt.Fprintf(&b, "(%s chose: %s)\n", ctx.ChildName, *seg.ChoiceMade)
		}
		b.WriteString("\n")
	}

	b.WriteString(ArcSummary(&ctx.NarrativeArc))
	return b.String()
}

// ArcSummary форматирует блок сводки дуги, вставляемый в промпты.
func ArcSummary(arc *models.NarrativeArc) string {
	var b strings.Builder
	b.WriteString("NARRATIVE SUMMARY:\n")
	fmt.Fprintf(&b, "- Characters: %s\n", joinOrNone(arc.CharactersIntroduced))
	fmt.Fprintf(&b, "- Locations: %s\n", joinOrNone(arc.LocationsVisited))
	fmt.Fprintf(&b, "- Key events: %s\n", joinOrNone(arc.KeyEvents))
	fmt.Fprintf(&b, "- Current situation: %s\n", arc.CurrentSituation)
	fmt.Fprintf(&b, "- Story tone: %s\n", arc.StoryTone)
	fmt.Fprintf(&b, "- Themes: %s\n", joinOrNone(arc.ThemesExplored))
	return b.String()
}

func joinOrNone(items []string) string {
	if len(items) == 0 {
		return "none yet"
	}
	return strings.Join(items, ", ")
}
