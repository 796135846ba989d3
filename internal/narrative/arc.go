package narrative

import (
	"regexp"
	"strings"

	"storyteller-server/internal/models"
)

// Пакет narrative реализует лексическую эвристику отслеживания
// повествовательной дуги. Это намеренно НЕ семантический NLP-экстрактор:
// словари фиксированы, правила детерминированы, и любое заглавное слово
// считается персонажем (известные ложные срабатывания задокументированы,
// тесты закрепляют именно такое поведение).

// Tone labels. ToneMysterious проигрывает при равенстве счетчиков:
// предпочтение positive, затем adventurous.
const (
	TonePositive    = "positive"
	ToneAdventurous = "adventurous"
	ToneMysterious  = "mysterious"
)

// capitalizedWord — сканер имен: любое слово с заглавной буквы.
var capitalizedWord = regexp.MustCompile(`\b[A-Z][a-z]+\b`)

// roleNouns — роли, которые считаются персонажами независимо от регистра.
var roleNouns = []string{
	"wizard", "dragon", "fairy", "princess", "king", "queen",
	"knight", "monster", "friend", "animal", "cat", "dog", "bird",
}

// locationNouns — фиксированный словарь локаций.
var locationNouns = []string{
	"forest", "castle", "cave", "mountain", "river", "ocean", "beach",
	"village", "garden", "tower", "bridge", "meadow", "valley", "island",
	"lake", "waterfall", "desert", "jungle", "palace", "cottage",
	"school", "playground", "treehouse", "swamp", "clearing",
}

// eventIndicators — глаголы прошедшего времени и наречия-маркеры событий.
var eventIndicators = []string{
	"discovered", "found", "met", "rescued", "helped", "saved",
	"climbed", "jumped", "flew", "swam", "escaped", "explored",
	"built", "created", "learned", "decided", "followed", "opened",
	"whispered", "shouted", "laughed", "cried", "danced", "sang",
	"suddenly", "finally",
}

// Словари тональностей. Счет ведется по подстрокам без учета регистра.
var (
	positiveWords = []string{
		"happy", "joy", "laugh", "smile", "wonderful", "magical",
		"beautiful", "kind", "friend", "love", "delight", "cheer",
	}
	adventurousWords = []string{
		"adventure", "explore", "journey", "quest", "brave", "courage",
		"exciting", "discover", "daring", "bold",
	}
	mysteriousWords = []string{
		"mystery", "secret", "hidden", "strange", "whisper", "shadow",
		"curious", "unknown", "puzzle",
	}
)

// themeVocabulary — фиксированный 9-элементный словарь тем.
var themeVocabulary = []string{
	"friendship", "courage", "kindness", "adventure", "magic",
	"learning", "family", "nature", "animals",
}

// NewArc создает стартовую дугу для новой истории: ребенок — первый
// персонаж, тон positive, тема (если задана) — первая исследованная.
func NewArc(childName, theme string) models.NarrativeArc {
	arc := models.NarrativeArc{
		CharactersIntroduced: []string{childName},
		LocationsVisited:     []string{},
		KeyEvents:            []string{},
		CurrentSituation:     "",
		StoryTone:            TonePositive,
		ThemesExplored:       []string{},
	}
	if theme != "" {
		arc.ThemesExplored = append(arc.ThemesExplored, theme)
	}
	return arc
}

// UpdateArc обновляет дугу по тексту нового сегмента.
// Детерминирована: повторное применение того же текста не меняет
// множества (идемпотентность закреплена тестами).
func UpdateArc(arc *models.NarrativeArc, segmentText string) {
	lower := strings.ToLower(segmentText)

	// Персонажи: заглавные слова + роли из словаря.
	for _, word := range capitalizedWord.FindAllString(segmentText, -1) {
		addCharacter(arc, word)
	}
	for _, role := range roleNouns {
		if containsWord(lower, role) {
			addCharacter(arc, role)
		}
	}

	// Локации.
	for _, loc := range locationNouns {
		if containsWord(lower, loc) && !contains(arc.LocationsVisited, loc) {
			arc.LocationsVisited = append(arc.LocationsVisited, loc)
		}
	}

	// События.
	for _, ev := range eventIndicators {
		if containsWord(lower, ev) && !contains(arc.KeyEvents, ev) {
			arc.KeyEvents = append(arc.KeyEvents, ev)
		}
	}

	// Текущая ситуация: последние два предложения, полное перезаписывание.
	if situation := lastSentences(segmentText, 2); situation != "" {
		arc.CurrentSituation = situation
	}

	// Тон: побеждает строго наибольший счетчик; при равенстве
	// предпочтение positive, затем adventurous; при нулях тон не трогаем.
	if tone, ok := detectTone(lower); ok {
		arc.StoryTone = tone
	}

	// Темы.
	for _, theme := range themeVocabulary {
		if strings.Contains(lower, theme) && !contains(arc.ThemesExplored, theme) {
			arc.ThemesExplored = append(arc.ThemesExplored, theme)
		}
	}
}

// addCharacter добавляет кандидата в персонажи, если он длиннее двух
// символов и еще не встречался (сравнение без учета регистра).
func addCharacter(arc *models.NarrativeArc, name string) {
	name = strings.TrimSpace(name)
	if len(name) <= 2 {
		return
	}
	for _, existing := range arc.CharactersIntroduced {
		if strings.EqualFold(existing, name) {
			return
		}
	}
	arc.CharactersIntroduced = append(arc.CharactersIntroduced, name)
}

// detectTone возвращает победившую тональность. ok == false, когда все
// счетчики нулевые и тон менять нельзя.
func detectTone(lowerText string) (string, bool) {
	pos := countOccurrences(lowerText, positiveWords)
	adv := countOccurrences(lowerText, adventurousWords)
	mys := countOccurrences(lowerText, mysteriousWords)

	if pos == 0 && adv == 0 && mys == 0 {
		return "", false
	}
	if pos >= adv && pos >= mys {
		return TonePositive, true
	}
	if adv >= mys {
		return ToneAdventurous, true
	}
	return ToneMysterious, true
}

func countOccurrences(lowerText string, words []string) int {
	total := 0
	for _, w := range words {
		total += strings.Count(lowerText, w)
	}
	return total
}

// lastSentences разбивает текст по .!? и склеивает последние n
// непустых предложений через ". ".
func lastSentences(text string, n int) string {
	parts := strings.FieldsFunc(text, func(r rune) bool {
		return r == '.' || r == '!' || r == '?'
	})
	sentences := make([]string, 0, len(parts))
	for _, p := range parts {
		if s := strings.TrimSpace(p); s != "" {
			sentences = append(sentences, s)
		}
	}
	if len(sentences) == 0 {
		return ""
	}
	if len(sentences) > n {
		sentences = sentences[len(sentences)-n:]
	}
	return strings.Join(sentences, ". ")
}

// containsWord проверяет вхождение слова по границам слов, чтобы
// "cat" не срабатывал внутри "catastrophe" при сканировании ролей.
func containsWord(lowerText, word string) bool {
	idx := 0
	for {
		i := strings.Index(lowerText[idx:], word)
		if i < 0 {
			return false
		}
		start := idx + i
		end := start + len(word)
		beforeOK := start == 0 || !isLetter(lowerText[start-1])
		afterOK := end == len(lowerText) || !isLetter(lowerText[end])
		if beforeOK && afterOK {
			return true
		}
		idx = start + 1
	}
}

func isLetter(b byte) bool {
	return (b >= 'a' && b <= 'z') || (b >= 'A' && b <= 'Z')
}

func contains(list []string, item string) bool {
	for _, v := range list {
		if v == item {
			return true
		}
	}
	return false
}
