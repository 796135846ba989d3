package models

import "time"

// Story представляет одну историю, созданную для ребенка.
// Поля child_name, age, theme и lesson_of_day фиксируются при создании
// и больше не изменяются.
type Story struct {
	ID          int64      `json:"id" db:"id"`
	ChildName   string     `json:"child_name" db:"child_name"`
	Age         int        `json:"age" db:"age"`
	Theme       *string    `json:"theme,omitempty" db:"theme"`
	LessonOfDay *string    `json:"lesson_of_day,omitempty" db:"lesson_of_day"`
	CreatedAt   time.Time  `json:"created_at" db:"created_at"`
	CompletedAt *time.Time `json:"completed_at,omitempty" db:"completed_at"`
}

// StorySegment — один ход повествования.
// ChoiceQuestion == nil означает, что сегмент завершает историю.
// ChoiceMade заполняется задним числом, когда пользователь делает выбор,
// ведущий к следующему сегменту.
type StorySegment struct {
	ID             int64     `json:"id" db:"id"`
	StoryID        int64     `json:"story_id" db:"story_id"`
	SegmentOrder   int       `json:"segment_order" db:"segment_order"`
	SegmentText    string    `json:"segment_text" db:"segment_text"`
	AudioURL       string    `json:"audio_url" db:"audio_url"`
	ChoiceQuestion *string   `json:"choice_question,omitempty" db:"choice_question"`
	ChoiceMade     *string   `json:"choice_made,omitempty" db:"choice_made"`
	CreatedAt      time.Time `json:"created_at" db:"created_at"`
}

// ContextSegment — сегмент в том виде, в котором он хранится внутри
// EnhancedStoryContext (семантическая память). Отделен от StorySegment,
// потому что контекст не знает про SQL id сегмента.
type ContextSegment struct {
	Order          int     `json:"order"`
	Text           string  `json:"text"`
	ChoiceQuestion string  `json:"choice_question"`
	ChoiceMade     *string `json:"choice_made,omitempty"`
	AudioURL       string  `json:"audio_url"`
	CreatedAt      string  `json:"created_at"`
}

// NarrativeArc — накопленная сводка истории.
// Инвариант: поля-множества только растут от хода к ходу;
// CurrentSituation и StoryTone пересчитываются заново, а не сливаются.
type NarrativeArc struct {
	CharactersIntroduced []string `json:"characters_introduced"`
	LocationsVisited     []string `json:"locations_visited"`
	KeyEvents            []string `json:"key_events"`
	CurrentSituation     string   `json:"current_situation"`
	StoryTone            string   `json:"story_tone"`
	ThemesExplored       []string `json:"themes_explored"`
}

// EnhancedStoryContext — полное состояние одной истории между ходами.
// Владелец — ContextStore: каждая операция читает контекст, меняет
// локальную копию и записывает обратно целиком.
type EnhancedStoryContext struct {
	ChildName        string           `json:"child_name"`
	Age              int              `json:"age"`
	Theme            string           `json:"theme,omitempty"`
	LessonOfDay      string           `json:"lesson_of_day,omitempty"`
	Segments         []ContextSegment `json:"segments"`
	NarrativeArc     NarrativeArc     `json:"narrative_arc"`
	TotalChoicesMade int              `json:"total_choices_made"`
	StoryStartedAt   time.Time        `json:"story_started_at"`
	LastUpdated      time.Time        `json:"last_updated"`
}

// StorySegmentResponse — структурированный ответ, который получает клиент
// после start-story / continue-story.
type StorySegmentResponse struct {
	StoryID        int64   `json:"story_id"`
	SegmentID      int64   `json:"segment_id"`
	SegmentText    string  `json:"segment_text"`
	AudioURL       string  `json:"audio_url"`
	ChoiceQuestion *string `json:"choice_question"`
	SegmentOrder   int     `json:"segment_order"`
	IsConclusion   bool    `json:"is_conclusion"`
}

// ChildPreferences — предпочтения ребенка, сохраняемые в семантической
// памяти при создании истории (best-effort, для будущих сессий).
type ChildPreferences struct {
	Age            int      `json:"age"`
	FavoriteThemes []string `json:"favorite_themes"`
	Lessons        []string `json:"lessons"`
}

// AudioMetadata описывает, из какого текста и каким голосом нужно
// синтезировать аудио по ключу /get-audio/:key.
type AudioMetadata struct {
	Text         string `json:"text"`
	VoiceID      string `json:"voice_id"`
	StoryID      int64  `json:"story_id"`
	SegmentOrder int    `json:"segment_order"`
	GeneratedAt  string `json:"generated_at"`
}
