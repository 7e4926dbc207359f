package domain

import "time"

// Strategy — контент-стратегия, результат первого этапа конвейера.
//
// Дальнейшие этапы читают из неё промпты и структуру ролика.
type Strategy struct {
	// Title — рабочий заголовок ролика.
	Title string `json:"title"`

	// Hook — вступительная фраза для удержания внимания.
	Hook string `json:"hook,omitempty"`

	// Outline — тезисы сценария по порядку.
	Outline []string `json:"outline"`

	// ImagePrompt — промпт для генерации обложки/кадров.
	ImagePrompt string `json:"image_prompt,omitempty"`

	// Tags — теги для публикации.
	Tags []string `json:"tags,omitempty"`
}

// AssetBundle — входные ассеты этапа compilation.
type AssetBundle struct {
	// Script — финальный текст сценария.
	Script string `json:"script"`

	// Images — сгенерированные изображения.
	Images []Artifact `json:"images,omitempty"`

	// Audio — озвученные фрагменты.
	Audio []Artifact `json:"audio,omitempty"`

	// Clips — видеоклипы.
	Clips []Artifact `json:"clips,omitempty"`
}

// PublishPayload — вход этапа публикации на одну платформу.
type PublishPayload struct {
	// Platform — целевая платформа.
	Platform string `json:"platform"`

	// Video — финальный артефакт для публикации.
	Video Artifact `json:"video"`

	// Title — заголовок публикации.
	Title string `json:"title"`

	// Description — описание публикации.
	Description string `json:"description,omitempty"`

	// Tags — теги публикации.
	Tags []string `json:"tags,omitempty"`
}

// UsageSnapshot — снимок использования квоты провайдера.
type UsageSnapshot struct {
	// AdapterID — адаптер, чья квота снята.
	AdapterID string `json:"adapter_id"`

	// CreditsUsed — израсходовано кредитов.
	CreditsUsed float64 `json:"credits_used"`

	// CreditsLimit — лимит кредитов тарифа (0 — неизвестен).
	CreditsLimit float64 `json:"credits_limit,omitempty"`

	// CapturedAt — время снятия снимка.
	CapturedAt time.Time `json:"captured_at"`
}
