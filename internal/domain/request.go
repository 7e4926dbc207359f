package domain

import (
	"errors"

	"github.com/google/uuid"
)

// Ошибки валидации ContentRequest.
var (
	// ErrEmptySource — не задан ни topic, ни source_url.
	ErrEmptySource = errors.New("content request requires topic or source url")

	// ErrAmbiguousSource — заданы одновременно topic и source_url.
	ErrAmbiguousSource = errors.New("content request must have exactly one of topic or source url")
)

// ContentRequest — запрос на производство одной единицы контента.
//
// Создаётся триггером (вручную через API, по расписанию или из очереди)
// и неизменяем после постановки в очередь. Ровно одно из полей
// Topic / SourceURL должно быть заполнено.
type ContentRequest struct {
	// ID — уникальный идентификатор запроса.
	ID uuid.UUID `json:"id"`

	// Topic — тема для генерации контента.
	Topic string `json:"topic,omitempty"`

	// SourceURL — URL статьи-источника. Текст извлекается внешним
	// коллаборатором перед этапом strategy.
	SourceURL string `json:"source_url,omitempty"`

	// UserID — идентификатор пользователя-инициатора.
	// Пустой для анонимных триггеров; тогда применяются только
	// дефолты реестра, без пользовательских предпочтений.
	UserID string `json:"user_id,omitempty"`

	// Params — клиентские параметры генерации (например, aspect_ratio).
	Params map[string]any `json:"params,omitempty"`
}

// Validate проверяет инвариант "ровно один источник".
func (r *ContentRequest) Validate() error {
	if r.Topic == "" && r.SourceURL == "" {
		return ErrEmptySource
	}
	if r.Topic != "" && r.SourceURL != "" {
		return ErrAmbiguousSource
	}
	return nil
}

// AspectRatio возвращает запрошенное соотношение сторон или default.
func (r *ContentRequest) AspectRatio(defaultRatio string) string {
	if v, ok := r.Params["aspect_ratio"]; ok {
		if s, ok := v.(string); ok && s != "" {
			return s
		}
	}
	return defaultRatio
}
