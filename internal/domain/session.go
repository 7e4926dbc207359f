package domain

import (
	"bytes"
	"encoding/json"
	"time"
)

// SessionRecord — персистированное состояние авторизованного браузера
// одного провайдера.
//
// Записью владеет ровно один живой экземпляр адаптера одновременно:
// конкурентная мутация одного sessionKey запрещена (open-вызовы
// сериализуются на уровне browser.Manager). Запись сохраняется
// при Close() адаптера и на чистом shutdown, загружается при Open().
type SessionRecord struct {
	// SessionKey — ключ сессии провайдера (один на браузерный профиль).
	SessionKey string `json:"session_key"`

	// AdapterID — адаптер, которому принадлежит сессия.
	AdapterID string `json:"adapter_id"`

	// AuthState — снимок cookies и local storage в JSON.
	// Round-trip Close() → Open() обязан восстанавливать состояние
	// байт-в-байт.
	AuthState json.RawMessage `json:"auth_state"`

	// UpdatedAt — время последнего сохранения.
	UpdatedAt time.Time `json:"updated_at"`
}

// Equal сравнивает состояние авторизации двух записей побайтово.
func (s *SessionRecord) Equal(other *SessionRecord) bool {
	if s == nil || other == nil {
		return s == other
	}
	return s.SessionKey == other.SessionKey && bytes.Equal(s.AuthState, other.AuthState)
}
