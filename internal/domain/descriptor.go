package domain

import "time"

// Timeouts — верхние границы внешних взаимодействий адаптера.
//
// Превышение любого таймаута трактуется как Unavailable, не как
// молчаливое зависание. Значения задаются на класс capability
// и читаются один раз при старте.
type Timeouts struct {
	// Navigation — таймаут навигации на страницу провайдера.
	Navigation time.Duration `json:"navigation"`

	// Interaction — таймаут ожидания элемента UI и самой генерации.
	Interaction time.Duration `json:"interaction"`

	// Download — таймаут скачивания готового артефакта.
	Download time.Duration `json:"download"`
}

// WithDefaults возвращает таймауты с заполненными нулевыми полями.
func (t Timeouts) WithDefaults() Timeouts {
	if t.Navigation <= 0 {
		t.Navigation = 30 * time.Second
	}
	if t.Interaction <= 0 {
		t.Interaction = 5 * time.Minute
	}
	if t.Download <= 0 {
		t.Download = 2 * time.Minute
	}
	return t
}

// AdapterDescriptor — регистрационная запись адаптера для одной capability.
//
// Дескрипторы регистрируются при старте и неизменны в течение жизни
// процесса. Несколько дескрипторов могут разделять одну capability —
// такие адаптеры взаимозаменяемы, порядок регистрации задаёт дефолт
// (первый зарегистрированный — default).
type AdapterDescriptor struct {
	// ID — уникальный идентификатор адаптера.
	ID string `json:"id"`

	// Capability — этап, который обслуживает адаптер.
	Capability Capability `json:"capability"`

	// IsDefault — является ли адаптер дефолтом своей capability.
	// Выставляется реестром при регистрации, не конфигурацией.
	IsDefault bool `json:"is_default"`

	// SessionKey — ключ браузерного профиля провайдера.
	// Адаптеры одного провайдера разделяют sessionKey.
	SessionKey string `json:"session_key"`

	// BaseURL — точка входа в UI провайдера.
	BaseURL string `json:"base_url"`

	// Timeouts — таймауты внешних взаимодействий этого адаптера.
	Timeouts Timeouts `json:"timeouts"`
}
