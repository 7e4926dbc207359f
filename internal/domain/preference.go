package domain

// ServicePreference — пользовательский порядок выбора адаптеров
// для одной capability.
//
// Записи принадлежат пользователю и мутируются внешним API;
// ядро конвейера только читает их в момент резолва этапа.
// Отсутствие предпочтения означает использование дефолта реестра.
type ServicePreference struct {
	// UserID — владелец предпочтения.
	UserID string `json:"user_id"`

	// Capability — этап, к которому относится предпочтение.
	Capability Capability `json:"capability"`

	// AdapterIDs — упорядоченный список id адаптеров.
	// Берётся первый, который зарегистрирован для capability;
	// id незарегистрированных адаптеров молча пропускаются.
	AdapterIDs []string `json:"adapter_ids"`
}
