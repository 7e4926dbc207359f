package domain

// EventType — тип realtime-события для пользователя.
type EventType string

const (
	// EventTaskQueued — job поставлен в очередь.
	EventTaskQueued EventType = "task_queued"

	// EventTaskStarted — воркер начал выполнение конвейера.
	EventTaskStarted EventType = "task_started"

	// EventTaskCompleted — конвейер завершён, есть финальный артефакт.
	EventTaskCompleted EventType = "task_completed"

	// EventTaskError — попытка завершилась ошибкой.
	EventTaskError EventType = "task_error"

	// EventSubscriptionConfirmed — подписка пользователя подтверждена.
	EventSubscriptionConfirmed EventType = "subscription_confirmed"
)

// Event — маленькая тегированная запись, доставляемая по живому
// соединению пользователя одним сериализованным сообщением.
//
// События не буферизуются и не переигрываются: пользователь без
// открытых соединений просто ничего не получает.
type Event struct {
	// Type — тип события.
	Type EventType `json:"type"`

	// Data — полезная нагрузка события.
	Data map[string]any `json:"data,omitempty"`
}
