package domain

// Subscriber — проекция аккаунта из внешнего user store,
// достаточная для работы планировщика.
//
// Хранение аккаунтов и шифрование учётных данных — вне ядра;
// ядро видит только read-only представление.
type Subscriber struct {
	// UserID — идентификатор пользователя.
	UserID string `json:"user_id"`

	// AutopilotEnabled — подписан ли пользователь на периодическую
	// автоматизацию.
	AutopilotEnabled bool `json:"autopilot_enabled"`

	// Plan — тарифный план ("free", "premium", ...).
	Plan string `json:"plan"`

	// Topic — дефолтная тема/ниша для автоматических запусков.
	Topic string `json:"topic"`

	// Params — клиентские параметры генерации по умолчанию.
	Params map[string]any `json:"params,omitempty"`
}

// EligibleForAutopilot проверяет базовые условия планировщика:
// автопилот включён, план платный, тема задана. Активность подписки
// проверяется отдельно внешним коллаборатором на каждом цикле.
func (s *Subscriber) EligibleForAutopilot() bool {
	return s.AutopilotEnabled && s.Plan != "" && s.Plan != "free" && s.Topic != ""
}
