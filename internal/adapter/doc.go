// Package adapter определяет абстракцию над внешними провайдерами.
//
// Структура:
//   - adapter.go  — базовый интерфейс Adapter и capability-интерфейсы
//   - errors.go   — таксономия отказов (Unavailable/AuthRequired/Malformed)
//   - registry.go — статический реестр capability → адаптеры
//   - resolver.go — выбор адаптера с учётом предпочтений пользователя
//
// Конкретные провайдеры (скрипты кликов, селекторы) живут в пакете
// providers и подключаются через реестр при старте процесса.
package adapter
