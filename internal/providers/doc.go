// Package providers собирает браузерные адаптеры из общей базы
// (жизненный цикл сессии, breaker, таксономия отказов) и подменяемых
// Flow-сценариев конкретных провайдеров.
package providers
