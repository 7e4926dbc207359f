// Package api реализует HTTP-поверхность gateway.
//
// Поверхность тонкая: постановка job в очередь с немедленным ответом
// 202, чтение статуса job и WebSocket-поток событий. Само производство
// контента выполняют воркеры; gateway никогда не ждёт конвейер.
//
// Структура:
//   - handler.go     — Handler и его зависимости
//   - job_handler.go — постановка и чтение jobs
//   - routes.go      — регистрация маршрутов
//   - middleware.go  — Recovery, Logging, Auth
//   - response.go    — helpers для JSON-ответов
//   - dto.go         — request/response структуры
package api
