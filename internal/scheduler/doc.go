// Package scheduler реализует периодическую автоматизацию (автопилот).
//
// Каждый период Scheduler перечисляет подписчиков с включённым
// автопилотом, отсеивает неподходящих (бесплатный план, пустая тема,
// неактивная подписка по данным внешнего валидатора) и ставит по
// одному job create_from_topic на каждого оставшегося. Дальше jobs
// живут обычной жизнью очереди: воркеры, retry, парковка.
//
// Период задаётся cron-выражением (5 полей), по умолчанию раз в час.
//
// Leader election планировщик не реализует: в main.go берётся
// pg_try_advisory_lock, и цикл крутится только у лидера.
package scheduler
