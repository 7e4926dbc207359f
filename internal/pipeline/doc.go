// Package pipeline выполняет сквозной конвейер производства контента:
// фиксированная последовательность этапов, разрешение адаптера на
// каждый этап, переиспользование открытых сессий внутри run и
// независимые под-этапы публикации по платформам.
package pipeline
