// Package worker выполняет jobs производства контента: потребление
// очереди с polling fallback, пул с общим пределом одновременности,
// скользящий rate limit на старты, извлечение текста источника для
// URL-jobs и retry конвейера с экспоненциальной задержкой.
package worker
