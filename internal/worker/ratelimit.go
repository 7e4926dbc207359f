package worker

import (
	"context"
	"sync"
	"time"
)

// RateLimiter ограничивает число стартов job в скользящем окне.
//
// Действует независимо от размера пула: пул ограничивает
// одновременность, лимитер — частоту стартов, чтобы не упираться
// в лимиты провайдеров ниже по конвейеру.
type RateLimiter struct {
	limit  int
	window time.Duration

	mu     sync.Mutex
	starts []time.Time
}

// NewRateLimiter создаёт лимитер: не более limit стартов за window.
// limit <= 0 отключает ограничение.
func NewRateLimiter(limit int, window time.Duration) *RateLimiter {
	if window <= 0 {
		window = time.Minute
	}
	return &RateLimiter{limit: limit, window: window}
}

// Wait блокирует до освобождения слота в окне или отмены контекста.
func (l *RateLimiter) Wait(ctx context.Context) error {
	if l == nil || l.limit <= 0 {
		return nil
	}

	for {
		wait := l.tryReserve()
		if wait <= 0 {
			return nil
		}

		timer := time.NewTimer(wait)
		select {
		case <-ctx.Done():
			timer.Stop()
			return ctx.Err()
		case <-timer.C:
		}
	}
}

// tryReserve занимает слот, если он есть; иначе возвращает время до
// выхода самого старого старта из окна.
func (l *RateLimiter) tryReserve() time.Duration {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := time.Now()
	cutoff := now.Add(-l.window)

	kept := l.starts[:0]
	for _, t := range l.starts {
		if t.After(cutoff) {
			kept = append(kept, t)
		}
	}
	l.starts = kept

	if len(l.starts) < l.limit {
		l.starts = append(l.starts, now)
		return 0
	}
	return l.starts[0].Sub(cutoff)
}
