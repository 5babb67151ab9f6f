package ws

import (
	"math"
	"time"
)

// Backoff экспоненциальная задержка переподключения с верхней границей
type Backoff struct {
	Base        time.Duration
	Max         time.Duration
	MaxAttempts int
}

// Delay возвращает min(Base * 2^attempt, Max); Max 0 означает без верхней границы
func (b Backoff) Delay(attempt int) time.Duration {
	if attempt < 0 {
		attempt = 0
	}
	delay := b.Base
	for i := 0; i < attempt; i++ {
		if b.Max > 0 && delay >= b.Max {
			break
		}
		if delay > math.MaxInt64/2 {
			return time.Duration(math.MaxInt64)
		}
		delay *= 2
	}
	if b.Max > 0 && delay > b.Max {
		return b.Max
	}
	return delay
}

// Exhausted сообщает, что попыток больше не осталось
func (b Backoff) Exhausted(attempts int) bool {
	return attempts >= b.MaxAttempts
}
