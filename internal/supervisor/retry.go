package supervisor

import (
	"time"

	"github.com/jpillora/backoff"
)

// RetryPolicy политика повтора цикла после сбоя. MaxAttempts 0 означает без ограничения.
type RetryPolicy struct {
	MaxAttempts int
	backoff     *backoff.Backoff
}

// NewRetryPolicy создает политику с фиксированной паузой между попытками
func NewRetryPolicy(maxAttempts int, delay time.Duration) *RetryPolicy {
	return &RetryPolicy{
		MaxAttempts: maxAttempts,
		backoff: &backoff.Backoff{
			Min:    delay,
			Max:    delay,
			Factor: 1,
		},
	}
}

// Next возвращает паузу перед следующей попыткой или false, если попытки исчерпаны
func (p *RetryPolicy) Next() (time.Duration, bool) {
	if p.MaxAttempts > 0 && int(p.backoff.Attempt()) >= p.MaxAttempts {
		return 0, false
	}
	return p.backoff.Duration(), true
}

// Attempts число попыток с последнего успешного цикла
func (p *RetryPolicy) Attempts() int {
	return int(p.backoff.Attempt())
}

// Reset сбрасывает счетчик после успешного цикла
func (p *RetryPolicy) Reset() {
	p.backoff.Reset()
}
