package supervisor

import (
	"context"
	"fmt"
	"time"

	"github.com/skalibog/rsibot/internal/exchange"
	"github.com/skalibog/rsibot/pkg/logger"
	"github.com/skalibog/rsibot/pkg/models"
	"go.uber.org/zap"
)

// Engine движок, которым управляет супервизор
type Engine interface {
	Initialise(ctx context.Context) error
	RunCycle(ctx context.Context) error
}

// Notifier получает события об ошибках цикла
type Notifier interface {
	Notify(event models.Event)
}

// Supervisor запускает циклы движка и решает, повторять ли их после ошибки
type Supervisor struct {
	engine       Engine
	notifier     Notifier
	policy       *RetryPolicy
	pollInterval time.Duration

	sleep func(ctx context.Context, d time.Duration) error
}

// New создает супервизор
func New(engine Engine, notifier Notifier, policy *RetryPolicy, pollInterval time.Duration) *Supervisor {
	return &Supervisor{
		engine:       engine,
		notifier:     notifier,
		policy:       policy,
		pollInterval: pollInterval,
		sleep:        sleepContext,
	}
}

// Run выполняет инициализацию и циклы до отмены контекста или фатальной ошибки.
// Отмена проверяется между циклами, при отмене возвращается nil.
func (s *Supervisor) Run(ctx context.Context) error {
	step := s.engine.Initialise
	initialised := false

	for {
		err := step(ctx)

		var delay time.Duration
		if err == nil {
			s.policy.Reset()
			if initialised {
				delay = s.pollInterval
			}
			initialised = true
			step = s.engine.RunCycle
		} else {
			if ctx.Err() != nil {
				return nil
			}

			kind := exchange.Classify(err)
			next, retry := s.policy.Next()
			fatal := kind.Fatal() || !kind.Retryable() || !retry

			logger.Error("Ошибка цикла",
				zap.Stringer("kind", kind),
				zap.Int("attempt", s.policy.Attempts()),
				zap.Bool("fatal", fatal),
				zap.Error(err))

			event := models.ErrorEvent{Kind: kind, Message: err.Error(), Fatal: fatal}
			if !fatal {
				event.RetryIn = next
			}
			s.notifier.Notify(event)

			if fatal {
				return fmt.Errorf("работа остановлена после ошибки %s: %w", kind, err)
			}
			delay = next
		}

		if err := s.sleep(ctx, delay); err != nil {
			return nil
		}
	}
}

func sleepContext(ctx context.Context, d time.Duration) error {
	if d <= 0 {
		return ctx.Err()
	}
	timer := time.NewTimer(d)
	defer timer.Stop()
	select {
	case <-ctx.Done():
		return ctx.Err()
	case <-timer.C:
		return nil
	}
}
