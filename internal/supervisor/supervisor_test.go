package supervisor

import (
	"context"
	"errors"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/skalibog/rsibot/internal/exchange"
	"github.com/skalibog/rsibot/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type scriptedEngine struct {
	initErrs  []error
	cycleErrs []error
	inits     int
	cycles    int
}

func (e *scriptedEngine) Initialise(context.Context) error {
	e.inits++
	return pop(&e.initErrs)
}

func (e *scriptedEngine) RunCycle(context.Context) error {
	e.cycles++
	return pop(&e.cycleErrs)
}

func pop(errs *[]error) error {
	if len(*errs) == 0 {
		return nil
	}
	err := (*errs)[0]
	*errs = (*errs)[1:]
	return err
}

type recorder struct {
	events []models.ErrorEvent
}

func (r *recorder) Notify(event models.Event) {
	if e, ok := event.(models.ErrorEvent); ok {
		r.events = append(r.events, e)
	}
}

// stopAfter останавливает супервизор после n пауз и запоминает их длительность
func stopAfter(s *Supervisor, cancel context.CancelFunc, n int) *[]time.Duration {
	var delays []time.Duration
	s.sleep = func(ctx context.Context, d time.Duration) error {
		delays = append(delays, d)
		if len(delays) >= n {
			cancel()
			return context.Canceled
		}
		return nil
	}
	return &delays
}

func TestRetryPolicy(t *testing.T) {
	p := NewRetryPolicy(2, 10*time.Second)

	d, ok := p.Next()
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, d)
	d, ok = p.Next()
	assert.True(t, ok)
	assert.Equal(t, 10*time.Second, d)
	_, ok = p.Next()
	assert.False(t, ok)

	p.Reset()
	assert.Zero(t, p.Attempts())
	_, ok = p.Next()
	assert.True(t, ok)
}

func TestRetryPolicy_Unlimited(t *testing.T) {
	p := NewRetryPolicy(0, time.Second)
	for i := 0; i < 100; i++ {
		d, ok := p.Next()
		require.True(t, ok)
		require.Equal(t, time.Second, d)
	}
}

func TestSupervisor_CyclesWithPollInterval(t *testing.T) {
	engine := &scriptedEngine{}
	events := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(engine, events, NewRetryPolicy(0, 10*time.Second), 5*time.Second)
	delays := stopAfter(s, cancel, 4)

	require.NoError(t, s.Run(ctx))

	assert.Equal(t, 1, engine.inits)
	assert.Equal(t, 3, engine.cycles)
	assert.Equal(t, []time.Duration{0, 5 * time.Second, 5 * time.Second, 5 * time.Second}, *delays)
	assert.Empty(t, events.events)
}

func TestSupervisor_RetriesTransientErrors(t *testing.T) {
	engine := &scriptedEngine{
		initErrs:  []error{&netTimeout{}},
		cycleErrs: []error{fmt.Errorf("цикл: %w", io.EOF)},
	}
	events := &recorder{}
	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()
	s := New(engine, events, NewRetryPolicy(0, 10*time.Second), 5*time.Second)
	delays := stopAfter(s, cancel, 4)

	require.NoError(t, s.Run(ctx))

	assert.Equal(t, 2, engine.inits)
	assert.Equal(t, 2, engine.cycles)
	assert.Equal(t, []time.Duration{10 * time.Second, 0, 10 * time.Second, 5 * time.Second}, *delays)
	require.Len(t, events.events, 2)
	assert.Equal(t, models.ErrorConnection, events.events[0].Kind)
	assert.Equal(t, 10*time.Second, events.events[0].RetryIn)
	assert.False(t, events.events[0].Fatal)
}

func TestSupervisor_StopsOnFatalError(t *testing.T) {
	cause := fmt.Errorf("тикер: %w", exchange.ErrMissingKey)
	engine := &scriptedEngine{cycleErrs: []error{cause}}
	events := &recorder{}
	s := New(engine, events, NewRetryPolicy(0, 10*time.Second), 5*time.Second)
	s.sleep = func(context.Context, time.Duration) error { return nil }

	err := s.Run(context.Background())

	require.Error(t, err)
	assert.ErrorIs(t, err, exchange.ErrMissingKey)
	require.Len(t, events.events, 1)
	assert.Equal(t, models.ErrorKey, events.events[0].Kind)
	assert.True(t, events.events[0].Fatal)
	assert.Zero(t, events.events[0].RetryIn)
}

func TestSupervisor_StopsWhenAttemptsExhausted(t *testing.T) {
	engine := &scriptedEngine{initErrs: []error{io.EOF, io.EOF, io.EOF}}
	events := &recorder{}
	s := New(engine, events, NewRetryPolicy(2, time.Second), time.Second)
	s.sleep = func(context.Context, time.Duration) error { return nil }

	err := s.Run(context.Background())

	require.ErrorIs(t, err, io.EOF)
	assert.Equal(t, 3, engine.inits)
	require.Len(t, events.events, 3)
	assert.False(t, events.events[1].Fatal)
	assert.True(t, events.events[2].Fatal)
}

func TestSupervisor_CancelledDuringCycle(t *testing.T) {
	ctx, cancel := context.WithCancel(context.Background())
	engine := &cancellingEngine{cancel: cancel}
	events := &recorder{}
	s := New(engine, events, NewRetryPolicy(0, time.Second), time.Second)

	require.NoError(t, s.Run(ctx))
	assert.Empty(t, events.events)
}

type cancellingEngine struct {
	cancel context.CancelFunc
}

func (e *cancellingEngine) Initialise(context.Context) error { return nil }

func (e *cancellingEngine) RunCycle(ctx context.Context) error {
	e.cancel()
	return errors.Join(ctx.Err(), errors.New("прервано"))
}

type netTimeout struct{}

func (*netTimeout) Error() string   { return "i/o timeout" }
func (*netTimeout) Timeout() bool   { return true }
func (*netTimeout) Temporary() bool { return true }
