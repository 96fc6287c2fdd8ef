// Package circuitbreaker sheds calls to a dependency that is failing
// consistently. Shared-state reads run through a breaker so a down
// redis degrades to the empty-snapshot path immediately instead of
// timing out on every accessor call.
package circuitbreaker

import (
	"context"
	"errors"
	"sync"
	"time"

	"go.uber.org/zap"
)

var (
	// ErrOpen is returned without invoking the operation while the
	// breaker is open.
	ErrOpen = errors.New("circuit breaker open")
	// ErrProbeLimit is returned when the half-open probe allowance is
	// already in use.
	ErrProbeLimit = errors.New("circuit breaker probe limit reached")
)

type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	}
	return "unknown"
}

// Config tunes one breaker. Zero values take the defaults noted per
// field.
type Config struct {
	FailureThreshold uint32        // consecutive failures that trip, default 5
	Cooldown         time.Duration // open duration before probing, default 30s
	Probes           uint32        // requests admitted while half-open, default 1
	Logger           *zap.Logger
}

// Breaker is a consecutive-failure circuit breaker: closed until
// FailureThreshold consecutive failures, then open for Cooldown, then
// half-open admitting up to Probes requests. Probes all succeeding
// closes it again; any probe failure reopens it.
type Breaker struct {
	name             string
	failureThreshold uint32
	cooldown         time.Duration
	probes           uint32
	logger           *zap.Logger

	mu        sync.Mutex
	state     State
	failures  uint32 // consecutive failures while closed
	successes uint32 // probe successes while half-open
	inFlight  uint32 // probes running while half-open
	openedAt  time.Time
}

func New(name string, cfg Config) *Breaker {
	if cfg.FailureThreshold == 0 {
		cfg.FailureThreshold = 5
	}
	if cfg.Cooldown == 0 {
		cfg.Cooldown = 30 * time.Second
	}
	if cfg.Probes == 0 {
		cfg.Probes = 1
	}
	if cfg.Logger == nil {
		cfg.Logger = zap.NewNop()
	}
	return &Breaker{
		name:             name,
		failureThreshold: cfg.FailureThreshold,
		cooldown:         cfg.Cooldown,
		probes:           cfg.Probes,
		logger:           cfg.Logger,
	}
}

// Execute runs fn if the breaker admits the call, recording the
// outcome. A panic counts as a failure and is re-raised.
func (b *Breaker) Execute(ctx context.Context, fn func() error) error {
	if err := ctx.Err(); err != nil {
		return err
	}
	if err := b.admit(); err != nil {
		return err
	}

	defer func() {
		if r := recover(); r != nil {
			b.settle(false)
			panic(r)
		}
	}()

	err := fn()
	b.settle(err == nil)
	return err
}

func (b *Breaker) admit() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateOpen:
		if time.Since(b.openedAt) < b.cooldown {
			return ErrOpen
		}
		b.transition(StateHalfOpen)
		fallthrough
	case StateHalfOpen:
		if b.inFlight >= b.probes {
			return ErrProbeLimit
		}
		b.inFlight++
	}
	return nil
}

func (b *Breaker) settle(ok bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case StateClosed:
		if ok {
			b.failures = 0
			return
		}
		b.failures++
		if b.failures >= b.failureThreshold {
			b.transition(StateOpen)
		}
	case StateHalfOpen:
		if b.inFlight > 0 {
			b.inFlight--
		}
		if !ok {
			b.transition(StateOpen)
			return
		}
		b.successes++
		if b.successes >= b.probes {
			b.transition(StateClosed)
		}
	case StateOpen:
		// A call admitted before the trip settled after it; nothing
		// left to account.
	}
}

// transition is called with b.mu held.
func (b *Breaker) transition(to State) {
	from := b.state
	b.state = to
	b.failures = 0
	b.successes = 0
	b.inFlight = 0
	if to == StateOpen {
		b.openedAt = time.Now()
	}
	b.logger.Info("Circuit breaker state changed",
		zap.String("name", b.name),
		zap.String("from", from.String()),
		zap.String("to", to.String()),
	)
}

// State reports the current state without advancing it; an expired
// cooldown is only acted on by the next Execute.
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}
