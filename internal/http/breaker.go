package http

import (
	"sync"
	"time"

	"github.com/lumen-io/lumen-go/pkg/lumen"
)

type circuitState int

const (
	stateClosed circuitState = iota
	stateOpen
	stateHalfOpen
)

// CircuitBreaker tracks consecutive failures for one endpoint/configuration
// and fails calls fast while open. After the cooldown a single half-open
// trial is admitted; its outcome closes or re-opens the circuit. Safe for
// concurrent use.
type CircuitBreaker struct {
	mu sync.Mutex

	endpoint  string
	threshold int
	cooldown  time.Duration
	now       func() time.Time

	state            circuitState
	failures         int
	openedAt         time.Time
	halfOpenInFlight bool
}

// NewCircuitBreaker creates a closed breaker for one endpoint.
func NewCircuitBreaker(endpoint string, threshold int, cooldown time.Duration) *CircuitBreaker {
	return NewCircuitBreakerWithClock(endpoint, threshold, cooldown, time.Now)
}

// NewCircuitBreakerWithClock creates a breaker with an injected clock for
// deterministic tests.
func NewCircuitBreakerWithClock(endpoint string, threshold int, cooldown time.Duration, now func() time.Time) *CircuitBreaker {
	return &CircuitBreaker{
		endpoint:  endpoint,
		threshold: threshold,
		cooldown:  cooldown,
		now:       now,
		state:     stateClosed,
	}
}

// Allow reports whether a call may proceed. While open it returns a
// *lumen.CircuitOpenError without any network attempt; after the cooldown it
// admits exactly one half-open trial at a time.
func (b *CircuitBreaker) Allow() error {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.state {
	case stateClosed:
		return nil

	case stateOpen:
		elapsed := b.now().Sub(b.openedAt)
		if elapsed < b.cooldown {
			return &lumen.CircuitOpenError{
				Endpoint:  b.endpoint,
				RetryIn:   b.cooldown - elapsed,
				Failures:  b.failures,
				OpenedAgo: elapsed,
			}
		}

		b.state = stateHalfOpen
		b.halfOpenInFlight = true

		return nil

	default: // half-open
		if b.halfOpenInFlight {
			return &lumen.CircuitOpenError{
				Endpoint:  b.endpoint,
				RetryIn:   0,
				Failures:  b.failures,
				OpenedAgo: b.now().Sub(b.openedAt),
			}
		}

		b.halfOpenInFlight = true

		return nil
	}
}

// Abort releases an admitted call that never reached an outcome, such as a
// cancellation before any attempt was made. It counts toward neither side:
// an aborted half-open trial frees the slot so the next call can retry it.
func (b *CircuitBreaker) Abort() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halfOpenInFlight = false
}

// RecordSuccess counts a fully completed successful call.
func (b *CircuitBreaker) RecordSuccess() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.failures = 0
	b.halfOpenInFlight = false

	if b.state != stateClosed {
		b.state = stateClosed
		circuitStateGauge.WithLabelValues(b.endpoint).Set(0)
	}
}

// RecordFailure counts a fully completed failed call, opening the circuit at
// the threshold or re-opening it after a failed half-open trial.
func (b *CircuitBreaker) RecordFailure() {
	b.mu.Lock()
	defer b.mu.Unlock()

	b.halfOpenInFlight = false

	if b.state == stateHalfOpen {
		b.open()

		return
	}

	b.failures++
	if b.state == stateClosed && b.failures >= b.threshold {
		b.open()
	}
}

func (b *CircuitBreaker) open() {
	b.state = stateOpen
	b.openedAt = b.now()
	circuitOpensTotal.WithLabelValues(b.endpoint).Inc()
	circuitStateGauge.WithLabelValues(b.endpoint).Set(1)
}
