package resilience

import (
	"errors"
	"sync"
	"time"
)

var (
	ErrCircuitOpen     = errors.New("circuit breaker is open")
	ErrTooManyRequests = errors.New("too many requests")
)

// State represents the circuit breaker state
type State int

const (
	StateClosed State = iota
	StateHalfOpen
	StateOpen
)

// String returns the string representation of the state
func (s State) String() string {
	switch s {
	case StateClosed:
		return "closed"
	case StateHalfOpen:
		return "half-open"
	case StateOpen:
		return "open"
	default:
		return "unknown"
	}
}

// Settings configures the circuit breaker behavior
type Settings struct {
	// Failures is the number of consecutive failures that opens the breaker
	Failures uint32
	// Cooldown is how long the breaker stays open before probing again
	Cooldown time.Duration
	// Probes is the number of calls let through, and successes needed, while half-open
	Probes uint32
	// OnStateChange is called whenever the state changes
	OnStateChange func(name string, from State, to State)
}

// DefaultSettings trips after three straight failures and probes again after
// thirty seconds.
func DefaultSettings() Settings {
	return Settings{
		Failures: 3,
		Cooldown: 30 * time.Second,
		Probes:   1,
	}
}

// Counts holds the statistics for the circuit breaker
type Counts struct {
	Requests             uint32
	TotalSuccesses       uint32
	TotalFailures        uint32
	ConsecutiveSuccesses uint32
	ConsecutiveFailures  uint32
}

// Breaker stops calling a dependency that keeps failing
type Breaker struct {
	name     string
	settings Settings

	mu         sync.Mutex
	state      State
	counts     Counts
	openedAt   time.Time
	generation uint64
	now        func() time.Time
}

// New creates a new circuit breaker. Zero settings fields take their
// DefaultSettings value.
func New(name string, settings Settings) *Breaker {
	def := DefaultSettings()
	if settings.Failures == 0 {
		settings.Failures = def.Failures
	}
	if settings.Cooldown == 0 {
		settings.Cooldown = def.Cooldown
	}
	if settings.Probes == 0 {
		settings.Probes = def.Probes
	}

	return &Breaker{
		name:     name,
		settings: settings,
		state:    StateClosed,
		now:      time.Now,
	}
}

// Name returns the name of the circuit breaker
func (b *Breaker) Name() string {
	return b.name
}

// State returns the current state of the circuit breaker
func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.currentState()
}

// Counts returns a copy of the counts for the current state
func (b *Breaker) Counts() Counts {
	b.mu.Lock()
	defer b.mu.Unlock()

	return b.counts
}

// Ready reports whether a call would be let through right now
func (b *Breaker) Ready() bool {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return false
	case StateHalfOpen:
		return b.counts.Requests < b.settings.Probes
	}
	return true
}

// Do runs fn if the breaker accepts the call and records its outcome
func (b *Breaker) Do(fn func() error) error {
	generation, err := b.beforeRequest()
	if err != nil {
		return err
	}

	defer func() {
		if e := recover(); e != nil {
			b.afterRequest(generation, false)
			panic(e)
		}
	}()

	err = fn()
	b.afterRequest(generation, err == nil)
	return err
}

func (b *Breaker) beforeRequest() (uint64, error) {
	b.mu.Lock()
	defer b.mu.Unlock()

	switch b.currentState() {
	case StateOpen:
		return b.generation, ErrCircuitOpen
	case StateHalfOpen:
		if b.counts.Requests >= b.settings.Probes {
			return b.generation, ErrTooManyRequests
		}
	}

	b.counts.Requests++
	return b.generation, nil
}

func (b *Breaker) afterRequest(before uint64, success bool) {
	b.mu.Lock()
	defer b.mu.Unlock()

	state := b.currentState()
	if b.generation != before {
		return
	}

	if success {
		b.counts.TotalSuccesses++
		b.counts.ConsecutiveSuccesses++
		b.counts.ConsecutiveFailures = 0
		if state == StateHalfOpen && b.counts.ConsecutiveSuccesses >= b.settings.Probes {
			b.setState(StateClosed)
		}
		return
	}

	b.counts.TotalFailures++
	b.counts.ConsecutiveFailures++
	b.counts.ConsecutiveSuccesses = 0
	if state == StateHalfOpen || b.counts.ConsecutiveFailures >= b.settings.Failures {
		b.setState(StateOpen)
	}
}

// currentState moves an open breaker to half-open once the cooldown elapsed.
// Callers hold mu.
func (b *Breaker) currentState() State {
	if b.state == StateOpen && b.now().Sub(b.openedAt) >= b.settings.Cooldown {
		b.setState(StateHalfOpen)
	}
	return b.state
}

func (b *Breaker) setState(state State) {
	if b.state == state {
		return
	}

	prev := b.state
	b.state = state
	b.counts = Counts{}
	b.generation++
	if state == StateOpen {
		b.openedAt = b.now()
	}

	if b.settings.OnStateChange != nil {
		b.settings.OnStateChange(b.name, prev, state)
	}
}
