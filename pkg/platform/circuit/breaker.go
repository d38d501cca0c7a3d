// Package circuit guards calls to a dependency that can go away. After a run
// of consecutive failures the breaker opens and rejects calls with ErrOpen
// until a cooldown has passed. The next call is then let through as a probe;
// its outcome closes the breaker or opens it for another cooldown.
package circuit

import (
	"errors"
	"sync"
	"time"
)

var ErrOpen = errors.New("circuit open")

type State int

const (
	Closed State = iota
	Open
	HalfOpen
)

func (s State) String() string {
	switch s {
	case Closed:
		return "closed"
	case Open:
		return "open"
	case HalfOpen:
		return "half-open"
	}
	return "unknown"
}

type Breaker struct {
	mu        sync.Mutex
	name      string
	state     State
	failures  int
	probing   bool
	openedAt  time.Time
	threshold int
	cooldown  time.Duration
	now       func() time.Time
	hook      func(name string, from, to State)
}

type Option func(*Breaker)

// WithThreshold sets how many consecutive failures open the breaker.
func WithThreshold(n int) Option {
	return func(b *Breaker) {
		if n > 0 {
			b.threshold = n
		}
	}
}

// WithCooldown sets how long an open breaker rejects calls before probing.
func WithCooldown(d time.Duration) Option {
	return func(b *Breaker) {
		if d >= 0 {
			b.cooldown = d
		}
	}
}

func WithClock(now func() time.Time) Option {
	return func(b *Breaker) {
		if now != nil {
			b.now = now
		}
	}
}

// WithStateHook is called after every transition, outside the breaker lock.
func WithStateHook(fn func(name string, from, to State)) Option {
	return func(b *Breaker) { b.hook = fn }
}

func New(name string, opts ...Option) *Breaker {
	b := &Breaker{
		name:      name,
		threshold: 5,
		cooldown:  30 * time.Second,
		now:       time.Now,
	}
	for _, opt := range opts {
		opt(b)
	}
	return b
}

func (b *Breaker) Name() string { return b.name }

func (b *Breaker) State() State {
	b.mu.Lock()
	defer b.mu.Unlock()
	return b.state
}

// Execute runs fn unless the breaker is open. failure decides which errors
// count against the dependency; nil means every error does.
func (b *Breaker) Execute(fn func() error, failure func(error) bool) error {
	if err := b.allow(); err != nil {
		return err
	}
	err := fn()
	b.record(err != nil && (failure == nil || failure(err)))
	return err
}

func (b *Breaker) allow() error {
	b.mu.Lock()
	switch b.state {
	case Open:
		if b.now().Sub(b.openedAt) < b.cooldown {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
		b.unlockWith(b.transition(HalfOpen))
		return nil
	case HalfOpen:
		if b.probing {
			b.mu.Unlock()
			return ErrOpen
		}
		b.probing = true
	}
	b.mu.Unlock()
	return nil
}

func (b *Breaker) record(failed bool) {
	b.mu.Lock()
	b.probing = false
	if !failed {
		b.failures = 0
		if b.state != Closed {
			b.unlockWith(b.transition(Closed))
			return
		}
		b.mu.Unlock()
		return
	}
	b.failures++
	if b.state == HalfOpen || (b.state == Closed && b.failures >= b.threshold) {
		b.openedAt = b.now()
		b.unlockWith(b.transition(Open))
		return
	}
	b.mu.Unlock()
}

// transition must be called with mu held. It returns the hook call to make
// once the lock is released.
func (b *Breaker) transition(to State) func() {
	from := b.state
	b.state = to
	if b.hook == nil || from == to {
		return nil
	}
	hook, name := b.hook, b.name
	return func() { hook(name, from, to) }
}

func (b *Breaker) unlockWith(notify func()) {
	b.mu.Unlock()
	if notify != nil {
		notify()
	}
}
