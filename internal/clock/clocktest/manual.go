// Package clocktest provides a hand-driven clock.Clock.
package clocktest

import (
	"sync"
	"time"
)

type trigger struct {
	id       int
	interval time.Duration
	fn       func()
}

// Manual is a clock.Clock whose time and triggers only move when told to.
type Manual struct {
	mu       sync.Mutex
	now      time.Time
	nextID   int
	triggers []trigger
}

// NewManual returns a Manual clock starting at now.
func NewManual(now time.Time) *Manual {
	return &Manual{now: now}
}

// Now returns the manual time.
func (m *Manual) Now() time.Time {
	m.mu.Lock()
	defer m.mu.Unlock()
	return m.now
}

// Every registers fn. It runs only from Tick.
func (m *Manual) Every(interval time.Duration, fn func()) func() {
	m.mu.Lock()
	m.nextID++
	id := m.nextID
	m.triggers = append(m.triggers, trigger{id: id, interval: interval, fn: fn})
	m.mu.Unlock()

	return func() {
		m.mu.Lock()
		defer m.mu.Unlock()
		for i, t := range m.triggers {
			if t.id == id {
				m.triggers = append(m.triggers[:i], m.triggers[i+1:]...)
				return
			}
		}
	}
}

// Advance moves the clock forward by d without firing triggers.
func (m *Manual) Advance(d time.Duration) {
	m.mu.Lock()
	m.now = m.now.Add(d)
	m.mu.Unlock()
}

// Tick fires every live trigger once, synchronously, in registration order.
// Triggers stopped by an earlier callback in the same round are skipped.
func (m *Manual) Tick() {
	m.mu.Lock()
	ids := make([]int, len(m.triggers))
	for i, t := range m.triggers {
		ids[i] = t.id
	}
	m.mu.Unlock()

	for _, id := range ids {
		if fn, ok := m.lookup(id); ok {
			fn()
		}
	}
}

// TickN calls Tick n times.
func (m *Manual) TickN(n int) {
	for range n {
		m.Tick()
	}
}

// Live reports how many triggers are registered.
func (m *Manual) Live() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.triggers)
}

func (m *Manual) lookup(id int) (func(), bool) {
	m.mu.Lock()
	defer m.mu.Unlock()
	for _, t := range m.triggers {
		if t.id == id {
			return t.fn, true
		}
	}
	return nil, false
}
