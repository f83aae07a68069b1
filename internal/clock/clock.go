// Package clock abstracts wall time and repeating triggers so timers can be driven by hand in tests.
package clock

import (
	"sync"
	"time"
)

// Clock reports the time and schedules repeating callbacks.
type Clock interface {
	Now() time.Time
	// Every calls fn once per interval on its own goroutine until stop is called.
	// A callback already in flight when stop returns may still complete.
	Every(interval time.Duration, fn func()) (stop func())
}

// Real is the system clock.
type Real struct{}

// Now returns time.Now.
func (Real) Now() time.Time { return time.Now() }

// Every starts a time.Ticker that drives fn.
func (Real) Every(interval time.Duration, fn func()) func() {
	ticker := time.NewTicker(interval)
	done := make(chan struct{})

	go func() {
		for {
			select {
			case <-done:
				return
			case <-ticker.C:
				select {
				case <-done:
					return
				default:
				}
				fn()
			}
		}
	}()

	return sync.OnceFunc(func() {
		ticker.Stop()
		close(done)
	})
}
