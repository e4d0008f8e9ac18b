// Package loop runs functions one at a time on a single goroutine. The
// decision engine is not safe for concurrent use, so sensor input, timers
// and ticks all reach it through a Loop.
package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"time"

	"github.com/moorebrett0/mochi/internal/clock"
)

// ErrClosed is returned when the loop has stopped running.
var ErrClosed = errors.New("loop: closed")

// Loop is a serial executor with wall-clock timers.
type Loop struct {
	queue chan func()
	done  chan struct{}
}

// New creates a Loop whose queue holds up to buffer pending functions
// before Post blocks.
func New(buffer int) *Loop {
	return &Loop{
		queue: make(chan func(), buffer),
		done:  make(chan struct{}),
	}
}

// Post enqueues fn. It reports false if the loop has stopped.
func (l *Loop) Post(fn func()) bool {
	select {
	case <-l.done:
		return false
	default:
	}
	select {
	case l.queue <- fn:
		return true
	case <-l.done:
		return false
	}
}

// Do runs fn on the loop and waits for it to finish.
func (l *Loop) Do(ctx context.Context, fn func()) error {
	finished := make(chan struct{})
	if !l.Post(func() {
		defer close(finished)
		fn()
	}) {
		return ErrClosed
	}
	select {
	case <-finished:
		return nil
	case <-ctx.Done():
		return ctx.Err()
	case <-l.done:
		return ErrClosed
	}
}

// Now returns the wall-clock time.
func (l *Loop) Now() time.Time { return time.Now() }

// AfterFunc runs f on the loop after d.
func (l *Loop) AfterFunc(d time.Duration, f func()) clock.Timer {
	t := &timer{}
	t.t = time.AfterFunc(d, func() {
		l.Post(func() {
			if t.stopped.Load() {
				return
			}
			t.fired.Store(true)
			f()
		})
	})
	return t
}

type timer struct {
	t       *time.Timer
	stopped atomic.Bool
	fired   atomic.Bool
}

// Stop cancels the callback. A callback that is already queued on the
// loop is dropped, so Stop called from the loop is always effective.
func (t *timer) Stop() bool {
	if t.fired.Load() || t.stopped.Swap(true) {
		return false
	}
	t.t.Stop()
	return true
}

// Run executes posted functions and calls tick until ctx is cancelled.
// tick returns the delay before it should run again. Functions posted
// before Run starts execute before the first tick.
func (l *Loop) Run(ctx context.Context, tick func(now time.Time) time.Duration) error {
	defer close(l.done)

	for drained := false; !drained; {
		select {
		case fn := <-l.queue:
			fn()
		default:
			drained = true
		}
	}

	next := tick(time.Now())
	t := time.NewTimer(next)
	defer t.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case fn := <-l.queue:
			fn()
		case now := <-t.C:
			t.Reset(tick(now))
		}
	}
}

var _ clock.Scheduler = (*Loop)(nil)
