package loop

import (
	"context"
	"errors"
	"sync/atomic"
	"testing"
	"time"
)

func start(t *testing.T, l *Loop, tick func(time.Time) time.Duration) (stop func()) {
	t.Helper()
	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		l.Run(ctx, tick)
		close(done)
	}()
	return func() {
		cancel()
		<-done
	}
}

func idle(time.Time) time.Duration { return time.Hour }

func TestPostRunsInOrder(t *testing.T) {
	l := New(16)
	var got []int
	for i := range 5 {
		l.Post(func() { got = append(got, i) })
	}
	stop := start(t, l, idle)
	defer stop()

	// Do is queued behind the earlier posts.
	if err := l.Do(context.Background(), func() {}); err != nil {
		t.Fatalf("Do: %v", err)
	}
	var n int
	l.Do(context.Background(), func() { n = len(got) })
	if n != 5 {
		t.Fatalf("ran %d posts, want 5", n)
	}
	for i := range 5 {
		if got[i] != i {
			t.Fatalf("order %v", got)
		}
	}
}

func TestPostsRunBeforeFirstTick(t *testing.T) {
	l := New(4)
	var posted atomic.Bool
	var sawPost atomic.Bool
	l.Post(func() { posted.Store(true) })

	ticked := make(chan struct{}, 1)
	stop := start(t, l, func(time.Time) time.Duration {
		select {
		case ticked <- struct{}{}:
			sawPost.Store(posted.Load())
		default:
		}
		return time.Hour
	})
	defer stop()

	<-ticked
	if !sawPost.Load() {
		t.Fatal("first tick ran before a function posted earlier")
	}
}

func TestAfterFuncRunsOnLoop(t *testing.T) {
	l := New(16)
	stop := start(t, l, idle)
	defer stop()

	counter := 0 // only touched on the loop goroutine
	fired := make(chan struct{})
	l.Do(context.Background(), func() {
		l.AfterFunc(10*time.Millisecond, func() {
			counter++
			close(fired)
		})
	})
	for range 100 {
		l.Post(func() { counter++ })
	}

	select {
	case <-fired:
	case <-time.After(time.Second):
		t.Fatal("timer never fired")
	}
	var got int
	l.Do(context.Background(), func() { got = counter })
	if got != 101 {
		t.Fatalf("counter = %d, want 101", got)
	}
}

func TestTimerStop(t *testing.T) {
	l := New(16)
	stop := start(t, l, idle)
	defer stop()

	var ran atomic.Bool
	var stopped bool
	l.Do(context.Background(), func() {
		tm := l.AfterFunc(20*time.Millisecond, func() { ran.Store(true) })
		stopped = tm.Stop()
	})
	time.Sleep(60 * time.Millisecond)
	if !stopped {
		t.Fatal("Stop on a pending timer should report true")
	}
	if ran.Load() {
		t.Fatal("stopped timer fired")
	}
}

func TestStopDropsQueuedCallback(t *testing.T) {
	l := New(16)
	stop := start(t, l, idle)
	defer stop()

	var ran atomic.Bool
	var stopped bool
	// Keep the loop busy while the timer fires and queues its callback.
	l.Do(context.Background(), func() {
		tm := l.AfterFunc(time.Millisecond, func() { ran.Store(true) })
		time.Sleep(30 * time.Millisecond)
		stopped = tm.Stop()
	})
	l.Do(context.Background(), func() {})

	if !stopped || ran.Load() {
		t.Fatalf("stopped=%v ran=%v, want the queued callback dropped", stopped, ran.Load())
	}
}

func TestRunAdjustsTickInterval(t *testing.T) {
	l := New(1)
	var ticks atomic.Int32
	stop := start(t, l, func(time.Time) time.Duration {
		if ticks.Add(1) >= 3 {
			return time.Hour
		}
		return 5 * time.Millisecond
	})

	deadline := time.Now().Add(time.Second)
	for ticks.Load() < 3 && time.Now().Before(deadline) {
		time.Sleep(time.Millisecond)
	}
	time.Sleep(20 * time.Millisecond)
	stop()
	if n := ticks.Load(); n != 3 {
		t.Fatalf("ticks = %d, want 3", n)
	}
}

func TestClosedLoop(t *testing.T) {
	l := New(1)
	stop := start(t, l, idle)
	stop()

	if l.Post(func() {}) {
		t.Fatal("Post on a closed loop should report false")
	}
	if err := l.Do(context.Background(), func() {}); !errors.Is(err, ErrClosed) {
		t.Fatalf("Do = %v, want ErrClosed", err)
	}
}
