package clock

import (
	"reflect"
	"testing"
	"time"
)

var epoch = time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)

func TestManualFiresInOrder(t *testing.T) {
	m := NewManual(epoch)
	var got []string

	m.AfterFunc(300*time.Millisecond, func() { got = append(got, "c") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "a") })
	m.AfterFunc(100*time.Millisecond, func() { got = append(got, "b") })

	m.Advance(200 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b"}) {
		t.Fatalf("after 200ms got %v", got)
	}

	m.Advance(100 * time.Millisecond)
	if !reflect.DeepEqual(got, []string{"a", "b", "c"}) {
		t.Fatalf("after 300ms got %v", got)
	}
	if m.Pending() != 0 {
		t.Fatalf("pending = %d, want 0", m.Pending())
	}
}

func TestManualNowDuringCallback(t *testing.T) {
	m := NewManual(epoch)
	var at time.Time
	m.AfterFunc(time.Second, func() { at = m.Now() })
	m.Advance(5 * time.Second)

	if !at.Equal(epoch.Add(time.Second)) {
		t.Fatalf("callback saw %v, want %v", at, epoch.Add(time.Second))
	}
	if !m.Now().Equal(epoch.Add(5 * time.Second)) {
		t.Fatalf("now = %v", m.Now())
	}
}

func TestManualChainedTimersWithinWindow(t *testing.T) {
	m := NewManual(epoch)
	var fired []time.Duration
	m.AfterFunc(time.Second, func() {
		fired = append(fired, m.Now().Sub(epoch))
		m.AfterFunc(time.Second, func() {
			fired = append(fired, m.Now().Sub(epoch))
		})
	})

	m.Advance(3 * time.Second)
	want := []time.Duration{time.Second, 2 * time.Second}
	if !reflect.DeepEqual(fired, want) {
		t.Fatalf("fired %v, want %v", fired, want)
	}
}

func TestManualStop(t *testing.T) {
	m := NewManual(epoch)
	ran := false
	tm := m.AfterFunc(time.Second, func() { ran = true })

	if !tm.Stop() {
		t.Fatal("first Stop should report pending")
	}
	if tm.Stop() {
		t.Fatal("second Stop should report false")
	}
	m.Advance(2 * time.Second)
	if ran {
		t.Fatal("stopped timer fired")
	}

	tm2 := m.AfterFunc(time.Second, func() {})
	m.Advance(time.Second)
	if tm2.Stop() {
		t.Fatal("Stop after firing should report false")
	}
}
