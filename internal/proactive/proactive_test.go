package proactive

import (
	"context"
	"strings"
	"sync"
	"testing"
	"time"

	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/expression"
	"github.com/moorebrett0/mochi/internal/persona"
)

type fakeSender struct {
	mu        sync.Mutex
	messages  []string
	presences []engine.Snapshot
}

func (f *fakeSender) Announce(text string) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.messages = append(f.messages, text)
}

func (f *fakeSender) UpdatePresence(snap engine.Snapshot) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.presences = append(f.presences, snap)
}

func (f *fakeSender) counts() (int, int) {
	f.mu.Lock()
	defer f.mu.Unlock()
	return len(f.messages), len(f.presences)
}

func testConfig() Config {
	return Config{
		CheckInterval:    time.Second,
		MorningHour:      -1,
		BoredomAfter:     10 * time.Minute,
		DistressCooldown: 30 * time.Minute,
		NapCooldown:      5 * time.Minute,
	}
}

type harness struct {
	s      *Scheduler
	sender *fakeSender
	now    time.Time
}

func newHarness(cfg Config) *harness {
	h := &harness{sender: &fakeSender{}, now: time.Date(2024, 5, 1, 12, 0, 0, 0, time.Local)}
	h.s = New(h.sender, nil, persona.Get("mochi"), cfg)
	h.s.now = func() time.Time { return h.now }
	return h
}

func (h *harness) at(d time.Duration, snap engine.Snapshot) {
	h.now = h.now.Add(d)
	h.s.check(snap)
}

func awake(e expression.Expression) engine.Snapshot {
	return engine.Snapshot{MoodState: engine.MoodState{Face: expression.Of(e), BatteryLevel: 0.8}}
}

func asleep() engine.Snapshot {
	return engine.Snapshot{
		MoodState: engine.MoodState{Face: expression.Of(expression.Sleep), Sleeping: true, BatteryLevel: 0.8},
		Phase:     engine.PhaseSleeping,
	}
}

func TestPresenceFollowsFace(t *testing.T) {
	h := newHarness(testConfig())

	h.at(0, awake(expression.Resting))
	h.at(time.Second, awake(expression.Resting))
	h.at(time.Second, awake(expression.Heart))
	h.at(time.Second, awake(expression.Heart))

	if _, n := h.sender.counts(); n != 2 {
		t.Fatalf("presence updates = %d, want 2", n)
	}
}

func TestSleepAndWakeNotes(t *testing.T) {
	h := newHarness(testConfig())

	h.at(0, awake(expression.Bored))
	h.at(time.Second, asleep())
	waking := asleep()
	waking.Waking, waking.Phase = true, engine.PhaseWaking
	h.at(6*time.Minute, waking)

	if len(h.sender.messages) != 2 {
		t.Fatalf("messages = %q", h.sender.messages)
	}
	if !strings.Contains(h.sender.messages[0], "curls up for a nap") || !strings.Contains(h.sender.messages[1], "blinks awake") {
		t.Fatalf("messages = %q", h.sender.messages)
	}
}

func TestNapNotesCooldown(t *testing.T) {
	h := newHarness(testConfig())

	h.at(0, awake(expression.Bored))
	h.at(time.Second, asleep())
	h.at(time.Second, awake(expression.Resting))
	h.at(time.Second, asleep())

	if n, _ := h.sender.counts(); n != 1 {
		t.Fatalf("messages = %q, want only the first nap", h.sender.messages)
	}
}

func TestNoNoteOnStartup(t *testing.T) {
	h := newHarness(testConfig())
	h.at(0, asleep())
	if n, p := h.sender.counts(); n != 0 || p != 1 {
		t.Fatalf("messages=%d presences=%d, want 0 and 1", n, p)
	}
}

func TestBatteryDistressCooldown(t *testing.T) {
	h := newHarness(testConfig())
	low := awake(expression.Worried)
	low.BatteryLevel, low.BatteryLow = 0.1, true

	h.at(0, low)
	h.at(time.Minute, low)
	if n, _ := h.sender.counts(); n != 1 || !strings.Contains(h.sender.messages[0], "Battery is at 10%") {
		t.Fatalf("messages = %q", h.sender.messages)
	}

	charging := low
	charging.Charging = true
	h.at(31*time.Minute, charging)
	if n, _ := h.sender.counts(); n != 1 {
		t.Fatalf("charging should silence distress: %q", h.sender.messages)
	}

	h.at(time.Minute, low)
	if n, _ := h.sender.counts(); n != 2 {
		t.Fatalf("messages = %q, want a second alert after the cooldown", h.sender.messages)
	}
}

func TestBoredomWhileAsleep(t *testing.T) {
	h := newHarness(testConfig())

	h.at(0, asleep())
	h.at(5*time.Minute, asleep())
	if n, _ := h.sender.counts(); n != 0 {
		t.Fatalf("too early: %q", h.sender.messages)
	}
	h.at(6*time.Minute, asleep())
	if n, _ := h.sender.counts(); n != 1 || !strings.Contains(h.sender.messages[0], "getting bored") {
		t.Fatalf("messages = %q", h.sender.messages)
	}
	h.at(time.Minute, asleep())
	if n, _ := h.sender.counts(); n != 1 {
		t.Fatalf("boredom repeated too soon: %q", h.sender.messages)
	}
}

func TestMorningCheckIn(t *testing.T) {
	cfg := testConfig()
	cfg.MorningHour = 12
	h := newHarness(cfg)

	h.at(0, awake(expression.Resting))
	h.at(time.Minute, awake(expression.Resting))
	if n, _ := h.sender.counts(); n != 1 || !strings.Contains(h.sender.messages[0], "Good morning") {
		t.Fatalf("messages = %q", h.sender.messages)
	}
}

func TestRunReadsState(t *testing.T) {
	sender := &fakeSender{}
	calls := make(chan struct{}, 8)
	state := func(context.Context) (engine.Snapshot, error) {
		calls <- struct{}{}
		return awake(expression.Heart), nil
	}
	cfg := testConfig()
	cfg.CheckInterval = 10 * time.Millisecond
	s := New(sender, state, persona.Get("mochi"), cfg)

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan error, 1)
	go func() { done <- s.Run(ctx) }()

	for range 2 {
		select {
		case <-calls:
		case <-time.After(time.Second):
			t.Fatal("state never read")
		}
	}
	cancel()
	if err := <-done; err != nil {
		t.Fatalf("Run: %v", err)
	}
	if _, p := sender.counts(); p != 1 {
		t.Fatalf("presence updates = %d, want 1", p)
	}
}
