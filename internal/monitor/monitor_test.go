package monitor

import (
	"context"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"
)

func writeSupply(t *testing.T, root, name string, files map[string]string) {
	t.Helper()
	dir := filepath.Join(root, name)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		t.Fatal(err)
	}
	for f, content := range files {
		if err := os.WriteFile(filepath.Join(dir, f), []byte(content+"\n"), 0o644); err != nil {
			t.Fatal(err)
		}
	}
}

func TestReadBattery(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{"type": "Mains", "online": "1"})
	writeSupply(t, root, "BAT0", map[string]string{"type": "Battery", "capacity": "12", "status": "Discharging"})

	b, err := ReadBattery(root)
	if err != nil {
		t.Fatalf("ReadBattery: %v", err)
	}
	if !b.Present || b.Level != 0.12 || b.Charging {
		t.Fatalf("got %+v", b)
	}
	if got := FormatBattery(b); got != "Battery: 12% (discharging)" {
		t.Fatalf("FormatBattery = %q", got)
	}
}

func TestReadBatteryCharging(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT1", map[string]string{"type": "Battery", "capacity": "100", "status": "Full"})

	b, err := ReadBattery(root)
	if err != nil {
		t.Fatalf("ReadBattery: %v", err)
	}
	if b.Level != 1 || !b.Charging {
		t.Fatalf("got %+v", b)
	}
}

func TestReadBatteryMissing(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "AC", map[string]string{"type": "Mains"})
	writeSupply(t, root, "BAT0", map[string]string{"type": "Battery", "capacity": "n/a"})

	if _, err := ReadBattery(root); err == nil {
		t.Fatal("expected an error without a readable battery")
	}
	if _, err := ReadBattery(filepath.Join(root, "nope")); err == nil {
		t.Fatal("expected an error for a missing root")
	}
}

func TestRunReportsChanges(t *testing.T) {
	root := t.TempDir()
	writeSupply(t, root, "BAT0", map[string]string{"type": "Battery", "capacity": "50", "status": "Discharging"})

	var (
		mu  sync.Mutex
		got []Battery
	)
	m := New(root, 10*time.Millisecond, func(b Battery) {
		mu.Lock()
		got = append(got, b)
		mu.Unlock()
	})

	ctx, cancel := context.WithCancel(context.Background())
	done := make(chan struct{})
	go func() {
		m.Run(ctx)
		close(done)
	}()

	count := func() int {
		mu.Lock()
		defer mu.Unlock()
		return len(got)
	}
	waitUntil(t, time.Second, func() bool { return count() == 1 })

	// Unchanged readings are not reported again.
	time.Sleep(50 * time.Millisecond)
	if n := count(); n != 1 {
		t.Fatalf("reported %d times for a steady battery", n)
	}

	writeSupply(t, root, "BAT0", map[string]string{"capacity": "49", "status": "Charging"})
	waitUntil(t, time.Second, func() bool { return count() == 2 })
	cancel()
	<-done

	mu.Lock()
	defer mu.Unlock()
	if last := got[1]; last.Level != 0.49 || !last.Charging {
		t.Fatalf("last reading %+v", last)
	}
	if m.Battery() != got[1] {
		t.Fatalf("Battery() = %+v", m.Battery())
	}
}

func waitUntil(t *testing.T, timeout time.Duration, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(timeout)
	for time.Now().Before(deadline) {
		if cond() {
			return
		}
		time.Sleep(5 * time.Millisecond)
	}
	t.Fatal("condition not met before timeout")
}
