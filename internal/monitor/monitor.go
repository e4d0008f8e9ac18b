package monitor

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"strconv"
	"strings"
	"sync/atomic"
	"time"
)

// DefaultRoot is where Linux exposes power supplies.
const DefaultRoot = "/sys/class/power_supply"

// Battery holds a snapshot of the host battery.
type Battery struct {
	Present  bool
	Level    float64 // 0..1
	Charging bool
}

// Monitor reads the battery periodically and stores it atomically.
type Monitor struct {
	battery  atomic.Pointer[Battery]
	root     string
	interval time.Duration
	onUpdate func(Battery) // called when the reading changes

	warned bool
}

// New creates a Monitor. onUpdate is called each time the reading changes.
// An empty root means DefaultRoot.
func New(root string, interval time.Duration, onUpdate func(Battery)) *Monitor {
	if root == "" {
		root = DefaultRoot
	}
	m := &Monitor{
		root:     root,
		interval: interval,
		onUpdate: onUpdate,
	}
	m.battery.Store(&Battery{})
	return m
}

// Battery returns the latest reading without blocking.
func (m *Monitor) Battery() Battery {
	return *m.battery.Load()
}

// Run polls the battery until the context is cancelled. Hosts without a
// battery are polled anyway so a hot-plugged supply is picked up.
func (m *Monitor) Run(ctx context.Context) error {
	m.refresh()

	ticker := time.NewTicker(m.interval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			m.refresh()
		}
	}
}

func (m *Monitor) refresh() {
	b, err := ReadBattery(m.root)
	if err != nil {
		if !m.warned {
			slog.Info("monitor: no battery, battery reactions disabled", "root", m.root, "err", err)
			m.warned = true
		}
		return
	}
	m.warned = false

	prev := m.battery.Swap(&b)
	if *prev == b {
		return
	}
	slog.Debug("monitor: battery changed", "battery", FormatBattery(b))
	if m.onUpdate != nil {
		m.onUpdate(b)
	}
}

// ReadBattery returns the first battery found under root. A supply is a
// battery when its type file says "Battery" and it reports a capacity.
func ReadBattery(root string) (Battery, error) {
	entries, err := os.ReadDir(root)
	if err != nil {
		return Battery{}, fmt.Errorf("reading %s: %w", root, err)
	}
	for _, e := range entries {
		dir := filepath.Join(root, e.Name())
		if readString(filepath.Join(dir, "type")) != "Battery" {
			continue
		}
		capacity, err := strconv.ParseFloat(readString(filepath.Join(dir, "capacity")), 64)
		if err != nil {
			continue
		}
		status := readString(filepath.Join(dir, "status"))
		return Battery{
			Present:  true,
			Level:    min(max(capacity/100, 0), 1),
			Charging: status == "Charging" || status == "Full",
		}, nil
	}
	return Battery{}, fmt.Errorf("no battery under %s", root)
}

func readString(path string) string {
	data, err := os.ReadFile(path)
	if err != nil {
		return ""
	}
	return strings.TrimSpace(string(data))
}

// FormatBattery returns a human-readable battery summary.
func FormatBattery(b Battery) string {
	if !b.Present {
		return "Battery: none"
	}
	state := "discharging"
	if b.Charging {
		state = "charging"
	}
	return fmt.Sprintf("Battery: %.0f%% (%s)", b.Level*100, state)
}
