package proactive

import (
	"context"
	"fmt"
	"log/slog"
	"sync"
	"time"

	"github.com/moorebrett0/mochi/internal/discord"
	"github.com/moorebrett0/mochi/internal/engine"
	"github.com/moorebrett0/mochi/internal/persona"
)

// MessageSender can post to the pet's channel and update presence.
type MessageSender interface {
	Announce(text string)
	UpdatePresence(snap engine.Snapshot)
}

// Scheduler watches the engine and mirrors what happens to Discord.
type Scheduler struct {
	sender  MessageSender
	state   func(ctx context.Context) (engine.Snapshot, error)
	persona *persona.Persona
	cfg     Config
	now     func() time.Time

	mu            sync.Mutex
	started       bool
	lastFace      string
	lastPhase     engine.Phase
	sleepingSince time.Time
	lastMorning   time.Time
	lastDistress  time.Time
	lastBoredom   time.Time
	lastSleepNote time.Time
}

// Config for the proactive scheduler.
type Config struct {
	CheckInterval    time.Duration
	MorningHour      int           // local hour for the check-in, -1 disables it
	BoredomAfter     time.Duration // asleep this long before asking for company
	DistressCooldown time.Duration
	NapCooldown      time.Duration // minimum gap between sleep/wake notes
}

// New creates a proactive scheduler. state reads the engine snapshot,
// usually through the event loop.
func New(sender MessageSender, state func(ctx context.Context) (engine.Snapshot, error), p *persona.Persona, cfg Config) *Scheduler {
	return &Scheduler{
		sender:  sender,
		state:   state,
		persona: p,
		cfg:     cfg,
		now:     time.Now,
	}
}

// Run starts the tick loop. Blocks until context is cancelled.
func (s *Scheduler) Run(ctx context.Context) error {
	ticker := time.NewTicker(s.cfg.CheckInterval)
	defer ticker.Stop()

	for {
		select {
		case <-ctx.Done():
			return nil
		case <-ticker.C:
			snap, err := s.state(ctx)
			if err != nil {
				if ctx.Err() != nil {
					return nil
				}
				slog.Warn("proactive: read state failed", "err", err)
				continue
			}
			s.check(snap)
		}
	}
}

func (s *Scheduler) check(snap engine.Snapshot) {
	s.mu.Lock()
	defer s.mu.Unlock()

	now := s.now()
	p := s.persona

	// Presence follows every face or phase change
	face := snap.Face.String()
	first := !s.started
	changed := first || face != s.lastFace || snap.Phase != s.lastPhase
	prevPhase := s.lastPhase
	s.started, s.lastFace, s.lastPhase = true, face, snap.Phase
	if changed {
		s.sender.UpdatePresence(snap)
	}

	// Falling asleep and waking up
	asleep := snap.Phase == engine.PhaseSleeping
	if asleep && s.sleepingSince.IsZero() {
		s.sleepingSince = now
	}
	if !asleep {
		s.sleepingSince = time.Time{}
	}
	if !first && snap.Phase != prevPhase && now.Sub(s.lastSleepNote) > s.cfg.NapCooldown {
		switch {
		case asleep:
			s.lastSleepNote = now
			s.sender.Announce(discord.TemplateSleep(p))
			return
		case prevPhase == engine.PhaseSleeping && snap.Phase == engine.PhaseWaking:
			s.lastSleepNote = now
			s.sender.Announce(discord.TemplateWake(p))
			return
		}
	}

	// Morning check-in
	if now.Hour() == s.cfg.MorningHour && now.Sub(s.lastMorning) > 20*time.Hour {
		s.lastMorning = now
		s.sender.Announce(discord.TemplateMorningCheckIn(p, snap))
		return
	}

	// Distress alerts
	if reason := checkDistress(snap); reason != "" && now.Sub(s.lastDistress) > s.cfg.DistressCooldown {
		s.lastDistress = now
		s.sender.Announce(discord.TemplateDistressAlert(p, reason))
		return
	}

	// Boredom
	if asleep && now.Sub(s.sleepingSince) > s.cfg.BoredomAfter && now.Sub(s.lastBoredom) > s.cfg.BoredomAfter {
		s.lastBoredom = now
		s.sender.Announce(discord.TemplateBoredomMessage(p))
	}
}

func checkDistress(snap engine.Snapshot) string {
	if snap.BatteryLow && !snap.Charging {
		return fmt.Sprintf("Battery is at %.0f%%! Plug me in before I fade out...", snap.BatteryLevel*100)
	}
	return ""
}
