// Package engine decides which face the pet shows. It consumes sensor
// readings, gestures and ticks, keeps a MoodState, and emits faces and
// effects to a Renderer.
//
// An Engine is not safe for concurrent use. Every entry point, including
// the timer callbacks it registers with its clock.Scheduler, must run on
// one goroutine (see internal/loop).
package engine

import (
	"log/slog"
	"math"
	"math/rand/v2"
	"time"

	"github.com/moorebrett0/mochi/internal/clock"
	"github.com/moorebrett0/mochi/internal/expression"
)

// Renderer draws faces and effects.
type Renderer interface {
	Render(e expression.Expression, p expression.Params)
	RenderEffect(fx expression.Effect, p expression.Params)
}

// slot names a single-occupancy timer. Scheduling into a slot stops the
// timer already in it.
type slot uint8

const (
	slotTurn slot = iota
	slotMotion
	slotReaction
	slotTap
	slotLongPress
	slotNap // long-press second stage, survives idle resets
	slotPetting
	slotIdle
	slotDoze // idle second stage, cancelled by idle resets
	slotWake

	numSlots
)

var slotNames = [numSlots]string{
	"turn", "motion", "reaction", "tap", "long-press", "nap", "petting", "idle", "doze", "wake",
}

func (s slot) String() string { return slotNames[s] }

// Engine is the mood and expression decision engine.
type Engine struct {
	cfg    Config
	sched  clock.Scheduler
	out    Renderer
	rng    *rand.Rand
	logger *slog.Logger

	state   MoodState
	painted bool
	slots   [numSlots]clock.Timer

	lastBand  Band
	lastTilt  expression.Face // last face picked by the tilt rule
	tiltShown bool

	prevAccel [3]float64
	haveAccel bool

	lastFix     Fix
	haveFix     bool
	speedAt     time.Time // last speed update from a position source
	estimatedAt time.Time // last accelerometer extrapolation step
	hasGPS      bool

	lastTapAt      time.Time
	longPressArmed bool
	petCount       int
}

// Option customizes an Engine.
type Option func(*Engine)

// WithLogger sets the logger used for decision tracing.
func WithLogger(l *slog.Logger) Option {
	return func(e *Engine) { e.logger = l }
}

// WithRand sets the random source used to pick among candidate faces.
func WithRand(r *rand.Rand) Option {
	return func(e *Engine) { e.rng = r }
}

// New creates an Engine. It renders nothing until Start or the first input.
func New(cfg Config, sched clock.Scheduler, out Renderer, opts ...Option) *Engine {
	e := &Engine{
		cfg:    cfg,
		sched:  sched,
		out:    out,
		logger: slog.Default(),
	}
	for _, o := range opts {
		o(e)
	}
	if e.rng == nil {
		seed := uint64(time.Now().UnixNano())
		e.rng = rand.New(rand.NewPCG(seed, seed>>17|1))
	}
	return e
}

// Config returns the thresholds in use.
func (e *Engine) Config() Config { return e.cfg }

// Snapshot returns a copy of the current state.
func (e *Engine) Snapshot() Snapshot {
	s := e.state
	s.Dozing = !s.Sleeping && (e.pending(slotDoze) || e.pending(slotNap))
	return Snapshot{MoodState: s, Phase: DeterminePhase(s)}
}

// TickInterval is how often Tick should be called. It slows down on low
// battery.
func (e *Engine) TickInterval() time.Duration {
	if e.state.BatteryLow {
		return e.cfg.LowBatteryTickInterval
	}
	return e.cfg.TickInterval
}

// Start shows the resting face, arms the idle timer and plays the short
// sleep-then-wake greeting.
func (e *Engine) Start() {
	e.paint(expression.Of(expression.Resting))
	e.ResetIdle()
	e.schedule(slotWake, e.cfg.StartupSleep, func() {
		e.fallAsleep()
		e.schedule(slotWake, e.cfg.StartupWake, e.Wake)
	})
}

// Stop cancels every pending timer.
func (e *Engine) Stop() {
	for s := slot(0); s < numSlots; s++ {
		e.cancel(s)
	}
}

func (e *Engine) schedule(s slot, d time.Duration, f func()) {
	e.cancel(s)
	var t clock.Timer
	t = e.sched.AfterFunc(d, func() {
		if e.slots[s] != t {
			return
		}
		e.slots[s] = nil
		f()
	})
	e.slots[s] = t
}

func (e *Engine) cancel(s slot) {
	if t := e.slots[s]; t != nil {
		t.Stop()
		e.slots[s] = nil
	}
}

func (e *Engine) pending(s slot) bool { return e.slots[s] != nil }

// paint renders f unconditionally and records it. Repeating the face on
// screen only refreshes LastChangeAt.
func (e *Engine) paint(f expression.Face) {
	e.state.LastChangeAt = e.sched.Now()
	if e.painted && f == e.state.Face {
		return
	}
	e.painted = true
	e.state.Face = f
	e.logger.Debug("engine: face", "face", f.String())
	e.out.Render(f.Expression, f.Params)
}

// show renders f unless the pet is asleep or waking up.
func (e *Engine) show(f expression.Face) bool {
	if e.state.Sleeping || e.state.Waking {
		return false
	}
	e.paint(f)
	return true
}

func (e *Engine) effect(fx expression.Effect) {
	if e.state.Sleeping || e.state.Waking {
		return
	}
	e.logger.Debug("engine: effect", "effect", fx.String())
	e.out.RenderEffect(fx, expression.Params{})
}

// revert returns to the resting face, unless a camera alert, a turn or a
// motion reaction still owns it. The last of those to clear reverts.
func (e *Engine) revert() {
	if e.alertFresh(e.sched.Now()) || e.state.Turning || e.state.moving() {
		return
	}
	e.show(expression.Of(expression.Resting))
}

// react shows f and reverts after d.
func (e *Engine) react(f expression.Face, d time.Duration) {
	if !e.show(f) {
		return
	}
	e.schedule(slotReaction, d, e.revert)
}

func (e *Engine) alertFresh(now time.Time) bool {
	return !e.state.AlertAt.IsZero() && now.Sub(e.state.AlertAt) < e.cfg.AlertFreshness
}

func (e *Engine) randomDirection() expression.Direction {
	if e.rng.IntN(2) == 0 {
		return expression.Left
	}
	return expression.Right
}

// pick resolves a candidate into a concrete face. Directional faces get a
// random side.
func (e *Engine) pick(cands []expression.Expression) expression.Face {
	x := cands[e.rng.IntN(len(cands))]
	switch x {
	case expression.Wink, expression.SideEye:
		return expression.Looking(x, e.randomDirection())
	}
	return expression.Of(x)
}

func finite(v float64) bool { return !math.IsNaN(v) && !math.IsInf(v, 0) }
