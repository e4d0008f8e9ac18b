package engine

import (
	"time"

	"github.com/moorebrett0/mochi/internal/expression"
)

// ResetIdle restarts the inactivity countdown and calls off a pending
// idle doze. Nothing is armed while the pet sleeps.
func (e *Engine) ResetIdle() {
	e.cancel(slotDoze)
	if e.state.Sleeping {
		return
	}
	e.state.IdleDeadline = e.sched.Now().Add(e.cfg.IdleWindow)
	e.schedule(slotIdle, e.cfg.IdleWindow, e.idleExpired)
}

// idleExpired looks bored and dozes off, unless the pet is busy or, in
// vehicle mode, still moving.
func (e *Engine) idleExpired() {
	s := &e.state
	s.IdleDeadline = time.Time{}
	if s.Sleeping {
		return
	}
	busy := s.Waking || s.Petting || e.pending(slotNap)
	moving := e.cfg.VehicleMode && s.Speed >= e.cfg.MovingSpeed
	if busy || moving {
		e.ResetIdle()
		return
	}
	e.logger.Debug("engine: idle", "speed", s.Speed)
	e.cancel(slotReaction)
	e.show(expression.Of(expression.Bored))
	e.schedule(slotDoze, e.cfg.DozeDelay, e.fallAsleep)
}

// fallAsleep shows the sleep face and quiets every pending reaction.
func (e *Engine) fallAsleep() {
	s := &e.state
	if s.Sleeping || s.Waking {
		return
	}
	for _, sl := range []slot{slotIdle, slotDoze, slotNap, slotTap, slotLongPress, slotReaction} {
		e.cancel(sl)
	}
	e.longPressArmed = false
	e.endPetting()
	s.IdleDeadline = time.Time{}

	e.logger.Info("engine: asleep")
	e.paint(expression.Of(expression.Sleep))
	s.Sleeping = true
}

type wakeStep struct {
	face expression.Face
	hold time.Duration
}

// Wake plays the wake-up sequence: a last sleepy frame, a wink to each
// side, a relaxed face, then resting. It does nothing unless the pet is
// asleep.
func (e *Engine) Wake() {
	s := &e.state
	if !s.Sleeping || s.Waking {
		return
	}
	s.Waking = true
	e.cancel(slotIdle)
	e.logger.Info("engine: waking")

	steps := []wakeStep{
		{expression.Of(expression.Sleep), e.cfg.WakeHold},
		{expression.Looking(expression.Wink, expression.Left), e.cfg.WakeWink},
		{expression.Looking(expression.Wink, expression.Right), e.cfg.WakeWink},
		{expression.Of(expression.Relaxed), e.cfg.WakeRelax},
	}
	e.wakeStep(steps, 0)
}

func (e *Engine) wakeStep(steps []wakeStep, i int) {
	if i == len(steps) {
		e.state.Waking = false
		e.state.Sleeping = false
		e.paint(expression.Of(expression.Resting))
		e.ResetIdle()
		return
	}
	e.paint(steps[i].face)
	e.schedule(slotWake, steps[i].hold, func() { e.wakeStep(steps, i+1) })
}
