package engine

import (
	"fmt"
	"math"

	"github.com/moorebrett0/mochi/internal/expression"
)

// GestureKind is a touch gesture on the face.
type GestureKind uint8

const (
	Tap GestureKind = iota
	DoubleTap
	LongPressStart
	LongPressEnd
	DragStep
)

var gestureNames = map[GestureKind]string{
	Tap:            "tap",
	DoubleTap:      "doubleTap",
	LongPressStart: "longPressStart",
	LongPressEnd:   "longPressEnd",
	DragStep:       "dragStep",
}

func (k GestureKind) String() string {
	if n, ok := gestureNames[k]; ok {
		return n
	}
	return fmt.Sprintf("gesture(%d)", uint8(k))
}

// ParseGesture looks up a gesture by its wire name.
func ParseGesture(name string) (GestureKind, error) {
	for k, n := range gestureNames {
		if n == name {
			return k, nil
		}
	}
	return 0, fmt.Errorf("unknown gesture %q", name)
}

// Gesture is one touch event. DeltaX and DeltaY are only meaningful for
// DragStep: the movement in pixels since the previous step.
type Gesture struct {
	Kind   GestureKind
	DeltaX float64
	DeltaY float64
}

// reaction is a candidate face for a single tap, optionally with an effect.
type reaction struct {
	face   expression.Expression
	effect bool // sparkle on top
}

var tapReactions = []reaction{
	{face: expression.Wink},
	{face: expression.Heart},
	{face: expression.CarrotEyes},
	{face: expression.Excited},
	{face: expression.Surprised},
	{face: expression.Heart, effect: true},
	{face: expression.Cool},
	{face: expression.Thinking},
}

// OnGesture handles a touch gesture. Gestures are ignored while the wake
// sequence plays; a tap or double tap on a sleeping pet wakes it.
func (e *Engine) OnGesture(g Gesture) {
	switch g.Kind {
	case Tap:
		e.onTap()
	case DoubleTap:
		e.cancel(slotTap)
		e.doubleTap()
	case LongPressStart:
		e.onLongPressStart()
	case LongPressEnd:
		e.onLongPressEnd()
	case DragStep:
		e.onDrag(g.DeltaX, g.DeltaY)
	default:
		e.logger.Warn("engine: unknown gesture", "kind", g.Kind)
	}
}

// onTap waits out the double-tap window before acting on a single tap.
// A tap that lands after the window but before the pending single tap
// fired lets that one fire first.
func (e *Engine) onTap() {
	now := e.sched.Now()
	if e.pending(slotTap) {
		e.cancel(slotTap)
		if now.Sub(e.lastTapAt) < e.cfg.DoubleTapWindow {
			e.doubleTap()
			return
		}
		e.singleTap()
	}
	e.lastTapAt = now
	e.schedule(slotTap, e.cfg.SingleTapDelay, e.singleTap)
}

func (e *Engine) singleTap() {
	if e.state.Waking {
		return
	}
	if e.state.Sleeping {
		e.Wake()
		return
	}
	r := tapReactions[e.rng.IntN(len(tapReactions))]
	face := expression.Of(r.face)
	if r.face == expression.Wink {
		face = expression.Looking(r.face, e.randomDirection())
	}
	e.react(face, e.cfg.TapReaction)
	if r.effect {
		e.effect(expression.Sparkle)
	}
	e.ResetIdle()
}

func (e *Engine) doubleTap() {
	if e.state.Waking {
		return
	}
	if e.state.Sleeping {
		e.Wake()
		return
	}
	e.react(expression.Of(expression.Laughing), e.cfg.DoubleTapReaction)
	e.effect(expression.Sparkle)
	e.ResetIdle()
}

// onLongPressStart arms the two-stage long press: relaxed after the hold,
// then asleep.
func (e *Engine) onLongPressStart() {
	if e.state.Sleeping || e.state.Waking {
		return
	}
	e.longPressArmed = true
	e.schedule(slotLongPress, e.cfg.LongPress, func() {
		e.longPressArmed = false
		e.cancel(slotReaction)
		if !e.show(expression.Of(expression.Relaxed)) {
			return
		}
		e.schedule(slotNap, e.cfg.LongPressDoze, e.fallAsleep)
	})
}

// onLongPressEnd cancels a press that has not reached the relaxed stage.
// It also ends any petting stroke.
func (e *Engine) onLongPressEnd() {
	if e.longPressArmed {
		e.cancel(slotLongPress)
		e.longPressArmed = false
	}
	e.endPetting()
}

// onDrag counts mostly-vertical strokes as petting. Every few strokes the
// pet gets excited, then shows a heart, then settles.
func (e *Engine) onDrag(dx, dy float64) {
	if !finite(dy) {
		return
	}
	if !finite(dx) {
		dx = 0
	}
	if e.state.Sleeping || e.state.Waking {
		return
	}
	if math.Abs(dy) <= e.cfg.PetMinStroke || math.Abs(dx) >= 2*math.Abs(dy) {
		return
	}
	if e.longPressArmed {
		e.cancel(slotLongPress)
		e.longPressArmed = false
	}

	e.state.Petting = true
	e.petCount++
	e.schedule(slotPetting, e.cfg.PetSilence, e.endPetting)
	e.effect(expression.PetHearts)
	e.ResetIdle()

	if e.petCount%e.cfg.PetEscalateEvery != 0 {
		return
	}
	e.show(expression.Of(expression.Excited))
	e.schedule(slotReaction, e.cfg.PetHeartDelay, func() {
		e.show(expression.Of(expression.Heart))
		e.schedule(slotReaction, e.cfg.PetReaction-e.cfg.PetHeartDelay, e.revert)
	})
}

func (e *Engine) endPetting() {
	e.cancel(slotPetting)
	e.state.Petting = false
	e.petCount = 0
}
