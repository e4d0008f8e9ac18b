package engine

import (
	"math"
	"time"

	"github.com/moorebrett0/mochi/internal/expression"
)

var bandFaces = map[Band][]expression.Expression{
	BandStopped:  {expression.Bored},
	BandSlow:     {expression.Relaxed, expression.Thinking},
	BandMedium:   {expression.Heart, expression.Resting},
	BandFast:     {expression.Cool, expression.Determined},
	BandVeryFast: {expression.Speedy},
}

var (
	movingVariety = []expression.Expression{
		expression.Resting, expression.Wink, expression.CarrotEyes, expression.Thinking, expression.Relaxed,
	}
	stoppedVariety = []expression.Expression{
		expression.Bored, expression.Thinking, expression.Wink, expression.SideEye,
	}
)

// Tick re-evaluates the face. The first matching rule wins:
//
//  1. a fresh camera alert
//  2. any active turn, motion or petting reaction keeps its face
//  3. the speed band, at most once per speed interval
//  4. tilt curiosity, if the face has been steady long enough
//  5. idle variety, if the face has been steady even longer
//
// Nothing happens while the pet sleeps or wakes up.
func (e *Engine) Tick(now time.Time) {
	s := &e.state
	if s.Sleeping || s.Waking {
		return
	}
	if e.alertFresh(now) {
		e.show(expression.Of(expression.CameraAlert))
		e.ResetIdle()
		return
	}
	if s.transient() {
		return
	}
	// A stale alert face gives way to whatever the rules pick now, or to
	// the resting face.
	stale := s.Face.Expression == expression.CameraAlert
	if stale {
		s.LastSpeedCheckAt = time.Time{}
	}
	if e.speedRule(now) || e.tiltRule(now) || e.varietyRule(now) {
		return
	}
	if stale {
		e.revert()
	}
}

// speedRule shows a face for the current speed band. A stopped pet gets
// the bored face only when it has just come to a stop, and the repeat
// does not count as activity so idle sleep can still happen.
func (e *Engine) speedRule(now time.Time) bool {
	s := &e.state
	if !s.LastSpeedCheckAt.IsZero() && now.Sub(s.LastSpeedCheckAt) < e.cfg.SpeedInterval {
		return false
	}
	s.LastSpeedCheckAt = now

	band := e.cfg.Bands.Classify(s.Speed)
	changed := band != e.lastBand
	e.lastBand = band
	if band == BandStopped && !changed {
		return false
	}
	if changed {
		e.logger.Debug("engine: speed band", "band", band.String(), "kmh", s.Speed)
	}
	e.show(e.pick(bandFaces[band]))
	if band != BandStopped {
		e.ResetIdle()
	}
	return true
}

// tiltRule shows curiosity about how the phone is held. Only a new tilt
// face counts as activity; holding the same tilt does not keep the pet
// awake.
func (e *Engine) tiltRule(now time.Time) bool {
	s := &e.state
	if now.Sub(s.LastChangeAt) < e.cfg.TiltCooldown {
		return false
	}
	var f expression.Face
	switch ax, ty := math.Abs(s.TiltX), s.TiltY; {
	case ax > e.cfg.CuriousTiltMin && ax < e.cfg.CuriousTiltMax:
		f = expression.Looking(expression.SideEye, expression.DirectionOf(s.TiltX))
	case ty > e.cfg.InclineMin && ty < e.cfg.InclineMax:
		f = expression.Of(expression.Determined)
	case ty < -e.cfg.InclineMin && ty > -e.cfg.InclineMax:
		f = expression.Of(expression.Worried)
	default:
		e.tiltShown = false
		return false
	}
	e.show(f)
	if !e.tiltShown || f != e.lastTilt {
		e.ResetIdle()
	}
	e.lastTilt, e.tiltShown = f, true
	return true
}

// varietyRule keeps the face lively. It does not count as activity.
func (e *Engine) varietyRule(now time.Time) bool {
	s := &e.state
	gap, set := e.cfg.VarietyStopped, stoppedVariety
	if s.Speed > e.cfg.MovingSpeed {
		gap, set = e.cfg.VarietyMoving, movingVariety
	}
	if now.Sub(s.LastChangeAt) <= gap {
		return false
	}
	e.show(e.pick(set))
	return true
}
