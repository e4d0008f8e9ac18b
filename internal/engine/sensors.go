package engine

import (
	"math"
	"time"

	"github.com/moorebrett0/mochi/internal/expression"
)

const (
	standardGravity = 9.81   // m/s²
	earthRadiusKm   = 6371.0 // mean radius
)

// Fix is one geolocation sample.
type Fix struct {
	Lat float64   `json:"lat"`
	Lon float64   `json:"lon"`
	At  time.Time `json:"at"`
}

// OnOrientation records device tilt in degrees. A sharp sideways tilt
// starts a turn: the pet glances toward it for the turn window. Non-finite
// values mean the axis is unavailable.
func (e *Engine) OnOrientation(tiltX, tiltY float64) {
	if finite(tiltY) {
		e.state.TiltY = tiltY
	}
	if !finite(tiltX) {
		return
	}
	e.state.TiltX = tiltX

	if e.state.Sleeping || e.state.Waking || e.state.Turning || e.state.moving() {
		return
	}
	if math.Abs(tiltX) <= e.cfg.TurnThreshold {
		return
	}
	e.state.Turning = true
	e.show(expression.Looking(expression.SideEye, expression.DirectionOf(tiltX)))
	e.ResetIdle()
	e.schedule(slotTurn, e.cfg.TurnWindow, func() {
		e.state.Turning = false
		e.revert()
	})
}

// OnMotion takes an acceleration sample including gravity (m/s²) and
// classifies the change from the previous sample as braking, accelerating
// or shaking. Only one motion reaction runs at a time.
func (e *Engine) OnMotion(ax, ay, az float64) {
	if !finite(ax) || !finite(ay) || !finite(az) {
		return
	}
	e.extrapolateSpeed(ax, ay, az)

	prev, had := e.prevAccel, e.haveAccel
	e.prevAccel, e.haveAccel = [3]float64{ax, ay, az}, true
	if !had {
		return
	}
	if e.state.Sleeping || e.state.Waking {
		return
	}
	if e.state.moving() {
		return
	}

	dx, dy, dz := ax-prev[0], ay-prev[1], az-prev[2]
	force := math.Sqrt(dx*dx + dy*dy + dz*dz)
	if dy > e.cfg.BrakeThreshold || dy < -e.cfg.AccelThreshold || force > e.cfg.ShakeThreshold {
		// A motion reaction outranks a glance into a turn.
		e.cancel(slotTurn)
		e.state.Turning = false
	}
	switch {
	case dy > e.cfg.BrakeThreshold:
		e.state.Braking = true
		e.show(expression.Of(expression.Scared))
		e.ResetIdle()
		e.schedule(slotMotion, e.cfg.MotionWindow, func() {
			e.state.Braking = false
			e.revert()
		})
	case dy < -e.cfg.AccelThreshold:
		e.state.Accelerating = true
		if e.show(expression.Of(expression.Excited)) {
			e.effect(expression.SpeedLines)
		}
		e.ResetIdle()
		e.schedule(slotMotion, e.cfg.MotionWindow, func() {
			e.state.Accelerating = false
			e.revert()
		})
	case force > e.cfg.ShakeThreshold:
		e.state.Shaking = true
		e.show(expression.Of(expression.Dizzy))
		e.ResetIdle()
		e.schedule(slotMotion, e.cfg.ShakeSettle, func() {
			e.show(expression.Of(expression.Worried))
			e.schedule(slotMotion, e.cfg.ShakeWindow-e.cfg.ShakeSettle, func() {
				e.state.Shaking = false
				e.revert()
			})
		})
	}
}

// extrapolateSpeed nudges the speed estimate from the accelerometer while
// position fixes are stale and the pet is already moving.
func (e *Engine) extrapolateSpeed(ax, ay, az float64) {
	if !e.hasGPS || e.state.Speed <= e.cfg.ExtrapolateMinSpeed {
		return
	}
	now := e.sched.Now()
	if now.Sub(e.speedAt) <= e.cfg.GPSStale {
		return
	}
	from := e.speedAt
	if e.estimatedAt.After(from) {
		from = e.estimatedAt
	}
	dt := now.Sub(from).Seconds()
	e.estimatedAt = now
	if dt <= 0 {
		return
	}
	mag := math.Abs(math.Sqrt(ax*ax+ay*ay+az*az) - standardGravity)
	if mag <= e.cfg.AccelNoise {
		return
	}
	gain := mag * dt * 3.6 * e.cfg.AccelDamping
	e.state.Acceleration = gain / dt
	e.state.Speed += gain
}

// OnPosition derives speed and heading from consecutive geolocation fixes.
// Fixes closer than MinFixInterval to the previous accepted fix are
// ignored.
func (e *Engine) OnPosition(fix Fix) {
	if !finite(fix.Lat) || !finite(fix.Lon) || fix.At.IsZero() {
		return
	}
	if math.Abs(fix.Lat) > 90 || math.Abs(fix.Lon) > 180 {
		return
	}
	if !e.haveFix {
		e.lastFix, e.haveFix = fix, true
		return
	}
	dt := fix.At.Sub(e.lastFix.At)
	if dt < e.cfg.MinFixInterval {
		return
	}
	km := haversineKm(e.lastFix.Lat, e.lastFix.Lon, fix.Lat, fix.Lon)
	if km > 0 {
		e.state.Heading = bearing(e.lastFix.Lat, e.lastFix.Lon, fix.Lat, fix.Lon)
	}
	e.lastFix = fix
	e.OnSpeedUpdate(km / dt.Hours())
}

// OnSpeedUpdate sets the current speed in km/h directly. Negative and
// non-finite values are treated as zero.
func (e *Engine) OnSpeedUpdate(kmh float64) {
	if !finite(kmh) || kmh < 0 {
		kmh = 0
	}
	now := e.sched.Now()
	if e.hasGPS {
		if dt := now.Sub(e.speedAt).Seconds(); dt > 0 {
			e.state.Acceleration = (kmh - e.state.Speed) / dt
		}
	}
	e.state.Speed = kmh
	e.speedAt, e.hasGPS = now, true
}

// OnBattery records the battery level (0..1) and charging flag. Dropping
// below the low threshold worries the pet; plugging in while low cheers
// it up.
func (e *Engine) OnBattery(level float64, charging bool) {
	if !finite(level) {
		return
	}
	level = math.Max(0, math.Min(1, level))
	wasLow, wasCharging := e.state.BatteryLow, e.state.Charging

	e.state.BatteryLevel = level
	e.state.BatteryLow = level < e.cfg.LowBattery
	e.state.Charging = charging

	switch {
	case e.state.BatteryLow && !wasLow:
		e.logger.Info("engine: battery low", "level", level)
		e.react(expression.Of(expression.Worried), e.cfg.BatteryReaction)
	case e.state.BatteryLow && charging && !wasCharging:
		e.react(expression.Of(expression.Excited), e.cfg.BatteryReaction)
	}
}

// OnAlert marks a camera or object alert as fresh and re-evaluates at
// once.
func (e *Engine) OnAlert() {
	now := e.sched.Now()
	e.state.AlertAt = now
	e.Tick(now)
}

func haversineKm(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	dφ := radians(lat2 - lat1)
	dλ := radians(lon2 - lon1)
	a := math.Sin(dφ/2)*math.Sin(dφ/2) + math.Cos(φ1)*math.Cos(φ2)*math.Sin(dλ/2)*math.Sin(dλ/2)
	a = math.Min(1, math.Max(0, a))
	return earthRadiusKm * 2 * math.Atan2(math.Sqrt(a), math.Sqrt(1-a))
}

// bearing is the initial great-circle course in degrees [0, 360).
func bearing(lat1, lon1, lat2, lon2 float64) float64 {
	φ1, φ2 := radians(lat1), radians(lat2)
	dλ := radians(lon2 - lon1)
	y := math.Sin(dλ) * math.Cos(φ2)
	x := math.Cos(φ1)*math.Sin(φ2) - math.Sin(φ1)*math.Cos(φ2)*math.Cos(dλ)
	deg := math.Atan2(y, x) * 180 / math.Pi
	return math.Mod(deg+360, 360)
}

func radians(deg float64) float64 { return deg * math.Pi / 180 }
