package engine

import (
	"fmt"
	"time"
)

// SpeedBands are the upper bounds (km/h, inclusive) of the ordered speed
// bands. Anything above Fast is very fast.
type SpeedBands struct {
	Stopped float64 `yaml:"stopped"`
	Slow    float64 `yaml:"slow"`
	Medium  float64 `yaml:"medium"`
	Fast    float64 `yaml:"fast"`
}

// Band is a speed bracket.
type Band uint8

const (
	BandUnknown Band = iota
	BandStopped
	BandSlow
	BandMedium
	BandFast
	BandVeryFast
)

func (b Band) String() string {
	switch b {
	case BandStopped:
		return "stopped"
	case BandSlow:
		return "slow"
	case BandMedium:
		return "medium"
	case BandFast:
		return "fast"
	case BandVeryFast:
		return "very-fast"
	default:
		return "unknown"
	}
}

// Classify maps a speed onto its band.
func (sb SpeedBands) Classify(kmh float64) Band {
	switch {
	case kmh <= sb.Stopped:
		return BandStopped
	case kmh <= sb.Slow:
		return BandSlow
	case kmh <= sb.Medium:
		return BandMedium
	case kmh <= sb.Fast:
		return BandFast
	default:
		return BandVeryFast
	}
}

// Config holds every heuristic threshold of the decision engine.
type Config struct {
	// Orientation
	TurnThreshold float64       `yaml:"turn_threshold"` // degrees of |tiltX|
	TurnWindow    time.Duration `yaml:"turn_window"`

	// Motion (m/s² deltas between consecutive samples)
	BrakeThreshold float64       `yaml:"brake_threshold"`
	AccelThreshold float64       `yaml:"accel_threshold"`
	ShakeThreshold float64       `yaml:"shake_threshold"`
	MotionWindow   time.Duration `yaml:"motion_window"`
	ShakeSettle    time.Duration `yaml:"shake_settle"` // dizzy -> worried
	ShakeWindow    time.Duration `yaml:"shake_window"` // dizzy -> resting

	// Speed
	Bands         SpeedBands    `yaml:"speed_bands"`
	SpeedInterval time.Duration `yaml:"speed_interval"`
	MovingSpeed   float64       `yaml:"moving_speed"` // below this the pet may fall asleep

	// Geolocation and accelerometer speed estimate
	MinFixInterval      time.Duration `yaml:"min_fix_interval"`
	GPSStale            time.Duration `yaml:"gps_stale"`
	ExtrapolateMinSpeed float64       `yaml:"extrapolate_min_speed"`
	AccelNoise          float64       `yaml:"accel_noise"`
	AccelDamping        float64       `yaml:"accel_damping"`

	// Tilt curiosity
	TiltCooldown   time.Duration `yaml:"tilt_cooldown"`
	CuriousTiltMin float64       `yaml:"curious_tilt_min"`
	CuriousTiltMax float64       `yaml:"curious_tilt_max"`
	InclineMin     float64       `yaml:"incline_min"`
	InclineMax     float64       `yaml:"incline_max"`

	// Idle variety
	VarietyMoving  time.Duration `yaml:"variety_moving"`
	VarietyStopped time.Duration `yaml:"variety_stopped"`

	AlertFreshness time.Duration `yaml:"alert_freshness"`

	// Idle / sleep
	IdleWindow  time.Duration `yaml:"idle_window"`
	DozeDelay   time.Duration `yaml:"doze_delay"`
	VehicleMode bool          `yaml:"vehicle_mode"`

	// Gestures
	DoubleTapWindow   time.Duration `yaml:"double_tap_window"`
	SingleTapDelay    time.Duration `yaml:"single_tap_delay"`
	TapReaction       time.Duration `yaml:"tap_reaction"`
	DoubleTapReaction time.Duration `yaml:"double_tap_reaction"`
	LongPress         time.Duration `yaml:"long_press"`
	LongPressDoze     time.Duration `yaml:"long_press_doze"`
	PetMinStroke      float64       `yaml:"pet_min_stroke"`
	PetEscalateEvery  int           `yaml:"pet_escalate_every"`
	PetSilence        time.Duration `yaml:"pet_silence"`
	PetHeartDelay     time.Duration `yaml:"pet_heart_delay"`
	PetReaction       time.Duration `yaml:"pet_reaction"`

	// Battery
	LowBattery             float64       `yaml:"low_battery"`
	BatteryReaction        time.Duration `yaml:"battery_reaction"`
	TickInterval           time.Duration `yaml:"tick_interval"`
	LowBatteryTickInterval time.Duration `yaml:"low_battery_tick_interval"`

	// Wake sequence and startup demo
	WakeHold     time.Duration `yaml:"wake_hold"`
	WakeWink     time.Duration `yaml:"wake_wink"`
	WakeRelax    time.Duration `yaml:"wake_relax"`
	StartupSleep time.Duration `yaml:"startup_sleep"`
	StartupWake  time.Duration `yaml:"startup_wake"`
}

// DefaultConfig returns the reference thresholds.
func DefaultConfig() Config {
	return Config{
		TurnThreshold: 20,
		TurnWindow:    1500 * time.Millisecond,

		BrakeThreshold: 15,
		AccelThreshold: 12,
		ShakeThreshold: 20,
		MotionWindow:   2 * time.Second,
		ShakeSettle:    1500 * time.Millisecond,
		ShakeWindow:    3 * time.Second,

		Bands:         SpeedBands{Stopped: 1, Slow: 20, Medium: 50, Fast: 80},
		SpeedInterval: 3 * time.Second,
		MovingSpeed:   5,

		MinFixInterval:      500 * time.Millisecond,
		GPSStale:            3 * time.Second,
		ExtrapolateMinSpeed: 3,
		AccelNoise:          0.3,
		AccelDamping:        0.7,

		TiltCooldown:   2 * time.Second,
		CuriousTiltMin: 15,
		CuriousTiltMax: 30,
		InclineMin:     20,
		InclineMax:     50,

		VarietyMoving:  6 * time.Second,
		VarietyStopped: 8 * time.Second,

		AlertFreshness: 5 * time.Second,

		IdleWindow:  20 * time.Second,
		DozeDelay:   3 * time.Second,
		VehicleMode: true,

		DoubleTapWindow:   300 * time.Millisecond,
		SingleTapDelay:    310 * time.Millisecond,
		TapReaction:       1800 * time.Millisecond,
		DoubleTapReaction: 2 * time.Second,
		LongPress:         2 * time.Second,
		LongPressDoze:     2 * time.Second,
		PetMinStroke:      20,
		PetEscalateEvery:  4,
		PetSilence:        time.Second,
		PetHeartDelay:     time.Second,
		PetReaction:       2500 * time.Millisecond,

		LowBattery:             0.15,
		BatteryReaction:        2 * time.Second,
		TickInterval:           250 * time.Millisecond,
		LowBatteryTickInterval: 500 * time.Millisecond,

		WakeHold:     time.Second,
		WakeWink:     600 * time.Millisecond,
		WakeRelax:    800 * time.Millisecond,
		StartupSleep: 500 * time.Millisecond,
		StartupWake:  time.Second,
	}
}

// Validate rejects configurations the engine cannot run with.
func (c Config) Validate() error {
	b := c.Bands
	if !(b.Stopped < b.Slow && b.Slow < b.Medium && b.Medium < b.Fast) {
		return fmt.Errorf("speed bands must be strictly increasing (got %v/%v/%v/%v)", b.Stopped, b.Slow, b.Medium, b.Fast)
	}
	if c.SingleTapDelay < c.DoubleTapWindow {
		return fmt.Errorf("single_tap_delay (%s) must not be shorter than double_tap_window (%s)", c.SingleTapDelay, c.DoubleTapWindow)
	}
	if c.PetEscalateEvery < 1 {
		return fmt.Errorf("pet_escalate_every must be at least 1")
	}
	if c.PetReaction < c.PetHeartDelay {
		return fmt.Errorf("pet_reaction must not be shorter than pet_heart_delay")
	}
	if c.ShakeWindow < c.ShakeSettle {
		return fmt.Errorf("shake_window must not be shorter than shake_settle")
	}
	if c.CuriousTiltMin >= c.CuriousTiltMax || c.InclineMin >= c.InclineMax {
		return fmt.Errorf("tilt ranges must have min < max")
	}

	positive := map[string]time.Duration{
		"turn_window":               c.TurnWindow,
		"motion_window":             c.MotionWindow,
		"speed_interval":            c.SpeedInterval,
		"idle_window":               c.IdleWindow,
		"double_tap_window":         c.DoubleTapWindow,
		"long_press":                c.LongPress,
		"tick_interval":             c.TickInterval,
		"low_battery_tick_interval": c.LowBatteryTickInterval,
		"min_fix_interval":          c.MinFixInterval,
	}
	for name, d := range positive {
		if d <= 0 {
			return fmt.Errorf("%s must be positive", name)
		}
	}
	if c.LowBattery < 0 || c.LowBattery > 1 {
		return fmt.Errorf("low_battery must be a fraction between 0 and 1")
	}
	return nil
}
