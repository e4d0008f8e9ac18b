package engine

import (
	"time"

	"github.com/moorebrett0/mochi/internal/expression"
)

// MoodState holds the latest readings, derived flags and the face on
// screen. It is owned by one Engine and only mutated by it.
type MoodState struct {
	// Readings
	TiltX        float64 `json:"tilt_x"`       // degrees, left/right
	TiltY        float64 `json:"tilt_y"`       // degrees, front/back
	Speed        float64 `json:"speed"`        // km/h, never negative
	Acceleration float64 `json:"acceleration"` // km/h per second
	Heading      float64 `json:"heading"`      // degrees from north of the last movement
	BatteryLevel float64 `json:"battery_level"`
	BatteryLow   bool    `json:"battery_low"`
	Charging     bool    `json:"charging"`

	// Lifecycle
	Sleeping bool `json:"sleeping"`
	Waking   bool `json:"waking"`
	Dozing   bool `json:"dozing"` // derived on Snapshot: counting down to sleep

	// Transient flags
	Petting      bool `json:"petting"`
	Turning      bool `json:"turning"`
	Braking      bool `json:"braking"`
	Accelerating bool `json:"accelerating"`
	Shaking      bool `json:"shaking"`

	Face expression.Face `json:"face"`

	LastChangeAt     time.Time `json:"last_change_at"`
	LastSpeedCheckAt time.Time `json:"last_speed_check_at"`
	IdleDeadline     time.Time `json:"idle_deadline"`
	AlertAt          time.Time `json:"alert_at"`
}

// transient reports whether a self-clearing flag currently owns the face.
func (s MoodState) transient() bool {
	return s.Turning || s.moving() || s.Petting
}

// moving reports whether a brake, acceleration or shake reaction is running.
func (s MoodState) moving() bool {
	return s.Braking || s.Accelerating || s.Shaking
}

// Phase is the coarse lifecycle state of the pet.
type Phase uint8

const (
	PhaseAwake Phase = iota
	PhaseTransient
	PhaseResting
	PhaseSleeping
	PhaseWaking
)

func (p Phase) String() string {
	switch p {
	case PhaseTransient:
		return "transient"
	case PhaseResting:
		return "resting"
	case PhaseSleeping:
		return "sleeping"
	case PhaseWaking:
		return "waking"
	default:
		return "awake"
	}
}

// MarshalText encodes the phase name.
func (p Phase) MarshalText() ([]byte, error) { return []byte(p.String()), nil }

// DeterminePhase returns the phase based on priority-ordered rules.
// Priority: Waking > Sleeping > Resting > Transient > Awake
func DeterminePhase(s MoodState) Phase {
	if s.Waking {
		return PhaseWaking
	}
	if s.Sleeping {
		return PhaseSleeping
	}
	if s.Dozing {
		return PhaseResting
	}
	if s.transient() {
		return PhaseTransient
	}
	return PhaseAwake
}

// Snapshot is a copy of MoodState with derived values.
type Snapshot struct {
	MoodState
	Phase Phase `json:"phase"`
}
